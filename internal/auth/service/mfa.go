package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/filevault-labs/filevault/internal/auth/domain"
	"github.com/filevault-labs/filevault/internal/auth/store"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var (
	ErrInvalidTOTPCode   = errors.New("invalid TOTP code")
	ErrMFANotEnrolled    = errors.New("MFA not enrolled for this user")
	ErrMFAAlreadyEnabled = errors.New("MFA already enabled for this user")
)

type MFAService struct {
	Store  store.Store
	Issuer string // Issuer name for TOTP (e.g., "FileVault")
}

// EnrollTOTP generates a TOTP secret for the user and returns it along with a
// QR code URL. This does NOT enable MFA yet - the user must verify a code
// first via ActivateTOTP.
func (s *MFAService) EnrollTOTP(ctx context.Context, userID string, username string) (domain.MFAEnrollResponse, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.MFAEnrollResponse{}, fmt.Errorf("failed to get user: %w", err)
	}
	if user.MFAEnabled != nil {
		return domain.MFAEnrollResponse{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: username,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.MFAEnrollResponse{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	// Store the secret (but don't enable MFA yet)
	if err := s.Store.Users().UpdateMFASecret(ctx, userID, key.Secret()); err != nil {
		return domain.MFAEnrollResponse{}, fmt.Errorf("failed to store MFA secret: %w", err)
	}

	return domain.MFAEnrollResponse{
		Secret:  key.Secret(),
		QRCode:  key.URL(),
		Issuer:  s.Issuer,
		Account: username,
	}, nil
}

// ActivateTOTP verifies a TOTP code against the enrolled secret and enables
// MFA for the user if valid.
func (s *MFAService) ActivateTOTP(ctx context.Context, userID string, code string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if user.MFASecret == nil || *user.MFASecret == "" {
		return ErrMFANotEnrolled
	}
	if user.MFAEnabled != nil {
		return ErrMFAAlreadyEnabled
	}

	if !totp.Validate(code, *user.MFASecret) {
		return ErrInvalidTOTPCode
	}

	return s.Store.Users().EnableMFA(ctx, userID)
}

// DisableTOTP turns MFA off and clears the stored secret.
func (s *MFAService) DisableTOTP(ctx context.Context, userID string) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.MFAEnabled == nil {
		return ErrMFANotEnrolled
	}
	return s.Store.Users().DisableMFA(ctx, userID)
}
