package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/filevault-labs/filevault/internal/auth/service"
	"github.com/filevault-labs/filevault/internal/auth/store"
	"github.com/filevault-labs/filevault/pkg/httpx"
	"github.com/filevault-labs/filevault/pkg/slogx"
)

// MFAHandler serves the TOTP enrollment endpoints for the authenticated
// session: enroll generates a secret, activate verifies a first code and
// turns enforcement on, disable clears it again.
type MFAHandler struct {
	UserService *service.UserService
	MFAService  *service.MFAService
}

type mfaEnrollResponse struct {
	Secret  string `json:"secret"`
	QRCode  string `json:"qr_code"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

func (h *MFAHandler) currentUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()

	username := httpx.SubjectFromContext(ctx)
	if username == "" {
		ErrInvalidToken.WriteError(w)
		return "", false
	}

	user, err := h.UserService.GetUserByUsername(ctx, username)
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to load user", "username", username, "err", err)
		if errors.Is(err, store.ErrNotFound) {
			ErrInvalidToken.WriteError(w)
			return "", false
		}
		ErrStorageUnavailable.WriteError(w)
		return "", false
	}
	return user.ID, true
}

func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}

	enroll, err := h.MFAService.EnrollTOTP(ctx, userID, httpx.SubjectFromContext(ctx))
	if err != nil {
		if errors.Is(err, service.ErrMFAAlreadyEnabled) {
			(&APIError{
				StatusCode:  http.StatusConflict,
				Code:        "mfa_already_enabled",
				Description: "MFA is already enabled for this user",
			}).WriteError(w)
			return
		}
		slogx.FromContext(ctx).Error("MFA enrollment failed", "err", err)
		ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, mfaEnrollResponse{
		Secret:  enroll.Secret,
		QRCode:  enroll.QRCode,
		Issuer:  enroll.Issuer,
		Account: enroll.Account,
	})
}

func (h *MFAHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		ErrInvalidRequest.WriteError(w)
		return
	}

	code := strings.TrimSpace(r.Form.Get("otp_code"))
	if code == "" {
		ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.MFAService.ActivateTOTP(ctx, userID, code); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTOTPCode):
			ErrAuthenticationFailed.WriteError(w)
		case errors.Is(err, service.ErrMFANotEnrolled), errors.Is(err, service.ErrMFAAlreadyEnabled):
			ErrInvalidRequest.WriteError(w)
		default:
			slogx.FromContext(ctx).Error("MFA activation failed", "err", err)
			ErrServerError.WriteError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.currentUserID(w, r)
	if !ok {
		return
	}

	if err := h.MFAService.DisableTOTP(ctx, userID); err != nil {
		if errors.Is(err, service.ErrMFANotEnrolled) {
			ErrInvalidRequest.WriteError(w)
			return
		}
		slogx.FromContext(ctx).Error("MFA disable failed", "err", err)
		ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
