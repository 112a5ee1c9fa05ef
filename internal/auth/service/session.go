package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/filevault-labs/filevault/internal/auth/store"
	"github.com/filevault-labs/filevault/pkg/cryptox"
	"github.com/filevault-labs/filevault/pkg/jwtx"
	"github.com/filevault-labs/filevault/pkg/slogx"
	"github.com/pquerna/otp/totp"
)

var (
	// ErrAuthenticationFailed covers every login failure a caller is allowed
	// to learn about: unknown username, wrong password and bad TOTP code all
	// collapse into this one value. The real cause is logged server-side.
	ErrAuthenticationFailed = errors.New("authentication_failed")

	// ErrUnauthorized covers every token failure on guarded operations: bad
	// signature, expiry, revocation and rotation are indistinguishable.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrStorageUnavailable means the liveness store (or user store) failed
	// with something other than not-found. Callers must fail closed.
	ErrStorageUnavailable = errors.New("storage_unavailable")

	// ErrMFARequired is returned by Login when the user has MFA enabled and
	// no TOTP code was supplied.
	ErrMFARequired = errors.New("mfa_required")
)

// dummyHash is a syntactically valid argon2id hash used to burn the same
// amount of work on unknown usernames as on real ones, so login latency does
// not reveal whether a username exists.
const dummyHash = "$argon2id$v=19$m=19456,t=2,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// SessionService is the session token authority. It owns the full lifecycle
// of a token id: issue on login, single-use rotation on refresh, revocation
// on logout, and the liveness check behind every authorization.
type SessionService struct {
	Signer   jwtx.Signer
	Verifier jwtx.Verifier
	Store    store.Store

	Issuer    string
	AccessTTL time.Duration
}

func (s *SessionService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return jwtx.DefaultAccessTokenTTL
}

// Login verifies the credentials and, on success, issues a fresh signed token
// whose id is recorded as live. The error surface is deliberately flat:
// anything credential-shaped is ErrAuthenticationFailed.
func (s *SessionService) Login(ctx context.Context, username, password string, scopes []string, otpCode string) (string, error) {
	l := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Equalise timing with the real-user path.
			_ = cryptox.VerifyPassword(password, dummyHash)
			l.Info("login failed: unknown username", slog.String("username", username))
			return "", ErrAuthenticationFailed
		}
		return "", ErrStorageUnavailable
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		l.Info("login failed: password mismatch", slog.String("username", username))
		return "", ErrAuthenticationFailed
	}

	if user.MFAEnabled != nil {
		if otpCode == "" {
			return "", ErrMFARequired
		}
		if user.MFASecret == nil || !totp.Validate(otpCode, *user.MFASecret) {
			l.Info("login failed: invalid TOTP code", slog.String("username", username))
			return "", ErrAuthenticationFailed
		}
	}

	return s.issue(ctx, user.ID, user.Username, scopes)
}

// Refresh rotates a live token: the old id is retired and a new token with
// the same subject and scopes is issued. Exactly one concurrent caller can
// win the rotation; everyone else gets ErrUnauthorized.
func (s *SessionService) Refresh(ctx context.Context, token string) (string, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Verifier.Verify(token)
	if err != nil {
		l.Info("refresh rejected", slog.String("reason", err.Error()))
		return "", ErrUnauthorized
	}

	user, err := s.Store.Users().GetUserByUsername(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("refresh rejected: subject no longer exists", slog.String("username", claims.Subject))
			return "", ErrUnauthorized
		}
		return "", ErrStorageUnavailable
	}

	var newToken string

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// Conditional delete is the rotation point: it only succeeds when
		// the id is still live AND owned by the token's subject, and it can
		// succeed at most once per id. Delete strictly before insert so a
		// crash in between leaves no usable token rather than two.
		deleted, err := tx.Liveness().DeleteOwned(ctx, claims.TokenID(), user.ID)
		if err != nil {
			return ErrStorageUnavailable
		}
		if !deleted {
			l.Info("refresh rejected: token no longer live", slog.String("username", claims.Subject))
			return ErrUnauthorized
		}

		newClaims := jwtx.NewSessionClaims(claims.Subject, claims.Scopes, s.accessTTL(), s.Issuer, time.Now())

		signed, err := s.Signer.Sign(newClaims)
		if err != nil {
			return err
		}

		if err := tx.Liveness().Put(ctx, newClaims.TokenID(), user.ID, s.accessTTL()); err != nil {
			return ErrStorageUnavailable
		}

		newToken = signed
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrStorageUnavailable) {
			return "", err
		}
		// Commit/begin failures are storage trouble too.
		return "", ErrStorageUnavailable
	}

	l.Info("session refreshed", slog.String("username", claims.Subject))
	return newToken, nil
}

// Logout revokes the token's id. It is idempotent: revoking an already-dead
// or undecodable token succeeds silently, so the endpoint leaks nothing
// about token validity.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	claims, err := s.Verifier.Verify(token)
	if err != nil {
		return nil
	}

	if err := s.Store.Liveness().Delete(ctx, claims.TokenID()); err != nil {
		return ErrStorageUnavailable
	}

	slogx.FromContext(ctx).Info("session revoked", slog.String("username", claims.Subject))
	return nil
}

// Authorize admits a token iff it verifies, its id is still live and its
// scopes cover requiredScopes. All rejections are the uniform
// ErrUnauthorized; only storage trouble is distinguishable.
func (s *SessionService) Authorize(ctx context.Context, token string, requiredScopes []string) (jwtx.Claims, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.Verifier.Verify(token)
	if err != nil {
		l.Info("authorize rejected", slog.String("reason", err.Error()))
		return jwtx.Claims{}, ErrUnauthorized
	}

	if _, err := s.Store.Liveness().Get(ctx, claims.TokenID()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			l.Info("authorize rejected: token not live", slog.String("username", claims.Subject))
			return jwtx.Claims{}, ErrUnauthorized
		}
		return jwtx.Claims{}, ErrStorageUnavailable
	}

	if !claims.HasScopes(requiredScopes) {
		l.Info("authorize rejected: insufficient scope",
			slog.String("username", claims.Subject),
			slog.Any("required", requiredScopes),
		)
		return jwtx.Claims{}, ErrUnauthorized
	}

	return claims, nil
}

// issue mints a signed token and records its id as live. Shared by Login;
// Refresh inlines the same steps inside its transaction.
func (s *SessionService) issue(ctx context.Context, userID, username string, scopes []string) (string, error) {
	claims := jwtx.NewSessionClaims(username, scopes, s.accessTTL(), s.Issuer, time.Now())

	signed, err := s.Signer.Sign(claims)
	if err != nil {
		return "", err
	}

	if err := s.Store.Liveness().Put(ctx, claims.TokenID(), userID, s.accessTTL()); err != nil {
		return "", ErrStorageUnavailable
	}

	slogx.FromContext(ctx).Info("session issued", slog.String("username", username))
	return signed, nil
}
