package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/filevault-labs/filevault/internal/auth/domain"
	"github.com/filevault-labs/filevault/internal/auth/store"
	"github.com/filevault-labs/filevault/pkg/cryptox"
	"github.com/filevault-labs/filevault/pkg/idx"
	"github.com/filevault-labs/filevault/pkg/slogx"
)

var ErrUsernameTaken = errors.New("username_taken")

type UserService struct {
	Store store.Store
}

// Register creates a new user with an argon2-hashed password.
func (s *UserService) Register(ctx context.Context, username, password, email string) (domain.User, error) {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			slogx.FromContext(ctx).Warn("registration rejected: username taken",
				slog.String("username", username))
			return domain.User{}, ErrUsernameTaken
		}
		return domain.User{}, ErrStorageUnavailable
	}

	slogx.FromContext(ctx).Info("user registered", slog.String("username", username))
	return user, nil
}

// ChangePassword swaps the password hash after re-verifying the current
// password. The same uniform ErrAuthenticationFailed covers a wrong current
// password and a vanished account.
func (s *UserService) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error {
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAuthenticationFailed
		}
		return ErrStorageUnavailable
	}

	if err := cryptox.VerifyPassword(currentPassword, user.PasswordHash); err != nil {
		slogx.FromContext(ctx).Info("password change rejected: password mismatch",
			slog.String("username", username))
		return ErrAuthenticationFailed
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.Store.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return ErrStorageUnavailable
	}

	slogx.FromContext(ctx).Info("password changed", slog.String("username", username))
	return nil
}

// DeleteAccount removes the user after re-verifying the password. Deleting
// the row cascades into the liveness table, so every session the account
// still has is revoked with it.
func (s *UserService) DeleteAccount(ctx context.Context, username, password string) error {
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAuthenticationFailed
		}
		return ErrStorageUnavailable
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		slogx.FromContext(ctx).Info("account deletion rejected: password mismatch",
			slog.String("username", username))
		return ErrAuthenticationFailed
	}

	if err := s.Store.Users().DeleteUser(ctx, user.ID); err != nil {
		return ErrStorageUnavailable
	}

	slogx.FromContext(ctx).Info("account deleted", slog.String("username", username))
	return nil
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

// GetUserByUsername fetches a user by username.
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.Store.Users().GetUserByUsername(ctx, username)
}
