package store

import (
	"context"
	"errors"
	"time"

	"github.com/filevault-labs/filevault/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable. We can change having the sub-repos as methods later but we do it
// now so we can have more control and actively stop people from accidently
// doing transactions within transactions.
type Store interface {
	Users() Users
	Liveness() Liveness

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// Use it for multi-step operations that must be atomic (e.g., refresh rotation).
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// This is the recommended way to handle transactions as it automatically
	// handles commit/rollback logic.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources (optional for sqlite).
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByUsername is used during login.
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash (argon2) and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// DeleteUser cascades to liveness rows (per schema).
	DeleteUser(ctx context.Context, userID string) error

	// UpdateMFASecret sets the MFA secret for a user.
	UpdateMFASecret(ctx context.Context, userID string, secret string) error

	// EnableMFA marks MFA as enabled for a user (sets mfa_enabled timestamp).
	EnableMFA(ctx context.Context, userID string) error

	// DisableMFA disables MFA for a user (clears mfa_enabled and mfa_secret).
	DisableMFA(ctx context.Context, userID string) error
}

// Liveness tracks which token ids are still live. A session token is only
// honoured for refresh while its id has a row here; deleting the row is what
// rotation, logout and expiry all reduce to.
type Liveness interface {
	// Put records a token id as live for the given user until now+ttl.
	// Re-putting an existing id overwrites the row.
	Put(ctx context.Context, tokenID, userID string, ttl time.Duration) error

	// Get returns the owning user id for a live token id. Expired rows are
	// treated as absent and reported as ErrNotFound.
	Get(ctx context.Context, tokenID string) (string, error)

	// Delete removes a token id. Deleting an absent id is not an error.
	Delete(ctx context.Context, tokenID string) error

	// DeleteOwned removes a token id only if it is live and owned by userID.
	// It reports whether a row was actually deleted, which makes it usable as
	// an atomic compare-and-delete for single-use refresh.
	DeleteOwned(ctx context.Context, tokenID, userID string) (bool, error)

	// DeleteExpired removes all rows past their expiry (housekeeping).
	DeleteExpired(ctx context.Context) error
}
