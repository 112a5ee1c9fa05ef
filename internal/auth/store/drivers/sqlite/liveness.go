package sqlite

import (
	"context"
	"time"
)

// livenessRepo persists the set of live token ids. Expiry is enforced twice:
// reads filter out stale rows immediately, and the housekeeping sweep removes
// them for real.
type livenessRepo struct {
	db dbtx
}

func (r *livenessRepo) Put(ctx context.Context, tokenID, userID string, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl).UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO liveness (token_id, user_id, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (token_id) DO UPDATE SET
			user_id = excluded.user_id,
			expires_at = excluded.expires_at`,
		tokenID, userID, expiresAt)
	return err
}

func (r *livenessRepo) Get(ctx context.Context, tokenID string) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id FROM liveness WHERE token_id = ? AND expires_at > ?`,
		tokenID, time.Now().UTC()).Scan(&userID)
	if err != nil {
		return "", mapNotFound(err)
	}
	return userID, nil
}

func (r *livenessRepo) Delete(ctx context.Context, tokenID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM liveness WHERE token_id = ?`, tokenID)
	return err
}

func (r *livenessRepo) DeleteOwned(ctx context.Context, tokenID, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM liveness WHERE token_id = ? AND user_id = ? AND expires_at > ?`,
		tokenID, userID, time.Now().UTC())
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *livenessRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM liveness WHERE expires_at <= ?`, time.Now().UTC())
	return err
}
