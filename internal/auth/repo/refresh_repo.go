package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dowan-kim/myauth/internal/auth"
	"github.com/dowan-kim/myauth/pkg/utilities"
)

// RefreshTokenRepo is the Postgres-backed refresh-token ledger.
type RefreshTokenRepo struct {
	db *sqlx.DB
}

func NewRefreshTokenRepo(db *sqlx.DB) *RefreshTokenRepo {
	return &RefreshTokenRepo{db: db}
}

// EnsureTable creates the refresh_tokens table if not exists (idempotent).
func (r *RefreshTokenRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS refresh_tokens (
  id VARCHAR(32) PRIMARY KEY,
  token TEXT NOT NULL UNIQUE,
  account_id BIGINT NOT NULL,
  expires_at TIMESTAMPTZ NOT NULL,
  is_revoked BOOLEAN NOT NULL DEFAULT false,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_refresh_tokens_account_id ON refresh_tokens (account_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Save persists one record per issuance. Multiple live rows per account are
// allowed: concurrent sessions are not constrained to one per principal.
func (r *RefreshTokenRepo) Save(ctx context.Context, accountID int64, token string, expiresAt time.Time) (*auth.RefreshToken, error) {
	rec := &auth.RefreshToken{
		ID:        utilities.NewSnowflakeID(),
		Token:     token,
		AccountID: accountID,
		ExpiresAt: expiresAt,
	}
	const q = `INSERT INTO refresh_tokens (id, token, account_id, expires_at)
		VALUES ($1, $2, $3, $4) RETURNING created_at`
	row := r.db.QueryRowxContext(ctx, q, rec.ID, rec.Token, rec.AccountID, rec.ExpiresAt)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		return nil, err
	}
	return rec, nil
}

// FindByToken returns the ledger record for a token string or sql.ErrNoRows.
func (r *RefreshTokenRepo) FindByToken(ctx context.Context, token string) (*auth.RefreshToken, error) {
	const q = `SELECT id, token, account_id, expires_at, is_revoked, created_at
		FROM refresh_tokens WHERE token=$1`
	var rec auth.RefreshToken
	if err := r.db.GetContext(ctx, &rec, q, token); err != nil {
		return nil, err
	}
	return &rec, nil
}

// RevokeAll marks every live token of the account revoked and returns the
// count. The single UPDATE keeps the operation atomic with respect to
// concurrent refresh attempts: a racing refresh observes either the pre- or
// the post-revocation state, never a torn one.
func (r *RefreshTokenRepo) RevokeAll(ctx context.Context, accountID int64) (int64, error) {
	const q = `UPDATE refresh_tokens SET is_revoked=true
		WHERE account_id=$1 AND is_revoked=false`
	res, err := r.db.ExecContext(ctx, q, accountID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpired removes tokens past their expiry; intended for a periodic
// external sweep.
func (r *RefreshTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteRevoked removes revoked tokens; intended for a periodic external sweep.
func (r *RefreshTokenRepo) DeleteRevoked(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE is_revoked=true`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
