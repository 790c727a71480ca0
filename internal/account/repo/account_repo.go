package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/dowan-kim/myauth/internal/auth"
	"github.com/dowan-kim/myauth/internal/account/entity"
)

// AccountRepo provides data access for the accounts table using sqlx.
type AccountRepo struct {
	db *sqlx.DB
}

func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{db: db} }

// EnsureTable creates the accounts table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *AccountRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS accounts (
  id BIGSERIAL PRIMARY KEY,
  email VARCHAR(100) NOT NULL,
  name VARCHAR(255) NOT NULL,
  password_hash VARCHAR(255),
  profile_image VARCHAR(500),
  role VARCHAR(20) NOT NULL DEFAULT 'USER',
  status VARCHAR(30) NOT NULL DEFAULT 'ACTIVE',
  is_active BOOLEAN NOT NULL DEFAULT true,
  provider VARCHAR(20) NOT NULL DEFAULT 'LOCAL',
  provider_id VARCHAR(100),
  failed_login_attempts INT NOT NULL DEFAULT 0,
  account_locked_until TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  CONSTRAINT accounts_email_key UNIQUE (email)
);
CREATE UNIQUE INDEX IF NOT EXISTS accounts_provider_key
  ON accounts (provider, provider_id) WHERE provider_id IS NOT NULL;
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const accountColumns = `id, email, name, password_hash, profile_image, role, status,
	is_active, provider, provider_id, failed_login_attempts, account_locked_until,
	created_at, updated_at`

// Create inserts a new account row and fills in the generated ID.
// Unique violations are translated to the auth error taxonomy so callers can
// distinguish an email collision from a concurrent provider-identity insert.
func (r *AccountRepo) Create(ctx context.Context, a *entity.Account) (int64, error) {
	const q = `INSERT INTO accounts
		(email, name, password_hash, profile_image, role, status, is_active, provider, provider_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, q,
		a.Email, a.Name, a.PasswordHash, a.ProfileImage,
		a.Role, a.Status, a.IsActive, a.Provider, a.ProviderID)
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return 0, translateUnique(err)
	}
	return a.ID, nil
}

// GetByEmail returns the account for a normalized email or sql.ErrNoRows.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE email=$1`
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, q, email); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID fetches a full account row.
func (r *AccountRepo) GetByID(ctx context.Context, id int64) (*entity.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE id=$1`
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, q, id); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByProvider fetches by the OAuth provider's stable subject identifier.
func (r *AccountRepo) GetByProvider(ctx context.Context, provider, providerID string) (*entity.Account, error) {
	const q = `SELECT ` + accountColumns + ` FROM accounts WHERE provider=$1 AND provider_id=$2`
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, q, provider, providerID); err != nil {
		return nil, err
	}
	return &a, nil
}

// ExistsByEmail reports whether an account with the email exists.
func (r *AccountRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM accounts WHERE email=$1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, q, email); err != nil {
		return false, err
	}
	return exists, nil
}

// UpdateProfile refreshes the mutable profile fields from an OAuth re-login.
func (r *AccountRepo) UpdateProfile(ctx context.Context, id int64, name string, profileImage *string) error {
	const q = `UPDATE accounts SET name=$2, profile_image=$3, updated_at=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id, name, profileImage)
	return err
}

// translateUnique maps Postgres unique violations (23505) onto the auth error
// taxonomy by constraint name. Other errors pass through untouched.
func translateUnique(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return err
	}
	switch {
	case strings.Contains(pqErr.Constraint, "email"):
		return auth.ErrDuplicateEmail
	case strings.Contains(pqErr.Constraint, "provider"):
		return auth.ErrDuplicateProviderID
	default:
		return err
	}
}
