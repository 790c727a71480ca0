package entity

import "time"

// Role is the coarse authorization level of an account.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Status is the lifecycle state of an account. Only StatusActive permits login;
// every other state is absorbing as far as this service is concerned (there is
// no self-service path back to ACTIVE).
type Status string

const (
	StatusActive              Status = "ACTIVE"
	StatusInactive            Status = "INACTIVE"
	StatusSuspended           Status = "SUSPENDED"
	StatusDeleted             Status = "DELETED"
	StatusPendingVerification Status = "PENDING_VERIFICATION"
)

// Credential providers.
const (
	ProviderLocal = "LOCAL"
	ProviderKakao = "KAKAO"
)

// Account represents a row in the `accounts` table. An account is either a
// local password account (PasswordHash set, Provider LOCAL) or an OAuth-linked
// account (PasswordHash nil, Provider/ProviderID set).
type Account struct {
	ID           int64   `db:"id"`
	Email        string  `db:"email"`
	Name         string  `db:"name"`
	PasswordHash *string `db:"password_hash"`
	ProfileImage *string `db:"profile_image"`
	Role         Role    `db:"role"`
	Status       Status  `db:"status"`
	IsActive     bool    `db:"is_active"`
	Provider     string  `db:"provider"`
	ProviderID   *string `db:"provider_id"`

	// Lockout bookkeeping. The schema carries these but no code path
	// increments or checks them yet.
	FailedLoginAttempts int        `db:"failed_login_attempts"`
	AccountLockedUntil  *time.Time `db:"account_locked_until"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
