package auth

import "time"

// RefreshToken is a persisted refresh-token record, the only server-side
// session state. A token string, once issued, is never reassigned to another
// account, and revocation is monotonic: IsRevoked only ever goes false→true.
type RefreshToken struct {
	ID        string    `db:"id"`
	Token     string    `db:"token"`
	AccountID int64     `db:"account_id"`
	ExpiresAt time.Time `db:"expires_at"`
	IsRevoked bool      `db:"is_revoked"`
	CreatedAt time.Time `db:"created_at"`
}

// Session is the result of a successful login: a freshly minted token pair
// whose refresh half has already been persisted to the ledger.
type Session struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}
