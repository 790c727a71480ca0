package auth

import "errors"

// Sentinel errors for the caller-visible failure taxonomy. Handlers map these
// to HTTP codes and stable error payloads; anything not listed here is treated
// as an internal failure and reported without detail.
var (
	// ErrInvalidCredentials covers both "no such account" and "wrong password".
	// The two are deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountDisabled is the base class for every account-state gate.
	// Concrete failures carry a status-specific message via DisabledError.
	ErrAccountDisabled = errors.New("account disabled")

	// ErrDuplicateEmail is returned on signup when the normalized email is
	// already registered.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrDuplicateProviderID signals a unique-violation on (provider,
	// provider_id) during OAuth auto-provisioning. It is internal to the
	// login flow: the orchestrator treats it as "someone else just created
	// this account" and retries the lookup.
	ErrDuplicateProviderID = errors.New("provider identity already registered")

	// ErrInvalidToken collapses signature mismatch, malformed structure,
	// expiry, ledger miss and revocation into one class so callers cannot
	// probe server-side session state.
	ErrInvalidToken = errors.New("invalid or expired token, please authenticate again")

	// ErrOAuthExchange covers transport failures and non-2xx responses from
	// the OAuth provider during code exchange or profile fetch.
	ErrOAuthExchange = errors.New("oauth token exchange failed")

	// ErrOAuthProfileIncomplete is returned when the provider profile lacks
	// an email. Email is the cross-provider join key, so there is no
	// synthetic-email fallback.
	ErrOAuthProfileIncomplete = errors.New("oauth profile did not include an email address")

	// ErrAccountLinkConflict is returned when an OAuth profile's email is
	// already bound to a different (typically local) account.
	ErrAccountLinkConflict = errors.New("email already linked to another account")
)

// DisabledError is an account-state failure with a user-facing reason.
// These messages are intentionally differentiated per status: the caller has
// already proven the credentials, so there is no oracle risk.
type DisabledError struct {
	Reason string
}

func (e *DisabledError) Error() string { return e.Reason }

// Is makes errors.Is(err, ErrAccountDisabled) match any DisabledError.
func (e *DisabledError) Is(target error) bool { return target == ErrAccountDisabled }
