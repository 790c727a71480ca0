package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/dowan-kim/myauth/internal/account/entity"
)

// PasswordHasher defines the minimal hashing interface (abstract so the
// primitive can be swapped without touching the login flow).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// AccountStore is the persistence surface the auth core needs from the
// account table. The Postgres implementation lives in internal/account/repo.
type AccountStore interface {
	Create(ctx context.Context, a *entity.Account) (int64, error)
	GetByEmail(ctx context.Context, email string) (*entity.Account, error)
	GetByID(ctx context.Context, id int64) (*entity.Account, error)
	GetByProvider(ctx context.Context, provider, providerID string) (*entity.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, id int64, name string, profileImage *string) error
}

// RefreshTokenStore is the ledger surface: durable refresh-token records with
// revocation and maintenance deletes.
type RefreshTokenStore interface {
	Save(ctx context.Context, accountID int64, token string, expiresAt time.Time) (*RefreshToken, error)
	FindByToken(ctx context.Context, token string) (*RefreshToken, error)
	RevokeAll(ctx context.Context, accountID int64) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteRevoked(ctx context.Context) (int64, error)
}

// Service orchestrates signup, login, token refresh and logout.
type Service struct {
	accounts AccountStore
	ledger   RefreshTokenStore
	tokens   *TokenProvider
	hasher   PasswordHasher
	logger   *zap.SugaredLogger
}

func NewService(accounts AccountStore, ledger RefreshTokenStore, tokens *TokenProvider, hasher PasswordHasher, logger *zap.SugaredLogger) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &Service{accounts: accounts, ledger: ledger, tokens: tokens, hasher: hasher, logger: logger}
}

// Tokens exposes the codec for collaborators that only verify (middleware,
// the OAuth orchestrator's handler).
func (s *Service) Tokens() *TokenProvider { return s.tokens }

// NormalizeEmail trims surrounding whitespace and lowercases. Every email
// comparison and every stored email goes through this first.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup registers a local password account.
func (s *Service) Signup(ctx context.Context, email, password, name string) (*entity.Account, error) {
	normalized := NormalizeEmail(email)

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := &entity.Account{
		Email:        normalized,
		Name:         name,
		PasswordHash: &hash,
		Role:         entity.RoleUser,
		Status:       entity.StatusActive,
		IsActive:     true,
		Provider:     entity.ProviderLocal,
	}
	if _, err := s.accounts.Create(ctx, a); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			s.logger.Warnw("signup attempted with registered email", "email", normalized)
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	s.logger.Infow("signup completed", "email", normalized)
	return a, nil
}

// Login authenticates a local email/password pair and issues a session.
// The account-state gates run only after the credentials are proven, and
// their messages are differentiated per status; credential failures stay
// deliberately undifferentiated.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, *entity.Account, error) {
	a, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	sess, err := s.IssueSession(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	return sess, a, nil
}

// LoginEx is the strict variant: every failure, including account-state
// gates, collapses to ErrInvalidCredentials.
func (s *Service) LoginEx(ctx context.Context, email, password string) (*Session, *entity.Account, error) {
	a, err := s.authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrAccountDisabled) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}
	sess, err := s.IssueSession(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	return sess, a, nil
}

func (s *Service) authenticate(ctx context.Context, email, password string) (*entity.Account, error) {
	normalized := NormalizeEmail(email)

	a, err := s.accounts.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Debugw("login attempt for unknown email", "email", normalized)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if a.PasswordHash == nil || !s.hasher.Verify(*a.PasswordHash, password) {
		s.logger.Debugw("login attempt with wrong password", "email", normalized)
		return nil, ErrInvalidCredentials
	}
	if err := loginableState(a); err != nil {
		s.logger.Warnw("login blocked by account state",
			"email", normalized, "status", a.Status, "is_active", a.IsActive)
		return nil, err
	}
	return a, nil
}

// loginableState applies the account-state machine: ACTIVE with the active
// flag set is the only state from which login succeeds.
func loginableState(a *entity.Account) error {
	if !a.IsActive {
		return &DisabledError{Reason: "account is deactivated, contact support"}
	}
	switch a.Status {
	case entity.StatusActive:
		return nil
	case entity.StatusSuspended:
		return &DisabledError{Reason: "account is suspended, contact support"}
	case entity.StatusDeleted:
		return &DisabledError{Reason: "account has been deleted"}
	case entity.StatusInactive:
		return &DisabledError{Reason: "account is deactivated, contact support"}
	case entity.StatusPendingVerification:
		return &DisabledError{Reason: "email verification required"}
	default:
		return &DisabledError{Reason: "account cannot log in in its current state"}
	}
}

// IssueSession mints an access/refresh pair for an authenticated principal.
// Issuance is complete only once the refresh row is persisted; a ledger write
// failure fails the whole login rather than returning an orphaned pair.
func (s *Service) IssueSession(ctx context.Context, a *entity.Account) (*Session, error) {
	access, err := s.tokens.IssueAccess(a.Email, a.ID)
	if err != nil {
		return nil, err
	}
	refresh, expiresAt, err := s.tokens.IssueRefresh(a.Email)
	if err != nil {
		return nil, err
	}
	if _, err := s.ledger.Save(ctx, a.ID, refresh, expiresAt); err != nil {
		return nil, fmt.Errorf("persist refresh token: %w", err)
	}
	s.logger.Infow("session issued", "account_id", a.ID, "email", a.Email)
	return &Session{
		AccessToken:      access,
		RefreshToken:     refresh,
		RefreshExpiresAt: expiresAt,
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The same refresh
// token stays valid until expiry or logout; no rotation is performed.
// Ledger miss, revocation and expiry all surface as the one ErrInvalidToken.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if !s.tokens.Validate(refreshToken) {
		return "", ErrInvalidToken
	}
	rec, err := s.ledger.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warnw("refresh token not on ledger")
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("lookup refresh token: %w", err)
	}
	if rec.IsRevoked || !rec.ExpiresAt.After(s.tokens.Now()) {
		s.logger.Warnw("refresh attempted with dead token", "account_id", rec.AccountID)
		return "", ErrInvalidToken
	}

	a, err := s.accounts.GetByID(ctx, rec.AccountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("lookup account: %w", err)
	}
	if err := loginableState(a); err != nil {
		return "", err
	}

	access, err := s.tokens.IssueAccess(a.Email, a.ID)
	if err != nil {
		return "", err
	}
	s.logger.Infow("access token refreshed", "account_id", a.ID)
	return access, nil
}

// Logout revokes every refresh token belonging to the access token's subject.
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	subject, err := s.tokens.Subject(accessToken)
	if err != nil {
		return ErrInvalidToken
	}
	a, err := s.accounts.GetByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInvalidToken
		}
		return fmt.Errorf("lookup account: %w", err)
	}
	n, err := s.ledger.RevokeAll(ctx, a.ID)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	s.logger.Infow("logout completed", "account_id", a.ID, "revoked", n)
	return nil
}

// CurrentAccount resolves a bearer access token to its account, for the
// authorization middleware and the /me endpoint.
func (s *Service) CurrentAccount(ctx context.Context, accessToken string) (*entity.Account, error) {
	subject, err := s.tokens.Subject(accessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	a, err := s.accounts.GetByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return a, nil
}
