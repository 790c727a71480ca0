package kakao

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dowan-kim/myauth/internal/account/entity"
	"github.com/dowan-kim/myauth/internal/auth"
)

// ProviderAPI is the outbound Kakao surface, abstracted for tests.
type ProviderAPI interface {
	AuthorizationURL() string
	ExchangeToken(ctx context.Context, code string) (*TokenResponse, error)
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}

// LoginService orchestrates the Kakao login flow: code exchange, profile
// fetch, find-or-create account linking, and session issuance.
type LoginService struct {
	provider ProviderAPI
	accounts auth.AccountStore
	sessions *auth.Service
	logger   *zap.SugaredLogger
}

func NewLoginService(provider ProviderAPI, accounts auth.AccountStore, sessions *auth.Service, logger *zap.SugaredLogger) *LoginService {
	return &LoginService{provider: provider, accounts: accounts, sessions: sessions, logger: logger}
}

// AuthorizationURL exposes the consent-screen URL for the login redirect.
func (s *LoginService) AuthorizationURL() string {
	return s.provider.AuthorizationURL()
}

// ProcessLogin runs the whole callback flow for an authorization code and
// returns an issued session plus the linked account.
func (s *LoginService) ProcessLogin(ctx context.Context, code string) (*auth.Session, *entity.Account, error) {
	tok, err := s.provider.ExchangeToken(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	profile, err := s.provider.FetchProfile(ctx, tok.AccessToken)
	if err != nil {
		return nil, nil, err
	}
	a, err := s.linkOrCreate(ctx, profile)
	if err != nil {
		return nil, nil, err
	}
	sess, err := s.sessions.IssueSession(ctx, a)
	if err != nil {
		return nil, nil, err
	}
	return sess, a, nil
}

// linkOrCreate looks up by (provider, providerId) first; email is not
// consulted for the lookup, so a linked account's email stays authoritative.
// A hit refreshes the mutable profile fields in place. A miss provisions a
// new passwordless account.
func (s *LoginService) linkOrCreate(ctx context.Context, p *Profile) (*entity.Account, error) {
	existing, err := s.accounts.GetByProvider(ctx, entity.ProviderKakao, p.ProviderID)
	if err == nil {
		profileImage := optional(p.ProfileImageURL)
		if err := s.accounts.UpdateProfile(ctx, existing.ID, p.Nickname, profileImage); err != nil {
			return nil, fmt.Errorf("refresh profile: %w", err)
		}
		existing.Name = p.Nickname
		existing.ProfileImage = profileImage
		s.logger.Infow("kakao login for existing account", "account_id", existing.ID)
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup provider identity: %w", err)
	}

	providerID := p.ProviderID
	a := &entity.Account{
		Email:        auth.NormalizeEmail(p.Email),
		Name:         p.Nickname,
		ProfileImage: optional(p.ProfileImageURL),
		Role:         entity.RoleUser,
		Status:       entity.StatusActive,
		IsActive:     true,
		Provider:     entity.ProviderKakao,
		ProviderID:   &providerID,
	}
	_, err = s.accounts.Create(ctx, a)
	switch {
	case err == nil:
		s.logger.Infow("kakao account auto-provisioned", "account_id", a.ID, "email", a.Email)
		return a, nil
	case errors.Is(err, auth.ErrDuplicateProviderID):
		// A concurrent first-login for the same identity won the insert race;
		// the unique constraint is the correctness mechanism, so retry as a
		// lookup instead of failing.
		s.logger.Infow("kakao provisioning lost insert race, retrying lookup", "provider_id", p.ProviderID)
		return s.accounts.GetByProvider(ctx, entity.ProviderKakao, p.ProviderID)
	case errors.Is(err, auth.ErrDuplicateEmail):
		// The email already belongs to a local (or differently linked)
		// account. There is no merge path; reject explicitly.
		s.logger.Warnw("kakao email collides with existing account", "email", a.Email)
		return nil, auth.ErrAccountLinkConflict
	default:
		return nil, fmt.Errorf("create account: %w", err)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
