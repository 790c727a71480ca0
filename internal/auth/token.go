package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dowan-kim/myauth/pkg/utilities"
)

// TokenProvider creates and verifies the signed, time-bounded tokens this
// service hands out. Tokens are self-contained (HS256 signature + expiry), so
// validating an access token never touches storage; only refresh tokens are
// additionally cross-checked against the ledger by the service layer.
type TokenProvider struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenProvider(cfg Config) *TokenProvider {
	return &TokenProvider{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		now:        time.Now,
	}
}

// Now returns the provider's current time. The clock is injectable so expiry
// behavior can be tested deterministically.
func (p *TokenProvider) Now() time.Time { return p.now() }

// IssueAccess mints a short-lived access token. The subject is the account
// email; the numeric account id rides along in the uid claim.
func (p *TokenProvider) IssueAccess(subject string, accountID int64) (string, error) {
	now := p.now()
	claims := jwt.MapClaims{
		"sub": subject,
		"uid": accountID,
		"iat": now.Unix(),
		"exp": now.Add(p.accessTTL).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefresh mints a long-lived refresh token and reports its expiry so the
// caller can persist the matching ledger row. The jti claim makes every
// issuance a distinct string: iat/exp have second granularity, and the ledger
// holds the token under a UNIQUE constraint, so two logins by the same
// principal in the same second must not collide.
func (p *TokenProvider) IssueRefresh(subject string) (token string, expiresAt time.Time, err error) {
	now := p.now()
	expiresAt = now.Add(p.refreshTTL)
	claims := jwt.MapClaims{
		"sub": subject,
		"jti": utilities.NewKSUID(),
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, signErr := tok.SignedString(p.secret)
	if signErr != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", signErr)
	}
	return signed, expiresAt, nil
}

func (p *TokenProvider) parse(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

// Validate fails closed: any signature mismatch, malformed structure or
// elapsed expiry yields false. It never panics or returns an error to the
// caller.
func (p *TokenProvider) Validate(token string) bool {
	_, err := p.parse(token)
	return err == nil
}

// Subject extracts the subject claim from a token after full validation.
// Callers must treat an error exactly like a failed Validate.
func (p *TokenProvider) Subject(token string) (string, error) {
	claims, err := p.parse(token)
	if err != nil {
		return "", ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}
