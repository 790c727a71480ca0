package auth

import (
	"strings"
	"testing"
	"time"
)

func newTestProvider(access, refresh time.Duration) (*TokenProvider, *time.Time) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := &base
	p := NewTokenProvider(Config{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  access,
		RefreshTokenTTL: refresh,
	})
	p.now = func() time.Time { return *now }
	return p, now
}

func TestAccessTokenRoundTrip(t *testing.T) {
	p, _ := newTestProvider(30*time.Minute, 7*24*time.Hour)

	tok, err := p.IssueAccess("bob@x.com", 42)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if !p.Validate(tok) {
		t.Fatal("freshly issued token failed validation")
	}
	sub, err := p.Subject(tok)
	if err != nil {
		t.Fatalf("Subject: %v", err)
	}
	if sub != "bob@x.com" {
		t.Fatalf("subject = %q, want bob@x.com", sub)
	}
}

func TestTokenExpiry(t *testing.T) {
	p, now := newTestProvider(30*time.Minute, 7*24*time.Hour)

	tok, err := p.IssueAccess("bob@x.com", 1)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	*now = now.Add(29 * time.Minute)
	if !p.Validate(tok) {
		t.Fatal("token invalid before TTL elapsed")
	}

	*now = now.Add(2 * time.Minute)
	if p.Validate(tok) {
		t.Fatal("token still valid after TTL elapsed")
	}
	if _, err := p.Subject(tok); err == nil {
		t.Fatal("Subject succeeded on expired token")
	}
}

func TestRefreshTokenExpiryIndependent(t *testing.T) {
	p, now := newTestProvider(time.Minute, time.Hour)

	tok, expiresAt, err := p.IssueRefresh("bob@x.com")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if want := now.Add(time.Hour); !expiresAt.Equal(want) {
		t.Fatalf("expiresAt = %v, want %v", expiresAt, want)
	}

	// past access TTL but inside refresh TTL
	*now = now.Add(30 * time.Minute)
	if !p.Validate(tok) {
		t.Fatal("refresh token expired with the access TTL")
	}
}

func TestRefreshTokensDistinctWithinOneSecond(t *testing.T) {
	p, _ := newTestProvider(time.Minute, time.Hour)

	// the fixture clock does not move between issuances, so iat/exp are
	// byte-identical; the token strings still must not collide
	first, _, err := p.IssueRefresh("bob@x.com")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	second, _, err := p.IssueRefresh("bob@x.com")
	if err != nil {
		t.Fatalf("IssueRefresh: %v", err)
	}
	if first == second {
		t.Fatal("two same-second issuances minted identical refresh tokens")
	}
	for _, tok := range []string{first, second} {
		if !p.Validate(tok) {
			t.Fatalf("issued token failed validation: %q", tok)
		}
	}
}

func TestTamperedTokenFailsClosed(t *testing.T) {
	p, _ := newTestProvider(30*time.Minute, 7*24*time.Hour)

	tok, err := p.IssueAccess("bob@x.com", 1)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}

	// flip one byte in each JWT section
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", tok)
	}
	for i := range parts {
		mutated := make([]string, 3)
		copy(mutated, parts)
		section := []byte(mutated[i])
		mid := len(section) / 2
		if section[mid] == 'A' {
			section[mid] = 'B'
		} else {
			section[mid] = 'A'
		}
		mutated[i] = string(section)
		if p.Validate(strings.Join(mutated, ".")) {
			t.Fatalf("tampered section %d still validates", i)
		}
	}
}

func TestValidateGarbage(t *testing.T) {
	p, _ := newTestProvider(time.Minute, time.Hour)
	for _, tok := range []string{"", "abc", "a.b", "a.b.c", "....."} {
		if p.Validate(tok) {
			t.Fatalf("garbage token %q validated", tok)
		}
	}
}

func TestSignatureFromDifferentSecret(t *testing.T) {
	p, _ := newTestProvider(time.Minute, time.Hour)
	other := NewTokenProvider(Config{
		JWTSecret:       "another-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	tok, err := other.IssueAccess("bob@x.com", 1)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	if p.Validate(tok) {
		t.Fatal("token signed with a different secret validated")
	}
}
