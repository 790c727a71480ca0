package router

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dowan-kim/myauth/internal/account/entity"
	"github.com/dowan-kim/myauth/internal/auth"
	"github.com/dowan-kim/myauth/internal/kakao"
)

// memAccounts and memLedger back the router tests without a database.
type memAccounts struct {
	nextID   int64
	accounts map[int64]*entity.Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{nextID: 1, accounts: map[int64]*entity.Account{}}
}

func (m *memAccounts) Create(_ context.Context, a *entity.Account) (int64, error) {
	for _, existing := range m.accounts {
		if existing.Email == a.Email {
			return 0, auth.ErrDuplicateEmail
		}
	}
	a.ID = m.nextID
	m.nextID++
	clone := *a
	m.accounts[a.ID] = &clone
	return a.ID, nil
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (*entity.Account, error) {
	for _, a := range m.accounts {
		if a.Email == email {
			clone := *a
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memAccounts) GetByID(_ context.Context, id int64) (*entity.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *a
	return &clone, nil
}

func (m *memAccounts) GetByProvider(_ context.Context, provider, providerID string) (*entity.Account, error) {
	for _, a := range m.accounts {
		if a.Provider == provider && a.ProviderID != nil && *a.ProviderID == providerID {
			clone := *a
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memAccounts) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (m *memAccounts) UpdateProfile(_ context.Context, id int64, name string, profileImage *string) error {
	a, ok := m.accounts[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Name = name
	a.ProfileImage = profileImage
	return nil
}

type memLedger struct {
	records []*auth.RefreshToken
}

func (m *memLedger) Save(_ context.Context, accountID int64, token string, expiresAt time.Time) (*auth.RefreshToken, error) {
	rec := &auth.RefreshToken{Token: token, AccountID: accountID, ExpiresAt: expiresAt}
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *memLedger) FindByToken(_ context.Context, token string) (*auth.RefreshToken, error) {
	for _, rec := range m.records {
		if rec.Token == token {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memLedger) RevokeAll(_ context.Context, accountID int64) (int64, error) {
	var n int64
	for _, rec := range m.records {
		if rec.AccountID == accountID && !rec.IsRevoked {
			rec.IsRevoked = true
			n++
		}
	}
	return n, nil
}

func (m *memLedger) DeleteExpired(_ context.Context, _ time.Time) (int64, error) { return 0, nil }
func (m *memLedger) DeleteRevoked(_ context.Context) (int64, error)              { return 0, nil }

// stubProvider keeps the Kakao endpoints mountable without an OAuth backend.
type stubProvider struct{}

func (stubProvider) AuthorizationURL() string { return "https://kauth.example/oauth/authorize" }

func (stubProvider) ExchangeToken(_ context.Context, _ string) (*kakao.TokenResponse, error) {
	return nil, auth.ErrOAuthExchange
}

func (stubProvider) FetchProfile(_ context.Context, _ string) (*kakao.Profile, error) {
	return nil, auth.ErrOAuthExchange
}

func newTestServer(t *testing.T) (http.Handler, *auth.Service) {
	t.Helper()
	logger := zap.NewNop().Sugar()
	cfg := auth.Config{
		JWTSecret:           "test-secret",
		AccessTokenTTL:      30 * time.Minute,
		RefreshTokenTTL:     7 * 24 * time.Hour,
		FrontendCallbackURL: "http://localhost:3000/oauth/callback",
	}
	svc := auth.NewService(newMemAccounts(), &memLedger{}, auth.NewTokenProvider(cfg), nil, logger)
	authHandler := auth.NewHandler(svc, cfg, logger)
	kakaoSvc := kakao.NewLoginService(stubProvider{}, newMemAccounts(), svc, logger)
	kakaoHandler := kakao.NewHandler(kakaoSvc, cfg, logger)
	return Mount(logger, svc, authHandler, kakaoHandler), svc
}

func do(h http.Handler, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	h.ServeHTTP(w, r)
	return w
}

func TestPolicyEvaluation(t *testing.T) {
	rules := DefaultRules()
	cases := []struct {
		path string
		want Policy
	}{
		{"/health", PermitAll},
		{"/signup", PermitAll},
		{"/login", PermitAll},
		{"/login-ex", PermitAll}, // prefix match on /login
		{"/refresh", PermitAll},
		{"/logout", PermitAll},
		{"/auth/kakao/login", PermitAll},
		{"/auth/kakao/callback", PermitAll},
		{"/me", RequireAuth},
		{"/anything-else", RequireAuth},
	}
	for _, tc := range cases {
		policy := RequireAuth
		for _, rule := range rules {
			if len(tc.path) >= len(rule.Prefix) && tc.path[:len(rule.Prefix)] == rule.Prefix {
				policy = rule.Policy
				break
			}
		}
		if policy != tc.want {
			t.Errorf("policy(%s) = %v, want %v", tc.path, policy, tc.want)
		}
	}
}

func TestHealthIsPublic(t *testing.T) {
	h, _ := newTestServer(t)
	w := do(h, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatal("request id header missing")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers missing")
	}
}

func TestRequestIDIsPreserved(t *testing.T) {
	h, _ := newTestServer(t)
	w := do(h, http.MethodGet, "/health", nil, map[string]string{"X-Request-Id": "req-123"})
	if got := w.Header().Get("X-Request-Id"); got != "req-123" {
		t.Fatalf("request id = %q", got)
	}
}

func TestProtectedRouteRequiresBearer(t *testing.T) {
	h, _ := newTestServer(t)

	w := do(h, http.MethodGet, "/me", nil, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous /me status = %d", w.Code)
	}

	w = do(h, http.MethodGet, "/me", nil, map[string]string{"Authorization": "Bearer garbage"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage bearer /me status = %d", w.Code)
	}
}

func TestFullFlowThroughRouter(t *testing.T) {
	h, _ := newTestServer(t)

	signup := []byte(`{"email":"bob@x.com","password":"secret123","username":"Bob"}`)
	if w := do(h, http.MethodPost, "/signup", signup, nil); w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d (body %s)", w.Code, w.Body.String())
	}

	login := []byte(`{"email":"bob@x.com","password":"secret123"}`)
	w := do(h, http.MethodPost, "/login", login, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d (body %s)", w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if resp.Data.AccessToken == "" {
		t.Fatal("login returned no access token")
	}

	w = do(h, http.MethodGet, "/me", nil, map[string]string{"Authorization": "Bearer " + resp.Data.AccessToken})
	if w.Code != http.StatusOK {
		t.Fatalf("/me status = %d (body %s)", w.Code, w.Body.String())
	}
	var me struct {
		Data struct {
			Email string `json:"email"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode /me: %v", err)
	}
	if me.Data.Email != "bob@x.com" {
		t.Fatalf("/me email = %q", me.Data.Email)
	}
}

func TestKakaoLoginRedirectThroughRouter(t *testing.T) {
	h, _ := newTestServer(t)
	w := do(h, http.MethodGet, "/auth/kakao/login", nil, nil)
	if w.Code != http.StatusFound {
		t.Fatalf("kakao login status = %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "https://kauth.example/oauth/authorize" {
		t.Fatalf("redirect = %q", loc)
	}
}
