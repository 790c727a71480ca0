package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dowan-kim/myauth/internal/account/entity"
)

// Channel is the token delivery mode chosen per request.
type Channel string

const (
	ChannelWeb    Channel = "web"
	ChannelMobile Channel = "mobile"
)

// RefreshCookieName is the cookie carrying the refresh token for web clients.
const RefreshCookieName = "refreshToken"

var mobileUAMarkers = []string{"okhttp", "dalvik", "cfnetwork", "reactnative", "flutter"}

// ClassifyClient decides the delivery channel for a request. It is
// deterministic and total: every request classifies as exactly web or mobile.
// An explicit X-Client-Type header wins; otherwise mobile user-agent markers
// are checked. Web is the default.
func ClassifyClient(r *http.Request) Channel {
	switch strings.ToLower(strings.TrimSpace(r.Header.Get("X-Client-Type"))) {
	case "mobile", "app":
		return ChannelMobile
	case "web":
		return ChannelWeb
	}
	ua := strings.ToLower(r.Header.Get("User-Agent"))
	for _, marker := range mobileUAMarkers {
		if strings.Contains(ua, marker) {
			return ChannelMobile
		}
	}
	return ChannelWeb
}

// SetRefreshCookie transmits the refresh token as an HTTP-only cookie scoped
// to the whole site. Max-Age matches the refresh TTL; the Secure flag comes
// from deployment configuration.
func SetRefreshCookie(w http.ResponseWriter, cfg Config, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   int(cfg.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
	})
}

// ClearRefreshCookie expires the refresh-token cookie immediately.
func ClearRefreshCookie(w http.ResponseWriter, cfg Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
	})
}

// BearerToken extracts the access token from the Authorization header.
// Cookie-borne tokens are deliberately not recognized here.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" || !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	if tok == "" {
		return "", false
	}
	return tok, true
}

type ctxKey int

const accountKey ctxKey = iota

// WithAccount stores the resolved principal on the request context. The
// authorization middleware populates it; handlers read it back explicitly.
func WithAccount(ctx context.Context, a *entity.Account) context.Context {
	return context.WithValue(ctx, accountKey, a)
}

// AccountFrom returns the principal resolved by the middleware, if any.
func AccountFrom(ctx context.Context) (*entity.Account, bool) {
	a, ok := ctx.Value(accountKey).(*entity.Account)
	return a, ok
}
