package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	accountrepo "github.com/dowan-kim/myauth/internal/account/repo"
	"github.com/dowan-kim/myauth/internal/auth"
	authrepo "github.com/dowan-kim/myauth/internal/auth/repo"
	"github.com/dowan-kim/myauth/internal/kakao"
	"github.com/dowan-kim/myauth/pkg/utilities"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// RequestIDMiddleware tags every request with a KSUID so log lines from one
// request can be correlated.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" {
				id = utilities.NewKSUID()
			}
			w.Header().Set("X-Request-Id", id)
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
				"request_id", lrw.Header().Get("X-Request-Id"),
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Policy is the access rule attached to a path prefix.
type Policy int

const (
	PermitAll Policy = iota
	RequireAuth
)

// PathRule binds a path prefix to a policy. Rules are evaluated in order;
// the first match wins.
type PathRule struct {
	Prefix string
	Policy Policy
}

// AuthorizationMiddleware evaluates the ordered rule list. For RequireAuth
// paths it resolves the bearer access token to an account and stores the
// principal on the request context for handlers to read back explicitly.
func AuthorizationMiddleware(rules []PathRule, svc *auth.Service, logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policy := RequireAuth
			for _, rule := range rules {
				if strings.HasPrefix(r.URL.Path, rule.Prefix) {
					policy = rule.Policy
					break
				}
			}
			if policy == PermitAll {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := auth.BearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}
			a, err := svc.CurrentAccount(r.Context(), token)
			if err != nil {
				logger.Debugw("bearer token rejected", "path", r.URL.Path, "err", err)
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithAccount(r.Context(), a)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"message":"authentication required","data":null}`))
}

// DefaultRules is the route policy table: auth endpoints are public, the
// rest of the surface requires a valid bearer token.
func DefaultRules() []PathRule {
	return []PathRule{
		{Prefix: "/health", Policy: PermitAll},
		{Prefix: "/signup", Policy: PermitAll},
		{Prefix: "/login", Policy: PermitAll},
		{Prefix: "/refresh", Policy: PermitAll},
		{Prefix: "/logout", Policy: PermitAll},
		{Prefix: "/auth/kakao/", Policy: PermitAll},
	}
}

// RegisterRoutes wires repositories, services and handlers and mounts them on
// a stdlib ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, db *sqlx.DB, authCfg auth.Config, kakaoCfg kakao.Config) http.Handler {
	accounts := accountrepo.NewAccountRepo(db)
	ledger := authrepo.NewRefreshTokenRepo(db)
	tokens := auth.NewTokenProvider(authCfg)
	authSvc := auth.NewService(accounts, ledger, tokens, nil, logger)
	authHandler := auth.NewHandler(authSvc, authCfg, logger)

	kakaoClient := kakao.NewClient(kakaoCfg, logger)
	kakaoSvc := kakao.NewLoginService(kakaoClient, accounts, authSvc, logger)
	kakaoHandler := kakao.NewHandler(kakaoSvc, authCfg, logger)

	return Mount(logger, authSvc, authHandler, kakaoHandler)
}

// Mount registers the HTTP surface for prebuilt handlers. Split from
// RegisterRoutes so tests can mount fakes without a database.
func Mount(logger *zap.SugaredLogger, authSvc *auth.Service, authHandler *auth.Handler, kakaoHandler *kakao.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /signup", authHandler.Signup)
	mux.HandleFunc("POST /login", authHandler.Login)
	mux.HandleFunc("POST /login-ex", authHandler.LoginEx)
	mux.HandleFunc("POST /refresh", authHandler.Refresh)
	mux.HandleFunc("POST /logout", authHandler.Logout)
	mux.HandleFunc("GET /me", authHandler.Me)

	mux.HandleFunc("GET /auth/kakao/login", kakaoHandler.Login)
	mux.HandleFunc("GET /auth/kakao/callback", kakaoHandler.Callback)

	var handler http.Handler = mux
	handler = AuthorizationMiddleware(DefaultRules(), authSvc, logger)(handler)
	handler = SecurityHeadersMiddleware()(handler)
	handler = LoggingMiddleware(logger)(handler)
	handler = RequestIDMiddleware()(handler)
	return handler
}
