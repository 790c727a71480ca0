package auth

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries the token and delivery settings for the auth core.
// It is built once at process start and passed into the components that
// need it; there is no ambient global configuration.
type Config struct {
	// JWTSecret signs both access and refresh tokens (HS256).
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`

	// AccessTokenTTL and RefreshTokenTTL are independent; the refresh TTL is
	// expected to be much larger (days vs minutes).
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"30m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	// CookieSecure drives the Secure flag on the refresh-token cookie:
	// false in development, true in production deployments.
	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"false"`

	// FrontendCallbackURL is where web OAuth logins (and their failures) are
	// redirected after the provider round-trip.
	FrontendCallbackURL string `env:"FRONTEND_CALLBACK_URL" envDefault:"http://localhost:3000/oauth/callback"`
}

// ConfigFromEnv parses the auth configuration from environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse auth config: %w", err)
	}
	return cfg, nil
}
