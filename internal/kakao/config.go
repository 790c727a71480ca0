package kakao

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the Kakao OAuth client settings.
type Config struct {
	ClientID     string `env:"KAKAO_CLIENT_ID"`
	ClientSecret string `env:"KAKAO_CLIENT_SECRET"`
	RedirectURI  string `env:"KAKAO_REDIRECT_URI" envDefault:"http://localhost:8431/auth/kakao/callback"`

	AuthorizationURI string `env:"KAKAO_AUTHORIZATION_URI" envDefault:"https://kauth.kakao.com/oauth/authorize"`
	TokenURI         string `env:"KAKAO_TOKEN_URI" envDefault:"https://kauth.kakao.com/oauth/token"`
	UserInfoURI      string `env:"KAKAO_USER_INFO_URI" envDefault:"https://kapi.kakao.com/v2/user/me"`

	// HTTPTimeout bounds each outbound provider call. A timeout is a login
	// failure; the core never retries on its own.
	HTTPTimeout time.Duration `env:"KAKAO_HTTP_TIMEOUT" envDefault:"10s"`
}

// ConfigFromEnv parses the Kakao configuration from environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse kakao config: %w", err)
	}
	return cfg, nil
}
