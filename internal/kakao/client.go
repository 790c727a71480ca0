package kakao

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/dowan-kim/myauth/internal/auth"
)

// TokenResponse is Kakao's token-endpoint reply.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

// Profile is the subset of the Kakao user-info reply this service consumes.
type Profile struct {
	ProviderID      string
	Email           string
	Nickname        string
	ProfileImageURL string
}

// userInfoResponse mirrors Kakao's nested user-info JSON.
type userInfoResponse struct {
	ID           int64 `json:"id"`
	KakaoAccount struct {
		Email   string `json:"email"`
		Profile struct {
			Nickname        string `json:"nickname"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"profile"`
	} `json:"kakao_account"`
}

// Client talks to Kakao's OAuth endpoints.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.SugaredLogger
}

func NewClient(cfg Config, logger *zap.SugaredLogger) *Client {
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.HTTPTimeout},
		logger: logger,
	}
}

// AuthorizationURL builds the consent-screen URL the browser is redirected to.
// No state parameter is generated; callers carry no per-request OAuth state.
func (c *Client) AuthorizationURL() string {
	q := url.Values{}
	q.Set("client_id", c.cfg.ClientID)
	q.Set("redirect_uri", c.cfg.RedirectURI)
	q.Set("response_type", "code")
	return c.cfg.AuthorizationURI + "?" + q.Encode()
}

// ExchangeToken trades an authorization code for a provider access token.
func (c *Client) ExchangeToken(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("redirect_uri", c.cfg.RedirectURI)
	form.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", auth.ErrOAuthExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=utf-8")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warnw("kakao token exchange failed", "err", err)
		return nil, fmt.Errorf("%w: %v", auth.ErrOAuthExchange, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warnw("kakao token endpoint returned error", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: token endpoint status %d", auth.ErrOAuthExchange, resp.StatusCode)
	}

	var tok TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", auth.ErrOAuthExchange, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", auth.ErrOAuthExchange)
	}
	c.logger.Infow("kakao access token obtained")
	return &tok, nil
}

// FetchProfile loads the provider profile with a bearer token. A missing or
// blank email fails the login: email is the cross-provider join key and no
// synthetic fallback exists.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserInfoURI, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", auth.ErrOAuthExchange, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warnw("kakao profile fetch failed", "err", err)
		return nil, fmt.Errorf("%w: %v", auth.ErrOAuthExchange, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warnw("kakao user-info endpoint returned error", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: user-info endpoint status %d", auth.ErrOAuthExchange, resp.StatusCode)
	}

	var info userInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", auth.ErrOAuthExchange, err)
	}
	if strings.TrimSpace(info.KakaoAccount.Email) == "" {
		c.logger.Warnw("kakao profile has no email", "provider_id", info.ID)
		return nil, auth.ErrOAuthProfileIncomplete
	}
	return &Profile{
		ProviderID:      fmt.Sprintf("%d", info.ID),
		Email:           info.KakaoAccount.Email,
		Nickname:        info.KakaoAccount.Profile.Nickname,
		ProfileImageURL: info.KakaoAccount.Profile.ProfileImageURL,
	}, nil
}
