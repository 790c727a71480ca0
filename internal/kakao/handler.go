package kakao

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/dowan-kim/myauth/internal/auth"
)

// Handler exposes the Kakao login endpoints. The callback is channel-aware:
// web clients get the refresh token as an HTTP-only cookie plus a redirect to
// the front-end with the access token in the query; mobile clients get a
// single JSON payload and no cookie.
type Handler struct {
	svc     *LoginService
	authCfg auth.Config
	logger  *zap.SugaredLogger
}

func NewHandler(svc *LoginService, authCfg auth.Config, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, authCfg: authCfg, logger: logger}
}

// Login redirects the browser to Kakao's consent screen.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	target := h.svc.AuthorizationURL()
	h.logger.Infow("redirecting to kakao authorization", "url", target)
	http.Redirect(w, r, target, http.StatusFound)
}

// Callback handles the provider redirect carrying the authorization code.
// Failures redirect the browser back to the front-end with an error query
// parameter: the user is mid-redirect through a third party, so a raw error
// page would strand them.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectError(w, r, "missing authorization code")
		return
	}

	channel := auth.ClassifyClient(r)
	sess, a, err := h.svc.ProcessLogin(r.Context(), code)
	if err != nil {
		h.logger.Warnw("kakao login failed", "err", err)
		h.redirectError(w, r, publicMessage(err))
		return
	}
	h.logger.Infow("kakao login succeeded", "account_id", a.ID, "channel", channel)

	if channel == auth.ChannelWeb {
		auth.SetRefreshCookie(w, h.authCfg, sess.RefreshToken)
		redirect := h.authCfg.FrontendCallbackURL + "?accessToken=" + url.QueryEscape(sess.AccessToken)
		http.Redirect(w, r, redirect, http.StatusFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "kakao login succeeded",
		"data": map[string]any{
			"accessToken":  sess.AccessToken,
			"refreshToken": sess.RefreshToken,
			"user": map[string]any{
				"id":    a.ID,
				"email": a.Email,
				"name":  a.Name,
				"role":  a.Role,
			},
		},
	})
}

func (h *Handler) redirectError(w http.ResponseWriter, r *http.Request, message string) {
	target := h.authCfg.FrontendCallbackURL + "?error=" + url.QueryEscape(message)
	http.Redirect(w, r, target, http.StatusFound)
}

// publicMessage keeps provider and storage detail out of the redirect query.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrOAuthProfileIncomplete):
		return auth.ErrOAuthProfileIncomplete.Error()
	case errors.Is(err, auth.ErrAccountLinkConflict):
		return auth.ErrAccountLinkConflict.Error()
	case errors.Is(err, auth.ErrOAuthExchange):
		return auth.ErrOAuthExchange.Error()
	case errors.Is(err, auth.ErrAccountDisabled):
		return err.Error()
	default:
		return "kakao login failed"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
