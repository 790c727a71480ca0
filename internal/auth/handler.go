package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dowan-kim/myauth/internal/account/entity"
)

// Handler exposes the HTTP endpoints for local authentication and the token
// lifecycle (signup / login / refresh / logout / me).
type Handler struct {
	svc    *Service
	cfg    Config
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, cfg Config, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, cfg: cfg, logger: logger}
}

// APIResponse is the uniform response envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// AccountSummary is the minimal user projection returned with a token pair.
type AccountSummary struct {
	ID    int64       `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  entity.Role `json:"role"`
}

func summarize(a *entity.Account) AccountSummary {
	return AccountSummary{ID: a.ID, Email: a.Email, Name: a.Name, Role: a.Role}
}

// LoginResponse carries a freshly issued token pair.
type LoginResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	User         AccountSummary `json:"user"`
}

// SignupRequest is the request body for the signup endpoint.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// LoginRequest is the request body for both login endpoints.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the request body for the refresh endpoint. Web clients
// may omit it and present the refresh-token cookie instead.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	if _, err := h.svc.Signup(r.Context(), req.Email, req.Password, req.Username); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "signup completed", nil)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.svc.Login)
}

// LoginEx is the strict login variant: account-state failures are reported
// as plain credential failures.
func (h *Handler) LoginEx(w http.ResponseWriter, r *http.Request) {
	h.login(w, r, h.svc.LoginEx)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, email, password string) (*Session, *entity.Account, error)) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	sess, a, err := fn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if ClassifyClient(r) == ChannelWeb {
		SetRefreshCookie(w, h.cfg, sess.RefreshToken)
	}
	writeSuccess(w, http.StatusOK, "login succeeded", LoginResponse{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		User:         summarize(a),
	})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	// body is optional for web clients presenting the cookie
	_ = json.NewDecoder(r.Body).Decode(&req)
	token := req.RefreshToken
	if token == "" {
		if c, err := r.Cookie(RefreshCookieName); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		writeError(w, http.StatusBadRequest, "refresh token is required")
		return
	}
	access, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "access token refreshed", map[string]any{
		"accessToken":  access,
		"refreshToken": nil, // rotation is not performed
	})
}

// Logout extracts the bearer access token, revokes all refresh tokens of the
// resolved principal and clears the refresh cookie. The cookie is cleared in
// every branch: logout stays idempotent from the client's perspective even
// when revocation fails server-side.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ClearRefreshCookie(w, h.cfg)

	token, ok := BearerToken(r)
	if !ok {
		writeSuccess(w, http.StatusOK, "logout completed", nil)
		return
	}
	if err := h.svc.Logout(r.Context(), token); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			writeSuccess(w, http.StatusOK, "logout completed", nil)
			return
		}
		h.logger.Errorw("logout revocation failed", "err", err)
		writeSuccess(w, http.StatusOK, "logout completed", nil)
		return
	}
	writeSuccess(w, http.StatusOK, "logout completed", nil)
}

// Me returns the full non-sensitive projection of the authenticated account.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	a, ok := AccountFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeSuccess(w, http.StatusOK, "account retrieved", map[string]any{
		"id":           a.ID,
		"email":        a.Email,
		"name":         a.Name,
		"profileImage": a.ProfileImage,
		"provider":     a.Provider,
		"role":         a.Role,
		"status":       a.Status,
		"isActive":     a.IsActive,
		"createdAt":    a.CreatedAt.Format(time.RFC3339),
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrAccountDisabled):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrDuplicateEmail):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		h.logger.Errorw("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, APIResponse{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, APIResponse{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
