package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	mw "github.com/trackitco/support-dashboard/internal/adapters/primary/http/middleware"
	"github.com/trackitco/support-dashboard/internal/adapters/primary/validation"
	"github.com/trackitco/support-dashboard/internal/core/ports"
)

// SupportAuthHandler logs support agents in
type SupportAuthHandler struct {
	auth         ports.SupportAuthService
	secureCookie bool
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewSupportAuthHandler creates a new support login handler. secureCookie
// marks the auth cookie Secure and should be set outside development.
func NewSupportAuthHandler(auth ports.SupportAuthService, secureCookie bool, errorHandler *ErrorHandler, logger *slog.Logger) *SupportAuthHandler {
	return &SupportAuthHandler{
		auth:         auth,
		secureCookie: secureCookie,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// RegisterRoutes mounts the handlers under /auth/support.
func (h *SupportAuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.HandleLogin)
}

// LoginRequest is the support login body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate validates the login request
func (r *LoginRequest) Validate() error {
	v := validation.NewValidator()
	v.Required("email", r.Email).Email("email", r.Email)
	v.Required("password", r.Password)
	return v.Err()
}

// LoginResponse carries the issued support token
type LoginResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HandleLogin checks the agent's password and issues a support token. The
// token is also set as the auth cookie so EventSource clients can use it.
func (h *SupportAuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeJSON[LoginRequest](w, r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	issued, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     mw.AuthCookieName,
		Value:    issued.Token,
		Path:     "/",
		Expires:  issued.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.InfoContext(r.Context(), "support agent logged in", "agent_id", issued.Agent.ID)

	WriteJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
	})
}
