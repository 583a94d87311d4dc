package http

import (
	"log/slog"
	"net/http"
	"net/url"

	mw "github.com/trackitco/support-dashboard/internal/adapters/primary/http/middleware"
	"github.com/trackitco/support-dashboard/internal/core/domain"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
	"github.com/trackitco/support-dashboard/internal/core/ports"
)

// PusherAuthHandler signs private channel subscriptions for the push
// transport. Channel access follows the same policy as the streams.
type PusherAuthHandler struct {
	authorizer   ports.ChannelAuthorizer
	policy       ports.AccessPolicy
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewPusherAuthHandler creates a new channel authorization handler
func NewPusherAuthHandler(authorizer ports.ChannelAuthorizer, policy ports.AccessPolicy, errorHandler *ErrorHandler, logger *slog.Logger) *PusherAuthHandler {
	return &PusherAuthHandler{
		authorizer:   authorizer,
		policy:       policy,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// ServeHTTP handles POST /api/pusher/auth with form fields socket_id and
// channel_name. The router must run mw.Authenticate first.
func (h *PusherAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, ok := mw.GetIdentity(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrNotAuthenticated)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(err, "Invalid form body"))
		return
	}
	socketID := r.PostForm.Get("socket_id")
	channel := r.PostForm.Get("channel_name")
	if socketID == "" || channel == "" {
		h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(apperrors.ErrBadRequest, "Missing socket_id or channel_name"))
		return
	}

	room, err := domain.RoomForChannel(channel)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := h.policy.Check(r.Context(), identity, room); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := url.Values{"socket_id": {socketID}, "channel_name": {channel}}
	body, err := h.authorizer.AuthorizeChannel([]byte(params.Encode()))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.DebugContext(r.Context(), "push channel authorized", "channel", channel)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
