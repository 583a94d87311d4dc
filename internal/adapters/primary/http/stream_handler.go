package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/trackitco/support-dashboard/internal/adapters/primary/http/middleware"
	"github.com/trackitco/support-dashboard/internal/adapters/primary/sse"
	"github.com/trackitco/support-dashboard/internal/core/domain"
	"github.com/trackitco/support-dashboard/internal/core/ports"
	"github.com/trackitco/support-dashboard/internal/core/realtime"
)

// StreamHandler serves the read-only SSE feeds. Authentication and access
// are settled before the stream opens so failures get a plain JSON status.
type StreamHandler struct {
	registry     *realtime.Registry
	authn        ports.Authenticator
	policy       ports.AccessPolicy
	keepAlive    time.Duration
	bufferSize   int
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewStreamHandler creates a new SSE handler
func NewStreamHandler(
	registry *realtime.Registry,
	authn ports.Authenticator,
	policy ports.AccessPolicy,
	keepAlive time.Duration,
	bufferSize int,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *StreamHandler {
	return &StreamHandler{
		registry:     registry,
		authn:        authn,
		policy:       policy,
		keepAlive:    keepAlive,
		bufferSize:   bufferSize,
		errorHandler: errorHandler,
		logger:       logger.With("component", "sse"),
	}
}

// HandleTickets streams ticket changes for ?userId (default: the caller's subject).
func (h *StreamHandler) HandleTickets(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(identity domain.Identity) domain.RoomKey {
		return userRoom(r, domain.StreamTickets, identity)
	})
}

// HandleTransactions streams new card transactions for ?userId.
func (h *StreamHandler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(identity domain.Identity) domain.RoomKey {
		return userRoom(r, domain.StreamTransactions, identity)
	})
}

// HandleMessages streams messages and status changes for one ticket.
func (h *StreamHandler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")
	h.serve(w, r, func(domain.Identity) domain.RoomKey {
		return domain.TicketRoom(ticketID)
	})
}

func userRoom(r *http.Request, stream domain.StreamType, identity domain.Identity) domain.RoomKey {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		userID = identity.SubjectUserID()
	}
	return domain.UserRoom(stream, userID)
}

func (h *StreamHandler) serve(w http.ResponseWriter, r *http.Request, room func(domain.Identity) domain.RoomKey) {
	ctx := r.Context()

	identity, err := h.authn.Authenticate(ctx, mw.CredentialFromRequest(r))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	key := room(identity)
	if err := key.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := h.policy.Check(ctx, identity, key); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	id := uuid.NewString()
	stream := sse.NewStream(h.bufferSize)
	if err := h.registry.Register(id, stream); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	defer h.registry.Unregister(id)

	if err := h.registry.Attach(ctx, id, identity, key); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "stream opened", "connection_id", id, "room", key.String())
	if err := stream.Serve(ctx, w, h.keepAlive); err != nil {
		h.logger.DebugContext(ctx, "stream write failed", "connection_id", id, "error", err)
	}
	h.logger.InfoContext(ctx, "stream closed", "connection_id", id)
}
