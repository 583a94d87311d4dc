package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/trackitco/support-dashboard/internal/adapters/primary/http/middleware"
	"github.com/trackitco/support-dashboard/internal/adapters/primary/validation"
	"github.com/trackitco/support-dashboard/internal/core/domain"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
	"github.com/trackitco/support-dashboard/internal/core/ports"
)

// MessageHandler handles the ticket conversation endpoints
type MessageHandler struct {
	messages     ports.MessageService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(messages ports.MessageService, errorHandler *ErrorHandler, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		messages:     messages,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// RegisterRoutes mounts the handlers under /tickets/{ticketID}/messages.
// The router must run mw.Authenticate first.
func (h *MessageHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleList)
	r.Post("/", h.HandlePost)
}

// --- Request/Response DTOs ---

// PostMessageRequest is the body for posting a message
type PostMessageRequest struct {
	Content    string `json:"content"`
	SenderType string `json:"senderType"`
}

// Validate validates the post message request
func (r *PostMessageRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("content", r.Content).
		MaxLength("content", r.Content, domain.MaxMessageLength)

	v.OneOf("senderType", r.SenderType, []string{string(domain.SenderUser), string(domain.SenderSupport)})

	return v.Err()
}

// MessageListResponse wraps a conversation
type MessageListResponse struct {
	Messages []domain.TicketMessage `json:"messages"`
}

// MessageResponse wraps a single created message
type MessageResponse struct {
	Message *domain.TicketMessage `json:"message"`
}

// --- Handlers ---

// HandleList returns the conversation oldest first
func (h *MessageHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, ok := mw.GetIdentity(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrNotAuthenticated)
		return
	}

	messages, err := h.messages.List(r.Context(), identity, chi.URLParam(r, "ticketID"))
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	WriteJSON(w, http.StatusOK, MessageListResponse{Messages: messages})
}

// HandlePost appends a message to the ticket
func (h *MessageHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	identity, ok := mw.GetIdentity(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.ErrNotAuthenticated)
		return
	}

	req, err := validation.DecodeJSON[PostMessageRequest](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if HandleError(w, r, req.Validate(), h.errorHandler) {
		return
	}

	ticketID := chi.URLParam(r, "ticketID")
	msg, err := h.messages.Post(r.Context(), ports.PostMessageParams{
		TicketID:   ticketID,
		Identity:   identity,
		SenderType: domain.SenderType(req.SenderType),
		Content:    req.Content,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "ticket message posted",
		"ticket_id", ticketID,
		"message_id", msg.ID,
		"sender_type", msg.SenderType,
	)

	WriteCreated(w, MessageResponse{Message: msg})
}
