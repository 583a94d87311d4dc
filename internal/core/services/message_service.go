package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/trackitco/support-dashboard/internal/core/domain"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
	"github.com/trackitco/support-dashboard/internal/core/ports"
)

const publishTimeout = 5 * time.Second

// MessageService implements the ticket conversation use cases.
type MessageService struct {
	tickets   ports.TicketRepository
	messages  ports.MessageRepository
	policy    ports.AccessPolicy
	txManager ports.TransactionManager
	publisher ports.Publisher
	logger    *slog.Logger
}

var _ ports.MessageService = (*MessageService)(nil)

// NewMessageService creates a new message service. publisher may be nil when
// no push transport is configured; pollers still deliver every message.
func NewMessageService(
	tickets ports.TicketRepository,
	messages ports.MessageRepository,
	policy ports.AccessPolicy,
	txManager ports.TransactionManager,
	publisher ports.Publisher,
	logger *slog.Logger,
) *MessageService {
	return &MessageService{
		tickets:   tickets,
		messages:  messages,
		policy:    policy,
		txManager: txManager,
		publisher: publisher,
		logger:    logger.With("component", "message_service"),
	}
}

// List returns a ticket's conversation in creation order.
func (s *MessageService) List(ctx context.Context, identity domain.Identity, ticketID string) ([]domain.TicketMessage, error) {
	if err := s.policy.Check(ctx, identity, domain.TicketRoom(ticketID)); err != nil {
		return nil, err
	}
	return s.messages.ListByTicket(ctx, ticketID)
}

// Post appends a message to a ticket. The insert and the ticket update
// commit together.
func (s *MessageService) Post(ctx context.Context, params ports.PostMessageParams) (*domain.TicketMessage, error) {
	sender := params.SenderType
	if sender == "" {
		sender = domain.SenderUser
		if params.Identity.IsSupport {
			sender = domain.SenderSupport
		}
	}
	if sender == domain.SenderSupport && !params.Identity.IsSupport {
		return nil, apperrors.ErrForbidden
	}

	if err := s.policy.Check(ctx, params.Identity, domain.TicketRoom(params.TicketID)); err != nil {
		return nil, err
	}

	var authorID *string
	if sender == domain.SenderUser {
		id := params.Identity.UserID
		authorID = &id
	}

	msg, err := domain.NewTicketMessage(params.TicketID, authorID, sender, params.Content)
	if err != nil {
		return nil, err
	}

	var (
		created   *domain.TicketMessage
		newStatus domain.TicketStatus
		changed   bool
	)
	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		status, err := s.tickets.GetStatus(ctx, params.TicketID)
		if err != nil {
			return err
		}
		if err := domain.CanPost(status, sender); err != nil {
			return err
		}

		created, err = s.messages.Create(ctx, msg)
		if err != nil {
			return err
		}

		newStatus = domain.StatusAfterReply(status, sender)
		if newStatus != status {
			changed = true
			return s.tickets.UpdateStatus(ctx, params.TicketID, newStatus)
		}
		return s.tickets.Touch(ctx, params.TicketID)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.TicketChannel(params.TicketID), domain.MessageEvent(*created))
	if changed {
		s.publish(ctx, domain.TicketChannel(params.TicketID), domain.StatusEvent(newStatus))
	}

	return created, nil
}

// publish pushes event when a push transport is configured. Failures are
// logged only.
func (s *MessageService) publish(ctx context.Context, channel string, event domain.Event) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, channel, event); err != nil {
		s.logger.WarnContext(ctx, "push publish failed",
			"channel", channel,
			"event_type", event.Type,
			"error", err,
		)
	}
}
