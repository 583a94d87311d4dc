package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trackitco/support-dashboard/internal/core/domain"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
	"github.com/trackitco/support-dashboard/internal/core/mocks"
	"github.com/trackitco/support-dashboard/internal/core/ports"
	"github.com/trackitco/support-dashboard/internal/core/services"
)

type messageServiceDeps struct {
	tickets   *mocks.MockTicketRepository
	messages  *mocks.MockMessageRepository
	policy    *mocks.MockAccessPolicy
	tx        *mocks.InlineTransactionManager
	publisher *mocks.MockPublisher
}

func newMessageService(withPublisher bool) (*services.MessageService, messageServiceDeps) {
	deps := messageServiceDeps{
		tickets:  mocks.NewMockTicketRepository(),
		messages: mocks.NewMockMessageRepository(),
		policy:   mocks.NewMockAccessPolicy(),
		tx:       &mocks.InlineTransactionManager{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var publisher ports.Publisher
	if withPublisher {
		deps.publisher = mocks.NewMockPublisher()
		publisher = deps.publisher
	}
	svc := services.NewMessageService(deps.tickets, deps.messages, deps.policy, deps.tx, publisher, logger)
	return svc, deps
}

func storedMessage(in *domain.TicketMessage) *domain.TicketMessage {
	out := *in
	out.ID = "m1"
	return &out
}

func TestMessageService_Post(t *testing.T) {
	ctx := context.Background()
	owner := domain.Identity{UserID: "42"}
	support := domain.Identity{UserID: "agent-1", IsSupport: true, ActingUserID: "42"}

	t.Run("user message on open ticket touches ticket and publishes", func(t *testing.T) {
		svc, deps := newMessageService(true)
		deps.policy.On("Check", ctx, owner, domain.TicketRoom("7")).Return(nil)
		deps.tickets.On("GetStatus", ctx, "7").Return(domain.StatusOpen, nil)
		deps.messages.On("Create", ctx, mock.AnythingOfType("*domain.TicketMessage")).
			Return(func(_ context.Context, m *domain.TicketMessage) *domain.TicketMessage { return storedMessage(m) }, nil)
		deps.tickets.On("Touch", ctx, "7").Return(nil)
		deps.publisher.On("Publish", mock.Anything, "private-ticket-7", mock.MatchedBy(func(e domain.Event) bool {
			return e.Type == domain.EventMessage
		})).Return(nil)

		msg, err := svc.Post(ctx, ports.PostMessageParams{TicketID: "7", Identity: owner, Content: " hello "})
		require.NoError(t, err)
		assert.Equal(t, "m1", msg.ID)
		assert.Equal(t, "hello", msg.Content)
		assert.Equal(t, domain.SenderUser, msg.SenderType)
		require.NotNil(t, msg.UserID)
		assert.Equal(t, "42", *msg.UserID)
		assert.Equal(t, 1, deps.tx.Calls)

		deps.tickets.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
		deps.tickets.AssertExpectations(t)
		deps.publisher.AssertExpectations(t)
	})

	t.Run("support reply reopens pending ticket", func(t *testing.T) {
		svc, deps := newMessageService(true)
		deps.policy.On("Check", ctx, support, domain.TicketRoom("7")).Return(nil)
		deps.tickets.On("GetStatus", ctx, "7").Return(domain.StatusPending, nil)
		deps.messages.On("Create", ctx, mock.AnythingOfType("*domain.TicketMessage")).
			Return(func(_ context.Context, m *domain.TicketMessage) *domain.TicketMessage { return storedMessage(m) }, nil)
		deps.tickets.On("UpdateStatus", ctx, "7", domain.StatusOpen).Return(nil)
		deps.publisher.On("Publish", mock.Anything, "private-ticket-7", mock.Anything).Return(nil)

		msg, err := svc.Post(ctx, ports.PostMessageParams{TicketID: "7", Identity: support, Content: "we're on it"})
		require.NoError(t, err)
		assert.Equal(t, domain.SenderSupport, msg.SenderType)
		assert.Nil(t, msg.UserID)

		deps.tickets.AssertNotCalled(t, "Touch", mock.Anything, mock.Anything)
		deps.publisher.AssertNumberOfCalls(t, "Publish", 2)
	})

	t.Run("user cannot post to pending ticket", func(t *testing.T) {
		svc, deps := newMessageService(false)
		deps.policy.On("Check", ctx, owner, domain.TicketRoom("7")).Return(nil)
		deps.tickets.On("GetStatus", ctx, "7").Return(domain.StatusPending, nil)

		_, err := svc.Post(ctx, ports.PostMessageParams{TicketID: "7", Identity: owner, Content: "hi"})
		assert.ErrorIs(t, err, apperrors.ErrTicketNotOpen)
		deps.messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("closed ticket rejects support too", func(t *testing.T) {
		svc, deps := newMessageService(false)
		deps.policy.On("Check", ctx, support, domain.TicketRoom("7")).Return(nil)
		deps.tickets.On("GetStatus", ctx, "7").Return(domain.StatusClosed, nil)

		_, err := svc.Post(ctx, ports.PostMessageParams{TicketID: "7", Identity: support, Content: "hi"})
		assert.ErrorIs(t, err, apperrors.ErrTicketClosed)
	})

	t.Run("user cannot claim support sender", func(t *testing.T) {
		svc, deps := newMessageService(false)

		_, err := svc.Post(ctx, ports.PostMessageParams{TicketID: "7", Identity: owner, SenderType: domain.SenderSupport, Content: "hi"})
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		deps.policy.AssertNotCalled(t, "Check", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("access denied", func(t *testing.T) {
		svc, deps := newMessageService(false)
		stranger := domain.Identity{UserID: "43"}
		deps.policy.On("Check", ctx, stranger, domain.TicketRoom("7")).Return(apperrors.ErrAccessDenied)

		_, err := svc.Post(ctx, ports.PostMessageParams{TicketID: "7", Identity: stranger, Content: "hi"})
		assert.ErrorIs(t, err, apperrors.ErrAccessDenied)
		assert.Equal(t, 0, deps.tx.Calls)
	})

	t.Run("publish failure does not fail the post", func(t *testing.T) {
		svc, deps := newMessageService(true)
		deps.policy.On("Check", ctx, owner, domain.TicketRoom("7")).Return(nil)
		deps.tickets.On("GetStatus", ctx, "7").Return(domain.StatusOpen, nil)
		deps.messages.On("Create", ctx, mock.AnythingOfType("*domain.TicketMessage")).
			Return(func(_ context.Context, m *domain.TicketMessage) *domain.TicketMessage { return storedMessage(m) }, nil)
		deps.tickets.On("Touch", ctx, "7").Return(nil)
		deps.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("pusher down"))

		_, err := svc.Post(ctx, ports.PostMessageParams{TicketID: "7", Identity: owner, Content: "hello"})
		assert.NoError(t, err)
	})
}

func TestMessageService_List(t *testing.T) {
	ctx := context.Background()
	owner := domain.Identity{UserID: "42"}
	history := []domain.TicketMessage{
		{ID: "m1", TicketID: "7", SenderType: domain.SenderUser, Content: "help", CreatedAt: time.Now()},
	}

	svc, deps := newMessageService(false)
	deps.policy.On("Check", ctx, owner, domain.TicketRoom("7")).Return(nil)
	deps.messages.On("ListByTicket", ctx, "7").Return(history, nil)

	got, err := svc.List(ctx, owner, "7")
	require.NoError(t, err)
	assert.Equal(t, history, got)

	stranger := domain.Identity{UserID: "43"}
	deps.policy.On("Check", ctx, stranger, domain.TicketRoom("7")).Return(apperrors.ErrAccessDenied)
	_, err = svc.List(ctx, stranger, "7")
	assert.ErrorIs(t, err, apperrors.ErrAccessDenied)
}
