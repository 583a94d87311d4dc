package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/trackitco/support-dashboard/internal/core/domain"
	"github.com/trackitco/support-dashboard/internal/core/ports"
)

// MockTicketRepository is a mock implementation of ports.TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

var _ ports.TicketRepository = (*MockTicketRepository)(nil)

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{}
}

func (m *MockTicketRepository) LatestForUser(ctx context.Context, userID string) (*domain.TicketSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TicketSummary), args.Error(1)
}

func (m *MockTicketRepository) ListForUserSince(ctx context.Context, userID string, since time.Time) ([]domain.TicketSummary, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TicketSummary), args.Error(1)
}

func (m *MockTicketRepository) GetOwner(ctx context.Context, ticketID string) (string, error) {
	args := m.Called(ctx, ticketID)
	return args.String(0), args.Error(1)
}

func (m *MockTicketRepository) GetStatus(ctx context.Context, ticketID string) (domain.TicketStatus, error) {
	args := m.Called(ctx, ticketID)
	return args.Get(0).(domain.TicketStatus), args.Error(1)
}

func (m *MockTicketRepository) UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error {
	args := m.Called(ctx, ticketID, status)
	return args.Error(0)
}

func (m *MockTicketRepository) Touch(ctx context.Context, ticketID string) error {
	args := m.Called(ctx, ticketID)
	return args.Error(0)
}

// MockMessageRepository is a mock implementation of ports.MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

var _ ports.MessageRepository = (*MockMessageRepository)(nil)

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{}
}

func (m *MockMessageRepository) Latest(ctx context.Context, ticketID string) (*domain.TicketMessage, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TicketMessage), args.Error(1)
}

func (m *MockMessageRepository) ListSince(ctx context.Context, ticketID string, since time.Time) ([]domain.TicketMessage, error) {
	args := m.Called(ctx, ticketID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TicketMessage), args.Error(1)
}

func (m *MockMessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TicketMessage), args.Error(1)
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *domain.TicketMessage) (*domain.TicketMessage, error) {
	args := m.Called(ctx, msg)
	if fn, ok := args.Get(0).(func(context.Context, *domain.TicketMessage) *domain.TicketMessage); ok {
		return fn(ctx, msg), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TicketMessage), args.Error(1)
}

// MockTransactionRepository is a mock implementation of ports.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

var _ ports.TransactionRepository = (*MockTransactionRepository)(nil)

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{}
}

func (m *MockTransactionRepository) Latest(ctx context.Context, userID string) (*domain.Transaction, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]domain.Transaction, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

// MockSessionRepository is a mock implementation of ports.SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

var _ ports.SessionRepository = (*MockSessionRepository)(nil)

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{}
}

func (m *MockSessionRepository) FindUserByTokenHash(ctx context.Context, tokenHash string) (string, error) {
	args := m.Called(ctx, tokenHash)
	return args.String(0), args.Error(1)
}

// MockSupportAgentRepository is a mock implementation of ports.SupportAgentRepository
type MockSupportAgentRepository struct {
	mock.Mock
}

var _ ports.SupportAgentRepository = (*MockSupportAgentRepository)(nil)

func NewMockSupportAgentRepository() *MockSupportAgentRepository {
	return &MockSupportAgentRepository{}
}

func (m *MockSupportAgentRepository) GetByEmail(ctx context.Context, email string) (*domain.SupportAgent, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SupportAgent), args.Error(1)
}

// MockAuthenticator is a mock implementation of ports.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

var _ ports.Authenticator = (*MockAuthenticator)(nil)

func NewMockAuthenticator() *MockAuthenticator {
	return &MockAuthenticator{}
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, cred domain.Credential) (domain.Identity, error) {
	args := m.Called(ctx, cred)
	return args.Get(0).(domain.Identity), args.Error(1)
}

// MockAccessPolicy is a mock implementation of ports.AccessPolicy
type MockAccessPolicy struct {
	mock.Mock
}

var _ ports.AccessPolicy = (*MockAccessPolicy)(nil)

func NewMockAccessPolicy() *MockAccessPolicy {
	return &MockAccessPolicy{}
}

func (m *MockAccessPolicy) Check(ctx context.Context, identity domain.Identity, room domain.RoomKey) error {
	args := m.Called(ctx, identity, room)
	return args.Error(0)
}

// MockPublisher is a mock implementation of ports.Publisher
type MockPublisher struct {
	mock.Mock
}

var _ ports.Publisher = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, channel string, event domain.Event) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

// MockMessageService is a mock implementation of ports.MessageService
type MockMessageService struct {
	mock.Mock
}

var _ ports.MessageService = (*MockMessageService)(nil)

func NewMockMessageService() *MockMessageService {
	return &MockMessageService{}
}

func (m *MockMessageService) List(ctx context.Context, identity domain.Identity, ticketID string) ([]domain.TicketMessage, error) {
	args := m.Called(ctx, identity, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TicketMessage), args.Error(1)
}

func (m *MockMessageService) Post(ctx context.Context, params ports.PostMessageParams) (*domain.TicketMessage, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TicketMessage), args.Error(1)
}

// MockSupportAuthService is a mock implementation of ports.SupportAuthService
type MockSupportAuthService struct {
	mock.Mock
}

var _ ports.SupportAuthService = (*MockSupportAuthService)(nil)

func NewMockSupportAuthService() *MockSupportAuthService {
	return &MockSupportAuthService{}
}

func (m *MockSupportAuthService) Login(ctx context.Context, email, password string) (*ports.SupportToken, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.SupportToken), args.Error(1)
}

// InlineTransactionManager runs the callback directly without a database.
type InlineTransactionManager struct {
	Calls int
}

var _ ports.TransactionManager = (*InlineTransactionManager)(nil)

func (m *InlineTransactionManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Calls++
	return fn(ctx)
}
