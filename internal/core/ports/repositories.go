package ports

import (
	"context"
	"time"

	"github.com/trackitco/support-dashboard/internal/core/domain"
)

// TicketRepository reads tickets for the tickets stream and ownership checks.
type TicketRepository interface {
	// LatestForUser returns the user's most recently changed ticket, or nil.
	LatestForUser(ctx context.Context, userID string) (*domain.TicketSummary, error)
	// ListForUserSince returns tickets changed at or after since, ordered by
	// change time then id.
	ListForUserSince(ctx context.Context, userID string, since time.Time) ([]domain.TicketSummary, error)
	// GetOwner returns the owning user id or ErrTicketNotFound.
	GetOwner(ctx context.Context, ticketID string) (string, error)
	// GetStatus returns the current status or ErrTicketNotFound.
	GetStatus(ctx context.Context, ticketID string) (domain.TicketStatus, error)
	// UpdateStatus sets the status and bumps updated_at.
	UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error
	// Touch bumps updated_at without changing the status.
	Touch(ctx context.Context, ticketID string) error
}

// MessageRepository reads and writes ticket messages.
type MessageRepository interface {
	Latest(ctx context.Context, ticketID string) (*domain.TicketMessage, error)
	// ListSince returns messages created at or after since, ordered by
	// creation time then id.
	ListSince(ctx context.Context, ticketID string, since time.Time) ([]domain.TicketMessage, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error)
	Create(ctx context.Context, msg *domain.TicketMessage) (*domain.TicketMessage, error)
}

// TransactionRepository reads card transactions joined with categories.
type TransactionRepository interface {
	Latest(ctx context.Context, userID string) (*domain.Transaction, error)
	ListSince(ctx context.Context, userID string, since time.Time) ([]domain.Transaction, error)
}

// SessionRepository resolves opaque app session tokens.
type SessionRepository interface {
	// FindUserByTokenHash returns the user of a live session or ErrAuthenticationFailed.
	FindUserByTokenHash(ctx context.Context, tokenHash string) (string, error)
}

// SupportAgentRepository looks up support staff accounts.
type SupportAgentRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.SupportAgent, error)
}

// TransactionManager runs fn inside a single database transaction.
// Repositories called with the ctx passed to fn join that transaction.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
