package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/trackitco/support-dashboard/internal/core/domain"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
	"github.com/trackitco/support-dashboard/internal/core/ports"
)

// FeedSource builds the feed and poll interval for a room.
type FeedSource interface {
	FeedFor(room domain.RoomKey) (Feed, time.Duration, error)
}

// Intervals are the poll periods per stream.
type Intervals struct {
	Tickets      time.Duration
	Messages     time.Duration
	Transactions time.Duration
}

// DefaultIntervals match what the dashboard clients expect.
var DefaultIntervals = Intervals{
	Tickets:      2 * time.Second,
	Messages:     time.Second,
	Transactions: 2 * time.Second,
}

// StoreFeeds backs rooms with the repositories.
type StoreFeeds struct {
	tickets      ports.TicketRepository
	messages     ports.MessageRepository
	transactions ports.TransactionRepository
	intervals    Intervals
}

func NewStoreFeeds(
	tickets ports.TicketRepository,
	messages ports.MessageRepository,
	transactions ports.TransactionRepository,
	intervals Intervals,
) *StoreFeeds {
	if intervals.Tickets <= 0 {
		intervals.Tickets = DefaultIntervals.Tickets
	}
	if intervals.Messages <= 0 {
		intervals.Messages = DefaultIntervals.Messages
	}
	if intervals.Transactions <= 0 {
		intervals.Transactions = DefaultIntervals.Transactions
	}
	return &StoreFeeds{
		tickets:      tickets,
		messages:     messages,
		transactions: transactions,
		intervals:    intervals,
	}
}

func (s *StoreFeeds) FeedFor(room domain.RoomKey) (Feed, time.Duration, error) {
	if err := room.Validate(); err != nil {
		return nil, 0, err
	}
	switch room.Stream {
	case domain.StreamTickets:
		return &ticketFeed{repo: s.tickets, userID: room.ID}, s.intervals.Tickets, nil
	case domain.StreamTransactions:
		return &transactionFeed{repo: s.transactions, userID: room.ID}, s.intervals.Transactions, nil
	case domain.StreamTicketMessages:
		return &messageFeed{messages: s.messages, tickets: s.tickets, ticketID: room.ID}, s.intervals.Messages, nil
	}
	return nil, 0, apperrors.ErrInvalidStreamType
}

func rowKey(id string, at time.Time) string {
	return fmt.Sprintf("%s@%d", id, at.UnixNano())
}

type ticketFeed struct {
	repo   ports.TicketRepository
	userID string
}

func ticketRow(t domain.TicketSummary) Row {
	at := t.ChangedAt()
	return Row{Key: rowKey(t.ID, at), At: at, Event: domain.TicketEvent(t)}
}

func (f *ticketFeed) Latest(ctx context.Context) (*Row, error) {
	t, err := f.repo.LatestForUser(ctx, f.userID)
	if err != nil {
		return nil, apperrors.NewQueryError("tickets.latest", err)
	}
	if t == nil {
		return nil, nil
	}
	row := ticketRow(*t)
	return &row, nil
}

func (f *ticketFeed) Since(ctx context.Context, cursor time.Time) ([]Row, error) {
	tickets, err := f.repo.ListForUserSince(ctx, f.userID, cursor)
	if err != nil {
		return nil, apperrors.NewQueryError("tickets.since", err)
	}
	rows := make([]Row, 0, len(tickets))
	for _, t := range tickets {
		rows = append(rows, ticketRow(t))
	}
	return rows, nil
}

type transactionFeed struct {
	repo   ports.TransactionRepository
	userID string
}

func transactionRow(t domain.Transaction) Row {
	return Row{Key: rowKey(t.ID, t.CreatedAt), At: t.CreatedAt, Event: domain.TransactionEvent(t)}
}

func (f *transactionFeed) Latest(ctx context.Context) (*Row, error) {
	t, err := f.repo.Latest(ctx, f.userID)
	if err != nil {
		return nil, apperrors.NewQueryError("transactions.latest", err)
	}
	if t == nil {
		return nil, nil
	}
	row := transactionRow(*t)
	return &row, nil
}

func (f *transactionFeed) Since(ctx context.Context, cursor time.Time) ([]Row, error) {
	txs, err := f.repo.ListSince(ctx, f.userID, cursor)
	if err != nil {
		return nil, apperrors.NewQueryError("transactions.since", err)
	}
	rows := make([]Row, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, transactionRow(t))
	}
	return rows, nil
}

type messageFeed struct {
	messages ports.MessageRepository
	tickets  ports.TicketRepository
	ticketID string
}

func messageRow(m domain.TicketMessage) Row {
	return Row{Key: rowKey(m.ID, m.CreatedAt), At: m.CreatedAt, Event: domain.MessageEvent(m)}
}

func (f *messageFeed) Latest(ctx context.Context) (*Row, error) {
	m, err := f.messages.Latest(ctx, f.ticketID)
	if err != nil {
		return nil, apperrors.NewQueryError("messages.latest", err)
	}
	if m == nil {
		return nil, nil
	}
	row := messageRow(*m)
	return &row, nil
}

func (f *messageFeed) Since(ctx context.Context, cursor time.Time) ([]Row, error) {
	msgs, err := f.messages.ListSince(ctx, f.ticketID, cursor)
	if err != nil {
		return nil, apperrors.NewQueryError("messages.since", err)
	}
	rows := make([]Row, 0, len(msgs))
	for _, m := range msgs {
		rows = append(rows, messageRow(m))
	}
	return rows, nil
}

func (f *messageFeed) Status(ctx context.Context) (domain.TicketStatus, error) {
	status, err := f.tickets.GetStatus(ctx, f.ticketID)
	if err != nil {
		return "", apperrors.NewQueryError("tickets.status", err)
	}
	return status, nil
}
