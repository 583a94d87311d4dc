package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trackitco/support-dashboard/internal/core/domain"
	"github.com/trackitco/support-dashboard/internal/core/ports"
)

// MessageRepository stores ticket conversation messages.
type MessageRepository struct {
	pool *pgxpool.Pool
}

var _ ports.MessageRepository = (*MessageRepository)(nil)

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

const messageColumns = `id, ticket_id, user_id, sender_type, content, created_at`

func scanMessage(row pgx.Row) (*domain.TicketMessage, error) {
	var m domain.TicketMessage
	var sender string
	if err := row.Scan(&m.ID, &m.TicketID, &m.UserID, &sender, &m.Content, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.SenderType = domain.SenderType(sender)
	return &m, nil
}

func (r *MessageRepository) list(ctx context.Context, query string, args ...any) ([]domain.TicketMessage, error) {
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.TicketMessage{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

// Latest returns the newest message on the ticket, or nil.
func (r *MessageRepository) Latest(ctx context.Context, ticketID string) (*domain.TicketMessage, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM ticket_messages
		WHERE ticket_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	m, err := scanMessage(GetDBTX(ctx, r.pool).QueryRow(ctx, query, ticketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// ListSince returns messages created at or after since, oldest first.
func (r *MessageRepository) ListSince(ctx context.Context, ticketID string, since time.Time) ([]domain.TicketMessage, error) {
	return r.list(ctx, `
		SELECT `+messageColumns+`
		FROM ticket_messages
		WHERE ticket_id = $1 AND created_at >= $2
		ORDER BY created_at ASC, id ASC
	`, ticketID, since)
}

// ListByTicket returns the whole conversation, oldest first.
func (r *MessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error) {
	return r.list(ctx, `
		SELECT `+messageColumns+`
		FROM ticket_messages
		WHERE ticket_id = $1
		ORDER BY created_at ASC, id ASC
	`, ticketID)
}

// Create inserts the message, assigning an id when it has none.
func (r *MessageRepository) Create(ctx context.Context, msg *domain.TicketMessage) (*domain.TicketMessage, error) {
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}
	query := `
		INSERT INTO ticket_messages (id, ticket_id, user_id, sender_type, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + messageColumns
	return scanMessage(GetDBTX(ctx, r.pool).QueryRow(ctx, query,
		id, msg.TicketID, msg.UserID, string(msg.SenderType), msg.Content,
	))
}
