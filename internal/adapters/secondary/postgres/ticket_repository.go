package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trackitco/support-dashboard/internal/core/domain"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
	"github.com/trackitco/support-dashboard/internal/core/ports"
)

// TicketRepository is the secondary adapter for ticket reads and status writes.
type TicketRepository struct {
	pool *pgxpool.Pool
}

// Ensure TicketRepository implements the ports.TicketRepository interface.
var _ ports.TicketRepository = (*TicketRepository)(nil)

// NewTicketRepository creates a new ticket repository.
func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

const ticketColumns = `id, user_id, subject, status, priority, updated_at, created_at`

func scanTicket(row pgx.Row) (*domain.TicketSummary, error) {
	var t domain.TicketSummary
	var status string
	if err := row.Scan(&t.ID, &t.UserID, &t.Subject, &status, &t.Priority, &t.UpdatedAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Status = domain.TicketStatus(status)
	return &t, nil
}

// LatestForUser returns the user's most recently changed ticket, or nil.
func (r *TicketRepository) LatestForUser(ctx context.Context, userID string) (*domain.TicketSummary, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE user_id = $1
		ORDER BY greatest(updated_at, created_at) DESC, id DESC
		LIMIT 1
	`
	t, err := scanTicket(GetDBTX(ctx, r.pool).QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// ListForUserSince returns tickets changed at or after since, oldest change first.
func (r *TicketRepository) ListForUserSince(ctx context.Context, userID string, since time.Time) ([]domain.TicketSummary, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE user_id = $1 AND greatest(updated_at, created_at) >= $2
		ORDER BY greatest(updated_at, created_at) ASC, id ASC
	`
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []domain.TicketSummary
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

// GetOwner returns the id of the user who opened the ticket.
func (r *TicketRepository) GetOwner(ctx context.Context, ticketID string) (string, error) {
	var owner string
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, `SELECT user_id FROM tickets WHERE id = $1`, ticketID).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrTicketNotFound
		}
		return "", err
	}
	return owner, nil
}

// GetStatus returns the ticket's current status.
func (r *TicketRepository) GetStatus(ctx context.Context, ticketID string) (domain.TicketStatus, error) {
	var status string
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, `SELECT status FROM tickets WHERE id = $1`, ticketID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrTicketNotFound
		}
		return "", err
	}
	return domain.TicketStatus(status), nil
}

// UpdateStatus sets the status and bumps updated_at.
func (r *TicketRepository) UpdateStatus(ctx context.Context, ticketID string, status domain.TicketStatus) error {
	if !status.IsValid() {
		return apperrors.ErrInvalidStatus
	}
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx,
		`UPDATE tickets SET status = $2, updated_at = now() WHERE id = $1`,
		ticketID, string(status),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTicketNotFound
	}
	return nil
}

// Touch bumps updated_at so the ticket resurfaces on the tickets stream.
func (r *TicketRepository) Touch(ctx context.Context, ticketID string) error {
	tag, err := GetDBTX(ctx, r.pool).Exec(ctx, `UPDATE tickets SET updated_at = now() WHERE id = $1`, ticketID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTicketNotFound
	}
	return nil
}
