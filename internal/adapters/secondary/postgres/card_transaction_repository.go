package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trackitco/support-dashboard/internal/core/domain"
	"github.com/trackitco/support-dashboard/internal/core/ports"
)

// CardTransactionRepository reads card transactions with their category.
type CardTransactionRepository struct {
	pool *pgxpool.Pool
}

var _ ports.TransactionRepository = (*CardTransactionRepository)(nil)

func NewCardTransactionRepository(pool *pgxpool.Pool) *CardTransactionRepository {
	return &CardTransactionRepository{pool: pool}
}

const transactionSelect = `
	SELECT t.id, t.user_id, t.card_id, t.amount::float8, t.category_id,
	       c.name AS category_name, c.color AS category_color, t.created_at
	FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id
`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.CardID, &t.Amount, &t.CategoryID, &t.CategoryName, &t.CategoryColor, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Latest returns the user's newest transaction, or nil.
func (r *CardTransactionRepository) Latest(ctx context.Context, userID string) (*domain.Transaction, error) {
	query := transactionSelect + `
		WHERE t.user_id = $1
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT 1
	`
	t, err := scanTransaction(GetDBTX(ctx, r.pool).QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// ListSince returns transactions created at or after since, oldest first.
func (r *CardTransactionRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]domain.Transaction, error) {
	query := transactionSelect + `
		WHERE t.user_id = $1 AND t.created_at >= $2
		ORDER BY t.created_at ASC, t.id ASC
	`
	rows, err := GetDBTX(ctx, r.pool).Query(ctx, query, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}
