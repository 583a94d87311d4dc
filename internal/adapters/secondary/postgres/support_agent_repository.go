package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trackitco/support-dashboard/internal/core/domain"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
	"github.com/trackitco/support-dashboard/internal/core/ports"
)

type SupportAgentRepository struct {
	pool *pgxpool.Pool
}

var _ ports.SupportAgentRepository = (*SupportAgentRepository)(nil)

func NewSupportAgentRepository(pool *pgxpool.Pool) *SupportAgentRepository {
	return &SupportAgentRepository{pool: pool}
}

// GetByEmail matches the email case-insensitively.
func (r *SupportAgentRepository) GetByEmail(ctx context.Context, email string) (*domain.SupportAgent, error) {
	query := `
		SELECT id, email, full_name, password_hash, is_active, created_at
		FROM support_agents
		WHERE lower(email) = lower($1)
		LIMIT 1
	`

	var a domain.SupportAgent
	err := GetDBTX(ctx, r.pool).QueryRow(ctx, query, email).
		Scan(&a.ID, &a.Email, &a.FullName, &a.HashedPassword, &a.IsActive, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSupportAgentNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Create inserts a support agent. Used by seeding and tests.
func (r *SupportAgentRepository) Create(ctx context.Context, agent *domain.SupportAgent) error {
	_, err := GetDBTX(ctx, r.pool).Exec(ctx, `
		INSERT INTO support_agents (id, email, full_name, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5)
	`, agent.ID, domain.NormalizeEmail(agent.Email), agent.FullName, agent.HashedPassword, agent.IsActive)
	return err
}
