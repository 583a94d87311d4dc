package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
	"github.com/trackitco/support-dashboard/internal/core/ports"
)

// SessionRepository resolves app session tokens issued by the mobile and web apps.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// Ensure implementation matches the interface.
var _ ports.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new repository for session lookups.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// FindUserByTokenHash returns the user of a live (unrevoked, unexpired) session.
func (r *SessionRepository) FindUserByTokenHash(ctx context.Context, tokenHash string) (string, error) {
	query := `
		SELECT u.id
		FROM auth_sessions s
		INNER JOIN users u ON u.id = s.user_id
		WHERE s.token_hash = $1
		  AND s.revoked_at IS NULL
		  AND s.expires_at > now()
		LIMIT 1
	`

	var userID string
	if err := GetDBTX(ctx, r.pool).QueryRow(ctx, query, tokenHash).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrAuthenticationFailed
		}
		return "", err
	}
	return userID, nil
}
