package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackitco/support-dashboard/internal/auth"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
)

func seedSession(t *testing.T, ctx context.Context, userID, hash string, expiresAt time.Time, revoked bool) {
	t.Helper()
	var revokedAt *time.Time
	if revoked {
		now := time.Now()
		revokedAt = &now
	}
	_, err := testPool.Exec(ctx, `
		INSERT INTO auth_sessions (id, user_id, token_hash, expires_at, revoked_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), userID, hash, expiresAt, revokedAt)
	require.NoError(t, err)
}

func TestSessionRepository_FindUserByTokenHash(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(testPool)
	user := seedUser(t, ctx)

	live := auth.HashSessionToken("secret", uuid.NewString())
	expired := auth.HashSessionToken("secret", uuid.NewString())
	revoked := auth.HashSessionToken("secret", uuid.NewString())
	seedSession(t, ctx, user, live, time.Now().Add(time.Hour), false)
	seedSession(t, ctx, user, expired, time.Now().Add(-time.Minute), false)
	seedSession(t, ctx, user, revoked, time.Now().Add(time.Hour), true)

	got, err := repo.FindUserByTokenHash(ctx, live)
	require.NoError(t, err)
	assert.Equal(t, user, got)

	for name, hash := range map[string]string{"expired": expired, "revoked": revoked, "unknown": "nope"} {
		_, err := repo.FindUserByTokenHash(ctx, hash)
		assert.ErrorIs(t, err, apperrors.ErrAuthenticationFailed, name)
	}
}
