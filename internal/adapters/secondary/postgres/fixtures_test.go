package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/trackitco/support-dashboard/internal/core/domain"
)

// baseTime is truncated to the precision Postgres stores.
func baseTime() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond).Add(-time.Hour)
}

func seedUser(t *testing.T, ctx context.Context) string {
	t.Helper()
	require.NotNil(t, testPool, "testPool is nil. TestMain may not have run.")
	id := uuid.NewString()
	_, err := testPool.Exec(ctx, `INSERT INTO users (id, email, full_name) VALUES ($1, $2, 'Test User')`, id, id+"@example.com")
	require.NoError(t, err)
	return id
}

func seedTicket(t *testing.T, ctx context.Context, userID string, status domain.TicketStatus, createdAt, updatedAt time.Time) string {
	t.Helper()
	id := uuid.NewString()
	_, err := testPool.Exec(ctx, `
		INSERT INTO tickets (id, user_id, subject, status, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'high', $5, $6)
	`, id, userID, "Card declined", string(status), createdAt, updatedAt)
	require.NoError(t, err)
	return id
}

func seedMessage(t *testing.T, ctx context.Context, ticketID string, userID *string, sender domain.SenderType, createdAt time.Time) string {
	t.Helper()
	id := uuid.NewString()
	_, err := testPool.Exec(ctx, `
		INSERT INTO ticket_messages (id, ticket_id, user_id, sender_type, content, created_at)
		VALUES ($1, $2, $3, $4, 'hello', $5)
	`, id, ticketID, userID, string(sender), createdAt)
	require.NoError(t, err)
	return id
}

func seedCard(t *testing.T, ctx context.Context, userID string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := testPool.Exec(ctx, `INSERT INTO cards (id, user_id, name, last4) VALUES ($1, $2, 'Everyday', '4242')`, id, userID)
	require.NoError(t, err)
	return id
}

func seedCategory(t *testing.T, ctx context.Context, userID, name, color string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := testPool.Exec(ctx, `INSERT INTO categories (id, user_id, name, color) VALUES ($1, $2, $3, $4)`, id, userID, name, color)
	require.NoError(t, err)
	return id
}

func seedTransaction(t *testing.T, ctx context.Context, userID, cardID string, categoryID *string, amount float64, createdAt time.Time) string {
	t.Helper()
	id := uuid.NewString()
	_, err := testPool.Exec(ctx, `
		INSERT INTO transactions (id, user_id, card_id, amount, category_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, userID, cardID, amount, categoryID, createdAt)
	require.NoError(t, err)
	return id
}
