package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackitco/support-dashboard/internal/core/domain"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
)

func TestSupportAgentRepository_GetByEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewSupportAgentRepository(testPool)

	hash, err := domain.HashPassword("hunter22")
	require.NoError(t, err)
	email := uuid.NewString() + "@trackitco.com"
	agent := &domain.SupportAgent{ID: uuid.NewString(), Email: email, FullName: "Sam Agent", HashedPassword: hash, IsActive: true}
	require.NoError(t, repo.Create(ctx, agent))

	found, err := repo.GetByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, agent.ID, found.ID)
	assert.Equal(t, "Sam Agent", found.FullName)
	assert.True(t, found.IsActive)
	assert.True(t, found.CheckPassword("hunter22"))
}

func TestSupportAgentRepository_CaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewSupportAgentRepository(testPool)
	local := uuid.NewString()
	require.NoError(t, repo.Create(ctx, &domain.SupportAgent{ID: uuid.NewString(), Email: local + "@trackitco.com", HashedPassword: "x", IsActive: false}))

	found, err := repo.GetByEmail(ctx, local+"@TrackItCo.com")
	require.NoError(t, err)
	assert.False(t, found.IsActive)

	_, err = repo.GetByEmail(ctx, "nobody@trackitco.com")
	assert.ErrorIs(t, err, apperrors.ErrSupportAgentNotFound)
}
