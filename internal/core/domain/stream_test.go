package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackitco/support-dashboard/internal/core/domain"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
)

func TestRoomKey_UserStreamsAreDistinct(t *testing.T) {
	tickets := domain.UserRoom(domain.StreamTickets, "42")
	transactions := domain.UserRoom(domain.StreamTransactions, "42")

	assert.NotEqual(t, tickets, transactions)
	assert.Equal(t, "user:42/tickets", tickets.String())
	assert.Equal(t, "user:42/transactions", transactions.String())
	assert.Equal(t, "ticket:7", domain.TicketRoom("7").String())
}

func TestSubscription_Room(t *testing.T) {
	tests := []struct {
		name    string
		sub     domain.Subscription
		subject string
		want    domain.RoomKey
		wantErr error
	}{
		{"tickets list", domain.Subscription{Stream: domain.StreamTickets}, "42", domain.UserRoom(domain.StreamTickets, "42"), nil},
		{"ticket messages ignore subject", domain.Subscription{Stream: domain.StreamTicketMessages, TicketID: "7"}, "42", domain.TicketRoom("7"), nil},
		{"ticket messages need ticket id", domain.Subscription{Stream: domain.StreamTicketMessages}, "42", domain.RoomKey{}, apperrors.ErrTicketIDRequired},
		{"user stream needs subject", domain.Subscription{Stream: domain.StreamTransactions}, "", domain.RoomKey{}, apperrors.ErrUserIDRequired},
		{"unknown stream", domain.Subscription{Stream: "alerts"}, "42", domain.RoomKey{}, apperrors.ErrInvalidStreamType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.sub.Room(tt.subject)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIdentity_CanActFor(t *testing.T) {
	user := domain.Identity{UserID: "42"}
	support := domain.Identity{UserID: "agent-1", IsSupport: true, ActingUserID: "42"}

	assert.True(t, user.CanActFor("42"))
	assert.False(t, user.CanActFor("43"))
	assert.False(t, user.CanActFor(""))

	assert.True(t, support.CanActFor("42"))
	assert.False(t, support.CanActFor("agent-1"))
	assert.Equal(t, "42", support.SubjectUserID())
	assert.Equal(t, "42", user.SubjectUserID())
}

func TestSupportAgent_CheckPassword(t *testing.T) {
	hash, err := domain.HashPassword("Password1")
	require.NoError(t, err)
	assert.NotEqual(t, "Password1", hash)

	agent := &domain.SupportAgent{ID: "agent-1", HashedPassword: hash}
	assert.True(t, agent.CheckPassword("Password1"))
	assert.False(t, agent.CheckPassword("Password2"))
	assert.False(t, agent.CheckPassword(""))

	_, err = domain.HashPassword("")
	assert.ErrorIs(t, err, apperrors.ErrPasswordRequired)
	assert.Equal(t, "agent@trackitco.com", domain.NormalizeEmail("  Agent@TrackItCo.com "))
}

func TestRoomForChannel(t *testing.T) {
	room, err := domain.RoomForChannel(domain.TicketChannel("7"))
	require.NoError(t, err)
	assert.Equal(t, domain.TicketRoom("7"), room)

	room, err = domain.RoomForChannel(domain.UserChannel("42"))
	require.NoError(t, err)
	assert.Equal(t, "42", room.ID)
	assert.False(t, room.IsTicket())

	for _, bad := range []string{"presence-user-42", "private-ticket-", "private-user-", "public"} {
		_, err := domain.RoomForChannel(bad)
		assert.ErrorIs(t, err, apperrors.ErrInvalidChannelName, bad)
	}
}
