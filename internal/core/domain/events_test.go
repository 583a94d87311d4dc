package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackitco/support-dashboard/internal/core/domain"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
)

func TestEvent_EncodeWireShape(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		event domain.Event
		want  string
	}{
		{"ping", domain.PingEvent(), `{"type":"ping"}`},
		{"connected", domain.ConnectedEvent(), `{"type":"connected"}`},
		{"error", domain.ErrorEvent("Access denied"), `{"type":"error","error":"Access denied"}`},
		{"auth", domain.AuthEvent("42"), `{"type":"auth","data":{"authenticated":true,"userId":"42"}}`},
		{"subscribed to user stream", domain.SubscribedEvent(domain.StreamTransactions, ""), `{"type":"subscribed","data":{"type":"transactions"}}`},
		{"subscribed to ticket", domain.SubscribedEvent(domain.StreamTicketMessages, "7"), `{"type":"subscribed","data":{"type":"ticket-messages","ticketId":"7"}}`},
		{"status", domain.StatusEvent(domain.StatusClosed), `{"type":"status","data":{"status":"closed"}}`},
		{
			"transaction",
			domain.TransactionEvent(domain.Transaction{ID: "t1", Amount: -12.5, CreatedAt: at}),
			`{"type":"transaction","data":{"id":"t1","title":"Transaction","amount":-12.5,"date":"2026-03-01T12:00:00Z","type":"debit"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.event.Encode()
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}

func TestEvent_MessagePayloadUsesSnakeCase(t *testing.T) {
	userID := "42"
	msg := domain.TicketMessage{
		ID:         "m1",
		TicketID:   "7",
		UserID:     &userID,
		SenderType: domain.SenderUser,
		Content:    "hello",
		CreatedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	raw, err := domain.MessageEvent(msg).Encode()
	require.NoError(t, err)

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "7", decoded["data"]["ticket_id"])
	assert.Equal(t, "user", decoded["data"]["sender_type"])
	assert.Equal(t, "42", decoded["data"]["user_id"])
}

func TestEvent_ValidateRejectsMismatchedPayload(t *testing.T) {
	tests := []struct {
		name  string
		event domain.Event
	}{
		{"ticket with transaction payload", domain.Event{Type: domain.EventTicket, Data: domain.TransactionPayload{ID: "x"}}},
		{"ticket without id", domain.TicketEvent(domain.TicketSummary{})},
		{"status with unknown value", domain.StatusEvent("archived")},
		{"error without message", domain.Event{Type: domain.EventError}},
		{"ping with payload", domain.Event{Type: domain.EventPing, Data: "x"}},
		{"unknown type", domain.Event{Type: "shout"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.event.Encode()
			assert.ErrorIs(t, err, apperrors.ErrInvalidEvent)
		})
	}
}
