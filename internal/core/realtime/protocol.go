package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"github.com/trackitco/support-dashboard/internal/core/domain"
)

// Inbound frame types.
const (
	FrameAuth      = "auth"
	FrameSubscribe = "subscribe"
	FramePing      = "ping"
	FramePong      = "pong"
)

const (
	invalidFormatMessage = "Invalid message format"
	unknownTypeMessage   = "Unknown message type"
)

// FlexibleID accepts an id sent either as a JSON string or a JSON number.
type FlexibleID string

func (f *FlexibleID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*f = FlexibleID(n.String())
	return nil
}

// ClientFrame is a message received from a WebSocket client.
type ClientFrame struct {
	Type          string     `json:"type"`
	Token         string     `json:"token,omitempty"`
	UserID        FlexibleID `json:"userId,omitempty"`
	SupportUserID FlexibleID `json:"supportUserId,omitempty"`
	StreamType    string     `json:"streamType,omitempty"`
	TicketID      FlexibleID `json:"ticketId,omitempty"`
}

// HandleFrame dispatches one inbound frame for connection id. It returns
// false when the connection has been closed and the reader should stop.
func (r *Registry) HandleFrame(ctx context.Context, id string, raw []byte) bool {
	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		r.sendTo(id, domain.ErrorEvent(invalidFormatMessage))
		return r.exists(id)
	}

	switch frame.Type {
	case FrameAuth:
		cred := domain.Credential{Token: frame.Token, SupportUserID: string(frame.SupportUserID)}
		if _, err := r.Authenticate(ctx, id, cred, string(frame.UserID)); err != nil {
			return r.exists(id)
		}
	case FrameSubscribe:
		sub := domain.Subscription{
			Stream:   domain.StreamType(frame.StreamType),
			TicketID: string(frame.TicketID),
		}
		_, _ = r.Subscribe(ctx, id, sub)
	case FramePing:
		r.sendTo(id, domain.PongEvent())
	case FramePong:
		// liveness only
	default:
		r.sendTo(id, domain.ErrorEvent(unknownTypeMessage))
	}
	return r.exists(id)
}
