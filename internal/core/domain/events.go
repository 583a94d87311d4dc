package domain

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
)

// EventType defines the type of real-time event.
type EventType string

const (
	EventConnected   EventType = "connected"
	EventAuth        EventType = "auth"
	EventSubscribed  EventType = "subscribed"
	EventTicket      EventType = "ticket"
	EventMessage     EventType = "message"
	EventTransaction EventType = "transaction"
	EventStatus      EventType = "status"
	EventError       EventType = "error"
	EventPing        EventType = "ping"
	EventPong        EventType = "pong"
)

// AuthResult is the payload of an auth reply.
type AuthResult struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId"`
}

// SubscribedPayload confirms which stream a connection now follows.
type SubscribedPayload struct {
	Type     StreamType `json:"type"`
	TicketID string     `json:"ticketId,omitempty"`
}

// StatusChange reports a ticket moving to a new status.
type StatusChange struct {
	Status TicketStatus `json:"status"`
}

// Event is the frame sent to clients over every transport. Build it with the
// constructors below; Encode rejects a payload that does not match its type.
type Event struct {
	Type  EventType `json:"type"`
	Data  any       `json:"data,omitempty"`
	Error string    `json:"error,omitempty"`
}

func ConnectedEvent() Event { return Event{Type: EventConnected} }

func PingEvent() Event { return Event{Type: EventPing} }

func PongEvent() Event { return Event{Type: EventPong} }

func AuthEvent(userID string) Event {
	return Event{Type: EventAuth, Data: AuthResult{Authenticated: true, UserID: userID}}
}

func SubscribedEvent(stream StreamType, ticketID string) Event {
	return Event{Type: EventSubscribed, Data: SubscribedPayload{Type: stream, TicketID: ticketID}}
}

func TicketEvent(t TicketSummary) Event {
	return Event{Type: EventTicket, Data: t}
}

func MessageEvent(m TicketMessage) Event {
	return Event{Type: EventMessage, Data: m}
}

func TransactionEvent(t Transaction) Event {
	return Event{Type: EventTransaction, Data: t.Payload()}
}

func StatusEvent(status TicketStatus) Event {
	return Event{Type: EventStatus, Data: StatusChange{Status: status}}
}

func ErrorEvent(message string) Event {
	return Event{Type: EventError, Error: message}
}

// Validate checks that the payload carried matches the event type.
func (e Event) Validate() error {
	ok := false
	switch e.Type {
	case EventConnected, EventPing, EventPong:
		ok = e.Data == nil && e.Error == ""
	case EventAuth:
		_, ok = e.Data.(AuthResult)
	case EventSubscribed:
		var p SubscribedPayload
		p, ok = e.Data.(SubscribedPayload)
		ok = ok && p.Type.IsValid()
	case EventTicket:
		var t TicketSummary
		t, ok = e.Data.(TicketSummary)
		ok = ok && t.ID != ""
	case EventMessage:
		var m TicketMessage
		m, ok = e.Data.(TicketMessage)
		ok = ok && m.ID != "" && m.TicketID != ""
	case EventTransaction:
		var t TransactionPayload
		t, ok = e.Data.(TransactionPayload)
		ok = ok && t.ID != ""
	case EventStatus:
		var s StatusChange
		s, ok = e.Data.(StatusChange)
		ok = ok && s.Status.IsValid()
	case EventError:
		ok = e.Data == nil && e.Error != ""
	}
	if !ok {
		return fmt.Errorf("%w: %q", apperrors.ErrInvalidEvent, e.Type)
	}
	return nil
}

// Encode validates the event and returns its JSON form.
func (e Event) Encode() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}
