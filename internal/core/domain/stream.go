package domain

import (
	"strings"

	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
)

// StreamType selects which feed a subscription follows.
type StreamType string

const (
	StreamTickets        StreamType = "tickets"
	StreamTicketMessages StreamType = "ticket-messages"
	StreamTransactions   StreamType = "transactions"
)

// IsValid checks if the stream type is one of the known feeds.
func (s StreamType) IsValid() bool {
	switch s {
	case StreamTickets, StreamTicketMessages, StreamTransactions:
		return true
	}
	return false
}

// RoomKey identifies a delivery scope. Ticket-message rooms are keyed by
// ticket id; the user-scoped streams are keyed by user id and kept apart per
// stream type so ticket updates never reach a transactions subscriber.
type RoomKey struct {
	Stream StreamType
	ID     string
}

// UserRoom returns the room for a user-scoped stream.
func UserRoom(stream StreamType, userID string) RoomKey {
	return RoomKey{Stream: stream, ID: userID}
}

// TicketRoom returns the message room for a ticket.
func TicketRoom(ticketID string) RoomKey {
	return RoomKey{Stream: StreamTicketMessages, ID: ticketID}
}

// IsTicket reports whether the room is scoped to a single ticket.
func (k RoomKey) IsTicket() bool {
	return k.Stream == StreamTicketMessages
}

func (k RoomKey) String() string {
	if k.IsTicket() {
		return "ticket:" + k.ID
	}
	return "user:" + k.ID + "/" + string(k.Stream)
}

// Validate checks the key names a known stream and a non-empty scope id.
func (k RoomKey) Validate() error {
	if !k.Stream.IsValid() {
		return apperrors.ErrInvalidStreamType
	}
	if k.ID == "" {
		if k.IsTicket() {
			return apperrors.ErrTicketIDRequired
		}
		return apperrors.ErrUserIDRequired
	}
	return nil
}

// Subscription is a client's request to follow a stream.
type Subscription struct {
	Stream   StreamType
	TicketID string
}

// Room resolves the subscription to a room for the given subject user.
func (s Subscription) Room(subjectUserID string) (RoomKey, error) {
	var key RoomKey
	if s.Stream == StreamTicketMessages {
		key = TicketRoom(s.TicketID)
	} else {
		key = UserRoom(s.Stream, subjectUserID)
	}
	if err := key.Validate(); err != nil {
		return RoomKey{}, err
	}
	return key, nil
}

const (
	userChannelPrefix   = "private-user-"
	ticketChannelPrefix = "private-ticket-"
)

// UserChannel names the private push channel for a user's updates.
func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

// TicketChannel names the private push channel for a ticket conversation.
func TicketChannel(ticketID string) string {
	return ticketChannelPrefix + ticketID
}

// RoomForChannel maps a private push channel back to the room whose access
// rules govern it. User channels map to the tickets stream; access to user
// rooms does not depend on the stream type.
func RoomForChannel(channel string) (RoomKey, error) {
	var key RoomKey
	switch {
	case strings.HasPrefix(channel, ticketChannelPrefix):
		key = TicketRoom(strings.TrimPrefix(channel, ticketChannelPrefix))
	case strings.HasPrefix(channel, userChannelPrefix):
		key = UserRoom(StreamTickets, strings.TrimPrefix(channel, userChannelPrefix))
	default:
		return RoomKey{}, apperrors.ErrInvalidChannelName
	}
	if key.ID == "" {
		return RoomKey{}, apperrors.ErrInvalidChannelName
	}
	return key, nil
}
