package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
)

// MaxMessageLength bounds the content of a single ticket message.
const MaxMessageLength = 5000

// TicketStatus represents the possible states of a ticket.
type TicketStatus string

const (
	StatusOpen    TicketStatus = "open"
	StatusPending TicketStatus = "pending"
	StatusClosed  TicketStatus = "closed"
)

// IsValid checks if the status is a known ticket state.
func (s TicketStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusPending, StatusClosed:
		return true
	}
	return false
}

// SenderType tells who wrote a ticket message.
type SenderType string

const (
	SenderUser    SenderType = "user"
	SenderSupport SenderType = "support"
)

func (s SenderType) IsValid() bool {
	return s == SenderUser || s == SenderSupport
}

// TicketSummary is the denormalized ticket row pushed on the tickets stream.
type TicketSummary struct {
	ID        string       `json:"id"`
	UserID    string       `json:"-"`
	Subject   string       `json:"subject"`
	Status    TicketStatus `json:"status"`
	Priority  *string      `json:"priority,omitempty"`
	UpdatedAt time.Time    `json:"updatedAt"`
	CreatedAt time.Time    `json:"createdAt"`
}

// ChangedAt is the later of the creation and update times.
func (t TicketSummary) ChangedAt() time.Time {
	if t.UpdatedAt.After(t.CreatedAt) {
		return t.UpdatedAt
	}
	return t.CreatedAt
}

// TicketMessage is one entry in a ticket's conversation.
type TicketMessage struct {
	ID         string     `json:"id"`
	TicketID   string     `json:"ticket_id"`
	UserID     *string    `json:"user_id"`
	SenderType SenderType `json:"sender_type"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewTicketMessage validates and builds a message ready to be stored.
func NewTicketMessage(ticketID string, userID *string, sender SenderType, content string) (*TicketMessage, error) {
	if ticketID == "" {
		return nil, apperrors.ErrTicketIDRequired
	}
	if !sender.IsValid() {
		return nil, apperrors.ErrInvalidSenderType
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.ErrMessageBodyRequired
	}
	if utf8.RuneCountInString(content) > MaxMessageLength {
		return nil, apperrors.ErrMessageBodyTooLong
	}

	return &TicketMessage{
		TicketID:   ticketID,
		UserID:     userID,
		SenderType: sender,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// CanPost checks whether a sender may add a message to a ticket in status.
// Closed tickets accept nothing; users may only write to open tickets.
func CanPost(status TicketStatus, sender SenderType) error {
	if status == StatusClosed {
		return apperrors.ErrTicketClosed
	}
	if sender != SenderSupport && status != StatusOpen {
		return apperrors.ErrTicketNotOpen
	}
	return nil
}

// StatusAfterReply returns the status a ticket moves to after a message from
// sender. A support reply reopens a pending ticket.
func StatusAfterReply(status TicketStatus, sender SenderType) TicketStatus {
	if sender == SenderSupport && status == StatusPending {
		return StatusOpen
	}
	return status
}
