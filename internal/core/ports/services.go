package ports

import (
	"context"
	"time"

	"github.com/trackitco/support-dashboard/internal/core/domain"
)

// Authenticator turns a credential into an identity.
// Any failure is reported as ErrAuthenticationFailed.
type Authenticator interface {
	Authenticate(ctx context.Context, cred domain.Credential) (domain.Identity, error)
}

// AccessPolicy decides whether an identity may follow a room.
type AccessPolicy interface {
	Check(ctx context.Context, identity domain.Identity, room domain.RoomKey) error
}

// Publisher pushes an event to a named channel on an external push service.
type Publisher interface {
	Publish(ctx context.Context, channel string, event domain.Event) error
}

// ChannelAuthorizer signs subscription requests for private push channels.
type ChannelAuthorizer interface {
	AuthorizeChannel(params []byte) ([]byte, error)
}

// SupportToken is an issued support credential.
type SupportToken struct {
	Token     string
	ExpiresAt time.Time
	Agent     *domain.SupportAgent
}

// SupportAuthService logs support agents in.
type SupportAuthService interface {
	Login(ctx context.Context, email, password string) (*SupportToken, error)
}

// PostMessageParams is the input for adding a message to a ticket.
type PostMessageParams struct {
	TicketID   string
	Identity   domain.Identity
	SenderType domain.SenderType
	Content    string
}

// MessageService reads and writes ticket conversations.
type MessageService interface {
	List(ctx context.Context, identity domain.Identity, ticketID string) ([]domain.TicketMessage, error)
	Post(ctx context.Context, params PostMessageParams) (*domain.TicketMessage, error)
}
