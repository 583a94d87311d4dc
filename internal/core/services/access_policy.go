package services

import (
	"context"

	"github.com/trackitco/support-dashboard/internal/core/domain"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
	"github.com/trackitco/support-dashboard/internal/core/ports"
)

// AccessPolicy grants a room to the user who owns its data, or to a support
// identity acting for that user. Closed tickets stay readable.
type AccessPolicy struct {
	tickets ports.TicketRepository
}

var _ ports.AccessPolicy = (*AccessPolicy)(nil)

func NewAccessPolicy(tickets ports.TicketRepository) *AccessPolicy {
	return &AccessPolicy{tickets: tickets}
}

// Check returns nil, ErrAccessDenied, ErrTicketNotFound, or a store error.
func (p *AccessPolicy) Check(ctx context.Context, identity domain.Identity, room domain.RoomKey) error {
	if err := room.Validate(); err != nil {
		return err
	}

	owner := room.ID
	if room.IsTicket() {
		var err error
		owner, err = p.tickets.GetOwner(ctx, room.ID)
		if err != nil {
			return err
		}
	}

	if !identity.CanActFor(owner) {
		return apperrors.ErrAccessDenied
	}
	return nil
}
