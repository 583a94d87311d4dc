// Package realtimetest provides in-memory collaborators for exercising a
// realtime.Registry from transport tests.
package realtimetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trackitco/support-dashboard/internal/core/domain"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
	"github.com/trackitco/support-dashboard/internal/core/realtime"
)

// Authenticator resolves tokens from a fixed table. A support identity takes
// its acting user from the credential.
type Authenticator map[string]domain.Identity

func (a Authenticator) Authenticate(_ context.Context, cred domain.Credential) (domain.Identity, error) {
	identity, ok := a[cred.Token]
	if !ok {
		return domain.Identity{}, apperrors.ErrAuthenticationFailed
	}
	if identity.IsSupport {
		if cred.SupportUserID == "" {
			return domain.Identity{}, apperrors.ErrAuthenticationFailed
		}
		identity.ActingUserID = cred.SupportUserID
	}
	return identity, nil
}

// Policy grants user rooms to their owner and ticket rooms to the ticket's
// owner. Owners maps ticket id to owning user id.
type Policy struct {
	Owners map[string]string
}

func (p Policy) Check(_ context.Context, identity domain.Identity, room domain.RoomKey) error {
	owner := room.ID
	if room.IsTicket() {
		var ok bool
		if owner, ok = p.Owners[room.ID]; !ok {
			return apperrors.ErrTicketNotFound
		}
	}
	if !identity.CanActFor(owner) {
		return apperrors.ErrAccessDenied
	}
	return nil
}

// Feeds is an in-memory FeedSource. Rows must be added in timestamp order.
type Feeds struct {
	mu       sync.Mutex
	rows     map[domain.RoomKey][]realtime.Row
	polls    map[domain.RoomKey]int
	interval time.Duration
}

func NewFeeds(interval time.Duration) *Feeds {
	return &Feeds{
		rows:     make(map[domain.RoomKey][]realtime.Row),
		polls:    make(map[domain.RoomKey]int),
		interval: interval,
	}
}

// Add appends a row to the room's feed.
func (f *Feeds) Add(key domain.RoomKey, row realtime.Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[key] = append(f.rows[key], row)
}

// AddTicket appends a ticket change to the user's tickets feed.
func (f *Feeds) AddTicket(t domain.TicketSummary) {
	f.Add(domain.UserRoom(domain.StreamTickets, t.UserID), realtime.Row{
		Key:   fmt.Sprintf("%s@%d", t.ID, t.ChangedAt().UnixNano()),
		At:    t.ChangedAt(),
		Event: domain.TicketEvent(t),
	})
}

// AddMessage appends a message to its ticket's feed.
func (f *Feeds) AddMessage(m domain.TicketMessage) {
	f.Add(domain.TicketRoom(m.TicketID), realtime.Row{
		Key:   fmt.Sprintf("%s@%d", m.ID, m.CreatedAt.UnixNano()),
		At:    m.CreatedAt,
		Event: domain.MessageEvent(m),
	})
}

// Polls returns how many Since queries the room's feed has answered. Once it
// reaches two the room's poller has finished its baseline.
func (f *Feeds) Polls(key domain.RoomKey) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls[key]
}

func (f *Feeds) FeedFor(key domain.RoomKey) (realtime.Feed, time.Duration, error) {
	if err := key.Validate(); err != nil {
		return nil, 0, err
	}
	return &feed{feeds: f, key: key}, f.interval, nil
}

type feed struct {
	feeds *Feeds
	key   domain.RoomKey
}

func (d *feed) Latest(context.Context) (*realtime.Row, error) {
	d.feeds.mu.Lock()
	defer d.feeds.mu.Unlock()
	rows := d.feeds.rows[d.key]
	if len(rows) == 0 {
		return nil, nil
	}
	last := rows[len(rows)-1]
	return &last, nil
}

func (d *feed) Since(_ context.Context, cursor time.Time) ([]realtime.Row, error) {
	d.feeds.mu.Lock()
	defer d.feeds.mu.Unlock()
	d.feeds.polls[d.key]++
	var out []realtime.Row
	for _, row := range d.feeds.rows[d.key] {
		if !row.At.Before(cursor) {
			out = append(out, row)
		}
	}
	return out, nil
}
