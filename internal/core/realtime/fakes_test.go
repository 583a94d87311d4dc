package realtime

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/trackitco/support-dashboard/internal/core/domain"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func ticketRowAt(id string, at time.Time) Row {
	return ticketRow(domain.TicketSummary{ID: id, UserID: "42", Subject: "s-" + id, Status: domain.StatusOpen, CreatedAt: at, UpdatedAt: at})
}

type fakeTransport struct {
	mu       sync.Mutex
	events   []domain.Event
	closed   bool
	failSend bool
}

func (f *fakeTransport) Send(event domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return apperrors.ErrTransportClosed
	}
	if f.failSend {
		return apperrors.ErrSendBufferFull
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) Kind() string { return "test" }

func (f *fakeTransport) setFailSend(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failSend = v
}

func (f *fakeTransport) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) Events() []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Event(nil), f.events...)
}

func (f *fakeTransport) OfType(t domain.EventType) []domain.Event {
	var out []domain.Event
	for _, e := range f.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// TicketIDs returns the ids of ticket events in delivery order.
func (f *fakeTransport) TicketIDs() []string {
	var ids []string
	for _, e := range f.OfType(domain.EventTicket) {
		ids = append(ids, e.Data.(domain.TicketSummary).ID)
	}
	return ids
}

func (f *fakeTransport) Errors() []string {
	var msgs []string
	for _, e := range f.OfType(domain.EventError) {
		msgs = append(msgs, e.Error)
	}
	return msgs
}

// fakeFeed is an in-memory feed. Rows must be added in ascending order.
type fakeFeed struct {
	mu          sync.Mutex
	rows        []Row
	err         error
	delay       time.Duration
	status      domain.TicketStatus
	inFlight    int
	maxInFlight int
	sinceCalls  int
}

func (f *fakeFeed) add(rows ...Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, rows...)
}

func (f *fakeFeed) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeFeed) setStatus(s domain.TicketStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = s
}

func (f *fakeFeed) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

func (f *fakeFeed) Latest(ctx context.Context) (*Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if len(f.rows) == 0 {
		return nil, nil
	}
	latest := f.rows[len(f.rows)-1]
	return &latest, nil
}

func (f *fakeFeed) Since(ctx context.Context, cursor time.Time) ([]Row, error) {
	f.mu.Lock()
	f.sinceCalls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if f.err != nil {
		return nil, f.err
	}
	var out []Row
	for _, r := range f.rows {
		if !r.At.Before(cursor) {
			out = append(out, r)
		}
	}
	return out, nil
}

// statusFeed adds ticket status tracking to fakeFeed.
type statusFeed struct {
	*fakeFeed
}

func (f statusFeed) Status(ctx context.Context) (domain.TicketStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.status, nil
}

// fakeFeeds hands out one fakeFeed per room and counts how many were built.
type fakeFeeds struct {
	mu       sync.Mutex
	feeds    map[domain.RoomKey]*fakeFeed
	built    map[domain.RoomKey]int
	interval time.Duration
}

func newFakeFeeds(interval time.Duration) *fakeFeeds {
	return &fakeFeeds{
		feeds:    make(map[domain.RoomKey]*fakeFeed),
		built:    make(map[domain.RoomKey]int),
		interval: interval,
	}
}

func (f *fakeFeeds) feed(key domain.RoomKey) *fakeFeed {
	f.mu.Lock()
	defer f.mu.Unlock()
	feed, ok := f.feeds[key]
	if !ok {
		feed = &fakeFeed{}
		f.feeds[key] = feed
	}
	return feed
}

func (f *fakeFeeds) Built(key domain.RoomKey) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.built[key]
}

func (f *fakeFeeds) FeedFor(key domain.RoomKey) (Feed, time.Duration, error) {
	feed := f.feed(key)
	f.mu.Lock()
	f.built[key]++
	f.mu.Unlock()
	return feed, f.interval, nil
}

// fakePolicy grants rooms by owner: user rooms belong to their id and
// ticket rooms to the owner in tickets.
type fakePolicy struct {
	mu      sync.Mutex
	tickets map[string]string
	err     error
	calls   int
}

func (p *fakePolicy) setOwner(ticketID, owner string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tickets[ticketID] = owner
}

func (p *fakePolicy) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *fakePolicy) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *fakePolicy) Check(ctx context.Context, identity domain.Identity, key domain.RoomKey) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return p.err
	}
	if err := key.Validate(); err != nil {
		return err
	}
	owner := key.ID
	if key.IsTicket() {
		var ok bool
		owner, ok = p.tickets[key.ID]
		if !ok {
			return apperrors.ErrTicketNotFound
		}
	}
	if !identity.CanActFor(owner) {
		return apperrors.ErrAccessDenied
	}
	return nil
}

// tokenAuthenticator maps tokens to identities.
type tokenAuthenticator map[string]domain.Identity

func (a tokenAuthenticator) Authenticate(ctx context.Context, cred domain.Credential) (domain.Identity, error) {
	id, ok := a[cred.Token]
	if !ok {
		return domain.Identity{}, apperrors.ErrAuthenticationFailed
	}
	if id.IsSupport {
		if cred.SupportUserID == "" {
			return domain.Identity{}, apperrors.ErrAuthenticationFailed
		}
		id.ActingUserID = cred.SupportUserID
	}
	return id, nil
}
