package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/trackitco/support-dashboard/internal/core/domain"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
	"github.com/trackitco/support-dashboard/internal/core/ports"
	"github.com/trackitco/support-dashboard/internal/infrastructure/metrics"
)

const (
	defaultCheckTimeout = 5 * time.Second
	defaultRecheckDelay = time.Second
	maxHeldEvents       = 256
)

type connection struct {
	id        string
	transport Transport
	state     State
	identity  *domain.Identity
	subject   string
	room      *room
	// mark is this member's own cursor in its room, taken from the feed
	// right after joining. Deliveries wait in early until it is set.
	mark      Watermark
	baselined bool
	early     []earlyEvent
	// verified is false until access has been re-checked after joining.
	verified bool
	// held queues events while the re-check fails transiently.
	held    []domain.Event
	recheck *time.Timer
}

type earlyEvent struct {
	event domain.Event
	row   *Row
}

type room struct {
	key     domain.RoomKey
	members map[string]*connection
	poller  *Poller
}

// Registry owns every live connection and the rooms they follow. A room
// exists exactly while it has at least one member, and each room has exactly
// one poller.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*connection
	rooms map[domain.RoomKey]*room

	authn  ports.Authenticator
	policy ports.AccessPolicy
	feeds  FeedSource
	logger *slog.Logger

	checkTimeout time.Duration
	recheckDelay time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	closed       bool
}

// NewRegistry creates an empty registry.
func NewRegistry(authn ports.Authenticator, policy ports.AccessPolicy, feeds FeedSource, logger *slog.Logger) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		conns:        make(map[string]*connection),
		rooms:        make(map[domain.RoomKey]*room),
		authn:        authn,
		policy:       policy,
		feeds:        feeds,
		logger:       logger,
		checkTimeout: defaultCheckTimeout,
		recheckDelay: defaultRecheckDelay,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Register adds a connection in the connected state. Registering an id twice
// is a no-op.
func (r *Registry) Register(id string, transport Transport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return apperrors.ErrRegistryClosed
	}
	if _, ok := r.conns[id]; ok {
		return nil
	}
	r.conns[id] = &connection{id: id, transport: transport, state: StateConnected}
	metrics.ConnectionOpened(transport.Kind())
	r.logger.Debug("connection registered", "connection_id", id, "transport", transport.Kind())
	return nil
}

// Authenticate resolves cred and binds the identity to the connection. The
// subject user is requestedUserID when given, otherwise the identity's own
// subject. On failure the client gets an error event and the connection is
// closed.
func (r *Registry) Authenticate(ctx context.Context, id string, cred domain.Credential, requestedUserID string) (domain.Identity, error) {
	if !r.exists(id) {
		return domain.Identity{}, apperrors.ErrUnknownConnection
	}

	identity, err := r.authn.Authenticate(ctx, cred)
	if err != nil {
		r.logger.Info("connection authentication failed", "connection_id", id, "error", err)
		r.sendTo(id, domain.ErrorEvent(ClientMessage(apperrors.ErrAuthenticationFailed)))
		r.Unregister(id)
		return domain.Identity{}, err
	}

	subject := requestedUserID
	if subject == "" {
		subject = identity.SubjectUserID()
	}

	r.mu.Lock()
	conn, ok := r.conns[id]
	if !ok {
		r.mu.Unlock()
		return domain.Identity{}, apperrors.ErrUnknownConnection
	}
	r.leaveLocked(conn)
	conn.identity = &identity
	conn.subject = subject
	conn.state = StateAuthenticated
	sendErr := conn.transport.Send(domain.AuthEvent(subject))
	r.mu.Unlock()

	if sendErr != nil {
		r.drop(id, sendErr)
		return domain.Identity{}, sendErr
	}
	r.logger.Debug("connection authenticated",
		"connection_id", id,
		"user_id", identity.UserID,
		"subject_user_id", subject,
		"support", identity.IsSupport,
	)
	return identity, nil
}

// Subscribe moves the connection into the room for sub. A connection follows
// at most one room; any previous room is left first. If access is refused
// the connection stays open but unsubscribed.
func (r *Registry) Subscribe(ctx context.Context, id string, sub domain.Subscription) (domain.RoomKey, error) {
	r.mu.Lock()
	conn, ok := r.conns[id]
	if !ok {
		r.mu.Unlock()
		return domain.RoomKey{}, apperrors.ErrUnknownConnection
	}
	if conn.identity == nil {
		r.mu.Unlock()
		r.sendTo(id, domain.ErrorEvent(ClientMessage(apperrors.ErrNotAuthenticated)))
		return domain.RoomKey{}, apperrors.ErrNotAuthenticated
	}
	identity := *conn.identity
	key, err := sub.Room(conn.subject)
	r.mu.Unlock()

	if err == nil {
		err = r.check(ctx, identity, key)
	}
	if err != nil {
		r.mu.Lock()
		if conn, ok := r.conns[id]; ok {
			r.leaveLocked(conn)
		}
		r.mu.Unlock()
		r.logger.Info("subscription refused", "connection_id", id, "stream", sub.Stream, "error", err)
		r.sendTo(id, domain.ErrorEvent(ClientMessage(err)))
		return domain.RoomKey{}, err
	}

	r.mu.Lock()
	conn, ok = r.conns[id]
	if !ok {
		r.mu.Unlock()
		return domain.RoomKey{}, apperrors.ErrUnknownConnection
	}
	if conn.room != nil && conn.room.key == key {
		sendErr := conn.transport.Send(domain.SubscribedEvent(sub.Stream, sub.TicketID))
		r.mu.Unlock()
		if sendErr != nil {
			r.drop(id, sendErr)
		}
		return key, sendErr
	}
	r.leaveLocked(conn)
	rm, err := r.joinLocked(conn, key)
	if err != nil {
		r.mu.Unlock()
		r.sendTo(id, domain.ErrorEvent(ClientMessage(err)))
		return domain.RoomKey{}, err
	}
	// Queued before the member can see any poller output.
	sendErr := conn.transport.Send(domain.SubscribedEvent(sub.Stream, sub.TicketID))
	r.mu.Unlock()

	if sendErr != nil {
		r.drop(id, sendErr)
		return domain.RoomKey{}, sendErr
	}
	if err := r.settle(ctx, conn, rm); err != nil {
		r.sendTo(id, domain.ErrorEvent(ClientMessage(err)))
		return domain.RoomKey{}, err
	}
	r.logger.Debug("connection subscribed", "connection_id", id, "room", key.String())
	return key, nil
}

// Attach binds an identity that the caller has already checked against key
// and joins that room. Read-only transports use it in place of the auth and
// subscribe frames, so nothing is sent to the client.
func (r *Registry) Attach(ctx context.Context, id string, identity domain.Identity, key domain.RoomKey) error {
	r.mu.Lock()
	conn, ok := r.conns[id]
	if !ok {
		r.mu.Unlock()
		return apperrors.ErrUnknownConnection
	}
	r.leaveLocked(conn)
	conn.identity = &identity
	conn.subject = identity.SubjectUserID()
	conn.state = StateAuthenticated
	rm, err := r.joinLocked(conn, key)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	if err := r.settle(ctx, conn, rm); err != nil {
		return err
	}
	r.logger.Debug("connection attached", "connection_id", id, "room", key.String(), "transport", conn.transport.Kind())
	return nil
}

// Unregister removes the connection, leaves its room, and closes its
// transport. The room's poller is stopped when the last member leaves.
// Calling it for an unknown id is a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	conn, ok := r.conns[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	r.leaveLocked(conn)
	delete(r.conns, id)
	conn.state = StateClosed
	r.mu.Unlock()

	if err := conn.transport.Close(); err != nil {
		r.logger.Debug("transport close failed", "connection_id", id, "error", err)
	}
	metrics.ConnectionClosed(conn.transport.Kind())
	r.logger.Debug("connection unregistered", "connection_id", id)
}

// Broadcast delivers event to every member of the room with that key.
func (r *Registry) Broadcast(key domain.RoomKey, event domain.Event) {
	r.mu.Lock()
	rm := r.rooms[key]
	r.mu.Unlock()
	if rm != nil {
		r.deliver(rm, event, nil)
	}
}

// Shutdown stops every poller, waits for ticks in flight, then closes all
// transports so queued frames are flushed. The registry rejects new
// connections afterwards.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	pollers := make([]*Poller, 0, len(r.rooms))
	for key, rm := range r.rooms {
		pollers = append(pollers, rm.poller)
		metrics.RoomClosed(string(key.Stream))
	}
	conns := make([]*connection, 0, len(r.conns))
	for _, c := range r.conns {
		c.state = StateClosed
		c.room = nil
		c.release()
		conns = append(conns, c)
	}
	r.rooms = make(map[domain.RoomKey]*room)
	r.conns = make(map[string]*connection)
	r.mu.Unlock()

	r.cancel()
	var waitErr error
	for _, p := range pollers {
		if err := p.Wait(ctx); err != nil {
			waitErr = err
			break
		}
	}

	for _, c := range conns {
		if err := c.transport.Close(); err != nil {
			r.logger.Debug("transport close failed", "connection_id", c.id, "error", err)
		}
		metrics.ConnectionClosed(c.transport.Kind())
	}
	r.logger.Info("realtime registry shut down", "connections", len(conns), "rooms", len(pollers))
	return waitErr
}

// deliver sends event to a snapshot of the room's members. A row event only
// reaches members whose own cursor admits it, so nobody sees rows from before
// their baseline. Members that have not been re-verified since joining are
// checked first; a refused member is dropped from the room. A member whose
// transport rejects the event is unregistered.
func (r *Registry) deliver(rm *room, event domain.Event, row *Row) {
	type target struct {
		conn     *connection
		identity domain.Identity
		verified bool
	}

	r.mu.Lock()
	targets := make([]target, 0, len(rm.members))
	for _, c := range rm.members {
		if !c.baselined {
			c.queueEarly(event, row)
			continue
		}
		if row != nil && !c.mark.Admit(*row) {
			continue
		}
		targets = append(targets, target{conn: c, identity: *c.identity, verified: c.verified})
	}
	r.mu.Unlock()

	for _, t := range targets {
		if !t.verified {
			r.verify(t.conn, t.identity, rm, &event)
			continue
		}
		if err := t.conn.transport.Send(event); err != nil {
			r.drop(t.conn.id, err)
		}
	}
}

// verify re-checks access for a member and releases its held events, plus
// event when given, once the check passes. While the check fails for any
// reason other than a refusal the events stay held and a retry is scheduled.
func (r *Registry) verify(conn *connection, identity domain.Identity, rm *room, event *domain.Event) {
	err := r.check(r.ctx, identity, rm.key)

	r.mu.Lock()
	if conn.room != rm {
		r.mu.Unlock()
		return
	}
	if event != nil {
		conn.hold(*event)
	}

	var sendErr error
	switch {
	case errors.Is(err, apperrors.ErrAccessDenied), errors.Is(err, apperrors.ErrTicketNotFound):
		r.logger.Info("access revoked before delivery", "connection_id", conn.id, "room", rm.key.String())
		r.leaveLocked(conn)
		if serr := conn.transport.Send(domain.ErrorEvent(ClientMessage(err))); serr != nil {
			r.logger.Debug("send failed", "connection_id", conn.id, "error", serr)
		}
	case err == nil || conn.verified:
		conn.verified = true
		held := conn.held
		conn.release()
		for _, e := range held {
			if sendErr = conn.transport.Send(e); sendErr != nil {
				break
			}
		}
	default:
		r.logger.Warn("access re-check failed", "connection_id", conn.id, "room", rm.key.String(), "held", len(conn.held), "error", err)
		if conn.recheck == nil {
			conn.recheck = time.AfterFunc(r.recheckDelay, func() { r.retryHeld(conn, rm) })
		}
	}
	r.mu.Unlock()

	if sendErr != nil {
		r.drop(conn.id, sendErr)
	}
}

func (r *Registry) retryHeld(conn *connection, rm *room) {
	r.mu.Lock()
	conn.recheck = nil
	if conn.room != rm || conn.verified || len(conn.held) == 0 {
		r.mu.Unlock()
		return
	}
	identity := *conn.identity
	r.mu.Unlock()

	r.verify(conn, identity, rm, nil)
}

func (c *connection) queueEarly(event domain.Event, row *Row) {
	e := earlyEvent{event: event}
	if row != nil {
		copied := *row
		e.row = &copied
	}
	c.early = append(c.early, e)
	if n := len(c.early); n > maxHeldEvents {
		c.early = append([]earlyEvent(nil), c.early[n-maxHeldEvents:]...)
	}
}

// hold queues event until the member is verified, keeping the newest events.
func (c *connection) hold(event domain.Event) {
	c.held = append(c.held, event)
	if n := len(c.held); n > maxHeldEvents {
		c.held = append([]domain.Event(nil), c.held[n-maxHeldEvents:]...)
	}
}

// release forgets queued events and cancels a pending re-check.
func (c *connection) release() {
	c.early = nil
	c.held = nil
	if c.recheck != nil {
		c.recheck.Stop()
		c.recheck = nil
	}
}

func (r *Registry) check(ctx context.Context, identity domain.Identity, key domain.RoomKey) error {
	ctx, cancel := context.WithTimeout(ctx, r.checkTimeout)
	defer cancel()
	return r.policy.Check(ctx, identity, key)
}

func (r *Registry) joinLocked(conn *connection, key domain.RoomKey) (*room, error) {
	rm, ok := r.rooms[key]
	if !ok {
		feed, interval, err := r.feeds.FeedFor(key)
		if err != nil {
			return nil, err
		}
		rm = &room{key: key, members: make(map[string]*connection)}
		rm.poller = NewPoller(key, feed, interval, func(e domain.Event, row *Row) { r.deliver(rm, e, row) }, r.logger)
		r.rooms[key] = rm
		rm.poller.Start(r.ctx)
		metrics.RoomOpened(string(key.Stream))
		r.logger.Debug("room opened", "room", key.String(), "interval", interval)
	}
	rm.members[conn.id] = conn
	conn.room = rm
	conn.mark = Watermark{}
	conn.baselined = false
	conn.verified = false
	conn.state = StateSubscribed
	return rm, nil
}

// settle takes a new member's own baseline from the room's feed. Anything
// the room emitted since the join is kept only if it is past that baseline.
// A member that cannot be baselined leaves the room.
func (r *Registry) settle(ctx context.Context, conn *connection, rm *room) error {
	qctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	mark, err := takeBaseline(qctx, rm.poller.feed)
	cancel()

	r.mu.Lock()
	if conn.room != rm {
		r.mu.Unlock()
		return nil
	}
	if err != nil {
		r.leaveLocked(conn)
		r.mu.Unlock()
		r.logger.Warn("member baseline failed", "connection_id", conn.id, "room", rm.key.String(), "error", err)
		return err
	}
	conn.mark = mark
	conn.baselined = true
	for _, e := range conn.early {
		if e.row == nil || conn.mark.Admit(*e.row) {
			conn.hold(e.event)
		}
	}
	conn.early = nil
	pending := len(conn.held) > 0
	identity := *conn.identity
	r.mu.Unlock()

	if pending {
		r.verify(conn, identity, rm, nil)
	}
	return nil
}

func (r *Registry) leaveLocked(conn *connection) {
	rm := conn.room
	if rm == nil {
		return
	}
	delete(rm.members, conn.id)
	conn.room = nil
	conn.baselined = false
	conn.verified = false
	conn.release()
	if conn.identity != nil {
		conn.state = StateAuthenticated
	}
	if len(rm.members) > 0 {
		return
	}
	if r.rooms[rm.key] == rm {
		delete(r.rooms, rm.key)
	}
	rm.poller.Stop()
	metrics.RoomClosed(string(rm.key.Stream))
	r.logger.Debug("room closed", "room", rm.key.String())
}

func (r *Registry) exists(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[id]
	return ok
}

// sendTo queues event for one connection, dropping it if the send fails.
func (r *Registry) sendTo(id string, event domain.Event) {
	r.mu.Lock()
	conn, ok := r.conns[id]
	r.mu.Unlock()
	if !ok {
		return
	}
	if err := conn.transport.Send(event); err != nil {
		r.drop(id, err)
	}
}

func (r *Registry) drop(id string, err error) {
	reason := "send_error"
	switch {
	case errors.Is(err, apperrors.ErrSendBufferFull):
		reason = "buffer_full"
	case errors.Is(err, apperrors.ErrTransportClosed):
		reason = "closed"
	}
	metrics.RecordSendFailure(reason)
	r.logger.Info("dropping connection after failed send", "connection_id", id, "reason", reason)
	r.Unregister(id)
}

// Stats is a point-in-time view of the registry.
type Stats struct {
	Connections int            `json:"connections"`
	Rooms       int            `json:"rooms"`
	ByStream    map[string]int `json:"byStream"`
}

// Stats reports connection and room counts.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Stats{Connections: len(r.conns), Rooms: len(r.rooms), ByStream: make(map[string]int)}
	for key := range r.rooms {
		s.ByStream[string(key.Stream)]++
	}
	return s
}

// Members lists the connection ids in a room.
func (r *Registry) Members(key domain.RoomKey) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[key]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(rm.members))
	for id := range rm.members {
		ids = append(ids, id)
	}
	return ids
}

// RoomOf returns the room a connection follows.
func (r *Registry) RoomOf(id string) (domain.RoomKey, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[id]
	if !ok || conn.room == nil {
		return domain.RoomKey{}, false
	}
	return conn.room.key, true
}

// StateOf returns a connection's lifecycle state; unknown ids are closed.
func (r *Registry) StateOf(id string) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[id]
	if !ok {
		return StateClosed
	}
	return conn.state
}

// poller returns the poller of a room, for tests.
func (r *Registry) poller(key domain.RoomKey) *Poller {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rm, ok := r.rooms[key]; ok {
		return rm.poller
	}
	return nil
}

// ClientMessage maps an error to the text sent to clients in error events.
func ClientMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrAuthenticationFailed):
		return "Authentication failed"
	case errors.Is(err, apperrors.ErrNotAuthenticated):
		return "Not authenticated"
	case errors.Is(err, apperrors.ErrTicketNotFound):
		return "Ticket not found"
	case errors.Is(err, apperrors.ErrAccessDenied):
		return "Access denied"
	case errors.Is(err, apperrors.ErrInvalidStreamType):
		return "Invalid stream type"
	case errors.Is(err, apperrors.ErrTicketIDRequired):
		return "Ticket ID required"
	case errors.Is(err, apperrors.ErrUserIDRequired):
		return "User ID required"
	default:
		return "Subscription failed"
	}
}
