package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trackitco/support-dashboard/internal/core/domain"
)

const (
	testInterval = 10 * time.Millisecond
	waitFor      = 2 * time.Second
	tick         = 5 * time.Millisecond
)

var ticketRoom42 = domain.UserRoom(domain.StreamTickets, "42")

func startPoller(t *testing.T, feed Feed) (*Poller, *fakeTransport) {
	t.Helper()
	out := &fakeTransport{}
	p := NewPoller(ticketRoom42, feed, testInterval, func(e domain.Event, _ *Row) { _ = out.Send(e) }, testLogger)
	p.Start(context.Background())
	t.Cleanup(func() {
		p.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = p.Wait(ctx)
	})
	return p, out
}

// waitBaselined blocks until the first tick has completed.
func waitBaselined(t *testing.T, p *Poller) {
	t.Helper()
	require.Eventually(t, func() bool { return p.Ticks() >= 2 }, waitFor, tick)
}

func TestPoller_BaselineDoesNotReplayHistory(t *testing.T) {
	feed := &fakeFeed{}
	feed.add(ticketRowAt("a", t0), ticketRowAt("b", t0.Add(time.Second)))

	p, out := startPoller(t, feed)
	require.Eventually(t, func() bool { return p.Ticks() >= 4 }, waitFor, tick)
	assert.Empty(t, out.Events())

	feed.add(ticketRowAt("c", t0.Add(2*time.Second)))

	require.Eventually(t, func() bool { return len(out.TicketIDs()) == 1 }, waitFor, tick)
	assert.Equal(t, []string{"c"}, out.TicketIDs())
}

func TestPoller_BaselineCoversRowsSharingLatestTimestamp(t *testing.T) {
	feed := &fakeFeed{}
	feed.add(ticketRowAt("a", t0), ticketRowAt("b", t0))

	p, out := startPoller(t, feed)
	waitBaselined(t, p)

	feed.add(ticketRowAt("c", t0))

	require.Eventually(t, func() bool { return len(out.TicketIDs()) == 1 }, waitFor, tick)
	assert.Equal(t, []string{"c"}, out.TicketIDs())
}

// lateCommitFeed commits late right after the first Latest query returns,
// so the baseline's follow-up Since sees a row newer than Latest.
type lateCommitFeed struct {
	*fakeFeed
	late Row
	once sync.Once
}

func (f *lateCommitFeed) Latest(ctx context.Context) (*Row, error) {
	row, err := f.fakeFeed.Latest(ctx)
	f.once.Do(func() { f.add(f.late) })
	return row, err
}

func TestTakeBaseline_LeavesNewerRowsUnseen(t *testing.T) {
	feed := &lateCommitFeed{fakeFeed: &fakeFeed{}, late: ticketRowAt("b", t0.Add(time.Second))}
	feed.add(ticketRowAt("a", t0))

	mark, err := takeBaseline(context.Background(), feed)

	require.NoError(t, err)
	assert.True(t, mark.Cursor().Equal(t0))
	assert.Equal(t, 1, mark.SeenCount())
	assert.True(t, mark.Admit(ticketRowAt("b", t0.Add(time.Second))))
}

func TestPoller_RowCommittedDuringBaselineIsDelivered(t *testing.T) {
	feed := &lateCommitFeed{fakeFeed: &fakeFeed{}, late: ticketRowAt("b", t0.Add(time.Second))}
	feed.add(ticketRowAt("a", t0))

	p, out := startPoller(t, feed)

	require.Eventually(t, func() bool { return len(out.TicketIDs()) == 1 }, waitFor, tick)
	ticks := p.Ticks()
	require.Eventually(t, func() bool { return p.Ticks() >= ticks+3 }, waitFor, tick)
	assert.Equal(t, []string{"b"}, out.TicketIDs())
}

func TestPoller_EmptyFeedDeliversFirstRow(t *testing.T) {
	feed := &fakeFeed{}

	p, out := startPoller(t, feed)
	waitBaselined(t, p)

	feed.add(ticketRowAt("first", t0))

	require.Eventually(t, func() bool { return len(out.TicketIDs()) == 1 }, waitFor, tick)
	assert.Equal(t, []string{"first"}, out.TicketIDs())
}

func TestPoller_DeliversEachRowOnceInOrder(t *testing.T) {
	feed := &fakeFeed{}
	p, out := startPoller(t, feed)
	waitBaselined(t, p)

	feed.add(ticketRowAt("1", t0), ticketRowAt("2", t0))
	require.Eventually(t, func() bool { return len(out.TicketIDs()) == 2 }, waitFor, tick)

	feed.add(ticketRowAt("3", t0.Add(time.Second)), ticketRowAt("2", t0.Add(2*time.Second)))
	require.Eventually(t, func() bool { return len(out.TicketIDs()) == 4 }, waitFor, tick)

	ticks := p.Ticks()
	require.Eventually(t, func() bool { return p.Ticks() >= ticks+3 }, waitFor, tick)
	assert.Equal(t, []string{"1", "2", "3", "2"}, out.TicketIDs())
}

func TestPoller_FailureReportsAndRecovers(t *testing.T) {
	feed := &fakeFeed{}
	p, out := startPoller(t, feed)
	waitBaselined(t, p)

	feed.setErr(errors.New("connection reset"))
	require.Eventually(t, func() bool { return len(out.Errors()) > 0 }, waitFor, tick)
	assert.Equal(t, pollFailedMessage, out.Errors()[0])

	feed.add(ticketRowAt("during-outage", t0))
	feed.setErr(nil)

	require.Eventually(t, func() bool { return len(out.TicketIDs()) == 1 }, waitFor, tick)
	assert.Equal(t, []string{"during-outage"}, out.TicketIDs())
}

func TestPoller_BaselineRetriedAfterFailure(t *testing.T) {
	feed := &fakeFeed{}
	feed.add(ticketRowAt("history", t0))
	feed.setErr(errors.New("db down"))

	p, out := startPoller(t, feed)
	require.Eventually(t, func() bool { return len(out.Errors()) > 0 }, waitFor, tick)

	feed.setErr(nil)
	ticks := p.Ticks()
	require.Eventually(t, func() bool { return p.Ticks() >= ticks+3 }, waitFor, tick)

	assert.Empty(t, out.TicketIDs())
}

func TestPoller_TicksNeverOverlap(t *testing.T) {
	feed := &fakeFeed{delay: 30 * time.Millisecond}
	out := &fakeTransport{}
	p := NewPoller(ticketRoom42, feed, time.Millisecond, func(e domain.Event, _ *Row) { _ = out.Send(e) }, testLogger)
	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool {
		feed.mu.Lock()
		defer feed.mu.Unlock()
		return feed.sinceCalls >= 3
	}, waitFor, tick)

	assert.Equal(t, 1, feed.MaxInFlight())
}

func TestPoller_StopHaltsTicks(t *testing.T) {
	feed := &fakeFeed{}
	p, _ := startPoller(t, feed)
	waitBaselined(t, p)

	p.Stop()
	p.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Wait(ctx))

	ticks := p.Ticks()
	time.Sleep(5 * testInterval)
	assert.Equal(t, ticks, p.Ticks())
}

func TestPoller_EmitsStatusChange(t *testing.T) {
	feed := &fakeFeed{status: domain.StatusOpen}
	p, out := startPoller(t, statusFeed{feed})
	waitBaselined(t, p)

	feed.setStatus(domain.StatusPending)

	require.Eventually(t, func() bool { return len(out.OfType(domain.EventStatus)) == 1 }, waitFor, tick)
	ticks := p.Ticks()
	require.Eventually(t, func() bool { return p.Ticks() >= ticks+2 }, waitFor, tick)

	statuses := out.OfType(domain.EventStatus)
	require.Len(t, statuses, 1)
	assert.Equal(t, domain.StatusChange{Status: domain.StatusPending}, statuses[0].Data)
}

func TestPoller_WaitWithoutStart(t *testing.T) {
	p := NewPoller(ticketRoom42, &fakeFeed{}, testInterval, func(domain.Event, *Row) {}, testLogger)
	p.Stop()
	assert.NoError(t, p.Wait(context.Background()))
}
