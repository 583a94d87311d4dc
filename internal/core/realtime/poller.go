package realtime

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trackitco/support-dashboard/internal/core/domain"
	"github.com/trackitco/support-dashboard/internal/infrastructure/metrics"
	"github.com/trackitco/support-dashboard/internal/infrastructure/tracing"
)

const (
	defaultQueryTimeout = 10 * time.Second

	pollFailedMessage = "Polling failed"
)

// Feed is the store query behind one room.
type Feed interface {
	// Latest returns the newest row, or nil when the feed is empty.
	Latest(ctx context.Context) (*Row, error)
	// Since returns rows at or after cursor in ascending order.
	Since(ctx context.Context, cursor time.Time) ([]Row, error)
}

// StatusFeed is implemented by feeds that also track a ticket status. A
// change between two ticks is emitted as a status event.
type StatusFeed interface {
	Status(ctx context.Context) (domain.TicketStatus, error)
}

// Poller reads one room's feed on a fixed interval. The first tick runs
// immediately and only records the baseline; later ticks emit every row
// past the watermark. The next tick is scheduled only after the current one
// finishes, so ticks never overlap.
type Poller struct {
	room         domain.RoomKey
	feed         Feed
	interval     time.Duration
	queryTimeout time.Duration
	emit         func(domain.Event, *Row)
	logger       *slog.Logger

	// owned by the run goroutine
	mark       Watermark
	lastStatus domain.TicketStatus

	ticks    atomic.Int64
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewPoller creates a stopped poller. emit receives every event in order,
// along with the row it came from; status and error events carry a nil row.
func NewPoller(room domain.RoomKey, feed Feed, interval time.Duration, emit func(domain.Event, *Row), logger *slog.Logger) *Poller {
	return &Poller{
		room:         room,
		feed:         feed,
		interval:     interval,
		queryTimeout: defaultQueryTimeout,
		emit:         emit,
		logger:       logger.With("room", room.String()),
		done:         make(chan struct{}),
	}
}

// Start launches the polling goroutine. It must be called at most once.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx)
}

// Stop halts the poller without waiting. A tick in progress finishes its
// query but emits nothing further. Safe to call from inside emit.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
	})
}

// Wait blocks until the polling goroutine has exited or ctx is done.
func (p *Poller) Wait(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ticks returns how many ticks have started.
func (p *Poller) Ticks() int64 {
	return p.ticks.Load()
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		p.tick(ctx)

		if ctx.Err() != nil {
			return
		}
		timer.Reset(p.interval)
	}
}

func (p *Poller) tick(ctx context.Context) {
	p.ticks.Add(1)
	start := time.Now()
	stream := string(p.room.Stream)

	spanCtx, span := tracing.StartPollSpan(ctx, p.room.String(), stream, !p.mark.Baselined())
	emitted, err := p.poll(spanCtx)
	tracing.EndPollSpan(span, emitted, err)
	metrics.RecordPollTick(stream, time.Since(start), err)

	if err == nil || ctx.Err() != nil {
		return
	}
	p.logger.Warn("poll failed", "error", err)
	p.emit(domain.ErrorEvent(pollFailedMessage), nil)
}

func (p *Poller) poll(ctx context.Context) (int, error) {
	qctx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	emitted := 0

	if sf, ok := p.feed.(StatusFeed); ok {
		status, err := sf.Status(qctx)
		if err != nil {
			return 0, err
		}
		if p.lastStatus != "" && status != p.lastStatus && ctx.Err() == nil {
			p.send(domain.StatusEvent(status), nil)
			emitted++
		}
		p.lastStatus = status
	}

	if !p.mark.Baselined() {
		return emitted, p.baseline(qctx)
	}

	rows, err := p.feed.Since(qctx, p.mark.Cursor())
	if err != nil {
		return emitted, err
	}
	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		if !p.mark.Admit(row) {
			continue
		}
		p.send(row.Event, &row)
		emitted++
	}
	return emitted, nil
}

func (p *Poller) baseline(ctx context.Context) error {
	mark, err := takeBaseline(ctx, p.feed)
	if err != nil {
		return err
	}
	p.mark = mark
	p.logger.Debug("baseline set", "cursor", p.mark.Cursor())
	return nil
}

// takeBaseline marks everything already in feed as seen. Every row sharing
// the latest timestamp is marked so none of them leak out later; rows past it
// committed after the Latest query stay unseen.
func takeBaseline(ctx context.Context, feed Feed) (Watermark, error) {
	var mark Watermark
	latest, err := feed.Latest(ctx)
	if err != nil {
		return mark, err
	}
	if latest == nil {
		mark.Baseline(time.Time{})
		return mark, nil
	}

	rows, err := feed.Since(ctx, latest.At)
	if err != nil {
		return mark, err
	}
	mark.Baseline(latest.At)
	mark.Admit(*latest)
	for _, row := range rows {
		if row.At.Equal(latest.At) {
			mark.Admit(row)
		}
	}
	return mark, nil
}

func (p *Poller) send(event domain.Event, row *Row) {
	metrics.RecordEmitted(string(p.room.Stream), string(event.Type))
	p.emit(event, row)
}
