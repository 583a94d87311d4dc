// Package sse implements the server-sent events transport for the read-only
// stream endpoints.
package sse

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/trackitco/support-dashboard/internal/core/domain"
	apperrors "github.com/trackitco/support-dashboard/internal/core/errors"
	"github.com/trackitco/support-dashboard/internal/core/realtime"
)

const (
	defaultKeepAlive = 15 * time.Second
	defaultBuffer    = 64
)

var keepAliveFrame = []byte(": keep-alive\n\n")

// Stream queues events for one SSE response. Send never blocks; Serve owns
// the response writer and drains the queue.
type Stream struct {
	send chan domain.Event

	mu     sync.RWMutex
	closed bool
}

var _ realtime.Transport = (*Stream)(nil)

// NewStream creates a stream with room for buffer queued events.
func NewStream(buffer int) *Stream {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Stream{send: make(chan domain.Event, buffer)}
}

func (s *Stream) Kind() string { return "sse" }

func (s *Stream) Send(event domain.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return apperrors.ErrTransportClosed
	}
	select {
	case s.send <- event:
		return nil
	default:
		return apperrors.ErrSendBufferFull
	}
}

// Close stops accepting events. Serve writes whatever is still queued and
// returns.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.send)
	}
	return nil
}

// Serve writes the event-stream headers and a connected event, then relays
// queued events with a keep-alive comment every keepAlive. It returns nil when
// the stream is closed or ctx ends, and the write error otherwise.
func (s *Stream) Serve(ctx context.Context, w http.ResponseWriter, keepAlive time.Duration) error {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, domain.ConnectedEvent()); err != nil {
		return err
	}
	if err := rc.Flush(); err != nil {
		return err
	}

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-s.send:
			if !ok {
				return nil
			}
			if err := writeEvent(w, event); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := w.Write(keepAliveFrame); err != nil {
				return err
			}
		}
		if err := rc.Flush(); err != nil {
			return err
		}
	}
}

// writeEvent writes one "data:" frame. Invalid events are skipped.
func writeEvent(w io.Writer, event domain.Event) error {
	data, err := event.Encode()
	if err != nil {
		return nil
	}
	frame := make([]byte, 0, len(data)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, data...)
	frame = append(frame, '\n', '\n')
	_, err = w.Write(frame)
	return err
}
