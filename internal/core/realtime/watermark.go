package realtime

import (
	"time"

	"github.com/trackitco/support-dashboard/internal/core/domain"
)

// Row is one feed result ready to be emitted. Key identifies the row version;
// two rows with the same key are the same change.
type Row struct {
	Key   string
	At    time.Time
	Event domain.Event
}

// Watermark is a room's delivery cursor: the newest timestamp emitted plus the
// keys already emitted at exactly that timestamp. Feeds are queried with
// "at or after cursor", so rows sharing the cursor timestamp are caught and
// the seen set drops them. The set is cleared whenever the cursor advances,
// so it only ever holds keys at one timestamp.
type Watermark struct {
	cursor    time.Time
	baselined bool
	seen      map[string]struct{}
}

// Baselined reports whether the baseline pass has run.
func (w *Watermark) Baselined() bool {
	return w.baselined
}

// Cursor returns the newest emitted timestamp.
func (w *Watermark) Cursor() time.Time {
	return w.cursor
}

// Baseline marks the cursor at at without emitting anything. A zero at means
// the feed was empty and every future row is new.
func (w *Watermark) Baseline(at time.Time) {
	w.cursor = at
	w.baselined = true
	w.seen = make(map[string]struct{})
}

// Admit records row and reports whether it is new. Rows older than the cursor
// or already seen are rejected. The cursor never moves backward.
func (w *Watermark) Admit(row Row) bool {
	if row.At.Before(w.cursor) {
		return false
	}
	if _, dup := w.seen[row.Key]; dup {
		return false
	}
	if row.At.After(w.cursor) {
		w.cursor = row.At
		clear(w.seen)
	}
	w.seen[row.Key] = struct{}{}
	return true
}

// SeenCount is the size of the dedupe set.
func (w *Watermark) SeenCount() int {
	return len(w.seen)
}
