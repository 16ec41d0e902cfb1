package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// recentCapacity is how many WARN/ERROR entries are kept for the status bar.
const recentCapacity = 100

// Entry is a captured WARN or ERROR record.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   []slog.Attr
}

// String renders the entry on a single line.
func (e Entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s %s", e.Time.Format("15:04:05"), e.Level.String(), e.Message)
	for _, a := range e.Attrs {
		fmt.Fprintf(&b, " %s=%v", a.Key, a.Value.Any())
	}
	return b.String()
}

// recentLog keeps the newest entries in a fixed ring and counts every
// warning and error seen since the last reset.
type recentLog struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
	warns   int
	errors  int
}

func newRecentLog(size int) *recentLog {
	return &recentLog{entries: make([]Entry, size)}
}

func (l *recentLog) add(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.next] = e
	l.next++
	if l.next == len(l.entries) {
		l.next = 0
		l.full = true
	}

	switch {
	case e.Level >= slog.LevelError:
		l.errors++
	case e.Level >= slog.LevelWarn:
		l.warns++
	}
}

// snapshot returns the retained entries oldest first.
func (l *recentLog) snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.full {
		out := make([]Entry, l.next)
		copy(out, l.entries[:l.next])
		return out
	}
	out := make([]Entry, 0, len(l.entries))
	out = append(out, l.entries[l.next:]...)
	return append(out, l.entries[:l.next]...)
}

func (l *recentLog) counts() (warn, err int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.warns, l.errors
}

func (l *recentLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns, l.errors = 0, 0
}

// captureHandler forwards to inner and copies WARN and above into recent.
type captureHandler struct {
	inner  slog.Handler
	recent *recentLog
	attrs  []slog.Attr
}

func (h *captureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *captureHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
		attrs = append(attrs, h.attrs...)
		r.Attrs(func(a slog.Attr) bool {
			attrs = append(attrs, a)
			return true
		})
		h.recent.add(Entry{
			Time:    r.Time,
			Level:   r.Level,
			Message: r.Message,
			Attrs:   attrs,
		})
	}
	return h.inner.Handle(ctx, r)
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &captureHandler{
		inner:  h.inner.WithAttrs(attrs),
		recent: h.recent,
		attrs:  merged,
	}
}

func (h *captureHandler) WithGroup(name string) slog.Handler {
	return &captureHandler{
		inner:  h.inner.WithGroup(name),
		recent: h.recent,
		attrs:  h.attrs,
	}
}
