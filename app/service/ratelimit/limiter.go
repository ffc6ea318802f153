package ratelimit

import (
	"sync"
	"time"

	"github.com/elliotchance/pie/v2"
)

const (
	DefaultWindow      = time.Minute
	DefaultMaxMessages = 10
)

// Limiter is a per-session sliding-window counter gating outbound messages.
// On rejection the session is blocked for one full window measured from the
// rejection instant, not from the oldest timestamp. That is deliberately
// simpler than exact sliding-window semantics and more predictable for users.
type Limiter struct {
	mu sync.Mutex

	window time.Duration
	limit  int
	now    func() time.Time

	stamps       []time.Time
	blocked      bool
	blockedUntil time.Time
	unblock      *time.Timer
}

func New(window time.Duration, limit int) *Limiter {
	return &Limiter{
		window: window,
		limit:  limit,
		now:    time.Now,
	}
}

// NewWithClock injects a clock for tests.
func NewWithClock(window time.Duration, limit int, now func() time.Time) *Limiter {
	l := New(window, limit)
	l.now = now

	return l
}

// TryAdmit records and admits the request unless the window is exhausted.
func (l *Limiter) TryAdmit() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if l.blocked && !now.Before(l.blockedUntil) {
		l.blocked = false
	}

	cutoff := now.Add(-l.window)
	l.stamps = pie.Filter(l.stamps, func(t time.Time) bool {
		return t.After(cutoff)
	})

	if l.blocked {
		return false
	}

	if len(l.stamps) >= l.limit {
		l.blocked = true
		l.blockedUntil = now.Add(l.window)

		if l.unblock != nil {
			l.unblock.Stop()
		}
		// timer re-enables sending without waiting for the next attempt
		l.unblock = time.AfterFunc(l.window, l.clearBlocked)

		return false
	}

	l.stamps = append(l.stamps, now)

	return true
}

func (l *Limiter) clearBlocked() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.blocked = false
}

// Blocked reports whether sending is currently disabled.
func (l *Limiter) Blocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.blocked && !l.now().Before(l.blockedUntil) {
		l.blocked = false
	}

	return l.blocked
}

// Close cancels the pending unblock timer on session teardown.
func (l *Limiter) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.unblock != nil {
		l.unblock.Stop()
		l.unblock = nil
	}

	return nil
}
