package notes

import (
	"sync"
	"time"

	"foodlog/internal/fileutil"
)

// DefaultGuardTTL bounds how long a registration waits for its watcher
// event. A write whose event never arrives stops matching after this.
const DefaultGuardTTL = 2 * time.Minute

// Guard remembers the digests of content this process wrote, so a watcher
// observing the same content can tell its own write from an external edit.
// Each registration is consumed by exactly one matching observation and
// expires after the guard's TTL.
type Guard struct {
	mu      sync.Mutex
	pending map[string][]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithGuardTTL sets how long registrations stay valid. ttl <= 0 keeps them
// until consumed.
func WithGuardTTL(ttl time.Duration) GuardOption {
	return func(g *Guard) { g.ttl = ttl }
}

// WithGuardClock overrides the clock used to stamp and expire registrations.
func WithGuardClock(now func() time.Time) GuardOption {
	return func(g *Guard) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGuard returns an empty guard.
func NewGuard(opts ...GuardOption) *Guard {
	g := &Guard{
		pending: make(map[string][]time.Time),
		ttl:     DefaultGuardTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Register records content as an in-flight program write.
func (g *Guard) Register(content string) {
	if g == nil {
		return
	}
	digest := fileutil.Digest([]byte(content))
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	g.prune(now)
	g.pending[digest] = append(g.pending[digest], now)
}

// Forget drops one registration for content, used when the write failed.
func (g *Guard) Forget(content string) {
	g.Consume(content)
}

// Consume reports whether content matches a live registration and, if so,
// removes the oldest one.
func (g *Guard) Consume(content string) bool {
	if g == nil {
		return false
	}
	digest := fileutil.Digest([]byte(content))
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune(g.now())
	stamps := g.pending[digest]
	if len(stamps) == 0 {
		return false
	}
	if len(stamps) == 1 {
		delete(g.pending, digest)
	} else {
		g.pending[digest] = stamps[1:]
	}
	return true
}

// Pending returns the number of live registrations.
func (g *Guard) Pending() int {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune(g.now())
	total := 0
	for _, stamps := range g.pending {
		total += len(stamps)
	}
	return total
}

// prune drops registrations older than the TTL. Stamps are appended in
// clock order, so each slice is trimmed from the front. Callers hold mu.
func (g *Guard) prune(now time.Time) {
	if g.ttl <= 0 {
		return
	}
	cutoff := now.Add(-g.ttl)
	for digest, stamps := range g.pending {
		keep := 0
		for keep < len(stamps) && !stamps[keep].After(cutoff) {
			keep++
		}
		switch {
		case keep == len(stamps):
			delete(g.pending, digest)
		case keep > 0:
			g.pending[digest] = stamps[keep:]
		}
	}
}
