package notes_test

import (
	"testing"
	"time"

	"foodlog/internal/notes"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestGuardRegistrationsExpire(t *testing.T) {
	clock := &stepClock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	guard := notes.NewGuard(notes.WithGuardTTL(time.Minute), notes.WithGuardClock(clock.Now))

	guard.Register("old write")
	clock.Advance(40 * time.Second)
	guard.Register("fresh write")
	if got := guard.Pending(); got != 2 {
		t.Fatalf("expected 2 pending registrations, got %d", got)
	}

	clock.Advance(30 * time.Second)
	if guard.Consume("old write") {
		t.Fatal("expected expired registration not to match")
	}
	if got := guard.Pending(); got != 1 {
		t.Fatalf("expected expired registration to be pruned, got %d pending", got)
	}
	if !guard.Consume("fresh write") {
		t.Fatal("expected live registration to match")
	}
	if got := guard.Pending(); got != 0 {
		t.Fatalf("expected no pending registrations, got %d", got)
	}
}

func TestGuardPrunesOnRegister(t *testing.T) {
	clock := &stepClock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	guard := notes.NewGuard(notes.WithGuardTTL(time.Minute), notes.WithGuardClock(clock.Now))

	guard.Register("same")
	clock.Advance(2 * time.Minute)
	guard.Register("same")
	if !guard.Consume("same") {
		t.Fatal("expected the newer registration to match")
	}
	if guard.Consume("same") {
		t.Fatal("expected the expired duplicate to be gone")
	}
}

func TestGuardWithoutTTLKeepsRegistrations(t *testing.T) {
	clock := &stepClock{now: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
	guard := notes.NewGuard(notes.WithGuardTTL(0), notes.WithGuardClock(clock.Now))

	guard.Register("kept")
	clock.Advance(24 * time.Hour)
	if !guard.Consume("kept") {
		t.Fatal("expected registration to survive without a TTL")
	}
}

func TestNilGuardIsInert(t *testing.T) {
	var guard *notes.Guard
	guard.Register("x")
	if guard.Consume("x") || guard.Pending() != 0 {
		t.Fatal("expected nil guard to match nothing")
	}
}
