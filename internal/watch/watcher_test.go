package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"foodlog/internal/notes"
)

type countingReconciler struct {
	calls atomic.Int32
}

func (c *countingReconciler) Reconcile(context.Context) (notes.ReconcileResult, error) {
	c.calls.Add(1)
	return notes.ReconcileResult{}, nil
}

func setup(t *testing.T) (string, *notes.Guard, *notes.Ledger) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Food Log.md")
	if err := os.WriteFile(path, []byte("# Food Log\n"), 0o644); err != nil {
		t.Fatalf("write note: %v", err)
	}
	guard := notes.NewGuard()
	return path, guard, notes.New(path, notes.WithGuard(guard))
}

func TestHandleSkipsOwnWrite(t *testing.T) {
	path, guard, l := setup(t)
	rec := &countingReconciler{}
	w := New(path, guard, rec)

	if _, err := l.Update(context.Background(), "append", func(text string) (string, error) {
		return text + "own\n", nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	w.handle(context.Background())

	if rec.calls.Load() != 0 {
		t.Fatal("expected own write to be skipped")
	}
	if passes, skips := w.Stats(); passes != 0 || skips != 1 {
		t.Fatalf("unexpected stats passes=%d skips=%d", passes, skips)
	}
	if guard.Pending() != 0 {
		t.Fatal("expected the registration to be consumed")
	}

	// The same content seen again is no longer ours.
	w.handle(context.Background())
	if rec.calls.Load() != 1 {
		t.Fatalf("expected a reconcile pass, got %d", rec.calls.Load())
	}
}

func TestHandleIgnoresMissingNote(t *testing.T) {
	rec := &countingReconciler{}
	w := New(filepath.Join(t.TempDir(), "gone.md"), notes.NewGuard(), rec)
	w.handle(context.Background())
	if rec.calls.Load() != 0 {
		t.Fatal("expected no pass for a missing note")
	}
}

func TestRunReconcilesExternalEdit(t *testing.T) {
	path, guard, _ := setup(t)
	rec := &countingReconciler{}
	w := New(path, guard, rec, WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("# Food Log\nedited by hand\n"), 0o644); err != nil {
		t.Fatalf("external write: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for rec.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if rec.calls.Load() == 0 {
		t.Fatal("expected a reconcile pass after an external edit")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
