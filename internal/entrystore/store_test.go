package entrystore_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"foodlog/internal/entrystore"
	"foodlog/internal/ledger"
	"foodlog/internal/macros"
	"foodlog/internal/testsupport"
)

var day = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func meal(id string, at time.Time, kcal *float64) entrystore.Entry {
	return entrystore.Entry{
		Meal: ledger.MealEntry{
			ID:           id,
			Timestamp:    at,
			Item:         "meal " + id,
			PortionGrams: macros.Float(150),
			Per100g:      macros.Set{Calories: kcal, Proteins: macros.Float(12)},
		},
	}
}

func TestAppendRoundTripsMeal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	totals := macros.Set{Calories: macros.Float(570), Fats: macros.Float(12.75)}
	in := meal("MID-a", day, macros.Float(380))
	in.Meal.PortionTotals = &totals
	in.Meal.Comment = "with milk"
	in.Payload = json.RawMessage(`{"item":"Oats"}`)
	if err := store.Append(ctx, in); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := store.Get(ctx, "MID-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Seq == 0 || got.RecordedAt.IsZero() {
		t.Fatalf("expected seq and recorded_at, got %+v", got)
	}
	if !got.Meal.Timestamp.Equal(day) || got.Meal.Item != "meal MID-a" || got.Meal.Comment != "with milk" {
		t.Fatalf("unexpected meal %+v", got.Meal)
	}
	if !reflect.DeepEqual(got.Meal.Per100g, in.Meal.Per100g) || !reflect.DeepEqual(got.Meal.PortionTotals, in.Meal.PortionTotals) {
		t.Fatalf("macros did not round trip: %+v", got.Meal)
	}
	if string(got.Payload) != `{"item":"Oats"}` {
		t.Fatalf("unexpected payload %s", got.Payload)
	}

	if _, err := store.Get(ctx, "MID-missing"); !errors.Is(err, entrystore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendEvictsOldestBeyondCapacity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	entries := make([]entrystore.Entry, 0, entrystore.DefaultCapacity+1)
	for i := 0; i <= entrystore.DefaultCapacity; i++ {
		entries = append(entries, meal(fmt.Sprintf("MID-%d", i), day.Add(time.Duration(i)*time.Minute), macros.Float(100)))
	}
	if err := store.Append(ctx, entries...); err != nil {
		t.Fatalf("Append: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != entrystore.DefaultCapacity {
		t.Fatalf("expected %d entries, got %d", entrystore.DefaultCapacity, count)
	}
	if _, err := store.Get(ctx, "MID-0"); !errors.Is(err, entrystore.ErrNotFound) {
		t.Fatalf("expected oldest entry to be evicted, got %v", err)
	}
	newest, err := store.List(ctx, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(newest) != 1 || newest[0].Meal.ID != fmt.Sprintf("MID-%d", entrystore.DefaultCapacity) {
		t.Fatalf("unexpected newest entry %+v", newest)
	}
}

func TestListByDateAndDelete(t *testing.T) {
	store, err := entrystore.OpenPath(filepath.Join(t.TempDir(), "entries.db"), entrystore.WithCapacity(10))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.Append(ctx,
		meal("lunch", day.Add(4*time.Hour), macros.Float(200)),
		meal("breakfast", day, macros.Float(300)),
		meal("tomorrow", day.Add(24*time.Hour), macros.Float(100)),
	); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := store.ListByDate(ctx, "2024-05-01")
	if err != nil {
		t.Fatalf("ListByDate: %v", err)
	}
	if len(got) != 2 || got[0].Meal.ID != "breakfast" || got[1].Meal.ID != "lunch" {
		t.Fatalf("expected day entries ordered by time, got %+v", got)
	}

	removed, err := store.Delete(ctx, "lunch")
	if err != nil || !removed {
		t.Fatalf("Delete: removed=%v err=%v", removed, err)
	}
	if removed, _ := store.Delete(ctx, "lunch"); removed {
		t.Fatal("expected second delete to report nothing removed")
	}
	all, _ := store.List(ctx, 0)
	if len(all) != 2 {
		t.Fatalf("expected 2 entries left, got %d", len(all))
	}
}

func TestCleanupEmptyRemovesEntriesWithoutMacros(t *testing.T) {
	store, err := entrystore.OpenPath(filepath.Join(t.TempDir(), "entries.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	empty := meal("empty", day, nil)
	empty.Meal.Per100g.Proteins = nil
	if err := store.Append(ctx, empty, meal("full", day, macros.Float(10))); err != nil {
		t.Fatalf("Append: %v", err)
	}
	n, err := store.CleanupEmpty(ctx)
	if err != nil {
		t.Fatalf("CleanupEmpty: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one removal, got %d", n)
	}
	if _, err := store.Get(ctx, "full"); err != nil {
		t.Fatalf("expected full entry to survive: %v", err)
	}
}

func TestMigrationsRecordedOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entries.db")
	store, err := entrystore.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	ctx := context.Background()
	want := []string{"0001_init", "0002_clean_null_entries"}
	got, err := store.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}

	// Entries without macros written after the one-time cleanup stay put
	// across reopen: the migration does not run again.
	empty := meal("empty", day, nil)
	empty.Meal.Per100g.Proteins = nil
	if err := store.Append(ctx, empty); err != nil {
		t.Fatalf("Append: %v", err)
	}
	store.Close()

	reopened, err := entrystore.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if n, _ := reopened.Count(ctx); n != 1 {
		t.Fatalf("expected entry to survive reopen, got count %d", n)
	}
	got, _ = reopened.AppliedMigrations(ctx)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	store, err := entrystore.OpenPath(filepath.Join(t.TempDir(), "entries.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if _, ok, err := store.LoadSession(ctx); err != nil || ok {
		t.Fatalf("expected no session yet, ok=%v err=%v", ok, err)
	}
	if err := store.SaveSession(ctx, json.RawMessage(`{"step":1}`)); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	if err := store.SaveSession(ctx, json.RawMessage(`{"step":2}`)); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	got, ok, err := store.LoadSession(ctx)
	if err != nil || !ok || string(got) != `{"step":2}` {
		t.Fatalf("unexpected session %s ok=%v err=%v", got, ok, err)
	}
	if err := store.SaveSession(ctx, json.RawMessage(`{broken`)); err == nil {
		t.Fatal("expected invalid JSON to be rejected")
	}
}
