package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"foodlog/internal/config"
	"foodlog/internal/entrystore"
	"foodlog/internal/estimator"
	"foodlog/internal/ledger"
	"foodlog/internal/logging"
	"foodlog/internal/notes"
)

// ExportResult describes a meal written to the note.
type ExportResult struct {
	notes.WriteResult
	Entry ledger.MealEntry
	Mode  string
}

// Export finalizes raw and writes it according to the ledger mode. A zero
// at keeps the clock time.
func (s *Service) Export(ctx context.Context, raw json.RawMessage, at time.Time) (ExportResult, error) {
	final, err := s.Finalize(ctx, raw)
	if err != nil {
		return ExportResult{}, err
	}
	entry, err := s.EntryFromPayload(final)
	if err != nil {
		return ExportResult{}, err
	}
	if !at.IsZero() {
		entry.Timestamp = at.In(s.loc)
	}
	var res ExportResult
	switch s.mode {
	case config.ModeDaily:
		res, err = s.RecordDay(ctx, entry, estimator.Response{Raw: final}.Markdown(), final)
	default:
		res, err = s.ExportToNote(ctx, entry, final)
	}
	if err != nil {
		return res, err
	}
	if err := s.ClearSession(ctx); err != nil {
		s.logger.Warn("failed to clear session", logging.Error(err))
	}
	return res, nil
}

// Log runs a whole capture: estimate, optional portion, finalize, export.
func (s *Service) Log(ctx context.Context, req estimator.Request, portion float64, at time.Time) (ExportResult, error) {
	var (
		raw json.RawMessage
		err error
	)
	if req.Mode == estimator.ModeText && req.ImageB64 == "" {
		raw, err = s.EstimateText(ctx, req.Item, firstNonBlank(req.Description, req.Text), req.Language)
	} else {
		raw, err = s.Estimate(ctx, req)
	}
	if err != nil {
		return ExportResult{}, err
	}
	if portion > 0 {
		if raw, err = ApplyPortion(raw, portion); err != nil {
			return ExportResult{}, err
		}
	}
	return s.Export(ctx, raw, at)
}

// ExportToNote inserts the meal block and its Meals Table row.
func (s *Service) ExportToNote(ctx context.Context, entry ledger.MealEntry, payload json.RawMessage) (ExportResult, error) {
	ctx = logging.WithCorrelationID(ctx, entry.ID)
	res := ExportResult{Entry: entry, Mode: config.ModeMealsTable}
	wr, err := s.ledger.Update(ctx, "export", func(text string) (string, error) {
		out, _ := ledger.InsertMeal(text, entry)
		return out, nil
	})
	res.WriteResult = wr
	if err != nil {
		return res, fmt.Errorf("export meal: %w", err)
	}
	if !wr.Changed {
		return res, nil
	}
	if err := s.record(ctx, entry, payload); err != nil {
		return res, err
	}
	logging.WithContext(ctx, s.logger).Info("meal exported",
		logging.String(logging.FieldMealID, entry.ID),
		logging.Bool("changed", wr.Changed),
	)
	return res, nil
}

// RecordDay appends the meal to its day section, preceded by markdown when
// given, and recomputes that day.
func (s *Service) RecordDay(ctx context.Context, entry ledger.MealEntry, markdown string, payload json.RawMessage) (ExportResult, error) {
	ctx = logging.WithCorrelationID(ctx, entry.ID)
	res := ExportResult{Entry: entry, Mode: config.ModeDaily}
	wr, err := s.ledger.Update(ctx, "record_day", func(text string) (string, error) {
		if md := strings.TrimSpace(markdown); md != "" {
			text = ledger.AppendNote(text, entry.Stamp(), md)
		}
		return ledger.AppendDayEntry(text, entry, s.agg), nil
	})
	res.WriteResult = wr
	if err != nil {
		return res, fmt.Errorf("record day entry: %w", err)
	}
	if !wr.Changed {
		return res, nil
	}
	if err := s.record(ctx, entry, payload); err != nil {
		return res, err
	}
	logging.WithContext(ctx, s.logger).Info("day entry recorded",
		logging.String(logging.FieldMealID, entry.ID),
		logging.String("date", entry.Date()),
	)
	return res, nil
}

func (s *Service) record(ctx context.Context, entry ledger.MealEntry, payload json.RawMessage) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Append(ctx, entrystore.Entry{Meal: entry, Payload: payload}); err != nil {
		return fmt.Errorf("record entry: %w", err)
	}
	return nil
}

// DeleteResult reports what DeleteMeal removed.
type DeleteResult struct {
	notes.WriteResult
	ledger.Removal
	StoreRemoved bool
}

// Found reports whether anything carried the id.
func (r DeleteResult) Found() bool {
	return r.Removed || r.RowRemoved || r.StoreRemoved
}

// DeleteMeal removes the block and table row for id and forgets the stored
// entry.
func (s *Service) DeleteMeal(ctx context.Context, id string) (DeleteResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return DeleteResult{}, errors.New("delete meal: id required")
	}
	ctx = logging.WithCorrelationID(ctx, id)
	var res DeleteResult
	wr, err := s.ledger.Update(ctx, "delete", func(text string) (string, error) {
		res.Removal = ledger.DeleteMeal(text, id)
		return res.Removal.Text, nil
	})
	res.WriteResult = wr
	if err != nil {
		return res, fmt.Errorf("delete meal: %w", err)
	}
	if s.store != nil {
		removed, err := s.store.Delete(ctx, id)
		if err != nil {
			return res, fmt.Errorf("delete stored entry: %w", err)
		}
		res.StoreRemoved = removed
	}
	logger := logging.WithContext(ctx, s.logger).With(logging.String(logging.FieldMealID, id))
	if !res.Found() {
		logging.WarnWithContext(logger, "meal not found", "meal_not_found",
			logging.String(logging.FieldErrorHint, "check the id with `foodlog entries`"),
		)
		return res, nil
	}
	logger.Info("meal deleted",
		logging.Bool("block", res.Removed),
		logging.Bool("row", res.RowRemoved),
		logging.Bool("stored", res.StoreRemoved),
	)
	return res, nil
}

// RebuildTable regenerates the Meals Table from the meal blocks.
func (s *Service) RebuildTable(ctx context.Context) (notes.WriteResult, error) {
	res, err := s.ledger.Update(ctx, "rebuild", func(text string) (string, error) {
		out, _ := ledger.RebuildMealsTable(text)
		return out, nil
	})
	if err != nil {
		return res, fmt.Errorf("rebuild meals table: %w", err)
	}
	return res, nil
}

// Reconcile runs one synchronization and aggregation pass.
func (s *Service) Reconcile(ctx context.Context) (notes.ReconcileResult, error) {
	res, err := s.ledger.Reconcile(ctx, s.agg)
	if err != nil {
		return res, fmt.Errorf("reconcile: %w", err)
	}
	return res, nil
}

// InitNote creates the note with an empty ledger layout when it is missing.
func (s *Service) InitNote(ctx context.Context) (bool, error) {
	content := ledger.NoteTitle + "\n"
	if s.mode != config.ModeDaily {
		content, _ = ledger.EnsureMealsTable(content)
	}
	return s.ledger.Create(ctx, content)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
