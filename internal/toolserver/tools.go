package toolserver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"foodlog/internal/entrystore"
	"foodlog/internal/estimator"
	"foodlog/internal/ledger"
	"foodlog/internal/macros"
)

const defaultListLimit = 20

// LogMealParams are the log_meal arguments. Either text/item/description
// or image_b64 is required.
type LogMealParams struct {
	Text        string  `json:"text,omitempty"`
	Item        string  `json:"item,omitempty"`
	Description string  `json:"description,omitempty"`
	ImageB64    string  `json:"image_b64,omitempty"`
	MIME        string  `json:"mime,omitempty"`
	PortionG    float64 `json:"portion_g,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
	Language    string  `json:"language,omitempty"`
}

// DeleteMealParams are the delete_meal arguments.
type DeleteMealParams struct {
	MealID string `json:"meal_id"`
}

// ListEntriesParams are the list_entries arguments.
type ListEntriesParams struct {
	Date  string `json:"date,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// EntryView is one entry as returned by list_entries.
type EntryView struct {
	MealID     string   `json:"meal_id"`
	Timestamp  string   `json:"timestamp"`
	Item       string   `json:"item"`
	PortionG   *float64 `json:"portion_g,omitempty"`
	Calories   *float64 `json:"calories"`
	Proteins   *float64 `json:"proteins"`
	Fats       *float64 `json:"fats"`
	Carbs      *float64 `json:"carbohydrates"`
	RecordedAt string   `json:"recorded_at"`
}

func (s *Server) handleLogMeal(ctx context.Context, req *protocol.CallToolRequest) (any, error) {
	var params LogMealParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	var at time.Time
	if params.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, params.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp format: %w", err)
		}
		at = parsed
	}

	var estReq estimator.Request
	switch {
	case params.ImageB64 != "":
		mime := params.MIME
		if mime == "" {
			mime = "image/jpeg"
		}
		estReq = estimator.Request{ImageB64: params.ImageB64, MIME: mime}
	case strings.TrimSpace(params.Text+params.Item+params.Description) != "":
		estReq = estimator.Request{
			Mode:        estimator.ModeText,
			Text:        strings.TrimSpace(params.Text),
			Item:        strings.TrimSpace(params.Item),
			Description: strings.TrimSpace(params.Description),
			Language:    params.Language,
		}
	default:
		return nil, errors.New("meal text, item, description or image_b64 is required")
	}

	res, err := s.capture.Log(ctx, estReq, params.PortionG, at)
	if err != nil {
		return nil, err
	}
	totals := res.Entry.Totals()
	return map[string]any{
		"meal_id":   res.Entry.ID,
		"mode":      res.Mode,
		"changed":   res.Changed,
		"item":      res.Entry.DisplayItem(),
		"timestamp": res.Entry.Stamp(),
		"per_100g":  setView(res.Entry.Per100g),
		"totals":    setView(totals),
	}, nil
}

func (s *Server) handleDeleteMeal(ctx context.Context, req *protocol.CallToolRequest) (any, error) {
	var params DeleteMealParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.MealID) == "" {
		return nil, errors.New("meal_id is required")
	}
	res, err := s.capture.DeleteMeal(ctx, params.MealID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"meal_id":     params.MealID,
		"found":       res.Found(),
		"block":       res.Removed,
		"row":         res.RowRemoved,
		"stored":      res.StoreRemoved,
		"note_change": res.Changed,
	}, nil
}

func (s *Server) handleReconcile(ctx context.Context, _ *protocol.CallToolRequest) (any, error) {
	res, err := s.capture.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	days := make([]map[string]any, 0, len(res.Days))
	for _, d := range res.Days {
		days = append(days, map[string]any{"date": d.Date, "rows": d.Rows, "totals": setView(d.Sum)})
	}
	return map[string]any{
		"changed":       res.Changed,
		"stale_rows":    nonNil(res.Sync.StaleRows),
		"orphan_blocks": nonNil(res.Sync.OrphanBlocks),
		"unresolved":    nonNil(res.Sync.Unresolved),
		"days":          days,
	}, nil
}

func (s *Server) handleListEntries(ctx context.Context, req *protocol.CallToolRequest) (any, error) {
	if s.entries == nil {
		return nil, errors.New("entry store unavailable")
	}
	var params ListEntriesParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	var (
		entries []entrystore.Entry
		err     error
	)
	if params.Date != "" {
		if _, perr := time.Parse(ledger.DateLayout, params.Date); perr != nil {
			return nil, fmt.Errorf("invalid date %q: want YYYY-MM-DD", params.Date)
		}
		entries, err = s.entries.ListByDate(ctx, params.Date)
	} else {
		limit := params.Limit
		if limit <= 0 {
			limit = defaultListLimit
		}
		entries, err = s.entries.List(ctx, limit)
	}
	if err != nil {
		return nil, err
	}
	out := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		t := e.Meal.Totals()
		out = append(out, EntryView{
			MealID:     e.Meal.ID,
			Timestamp:  e.Meal.Stamp(),
			Item:       e.Meal.DisplayItem(),
			PortionG:   e.Meal.PortionGrams,
			Calories:   t.Calories,
			Proteins:   t.Proteins,
			Fats:       t.Fats,
			Carbs:      t.Carbohydrates,
			RecordedAt: e.RecordedAt.Format(time.RFC3339),
		})
	}
	return out, nil
}

func setView(s macros.Set) map[string]*float64 {
	return map[string]*float64{
		"calories":      s.Calories,
		"proteins":      s.Proteins,
		"fats":          s.Fats,
		"carbohydrates": s.Carbohydrates,
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
