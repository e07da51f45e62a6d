package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"foodlog/internal/estimator"
	"foodlog/internal/logging"
	"foodlog/internal/macros"
)

// DefaultLanguage is sent with text requests when none is given.
const DefaultLanguage = "ru"

// Estimate sends req to the backend and saves the reply as the session.
func (s *Service) Estimate(ctx context.Context, req estimator.Request) (json.RawMessage, error) {
	if s.estimator == nil {
		return nil, ErrNoEstimator
	}
	logger := logging.WithContext(ctx, s.logger).With(logging.String("request", req.Kind()))
	resp, err := s.estimator.Estimate(ctx, req)
	if err != nil {
		logging.WarnWithContext(logger, "estimation failed", "estimate_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the estimator backend and retry"),
			logging.String(logging.FieldImpact, "no estimate recorded"),
		)
		return nil, fmt.Errorf("estimate: %w", err)
	}
	if err := s.saveSession(ctx, resp.Raw); err != nil {
		return nil, err
	}
	logger.Info("estimate received", logging.String("summary", macros.Describe(macros.Extract(resp.Payload()))))
	return resp.Raw, nil
}

// EstimateText asks for an estimate of a described meal. Request shapes are
// tried in turn until a reply carries macros. A transport failure ends the
// attempt; malformed replies move on to the next shape.
func (s *Service) EstimateText(ctx context.Context, item, description, language string) (json.RawMessage, error) {
	if s.estimator == nil {
		return nil, ErrNoEstimator
	}
	item = strings.TrimSpace(item)
	description = strings.TrimSpace(description)
	if item == "" && description == "" {
		return nil, errors.New("estimate text: item or description required")
	}
	if language == "" {
		language = DefaultLanguage
	}
	query := strings.Join(nonEmpty(item, description), " — ")
	variants := []estimator.Request{
		{Mode: estimator.ModeText, Item: item, Description: description, Language: language},
		estimator.TextRequest(query, language),
		{Item: item, Description: description, Language: language},
	}

	logger := logging.WithContext(ctx, s.logger)
	var lastRaw string
	for i, req := range variants {
		resp, err := s.estimator.Estimate(ctx, req)
		if err != nil {
			if !errors.Is(err, estimator.ErrMalformedResponse) {
				return nil, fmt.Errorf("estimate text: %w", err)
			}
			logger.Debug("estimator reply unusable", logging.Int("variant", i), logging.Error(err))
			lastRaw = err.Error()
			continue
		}
		lastRaw = string(resp.Raw)
		if _, err := s.EntryFromPayload(resp.Raw); err != nil {
			logger.Debug("estimator reply had no macros", logging.Int("variant", i))
			continue
		}
		raw, err := withDefaultItem(resp.Raw, item)
		if err != nil {
			return nil, err
		}
		if err := s.saveSession(ctx, raw); err != nil {
			return nil, err
		}
		logger.Info("estimate received", logging.Int("variant", i))
		return raw, nil
	}
	return nil, fmt.Errorf("%w (snippet: %s)", ErrNoMacrosFound, macros.Snippet(macros.Text(lastRaw), snippetLength))
}

// Correct asks the backend to revise the session payload.
func (s *Service) Correct(ctx context.Context, instruction string, portion float64) (json.RawMessage, error) {
	if strings.TrimSpace(instruction) == "" && portion <= 0 {
		return nil, errors.New("correct: instruction or portion required")
	}
	prev, err := s.Session(ctx)
	if err != nil {
		return nil, err
	}
	return s.Estimate(ctx, estimator.CorrectionRequest(prev, instruction, portion))
}

// ApplyPortion applies a portion weight to the session payload locally.
func (s *Service) ApplyPortion(ctx context.Context, grams float64) (json.RawMessage, error) {
	prev, err := s.Session(ctx)
	if err != nil {
		return nil, err
	}
	raw, err := ApplyPortion(prev, grams)
	if err != nil {
		return nil, err
	}
	if err := s.saveSession(ctx, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Finalize asks the backend for the final version of previous and merges
// it over previous. A malformed reply falls back to previous unchanged.
func (s *Service) Finalize(ctx context.Context, previous json.RawMessage) (json.RawMessage, error) {
	if len(previous) == 0 {
		return nil, ErrNoSession
	}
	if s.estimator == nil {
		return previous, nil
	}
	resp, err := s.estimator.Estimate(ctx, estimator.FinalRequest(previous))
	switch {
	case errors.Is(err, estimator.ErrMalformedResponse):
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "final estimate unusable; using previous payload", "finalize_fallback",
			logging.Error(err),
			logging.String(logging.FieldImpact, "meal exported from the last estimate"),
		)
		return previous, nil
	case err != nil:
		return nil, fmt.Errorf("finalize: %w", err)
	}
	return MergePayloads(previous, resp.Raw)
}

// Session returns the saved payload or ErrNoSession.
func (s *Service) Session(ctx context.Context) (json.RawMessage, error) {
	if s.store == nil {
		return nil, ErrNoSession
	}
	raw, ok, err := s.store.LoadSession(ctx)
	if err != nil {
		return nil, err
	}
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil, ErrNoSession
	}
	return raw, nil
}

// ClearSession forgets the payload in progress.
func (s *Service) ClearSession(ctx context.Context) error {
	return s.saveSession(ctx, json.RawMessage("null"))
}

func (s *Service) saveSession(ctx context.Context, raw json.RawMessage) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.SaveSession(ctx, raw); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// withDefaultItem sets item on raw when the reply has none.
func withDefaultItem(raw json.RawMessage, item string) (json.RawMessage, error) {
	if item == "" {
		return raw, nil
	}
	if _, ok := firstString(macros.ParsePayload(raw), itemKeys...); ok {
		return raw, nil
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	obj["item"] = item
	return json.Marshal(obj)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
