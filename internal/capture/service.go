package capture

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"foodlog/internal/config"
	"foodlog/internal/entrystore"
	"foodlog/internal/estimator"
	"foodlog/internal/ledger"
	"foodlog/internal/logging"
	"foodlog/internal/notes"
)

var (
	// ErrNoMacrosFound is returned when a payload carries no macro value.
	ErrNoMacrosFound = errors.New("no macros found in payload")
	// ErrNoSession is returned when a step needs a previous payload and
	// none was saved.
	ErrNoSession = errors.New("no estimate in progress")
	// ErrNoEstimator is returned by estimation steps when no backend is wired.
	ErrNoEstimator = errors.New("estimator not configured")
)

// EntryStore is the subset of the entry store the service writes to.
type EntryStore interface {
	Append(ctx context.Context, entries ...entrystore.Entry) error
	Delete(ctx context.Context, mealID string) (bool, error)
	SaveSession(ctx context.Context, payload json.RawMessage) error
	LoadSession(ctx context.Context) (json.RawMessage, bool, error)
}

// Service coordinates estimation, entry building and note writes.
type Service struct {
	mode      string
	loc       *time.Location
	ledger    *notes.Ledger
	store     EntryStore
	estimator estimator.Client
	fields    estimator.FieldPaths
	agg       ledger.Aggregator
	now       func() time.Time
	logger    *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithEstimator wires the estimation backend.
func WithEstimator(client estimator.Client) Option {
	return func(s *Service) { s.estimator = client }
}

// WithClock overrides the clock used for meal timestamps and ids.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService builds a service for cfg writing through l and store.
func NewService(cfg *config.Config, l *notes.Ledger, store EntryStore, opts ...Option) *Service {
	s := &Service{
		mode:   cfg.Ledger.Mode,
		loc:    cfg.Location(),
		ledger: l,
		store:  store,
		fields: estimator.NewFieldPaths(cfg.Estimator.Fields),
		agg:    ledger.Aggregator{Targets: cfg.Targets},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "capture")
	return s
}

// Mode returns the configured ledger mode.
func (s *Service) Mode() string {
	return s.mode
}

// Aggregator returns the day aggregator configured with the targets.
func (s *Service) Aggregator() ledger.Aggregator {
	return s.agg
}

func (s *Service) clock() time.Time {
	return s.now().In(s.loc)
}
