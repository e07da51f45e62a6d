package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"foodlog/internal/capture"
	"foodlog/internal/config"
	"foodlog/internal/entrystore"
	"foodlog/internal/estimator"
	"foodlog/internal/logging"
	"foodlog/internal/notes"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	store *entrystore.Store
	guard *notes.Guard
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		guard:      notes.NewGuard(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// log returns the process logger, falling back to a console logger when
// the configured one cannot be built.
func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.config)
		if err != nil {
			logger, _ = logging.New(logging.Options{Level: "info", Format: "console"})
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) entryStore() (*entrystore.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := entrystore.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open entry store: %w", err)
	}
	c.store = store
	return store, nil
}

// ledger returns the note ledger. Every ledger built from one context
// shares the write guard so a watcher started here skips its own writes.
func (c *commandContext) ledger() (*notes.Ledger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return notes.New(cfg.Paths.NotePath,
		notes.WithGuard(c.guard),
		notes.WithLogger(c.log()),
	), nil
}

// service builds the capture service. withEstimator wires the configured
// backend and fails early when it lacks credentials.
func (c *commandContext) service(ctx context.Context, withEstimator bool) (*capture.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	l, err := c.ledger()
	if err != nil {
		return nil, err
	}
	store, err := c.entryStore()
	if err != nil {
		return nil, err
	}
	opts := []capture.Option{capture.WithLogger(c.log())}
	if withEstimator {
		if err := cfg.EstimatorReady(); err != nil {
			return nil, err
		}
		client, err := estimator.New(ctx, cfg.Estimator)
		if err != nil {
			return nil, err
		}
		opts = append(opts, capture.WithEstimator(client))
	}
	return capture.NewService(cfg, l, store, opts...), nil
}

func (c *commandContext) close() error {
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// explainNoteError adds the recovery hint to a missing note error.
func explainNoteError(err error) error {
	if errors.Is(err, notes.ErrTargetNotFound) {
		return fmt.Errorf("%w (create it with `foodlog note init`)", err)
	}
	if errors.Is(err, notes.ErrStaleSnapshot) {
		return fmt.Errorf("%w; the note was edited meanwhile, run the command again", err)
	}
	return err
}
