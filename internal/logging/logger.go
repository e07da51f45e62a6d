package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"foodlog/internal/config"
)

// LogFileName is the JSON log written inside the configured log directory.
const LogFileName = "foodlog.log"

// Options configures New.
type Options struct {
	Level       string
	Format      string
	OutputPaths []string
	Development bool
}

// New builds a logger for opts. Format is "console" (default) or "json".
func New(opts Options) (*slog.Logger, error) {
	h, err := buildHandler(opts)
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}

// NewFromConfig creates the CLI logger: the configured format on stderr plus
// a JSON copy appended to the log directory.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info"})
	}
	terminal, err := buildHandler(Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, err
	}
	dir := cfg.Paths.LogDir
	if dir == "" {
		return slog.New(terminal), nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", dir, err)
	}
	persisted, err := buildHandler(Options{
		Level:       cfg.Logging.Level,
		Format:      "json",
		OutputPaths: []string{filepath.Join(dir, LogFileName)},
	})
	if err != nil {
		return nil, err
	}
	return slog.New(Tee(terminal, persisted)), nil
}

func buildHandler(opts Options) (slog.Handler, error) {
	lvl := new(slog.LevelVar)
	lvl.Set(levelFromString(opts.Level))
	verbose := opts.Development || lvl.Level() <= slog.LevelDebug

	var build func(io.Writer, *slog.LevelVar, bool) slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "console", "text":
		build = newConsoleHandler
	case "json":
		build = newJSONHandler
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	out, err := sinkFor(opts.OutputPaths)
	if err != nil {
		return nil, err
	}
	return build(out, lvl, verbose), nil
}

// levelFromString maps config level names; unknown values mean info.
func levelFromString(name string) slog.Level {
	var lvl slog.Level
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, "warning") {
		name = "warn"
	}
	if name == "" || lvl.UnmarshalText([]byte(name)) != nil {
		return slog.LevelInfo
	}
	return lvl
}

// sinkFor opens every distinct destination. "stdout" and "stderr" name the
// process streams; anything else is a file opened for append.
func sinkFor(paths []string) (io.Writer, error) {
	opened := make(map[string]io.Writer, len(paths))
	var order []io.Writer
	for _, raw := range paths {
		dest := strings.TrimSpace(raw)
		if dest == "" || opened[dest] != nil {
			continue
		}
		w, err := openSink(dest)
		if err != nil {
			return nil, err
		}
		opened[dest] = w
		order = append(order, w)
	}
	if len(order) == 0 {
		return os.Stderr, nil
	}
	if len(order) == 1 {
		return order[0], nil
	}
	return io.MultiWriter(order...), nil
}

func openSink(dest string) (io.Writer, error) {
	if dest == "stdout" {
		return os.Stdout, nil
	}
	if dest == "stderr" {
		return os.Stderr, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir for %s: %w", dest, err)
	}
	f, err := os.OpenFile(dest, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", dest, err)
	}
	return f, nil
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: compactJSONAttr,
	})
}

// compactJSONAttr renames time to ts in UTC, lowercases the level and
// shortens the source to file:line.
func compactJSONAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		if a.Value.Kind() == slog.KindTime {
			return slog.String("ts", a.Value.Time().UTC().Format(time.RFC3339))
		}
		a.Key = "ts"
	case slog.LevelKey:
		return slog.String(slog.LevelKey, strings.ToLower(a.Value.String()))
	case slog.SourceKey:
		if src, ok := a.Value.Any().(*slog.Source); ok && src != nil {
			return slog.String(slog.SourceKey, filepath.Base(src.File)+":"+fmt.Sprint(src.Line))
		}
	}
	return a
}

// teeHandler fans records out to several handlers.
type teeHandler []slog.Handler

// Tee duplicates records into every non-nil handler.
func Tee(handlers ...slog.Handler) slog.Handler {
	live := make(teeHandler, 0, len(handlers))
	for _, h := range handlers {
		if h == nil {
			continue
		}
		live = append(live, h)
	}
	if len(live) == 0 {
		return NoopHandler{}
	}
	if len(live) == 1 {
		return live[0]
	}
	return live
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for i := range t {
		if t[i].Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs error
	for _, h := range t {
		if h.Enabled(ctx, record.Level) {
			errs = errors.Join(errs, h.Handle(ctx, record.Clone()))
		}
	}
	return errs
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t teeHandler) each(fn func(slog.Handler) slog.Handler) teeHandler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = fn(h)
	}
	return out
}
