package toolserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"foodlog/internal/capture"
	"foodlog/internal/entrystore"
	"foodlog/internal/estimator"
	"foodlog/internal/logging"
	"foodlog/internal/notes"
)

const shutdownTimeout = 5 * time.Second

// Capturer is the capture surface the tools call into.
type Capturer interface {
	Log(ctx context.Context, req estimator.Request, portion float64, at time.Time) (capture.ExportResult, error)
	DeleteMeal(ctx context.Context, id string) (capture.DeleteResult, error)
	Reconcile(ctx context.Context) (notes.ReconcileResult, error)
}

// EntryLister reads recorded entries.
type EntryLister interface {
	List(ctx context.Context, limit int) ([]entrystore.Entry, error)
	ListByDate(ctx context.Context, day string) ([]entrystore.Entry, error)
}

// Server serves tool calls.
type Server struct {
	bind    string
	token   string
	capture Capturer
	entries EntryLister
	logger  *slog.Logger
	tools   map[string]toolHandler
}

type toolHandler func(ctx context.Context, req *protocol.CallToolRequest) (any, error)

// New builds a server. An empty token disables authentication.
func New(bind, token string, c Capturer, entries EntryLister, logger *slog.Logger) *Server {
	s := &Server{
		bind:    bind,
		token:   strings.TrimSpace(token),
		capture: c,
		entries: entries,
		logger:  logging.NewComponentLogger(logger, "toolserver"),
	}
	s.tools = map[string]toolHandler{
		"log_meal":     s.handleLogMeal,
		"delete_meal":  s.handleDeleteMeal,
		"reconcile":    s.handleReconcile,
		"list_entries": s.handleListEntries,
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tools/call", s.handleCall)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// Serve listens on the bind address until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.bind, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("tool server listening",
		logging.String(logging.FieldEventType, "toolserver_started"),
		logging.String("addr", ln.Addr().String()),
		logging.Bool("auth", s.token != ""),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown tool server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	handler, ok := s.tools[request.Name]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	ctx := logging.WithCorrelationID(r.Context(), "tool-"+request.Name)
	logger := logging.WithContext(ctx, s.logger).With(logging.String("tool", request.Name))
	started := time.Now()
	data, err := handler(ctx, &request)
	var result *protocol.CallToolResult
	if err != nil {
		logging.WarnWithContext(logger, "tool call failed", "tool_failed", logging.Error(err))
		result = errorResult(err)
	} else if result, err = jsonResult(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	logger.Debug("tool call finished", logging.Duration("elapsed", time.Since(started)))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logging.ErrorWithContext(logger, "failed to encode tool result", "tool_encode_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the client may have disconnected"),
		)
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.token == "" {
		return true
	}
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) == 1
}

func jsonResult(data any) (*protocol.CallToolResult, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return &protocol.CallToolResult{
		Content: []protocol.Content{
			&protocol.TextContent{Type: "text", Text: string(encoded)},
		},
	}, nil
}

func errorResult(err error) *protocol.CallToolResult {
	return &protocol.CallToolResult{
		Content: []protocol.Content{
			&protocol.TextContent{Type: "text", Text: err.Error()},
		},
		IsError: true,
	}
}

// extractParams decodes the request arguments into target.
func extractParams(req *protocol.CallToolRequest, target any) error {
	encoded, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}
	if err := json.Unmarshal(encoded, target); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}
