package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"foodlog/internal/config"
	"foodlog/internal/estimator"
	"foodlog/internal/ledger"
)

const probeTimeout = 5 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckNote verifies that the note exists, is writable and still parses
// into a consistent ledger.
func CheckNote(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist; run 'foodlog note init')", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: read: %v)", path, err)}
	}
	rep, err := ledger.Verify(string(data))
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: render: %v)", path, err)}
	}
	if !rep.OK() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%d problem(s): %s)", path, len(rep.Problems), rep.Problems[0])}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d meal row(s))", path, rep.MarkerRows)}
}

// CheckFieldPaths verifies that configured response field paths compile.
func CheckFieldPaths(paths config.FieldPaths) Result {
	const name = "Response field paths"
	fields := estimator.NewFieldPaths(paths)
	if fields.Empty() {
		return Result{Name: name, Passed: true, Detail: "Built-in keys"}
	}
	if err := fields.Validate(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "Valid"}
}

// CheckEstimator verifies that the configured backend has credentials and,
// for the worker backend, that the endpoint answers.
func CheckEstimator(ctx context.Context, cfg *config.Config) Result {
	name := "Estimator (" + cfg.Estimator.Backend + ")"
	if err := cfg.EstimatorReady(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if cfg.Estimator.Backend != config.BackendWorker {
		return Result{Name: name, Passed: true, Detail: "API key set (" + cfg.Estimator.GeminiModel + ")"}
	}
	return CheckWorker(ctx, name, cfg.Estimator.WorkerURL)
}

// CheckWorker probes the worker endpoint. Any answer below 500 counts as
// reachable: the endpoint only accepts POST bodies it can estimate.
func CheckWorker(ctx context.Context, name, url string) Result {
	url = strings.TrimSpace(url)
	if url == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, url, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("probe failed (%v)", err)}
	}
	resp, err := (&http.Client{Timeout: probeTimeout}).Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeProbeError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("probe failed (%d)", resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

func summarizeProbeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "probe timed out (worker unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "probe timed out (worker unreachable)"
	}
	return fmt.Sprintf("probe failed (%v)", err)
}
