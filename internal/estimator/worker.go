package estimator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultHTTPTimeout = 60 * time.Second

// maxBodyBytes bounds how much of a worker reply is read.
const maxBodyBytes = 4 << 20

// WorkerConfig captures the worker endpoint settings.
type WorkerConfig struct {
	URL            string
	TimeoutSeconds int
}

// WorkerClient posts requests to an HTTP estimation worker.
type WorkerClient struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
}

// WorkerOption customizes the worker client.
type WorkerOption func(*WorkerClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) WorkerOption {
	return func(c *WorkerClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewWorkerClient constructs a worker client.
func NewWorkerClient(cfg WorkerConfig, opts ...WorkerOption) *WorkerClient {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &WorkerClient{
		url:        strings.TrimSpace(cfg.URL),
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Estimate sends req and returns the decoded reply. The HTTP status is not
// trusted on its own: the body decides.
func (c *WorkerClient) Estimate(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, fmt.Errorf("worker request: %w", err)
	}
	encoded, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("worker request: encode body: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(encoded))
	if err != nil {
		return Response{}, fmt.Errorf("worker request: new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("worker request: http error (timeout=%s): %w", c.timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, fmt.Errorf("worker request: read body: %w", err)
	}
	out, err := decodeResponse(body)
	if err != nil {
		return Response{}, fmt.Errorf("worker request: http %d: %w", resp.StatusCode, err)
	}
	return out, nil
}
