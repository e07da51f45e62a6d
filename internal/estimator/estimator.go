package estimator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"foodlog/internal/config"
	"foodlog/internal/macros"
)

// ErrMalformedResponse is returned when a backend reply is not usable JSON
// or reports an error of its own.
var ErrMalformedResponse = errors.New("malformed estimator response")

// ModeFinal asks the backend for the final, note-ready payload.
const ModeFinal = "final"

// ModeText marks a free-text description request.
const ModeText = "text"

// Client estimates nutrition for one request.
type Client interface {
	Estimate(ctx context.Context, req Request) (Response, error)
}

// Request is the wire body sent to the worker. Only the fields of one
// request kind are set.
type Request struct {
	Mode        string          `json:"mode,omitempty"`
	Text        string          `json:"text,omitempty"`
	Item        string          `json:"item,omitempty"`
	Description string          `json:"description,omitempty"`
	Language    string          `json:"language,omitempty"`
	ImageB64    string          `json:"image_b64,omitempty"`
	MIME        string          `json:"mime,omitempty"`
	Previous    json.RawMessage `json:"previous_json,omitempty"`
	Instruction string          `json:"instruction,omitempty"`
	PortionG    *float64        `json:"portion_g,omitempty"`
}

// PhotoRequest builds a request for an image. An empty mime defaults to JPEG.
func PhotoRequest(data []byte, mime string) Request {
	if strings.TrimSpace(mime) == "" {
		mime = "image/jpeg"
	}
	return Request{ImageB64: base64.StdEncoding.EncodeToString(data), MIME: mime}
}

// TextRequest builds a free-text request.
func TextRequest(text, language string) Request {
	return Request{Mode: ModeText, Text: strings.TrimSpace(text), Language: language}
}

// CorrectionRequest asks the backend to revise previous. A portion <= 0 is
// left out.
func CorrectionRequest(previous json.RawMessage, instruction string, portion float64) Request {
	req := Request{Previous: previous, Instruction: strings.TrimSpace(instruction)}
	if portion > 0 {
		req.PortionG = &portion
	}
	return req
}

// FinalRequest asks the backend to finalize previous.
func FinalRequest(previous json.RawMessage) Request {
	return Request{Mode: ModeFinal, Previous: previous}
}

// Kind names the request for logs.
func (r Request) Kind() string {
	switch {
	case r.Mode == ModeFinal:
		return "final"
	case r.ImageB64 != "":
		return "photo"
	case len(r.Previous) > 0:
		return "correction"
	default:
		return "text"
	}
}

// Validate reports a request that carries no input at all.
func (r Request) Validate() error {
	switch {
	case r.Mode == ModeFinal && len(r.Previous) == 0:
		return errors.New("final request requires a previous payload")
	case r.ImageB64 != "", len(r.Previous) > 0:
		return nil
	case strings.TrimSpace(r.Text+r.Item+r.Description) == "":
		return errors.New("request carries no input")
	}
	return nil
}

// Response is one backend reply.
type Response struct {
	Raw json.RawMessage
}

// Payload returns the reply as an ordered payload.
func (r Response) Payload() macros.Payload {
	return macros.ParsePayload(r.Raw)
}

// Message returns the human-readable note carried by the reply, if any.
func (r Response) Message() string {
	return gjson.GetBytes(r.Raw, "message").String()
}

// Markdown returns the rendered block a final reply may carry.
func (r Response) Markdown() string {
	return gjson.GetBytes(r.Raw, "markdown").String()
}

// decodeResponse validates a backend body.
func decodeResponse(body []byte) (Response, error) {
	trimmed := strings.TrimSpace(string(body))
	if !gjson.Valid(trimmed) {
		if sanitized := sanitizeJSONPayload(trimmed); sanitized != "" && gjson.Valid(sanitized) {
			trimmed = sanitized
		} else {
			return Response{}, fmt.Errorf("%w: bad JSON (raw: %s)", ErrMalformedResponse, summarizeSnippet(trimmed))
		}
	}
	parsed := gjson.Parse(trimmed)
	if !parsed.IsObject() {
		return Response{}, fmt.Errorf("%w: expected a JSON object (raw: %s)", ErrMalformedResponse, summarizeSnippet(trimmed))
	}
	if e := parsed.Get("error"); e.Exists() && e.Type != gjson.Null && e.String() != "" {
		return Response{}, fmt.Errorf("%w: %s", ErrMalformedResponse, e.String())
	}
	return Response{Raw: json.RawMessage(trimmed)}, nil
}

// New builds the client selected by cfg.
func New(ctx context.Context, cfg config.Estimator) (Client, error) {
	switch cfg.Backend {
	case config.BackendGemini:
		return NewGeminiClient(ctx, GeminiConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
	case config.BackendWorker, "":
		if strings.TrimSpace(cfg.WorkerURL) == "" {
			return nil, errors.New("estimator: worker_url is not configured")
		}
		return NewWorkerClient(WorkerConfig{URL: cfg.WorkerURL, TimeoutSeconds: cfg.TimeoutSeconds}), nil
	default:
		return nil, fmt.Errorf("estimator: unsupported backend %q", cfg.Backend)
	}
}
