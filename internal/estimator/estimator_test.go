package estimator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/genai"

	"foodlog/internal/config"
	"foodlog/internal/macros"
)

func TestWorkerClientPostsRequestAndReturnsBody(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"item":"Oats","per_100g":{"calories":380},"message":"ok"}`))
	}))
	defer server.Close()

	client := NewWorkerClient(WorkerConfig{URL: server.URL})
	resp, err := client.Estimate(context.Background(), PhotoRequest([]byte("img"), ""))
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if got["image_b64"] != base64.StdEncoding.EncodeToString([]byte("img")) || got["mime"] != "image/jpeg" {
		t.Fatalf("unexpected request body %v", got)
	}
	if _, ok := got["mode"]; ok {
		t.Fatalf("photo request should not carry a mode: %v", got)
	}
	if resp.Message() != "ok" {
		t.Fatalf("unexpected message %q", resp.Message())
	}
	if kcal := macros.Extract(resp.Payload()).Calories; kcal == nil || *kcal != 380 {
		t.Fatalf("unexpected calories %v", kcal)
	}
}

func TestWorkerClientMalformedResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "not json", status: http.StatusOK, body: "<html>upstream error</html>"},
		{name: "error field", status: http.StatusOK, body: `{"error":"quota exceeded"}`},
		{name: "array", status: http.StatusOK, body: `[1,2]`},
		{name: "server error", status: http.StatusBadGateway, body: "bad gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewWorkerClient(WorkerConfig{URL: server.URL}).Estimate(context.Background(), TextRequest("oats", "ru"))
			if !errors.Is(err, ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestWorkerClientAcceptsFencedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("```json\n{\"item\":\"Tea\"}\n```"))
	}))
	defer server.Close()

	resp, err := NewWorkerClient(WorkerConfig{URL: server.URL}).Estimate(context.Background(), TextRequest("tea", ""))
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if string(resp.Raw) != `{"item":"Tea"}` {
		t.Fatalf("unexpected raw %s", resp.Raw)
	}
}

func TestRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
		kind    string
	}{
		{name: "empty", req: Request{}, wantErr: true, kind: "text"},
		{name: "blank text", req: TextRequest("  ", "ru"), wantErr: true, kind: "text"},
		{name: "final without previous", req: FinalRequest(nil), wantErr: true, kind: "final"},
		{name: "final", req: FinalRequest(json.RawMessage(`{}`)), kind: "final"},
		{name: "correction", req: CorrectionRequest(json.RawMessage(`{}`), "less oil", 0), kind: "correction"},
		{name: "photo", req: PhotoRequest([]byte{1}, "image/png"), kind: "photo"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := tt.req.Kind(); got != tt.kind {
				t.Fatalf("Kind() = %q, want %q", got, tt.kind)
			}
		})
	}
}

func TestCorrectionRequestOmitsNonPositivePortion(t *testing.T) {
	data, err := json.Marshal(CorrectionRequest(json.RawMessage(`{"item":"x"}`), "fix", -1))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "portion_g") {
		t.Fatalf("expected no portion in %s", data)
	}
	data, _ = json.Marshal(CorrectionRequest(json.RawMessage(`{"item":"x"}`), "fix", 150))
	if !strings.Contains(string(data), `"portion_g":150`) || !strings.Contains(string(data), `"previous_json":{"item":"x"}`) {
		t.Fatalf("unexpected body %s", data)
	}
}

type fakeGenerator struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	reply    string
	err      error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: f.reply}}}}},
	}, nil
}

func TestGeminiClientRequestsJSON(t *testing.T) {
	gen := &fakeGenerator{reply: "```json\n{\"item\":\"Soup\",\"per_100g\":{\"calories\":45}}\n```"}
	client := newGeminiClient(gen, "")

	resp, err := client.Estimate(context.Background(), PhotoRequest([]byte("jpeg"), "image/jpeg"))
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if gen.model != defaultGeminiModel {
		t.Fatalf("unexpected model %q", gen.model)
	}
	if gen.config == nil || gen.config.ResponseMIMEType != "application/json" || gen.config.SystemInstruction == nil {
		t.Fatalf("unexpected config %+v", gen.config)
	}
	if len(gen.contents) != 1 || gen.contents[0].Parts[0].InlineData == nil || string(gen.contents[0].Parts[0].InlineData.Data) != "jpeg" {
		t.Fatalf("expected inline image part, got %+v", gen.contents)
	}
	if string(resp.Raw) != `{"item":"Soup","per_100g":{"calories":45}}` {
		t.Fatalf("unexpected raw %s", resp.Raw)
	}
}

func TestGeminiClientMalformedReply(t *testing.T) {
	client := newGeminiClient(&fakeGenerator{reply: "I cannot see any food."}, "gemini-test")
	_, err := client.Estimate(context.Background(), TextRequest("water", ""))
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestGeminiClientPropagatesTransportError(t *testing.T) {
	boom := errors.New("quota")
	client := newGeminiClient(&fakeGenerator{err: boom}, "gemini-test")
	_, err := client.Estimate(context.Background(), TextRequest("water", ""))
	if !errors.Is(err, boom) || errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	client, err := New(context.Background(), config.Estimator{Backend: config.BackendWorker, WorkerURL: "http://127.0.0.1:1/estimate"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := client.(*WorkerClient); !ok {
		t.Fatalf("expected worker client, got %T", client)
	}
	if _, err := New(context.Background(), config.Estimator{Backend: config.BackendWorker}); err == nil {
		t.Fatal("expected missing worker url to fail")
	}
	if _, err := New(context.Background(), config.Estimator{Backend: config.BackendGemini}); err == nil {
		t.Fatal("expected missing gemini key to fail")
	}
	if _, err := New(context.Background(), config.Estimator{Backend: "carrier-pigeon"}); err == nil {
		t.Fatal("expected unknown backend to fail")
	}
}
