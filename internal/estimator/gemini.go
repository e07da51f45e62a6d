package estimator

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// systemPrompt fixes the reply shape shared with the HTTP worker.
const systemPrompt = `You estimate the nutrition of a single meal.
Reply with one JSON object and nothing else:
{
  "item": "short dish name",
  "per_100g": {"calories": number, "proteins": number, "fats": number, "carbohydrates": number},
  "portion_g": number or null,
  "portion_totals": {"calories": number, "proteins": number, "fats": number, "carbohydrates": number} or null,
  "message": "one short sentence for the user"
}
Use grams for proteins, fats and carbohydrates and kcal for calories.
When a previous payload is given, apply the instruction to it and return the full revised object.
When asked to finalize, also include "markdown": a short summary of the meal.`

// generator is the subset of the genai models service the client needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig captures the Gemini backend settings.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiClient estimates nutrition with a Gemini model.
type GeminiClient struct {
	model  string
	models generator
}

// NewGeminiClient constructs a Gemini-backed client.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("gemini: api key required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return newGeminiClient(client.Models, cfg.Model), nil
}

func newGeminiClient(models generator, model string) *GeminiClient {
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{model: model, models: models}
}

// Estimate asks the model for a JSON reply to req.
func (c *GeminiClient) Estimate(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, fmt.Errorf("gemini request: %w", err)
	}
	parts, err := geminiParts(req)
	if err != nil {
		return Response{}, fmt.Errorf("gemini request: %w", err)
	}
	resp, err := c.models.GenerateContent(ctx, c.model,
		[]*genai.Content{{Role: "user", Parts: parts}},
		&genai.GenerateContentConfig{
			ResponseMIMEType:  "application/json",
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		},
	)
	if err != nil {
		return Response{}, fmt.Errorf("gemini request: %w", err)
	}
	if resp == nil {
		return Response{}, fmt.Errorf("gemini request: %w: empty response", ErrMalformedResponse)
	}
	out, err := decodeResponse([]byte(resp.Text()))
	if err != nil {
		return Response{}, fmt.Errorf("gemini request: %w", err)
	}
	return out, nil
}

func geminiParts(req Request) ([]*genai.Part, error) {
	var parts []*genai.Part
	if req.ImageB64 != "" {
		data, err := base64.StdEncoding.DecodeString(req.ImageB64)
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		parts = append(parts,
			&genai.Part{InlineData: &genai.Blob{MIMEType: req.MIME, Data: data}},
			&genai.Part{Text: "Estimate the nutrition of the meal in this photo."},
		)
	}
	var b strings.Builder
	if len(req.Previous) > 0 {
		fmt.Fprintf(&b, "Previous payload:\n%s\n", req.Previous)
	}
	if req.Mode == ModeFinal {
		b.WriteString("Finalize this payload.\n")
	}
	if req.Instruction != "" {
		fmt.Fprintf(&b, "Instruction: %s\n", req.Instruction)
	}
	if req.PortionG != nil {
		fmt.Fprintf(&b, "Portion: %g g\n", *req.PortionG)
	}
	for _, text := range []string{req.Item, req.Description, req.Text} {
		if strings.TrimSpace(text) != "" {
			fmt.Fprintf(&b, "Meal: %s\n", strings.TrimSpace(text))
		}
	}
	if req.Language != "" {
		fmt.Fprintf(&b, "Write item and message in language %q.\n", req.Language)
	}
	if b.Len() > 0 {
		parts = append(parts, &genai.Part{Text: b.String()})
	}
	return parts, nil
}
