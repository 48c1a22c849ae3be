// Package llm wraps the text generation provider behind a small interface and
// classifies provider failures into the cases the generation chain branches on.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultModel is used when no text model is configured.
const DefaultModel = "gemini-2.5-flash"

// FallbackModel is retried once when the configured model is unavailable.
// It is deliberately not configurable.
const FallbackModel = "gemini-2.0-flash"

// ErrModelUnavailable is returned when the requested model does not exist or
// the key has no access to it.
var ErrModelUnavailable = errors.New("model unavailable")

// ErrEmptyResponse is returned when the model answered without any usable
// text, for example when every candidate was blocked.
var ErrEmptyResponse = errors.New("empty model response")

// Prompt is a system instruction plus the user turn.
type Prompt struct {
	System string
	User   string
}

// Client is an abstraction over LLM providers
type Client interface {
	// GenerateJSON asks model for a JSON response to prompt.
	GenerateJSON(ctx context.Context, prompt Prompt, model string) (string, error)
	// Close releases any resources held by the client
	Close() error
}

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client      *genai.Client
	temperature float32
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:      client,
		temperature: 0.7,
	}, nil
}

// GenerateJSON generates JSON content with the named model
func (c *GeminiClient) GenerateJSON(ctx context.Context, prompt Prompt, model string) (string, error) {
	if model == "" {
		model = DefaultModel
	}

	gm := c.client.GenerativeModel(model)
	gm.SetTemperature(c.temperature)
	gm.ResponseMIMEType = "application/json"
	if prompt.System != "" {
		gm.SystemInstruction = genai.NewUserContent(genai.Text(prompt.System))
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(prompt.User))
	if err != nil {
		return "", classifyError(model, err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", err
	}
	return CleanJSONBlock(text), nil
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// classifyError maps "model not found / no access" conditions onto
// ErrModelUnavailable. Everything else keeps its original chain so callers can
// still match context errors.
func classifyError(model string, err error) error {
	if isModelUnavailable(err) {
		return fmt.Errorf("%w: %s: %v", ErrModelUnavailable, model, err)
	}
	return fmt.Errorf("failed to generate content: %w", err)
}

func isModelUnavailable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return true
	}
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.NotFound
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrEmptyResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no content", ErrEmptyResponse)
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no text parts", ErrEmptyResponse)
	}

	return strings.Join(parts, ""), nil
}
