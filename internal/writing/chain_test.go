package writing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jonathan/blog-agent/internal/llm"
	"github.com/jonathan/blog-agent/internal/types"
)

const validDraft = `{
	"title": "Why Gutter Cleaning Matters",
	"slug": "why-gutter-cleaning-matters",
	"description": "Clogged gutters cause leaks.",
	"content": "<html><body><h2>Intro</h2><p>Clean them.</p><script>alert(1)</script></body></html>",
	"metaTags": ["Gutters", "gutters", " Home "],
	"imagePrompt": "a clean gutter",
	"socialLinkedin": "li text",
	"socialInstagram": "ig text"
}`

type fakeClient struct {
	mu      sync.Mutex
	models  []string
	respond func(ctx context.Context, model string) (string, error)
}

func (f *fakeClient) GenerateJSON(ctx context.Context, _ llm.Prompt, model string) (string, error) {
	f.mu.Lock()
	f.models = append(f.models, model)
	f.mu.Unlock()
	return f.respond(ctx, model)
}

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.models...)
}

func block(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func newTestChain(t *testing.T, client llm.Client, local bool) *Chain {
	t.Helper()
	return NewChain(client, Config{
		Model:               "gemini-custom",
		Timeout:             30 * time.Millisecond,
		LocalDraftOnFailure: local,
		SiteName:            "Acme Blog",
	}, zaptest.NewLogger(t))
}

var request = types.GenerationRequest{
	Topic:    "Gutter cleaning before winter. Why it prevents water damage.",
	Keywords: []string{"gutters"},
}

func TestChain_PrimarySuccess(t *testing.T) {
	client := &fakeClient{respond: func(context.Context, string) (string, error) {
		return "```json\n" + validDraft + "\n```", nil
	}}

	res, err := newTestChain(t, client, true).Write(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, types.ProvenancePrimaryModel, res.Outcome.Provenance)
	assert.Equal(t, "gemini-custom", res.Outcome.Model)
	assert.Equal(t, "Why Gutter Cleaning Matters", res.Draft.Title)
	assert.Equal(t, "<h2>Intro</h2><p>Clean them.</p>", res.Draft.Content)
	assert.Equal(t, []string{"gutters", "home"}, res.Draft.MetaTags)
	assert.Equal(t, []string{"gemini-custom"}, client.calls())
}

func TestChain_UnavailableFallsBackToFixedModel(t *testing.T) {
	client := &fakeClient{respond: func(_ context.Context, model string) (string, error) {
		if model == "gemini-custom" {
			return "", llm.ErrModelUnavailable
		}
		return validDraft, nil
	}}

	res, err := newTestChain(t, client, true).Write(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, types.ProvenanceFallbackModel, res.Outcome.Provenance)
	assert.Equal(t, llm.FallbackModel, res.Outcome.Model)
	assert.Contains(t, res.Outcome.Reason, "gemini-custom")
	assert.Equal(t, []string{"gemini-custom", llm.FallbackModel}, client.calls())
}

func TestChain_FallbackUnavailableIsAPIError(t *testing.T) {
	client := &fakeClient{respond: func(context.Context, string) (string, error) {
		return "", llm.ErrModelUnavailable
	}}

	_, err := newTestChain(t, client, true).Write(context.Background(), request)
	require.Error(t, err)

	var apiErr *APICallError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, llm.FallbackModel, apiErr.Model)
	assert.Len(t, client.calls(), 2)
}

func TestChain_TimeoutUsesLocalDraft(t *testing.T) {
	client := &fakeClient{respond: block}

	started := time.Now()
	res, err := newTestChain(t, client, true).Write(context.Background(), request)
	require.NoError(t, err)

	assert.Less(t, time.Since(started), time.Second)
	assert.Equal(t, types.ProvenanceLocalDraft, res.Outcome.Provenance)
	assert.Contains(t, res.Outcome.Reason, "timed out")
	assert.Equal(t, "Gutter cleaning before winter", res.Draft.Title)
	assert.Equal(t, []string{"gemini-custom"}, client.calls())
}

func TestChain_FallbackTimeoutUsesLocalDraft(t *testing.T) {
	client := &fakeClient{respond: func(ctx context.Context, model string) (string, error) {
		if model == "gemini-custom" {
			return "", llm.ErrModelUnavailable
		}
		return block(ctx, model)
	}}

	res, err := newTestChain(t, client, true).Write(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, types.ProvenanceLocalDraft, res.Outcome.Provenance)
}

func TestChain_TimeoutWithoutLocalDraft(t *testing.T) {
	client := &fakeClient{respond: block}

	_, err := newTestChain(t, client, false).Write(context.Background(), request)
	require.Error(t, err)

	var timeoutErr *TimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, "text", timeoutErr.Stage)
	assert.Equal(t, "gemini-custom", timeoutErr.Model)
	assert.Equal(t, 30*time.Millisecond, timeoutErr.After)
	assert.True(t, timeoutErr.Timeout())
}

func TestChain_OtherErrorsPropagate(t *testing.T) {
	boom := errors.New("quota exceeded")
	client := &fakeClient{respond: func(context.Context, string) (string, error) {
		return "", boom
	}}

	_, err := newTestChain(t, client, true).Write(context.Background(), request)
	require.Error(t, err)

	var apiErr *APICallError
	require.True(t, errors.As(err, &apiErr))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"gemini-custom"}, client.calls())
}

func TestChain_InvalidResponse(t *testing.T) {
	responses := []string{
		"Sorry, I cannot help with that.",
		`{"title": "Only a title"}`,
		`{"title": "T", "description": "D", "content": "<script>x</script>"}`,
	}

	for _, raw := range responses {
		client := &fakeClient{respond: func(context.Context, string) (string, error) {
			return raw, nil
		}}

		t.Run("local draft", func(t *testing.T) {
			res, err := newTestChain(t, client, true).Write(context.Background(), request)
			require.NoError(t, err)
			assert.Equal(t, types.ProvenanceLocalDraft, res.Outcome.Provenance)
			assert.Contains(t, res.Outcome.Reason, "invalid response")
		})

		t.Run("error", func(t *testing.T) {
			_, err := newTestChain(t, client, false).Write(context.Background(), request)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidResponse)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, "gemini-custom", parseErr.Model)
		})
	}
}

func TestChain_EmptyResponse(t *testing.T) {
	client := &fakeClient{respond: func(context.Context, string) (string, error) {
		return "", fmt.Errorf("%w: no candidates", llm.ErrEmptyResponse)
	}}

	res, err := newTestChain(t, client, true).Write(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, types.ProvenanceLocalDraft, res.Outcome.Provenance)
	assert.Contains(t, res.Outcome.Reason, "invalid response")
	assert.Equal(t, []string{"gemini-custom"}, client.calls())

	_, err = newTestChain(t, client, false).Write(context.Background(), request)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)

	var apiErr *APICallError
	assert.False(t, errors.As(err, &apiErr))
}

func TestChain_ParentCancellationIsNotLocalDraft(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{respond: func(callCtx context.Context, model string) (string, error) {
		cancel()
		return block(callCtx, model)
	}}

	res, err := newTestChain(t, client, true).Write(ctx, request)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)

	var timeoutErr *TimeoutError
	assert.False(t, errors.As(err, &timeoutErr))
}

func TestChain_DefaultModel(t *testing.T) {
	client := &fakeClient{respond: func(context.Context, string) (string, error) {
		return validDraft, nil
	}}
	c := NewChain(client, Config{Timeout: time.Second}, nil)

	res, err := c.Write(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, llm.DefaultModel, res.Outcome.Model)
}
