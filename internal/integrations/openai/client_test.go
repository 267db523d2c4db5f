package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tbourn/fantasy-letters-backend/internal/integrations/paramstore"
	"github.com/tbourn/fantasy-letters-backend/internal/services"
)

// countingGetter is a paramstore.Getter stub that counts lookups. While
// calls <= failures (or always, when failures < 0) it returns err.
type countingGetter struct {
	val      string
	err      error
	failures int
	calls    int
	ctxErrs  []error
}

func (g *countingGetter) GetParameter(ctx context.Context, _ string) (string, error) {
	g.calls++
	g.ctxErrs = append(g.ctxErrs, ctx.Err())
	if g.err != nil && (g.failures < 0 || g.calls <= g.failures) {
		return "", g.err
	}
	return g.val, nil
}

func TestEndpointURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"https://api.openai.com/v1", "https://api.openai.com/v1/chat/completions"},
		{"https://api.openai.com/v1/", "https://api.openai.com/v1/chat/completions"},
		{"http://localhost:8080", "http://localhost:8080/v1/chat/completions"},
		{"", "https://api.openai.com/v1/chat/completions"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, endpointURL(tc.base, "/chat/completions"), "base=%q", tc.base)
	}
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(nil, "/letters")
	require.ErrorContains(t, err, "nil")

	_, err = NewClient(paramstore.Static{}, "  ")
	require.ErrorContains(t, err, "prefix")

	c, err := NewClient(paramstore.Static{}, "/letters/")
	require.NoError(t, err)
	require.Equal(t, "/letters/open-ai-token", c.keyName)
	require.Equal(t, defaultModel, c.model)
	require.Equal(t, defaultMaxTokens, c.maxTokens)
}

func TestGenerate_SendsPromptAndSampling(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","choices":[{"index":0,"message":{"role":"assistant","content":"Hoot hoot!"}}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(paramstore.Static{"/letters/open-ai-token": `{"token":"sk-test"}`}, "/letters",
		WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), services.GenerationRequest{System: "You are Owl.", User: "Please write the letter response."})
	require.NoError(t, err)
	require.Equal(t, "Hoot hoot!", out)

	require.Equal(t, "gpt-4o-mini", got.Model)
	require.Equal(t, 400, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	require.InDelta(t, 0.7, *got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	require.Equal(t, chatMessage{Role: "system", Content: "You are Owl."}, got.Messages[0])
	require.Equal(t, "user", got.Messages[1].Role)
}

func newStubServer(t *testing.T, status int, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	c, err := NewClient(paramstore.Static{"/letters/open-ai-token": "sk-raw"}, "/letters",
		WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestGenerate_UpstreamErrors(t *testing.T) {
	c := newStubServer(t, http.StatusTooManyRequests, `{"error":"slow down"}`)
	_, err := c.Generate(context.Background(), services.GenerationRequest{System: "s", User: "u"})
	var hse *HTTPStatusError
	require.True(t, errors.As(err, &hse))
	require.Equal(t, http.StatusTooManyRequests, hse.HTTPStatusCode())
	require.Contains(t, hse.Body, "slow down")

	c = newStubServer(t, http.StatusOK, `{"choices":[]}`)
	_, err = c.Generate(context.Background(), services.GenerationRequest{System: "s", User: "u"})
	require.ErrorContains(t, err, "no choices")
}

func TestFlagged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/moderations", r.URL.Path)
		var in moderationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		flagged := in.Input == "bad words"
		_ = json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{{"flagged": flagged}}})
	}))
	defer srv.Close()

	c, _ := NewClient(paramstore.Static{"/letters/open-ai-token": "sk"}, "/letters",
		WithBaseURL(srv.URL+"/v1"), WithHTTPClient(srv.Client()))

	f, err := c.Flagged(context.Background(), "bad words")
	require.NoError(t, err)
	require.True(t, f)

	f, err = c.Flagged(context.Background(), "I love frogs")
	require.NoError(t, err)
	require.False(t, f)
}

func TestResolveAPIKey_FetchedOnce(t *testing.T) {
	g := &countingGetter{val: `{"token":"sk-from-ssm"}`}
	c, err := NewClient(g, "/letters")
	require.NoError(t, err)

	key, err := c.resolveAPIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-from-ssm", key)

	_, _ = c.resolveAPIKey(context.Background())
	require.Equal(t, 1, g.calls, "a fetched key is cached")
}

func TestResolveAPIKey_Error(t *testing.T) {
	c, _ := NewClient(&countingGetter{err: errors.New("ssm unavailable"), failures: -1}, "/letters")
	_, err := c.Generate(context.Background(), services.GenerationRequest{})
	require.ErrorContains(t, err, "ssm unavailable")
}

func TestResolveAPIKey_RetriesAfterFailure(t *testing.T) {
	g := &countingGetter{val: "sk-later", err: errors.New("throttled"), failures: 1}
	c, err := NewClient(g, "/letters")
	require.NoError(t, err)

	_, err = c.resolveAPIKey(context.Background())
	require.ErrorContains(t, err, "throttled")

	key, err := c.resolveAPIKey(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-later", key)

	_, _ = c.resolveAPIKey(context.Background())
	require.Equal(t, 2, g.calls, "a failed lookup is retried, a successful one is cached")
}

func TestResolveAPIKey_DetachedFromCaller(t *testing.T) {
	g := &countingGetter{val: "sk-detached"}
	c, err := NewClient(g, "/letters")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	key, err := c.resolveAPIKey(ctx)
	require.NoError(t, err)
	require.Equal(t, "sk-detached", key)
	require.Equal(t, []error{nil}, g.ctxErrs, "the lookup must not inherit the caller's cancellation")
}
