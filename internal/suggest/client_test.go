package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pulsevote/internal/config"
	"pulsevote/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		AIBaseURL:        baseURL,
		AIAPIKey:         "test-key",
		AITextModel:      "text-model",
		AIImageModel:     "image-model",
		AITimeoutSeconds: 5,
	}
}

func draftJSON(n int, category string) string {
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, fmt.Sprintf(
			`{"title":"Question %d?","description":"ctx","options":["A","B","C"],"imagePrompt":"img","category":%q}`,
			i, category))
	}
	return `{"suggestions":[` + strings.Join(items, ",") + `]}`
}

func toolCallResponse(arguments string) map[string]any {
	return map[string]any{
		"choices": []any{map[string]any{
			"message": map[string]any{
				"tool_calls": []any{map[string]any{
					"function": map[string]any{"name": toolName, "arguments": arguments},
				}},
			},
		}},
	}
}

func newGateway(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(testConfig(srv.URL+"/v1"), nil)
}

func TestGenerateSuggestions_ToolCall(t *testing.T) {
	var got map[string]any
	client := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(toolCallResponse(draftJSON(5, "Sports")))
	})

	drafts, err := client.GenerateSuggestions(context.Background(), "Germany", "sports")
	require.NoError(t, err)
	require.Len(t, drafts, DraftCount)
	assert.Equal(t, models.CategorySports, drafts[0].Category)
	assert.Equal(t, []string{"A", "B", "C"}, drafts[0].Options)

	assert.Equal(t, "text-model", got["model"])
	choice := got["tool_choice"].(map[string]any)
	assert.Equal(t, toolName, choice["function"].(map[string]any)["name"])
	msgs := got["messages"].([]any)
	assert.Contains(t, msgs[1].(map[string]any)["content"], "relevant to Germany")
}

func TestGenerateSuggestions_ContentFallback(t *testing.T) {
	content := "Here you go:\n```json\n" + draftJSON(6, "fun") + "\n```"
	client := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
		})
	})

	drafts, err := client.GenerateSuggestions(context.Background(), "all", "")
	require.NoError(t, err)
	assert.Len(t, drafts, DraftCount)
}

func TestParseContent_BareArray(t *testing.T) {
	raw, err := parseContent(`drafts: [{"title":"T","options":["a","b"],"category":"music"}] done`)
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.Equal(t, "music", raw[0].Category)

	_, err = parseContent("no json here")
	assert.ErrorIs(t, err, ErrInvalidSuggestions)
}

func TestGenerateSuggestions_DropsInvalidDrafts(t *testing.T) {
	args := `{"suggestions":[
		{"title":"Ok 1","options":["a","b"],"category":"fun"},
		{"title":"","options":["a","b"],"category":"fun"},
		{"title":"Too few","options":["a"," "],"category":"fun"},
		{"title":"Too many","options":["a","b","c","d","e"],"category":"fun"},
		{"title":"Bad category","options":["a","b"],"category":"gardening"},
		{"title":"Ok 2","options":["a","b"],"category":"science"}
	]}`
	client := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(toolCallResponse(args))
	})

	_, err := client.GenerateSuggestions(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrInvalidSuggestions)
	assert.Equal(t, http.StatusBadGateway, StatusFor(err))
}

func TestGenerate_StatusMapping(t *testing.T) {
	tests := []struct {
		status  int
		wantErr error
		code    int
	}{
		{http.StatusTooManyRequests, ErrRateLimited, http.StatusTooManyRequests},
		{http.StatusPaymentRequired, ErrPaymentRequired, http.StatusPaymentRequired},
		{http.StatusInternalServerError, ErrUpstream, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			calls := 0
			client := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			})

			_, err := client.GenerateSuggestions(context.Background(), "", "")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.code, StatusFor(err))

			_, err = client.GenerateImage(context.Background(), "cats")
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 2, calls, "single attempt per call")
		})
	}
}

func TestGenerate_NotConfigured(t *testing.T) {
	cfg := testConfig("http://unused")
	cfg.AIAPIKey = " "
	client := NewClient(cfg, nil)

	_, err := client.GenerateSuggestions(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, http.StatusServiceUnavailable, StatusFor(err))

	_, err = client.GenerateImage(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGenerateImage(t *testing.T) {
	client := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "image-model", body["model"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{
				"images": []any{map[string]any{"image_url": map[string]any{"url": "data:image/png;base64,AAAA"}}},
			}}},
		})
	})

	ref, err := client.GenerateImage(context.Background(), "a sunny beach")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AAAA", ref)
}

func TestGenerateImage_Missing(t *testing.T) {
	client := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"sorry"}}]}`))
	})
	_, err := client.GenerateImage(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrNoImage))
}

func TestChatEndpoint(t *testing.T) {
	assert.Equal(t, "https://gw/v1/chat/completions", chatEndpoint("https://gw/v1/"))
	assert.Equal(t, "https://gw/v1/chat/completions", chatEndpoint("https://gw/v1/chat/completions"))
	assert.Equal(t, "https://ai.gateway.lovable.dev/v1/chat/completions", chatEndpoint(""))
}

func TestUserPrompt(t *testing.T) {
	assert.Contains(t, userPrompt("all", ""), "global")
	assert.Contains(t, userPrompt("", "music"), "Focus on music topics.")
	assert.Contains(t, userPrompt("FR", ""), "relevant to FR")
}
