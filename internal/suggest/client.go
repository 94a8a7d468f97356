// Package suggest talks to an OpenAI-compatible chat-completions gateway to
// draft surveys and illustrative images. Model output is treated as
// untrusted input and validated before use.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"pulsevote/internal/config"
	"pulsevote/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const toolName = "generate_surveys"

const systemPrompt = `You are a creative survey suggestion generator for a community polling platform called PulseVote.
Generate engaging, thought-provoking survey questions that will spark discussion and get people voting.

Rules:
- Generate 5 diverse survey suggestions
- Each survey should have 2-4 answer options
- Mix serious topics with fun/entertaining ones
- Include current events, everyday objects, trending topics, and fun scenarios
- Make questions relevant to the specified country/region when provided
- Keep questions neutral and non-offensive
- Include a brief image description for each survey (for AI image generation)
- category must be one of: cooking, sports, politics, relationships, scandals, music, spirituality, science, fun`

// HTTPClient is the subset of *http.Client the bridge needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the generation gateway. It makes a single attempt per call.
type Client struct {
	http       HTTPClient
	endpoint   string
	apiKey     string
	textModel  string
	imageModel string
}

// NewClient builds a bridge client from config. A nil httpClient gets a
// default client bounded by AI_TIMEOUT_SECONDS.
func NewClient(cfg *config.Config, httpClient HTTPClient) *Client {
	if httpClient == nil {
		timeout := time.Duration(cfg.AITimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		http:       httpClient,
		endpoint:   chatEndpoint(cfg.AIBaseURL),
		apiKey:     strings.TrimSpace(cfg.AIAPIKey),
		textModel:  cfg.AITextModel,
		imageModel: cfg.AIImageModel,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

func chatEndpoint(base string) string {
	endpoint := strings.TrimRight(strings.TrimSpace(base), "/")
	if endpoint == "" {
		endpoint = "https://ai.gateway.lovable.dev/v1"
	}
	if strings.HasSuffix(endpoint, "/chat/completions") {
		return endpoint
	}
	return endpoint + "/chat/completions"
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
			Images []struct {
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
	} `json:"choices"`
}

func suggestionTool() map[string]any {
	str := map[string]any{"type": "string"}
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        toolName,
			"description": "Generate survey suggestions with options and image prompts",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"suggestions": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"title":       str,
								"description": str,
								"options":     map[string]any{"type": "array", "items": str},
								"imagePrompt": str,
								"category":    str,
							},
							"required": []string{"title", "description", "options", "imagePrompt", "category"},
						},
					},
				},
				"required": []string{"suggestions"},
			},
		},
	}
}

// userPrompt targets a region and optional category. An empty region or
// "all" asks for global suggestions.
func userPrompt(region, topic string) string {
	region = strings.TrimSpace(region)
	topic = strings.TrimSpace(topic)
	focus := "Mix different categories including news, everyday items, trends, and fun topics."
	if topic != "" {
		focus = fmt.Sprintf("Focus on %s topics.", topic)
	}
	if region == "" || strings.EqualFold(region, "all") {
		return "Generate 5 global survey suggestions. " + focus
	}
	return fmt.Sprintf("Generate 5 survey suggestions relevant to %s. %s", region, focus)
}

// GenerateSuggestions returns exactly five validated drafts.
func (c *Client) GenerateSuggestions(ctx context.Context, region, topic string) ([]Draft, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	ctx, span := observability.GetTraceLayer().TraceGeneration(ctx, "suggestions", c.textModel)
	defer span.End()
	span.SetAttributes(attribute.String("ai.region", region), attribute.String("ai.topic", topic))

	payload := map[string]any{
		"model": c.textModel,
		"messages": []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(region, topic)},
		},
		"tools":       []any{suggestionTool()},
		"tool_choice": map[string]any{"type": "function", "function": map[string]string{"name": toolName}},
	}

	resp, err := c.complete(ctx, "suggestions", payload)
	if err != nil {
		observability.Fail(span, err)
		return nil, err
	}

	raw, err := extractDrafts(resp)
	if err != nil {
		observability.GenerationRequestsTotal.WithLabelValues("suggestions", "invalid").Inc()
		observability.Fail(span, err)
		return nil, err
	}
	drafts, err := validDrafts(raw)
	if err != nil {
		observability.GenerationRequestsTotal.WithLabelValues("suggestions", "invalid").Inc()
		observability.GlobalLogger.WarnContext(ctx, "generated drafts failed validation",
			slog.Int("received", len(raw)))
		return nil, err
	}
	observability.GenerationRequestsTotal.WithLabelValues("suggestions", "success").Inc()
	return drafts, nil
}

// GenerateImage returns the image reference the model produced, usually a
// base64 data URL.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	ctx, span := observability.GetTraceLayer().TraceGeneration(ctx, "image", c.imageModel)
	defer span.End()

	payload := map[string]any{
		"model": c.imageModel,
		"messages": []message{{
			Role: "user",
			Content: fmt.Sprintf("Generate a vibrant, engaging image for a survey/poll about: %s. "+
				"Make it colorful, modern, and suitable for a social media platform. "+
				"The image should be eye-catching and relevant to the topic.", strings.TrimSpace(prompt)),
		}},
		"modalities": []string{"image", "text"},
	}

	resp, err := c.complete(ctx, "image", payload)
	if err != nil {
		observability.Fail(span, err)
		return "", err
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.Images) == 0 ||
		resp.Choices[0].Message.Images[0].ImageURL.URL == "" {
		observability.GenerationRequestsTotal.WithLabelValues("image", "invalid").Inc()
		return "", ErrNoImage
	}
	observability.GenerationRequestsTotal.WithLabelValues("image", "success").Inc()
	return resp.Choices[0].Message.Images[0].ImageURL.URL, nil
}

func (c *Client) complete(ctx context.Context, kind string, payload map[string]any) (*chatResponse, error) {
	start := time.Now()
	defer func() {
		observability.GenerationLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		observability.GenerationRequestsTotal.WithLabelValues(kind, "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.GenerationRequestsTotal.WithLabelValues(kind, "error").Inc()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		observability.GlobalLogger.ErrorContext(ctx, "ai gateway error",
			slog.String("kind", kind),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(snippet)),
		)
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return nil, ErrRateLimited
		case http.StatusPaymentRequired:
			return nil, ErrPaymentRequired
		}
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	return &out, nil
}

var (
	jsonArrayPattern  = regexp.MustCompile(`(?s)\[.*\]`)
	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

type suggestionEnvelope struct {
	Suggestions []rawDraft `json:"suggestions"`
}

// extractDrafts reads the forced tool call, falling back to JSON embedded in
// plain content.
func extractDrafts(resp *chatResponse) ([]rawDraft, error) {
	if len(resp.Choices) == 0 {
		return nil, ErrInvalidSuggestions
	}
	msg := resp.Choices[0].Message
	for _, call := range msg.ToolCalls {
		if call.Function.Arguments == "" {
			continue
		}
		var env suggestionEnvelope
		if err := json.Unmarshal([]byte(call.Function.Arguments), &env); err == nil {
			return env.Suggestions, nil
		}
	}
	return parseContent(msg.Content)
}

func parseContent(content string) ([]rawDraft, error) {
	if m := jsonObjectPattern.FindString(content); m != "" {
		var env suggestionEnvelope
		if err := json.Unmarshal([]byte(m), &env); err == nil && len(env.Suggestions) > 0 {
			return env.Suggestions, nil
		}
	}
	if m := jsonArrayPattern.FindString(content); m != "" {
		var drafts []rawDraft
		if err := json.Unmarshal([]byte(m), &drafts); err == nil {
			return drafts, nil
		}
	}
	return nil, ErrInvalidSuggestions
}
