package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"
)

// OpenRouter is a Provider backed by OpenRouter or any other
// OpenAI-compatible /chat/completions endpoint.
type OpenRouter struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
	logger     *log.Logger
}

// NewOpenRouter constructs an OpenRouter provider.
// endpoint example: https://openrouter.ai/api/v1
// apiKey falls back to OPENROUTER_API_KEY when empty.
func NewOpenRouter(endpoint, model, apiKey string, timeout time.Duration, logger *log.Logger) (*OpenRouter, error) {
	ep := strings.TrimSpace(endpoint)
	if ep == "" {
		ep = "https://openrouter.ai/api/v1"
	}
	key := strings.TrimSpace(apiKey)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))
	}
	if key == "" {
		return nil, fmt.Errorf("openrouter: apiKey required (set llm.api_key or OPENROUTER_API_KEY)")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &OpenRouter{
		endpoint:   strings.TrimRight(ep, "/"),
		model:      strings.TrimSpace(model),
		apiKey:     key,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

func (o *OpenRouter) Name() string { return "openrouter/" + o.model }

// Chat calls /chat/completions and returns the first choice.
func (o *OpenRouter) Chat(ctx context.Context, msgs []Message, maxTokens int) (string, error) {
	if o.model == "" {
		return "", fmt.Errorf("openrouter: model not configured")
	}

	type orReq struct {
		Model     string    `json:"model"`
		Messages  []Message `json:"messages"`
		MaxTokens int       `json:"max_tokens,omitempty"`
	}
	type orResp struct {
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}

	data, err := json.Marshal(orReq{Model: o.model, Messages: msgs, MaxTokens: maxTokens})
	if err != nil {
		return "", fmt.Errorf("openrouter: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("openrouter: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("X-Title", "AIOps Copilot Console")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openrouter: request error: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("openrouter: status %d: %s", resp.StatusCode, truncateString(string(body), 400))
	}

	var parsed orResp
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("openrouter: decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openrouter: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openrouter: empty choices")
	}
	return stripThinkingSections(parsed.Choices[0].Message.Content), nil
}

// ListModels queries /models and returns sorted model IDs.
func (o *OpenRouter) ListModels(ctx context.Context) ([]string, error) {
	type mdlResp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	body, err := o.getModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("openrouter list models: %w", err)
	}
	var parsed mdlResp
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("openrouter list models: decode: %w", err)
	}
	out := make([]string, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		if strings.TrimSpace(m.ID) != "" {
			out = append(out, m.ID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// HealthCheck performs a lightweight GET /models using the API key.
func (o *OpenRouter) HealthCheck(ctx context.Context) error {
	if _, err := o.getModels(ctx); err != nil {
		return fmt.Errorf("openrouter health: %w", err)
	}
	return nil
}

func (o *OpenRouter) getModels(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint+"/models", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncateString(string(body), 300))
	}
	return body, nil
}
