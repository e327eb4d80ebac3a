package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 60 * time.Second

// Ollama is a Provider backed by a local Ollama server.
type Ollama struct {
	endpoint   string
	model      string
	httpClient *http.Client
	logger     *log.Logger
}

// NewOllama constructs an Ollama provider.
// endpoint example: http://localhost:11434
// model example: qwen3:0.6b
func NewOllama(endpoint, model string, timeout time.Duration, logger *log.Logger) (*Ollama, error) {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = "http://localhost:11434"
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("ollama: model is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Ollama{
		endpoint:   strings.TrimRight(endpoint, "/"),
		model:      strings.TrimSpace(model),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

func (o *Ollama) Name() string { return "ollama/" + o.model }

// Chat sends a non-streaming request to /api/chat.
func (o *Ollama) Chat(ctx context.Context, msgs []Message, maxTokens int) (string, error) {
	type chatReq struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
		Stream   bool      `json:"stream"`
		Format   string    `json:"format,omitempty"`
		Options  struct {
			NumPredict int `json:"num_predict,omitempty"`
		} `json:"options"`
	}
	type chatResp struct {
		Message Message `json:"message"`
		Error   string  `json:"error,omitempty"`
	}

	payload := chatReq{Model: o.model, Messages: msgs, Format: "json"}
	payload.Options.NumPredict = maxTokens
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ollama: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("ollama: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama: request error: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("ollama: status %d: %s", resp.StatusCode, truncateString(string(body), 300))
	}

	var cr chatResp
	if err := json.Unmarshal(body, &cr); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	if cr.Error != "" {
		return "", fmt.Errorf("ollama: %s", cr.Error)
	}
	return stripThinkingSections(cr.Message.Content), nil
}

// ListModels queries /api/tags and returns available model names.
func (o *Ollama) ListModels(ctx context.Context) ([]string, error) {
	type tagsResp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}

	body, err := o.getTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("ollama list models: %w", err)
	}
	var tr tagsResp
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("ollama list models: decode: %w", err)
	}
	out := make([]string, 0, len(tr.Models))
	for _, m := range tr.Models {
		if strings.TrimSpace(m.Name) != "" {
			out = append(out, m.Name)
		}
	}
	return out, nil
}

// HealthCheck performs a lightweight check against /api/tags.
func (o *Ollama) HealthCheck(ctx context.Context) error {
	if _, err := o.getTags(ctx); err != nil {
		return fmt.Errorf("ollama health: %w", err)
	}
	return nil
}

func (o *Ollama) getTags(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.endpoint+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncateString(string(body), 200))
	}
	return body, nil
}
