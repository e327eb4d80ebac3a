// Package llm asks a language model to explain detected incidents.
package llm

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Provider is a chat-completion backend.
type Provider interface {
	Name() string
	// Chat sends the conversation and returns the assistant reply with any
	// reasoning blocks removed.
	Chat(ctx context.Context, msgs []Message, maxTokens int) (string, error)
}

// Discovery is an optional capability a provider can implement to expose
// model listing and health checks.
type Discovery interface {
	ListModels(ctx context.Context) ([]string, error)
	HealthCheck(ctx context.Context) error
}

// Config selects and configures a provider.
type Config struct {
	Provider string        `mapstructure:"provider"` // "ollama" | "openrouter" | "" (disabled)
	Endpoint string        `mapstructure:"endpoint"`
	Model    string        `mapstructure:"model"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a provider is configured.
func (c Config) Enabled() bool {
	return normalize(c.Provider) != ""
}

// Build constructs a Provider from cfg.
func Build(cfg Config, logger *log.Logger) (Provider, error) {
	switch normalize(cfg.Provider) {
	case "ollama":
		p, err := NewOllama(cfg.Endpoint, cfg.Model, cfg.Timeout, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "openrouter":
		p, err := NewOpenRouter(cfg.Endpoint, cfg.Model, cfg.APIKey, cfg.Timeout, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "":
		return nil, fmt.Errorf("no LLM provider configured")
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}

// TryHealthCheck attempts a provider health check when supported.
func TryHealthCheck(ctx context.Context, p Provider) error {
	if d, ok := p.(Discovery); ok {
		return d.HealthCheck(ctx)
	}
	return nil
}

func normalize(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ollama":
		return "ollama"
	case "openrouter", "open_router":
		return "openrouter"
	case "", "none", "off":
		return ""
	default:
		return s
	}
}

func truncateString(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

var (
	reThink    = regexp.MustCompile(`(?is)<\s*think\s*>.*?<\s*/\s*think\s*>`)
	reThinking = regexp.MustCompile(`(?is)<\s*thinking\s*>.*?<\s*/\s*thinking\s*>`)
)

// stripThinkingSections removes <think>...</think> and <thinking>...</thinking>
// blocks from model output.
func stripThinkingSections(s string) string {
	if s == "" {
		return s
	}
	s = reThink.ReplaceAllString(s, "")
	s = reThinking.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
