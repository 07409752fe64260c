package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"EthNews/internal/config"
	"EthNews/internal/ports"
)

// OllamaClient talks to a local Ollama server through /api/generate.
type OllamaClient struct {
	baseURL string
	model   string
	http    *http.Client
}

var _ ports.TextGenerator = (*OllamaClient)(nil)

// NewOllamaClient creates a reusable HTTP client.
func NewOllamaClient(cfg config.OllamaConfig) *OllamaClient {
	return &OllamaClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *OllamaClient) Name() string { return config.ProviderOllama }

// Generate requests a single non-streamed completion.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.baseURL == "" || c.model == "" {
		return "", fmt.Errorf("ollama client misconfigured")
	}

	payload := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
	}

	var resp struct {
		Response string `json:"response"`
	}
	if err := postJSON(ctx, c.http, c.baseURL+"/api/generate", "", payload, &resp); err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}

	return strings.TrimSpace(resp.Response), nil
}
