package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/redbco/askdata/pkg/dbcapabilities"
	"github.com/redbco/askdata/pkg/logger"
)

// OllamaConfig holds configuration options for the primary tier.
type OllamaConfig struct {
	// BaseURL is the Ollama API base URL (default: http://127.0.0.1:11434)
	BaseURL string

	// HealthTimeout bounds the liveness probe (default: 5s)
	HealthTimeout time.Duration

	// GenerateTimeout bounds a generation request (default: 60s)
	GenerateTimeout time.Duration

	// Models maps each query paradigm to the Ollama model serving it.
	Models map[dbcapabilities.DataParadigm]string
}

// DefaultOllamaConfig returns the default primary-tier configuration.
func DefaultOllamaConfig() *OllamaConfig {
	return &OllamaConfig{
		BaseURL:         "http://127.0.0.1:11434",
		HealthTimeout:   5 * time.Second,
		GenerateTimeout: 60 * time.Second,
		Models: map[dbcapabilities.DataParadigm]string{
			dbcapabilities.ParadigmRelational: "qwen-text2sql:latest",
			dbcapabilities.ParadigmDocument:   "qwen-text2mongo:latest",
			dbcapabilities.ParadigmTabular:    "qwen-text2pandas:latest",
		},
	}
}

// OllamaClient is the primary generation tier, backed by a locally hosted
// Ollama server. It is safe for concurrent use.
type OllamaClient struct {
	config     *OllamaConfig
	httpClient *http.Client
	logger     *logger.Logger
}

// NewOllamaClient creates a primary-tier client. A nil config selects
// defaults; zero fields are filled in.
func NewOllamaClient(config *OllamaConfig, log *logger.Logger) *OllamaClient {
	if config == nil {
		config = DefaultOllamaConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:11434"
	}
	if config.HealthTimeout == 0 {
		config.HealthTimeout = 5 * time.Second
	}
	if config.GenerateTimeout == 0 {
		config.GenerateTimeout = 60 * time.Second
	}
	if config.Models == nil {
		config.Models = DefaultOllamaConfig().Models
	}

	return &OllamaClient{
		config:     config,
		httpClient: &http.Client{},
		logger:     log,
	}
}

// Name identifies the tier in outcomes.
func (c *OllamaClient) Name() string { return "ollama" }

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

// Healthy reports whether the Ollama server answers its tags endpoint
// within the health timeout.
func (c *OllamaClient) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.config.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("ollama health check failed: %v", err)
		}
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Generate produces a query with the paradigm's model. Any transport or
// server failure resolves to ok=false so the caller moves to the next tier.
func (c *OllamaClient) Generate(ctx context.Context, genReq Request) (string, bool) {
	if !c.Healthy(ctx) {
		return "", false
	}

	model, ok := c.config.Models[genReq.Paradigm]
	if !ok {
		if c.logger != nil {
			c.logger.Error("no ollama model configured for paradigm %s", genReq.Paradigm)
		}
		return "", false
	}

	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  model,
		Prompt: PromptFor(genReq),
		Stream: false,
		Options: ollamaOptions{
			Temperature: 0.1, // low temperature for deterministic query text
			TopP:        0.9,
			NumPredict:  512,
		},
	})
	if err != nil {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.GenerateTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("ollama request failed: %v", err)
		}
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if c.logger != nil {
			c.logger.Error("ollama request failed: %s", resp.Status)
		}
		return "", false
	}

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", false
	}

	out := strings.TrimSpace(result.Response)
	return out, out != ""
}
