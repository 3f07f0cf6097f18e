// Package llm provides the completion client used for classification,
// backed by a local Ollama server.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/parabrain-dev/parabrain/pkg/models"
)

// Defaults for the local model server.
const (
	DefaultHost  = "http://localhost:11434"
	DefaultModel = "llama3.2:latest"

	// Generation tolerates model cold start; health probes must stay fast.
	DefaultTimeout       = 30 * time.Second
	DefaultHealthTimeout = 5 * time.Second
)

// The three infrastructure error kinds callers must distinguish. All errors
// returned by the client wrap exactly one of these; check with errors.Is.
var (
	ErrServerUnavailable = errors.New("ollama server not running")
	ErrTimeout           = errors.New("ollama request timed out")
	ErrModelNotFound     = errors.New("ollama model not found")
)

// CompletionClient is the contract the classification core depends on.
// model overrides the client's default model for a single call; pass ""
// to use the default.
type CompletionClient interface {
	Chat(ctx context.Context, messages []models.ChatMessage, model string) (string, error)
}

// HealthStatus is the result of a server/model availability probe.
type HealthStatus struct {
	ServerRunning  bool
	ModelAvailable bool
	ModelName      string
	Ready          bool
	Error          string
}

// Client talks to a local Ollama instance over HTTP. It keeps two HTTP
// clients: a short-timeout one for liveness probes and a long-timeout one
// for generation, since cold-start latency is an order of magnitude slower
// than a liveness check.
type Client struct {
	host   string
	model  string
	gen    *http.Client
	health *http.Client
}

// NewClient creates a Client from config, filling unset fields with
// defaults.
func NewClient(cfg models.OllamaConfig) *Client {
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := DefaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	healthTimeout := DefaultHealthTimeout
	if cfg.HealthTimeoutSeconds > 0 {
		healthTimeout = time.Duration(cfg.HealthTimeoutSeconds) * time.Second
	}
	return &Client{
		host:   strings.TrimRight(host, "/"),
		model:  model,
		gen:    &http.Client{Timeout: timeout},
		health: &http.Client{Timeout: healthTimeout},
	}
}

// Model returns the client's default model name.
func (c *Client) Model() string {
	return c.model
}

type chatRequest struct {
	Model    string               `json:"model"`
	Messages []models.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
}

type chatResponse struct {
	Message models.ChatMessage `json:"message"`
	Error   string             `json:"error,omitempty"`
}

// Chat sends role-tagged messages and returns the generated text. Failures
// wrap ErrServerUnavailable, ErrTimeout, or ErrModelNotFound.
func (c *Client) Chat(ctx context.Context, messages []models.ChatMessage, model string) (string, error) {
	if model == "" {
		model = c.model
	}

	body, err := json.Marshal(chatRequest{Model: model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshalling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.gen.Do(req)
	if err != nil {
		return "", c.classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("model %q not available (pull it with: ollama pull %s): %w", model, model, ErrModelNotFound)
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.classifyTransportError(err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(respBody)), ErrServerUnavailable)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ollama API error: %s: %w", parsed.Error, ErrServerUnavailable)
	}
	return parsed.Message.Content, nil
}

// classifyTransportError maps transport failures onto the typed error kinds.
// Timeouts are reported distinctly so callers can avoid alerting on
// transient cold-start latency.
func (c *Client) classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("request to %s timed out (model may be cold starting): %w", c.host, ErrTimeout)
	}
	return fmt.Errorf("cannot reach ollama at %s (start with: ollama serve): %w", c.host, ErrServerUnavailable)
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the names of models available on the server, using the
// short-timeout probe client.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("building tags request: %w", err)
	}

	resp, err := c.health.Do(req)
	if err != nil {
		return nil, c.classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d: %w", resp.StatusCode, ErrServerUnavailable)
	}

	var parsed tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding tags response: %w", err)
	}

	names := make([]string, 0, len(parsed.Models))
	for _, m := range parsed.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// IsModelAvailable reports whether the client's default model (or its
// untagged base name) is present on the server.
func (c *Client) IsModelAvailable(ctx context.Context) bool {
	names, err := c.ListModels(ctx)
	if err != nil {
		return false
	}
	base, _, _ := strings.Cut(c.model, ":")
	for _, name := range names {
		if strings.Contains(name, c.model) || strings.HasPrefix(name, base) {
			return true
		}
	}
	return false
}

// HealthCheck probes server and model availability.
func (c *Client) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{ModelName: c.model}

	if _, err := c.ListModels(ctx); err != nil {
		status.Error = "Ollama server not running. Start with: ollama serve"
		return status
	}
	status.ServerRunning = true

	if !c.IsModelAvailable(ctx) {
		status.Error = fmt.Sprintf("Model %q not found. Run: ollama pull %s", c.model, c.model)
		return status
	}
	status.ModelAvailable = true
	status.Ready = true
	return status
}
