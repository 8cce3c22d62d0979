package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/bdobrica/Neon/common/retry"
)

const (
	defaultOllamaBase = "http://localhost:11434"
	pingTimeout       = time.Second
)

// OllamaConfig configures the native Ollama adapter.
type OllamaConfig struct {
	// BaseURL is the Ollama server root. Defaults to http://localhost:11434.
	BaseURL string
	// Model is used when Request.Model is empty.
	Model string
	// Policy controls retries. The zero value means DefaultTransportPolicy.
	Policy TransportPolicy
	// HTTPClient overrides the client (tests). It should not set a Timeout;
	// the caller's context bounds each call.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Ollama implements Provider against Ollama's /api/chat endpoint.
type Ollama struct {
	cfg    OllamaConfig
	client *http.Client
	logger *slog.Logger
}

// NewOllama returns a Provider backed by a local Ollama server.
func NewOllama(cfg OllamaConfig) *Ollama {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaBase
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.Policy = cfg.Policy.orDefault()
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Ollama{cfg: cfg, client: client, logger: logger}
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

// Chat sends a non-streaming chat request. The reply is read from
// message.content; a missing field yields an empty Content, not an error.
func (o *Ollama) Chat(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = o.cfg.Model
	}
	data, err := json.Marshal(ollamaChatRequest{
		Model:    model,
		Messages: req.Messages,
		Stream:   false,
		Options:  req.Options,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	start := time.Now()
	attempts := 0
	var body []byte
	err = retry.Do(ctx, o.cfg.Policy.retryConfig(), func() error {
		attempts++
		b, err := o.post(ctx, "/api/chat", data)
		if err != nil {
			o.logger.Debug("llm: ollama attempt failed", "attempt", attempts, "err", err)
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, classify("ollama chat", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("llm: ollama chat: invalid JSON response")
	}

	parsed := gjson.ParseBytes(body)
	if msg := parsed.Get("error"); msg.Exists() {
		return nil, fmt.Errorf("llm: ollama chat: %s", msg.String())
	}
	resp := &Response{
		Content:  strings.TrimSpace(parsed.Get("message.content").String()),
		Model:    parsed.Get("model").String(),
		Attempts: attempts,
		Latency:  time.Since(start),
	}
	o.logger.Debug("llm: ollama reply",
		"model", resp.Model,
		"attempts", attempts,
		"latency_ms", resp.Latency.Milliseconds(),
		"chars", len(resp.Content),
	)
	return resp, nil
}

func (o *Ollama) post(ctx context.Context, path string, data []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncateBody(body)}
	}
	return body, nil
}

// Ping checks that the server answers /api/tags within one second.
func (o *Ollama) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("llm: ping: %w", err)
	}
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return classify("ping", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("llm: ping: %w", &StatusError{StatusCode: resp.StatusCode})
	}
	return nil
}
