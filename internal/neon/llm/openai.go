package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/bdobrica/Neon/common/retry"
)

// OpenAIConfig configures the OpenAI-compatible adapter.
type OpenAIConfig struct {
	// APIKey is the bearer token for the API.
	APIKey string
	// BaseURL overrides the API endpoint (vLLM, llama.cpp server, Ollama's /v1).
	// Empty means the SDK default.
	BaseURL string
	// Model is used when Request.Model is empty.
	Model string
	// Policy controls retries. The zero value means DefaultTransportPolicy.
	Policy     TransportPolicy
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// OpenAI implements Provider using the chat completions API.
type OpenAI struct {
	cfg    OpenAIConfig
	client openai.Client
	logger *slog.Logger
}

// NewOpenAI returns a Provider backed by an OpenAI-compatible server. The
// SDK's own retries are disabled so only Policy applies.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	cfg.Policy = cfg.Policy.orDefault()
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAI{cfg: cfg, client: openai.NewClient(opts...), logger: logger}
}

// Chat sends a chat completion request. Only the top_p and temperature
// options are forwarded.
func (p *OpenAI) Chat(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toOpenAIMessages(req.Messages),
	}
	if v, ok := floatOption(req.Options, "top_p"); ok {
		params.TopP = openai.Float(v)
	}
	if v, ok := floatOption(req.Options, "temperature"); ok {
		params.Temperature = openai.Float(v)
	}

	start := time.Now()
	attempts := 0
	var completion *openai.ChatCompletion
	err := retry.Do(ctx, p.cfg.Policy.retryConfig(), func() error {
		attempts++
		c, err := p.client.Chat.Completions.New(ctx, params)
		if err != nil {
			err = fromOpenAIError(err)
			p.logger.Debug("llm: openai attempt failed", "attempt", attempts, "err", err)
			return err
		}
		completion = c
		return nil
	})
	if err != nil {
		return nil, classify("openai chat", err)
	}

	resp := &Response{
		Model:    completion.Model,
		Attempts: attempts,
		Latency:  time.Since(start),
	}
	if len(completion.Choices) > 0 {
		resp.Content = strings.TrimSpace(completion.Choices[0].Message.Content)
	}
	return resp, nil
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// fromOpenAIError maps SDK API errors onto StatusError so the transport
// policy can classify them.
func fromOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", &StatusError{StatusCode: apiErr.StatusCode}, err)
	}
	return err
}

func floatOption(opts map[string]any, key string) (float64, bool) {
	switch v := opts[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
