// Package llm provides a client for the chat completion service used to score candidates.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"adjunct-search-go/internal/config"
	"adjunct-search-go/pkg/log"
)

// Client defines the interface for an LLM client.
type Client interface {
	// CompleteJSON sends system + user messages and returns the raw text of the first
	// choice. The service is asked for a JSON object but the text is not validated here.
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

// ErrorKind classifies a failed invocation.
type ErrorKind string

const (
	KindAuth        ErrorKind = "auth"
	KindRateLimit   ErrorKind = "rate_limit"
	KindTimeout     ErrorKind = "timeout"
	KindUnavailable ErrorKind = "unavailable"
)

// APIError wraps an invocation failure with its kind.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm %s: %v", e.Kind, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// Classify maps any error returned by the SDK or the transport to an ErrorKind.
func Classify(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	var sdkErr *openai.Error
	if errors.As(err, &sdkErr) {
		return kindForStatus(sdkErr.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindUnavailable
}

func kindForStatus(code int) ErrorKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusTooManyRequests:
		return KindRateLimit
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout
	default:
		return KindUnavailable
	}
}

type openAIClient struct {
	cfg    config.LLMConfig
	client openai.Client
}

// NewClient creates a new LLM client based on the provider in the config.
func NewClient(cfg config.LLMConfig) Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &openAIClient{cfg: cfg, client: openai.NewClient(opts...)}
}

func (c *openAIClient) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(c.cfg.Generation.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if c.cfg.Generation.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.cfg.Generation.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		kind := Classify(err)
		log.Warnf("[LLMClient] 调用补全接口失败, kind: %s, error: %v", kind, err)
		apiErr := &APIError{Kind: kind, Err: err}
		var sdkErr *openai.Error
		if errors.As(err, &sdkErr) {
			apiErr.StatusCode = sdkErr.StatusCode
		}
		return "", apiErr
	}
	if len(resp.Choices) == 0 {
		return "", &APIError{Kind: KindUnavailable, Err: errors.New("response contained no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}
