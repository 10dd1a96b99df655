// Package invoker defines the Upstream Invoker contract: the boundary
// between the gateway's routing/retry logic and an actual LLM provider
// call. Grounded on the teacher's openaicompat.Provider
// (agentflow/llm/providers/openaicompat/provider.go) for the stdlib
// net/http client shape and on providers.MapHTTPError
// (agentflow/llm/providers/common.go) for status-code classification, here
// narrowed to the gateway's closed arberrors.Kind taxonomy.
package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/CoReason-AI/coreason-arbitrage/arberrors"
	"github.com/CoReason-AI/coreason-arbitrage/model"
)

// Invoker calls a specific model and returns its completion. Implementations
// must classify failures into arberrors.Kind rather than returning bare
// errors: the Executor relies on Kind to decide whether to record a Health
// Tracker failure, exclude the provider, and retry.
type Invoker interface {
	Invoke(ctx context.Context, def model.Definition, messages []model.Message) (*model.Response, error)
}

// HTTPInvoker is a reference Invoker for OpenAI-compatible chat completion
// endpoints, using only the standard library's net/http client.
type HTTPInvoker struct {
	client  *http.Client
	baseURL func(def model.Definition) string
	apiKey  func(def model.Definition) string
	logger  *zap.Logger
}

// Option configures an HTTPInvoker at construction time.
type Option func(*HTTPInvoker)

// WithTimeout overrides the default 30s HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTPInvoker) { h.client.Timeout = d }
}

// WithBaseURL overrides how a model.Definition resolves to a base URL.
// Defaults to the model's Provider field treated as a ready-to-use base URL.
func WithBaseURL(fn func(model.Definition) string) Option {
	return func(h *HTTPInvoker) { h.baseURL = fn }
}

// WithAPIKey supplies the function used to resolve a per-definition API key.
func WithAPIKey(fn func(model.Definition) string) Option {
	return func(h *HTTPInvoker) { h.apiKey = fn }
}

// New creates an HTTPInvoker with a 30s timeout.
func New(logger *zap.Logger, opts ...Option) *HTTPInvoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &HTTPInvoker{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: func(d model.Definition) string { return d.Provider },
		apiKey:  func(model.Definition) string { return "" },
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Invoke posts messages to def's chat completions endpoint and maps the HTTP
// response into a model.Response, or a classified *arberrors.Error.
func (h *HTTPInvoker) Invoke(ctx context.Context, def model.Definition, messages []model.Message) (*model.Response, error) {
	body := chatRequest{Model: def.ID}
	for _, m := range messages {
		body.Messages = append(body.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, arberrors.Wrap(arberrors.KindClient, "encode request", err).WithProvider(def.Provider)
	}

	url := h.baseURL(def) + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, arberrors.Wrap(arberrors.KindClient, "build request", err).WithProvider(def.Provider)
	}
	req.Header.Set("Content-Type", "application/json")
	if key := h.apiKey(def); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, classifyContextError(ctxErr).WithProvider(def.Provider)
		}
		return nil, arberrors.Wrap(arberrors.KindConnection, "request failed", err).WithProvider(def.Provider)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg := readErrorMessage(resp.Body, resp.StatusCode)
		return nil, mapHTTPError(resp.StatusCode, msg, def.Provider)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, arberrors.Wrap(arberrors.KindClient, "decode response", err).WithProvider(def.Provider)
	}
	if len(out.Choices) == 0 {
		return nil, arberrors.New(arberrors.KindClient, "empty choices").WithProvider(def.Provider)
	}

	return &model.Response{
		ID:       out.ID,
		ModelID:  def.ID,
		Provider: def.Provider,
		Content:  out.Choices[0].Message.Content,
		Usage: model.Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
		},
		CreatedAt: time.Now(),
	}, nil
}

// mapHTTPError classifies an upstream HTTP failure into the gateway's closed
// error taxonomy. Only rate-limit and clear availability failures are
// treated as "availability" kinds; everything else is a client error that
// consumes a retry attempt without touching the Health Tracker.
func mapHTTPError(status int, msg string, provider string) *arberrors.Error {
	switch status {
	case http.StatusTooManyRequests:
		return arberrors.New(arberrors.KindRateLimit, msg).WithProvider(provider)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return arberrors.New(arberrors.KindServiceUnavailable, msg).WithProvider(provider)
	default:
		if status >= 500 {
			return arberrors.New(arberrors.KindServiceUnavailable, msg).WithProvider(provider)
		}
		return arberrors.New(arberrors.KindClient, msg).WithProvider(provider)
	}
}

// classifyContextError distinguishes a caller-side cancellation from a
// deadline exceeded while the upstream call was in flight. Both are
// KindCancelled: never retried, never counted against the Health Tracker.
func classifyContextError(ctxErr error) *arberrors.Error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return arberrors.Wrap(arberrors.KindCancelled, "request deadline exceeded", ctxErr)
	}
	return arberrors.Wrap(arberrors.KindCancelled, "request cancelled", ctxErr)
}

func readErrorMessage(body io.Reader, status int) string {
	data, err := io.ReadAll(body)
	if err != nil {
		return "failed to read error response"
	}
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &errResp) == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return fmt.Sprintf("status %d %s", status, http.StatusText(status))
}
