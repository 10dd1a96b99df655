package main

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/CoReason-AI/coreason-arbitrage/arberrors"
	"github.com/CoReason-AI/coreason-arbitrage/model"
)

// completionsExecutor is the subset of executor.Executor the HTTP handler
// needs, declared here so this adapter layer doesn't otherwise depend on the
// executor package's internals.
type completionsExecutor interface {
	Create(ctx context.Context, messages []model.Message, userID string) (*model.Response, error)
}

// chatRequest is the wire shape accepted by /v1/chat/completions.
type chatRequest struct {
	UserID   string          `json:"user_id"`
	Messages []chatMessageIn `json:"messages"`
}

type chatMessageIn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseOut struct {
	ID       string `json:"id"`
	ModelID  string `json:"model_id"`
	Provider string `json:"provider"`
	Content  string `json:"content"`
	Usage    struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// newCompletionsHandler adapts HTTP requests onto Executor.Create. It is the
// only place in this binary that knows about JSON wire shapes; the core
// packages never do.
func newCompletionsHandler(exec completionsExecutor, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var in chatRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		messages := make([]model.Message, 0, len(in.Messages))
		for _, m := range in.Messages {
			messages = append(messages, model.Message{Role: model.Role(m.Role), Content: m.Content})
		}

		resp, err := exec.Create(req.Context(), messages, in.UserID)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		out := chatResponseOut{ID: resp.ID, ModelID: resp.ModelID, Provider: resp.Provider, Content: resp.Content}
		out.Usage.PromptTokens = resp.Usage.PromptTokens
		out.Usage.CompletionTokens = resp.Usage.CompletionTokens

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	})
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status := http.StatusBadGateway
	kind := arberrors.KindOf(err)
	if kind == arberrors.KindBudgetExceeded || kind == arberrors.KindBudgetUnavailable {
		status = http.StatusTooManyRequests
	}
	logger.Warn("request failed", zap.Error(err))
	http.Error(w, err.Error(), status)
}
