// Package qa generates grounded answers over retrieved form context.
//
// Unlike the other adapters, remote-call failures propagate to the caller:
// there is no local fallback for question answering.
package qa

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/formhive/form-agent/internal/llm"
)

// Retriever supplies context chunks for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

// Agent answers questions using retrieval-augmented generation.
type Agent struct {
	chat      llm.ChatClient
	retriever Retriever
	logger    *slog.Logger
}

func New(chat llm.ChatClient, retriever Retriever, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{chat: chat, retriever: retriever, logger: logger}
}

// Answer generates an answer for the query. A nil contextDocs means "retrieve
// it for me" (top 3); retrieval state errors and remote-call errors both
// propagate unmodified.
func (a *Agent) Answer(ctx context.Context, query string, contextDocs []string) (string, error) {
	if contextDocs == nil {
		var err error
		contextDocs, err = a.retriever.Retrieve(ctx, query, 3)
		if err != nil {
			return "", err
		}
	}
	contextText := strings.Join(contextDocs, "\n\n")

	prompt := fmt.Sprintf(`You are an intelligent healthcare form QA agent.
Use the provided context to answer accurately and clearly.

Context:
%s

Question:
%s

Please provide a concise factual answer.`, contextText, query)

	msgs := []llm.Message{
		llm.System("You are an expert in healthcare document QA."),
		llm.User(prompt),
	}
	answer, err := a.chat.Complete(ctx, msgs, 0.2)
	if err != nil {
		return "", err
	}
	a.logger.Info("qa.answered", "query_len", len(query), "context_chunks", len(contextDocs))
	return strings.TrimSpace(answer), nil
}
