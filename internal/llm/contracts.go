package llm

import "context"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatClient is the completion interface the adapters depend on.
type ChatClient interface {
	// Complete sends the conversation and returns the trimmed assistant text.
	Complete(ctx context.Context, messages []Message, temperature float32) (string, error)
}

// Embedder computes embedding vectors for texts.
//
// The index layer uses Embed for the initial batch build and EmbedQuery for
// incremental adds and query-time embedding; the two are observably different
// API usages and are kept separate on purpose.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

func System(content string) Message { return Message{Role: "system", Content: content} }
func User(content string) Message   { return Message{Role: "user", Content: content} }
