package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formhive/form-agent/internal/llm"
)

func newStub(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	c := NewClient(Config{APIKey: "sk-test", BaseURL: ts.URL, Model: "gpt-4o-mini"}, nil)
	return c, ts
}

func TestCompleteReturnsFirstChoiceTrimmed(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	c, _ := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "  John Doe \n"}},
			},
		})
	})

	got, err := c.Complete(context.Background(), []llm.Message{llm.User("who")}, 0.2)
	require.NoError(t, err)
	assert.Equal(t, "John Doe", got)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotBody["model"])
	assert.InDelta(t, 0.2, gotBody["temperature"], 1e-6)
}

func TestCompleteNoChoicesIsError(t *testing.T) {
	c, _ := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})
	_, err := c.Complete(context.Background(), []llm.Message{llm.User("q")}, 0)
	assert.Error(t, err)
}

func TestCompleteNon2xxIsError(t *testing.T) {
	c, _ := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	})
	_, err := c.Complete(context.Background(), []llm.Message{llm.User("q")}, 0)
	assert.ErrorContains(t, err, "non-2xx")
}

func TestEmbedBatchOrderPreserved(t *testing.T) {
	c, _ := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"embedding": []float32{float32(i), 1}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	})

	vecs, err := c.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, []float32{2, 1}, vecs[2])
}

func TestEmbedQuerySingleVector(t *testing.T) {
	c, _ := newStub(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.5, -0.5}}},
		})
	})

	vec, err := c.EmbedQuery(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -0.5}, vec)
}
