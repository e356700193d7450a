package qa

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formhive/form-agent/internal/common"
	"github.com/formhive/form-agent/internal/llm"
)

type stubChat struct {
	out     string
	err     error
	lastMsg []llm.Message
}

func (s *stubChat) Complete(ctx context.Context, msgs []llm.Message, temp float32) (string, error) {
	s.lastMsg = msgs
	return s.out, s.err
}

type stubRetriever struct {
	docs  []string
	err   error
	calls int
	lastK int
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	s.calls++
	s.lastK = k
	return s.docs, s.err
}

func TestAnswerUsesGivenContext(t *testing.T) {
	chat := &stubChat{out: "  John Doe  "}
	ret := &stubRetriever{}
	a := New(chat, ret, nil)

	got, err := a.Answer(context.Background(), "who is the patient", []string{"Patient Name: John Doe"})
	require.NoError(t, err)
	assert.Equal(t, "John Doe", got)
	assert.Zero(t, ret.calls, "explicit context skips retrieval")

	require.Len(t, chat.lastMsg, 2)
	assert.Equal(t, "system", chat.lastMsg[0].Role)
	assert.Contains(t, chat.lastMsg[1].Content, "Patient Name: John Doe")
	assert.Contains(t, chat.lastMsg[1].Content, "who is the patient")
}

func TestAnswerRetrievesWhenContextNil(t *testing.T) {
	ret := &stubRetriever{docs: []string{"chunk a", "chunk b"}}
	chat := &stubChat{out: "answer"}
	a := New(chat, ret, nil)

	_, err := a.Answer(context.Background(), "query", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ret.calls)
	assert.Equal(t, 3, ret.lastK)
	assert.Contains(t, chat.lastMsg[1].Content, "chunk a\n\nchunk b")
}

func TestAnswerPropagatesRetrievalError(t *testing.T) {
	a := New(&stubChat{}, &stubRetriever{err: common.ErrNoIndex}, nil)

	_, err := a.Answer(context.Background(), "query", nil)
	assert.ErrorIs(t, err, common.ErrNoIndex)
}

func TestAnswerPropagatesChatError(t *testing.T) {
	boom := errors.New("rate limited")
	a := New(&stubChat{err: boom}, &stubRetriever{}, nil)

	_, err := a.Answer(context.Background(), "query", []string{"ctx"})
	assert.ErrorIs(t, err, boom)
}
