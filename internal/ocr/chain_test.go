package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	name      string
	available bool
	text      string
	err       error
	calls     int
}

func (f *fakeEngine) Name() string    { return f.name }
func (f *fakeEngine) Available() bool { return f.available }
func (f *fakeEngine) Recognize(ctx context.Context, path string) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestChainFirstNonEmptyWins(t *testing.T) {
	neural := &fakeEngine{name: "easyocr", available: true, text: "hello from neural"}
	classical := &fakeEngine{name: "tesseract", available: true, text: "should not run"}
	cloud := &fakeEngine{name: "cloud-vision", available: true, text: "should not run"}
	chain := NewChain(nil, neural, classical, cloud)

	got := chain.ExtractText(context.Background(), "form.png")
	assert.Equal(t, "hello from neural", got)
	assert.Equal(t, 1, neural.calls)
	assert.Zero(t, classical.calls)
	assert.Zero(t, cloud.calls)
}

func TestChainSkipsDisabledEngineAndStopsAtClassical(t *testing.T) {
	// Disabled neural engine + classical producing text: cloud must not run.
	neural := &fakeEngine{name: "easyocr", available: false, text: "never"}
	classical := &fakeEngine{name: "tesseract", available: true, text: "X"}
	cloud := &fakeEngine{name: "cloud-vision", available: true, text: "never"}
	chain := NewChain(nil, neural, classical, cloud)

	got := chain.ExtractText(context.Background(), "form.png")
	assert.Equal(t, "X", got)
	assert.Zero(t, neural.calls)
	assert.Equal(t, 1, classical.calls)
	assert.Zero(t, cloud.calls)
}

func TestChainFallsThroughOnErrorAndEmpty(t *testing.T) {
	neural := &fakeEngine{name: "easyocr", available: true, err: errors.New("boom")}
	classical := &fakeEngine{name: "tesseract", available: true, text: "   \n"}
	cloud := &fakeEngine{name: "cloud-vision", available: true, text: "cloud text"}
	chain := NewChain(nil, neural, classical, cloud)

	got := chain.ExtractText(context.Background(), "form.png")
	assert.Equal(t, "cloud text", got)
	assert.Equal(t, 1, neural.calls)
	assert.Equal(t, 1, classical.calls)
	assert.Equal(t, 1, cloud.calls)
}

func TestChainAllFailReturnsEmpty(t *testing.T) {
	a := &fakeEngine{name: "a", available: true, err: errors.New("nope")}
	b := &fakeEngine{name: "b", available: true, text: ""}
	chain := NewChain(nil, a, b)

	require.Empty(t, chain.ExtractText(context.Background(), "form.png"))
}
