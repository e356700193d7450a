package ocr

import (
	"context"
	"log/slog"
	"strings"
)

// Chain tries a fixed sequence of text-extraction backends until one yields
// non-empty text. Ordering is cost-aware: the cheap local engines run first,
// the cloud service last.
type Chain struct {
	engines []Engine
	logger  *slog.Logger
}

func NewChain(logger *slog.Logger, engines ...Engine) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{engines: engines, logger: logger}
}

// ExtractText never fails: each backend is tried only if the previous one
// errored or produced empty output, and all-backends-failed yields "".
func (c *Chain) ExtractText(ctx context.Context, imagePath string) string {
	for _, e := range c.engines {
		if !e.Available() {
			c.logger.Debug("ocr.chain.skip", "engine", e.Name())
			continue
		}
		text, err := e.Recognize(ctx, imagePath)
		if err != nil {
			c.logger.Warn("ocr.chain.stage_failed", "engine", e.Name(), "error", err)
			continue
		}
		if strings.TrimSpace(text) != "" {
			c.logger.Info("ocr.chain.ok", "engine", e.Name(), "bytes", len(text))
			return text
		}
		c.logger.Debug("ocr.chain.empty", "engine", e.Name())
	}
	return ""
}
