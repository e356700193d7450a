package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// EasyOCREngine shells out to the easyocr CLI in paragraph mode and joins the
// recognized lines. It is the first, cheapest backend of the chain and can be
// switched off entirely with DISABLE_EASYOCR.
type EasyOCREngine struct {
	bin      string
	lang     string
	disabled bool
	runner   Runner
	logger   *slog.Logger

	lookPath func(string) (string, error)
	once     sync.Once
	found    bool
}

func NewEasyOCREngine(bin, lang string, disabled bool, runner Runner, logger *slog.Logger) *EasyOCREngine {
	if bin == "" {
		bin = "easyocr"
	}
	if lang == "" {
		lang = "en"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EasyOCREngine{
		bin:      bin,
		lang:     lang,
		disabled: disabled,
		runner:   runner,
		logger:   logger,
		lookPath: exec.LookPath,
	}
}

func (e *EasyOCREngine) Name() string { return "easyocr" }

func (e *EasyOCREngine) Available() bool {
	if e.disabled {
		return false
	}
	e.once.Do(func() {
		_, err := e.lookPath(e.bin)
		e.found = err == nil
		if !e.found {
			e.logger.Info("ocr.easyocr.unavailable", "bin", e.bin)
		}
	})
	return e.found
}

// Recognize runs: easyocr -l <lang> --detail 0 --paragraph True -f <image>
func (e *EasyOCREngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	out, errb, err := e.runner.Run(ctx, e.bin,
		"-l", e.lang, "--detail", "0", "--paragraph", "True", "-f", imagePath)
	if err != nil {
		return "", fmt.Errorf("easyocr: %w (%s)", err, truncate(string(errb), 512))
	}

	var lines []string
	for _, ln := range strings.Split(string(out), "\n") {
		if s := strings.TrimSpace(ln); s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n"), nil
}
