package ocr

import "context"

// Engine is a single text-recognition backend.
//
// Recognize returns the recognized text, which may legitimately be empty for
// a blank image. Engines report transient problems through the error return;
// the chain and the document loader decide whether to fall through.
type Engine interface {
	Name() string
	// Available reports whether the engine can be invoked at all
	// (binary present, credentials configured, not disabled).
	Available() bool
	Recognize(ctx context.Context, imagePath string) (string, error)
}
