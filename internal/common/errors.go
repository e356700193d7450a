package common

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks request errors the HTTP layer maps to 400.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoIndex is returned by retrieval before any index has been built.
	// This is a programming-sequence error, not a runtime condition callers
	// should recover from.
	ErrNoIndex = errors.New("no index available; build index first")
)

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
