// Package extractor defines the OCR capability boundary. The pipeline only
// depends on the interface; engine internals are a deployment concern.
package extractor

import (
	"context"
	"fmt"

	"talanta/internal/verification/models"
)

// Extractor turns document bytes into ordered text fragments. Unreadable
// input yields an empty slice, never an error: missing text surfaces as
// validation issues downstream, not as a pipeline failure.
type Extractor interface {
	// Name identifies the engine for logging and the raw OCR payload.
	Name() string
	Extract(ctx context.Context, data []byte) []models.Fragment
}

// ForMode builds the extractor named by the configured OCR mode.
func ForMode(mode string) (Extractor, error) {
	switch mode {
	case "stub":
		return NewStub(), nil
	default:
		return nil, fmt.Errorf("unknown ocr mode %q", mode)
	}
}
