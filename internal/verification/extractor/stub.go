package extractor

import (
	"context"
	"strings"
	"unicode/utf8"

	"talanta/internal/verification/models"
)

// stubConfidence is the fixed confidence attached to stub fragments. Real
// engines report per-fragment scores; the stub's single value makes its
// output unmistakable in stored OCR payloads.
const stubConfidence = 0.99

// Stub is the capability-absent extractor. It treats the document bytes as
// plain UTF-8 text and returns one fragment per non-empty line, with a fixed
// confidence and a zero bounding box. Binary input (a real scan with no OCR
// engine deployed) degrades to an empty result.
//
// This keeps the whole pipeline exercisable in tests and MVP deployments:
// feed it the text a real scan would OCR to and every downstream stage runs
// unchanged.
type Stub struct{}

func NewStub() *Stub { return &Stub{} }

func (s *Stub) Name() string { return "stub" }

func (s *Stub) Extract(_ context.Context, data []byte) []models.Fragment {
	if len(data) == 0 || !utf8.Valid(data) {
		return nil
	}
	text := string(data)
	if !printable(text) {
		return nil
	}

	var fragments []models.Fragment
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fragments = append(fragments, models.Fragment{
			Text:       line,
			Confidence: stubConfidence,
		})
	}
	return fragments
}

// printable rejects byte streams that decode as UTF-8 but are clearly not
// text (e.g. small binary headers).
func printable(s string) bool {
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			continue
		}
		if r < 0x20 {
			return false
		}
	}
	return true
}
