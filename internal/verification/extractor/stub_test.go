package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStub_SplitsLines(t *testing.T) {
	stub := NewStub()

	frags := stub.Extract(context.Background(), []byte("REPUBLIC OF KENYA\nID: 12345678\n\nJOHN MWANGI KARIUKI\n"))
	require.Len(t, frags, 3)
	assert.Equal(t, "REPUBLIC OF KENYA", frags[0].Text)
	assert.Equal(t, "ID: 12345678", frags[1].Text)
	assert.Equal(t, "JOHN MWANGI KARIUKI", frags[2].Text)
	for _, f := range frags {
		assert.InDelta(t, stubConfidence, f.Confidence, 1e-9)
	}
}

func TestStub_DegradesOnUnreadableInput(t *testing.T) {
	stub := NewStub()

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, stub.Extract(context.Background(), nil))
	})

	t.Run("invalid utf8", func(t *testing.T) {
		assert.Empty(t, stub.Extract(context.Background(), []byte{0xff, 0xfe, 0x00, 0x01}))
	})

	t.Run("binary header", func(t *testing.T) {
		// Control bytes decode as UTF-8 but are not text.
		assert.Empty(t, stub.Extract(context.Background(), []byte("\x01\x02PDF")))
	})
}

func TestForMode(t *testing.T) {
	t.Run("stub", func(t *testing.T) {
		ext, err := ForMode("stub")
		require.NoError(t, err)
		assert.Equal(t, "stub", ext.Name())
	})

	t.Run("unknown mode errors", func(t *testing.T) {
		_, err := ForMode("tesseract")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown ocr mode")
	})
}

func TestStub_Deterministic(t *testing.T) {
	stub := NewStub()
	input := []byte("CERTIFICATE IN PLUMBING\nSERIAL: KNEC/123/2023")

	first := stub.Extract(context.Background(), input)
	second := stub.Extract(context.Background(), input)
	assert.Equal(t, first, second)
}
