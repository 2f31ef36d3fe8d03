package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePGM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.pgm")

	pixels := []float32{0, 0.5, 1, 1.2, -0.3, 0.25}
	require.NoError(t, writePGM(path, pixels, 2, 3))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	header := []byte("P5\n3 2\n255\n")
	require.Greater(t, len(data), len(header))
	assert.Equal(t, header, data[:len(header)])

	// 0.5*255+0.5 rounds to 128; out-of-range values clamp.
	assert.Equal(t, []byte{0, 128, 255, 255, 0, 64}, data[len(header):])
}

func TestWritePGMSizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.pgm")
	err := writePGM(path, []float32{0, 1}, 2, 3)
	require.Error(t, err)
}
