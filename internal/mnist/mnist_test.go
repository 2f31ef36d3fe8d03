package mnist_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/vae/internal/mnist"
)

// encodeImages builds an IDX image stream in memory.
func encodeImages(t *testing.T, images [][]byte, rows, cols int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(mnist.MagicImages)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(len(images))))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(rows)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(cols)))
	for _, img := range images {
		buf.Write(img)
	}
	return buf.Bytes()
}

// encodeLabels builds an IDX label stream in memory.
func encodeLabels(t *testing.T, labels []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(mnist.MagicLabels)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(len(labels))))
	buf.Write(labels)
	return buf.Bytes()
}

func TestReadImages(t *testing.T) {
	images := [][]byte{
		{0, 128, 255, 10},
		{255, 255, 0, 0},
	}
	data := encodeImages(t, images, 2, 2)

	got, rows, cols, err := mnist.ReadImages(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, images, got)
}

func TestReadImagesRejectsBadMagic(t *testing.T) {
	data := encodeLabels(t, []byte{1, 2, 3})

	_, _, _, err := mnist.ReadImages(bytes.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid magic number")
}

func TestReadImagesTruncated(t *testing.T) {
	data := encodeImages(t, [][]byte{{0, 1, 2, 3}}, 2, 2)

	_, _, _, err := mnist.ReadImages(bytes.NewReader(data[:len(data)-2]))
	require.Error(t, err)
}

func TestReadLabels(t *testing.T) {
	labels := []byte{5, 0, 4, 1, 9}
	data := encodeLabels(t, labels)

	got, err := mnist.ReadLabels(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, labels, got)
}

func TestReadLabelsRejectsBadMagic(t *testing.T) {
	data := encodeImages(t, [][]byte{{0}}, 1, 1)

	_, err := mnist.ReadLabels(bytes.NewReader(data))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid magic number")
}

func TestLoadBinarizes(t *testing.T) {
	dir := t.TempDir()

	// Pixel 128/255 ≈ 0.502 is above the threshold, 127/255 ≈ 0.498 is below.
	images := [][]byte{
		{0, 127, 128, 255},
		{255, 0, 255, 0},
	}
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "train-images-idx3-ubyte"), encodeImages(t, images, 2, 2), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "train-labels-idx1-ubyte"), encodeLabels(t, []byte{3, 7}), 0o644))

	ds, err := mnist.Load(dir, true, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, 4, ds.Dims())
	assert.Equal(t, 2, ds.Rows())
	assert.Equal(t, 2, ds.Cols())
	assert.Equal(t, []float32{0, 0, 1, 1}, ds.Image(0))
	assert.Equal(t, []float32{1, 0, 1, 0}, ds.Image(1))
	assert.Equal(t, int32(3), ds.Label(0))
	assert.Equal(t, int32(7), ds.Label(1))
}

func TestLoadMaxSamples(t *testing.T) {
	dir := t.TempDir()

	images := [][]byte{{255}, {0}, {255}}
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "t10k-images-idx3-ubyte"), encodeImages(t, images, 1, 1), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "t10k-labels-idx1-ubyte"), encodeLabels(t, []byte{1, 2, 3}), 0o644))

	ds, err := mnist.Load(dir, false, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
}

func TestLoadCountMismatch(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "train-images-idx3-ubyte"), encodeImages(t, [][]byte{{255}, {0}}, 1, 1), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "train-labels-idx1-ubyte"), encodeLabels(t, []byte{1}), 0o644))

	_, err := mnist.Load(dir, true, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "!= label count")
}

func TestBatchGathersRows(t *testing.T) {
	images := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	ds, err := mnist.FromImages(images, nil, 1, 3)
	require.NoError(t, err)

	batch := ds.Batch([]int{2, 0})
	assert.Equal(t, []float32{0, 0, 1, 1, 0, 0}, batch)
}

func TestFromImagesValidates(t *testing.T) {
	_, err := mnist.FromImages([][]float32{{1, 0}}, nil, 1, 3)
	require.Error(t, err)

	_, err = mnist.FromImages([][]float32{{1, 0, 1}}, []int32{1, 2}, 1, 3)
	require.Error(t, err)
}

func TestSynthetic(t *testing.T) {
	ds := mnist.Synthetic(20, 28, 28)

	assert.Equal(t, 20, ds.Len())
	assert.Equal(t, 784, ds.Dims())

	// Samples with the same digit share a pattern, different digits differ.
	assert.Equal(t, ds.Image(0), ds.Image(10))
	assert.NotEqual(t, ds.Image(0), ds.Image(5))

	for i := 0; i < ds.Len(); i++ {
		for _, p := range ds.Image(i) {
			assert.True(t, p == 0 || p == 1)
		}
	}
}

func TestSplit(t *testing.T) {
	ds := mnist.Synthetic(10, 4, 4)
	train, valid := ds.Split(0.2)

	assert.Equal(t, 8, train.Len())
	assert.Equal(t, 2, valid.Len())
	assert.Equal(t, ds.Dims(), train.Dims())
	assert.Equal(t, ds.Image(8), valid.Image(0))
	assert.Equal(t, ds.Label(9), valid.Label(1))
}
