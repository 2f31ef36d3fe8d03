// Package mnist loads the MNIST handwritten digit dataset from its
// official IDX binary files and prepares it for training.
//
// Images are normalized from [0, 255] to [0, 1] on load. The Dataset
// type additionally binarizes pixels at a 0.5 threshold, which matches
// the Bernoulli observation model used by the generative network.
//
// Download MNIST from: http://yann.lecun.com/exdb/mnist/
package mnist

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const (
	// MagicImages is the magic number of an IDX image file.
	MagicImages = 2051
	// MagicLabels is the magic number of an IDX label file.
	MagicLabels = 2049
)

// ReadImages reads an IDX image stream.
//
// IDX file format for images:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes (28)
//	number of cols: 4 bytes (28)
//	pixel data: unsigned bytes (0-255)
//
// Returns the raw pixel rows plus the image dimensions.
func ReadImages(r io.Reader) ([][]byte, int, int, error) {
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read magic: %w", err)
	}
	if magic != MagicImages {
		return nil, 0, 0, fmt.Errorf("invalid magic number: got %d, want %d", magic, MagicImages)
	}

	var numImages, numRows, numCols uint32
	if err := binary.Read(r, binary.BigEndian, &numImages); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read image count: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &numRows); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read row count: %w", err)
	}
	if err := binary.Read(r, binary.BigEndian, &numCols); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to read column count: %w", err)
	}

	imageSize := int(numRows * numCols)
	images := make([][]byte, numImages)

	for i := range images {
		images[i] = make([]byte, imageSize)
		if _, err := io.ReadFull(r, images[i]); err != nil {
			return nil, 0, 0, fmt.Errorf("failed to read image %d: %w", i, err)
		}
	}

	return images, int(numRows), int(numCols), nil
}

// ReadLabels reads an IDX label stream.
//
// IDX file format for labels:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes (0-9)
func ReadLabels(r io.Reader) ([]byte, error) {
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", err)
	}
	if magic != MagicLabels {
		return nil, fmt.Errorf("invalid magic number: got %d, want %d", magic, MagicLabels)
	}

	var numLabels uint32
	if err := binary.Read(r, binary.BigEndian, &numLabels); err != nil {
		return nil, fmt.Errorf("failed to read label count: %w", err)
	}

	labels := make([]byte, numLabels)
	if _, err := io.ReadFull(r, labels); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}

	return labels, nil
}

// ReadImagesFile reads an IDX image file from disk.
func ReadImagesFile(filename string) ([][]byte, int, int, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, 0, 0, err
	}
	defer file.Close()
	return ReadImages(file)
}

// ReadLabelsFile reads an IDX label file from disk.
func ReadLabelsFile(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadLabels(file)
}
