package mnist

import (
	"fmt"
	"path/filepath"
)

// BinarizeThreshold is the pixel intensity above which a normalized
// pixel becomes 1. Everything at or below it becomes 0.
const BinarizeThreshold = 0.5

// Dataset holds a set of binarized MNIST images ready for training.
//
// Each image is stored as a flat float32 vector of 0s and 1s. The type
// satisfies the training loop's dataset contract: Len, Dims and Batch.
type Dataset struct {
	images [][]float32 // [num_samples][rows*cols], values in {0, 1}
	labels []int32     // [num_samples]
	rows   int
	cols   int
}

// Load reads the official IDX files from dataDir, normalizes pixels to
// [0, 1] and binarizes them at BinarizeThreshold.
//
// Expected files in dataDir:
//   - train-images-idx3-ubyte (or t10k-images-idx3-ubyte for test)
//   - train-labels-idx1-ubyte (or t10k-labels-idx1-ubyte for test)
//
// Parameters:
//   - dataDir: Directory containing the MNIST files
//   - train: If true, load the training set (60,000 samples), else the test set (10,000)
//   - maxSamples: Maximum number of samples to load (0 = load all)
func Load(dataDir string, train bool, maxSamples int) (*Dataset, error) {
	var imageFile, labelFile string

	if train {
		imageFile = filepath.Join(dataDir, "train-images-idx3-ubyte")
		labelFile = filepath.Join(dataDir, "train-labels-idx1-ubyte")
	} else {
		imageFile = filepath.Join(dataDir, "t10k-images-idx3-ubyte")
		labelFile = filepath.Join(dataDir, "t10k-labels-idx1-ubyte")
	}

	imagesRaw, rows, cols, err := ReadImagesFile(imageFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}

	labelsRaw, err := ReadLabelsFile(labelFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}

	if len(imagesRaw) != len(labelsRaw) {
		return nil, fmt.Errorf("image count (%d) != label count (%d)", len(imagesRaw), len(labelsRaw))
	}

	numSamples := len(imagesRaw)
	if maxSamples > 0 && numSamples > maxSamples {
		numSamples = maxSamples
	}

	images := make([][]float32, numSamples)
	labels := make([]int32, numSamples)

	for i := 0; i < numSamples; i++ {
		images[i] = binarize(imagesRaw[i])
		labels[i] = int32(labelsRaw[i])
	}

	return &Dataset{images: images, labels: labels, rows: rows, cols: cols}, nil
}

// binarize converts raw pixel bytes to a {0, 1} float32 vector.
func binarize(pixels []byte) []float32 {
	out := make([]float32, len(pixels))
	for j, p := range pixels {
		if float32(p)/255.0 > BinarizeThreshold {
			out[j] = 1.0
		}
	}
	return out
}

// FromImages builds a dataset from already-binarized image vectors.
//
// Every image must have length rows*cols and contain only 0s and 1s.
// Labels may be nil when unknown.
func FromImages(images [][]float32, labels []int32, rows, cols int) (*Dataset, error) {
	dims := rows * cols
	if dims <= 0 {
		return nil, fmt.Errorf("invalid image dimensions: %dx%d", rows, cols)
	}
	if labels != nil && len(labels) != len(images) {
		return nil, fmt.Errorf("image count (%d) != label count (%d)", len(images), len(labels))
	}
	for i, img := range images {
		if len(img) != dims {
			return nil, fmt.Errorf("image %d has %d pixels, want %d", i, len(img), dims)
		}
	}
	return &Dataset{images: images, labels: labels, rows: rows, cols: cols}, nil
}

// Synthetic creates a small synthetic dataset for smoke tests and demos.
//
// Each sample is a simple bar pattern derived from its label, so the
// data is learnable but is not real MNIST.
func Synthetic(numSamples, rows, cols int) *Dataset {
	images := make([][]float32, numSamples)
	labels := make([]int32, numSamples)

	for i := 0; i < numSamples; i++ {
		img := make([]float32, rows*cols)
		digit := i % 10
		labels[i] = int32(digit)

		startRow := digit * rows / 12
		for row := startRow; row < startRow+rows/4 && row < rows; row++ {
			for col := cols / 5; col < cols-cols/5; col++ {
				img[row*cols+col] = 1.0
			}
		}
		images[i] = img
	}

	return &Dataset{images: images, labels: labels, rows: rows, cols: cols}
}

// Len returns the number of samples in the dataset.
func (d *Dataset) Len() int { return len(d.images) }

// Dims returns the flattened size of a single image.
func (d *Dataset) Dims() int { return d.rows * d.cols }

// Rows returns the image height in pixels.
func (d *Dataset) Rows() int { return d.rows }

// Cols returns the image width in pixels.
func (d *Dataset) Cols() int { return d.cols }

// Batch gathers the given samples into a flat row-major buffer of
// shape [len(indices), Dims()].
func (d *Dataset) Batch(indices []int) []float32 {
	dims := d.Dims()
	out := make([]float32, len(indices)*dims)
	for i, idx := range indices {
		copy(out[i*dims:(i+1)*dims], d.images[idx])
	}
	return out
}

// Image returns the pixel vector of sample i. The returned slice is
// shared with the dataset and must not be modified.
func (d *Dataset) Image(i int) []float32 { return d.images[i] }

// Label returns the label of sample i, or -1 when labels are absent.
func (d *Dataset) Label(i int) int32 {
	if d.labels == nil {
		return -1
	}
	return d.labels[i]
}

// Split splits the dataset into train and validation sets.
//
// validationRatio is the fraction of samples assigned to the
// validation set, e.g. 0.2 for a 80/20 split.
func (d *Dataset) Split(validationRatio float32) (*Dataset, *Dataset) {
	splitIdx := int(float32(d.Len()) * (1.0 - validationRatio))

	train := &Dataset{images: d.images[:splitIdx], rows: d.rows, cols: d.cols}
	valid := &Dataset{images: d.images[splitIdx:], rows: d.rows, cols: d.cols}
	if d.labels != nil {
		train.labels = d.labels[:splitIdx]
		valid.labels = d.labels[splitIdx:]
	}
	return train, valid
}
