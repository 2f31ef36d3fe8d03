package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/born-ml/vae/internal/mnist"
	"github.com/born-ml/vae/internal/tensor"
)

func newReconstructCmd() *cobra.Command {
	var (
		model      modelFlags
		checkpoint string
		dataDir    string
		index      int
		n          int
		outDir     string
		seed       int64
	)

	cmd := &cobra.Command{
		Use:   "reconstruct",
		Short: "Reconstruct a test image through the model",
		Long: `Encode a single test image into the latent space and decode n
independent reconstructions of it. Each reconstruction uses a fresh
noise draw from the approximate posterior, so the outputs differ.

The input image and the reconstructions are written as binary PGM
files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := mnist.Load(dataDir, false, 0)
			if err != nil {
				return fmt.Errorf("failed to load dataset: %w", err)
			}
			if index < 0 || index >= data.Len() {
				return fmt.Errorf("index %d out of range [0, %d)", index, data.Len())
			}
			if data.Dims() != model.rows*model.cols {
				return fmt.Errorf("dataset has %d pixels per image, flags say %dx%d",
					data.Dims(), model.rows, model.cols)
			}

			rng := rand.New(rand.NewSource(seed))
			backend := newBackend()

			m, _, err := loadModel(checkpoint, &model, rng, backend)
			if err != nil {
				return err
			}

			image := data.Image(index)
			x, err := tensor.FromSlice(image, tensor.Shape{1, data.Dims()}, backend)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output dir: %w", err)
			}

			inputPath := filepath.Join(outDir, "input.pgm")
			if err := writePGM(inputPath, image, model.rows, model.cols); err != nil {
				return fmt.Errorf("failed to write %s: %w", inputPath, err)
			}

			for i, recon := range m.Reconstructions(x, n) {
				path := filepath.Join(outDir, fmt.Sprintf("recon_%03d.pgm", i))
				if err := writePGM(path, recon.Data(), model.rows, model.cols); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
			}

			fmt.Printf("Wrote input and %d reconstructions of test image %d (label %d) to %s\n",
				n, index, data.Label(index), outDir)
			return nil
		},
	}

	model.register(cmd)
	cmd.Flags().StringVar(&checkpoint, "checkpoint", "", "Checkpoint file to load (required)")
	cmd.Flags().StringVar(&dataDir, "data", "", "Directory with the MNIST IDX files (required)")
	cmd.Flags().IntVar(&index, "index", 0, "Index of the test image to reconstruct")
	cmd.Flags().IntVar(&n, "n", 8, "Number of reconstructions to draw")
	cmd.Flags().StringVar(&outDir, "out", "reconstructions", "Output directory for PGM files")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed")
	cmd.MarkFlagRequired("checkpoint")
	cmd.MarkFlagRequired("data")

	return cmd
}
