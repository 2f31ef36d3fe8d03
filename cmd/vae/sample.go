package main

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newSampleCmd() *cobra.Command {
	var (
		model      modelFlags
		checkpoint string
		n          int
		outDir     string
		seed       int64
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Generate images from the prior",
		Long: `Generate images by drawing latent codes from the standard normal
prior and decoding them. The architecture flags must match the ones
used when the checkpoint was trained.

Images are written as binary PGM files, one per sample.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rng := rand.New(rand.NewSource(seed))
			backend := newBackend()

			m, ckpt, err := loadModel(checkpoint, &model, rng, backend)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return fmt.Errorf("failed to create output dir: %w", err)
			}

			samples := m.Phantasize(n)
			data := samples.Data()
			dims := model.rows * model.cols

			for i := 0; i < n; i++ {
				path := filepath.Join(outDir, fmt.Sprintf("sample_%03d.pgm", i))
				if err := writePGM(path, data[i*dims:(i+1)*dims], model.rows, model.cols); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
			}

			fmt.Printf("Wrote %d samples to %s (checkpoint epoch %d, loss %.2f)\n",
				n, outDir, ckpt.Epoch, ckpt.Loss)
			return nil
		},
	}

	model.register(cmd)
	cmd.Flags().StringVar(&checkpoint, "checkpoint", "", "Checkpoint file to load (required)")
	cmd.Flags().IntVar(&n, "n", 16, "Number of images to generate")
	cmd.Flags().StringVar(&outDir, "out", "samples", "Output directory for PGM files")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed")
	cmd.MarkFlagRequired("checkpoint")

	return cmd
}
