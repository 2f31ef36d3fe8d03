package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/born-ml/vae/internal/mnist"
	"github.com/born-ml/vae/internal/vae"
)

func newTrainCmd() *cobra.Command {
	var (
		model         modelFlags
		dataDir       string
		synthetic     int
		maxSamples    int
		epochs        int
		batchSize     int
		learningRate  float32
		optimizer     string
		momentum      float32
		logInterval   int
		checkpointDir string
		seed          int64
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a VAE on binarized MNIST",
		Long: `Train a variational autoencoder on binarized MNIST.

The dataset is read from the official IDX files in --data. When --data
is empty a synthetic dataset is generated instead, which is useful for
smoke-testing the pipeline without downloading MNIST.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data *mnist.Dataset
				err  error
			)
			if dataDir != "" {
				data, err = mnist.Load(dataDir, true, maxSamples)
				if err != nil {
					return fmt.Errorf("failed to load dataset: %w", err)
				}
			} else {
				data = mnist.Synthetic(synthetic, model.rows, model.cols)
			}

			rng := rand.New(rand.NewSource(seed))
			backend := newBackend()

			m, err := vae.New(model.config(), rng, backend)
			if err != nil {
				return err
			}

			trainConfig := vae.TrainConfig{
				Epochs:        epochs,
				BatchSize:     batchSize,
				LearningRate:  learningRate,
				Optimizer:     optimizer,
				Momentum:      momentum,
				LogInterval:   logInterval,
				CheckpointDir: checkpointDir,
			}
			if checkpointDir != "" {
				if err := os.MkdirAll(checkpointDir, 0o755); err != nil {
					return fmt.Errorf("failed to create checkpoint dir: %w", err)
				}
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			trainer, err := vae.NewTrainer(m, trainConfig, rng, logger, backend)
			if err != nil {
				return err
			}

			logger.Info("training",
				"samples", data.Len(),
				"dims", data.Dims(),
				"latent_dims", model.latentDims,
				"optimizer", optimizer,
				"epochs", epochs,
			)
			return trainer.Train(data)
		},
	}

	model.register(cmd)
	cmd.Flags().StringVar(&dataDir, "data", "", "Directory with the MNIST IDX files (empty: synthetic data)")
	cmd.Flags().IntVar(&synthetic, "synthetic", 512, "Synthetic sample count when --data is empty")
	cmd.Flags().IntVar(&maxSamples, "max-samples", 0, "Maximum samples to load (0 = all)")
	cmd.Flags().IntVar(&epochs, "epochs", 20, "Number of training epochs")
	cmd.Flags().IntVar(&batchSize, "batch-size", 128, "Mini-batch size")
	cmd.Flags().Float32Var(&learningRate, "lr", 0.001, "Learning rate")
	cmd.Flags().StringVar(&optimizer, "optimizer", vae.OptimizerAdam, "Optimizer (adam or sgd)")
	cmd.Flags().Float32Var(&momentum, "momentum", 0.9, "SGD momentum (ignored by Adam)")
	cmd.Flags().IntVar(&logInterval, "log-interval", 100, "Batches between loss reports")
	cmd.Flags().StringVar(&checkpointDir, "checkpoint-dir", "checkpoints", "Directory for per-epoch checkpoints (empty disables)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")

	return cmd
}
