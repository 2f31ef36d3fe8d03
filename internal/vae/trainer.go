package vae

import (
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"

	"github.com/born-ml/vae/internal/autodiff"
	"github.com/born-ml/vae/internal/nn"
	"github.com/born-ml/vae/internal/optim"
	"github.com/born-ml/vae/internal/tensor"
)

// Optimizer names accepted by TrainConfig.
const (
	OptimizerAdam = "adam"
	OptimizerSGD  = "sgd"
)

// Dataset supplies training observations as flattened float32 rows.
//
// Rows are binary pixel vectors in {0, 1}. The trainer shuffles row
// indices each epoch and requests mini-batches by index.
type Dataset interface {
	// Len returns the number of observations.
	Len() int

	// Dims returns the dimensionality of one observation.
	Dims() int

	// Batch returns the rows at the given indices, concatenated into a
	// single flattened slice of length len(indices)*Dims().
	Batch(indices []int) []float32
}

// TrainConfig configures the training loop.
type TrainConfig struct {
	Epochs        int     // Number of passes over the dataset
	BatchSize     int     // Mini-batch size
	LearningRate  float32 // Optimizer learning rate
	Optimizer     string  // "adam" or "sgd"
	Momentum      float32 // SGD momentum (ignored by Adam)
	LogInterval   int     // Batches between loss reports (default: 100)
	CheckpointDir string  // Directory for per-epoch checkpoints; empty disables
}

// Validate checks the training configuration.
func (c TrainConfig) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be positive, got %d", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %f", c.LearningRate)
	}
	switch c.Optimizer {
	case OptimizerAdam, OptimizerSGD:
	default:
		return fmt.Errorf("unsupported optimizer %q (want %q or %q)",
			c.Optimizer, OptimizerAdam, OptimizerSGD)
	}
	if c.LogInterval < 0 {
		return fmt.Errorf("log interval must not be negative, got %d", c.LogInterval)
	}
	return nil
}

// trainOptimizer is the combination of optimization stepping and
// checkpointable state the trainer requires.
type trainOptimizer interface {
	optim.Optimizer
	nn.OptimizerState
}

// Trainer runs the mini-batch ELBO training loop.
//
// Each step is strictly sequential: zero grads, forward, loss, backward,
// optimizer step, tape clear. Checkpoints are written at epoch
// boundaries; write failures stop training and surface to the caller.
type Trainer[B autodiff.BackwardCapable] struct {
	model     *Model[B]
	config    TrainConfig
	optimizer trainOptimizer
	backend   B
	rng       *rand.Rand
	logger    *slog.Logger
	step      int64
}

// NewTrainer creates a trainer for the model.
//
// The rng drives epoch shuffling; pass a seeded source for reproducible
// runs. A nil logger falls back to slog.Default().
func NewTrainer[B autodiff.BackwardCapable](
	model *Model[B],
	config TrainConfig,
	rng *rand.Rand,
	logger *slog.Logger,
	backend B,
) (*Trainer[B], error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid train config: %w", err)
	}
	if config.LogInterval == 0 {
		config.LogInterval = 100
	}
	if logger == nil {
		logger = slog.Default()
	}

	var optimizer trainOptimizer
	switch config.Optimizer {
	case OptimizerSGD:
		optimizer = optim.NewSGD(model.Parameters(), optim.SGDConfig{
			LR:       config.LearningRate,
			Momentum: config.Momentum,
		}, backend)
	default:
		optimizer = optim.NewAdam(model.Parameters(), optim.AdamConfig{
			LR: config.LearningRate,
		}, backend)
	}

	return &Trainer[B]{
		model:     model,
		config:    config,
		optimizer: optimizer,
		backend:   backend,
		rng:       rng,
		logger:    logger,
	}, nil
}

// Optimizer returns the trainer's optimizer.
func (t *Trainer[B]) Optimizer() optim.Optimizer {
	return t.optimizer
}

// Train runs the full training loop over the dataset.
func (t *Trainer[B]) Train(data Dataset) error {
	if data.Dims() != t.model.Config().DataDims {
		return fmt.Errorf("dataset dims %d does not match model data dims %d",
			data.Dims(), t.model.Config().DataDims)
	}

	indices := make([]int, data.Len())
	for i := range indices {
		indices[i] = i
	}

	for epoch := 1; epoch <= t.config.Epochs; epoch++ {
		t.rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		// Running averages over the current logging interval; reset
		// after each report.
		var reconSum, klSum float64
		var intervalBatches int
		var epochLossSum float64
		var epochBatches int

		for start := 0; start < len(indices); start += t.config.BatchSize {
			end := start + t.config.BatchSize
			if end > len(indices) {
				end = len(indices)
			}
			batchIndices := indices[start:end]

			batch, err := tensor.FromSlice(
				data.Batch(batchIndices),
				tensor.Shape{len(batchIndices), data.Dims()},
				t.backend,
			)
			if err != nil {
				return fmt.Errorf("epoch %d: failed to build batch: %w", epoch, err)
			}

			total, recon, kl := t.trainStep(batch)

			reconSum += float64(recon)
			klSum += float64(kl)
			intervalBatches++
			epochLossSum += float64(total)
			epochBatches++

			if intervalBatches == t.config.LogInterval {
				t.logger.Info("train",
					"epoch", epoch,
					"step", t.step,
					"recon", reconSum/float64(intervalBatches),
					"kl", klSum/float64(intervalBatches),
					"loss", (reconSum+klSum)/float64(intervalBatches),
				)
				reconSum, klSum = 0, 0
				intervalBatches = 0
			}
		}

		epochLoss := epochLossSum / float64(epochBatches)
		t.logger.Info("epoch complete", "epoch", epoch, "loss", epochLoss)

		if t.config.CheckpointDir != "" {
			if err := t.saveCheckpoint(epoch, epochLoss); err != nil {
				return fmt.Errorf("epoch %d: checkpoint failed: %w", epoch, err)
			}
		}
	}

	return nil
}

// trainStep runs one mini-batch update and returns the loss terms.
func (t *Trainer[B]) trainStep(batch *tensor.Tensor[float32, B]) (total, recon, kl float32) {
	tape := t.backend.GetTape()
	tape.Clear()
	tape.StartRecording()

	probs, loc, scale := t.model.Forward(batch)
	totalLoss, reconLoss, klLoss := Loss(probs, batch, loc, scale)

	grads := autodiff.Backward(totalLoss, t.backend)
	tape.StopRecording()

	t.optimizer.Step(grads)
	t.optimizer.ZeroGrad()
	tape.Clear()
	t.step++

	return totalLoss.Item(), reconLoss.Item(), klLoss.Item()
}

// saveCheckpoint writes the model and optimizer state for an epoch.
func (t *Trainer[B]) saveCheckpoint(epoch int, loss float64) error {
	path := filepath.Join(t.config.CheckpointDir, fmt.Sprintf("checkpoint_epoch_%03d.bvae", epoch))

	checkpoint := &nn.Checkpoint[B]{
		Model:     t.model.Module(),
		Optimizer: t.optimizer,
		Epoch:     epoch,
		Step:      t.step,
		Loss:      loss,
	}
	if err := checkpoint.Save(path); err != nil {
		return err
	}

	t.logger.Info("checkpoint saved", "epoch", epoch, "path", path)
	return nil
}
