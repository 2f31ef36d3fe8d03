package nn

import (
	"fmt"
	"strings"
	"time"

	"github.com/born-ml/vae/internal/serialization"
	"github.com/born-ml/vae/internal/tensor"
)

// OptimizerState represents an optimizer that can save/load its state.
//
// This interface is used by checkpoints to serialize optimizer state
// without creating import cycles. Optimizers from the optim package
// implement this interface.
type OptimizerState interface {
	// StateDict returns the optimizer state for serialization.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict loads optimizer state from serialization.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error

	// GetLR returns the current learning rate.
	GetLR() float32
}

// Checkpoint represents a complete training state snapshot.
//
// A checkpoint includes:
//   - Model parameters (weights and biases)
//   - Optimizer state (momentum buffers, Adam moments, etc.)
//   - Training metadata (epoch, step, loss)
//
// Checkpoints enable training to be resumed from a specific point.
//
// Example:
//
//	checkpoint := &nn.Checkpoint[Backend]{
//	    Model:     model,
//	    Optimizer: optimizer,
//	    Epoch:     10,
//	    Step:      5000,
//	    Loss:      102.7,
//	}
//	err := checkpoint.Save("checkpoint_epoch_010.bvae")
type Checkpoint[B tensor.Backend] struct {
	Model     Module[B]      // The neural network model
	Optimizer OptimizerState // The optimizer with its state
	Epoch     int            // Training epoch number
	Step      int64          // Training step number
	Loss      float64        // Loss value at this checkpoint
	Metadata  map[string]any // Additional training metadata
	CreatedAt time.Time      // When the checkpoint was created
}

// Save writes the checkpoint to a .bvae file.
//
// Model parameters are stored under their own names; optimizer state is
// stored under an "optimizer." prefix.
func (c *Checkpoint[B]) Save(path string) (err error) {
	combinedStateDict := make(map[string]*tensor.RawTensor)

	for name, raw := range c.Model.StateDict() {
		combinedStateDict[name] = raw
	}

	if c.Optimizer != nil {
		for name, raw := range c.Optimizer.StateDict() {
			combinedStateDict["optimizer."+name] = raw
		}
	}

	checkpointMeta := &serialization.CheckpointMeta{
		IsCheckpoint:    true,
		Epoch:           c.Epoch,
		Step:            c.Step,
		Loss:            c.Loss,
		OptimizerConfig: optimizerConfig(c.Optimizer),
		TrainingMeta:    c.Metadata,
	}

	writer, err := serialization.NewWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create writer: %w", err)
	}
	defer func() {
		if closeErr := writer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	header := serialization.Header{
		FormatVersion:  serialization.FormatVersion,
		ModelType:      "Checkpoint",
		CreatedAt:      time.Now().UTC(),
		Metadata:       make(map[string]string),
		CheckpointMeta: checkpointMeta,
	}

	if err := writer.WriteStateDictWithHeader(combinedStateDict, header); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	return nil
}

// LoadCheckpoint loads a checkpoint from a .bvae file.
//
// The model and optimizer must be pre-constructed with the same architecture
// and configuration as when the checkpoint was saved. Pass a nil optimizer
// to restore model parameters only (e.g., for inference).
//
// Example:
//
//	checkpoint, err := nn.LoadCheckpoint("checkpoint_epoch_010.bvae", model, optimizer)
//	if err != nil {
//	    return err
//	}
//	startEpoch := checkpoint.Epoch + 1
func LoadCheckpoint[B tensor.Backend](
	path string,
	model Module[B],
	optimizer OptimizerState,
) (_ *Checkpoint[B], err error) {
	reader, err := serialization.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	defer func() {
		if closeErr := reader.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	header := reader.Header()

	if header.CheckpointMeta == nil || !header.CheckpointMeta.IsCheckpoint {
		return nil, fmt.Errorf("file is not a checkpoint")
	}

	stateDict, err := reader.ReadStateDict()
	if err != nil {
		return nil, fmt.Errorf("failed to read state dict: %w", err)
	}

	modelStateDict := make(map[string]*tensor.RawTensor)
	optimizerStateDict := make(map[string]*tensor.RawTensor)

	for name, raw := range stateDict {
		if rest, ok := strings.CutPrefix(name, "optimizer."); ok {
			optimizerStateDict[rest] = raw
		} else {
			modelStateDict[name] = raw
		}
	}

	if err := model.LoadStateDict(modelStateDict); err != nil {
		return nil, fmt.Errorf("failed to load model state: %w", err)
	}

	if optimizer != nil {
		if err := optimizer.LoadStateDict(optimizerStateDict); err != nil {
			return nil, fmt.Errorf("failed to load optimizer state: %w", err)
		}
	}

	checkpoint := &Checkpoint[B]{
		Model:     model,
		Optimizer: optimizer,
		Epoch:     header.CheckpointMeta.Epoch,
		Step:      header.CheckpointMeta.Step,
		Loss:      header.CheckpointMeta.Loss,
		Metadata:  header.CheckpointMeta.TrainingMeta,
		CreatedAt: header.CreatedAt,
	}

	return checkpoint, nil
}

// SaveCheckpoint is a convenience function to save a checkpoint.
func SaveCheckpoint[B tensor.Backend](
	path string,
	model Module[B],
	optimizer OptimizerState,
	epoch int,
	loss float64,
) error {
	checkpoint := &Checkpoint[B]{
		Model:     model,
		Optimizer: optimizer,
		Epoch:     epoch,
		Loss:      loss,
		CreatedAt: time.Now().UTC(),
	}
	return checkpoint.Save(path)
}

// optimizerConfig extracts the configuration recorded in checkpoint metadata.
func optimizerConfig(opt OptimizerState) map[string]any {
	if opt == nil {
		return nil
	}
	return map[string]any{"lr": opt.GetLR()}
}
