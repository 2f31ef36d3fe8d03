// Package serialization provides the native .bvae format for saving and
// loading model and optimizer state.
//
// The .bvae format is a simple binary container:
//
//	Format Structure:
//	  [4 bytes: Magic "BVAE"]
//	  [4 bytes: Version (uint32 LE)]
//	  [4 bytes: Flags (uint32 LE)]
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON metadata]
//	  [Tensor data: raw bytes, 64-byte aligned]
//
// The JSON header carries tensor metadata (name, dtype, shape, offset, size),
// optional checkpoint metadata, and a SHA-256 checksum of the data section.
//
// Example usage:
//
//	writer, err := serialization.NewWriter("model.bvae")
//	if err != nil {
//	    return err
//	}
//	defer writer.Close()
//	if err := writer.WriteStateDict(model.StateDict(), "VAE", nil); err != nil {
//	    return err
//	}
//
//	reader, err := serialization.NewReader("model.bvae")
//	if err != nil {
//	    return err
//	}
//	defer reader.Close()
//	stateDict, err := reader.ReadStateDict()
package serialization

import (
	"time"

	"github.com/born-ml/vae/internal/tensor"
)

// Format constants.
const (
	MagicBytes      = "BVAE"
	FormatVersion   = 1
	HeaderAlignment = 64 // Align tensor data to 64 bytes
)

// Data type string constants for serialization.
const (
	DTypeFloat32 = "float32"
	DTypeFloat64 = "float64"
)

// Flags for the .bvae format.
const (
	FlagHasOptimizer uint32 = 1 << 0 // bit 0: optimizer state included
	FlagHasMetadata  uint32 = 1 << 1 // bit 1: custom metadata included
)

// Header represents the JSON header in a .bvae file.
type Header struct {
	FormatVersion  int               `json:"format_version"`       // Version of the .bvae format
	ModelType      string            `json:"model_type"`           // Type of model (e.g., "VAE", "Checkpoint")
	CreatedAt      time.Time         `json:"created_at"`           // When the file was created
	Tensors        []TensorMeta      `json:"tensors"`              // Tensor metadata
	Metadata       map[string]string `json:"metadata"`             // Custom metadata
	Checksum       string            `json:"checksum"`             // SHA-256 of the data section, hex-encoded
	CheckpointMeta *CheckpointMeta   `json:"checkpoint,omitempty"` // Checkpoint metadata (optional)
}

// CheckpointMeta contains training state information for checkpoints.
type CheckpointMeta struct {
	IsCheckpoint    bool           `json:"is_checkpoint"`    // Whether this is a checkpoint file
	Epoch           int            `json:"epoch"`            // Training epoch number
	Step            int64          `json:"step"`             // Training step number
	Loss            float64        `json:"loss"`             // Loss value at checkpoint
	OptimizerConfig map[string]any `json:"optimizer_config"` // Optimizer hyperparameters
	TrainingMeta    map[string]any `json:"training_meta"`    // Additional training metadata
}

// TensorMeta describes a tensor in the .bvae file.
type TensorMeta struct {
	Name   string `json:"name"`   // Tensor name (e.g., "encoder.0.weight")
	DType  string `json:"dtype"`  // Data type ("float32" or "float64")
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Offset in the data section (bytes)
	Size   int64  `json:"size"`   // Size in bytes
}

// dtypeToString converts tensor.DataType to its string representation.
func dtypeToString(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return DTypeFloat32
	case tensor.Float64:
		return DTypeFloat64
	default:
		return "unknown"
	}
}

// stringToDtype converts a string representation to tensor.DataType.
func stringToDtype(s string) (tensor.DataType, bool) {
	switch s {
	case DTypeFloat32:
		return tensor.Float32, true
	case DTypeFloat64:
		return tensor.Float64, true
	default:
		return 0, false
	}
}
