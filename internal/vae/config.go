// Package vae implements a Variational Autoencoder for binarized image data.
//
// The model consists of:
//   - Decoder: latent code -> per-pixel Bernoulli probabilities (generator)
//   - Encoder: observation -> diagonal-Gaussian posterior (inference network)
//   - Model: orchestrator composing the two with reparameterized sampling
//   - Trainer: mini-batch ELBO training loop with per-epoch checkpointing
//
// Reference: "Auto-Encoding Variational Bayes" (Kingma & Welling, 2013).
package vae

import (
	"fmt"
)

// Activation function names accepted by Config.
const (
	ActivationReLU = "relu"
	ActivationTanh = "tanh"
)

// Scale transform names accepted by Config.
const (
	ScaleTransformExp      = "exp"
	ScaleTransformSoftplus = "softplus"
)

// Config describes the architecture of a VAE.
//
// InferenceHidden[0] is the size of the encoder's shared layer; the
// remaining entries are the per-branch hidden sizes of the loc and scale
// branches.
type Config struct {
	LatentDims      int    // Dimensionality of the latent code z
	DataDims        int    // Dimensionality of an observation (784 for MNIST)
	GeneratorHidden []int  // Decoder hidden layer sizes
	InferenceHidden []int  // Encoder shared + branch hidden layer sizes
	Activation      string // Hidden-layer activation: "relu" or "tanh"
	ScaleTransform  string // Positivity transform for scale: "exp" or "softplus"
}

// DefaultConfig returns the standard MNIST architecture.
func DefaultConfig() Config {
	return Config{
		LatentDims:      32,
		DataDims:        784,
		GeneratorHidden: []int{256, 256},
		InferenceHidden: []int{256, 128},
		Activation:      ActivationReLU,
		ScaleTransform:  ScaleTransformSoftplus,
	}
}

// Validate checks the configuration.
//
// Configuration errors fail here, before any parameters are allocated.
func (c Config) Validate() error {
	if c.LatentDims <= 0 {
		return fmt.Errorf("latent dims must be positive, got %d", c.LatentDims)
	}
	if c.DataDims <= 0 {
		return fmt.Errorf("data dims must be positive, got %d", c.DataDims)
	}
	for i, h := range c.GeneratorHidden {
		if h <= 0 {
			return fmt.Errorf("generator hidden size %d must be positive, got %d", i, h)
		}
	}
	if len(c.InferenceHidden) == 0 {
		return fmt.Errorf("inference hidden sizes must include at least the shared layer")
	}
	for i, h := range c.InferenceHidden {
		if h <= 0 {
			return fmt.Errorf("inference hidden size %d must be positive, got %d", i, h)
		}
	}
	switch c.Activation {
	case ActivationReLU, ActivationTanh:
	default:
		return fmt.Errorf("unsupported activation %q (want %q or %q)",
			c.Activation, ActivationReLU, ActivationTanh)
	}
	switch c.ScaleTransform {
	case ScaleTransformExp, ScaleTransformSoftplus:
	default:
		return fmt.Errorf("unsupported scale transform %q (want %q or %q)",
			c.ScaleTransform, ScaleTransformExp, ScaleTransformSoftplus)
	}
	return nil
}
