// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package vae provides the public API for the variational autoencoder.
//
// Example:
//
//	import (
//	    "log/slog"
//	    "math/rand"
//
//	    "github.com/born-ml/vae/autodiff"
//	    "github.com/born-ml/vae/backend/cpu"
//	    "github.com/born-ml/vae/vae"
//	)
//
//	func main() {
//	    backend := autodiff.New(cpu.New())
//	    rng := rand.New(rand.NewSource(42))
//
//	    model, err := vae.New(vae.DefaultConfig(), rng, backend)
//	    if err != nil {
//	        panic(err)
//	    }
//
//	    trainer, err := vae.NewTrainer(model, vae.TrainConfig{
//	        Epochs:       20,
//	        BatchSize:    128,
//	        LearningRate: 0.001,
//	        Optimizer:    vae.OptimizerAdam,
//	    }, rng, slog.Default(), backend)
//	    if err != nil {
//	        panic(err)
//	    }
//
//	    _ = trainer // trainer.Train(dataset)
//	}
package vae

import (
	"log/slog"
	"math/rand"

	"github.com/born-ml/vae/internal/autodiff"
	"github.com/born-ml/vae/internal/tensor"
	"github.com/born-ml/vae/internal/vae"
)

// Architecture constants accepted by Config.
const (
	ActivationReLU = vae.ActivationReLU
	ActivationTanh = vae.ActivationTanh

	ScaleTransformExp      = vae.ScaleTransformExp
	ScaleTransformSoftplus = vae.ScaleTransformSoftplus
)

// Optimizer names accepted by TrainConfig.
const (
	OptimizerAdam = vae.OptimizerAdam
	OptimizerSGD  = vae.OptimizerSGD
)

// Config describes the architecture of a VAE.
type Config = vae.Config

// DefaultConfig returns the standard MNIST architecture.
func DefaultConfig() Config {
	return vae.DefaultConfig()
}

// Model

// Model is a variational autoencoder with a Gaussian latent space and
// a Bernoulli observation model.
type Model[B tensor.Backend] = vae.Model[B]

// New creates a VAE from a validated configuration.
func New[B tensor.Backend](config Config, rng *rand.Rand, backend B) (*Model[B], error) {
	return vae.New(config, rng, backend)
}

// Networks

// Encoder is the inference network mapping observations to posterior
// location and scale.
type Encoder[B tensor.Backend] = vae.Encoder[B]

// NewEncoder creates the inference network.
func NewEncoder[B tensor.Backend](config Config, rng *rand.Rand, backend B) *Encoder[B] {
	return vae.NewEncoder(config, rng, backend)
}

// Decoder is the generator network mapping latent codes to Bernoulli
// pixel probabilities.
type Decoder[B tensor.Backend] = vae.Decoder[B]

// NewDecoder creates the generator network.
func NewDecoder[B tensor.Backend](config Config, rng *rand.Rand, backend B) *Decoder[B] {
	return vae.NewDecoder(config, rng, backend)
}

// Reparameterize draws z = loc + scale*eps, keeping the draw
// differentiable with respect to loc and scale.
func Reparameterize[B tensor.Backend](loc, scale, eps *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return vae.Reparameterize(loc, scale, eps)
}

// Losses

// ReconstructionLoss computes the batch-mean Bernoulli negative
// log-likelihood of target under probs.
func ReconstructionLoss[B tensor.Backend](probs, target *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return vae.ReconstructionLoss(probs, target)
}

// KLLoss computes the batch-mean KL divergence from the diagonal
// Gaussian posterior to the standard normal prior.
func KLLoss[B tensor.Backend](loc, scale *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return vae.KLLoss(loc, scale)
}

// Loss computes the negative ELBO and its two components.
func Loss[B tensor.Backend](probs, target, loc, scale *tensor.Tensor[float32, B]) (total, recon, kl *tensor.Tensor[float32, B]) {
	return vae.Loss(probs, target, loc, scale)
}

// Training

// Dataset supplies training observations as flattened float32 rows.
type Dataset = vae.Dataset

// TrainConfig configures the training loop.
type TrainConfig = vae.TrainConfig

// Trainer runs the ELBO training loop.
type Trainer[B autodiff.BackwardCapable] = vae.Trainer[B]

// NewTrainer creates a trainer for the given model.
func NewTrainer[B autodiff.BackwardCapable](
	model *Model[B],
	config TrainConfig,
	rng *rand.Rand,
	logger *slog.Logger,
	backend B,
) (*Trainer[B], error) {
	return vae.NewTrainer(model, config, rng, logger, backend)
}
