package main

import (
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/born-ml/vae/internal/autodiff"
	"github.com/born-ml/vae/internal/backend/cpu"
	"github.com/born-ml/vae/internal/nn"
	"github.com/born-ml/vae/internal/vae"
)

// cliBackend is the backend every CLI command runs on.
type cliBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newBackend() cliBackend {
	return autodiff.New(cpu.New())
}

// modelFlags holds the architecture flags shared by all subcommands.
//
// The sample and reconstruct commands rebuild the network before
// loading a checkpoint, so the flags must match the ones used at
// training time.
type modelFlags struct {
	latentDims      int
	generatorHidden []int
	inferenceHidden []int
	activation      string
	scaleTransform  string
	rows            int
	cols            int
}

func (f *modelFlags) register(cmd *cobra.Command) {
	defaults := vae.DefaultConfig()

	cmd.Flags().IntVar(&f.latentDims, "latent-dims", defaults.LatentDims, "Dimensionality of the latent space")
	cmd.Flags().IntSliceVar(&f.generatorHidden, "generator-hidden", defaults.GeneratorHidden, "Hidden layer sizes of the generator network")
	cmd.Flags().IntSliceVar(&f.inferenceHidden, "inference-hidden", defaults.InferenceHidden, "Hidden layer sizes of the inference network")
	cmd.Flags().StringVar(&f.activation, "activation", defaults.Activation, "Hidden activation (relu or tanh)")
	cmd.Flags().StringVar(&f.scaleTransform, "scale-transform", defaults.ScaleTransform, "Scale positivity transform (softplus or exp)")
	cmd.Flags().IntVar(&f.rows, "rows", 28, "Image height in pixels")
	cmd.Flags().IntVar(&f.cols, "cols", 28, "Image width in pixels")
}

func (f *modelFlags) config() vae.Config {
	return vae.Config{
		LatentDims:      f.latentDims,
		DataDims:        f.rows * f.cols,
		GeneratorHidden: f.generatorHidden,
		InferenceHidden: f.inferenceHidden,
		Activation:      f.activation,
		ScaleTransform:  f.scaleTransform,
	}
}

// loadModel rebuilds the network from the architecture flags and
// restores its parameters from a checkpoint file.
func loadModel(path string, f *modelFlags, rng *rand.Rand, backend cliBackend) (*vae.Model[cliBackend], *nn.Checkpoint[cliBackend], error) {
	model, err := vae.New(f.config(), rng, backend)
	if err != nil {
		return nil, nil, err
	}

	checkpoint, err := nn.LoadCheckpoint[cliBackend](path, model.Module(), nil)
	if err != nil {
		return nil, nil, err
	}

	return model, checkpoint, nil
}
