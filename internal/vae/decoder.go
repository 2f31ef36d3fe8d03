package vae

import (
	"math/rand"

	"github.com/born-ml/vae/internal/nn"
	"github.com/born-ml/vae/internal/tensor"
)

// Decoder maps latent codes to per-pixel Bernoulli probabilities.
//
// Architecture: a stack of Linear layers with the configured activation
// between them, then a final Linear followed by Sigmoid so every output
// lies strictly inside (0, 1).
type Decoder[B tensor.Backend] struct {
	net        *nn.Sequential[B]
	latentDims int
	dataDims   int
}

// newActivation returns the configured hidden-layer activation module.
//
// The name is validated by Config.Validate before construction.
func newActivation[B tensor.Backend](name string) nn.Module[B] {
	switch name {
	case ActivationTanh:
		return nn.NewTanh[B]()
	default:
		return nn.NewReLU[B]()
	}
}

// NewDecoder creates a decoder for the given architecture.
func NewDecoder[B tensor.Backend](config Config, rng *rand.Rand, backend B) *Decoder[B] {
	net := nn.NewSequential[B]()

	in := config.LatentDims
	for _, h := range config.GeneratorHidden {
		net.Add(nn.NewLinear(in, h, rng, backend))
		net.Add(newActivation[B](config.Activation))
		in = h
	}
	net.Add(nn.NewLinear(in, config.DataDims, rng, backend))
	net.Add(nn.NewSigmoid[B]())

	return &Decoder[B]{
		net:        net,
		latentDims: config.LatentDims,
		dataDims:   config.DataDims,
	}
}

// Forward decodes latent codes [batch, D] into Bernoulli probabilities
// [batch, dataDims].
func (d *Decoder[B]) Forward(latent *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return d.net.Forward(latent)
}

// Parameters returns the decoder's trainable parameters.
func (d *Decoder[B]) Parameters() []*nn.Parameter[B] {
	return d.net.Parameters()
}

// StateDict returns the decoder parameters keyed by layer index.
func (d *Decoder[B]) StateDict() map[string]*tensor.RawTensor {
	return d.net.StateDict()
}

// LoadStateDict loads decoder parameters.
func (d *Decoder[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return d.net.LoadStateDict(stateDict)
}
