package vae

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/born-ml/vae/internal/nn"
	"github.com/born-ml/vae/internal/tensor"
)

// Model composes the encoder and decoder into a full VAE.
//
// The model owns its noise source so sampling is reproducible from a
// seed. There is no state machine beyond constructed -> trained -> used.
type Model[B tensor.Backend] struct {
	config  Config
	encoder *Encoder[B]
	decoder *Decoder[B]
	backend B
	rng     *rand.Rand
}

// New creates a VAE with randomly initialized parameters.
//
// Returns an error if the configuration is invalid; no parameters are
// allocated in that case.
func New[B tensor.Backend](config Config, rng *rand.Rand, backend B) (*Model[B], error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Model[B]{
		config:  config,
		encoder: NewEncoder(config, rng, backend),
		decoder: NewDecoder(config, rng, backend),
		backend: backend,
		rng:     rng,
	}, nil
}

// Config returns the model's architecture configuration.
func (m *Model[B]) Config() Config {
	return m.config
}

// Encoder returns the inference network.
func (m *Model[B]) Encoder() *Encoder[B] {
	return m.encoder
}

// Decoder returns the generator network.
func (m *Model[B]) Decoder() *Decoder[B] {
	return m.decoder
}

// Forward runs a full pass: encode x, draw one reparameterized latent
// sample per observation, decode it.
//
// Returns (probs, loc, scale); the caller assembles the loss.
func (m *Model[B]) Forward(x *tensor.Tensor[float32, B]) (probs, loc, scale *tensor.Tensor[float32, B]) {
	loc, scale = m.encoder.Forward(x)

	eps := tensor.Randn[float32](loc.Shape(), m.rng, m.backend)
	z := Reparameterize(loc, scale, eps)

	return m.decoder.Forward(z), loc, scale
}

// Reconstructions encodes x once, draws n reparameterized latent samples,
// and decodes each.
//
// Returns n tensors, each of x's shape, for inspecting reconstruction
// variance.
func (m *Model[B]) Reconstructions(x *tensor.Tensor[float32, B], n int) []*tensor.Tensor[float32, B] {
	loc, scale := m.encoder.Forward(x)

	reconstructions := make([]*tensor.Tensor[float32, B], n)
	for i := range reconstructions {
		eps := tensor.Randn[float32](loc.Shape(), m.rng, m.backend)
		z := Reparameterize(loc, scale, eps)
		reconstructions[i] = m.decoder.Forward(z)
	}

	return reconstructions
}

// Phantasize bypasses the encoder: draws n latent samples from the
// standard-normal prior and decodes them.
//
// Returns a single [n, dataDims] tensor of unconditional generations.
func (m *Model[B]) Phantasize(n int) *tensor.Tensor[float32, B] {
	z := tensor.Randn[float32](tensor.Shape{n, m.config.LatentDims}, m.rng, m.backend)
	return m.decoder.Forward(z)
}

// Parameters returns all trainable parameters of encoder and decoder.
func (m *Model[B]) Parameters() []*nn.Parameter[B] {
	params := m.encoder.Parameters()
	return append(params, m.decoder.Parameters()...)
}

// StateDict returns all parameters keyed "encoder.*" and "decoder.*".
func (m *Model[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for name, raw := range m.encoder.StateDict() {
		stateDict["encoder."+name] = raw
	}
	for name, raw := range m.decoder.StateDict() {
		stateDict["decoder."+name] = raw
	}
	return stateDict
}

// LoadStateDict loads all model parameters.
func (m *Model[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	encoderDict := make(map[string]*tensor.RawTensor)
	decoderDict := make(map[string]*tensor.RawTensor)

	for name, raw := range stateDict {
		switch {
		case strings.HasPrefix(name, "encoder."):
			encoderDict[strings.TrimPrefix(name, "encoder.")] = raw
		case strings.HasPrefix(name, "decoder."):
			decoderDict[strings.TrimPrefix(name, "decoder.")] = raw
		default:
			return fmt.Errorf("unexpected model state dict key %q", name)
		}
	}

	if err := m.encoder.LoadStateDict(encoderDict); err != nil {
		return fmt.Errorf("encoder: %w", err)
	}
	if err := m.decoder.LoadStateDict(decoderDict); err != nil {
		return fmt.Errorf("decoder: %w", err)
	}
	return nil
}

// Module adapts the model to nn.Module for checkpointing.
//
// The adapter's Forward returns only the reconstruction probabilities.
func (m *Model[B]) Module() nn.Module[B] {
	return &modelModule[B]{m}
}

type modelModule[B tensor.Backend] struct {
	m *Model[B]
}

func (mm *modelModule[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	probs, _, _ := mm.m.Forward(x)
	return probs
}

func (mm *modelModule[B]) Parameters() []*nn.Parameter[B] {
	return mm.m.Parameters()
}

func (mm *modelModule[B]) StateDict() map[string]*tensor.RawTensor {
	return mm.m.StateDict()
}

func (mm *modelModule[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return mm.m.LoadStateDict(stateDict)
}
