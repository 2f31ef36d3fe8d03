package vae

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/born-ml/vae/internal/nn"
	"github.com/born-ml/vae/internal/tensor"
)

// Encoder maps observations to the parameters of a diagonal-Gaussian
// variational posterior.
//
// Architecture: one shared Linear+activation, then two independent
// branches (loc, scale). Each branch is a stack of Linear+activation
// layers ending in a plain Linear. The scale branch's raw output passes
// through the configured positivity transform so scale is strictly
// positive and gradients flow through the transform.
type Encoder[B tensor.Backend] struct {
	shared         *nn.Sequential[B]
	locBranch      *nn.Sequential[B]
	scaleBranch    *nn.Sequential[B]
	scaleTransform string
	dataDims       int
	latentDims     int
}

// NewEncoder creates an encoder for the given architecture.
//
// config.InferenceHidden[0] is the shared layer size; the remaining
// entries become the hidden sizes of both branches.
func NewEncoder[B tensor.Backend](config Config, rng *rand.Rand, backend B) *Encoder[B] {
	sharedSize := config.InferenceHidden[0]
	branchHidden := config.InferenceHidden[1:]

	shared := nn.NewSequential[B](
		nn.NewLinear(config.DataDims, sharedSize, rng, backend),
		newActivation[B](config.Activation),
	)

	newBranch := func() *nn.Sequential[B] {
		branch := nn.NewSequential[B]()
		in := sharedSize
		for _, h := range branchHidden {
			branch.Add(nn.NewLinear(in, h, rng, backend))
			branch.Add(newActivation[B](config.Activation))
			in = h
		}
		branch.Add(nn.NewLinear(in, config.LatentDims, rng, backend))
		return branch
	}

	return &Encoder[B]{
		shared:         shared,
		locBranch:      newBranch(),
		scaleBranch:    newBranch(),
		scaleTransform: config.ScaleTransform,
		dataDims:       config.DataDims,
		latentDims:     config.LatentDims,
	}
}

// Forward encodes observations [batch, dataDims] into posterior
// parameters (loc, scale), each [batch, D]. Scale is strictly positive.
func (e *Encoder[B]) Forward(x *tensor.Tensor[float32, B]) (loc, scale *tensor.Tensor[float32, B]) {
	h := e.shared.Forward(x)
	loc = e.locBranch.Forward(h)
	scaleRaw := e.scaleBranch.Forward(h)

	switch e.scaleTransform {
	case ScaleTransformSoftplus:
		softplus := nn.NewSoftplus[B]()
		scale = softplus.Forward(scaleRaw)
	default:
		scale = scaleRaw.Exp()
	}

	return loc, scale
}

// Reparameterize draws z = loc + scale * eps.
//
// eps must be standard-normal noise of the same shape as loc and scale,
// drawn independently of the model parameters. The draw stays
// differentiable with respect to loc and scale because the only
// stochastic input is eps.
func Reparameterize[B tensor.Backend](loc, scale, eps *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return loc.Add(scale.Mul(eps))
}

// Parameters returns the encoder's trainable parameters.
func (e *Encoder[B]) Parameters() []*nn.Parameter[B] {
	params := e.shared.Parameters()
	params = append(params, e.locBranch.Parameters()...)
	params = append(params, e.scaleBranch.Parameters()...)
	return params
}

// StateDict returns encoder parameters keyed "shared.*", "loc.*", "scale.*".
func (e *Encoder[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for name, raw := range e.shared.StateDict() {
		stateDict["shared."+name] = raw
	}
	for name, raw := range e.locBranch.StateDict() {
		stateDict["loc."+name] = raw
	}
	for name, raw := range e.scaleBranch.StateDict() {
		stateDict["scale."+name] = raw
	}
	return stateDict
}

// LoadStateDict loads encoder parameters.
func (e *Encoder[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	sharedDict := make(map[string]*tensor.RawTensor)
	locDict := make(map[string]*tensor.RawTensor)
	scaleDict := make(map[string]*tensor.RawTensor)

	for name, raw := range stateDict {
		switch {
		case strings.HasPrefix(name, "shared."):
			sharedDict[strings.TrimPrefix(name, "shared.")] = raw
		case strings.HasPrefix(name, "loc."):
			locDict[strings.TrimPrefix(name, "loc.")] = raw
		case strings.HasPrefix(name, "scale."):
			scaleDict[strings.TrimPrefix(name, "scale.")] = raw
		default:
			return fmt.Errorf("unexpected encoder state dict key %q", name)
		}
	}

	if err := e.shared.LoadStateDict(sharedDict); err != nil {
		return fmt.Errorf("shared: %w", err)
	}
	if err := e.locBranch.LoadStateDict(locDict); err != nil {
		return fmt.Errorf("loc branch: %w", err)
	}
	if err := e.scaleBranch.LoadStateDict(scaleDict); err != nil {
		return fmt.Errorf("scale branch: %w", err)
	}
	return nil
}
