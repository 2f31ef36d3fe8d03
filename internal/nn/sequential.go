package nn

import (
	"fmt"
	"strings"

	"github.com/born-ml/vae/internal/tensor"
)

// Sequential is a container module that chains multiple modules together.
//
// Each module's output becomes the next module's input, creating a
// sequential pipeline of transformations.
//
// Example:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(784, 128, rng, backend),
//	    nn.NewReLU[Backend](),
//	    nn.NewLinear(128, 10, rng, backend),
//	)
//
//	output := model.Forward(input)
type Sequential[B tensor.Backend] struct {
	modules []Module[B]
}

// NewSequential creates a new Sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return &Sequential[B]{
		modules: modules,
	}
}

// Forward applies all modules in sequence.
//
// The output of each module becomes the input to the next module.
func (s *Sequential[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	output := input

	for _, module := range s.modules {
		output = module.Forward(output)
	}

	return output
}

// Parameters returns all trainable parameters from all modules.
func (s *Sequential[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]

	for _, module := range s.modules {
		params = append(params, module.Parameters()...)
	}

	return params
}

// Add appends a module to the sequence.
func (s *Sequential[B]) Add(module Module[B]) {
	s.modules = append(s.modules, module)
}

// Len returns the number of modules in the sequence.
func (s *Sequential[B]) Len() int {
	return len(s.modules)
}

// Module returns the module at the given index.
//
// Panics if index is out of bounds.
func (s *Sequential[B]) Module(index int) Module[B] {
	if index < 0 || index >= len(s.modules) {
		panic("Sequential.Module: index out of bounds")
	}
	return s.modules[index]
}

// StateDict returns a map of parameter names to raw tensors.
//
// Parameters are prefixed with their module index (e.g., "0.weight",
// "0.bias", "2.weight") to avoid name collisions.
func (s *Sequential[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)

	for i, module := range s.modules {
		for name, raw := range module.StateDict() {
			key := fmt.Sprintf("%d.%s", i, name)
			stateDict[key] = raw
		}
	}

	return stateDict
}

// LoadStateDict loads parameters into the contained modules.
//
// Keys are expected in the same "index.name" form StateDict produces.
func (s *Sequential[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	// Split the flat dict back into per-module dicts.
	perModule := make(map[int]map[string]*tensor.RawTensor)
	for key, raw := range stateDict {
		idx, name, found := strings.Cut(key, ".")
		if !found {
			return fmt.Errorf("invalid state dict key %q: expected \"index.name\"", key)
		}

		var moduleIdx int
		if _, err := fmt.Sscanf(idx, "%d", &moduleIdx); err != nil {
			return fmt.Errorf("invalid module index in state dict key %q", key)
		}
		if moduleIdx < 0 || moduleIdx >= len(s.modules) {
			return fmt.Errorf("state dict key %q references module %d, container has %d",
				key, moduleIdx, len(s.modules))
		}

		if perModule[moduleIdx] == nil {
			perModule[moduleIdx] = make(map[string]*tensor.RawTensor)
		}
		perModule[moduleIdx][name] = raw
	}

	for i, module := range s.modules {
		sub := perModule[i]
		if len(sub) == 0 {
			// Parameterless modules (activations) have no entries.
			if len(module.Parameters()) > 0 {
				return fmt.Errorf("state dict has no entries for module %d", i)
			}
			continue
		}
		if err := module.LoadStateDict(sub); err != nil {
			return fmt.Errorf("module %d: %w", i, err)
		}
	}

	return nil
}
