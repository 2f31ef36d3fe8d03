package nn_test

import (
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/born-ml/vae/internal/nn"
	"github.com/born-ml/vae/internal/tensor"
)

// fakeOptimizer implements nn.OptimizerState for checkpoint tests without
// importing optim (which would create an import cycle in tests of real use).
type fakeOptimizer struct {
	state map[string]*tensor.RawTensor
	lr    float32
}

func (f *fakeOptimizer) StateDict() map[string]*tensor.RawTensor {
	return f.state
}

func (f *fakeOptimizer) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	f.state = stateDict
	return nil
}

func (f *fakeOptimizer) GetLR() float32 {
	return f.lr
}

func TestCheckpointSaveLoad(t *testing.T) {
	backend := newBackend()
	path := filepath.Join(t.TempDir(), "checkpoint_epoch_003.bvae")

	model := nn.NewSequential[testBackend](
		nn.NewLinear(4, 3, rand.New(rand.NewSource(1)), backend),
		nn.NewReLU[testBackend](),
		nn.NewLinear(3, 2, rand.New(rand.NewSource(2)), backend),
	)

	velocity, _ := tensor.NewRaw(tensor.Shape{3, 4}, tensor.Float32, tensor.CPU)
	copy(velocity.AsFloat32(), []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12})
	optimizer := &fakeOptimizer{
		state: map[string]*tensor.RawTensor{"velocity.0": velocity},
		lr:    0.01,
	}

	checkpoint := &nn.Checkpoint[testBackend]{
		Model:     model,
		Optimizer: optimizer,
		Epoch:     3,
		Step:      1500,
		Loss:      105.2,
		CreatedAt: time.Now().UTC(),
	}
	if err := checkpoint.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	restoredModel := nn.NewSequential[testBackend](
		nn.NewLinear(4, 3, rand.New(rand.NewSource(9)), backend),
		nn.NewReLU[testBackend](),
		nn.NewLinear(3, 2, rand.New(rand.NewSource(10)), backend),
	)
	restoredOptimizer := &fakeOptimizer{lr: 0.01}

	restored, err := nn.LoadCheckpoint(path, restoredModel, restoredOptimizer)
	if err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}

	if restored.Epoch != 3 {
		t.Errorf("Epoch = %d, want 3", restored.Epoch)
	}
	if restored.Step != 1500 {
		t.Errorf("Step = %d, want 1500", restored.Step)
	}
	if restored.Loss != 105.2 {
		t.Errorf("Loss = %f, want 105.2", restored.Loss)
	}

	// Model weights must match.
	input, _ := tensor.FromSlice([]float32{1, -2, 0.5, 3}, tensor.Shape{1, 4}, backend)
	srcOut := model.Forward(input).Data()
	dstOut := restoredModel.Forward(input).Data()
	for i := range srcOut {
		if !floatEqual(srcOut[i], dstOut[i], 1e-6) {
			t.Errorf("output[%d]: %f != %f after checkpoint restore", i, srcOut[i], dstOut[i])
		}
	}

	// Optimizer state must come back under its original keys.
	restoredVelocity, ok := restoredOptimizer.state["velocity.0"]
	if !ok {
		t.Fatal("restored optimizer missing velocity.0")
	}
	got := restoredVelocity.AsFloat32()
	for i, want := range velocity.AsFloat32() {
		if !floatEqual(got[i], want, 1e-6) {
			t.Errorf("velocity[%d] = %f, want %f", i, got[i], want)
		}
	}
}

func TestCheckpointWithoutOptimizer(t *testing.T) {
	backend := newBackend()
	path := filepath.Join(t.TempDir(), "model_only.bvae")

	model := nn.NewSequential[testBackend](
		nn.NewLinear(2, 2, rand.New(rand.NewSource(1)), backend),
	)

	checkpoint := &nn.Checkpoint[testBackend]{Model: model, Optimizer: nil, Epoch: 1}
	if err := checkpoint.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := nn.LoadCheckpoint(path, model, nil); err != nil {
		t.Fatalf("LoadCheckpoint with nil optimizer failed: %v", err)
	}
}

func TestSaveCheckpointConvenience(t *testing.T) {
	backend := newBackend()
	path := filepath.Join(t.TempDir(), "conv.bvae")

	model := nn.NewSequential[testBackend](
		nn.NewLinear(2, 2, rand.New(rand.NewSource(1)), backend),
	)

	if err := nn.SaveCheckpoint(path, model, nil, 5, 42.0); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	restored, err := nn.LoadCheckpoint(path, model, nil)
	if err != nil {
		t.Fatalf("LoadCheckpoint failed: %v", err)
	}
	if restored.Epoch != 5 {
		t.Errorf("Epoch = %d, want 5", restored.Epoch)
	}
	if restored.Loss != 42.0 {
		t.Errorf("Loss = %f, want 42.0", restored.Loss)
	}
}
