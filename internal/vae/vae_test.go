package vae_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/born-ml/vae/internal/autodiff"
	"github.com/born-ml/vae/internal/backend/cpu"
	"github.com/born-ml/vae/internal/tensor"
	"github.com/born-ml/vae/internal/vae"
)

type testBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func newBackend() testBackend {
	return autodiff.New(cpu.New())
}

// smallConfig is the end-to-end scenario architecture: latent dimension 2,
// generator hidden [4], inference hidden [4, 4], data dimension 8.
func smallConfig() vae.Config {
	return vae.Config{
		LatentDims:      2,
		DataDims:        8,
		GeneratorHidden: []int{4},
		InferenceHidden: []int{4, 4},
		Activation:      vae.ActivationReLU,
		ScaleTransform:  vae.ScaleTransformSoftplus,
	}
}

func newModel(t *testing.T, config vae.Config, seed int64, backend testBackend) *vae.Model[testBackend] {
	t.Helper()
	model, err := vae.New(config, rand.New(rand.NewSource(seed)), backend)
	require.NoError(t, err)
	return model
}

func fromSlice(t *testing.T, backend testBackend, data []float32, shape tensor.Shape) *tensor.Tensor[float32, testBackend] {
	t.Helper()
	x, err := tensor.FromSlice(data, shape, backend)
	require.NoError(t, err)
	return x
}

func TestConfigValidate(t *testing.T) {
	valid := smallConfig()
	require.NoError(t, valid.Validate())

	cases := []struct {
		name   string
		mutate func(*vae.Config)
	}{
		{"zero latent dims", func(c *vae.Config) { c.LatentDims = 0 }},
		{"negative data dims", func(c *vae.Config) { c.DataDims = -1 }},
		{"zero generator hidden", func(c *vae.Config) { c.GeneratorHidden = []int{0} }},
		{"empty inference hidden", func(c *vae.Config) { c.InferenceHidden = nil }},
		{"zero inference hidden", func(c *vae.Config) { c.InferenceHidden = []int{4, 0} }},
		{"bad activation", func(c *vae.Config) { c.Activation = "gelu" }},
		{"bad scale transform", func(c *vae.Config) { c.ScaleTransform = "square" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := smallConfig()
			tc.mutate(&config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	backend := newBackend()
	config := smallConfig()
	config.Activation = "swish"

	_, err := vae.New(config, rand.New(rand.NewSource(1)), backend)
	assert.Error(t, err)
}

func TestKLNonNegative(t *testing.T) {
	backend := newBackend()

	cases := []struct {
		name  string
		loc   []float32
		scale []float32
	}{
		{"wide posterior", []float32{0, 0}, []float32{3, 2}},
		{"narrow posterior", []float32{0, 0}, []float32{0.1, 0.5}},
		{"shifted posterior", []float32{2, -3}, []float32{1, 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loc := fromSlice(t, backend, tc.loc, tensor.Shape{1, 2})
			scale := fromSlice(t, backend, tc.scale, tensor.Shape{1, 2})
			kl := vae.KLLoss(loc, scale).Item()
			assert.Greater(t, kl, float32(0), "KL must be positive away from the prior")
		})
	}
}

func TestKLZeroAtStandardNormal(t *testing.T) {
	backend := newBackend()

	loc := fromSlice(t, backend, []float32{0, 0, 0}, tensor.Shape{1, 3})
	scale := fromSlice(t, backend, []float32{1, 1, 1}, tensor.Shape{1, 3})

	kl := vae.KLLoss(loc, scale).Item()
	assert.InDelta(t, 0, kl, 1e-6, "KL is zero iff posterior equals the prior")
}

func TestReparameterizeZeroNoiseReturnsLoc(t *testing.T) {
	backend := newBackend()

	loc := fromSlice(t, backend, []float32{0.5, -1.5, 2, 0}, tensor.Shape{2, 2})
	scale := fromSlice(t, backend, []float32{1, 2, 0.1, 3}, tensor.Shape{2, 2})
	eps := fromSlice(t, backend, []float32{0, 0, 0, 0}, tensor.Shape{2, 2})

	z := vae.Reparameterize(loc, scale, eps)

	assert.Equal(t, loc.Data(), z.Data(), "zero noise must return exactly loc")
}

func TestReparameterizeSampleStatistics(t *testing.T) {
	backend := newBackend()
	rng := rand.New(rand.NewSource(99))

	const draws = 20000
	wantLoc := float32(1.5)
	wantScale := float32(0.5)

	loc := fromSlice(t, backend, []float32{wantLoc}, tensor.Shape{1, 1})
	scale := fromSlice(t, backend, []float32{wantScale}, tensor.Shape{1, 1})

	samples := make([]float64, draws)
	for i := range samples {
		eps := tensor.Randn[float32](tensor.Shape{1, 1}, rng, backend)
		samples[i] = float64(vae.Reparameterize(loc, scale, eps).Item())
	}

	mean := stat.Mean(samples, nil)
	std := stat.StdDev(samples, nil)
	assert.InDelta(t, float64(wantLoc), mean, 0.02, "empirical mean tracks loc")
	assert.InDelta(t, float64(wantScale), std, 0.02, "empirical std tracks scale")
}

func TestDecoderOutputStrictlyInUnitInterval(t *testing.T) {
	backend := newBackend()
	model := newModel(t, smallConfig(), 3, backend)

	// Large-magnitude latents push the pre-sigmoid activations far from
	// zero; outputs must still be strictly inside (0, 1).
	latents := fromSlice(t, backend, []float32{
		100, -100,
		-50, 75,
		0, 0,
	}, tensor.Shape{3, 2})

	probs := model.Decoder().Forward(latents)
	for i, p := range probs.Data() {
		assert.Greater(t, p, float32(0), "probs[%d]", i)
		assert.Less(t, p, float32(1), "probs[%d]", i)
	}
}

func TestEncoderScaleStrictlyPositive(t *testing.T) {
	for _, transform := range []string{vae.ScaleTransformExp, vae.ScaleTransformSoftplus} {
		t.Run(transform, func(t *testing.T) {
			backend := newBackend()
			config := smallConfig()
			config.ScaleTransform = transform
			model := newModel(t, config, 4, backend)

			x := fromSlice(t, backend, []float32{
				1, 0, 1, 1, 0, 0, 1, 0,
				0, 0, 0, 0, 0, 0, 0, 0,
			}, tensor.Shape{2, 8})

			_, scale := model.Encoder().Forward(x)
			for i, s := range scale.Data() {
				assert.Greater(t, s, float32(0), "scale[%d]", i)
			}
		})
	}
}

func TestPhantasizeCountAndShape(t *testing.T) {
	backend := newBackend()
	model := newModel(t, smallConfig(), 5, backend)

	samples := model.Phantasize(7)

	require.True(t, samples.Shape().Equal(tensor.Shape{7, 8}),
		"Phantasize(7) shape = %v", samples.Shape())
	for i, p := range samples.Data() {
		assert.False(t, math.IsNaN(float64(p)), "sample value %d is NaN", i)
	}
}

func TestReconstructionsCountAndShape(t *testing.T) {
	backend := newBackend()
	model := newModel(t, smallConfig(), 6, backend)

	x := fromSlice(t, backend, []float32{1, 0, 1, 0, 1, 0, 1, 0}, tensor.Shape{1, 8})
	reconstructions := model.Reconstructions(x, 5)

	require.Len(t, reconstructions, 5)
	for i, r := range reconstructions {
		assert.True(t, r.Shape().Equal(x.Shape()),
			"reconstruction %d shape = %v, want %v", i, r.Shape(), x.Shape())
	}
}

func TestForwardEndToEnd(t *testing.T) {
	backend := newBackend()
	model := newModel(t, smallConfig(), 7, backend)

	// Batch of 3 all-zero observations.
	x := fromSlice(t, backend, make([]float32, 3*8), tensor.Shape{3, 8})

	probs, loc, scale := model.Forward(x)

	require.True(t, probs.Shape().Equal(tensor.Shape{3, 8}), "probs shape = %v", probs.Shape())
	require.True(t, loc.Shape().Equal(tensor.Shape{3, 2}), "loc shape = %v", loc.Shape())
	require.True(t, scale.Shape().Equal(tensor.Shape{3, 2}), "scale shape = %v", scale.Shape())

	kl := vae.KLLoss(loc, scale).Item()
	require.False(t, math.IsNaN(float64(kl)) || math.IsInf(float64(kl), 0), "KL must be finite")
	assert.GreaterOrEqual(t, kl, float32(0))

	total, recon, klTerm := vae.Loss(probs, x, loc, scale)
	assert.InDelta(t, float64(recon.Item())+float64(klTerm.Item()), float64(total.Item()), 1e-5)
}

func TestStateDictRoundTripReproducesOutputs(t *testing.T) {
	backend := newBackend()
	src := newModel(t, smallConfig(), 8, backend)
	dst := newModel(t, smallConfig(), 1234, backend)

	require.NoError(t, dst.LoadStateDict(src.StateDict()))

	x := fromSlice(t, backend, []float32{1, 1, 0, 0, 1, 0, 1, 1}, tensor.Shape{1, 8})

	srcLoc, srcScale := src.Encoder().Forward(x)
	dstLoc, dstScale := dst.Encoder().Forward(x)
	assert.Equal(t, srcLoc.Data(), dstLoc.Data(), "loc must match after state dict round trip")
	assert.Equal(t, srcScale.Data(), dstScale.Data(), "scale must match after state dict round trip")

	// Fixed noise: decode the same latent through both models.
	z := fromSlice(t, backend, []float32{0.3, -0.7}, tensor.Shape{1, 2})
	srcProbs := src.Decoder().Forward(z)
	dstProbs := dst.Decoder().Forward(z)
	assert.Equal(t, srcProbs.Data(), dstProbs.Data(), "probs must match after state dict round trip")
}

func TestLoadStateDictRejectsUnknownKeys(t *testing.T) {
	backend := newBackend()
	model := newModel(t, smallConfig(), 9, backend)

	raw, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)

	err = model.LoadStateDict(map[string]*tensor.RawTensor{"mystery.weight": raw})
	assert.Error(t, err)
}

func TestLossGradientsReachAllParameters(t *testing.T) {
	backend := newBackend()
	model := newModel(t, smallConfig(), 10, backend)

	x := fromSlice(t, backend, []float32{
		1, 0, 0, 1, 1, 1, 0, 0,
		0, 1, 1, 0, 0, 0, 1, 1,
	}, tensor.Shape{2, 8})

	tape := backend.GetTape()
	tape.Clear()
	tape.StartRecording()

	probs, loc, scale := model.Forward(x)
	total, _, _ := vae.Loss(probs, x, loc, scale)

	grads := autodiff.Backward(total, backend)
	tape.StopRecording()
	tape.Clear()

	for _, param := range model.Parameters() {
		grad, ok := grads[param.Tensor().Raw()]
		require.True(t, ok, "no gradient for parameter %q", param.Name())
		for i, g := range grad.AsFloat32() {
			require.False(t, math.IsNaN(float64(g)),
				"gradient for %q has NaN at %d", param.Name(), i)
		}
	}
}
