package vae

import (
	"github.com/born-ml/vae/internal/tensor"
)

// BernoulliNLLBackend is an interface for backends that support the
// Bernoulli negative log-likelihood loss operation.
type BernoulliNLLBackend interface {
	BernoulliNLL(probs, target *tensor.RawTensor) *tensor.RawTensor
}

// GaussianKLBackend is an interface for backends that support the
// closed-form KL divergence against a standard-normal prior.
type GaussianKLBackend interface {
	GaussianKL(loc, scale *tensor.RawTensor) *tensor.RawTensor
}

// ReconstructionLoss computes the Bernoulli negative log-likelihood of
// target under probs, summed over pixels and averaged over the batch.
//
// Returns a scalar tensor of shape [1].
func ReconstructionLoss[B tensor.Backend](probs, target *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := probs.Backend()

	if nllBackend, ok := any(backend).(BernoulliNLLBackend); ok {
		resultRaw := nllBackend.BernoulliNLL(probs.Raw(), target.Raw())
		return tensor.New[float32, B](resultRaw, backend)
	}

	panic("ReconstructionLoss: backend must implement BernoulliNLL (use autodiff.AutodiffBackend)")
}

// KLLoss computes the KL divergence of the diagonal-Gaussian posterior
// from the standard-normal prior, summed over the latent dimension and
// averaged over the batch:
//
//	KL_b = 0.5 * sum_i( scale_i^2 + loc_i^2 - 1 - 2*log(scale_i) )
//
// Returns a scalar tensor of shape [1].
func KLLoss[B tensor.Backend](loc, scale *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	backend := loc.Backend()

	if klBackend, ok := any(backend).(GaussianKLBackend); ok {
		resultRaw := klBackend.GaussianKL(loc.Raw(), scale.Raw())
		return tensor.New[float32, B](resultRaw, backend)
	}

	panic("KLLoss: backend must implement GaussianKL (use autodiff.AutodiffBackend)")
}

// Loss assembles the negative ELBO from the model's forward outputs.
//
// total = reconstruction + kl; all three are scalar tensors of shape [1].
func Loss[B tensor.Backend](probs, target, loc, scale *tensor.Tensor[float32, B]) (total, recon, kl *tensor.Tensor[float32, B]) {
	recon = ReconstructionLoss(probs, target)
	kl = KLLoss(loc, scale)
	total = recon.Add(kl)
	return total, recon, kl
}
