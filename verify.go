package markmesh

import (
	"fmt"
	"image"
	"math"
)

// Verify compares a candidate watermark with the reference and classifies it.
// The candidate is resized to the reference size before scoring.
func Verify(reference, candidate image.Image, opts ...func(o *VerifyOptions)) (*VerificationResult, error) {
	opt := verifyOptions(opts)

	m, err := Measure(reference, candidate)
	if err != nil {
		return nil, err
	}
	return &VerificationResult{
		PSNR:        m.PSNR,
		SSIM:        m.SSIM,
		Correlation: m.Correlation,
		Verdict:     Decide(m, opt.Thresholds),
	}, nil
}

// VerifyBytes decodes both watermarks and verifies them.
func VerifyBytes(reference, candidate []byte, opts ...func(o *VerifyOptions)) (*VerificationResult, error) {
	ref, err := DecodeBytes("initial watermark", reference)
	if err != nil {
		return nil, err
	}
	cand, err := DecodeBytes("extracted watermark", candidate)
	if err != nil {
		return nil, err
	}
	return Verify(ref, cand, opts...)
}

// Measure computes PSNR, SSIM and Pearson correlation over all RGB samples.
func Measure(reference, candidate image.Image) (Metrics, error) {
	if reference == nil || candidate == nil {
		return Metrics{}, fmt.Errorf("%w: both watermark images are required", ErrValidation)
	}
	rb := reference.Bounds()
	if rb.Dx() < ssimWindow || rb.Dy() < ssimWindow {
		return Metrics{}, fmt.Errorf("%w: reference %dx%d is smaller than the %dx%d SSIM window",
			ErrValidation, rb.Dx(), rb.Dy(), ssimWindow, ssimWindow)
	}
	if cb := candidate.Bounds(); cb.Dx() == 0 || cb.Dy() == 0 {
		return Metrics{}, fmt.Errorf("%w: empty candidate image", ErrValidation)
	}

	var m Metrics
	err := guard("verify", func() error {
		ref := toNRGBA(reference)
		cand := toNRGBA(scaleLinear(candidate, rb.Dx(), rb.Dy()))

		a, b := samples(ref), samples(cand)
		m.PSNR = psnr(a, b)
		m.Correlation = pearson(a, b)
		m.SSIM = ssim(rgbPlanes(ref), rgbPlanes(cand))
		return nil
	})
	return m, err
}

// Decide applies the conjunctive threshold rule: every metric must reach its
// threshold for an Authentic verdict.
func Decide(m Metrics, t Thresholds) Verdict {
	if m.PSNR >= t.PSNR && m.SSIM >= t.SSIM && m.Correlation >= t.Correlation {
		return Authentic
	}
	return Tampered
}

func psnr(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	mse := sum / float64(len(a))
	if mse == 0 {
		return PSNRSentinel
	}
	return 10 * math.Log10(pixelMax*pixelMax/mse)
}

// pearson returns the correlation coefficient of a and b. Constant inputs have no
// defined coefficient: equal sequences score 1 and anything else 0.
func pearson(a, b []float64) float64 {
	n := float64(len(a))
	var ma, mb float64
	for i := range a {
		ma += a[i]
		mb += b[i]
	}
	ma /= n
	mb /= n

	var cov, va, vb float64
	for i := range a {
		da, db := a[i]-ma, b[i]-mb
		cov += da * db
		va += da * da
		vb += db * db
	}
	if va == 0 || vb == 0 {
		if va == vb && ma == mb {
			return 1
		}
		return 0
	}
	r := cov / math.Sqrt(va*vb)
	return math.Max(-1, math.Min(1, r))
}
