package markmesh

import (
	"fmt"
	"log/slog"
	"math"
)

// Codec modulates a payload into a plane through even/odd row pairs.
//
// Each row pair (2k, 2k+1) is replaced by its average plus and minus the scaled
// payload, so local brightness is kept and the payload lives in the row difference.
// The zero value is ready to use.
type Codec struct {
	// BlurSize is the Gaussian kernel size applied to the payload, 5 by default.
	// Negative disables smoothing.
	BlurSize int
	// Sigma of the Gaussian, derived from BlurSize when zero.
	Sigma float64
	// Interpolation used to fit the payload to the half-height plane.
	Interpolation Interpolation
	Logger        *slog.Logger
}

// Embed hides payload in cover with strength alpha and returns a new plane of the
// cover's shape. Output values are not clamped. A trailing row of an odd-height
// cover is copied unchanged.
func (c Codec) Embed(cover, payload *Plane, alpha float64) (*Plane, error) {
	if err := validateAlpha(alpha); err != nil {
		return nil, err
	}
	if cover == nil || payload == nil {
		return nil, fmt.Errorf("%w: nil plane", ErrValidation)
	}
	if cover.Height < 2 || cover.Width == 0 {
		return nil, fmt.Errorf("%w: cover plane %dx%d has no row pair", ErrValidation, cover.Width, cover.Height)
	}
	if payload.Width == 0 || payload.Height == 0 {
		return nil, fmt.Errorf("%w: empty payload plane", ErrValidation)
	}

	rows := splitRows(cover)
	even, odd := rows.even(), rows.odd()

	if !payload.SameSize(even) {
		payload = ResamplePlane(payload, even.Width, even.Height, c.Interpolation)
	}
	if size := c.blurSize(); size > 1 {
		payload = gaussianBlur(payload, size, c.sigma(size))
	}

	newEven := NewPlane(even.Width, even.Height)
	newOdd := NewPlane(odd.Width, odd.Height)
	for i := range even.Pix {
		base := (even.Pix[i] + odd.Pix[i]) / 2
		s := payload.Pix[i] * alpha
		newEven.Pix[i] = base + s
		newOdd.Pix[i] = base - s
	}

	out := interleaveRows(newEven, newOdd)
	if cover.Height%2 != 0 {
		tail := NewPlane(cover.Width, cover.Height)
		copy(tail.Pix, out.Pix)
		copy(tail.Row(cover.Height-1), cover.Row(cover.Height-1))
		out = tail
	}
	return out, nil
}

// Demodulate returns the raw row difference (even-odd)/(2*alpha) of suspect.
// An odd trailing row is dropped with a warning. The result has half the height.
func (c Codec) Demodulate(suspect *Plane, alpha float64) (*Plane, error) {
	if err := validateAlpha(alpha); err != nil {
		return nil, err
	}
	if suspect == nil {
		return nil, fmt.Errorf("%w: nil plane", ErrValidation)
	}
	if suspect.Height%2 != 0 {
		c.logger().Warn("odd plane height, dropping last row", "height", suspect.Height)
	}
	if suspect.Height < 2 || suspect.Width == 0 {
		return nil, fmt.Errorf("%w: plane %dx%d has no row pair", ErrNoSignal, suspect.Width, suspect.Height)
	}

	rows := splitRows(suspect)
	even, odd := rows.even(), rows.odd()

	out := NewPlane(even.Width, even.Height)
	scale := 2 * alpha
	for i := range out.Pix {
		out.Pix[i] = (even.Pix[i] - odd.Pix[i]) / scale
	}
	return out, nil
}

// Recover demodulates suspect and stretches the result to the 8-bit display range.
// The amplitude is relative: the minimum maps to 0 and the maximum to 255.
func (c Codec) Recover(suspect *Plane, alpha float64) (*Plane, error) {
	raw, err := c.Demodulate(suspect, alpha)
	if err != nil {
		return nil, err
	}
	return NormalizeMinMax(raw), nil
}

// NormalizeMinMax maps p affinely onto [0, 255] and rounds to integers.
// A plane whose spread is below flatSpan is treated as constant and becomes
// mid-gray, so float rounding residue is never stretched into full-range noise.
func NormalizeMinMax(p *Plane) *Plane {
	out := NewPlane(p.Width, p.Height)
	if len(p.Pix) == 0 {
		return out
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range p.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	if !(span > flatSpan) || math.IsInf(span, 0) {
		for i := range out.Pix {
			out.Pix[i] = midGray
		}
		return out
	}
	scale := pixelMax / span
	for i, v := range p.Pix {
		out.Pix[i] = math.Round((v - lo) * scale)
	}
	return out
}

func (c Codec) blurSize() int {
	switch {
	case c.BlurSize == 0:
		return defaultBlurSize
	case c.BlurSize < 0:
		return 0
	case c.BlurSize%2 == 0:
		return c.BlurSize + 1
	default:
		return c.BlurSize
	}
}

// sigma follows the usual automatic choice for a given kernel size, 1.1 for 5x5.
func (c Codec) sigma(size int) float64 {
	if c.Sigma > 0 {
		return c.Sigma
	}
	return 0.3*(float64(size-1)*0.5-1) + 0.8
}

func (c Codec) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
