package markmesh

import (
	"fmt"
	"math"
)

// ColorTransform converts between RGB planes and a luma/chroma representation.
// A round trip must stay well below one 8-bit level and implementations must
// not quantize.
type ColorTransform interface {
	// Name identifies the transform in logs and errors.
	Name() string
	// Channels names the luma/chroma planes in order.
	Channels() [3]string
	ToLumaChroma(rgb [3]*Plane) ([3]*Plane, error)
	ToRGB(lc [3]*Plane) ([3]*Plane, error)
}

// MatrixTransform is an affine color transform: lc = M*rgb + offset.
type MatrixTransform struct {
	name     string
	channels [3]string
	forward  [3][3]float64
	inverse  [3][3]float64
	offset   [3]float64
}

// NewMatrixTransform builds a transform from a forward matrix and offset.
// The inverse is computed numerically.
func NewMatrixTransform(name string, channels [3]string, forward [3][3]float64, offset [3]float64) (*MatrixTransform, error) {
	inv, ok := invert3x3(forward)
	if !ok {
		return nil, fmt.Errorf("%s: forward matrix is singular", name)
	}
	return &MatrixTransform{name: name, channels: channels, forward: forward, inverse: inv, offset: offset}, nil
}

// NewMatrixTransformWithInverse builds a transform from published forward and
// inverse matrices. The pair must agree to within inverseTolerance.
func NewMatrixTransformWithInverse(name string, channels [3]string, forward, inverse [3][3]float64, offset [3]float64) (*MatrixTransform, error) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var v float64
			for k := 0; k < 3; k++ {
				v += inverse[i][k] * forward[k][j]
			}
			if i == j {
				v--
			}
			if math.Abs(v) > inverseTolerance || math.IsNaN(v) {
				return nil, fmt.Errorf("%s: inverse does not match forward matrix at [%d][%d]", name, i, j)
			}
		}
	}
	return &MatrixTransform{name: name, channels: channels, forward: forward, inverse: inverse, offset: offset}, nil
}

func mustMatrixTransform(name string, channels [3]string, forward, inverse [3][3]float64, offset [3]float64) *MatrixTransform {
	t, err := NewMatrixTransformWithInverse(name, channels, forward, inverse, offset)
	if err != nil {
		panic(err)
	}
	return t
}

var (
	// LosslessYCbCr is the embedding-path transform in Y, Cb, Cr order without offsets.
	// Its inverse has a luma column of exactly 1, so gray stays gray.
	LosslessYCbCr = mustMatrixTransform("lossless-ycbcr", [3]string{"Y", "Cb", "Cr"},
		[3][3]float64{
			{0.299, 0.587, 0.114},
			{-0.168736, -0.331264, 0.5},
			{0.5, -0.418688, -0.081312},
		},
		[3][3]float64{
			{1, 0, 1.402},
			{1, -0.344136, -0.714136},
			{1, 1.772, 0},
		},
		[3]float64{0, 0, 0},
	)

	// StandardYCrCb is the extraction-path BT.601 transform in Y, Cr, Cb order,
	// chroma centered at 128 with the 0.713/0.564 scale factors.
	StandardYCrCb = mustMatrixTransform("standard-ycrcb", [3]string{"Y", "Cr", "Cb"},
		[3][3]float64{
			{0.299, 0.587, 0.114},
			{0.713 * (1 - 0.299), 0.713 * -0.587, 0.713 * -0.114},
			{0.564 * -0.299, 0.564 * -0.587, 0.564 * (1 - 0.114)},
		},
		[3][3]float64{
			{1, 1.403, 0},
			{1, -0.714, -0.344},
			{1, 0, 1.773},
		},
		[3]float64{0, 128, 128},
	)
)

func (t *MatrixTransform) Name() string { return t.name }

func (t *MatrixTransform) Channels() [3]string { return t.channels }

// Forward returns a copy of the forward matrix.
func (t *MatrixTransform) Forward() [3][3]float64 { return t.forward }

// Inverse returns a copy of the inverse matrix.
func (t *MatrixTransform) Inverse() [3][3]float64 { return t.inverse }

// LumaGain is the RGB change caused by a unit change of the luma plane.
func (t *MatrixTransform) LumaGain() [3]float64 {
	return [3]float64{t.inverse[0][0], t.inverse[1][0], t.inverse[2][0]}
}

func (t *MatrixTransform) ToLumaChroma(rgb [3]*Plane) ([3]*Plane, error) {
	if err := t.checkPlanes(rgb); err != nil {
		return [3]*Plane{}, err
	}
	return apply3x3(t.forward, rgb, [3]float64{}, t.offset), nil
}

func (t *MatrixTransform) ToRGB(lc [3]*Plane) ([3]*Plane, error) {
	if err := t.checkPlanes(lc); err != nil {
		return [3]*Plane{}, err
	}
	return apply3x3(t.inverse, lc, t.offset, [3]float64{}), nil
}

func (t *MatrixTransform) checkPlanes(planes [3]*Plane) error {
	for i, p := range planes {
		if p == nil {
			return &ColorConversionError{Transform: t.name, Reason: fmt.Sprintf("plane %d is missing", i)}
		}
	}
	if !planes[0].SameSize(planes[1]) || !planes[0].SameSize(planes[2]) {
		return &ColorConversionError{
			Transform: t.name,
			Reason: fmt.Sprintf("plane sizes differ: %dx%d, %dx%d, %dx%d",
				planes[0].Width, planes[0].Height,
				planes[1].Width, planes[1].Height,
				planes[2].Width, planes[2].Height),
		}
	}
	return nil
}

// apply3x3 computes out = m*(in - pre) + post for every pixel.
func apply3x3(m [3][3]float64, in [3]*Plane, pre, post [3]float64) [3]*Plane {
	w, h := in[0].Width, in[0].Height
	var out [3]*Plane
	for c := range out {
		out[c] = NewPlane(w, h)
	}
	parallelFor(h, func(start, end int) {
		for i := start * w; i < end*w; i++ {
			a := in[0].Pix[i] - pre[0]
			b := in[1].Pix[i] - pre[1]
			c := in[2].Pix[i] - pre[2]
			out[0].Pix[i] = m[0][0]*a + m[0][1]*b + m[0][2]*c + post[0]
			out[1].Pix[i] = m[1][0]*a + m[1][1]*b + m[1][2]*c + post[1]
			out[2].Pix[i] = m[2][0]*a + m[2][1]*b + m[2][2]*c + post[2]
		}
	})
	return out
}

func invert3x3(m [3][3]float64) ([3][3]float64, bool) {
	c00 := m[1][1]*m[2][2] - m[1][2]*m[2][1]
	c01 := m[1][2]*m[2][0] - m[1][0]*m[2][2]
	c02 := m[1][0]*m[2][1] - m[1][1]*m[2][0]
	det := m[0][0]*c00 + m[0][1]*c01 + m[0][2]*c02
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return [3][3]float64{}, false
	}
	inv := 1 / det
	return [3][3]float64{
		{c00 * inv, (m[0][2]*m[2][1] - m[0][1]*m[2][2]) * inv, (m[0][1]*m[1][2] - m[0][2]*m[1][1]) * inv},
		{c01 * inv, (m[0][0]*m[2][2] - m[0][2]*m[2][0]) * inv, (m[0][2]*m[1][0] - m[0][0]*m[1][2]) * inv},
		{c02 * inv, (m[0][1]*m[2][0] - m[0][0]*m[2][1]) * inv, (m[0][0]*m[1][1] - m[0][1]*m[1][0]) * inv},
	}, true
}
