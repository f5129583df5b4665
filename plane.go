package markmesh

import (
	"fmt"
	"image"
	"image/draw"
	"math"
)

// Plane is a single floating-point channel stored row-major.
type Plane struct {
	Width  int
	Height int
	Pix    []float64
}

// NewPlane allocates a zeroed w x h plane.
func NewPlane(w, h int) *Plane {
	if w < 0 || h < 0 {
		panic(fmt.Sprintf("markmesh: negative plane size %dx%d", w, h))
	}
	return &Plane{Width: w, Height: h, Pix: make([]float64, w*h)}
}

// At returns the sample at column x, row y.
func (p *Plane) At(x, y int) float64 { return p.Pix[y*p.Width+x] }

// Set stores v at column x, row y.
func (p *Plane) Set(x, y int, v float64) { p.Pix[y*p.Width+x] = v }

// Row returns row y as a slice sharing the plane buffer.
func (p *Plane) Row(y int) []float64 { return p.Pix[y*p.Width : (y+1)*p.Width] }

// SameSize reports whether p and o have equal dimensions.
func (p *Plane) SameSize(o *Plane) bool {
	return p != nil && o != nil && p.Width == o.Width && p.Height == o.Height
}

// Clone returns a deep copy.
func (p *Plane) Clone() *Plane {
	out := &Plane{Width: p.Width, Height: p.Height, Pix: make([]float64, len(p.Pix))}
	copy(out.Pix, p.Pix)
	return out
}

// Gray quantizes the plane into an 8-bit image, clamping to [0, 255].
func (p *Plane) Gray() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		row := p.Row(y)
		dst := out.Pix[y*out.Stride:]
		for x, v := range row {
			dst[x] = clampToByte(v)
		}
	}
	return out
}

// rowPairs holds the even and odd rows of a plane in one arena, indexed by parity.
type rowPairs struct {
	arena  []float64
	parity [2]*Plane
}

func (rp *rowPairs) even() *Plane { return rp.parity[0] }
func (rp *rowPairs) odd() *Plane  { return rp.parity[1] }

// splitRows copies rows 0,2,4,... and 1,3,5,... of p into separate planes.
// p.Height must be even.
func splitRows(p *Plane) *rowPairs {
	half := p.Height / 2
	n := half * p.Width
	rp := &rowPairs{arena: make([]float64, 2*n)}
	for k := 0; k < 2; k++ {
		rp.parity[k] = &Plane{Width: p.Width, Height: half, Pix: rp.arena[k*n : (k+1)*n : (k+1)*n]}
	}
	for y := 0; y < 2*half; y++ {
		copy(rp.parity[y%2].Row(y/2), p.Row(y))
	}
	return rp
}

// interleaveRows builds a new plane taking row y from even or odd by its parity.
func interleaveRows(even, odd *Plane) *Plane {
	out := NewPlane(even.Width, even.Height+odd.Height)
	src := [2]*Plane{even, odd}
	for y := 0; y < out.Height; y++ {
		copy(out.Row(y), src[y%2].Row(y/2))
	}
	return out
}

// toNRGBA copies src into a non-premultiplied RGBA buffer anchored at (0, 0).
func toNRGBA(src image.Image) *image.NRGBA {
	if img, ok := src.(*image.NRGBA); ok && img.Rect.Min == (image.Point{}) {
		return img
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, src, b.Min, draw.Src)
	return dst
}

// rgbPlanes splits an image into R, G and B float planes, ignoring alpha.
func rgbPlanes(src image.Image) [3]*Plane {
	img := toNRGBA(src)
	w, h := img.Rect.Dx(), img.Rect.Dy()
	var planes [3]*Plane
	for c := range planes {
		planes[c] = NewPlane(w, h)
	}
	parallelFor(h, func(start, end int) {
		for y := start; y < end; y++ {
			row := img.Pix[y*img.Stride:]
			for x := 0; x < w; x++ {
				off := x * 4
				planes[0].Pix[y*w+x] = float64(row[off+0])
				planes[1].Pix[y*w+x] = float64(row[off+1])
				planes[2].Pix[y*w+x] = float64(row[off+2])
			}
		}
	})
	return planes
}

// quantizeRGB clamps R, G, B planes to [0, 255] and packs them into an opaque image.
func quantizeRGB(planes [3]*Plane) *image.NRGBA {
	w, h := planes[0].Width, planes[0].Height
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	parallelFor(h, func(start, end int) {
		for y := start; y < end; y++ {
			row := out.Pix[y*out.Stride:]
			for x := 0; x < w; x++ {
				off := x * 4
				i := y*w + x
				row[off+0] = clampToByte(planes[0].Pix[i])
				row[off+1] = clampToByte(planes[1].Pix[i])
				row[off+2] = clampToByte(planes[2].Pix[i])
				row[off+3] = 0xFF
			}
		}
	})
	return out
}

// samples flattens an image into interleaved R, G, B values.
func samples(src image.Image) []float64 {
	img := toNRGBA(src)
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := make([]float64, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			off := x * 4
			out = append(out, float64(row[off]), float64(row[off+1]), float64(row[off+2]))
		}
	}
	return out
}

func clampToByte(v float64) uint8 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
