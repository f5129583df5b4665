package markmesh

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"
)

// grayCover is a smooth 512x512 gray image kept away from the clamping range.
func grayCover() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, coverSide, coverSide))
	for y := 0; y < coverSide; y++ {
		for x := 0; x < coverSide; x++ {
			v := uint8(100 + 40*math.Sin(float64(x)/45)*math.Cos(float64(y)/60))
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 0xFF})
		}
	}
	return img
}

// colorCover is a smooth 512x512 color image.
func colorCover() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, coverSide, coverSide))
	for y := 0; y < coverSide; y++ {
		for x := 0; x < coverSide; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(60 + x/4),
				G: uint8(60 + y/4),
				B: uint8(120 + 30*math.Sin(float64(x+y)/70)),
				A: 0xFF,
			})
		}
	}
	return img
}

// grayWatermark is a 32x32 gray gradient with a horizontal ripple.
func grayWatermark() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, watermarkSide, watermarkSide))
	for y := 0; y < watermarkSide; y++ {
		for x := 0; x < watermarkSide; x++ {
			v := uint8(30 + 3*float64(x+y) + 20*math.Sin(float64(x)/3))
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 0xFF})
		}
	}
	return img
}

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func randomPlane(rnd *rand.Rand, w, h int) *Plane {
	p := NewPlane(w, h)
	for i := range p.Pix {
		p.Pix[i] = rnd.Float64() * 255
	}
	return p
}

func encodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func assertPlanesClose(t *testing.T, want, got *Plane, tol float64) {
	t.Helper()
	if !want.SameSize(got) {
		t.Fatalf("plane size mismatch: want %dx%d, got %dx%d", want.Width, want.Height, got.Width, got.Height)
	}
	for i := range want.Pix {
		if d := math.Abs(want.Pix[i] - got.Pix[i]); d > tol {
			t.Fatalf("sample %d differs: want %.9f got %.9f", i, want.Pix[i], got.Pix[i])
		}
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quietEmbed(o *EmbedOptions) { o.Logger = quietLogger() }

func quietExtract(o *ExtractOptions) { o.Logger = quietLogger() }
