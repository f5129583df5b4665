package markmesh

import (
	"errors"
	"image"
	"testing"
)

// stubTransform wraps another transform and can break either direction.
type stubTransform struct {
	ColorTransform
	forward func(lc [3]*Plane) [3]*Plane
	failRGB bool
}

func (s stubTransform) ToLumaChroma(rgb [3]*Plane) ([3]*Plane, error) {
	lc, err := s.ColorTransform.ToLumaChroma(rgb)
	if err != nil || s.forward == nil {
		return lc, err
	}
	return s.forward(lc), nil
}

func (s stubTransform) ToRGB(lc [3]*Plane) ([3]*Plane, error) {
	if s.failRGB {
		return [3]*Plane{}, errors.New("planes cannot be merged")
	}
	return s.ColorTransform.ToRGB(lc)
}

func TestExtractRoundTrip(t *testing.T) {
	wm := grayWatermark()
	embedded, err := Embed(grayCover(), wm, quietEmbed)
	if err != nil {
		t.Fatal(err)
	}

	res, err := Extract(embedded, quietExtract)
	if err != nil {
		t.Fatal(err)
	}
	if res.Mode != ModeFullColor || res.Cause != nil {
		t.Fatalf("mode %v, cause %v", res.Mode, res.Cause)
	}
	if ShapeOf(res.Image) != WatermarkShape {
		t.Fatalf("shape %v", ShapeOf(res.Image))
	}
	if _, ok := res.Image.(*image.NRGBA); !ok {
		t.Fatalf("unexpected image type %T", res.Image)
	}
	for c, p := range res.Planes {
		if p.Width != coverSide || p.Height != coverSide/2 {
			t.Fatalf("plane %d is %dx%d", c, p.Width, p.Height)
		}
	}

	m, err := Measure(wm, res.Image)
	if err != nil {
		t.Fatal(err)
	}
	if m.Correlation < 0.8 {
		t.Fatalf("correlation %.4f is too low", m.Correlation)
	}
}

func TestExtractColorCoverLuma(t *testing.T) {
	wm := grayWatermark()
	embedded, err := Embed(colorCover(), wm, quietEmbed)
	if err != nil {
		t.Fatal(err)
	}

	res, err := Extract(embedded, quietExtract)
	if err != nil {
		t.Fatal(err)
	}

	// Chroma of a color cover is not flat, so only the Y plane carries the mark.
	y := scaleLinear(res.Planes[0].Gray(), watermarkSide, watermarkSide)
	m, err := Measure(wm, y)
	if err != nil {
		t.Fatal(err)
	}
	if m.Correlation < 0.8 {
		t.Fatalf("Y plane correlation %.4f is too low", m.Correlation)
	}
}

func TestExtractOddHeight(t *testing.T) {
	embedded, err := Embed(grayCover(), grayWatermark(), quietEmbed)
	if err != nil {
		t.Fatal(err)
	}
	cropped := embedded.SubImage(image.Rect(0, 0, coverSide, coverSide-1))

	res, err := Extract(cropped, quietExtract)
	if err != nil {
		t.Fatal(err)
	}
	if res.Planes[0].Height != (coverSide-1)/2 {
		t.Fatalf("plane height %d", res.Planes[0].Height)
	}
	if ShapeOf(res.Image) != WatermarkShape {
		t.Fatalf("shape %v", ShapeOf(res.Image))
	}
}

func TestExtractGrayscaleFallback(t *testing.T) {
	embedded, err := Embed(grayCover(), grayWatermark(), quietEmbed)
	if err != nil {
		t.Fatal(err)
	}

	res, err := Extract(embedded, func(o *ExtractOptions) {
		o.Transform = stubTransform{ColorTransform: StandardYCrCb, failRGB: true}
		o.Logger = quietLogger()
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Mode != ModeGrayscaleFallback {
		t.Fatalf("mode %v", res.Mode)
	}
	if _, ok := res.Image.(*image.Gray); !ok {
		t.Fatalf("unexpected image type %T", res.Image)
	}
	if !errors.Is(res.Cause, ErrColorConversion) {
		t.Fatalf("cause %v", res.Cause)
	}
	if ShapeOf(res.Image) != WatermarkShape {
		t.Fatalf("shape %v", ShapeOf(res.Image))
	}
}

func TestMergeRecoveredMismatchedPlanes(t *testing.T) {
	y := NewPlane(8, 8)
	for i := range y.Pix {
		y.Pix[i] = float64(i)
	}
	opt := extractOptions([]func(o *ExtractOptions){quietExtract})

	res := mergeRecovered([3]*Plane{y, NewPlane(8, 8), NewPlane(8, 4)}, opt)
	if res.Mode != ModeGrayscaleFallback {
		t.Fatalf("mode %v", res.Mode)
	}

	var ce *ColorConversionError
	if !errors.As(res.Cause, &ce) || ce.Transform != StandardYCrCb.Name() {
		t.Fatalf("cause %v", res.Cause)
	}
	if res.Image.Bounds().Dx() != watermarkSide {
		t.Fatalf("bounds %v", res.Image.Bounds())
	}
}

func TestExtractChannelRecoveryError(t *testing.T) {
	embedded, err := Embed(grayCover(), grayWatermark(), quietEmbed)
	if err != nil {
		t.Fatal(err)
	}
	truncate := func(lc [3]*Plane) [3]*Plane {
		for c := 1; c < 3; c++ {
			lc[c] = &Plane{Width: lc[c].Width, Height: 1, Pix: lc[c].Row(0)}
		}
		return lc
	}

	_, err = Extract(embedded, func(o *ExtractOptions) {
		o.Transform = stubTransform{ColorTransform: StandardYCrCb, forward: truncate}
		o.Logger = quietLogger()
	})

	var cre *ChannelRecoveryError
	if !errors.As(err, &cre) {
		t.Fatalf("expected channel recovery error, got %v", err)
	}
	if got := cre.Channels(); len(got) != 2 || got[0] != "Cr" || got[1] != "Cb" {
		t.Fatalf("failed channels %v", got)
	}
	if !errors.Is(err, ErrChannelRecovery) || !errors.Is(err, ErrNoSignal) {
		t.Fatalf("unexpected error chain: %v", err)
	}
}

func TestExtractValidation(t *testing.T) {
	for _, tc := range []struct {
		name string
		img  image.Image
		opt  func(o *ExtractOptions)
	}{
		{name: "nil image", img: nil, opt: func(*ExtractOptions) {}},
		{name: "empty image", img: image.NewNRGBA(image.Rect(0, 0, 0, 0)), opt: func(*ExtractOptions) {}},
		{name: "bad alpha", img: grayWatermark(), opt: func(o *ExtractOptions) { o.Alpha = -1 }},
		{name: "bad output size", img: grayWatermark(), opt: func(o *ExtractOptions) { o.OutputSize = image.Pt(0, 32) }},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Extract(tc.img, quietExtract, tc.opt); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestExtractBytes(t *testing.T) {
	embedded, err := EmbedBytes(encodePNG(t, grayCover()), encodePNG(t, grayWatermark()), quietEmbed)
	if err != nil {
		t.Fatal(err)
	}

	out, res, err := ExtractBytes(embedded, quietExtract)
	if err != nil {
		t.Fatal(err)
	}
	if res.Mode != ModeFullColor {
		t.Fatalf("mode %v", res.Mode)
	}
	img, err := DecodeBytes("extracted", out)
	if err != nil {
		t.Fatal(err)
	}
	if ShapeOf(img) != WatermarkShape {
		t.Fatalf("shape %v", ShapeOf(img))
	}

	if _, _, err := ExtractBytes(nil, quietExtract); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, _, err := ExtractBytes([]byte{0x89, 'P', 'N', 'G'}, quietExtract); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestExtractModeString(t *testing.T) {
	if ModeFullColor.String() != "full-color" || ModeGrayscaleFallback.String() != "grayscale-fallback" {
		t.Fatal("unexpected mode names")
	}
}

func BenchmarkExtract(b *testing.B) {
	embedded, err := Embed(colorCover(), grayWatermark(), quietEmbed)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Extract(embedded, quietExtract); err != nil {
			b.Fatal(err)
		}
	}
}
