package markmesh

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestEmbedShapeValidation(t *testing.T) {
	gray := color.NRGBA{R: 90, G: 90, B: 90, A: 0xFF}

	for _, tc := range []struct {
		name      string
		cover     image.Image
		watermark image.Image
		inputs    []string
	}{
		{name: "small cover", cover: solidImage(256, 256, gray), watermark: grayWatermark(), inputs: []string{"cover"}},
		{name: "large watermark", cover: grayCover(), watermark: solidImage(64, 32, gray), inputs: []string{"watermark"}},
		{name: "both", cover: solidImage(512, 511, gray), watermark: solidImage(16, 16, gray), inputs: []string{"cover", "watermark"}},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := Embed(tc.cover, tc.watermark, quietEmbed)
			if !errors.Is(err, ErrShape) {
				t.Fatalf("expected shape error, got %v", err)
			}

			var joined interface{ Unwrap() []error }
			if !errors.As(err, &joined) {
				t.Fatalf("expected joined error, got %T", err)
			}
			errs := joined.Unwrap()
			if len(errs) != len(tc.inputs) {
				t.Fatalf("got %d errors, want %d: %v", len(errs), len(tc.inputs), err)
			}
			for i, e := range errs {
				var se *ShapeError
				if !errors.As(e, &se) || se.Input != tc.inputs[i] {
					t.Fatalf("error %d: %v", i, e)
				}
			}
		})
	}
}

func TestEmbedShapeErrorMessage(t *testing.T) {
	err := ValidateEmbedInputs(solidImage(256, 256, color.NRGBA{A: 0xFF}), grayWatermark())

	var se *ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected ShapeError, got %v", err)
	}
	if got, want := se.Error(), "invalid cover dimensions (256, 256, 3), want (512, 512, 3)"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEmbedInvalidAlpha(t *testing.T) {
	_, err := Embed(grayCover(), grayWatermark(), quietEmbed, func(o *EmbedOptions) { o.Alpha = 0 })
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEmbedKeepsCoverClose(t *testing.T) {
	cover := colorCover()
	out, err := Embed(cover, grayWatermark(), quietEmbed)
	if err != nil {
		t.Fatal(err)
	}
	if out.Bounds() != cover.Bounds() {
		t.Fatalf("bounds %v, want %v", out.Bounds(), cover.Bounds())
	}

	// The luma offset is at most alpha*255, about 18 levels.
	m, err := Measure(cover, out)
	if err != nil {
		t.Fatal(err)
	}
	if m.PSNR < 20 {
		t.Fatalf("embedding distorts the cover too much: PSNR %.2f", m.PSNR)
	}
	for i := 3; i < len(out.Pix); i += 4 {
		if out.Pix[i] != 0xFF {
			t.Fatal("output must be opaque")
		}
	}
}

func TestEmbedBytes(t *testing.T) {
	out, err := EmbedBytes(encodePNG(t, grayCover()), encodePNG(t, grayWatermark()), quietEmbed)
	if err != nil {
		t.Fatal(err)
	}
	img, err := DecodeBytes("embedded", out)
	if err != nil {
		t.Fatal(err)
	}
	if ShapeOf(img) != CoverShape {
		t.Fatalf("shape %v", ShapeOf(img))
	}

	_, err = EmbedBytes([]byte("not an image"), encodePNG(t, grayWatermark()), quietEmbed)
	var de *DecodeError
	if !errors.As(err, &de) || de.Input != "cover" || !errors.Is(err, ErrDecode) {
		t.Fatalf("expected cover decode error, got %v", err)
	}

	_, err = EmbedBytes(encodePNG(t, grayCover()), nil, quietEmbed)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for empty watermark, got %v", err)
	}
}

func TestGuardRecoversPanic(t *testing.T) {
	err := guard("resize", func() error {
		NewPlane(-1, 1)
		return nil
	})

	var pe *ProcessingError
	if !errors.As(err, &pe) || pe.Op != "resize" || !errors.Is(err, ErrProcessing) {
		t.Fatalf("expected processing error, got %v", err)
	}
}

func TestEmbedGrayCoverStaysGray(t *testing.T) {
	out, err := Embed(grayCover(), grayWatermark(), quietEmbed)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < len(out.Pix); i += 4 {
		if out.Pix[i] != out.Pix[i+1] || out.Pix[i] != out.Pix[i+2] {
			t.Fatalf("pixel %d is not gray: %v", i/4, out.Pix[i:i+3])
		}
	}
}

func TestEmbedInterpolationRoundTrip(t *testing.T) {
	wm := grayWatermark()

	for _, interp := range []Interpolation{
		InterpolationBilinear,
		InterpolationNearest,
		InterpolationBicubic,
		InterpolationLanczos3,
	} {
		interp := interp
		t.Run(interp.String(), func(t *testing.T) {
			embedded, err := Embed(grayCover(), wm, quietEmbed, func(o *EmbedOptions) {
				o.Codec.Interpolation = interp
			})
			if err != nil {
				t.Fatal(err)
			}
			res, err := Extract(embedded, quietExtract)
			if err != nil {
				t.Fatal(err)
			}
			m, err := Measure(wm, res.Image)
			if err != nil {
				t.Fatal(err)
			}
			if m.Correlation < 0.8 {
				t.Fatalf("correlation %.4f is too low", m.Correlation)
			}
		})
	}
}

func TestGuardRecoversPanicInWorkers(t *testing.T) {
	err := guard("embed", func() error {
		parallelFor(64, func(start, end int) {
			panic("row kernel failed")
		})
		return nil
	})

	var pe *ProcessingError
	if !errors.As(err, &pe) || pe.Op != "embed" || !errors.Is(err, ErrProcessing) {
		t.Fatalf("expected processing error, got %v", err)
	}
}

func BenchmarkEmbed(b *testing.B) {
	cover, wm := colorCover(), grayWatermark()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Embed(cover, wm, quietEmbed); err != nil {
			b.Fatal(err)
		}
	}
}
