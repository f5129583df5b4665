package markmesh

import (
	"errors"
	"fmt"
	"image"
)

// Embed hides watermark inside cover and returns the carrier image.
//
// cover must be 512x512 and watermark 32x32. The watermark is upsampled to the
// cover size and its first channel is modulated into the luma plane of the cover;
// chroma planes are left untouched. Samples are clamped and quantized to 8 bits
// only after the inverse color transform, and a gray cover yields a gray carrier.
func Embed(cover, watermark image.Image, opts ...func(o *EmbedOptions)) (*image.NRGBA, error) {
	opt := embedOptions(opts)

	if err := ValidateEmbedInputs(cover, watermark); err != nil {
		return nil, err
	}
	if err := validateAlpha(opt.Alpha); err != nil {
		return nil, err
	}

	var out *image.NRGBA
	err := guard("embed", func() error {
		cb := cover.Bounds()
		wm := upsampleSmooth(watermark, cb.Dx(), cb.Dy())
		payload := rgbPlanes(wm)[0]

		rgb := rgbPlanes(cover)
		lc, err := opt.Transform.ToLumaChroma(rgb)
		if err != nil {
			return &ProcessingError{Op: "embed", Err: err}
		}

		luma, err := opt.Codec.Embed(lc[0], payload, opt.Alpha)
		if err != nil {
			return &ProcessingError{Op: "embed", Err: err}
		}

		rgb, err = applyLuma(opt.Transform, rgb, lc, luma)
		if err != nil {
			return &ProcessingError{Op: "embed", Err: err}
		}
		out = quantizeRGB(rgb)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EmbedBytes decodes cover and watermark, embeds and returns the carrier as PNG.
func EmbedBytes(cover, watermark []byte, opts ...func(o *EmbedOptions)) ([]byte, error) {
	coverImg, err := DecodeBytes("cover", cover)
	if err != nil {
		return nil, err
	}
	wmImg, err := DecodeBytes("watermark", watermark)
	if err != nil {
		return nil, err
	}
	out, err := Embed(coverImg, wmImg, opts...)
	if err != nil {
		return nil, err
	}
	return encodePNGBytes(out)
}

// ValidateEmbedInputs checks cover and watermark shapes. When both are wrong,
// both are reported.
func ValidateEmbedInputs(cover, watermark image.Image) error {
	if cover == nil || watermark == nil {
		return fmt.Errorf("%w: cover and watermark images are required", ErrValidation)
	}
	var errs []error
	if got := ShapeOf(cover); got != CoverShape {
		errs = append(errs, &ShapeError{Input: "cover", Got: got, Want: CoverShape})
	}
	if got := ShapeOf(watermark); got != WatermarkShape {
		errs = append(errs, &ShapeError{Input: "watermark", Got: got, Want: WatermarkShape})
	}
	return errors.Join(errs...)
}

// lumaGainer is implemented by transforms whose RGB response to a luma change is
// a fixed gain per channel.
type lumaGainer interface {
	LumaGain() [3]float64
}

// applyLuma returns the RGB planes for lc with its luma replaced by luma.
// When t exposes its luma gain only the luma change is mapped back onto rgb,
// so untouched chroma never picks up inverse-matrix rounding.
func applyLuma(t ColorTransform, rgb, lc [3]*Plane, luma *Plane) ([3]*Plane, error) {
	g, ok := t.(lumaGainer)
	if !ok {
		lc[0] = luma
		return t.ToRGB(lc)
	}
	for _, p := range rgb {
		if !p.SameSize(luma) || !lc[0].SameSize(luma) {
			return [3]*Plane{}, &ColorConversionError{Transform: t.Name(), Reason: "luma and RGB planes differ in size"}
		}
	}

	gain := g.LumaGain()
	var out [3]*Plane
	for c := range out {
		out[c] = NewPlane(luma.Width, luma.Height)
	}
	parallelFor(luma.Height, func(start, end int) {
		for i := start * luma.Width; i < end*luma.Width; i++ {
			d := luma.Pix[i] - lc[0].Pix[i]
			for c := range out {
				out[c].Pix[i] = rgb[c].Pix[i] + gain[c]*d
			}
		}
	})
	return out, nil
}
