package markmesh

import (
	"errors"
	"fmt"
	"image"
)

// Extract recovers the watermark hidden in img.
//
// Each of the three luma/chroma planes is demodulated and normalized on its own,
// the planes are merged and converted back to RGB, and the result is resized to
// the output size. When the planes cannot be converted back to RGB the luma plane
// alone is returned as a grayscale image with Mode set to ModeGrayscaleFallback.
func Extract(img image.Image, opts ...func(o *ExtractOptions)) (*ExtractResult, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: no image provided", ErrValidation)
	}
	opt := extractOptions(opts)
	if err := validateAlpha(opt.Alpha); err != nil {
		return nil, err
	}
	if opt.OutputSize.X <= 0 || opt.OutputSize.Y <= 0 {
		return nil, fmt.Errorf("%w: invalid output size %v", ErrValidation, opt.OutputSize)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image %dx%d", ErrValidation, b.Dx(), b.Dy())
	}

	var res *ExtractResult
	err := guard("extract", func() error {
		lc, err := opt.Transform.ToLumaChroma(rgbPlanes(img))
		if err != nil {
			return &ProcessingError{Op: "extract", Err: err}
		}

		recovered, err := recoverPlanes(opt.Codec, lc, opt.Alpha, opt.Transform.Channels())
		if err != nil {
			return err
		}

		res = mergeRecovered(recovered, opt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ExtractBytes decodes data, extracts the watermark and returns it as PNG.
func ExtractBytes(data []byte, opts ...func(o *ExtractOptions)) ([]byte, *ExtractResult, error) {
	img, err := DecodeBytes("image", data)
	if err != nil {
		return nil, nil, err
	}
	res, err := Extract(img, opts...)
	if err != nil {
		return nil, nil, err
	}
	out, err := encodePNGBytes(res.Image)
	if err != nil {
		return nil, nil, err
	}
	return out, res, nil
}

// recoverPlanes runs Codec.Recover on every plane concurrently and reports all
// failing channels together.
func recoverPlanes(codec Codec, lc [3]*Plane, alpha float64, names [3]string) ([3]*Plane, error) {
	var (
		out  [3]*Plane
		errs [3]error
	)
	parallelFor(len(lc), func(start, end int) {
		for i := start; i < end; i++ {
			out[i], errs[i] = codec.Recover(lc[i], alpha)
		}
	})

	var failures []ChannelFailure
	for i, err := range errs {
		if err != nil {
			failures = append(failures, ChannelFailure{Channel: names[i], Err: err})
		}
	}
	if len(failures) > 0 {
		return [3]*Plane{}, &ChannelRecoveryError{Failures: failures}
	}
	return out, nil
}

// mergeRecovered converts recovered planes back to RGB, or degrades to the first
// plane in grayscale when the conversion is not possible.
func mergeRecovered(recovered [3]*Plane, opt ExtractOptions) *ExtractResult {
	w, h := opt.OutputSize.X, opt.OutputSize.Y

	rgb, err := opt.Transform.ToRGB(recovered)
	if err != nil {
		var ce *ColorConversionError
		if !errors.As(err, &ce) {
			err = &ColorConversionError{Transform: opt.Transform.Name(), Reason: err.Error()}
		}
		opt.Logger.Warn("color conversion failed, returning grayscale watermark",
			"transform", opt.Transform.Name(), "error", err)
		return &ExtractResult{
			Mode:   ModeGrayscaleFallback,
			Image:  scaleLinear(recovered[0].Gray(), w, h),
			Planes: recovered,
			Cause:  err,
		}
	}

	return &ExtractResult{
		Mode:   ModeFullColor,
		Image:  scaleLinear(quantizeRGB(rgb), w, h),
		Planes: recovered,
	}
}
