package markmesh

import (
	"fmt"
	"image"
	"log/slog"
)

// Shape is the (height, width, channels) triple of an image.
type Shape struct {
	Height   int
	Width    int
	Channels int
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d, %d)", s.Height, s.Width, s.Channels)
}

// ShapeOf reports the shape of img as seen by the pipeline. Decoded images are
// always treated as 3-channel RGB.
func ShapeOf(img image.Image) Shape {
	b := img.Bounds()
	return Shape{Height: b.Dy(), Width: b.Dx(), Channels: channelCount}
}

// Verdict is the outcome of a verification.
type Verdict string

const (
	Authentic Verdict = "Authentic"
	Tampered  Verdict = "Tampered"
)

// Thresholds are the minimum metric values for an Authentic verdict.
type Thresholds struct {
	PSNR        float64 `json:"psnr" yaml:"psnr"`
	SSIM        float64 `json:"ssim" yaml:"ssim"`
	Correlation float64 `json:"correlation" yaml:"correlation"`
}

// DefaultThresholds returns PSNR >= 30, SSIM >= 0.95, correlation >= 0.98.
func DefaultThresholds() Thresholds {
	return Thresholds{PSNR: 30, SSIM: 0.95, Correlation: 0.98}
}

// Metrics holds the similarity scores between two watermarks.
type Metrics struct {
	PSNR        float64 `json:"psnr" yaml:"psnr"`
	SSIM        float64 `json:"ssim" yaml:"ssim"`
	Correlation float64 `json:"correlation" yaml:"correlation"`
}

// VerificationResult is the verdict record handed back to collaborators.
type VerificationResult struct {
	PSNR        float64 `json:"psnr" yaml:"psnr"`
	SSIM        float64 `json:"ssim" yaml:"ssim"`
	Correlation float64 `json:"correlation" yaml:"correlation"`
	Verdict     Verdict `json:"status" yaml:"status"`
}

// Metrics returns the scores of the result without the verdict.
func (r VerificationResult) Metrics() Metrics {
	return Metrics{PSNR: r.PSNR, SSIM: r.SSIM, Correlation: r.Correlation}
}

// ExtractMode tells which branch produced an extraction result.
type ExtractMode int

const (
	// ModeFullColor means the three recovered planes were converted back to RGB.
	ModeFullColor ExtractMode = iota
	// ModeGrayscaleFallback means color conversion failed and only the luma plane is returned.
	ModeGrayscaleFallback
)

func (m ExtractMode) String() string {
	switch m {
	case ModeFullColor:
		return "full-color"
	case ModeGrayscaleFallback:
		return "grayscale-fallback"
	default:
		return fmt.Sprintf("ExtractMode(%d)", int(m))
	}
}

// ExtractResult is the recovered watermark.
type ExtractResult struct {
	Mode ExtractMode
	// Image is *image.NRGBA for ModeFullColor and *image.Gray for ModeGrayscaleFallback,
	// resized to the requested output size.
	Image image.Image
	// Planes are the normalized recovered planes in the transform's channel order.
	Planes [3]*Plane
	// Cause is the color conversion failure that triggered the grayscale fallback.
	Cause error
}

// EmbedOptions controls watermark embedding.
type EmbedOptions struct {
	Alpha     float64
	Transform ColorTransform
	Codec     Codec
	Logger    *slog.Logger
}

// ExtractOptions controls watermark extraction.
type ExtractOptions struct {
	Alpha     float64
	Transform ColorTransform
	Codec     Codec
	// OutputSize is the final watermark size, WatermarkShape by default.
	OutputSize image.Point
	Logger     *slog.Logger
}

// VerifyOptions controls verification.
type VerifyOptions struct {
	Thresholds Thresholds
}

func embedOptions(opts []func(o *EmbedOptions)) EmbedOptions {
	opt := EmbedOptions{
		Alpha:     DefaultAlpha,
		Transform: LosslessYCbCr,
	}
	for _, applyOpt := range opts {
		applyOpt(&opt)
	}
	if opt.Transform == nil {
		opt.Transform = LosslessYCbCr
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.Codec.Logger == nil {
		opt.Codec.Logger = opt.Logger
	}
	return opt
}

func extractOptions(opts []func(o *ExtractOptions)) ExtractOptions {
	opt := ExtractOptions{
		Alpha:      DefaultAlpha,
		Transform:  StandardYCrCb,
		OutputSize: image.Pt(WatermarkShape.Width, WatermarkShape.Height),
	}
	for _, applyOpt := range opts {
		applyOpt(&opt)
	}
	if opt.Transform == nil {
		opt.Transform = StandardYCrCb
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.Codec.Logger == nil {
		opt.Codec.Logger = opt.Logger
	}
	return opt
}

func verifyOptions(opts []func(o *VerifyOptions)) VerifyOptions {
	opt := VerifyOptions{Thresholds: DefaultThresholds()}
	for _, applyOpt := range opts {
		applyOpt(&opt)
	}
	return opt
}
