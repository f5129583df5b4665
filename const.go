package markmesh

const (
	// DefaultAlpha is the embedding strength shared by Embed and Extract.
	DefaultAlpha = 0.07

	// PSNRSentinel is reported instead of +Inf for identical images.
	PSNRSentinel = 999.99
)

const (
	coverSide     = 512
	watermarkSide = 32
	channelCount  = 3
)

const (
	defaultBlurSize = 5
	ssimWindow      = 7
	ssimK1          = 0.01
	ssimK2          = 0.03
	pixelMax        = 255.0
	// midGray fills planes that carry no contrast after demodulation.
	midGray = 128.0
	// flatSpan is the smallest value range NormalizeMinMax will stretch.
	flatSpan = 1e-6
	// inverseTolerance bounds how far a published inverse may stray from the exact one.
	inverseTolerance = 1e-3
)

var (
	// CoverShape is the only accepted cover image shape.
	CoverShape = Shape{Height: coverSide, Width: coverSide, Channels: channelCount}
	// WatermarkShape is the accepted watermark shape and the extraction output size.
	WatermarkShape = Shape{Height: watermarkSide, Width: watermarkSide, Channels: channelCount}
)
