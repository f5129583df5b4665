package markmesh

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	// Register decoders for every container the pipeline accepts.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode reads an image and returns it with the detected format name.
func Decode(r io.Reader) (image.Image, string, error) {
	return image.Decode(r)
}

// DecodeBytes decodes data, labelling failures with the input name.
func DecodeBytes(input string, data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s image data is empty", ErrValidation, input)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Input: input, Err: err}
	}
	return img, nil
}

// EncodePNG writes img as PNG. PNG is lossless, which the embedded signal requires.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func encodePNGBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return buf.Bytes(), nil
}
