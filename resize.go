package markmesh

import (
	"image"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

// upsampleSmooth scales img to w x h with a bilinear filter, used to spread the
// watermark over the cover before embedding.
func upsampleSmooth(img image.Image, w, h int) *image.NRGBA {
	src := toNRGBA(img)
	if src.Rect.Dx() == w && src.Rect.Dy() == h {
		return src
	}
	return toNRGBA(resize.Resize(uint(w), uint(h), src, resize.Bilinear))
}

// scaleLinear resizes img to w x h with linear interpolation, keeping gray images gray.
func scaleLinear(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	var dst draw.Image
	if _, ok := img.(*image.Gray); ok {
		dst = image.NewGray(image.Rect(0, 0, w, h))
	} else {
		dst = image.NewNRGBA(image.Rect(0, 0, w, h))
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
