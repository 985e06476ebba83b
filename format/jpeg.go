package format

import (
	"image"
	"image/jpeg"
	"io"

	"github.com/hupe1980/nodulefed/volume"
)

// DefaultJPEGQuality is the quality used by EncoderFor(JPEG).
const DefaultJPEGQuality = 95

// EncodeJPEG writes p as an 8-bit grayscale JPEG. Intensities are mapped
// linearly from [min, max] of the patch onto [0, 255]; a flat patch is black.
func EncodeJPEG(w io.Writer, p *volume.Plane, quality int) error {
	if p.Width == 0 || p.Height == 0 {
		return ErrEmptyPatch
	}
	return jpeg.Encode(w, Grayscale(p), &jpeg.Options{Quality: quality})
}

// Grayscale min-max normalises p into an 8-bit image.
func Grayscale(p *volume.Plane) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
	lo, hi := p.Bounds()
	span := int(hi) - int(lo)
	if span == 0 {
		return img
	}
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			v := (int(p.At(x, y)) - int(lo)) * 255 / span
			img.Pix[y*img.Stride+x] = uint8(v)
		}
	}
	return img
}
