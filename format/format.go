package format

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/nodulefed/volume"
)

// ErrEmptyPatch is returned by encoders that cannot represent a patch with
// no pixels.
var ErrEmptyPatch = errors.New("format: empty patch")

// Format names an output encoding.
type Format string

const (
	NIfTI Format = "nii"
	JPEG  Format = "jpg"
	NPY   Format = "npy"
)

// ParseFormat accepts the extension names plus "nifti" and "jpeg".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "nii", "nifti":
		return NIfTI, nil
	case "jpg", "jpeg":
		return JPEG, nil
	case "npy":
		return NPY, nil
	}
	return "", fmt.Errorf("format: unknown format %q", s)
}

// Ext returns the file extension without the dot.
func (f Format) Ext() string { return string(f) }

// Stacked reports whether the format writes one array per client and class
// rather than one file per patch.
func (f Format) Stacked() bool { return f == NPY }

// Encoder writes a single patch.
type Encoder interface {
	Encode(w io.Writer, p *volume.Plane) error
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(w io.Writer, p *volume.Plane) error

func (f EncoderFunc) Encode(w io.Writer, p *volume.Plane) error { return f(w, p) }

// EncoderFor returns the per-file encoder of f. Stacked formats have none.
func EncoderFor(f Format) (Encoder, error) {
	switch f {
	case NIfTI:
		return EncoderFunc(EncodeNIfTI), nil
	case JPEG:
		return EncoderFunc(func(w io.Writer, p *volume.Plane) error {
			return EncodeJPEG(w, p, DefaultJPEGQuality)
		}), nil
	}
	return nil, fmt.Errorf("format: %q has no per-file encoder", f)
}
