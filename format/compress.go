package format

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression wraps an encoded blob in a streaming frame.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZSTD
	CompressionLZ4
)

// ParseCompression accepts "", "none", "zstd" and "lz4".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return CompressionNone, nil
	case "zstd", "zst":
		return CompressionZSTD, nil
	case "lz4":
		return CompressionLZ4, nil
	}
	return 0, fmt.Errorf("format: unknown compression %q", s)
}

func (c Compression) String() string {
	switch c {
	case CompressionZSTD:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return "none"
	}
}

// Suffix returns the file suffix appended after the format extension.
func (c Compression) Suffix() string {
	switch c {
	case CompressionZSTD:
		return ".zst"
	case CompressionLZ4:
		return ".lz4"
	default:
		return ""
	}
}

var zstdEncoders sync.Pool

type zstdWriter struct {
	*zstd.Encoder
}

func (z zstdWriter) Close() error {
	err := z.Encoder.Close()
	zstdEncoders.Put(z.Encoder)
	return err
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// NewCompressWriter returns a writer compressing into w. Close flushes the
// frame but does not close w.
func NewCompressWriter(w io.Writer, c Compression) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopCloser{w}, nil
	case CompressionZSTD:
		if enc, ok := zstdEncoders.Get().(*zstd.Encoder); ok {
			enc.Reset(w)
			return zstdWriter{enc}, nil
		}
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		return zstdWriter{enc}, nil
	case CompressionLZ4:
		return lz4.NewWriter(w), nil
	}
	return nil, fmt.Errorf("format: unknown compression %d", c)
}

// NewDecompressReader undoes NewCompressWriter.
func NewDecompressReader(r io.Reader, c Compression) (io.ReadCloser, error) {
	switch c {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionZSTD:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case CompressionLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	}
	return nil, fmt.Errorf("format: unknown compression %d", c)
}
