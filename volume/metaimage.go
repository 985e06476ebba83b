package volume

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"

	"github.com/hupe1980/nodulefed/coord"
	"github.com/hupe1980/nodulefed/internal/mmap"
)

// ElementType names a MetaImage voxel encoding.
type ElementType string

const (
	MetChar   ElementType = "MET_CHAR"
	MetUChar  ElementType = "MET_UCHAR"
	MetShort  ElementType = "MET_SHORT"
	MetUShort ElementType = "MET_USHORT"
	MetInt    ElementType = "MET_INT"
	MetFloat  ElementType = "MET_FLOAT"
	MetDouble ElementType = "MET_DOUBLE"
)

func (t ElementType) width() int {
	switch t {
	case MetChar, MetUChar:
		return 1
	case MetShort, MetUShort:
		return 2
	case MetInt, MetFloat:
		return 4
	case MetDouble:
		return 8
	default:
		return 0
	}
}

// Header is the subset of a MetaImage header needed to read a 3D scalar scan.
type Header struct {
	Size           Size
	Origin         coord.WorldCoordinate
	Spacing        coord.Spacing
	ElementType    ElementType
	MSB            bool
	Compressed     bool
	CompressedSize int64
	HeaderSize     int64 // bytes skipped in the data file; -1 means "data at end"
	DataFile       string

	// dataOffset is where LOCAL data starts inside the header file.
	dataOffset int64
}

// MetaImageLoader loads {Dir}/{seriesID}.mhd volumes.
type MetaImageLoader struct {
	Dir string
	Ext string
}

// NewMetaImageLoader returns a loader rooted at dir.
func NewMetaImageLoader(dir string) *MetaImageLoader {
	return &MetaImageLoader{Dir: dir, Ext: ".mhd"}
}

// Path returns the header path for a series.
func (l *MetaImageLoader) Path(seriesID string) string {
	return filepath.Join(l.Dir, seriesID+l.Ext)
}

// Load implements Loader.
func (l *MetaImageLoader) Load(ctx context.Context, seriesID string) (*Volume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if seriesID == "" || !filepath.IsLocal(seriesID) || strings.ContainsAny(seriesID, `/\`) {
		return nil, fmt.Errorf("volume %q: %w", seriesID, ErrInvalidSeriesID)
	}

	voxels, hdr, err := ReadMetaImage(l.Path(seriesID))
	if err != nil {
		return nil, err
	}
	return New(seriesID, hdr.Origin, hdr.Spacing, hdr.Size, voxels)
}

// ReadMetaImage decodes the volume described by the header at path.
func ReadMetaImage(path string) ([]int16, *Header, error) {
	hdr, err := readHeader(path)
	if err != nil {
		return nil, nil, err
	}

	dataPath := path
	if hdr.DataFile != "LOCAL" {
		dataPath = hdr.DataFile
		if !filepath.IsAbs(dataPath) {
			dataPath = filepath.Join(filepath.Dir(path), dataPath)
		}
	}

	m, err := mmap.Open(dataPath)
	if err != nil {
		return nil, nil, err
	}
	defer m.Close()
	_ = m.Advise(mmap.AccessSequential)

	raw, err := payload(m, hdr)
	if err != nil {
		return nil, nil, err
	}

	voxels, err := decode(raw, hdr)
	if err != nil {
		return nil, nil, &FormatError{Path: dataPath, cause: err}
	}
	return voxels, hdr, nil
}

func payload(m *mmap.Mapping, hdr *Header) ([]byte, error) {
	want := int64(hdr.Size.Voxels()) * int64(hdr.ElementType.width())
	size := int64(m.Size())

	if hdr.Compressed {
		start := hdr.dataOffset
		if hdr.DataFile != "LOCAL" {
			start = max(hdr.HeaderSize, 0)
		}
		n := size - start
		if hdr.CompressedSize > 0 {
			n = hdr.CompressedSize
		}
		src, err := m.Section(start, n)
		if err != nil {
			return nil, formatErr(m.Path(), "CompressedDataSize", "%d bytes at %d: %w", n, start, err)
		}
		zr, err := zlib.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, &FormatError{Path: m.Path(), Field: "CompressedData", cause: err}
		}
		defer zr.Close()
		out := make([]byte, want)
		if _, err := io.ReadFull(zr, out); err != nil {
			return nil, &FormatError{Path: m.Path(), Field: "CompressedData", cause: err}
		}
		return out, nil
	}

	var start int64
	switch {
	case hdr.DataFile == "LOCAL":
		start = hdr.dataOffset
	case hdr.HeaderSize < 0:
		start = size - want
	default:
		start = hdr.HeaderSize
	}
	raw, err := m.Section(start, want)
	if err != nil {
		return nil, formatErr(m.Path(), "DimSize", "need %d bytes at offset %d, file has %d: %w", want, start, size, err)
	}
	return raw, nil
}

func decode(raw []byte, hdr *Header) ([]int16, error) {
	var order binary.ByteOrder = binary.LittleEndian
	if hdr.MSB {
		order = binary.BigEndian
	}

	w := hdr.ElementType.width()
	out := make([]int16, len(raw)/w)
	for i := range out {
		b := raw[i*w : (i+1)*w]
		switch hdr.ElementType {
		case MetChar:
			out[i] = int16(int8(b[0]))
		case MetUChar:
			out[i] = int16(b[0])
		case MetShort:
			out[i] = int16(order.Uint16(b))
		case MetUShort:
			out[i] = saturate(float64(order.Uint16(b)))
		case MetInt:
			out[i] = saturate(float64(int32(order.Uint32(b))))
		case MetFloat:
			out[i] = saturate(float64(math.Float32frombits(order.Uint32(b))))
		case MetDouble:
			out[i] = saturate(math.Float64frombits(order.Uint64(b)))
		default:
			return nil, fmt.Errorf("unsupported element type %q", hdr.ElementType)
		}
	}
	return out, nil
}

// saturate truncates toward zero and clamps to the int16 range.
func saturate(v float64) int16 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt16:
		return math.MaxInt16
	case v <= math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}

func readHeader(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hdr := &Header{Spacing: coord.Spacing{X: 1, Y: 1, Z: 1}}
	seen := map[string]bool{}
	br := bufio.NewReader(f)
	var offset int64

	for {
		line, err := br.ReadString('\n')
		offset += int64(len(line))
		if err != nil && err != io.EOF {
			return nil, err
		}

		key, value, ok := strings.Cut(line, "=")
		if ok {
			key, value = strings.TrimSpace(key), strings.TrimSpace(value)
			seen[key] = true
			if perr := hdr.set(key, value); perr != nil {
				return nil, &FormatError{Path: path, Field: key, cause: perr}
			}
			if key == "ElementDataFile" {
				hdr.dataOffset = offset
				break
			}
		}
		if err == io.EOF {
			break
		}
	}

	for _, key := range []string{"DimSize", "ElementType", "ElementDataFile"} {
		if !seen[key] {
			return nil, formatErr(path, key, "missing")
		}
	}
	if hdr.ElementType.width() == 0 {
		return nil, formatErr(path, "ElementType", "unsupported %q", hdr.ElementType)
	}
	if err := hdr.Spacing.Validate(); err != nil {
		return nil, &FormatError{Path: path, Field: "ElementSpacing", cause: err}
	}
	return hdr, nil
}

func (h *Header) set(key, value string) error {
	switch key {
	case "NDims":
		if value != "3" {
			return fmt.Errorf("want 3 dimensions, got %s", value)
		}
	case "ElementNumberOfChannels":
		if value != "1" {
			return fmt.Errorf("want 1 channel, got %s", value)
		}
	case "DimSize":
		v, err := parseInts(value)
		if err != nil {
			return err
		}
		h.Size = Size{X: v[0], Y: v[1], Z: v[2]}
		if h.Size.X <= 0 || h.Size.Y <= 0 || h.Size.Z <= 0 {
			return fmt.Errorf("non-positive extent %s", h.Size)
		}
	case "Offset", "Origin", "Position":
		v, err := parseFloats(value)
		if err != nil {
			return err
		}
		h.Origin = coord.WorldCoordinate{X: v[0], Y: v[1], Z: v[2]}
	case "ElementSpacing":
		v, err := parseFloats(value)
		if err != nil {
			return err
		}
		h.Spacing = coord.Spacing{X: v[0], Y: v[1], Z: v[2]}
	case "ElementType":
		h.ElementType = ElementType(value)
	case "BinaryDataByteOrderMSB", "ElementByteOrderMSB":
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		h.MSB = b
	case "CompressedData":
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		h.Compressed = b
	case "CompressedDataSize":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		h.CompressedSize = n
	case "HeaderSize":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		h.HeaderSize = n
	case "ElementDataFile":
		if value == "" {
			return fmt.Errorf("empty")
		}
		if strings.HasPrefix(value, "LIST") || strings.Contains(value, "%") {
			return fmt.Errorf("multi-file data %q not supported", value)
		}
		h.DataFile = value
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}

func parseFloats(s string) ([3]float64, error) {
	var out [3]float64
	f := strings.Fields(s)
	if len(f) != 3 {
		return out, fmt.Errorf("want 3 values, got %d", len(f))
	}
	for i, v := range f {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return out, err
		}
		out[i] = x
	}
	return out, nil
}

func parseInts(s string) ([3]int, error) {
	var out [3]int
	f := strings.Fields(s)
	if len(f) != 3 {
		return out, fmt.Errorf("want 3 values, got %d", len(f))
	}
	for i, v := range f {
		x, err := strconv.Atoi(v)
		if err != nil {
			return out, err
		}
		out[i] = x
	}
	return out, nil
}
