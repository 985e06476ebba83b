package format

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/hupe1980/nodulefed/volume"
)

var npyMagic = []byte("\x93NUMPY")

// Stack is an (N, H, W) int16 array assembled from patches. Patches smaller
// than H x W are anchored top-left and the rest is filled with the pad value.
type Stack struct {
	N, H, W int
	Data    []int16
	// Shapes records each patch's own (height, width) before padding.
	Shapes [][2]int
}

// NewStack pads patches into an (len(patches), h, w) array.
func NewStack(patches []*volume.Plane, h, w int, pad int16) *Stack {
	s := &Stack{N: len(patches), H: h, W: w, Data: make([]int16, len(patches)*h*w)}
	if pad != 0 {
		for i := range s.Data {
			s.Data[i] = pad
		}
	}
	for n, p := range patches {
		s.Shapes = append(s.Shapes, [2]int{p.Height, p.Width})
		for y := 0; y < min(p.Height, h); y++ {
			dst := s.Data[(n*h+y)*w:]
			copy(dst[:min(p.Width, w)], p.Pix[y*p.Width:y*p.Width+min(p.Width, w)])
		}
	}
	return s
}

// Shape returns the array shape.
func (s *Stack) Shape() []int { return []int{s.N, s.H, s.W} }

// EncodeNPY writes s as a little-endian NPY 1.0 file.
func EncodeNPY(w io.Writer, s *Stack) error {
	dims := make([]string, 0, 3)
	for _, d := range s.Shape() {
		dims = append(dims, strconv.Itoa(d))
	}
	dict := fmt.Sprintf("{'descr': '<i2', 'fortran_order': False, 'shape': (%s), }", strings.Join(dims, ", "))

	// magic(6) + version(2) + len(2) + dict + padding + '\n' is a multiple of 64.
	pre := len(npyMagic) + 4
	total := (pre + len(dict) + 1 + 63) / 64 * 64
	hdr := dict + strings.Repeat(" ", total-pre-len(dict)-1) + "\n"
	if len(hdr) > 1<<16-1 {
		return errors.New("npy: header too long")
	}

	bw := bufio.NewWriter(w)
	bw.Write(npyMagic)
	bw.Write([]byte{1, 0})
	binary.Write(bw, binary.LittleEndian, uint16(len(hdr)))
	bw.WriteString(hdr)
	if err := binary.Write(bw, binary.LittleEndian, s.Data); err != nil {
		return err
	}
	return bw.Flush()
}

var npyShape = regexp.MustCompile(`'shape':\s*\(([^)]*)\)`)

// DecodeNPY reads an int16 C-order array and returns its shape and data.
func DecodeNPY(r io.Reader) ([]int, []int16, error) {
	var pre [10]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(pre[:6], npyMagic) || pre[6] != 1 {
		return nil, nil, errors.New("npy: not an NPY 1.x file")
	}
	hdr := make([]byte, binary.LittleEndian.Uint16(pre[8:]))
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, nil, err
	}
	if !bytes.Contains(hdr, []byte("'descr': '<i2'")) || !bytes.Contains(hdr, []byte("'fortran_order': False")) {
		return nil, nil, fmt.Errorf("npy: unsupported header %q", bytes.TrimSpace(hdr))
	}

	m := npyShape.FindSubmatch(hdr)
	if m == nil {
		return nil, nil, errors.New("npy: missing shape")
	}
	var shape []int
	count := 1
	for _, f := range strings.Split(string(m[1]), ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		d, err := strconv.Atoi(f)
		if err != nil {
			return nil, nil, fmt.Errorf("npy: shape: %w", err)
		}
		shape = append(shape, d)
		count *= d
	}

	data := make([]int16, count)
	if err := binary.Read(r, binary.LittleEndian, data); err != nil {
		return nil, nil, err
	}
	return shape, data, nil
}
