package format

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hupe1980/nodulefed/volume"
)

const (
	niftiHeaderSize = 348
	niftiVoxOffset  = 352
	niftiInt16      = 4
)

// niftiHeader is the NIfTI-1 header, laid out so binary.Write produces the
// 348 bytes verbatim.
type niftiHeader struct {
	SizeofHdr    int32
	DataType     [10]byte
	DBName       [18]byte
	Extents      int32
	SessionError int16
	Regular      byte
	DimInfo      byte
	Dim          [8]int16
	IntentP1     float32
	IntentP2     float32
	IntentP3     float32
	IntentCode   int16
	Datatype     int16
	Bitpix       int16
	SliceStart   int16
	Pixdim       [8]float32
	VoxOffset    float32
	SclSlope     float32
	SclInter     float32
	SliceEnd     int16
	SliceCode    byte
	XYZTUnits    byte
	CalMax       float32
	CalMin       float32
	SliceDur     float32
	TOffset      float32
	GLMax        int32
	GLMin        int32
	Descrip      [80]byte
	AuxFile      [24]byte
	QformCode    int16
	SformCode    int16
	QuaternB     float32
	QuaternC     float32
	QuaternD     float32
	QoffsetX     float32
	QoffsetY     float32
	QoffsetZ     float32
	SrowX        [4]float32
	SrowY        [4]float32
	SrowZ        [4]float32
	IntentName   [16]byte
	Magic        [4]byte
}

// EncodeNIfTI writes p as a 2D single-file NIfTI-1 image. The first image
// axis is the patch row, data is column-major, and no affine is set.
func EncodeNIfTI(w io.Writer, p *volume.Plane) error {
	h := niftiHeader{
		SizeofHdr: niftiHeaderSize,
		Regular:   'r',
		Dim:       [8]int16{2, int16(p.Height), int16(p.Width), 1, 1, 1, 1, 1},
		Datatype:  niftiInt16,
		Bitpix:    16,
		Pixdim:    [8]float32{1, 1, 1, 1, 1, 1, 1, 1},
		VoxOffset: niftiVoxOffset,
		Magic:     [4]byte{'n', '+', '1', 0},
	}
	if p.Width > 1<<15-1 || p.Height > 1<<15-1 {
		return fmt.Errorf("nifti: %dx%d exceeds int16 dimensions", p.Width, p.Height)
	}
	lo, hi := p.Bounds()
	h.GLMin, h.GLMax = int32(lo), int32(hi)

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, &h); err != nil {
		return err
	}
	// Empty extension block.
	if _, err := bw.Write([]byte{0, 0, 0, 0}); err != nil {
		return err
	}

	var buf [2]byte
	for x := 0; x < p.Width; x++ {
		for y := 0; y < p.Height; y++ {
			binary.LittleEndian.PutUint16(buf[:], uint16(p.At(x, y)))
			if _, err := bw.Write(buf[:]); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// DecodeNIfTI reads a 2D int16 image written by EncodeNIfTI.
func DecodeNIfTI(r io.Reader) (*volume.Plane, error) {
	var h niftiHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, err
	}
	switch {
	case h.SizeofHdr != niftiHeaderSize:
		return nil, fmt.Errorf("nifti: sizeof_hdr %d", h.SizeofHdr)
	case h.Magic != [4]byte{'n', '+', '1', 0}:
		return nil, errors.New("nifti: not a single-file NIfTI-1 image")
	case h.Datatype != niftiInt16 || h.Dim[0] != 2:
		return nil, fmt.Errorf("nifti: want 2D int16, got %dD datatype %d", h.Dim[0], h.Datatype)
	}
	if _, err := io.CopyN(io.Discard, r, int64(h.VoxOffset)-niftiHeaderSize); err != nil {
		return nil, err
	}

	p := volume.NewPlane(int(h.Dim[2]), int(h.Dim[1]))
	col := make([]int16, p.Height)
	for x := 0; x < p.Width; x++ {
		if err := binary.Read(r, binary.LittleEndian, col); err != nil {
			return nil, err
		}
		for y, v := range col {
			p.Set(x, y, v)
		}
	}
	return p, nil
}
