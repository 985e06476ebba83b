package volume

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zlib"
)

// WriteOptions controls WriteMetaImage.
type WriteOptions struct {
	// MSB writes big-endian voxels.
	MSB bool
	// Compressed zlib-compresses the voxel data.
	Compressed bool
	// Local embeds the voxels in the header file instead of a sibling .raw/.zraw.
	Local bool
}

// WriteMetaImage writes v as MET_SHORT to {dir}/{v.SeriesID}.mhd and returns
// the header path.
func WriteMetaImage(dir string, v *Volume, opts WriteOptions) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	headerPath := filepath.Join(dir, v.SeriesID+".mhd")
	dataFile := "LOCAL"
	if !opts.Local {
		dataFile = v.SeriesID + ".raw"
		if opts.Compressed {
			dataFile = v.SeriesID + ".zraw"
		}
	}

	var data []byte
	if opts.Compressed {
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if err := writeVoxels(zw, v.voxels, opts.MSB); err != nil {
			return "", err
		}
		if err := zw.Close(); err != nil {
			return "", err
		}
		data = buf.Bytes()
	}

	var hdr strings.Builder
	fmt.Fprintf(&hdr, "ObjectType = Image\n")
	fmt.Fprintf(&hdr, "NDims = 3\n")
	fmt.Fprintf(&hdr, "BinaryData = True\n")
	fmt.Fprintf(&hdr, "BinaryDataByteOrderMSB = %s\n", metaBool(opts.MSB))
	fmt.Fprintf(&hdr, "CompressedData = %s\n", metaBool(opts.Compressed))
	if opts.Compressed {
		fmt.Fprintf(&hdr, "CompressedDataSize = %d\n", len(data))
	}
	fmt.Fprintf(&hdr, "TransformMatrix = 1 0 0 0 1 0 0 0 1\n")
	fmt.Fprintf(&hdr, "Offset = %g %g %g\n", v.Origin.X, v.Origin.Y, v.Origin.Z)
	fmt.Fprintf(&hdr, "ElementSpacing = %g %g %g\n", v.Spacing.X, v.Spacing.Y, v.Spacing.Z)
	fmt.Fprintf(&hdr, "DimSize = %d %d %d\n", v.Size.X, v.Size.Y, v.Size.Z)
	fmt.Fprintf(&hdr, "ElementType = %s\n", MetShort)
	fmt.Fprintf(&hdr, "ElementDataFile = %s\n", dataFile)

	hf, err := os.Create(headerPath)
	if err != nil {
		return "", err
	}
	defer hf.Close()
	if _, err := io.WriteString(hf, hdr.String()); err != nil {
		return "", err
	}

	out := io.Writer(hf)
	if !opts.Local {
		df, err := os.Create(filepath.Join(dir, dataFile))
		if err != nil {
			return "", err
		}
		defer df.Close()
		out = df
	}

	bw := bufio.NewWriter(out)
	if opts.Compressed {
		_, err = bw.Write(data)
	} else {
		err = writeVoxels(bw, v.voxels, opts.MSB)
	}
	if err != nil {
		return "", err
	}
	if err := bw.Flush(); err != nil {
		return "", err
	}
	return headerPath, nil
}

func writeVoxels(w io.Writer, voxels []int16, msb bool) error {
	var order binary.ByteOrder = binary.LittleEndian
	if msb {
		order = binary.BigEndian
	}
	return binary.Write(w, order, voxels)
}

func metaBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
