package candidate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/hupe1980/nodulefed/coord"
	"github.com/hupe1980/nodulefed/internal/table"
)

const (
	candidateColumns  = 5 // seriesuid,coordX,coordY,coordZ,class
	annotationColumns = 5 // seriesuid,coordX,coordY,coordZ,diameter_mm
)

var (
	// ErrEmptySeriesID is wrapped by a ParseError for a row without a series id.
	ErrEmptySeriesID = errors.New("empty series id")
	// ErrInvalidLabel is wrapped by a ParseError for a class other than 0 or 1.
	ErrInvalidLabel = errors.New("class label must be 0 or 1")
)

// Load parses a candidate source and an optional annotation source (nil
// skips annotations). Any malformed row fails the whole load.
func Load(candidates, annotations io.Reader) (*Pool, error) {
	return load("candidates", candidates, "annotations", annotations)
}

// LoadFiles is Load over two files. annotationsPath may be empty.
func LoadFiles(candidatesPath, annotationsPath string) (*Pool, error) {
	cf, err := os.Open(candidatesPath)
	if err != nil {
		return nil, fmt.Errorf("open candidates: %w", err)
	}
	defer cf.Close()

	var ar io.Reader
	if annotationsPath != "" {
		af, err := os.Open(annotationsPath)
		if err != nil {
			return nil, fmt.Errorf("open annotations: %w", err)
		}
		defer af.Close()
		ar = af
	}

	return load(candidatesPath, cf, annotationsPath, ar)
}

func load(candName string, cr io.Reader, annName string, ar io.Reader) (*Pool, error) {
	p := &Pool{}

	err := table.Read(cr, table.Options{Columns: candidateColumns, Header: true}, func(line int, f []string) error {
		world, col, err := parseWorld(f)
		if err != nil {
			return NewParseError(candName, line, col, err)
		}
		if f[0] == "" {
			return NewParseError(candName, line, 0, ErrEmptySeriesID)
		}
		label, err := parseLabel(f[4])
		if err != nil {
			return NewParseError(candName, line, 4, err)
		}
		p.candidates = append(p.candidates, Record{SeriesID: f[0], World: world, Label: label})
		return nil
	})
	if err != nil {
		return nil, asParseError(candName, err)
	}

	if ar == nil {
		return p, nil
	}

	err = table.Read(ar, table.Options{Columns: annotationColumns, Header: true}, func(line int, f []string) error {
		world, col, err := parseWorld(f)
		if err != nil {
			return NewParseError(annName, line, col, err)
		}
		if f[0] == "" {
			return NewParseError(annName, line, 0, ErrEmptySeriesID)
		}
		d, err := strconv.ParseFloat(f[4], 64)
		if err != nil {
			return NewParseError(annName, line, 4, err)
		}
		p.annotations = append(p.annotations, Annotation{SeriesID: f[0], World: world, DiameterMM: d})
		return nil
	})
	if err != nil {
		return nil, asParseError(annName, err)
	}

	return p, nil
}

// ReadSeriesIDs reads a header-less, single-column list of series ids.
func ReadSeriesIDs(r io.Reader) ([]string, error) {
	var ids []string
	err := table.Read(r, table.Options{Columns: 1}, func(line int, f []string) error {
		if f[0] == "" {
			return NewParseError("seriesuids", line, 0, ErrEmptySeriesID)
		}
		ids = append(ids, f[0])
		return nil
	})
	if err != nil {
		return nil, asParseError("seriesuids", err)
	}
	return ids, nil
}

func parseWorld(f []string) (coord.WorldCoordinate, int, error) {
	var v [3]float64
	for i := range v {
		x, err := strconv.ParseFloat(f[i+1], 64)
		if err != nil {
			return coord.WorldCoordinate{}, i + 1, err
		}
		v[i] = x
	}
	return coord.WorldCoordinate{X: v[0], Y: v[1], Z: v[2]}, -1, nil
}

func parseLabel(s string) (Label, error) {
	switch s {
	case "0":
		return Class0, nil
	case "1":
		return Class1, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLabel, s)
	}
}

func asParseError(source string, err error) error {
	var te *table.Error
	if errors.As(err, &te) {
		return NewParseError(source, te.Line, te.Column, te.Err)
	}
	return err
}
