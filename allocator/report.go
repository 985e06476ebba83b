package allocator

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/nodulefed/blobstore"
	"github.com/hupe1980/nodulefed/candidate"
	"github.com/hupe1980/nodulefed/codec"
	"github.com/hupe1980/nodulefed/federation"
	"github.com/hupe1980/nodulefed/format"
)

// File is one written output file.
type File struct {
	Class candidate.Label `json:"class"`
	// Index is the position in the class list, -1 for a stacked file.
	Index    int    `json:"index"`
	SeriesID string `json:"seriesId,omitempty"`
	Path     string `json:"path"`
	Bytes    int64  `json:"bytes"`
	// Patches is the number of patches in a stacked file.
	Patches int `json:"patches,omitempty"`
}

// ClientReport is the outcome for one client.
type ClientReport struct {
	federation.Assignment

	Written [candidate.NumClasses]int `json:"written"`
	Skipped int                       `json:"skipped"`
	Files   []File                    `json:"files"`
	Error   string                    `json:"error,omitempty"`
}

// Report describes a run and is persisted as the manifest.
type Report struct {
	Codec          string            `json:"codec"`
	Format         format.Format     `json:"format"`
	Compression    string            `json:"compression,omitempty"`
	ClampMode      string            `json:"clampMode"`
	Totals         candidate.Totals  `json:"totals"`
	Oversubscribed []candidate.Label `json:"oversubscribed,omitempty"`
	Audit          Audit             `json:"audit"`
	Clients        []ClientReport    `json:"clients"`
	Started        time.Time         `json:"started"`
	Finished       time.Time         `json:"finished"`
}

// Written returns the number of patches written across all clients.
func (r *Report) Written() int {
	n := 0
	for _, c := range r.Clients {
		for _, w := range c.Written {
			n += w
		}
	}
	return n
}

// WriteManifest encodes r with c and stores it as ManifestName.
func WriteManifest(ctx context.Context, s blobstore.Store, c codec.Codec, r *Report) error {
	r.Codec = c.Name()
	data, err := c.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return s.Put(ctx, ManifestName, data)
}

// ReadManifest loads ManifestName, decoding it with the codec it names.
func ReadManifest(ctx context.Context, s blobstore.Store) (*Report, error) {
	data, err := blobstore.ReadAll(ctx, s, ManifestName)
	if err != nil {
		return nil, err
	}
	var head struct {
		Codec string `json:"codec"`
	}
	if err := (codec.JSON{}).Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	c, ok := codec.ByName(head.Codec)
	if !ok {
		return nil, fmt.Errorf("decode manifest: unknown codec %q", head.Codec)
	}
	var r Report
	if err := c.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &r, nil
}
