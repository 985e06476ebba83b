package allocator

import (
	"context"
	"fmt"
	"path"

	"github.com/hupe1980/nodulefed/blobstore"
	"github.com/hupe1980/nodulefed/candidate"
	"github.com/hupe1980/nodulefed/format"
)

// ManifestName is the name of the run manifest under the output root.
const ManifestName = "manifest.json"

// ClientDir returns the directory of client c.
func ClientDir(c int) string { return fmt.Sprintf("client%d", c) }

// ClassDir returns the per-file directory of client c and class l.
func ClassDir(c int, l candidate.Label) string {
	return path.Join(ClientDir(c), l.String())
}

// FilePath returns the path of one per-file patch.
func FilePath(c int, l candidate.Label, id string, f format.Format) string {
	return path.Join(ClassDir(c, l), id+"."+f.Ext())
}

// StackPath returns the path of the stacked array of client c and class l.
func StackPath(c int, l candidate.Label, f format.Format, comp format.Compression) string {
	return path.Join(ClientDir(c), fmt.Sprintf("class%s.%s%s", l, f.Ext(), comp.Suffix()))
}

// Reset deletes everything in s and recreates the class directories of
// clients 0..n-1.
func Reset(ctx context.Context, s blobstore.Store, n int) error {
	if err := blobstore.RemoveAll(ctx, s, ""); err != nil {
		return fmt.Errorf("clear output: %w", err)
	}
	for c := range n {
		for _, l := range candidate.Labels {
			if err := blobstore.MkdirAll(ctx, s, ClassDir(c, l)); err != nil {
				return fmt.Errorf("create %s: %w", ClassDir(c, l), err)
			}
		}
	}
	return nil
}
