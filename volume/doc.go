// Package volume holds CT scans in memory and loads them from disk.
//
// A [Volume] stores int16 voxels z-major, so slice k is one contiguous
// Size.X*Size.Y run addressed as [y][x]. Volumes are immutable once built and
// may be shared across goroutines; [Volume.Slice] returns a read-only view and
// every mutation goes through a [Plane] copy.
//
// Loaders:
//
//   - [MetaImageLoader] reads {dir}/{seriesID}.mhd headers with raw, LOCAL
//     or zlib-compressed voxel data. Raw files are memory mapped.
//   - [MemoryLoader] serves volumes registered in process, mostly for tests.
//   - [CachingLoader] wraps any loader with a byte-bounded LRU and collapses
//     concurrent loads of the same series.
package volume
