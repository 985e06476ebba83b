// Package format encodes patches for the on-disk federation layout.
//
// Per-file formats write one patch per blob:
//
//   - [NIfTI]: single-file NIfTI-1 (.nii), int16, column-major like nibabel.
//   - [JPEG]: 8-bit grayscale (.jpg) after min-max normalisation.
//
// [NPY] stacks every patch of one client and class into a single (N, H, W)
// int16 array (.npy, format version 1.0). Any format may be wrapped in a
// zstd or lz4 frame with [NewCompressWriter].
package format
