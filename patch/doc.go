// Package patch crops 2D patches around candidate locations and draws
// highlight frames for visual review.
//
// The crop box is [i-h, i+h) x [j-h, j+h) on slice k, clamped per side to
// the slice. A candidate near an edge yields a smaller rectangle; the box is
// never shifted back inside the image.
package patch
