// Package candidate loads the nodule candidate and annotation lists and
// exposes ordered views over them.
//
// Both sources are comma-separated with a header row:
//
//	seriesuid,coordX,coordY,coordZ,class
//	seriesuid,coordX,coordY,coordZ,diameter_mm
//
// Loading is all-or-nothing. A row with the wrong width, a non-numeric
// coordinate or a class other than 0/1 fails with a [*ParseError] naming the
// source and line.
//
// A [Pool] never reorders candidates. [Pool.SplitByClass], [Pool.Capped] and
// [Pool.Head] all preserve source order, which keeps client allocation
// reproducible.
package candidate
