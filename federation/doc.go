// Package federation turns a per-client class-ratio table into concrete,
// non-overlapping index windows over the class-0 and class-1 candidate lists.
//
// Planning is pure: [Plan] folds a [Cursor] over the clients in row order and
// returns every [Assignment] before any patch is written.
//
//	cfg, err := federation.LoadConfigFile("config.csv")
//	...
//	plan, err := federation.Plan(cfg, pool.Counts(), federation.ClampLastIndex)
//
// Each client's quota is floor(ratio * total) against the original class
// totals, not the remainder. Ratios need not sum to one; a later client may
// therefore run off the end of a list, in which case its window is clamped.
package federation
