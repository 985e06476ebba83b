// Package allocator materialises a federation plan as per-client patch files.
//
// A run splits the candidate pool by class, computes every client's windows
// up front with federation.Plan, clears the output store and recreates the
// client{c}/{0,1} layout, then writes each client's patches in client order:
//
//	a := allocator.New(store, patch.NewExtractor(loader, patch.DefaultHalfSize),
//	    allocator.WithFormat(format.NIfTI),
//	    allocator.WithLogger(logger),
//	)
//	report, err := a.Run(ctx, pool, cfg)
//
// Patches of one client are extracted concurrently up to the worker limit of
// the resource controller; clients themselves are processed sequentially so a
// failing client never affects the output of the clients before it.
package allocator
