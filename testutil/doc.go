// Package testutil provides testing utilities for scmemory.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random graphs and a reference model
// that computes expected iterator and erase results.
//
// # Random Graph Generation
//
//	rng := testutil.NewRNG(seed)
//	g, err := testutil.RandomGraph(ctx, rng, 100, 400)
//
// # Expected Results
//
//	out := g.OutArcs(a)       // arcs leaving a, in creation order
//	gone := g.EraseSet(a)     // everything an erase of a must remove
//	g.Erase(a)                // apply the erase to the model
package testutil
