// Package testutil provides testing utilities for bindex.
//
// This package is intended for use in tests and benchmarks only.
// It generates coordinate-sorted synthetic record sets and answers
// region queries by linear scan, the ground truth an index query
// result must cover.
//
// # Record Generation
//
//	rng := testutil.NewRNG(seed)
//	recs := rng.Records(2, 100_000) // 2 references, 100k records
//
// # Ground Truth
//
//	want := testutil.OverlappingChunks(recs, 0, start, end)
//	got, _ := idx.Query(0, start, end)
//	for _, c := range want {
//		if !testutil.Covers(got, c) {
//			// the index missed a record
//		}
//	}
package testutil
