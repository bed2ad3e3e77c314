// Package testutil provides testing utilities for cash.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, thread-safe RNG with generators for points on
// random hyperplanes and for uniform noise, plus assertions for the
// invariants every clustering result must satisfy.
//
// # Data Generation
//
//	rng := testutil.NewRNG(seed)
//	alpha := rng.Alpha(3)
//	pts := rng.PlanePoints(100, alpha, 0.5, 1e-3, 1, 10)  // ids 1..100
//	pts = append(pts, rng.NoisePoints(20, 3, 1, 101)...) // ids 101..120
//
// # Result Verification
//
//	testutil.AssertClusters(t, res.Clusters, minPts)
package testutil
