// Package store defines the storage collaborator of the clustering driver and
// provides an in-memory implementation.
//
// A Store owns the point set, the active set of unclustered points, the
// accepted clusters and the permutation enumerator. The driver only talks to a
// Store through the primitive operations of the Store interface, one call per
// stage of an iteration:
//
//	pointer := NextClusterID
//	alpha := NextPermutation; AdvancePermutation
//	InsertDeltas(alpha); ExtractClusters(eps, alpha); FilterClusters(minPts)
//	DeleteClusteredObjects(pointer)
//	CleanDeltasTable
//
// Stores are single-writer. Every operation that changes membership is
// visible to the next call on the same Store.
package store
