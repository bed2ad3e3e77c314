// Package badger implements store.Store on top of BadgerDB.
//
// Points, committed clusters and the run metadata are durable; the delta table
// and the uncommitted clusters of the current iteration live in memory. Keys:
//
//	p/<id:uint32 big-endian>  point coordinates (msgpack []float64)
//	c/<id:uint64 big-endian>  committed cluster (msgpack model.Cluster)
//	m/dim                     point dimension
//	m/active                  active set (portable roaring bitmap)
//	m/enum                    enumerator state (msgpack permutation.State)
//	m/next                    next cluster id
//
// DeleteClusteredObjects writes the clusters, the active set and the next id in
// one transaction, so a reopened store resumes after the last committed
// iteration.
package badger
