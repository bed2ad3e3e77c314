// Package model defines the core types shared by the CASH engine and its stores.
//
// # Identity Types
//
//   - PointID: stable identifier of an input point (uint32, roaring-bitmap friendly)
//   - ClusterID: monotonically increasing cluster identifier, never reused in a run
//
// # Data Types
//
//   - Point: identity plus coordinate vector
//   - Delta: the parameter-space image of one point under one alpha
//   - Cluster: accepted group of points with the alpha that produced it
package model
