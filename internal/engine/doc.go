// Package engine runs the per-alpha stages shared by every store.
//
// The engine holds the transient state of one iteration:
//   - the delta table of the active points under the current alpha
//   - the candidate regions found by the extractor
//   - the clusters accepted by the filter but not yet committed
//
// Stores own the durable state (points, active set, clusters, enumerator) and
// delegate the stage computations to an Engine.
package engine
