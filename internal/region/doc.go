// Package region finds dense parameter-space regions in a delta table.
//
// The deltas of one alpha are sorted by value. The neighbourhood of a delta is
// every remaining delta whose value lies within eps of it. Extraction repeatedly
// takes the delta with the largest neighbourhood, emits that neighbourhood as a
// Candidate and removes its members, until the densest neighbourhood falls below
// the minimum size. Ties go to the lower value (the lower cell boundary), then to
// the lower point id.
//
// Neighbourhood windows are fixed index ranges over the sorted order, so the
// number of remaining members of a window is a prefix-sum query on a Fenwick tree
// whose entries are cleared as deltas are claimed. The argmax over all windows is
// split across workers and merged.
package region
