// Package permutation enumerates the angle vectors tried by the CASH driver.
//
// Two strategies are provided:
//
//   - Grid discretises every angle into splits+1 values over [Low, High] and walks
//     all combinations odometer-style, the last angle varying fastest.
//   - List replays an explicit, caller-supplied sequence of alpha vectors.
//
// Every Enumerator is finite. Once exhausted, HasNext stays false until Reset.
package permutation
