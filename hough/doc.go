// Package hough maps data points into the CASH parameter space.
//
// A d-dimensional point p is mapped to the curve
//
//	f_p(a_1, ..., a_{d-1}) = Σ_{i=1..d} p_i · (Π_{j<i} sin a_j) · cos a_i,  with a_d = 0
//
// which is the signed distance of the hyperplane through p whose unit normal is
// given by the polar angles a_1..a_{d-1}. Points lying on a common hyperplane
// produce curves that intersect at that hyperplane's angle vector, so probing the
// curves at one Alpha and grouping nearly equal values finds linear correlations.
package hough
