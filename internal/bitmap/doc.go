// Package bitmap provides the active-set bitmap used by the CASH stores.
//
// ActiveSet wraps a 32-bit Roaring Bitmap of model.PointID values. Points are
// added once when a run starts and removed when a cluster claims them; the set
// never grows during a run. Roaring keeps the representation compact for both
// dense id ranges (fresh data sets) and sparse survivors (late iterations), and
// its portable serialization is used by checkpoints.
package bitmap
