// Package cash finds linear correlation clusters with the Hough transform.
//
// Every point of dimension d is mapped to a curve in a (d-1)-dimensional
// angle space. For a fixed angle vector alpha the curve value of a point is
// its distance from the origin along the normal hough.Normal(alpha), so
// points sharing a hyperplane share a value. The driver tries the alphas of
// an enumeration one at a time, groups the points whose values lie within eps
// of each other and accepts groups of at least minPts points as clusters.
// Clustered points leave the active set, so later alphas only see the rest.
//
// # Quick Start
//
// In memory:
//
//	res, err := cash.Cluster(ctx, points, 0.05, 10, cash.WithGrid(8))
//	for _, c := range res.Clusters {
//	    fmt.Println(c.ID, c.Alpha.Degrees(), c.Offset, c.Points)
//	}
//
// Against a durable store, with checkpoints:
//
//	s, _ := badger.Open(badger.Options{Dir: "./data"})
//	mgr := checkpoint.NewManager(blobstore.NewLocalStore("./checkpoints"))
//	d, _ := cash.New(s, cash.WithCheckpointer(mgr, 10), cash.WithLogLevel(slog.LevelInfo))
//	res, err := d.Cash(ctx, 0.05, 10)
//
// # Failure Model
//
// A failing store operation is retried (WithRetry, default once). The
// delta, region, filter and commit steps of an iteration are retried as a
// unit after the delta table was cleaned, with the same alpha. When retries
// are exhausted Cash returns a *StorageError together with a Result holding
// the clusters committed so far.
//
// Cluster ids strictly increase but may have gaps: ids handed out during a
// failed attempt are never reused.
package cash
