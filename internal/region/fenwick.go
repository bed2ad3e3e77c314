package region

// fenwick is a binary indexed tree over 0/1 liveness flags.
type fenwick struct {
	tree []int32
}

// newFenwick returns a tree over n entries that are all set to 1.
func newFenwick(n int) *fenwick {
	f := &fenwick{tree: make([]int32, n+1)}
	for i := 1; i <= n; i++ {
		f.tree[i]++
		if j := i + (i & -i); j <= n {
			f.tree[j] += f.tree[i]
		}
	}
	return f
}

// add adds v at index i (0-based).
func (f *fenwick) add(i int, v int32) {
	for i++; i < len(f.tree); i += i & -i {
		f.tree[i] += v
	}
}

// prefix returns the sum of [0, i).
func (f *fenwick) prefix(i int) int {
	var s int32
	for ; i > 0; i -= i & -i {
		s += f.tree[i]
	}
	return int(s)
}

// rangeSum returns the sum of [lo, hi).
func (f *fenwick) rangeSum(lo, hi int) int {
	if hi <= lo {
		return 0
	}
	return f.prefix(hi) - f.prefix(lo)
}
