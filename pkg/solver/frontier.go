package solver

// frontierItem pairs a search state with its admissible bound and an
// explicit insertion sequence number. The sequence number is the tie-break
// for equal bounds, which makes the best-first expansion order fully
// deterministic for identical input.
type frontierItem struct {
	state *searchState
	bound float64
	seq   uint64
}

// frontier is a lowest-bound-first priority queue over search states.
type frontier []*frontierItem

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].bound != f[j].bound {
		return f[i].bound < f[j].bound
	}
	return f[i].seq < f[j].seq
}

func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x interface{}) {
	*f = append(*f, x.(*frontierItem))
}

func (f *frontier) Pop() interface{} {
	old := *f
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*f = old[:n-1]
	return item
}
