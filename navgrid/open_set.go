package navgrid

// searchRecord is per-tile bookkeeping for one search call.
type searchRecord struct {
	tile    int
	g       float64
	h       float64
	hSet    bool
	prev    int
	seq     uint64
	index   int // position in openSet, -1 when not queued
	settled bool
}

func (r *searchRecord) f() float64 {
	return r.g + r.h
}

// openSet is a min-heap on f, ties going to the record queued first.
type openSet []*searchRecord

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	fi, fj := o[i].f(), o[j].f()
	if fi != fj {
		return fi < fj
	}
	return o[i].seq < o[j].seq
}
func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}
func (o *openSet) Push(x any) {
	item := x.(*searchRecord)
	item.index = len(*o)
	*o = append(*o, item)
}
func (o *openSet) Pop() any {
	old := *o
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*o = old[:n-1]
	return item
}
