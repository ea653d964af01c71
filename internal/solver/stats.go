package solver

// Improvement records a new best cost and the iteration that found it.
type Improvement struct {
	Iter int
	Cost float64
}

// Stats accumulates per-run search telemetry. Scoped to a single solver
// run; the multi-start driver keeps one per worker.
type Stats struct {
	Iterations     int
	Improvements   []Improvement
	Restarts       []int
	RepairFailures int

	// frequency maps: how often each customer was displaced and how often
	// each route index lost or gained a stop.
	CustChangeFreq  map[int]int
	RouteRemoveFreq map[int]int
	RouteAddFreq    map[int]int

	// final adaptive weights, in arm order
	DestroyWeights []float64
	RepairWeights  []float64
}

func NewStats() *Stats {
	return &Stats{
		CustChangeFreq:  map[int]int{},
		RouteRemoveFreq: map[int]int{},
		RouteAddFreq:    map[int]int{},
	}
}

func (st *Stats) onIteration(iter int, cost float64, improvedBest bool) {
	st.Iterations++
	if improvedBest {
		st.Improvements = append(st.Improvements, Improvement{Iter: iter, Cost: cost})
	}
}

func (st *Stats) onRestart(iter int) {
	st.Restarts = append(st.Restarts, iter)
}
