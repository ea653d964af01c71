// Package solver implements the adaptive large-neighborhood search over
// the vrp data structures: weighted destroy/repair operators behind a tabu
// pool, a random-drop restart, and the iteration driver with its
// fixed-probability acceptance rule.
package solver

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"vrpsolve/internal/vrp"
)

// ErrNoPlacement reports that a repair operator found no feasible position
// for a removed stop. Recoverable: the driver reverts and moves on.
var ErrNoPlacement = errors.New("solver: no feasible position for stop")

// destroyCount is how many stops each destroy call removes, capped by the
// size of the non-tabu pool.
const destroyCount = 5

// Shaw similarity weights: alpha scales distance to the seed, beta the
// demand difference.
const (
	shawAlpha = 0.5
	shawBeta  = 0.5
)

// exploreProb is the chance a repair commits to a uniformly random feasible
// position instead of the cheapest one.
const exploreProb = 0.02

// Removed is one destroyed stop and the route index it came from.
type Removed struct {
	Stop     vrp.Stop
	RouteIdx int
}

// ALNS holds one run's search state: the working solution, the tabu pool,
// and the adaptive operator arms. Single-threaded; each worker owns its
// own.
type ALNS struct {
	inst    *vrp.Instance
	current *vrp.Solution
	rng     *rand.Rand
	stats   *Stats

	// stopTabu is a bounded FIFO of recently removed customers; stopNotTabu
	// is its complement. Their union is always exactly {1..n-1}.
	stopTabu    []int
	stopNotTabu []int

	destroyOps []*operator // [random, shaw]
	repairOps  []*operator // [best-insertion, regret-2]

	lastDestroy int
	lastRepair  int
}

// NewALNS starts a search from initial, which it takes ownership of.
func NewALNS(inst *vrp.Instance, initial *vrp.Solution, rng *rand.Rand) *ALNS {
	return &ALNS{
		inst:        inst,
		current:     initial,
		rng:         rng,
		stats:       NewStats(),
		stopNotTabu: allCustomers(inst),
		destroyOps:  []*operator{newOperator(0), newOperator(1)},
		repairOps:   []*operator{newOperator(0), newOperator(1)},
	}
}

func (a *ALNS) Current() *vrp.Solution { return a.current }
func (a *ALNS) Stats() *Stats          { return a.stats }

// Destroy removes a batch of stops using the weighted destroy operator and
// returns them with their origin routes.
func (a *ALNS) Destroy() []Removed {
	n := destroyCount
	if n > len(a.stopNotTabu) {
		n = len(a.stopNotTabu)
	}
	if n == 0 {
		return nil
	}
	var removed []Removed
	if pickOperator(a.rng, a.destroyOps) == 0 {
		a.lastDestroy = 0
		removed = a.removeNRandom(n)
	} else {
		a.lastDestroy = 1
		removed = a.removeNShaw(n)
	}
	for _, rm := range removed {
		a.stats.CustChangeFreq[rm.Stop.CustNo]++
		a.stats.RouteRemoveFreq[rm.RouteIdx]++
	}
	return removed
}

// UpdateTabu pushes the freshly removed customers onto the tabu FIFO and
// releases the oldest entries back into the eligible pool once the bound
// (numCustomers/10) is exceeded.
func (a *ALNS) UpdateTabu(removed []Removed) {
	for _, rm := range removed {
		a.stopTabu = append(a.stopTabu, rm.Stop.CustNo)
	}
	bound := a.inst.NumCustomers / 10
	for len(a.stopTabu) > bound {
		a.stopNotTabu = append(a.stopNotTabu, a.stopTabu[0])
		a.stopTabu = a.stopTabu[1:]
	}
}

// Repair reinserts the removed stops with the weighted repair operator.
// On error the caller must revert the working solution: stops may be only
// partially reinserted.
func (a *ALNS) Repair(removed []Removed) error {
	var (
		routeIdxs []int
		err       error
	)
	if pickOperator(a.rng, a.repairOps) == 0 {
		a.lastRepair = 0
		routeIdxs, err = a.reinsertBestSpots(removed)
	} else {
		a.lastRepair = 1
		routeIdxs, err = a.reinsertRegret(removed, 2)
	}
	if err != nil {
		return err
	}
	for _, ri := range routeIdxs {
		a.stats.RouteAddFreq[ri]++
	}
	return nil
}

// UpdateScores credits both last-used operators with the iteration's tier.
func (a *ALNS) UpdateScores(delta int) {
	a.destroyOps[a.lastDestroy].bumpScore(delta)
	a.repairOps[a.lastRepair].bumpScore(delta)
}

// UpdateWeights runs the periodic exponential-smoothing rebalance on every
// arm.
func (a *ALNS) UpdateWeights() {
	for _, o := range a.destroyOps {
		o.rebalance()
	}
	for _, o := range a.repairOps {
		o.rebalance()
	}
}

// OperatorWeights reports the current destroy and repair weights, in arm
// order.
func (a *ALNS) OperatorWeights() (destroy, repair []float64) {
	for _, o := range a.destroyOps {
		destroy = append(destroy, o.weight)
	}
	for _, o := range a.repairOps {
		repair = append(repair, o.weight)
	}
	return destroy, repair
}

// JumpTo replaces the working solution and clears the tabu pool.
func (a *ALNS) JumpTo(sol *vrp.Solution) {
	a.current.CopyFrom(sol)
	a.stopTabu = a.stopTabu[:0]
	a.stopNotTabu = append(a.stopNotTabu[:0], allCustomers(a.inst)...)
}

// removeNRandom pops n distinct customers uniformly from the non-tabu pool
// (swap-remove keeps the pop O(1)) and extracts them from their routes.
func (a *ALNS) removeNRandom(n int) []Removed {
	custNos := make([]int, 0, n)
	for i := 0; i < n; i++ {
		idx := a.rng.Intn(len(a.stopNotTabu))
		custNos = append(custNos, a.stopNotTabu[idx])
		a.stopNotTabu[idx] = a.stopNotTabu[len(a.stopNotTabu)-1]
		a.stopNotTabu = a.stopNotTabu[:len(a.stopNotTabu)-1]
	}
	return a.extract(custNos)
}

// removeNShaw removes the n customers most similar to a random non-tabu
// seed, scoring by shawAlpha*distance + shawBeta*|demand difference|. The
// seed scores 0 against itself and is always among the removed. Only
// non-tabu customers are candidates, so the pool invariant holds for both
// destroy operators.
func (a *ALNS) removeNShaw(n int) []Removed {
	seed := a.stopNotTabu[a.rng.Intn(len(a.stopNotTabu))]

	type scored struct {
		custNo int
		score  float64
	}
	candidates := make([]scored, 0, len(a.stopNotTabu))
	for _, custNo := range a.stopNotTabu {
		dist := a.inst.Dist[seed][custNo]
		demandDiff := math.Abs(float64(a.inst.Demand[seed] - a.inst.Demand[custNo]))
		candidates = append(candidates, scored{custNo, shawAlpha*dist + shawBeta*demandDiff})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score < candidates[j].score })

	custNos := make([]int, 0, n)
	for i := 0; i < n; i++ {
		custNos = append(custNos, candidates[i].custNo)
	}
	a.dropFromNotTabu(custNos)
	return a.extract(custNos)
}

func (a *ALNS) dropFromNotTabu(custNos []int) {
	for _, custNo := range custNos {
		for i, c := range a.stopNotTabu {
			if c == custNo {
				a.stopNotTabu[i] = a.stopNotTabu[len(a.stopNotTabu)-1]
				a.stopNotTabu = a.stopNotTabu[:len(a.stopNotTabu)-1]
				break
			}
		}
	}
}

// extract locates each customer in the working solution and removes it.
func (a *ALNS) extract(custNos []int) []Removed {
	removed := make([]Removed, 0, len(custNos))
	for _, custNo := range custNos {
		for ri, route := range a.current.Routes {
			if idx := route.IndexOfStop(custNo); idx >= 0 {
				removed = append(removed, Removed{Stop: route.RemoveStopAt(idx), RouteIdx: ri})
				break
			}
		}
	}
	return removed
}

// reinsertBestSpots places removed stops hardest-first (descending demand)
// at their cheapest feasible position.
func (a *ALNS) reinsertBestSpots(removed []Removed) ([]int, error) {
	stops := stopsOf(removed)
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].Demand > stops[j].Demand })

	routeIdxs := make([]int, 0, len(stops))
	for _, stop := range stops {
		ri, err := a.reinsertBest(stop)
		if err != nil {
			return nil, err
		}
		routeIdxs = append(routeIdxs, ri)
	}
	return routeIdxs, nil
}

// reinsertRegret orders removed stops by descending regret-k (the cost gap
// between their best and k-th best feasible insertion) before placing
// each at its best position. Stops with few alternatives go first.
func (a *ALNS) reinsertRegret(removed []Removed, k int) ([]int, error) {
	stops := stopsOf(removed)
	regrets := make(map[int]float64, len(stops))
	for _, stop := range stops {
		regrets[stop.CustNo] = a.regretK(stop, k)
	}
	sort.SliceStable(stops, func(i, j int) bool {
		return regrets[stops[i].CustNo] > regrets[stops[j].CustNo]
	})

	routeIdxs := make([]int, 0, len(stops))
	for _, stop := range stops {
		ri, err := a.reinsertBest(stop)
		if err != nil {
			return nil, err
		}
		routeIdxs = append(routeIdxs, ri)
	}
	return routeIdxs, nil
}

type position struct {
	routeIdx int
	index    int
}

// reinsertBest scans all routes and positions for the cheapest feasible
// insertion and commits it, with a small exploration chance of committing
// to any feasible position instead.
func (a *ALNS) reinsertBest(stop vrp.Stop) (int, error) {
	best := position{routeIdx: -1}
	bestIncrease := math.Inf(1)
	var feasible []position

	for ri, route := range a.current.Routes {
		for i := 0; i <= route.Len(); i++ {
			newCost, fits := route.SpeculativeAdd(stop, i)
			if !fits {
				continue
			}
			feasible = append(feasible, position{ri, i})
			if increase := newCost - route.Cost(); increase < bestIncrease {
				best = position{ri, i}
				bestIncrease = increase
			}
		}
	}
	if best.routeIdx < 0 {
		return 0, fmt.Errorf("customer %d: %w", stop.CustNo, ErrNoPlacement)
	}
	if a.rng.Float64() < exploreProb {
		best = feasible[a.rng.Intn(len(feasible))]
	}
	a.current.Routes[best.routeIdx].AddStopAt(stop, best.index)
	return best.routeIdx, nil
}

// regretK is the cost gap between the k-th cheapest and cheapest feasible
// insertions of stop across the whole solution. Fewer than k feasible
// positions means the stop is maximally urgent, so +Inf.
func (a *ALNS) regretK(stop vrp.Stop, k int) float64 {
	// kbest holds the k cheapest insertion cost increases, ascending.
	kbest := make([]float64, 0, k+1)
	for _, route := range a.current.Routes {
		for i := 0; i <= route.Len(); i++ {
			newCost, fits := route.SpeculativeAdd(stop, i)
			if !fits {
				continue
			}
			increase := newCost - route.Cost()
			at := sort.SearchFloat64s(kbest, increase)
			if at >= k {
				continue
			}
			kbest = append(kbest, 0)
			copy(kbest[at+1:], kbest[at:])
			kbest[at] = increase
			if len(kbest) > k {
				kbest = kbest[:k]
			}
		}
	}
	if len(kbest) < k {
		return math.Inf(1)
	}
	return kbest[k-1] - kbest[0]
}

func stopsOf(removed []Removed) []vrp.Stop {
	stops := make([]vrp.Stop, len(removed))
	for i, rm := range removed {
		stops[i] = rm.Stop
	}
	return stops
}

func allCustomers(inst *vrp.Instance) []int {
	custNos := make([]int, 0, inst.NumCustomers-1)
	for c := 1; c < inst.NumCustomers; c++ {
		custNos = append(custNos, c)
	}
	return custNos
}

// tabuInvariant verifies the pool bookkeeping: tabu and non-tabu partition
// {1..n-1} exactly. Used by tests.
func (a *ALNS) tabuInvariant() error {
	seen := make(map[int]int, a.inst.NumCustomers)
	for _, c := range a.stopTabu {
		seen[c]++
	}
	for _, c := range a.stopNotTabu {
		seen[c]++
	}
	for c := 1; c < a.inst.NumCustomers; c++ {
		if seen[c] != 1 {
			return fmt.Errorf("customer %d appears %d times across tabu pools", c, seen[c])
		}
	}
	if len(seen) != a.inst.NumCustomers-1 {
		return fmt.Errorf("pools hold %d customers, want %d", len(seen), a.inst.NumCustomers-1)
	}
	return nil
}
