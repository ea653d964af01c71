package vrp

import (
	"fmt"
	"strings"
)

// Stop is one customer placement in a route. Identity is the customer
// number alone; Demand travels along so mutations never need a demand
// lookup.
type Stop struct {
	CustNo int
	Demand int
}

// Route is a single vehicle's visit sequence. The depot is implicit at both
// ends and never stored. Cost (round trip, including both depot legs) and
// used capacity are cached and updated incrementally on every mutation;
// RetainStops is the only operation allowed to recompute from scratch.
//
// The route itself never rejects an over-capacity insert: speculative
// queries report feasibility and committing mutations trust the caller to
// have checked it.
type Route struct {
	inst    *Instance
	id      int
	stops   []Stop
	cost    float64
	usedCap int
}

// NewRoute returns an empty route preallocated to the instance's
// MaxRouteLen hint.
func NewRoute(inst *Instance, id int) *Route {
	return &Route{
		inst:  inst,
		id:    id,
		stops: make([]Stop, 0, inst.MaxRouteLen),
	}
}

func (r *Route) Len() int      { return len(r.stops) }
func (r *Route) Empty() bool   { return len(r.stops) == 0 }
func (r *Route) Cost() float64 { return r.cost }

// UsedCapacity is the sum of stop demands currently on the route.
func (r *Route) UsedCapacity() int { return r.usedCap }

// Stops exposes the stop sequence for iteration. Callers must not mutate it.
func (r *Route) Stops() []Stop { return r.stops }

// Stop returns the stop at index.
func (r *Route) Stop(index int) Stop { return r.stops[index] }

// First returns the customer number of the first stop. Must not be called
// on an empty route.
func (r *Route) First() int { return r.stops[0].CustNo }

// Last returns the customer number of the last stop. Must not be called on
// an empty route.
func (r *Route) Last() int { return r.stops[len(r.stops)-1].CustNo }

// ContainsStop reports whether custNo is on the route.
func (r *Route) ContainsStop(custNo int) bool {
	return r.IndexOfStop(custNo) >= 0
}

// IndexOfStop returns the position of custNo on the route, or -1.
func (r *Route) IndexOfStop(custNo int) int {
	for i, s := range r.stops {
		if s.CustNo == custNo {
			return i
		}
	}
	return -1
}

// neighbors returns the customer numbers adjacent to insertion position
// index, with the depot (0) standing in at the route ends.
func (r *Route) neighbors(index int) (before, after int) {
	if index > 0 {
		before = r.stops[index-1].CustNo
	}
	if index < len(r.stops) {
		after = r.stops[index].CustNo
	}
	return before, after
}

// AddStopAt inserts stop at index (0..=Len). The cost delta is the two new
// edges minus the bypassed edge. No capacity check is made here; the caller
// commits whatever it already confirmed via SpeculativeAdd.
func (r *Route) AddStopAt(stop Stop, index int) {
	r.assertSanity()
	newCost, _ := r.SpeculativeAdd(stop, index)

	r.stops = append(r.stops, Stop{})
	copy(r.stops[index+1:], r.stops[index:])
	r.stops[index] = stop
	r.usedCap += stop.Demand
	r.cost = newCost

	r.assertSanity()
}

// RemoveStopAt removes and returns the stop at index, restoring the bypass
// edge.
func (r *Route) RemoveStopAt(index int) Stop {
	r.assertSanity()
	newCost, _ := r.SpeculativeRemove(index)

	stop := r.stops[index]
	r.stops = append(r.stops[:index], r.stops[index+1:]...)
	r.usedCap -= stop.Demand
	r.cost = newCost

	r.assertSanity()
	return stop
}

// SpeculativeAdd projects the cost the route would have after inserting
// stop at index, and whether the result stays within vehicle capacity.
// O(1): only the two touched edges and the bypass edge are considered.
func (r *Route) SpeculativeAdd(stop Stop, index int) (cost float64, fits bool) {
	before, after := r.neighbors(index)
	cost = r.cost -
		r.inst.Dist[before][after] +
		r.inst.Dist[before][stop.CustNo] +
		r.inst.Dist[stop.CustNo][after]
	fits = r.usedCap+stop.Demand <= r.inst.VehicleCap
	return cost, fits
}

// SpeculativeRemove projects the cost after removing the stop at index.
func (r *Route) SpeculativeRemove(index int) (cost float64, fits bool) {
	stop := r.stops[index]
	before := 0
	if index > 0 {
		before = r.stops[index-1].CustNo
	}
	after := 0
	if index < len(r.stops)-1 {
		after = r.stops[index+1].CustNo
	}
	cost = r.cost -
		r.inst.Dist[before][stop.CustNo] -
		r.inst.Dist[stop.CustNo][after] +
		r.inst.Dist[before][after]
	fits = r.usedCap-stop.Demand <= r.inst.VehicleCap
	return cost, fits
}

// SpeculativeAddBest scans every insertion position and returns the one
// with the lowest resulting cost. An empty route always yields index 0.
func (r *Route) SpeculativeAddBest(stop Stop) (cost float64, fits bool, index int) {
	bestCost, bestFits := r.SpeculativeAdd(stop, 0)
	bestIndex := 0
	for i := 1; i <= len(r.stops); i++ {
		c, f := r.SpeculativeAdd(stop, i)
		if c < bestCost {
			bestCost, bestFits, bestIndex = c, f, i
		}
	}
	return bestCost, bestFits, bestIndex
}

// SpeculativeReplace projects replacing the stop at index with stop.
func (r *Route) SpeculativeReplace(stop Stop, index int) (cost float64, fits bool) {
	old := r.stops[index]
	cost = r.CostIfStopWas(stop, index)
	fits = r.usedCap-old.Demand+stop.Demand <= r.inst.VehicleCap
	return cost, fits
}

// CostIfStopWas is the route cost if the stop at index were newStop
// instead, without mutating. Used by replace-style repair moves.
func (r *Route) CostIfStopWas(newStop Stop, index int) float64 {
	old := r.stops[index]
	before := 0
	if index > 0 {
		before = r.stops[index-1].CustNo
	}
	after := 0
	if index < len(r.stops)-1 {
		after = r.stops[index+1].CustNo
	}
	return r.cost -
		r.inst.Dist[before][old.CustNo] -
		r.inst.Dist[old.CustNo][after] +
		r.inst.Dist[before][newStop.CustNo] +
		r.inst.Dist[newStop.CustNo][after]
}

// RetainStops drops every stop failing keep in a single pass, then
// recomputes cost and capacity from scratch. Multiple stops change at once,
// so this is the one place an O(n) rebuild is allowed.
func (r *Route) RetainStops(keep func(Stop) bool) {
	r.assertSanity()
	kept := r.stops[:0]
	for _, s := range r.stops {
		if keep(s) {
			kept = append(kept, s)
		}
	}
	r.stops = kept
	r.cost = r.recalcCost()
	r.usedCap = r.recalcCapacity()
	r.assertSanity()
}

// CopyFrom makes r a copy of src, reusing r's stop slice allocation.
func (r *Route) CopyFrom(src *Route) {
	r.inst = src.inst
	r.id = src.id
	r.stops = append(r.stops[:0], src.stops...)
	r.cost = src.cost
	r.usedCap = src.usedCap
}

// Clone returns an independent copy preserving the preallocation hint.
func (r *Route) Clone() *Route {
	stops := make([]Stop, len(r.stops), max(cap(r.stops), len(r.stops)))
	copy(stops, r.stops)
	return &Route{
		inst:    r.inst,
		id:      r.id,
		stops:   stops,
		cost:    r.cost,
		usedCap: r.usedCap,
	}
}

func (r *Route) recalcCost() float64 {
	if len(r.stops) == 0 {
		return 0
	}
	cost := r.inst.Dist[0][r.stops[0].CustNo]
	for i := 1; i < len(r.stops); i++ {
		cost += r.inst.Dist[r.stops[i-1].CustNo][r.stops[i].CustNo]
	}
	cost += r.inst.Dist[r.stops[len(r.stops)-1].CustNo][0]
	return cost
}

func (r *Route) recalcCapacity() int {
	sum := 0
	for _, s := range r.stops {
		sum += s.Demand
	}
	return sum
}

// costTolerance bounds the drift allowed between the cached cost and a
// from-scratch recomputation.
const costTolerance = 0.5

// CheckInvariants verifies the cached cost against a recomputation (within
// costTolerance), the cached capacity exactly, and that no customer appears
// twice. It reports implementation bugs, not data problems.
func (r *Route) CheckInvariants() error {
	if got := r.recalcCost(); abs(got-r.cost) >= costTolerance {
		return fmt.Errorf("route %d: cached cost %f, recomputed %f", r.id, r.cost, got)
	}
	if got := r.recalcCapacity(); got != r.usedCap {
		return fmt.Errorf("route %d: cached capacity %d, recomputed %d", r.id, r.usedCap, got)
	}
	seen := make(map[int]struct{}, len(r.stops))
	for _, s := range r.stops {
		if _, dup := seen[s.CustNo]; dup {
			return fmt.Errorf("route %d: duplicate stop %d", r.id, s.CustNo)
		}
		seen[s.CustNo] = struct{}{}
	}
	return nil
}

func (r *Route) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "r%d[", r.id)
	for i, s := range r.stops {
		if i > 0 {
			b.WriteString(" -> ")
		}
		fmt.Fprintf(&b, "%d(%d)", s.CustNo, s.Demand)
	}
	fmt.Fprintf(&b, "--c%d]", r.usedCap)
	return b.String()
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
