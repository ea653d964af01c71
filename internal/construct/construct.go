// Package construct builds feasible initial solutions for the search
// engine. Individual constructors can fail on tight instances; the cascades
// retry and fall back so callers always get a complete solution unless the
// instance itself is unsolvable.
package construct

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"vrpsolve/internal/vrp"
)

// ErrInfeasible reports that a constructor could not place every customer
// within the vehicle count. Recoverable: retry or switch strategy.
var ErrInfeasible = errors.New("construct: no feasible assignment")

// Cascade is a composed construction strategy. The solver driver only ever
// sees cascades; an error from one means the instance cannot satisfy its
// vehicle fleet at all.
type Cascade func(inst *vrp.Instance, rng *rand.Rand) (*vrp.Solution, error)

// Greedy assigns customers in descending demand order to the first vehicle
// with room. With an unconstrained route count this only fails when total
// capacity is hard-insufficient, which is a configuration error rather than
// bad luck.
func Greedy(inst *vrp.Instance) (*vrp.Solution, error) {
	order := customerNumbers(inst)
	sort.SliceStable(order, func(a, b int) bool {
		return inst.Demand[order[a]] > inst.Demand[order[b]]
	})
	sol := vrp.NewSolution(inst)
	if err := firstFit(inst, sol, order); err != nil {
		return nil, fmt.Errorf("greedy: instance capacity is insufficient: %w", err)
	}
	return sol, nil
}

// Sweep sorts customers by polar angle around the depot, applies a random
// cyclic rotation, and first-fits them in angular order.
func Sweep(inst *vrp.Instance, rng *rand.Rand) (*vrp.Solution, error) {
	order := customerNumbers(inst)
	if len(order) == 0 {
		return vrp.NewSolution(inst), nil
	}
	sort.SliceStable(order, func(a, b int) bool {
		return polarAngle(inst, order[a]) < polarAngle(inst, order[b])
	})
	rotate(order, rng.Intn(len(order)))

	sol := vrp.NewSolution(inst)
	if err := firstFit(inst, sol, order); err != nil {
		return nil, err
	}
	return sol, nil
}

// CheapestInsertion visits customers in random order and inserts each at
// the globally cheapest feasible position.
func CheapestInsertion(inst *vrp.Instance, rng *rand.Rand) (*vrp.Solution, error) {
	order := customerNumbers(inst)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	sol := vrp.NewSolution(inst)
	for _, custNo := range order {
		stop := vrp.Stop{CustNo: custNo, Demand: inst.Demand[custNo]}
		bestDelta := math.Inf(1)
		bestRoute, bestIndex := -1, -1
		for ri, route := range sol.Routes {
			cost, fits, index := route.SpeculativeAddBest(stop)
			if delta := cost - route.Cost(); fits && delta < bestDelta {
				bestDelta, bestRoute, bestIndex = delta, ri, index
			}
		}
		if bestRoute < 0 {
			return nil, fmt.Errorf("cheapest insertion: customer %d: %w", custNo, ErrInfeasible)
		}
		sol.Routes[bestRoute].AddStopAt(stop, bestIndex)
	}
	return sol, nil
}

// ClarkeWright runs the randomized savings merge: one singleton route per
// customer, then tail-to-head merges in order of perturbed savings
// dist(i,0)+dist(0,j)-dist(i,j) + Normal(1,1), stopping once the route
// count reaches the fleet size. The noise diversifies repeated attempts.
func ClarkeWright(inst *vrp.Instance, rng *rand.Rand) (*vrp.Solution, error) {
	n := inst.NumCustomers
	routes := make([]*vrp.Route, 0, n-1)
	for custNo := 1; custNo < n; custNo++ {
		r := vrp.NewRoute(inst, custNo)
		r.AddStopAt(vrp.Stop{CustNo: custNo, Demand: inst.Demand[custNo]}, 0)
		routes = append(routes, r)
	}

	type saving struct {
		i, j int
		s    float64
	}
	savings := make([]saving, 0, (n-1)*(n-2)/2)
	for i := 1; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := inst.Dist[i][0] + inst.Dist[0][j] - inst.Dist[i][j]
			savings = append(savings, saving{i, j, s + 1.0 + rng.NormFloat64()})
		}
	}
	sort.Slice(savings, func(a, b int) bool { return savings[a].s > savings[b].s })

	for _, sv := range savings {
		if len(routes) <= inst.NumVehicles {
			break
		}
		ri := routeContaining(routes, sv.i)
		rj := routeContaining(routes, sv.j)
		if ri < 0 || rj < 0 || ri == rj {
			continue
		}
		// tail-to-head joins only: the merged route keeps both interior
		// orders intact.
		if routes[ri].Last() == sv.i && routes[rj].First() == sv.j {
			routes = tryMerge(inst, routes, ri, rj)
		} else if routes[rj].Last() == sv.j && routes[ri].First() == sv.i {
			routes = tryMerge(inst, routes, rj, ri)
		}
	}
	if len(routes) > inst.NumVehicles {
		return nil, fmt.Errorf("clarke-wright: %d routes for %d vehicles: %w", len(routes), inst.NumVehicles, ErrInfeasible)
	}

	sol := vrp.NewSolution(inst)
	for i, r := range routes {
		for _, stop := range r.Stops() {
			sol.Routes[i].AddStopAt(stop, sol.Routes[i].Len())
		}
	}
	return sol, nil
}

// tryMerge appends tail's stops onto head when capacity allows, returning
// the updated route set.
func tryMerge(inst *vrp.Instance, routes []*vrp.Route, head, tail int) []*vrp.Route {
	if routes[head].UsedCapacity()+routes[tail].UsedCapacity() > inst.VehicleCap {
		return routes
	}
	h, t := routes[head], routes[tail]
	for _, stop := range t.Stops() {
		h.AddStopAt(stop, h.Len())
	}
	// swap-remove the emptied tail
	routes[tail] = routes[len(routes)-1]
	return routes[:len(routes)-1]
}

// ClarkeWrightThenSweep tries Clarke-Wright up to 5 times (the savings
// noise makes retries worthwhile), then Sweep up to 50 times, then falls
// back to Greedy, which only fails on unsolvable instances.
func ClarkeWrightThenSweep(inst *vrp.Instance, rng *rand.Rand) (*vrp.Solution, error) {
	for attempt := 0; attempt < 5; attempt++ {
		if sol, err := ClarkeWright(inst, rng); err == nil {
			return sol, nil
		}
	}
	for attempt := 0; attempt < 50; attempt++ {
		if sol, err := Sweep(inst, rng); err == nil {
			return sol, nil
		}
	}
	return Greedy(inst)
}

// SweepThenClarkeWright is the mirrored cascade.
func SweepThenClarkeWright(inst *vrp.Instance, rng *rand.Rand) (*vrp.Solution, error) {
	for attempt := 0; attempt < 50; attempt++ {
		if sol, err := Sweep(inst, rng); err == nil {
			return sol, nil
		}
	}
	for attempt := 0; attempt < 5; attempt++ {
		if sol, err := ClarkeWright(inst, rng); err == nil {
			return sol, nil
		}
	}
	return Greedy(inst)
}

// cascades is the closed registry of named construction strategies.
var cascades = map[string]Cascade{
	"cw-sweep": ClarkeWrightThenSweep,
	"sweep-cw": SweepThenClarkeWright,
}

// ByName resolves a cascade by its registry name.
func ByName(name string) (Cascade, error) {
	c, ok := cascades[name]
	if !ok {
		return nil, fmt.Errorf("unknown constructor %q (have cw-sweep, sweep-cw)", name)
	}
	return c, nil
}

// ForWorker picks the cascade for a multi-start worker index: every third
// worker sweeps first, the rest lead with Clarke-Wright.
func ForWorker(i int) Cascade {
	if i%3 == 0 {
		return SweepThenClarkeWright
	}
	return ClarkeWrightThenSweep
}

func routeContaining(routes []*vrp.Route, custNo int) int {
	for i, r := range routes {
		if r.ContainsStop(custNo) {
			return i
		}
	}
	return -1
}

func customerNumbers(inst *vrp.Instance) []int {
	order := make([]int, 0, inst.NumCustomers-1)
	for c := 1; c < inst.NumCustomers; c++ {
		order = append(order, c)
	}
	return order
}

// firstFit assigns each customer in order to the first route with room.
func firstFit(inst *vrp.Instance, sol *vrp.Solution, order []int) error {
	for _, custNo := range order {
		demand := inst.Demand[custNo]
		placed := false
		for _, route := range sol.Routes {
			if route.UsedCapacity()+demand <= inst.VehicleCap {
				route.AddStopAt(vrp.Stop{CustNo: custNo, Demand: demand}, route.Len())
				placed = true
				break
			}
		}
		if !placed {
			return fmt.Errorf("customer %d (demand %d): %w", custNo, demand, ErrInfeasible)
		}
	}
	return nil
}

func polarAngle(inst *vrp.Instance, custNo int) float64 {
	return math.Atan2(inst.Y[0]-inst.Y[custNo], inst.X[0]-inst.X[custNo])
}

func rotate(s []int, k int) {
	if len(s) == 0 || k == 0 {
		return
	}
	k %= len(s)
	out := append(append(make([]int, 0, len(s)), s[k:]...), s[:k]...)
	copy(s, out)
}
