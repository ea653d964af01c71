package vrp

import (
	"fmt"
	"strconv"
	"strings"
)

// Solution is a fixed-length set of routes, one per vehicle (some may be
// empty). A valid solution visits every customer exactly once within
// capacity. It is mutated in place by the search and cloned into best
// snapshots.
type Solution struct {
	inst   *Instance
	Routes []*Route
}

// NewSolution returns a solution of NumVehicles empty routes.
func NewSolution(inst *Instance) *Solution {
	routes := make([]*Route, inst.NumVehicles)
	for i := range routes {
		routes[i] = NewRoute(inst, i)
	}
	return &Solution{inst: inst, Routes: routes}
}

// Cost is the sum of route costs. Routes cache their own cost, so this is
// always computed as a plain sum rather than cached again.
func (s *Solution) Cost() float64 {
	total := 0.0
	for _, r := range s.Routes {
		total += r.cost
	}
	return total
}

// Instance returns the problem this solution belongs to.
func (s *Solution) Instance() *Instance { return s.inst }

// Clone returns an independent deep copy.
func (s *Solution) Clone() *Solution {
	routes := make([]*Route, len(s.Routes))
	for i, r := range s.Routes {
		routes[i] = r.Clone()
	}
	return &Solution{inst: s.inst, Routes: routes}
}

// CopyFrom overwrites s with src, reusing s's route allocations. Both
// solutions must belong to the same instance shape.
func (s *Solution) CopyFrom(src *Solution) {
	if len(s.Routes) != len(src.Routes) {
		panic(fmt.Sprintf("copy between solutions with %d and %d routes", len(s.Routes), len(src.Routes)))
	}
	s.inst = src.inst
	for i, r := range s.Routes {
		r.CopyFrom(src.Routes[i])
	}
}

// Validate checks full coverage (every customer 1..n-1 in exactly one
// route), capacity on every route, and each route's cached invariants.
func (s *Solution) Validate() error {
	owner := make(map[int]int, s.inst.NumCustomers)
	for ri, r := range s.Routes {
		if err := r.CheckInvariants(); err != nil {
			return err
		}
		if r.UsedCapacity() > s.inst.VehicleCap {
			return fmt.Errorf("route %d: capacity %d exceeds vehicle capacity %d", ri, r.UsedCapacity(), s.inst.VehicleCap)
		}
		for _, stop := range r.Stops() {
			if prev, dup := owner[stop.CustNo]; dup {
				return fmt.Errorf("customer %d visited by routes %d and %d", stop.CustNo, prev, ri)
			}
			owner[stop.CustNo] = ri
		}
	}
	for c := 1; c < s.inst.NumCustomers; c++ {
		if _, ok := owner[c]; !ok {
			return fmt.Errorf("customer %d is not visited", c)
		}
	}
	return nil
}

// String renders the single-line solution form: route customer sequences
// concatenated, each framed by depot markers, e.g. "0 3 1 0 0 2 0".
func (s *Solution) String() string {
	parts := make([]string, len(s.Routes))
	for i, r := range s.Routes {
		var b strings.Builder
		b.WriteString("0")
		for _, stop := range r.Stops() {
			fmt.Fprintf(&b, " %d", stop.CustNo)
		}
		b.WriteString(" 0")
		parts[i] = b.String()
	}
	return "0 " + strings.Join(parts, " ")
}

// FileString renders the file form: first line "<cost> 0", then one
// depot-framed route per line.
func (s *Solution) FileString() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v 0\n", s.Cost())
	for _, r := range s.Routes {
		b.WriteString("0")
		for _, stop := range r.Stops() {
			fmt.Fprintf(&b, " %d", stop.CustNo)
		}
		b.WriteString(" 0\n")
	}
	return b.String()
}

// ParseRouteString parses the single-line solution form back into per-route
// customer sequences, dropping empty routes. The leading token is the
// depot marker and is skipped, matching String above.
func ParseRouteString(s string) ([][]int, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty solution string")
	}
	var routes [][]int
	var route []int
	for i, f := range fields {
		custNo, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("token %d %q: %w", i, f, err)
		}
		if i == 0 {
			if custNo != 0 {
				return nil, fmt.Errorf("solution string must start with the depot marker, got %q", f)
			}
			continue
		}
		if custNo == 0 {
			if len(route) > 0 {
				routes = append(routes, route)
				route = nil
			}
			continue
		}
		route = append(route, custNo)
	}
	if len(route) > 0 {
		routes = append(routes, route)
	}
	return routes, nil
}

// ParseSolution rebuilds a Solution from serialized route form (either the
// single-line String form or FileString's route lines). Parsed routes are
// assigned to vehicles in order; the instance must have enough vehicles.
func ParseSolution(inst *Instance, s string) (*Solution, error) {
	parsed, err := ParseRouteString(s)
	if err != nil {
		return nil, err
	}
	if len(parsed) > inst.NumVehicles {
		return nil, fmt.Errorf("%d routes for %d vehicles", len(parsed), inst.NumVehicles)
	}
	sol := NewSolution(inst)
	for ri, route := range parsed {
		for i, custNo := range route {
			if custNo < 1 || custNo >= inst.NumCustomers {
				return nil, fmt.Errorf("route %d: customer %d out of range", ri, custNo)
			}
			sol.Routes[ri].AddStopAt(Stop{CustNo: custNo, Demand: inst.Demand[custNo]}, i)
		}
	}
	return sol, nil
}

// RouteCost recomputes one parsed route's round-trip cost from the distance
// matrix, independent of any cached state.
func RouteCost(inst *Instance, route []int) float64 {
	if len(route) == 0 {
		return 0
	}
	cost := inst.Dist[0][route[0]]
	for i := 1; i < len(route); i++ {
		cost += inst.Dist[route[i-1]][route[i]]
	}
	cost += inst.Dist[route[len(route)-1]][0]
	return cost
}

// CheckRouteString re-validates a serialized solution against the raw
// instance: coverage, per-route capacity, and total cost within tol of
// wantCost. This is the independent check used by the checker utility.
func CheckRouteString(inst *Instance, s string, wantCost, tol float64) error {
	routes, err := ParseRouteString(s)
	if err != nil {
		return err
	}
	seen := make(map[int]struct{}, inst.NumCustomers)
	total := 0.0
	for ri, route := range routes {
		demand := 0
		for _, c := range route {
			if c < 1 || c >= inst.NumCustomers {
				return fmt.Errorf("route %d: customer %d out of range", ri, c)
			}
			if _, dup := seen[c]; dup {
				return fmt.Errorf("customer %d visited more than once", c)
			}
			seen[c] = struct{}{}
			demand += inst.Demand[c]
		}
		if demand > inst.VehicleCap {
			return fmt.Errorf("route %d: demand %d exceeds capacity %d", ri, demand, inst.VehicleCap)
		}
		total += RouteCost(inst, route)
	}
	for c := 1; c < inst.NumCustomers; c++ {
		if _, ok := seen[c]; !ok {
			return fmt.Errorf("customer %d is not visited", c)
		}
	}
	if abs(total-wantCost) > tol {
		return fmt.Errorf("recomputed cost %.4f differs from reported %.4f", total, wantCost)
	}
	return nil
}
