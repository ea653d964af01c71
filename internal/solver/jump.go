package solver

import (
	"errors"
	"math/rand"
	"sort"

	"vrpsolve/internal/vrp"
)

// ErrJumpFailed reports that no feasible perturbed solution could be built
// after the retry budget. The driver treats it as fatal for the run.
var ErrJumpFailed = errors.New("solver: could not build a feasible jump solution")

const jumpAttempts = 5

// Jumper perturbs a solution in place to escape a stagnant region. The
// default is RandomJump.
type Jumper func(sol *vrp.Solution, fracDropped float64, rng *rand.Rand) error

// RandomJump drops a random fraction of customers and greedily reinserts
// them, retrying on infeasibility up to a fixed budget.
func RandomJump(sol *vrp.Solution, fracDropped float64, rng *rand.Rand) error {
	snapshot := sol.Clone()
	for attempt := 0; attempt < jumpAttempts; attempt++ {
		if randomDrop(sol, fracDropped, rng) == nil {
			return nil
		}
		sol.CopyFrom(snapshot)
	}
	return ErrJumpFailed
}

// randomDrop removes a random fracDropped share of all customers, shuffles
// the route order, and reinserts the dropped customers by descending demand
// into the first route with capacity, each at its cheapest position. Fails
// when some customer fits nowhere.
func randomDrop(sol *vrp.Solution, fracDropped float64, rng *rand.Rand) error {
	inst := sol.Instance()

	custNos := allCustomers(inst)
	rng.Shuffle(len(custNos), func(i, j int) { custNos[i], custNos[j] = custNos[j], custNos[i] })
	nDrop := int(fracDropped * float64(len(custNos)))
	dropped := custNos[:nDrop]
	kept := custNos[nDrop:]

	keep := make(map[int]bool, len(kept))
	for _, c := range kept {
		keep[c] = true
	}
	for _, route := range sol.Routes {
		route.RetainStops(func(s vrp.Stop) bool { return keep[s.CustNo] })
	}

	rng.Shuffle(len(sol.Routes), func(i, j int) {
		sol.Routes[i], sol.Routes[j] = sol.Routes[j], sol.Routes[i]
	})

	sort.Slice(dropped, func(i, j int) bool {
		return inst.Demand[dropped[i]] > inst.Demand[dropped[j]]
	})
	for _, custNo := range dropped {
		stop := vrp.Stop{CustNo: custNo, Demand: inst.Demand[custNo]}
		placed := false
		for _, route := range sol.Routes {
			_, fits, index := route.SpeculativeAddBest(stop)
			if fits {
				route.AddStopAt(stop, index)
				placed = true
				break
			}
		}
		if !placed {
			return ErrNoPlacement
		}
	}
	return nil
}
