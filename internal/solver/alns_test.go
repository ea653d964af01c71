package solver

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"vrpsolve/internal/construct"
	"vrpsolve/internal/vrp"
)

func gridInstance(t *testing.T, customers, vehicles, capacity int) *vrp.Instance {
	t.Helper()
	n := customers + 1
	inst := &vrp.Instance{
		NumCustomers: n,
		NumVehicles:  vehicles,
		VehicleCap:   capacity,
		Demand:       make([]int, n),
		X:            make([]float64, n),
		Y:            make([]float64, n),
	}
	for c := 1; c < n; c++ {
		inst.Demand[c] = 1 + c%3
		inst.X[c] = float64(c % 7)
		inst.Y[c] = float64(c / 7)
	}
	inst.Dist = make([][]float64, n)
	for i := range inst.Dist {
		inst.Dist[i] = make([]float64, n)
		for j := range inst.Dist[i] {
			inst.Dist[i][j] = math.Hypot(inst.X[i]-inst.X[j], inst.Y[i]-inst.Y[j])
		}
	}
	inst.MaxRouteLen = customers
	return inst
}

func startedALNS(t *testing.T, seed int64) *ALNS {
	t.Helper()
	inst := gridInstance(t, 30, 8, 12)
	rng := rand.New(rand.NewSource(seed))
	sol, err := construct.Greedy(inst)
	require.NoError(t, err)
	return NewALNS(inst, sol, rng)
}

func TestDestroyRepairKeepsSolutionValid(t *testing.T) {
	a := startedALNS(t, 1)
	for i := 0; i < 500; i++ {
		snapshot := a.Current().Clone()
		removed := a.Destroy()
		require.Len(t, removed, destroyCount)
		a.UpdateTabu(removed)
		if err := a.Repair(removed); err != nil {
			a.JumpTo(snapshot)
			continue
		}
		require.NoError(t, a.Current().Validate())
	}
}

func TestDestroyedStopsLeaveTheSolution(t *testing.T) {
	a := startedALNS(t, 2)
	removed := a.Destroy()
	for _, rm := range removed {
		for _, route := range a.Current().Routes {
			require.False(t, route.ContainsStop(rm.Stop.CustNo),
				"customer %d still routed after destroy", rm.Stop.CustNo)
		}
	}
	require.NoError(t, a.Repair(removed))
	require.NoError(t, a.Current().Validate())
}

func TestTabuPoolStaysAPartition(t *testing.T) {
	a := startedALNS(t, 3)
	bound := a.inst.NumCustomers / 10
	for i := 0; i < 200; i++ {
		snapshot := a.Current().Clone()
		removed := a.Destroy()
		a.UpdateTabu(removed)
		require.NoError(t, a.tabuInvariant())
		require.LessOrEqual(t, len(a.stopTabu), bound)
		if a.Repair(removed) != nil {
			a.JumpTo(snapshot)
			require.NoError(t, a.tabuInvariant())
			require.Empty(t, a.stopTabu)
		}
	}
}

func TestTabuCustomersNotRemovedAgain(t *testing.T) {
	a := startedALNS(t, 4)
	removed := a.Destroy()
	a.UpdateTabu(removed)
	require.NoError(t, a.Repair(removed))

	tabu := map[int]bool{}
	for _, c := range a.stopTabu {
		tabu[c] = true
	}
	again := a.Destroy()
	for _, rm := range again {
		require.False(t, tabu[rm.Stop.CustNo],
			"customer %d removed while tabu", rm.Stop.CustNo)
	}
}

func TestShawRemovesSimilarCluster(t *testing.T) {
	// Two far-apart clusters of equal demand. Shaw removal from one seed
	// must stay within the seed's cluster.
	inst := parseSolverTest(t, 4, 10,
		[]int{0, 1, 1, 1, 1, 1, 1},
		[]float64{0, 1, 2, 3, 101, 102, 103},
		[]float64{0, 0, 0, 0, 0, 0, 0},
	)
	rng := rand.New(rand.NewSource(5))
	sol, err := construct.Greedy(inst)
	require.NoError(t, err)
	a := NewALNS(inst, sol, rng)

	removed := a.removeNShaw(3)
	require.Len(t, removed, 3)
	left := removed[0].Stop.CustNo <= 3
	for _, rm := range removed {
		require.Equal(t, left, rm.Stop.CustNo <= 3,
			"shaw removal crossed clusters: %v", removed)
	}
}

func TestRegretPrefersConstrainedStops(t *testing.T) {
	a := startedALNS(t, 6)
	stop := vrp.Stop{CustNo: 1, Demand: a.inst.Demand[1]}

	// With many routes open the regret is finite; with a single empty
	// route there is only one insertion position and it becomes infinite.
	require.False(t, math.IsInf(a.regretK(stop, 2), 1))

	inst := parseSolverTest(t, 1, 10,
		[]int{0, 5},
		[]float64{0, 1},
		[]float64{0, 0},
	)
	one := NewALNS(inst, vrp.NewSolution(inst), rand.New(rand.NewSource(0)))
	require.True(t, math.IsInf(one.regretK(vrp.Stop{CustNo: 1, Demand: 5}, 2), 1))
}

func TestRepairFailsWhenNothingFits(t *testing.T) {
	inst := parseSolverTest(t, 1, 5,
		[]int{0, 3, 3},
		[]float64{0, 1, 2},
		[]float64{0, 0, 0},
	)
	sol := vrp.NewSolution(inst)
	sol.Routes[0].AddStopAt(vrp.Stop{CustNo: 2, Demand: 3}, 0)
	a := NewALNS(inst, sol, rand.New(rand.NewSource(0)))

	_, err := a.reinsertBest(vrp.Stop{CustNo: 1, Demand: 3})
	require.ErrorIs(t, err, ErrNoPlacement)
}

func TestRandomRemovalThenBestInsertionRestoresCost(t *testing.T) {
	// Two customers, one vehicle: removing both and reinserting at the best
	// positions must land back on the round trip's cost.
	inst := parseSolverTest(t, 1, 10,
		[]int{0, 1, 1},
		[]float64{0, 10, 0},
		[]float64{0, 0, 10},
	)
	sol, err := construct.Greedy(inst)
	require.NoError(t, err)
	before := sol.Cost()

	a := NewALNS(inst, sol, rand.New(rand.NewSource(9)))
	removed := a.removeNRandom(2)
	require.Len(t, removed, 2)
	_, err = a.reinsertBestSpots(removed)
	require.NoError(t, err)
	require.NoError(t, a.Current().Validate())
	require.InDelta(t, before, a.Current().Cost(), 1e-9)
}

func TestDestroySkipsWhenNoEligibleCustomers(t *testing.T) {
	inst := parseSolverTest(t, 1, 10, []int{0}, []float64{0}, []float64{0})
	a := NewALNS(inst, vrp.NewSolution(inst), rand.New(rand.NewSource(0)))
	for i := 0; i < 3; i++ {
		removed := a.Destroy()
		require.Empty(t, removed)
		a.UpdateTabu(removed)
		require.NoError(t, a.Repair(removed))
	}
	require.Zero(t, a.Current().Cost())
}

func TestSolveDepotOnlyInstance(t *testing.T) {
	inst := parseSolverTest(t, 1, 10, []int{0}, []float64{0}, []float64{0})
	best, stats, err := Solve(context.Background(), inst, SolveParams{MaxIters: 50, Seed: 1})
	require.NoError(t, err)
	require.NoError(t, best.Validate())
	require.Zero(t, best.Cost())
	require.Equal(t, 50, stats.Iterations)
}

func TestJumpToResetsTabu(t *testing.T) {
	a := startedALNS(t, 7)
	snapshot := a.Current().Clone()
	removed := a.Destroy()
	a.UpdateTabu(removed)
	require.NotEmpty(t, a.stopTabu)

	a.JumpTo(snapshot)
	require.Empty(t, a.stopTabu)
	require.Len(t, a.stopNotTabu, a.inst.NumCustomers-1)
	require.InDelta(t, snapshot.Cost(), a.Current().Cost(), 1e-9)
}

func parseSolverTest(t *testing.T, vehicles, capacity int, demand []int, x, y []float64) *vrp.Instance {
	t.Helper()
	n := len(demand)
	inst := &vrp.Instance{
		NumCustomers: n,
		NumVehicles:  vehicles,
		VehicleCap:   capacity,
		Demand:       demand,
		X:            x,
		Y:            y,
	}
	inst.Dist = make([][]float64, n)
	for i := range inst.Dist {
		inst.Dist[i] = make([]float64, n)
		for j := range inst.Dist[i] {
			inst.Dist[i][j] = math.Hypot(x[i]-x[j], y[i]-y[j])
		}
	}
	inst.MaxRouteLen = n - 1
	return inst
}
