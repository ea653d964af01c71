package vrp

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// squareInstance: depot at origin, four customers on a unit-ish square.
func squareInstance(t *testing.T) *Instance {
	t.Helper()
	return testInstance(t, 2, 10,
		[]int{0, 2, 3, 1, 4},
		[]float64{0, 10, 10, 0, 5},
		[]float64{0, 0, 10, 10, 5},
	)
}

func TestAddRemoveIncrementalCost(t *testing.T) {
	inst := squareInstance(t)
	r := NewRoute(inst, 0)

	r.AddStopAt(Stop{CustNo: 1, Demand: 2}, 0)
	require.InDelta(t, 2*inst.Distance(0, 1), r.Cost(), 1e-9)
	require.Equal(t, 2, r.UsedCapacity())

	r.AddStopAt(Stop{CustNo: 2, Demand: 3}, 1)
	r.AddStopAt(Stop{CustNo: 3, Demand: 1}, 2)
	require.NoError(t, r.CheckInvariants())
	require.Equal(t, 6, r.UsedCapacity())

	// prepend
	r.AddStopAt(Stop{CustNo: 4, Demand: 4}, 0)
	require.NoError(t, r.CheckInvariants())
	require.Equal(t, []int{4, 1, 2, 3}, custNos(r))

	got := r.RemoveStopAt(1)
	require.Equal(t, 1, got.CustNo)
	require.NoError(t, r.CheckInvariants())
	require.Equal(t, 8, r.UsedCapacity())
}

func TestRemoveOnlyStopRestoresZeroCost(t *testing.T) {
	inst := squareInstance(t)
	r := NewRoute(inst, 0)
	r.AddStopAt(Stop{CustNo: 2, Demand: 3}, 0)
	r.RemoveStopAt(0)
	require.Zero(t, r.Cost())
	require.Zero(t, r.UsedCapacity())
	require.True(t, r.Empty())
}

func TestSpeculativeQueriesAreIdempotent(t *testing.T) {
	inst := squareInstance(t)
	r := NewRoute(inst, 0)
	r.AddStopAt(Stop{CustNo: 1, Demand: 2}, 0)
	r.AddStopAt(Stop{CustNo: 2, Demand: 3}, 1)

	costBefore, capBefore := r.Cost(), r.UsedCapacity()
	for i := 0; i < 10; i++ {
		r.SpeculativeAdd(Stop{CustNo: 3, Demand: 1}, 1)
		r.SpeculativeRemove(0)
		r.SpeculativeAddBest(Stop{CustNo: 4, Demand: 4})
	}
	require.Equal(t, costBefore, r.Cost())
	require.Equal(t, capBefore, r.UsedCapacity())
}

func TestSpeculativeAddMatchesCommit(t *testing.T) {
	inst := squareInstance(t)
	r := NewRoute(inst, 0)
	r.AddStopAt(Stop{CustNo: 1, Demand: 2}, 0)
	r.AddStopAt(Stop{CustNo: 3, Demand: 1}, 1)

	for index := 0; index <= r.Len(); index++ {
		want, _ := r.SpeculativeAdd(Stop{CustNo: 2, Demand: 3}, index)
		clone := r.Clone()
		clone.AddStopAt(Stop{CustNo: 2, Demand: 3}, index)
		require.InDelta(t, want, clone.Cost(), 1e-9, "index %d", index)
	}
}

func TestSpeculativeAddCapacity(t *testing.T) {
	inst := squareInstance(t)
	r := NewRoute(inst, 0)
	r.AddStopAt(Stop{CustNo: 4, Demand: 4}, 0)

	_, fits := r.SpeculativeAdd(Stop{CustNo: 2, Demand: 3}, 0)
	require.True(t, fits)
	_, fits = r.SpeculativeAdd(Stop{CustNo: 1, Demand: 7}, 1)
	require.False(t, fits)
}

func TestSpeculativeAddBestEmptyRoute(t *testing.T) {
	inst := squareInstance(t)
	r := NewRoute(inst, 0)
	cost, fits, index := r.SpeculativeAddBest(Stop{CustNo: 3, Demand: 1})
	require.Zero(t, index)
	require.True(t, fits)
	require.InDelta(t, 2*inst.Distance(0, 3), cost, 1e-9)
}

func TestSpeculativeAddBestPicksCheapest(t *testing.T) {
	inst := squareInstance(t)
	r := NewRoute(inst, 0)
	r.AddStopAt(Stop{CustNo: 1, Demand: 2}, 0) // (10,0)
	r.AddStopAt(Stop{CustNo: 2, Demand: 3}, 1) // (10,10)

	// customer 4 at (5,5) is cheapest between 1 and 2 or at the ends; scan
	// every position and trust the route to agree with the brute force.
	wantCost := math.Inf(1)
	wantIndex := -1
	for i := 0; i <= r.Len(); i++ {
		if c, _ := r.SpeculativeAdd(Stop{CustNo: 4, Demand: 4}, i); c < wantCost {
			wantCost, wantIndex = c, i
		}
	}
	cost, _, index := r.SpeculativeAddBest(Stop{CustNo: 4, Demand: 4})
	require.Equal(t, wantIndex, index)
	require.InDelta(t, wantCost, cost, 1e-9)
}

func TestCostIfStopWas(t *testing.T) {
	inst := squareInstance(t)
	r := NewRoute(inst, 0)
	r.AddStopAt(Stop{CustNo: 1, Demand: 2}, 0)
	r.AddStopAt(Stop{CustNo: 2, Demand: 3}, 1)

	got := r.CostIfStopWas(Stop{CustNo: 3, Demand: 1}, 1)

	clone := r.Clone()
	clone.RemoveStopAt(1)
	clone.AddStopAt(Stop{CustNo: 3, Demand: 1}, 1)
	require.InDelta(t, clone.Cost(), got, 1e-9)
	// original untouched
	require.Equal(t, []int{1, 2}, custNos(r))
}

func TestRetainStops(t *testing.T) {
	inst := squareInstance(t)
	r := NewRoute(inst, 0)
	for i, c := range []int{1, 2, 3, 4} {
		r.AddStopAt(Stop{CustNo: c, Demand: inst.Demand[c]}, i)
	}
	r.RetainStops(func(s Stop) bool { return s.CustNo%2 == 1 })
	require.Equal(t, []int{1, 3}, custNos(r))
	require.NoError(t, r.CheckInvariants())
}

func TestRandomMutationSequenceKeepsInvariants(t *testing.T) {
	inst := squareInstance(t)
	rng := rand.New(rand.NewSource(7))
	r := NewRoute(inst, 0)
	present := map[int]bool{}

	for i := 0; i < 2000; i++ {
		if r.Len() > 0 && rng.Intn(2) == 0 {
			s := r.RemoveStopAt(rng.Intn(r.Len()))
			present[s.CustNo] = false
		} else {
			c := 1 + rng.Intn(4)
			if present[c] {
				continue
			}
			r.AddStopAt(Stop{CustNo: c, Demand: inst.Demand[c]}, rng.Intn(r.Len()+1))
			present[c] = true
		}
		require.NoError(t, r.CheckInvariants())
	}
}

func TestCopyFromReusesState(t *testing.T) {
	inst := squareInstance(t)
	src := NewRoute(inst, 3)
	src.AddStopAt(Stop{CustNo: 1, Demand: 2}, 0)
	src.AddStopAt(Stop{CustNo: 4, Demand: 4}, 1)

	dst := NewRoute(inst, 0)
	dst.AddStopAt(Stop{CustNo: 2, Demand: 3}, 0)
	dst.CopyFrom(src)

	require.Equal(t, custNos(src), custNos(dst))
	require.Equal(t, src.Cost(), dst.Cost())
	require.Equal(t, src.UsedCapacity(), dst.UsedCapacity())

	// divergence after copy: dst mutations don't leak into src
	dst.RemoveStopAt(0)
	require.Equal(t, []int{1, 4}, custNos(src))
	require.NoError(t, src.CheckInvariants())
}

func TestFirstLast(t *testing.T) {
	inst := squareInstance(t)
	r := NewRoute(inst, 0)
	r.AddStopAt(Stop{CustNo: 2, Demand: 3}, 0)
	r.AddStopAt(Stop{CustNo: 3, Demand: 1}, 1)
	require.Equal(t, 2, r.First())
	require.Equal(t, 3, r.Last())
}

func custNos(r *Route) []int {
	out := make([]int, 0, r.Len())
	for _, s := range r.Stops() {
		out = append(out, s.CustNo)
	}
	return out
}
