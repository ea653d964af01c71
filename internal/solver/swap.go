package solver

import "vrpsolve/internal/vrp"

// swapGain is the minimum cost improvement for a swap to be taken.
const swapGain = 0.01

// GreedySwap exchanges the first improving pair of stops between two
// different routes, if any, and reports whether it changed the solution.
// Local polish between search iterations, not an ALNS operator.
func GreedySwap(sol *vrp.Solution) bool {
	for ri := 0; ri < len(sol.Routes); ri++ {
		for rj := ri + 1; rj < len(sol.Routes); rj++ {
			a, b := sol.Routes[ri], sol.Routes[rj]
			for i := 0; i < a.Len(); i++ {
				for j := 0; j < b.Len(); j++ {
					sa, sb := a.Stop(i), b.Stop(j)
					costA, fitsA := a.SpeculativeReplace(sb, i)
					costB, fitsB := b.SpeculativeReplace(sa, j)
					if !fitsA || !fitsB {
						continue
					}
					if costA+costB < a.Cost()+b.Cost()-swapGain {
						a.RemoveStopAt(i)
						a.AddStopAt(sb, i)
						b.RemoveStopAt(j)
						b.AddStopAt(sa, j)
						return true
					}
				}
			}
		}
	}
	return false
}
