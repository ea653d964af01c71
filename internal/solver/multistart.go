package solver

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"vrpsolve/internal/construct"
	"vrpsolve/internal/vrp"
)

// WorkerResult is one worker's outcome in a multi-start run.
type WorkerResult struct {
	RunID string
	Best  *vrp.Solution
	Stats *Stats
	Err   error
}

// MultiStartParams configures a parallel multi-start search.
type MultiStartParams struct {
	// Workers is the number of concurrent runs. Default runtime.NumCPU().
	Workers int
	// Base is the per-run configuration. Seed is offset per worker, and a
	// nil Construct gets construct.ForWorker so workers diversify their
	// starting solutions.
	Base SolveParams
	// OnGlobalBest, when set, is invoked with snapshots of new global
	// bests, throttled to at most one call per second plus a final call
	// with the overall winner.
	OnGlobalBest func(runID string, best *vrp.Solution, iter int)
}

// MultiStart runs several independent searches concurrently and returns
// the cheapest solution found along with every worker's result. It fails
// only when all workers fail.
func MultiStart(ctx context.Context, inst *vrp.Instance, params MultiStartParams) (*vrp.Solution, []WorkerResult, error) {
	workers := params.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		mu        sync.Mutex
		bestCost  float64
		haveBest  bool
		publisher = rate.NewLimiter(rate.Every(time.Second), 1)
	)
	onImprove := func(runID string) func(*vrp.Solution, int) {
		return func(sol *vrp.Solution, iter int) {
			cost := sol.Cost()
			mu.Lock()
			improved := !haveBest || cost < bestCost-costEpsilon
			if improved {
				bestCost = cost
				haveBest = true
			}
			mu.Unlock()
			if improved && params.OnGlobalBest != nil && publisher.Allow() {
				params.OnGlobalBest(runID, sol, iter)
			}
		}
	}

	results := make([]WorkerResult, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			runID := uuid.NewString()
			p := params.Base
			p.Seed += int64(w)
			if p.Initial != nil {
				p.Initial = p.Initial.Clone()
			}
			if p.Construct == nil {
				p.Construct = construct.ForWorker(w)
			}
			if params.OnGlobalBest != nil {
				p.OnImprovement = onImprove(runID)
			}
			best, stats, err := Solve(ctx, inst, p)
			results[w] = WorkerResult{RunID: runID, Best: best, Stats: stats, Err: err}
		}(w)
	}
	wg.Wait()

	var winner *WorkerResult
	for i := range results {
		r := &results[i]
		if r.Best == nil {
			continue
		}
		if winner == nil || r.Best.Cost() < winner.Best.Cost() {
			winner = r
		}
	}
	if winner == nil {
		return nil, results, results[0].Err
	}
	if params.OnGlobalBest != nil {
		params.OnGlobalBest(winner.RunID, winner.Best, winner.Stats.Iterations)
	}
	return winner.Best, results, nil
}
