package solver

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"vrpsolve/internal/construct"
	"vrpsolve/internal/vrp"
)

// costEpsilon is the margin below which two solution costs count as equal.
const costEpsilon = 0.1

// revertProb is the chance a non-improving iteration is rolled back.
const revertProb = 0.9

// jumpFromBestForJumpProb picks the local incumbent over the global best
// as the jump baseline.
const jumpFromBestForJumpProb = 0.2

// deadlineStride is how many iterations pass between clock samples.
const deadlineStride = 256

// SolveParams configures one search run. Zero values get defaults from
// Solve; only the instance is mandatory at the call site.
type SolveParams struct {
	// MaxIters caps the iteration count. <=0 means no cap.
	MaxIters int
	// TimeBudget caps wall time. <=0 means no cap. At least one of
	// MaxIters and TimeBudget should be set or Solve runs until ctx ends.
	TimeBudget time.Duration
	// FracDropped is the share of customers a jump drops. Default 0.3.
	FracDropped float64
	// Patience is how many non-improving iterations trigger a jump.
	// Default 20000.
	Patience int
	// Construct builds the starting solution. Default construct.ClarkeWrightThenSweep.
	Construct construct.Cascade
	// Jump perturbs a stagnant solution. Default RandomJump.
	Jump Jumper
	// Initial, when set, is used as the starting solution instead of
	// running Construct. Solve takes ownership of it.
	Initial *vrp.Solution
	// Seed feeds the run's private RNG.
	Seed int64
	// OnImprovement, when set, is called with a snapshot each time the run
	// finds a new best. Called on the solver goroutine; keep it cheap.
	OnImprovement func(best *vrp.Solution, iter int)
}

func (p *SolveParams) defaults() {
	if p.FracDropped <= 0 {
		p.FracDropped = 0.3
	}
	if p.Patience <= 0 {
		p.Patience = 20000
	}
	if p.Construct == nil {
		p.Construct = construct.ClarkeWrightThenSweep
	}
	if p.Jump == nil {
		p.Jump = RandomJump
	}
}

// run holds one search's driver state between iterations.
type run struct {
	params SolveParams
	rng    *rand.Rand
	a      *ALNS
	stats  *Stats

	best     *vrp.Solution
	bestCost float64

	// bestForJump tracks the best since the last jump; jumps restart from
	// it some of the time to keep diversity.
	bestForJump     *vrp.Solution
	bestForJumpCost float64

	old           *vrp.Solution
	lastCost      float64
	sinceImproved int
}

func newRun(inst *vrp.Instance, initial *vrp.Solution, params SolveParams, rng *rand.Rand) *run {
	a := NewALNS(inst, initial, rng)
	best := a.Current().Clone()
	cost := best.Cost()
	return &run{
		params:          params,
		rng:             rng,
		a:               a,
		stats:           a.Stats(),
		best:            best,
		bestCost:        cost,
		bestForJump:     best.Clone(),
		bestForJumpCost: cost,
		old:             a.Current().Clone(),
		lastCost:        cost,
	}
}

// scoreTier classifies a candidate cost: a new global best, an improvement
// over the previous iteration's cost, or neither.
func scoreTier(cost, bestCost, lastCost float64) int {
	switch {
	case cost < bestCost-costEpsilon:
		return scoreNewBest
	case cost < lastCost-costEpsilon:
		return scoreImproved
	default:
		return scoreAccepted
	}
}

// applyOutcome folds a repaired candidate into the run state and reports
// whether the caller must revert the working solution. Exactly one score
// tier is paid per iteration, and the stagnation counter resets on any
// improvement over the previous iteration's cost, not just on new bests.
// lastCost tracks the candidate cost even when the candidate is reverted.
func (r *run) applyOutcome(iter int, cost float64) (revert bool) {
	tier := scoreTier(cost, r.bestCost, r.lastCost)
	r.a.UpdateScores(tier)
	r.stats.onIteration(iter, cost, tier == scoreNewBest)
	switch tier {
	case scoreNewBest:
		r.best.CopyFrom(r.a.Current())
		r.bestCost = cost
		r.sinceImproved = 0
		if r.params.OnImprovement != nil {
			r.params.OnImprovement(r.best.Clone(), iter)
		}
	case scoreImproved:
		r.sinceImproved = 0
	default:
		r.sinceImproved++
		revert = r.rng.Float64() < revertProb
	}
	if !revert && cost < r.bestForJumpCost-costEpsilon {
		r.bestForJump.CopyFrom(r.a.Current())
		r.bestForJumpCost = cost
	}
	r.lastCost = cost
	return revert
}

// jump restarts the search from a baseline and perturbs it.
func (r *run) jump(iter int) error {
	baseline := r.best
	if r.rng.Float64() < jumpFromBestForJumpProb {
		baseline = r.bestForJump
	}
	r.a.JumpTo(baseline)
	if err := r.params.Jump(r.a.Current(), r.params.FracDropped, r.rng); err != nil {
		return fmt.Errorf("iteration %d: %w", iter, err)
	}
	r.stats.onRestart(iter)
	r.lastCost = r.a.Current().Cost()
	r.bestForJump.CopyFrom(r.a.Current())
	r.bestForJumpCost = r.lastCost
	r.sinceImproved = 0
	return nil
}

// Solve runs one adaptive large-neighborhood search and returns the best
// solution found with the run's statistics. The returned solution is valid
// even on error, except when construction itself failed.
func Solve(ctx context.Context, inst *vrp.Instance, params SolveParams) (*vrp.Solution, *Stats, error) {
	params.defaults()
	rng := rand.New(rand.NewSource(params.Seed))

	initial := params.Initial
	if initial == nil {
		var err error
		initial, err = params.Construct(inst, rng)
		if err != nil {
			return nil, nil, fmt.Errorf("constructing initial solution: %w", err)
		}
	}

	r := newRun(inst, initial, params, rng)
	stats := r.stats

	deadline := time.Time{}
	if params.TimeBudget > 0 {
		deadline = time.Now().Add(params.TimeBudget)
	}

	for iter := 0; params.MaxIters <= 0 || iter < params.MaxIters; iter++ {
		// The clock is sampled once per stride; an iteration costs
		// microseconds, so the budget overrun stays negligible.
		if !deadline.IsZero() && iter%deadlineStride == 0 && time.Now().After(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return r.best, stats, ctx.Err()
		default:
		}

		r.old.CopyFrom(r.a.Current())

		removed := r.a.Destroy()
		r.a.UpdateTabu(removed)
		if err := r.a.Repair(removed); err != nil {
			r.a.JumpTo(r.old)
			stats.RepairFailures++
			continue
		}

		if r.applyOutcome(iter, r.a.Current().Cost()) {
			r.a.JumpTo(r.old)
		}

		if (iter+1)%rebalanceEvery == 0 {
			r.a.UpdateWeights()
		}

		if r.sinceImproved >= params.Patience {
			if err := r.jump(iter); err != nil {
				return r.best, stats, err
			}
		}
	}

	stats.DestroyWeights, stats.RepairWeights = r.a.OperatorWeights()
	return r.best, stats, nil
}
