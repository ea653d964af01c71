package solver

import "math/rand"

// Score tiers credited by the driver after each iteration. Mutually
// exclusive: an iteration earns exactly one of them.
const (
	scoreNewBest  = 10
	scoreImproved = 5
	scoreAccepted = 1
)

const (
	// weightLambda is the exponential-smoothing rate for the periodic
	// weight update; rebalanceEvery is its period in iterations.
	weightLambda   = 0.01
	rebalanceEvery = 1000

	// weightFloor keeps a losing operator selectable. Unbounded decay
	// would lock an arm out permanently once its weight underflows.
	weightFloor = 0.05
)

// operator is one destroy or repair arm of the adaptive selector.
type operator struct {
	id     int
	score  int
	weight float64
	usage  int
}

func newOperator(id int) *operator {
	return &operator{id: id, weight: 1.0}
}

func (o *operator) bumpScore(delta int) {
	o.score += delta
	o.usage++
}

// rebalance folds the accumulated score into the weight by exponential
// smoothing, clamps to the floor, and resets the score window.
func (o *operator) rebalance() {
	o.weight = (1.0-weightLambda)*o.weight + weightLambda*float64(o.score)
	if o.weight < weightFloor {
		o.weight = weightFloor
	}
	o.score = 0
}

// pickOperator spins a roulette wheel over the arms' weights.
func pickOperator(rng *rand.Rand, ops []*operator) int {
	sum := 0.0
	for _, o := range ops {
		sum += o.weight
	}
	if sum <= 0 {
		return 0
	}
	r := rng.Float64() * sum
	acc := 0.0
	for i, o := range ops {
		acc += o.weight
		if r <= acc {
			return i
		}
	}
	return len(ops) - 1
}
