package solver

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRebalanceSmoothsTowardScore(t *testing.T) {
	op := newOperator(0)
	op.bumpScore(scoreNewBest)
	op.bumpScore(scoreImproved)
	op.rebalance()

	// weight = (1-lambda)*1.0 + lambda*15, score resets.
	require.InDelta(t, 0.99+0.01*15, op.weight, 1e-9)
	require.Equal(t, 0, op.score)
}

func TestRebalanceFloorsWeight(t *testing.T) {
	op := newOperator(0)
	for i := 0; i < 2000; i++ {
		op.rebalance()
	}
	require.InDelta(t, weightFloor, op.weight, 1e-9)
}

func TestPickOperatorFollowsWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ops := []*operator{newOperator(0), newOperator(1)}
	ops[0].weight = 9
	ops[1].weight = 1

	counts := [2]int{}
	for i := 0; i < 10000; i++ {
		counts[pickOperator(rng, ops)]++
	}
	require.Greater(t, counts[0], 8500)
	require.Less(t, counts[1], 1500)
}
