package actorcritic

import (
	"errors"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// minProbability keeps log-probabilities finite for actions the policy has
// all but ruled out.
const minProbability = 1e-12

var ErrEmptyDistribution = errors.New("distribution has no positive weight")

// Sample draws one action index from the categorical distribution dist.
func Sample(dist []float64, src rand.Source) (int, error) {
	idx, ok := sampleuv.NewWeighted(dist, src).Take()
	if !ok {
		return 0, ErrEmptyDistribution
	}
	return idx, nil
}

// LogProbability returns log dist[action].
func LogProbability(dist []float64, action int) float64 {
	return math.Log(math.Max(dist[action], minProbability))
}

// Greedy returns the most probable action.
func Greedy(dist []float64) int {
	best := 0
	for i, p := range dist {
		if p > dist[best] {
			best = i
		}
	}
	return best
}
