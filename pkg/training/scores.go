package training

import (
	"gonum.org/v1/gonum/stat"
)

// ScoreTracker keeps one agent's episode scores and the best rolling average
// seen so far.
type ScoreTracker struct {
	window  int
	history []float64
	best    float64
}

func NewScoreTracker(window int, initialBest float64) *ScoreTracker {
	if window <= 0 {
		window = 1
	}
	return &ScoreTracker{window: window, best: initialBest}
}

// Add records an episode score and returns the rolling average over the last
// window scores. improved is true when that average beats the best so far, in
// which case it becomes the new best.
func (t *ScoreTracker) Add(score float64) (avg float64, improved bool) {
	t.history = append(t.history, score)
	avg = t.Average()
	if avg > t.best {
		t.best = avg
		improved = true
	}
	return avg, improved
}

// Average returns the mean of the last window scores, 0 with no history
func (t *ScoreTracker) Average() float64 {
	if len(t.history) == 0 {
		return 0
	}
	start := len(t.history) - t.window
	if start < 0 {
		start = 0
	}
	return stat.Mean(t.history[start:], nil)
}

func (t *ScoreTracker) Best() float64 {
	return t.best
}

func (t *ScoreTracker) Len() int {
	return len(t.history)
}

// History returns a copy of all recorded scores
func (t *ScoreTracker) History() []float64 {
	return append([]float64(nil), t.history...)
}
