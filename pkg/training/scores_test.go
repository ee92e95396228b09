package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreTracker_RollingWindow(t *testing.T) {
	tracker := NewScoreTracker(5, 45)
	for _, s := range []float64{10, 20, 30, 40, 50} {
		tracker.Add(s)
	}

	avg, improved := tracker.Add(60)
	assert.Equal(t, 40.0, avg)
	assert.False(t, improved, "40 does not beat 45")
	assert.Equal(t, 45.0, tracker.Best())

	tracker = NewScoreTracker(5, 35)
	for _, s := range []float64{10, 20, 30, 40, 50} {
		tracker.Add(s)
	}
	avg, improved = tracker.Add(60)
	assert.Equal(t, 40.0, avg)
	assert.True(t, improved)
	assert.Equal(t, 40.0, tracker.Best())
}

func TestScoreTracker_ShortHistory(t *testing.T) {
	tracker := NewScoreTracker(5, -1500)
	assert.Zero(t, tracker.Average())

	avg, improved := tracker.Add(-10)
	assert.Equal(t, -10.0, avg)
	assert.True(t, improved)

	avg, improved = tracker.Add(-30)
	assert.Equal(t, -20.0, avg)
	assert.False(t, improved)
	assert.Equal(t, []float64{-10, -30}, tracker.History())
	assert.Equal(t, 2, tracker.Len())
}
