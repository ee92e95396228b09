package training

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Result is the score history of a training session
type Result struct {
	SessionID string        `json:"session_id"`
	Players   [2]string     `json:"players"`
	Episodes  int           `json:"episodes"`
	Window    int           `json:"window"`
	Scores    [2][]float64  `json:"scores"`
	Best      [2]float64    `json:"best"`
	Wins      [2]int        `json:"wins"`
	Draws     int           `json:"draws"`
	Truncated int           `json:"truncated"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Save writes the result as JSON to path
func (r *Result) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

// LoadResult reads a result written by Save
func LoadResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result: %w", err)
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode result %s: %w", path, err)
	}
	return &r, nil
}

// RollingMean returns the mean of each window of scores ending at every
// episode, matching the checkpoint criterion.
func RollingMean(scores []float64, window int) []float64 {
	tracker := NewScoreTracker(window, 0)
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i], _ = tracker.Add(s)
	}
	return out
}
