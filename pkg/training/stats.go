package training

import (
	"fmt"
	"io"
	"time"
)

// Stats tracks metrics during training
type Stats struct {
	Episodes   int
	Wins       [2]int
	Draws      int
	TotalSteps int
	Truncated  int
	Illegal    [2]int
	StartTime  time.Time

	lastReport  time.Time
	lastEpisode int
}

func newStats() *Stats {
	now := time.Now()
	return &Stats{StartTime: now, lastReport: now}
}

func (s *Stats) record(summary EpisodeSummary) {
	s.Episodes++
	s.TotalSteps += summary.Steps
	s.Illegal[0] += summary.Illegal[0]
	s.Illegal[1] += summary.Illegal[1]
	switch {
	case summary.Truncated:
		s.Truncated++
	case summary.Winner == 1 || summary.Winner == 2:
		s.Wins[summary.Winner-1]++
	default:
		s.Draws++
	}
}

// report writes one progress line and resets the rate window
func (s *Stats) report(w io.Writer, episode, total int, averages [2]float64) {
	now := time.Now()
	elapsed := now.Sub(s.lastReport)
	totalElapsed := now.Sub(s.StartTime)

	played := episode - s.lastEpisode
	gamesPerSecond := 0.0
	if elapsed > 0 {
		gamesPerSecond = float64(played) / elapsed.Seconds()
	}
	var eta time.Duration
	if gamesPerSecond > 0 {
		eta = time.Duration(float64(total-episode)/gamesPerSecond) * time.Second
	}
	avgSteps := float64(s.TotalSteps) / float64(max(s.Episodes, 1))

	fmt.Fprintf(w, "[%d/%d] W1:%d W2:%d D:%d | Steps: %.1f | Illegal: %d/%d | Avg: %.1f vs %.1f | %.2f games/sec | Elapsed: %s | ETA: %s\n",
		episode, total, s.Wins[0], s.Wins[1], s.Draws,
		avgSteps, s.Illegal[0], s.Illegal[1], averages[0], averages[1], gamesPerSecond,
		formatDuration(totalElapsed), formatDuration(eta))

	s.lastReport = now
	s.lastEpisode = episode
}

// formatDuration returns a human-readable string for a duration
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
