package training

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/montplusa/filler-battle-rl/pkg/ai/actorcritic"
	"github.com/montplusa/filler-battle-rl/pkg/env"
	"github.com/rs/zerolog"
)

var (
	ErrUnknownPlayer = errors.New("environment reported an unknown player")
	ErrNoEpisodes    = errors.New("episode count must be positive")
)

// Learner is an agent the session can train
type Learner interface {
	Name() string
	ChooseAction(obs []float64) (int, error)
	Learn(t actorcritic.Transition) (actorcritic.StepLoss, error)
	SaveCheckpoint() error
	SaveFinal() error
}

// Environment is a two-player, turn-based episode
type Environment interface {
	Reset() ([]float64, error)
	Step(action, player int) (env.StepResult, error)
	CurrentPlayer() int
}

type outcomeReporter interface {
	Winner() int
}

// Config specifies a training session
type Config struct {
	Window         int     // Episodes in the rolling score average
	InitialBest    float64 // Starting watermark for improvement checkpoints
	MaxSteps       int     // Per-episode step cap, 0 disables
	Learn          bool    // false plays without updates or saved models
	ReportInterval int     // How often to report progress, 0 disables
}

// DefaultConfig returns the session settings used by filler-train
func DefaultConfig() Config {
	return Config{
		Window:         5,
		InitialBest:    -1500,
		MaxSteps:       1000,
		Learn:          true,
		ReportInterval: 100,
	}
}

// EpisodeSummary describes one finished episode
type EpisodeSummary struct {
	Episode   int
	Scores    [2]float64
	Averages  [2]float64
	Saved     [2]bool
	Illegal   [2]int
	Steps     int
	Winner    int
	Truncated bool
}

// Session trains two learners against each other in one environment.
type Session struct {
	ID        string
	config    Config
	env       Environment
	learners  [2]Learner
	trackers  [2]*ScoreTracker
	stats     *Stats
	logger    zerolog.Logger
	report    io.Writer
	onEpisode func(EpisodeSummary)
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithReport sets where periodic progress lines are written
func WithReport(w io.Writer) Option {
	return func(s *Session) { s.report = w }
}

// WithEpisodeCallback registers fn to be called after every episode
func WithEpisodeCallback(fn func(EpisodeSummary)) Option {
	return func(s *Session) { s.onEpisode = fn }
}

// NewSession wires p1 and p2 to players 1 and 2 of environment
func NewSession(environment Environment, p1, p2 Learner, config Config, opts ...Option) (*Session, error) {
	if environment == nil || p1 == nil || p2 == nil {
		return nil, errors.New("environment and both learners are required")
	}
	if config.Window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", config.Window)
	}
	if config.MaxSteps < 0 {
		return nil, fmt.Errorf("max steps must not be negative, got %d", config.MaxSteps)
	}

	s := &Session{
		ID:       uuid.NewString(),
		config:   config,
		env:      environment,
		learners: [2]Learner{p1, p2},
		trackers: [2]*ScoreTracker{
			NewScoreTracker(config.Window, config.InitialBest),
			NewScoreTracker(config.Window, config.InitialBest),
		},
		logger: zerolog.Nop(),
		report: io.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("session", s.ID).Logger()
	return s, nil
}

// Trackers returns the per-player score trackers
func (s *Session) Trackers() [2]*ScoreTracker {
	return s.trackers
}

// Run plays episodes and then writes both final models, unless the session
// is only evaluating. A cancelled context stops after the current step;
// final models are still written and the context error is returned with the
// partial result.
func (s *Session) Run(ctx context.Context, episodes int) (*Result, error) {
	if episodes <= 0 {
		return nil, ErrNoEpisodes
	}
	s.stats = newStats()
	s.logger.Info().
		Str("player1", s.learners[0].Name()).
		Str("player2", s.learners[1].Name()).
		Int("episodes", episodes).
		Bool("learn", s.config.Learn).
		Msg("starting training")

	var runErr error
	for episode := 1; episode <= episodes; episode++ {
		summary, err := s.runEpisode(ctx, episode)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.logger.Warn().Int("episode", episode).Msg("training interrupted")
				runErr = err
				break
			}
			return s.result(), fmt.Errorf("episode %d: %w", episode, err)
		}

		s.stats.record(summary)
		if s.onEpisode != nil {
			s.onEpisode(summary)
		}
		if s.config.ReportInterval > 0 && (episode%s.config.ReportInterval == 0 || episode == episodes) {
			s.stats.report(s.report, episode, episodes, summary.Averages)
		}
	}

	if s.config.Learn {
		for i, l := range s.learners {
			if err := l.SaveFinal(); err != nil {
				return s.result(), fmt.Errorf("failed to save final model for player %d: %w", i+1, err)
			}
		}
	}

	res := s.result()
	s.logger.Info().
		Int("episodes", res.Episodes).
		Ints("wins", res.Wins[:]).
		Int("draws", res.Draws).
		Str("elapsed", formatDuration(res.Duration)).
		Msg("training completed")
	return res, runErr
}

func (s *Session) runEpisode(ctx context.Context, episode int) (EpisodeSummary, error) {
	summary := EpisodeSummary{Episode: episode}

	obs, err := s.env.Reset()
	if err != nil {
		return summary, fmt.Errorf("reset: %w", err)
	}

	for done := false; !done; {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if s.config.MaxSteps > 0 && summary.Steps >= s.config.MaxSteps {
			summary.Truncated = true
			s.logger.Debug().Int("episode", episode).Int("steps", summary.Steps).Msg("episode truncated")
			break
		}

		player := s.env.CurrentPlayer()
		if player != 1 && player != 2 {
			return summary, fmt.Errorf("%w: %d", ErrUnknownPlayer, player)
		}
		learner := s.learners[player-1]

		action, err := learner.ChooseAction(obs)
		if err != nil {
			return summary, fmt.Errorf("%s choose action: %w", learner.Name(), err)
		}
		res, err := s.env.Step(action, player)
		if err != nil {
			return summary, fmt.Errorf("step: %w", err)
		}

		if s.config.Learn {
			_, err := learner.Learn(actorcritic.Transition{
				Observation: obs,
				Action:      action,
				Reward:      res.Reward,
				Next:        res.Observation,
				Done:        res.Done,
			})
			if err != nil {
				return summary, fmt.Errorf("%s learn: %w", learner.Name(), err)
			}
		}

		summary.Scores[player-1] += res.Reward
		if res.Illegal {
			summary.Illegal[player-1]++
		}
		summary.Steps++
		obs = res.Observation
		done = res.Done
	}

	if r, ok := s.env.(outcomeReporter); ok && !summary.Truncated {
		summary.Winner = r.Winner()
	}

	for i, tracker := range s.trackers {
		avg, improved := tracker.Add(summary.Scores[i])
		summary.Averages[i] = avg
		if !improved || !s.config.Learn {
			continue
		}
		if err := s.learners[i].SaveCheckpoint(); err != nil {
			s.logger.Warn().Err(err).Str("model", s.learners[i].Name()).Msg("failed to save checkpoint")
			continue
		}
		summary.Saved[i] = true
		s.logger.Info().
			Int("episode", episode).
			Str("model", s.learners[i].Name()).
			Float64("average", avg).
			Msg("rolling score improved")
	}
	return summary, nil
}

func (s *Session) result() *Result {
	res := &Result{
		SessionID: s.ID,
		Players:   [2]string{s.learners[0].Name(), s.learners[1].Name()},
		Window:    s.config.Window,
	}
	for i, tracker := range s.trackers {
		res.Scores[i] = tracker.History()
		res.Best[i] = tracker.Best()
	}
	if s.stats != nil {
		res.Episodes = s.stats.Episodes
		res.Wins = s.stats.Wins
		res.Draws = s.stats.Draws
		res.Truncated = s.stats.Truncated
		res.StartedAt = s.stats.StartTime
		res.Duration = time.Since(s.stats.StartTime)
	}
	return res
}
