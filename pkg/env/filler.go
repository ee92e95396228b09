package env

import (
	"errors"
	"fmt"

	"github.com/montplusa/filler-battle-rl/pkg/game"
	"github.com/rs/zerolog"
)

var (
	ErrEpisodeEnded = errors.New("episode has ended, call Reset")
	ErrNotStarted   = errors.New("episode not started, call Reset")
	ErrWrongPlayer  = errors.New("player is not to move")
)

// Engine is the part of the game the adapter needs
type Engine interface {
	Observation() []float64
	ApplyMove(col int) bool
	IsOver() bool
	Winner() int // 0 on a draw
	CurrentPlayer() int
	LastMoveDelta() int
	ResetDelta()
}

// EngineFactory starts a new game on a rows x cols board
type EngineFactory func(rows, cols int) Engine

// GameEngine builds the bundled Filler engine
func GameEngine(rows, cols int) Engine {
	return game.NewGame(rows, cols)
}

// Rewards are the outcome and penalty components added to the shaping delta
type Rewards struct {
	Win     float64 `mapstructure:"win" json:"win"`
	Loss    float64 `mapstructure:"loss" json:"loss"`
	Draw    float64 `mapstructure:"draw" json:"draw"`
	Illegal float64 `mapstructure:"illegal" json:"illegal"`
}

// DefaultRewards returns the shaping used in training: win 20, loss -20,
// draw 0, illegal move -100
func DefaultRewards() Rewards {
	return Rewards{
		Win:     20,
		Loss:    -20,
		Draw:    0,
		Illegal: -100,
	}
}

// StepResult is what the acting player observes after a step
type StepResult struct {
	Observation []float64 // from the perspective of the player to move next
	Reward      float64
	Done        bool
	Illegal     bool
}

// Filler turns the game into an (observation, reward, done) environment for
// two alternating players.
type Filler struct {
	rows      int
	cols      int
	rewards   Rewards
	newEngine EngineFactory
	engine    Engine
	ended     bool
	logger    zerolog.Logger
}

// Option configures a Filler environment
type Option func(*Filler)

// WithRewards overrides DefaultRewards
func WithRewards(r Rewards) Option {
	return func(f *Filler) { f.rewards = r }
}

// WithEngine replaces the game rules engine
func WithEngine(factory EngineFactory) Option {
	return func(f *Filler) { f.newEngine = factory }
}

// WithLogger sets the environment logger
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Filler) { f.logger = logger }
}

// New creates an environment on a rows x cols board. Reset must be called
// before the first Step.
func New(rows, cols int, opts ...Option) (*Filler, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid board size %dx%d", rows, cols)
	}
	f := &Filler{
		rows:      rows,
		cols:      cols,
		rewards:   DefaultRewards(),
		newEngine: GameEngine,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Reset starts a new episode and returns the first player's observation
func (f *Filler) Reset() ([]float64, error) {
	f.engine = f.newEngine(f.rows, f.cols)
	f.ended = false
	return f.engine.Observation(), nil
}

// Step plays action for player. An illegal action is penalised and leaves
// the board as it was; it is never an error.
func (f *Filler) Step(action, player int) (StepResult, error) {
	switch {
	case f.engine == nil:
		return StepResult{}, ErrNotStarted
	case f.ended:
		return StepResult{}, ErrEpisodeEnded
	case player != f.engine.CurrentPlayer():
		return StepResult{}, fmt.Errorf("%w: got %d, want %d", ErrWrongPlayer, player, f.engine.CurrentPlayer())
	}

	if f.engine.IsOver() {
		f.engine.ResetDelta()
		f.ended = true
		return StepResult{
			Observation: f.engine.Observation(),
			Reward:      f.outcome(player) + float64(f.engine.LastMoveDelta()),
			Done:        true,
		}, nil
	}

	var reward float64
	legal := f.engine.ApplyMove(action)
	if !legal {
		reward += f.rewards.Illegal
		f.logger.Trace().Int("player", player).Int("action", action).Msg("illegal move")
	} else if f.engine.IsOver() {
		reward += f.outcome(player)
		f.ended = true
	}
	reward += float64(f.engine.LastMoveDelta())

	return StepResult{
		Observation: f.engine.Observation(),
		Reward:      reward,
		Done:        f.ended,
		Illegal:     !legal,
	}, nil
}

func (f *Filler) outcome(player int) float64 {
	switch f.engine.Winner() {
	case game.None:
		return f.rewards.Draw
	case player:
		return f.rewards.Win
	default:
		return f.rewards.Loss
	}
}

// CurrentPlayer returns the player to move, 0 before the first Reset
func (f *Filler) CurrentPlayer() int {
	if f.engine == nil {
		return game.None
	}
	return f.engine.CurrentPlayer()
}

// Winner returns the winning player, 0 on a draw or while undecided
func (f *Filler) Winner() int {
	if f.engine == nil || !f.engine.IsOver() {
		return game.None
	}
	return f.engine.Winner()
}

// ObservationSize is the length of every observation, one entry per cell
func (f *Filler) ObservationSize() int {
	return f.rows * f.cols
}

// Actions is the number of actions, one per column
func (f *Filler) Actions() int {
	return f.cols
}

// Engine exposes the running game, nil before the first Reset
func (f *Filler) Engine() Engine {
	return f.engine
}
