package actorcritic

import (
	"errors"
	"fmt"
	"math"

	"github.com/patrikeh/go-deep/training"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
)

var (
	ErrNoPendingAction = errors.New("learn called without a pending action")
	ErrActionMismatch  = errors.New("transition action differs from the pending action")
	ErrDiverged        = errors.New("temporal-difference error is not finite")
	ErrInvalidConfig   = errors.New("invalid agent config")
)

// Config specifies an actor-critic agent
type Config struct {
	Name           string  // Model name, used in logs and checkpoints
	Actions        int     // Size of the discrete action space
	HiddenLayers   []int   // Shared trunk layout
	Alpha          float64 // Learning rate
	Gamma          float64 // Discount factor
	ClipDelta      float64 // Bound on |delta| used for the gradient, 0 disables
	Optimizer      string  // "adam" or "sgd"
	InitStdDev     float64 // Std-dev of the initial weights
	Seed           uint64
	CheckpointPath string // Written whenever the rolling score improves
	FinalPath      string // Written once at the end of training
}

// DefaultConfig returns the learning settings for a 7x6 board, saving to
// name.json and name_final.json
func DefaultConfig(name string) Config {
	return Config{
		Name:           name,
		Actions:        6,
		HiddenLayers:   []int{128, 64},
		Alpha:          1e-5,
		Gamma:          0.99,
		Optimizer:      "adam",
		InitStdDev:     0.1,
		Seed:           1,
		CheckpointPath: name + ".json",
		FinalPath:      name + "_final.json",
	}
}

func (c Config) validate(inputSize int) error {
	switch {
	case inputSize <= 0:
		return fmt.Errorf("%w: input size must be positive, got %d", ErrInvalidConfig, inputSize)
	case c.Actions <= 0:
		return fmt.Errorf("%w: actions must be positive, got %d", ErrInvalidConfig, c.Actions)
	case len(c.HiddenLayers) == 0:
		return fmt.Errorf("%w: at least one hidden layer is required", ErrInvalidConfig)
	case c.Alpha <= 0:
		return fmt.Errorf("%w: alpha must be positive, got %g", ErrInvalidConfig, c.Alpha)
	case c.Gamma < 0 || c.Gamma > 1:
		return fmt.Errorf("%w: gamma must be in [0, 1], got %g", ErrInvalidConfig, c.Gamma)
	case c.ClipDelta < 0:
		return fmt.Errorf("%w: clip delta must not be negative", ErrInvalidConfig)
	}
	for _, size := range c.HiddenLayers {
		if size <= 0 {
			return fmt.Errorf("%w: hidden layer sizes must be positive, got %v", ErrInvalidConfig, c.HiddenLayers)
		}
	}
	return nil
}

// Transition is one (s, a, r, s', done) step handed to Learn
type Transition struct {
	Observation []float64
	Action      int
	Reward      float64
	Next        []float64 // ignored when Done
	Done        bool
}

// StepLoss reports the quantities of a single update
type StepLoss struct {
	Delta  float64
	Value  float64
	Actor  float64
	Critic float64
}

func (l StepLoss) Total() float64 {
	return l.Actor + l.Critic
}

type pendingAction struct {
	action  int
	logProb float64
}

// Agent samples actions from its policy and learns online, one TD(0)
// update per transition.
type Agent struct {
	config  Config
	network *Network
	solver  training.Solver
	src     rand.Source
	pending *pendingAction
	updates int
	logger  zerolog.Logger
}

// Option configures an Agent
type Option func(*Agent)

// WithLogger sets the agent logger; the model name is added to every entry
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// New creates an agent with freshly initialised weights for observations of
// length inputSize.
func New(config Config, inputSize int, opts ...Option) (*Agent, error) {
	if err := config.validate(inputSize); err != nil {
		return nil, err
	}
	if config.InitStdDev <= 0 {
		config.InitStdDev = 0.1
	}

	// Weight init and action sampling draw from separate streams so that
	// loading a checkpoint does not shift the action sequence.
	weights := NormalWeights(config.InitStdDev, rand.NewSource(config.Seed))
	network := NewNetwork(NetworkConfig{
		InputSize:    inputSize,
		HiddenLayers: config.HiddenLayers,
		Actions:      config.Actions,
	}, weights)

	a := &Agent{
		config:  config,
		network: network,
		src:     rand.NewSource(config.Seed + 1),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.resetSolver(); err != nil {
		return nil, err
	}
	a.logger = a.logger.With().Str("model", config.Name).Logger()
	return a, nil
}

func (a *Agent) resetSolver() error {
	switch a.config.Optimizer {
	case "", "adam":
		a.solver = training.NewAdam(a.config.Alpha, 0.9, 0.999, 1e-8)
	case "sgd":
		a.solver = training.NewSGD(a.config.Alpha, 0, 0, false)
	default:
		return fmt.Errorf("%w: unknown optimizer %q", ErrInvalidConfig, a.config.Optimizer)
	}
	a.solver.Init(a.network.NumWeights())
	return nil
}

// Name returns the model name
func (a *Agent) Name() string {
	return a.config.Name
}

// Config returns the settings the agent was built with
func (a *Agent) Config() Config {
	return a.config
}

// Updates returns the number of gradient steps taken so far
func (a *Agent) Updates() int {
	return a.updates
}

// InputSize returns the observation length the agent accepts
func (a *Agent) InputSize() int {
	return a.network.Config().InputSize
}

// Evaluate returns V(obs) and pi(.|obs) without touching the pending action.
func (a *Agent) Evaluate(obs []float64) (float64, []float64, error) {
	return a.network.Evaluate(obs)
}

// ChooseAction samples an action from the current policy and remembers it
// for the next Learn call.
func (a *Agent) ChooseAction(obs []float64) (int, error) {
	_, policy, err := a.network.Evaluate(obs)
	if err != nil {
		return 0, err
	}
	action, err := Sample(policy, a.src)
	if err != nil {
		return 0, fmt.Errorf("sample action: %w", err)
	}
	a.pending = &pendingAction{
		action:  action,
		logProb: LogProbability(policy, action),
	}
	return action, nil
}

// Learn performs exactly one actor-critic update from t. The pending action
// recorded by ChooseAction is consumed.
func (a *Agent) Learn(t Transition) (StepLoss, error) {
	if a.pending == nil {
		return StepLoss{}, ErrNoPendingAction
	}
	if a.pending.action != t.Action {
		return StepLoss{}, fmt.Errorf("%w: pending %d, got %d", ErrActionMismatch, a.pending.action, t.Action)
	}
	a.pending = nil

	var next float64
	if !t.Done {
		v, _, err := a.network.Evaluate(t.Next)
		if err != nil {
			return StepLoss{}, fmt.Errorf("evaluate next observation: %w", err)
		}
		next = v
	}

	// Evaluated last so the cached activations belong to obs.
	value, policy, err := a.network.Evaluate(t.Observation)
	if err != nil {
		return StepLoss{}, fmt.Errorf("evaluate observation: %w", err)
	}
	if t.Action < 0 || t.Action >= len(policy) {
		return StepLoss{}, fmt.Errorf("%w: action %d out of range", ErrActionMismatch, t.Action)
	}

	delta := t.Reward + a.config.Gamma*next - value
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return StepLoss{}, fmt.Errorf("%w: delta=%v value=%v next=%v", ErrDiverged, delta, value, next)
	}

	logProb := LogProbability(policy, t.Action)
	loss := StepLoss{
		Delta:  delta,
		Value:  value,
		Actor:  -logProb * delta,
		Critic: delta * delta,
	}

	g := delta
	if c := a.config.ClipDelta; c > 0 {
		g = math.Max(-c, math.Min(c, g))
	}

	// d(delta^2)/dV = -2 delta, d(-log pi_a * delta)/dz_j = delta (pi_j - 1[j=a])
	dLogits := make([]float64, len(policy))
	for j, p := range policy {
		dLogits[j] = g * p
	}
	dLogits[t.Action] -= g

	a.updates++
	if err := a.network.Update(a.solver, a.updates, t.Observation, -2*g, dLogits); err != nil {
		return StepLoss{}, err
	}

	a.logger.Trace().
		Int("action", t.Action).
		Float64("reward", t.Reward).
		Float64("delta", delta).
		Float64("loss", loss.Total()).
		Msg("update")
	return loss, nil
}
