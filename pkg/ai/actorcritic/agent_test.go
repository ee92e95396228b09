package actorcritic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

const testInputs = 42

func testConfig(name string) Config {
	cfg := DefaultConfig(name)
	cfg.HiddenLayers = []int{16}
	return cfg
}

func newTestAgent(t *testing.T, cfg Config) *Agent {
	t.Helper()
	a, err := New(cfg, testInputs)
	require.NoError(t, err)
	return a
}

func randomObservation(r *rand.Rand) []float64 {
	obs := make([]float64, testInputs)
	for i := range obs {
		obs[i] = float64(r.Intn(3) - 1)
	}
	return obs
}

func TestEvaluate_PolicyIsDistribution(t *testing.T) {
	a := newTestAgent(t, testConfig("dist"))
	r := rand.New(rand.NewSource(7))

	for i := 0; i < 50; i++ {
		value, policy, err := a.Evaluate(randomObservation(r))
		require.NoError(t, err)
		assert.False(t, math.IsNaN(value))
		require.Len(t, policy, 6)

		var sum float64
		for _, p := range policy {
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestEvaluate_RejectsMalformedObservation(t *testing.T) {
	a := newTestAgent(t, testConfig("size"))

	_, _, err := a.Evaluate(make([]float64, testInputs-1))
	assert.ErrorIs(t, err, ErrObservationSize)

	_, err = a.ChooseAction(nil)
	assert.ErrorIs(t, err, ErrObservationSize)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero alpha", func(c *Config) { c.Alpha = 0 }},
		{"gamma above one", func(c *Config) { c.Gamma = 1.5 }},
		{"no actions", func(c *Config) { c.Actions = 0 }},
		{"no hidden layers", func(c *Config) { c.HiddenLayers = nil }},
		{"empty hidden layer", func(c *Config) { c.HiddenLayers = []int{8, 0} }},
		{"unknown optimizer", func(c *Config) { c.Optimizer = "rmsprop" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("invalid")
			tt.mutate(&cfg)
			_, err := New(cfg, testInputs)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestChooseAction_DeterministicForSeed(t *testing.T) {
	a := newTestAgent(t, testConfig("a"))
	b := newTestAgent(t, testConfig("b"))
	r := rand.New(rand.NewSource(3))

	for i := 0; i < 30; i++ {
		obs := randomObservation(r)
		x, err := a.ChooseAction(obs)
		require.NoError(t, err)
		y, err := b.ChooseAction(obs)
		require.NoError(t, err)
		assert.Equal(t, x, y)
		assert.True(t, x >= 0 && x < 6)
	}
}

func TestLearn_RequiresPendingAction(t *testing.T) {
	a := newTestAgent(t, testConfig("pending"))
	obs := make([]float64, testInputs)

	_, err := a.Learn(Transition{Observation: obs, Action: 0, Done: true})
	assert.ErrorIs(t, err, ErrNoPendingAction)

	action, err := a.ChooseAction(obs)
	require.NoError(t, err)
	_, err = a.Learn(Transition{Observation: obs, Action: (action + 1) % 6, Done: true})
	assert.ErrorIs(t, err, ErrActionMismatch)
	assert.Zero(t, a.Updates())
}

func TestLearn_TerminalIgnoresNextObservation(t *testing.T) {
	a := newTestAgent(t, testConfig("terminal"))
	obs := randomObservation(rand.New(rand.NewSource(11)))

	v, _, err := a.Evaluate(obs)
	require.NoError(t, err)
	action, err := a.ChooseAction(obs)
	require.NoError(t, err)

	loss, err := a.Learn(Transition{Observation: obs, Action: action, Reward: 3, Next: nil, Done: true})
	require.NoError(t, err)

	assert.InDelta(t, 3-v, loss.Delta, 1e-9)
	assert.InDelta(t, v, loss.Value, 1e-12)
	assert.InDelta(t, loss.Delta*loss.Delta, loss.Critic, 1e-9)
	assert.Equal(t, 1, a.Updates())

	// A pending action is consumed by Learn.
	_, err = a.Learn(Transition{Observation: obs, Action: action, Done: true})
	assert.ErrorIs(t, err, ErrNoPendingAction)
}

func TestLearn_BootstrapsFromNextObservation(t *testing.T) {
	cfg := testConfig("bootstrap")
	cfg.Gamma = 0.5
	a := newTestAgent(t, cfg)
	r := rand.New(rand.NewSource(5))
	obs, next := randomObservation(r), randomObservation(r)

	v, _, err := a.Evaluate(obs)
	require.NoError(t, err)
	vNext, _, err := a.Evaluate(next)
	require.NoError(t, err)

	action, err := a.ChooseAction(obs)
	require.NoError(t, err)
	loss, err := a.Learn(Transition{Observation: obs, Action: action, Reward: 1, Next: next})
	require.NoError(t, err)

	assert.InDelta(t, 1+0.5*vNext-v, loss.Delta, 1e-9)
}

func TestLearn_MovesValueTowardsReturn(t *testing.T) {
	cfg := testConfig("critic")
	cfg.Optimizer = "sgd"
	cfg.Alpha = 0.005
	a := newTestAgent(t, cfg)
	obs := randomObservation(rand.New(rand.NewSource(13)))

	before, _, err := a.Evaluate(obs)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		action, err := a.ChooseAction(obs)
		require.NoError(t, err)
		_, err = a.Learn(Transition{Observation: obs, Action: action, Reward: 1, Done: true})
		require.NoError(t, err)
	}

	after, _, err := a.Evaluate(obs)
	require.NoError(t, err)
	assert.Less(t, math.Abs(1-after), math.Abs(1-before)/2)
	assert.Equal(t, 200, a.Updates())
}

func TestLearn_DivergenceIsReported(t *testing.T) {
	a := newTestAgent(t, testConfig("nan"))
	obs := make([]float64, testInputs)

	action, err := a.ChooseAction(obs)
	require.NoError(t, err)
	_, err = a.Learn(Transition{Observation: obs, Action: action, Reward: math.NaN(), Done: true})
	assert.ErrorIs(t, err, ErrDiverged)
	assert.Zero(t, a.Updates())
}

// silenceCritic zeroes the value head so that V is 0 and the trunk receives
// only the policy gradient on the next update.
func silenceCritic(a *Agent) {
	for _, neuron := range a.network.value.Layers[0].Neurons {
		for _, s := range neuron.In {
			s.Weight = 0
		}
	}
}

func TestLearn_MovesPolicyWithAdvantage(t *testing.T) {
	obs := randomObservation(rand.New(rand.NewSource(19)))

	tests := []struct {
		name   string
		reward float64
		raise  bool
	}{
		{"positive advantage", 10, true},
		{"negative advantage", -10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("actor")
			cfg.Optimizer = "sgd"
			cfg.Alpha = 1e-3
			a := newTestAgent(t, cfg)
			silenceCritic(a)

			_, before, err := a.Evaluate(obs)
			require.NoError(t, err)
			action, err := a.ChooseAction(obs)
			require.NoError(t, err)

			loss, err := a.Learn(Transition{Observation: obs, Action: action, Reward: tt.reward, Done: true})
			require.NoError(t, err)
			assert.InDelta(t, tt.reward, loss.Delta, 1e-12)

			_, after, err := a.Evaluate(obs)
			require.NoError(t, err)
			if tt.raise {
				assert.Greater(t, after[action], before[action])
			} else {
				assert.Less(t, after[action], before[action])
			}
		})
	}
}
