package actorcritic

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/patrikeh/go-deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func trainFewSteps(t *testing.T, a *Agent, steps int) {
	t.Helper()
	r := rand.New(rand.NewSource(17))
	for i := 0; i < steps; i++ {
		obs := randomObservation(r)
		action, err := a.ChooseAction(obs)
		require.NoError(t, err)
		_, err = a.Learn(Transition{Observation: obs, Action: action, Reward: 1, Next: randomObservation(r)})
		require.NoError(t, err)
	}
}

func TestSaveLoad_ReproducesPolicy(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig("Model_1")
	cfg.CheckpointPath = filepath.Join(dir, "Model_1.json")
	src := newTestAgent(t, cfg)
	trainFewSteps(t, src, 5)
	require.NoError(t, src.SaveCheckpoint())

	other := testConfig("Model_1")
	other.Seed = 99
	other.CheckpointPath = cfg.CheckpointPath
	dst := newTestAgent(t, other)
	require.NoError(t, dst.LoadCheckpoint())
	assert.Equal(t, 5, dst.Updates())

	r := rand.New(rand.NewSource(23))
	for i := 0; i < 10; i++ {
		obs := randomObservation(r)
		v1, p1, err := src.Evaluate(obs)
		require.NoError(t, err)
		v2, p2, err := dst.Evaluate(obs)
		require.NoError(t, err)
		assert.InDelta(t, v1, v2, 1e-12)
		assert.InDeltaSlice(t, p1, p2, 1e-12)
	}
}

func TestSaveFinal_WritesFinalPath(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig("Model_2")
	cfg.FinalPath = filepath.Join(dir, "nested", "Model_2_final.json")
	a := newTestAgent(t, cfg)

	require.NoError(t, a.SaveFinal())

	cp, err := ReadCheckpoint(cfg.FinalPath)
	require.NoError(t, err)
	assert.Equal(t, "Model_2", cp.Name)
	assert.Equal(t, testInputs, cp.InputSize)
	assert.Equal(t, 6, cp.Actions)
	assert.Equal(t, []int{16}, cp.HiddenLayers)

	entries, err := os.ReadDir(filepath.Dir(cfg.FinalPath))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestSave_RequiresPath(t *testing.T) {
	cfg := testConfig("nopath")
	cfg.CheckpointPath = ""
	a := newTestAgent(t, cfg)

	assert.ErrorIs(t, a.SaveCheckpoint(), ErrNoCheckpointPath)
	assert.ErrorIs(t, a.LoadCheckpoint(), ErrNoCheckpointPath)
}

func TestLoad_RejectsMismatchedShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "six.json")
	a := newTestAgent(t, testConfig("six"))
	require.NoError(t, a.SaveTo(path))

	t.Run("actions", func(t *testing.T) {
		cfg := testConfig("five")
		cfg.Actions = 5
		b := newTestAgent(t, cfg)
		assert.ErrorIs(t, b.LoadFrom(path), ErrCheckpointMismatch)
	})

	t.Run("inputs", func(t *testing.T) {
		b, err := New(testConfig("small"), testInputs-6)
		require.NoError(t, err)
		assert.ErrorIs(t, b.LoadFrom(path), ErrCheckpointMismatch)
	})

	t.Run("layout", func(t *testing.T) {
		cfg := testConfig("wide")
		cfg.HiddenLayers = []int{32}
		b := newTestAgent(t, cfg)
		assert.ErrorIs(t, b.LoadFrom(path), ErrCheckpointMismatch)
	})
}

func TestLoad_RejectsCorruptedWeights(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "valid.json")
	require.NoError(t, newTestAgent(t, testConfig("valid")).SaveTo(valid))

	tests := []struct {
		name   string
		mutate func(*Checkpoint)
	}{
		{"missing policy", func(cp *Checkpoint) { cp.Policy = nil }},
		{"empty dumps", func(cp *Checkpoint) {
			cp.Snapshot = Snapshot{Trunk: &deep.Dump{}, Value: &deep.Dump{}, Policy: &deep.Dump{}}
		}},
		{"missing trunk config", func(cp *Checkpoint) { cp.Trunk.Config = nil }},
		{"truncated trunk weights", func(cp *Checkpoint) { cp.Trunk.Weights = cp.Trunk.Weights[:0] }},
		{"missing neuron", func(cp *Checkpoint) { cp.Policy.Weights[0] = cp.Policy.Weights[0][:5] }},
		{"missing synapse", func(cp *Checkpoint) { cp.Value.Weights[0][0] = cp.Value.Weights[0][0][:3] }},
		{"extra synapse", func(cp *Checkpoint) {
			cp.Trunk.Weights[0][2] = append(cp.Trunk.Weights[0][2], 0.5)
		}},
		{"value inputs", func(cp *Checkpoint) { cp.Value.Config.Inputs = 8 }},
		{"policy layout", func(cp *Checkpoint) { cp.Policy.Config.Layout = []int{5} }},
		{"trunk activation", func(cp *Checkpoint) { cp.Trunk.Config.Activation = deep.ActivationNone }},
		{"head mode", func(cp *Checkpoint) { cp.Value.Config.Mode = deep.ModeRegression }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp, err := ReadCheckpoint(valid)
			require.NoError(t, err)
			tt.mutate(cp)
			data, err := json.Marshal(cp)
			require.NoError(t, err)
			path := filepath.Join(t.TempDir(), "corrupted.json")
			require.NoError(t, os.WriteFile(path, data, 0o644))

			a := newTestAgent(t, testConfig("target"))
			obs := make([]float64, testInputs)
			_, before, err := a.Evaluate(obs)
			require.NoError(t, err)

			assert.NotPanics(t, func() { err = a.LoadFrom(path) })
			assert.ErrorIs(t, err, ErrCheckpointMismatch)

			_, after, err := a.Evaluate(obs)
			require.NoError(t, err)
			assert.Equal(t, before, after, "weights are untouched by a failed load")

			_, err = NewFromCheckpoint(Config{Alpha: 1e-3, Gamma: 0.9}, path)
			assert.ErrorIs(t, err, ErrCheckpointMismatch)
		})
	}

	t.Run("raw body", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "raw.json")
		body := `{"version":1,"input_size":42,"actions":6,"hidden_layers":[16],"trunk":{},"value":null}`
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

		a := newTestAgent(t, testConfig("raw"))
		assert.NotPanics(t, func() {
			assert.ErrorIs(t, a.LoadFrom(path), ErrCheckpointMismatch)
		})
	})
}

func TestLoad_MissingFile(t *testing.T) {
	a := newTestAgent(t, testConfig("missing"))
	err := a.LoadFrom(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewFromCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warm.json")
	cfg := testConfig("warm")
	cfg.HiddenLayers = []int{8, 4}
	src := newTestAgent(t, cfg)
	trainFewSteps(t, src, 3)
	require.NoError(t, src.SaveTo(path))

	a, err := NewFromCheckpoint(Config{Alpha: 1e-3, Gamma: 0.9}, path)
	require.NoError(t, err)
	assert.Equal(t, "warm", a.Name())
	assert.Equal(t, testInputs, a.InputSize())
	assert.Equal(t, []int{8, 4}, a.Config().HiddenLayers)

	obs := make([]float64, testInputs)
	_, p1, err := src.Evaluate(obs)
	require.NoError(t, err)
	_, p2, err := a.Evaluate(obs)
	require.NoError(t, err)
	assert.InDeltaSlice(t, p1, p2, 1e-12)
}
