package actorcritic

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

const checkpointVersion = 1

var (
	ErrNoCheckpointPath   = errors.New("checkpoint path is not configured")
	ErrCheckpointMismatch = errors.New("checkpoint does not match the agent")
)

// Checkpoint is the on-disk form of an agent's parameters. Optimizer
// moments are not stored.
type Checkpoint struct {
	Version      int       `json:"version"`
	Name         string    `json:"name"`
	SavedAt      time.Time `json:"saved_at"`
	Updates      int       `json:"updates"`
	InputSize    int       `json:"input_size"`
	Actions      int       `json:"actions"`
	HiddenLayers []int     `json:"hidden_layers"`
	Snapshot
}

// SaveCheckpoint writes the agent to its checkpoint path
func (a *Agent) SaveCheckpoint() error {
	return a.SaveTo(a.config.CheckpointPath)
}

// SaveFinal writes the agent to its final path
func (a *Agent) SaveFinal() error {
	return a.SaveTo(a.config.FinalPath)
}

// LoadCheckpoint restores the agent from its checkpoint path
func (a *Agent) LoadCheckpoint() error {
	return a.LoadFrom(a.config.CheckpointPath)
}

func (a *Agent) SaveTo(path string) error {
	if path == "" {
		return ErrNoCheckpointPath
	}
	a.logger.Info().Str("path", path).Int("updates", a.updates).Msg("saving checkpoint")

	netConfig := a.network.Config()
	cp := Checkpoint{
		Version:      checkpointVersion,
		Name:         a.config.Name,
		SavedAt:      time.Now().UTC(),
		Updates:      a.updates,
		InputSize:    netConfig.InputSize,
		Actions:      netConfig.Actions,
		HiddenLayers: netConfig.HiddenLayers,
		Snapshot:     a.network.Snapshot(),
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write checkpoint %s: %w", path, err)
	}
	return nil
}

// LoadFrom replaces the agent's weights with those stored at path. The
// optimizer state is reset and any pending action is dropped.
func (a *Agent) LoadFrom(path string) error {
	if path == "" {
		return ErrNoCheckpointPath
	}
	cp, err := ReadCheckpoint(path)
	if err != nil {
		return err
	}

	netConfig := a.network.Config()
	if cp.InputSize != netConfig.InputSize || cp.Actions != netConfig.Actions {
		return fmt.Errorf("%w: %s has %d inputs / %d actions, agent has %d / %d",
			ErrCheckpointMismatch, path, cp.InputSize, cp.Actions, netConfig.InputSize, netConfig.Actions)
	}
	if !slices.Equal(cp.HiddenLayers, netConfig.HiddenLayers) {
		return fmt.Errorf("%w: %s has hidden layers %v, agent has %v",
			ErrCheckpointMismatch, path, cp.HiddenLayers, netConfig.HiddenLayers)
	}

	network, err := networkFromSnapshot(netConfig, cp.Snapshot)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	a.network = network
	a.updates = cp.Updates
	a.pending = nil
	a.logger.Info().Str("path", path).Int("updates", cp.Updates).Msg("loaded checkpoint")
	return a.resetSolver()
}

// ReadCheckpoint decodes the checkpoint file at path
func ReadCheckpoint(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %s: %w", path, err)
	}
	if cp.Version != checkpointVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCheckpointMismatch, cp.Version)
	}
	return &cp, nil
}

// NewFromCheckpoint builds an agent whose architecture and weights come from
// the checkpoint at path. Learning parameters are taken from config.
func NewFromCheckpoint(config Config, path string, opts ...Option) (*Agent, error) {
	cp, err := ReadCheckpoint(path)
	if err != nil {
		return nil, err
	}
	config.Actions = cp.Actions
	config.HiddenLayers = cp.HiddenLayers
	if config.Name == "" {
		config.Name = cp.Name
	}

	a, err := New(config, cp.InputSize, opts...)
	if err != nil {
		return nil, err
	}
	if err := a.LoadFrom(path); err != nil {
		return nil, err
	}
	return a, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
