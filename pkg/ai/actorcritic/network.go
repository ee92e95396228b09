package actorcritic

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/patrikeh/go-deep"
	"github.com/patrikeh/go-deep/training"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
)

var ErrObservationSize = errors.New("observation size mismatch")

// NetworkConfig defines the actor-critic architecture
type NetworkConfig struct {
	InputSize    int
	HiddenLayers []int
	Actions      int
}

// Network is a shared feature trunk feeding two heads: a linear state-value
// head and a softmax policy head over a fixed action set.
type Network struct {
	config NetworkConfig
	trunk  *deep.Neural
	value  *deep.Neural
	policy *deep.Neural
}

// NormalWeights returns a seeded N(0, stdDev) initializer so that networks
// built from the same seed are identical.
func NormalWeights(stdDev float64, src rand.Source) deep.WeightInitializer {
	r := rand.New(src)
	return func() float64 {
		return r.NormFloat64() * stdDev
	}
}

// NewNetwork creates a network with freshly initialised weights
func NewNetwork(config NetworkConfig, weight deep.WeightInitializer) *Network {
	features := config.HiddenLayers[len(config.HiddenLayers)-1]

	trunk := deep.NewNeural(&deep.Config{
		Inputs:     config.InputSize,
		Layout:     config.HiddenLayers,
		Activation: deep.ActivationReLU,
		Mode:       deep.ModeDefault,
		Weight:     weight,
		Bias:       true,
	})

	return &Network{
		config: config,
		trunk:  trunk,
		value:  newHead(features, 1, weight),
		policy: newHead(features, config.Actions, weight),
	}
}

// newHead builds a single linear layer; the policy head's softmax is applied
// in Evaluate so that its gradient can be taken against the logits.
func newHead(inputs, outputs int, weight deep.WeightInitializer) *deep.Neural {
	return deep.NewNeural(&deep.Config{
		Inputs:     inputs,
		Layout:     []int{outputs},
		Activation: deep.ActivationLinear,
		Mode:       deep.ModeDefault,
		Weight:     weight,
		Bias:       true,
	})
}

// Config returns the architecture of the network
func (n *Network) Config() NetworkConfig {
	return n.config
}

// NumWeights returns the number of trainable parameters across trunk and heads
func (n *Network) NumWeights() int {
	return n.trunk.NumWeights() + n.value.NumWeights() + n.policy.NumWeights()
}

// Evaluate returns the state-value estimate and the action distribution for obs.
func (n *Network) Evaluate(obs []float64) (float64, []float64, error) {
	if len(obs) != n.config.InputSize {
		return 0, nil, fmt.Errorf("%w: expected %d got %d", ErrObservationSize, n.config.InputSize, len(obs))
	}
	if err := n.trunk.Forward(obs); err != nil {
		return 0, nil, err
	}
	features := outputs(n.trunk)

	if err := n.value.Forward(features); err != nil {
		return 0, nil, err
	}
	if err := n.policy.Forward(features); err != nil {
		return 0, nil, err
	}
	return outputs(n.value)[0], softmax(outputs(n.policy)), nil
}

// Update runs a forward pass on obs and applies one solver step given the
// loss gradient with respect to the value output (dValue) and the policy
// logits (dLogits). Gradients for every weight are computed before any
// weight is changed.
func (n *Network) Update(solver training.Solver, iteration int, obs []float64, dValue float64, dLogits []float64) error {
	if _, _, err := n.Evaluate(obs); err != nil {
		return err
	}

	valueDeltas := backprop(n.value, []float64{dValue})
	policyDeltas := backprop(n.policy, dLogits)

	// Both heads read the trunk output; their input gradients add up.
	featureGrad := inputGradient(n.value, valueDeltas[0])
	floats.Add(featureGrad, inputGradient(n.policy, policyDeltas[0]))
	trunkDeltas := backprop(n.trunk, featureGrad)

	idx := 0
	idx = apply(solver, iteration, n.trunk, trunkDeltas, idx)
	idx = apply(solver, iteration, n.value, valueDeltas, idx)
	apply(solver, iteration, n.policy, policyDeltas, idx)
	return nil
}

func outputs(nn *deep.Neural) []float64 {
	neurons := nn.Layers[len(nn.Layers)-1].Neurons
	out := make([]float64, len(neurons))
	for i, neuron := range neurons {
		out[i] = neuron.Value
	}
	return out
}

// backprop returns dL/dz for every neuron, layer by layer, given dL/dy for
// the output layer activations.
func backprop(nn *deep.Neural, outGrad []float64) [][]float64 {
	last := len(nn.Layers) - 1
	deltas := make([][]float64, len(nn.Layers))

	deltas[last] = make([]float64, len(nn.Layers[last].Neurons))
	for j, neuron := range nn.Layers[last].Neurons {
		deltas[last][j] = outGrad[j] * neuron.DActivate(neuron.Value)
	}

	for i := last - 1; i >= 0; i-- {
		deltas[i] = make([]float64, len(nn.Layers[i].Neurons))
		for j, neuron := range nn.Layers[i].Neurons {
			var sum float64
			for k, s := range neuron.Out {
				sum += s.Weight * deltas[i+1][k]
			}
			deltas[i][j] = neuron.DActivate(neuron.Value) * sum
		}
	}
	return deltas
}

// inputGradient returns dL/dx for the network inputs. Input synapses come
// first in every first-layer neuron, the bias synapse is appended after them.
func inputGradient(nn *deep.Neural, firstDeltas []float64) []float64 {
	grad := make([]float64, nn.Config.Inputs)
	for k, neuron := range nn.Layers[0].Neurons {
		for j := range grad {
			grad[j] += neuron.In[j].Weight * firstDeltas[k]
		}
	}
	return grad
}

func apply(solver training.Solver, iteration int, nn *deep.Neural, deltas [][]float64, idx int) int {
	for i, l := range nn.Layers {
		for j, neuron := range l.Neurons {
			for _, s := range neuron.In {
				s.Weight += solver.Update(s.Weight, deltas[i][j]*s.In, iteration, idx)
				idx++
			}
		}
	}
	return idx
}

func softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	hi := floats.Max(logits)
	for i, z := range logits {
		out[i] = math.Exp(z - hi)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

// Snapshot holds the serialisable weights of every sub-network
type Snapshot struct {
	Trunk  *deep.Dump `json:"trunk"`
	Value  *deep.Dump `json:"value"`
	Policy *deep.Dump `json:"policy"`
}

// Snapshot dumps the current weights
func (n *Network) Snapshot() Snapshot {
	return Snapshot{
		Trunk:  n.trunk.Dump(),
		Value:  n.value.Dump(),
		Policy: n.policy.Dump(),
	}
}

func networkFromSnapshot(config NetworkConfig, s Snapshot) (*Network, error) {
	features := config.HiddenLayers[len(config.HiddenLayers)-1]
	parts := []struct {
		name       string
		dump       *deep.Dump
		inputs     int
		layout     []int
		activation deep.ActivationType
	}{
		{"trunk", s.Trunk, config.InputSize, config.HiddenLayers, deep.ActivationReLU},
		{"value", s.Value, features, []int{1}, deep.ActivationLinear},
		{"policy", s.Policy, features, []int{config.Actions}, deep.ActivationLinear},
	}
	for _, p := range parts {
		if err := checkDump(p.dump, p.inputs, p.layout, p.activation); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCheckpointMismatch, p.name, err)
		}
	}

	return &Network{
		config: config,
		trunk:  deep.FromDump(s.Trunk),
		value:  deep.FromDump(s.Value),
		policy: deep.FromDump(s.Policy),
	}, nil
}

// checkDump verifies that d describes a network with the given inputs,
// layout and activation and that its weights fit that shape, so FromDump
// cannot fail.
func checkDump(d *deep.Dump, inputs int, layout []int, activation deep.ActivationType) error {
	switch {
	case d == nil:
		return errors.New("missing")
	case d.Config == nil:
		return errors.New("missing config")
	case d.Config.Inputs != inputs:
		return fmt.Errorf("%d inputs, want %d", d.Config.Inputs, inputs)
	case !slices.Equal(d.Config.Layout, layout):
		return fmt.Errorf("layout %v, want %v", d.Config.Layout, layout)
	case d.Config.Activation != activation || d.Config.Mode != deep.ModeDefault:
		return fmt.Errorf("activation %v mode %v, want %v mode %v",
			d.Config.Activation, d.Config.Mode, activation, deep.ModeDefault)
	case len(d.Weights) != len(layout):
		return fmt.Errorf("%d weight layers, want %d", len(d.Weights), len(layout))
	}

	fanIn := inputs
	for i, size := range layout {
		if len(d.Weights[i]) != size {
			return fmt.Errorf("layer %d has %d neurons, want %d", i, len(d.Weights[i]), size)
		}
		want := fanIn
		if d.Config.Bias {
			want++
		}
		for j, w := range d.Weights[i] {
			if len(w) != want {
				return fmt.Errorf("layer %d neuron %d has %d weights, want %d", i, j, len(w), want)
			}
			for _, x := range w {
				if math.IsNaN(x) || math.IsInf(x, 0) {
					return fmt.Errorf("layer %d neuron %d has a non-finite weight", i, j)
				}
			}
		}
		fanIn = size
	}
	return nil
}
