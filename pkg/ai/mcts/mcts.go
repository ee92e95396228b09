package mcts

import (
	"fmt"
	"math"

	"github.com/montplusa/filler-battle-rl/pkg/game"
	"golang.org/x/exp/rand"
)

// node represents a node in the Monte Carlo search tree
type node struct {
	state       *game.GameState
	parent      *node
	column      int // move that led here
	mover       int // player who played column
	children    []*node
	visits      int
	totalReward float64 // from mover's perspective
	unexplored  []int
}

// MCTSAI picks columns with UCB1 tree search and random rollouts
type MCTSAI struct {
	simulations int
	rnd         *rand.Rand
}

func New(simulations int, seed uint64) *MCTSAI {
	return &MCTSAI{
		simulations: max(simulations, 1),
		rnd:         rand.New(rand.NewSource(seed)),
	}
}

func (ai *MCTSAI) Name() string {
	return fmt.Sprintf("mcts (%d)", ai.simulations)
}

// SelectColumn performs Monte Carlo Tree Search to find the best column
func (ai *MCTSAI) SelectColumn(state *game.GameState) int {
	root := &node{
		state:      state.Clone(),
		column:     -1,
		unexplored: state.LegalMoves(),
	}
	if len(root.unexplored) == 0 {
		return -1
	}

	for i := 0; i < ai.simulations; i++ {
		n := ai.selectNode(root)
		reward := ai.simulate(n.state, n.mover)
		backpropagate(n, reward)
	}

	// Use exploitation only (not exploration) for final selection
	var best *node
	var bestScore float64
	for _, child := range root.children {
		score := child.totalReward / float64(child.visits)
		if best == nil || score > bestScore {
			best = child
			bestScore = score
		}
	}
	return best.column
}

// selectNode selects a node for expansion using UCB1
func (ai *MCTSAI) selectNode(n *node) *node {
	if len(n.unexplored) > 0 {
		index := ai.rnd.Intn(len(n.unexplored))
		col := n.unexplored[index]
		n.unexplored = append(n.unexplored[:index], n.unexplored[index+1:]...)

		child := n.state.Clone()
		child.ApplyMove(col)
		childNode := &node{
			state:      child,
			parent:     n,
			column:     col,
			mover:      n.state.Turn,
			unexplored: child.LegalMoves(),
		}
		n.children = append(n.children, childNode)
		return childNode
	}

	if len(n.children) == 0 {
		return n // Terminal node
	}

	const c = math.Sqrt2
	var best *node
	var bestUCB float64
	for _, child := range n.children {
		exploitation := child.totalReward / float64(child.visits)
		exploration := c * math.Sqrt(math.Log(float64(n.visits))/float64(child.visits))
		if ucb := exploitation + exploration; best == nil || ucb > bestUCB {
			best = child
			bestUCB = ucb
		}
	}
	return ai.selectNode(best)
}

// simulate plays random columns to the end and returns the normalised score
// difference for player.
func (ai *MCTSAI) simulate(state *game.GameState, player int) float64 {
	sim := state.Clone()
	for !sim.IsOver() {
		moves := sim.LegalMoves()
		sim.ApplyMove(moves[ai.rnd.Intn(len(moves))])
	}
	diff := sim.Score(player) - sim.Score(game.Opponent(player))
	return float64(diff) / float64(sim.Rows*sim.Cols)
}

// backpropagate updates the statistics for all nodes in the path. Turns
// strictly alternate, so the reward flips sign at every level.
func backpropagate(n *node, reward float64) {
	for ; n != nil; n = n.parent {
		n.visits++
		n.totalReward += reward
		reward = -reward
	}
}
