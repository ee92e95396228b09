package actorcritic

import (
	"fmt"

	"github.com/montplusa/filler-battle-rl/pkg/game"
)

// Player adapts a trained agent to game.AI for offline matches. It never
// learns and leaves the agent's pending action untouched.
type Player struct {
	agent  *Agent
	greedy bool
}

// NewPlayer wraps agent; greedy picks the most probable column instead of
// sampling.
func NewPlayer(agent *Agent, greedy bool) *Player {
	return &Player{agent: agent, greedy: greedy}
}

func (p *Player) Name() string {
	mode := "sampled"
	if p.greedy {
		mode = "greedy"
	}
	return fmt.Sprintf("actorcritic (%s, %s)", p.agent.Name(), mode)
}

// SelectColumn returns -1 when the observation does not fit the network; the
// runner then substitutes a legal column.
func (p *Player) SelectColumn(state *game.GameState) int {
	_, policy, err := p.agent.Evaluate(state.Observation())
	if err != nil {
		return -1
	}
	if p.greedy {
		return Greedy(policy)
	}
	action, err := Sample(policy, p.agent.src)
	if err != nil {
		return -1
	}
	return action
}
