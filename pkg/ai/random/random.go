package random

import (
	"github.com/montplusa/filler-battle-rl/pkg/game"
	"golang.org/x/exp/rand"
)

// RandomAI は合法手からランダムに列を選ぶ実装
type RandomAI struct {
	rnd *rand.Rand
}

// New は RandomAI を生成する
func New(seed uint64) *RandomAI {
	return &RandomAI{rnd: rand.New(rand.NewSource(seed))}
}

func (r *RandomAI) Name() string {
	return "random"
}

func (r *RandomAI) SelectColumn(state *game.GameState) int {
	moves := state.LegalMoves()
	if len(moves) == 0 {
		return -1
	}
	return moves[r.rnd.Intn(len(moves))]
}
