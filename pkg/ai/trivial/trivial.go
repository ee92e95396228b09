package trivial

import (
	"github.com/montplusa/filler-battle-rl/pkg/game"
)

type TrivialAI struct{}

func (ai *TrivialAI) Name() string {
	return "trivial"
}

func New() *TrivialAI {
	return &TrivialAI{}
}

// SelectColumn は一手先だけを読み、変化するマス数が最大の列を選びます
// 同数なら左の列を優先します
func (ai *TrivialAI) SelectColumn(state *game.GameState) int {
	best, bestChanged := -1, -1
	for _, col := range state.LegalMoves() {
		next := state.Clone()
		next.ApplyMove(col)
		if next.LastMoveDelta() > bestChanged {
			best, bestChanged = col, next.LastMoveDelta()
		}
	}
	return best
}
