package random

import (
	"testing"

	"github.com/montplusa/filler-battle-rl/pkg/game"
	"github.com/stretchr/testify/assert"
)

func TestSelectColumn_OnlyLegalMoves(t *testing.T) {
	ai := New(1)
	gs := game.NewGame(2, 3)
	gs.ApplyMove(1)
	gs.ApplyMove(1)

	for i := 0; i < 50; i++ {
		col := ai.SelectColumn(gs)
		assert.Contains(t, []int{0, 2}, col)
	}
}

func TestSelectColumn_FullBoard(t *testing.T) {
	gs := game.NewGame(1, 1)
	gs.ApplyMove(0)

	assert.Equal(t, -1, New(1).SelectColumn(gs))
}
