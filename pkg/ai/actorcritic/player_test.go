package actorcritic

import (
	"testing"

	"github.com/montplusa/filler-battle-rl/pkg/game"
	"github.com/stretchr/testify/assert"
)

func TestPlayer_SelectsColumnInRange(t *testing.T) {
	a := newTestAgent(t, testConfig("player"))
	state := game.NewGame(7, 6)

	for _, greedy := range []bool{true, false} {
		p := NewPlayer(a, greedy)
		col := p.SelectColumn(state)
		assert.True(t, col >= 0 && col < 6, "column %d", col)
	}
	assert.Contains(t, NewPlayer(a, true).Name(), "greedy")
}

func TestPlayer_MismatchedBoardFallsBack(t *testing.T) {
	a := newTestAgent(t, testConfig("player"))
	p := NewPlayer(a, true)

	assert.Equal(t, -1, p.SelectColumn(game.NewGame(3, 3)))
}

func TestPlayer_PlaysFullGame(t *testing.T) {
	a := newTestAgent(t, testConfig("player"))
	result := game.NewGameRunner(NewPlayer(a, false), NewPlayer(a, true), 7, 6).Run()

	assert.True(t, result.FinalState.IsOver())
}
