package env

import (
	"testing"

	"github.com/montplusa/filler-battle-rl/pkg/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFiller(t *testing.T, rows, cols int, opts ...Option) *Filler {
	t.Helper()
	f, err := New(rows, cols, opts...)
	require.NoError(t, err)
	return f
}

func TestNew_RejectsEmptyBoard(t *testing.T) {
	_, err := New(0, 6)
	assert.Error(t, err)
}

func TestStep_BeforeReset(t *testing.T) {
	f := newFiller(t, 2, 2)
	_, err := f.Step(0, game.Player1)
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.Equal(t, game.None, f.CurrentPlayer())
}

func TestStep_LegalMoveRewardsShaping(t *testing.T) {
	f := newFiller(t, 7, 6)
	obs, err := f.Reset()
	require.NoError(t, err)
	assert.Len(t, obs, f.ObservationSize())
	assert.Equal(t, 6, f.Actions())

	res, err := f.Step(3, game.Player1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Reward)
	assert.False(t, res.Done)
	assert.False(t, res.Illegal)
	assert.Equal(t, game.Player2, f.CurrentPlayer())
}

func TestStep_IllegalMoveIsPenalised(t *testing.T) {
	f := newFiller(t, 1, 3)
	_, err := f.Reset()
	require.NoError(t, err)
	_, err = f.Step(0, game.Player1)
	require.NoError(t, err)

	before := f.Engine().Observation()
	res, err := f.Step(0, game.Player2)
	require.NoError(t, err)

	assert.Equal(t, -100.0, res.Reward)
	assert.True(t, res.Illegal)
	assert.False(t, res.Done)
	assert.Equal(t, before, res.Observation)
	assert.Equal(t, game.Player2, f.CurrentPlayer(), "turn does not pass")

	res, err = f.Step(9, game.Player2)
	require.NoError(t, err)
	assert.Equal(t, -100.0, res.Reward)
}

func TestStep_WinningMoveEndsEpisode(t *testing.T) {
	f := newFiller(t, 1, 3)
	_, err := f.Reset()
	require.NoError(t, err)

	_, err = f.Step(0, game.Player1)
	require.NoError(t, err)
	_, err = f.Step(1, game.Player2)
	require.NoError(t, err)

	// P1 fills the last cell and captures the middle stone.
	res, err := f.Step(2, game.Player1)
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, 20.0+2, res.Reward)
	assert.Equal(t, game.Player1, f.Winner())

	_, err = f.Step(0, game.Player2)
	assert.ErrorIs(t, err, ErrEpisodeEnded)

	_, err = f.Reset()
	require.NoError(t, err)
	_, err = f.Step(0, game.Player1)
	assert.NoError(t, err)
}

func TestStep_DrawUsesDrawReward(t *testing.T) {
	rewards := DefaultRewards()
	rewards.Draw = 0.5
	f := newFiller(t, 1, 2, WithRewards(rewards))
	_, err := f.Reset()
	require.NoError(t, err)

	_, err = f.Step(0, game.Player1)
	require.NoError(t, err)
	res, err := f.Step(1, game.Player2)
	require.NoError(t, err)

	assert.True(t, res.Done)
	assert.Equal(t, 1.5, res.Reward)
	assert.Equal(t, game.None, f.Winner())
}

func TestStep_WrongPlayer(t *testing.T) {
	f := newFiller(t, 2, 2)
	_, err := f.Reset()
	require.NoError(t, err)

	_, err = f.Step(0, game.Player2)
	assert.ErrorIs(t, err, ErrWrongPlayer)
}

// finishedEngine reports a game that is already over on entry
type finishedEngine struct {
	*game.GameState
	winner int
}

func (e finishedEngine) IsOver() bool { return true }
func (e finishedEngine) Winner() int  { return e.winner }

func TestStep_GameOverOnEntry(t *testing.T) {
	tests := []struct {
		name   string
		winner int
		want   float64
	}{
		{"player won", game.Player1, 20},
		{"opponent won", game.Player2, -20},
		{"draw", game.None, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFiller(t, 2, 2, WithEngine(func(rows, cols int) Engine {
				gs := game.NewGame(rows, cols)
				gs.Changed = 3
				return finishedEngine{GameState: gs, winner: tt.winner}
			}))
			_, err := f.Reset()
			require.NoError(t, err)

			res, err := f.Step(0, game.Player1)
			require.NoError(t, err)
			assert.True(t, res.Done)
			assert.Equal(t, tt.want, res.Reward, "shaping is cleared")
			assert.Equal(t, tt.winner, f.Winner())
		})
	}
}
