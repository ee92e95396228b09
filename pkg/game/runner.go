package game

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BattleResult は対戦結果の記録
type BattleResult struct {
	ID           string     // 対戦 ID
	Players      [2]string  // AI 名
	InitialState *GameState // 初期状態
	Moves        []Move     // 手の履歴
	FinalState   *GameState // 終局状態
	Winner       int        // 勝者 (引き分けは None)
	Fouls        [2]int     // 不正な列を選んだ回数
}

// GameRunner は対戦を管理
type GameRunner struct {
	agents [2]AI
	rows   int
	cols   int
	logger zerolog.Logger
}

// NewGameRunner は AI エージェントをセットして返す
func NewGameRunner(a1, a2 AI, rows, cols int) *GameRunner {
	return &GameRunner{
		agents: [2]AI{a1, a2},
		rows:   rows,
		cols:   cols,
		logger: zerolog.Nop(),
	}
}

// WithLogger はデバッグ出力先を設定する
func (gr *GameRunner) WithLogger(logger zerolog.Logger) *GameRunner {
	gr.logger = logger
	return gr
}

// Run は対戦を実行して BattleResult を返す
func (gr *GameRunner) Run() BattleResult {
	state := NewGame(gr.rows, gr.cols)

	result := BattleResult{
		ID:           uuid.NewString(),
		Players:      [2]string{gr.agents[0].Name(), gr.agents[1].Name()},
		InitialState: state.Clone(),
		Moves:        make([]Move, 0, gr.rows*gr.cols),
	}

	for !state.IsOver() {
		player := state.Turn
		col := gr.agents[player-1].SelectColumn(state.Clone())

		if !state.IsLegal(col) {
			// 不正な列は最初の合法手に置き換える
			result.Fouls[player-1]++
			gr.logger.Debug().Int("player", player).Int("column", col).Msg("illegal column, falling back")
			col = state.LegalMoves()[0]
		}

		state.ApplyMove(col)
		gr.logger.Debug().Int("player", player).Int("column", col).Int("changed", state.Changed).Msg("move")
		result.Moves = append(result.Moves, Move{Player: player, Column: col, Changed: state.Changed})
	}

	result.FinalState = state
	result.Winner = state.Winner()
	return result
}
