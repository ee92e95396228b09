package game

// AI はゲーム用エージェントのインターフェース
type AI interface {
	Name() string
	// 現在の盤面で石を落とす列を選ぶ
	SelectColumn(state *GameState) int
}
