package game

const (
	// None は空きマス、または引き分け時の勝者
	None    = 0
	Player1 = 1
	Player2 = 2
)

// 8 近傍の方向
var directions = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// GameState は盤面情報を保持
type GameState struct {
	Rows    int     // 行数
	Cols    int     // 列数 (= 行動数)
	Cells   [][]int // 0=空, 1/2=プレイヤー
	Turn    int     // 現手番: 1 or 2
	Changed int     // 直前の手で変化したマス数
	Plies   int     // 適用済みの手数
}

// Opponent は相手プレイヤーを返す
func Opponent(player int) int {
	return Player1 + Player2 - player
}

// NewGame は空の盤面を返す
func NewGame(rows, cols int) *GameState {
	cells := make([][]int, rows)
	for r := range cells {
		cells[r] = make([]int, cols)
	}
	return &GameState{
		Rows:  rows,
		Cols:  cols,
		Cells: cells,
		Turn:  Player1,
	}
}

// Clone は GameState のディープコピーを返す
func (gs *GameState) Clone() *GameState {
	cells := make([][]int, gs.Rows)
	for r := 0; r < gs.Rows; r++ {
		cells[r] = make([]int, gs.Cols)
		copy(cells[r], gs.Cells[r])
	}
	return &GameState{
		Rows:    gs.Rows,
		Cols:    gs.Cols,
		Cells:   cells,
		Turn:    gs.Turn,
		Changed: gs.Changed,
		Plies:   gs.Plies,
	}
}

// Move は一手の記録
type Move struct {
	Player  int
	Column  int
	Changed int
}

// IsLegal は列 col に石を落とせるかを返す
func (gs *GameState) IsLegal(col int) bool {
	return col >= 0 && col < gs.Cols && gs.Cells[0][col] == None
}

// LegalMoves は合法な列を返す
func (gs *GameState) LegalMoves() []int {
	var moves []int
	for c := 0; c < gs.Cols; c++ {
		if gs.IsLegal(c) {
			moves = append(moves, c)
		}
	}
	return moves
}

func (gs *GameState) inside(r, c int) bool {
	return r >= 0 && r < gs.Rows && c >= 0 && c < gs.Cols
}

// ApplyMove は手番プレイヤーの石を列 col に落とし手番を交替する。
// 不正な手なら盤面を変えずに false を返す。
func (gs *GameState) ApplyMove(col int) bool {
	if !gs.IsLegal(col) {
		gs.Changed = 0
		return false
	}
	p := gs.Turn

	// 石は一番下の空きマスまで落ちる
	row := gs.Rows - 1
	for gs.Cells[row][col] != None {
		row--
	}
	gs.Cells[row][col] = p

	gs.Changed = 1 + gs.capture(row, col, p)
	gs.Plies++
	gs.Turn = Opponent(p)
	return true
}

// capture は (row, col) から各方向に挟んだ相手の石を裏返し、その数を返す
func (gs *GameState) capture(row, col, p int) int {
	opp := Opponent(p)
	flipped := 0
	for _, d := range directions {
		r, c := row+d[0], col+d[1]
		var run [][2]int
		for gs.inside(r, c) && gs.Cells[r][c] == opp {
			run = append(run, [2]int{r, c})
			r += d[0]
			c += d[1]
		}
		if len(run) == 0 || !gs.inside(r, c) || gs.Cells[r][c] != p {
			continue
		}
		for _, cell := range run {
			gs.Cells[cell[0]][cell[1]] = p
		}
		flipped += len(run)
	}
	return flipped
}

// IsOver は盤面が埋まったかを返す
func (gs *GameState) IsOver() bool {
	for c := 0; c < gs.Cols; c++ {
		if gs.Cells[0][c] == None {
			return false
		}
	}
	return true
}

// Score は player の石の数を返す
func (gs *GameState) Score(player int) int {
	n := 0
	for _, row := range gs.Cells {
		for _, v := range row {
			if v == player {
				n++
			}
		}
	}
	return n
}

// Winner は石の多いプレイヤーを返す。同数なら None。
func (gs *GameState) Winner() int {
	s1, s2 := gs.Score(Player1), gs.Score(Player2)
	switch {
	case s1 > s2:
		return Player1
	case s2 > s1:
		return Player2
	default:
		return None
	}
}

// CurrentPlayer は手番プレイヤーを返す
func (gs *GameState) CurrentPlayer() int {
	return gs.Turn
}

// LastMoveDelta は直前の手で変化したマス数を返す
func (gs *GameState) LastMoveDelta() int {
	return gs.Changed
}

// ResetDelta は変化マス数を 0 に戻す
func (gs *GameState) ResetDelta() {
	gs.Changed = 0
}

// Observation は手番プレイヤー視点の盤面ベクトルを返す
func (gs *GameState) Observation() []float64 {
	return gs.ObservationFor(gs.Turn)
}

// ObservationFor は player 視点で自分=1, 相手=-1, 空=0 の行優先ベクトルを返す
func (gs *GameState) ObservationFor(player int) []float64 {
	obs := make([]float64, 0, gs.Rows*gs.Cols)
	for _, row := range gs.Cells {
		for _, v := range row {
			switch v {
			case None:
				obs = append(obs, 0)
			case player:
				obs = append(obs, 1)
			default:
				obs = append(obs, -1)
			}
		}
	}
	return obs
}
