package game

import (
	"fmt"
	"io"

	"github.com/logrusorgru/aurora"
)

// Render は盤面を色付きで w に書き出す
func (gs *GameState) Render(w io.Writer) {
	for _, row := range gs.Cells {
		for _, v := range row {
			switch v {
			case Player1:
				fmt.Fprint(w, aurora.Red(" X"))
			case Player2:
				fmt.Fprint(w, aurora.Blue(" O"))
			default:
				fmt.Fprint(w, aurora.White(" ."))
			}
		}
		fmt.Fprintln(w)
	}
	for c := 0; c < gs.Cols; c++ {
		fmt.Fprintf(w, "%2d", c)
	}
	fmt.Fprintln(w)
}
