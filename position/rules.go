package position

import "c4bridge/types"

// Winner returns the player owning a line of four on b, or types.Empty if there is none.
// If both players have a line (impossible in legal play) the first one found is returned.
func Winner(b *types.Board) types.Player {
	directions := [][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}
	for row := 0; row < types.Rows; row++ {
		for col := 0; col < types.Cols; col++ {
			p := b[row][col]
			if p == types.Empty {
				continue
			}
			for _, d := range directions {
				endRow, endCol := row+3*d[0], col+3*d[1]
				if endRow < 0 || endRow >= types.Rows || endCol < 0 || endCol >= types.Cols {
					continue
				}
				if b[row+d[0]][col+d[1]] == p && b[row+2*d[0]][col+2*d[1]] == p && b[endRow][endCol] == p {
					return p
				}
			}
		}
	}
	return types.Empty
}

// GameOver reports whether b is won or has no playable column left.
func GameOver(b *types.Board) bool {
	return b.IsFull() || Winner(b) != types.Empty
}
