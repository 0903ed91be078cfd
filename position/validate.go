// Package position checks Connect Four snapshots and recovers move sequences from them.
package position

import "c4bridge/types"

// IsGravityConsistent reports whether every piece on b rests on the bottom row or on another piece.
func IsGravityConsistent(b *types.Board) bool {
	for col := 0; col < types.Cols; col++ {
		for row := types.Rows - 2; row >= 0; row-- {
			if b[row][col] != types.Empty && b[row+1][col] == types.Empty {
				return false
			}
		}
	}
	return true
}

// columnHeights returns the number of pieces stacked in each column.
// It assumes b is gravity consistent.
func columnHeights(b *types.Board) [types.Cols]int {
	var h [types.Cols]int
	for col := 0; col < types.Cols; col++ {
		for row := types.Rows - 1; row >= 0 && b[row][col] != types.Empty; row-- {
			h[col]++
		}
	}
	return h
}

// pieceCounts returns how many pieces each player has on b.
func pieceCounts(b *types.Board) (one, two int) {
	for row := range b {
		for col := range b[row] {
			switch b[row][col] {
			case types.PlayerOne:
				one++
			case types.PlayerTwo:
				two++
			}
		}
	}
	return one, two
}
