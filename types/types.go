// Package types contains the Connect Four data model shared by c4bridge.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Board dimensions.
const (
	Rows = 6
	Cols = 7
)

// Player is the occupant of a board cell.
type Player int

const (
	Empty     Player = 0
	PlayerOne Player = 1
	PlayerTwo Player = 2
)

// Other returns the opponent of p. Empty has no opponent and is returned unchanged.
func (p Player) Other() Player {
	switch p {
	case PlayerOne:
		return PlayerTwo
	case PlayerTwo:
		return PlayerOne
	}
	return Empty
}

// Valid reports whether p is one of the two players.
func (p Player) Valid() bool {
	return p == PlayerOne || p == PlayerTwo
}

func (p Player) String() string {
	switch p {
	case PlayerOne:
		return "one"
	case PlayerTwo:
		return "two"
	}
	return "empty"
}

// Board is a 6x7 Connect Four grid indexed as Board[row][col].
// Row 0 is the top row and row Rows-1 the bottom, matching the snapshot layout callers send.
type Board [Rows][Cols]Player

// InvalidGrid is returned when a caller supplied grid cannot be a board.
type InvalidGrid struct {
	err string
}

func (e *InvalidGrid) Error() string {
	return fmt.Sprintf("invalid grid: %s", e.err)
}

// BoardFromGrid converts a caller supplied [][]int grid into a Board.
// The grid must be exactly 6 rows of 7 cells holding 0, 1 or 2.
func BoardFromGrid(grid [][]int) (Board, error) {
	var b Board
	if len(grid) != Rows {
		return b, &InvalidGrid{fmt.Sprintf("expected %d rows, got %d", Rows, len(grid))}
	}
	for row := range grid {
		if len(grid[row]) != Cols {
			return b, &InvalidGrid{fmt.Sprintf("row %d: expected %d columns, got %d", row, Cols, len(grid[row]))}
		}
		for col, v := range grid[row] {
			p := Player(v)
			if p != Empty && !p.Valid() {
				return b, &InvalidGrid{fmt.Sprintf("cell (%d,%d) holds %d", row, col, v)}
			}
			b[row][col] = p
		}
	}
	return b, nil
}

// Grid returns the board as a freshly allocated [][]int.
func (b *Board) Grid() [][]int {
	grid := make([][]int, Rows)
	for row := range grid {
		grid[row] = make([]int, Cols)
		for col := range grid[row] {
			grid[row][col] = int(b[row][col])
		}
	}
	return grid
}

// MarshalJSON encodes the board as a nested integer array.
func (b Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Grid())
}

// UnmarshalJSON decodes a nested integer array and validates its shape.
func (b *Board) UnmarshalJSON(data []byte) error {
	var grid [][]int
	if err := json.Unmarshal(data, &grid); err != nil {
		return err
	}
	parsed, err := BoardFromGrid(grid)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// LowestOpenRow returns the row a piece dropped in col would land on, or -1 if the column is full
// or out of range.
func (b *Board) LowestOpenRow(col int) int {
	if col < 0 || col >= Cols {
		return -1
	}
	for row := Rows - 1; row >= 0; row-- {
		if b[row][col] == Empty {
			return row
		}
	}
	return -1
}

// ColumnPlayable reports whether col is in range and its top cell is empty.
func (b *Board) ColumnPlayable(col int) bool {
	return col >= 0 && col < Cols && b[0][col] == Empty
}

// Drop places p in col under gravity and returns the row it landed on, or -1 when the column
// has no room.
func (b *Board) Drop(col int, p Player) int {
	row := b.LowestOpenRow(col)
	if row < 0 {
		return -1
	}
	b[row][col] = p
	return row
}

// Occupied counts the pieces on the board.
func (b *Board) Occupied() int {
	n := 0
	for row := range b {
		for col := range b[row] {
			if b[row][col] != Empty {
				n++
			}
		}
	}
	return n
}

// IsEmpty reports whether no piece has been played.
func (b *Board) IsEmpty() bool {
	return b.Occupied() == 0
}

// IsFull reports whether every column is full.
func (b *Board) IsFull() bool {
	for col := 0; col < Cols; col++ {
		if b[0][col] == Empty {
			return false
		}
	}
	return true
}

// LegalColumns returns the playable columns in ascending order.
func (b *Board) LegalColumns() []int {
	cols := make([]int, 0, Cols)
	for col := 0; col < Cols; col++ {
		if b.ColumnPlayable(col) {
			cols = append(cols, col)
		}
	}
	return cols
}

// Equal reports whether both boards hold the same pieces.
func (b *Board) Equal(other *Board) bool {
	return *b == *other
}

func (b Board) String() string {
	var sb strings.Builder
	for row := range b {
		for col := range b[row] {
			if col > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteByte(byte('0' + b[row][col]))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
