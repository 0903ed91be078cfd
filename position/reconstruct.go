package position

import (
	"errors"

	"c4bridge/types"
)

var (
	// ErrInvalidBoard is returned for boards with floating pieces.
	ErrInvalidBoard = errors.New("board is not gravity consistent")
	// ErrReconstructionFailed is returned when no move order produces the board.
	ErrReconstructionFailed = errors.New("no move sequence reproduces the board")
)

// Reconstruct recovers a move sequence that produces target from the empty board.
//
// The search is a depth-first backtrack over columns in ascending order, trying PlayerOne as the
// first mover and then PlayerTwo. A move is only taken when the cell it lands on holds the mover's
// piece in target, and the first complete match wins, so the result is one valid history and not
// necessarily the one actually played. It returns the sequence and the player who moved first.
//
// The plain search is exponential in the number of pieces. Because every working board is fully
// described by its column heights, dead heights are memoised, which bounds the work by the product
// of (height+1) over the columns.
func Reconstruct(target *types.Board) (types.Sequence, types.Player, error) {
	if !IsGravityConsistent(target) {
		return nil, types.Empty, ErrInvalidBoard
	}
	for _, first := range []types.Player{types.PlayerOne, types.PlayerTwo} {
		if seq, ok := reconstruct(target, first); ok {
			return seq, first, nil
		}
	}
	return nil, types.Empty, ErrReconstructionFailed
}

// ReconstructFrom is Reconstruct with the first mover fixed.
func ReconstructFrom(target *types.Board, first types.Player) (types.Sequence, error) {
	if !IsGravityConsistent(target) {
		return nil, ErrInvalidBoard
	}
	if seq, ok := reconstruct(target, first); ok {
		return seq, nil
	}
	return nil, ErrReconstructionFailed
}

// FirstMover returns who must have opened a game in which toMove is the side to play on b.
func FirstMover(b *types.Board, toMove types.Player) types.Player {
	if b.Occupied()%2 == 0 {
		return toMove
	}
	return toMove.Other()
}

func reconstruct(target *types.Board, first types.Player) (types.Sequence, bool) {
	one, two := pieceCounts(target)
	total := one + two

	// The first mover owns the extra piece on an odd count, so a mismatch can never succeed.
	firstCount, secondCount := one, two
	if first == types.PlayerTwo {
		firstCount, secondCount = two, one
	}
	if firstCount != (total+1)/2 || secondCount != total/2 {
		return nil, false
	}

	r := &reconstructor{
		target: target,
		seq:    make(types.Sequence, 0, total),
		dead:   make(map[int]struct{}),
	}
	if r.search(first, total) {
		return r.seq, true
	}
	return nil, false
}

type reconstructor struct {
	target  *types.Board
	working types.Board
	heights [types.Cols]int
	seq     types.Sequence
	dead    map[int]struct{}
}

// key packs the column heights into a single int (base 7, heights are 0..6).
func (r *reconstructor) key() int {
	k := 0
	for col := types.Cols - 1; col >= 0; col-- {
		k = k*(types.Rows+1) + r.heights[col]
	}
	return k
}

func (r *reconstructor) search(mover types.Player, remaining int) bool {
	if remaining == 0 {
		return r.working.Equal(r.target)
	}
	k := r.key()
	if _, ok := r.dead[k]; ok {
		return false
	}

	for col := 0; col < types.Cols; col++ {
		row := r.working.LowestOpenRow(col)
		if row < 0 || r.target[row][col] != mover {
			continue
		}

		r.working[row][col] = mover
		r.heights[col]++
		r.seq = append(r.seq, types.Move(col))

		if r.search(mover.Other(), remaining-1) {
			return true
		}

		r.seq = r.seq[:len(r.seq)-1]
		r.heights[col]--
		r.working[row][col] = types.Empty
	}

	r.dead[k] = struct{}{}
	return false
}
