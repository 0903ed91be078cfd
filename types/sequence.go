package types

import (
	"fmt"
	"strings"
)

// Move is a 0-based column index.
type Move int

// Sequence is the ordered list of columns played since the empty board.
type Sequence []Move

// String renders the sequence in engine notation: one 1-based digit per move, no separators.
func (s Sequence) String() string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, m := range s {
		sb.WriteByte(byte('1' + m))
	}
	return sb.String()
}

// Clone returns a copy of s that does not share storage.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}

// ParseSequence parses engine notation ("4453") into a Sequence.
func ParseSequence(text string) (Sequence, error) {
	seq := make(Sequence, 0, len(text))
	for i, c := range text {
		if c < '1' || c > '0'+Cols {
			return nil, fmt.Errorf("invalid column %q at position %d", c, i)
		}
		seq = append(seq, Move(c-'1'))
	}
	return seq, nil
}

// Replay plays s from an empty board, alternating players starting with first.
// It fails when a move names a column out of range or one that is already full.
func (s Sequence) Replay(first Player) (Board, error) {
	var b Board
	mover := first
	for i, m := range s {
		if b.Drop(int(m), mover) < 0 {
			return b, fmt.Errorf("move %d: column %d is not playable", i+1, int(m)+1)
		}
		mover = mover.Other()
	}
	return b, nil
}
