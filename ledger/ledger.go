// Package ledger keeps the move sequence of a game in step with the board snapshots a caller sends.
//
// The ledger owns a mirror of the last board it saw and the sequence of columns that produced it.
// Each request brings at most one opponent move, found by diffing the snapshot against the mirror,
// and each engine reply adds our own move.
package ledger

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"c4bridge/types"
)

var (
	// ErrTrackerAmbiguous is returned when a snapshot does not differ from the mirror by exactly
	// one new piece. Nothing is appended in that case.
	ErrTrackerAmbiguous = errors.New("snapshot does not follow the tracked board by one move")
	// ErrColumnFull is returned by AddOurMove when the mirror has no room in the column.
	ErrColumnFull = errors.New("column is full in the tracked board")
)

// Detection describes what HandleSnapshot found.
type Detection struct {
	// Column is the detected opponent move, or -1 when none was appended.
	Column int
	// Row is where the detected piece sits.
	Row int
	// Added counts cells occupied in the snapshot that differ from the mirror.
	Added int
	// Removed counts cells occupied in the mirror that are empty in the snapshot.
	Removed int
}

// Duplicate reports whether the snapshot was identical to the mirror.
func (d Detection) Duplicate() bool {
	return d.Added == 0 && d.Removed == 0
}

// Ledger tracks one game. It is not safe for concurrent use; callers serialize access per session.
type Ledger struct {
	mirror   types.Board
	sequence types.Sequence
	first    types.Player
	log      zerolog.Logger
}

// New returns an empty ledger logging through logger.
func New(logger zerolog.Logger) *Ledger {
	return &Ledger{
		sequence: types.Sequence{},
		first:    types.PlayerOne,
		log:      logger.With().Str("component", "ledger").Logger(),
	}
}

// Reset clears the mirror and the sequence.
func (l *Ledger) Reset() {
	l.mirror = types.Board{}
	l.sequence = types.Sequence{}
	l.first = types.PlayerOne
	l.log.Debug().Msg("reset")
}

// HandleSnapshot reconciles snapshot with the mirror according to t and returns what was detected.
// The mirror always ends up equal to snapshot.
func (l *Ledger) HandleSnapshot(snapshot types.Board, t Transition) (Detection, error) {
	defer func() { l.mirror = snapshot }()

	switch t {
	case NewGameAsFirstMover:
		l.Reset()
		if !snapshot.IsEmpty() {
			l.log.Warn().Int("pieces", snapshot.Occupied()).Msg("new game as first mover on a non-empty board")
			return Detection{Column: -1, Added: snapshot.Occupied()}, fmt.Errorf("%w: expected an empty board", ErrTrackerAmbiguous)
		}
		return Detection{Column: -1}, nil

	case NewGameAsSecondMover:
		l.Reset()
		col, row, n := openingPiece(&snapshot)
		if n != 1 {
			l.log.Warn().Int("pieces", n).Msg("new game as second mover needs exactly one piece")
			return Detection{Column: -1, Added: n}, fmt.Errorf("%w: expected one opening piece, found %d", ErrTrackerAmbiguous, n)
		}
		l.sequence = types.Sequence{types.Move(col)}
		l.first = snapshot[row][col]
		l.log.Debug().Int("column", col+1).Msg("opponent opened")
		return Detection{Column: col, Row: row, Added: 1}, nil
	}

	d := l.diff(&snapshot)
	switch {
	case d.Added == 1 && d.Removed == 0:
		if len(l.sequence) == 0 {
			l.first = snapshot[d.Row][d.Column]
		}
		l.sequence = append(l.sequence, types.Move(d.Column))
		l.log.Debug().Int("column", d.Column+1).Str("sequence", l.sequence.String()).Msg("opponent move detected")
		return d, nil
	case d.Duplicate():
		l.log.Warn().Msg("no change between snapshots")
	default:
		l.log.Warn().
			Int("added", d.Added).
			Int("removed", d.Removed).
			Str("mirror", l.mirror.String()).
			Str("snapshot", snapshot.String()).
			Msg("unexpected changes between snapshots")
	}
	d.Column, d.Row = -1, -1
	return d, fmt.Errorf("%w: %d added, %d removed", ErrTrackerAmbiguous, d.Added, d.Removed)
}

// diff scans column by column, bottom row first.
func (l *Ledger) diff(snapshot *types.Board) Detection {
	d := Detection{Column: -1, Row: -1}
	for col := 0; col < types.Cols; col++ {
		for row := types.Rows - 1; row >= 0; row-- {
			now, before := snapshot[row][col], l.mirror[row][col]
			switch {
			case now != types.Empty && now != before:
				d.Added++
				d.Column = col
				d.Row = row
			case now == types.Empty && before != types.Empty:
				d.Removed++
			}
		}
	}
	return d
}

// openingPiece returns the position of the first occupied cell and the number of pieces on b.
func openingPiece(b *types.Board) (col, row, n int) {
	col, row = -1, -1
	for c := 0; c < types.Cols; c++ {
		for r := types.Rows - 1; r >= 0; r-- {
			if b[r][c] != types.Empty {
				if col < 0 {
					col, row = c, r
				}
				n++
			}
		}
	}
	return col, row, n
}

// AddOurMove records our move in col for mover.
// When the mirror column is already full nothing changes and ErrColumnFull is returned.
func (l *Ledger) AddOurMove(col int, mover types.Player) error {
	if l.mirror.Drop(col, mover) < 0 {
		l.log.Warn().Int("column", col+1).Msg("cannot place our move, column appears full")
		return fmt.Errorf("%w: column %d", ErrColumnFull, col+1)
	}
	if len(l.sequence) == 0 {
		l.first = mover
	}
	l.sequence = append(l.sequence, types.Move(col))
	return nil
}

// Resync replaces the tracked state with a board and a sequence known to produce it when
// replayed starting with first, typically the result of a full reconstruction.
func (l *Ledger) Resync(b types.Board, seq types.Sequence, first types.Player) {
	l.mirror = b
	l.sequence = seq.Clone()
	l.first = first
	l.log.Info().Str("sequence", l.sequence.String()).Msg("resynced from reconstruction")
}

// Sequence returns a copy of the tracked sequence.
func (l *Ledger) Sequence() types.Sequence {
	return l.sequence.Clone()
}

// First returns the player who made the first move of the tracked sequence.
func (l *Ledger) First() types.Player {
	return l.first
}

// Mirror returns a copy of the tracked board.
func (l *Ledger) Mirror() types.Board {
	return l.mirror
}
