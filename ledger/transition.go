package ledger

import "c4bridge/types"

// Transition tells the ledger how an incoming snapshot relates to the game it is tracking.
type Transition int

const (
	// Continuing means the snapshot follows the mirror by one opponent move.
	Continuing Transition = iota
	// NewGameAsFirstMover means a new game started and we make the opening move.
	NewGameAsFirstMover
	// NewGameAsSecondMover means a new game started and the opponent already opened.
	NewGameAsSecondMover
)

func (t Transition) String() string {
	switch t {
	case Continuing:
		return "continuing"
	case NewGameAsFirstMover:
		return "new-game-first"
	case NewGameAsSecondMover:
		return "new-game-second"
	}
	return "unknown"
}

// DecideTransition maps the caller's new-game flag and mover onto a Transition.
// isNewGame may be nil when the caller does not send the flag; the board then decides:
// an empty board is a new game with us opening, and a single piece while we move second is
// a new game where the opponent opened.
func DecideTransition(b *types.Board, isNewGame *bool, mover types.Player) Transition {
	if isNewGame != nil {
		if !*isNewGame {
			return Continuing
		}
		if mover == types.PlayerTwo {
			return NewGameAsSecondMover
		}
		return NewGameAsFirstMover
	}

	switch b.Occupied() {
	case 0:
		return NewGameAsFirstMover
	case 1:
		if mover == types.PlayerTwo {
			return NewGameAsSecondMover
		}
	}
	return Continuing
}
