// Package record writes and reads SGF-style Connect Four game records.
//
// A record is a single game tree without variations:
//
//	(;GM[C4]FF[4]SZ[7:6]AP[c4bridge]DT[2026-01-15]PR[engine]PY[opponent]RE[R+]
//	;R[d];Y[d];R[e])
//
// Move values are column letters, a being the leftmost column.
package record

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"c4bridge/position"
	"c4bridge/types"
)

// Extension is the file suffix of archived games.
const Extension = ".c4sgf"

// GameRecord tracks a game in progress and writes it to disk after every change.
type GameRecord struct {
	FilePath  string
	PlayerOne string
	PlayerTwo string
	Date      string
	Result    string
	moves     []string // ";R[d]", ";Y[c]", ...
	file      *os.File
}

// NewGameRecord creates a new record file in dir and writes the initial header.
func NewGameRecord(dir, playerOne, playerTwo string) (*GameRecord, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	now := time.Now()
	filename := fmt.Sprintf("%s_%s%s", now.Format("2006-01-02_150405"), uuid.NewString()[:8], Extension)
	path := filepath.Join(dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create record file: %w", err)
	}

	rec := &GameRecord{
		FilePath:  path,
		PlayerOne: playerOne,
		PlayerTwo: playerTwo,
		Date:      now.Format("2006-01-02"),
		Result:    "?",
		file:      f,
	}

	if err := rec.flush(); err != nil {
		f.Close()
		return nil, err
	}

	return rec, nil
}

// columnLetter converts a 0-based column to its record letter: 0 -> "a", 6 -> "g".
func columnLetter(col int) string {
	return string(rune('a' + col))
}

func playerLetter(p types.Player) string {
	if p == types.PlayerTwo {
		return "Y"
	}
	return "R"
}

// AddMove appends a move by p in the 0-based column col.
func (r *GameRecord) AddMove(col int, p types.Player) error {
	if col < 0 || col >= types.Cols {
		return fmt.Errorf("column %d out of range", col+1)
	}
	r.moves = append(r.moves, fmt.Sprintf(";%s[%s]", playerLetter(p), columnLetter(col)))
	return r.flush()
}

// AddSequence appends every move of seq, alternating players starting with first.
func (r *GameRecord) AddSequence(seq types.Sequence, first types.Player) error {
	mover := first
	for _, m := range seq {
		if int(m) < 0 || int(m) >= types.Cols {
			return fmt.Errorf("column %d out of range", int(m)+1)
		}
		r.moves = append(r.moves, fmt.Sprintf(";%s[%s]", playerLetter(mover), columnLetter(int(m))))
		mover = mover.Other()
	}
	return r.flush()
}

// UndoMoves removes the last n moves from the record.
func (r *GameRecord) UndoMoves(n int) error {
	if n > len(r.moves) {
		n = len(r.moves)
	}
	r.moves = r.moves[:len(r.moves)-n]
	return r.flush()
}

// SetResult sets the RE property. Accepts a result already in record form
// ("R+", "Y+", "Draw", "?") or a phrase such as "Red wins" or "draw".
func (r *GameRecord) SetResult(outcome string) error {
	r.Result = parseResult(outcome)
	return r.flush()
}

// Close performs a final flush and closes the file handle.
func (r *GameRecord) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.flush()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	r.file = nil
	return err
}

// Format renders the complete record.
func (r *GameRecord) Format() string {
	var b strings.Builder

	b.WriteString("(;GM[C4]FF[4]CA[UTF-8]")
	b.WriteString("AP[c4bridge:1.0]")
	fmt.Fprintf(&b, "SZ[%d:%d]", types.Cols, types.Rows)
	fmt.Fprintf(&b, "PR[%s]", escape(r.PlayerOne))
	fmt.Fprintf(&b, "PY[%s]", escape(r.PlayerTwo))
	fmt.Fprintf(&b, "DT[%s]", r.Date)
	fmt.Fprintf(&b, "RE[%s]", r.Result)
	b.WriteString("\n")

	for _, m := range r.moves {
		b.WriteString(m)
	}

	b.WriteString(")\n")
	return b.String()
}

// flush rewrites the complete file from scratch.
func (r *GameRecord) flush() error {
	if r.file == nil {
		return fmt.Errorf("file already closed")
	}
	if _, err := r.file.Seek(0, 0); err != nil {
		return err
	}
	if err := r.file.Truncate(0); err != nil {
		return err
	}
	if _, err := r.file.WriteString(r.Format()); err != nil {
		return err
	}
	return r.file.Sync()
}

// Archive writes a finished game in one go and returns the file path.
func Archive(dir string, seq types.Sequence, first types.Player, playerOne, playerTwo, result string) (string, error) {
	rec, err := NewGameRecord(dir, playerOne, playerTwo)
	if err != nil {
		return "", err
	}
	if err := rec.AddSequence(seq, first); err != nil {
		rec.Close()
		return rec.FilePath, err
	}
	rec.Result = parseResult(result)
	return rec.FilePath, rec.Close()
}

// ResultFor describes the outcome shown by b.
func ResultFor(b *types.Board) string {
	switch position.Winner(b) {
	case types.PlayerOne:
		return "R+"
	case types.PlayerTwo:
		return "Y+"
	}
	if b.IsFull() {
		return "Draw"
	}
	return "?"
}

// parseResult converts various outcome formats to an RE value.
func parseResult(outcome string) string {
	o := strings.TrimSpace(outcome)
	switch o {
	case "R+", "Y+", "Draw", "?", "Void":
		return o
	}

	low := strings.ToLower(o)
	switch {
	case strings.HasPrefix(low, "red wins"), strings.HasPrefix(low, "player one wins"):
		return "R+"
	case strings.HasPrefix(low, "yellow wins"), strings.HasPrefix(low, "player two wins"):
		return "Y+"
	case low == "draw" || low == "tie":
		return "Draw"
	}
	return "?"
}

func escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "]", `\]`)
}

func unescape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
