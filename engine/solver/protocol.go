// Package solver talks to the Connect Four solving engine over its line protocol.
package solver

import (
	"fmt"
	"strconv"
	"strings"

	"c4bridge/engine"
	"c4bridge/types"
)

// Engine protocol:
// - Request: one line with the 1-based columns played so far, e.g. "4453\n".
// - Reply: free-form lines. The engine in best-move mode prints
//   "4453: 4 moves, Score: 2, Nodes: 1234, Time: 0.52 ms, Best move: column 4"
//   The markers may also arrive on separate lines, as in the verbose form
//   "Current position: 4453", "Number of moves: 4", "Best move: column 4, score: 2".
//   "Best move: column" ends the exchange.

const (
	markerBestMove = "Best move: column"
	markerTime     = "Time:"
	markerScore    = "Score:"
	markerNodes    = "Nodes:"
	markerMoves    = " moves"
	markerPosition = "Current position:"
)

// encodeRequest renders seq as a request line.
func encodeRequest(seq types.Sequence) string {
	return seq.String() + "\n"
}

// parseLine folds the markers found in line into reply.
// done is true when line carried the best move marker; err is set when that move is unusable.
// recognized is false when the line carried no marker at all.
func parseLine(line string, reply *engine.Reply) (done, recognized bool, err error) {
	if solved, ok := solvedEcho(line); ok {
		reply.Solved = solved
		recognized = true
	}
	if v, ok := valueAfter(line, markerPosition); ok {
		reply.Solved = strings.TrimSpace(v)
		recognized = true
	}
	if v, ok := valueAfter(line, markerTime); ok {
		v = strings.TrimSpace(strings.SplitN(v, "ms", 2)[0])
		if ms, perr := strconv.ParseFloat(v, 64); perr == nil {
			reply.ElapsedMs = &ms
		}
		recognized = true
	}
	if v, ok := valueAfter(line, markerScore); ok {
		if score, perr := strconv.Atoi(leadingInt(v)); perr == nil {
			reply.Score = &score
		}
		recognized = true
	}
	if v, ok := valueAfter(line, markerNodes); ok {
		if nodes, perr := strconv.ParseInt(leadingInt(v), 10, 64); perr == nil {
			reply.Nodes = &nodes
		}
		recognized = true
	}
	if v, ok := valueAfter(line, markerBestMove); ok {
		col, err := parseColumn(v)
		if err == nil {
			reply.Column = col
		}
		return true, true, err
	}
	return false, recognized, nil
}

// solvedEcho matches the "<sequence>: <n> moves" prefix of a best-move reply and returns it as
// "<sequence>, <n> moves".
func solvedEcho(line string) (string, bool) {
	i := strings.Index(line, markerMoves)
	if i == -1 {
		return "", false
	}
	head := line[:i]
	colon := strings.Index(head, ": ")
	if colon == -1 {
		return "", false
	}
	played, count := head[:colon], head[colon+2:]
	if _, err := types.ParseSequence(played); err != nil {
		return "", false
	}
	if count == "" || leadingInt(count) != count {
		return "", false
	}
	return played + ", " + count + " moves", true
}

// parseColumn converts the 1-based column the engine printed into a 0-based column.
// The timeout sentinel and out of range values are not moves.
func parseColumn(text string) (int, error) {
	n, err := strconv.Atoi(leadingInt(text))
	if err != nil {
		return 0, fmt.Errorf("%w: unreadable column %q", engine.ErrNoMove, strings.TrimSpace(text))
	}
	if n == engine.TimeoutColumn {
		return 0, engine.ErrTimeoutSentinel
	}
	if n < 1 || n > types.Cols {
		return 0, fmt.Errorf("%w: column %d out of range", engine.ErrNoMove, n)
	}
	return n - 1, nil
}

// valueAfter returns the text following the last occurrence of marker.
func valueAfter(line, marker string) (string, bool) {
	i := strings.LastIndex(line, marker)
	if i == -1 {
		return "", false
	}
	return line[i+len(marker):], true
}

// leadingInt returns the optionally signed integer at the start of s, ignoring leading spaces.
func leadingInt(s string) string {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= '0' && c <= '9') || (end == 0 && (c == '-' || c == '+')) {
			end++
			continue
		}
		break
	}
	return s[:end]
}
