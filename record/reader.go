package record

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"c4bridge/types"
)

// GameInfo holds metadata parsed from a record header.
type GameInfo struct {
	FilePath  string
	FileName  string
	PlayerOne string
	PlayerTwo string
	Date      string
	Result    string
	MoveCount int
}

// Entry is one recorded move.
type Entry struct {
	Column int
	Player types.Player
}

// ParseHeader reads a record file and extracts metadata from the root node.
func ParseHeader(filePath string) (*GameInfo, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	content := string(data)
	if !strings.Contains(content, "(;") {
		return nil, fmt.Errorf("%s: not a game record", filePath)
	}
	props := parseProperties(content)

	info := &GameInfo{
		FilePath:  filePath,
		FileName:  filepath.Base(filePath),
		PlayerOne: props["PR"],
		PlayerTwo: props["PY"],
		Date:      props["DT"],
		Result:    props["RE"],
		MoveCount: len(ParseMoves(content)),
	}

	return info, nil
}

// ReplayToEnd parses a record file and replays all moves to produce the final board.
// Moves into a full or unknown column are skipped. Returns the board and the move count.
func ReplayToEnd(filePath string) (types.Board, int, error) {
	var board types.Board
	data, err := os.ReadFile(filePath)
	if err != nil {
		return board, 0, err
	}

	moves := ParseMoves(string(data))
	for _, m := range moves {
		board.Drop(m.Column, m.Player)
	}
	return board, len(moves), nil
}

// ParseMoves returns the moves of a record in order.
func ParseMoves(content string) []Entry {
	var moves []Entry
	for _, node := range parseNodes(content) {
		if e, ok := parseMoveNode(node); ok {
			moves = append(moves, e)
		}
	}
	return moves
}

// Sequence returns the recorded moves as an engine sequence together with the first mover.
func Sequence(moves []Entry) (types.Sequence, types.Player) {
	seq := make(types.Sequence, 0, len(moves))
	first := types.PlayerOne
	for i, m := range moves {
		if i == 0 {
			first = m.Player
		}
		seq = append(seq, types.Move(m.Column))
	}
	return seq, first
}

// parseProperties extracts KEY[value] pairs from the root node.
func parseProperties(content string) map[string]string {
	props := make(map[string]string)

	start := strings.Index(content, "(;")
	if start == -1 {
		return props
	}
	start += 2

	// Root node ends at the next unbracketed ";" or ")".
	end := skipNode(content, start)
	extractProps(content[start:end], props)
	return props
}

// extractProps parses KEY[value] pairs from a node string into the map.
func extractProps(node string, props map[string]string) {
	i := 0
	for i < len(node) {
		for i < len(node) && strings.ContainsRune(" \n\r\t", rune(node[i])) {
			i++
		}
		if i >= len(node) {
			break
		}

		keyStart := i
		for i < len(node) && node[i] >= 'A' && node[i] <= 'Z' {
			i++
		}
		if i == keyStart {
			i++
			continue
		}
		key := node[keyStart:i]

		for i < len(node) && node[i] == '[' {
			i++
			valStart := i
			for i < len(node) && node[i] != ']' {
				if node[i] == '\\' && i+1 < len(node) {
					i++
				}
				i++
			}
			props[key] = unescape(node[valStart:i])
			if i < len(node) {
				i++
			}
		}
	}
}

// skipNode returns the index of the ";" or ")" ending the node that starts at i.
func skipNode(content string, i int) int {
	for i < len(content) && content[i] != ';' && content[i] != ')' {
		if content[i] == '[' {
			i++
			for i < len(content) && content[i] != ']' {
				if content[i] == '\\' && i+1 < len(content) {
					i++
				}
				i++
			}
		}
		i++
	}
	if i > len(content) {
		return len(content)
	}
	return i
}

// parseNodes returns all node strings after the root node.
func parseNodes(content string) []string {
	var nodes []string

	start := strings.Index(content, "(;")
	if start == -1 {
		return nodes
	}
	i := skipNode(content, start+2)

	for i < len(content) && content[i] == ';' {
		end := skipNode(content, i+1)
		nodes = append(nodes, content[i:end])
		i = end
	}
	return nodes
}

// parseMoveNode extracts the player and column from a move node like ";R[d]".
func parseMoveNode(node string) (Entry, bool) {
	node = strings.TrimSpace(node)
	if len(node) < 2 || node[0] != ';' {
		return Entry{}, false
	}

	var p types.Player
	switch node[1] {
	case 'R':
		p = types.PlayerOne
	case 'Y':
		p = types.PlayerTwo
	default:
		return Entry{}, false
	}

	lb := strings.Index(node, "[")
	rb := strings.Index(node, "]")
	if lb == -1 || rb != lb+2 {
		return Entry{}, false
	}

	col := int(node[lb+1]) - 'a'
	if col < 0 || col >= types.Cols {
		return Entry{}, false
	}
	return Entry{Column: col, Player: p}, true
}

// ListGames scans a directory for records and returns their parsed headers,
// newest first (file names start with a timestamp).
func ListGames(dir string) ([]GameInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read archive dir: %w", err)
	}

	var games []GameInfo
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		info, err := ParseHeader(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		games = append(games, *info)
	}

	return games, nil
}
