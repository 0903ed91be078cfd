package solver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"c4bridge/engine"
	"c4bridge/types"
)

// fakeEngine answers each request line with the lines returned by respond.
// A nil slice closes the output stream.
type fakeEngine struct {
	requests chan string
}

func startFakeEngine(t *testing.T, respond func(req string) []string, opts ...Option) (*Client, *fakeEngine) {
	t.Helper()
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	fe := &fakeEngine{requests: make(chan string, 16)}

	go func() {
		r := bufio.NewReader(reqR)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			req := strings.TrimRight(line, "\n")
			fe.requests <- req
			out := respond(req)
			if out == nil {
				respW.Close()
				return
			}
			for _, l := range out {
				if _, err := io.WriteString(respW, l+"\n"); err != nil {
					return
				}
			}
		}
	}()

	c := NewClient(reqW, respR, opts...)
	t.Cleanup(func() {
		c.Close()
		respR.Close()
		reqR.Close()
	})
	return c, fe
}

func seq(t *testing.T, text string) types.Sequence {
	t.Helper()
	s, err := types.ParseSequence(text)
	require.NoError(t, err)
	return s
}

func TestSolveSingleLineReply(t *testing.T) {
	c, fe := startFakeEngine(t, func(req string) []string {
		return []string{fmt.Sprintf("%s: %d moves, Score: -2, Nodes: 1234, Time: 0.52 ms, Best move: column 4", req, len(req))}
	})

	reply, err := c.Solve(context.Background(), seq(t, "4453"))
	require.NoError(t, err)
	require.Equal(t, "4453", <-fe.requests)
	require.Equal(t, 3, reply.Column)
	require.NotNil(t, reply.ElapsedMs)
	require.InDelta(t, 0.52, *reply.ElapsedMs, 1e-9)
	require.NotNil(t, reply.Score)
	require.Equal(t, -2, *reply.Score)
	require.NotNil(t, reply.Nodes)
	require.EqualValues(t, 1234, *reply.Nodes)
	require.Equal(t, "4453, 4 moves", reply.Solved)
}

func TestSolveMarkersOnSeparateLines(t *testing.T) {
	c, _ := startFakeEngine(t, func(req string) []string {
		return []string{
			"Board:",
			"| . . . . . . . |",
			"Time:12.5ms",
			"Best move: column 7, score: 3",
		}
	})

	reply, err := c.Solve(context.Background(), seq(t, "1"))
	require.NoError(t, err)
	require.Equal(t, 6, reply.Column)
	require.InDelta(t, 12.5, *reply.ElapsedMs, 1e-9)
	require.Nil(t, reply.Score)
}

func TestSolveEmptySequence(t *testing.T) {
	c, fe := startFakeEngine(t, func(req string) []string {
		return []string{"Best move: column 4"}
	})

	reply, err := c.Solve(context.Background(), types.Sequence{})
	require.NoError(t, err)
	require.Equal(t, "", <-fe.requests)
	require.Equal(t, 3, reply.Column)
}

func TestSolveTimeoutSentinel(t *testing.T) {
	c, _ := startFakeEngine(t, func(req string) []string {
		return []string{"Time: 9000 ms, Best move: column 9"}
	})

	reply, err := c.Solve(context.Background(), seq(t, "44"))
	require.ErrorIs(t, err, engine.ErrTimeoutSentinel)
	require.ErrorIs(t, err, engine.ErrNoMove)
	require.NotNil(t, reply.ElapsedMs, "time is kept even without a move")
}

func TestSolveOutOfRangeColumn(t *testing.T) {
	c, _ := startFakeEngine(t, func(req string) []string {
		return []string{"Best move: column 0"}
	})

	_, err := c.Solve(context.Background(), seq(t, "44"))
	require.ErrorIs(t, err, engine.ErrNoMove)
}

func TestSolveOutputClosed(t *testing.T) {
	c, _ := startFakeEngine(t, func(req string) []string { return nil })

	_, err := c.Solve(context.Background(), seq(t, "4"))
	require.ErrorIs(t, err, engine.ErrNoMove)
	require.ErrorIs(t, err, engine.ErrUnavailable)

	_, err = c.Solve(context.Background(), seq(t, "4"))
	require.ErrorIs(t, err, engine.ErrUnavailable, "a closed stream stays unusable")
}

func TestSolveBlankLineMidReply(t *testing.T) {
	c, _ := startFakeEngine(t, func(req string) []string {
		return []string{"Current position: 4", "", "Best move: column 2"}
	})

	_, err := c.Solve(context.Background(), seq(t, "4"))
	require.ErrorIs(t, err, engine.ErrNoMove)
	require.Error(t, c.Broken(), "the rest of the reply is still on its way")
}

func TestSolveSkipsLeadingBlankLine(t *testing.T) {
	c, _ := startFakeEngine(t, func(req string) []string {
		return []string{"", "Time taken to find move: 3 ms", "", "Best move: column 2"}
	})

	reply, err := c.Solve(context.Background(), seq(t, "4"))
	require.NoError(t, err)
	require.Equal(t, 1, reply.Column)
	require.NoError(t, c.Broken())
}

func TestSolveNeverReturnsLateReply(t *testing.T) {
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	go func() {
		r := bufio.NewReader(reqR)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if strings.TrimSpace(line) == "4" {
				io.WriteString(respW, "4: 1 moves\n\n")
				time.Sleep(50 * time.Millisecond)
				io.WriteString(respW, "Best move: column 2\n")
				continue
			}
			io.WriteString(respW, "Best move: column 7\n")
		}
	}()
	c := NewClient(reqW, respR)
	t.Cleanup(func() {
		c.Close()
		respR.Close()
		reqR.Close()
	})

	_, err := c.Solve(context.Background(), seq(t, "4"))
	require.ErrorIs(t, err, engine.ErrNoMove)
	require.Error(t, c.Broken())

	time.Sleep(100 * time.Millisecond)
	reply, err := c.Solve(context.Background(), seq(t, "44"))
	require.ErrorIs(t, err, engine.ErrUnavailable)
	require.NotEqual(t, 1, reply.Column, "the answer for 4 must not be used for 44")
}

func TestSolveLineCap(t *testing.T) {
	c, _ := startFakeEngine(t, func(req string) []string {
		out := make([]string, 150)
		for i := range out {
			out[i] = fmt.Sprintf("thinking %d", i)
		}
		return append(out, "Best move: column 1")
	}, WithMaxLines(100))

	_, err := c.Solve(context.Background(), seq(t, "4"))
	require.ErrorIs(t, err, engine.ErrNoMove)
	require.Contains(t, err.Error(), "100 lines")
	require.Error(t, c.Broken())
}

func TestSolveStalledEngine(t *testing.T) {
	c, _ := startFakeEngine(t, func(req string) []string {
		return []string{}
	}, WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := c.Solve(context.Background(), seq(t, "4"))
	require.ErrorIs(t, err, engine.ErrNoMove)
	require.Less(t, time.Since(start), 5*time.Second)
	require.Error(t, c.Broken(), "a stalled client must not be reused")
}

func TestSolveContextCancelled(t *testing.T) {
	c, _ := startFakeEngine(t, func(req string) []string {
		return []string{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Solve(ctx, seq(t, "4"))
	require.ErrorIs(t, err, engine.ErrNoMove)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseLineSolvedEcho(t *testing.T) {
	tests := []struct {
		line   string
		solved string
	}{
		{"4453: 4 moves, Score: -2", "4453, 4 moves"},
		{": 0 moves, Best move: column 4", ", 0 moves"},
		{"Current position: 4453", "4453"},
		{"Number of moves: 4", ""},
		{"Board: 3 moves", ""},
	}
	for _, tt := range tests {
		var reply engine.Reply
		_, _, err := parseLine(tt.line, &reply)
		require.NoError(t, err, tt.line)
		require.Equal(t, tt.solved, reply.Solved, tt.line)
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line       string
		done       bool
		recognized bool
		column     int
	}{
		{"Best move: column 1", true, true, 0},
		{"Best move: column 7, score: 1", true, true, 6},
		{"44: 2 moves, Score: 0", false, true, 0},
		{"Invalid move: 8", false, false, 0},
		{"Time taken to find move: 3 ms", false, false, 0},
	}
	for _, tt := range tests {
		var reply engine.Reply
		done, recognized, err := parseLine(tt.line, &reply)
		require.NoError(t, err, tt.line)
		require.Equal(t, tt.done, done, tt.line)
		require.Equal(t, tt.recognized, recognized, tt.line)
		require.Equal(t, tt.column, reply.Column, tt.line)
	}
}
