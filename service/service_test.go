package service

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"c4bridge/engine"
	"c4bridge/engine/enginetest"
	"c4bridge/position"
	"c4bridge/record"
	"c4bridge/types"
)

var allColumns = []int{0, 1, 2, 3, 4, 5, 6}

// harness hands every new session its own scripted engine.
type harness struct {
	mu      sync.Mutex
	solvers map[string]*enginetest.Scripted
	steps   []enginetest.Step
}

func (h *harness) factory(id string) engine.Solver {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := enginetest.NewScripted(h.steps...)
	h.solvers[id] = s
	return s
}

func (h *harness) solver(id string) *enginetest.Scripted {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.solvers[id]
}

func newTestService(t *testing.T, steps []enginetest.Step, opts ...Option) (*Service, *harness) {
	t.Helper()
	h := &harness{solvers: make(map[string]*enginetest.Scripted), steps: steps}
	opts = append([]Option{WithSeed(1), WithLogger(zerolog.Nop())}, opts...)
	svc := New(NewRegistry(h.factory, zerolog.Nop()), opts...)
	t.Cleanup(func() { svc.Close() })
	return svc, h
}

func grid(t *testing.T, seq string, first types.Player) [][]int {
	t.Helper()
	s, err := types.ParseSequence(seq)
	require.NoError(t, err)
	b, err := s.Replay(first)
	require.NoError(t, err)
	return b.Grid()
}

func request(board [][]int, player int) Request {
	return Request{Board: board, CurrentPlayer: player, ValidMoves: allColumns}
}

func TestMoveTracksAGame(t *testing.T) {
	svc, h := newTestService(t, []enginetest.Step{enginetest.Move(3), enginetest.Move(4), enginetest.Move(2)})
	ctx := context.Background()

	d, err := svc.Move(ctx, request(grid(t, "", types.PlayerOne), 1))
	require.NoError(t, err)
	require.Equal(t, 3, d.Move)
	require.Equal(t, SourceEngine, d.Source)
	require.Equal(t, DefaultSession, d.SessionID)
	require.NoError(t, d.Err)

	d, err = svc.Move(ctx, request(grid(t, "45", types.PlayerOne), 1))
	require.NoError(t, err)
	require.Equal(t, 4, d.Move)
	require.Equal(t, "45", d.Sequence)

	d, err = svc.Move(ctx, request(grid(t, "4557", types.PlayerOne), 1))
	require.NoError(t, err)
	require.Equal(t, 2, d.Move)

	s := h.solver(DefaultSession)
	require.Equal(t, []string{"", "45", "4557"}, s.Requests())
	require.Equal(t, 1, s.Resets(), "only the opening request starts a game")
}

func TestMoveAsSecondMover(t *testing.T) {
	svc, h := newTestService(t, []enginetest.Step{enginetest.Move(3), enginetest.Move(0)})
	ctx := context.Background()

	d, err := svc.Move(ctx, request(grid(t, "4", types.PlayerOne), 2))
	require.NoError(t, err)
	require.Equal(t, 3, d.Move)
	require.Equal(t, "4", d.Sequence)

	d, err = svc.Move(ctx, request(grid(t, "446", types.PlayerOne), 2))
	require.NoError(t, err)
	require.Equal(t, "446", d.Sequence)
	require.Equal(t, 1, h.solver(DefaultSession).Resets())
}

func TestMoveNewGameFlag(t *testing.T) {
	svc, h := newTestService(t, nil)
	h.steps = []enginetest.Step{enginetest.Move(0), enginetest.Move(1), enginetest.Move(2)}
	ctx := context.Background()

	_, err := svc.Move(ctx, request(grid(t, "", types.PlayerOne), 1))
	require.NoError(t, err)
	_, err = svc.Move(ctx, request(grid(t, "12", types.PlayerOne), 1))
	require.NoError(t, err)

	// Same snapshot again, but the client says a new game started.
	yes := true
	req := request(grid(t, "", types.PlayerOne), 1)
	req.IsNewGame = &yes
	d, err := svc.Move(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "", d.Sequence)
	require.Equal(t, 2, h.solver(DefaultSession).Resets())
}

func TestMoveNoLegalMoves(t *testing.T) {
	svc, h := newTestService(t, nil)

	req := request(grid(t, "", types.PlayerOne), 1)
	req.ValidMoves = nil
	_, err := svc.Move(context.Background(), req)
	require.ErrorIs(t, err, ErrNoLegalMoves)
	require.Empty(t, h.solver(DefaultSession).Requests())
}

func TestMoveEngineFailureFallsBackToRandom(t *testing.T) {
	svc, _ := newTestService(t, []enginetest.Step{
		enginetest.Fail(engine.ErrTimeoutSentinel),
		enginetest.Fail(engine.ErrUnavailable),
	})
	ctx := context.Background()

	req := request(grid(t, "", types.PlayerOne), 1)
	req.ValidMoves = []int{2, 5}
	d, err := svc.Move(ctx, req)
	require.NoError(t, err)
	require.Equal(t, SourceFallback, d.Source)
	require.Contains(t, req.ValidMoves, d.Move)
	require.ErrorIs(t, d.Err, engine.ErrNoMove)

	// The fallback move was tracked, so the next snapshot still diffs cleanly.
	board := grid(t, "", types.PlayerOne)
	b, _ := types.BoardFromGrid(board)
	b.Drop(d.Move, types.PlayerOne)
	b.Drop(0, types.PlayerTwo)
	d, err = svc.Move(ctx, request(b.Grid(), 1))
	require.NoError(t, err)
	require.ErrorIs(t, d.Err, engine.ErrUnavailable)
}

func TestMoveIllegalEngineMove(t *testing.T) {
	svc, _ := newTestService(t, []enginetest.Step{enginetest.Move(6)})

	req := request(grid(t, "", types.PlayerOne), 1)
	req.ValidMoves = []int{1, 2, 3}
	d, err := svc.Move(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, SourceFallback, d.Source)
	require.Contains(t, req.ValidMoves, d.Move)
	require.ErrorIs(t, d.Err, ErrIllegalEngineMove)
}

func TestMoveInvalidInputFallsBackToFirstValid(t *testing.T) {
	floating := make([][]int, types.Rows)
	for i := range floating {
		floating[i] = make([]int, types.Cols)
	}
	floating[0][0] = 1

	tests := []struct {
		name string
		req  Request
		err  error
	}{
		{"floating piece", Request{Board: floating, CurrentPlayer: 1, ValidMoves: []int{4, 5}}, position.ErrInvalidBoard},
		{"short board", Request{Board: [][]int{{0}}, CurrentPlayer: 1, ValidMoves: []int{4, 5}}, ErrBadRequest},
		{"unknown player", Request{Board: grid(t, "", types.PlayerOne), CurrentPlayer: 3, ValidMoves: []int{4, 5}}, ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, h := newTestService(t, nil)
			d, err := svc.Move(context.Background(), tt.req)
			require.NoError(t, err)
			require.Equal(t, 4, d.Move)
			require.Equal(t, SourceFallback, d.Source)
			require.ErrorIs(t, d.Err, tt.err)
			require.Empty(t, h.solver(DefaultSession).Requests())
		})
	}
}

func TestMoveResyncsAfterMissedMoves(t *testing.T) {
	svc, h := newTestService(t, []enginetest.Step{enginetest.Move(3), enginetest.Move(1)})
	ctx := context.Background()

	_, err := svc.Move(ctx, request(grid(t, "", types.PlayerOne), 1))
	require.NoError(t, err)

	// Three pieces appeared at once: the ledger gives up and the board is reconstructed.
	d, err := svc.Move(ctx, request(grid(t, "4567", types.PlayerOne), 1))
	require.NoError(t, err)
	require.Equal(t, SourceEngine, d.Source)
	require.Equal(t, "4567", d.Sequence)
	require.Equal(t, []string{"", "4567"}, h.solver(DefaultSession).Requests())
}

func TestMoveRepeatedSnapshotKeepsSequence(t *testing.T) {
	svc, h := newTestService(t, []enginetest.Step{enginetest.Move(3), enginetest.Move(2)})
	ctx := context.Background()

	_, err := svc.Move(ctx, request(grid(t, "", types.PlayerOne), 1))
	require.NoError(t, err)

	// The client asks again before the opponent moved: nothing new, nothing rebuilt.
	d, err := svc.Move(ctx, request(grid(t, "4", types.PlayerOne), 1))
	require.NoError(t, err)
	require.Equal(t, SourceEngine, d.Source)
	require.Equal(t, []string{"", "4"}, h.solver(DefaultSession).Requests())
}

func TestMoveGameOverArchives(t *testing.T) {
	dir := t.TempDir()
	svc, h := newTestService(t, []enginetest.Step{
		enginetest.Move(0), enginetest.Move(0), enginetest.Move(0), enginetest.Move(0),
	}, WithArchive(dir, "bot"))
	ctx := context.Background()

	for _, seq := range []string{"", "12", "1212", "121212"} {
		d, err := svc.Move(ctx, request(grid(t, seq, types.PlayerOne), 1))
		require.NoError(t, err)
		require.Equal(t, 0, d.Move)
	}

	// Our fourth piece in column 1 ended the game, the client reports the final board.
	final := request(grid(t, "1212121", types.PlayerOne), 2)
	final.ValidMoves = []int{1, 2}
	for i := 0; i < 2; i++ {
		d, err := svc.Move(ctx, final)
		require.NoError(t, err)
		require.ErrorIs(t, d.Err, ErrGameOver)
		require.Equal(t, 1, d.Move)
	}

	games, err := record.ListGames(dir)
	require.NoError(t, err)
	require.Len(t, games, 1, "a repeated final board is archived once")
	require.Equal(t, "R+", games[0].Result)
	require.Equal(t, 7, games[0].MoveCount)
	require.Equal(t, "bot", games[0].PlayerOne)

	require.Equal(t, 3, h.solver(DefaultSession).Resets())
}

func TestMoveNewGameArchivesAbandonedGame(t *testing.T) {
	dir := t.TempDir()
	svc, _ := newTestService(t, []enginetest.Step{enginetest.Move(3), enginetest.Move(3)}, WithArchive(dir, "bot"))
	ctx := context.Background()

	_, err := svc.Move(ctx, request(grid(t, "", types.PlayerOne), 1))
	require.NoError(t, err)
	_, err = svc.Move(ctx, request(grid(t, "", types.PlayerOne), 1))
	require.NoError(t, err)

	games, err := record.ListGames(dir)
	require.NoError(t, err)
	require.Len(t, games, 1)
	require.Equal(t, "?", games[0].Result)
	require.Equal(t, 1, games[0].MoveCount)
}

type panickySolver struct{ enginetest.Scripted }

func (p *panickySolver) Solve(ctx context.Context, seq types.Sequence) (engine.Reply, error) {
	panic("boom")
}

func TestMoveRecoversFromPanic(t *testing.T) {
	svc := New(NewRegistry(func(string) engine.Solver { return &panickySolver{} }, zerolog.Nop()))
	defer svc.Close()

	req := request(grid(t, "", types.PlayerOne), 1)
	req.ValidMoves = []int{5, 6}
	d, err := svc.Move(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 5, d.Move)
	require.ErrorContains(t, d.Err, "boom")
}

func TestMovePublishesEvents(t *testing.T) {
	var events []Event
	svc, _ := newTestService(t, []enginetest.Step{enginetest.Move(2)}, WithObserver(func(e Event) {
		events = append(events, e)
	}))

	req := request(grid(t, "", types.PlayerOne), 1)
	req.SessionID = "table-1"
	_, err := svc.Move(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, events, 1)
	require.Equal(t, "table-1", events[0].SessionID)
	require.Equal(t, 2, events[0].Move)
	require.Equal(t, SourceEngine, events[0].Source)
	require.Empty(t, events[0].Error)
}

func TestSessionsAreIsolated(t *testing.T) {
	svc, h := newTestService(t, nil)
	h.steps = []enginetest.Step{enginetest.Move(3), enginetest.Move(3)}
	ctx := context.Background()

	a := request(grid(t, "", types.PlayerOne), 1)
	a.SessionID = "a"
	_, err := svc.Move(ctx, a)
	require.NoError(t, err)

	b := request(grid(t, "5", types.PlayerOne), 2)
	b.SessionID = "b"
	_, err = svc.Move(ctx, b)
	require.NoError(t, err)

	require.Equal(t, []string{""}, h.solver("a").Requests())
	require.Equal(t, []string{"5"}, h.solver("b").Requests())
	require.Equal(t, 2, svc.Sessions().Len())
}

func TestArchiveDirCreated(t *testing.T) {
	dir := t.TempDir() + "/nested/games"
	svc, _ := newTestService(t, []enginetest.Step{enginetest.Move(0), enginetest.Move(0)}, WithArchive(dir, "bot"))
	ctx := context.Background()

	_, err := svc.Move(ctx, request(grid(t, "", types.PlayerOne), 1))
	require.NoError(t, err)
	yes := true
	req := request(grid(t, "", types.PlayerOne), 1)
	req.IsNewGame = &yes
	_, err = svc.Move(ctx, req)
	require.NoError(t, err)

	_, err = os.Stat(dir)
	require.NoError(t, err)
}
