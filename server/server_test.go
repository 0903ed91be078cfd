package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"c4bridge/engine"
	"c4bridge/engine/enginetest"
	"c4bridge/service"
	"c4bridge/types"
)

func newTestServer(t *testing.T, steps ...enginetest.Step) (*httptest.Server, *Hub) {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	factory := func(string) engine.Solver { return enginetest.NewScripted(steps...) }
	svc := service.New(service.NewRegistry(factory, zerolog.Nop()),
		service.WithSeed(7),
		service.WithObserver(hub.Publish),
	)
	ts := httptest.NewServer(New(svc, hub, zerolog.Nop()).Router())

	done := make(chan struct{})
	go hub.Run(done)
	t.Cleanup(func() {
		close(done)
		ts.Close()
		svc.Close()
	})
	return ts, hub
}

func emptyGrid() [][]int {
	var b types.Board
	return b.Grid()
}

func postMove(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url+"/api/connect4-move", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/test")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	require.Equal(t, "ok", body["status"])
}

func TestMoveEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, enginetest.Move(3))

	resp := postMove(t, ts.URL, map[string]any{
		"board":          emptyGrid(),
		"current_player": 1,
		"valid_moves":    []int{0, 1, 2, 3, 4, 5, 6},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "engine", resp.Header.Get("X-Move-Source"))
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, 3, decode[moveResponse](t, resp).Move)
}

func TestMoveEndpointFallback(t *testing.T) {
	ts, _ := newTestServer(t, enginetest.Fail(engine.ErrNoMove))

	resp := postMove(t, ts.URL, map[string]any{
		"board":          emptyGrid(),
		"current_player": 1,
		"valid_moves":    []int{5},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "fallback", resp.Header.Get("X-Move-Source"))
	require.Equal(t, 5, decode[moveResponse](t, resp).Move)
}

func TestMoveEndpointErrors(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/connect4-move", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid payload", decode[map[string]string](t, resp)["error"])

	resp = postMove(t, ts.URL, map[string]any{
		"board":          emptyGrid(),
		"current_player": 1,
		"valid_moves":    []int{},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, service.ErrNoLegalMoves.Error(), decode[map[string]string](t, resp)["error"])
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/connect4-move", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), "POST")
}

func TestSessionEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/sessions", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := decode[map[string]string](t, resp)["session_id"]
	require.NotEmpty(t, id)

	resp, err = http.Get(ts.URL + "/api/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()
	infos := decode[[]service.SessionInfo](t, resp)
	require.Len(t, infos, 1)
	require.Equal(t, id, infos[0].ID)

	del := func(id string) int {
		req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/sessions/"+id, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}
	require.Equal(t, http.StatusNoContent, del(id))
	require.Equal(t, http.StatusNotFound, del(id))
}

func TestSpectatorFeed(t *testing.T) {
	ts, hub := newTestServer(t, enginetest.Move(2))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/moves"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "sessions", msg.Type)
	require.Eventually(t, hub.HasClients, 2*time.Second, 10*time.Millisecond)

	resp := postMove(t, ts.URL, map[string]any{
		"board":          emptyGrid(),
		"current_player": 1,
		"valid_moves":    []int{0, 1, 2, 3, 4, 5, 6},
		"session_id":     "watched",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "move", msg.Type)
	var event service.Event
	require.NoError(t, json.Unmarshal(msg.Payload, &event))
	require.Equal(t, "watched", event.SessionID)
	require.Equal(t, 2, event.Move)
	require.Equal(t, "engine", event.Source)
}

func TestServeStopsOnCancel(t *testing.T) {
	svc := service.New(service.NewRegistry(func(string) engine.Solver { return enginetest.NewScripted() }, zerolog.Nop()))
	defer svc.Close()
	srv := New(svc, NewHub(zerolog.Nop()), zerolog.Nop(), WithShutdownTimeout(time.Second))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/test")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
