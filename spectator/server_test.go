package spectator_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rhinci/Morskoy-boy/metrics"
	"github.com/rhinci/Morskoy-boy/pkg/game"
	"github.com/rhinci/Morskoy-boy/session"
	"github.com/rhinci/Morskoy-boy/spectator"
	"github.com/rhinci/Morskoy-boy/spectator/automock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type fakeSource struct {
	events chan session.Event

	mu        sync.Mutex
	snap      session.Snapshot
	cancelled bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		events: make(chan session.Event, 8),
		snap: session.Snapshot{
			MatchID:    "match-1",
			Phase:      session.EnemyTurn,
			PlayerName: "Tester",
			MyBoard:    [][]game.CellState{{game.ShipPresent, game.Miss}},
			Log:        []string{"[10:00:00] Game created, place your ships"},
		},
	}
}

func (f *fakeSource) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSource) Subscribe() (<-chan session.Event, func()) {
	return f.events, func() {
		f.mu.Lock()
		f.cancelled = true
		f.mu.Unlock()
	}
}

func (f *fakeSource) setPhase(p session.Phase) {
	f.mu.Lock()
	f.snap.Phase = p
	f.mu.Unlock()
}

func (f *fakeSource) isCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

func startServer(t *testing.T, src *fakeSource, opts ...spectator.Option) (*spectator.Server, *httptest.Server, context.CancelFunc) {
	t.Helper()
	opts = append(opts, spectator.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	srv := spectator.New(src, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = srv.Run(ctx)
		close(done)
	}()

	ts := httptest.NewServer(srv.Routes())
	stop := func() {
		cancel()
		<-done
	}
	t.Cleanup(func() {
		stop()
		ts.Close()
	})
	return srv, ts, stop
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// rawFrame keeps the enum fields as their text form.
type rawFrame struct {
	Type  string `json:"type"`
	Event struct {
		Kind  string `json:"kind"`
		Phase string `json:"phase"`
		Entry string `json:"entry"`
	} `json:"event"`
	State *struct {
		Phase   string     `json:"phase"`
		MatchID string     `json:"matchId"`
		MyBoard [][]string `json:"myBoard"`
	} `json:"state"`
	Viewer string `json:"viewer"`
}

func readRaw(t *testing.T, conn *websocket.Conn) rawFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	_, b, err := conn.ReadMessage()
	require.NoError(t, err)
	var frame rawFrame
	require.NoError(t, json.Unmarshal(b, &frame))
	return frame
}

func TestServer_Feed(t *testing.T) {
	// given
	src := newFakeSource()
	srv, ts, _ := startServer(t, src)
	conn := dial(t, ts)

	// when
	hello := readRaw(t, conn)

	// then
	assert.Equal(t, spectator.FrameHello, hello.Type)
	assert.NotEmpty(t, hello.Viewer)
	require.NotNil(t, hello.State)
	assert.Equal(t, "EnemyTurn", hello.State.Phase)
	assert.Equal(t, "match-1", hello.State.MatchID)
	assert.Equal(t, [][]string{{"Ship", "Miss"}}, hello.State.MyBoard)
	require.Eventually(t, func() bool { return srv.ViewerCount() == 1 }, waitFor, 5*time.Millisecond)

	t.Run("state changes carry the snapshot", func(t *testing.T) {
		src.setPhase(session.MyTurn)
		src.events <- session.Event{Kind: session.StateChanged, Phase: session.MyTurn, MyTurn: true}

		frame := readRaw(t, conn)
		assert.Equal(t, spectator.FrameEvent, frame.Type)
		assert.Equal(t, "StateChanged", frame.Event.Kind)
		assert.Equal(t, "MyTurn", frame.Event.Phase)
		require.NotNil(t, frame.State)
		assert.Equal(t, "MyTurn", frame.State.Phase)
	})
	t.Run("log entries come alone", func(t *testing.T) {
		src.events <- session.Event{Kind: session.LogAppended, Phase: session.MyTurn, Entry: "[10:00:01] Firing at (5,3)..."}

		frame := readRaw(t, conn)
		assert.Equal(t, "LogAppended", frame.Event.Kind)
		assert.Equal(t, "[10:00:01] Firing at (5,3)...", frame.Event.Entry)
		assert.Nil(t, frame.State)
	})
	t.Run("viewer leaving is noticed", func(t *testing.T) {
		require.NoError(t, conn.Close())

		require.Eventually(t, func() bool { return srv.ViewerCount() == 0 }, waitFor, 5*time.Millisecond)
	})
}

func TestServer_RunStopsCleanly(t *testing.T) {
	src := newFakeSource()
	srv, ts, stop := startServer(t, src)
	conn := dial(t, ts)
	readRaw(t, conn)
	require.Eventually(t, func() bool { return srv.ViewerCount() == 1 }, waitFor, 5*time.Millisecond)

	stop()

	assert.True(t, src.isCancelled())
	assert.Zero(t, srv.ViewerCount())
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

// connlessSender forwards frames to the mock without the viewer connection,
// which the viewer goroutine reads while the mock would format it.
type connlessSender struct {
	mock *automock.FrameSender
}

func (s connlessSender) SendFrame(frame spectator.Frame, _ spectator.Connection) error {
	return s.mock.SendFrame(frame, nil)
}

func TestServer_DropsBrokenViewer(t *testing.T) {
	// given
	src := newFakeSource()
	sender := &automock.FrameSender{}
	sender.On("SendFrame", mock.MatchedBy(func(f spectator.Frame) bool { return f.Type == spectator.FrameHello }), nil).Return(nil).Once()
	sender.On("SendFrame", mock.MatchedBy(func(f spectator.Frame) bool { return f.Type == spectator.FrameEvent }), nil).Return(errors.New("broken pipe")).Once()
	srv, ts, _ := startServer(t, src, spectator.WithSender(connlessSender{mock: sender}))
	dial(t, ts)
	require.Eventually(t, func() bool { return srv.ViewerCount() == 1 }, waitFor, 5*time.Millisecond)

	// when
	src.events <- session.Event{Kind: session.BoardChanged, Phase: session.EnemyTurn}

	// then
	require.Eventually(t, func() bool { return srv.ViewerCount() == 0 }, waitFor, 5*time.Millisecond)
	sender.AssertExpectations(t)
}

func TestServer_HTTP(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(reg))
	m.MatchFinished(session.OutcomeWin)
	src := newFakeSource()
	_, ts, _ := startServer(t, src, spectator.WithMetrics(m))

	tests := []struct {
		Name        string
		Path        string
		Status      int
		ContentType string
		Contains    string
	}{
		{Name: "state", Path: "/state", Status: http.StatusOK, ContentType: "application/json", Contains: `"phase":"EnemyTurn"`},
		{Name: "log", Path: "/log", Status: http.StatusOK, ContentType: "application/json", Contains: `"total":1`},
		{Name: "metrics", Path: "/metrics", Status: http.StatusOK, Contains: `seabattle_matches_total{outcome="win"} 1`},
		{Name: "unknown route", Path: "/nope", Status: http.StatusNotFound},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			// when
			resp, err := http.Get(ts.URL + test.Path)
			require.NoError(t, err)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			// then
			assert.Equal(t, test.Status, resp.StatusCode)
			if test.ContentType != "" {
				assert.Equal(t, test.ContentType, resp.Header.Get("Content-Type"))
			}
			assert.Contains(t, string(body), test.Contains)
		})
	}
}

func TestServer_NoMetricsRoute(t *testing.T) {
	_, ts, _ := startServer(t, newFakeSource())

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
