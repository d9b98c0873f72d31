package commands

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhinci/Morskoy-boy/session"
	"github.com/rhinci/Morskoy-boy/store"
)

func newTestConsole(t *testing.T, in string, start startFunc) (*console, *session.Session, *bytes.Buffer) {
	t.Helper()
	s := session.New(session.Options{
		PlayerName: "Tester",
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Rand:       rand.New(rand.NewSource(1)),
		Sink:       store.NewFileStore(filepath.Join(t.TempDir(), store.DefaultFileName)),
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	if start == nil {
		start = func(context.Context, *session.Session) error { return nil }
	}
	out := &bytes.Buffer{}
	return newConsole(s, strings.NewReader(in), out, start), s, out
}

func TestConsole_Execute(t *testing.T) {
	tests := []struct {
		Name    string
		Line    string
		Quit    bool
		Err     error
		ErrText string
	}{
		{Name: "Empty line", Line: "   "},
		{Name: "Place", Line: "place 4 0 0 h"},
		{Name: "Place vertical", Line: "PLACE 1 9 9 vertical"},
		{Name: "Place off the board", Line: "place 4 8 0 h", Err: session.ErrInvalidPlacement},
		{Name: "Place missing args", Line: "place 4 0", Err: errUsage},
		{Name: "Place bad number", Line: "place 4 a 0 h", ErrText: `"a" is not a number`},
		{Name: "Place bad direction", Line: "place 4 0 0 d", ErrText: "direction must be h or v"},
		{Name: "Shoot before the match", Line: "shoot 1 1", Err: session.ErrNotYourTurn},
		{Name: "Shoot missing args", Line: "shoot 1", Err: errUsage},
		{Name: "Chat without opponent", Line: "chat hi there", Err: session.ErrNotConnected},
		{Name: "Board", Line: "board"},
		{Name: "Help", Line: "help"},
		{Name: "Reset", Line: "reset"},
		{Name: "Unknown", Line: "fly 1 2", ErrText: `unknown command "fly"`},
		{Name: "Quit", Line: "quit", Quit: true},
		{Name: "Exit", Line: "exit", Quit: true},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			// given
			c, _, _ := newTestConsole(t, "", nil)

			// when
			quit, err := c.execute(context.Background(), test.Line)

			// then
			assert.Equal(t, test.Quit, quit)
			switch {
			case test.Err != nil:
				assert.ErrorIs(t, err, test.Err)
			case test.ErrText != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), test.ErrText)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestConsole_StartNeedsFleet(t *testing.T) {
	// given
	var called int
	start := func(ctx context.Context, s *session.Session) error {
		called++
		return s.Host(ctx, 0)
	}
	c, s, _ := newTestConsole(t, "", start)

	// when
	_, err := c.execute(context.Background(), "start")

	// then
	assert.ErrorIs(t, err, session.ErrFleetIncomplete)
	assert.Equal(t, 1, called)
	assert.Equal(t, session.Placement, s.Snapshot().Phase)
}

func TestConsole_AutoPrintsFleet(t *testing.T) {
	// given
	c, s, out := newTestConsole(t, "", nil)

	// when
	_, err := c.execute(context.Background(), "auto")

	// then
	require.NoError(t, err)
	assert.Len(t, s.Snapshot().Ships, 10)
	assert.Contains(t, out.String(), "Your fleet:")
}

func TestConsole_SaveAndLoad(t *testing.T) {
	// given
	c, s, _ := newTestConsole(t, "", nil)
	_, err := c.execute(context.Background(), "place 4 0 0 h")
	require.NoError(t, err)
	saved := s.Snapshot().Log

	// when
	_, err = c.execute(context.Background(), "save")
	require.NoError(t, err)
	_, err = c.execute(context.Background(), "load")

	// then
	require.NoError(t, err)
	log := s.Snapshot().Log
	require.NotEmpty(t, log)
	assert.Equal(t, saved, log[:len(saved)])
	assert.Contains(t, log[len(log)-1], "Game log loaded")
	assert.Empty(t, s.Snapshot().Ships)
}

func TestConsole_Run(t *testing.T) {
	// given
	c, s, out := newTestConsole(t, "place 4 0 0 h\nbogus\nquit\nplace 3 0 2 h\n", nil)

	// when
	done := make(chan error, 1)
	go func() { done <- c.run(context.Background()) }()

	// then
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("console did not stop on quit")
	}
	assert.Len(t, s.Snapshot().Ships, 1, "commands after quit are not executed")
	assert.Contains(t, out.String(), "Playing as Tester")
	assert.Contains(t, out.String(), `error: unknown command "bogus"`)
}

func TestConsole_RunStopsOnContext(t *testing.T) {
	// given
	pr, pw := io.Pipe()
	defer pw.Close()
	c, _, _ := newTestConsole(t, "", nil)
	c.in = pr
	ctx, cancel := context.WithCancel(context.Background())

	// when
	done := make(chan error, 1)
	go func() { done <- c.run(ctx) }()
	cancel()

	// then
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal(errors.New("console ignored context cancellation"))
	}
}
