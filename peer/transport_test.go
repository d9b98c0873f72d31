package peer_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rhinci/Morskoy-boy/peer"
	"github.com/rhinci/Morskoy-boy/peer/automock"
	"github.com/rhinci/Morskoy-boy/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

type recorder struct {
	messages     chan protocol.Message
	errs         chan error
	connected    atomic.Int32
	disconnected atomic.Int32
	down         chan struct{}
}

func newRecorder() *recorder {
	return &recorder{
		messages: make(chan protocol.Message, 16),
		errs:     make(chan error, 16),
		down:     make(chan struct{}, 4),
	}
}

func (r *recorder) handlers() peer.Handlers {
	return peer.Handlers{
		OnMessage: func(m protocol.Message) { r.messages <- m },
		OnConnected: func() {
			r.connected.Add(1)
		},
		OnDisconnected: func() {
			r.disconnected.Add(1)
			r.down <- struct{}{}
		},
		OnError: func(err error) { r.errs <- err },
	}
}

func (r *recorder) nextMessage(t *testing.T) protocol.Message {
	t.Helper()
	select {
	case m := <-r.messages:
		return m
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for message")
		return protocol.Message{}
	}
}

func (r *recorder) waitDown(t *testing.T) {
	t.Helper()
	select {
	case <-r.down:
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for disconnect")
	}
}

func TestTransport_HostAndDial(t *testing.T) {
	// given
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hostRec, joinRec := newRecorder(), newRecorder()
	host := peer.New(hostRec.handlers())
	join := peer.New(joinRec.handlers())
	defer host.Disconnect()
	defer join.Disconnect()

	require.NoError(t, host.Host(ctx, 0))
	addr, ok := host.Addr().(*net.TCPAddr)
	require.True(t, ok)

	// when
	require.NoError(t, join.Dial(ctx, "127.0.0.1", addr.Port))
	require.NoError(t, join.Send(protocol.Build("joiner", protocol.Connect{PlayerName: "joiner"})))

	// then
	got := hostRec.nextMessage(t)
	assert.Equal(t, protocol.KindConnect, got.Type)
	assert.Equal(t, "joiner", got.GetString("playerName", ""))
	assert.True(t, host.Connected())
	assert.True(t, join.Connected())
	assert.EqualValues(t, 1, hostRec.connected.Load())
	assert.EqualValues(t, 1, joinRec.connected.Load())
	assert.Nil(t, host.Addr())

	// and back
	require.NoError(t, host.Send(protocol.Build("host", protocol.StartGame{YouGoFirst: true})))
	got = joinRec.nextMessage(t)
	assert.Equal(t, protocol.KindStartGame, got.Type)
	assert.True(t, got.GetBool("youGoFirst", false))
}

func TestTransport_HostTwice(t *testing.T) {
	tr := peer.New(peer.Handlers{})
	defer tr.Disconnect()

	require.NoError(t, tr.Host(context.Background(), 0))

	assert.ErrorIs(t, tr.Host(context.Background(), 0), peer.ErrAlreadyConnected)
}

func TestTransport_DialRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	tr := peer.New(peer.Handlers{})
	err = tr.Dial(context.Background(), "127.0.0.1", port)

	assert.Error(t, err)
	assert.False(t, tr.Connected())
}

func TestTransport_MalformedFrameKeepsLoopRunning(t *testing.T) {
	// given
	rec := newRecorder()
	tr := peer.New(rec.handlers())
	local, remote := net.Pipe()
	defer remote.Close()
	require.NoError(t, tr.Attach(local))
	defer tr.Disconnect()

	// when
	_, err := remote.Write([]byte("not json\n{\"type\":\"Bogus\",\"data\":{}}\n"))
	require.NoError(t, err)
	body, err := protocol.Marshal(protocol.Build("peer", protocol.Chat{Text: "hi"}))
	require.NoError(t, err)
	_, err = remote.Write(append(body, '\n'))
	require.NoError(t, err)

	// then
	got := rec.nextMessage(t)
	assert.Equal(t, protocol.KindChat, got.Type)
	assert.Equal(t, "hi", got.GetString("text", ""))

	for _, want := range []error{protocol.ErrMalformed, protocol.ErrUnknownKind} {
		select {
		case err := <-rec.errs:
			var perr *peer.ProtocolError
			require.True(t, errors.As(err, &perr))
			assert.ErrorIs(t, err, want)
		case <-time.After(waitFor):
			t.Fatal("timed out waiting for protocol error")
		}
	}
	assert.True(t, tr.Connected())
}

func TestTransport_Disconnect(t *testing.T) {
	t.Run("local disconnect fires once and is idempotent", func(t *testing.T) {
		// given
		rec := newRecorder()
		tr := peer.New(rec.handlers())
		local, remote := net.Pipe()
		defer remote.Close()
		require.NoError(t, tr.Attach(local))

		// when
		tr.Disconnect()
		tr.Disconnect()

		// then
		rec.waitDown(t)
		assert.False(t, tr.Connected())
		assert.EqualValues(t, 1, rec.disconnected.Load())
		assert.ErrorIs(t, tr.Send(protocol.Build("me", protocol.Chat{Text: "x"})), peer.ErrNotConnected)
	})
	t.Run("remote close is reported", func(t *testing.T) {
		// given
		rec := newRecorder()
		tr := peer.New(rec.handlers())
		local, remote := net.Pipe()
		require.NoError(t, tr.Attach(local))

		// when
		require.NoError(t, remote.Close())

		// then
		rec.waitDown(t)
		assert.False(t, tr.Connected())
		select {
		case err := <-rec.errs:
			t.Fatalf("unexpected error on orderly close: %v", err)
		default:
		}
	})
	t.Run("dial rejected during teardown keeps it quiet", func(t *testing.T) {
		// given
		rec := newRecorder()
		tr := peer.New(rec.handlers())
		release := make(chan struct{})
		closed := make(chan struct{})
		var closeOnce sync.Once
		conn := &automock.Connection{}
		conn.On("Read", mock.Anything).Run(func(mock.Arguments) { <-release }).Return(0, errors.New("use of closed connection")).Once()
		conn.On("Close").Run(func(mock.Arguments) { closeOnce.Do(func() { close(closed) }) }).Return(nil)
		require.NoError(t, tr.Attach(conn))

		disconnected := make(chan struct{})
		go func() {
			tr.Disconnect()
			close(disconnected)
		}()
		<-closed

		// when
		err := tr.Dial(context.Background(), "127.0.0.1", 1)
		close(release)

		// then
		assert.ErrorIs(t, err, peer.ErrAlreadyConnected)
		rec.waitDown(t)
		<-disconnected
		select {
		case err := <-rec.errs:
			t.Fatalf("unexpected error after disconnect: %v", err)
		default:
		}
		conn.AssertExpectations(t)
	})
}

func TestTransport_Send(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		tr := peer.New(peer.Handlers{})

		err := tr.Send(protocol.Build("me", protocol.Chat{Text: "x"}))

		assert.ErrorIs(t, err, peer.ErrNotConnected)
	})
	t.Run("write failure closes the connection", func(t *testing.T) {
		// given
		rec := newRecorder()
		sender := &automock.MessageSender{}
		sender.On("SendMessage", mock.Anything, mock.Anything).Return(errors.New("broken")).Once()

		tr := peer.New(rec.handlers(), peer.WithSender(sender))
		local, remote := net.Pipe()
		defer remote.Close()
		require.NoError(t, tr.Attach(local))

		// when
		err := tr.Send(protocol.Build("me", protocol.Shot{X: 1, Y: 2}))

		// then
		assert.EqualError(t, err, "broken")
		rec.waitDown(t)
		assert.False(t, tr.Connected())
		sender.AssertExpectations(t)
	})
}
