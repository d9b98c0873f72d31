package peer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rhinci/Morskoy-boy/metrics"
	"github.com/rhinci/Morskoy-boy/pkg/protocol"
)

const (
	readBufferSize = 4096
	disconnectWait = time.Second
)

// Handlers receive transport events. They are called from the transport's
// goroutines and must not block for long.
type Handlers struct {
	OnMessage      func(protocol.Message)
	OnConnected    func()
	OnDisconnected func()
	OnError        func(error)
}

type Option func(*Transport)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Transport) {
		t.metrics = m
	}
}

func WithSender(sender MessageSender) Option {
	return func(t *Transport) {
		t.sender = sender
	}
}

// Transport carries messages over one peer connection. Hosting accepts
// exactly one peer; dialing connects to one. Each connection gets a single
// receive goroutine; sends are synchronous writes from the caller.
type Transport struct {
	handlers Handlers
	sender   MessageSender
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu       sync.Mutex
	listener net.Listener
	conn     Connection
	loopDone chan struct{}
	closing  bool

	writeMu sync.Mutex
}

func New(handlers Handlers, opts ...Option) *Transport {
	t := &Transport{
		handlers: handlers,
		sender:   &Sender{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "transport")
	return t
}

// Host binds port and accepts a single peer in the background. The listener
// is closed once a peer is accepted, when ctx is cancelled or on Disconnect.
func (t *Transport) Host(ctx context.Context, port int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil || t.listener != nil {
		return ErrAlreadyConnected
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", port, err)
	}
	t.listener = ln
	t.closing = false
	t.logger.Info("waiting for peer", "addr", ln.Addr().String())

	go t.accept(ctx, ln)
	return nil
}

// Addr returns the listening address while hosting, nil otherwise.
func (t *Transport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *Transport) accept(ctx context.Context, ln net.Listener) {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	conn, err := ln.Accept()
	_ = ln.Close()

	t.mu.Lock()
	if t.listener == ln {
		t.listener = nil
	}
	closing := t.closing
	t.mu.Unlock()

	if err != nil {
		if !closing && ctx.Err() == nil {
			t.reportError(fmt.Errorf("accept: %w", err))
		}
		return
	}
	if closing {
		_ = conn.Close()
		return
	}
	t.logger.Info("peer connected", "remote", conn.RemoteAddr().String())
	if err := t.Attach(conn); err != nil {
		t.reportError(err)
	}
}

// Dial connects to a hosting peer.
func (t *Transport) Dial(ctx context.Context, address string, port int) error {
	t.mu.Lock()
	if t.conn != nil || t.listener != nil {
		t.mu.Unlock()
		return ErrAlreadyConnected
	}
	t.closing = false
	t.mu.Unlock()

	var d net.Dialer
	target := net.JoinHostPort(address, strconv.Itoa(port))
	conn, err := d.DialContext(ctx, "tcp", target)
	if err != nil {
		return fmt.Errorf("dial %s: %w", target, err)
	}
	t.logger.Info("connected to peer", "remote", target)
	return t.Attach(conn)
}

// Attach adopts an established connection, reports it as connected and
// starts its receive loop.
func (t *Transport) Attach(conn Connection) error {
	t.mu.Lock()
	if t.conn != nil {
		t.mu.Unlock()
		_ = conn.Close()
		return ErrAlreadyConnected
	}
	t.conn = conn
	done := make(chan struct{})
	t.loopDone = done
	t.mu.Unlock()

	t.metrics.SetConnected(true)
	if t.handlers.OnConnected != nil {
		t.handlers.OnConnected()
	}
	go t.readLoop(conn, done)
	return nil
}

func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

func (t *Transport) RemoteAddr() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil || t.conn.RemoteAddr() == nil {
		return ""
	}
	return t.conn.RemoteAddr().String()
}

func (t *Transport) readLoop(conn Connection, done chan struct{}) {
	defer close(done)
	defer t.finish(conn)

	framer := &Framer{}
	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			frames, ferr := framer.Feed(buf[:n])
			for _, frame := range frames {
				t.dispatch(frame)
			}
			if ferr != nil {
				t.metrics.ProtocolError()
				t.reportError(&ProtocolError{Err: ferr})
			}
		}
		if err != nil {
			if !t.isClosing() && !errors.Is(err, io.EOF) {
				t.reportError(fmt.Errorf("read: %w", err))
			}
			return
		}
		if n == 0 {
			return
		}
	}
}

func (t *Transport) dispatch(frame []byte) {
	msg, err := protocol.Unmarshal(frame)
	if err != nil {
		t.metrics.ProtocolError()
		t.reportError(&ProtocolError{Frame: string(frame), Err: err})
		return
	}
	t.metrics.MessageReceived(string(msg.Type))
	if t.handlers.OnMessage != nil {
		t.handlers.OnMessage(msg)
	}
}

func (t *Transport) finish(conn Connection) {
	_ = conn.Close()
	t.mu.Lock()
	if t.conn == conn {
		t.conn = nil
	}
	t.mu.Unlock()

	t.metrics.SetConnected(false)
	t.logger.Info("connection closed")
	if t.handlers.OnDisconnected != nil {
		t.handlers.OnDisconnected()
	}
}

// Send writes msg to the peer. A write failure is fatal: the connection is
// closed and the receive loop reports the disconnection.
func (t *Transport) Send(msg protocol.Message) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	t.writeMu.Lock()
	err := t.sender.SendMessage(msg, conn)
	t.writeMu.Unlock()
	if err != nil {
		t.logger.Warn("send failed, closing connection", "type", msg.Type, "err", err)
		_ = conn.Close()
		return err
	}
	t.metrics.MessageSent(string(msg.Type))
	return nil
}

// Disconnect stops listening, closes the connection and waits a bounded time
// for the receive loop to exit. It is safe to call more than once.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.closing = true
	ln, conn, done := t.listener, t.conn, t.loopDone
	t.listener = nil
	t.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	if conn != nil {
		_ = conn.Close()
	}
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(disconnectWait):
		t.logger.Warn("receive loop did not stop in time")
	}
}

func (t *Transport) isClosing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closing
}

func (t *Transport) reportError(err error) {
	t.logger.Warn("transport error", "err", err)
	if t.handlers.OnError != nil {
		t.handlers.OnError(err)
	}
}
