// Package session runs one side of a match. A Session owns the local board,
// the shadow of the opponent's board, the turn state and the match log, and
// keeps them in step with the opponent through a peer transport.
//
// All state is owned by a single goroutine started with Run. Public methods
// and transport callbacks hand closures to that goroutine, so nothing in a
// Session is shared between goroutines.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rhinci/Morskoy-boy/metrics"
	"github.com/rhinci/Morskoy-boy/peer"
	"github.com/rhinci/Morskoy-boy/pkg"
	"github.com/rhinci/Morskoy-boy/pkg/game"
	"github.com/rhinci/Morskoy-boy/pkg/protocol"
	"github.com/rhinci/Morskoy-boy/store"
)

type Phase int

const (
	Placement Phase = iota
	WaitingForConnection
	MyTurn
	EnemyTurn
	GameOver
)

var phaseNames = map[Phase]string{
	Placement:            "Placement",
	WaitingForConnection: "WaitingForConnection",
	MyTurn:               "MyTurn",
	EnemyTurn:            "EnemyTurn",
	GameOver:             "GameOver",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "Unknown"
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Active reports whether the phase is turn bearing.
func (p Phase) Active() bool {
	return p == MyTurn || p == EnemyTurn
}

var (
	ErrWrongPhase       = errors.New("operation not allowed in the current phase")
	ErrInvalidPlacement = errors.New("ship cannot be placed there")
	ErrFleetIncomplete  = errors.New("not all ships are placed")
	ErrNotYourTurn      = errors.New("it is not your turn")
	ErrOutOfBounds      = errors.New("coordinates are outside the board")
	ErrAlreadyShot      = errors.New("cell was already shot")
	ErrShotPending      = errors.New("waiting for the result of the previous shot")
	ErrNotConnected     = errors.New("not connected to an opponent")
	ErrNoSink           = errors.New("no log storage configured")
	ErrClosed           = errors.New("session is not running")
)

// Match outcomes.
const (
	OutcomeWin     = "win"
	OutcomeLoss    = "loss"
	OutcomeForfeit = "forfeit"
)

const (
	inboxSize     = 256
	defaultLinger = 5 * time.Second
	saveTimeout   = 10 * time.Second
)

// Transport is the peer link a session drives. *peer.Transport satisfies it.
type Transport interface {
	Host(ctx context.Context, port int) error
	Dial(ctx context.Context, address string, port int) error
	Send(msg protocol.Message) error
	Disconnect()
	Connected() bool
}

var _ Transport = (*peer.Transport)(nil)

// TransportFactory builds the transport for one match.
type TransportFactory func(handlers peer.Handlers) Transport

type Options struct {
	// PlayerName is sent to the opponent. Default: Player_NNNN.
	PlayerName string

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Sink stores the match log. The log is saved to it when a match ends.
	Sink store.Sink

	// Rand drives the coin flip and auto placement. Default: time seeded.
	Rand *rand.Rand

	// Linger is how long the connection stays open after the match ends.
	Linger time.Duration

	// NewTransport defaults to a *peer.Transport.
	NewTransport TransportFactory

	// Clock stamps log entries. Default: time.Now.
	Clock func() time.Time
}

type Session struct {
	inbox chan func()
	done  chan struct{}

	name         string
	logger       *slog.Logger
	metrics      *metrics.Metrics
	sink         store.Sink
	rng          *rand.Rand
	linger       time.Duration
	newTransport TransportFactory

	// Owned by the Run goroutine.
	matchID        string
	phase          Phase
	host           bool
	opponent       string
	outcome        string
	myBoard        *game.Board
	enemyBoard     *game.Board
	log            *eventLog
	transport      Transport
	pending        *game.Position
	lingerTimer    *time.Timer
	subscribers    map[int]chan Event
	nextSubscriber int
}

func New(opts Options) *Session {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	name := opts.PlayerName
	if name == "" {
		name = fmt.Sprintf("Player_%d", 1000+rng.Intn(9000))
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	linger := opts.Linger
	if linger <= 0 {
		linger = defaultLinger
	}

	s := &Session{
		inbox:       make(chan func(), inboxSize),
		done:        make(chan struct{}),
		name:        name,
		logger:      logger.With("component", "session", "player", name),
		metrics:     opts.Metrics,
		sink:        opts.Sink,
		rng:         rng,
		linger:      linger,
		matchID:     uuid.NewString(),
		phase:       Placement,
		myBoard:     game.NewBoard(),
		enemyBoard:  game.NewBoard(),
		log:         newEventLog(pkg.MaxLogEntries, opts.Clock),
		subscribers: make(map[int]chan Event),
	}
	s.newTransport = opts.NewTransport
	if s.newTransport == nil {
		s.newTransport = func(h peer.Handlers) Transport {
			return peer.New(h, peer.WithLogger(logger), peer.WithMetrics(opts.Metrics))
		}
	}

	s.addLog("Game created, place your ships")
	return s
}

// Run processes commands and transport events until ctx is done. On exit the
// transport is disconnected and all subscriptions are closed.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.stopLinger()
			if s.transport != nil {
				s.transport.Disconnect()
				s.transport = nil
			}
			s.closeSubscribers()
			return nil
		case fn := <-s.inbox:
			fn()
		}
	}
}

// call runs fn on the session goroutine and waits for its result.
func (s *Session) call(fn func() error) error {
	reply := make(chan error, 1)
	select {
	case s.inbox <- func() { reply <- fn() }:
	case <-s.done:
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrClosed
	}
}

// post queues fn without waiting for it to run.
func (s *Session) post(fn func()) {
	select {
	case s.inbox <- fn:
	case <-s.done:
	}
}

func (s *Session) Name() string {
	return s.name
}

// PlaceShip places a ship of size with its bow at (x, y).
func (s *Session) PlaceShip(size, x, y int, horizontal bool) error {
	return s.call(func() error {
		if s.phase != Placement {
			s.addLog("Ships cannot be placed now, the game has started")
			return ErrWrongPhase
		}
		if !s.myBoard.PlaceShip(game.CreateShip(size), x, y, horizontal) {
			s.addLog(fmt.Sprintf("Could not place a ship of size %d at (%d,%d)", size, x, y))
			return ErrInvalidPlacement
		}
		s.addLog(fmt.Sprintf("Ship of size %d placed at (%d,%d)", size, x, y))
		s.emit(BoardChanged, "")
		s.checkAllPlaced()
		return nil
	})
}

// AutoPlace replaces the current placement with a random complete fleet.
func (s *Session) AutoPlace() error {
	return s.call(func() error {
		if s.phase != Placement {
			s.addLog("Ships cannot be placed now, the game has started")
			return ErrWrongPhase
		}
		if err := s.myBoard.AutoPlaceAllShips(s.rng); err != nil {
			s.addLog("Automatic placement failed")
			s.emit(BoardChanged, "")
			return err
		}
		s.addLog("All ships placed automatically")
		s.emit(BoardChanged, "")
		s.checkAllPlaced()
		return nil
	})
}

func (s *Session) checkAllPlaced() {
	if s.myBoard.AllShipsPlaced() {
		s.addLog("All ships placed! Ready to play.")
	}
}

func (s *Session) readyToConnect() error {
	if s.phase != Placement {
		return ErrWrongPhase
	}
	if !s.myBoard.AllShipsPlaced() {
		s.addLog("Place all ships before starting a game")
		return ErrFleetIncomplete
	}
	return nil
}

// Host listens on port and waits for one opponent in the background.
func (s *Session) Host(ctx context.Context, port int) error {
	return s.call(func() error {
		if err := s.readyToConnect(); err != nil {
			return err
		}
		t := s.attachTransport()
		if err := t.Host(ctx, port); err != nil {
			s.transport = nil
			s.addLog(fmt.Sprintf("Could not start server: %v", err))
			return err
		}
		s.host = true
		s.addLog(fmt.Sprintf("Server started on port %d. Waiting for connection...", port))
		s.setPhase(WaitingForConnection)
		return nil
	})
}

// Join dials a hosting opponent. It returns once the connection is made or
// has failed; on failure the session is back in Placement.
func (s *Session) Join(ctx context.Context, address string, port int) error {
	var t Transport
	err := s.call(func() error {
		if err := s.readyToConnect(); err != nil {
			return err
		}
		t = s.attachTransport()
		s.host = false
		s.addLog(fmt.Sprintf("Connecting to %s:%d...", address, port))
		s.setPhase(WaitingForConnection)
		return nil
	})
	if err != nil {
		return err
	}

	if err := t.Dial(ctx, address, port); err != nil {
		s.post(func() {
			if s.transport != t {
				return
			}
			s.transport = nil
			s.addLog(fmt.Sprintf("Could not connect to server: %v", err))
			if s.phase == WaitingForConnection {
				s.setPhase(Placement)
			}
		})
		return err
	}
	return nil
}

// Shoot fires at (x, y) on the opponent's board. The outcome arrives later
// as a ShotResult from the opponent.
func (s *Session) Shoot(x, y int) error {
	return s.call(func() error {
		if s.phase != MyTurn {
			s.addLog("It is not your turn!")
			return ErrNotYourTurn
		}
		if x < 0 || y < 0 || x >= pkg.BoardSize || y >= pkg.BoardSize {
			s.addLog(fmt.Sprintf("(%d,%d) is outside the board", x, y))
			return ErrOutOfBounds
		}
		if s.pending != nil {
			return ErrShotPending
		}
		if s.enemyBoard.CellState(x, y).Resolved() {
			s.addLog(fmt.Sprintf("You already fired at (%d,%d)!", x, y))
			return ErrAlreadyShot
		}

		s.addLog(fmt.Sprintf("Firing at (%d,%d)...", x, y))
		if err := s.send(protocol.Shot{X: x, Y: y}); err != nil {
			s.addLog("Could not send the shot!")
			return err
		}
		s.pending = &game.Position{X: x, Y: y}
		s.addLog("Waiting for the opponent's reply...")
		return nil
	})
}

// Chat sends text to the opponent. Empty text is ignored.
func (s *Session) Chat(text string) error {
	return s.call(func() error {
		if text == "" {
			return nil
		}
		if s.transport == nil || !s.transport.Connected() {
			return ErrNotConnected
		}
		if err := s.send(protocol.Chat{Text: text}); err != nil {
			return err
		}
		s.addLog("You: " + text)
		return nil
	})
}

// Reset drops the connection and starts a fresh match in Placement.
func (s *Session) Reset() error {
	return s.call(func() error {
		s.reset()
		s.addLog("Game reset. Start a new match.")
		return nil
	})
}

func (s *Session) reset() {
	s.stopLinger()
	if t := s.transport; t != nil {
		s.transport = nil
		go t.Disconnect()
	}
	s.myBoard.Reset()
	s.enemyBoard.Reset()
	s.log.clear()
	s.matchID = uuid.NewString()
	s.host = false
	s.opponent = ""
	s.outcome = ""
	s.pending = nil
	s.setPhase(Placement)
	s.emit(BoardChanged, "")
}

// SaveLog writes the current match log to the configured sink.
func (s *Session) SaveLog(ctx context.Context) error {
	var entries []string
	if err := s.call(func() error {
		if s.sink == nil {
			return ErrNoSink
		}
		entries = s.log.list()
		return nil
	}); err != nil {
		return err
	}

	err := s.sink.Save(ctx, store.NewExport(entries))
	s.post(func() { s.logSaveResult(err) })
	return err
}

// LoadLog resets the match and replaces its log with the stored one.
func (s *Session) LoadLog(ctx context.Context) error {
	if err := s.call(func() error {
		if s.sink == nil {
			return ErrNoSink
		}
		return nil
	}); err != nil {
		return err
	}

	export, err := s.sink.Load(ctx)
	if err != nil {
		return err
	}
	return s.call(func() error {
		s.reset()
		s.log.replace(export.LogEntries)
		s.addLog(fmt.Sprintf("Game log loaded (%d entries)", len(export.LogEntries)))
		return nil
	})
}

func (s *Session) logSaveResult(err error) {
	if err != nil {
		s.logger.Error("saving game log failed", "err", err)
		s.addLog(fmt.Sprintf("Could not save the game log: %v", err))
		return
	}
	s.addLog("Game log saved")
}

// attachTransport makes a fresh transport current. Callbacks from any older
// transport are ignored from now on.
func (s *Session) attachTransport() Transport {
	var t Transport
	handlers := peer.Handlers{
		OnMessage: func(msg protocol.Message) {
			s.post(func() {
				if s.transport == t {
					s.handleMessage(msg)
				}
			})
		},
		OnConnected: func() {
			s.post(func() {
				if s.transport == t {
					s.onConnected()
				}
			})
		},
		OnDisconnected: func() {
			s.post(func() {
				if s.transport == t {
					s.onDisconnected()
				}
			})
		},
		OnError: func(err error) {
			s.post(func() {
				if s.transport == t {
					s.addLog(fmt.Sprintf("Network error: %v", err))
				}
			})
		},
	}
	t = s.newTransport(handlers)
	s.transport = t
	return t
}

func (s *Session) send(p protocol.Payload) error {
	if s.transport == nil {
		return ErrNotConnected
	}
	if err := s.transport.Send(protocol.Build(s.name, p)); err != nil {
		s.logger.Warn("send failed", "type", p.Kind(), "err", err)
		return err
	}
	return nil
}

func (s *Session) setPhase(phase Phase) {
	if s.phase == phase {
		return
	}
	s.logger.Debug("phase changed", "from", s.phase.String(), "to", phase.String(), "match", s.matchID)
	s.phase = phase
	s.emit(StateChanged, "")
}

func (s *Session) addLog(text string) {
	entry := s.log.add(text)
	s.emit(LogAppended, entry)
}

func (s *Session) stopLinger() {
	if s.lingerTimer != nil {
		s.lingerTimer.Stop()
		s.lingerTimer = nil
	}
}
