package session

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rhinci/Morskoy-boy/metrics"
	"github.com/rhinci/Morskoy-boy/pkg/game"
	"github.com/rhinci/Morskoy-boy/pkg/protocol"
	"github.com/rhinci/Morskoy-boy/store"
)

const tracerName = "github.com/rhinci/Morskoy-boy/session"

var tracer = otel.Tracer(tracerName)

func (s *Session) onConnected() {
	s.addLog("Network connection established!")
	if err := s.send(protocol.Connect{PlayerName: s.name}); err != nil {
		s.addLog(fmt.Sprintf("Could not greet the opponent: %v", err))
	}
}

func (s *Session) onDisconnected() {
	s.addLog("Network connection lost!")
	s.transport = nil
	s.pending = nil

	switch {
	case s.phase.Active():
		s.addLog("The match ended without a winner, counted as a loss")
		s.endGame(false, OutcomeForfeit)
	case s.phase == WaitingForConnection:
		s.setPhase(Placement)
	}
}

// handleMessage applies one inbound message inside a span.
func (s *Session) handleMessage(msg protocol.Message) {
	_, span := tracer.Start(context.Background(), "session.handle "+string(msg.Type),
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("seabattle.match_id", s.matchID),
			attribute.String("seabattle.message.type", string(msg.Type)),
			attribute.String("seabattle.message.sender", msg.Sender),
			attribute.String("seabattle.phase.before", s.phase.String()),
		),
		trace.WithTimestamp(time.Now()),
	)
	defer span.End()

	s.addLog(fmt.Sprintf("Received message: %s", msg.Type))

	err := s.dispatch(msg)
	span.SetAttributes(attribute.String("seabattle.phase.after", s.phase.String()))
	if err != nil {
		s.logger.Warn("message not applied", "type", msg.Type, "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

func (s *Session) dispatch(msg protocol.Message) error {
	payload, err := protocol.Decode(msg)
	if err != nil {
		s.addLog(fmt.Sprintf("Unknown message type: %s", msg.Type))
		return err
	}

	switch p := payload.(type) {
	case protocol.Connect:
		return s.handleConnect(p)
	case protocol.StartGame:
		return s.handleStartGame(p)
	case protocol.Shot:
		return s.handleShot(p)
	case protocol.ShotResult:
		return s.handleShotResult(p)
	case protocol.GameOver:
		s.handleGameOver(p)
	case protocol.Chat:
		if p.Text != "" {
			s.addLog(fmt.Sprintf("%s: %s", msg.Sender, p.Text))
		}
	}
	return nil
}

func (s *Session) handleConnect(p protocol.Connect) error {
	s.opponent = p.PlayerName
	s.addLog(fmt.Sprintf("%s joined the game!", p.PlayerName))

	if !s.host || s.phase != WaitingForConnection {
		return nil
	}

	hostFirst := s.rng.Intn(2) == 0
	if err := s.send(protocol.StartGame{YouGoFirst: !hostFirst}); err != nil {
		return fmt.Errorf("start game: %w", err)
	}
	s.startGame(hostFirst)
	return nil
}

func (s *Session) handleStartGame(p protocol.StartGame) error {
	if s.host || s.phase != WaitingForConnection {
		return fmt.Errorf("%w: start game in %s", ErrWrongPhase, s.phase)
	}
	s.startGame(p.YouGoFirst)
	return nil
}

func (s *Session) startGame(iGoFirst bool) {
	s.addLog("Game started")
	if iGoFirst {
		s.setPhase(MyTurn)
		s.addLog("You move first")
	} else {
		s.setPhase(EnemyTurn)
		s.addLog("The opponent moves first, please wait")
	}
	s.emit(BoardChanged, "")
}

// handleShot resolves the opponent's shot on my board and reports the result.
func (s *Session) handleShot(p protocol.Shot) error {
	if s.phase != EnemyTurn {
		return fmt.Errorf("%w: shot received in %s", ErrWrongPhase, s.phase)
	}

	s.addLog(fmt.Sprintf("The opponent fires at (%d,%d)...", p.X, p.Y))
	result := s.myBoard.ReceiveShot(p.X, p.Y)
	s.metrics.Shot(metrics.Incoming, result.String())

	switch result {
	case game.Miss:
		s.addLog("The opponent missed!")
	case game.Sunk:
		s.addLog("The opponent sank our ship!")
	default:
		s.addLog("The opponent hit!")
	}

	allSunk := s.myBoard.AllShipsSunk()
	if err := s.send(protocol.ShotResult{X: p.X, Y: p.Y, Result: result, AllSunk: allSunk}); err != nil {
		return fmt.Errorf("shot result: %w", err)
	}

	if result == game.Miss {
		s.setPhase(MyTurn)
	}
	s.emit(BoardChanged, "")

	if allSunk {
		s.endGame(false, OutcomeLoss)
	}
	return nil
}

// handleShotResult applies the outcome of my pending shot to the shadow board.
func (s *Session) handleShotResult(p protocol.ShotResult) error {
	if s.phase != MyTurn || s.pending == nil {
		return fmt.Errorf("%w: unexpected shot result in %s", ErrWrongPhase, s.phase)
	}
	if p.X != s.pending.X || p.Y != s.pending.Y {
		s.logger.Warn("shot result does not match the pending shot",
			"pending_x", s.pending.X, "pending_y", s.pending.Y, "x", p.X, "y", p.Y)
	}
	s.pending = nil

	s.enemyBoard.Reveal(p.X, p.Y, p.Result)
	s.metrics.Shot(metrics.Outgoing, p.Result.String())

	switch p.Result {
	case game.Sunk:
		s.addLog(fmt.Sprintf("Ship sunk at (%d,%d)!", p.X, p.Y))
	case game.Hit:
		s.addLog(fmt.Sprintf("Hit at (%d,%d)!", p.X, p.Y))
	default:
		s.addLog(fmt.Sprintf("Miss at (%d,%d)!", p.X, p.Y))
		s.setPhase(EnemyTurn)
	}
	s.emit(BoardChanged, "")

	if p.AllSunk || s.enemyBoard.AllShipsSunk() {
		if err := s.send(protocol.GameOver{YouWon: false}); err != nil {
			s.logger.Warn("could not tell the opponent the match is over", "err", err)
		}
		s.endGame(true, OutcomeWin)
	}
	return nil
}

func (s *Session) handleGameOver(p protocol.GameOver) {
	if !s.phase.Active() {
		return
	}
	outcome := OutcomeLoss
	if p.YouWon {
		outcome = OutcomeWin
	}
	s.endGame(p.YouWon, outcome)
}

// endGame finishes the match: the outcome is logged, the log is handed to the
// sink and the connection is closed after the linger delay.
func (s *Session) endGame(iWon bool, outcome string) {
	if s.phase == GameOver {
		return
	}
	s.pending = nil
	s.outcome = outcome
	s.setPhase(GameOver)
	s.metrics.MatchFinished(outcome)
	s.logger.Info("match finished", "match", s.matchID, "outcome", outcome, "opponent", s.opponent)

	if iWon {
		s.addLog("VICTORY")
	} else {
		s.addLog("DEFEAT")
	}

	if t := s.transport; t != nil {
		s.stopLinger()
		s.lingerTimer = time.AfterFunc(s.linger, t.Disconnect)
	}

	if s.sink != nil {
		s.saveInBackground(store.NewExport(s.log.list()))
	}
}

func (s *Session) saveInBackground(export store.Export) {
	sink := s.sink
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		err := sink.Save(ctx, export)
		s.post(func() { s.logSaveResult(err) })
	}()
}
