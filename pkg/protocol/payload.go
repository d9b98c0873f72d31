package protocol

import (
	"fmt"

	"github.com/rhinci/Morskoy-boy/pkg"
	"github.com/rhinci/Morskoy-boy/pkg/game"
)

// Payload is the strongly typed body of one message kind.
type Payload interface {
	Kind() Kind
	encode(m *Message)
}

type Connect struct {
	PlayerName string
}

type StartGame struct {
	YouGoFirst bool
}

type Shot struct {
	X int
	Y int
}

type ShotResult struct {
	X       int
	Y       int
	Result  game.CellState
	AllSunk bool
}

type GameOver struct {
	YouWon bool
}

type Chat struct {
	Text string
}

func (Connect) Kind() Kind    { return KindConnect }
func (StartGame) Kind() Kind  { return KindStartGame }
func (Shot) Kind() Kind       { return KindShot }
func (ShotResult) Kind() Kind { return KindShotResult }
func (GameOver) Kind() Kind   { return KindGameOver }
func (Chat) Kind() Kind       { return KindChat }

func (p Connect) encode(m *Message) {
	m.Set(pkg.KeyPlayerName, p.PlayerName)
}

func (p StartGame) encode(m *Message) {
	m.Set(pkg.KeyYouGoFirst, p.YouGoFirst)
}

func (p Shot) encode(m *Message) {
	m.Set(pkg.KeyX, p.X)
	m.Set(pkg.KeyY, p.Y)
}

func (p ShotResult) encode(m *Message) {
	m.Set(pkg.KeyX, p.X)
	m.Set(pkg.KeyY, p.Y)
	m.Set(pkg.KeyResult, p.Result.String())
	m.Set(pkg.KeyAllSunk, p.AllSunk)
}

func (p GameOver) encode(m *Message) {
	m.Set(pkg.KeyYouWon, p.YouWon)
}

func (p Chat) encode(m *Message) {
	m.Set(pkg.KeyText, p.Text)
}

// Build wraps a payload into an envelope stamped with sender and the current
// time.
func Build(sender string, p Payload) Message {
	m := New(p.Kind(), sender)
	p.encode(&m)
	return m
}

// Decode turns an envelope into its typed payload. Missing or unconvertible
// fields take their defaults; only an unknown kind is an error.
func Decode(m Message) (Payload, error) {
	switch m.Type {
	case KindConnect:
		return Connect{PlayerName: m.GetString(pkg.KeyPlayerName, "Opponent")}, nil
	case KindStartGame:
		return StartGame{YouGoFirst: m.GetBool(pkg.KeyYouGoFirst, false)}, nil
	case KindShot:
		return Shot{X: m.GetInt(pkg.KeyX, -1), Y: m.GetInt(pkg.KeyY, -1)}, nil
	case KindShotResult:
		result, ok := game.ParseCellState(m.GetString(pkg.KeyResult, game.Miss.String()))
		if !ok {
			result = game.Miss
		}
		return ShotResult{
			X:       m.GetInt(pkg.KeyX, -1),
			Y:       m.GetInt(pkg.KeyY, -1),
			Result:  result,
			AllSunk: m.GetBool(pkg.KeyAllSunk, false),
		}, nil
	case KindGameOver:
		return GameOver{YouWon: m.GetBool(pkg.KeyYouWon, false)}, nil
	case KindChat:
		return Chat{Text: m.GetString(pkg.KeyText, "")}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, m.Type)
	}
}
