package game

import (
	"errors"
	"strings"

	"github.com/rhinci/Morskoy-boy/pkg"
)

// CellState is the state of a single board cell.
type CellState int

const (
	Empty CellState = iota
	ShipPresent
	Miss
	Hit
	Sunk
)

var cellNames = map[CellState]string{
	Empty:       "Empty",
	ShipPresent: "Ship",
	Miss:        "Miss",
	Hit:         "Hit",
	Sunk:        "Sunk",
}

// String returns the wire spelling of the state.
func (c CellState) String() string {
	if name, ok := cellNames[c]; ok {
		return name
	}
	return "Unknown"
}

// Symbol returns the rune used to draw the state on a text board.
func (c CellState) Symbol() rune {
	switch c {
	case ShipPresent:
		return 's'
	case Miss:
		return 'o'
	case Hit:
		return 'x'
	case Sunk:
		return '#'
	default:
		return '-'
	}
}

// Resolved reports whether the cell has already been shot at.
func (c CellState) Resolved() bool {
	return c == Miss || c == Hit || c == Sunk
}

func (c CellState) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseCellState parses a wire spelling. Matching is case-insensitive.
func ParseCellState(s string) (CellState, bool) {
	for state, name := range cellNames {
		if strings.EqualFold(name, s) {
			return state, true
		}
	}
	return Empty, false
}

var ErrAutoPlaceFailed = errors.New("could not place fleet")

type Position struct {
	X int
	Y int
}

type Ship struct {
	size      int
	positions []Position
	hits      []Position
}

func CreateShip(size int) *Ship {
	return &Ship{size: size}
}

func (s *Ship) GetSize() int {
	return s.size
}

// GetPositions returns a copy of the occupied positions in placement order.
func (s *Ship) GetPositions() []Position {
	return append([]Position(nil), s.positions...)
}

func (s *Ship) GetHits() []Position {
	return append([]Position(nil), s.hits...)
}

func (s *Ship) IsSunk() bool {
	return s.size > 0 && len(s.hits) == s.size
}

func (s *Ship) isPlaced() bool {
	return len(s.positions) > 0
}

func (s *Ship) occupies(p Position) bool {
	for _, position := range s.positions {
		if position == p {
			return true
		}
	}
	return false
}

func (s *Ship) hit(p Position) {
	for _, h := range s.hits {
		if h == p {
			return
		}
	}
	s.hits = append(s.hits, p)
}

// footprint returns the cells a ship of the given size covers when its bow
// is at start. Horizontal ships grow along X, vertical ones along Y. Bounds
// are not checked.
func footprint(start Position, size int, horizontal bool) []Position {
	positions := make([]Position, 0, size)
	for i := 0; i < size; i++ {
		if horizontal {
			positions = append(positions, Position{X: start.X + i, Y: start.Y})
		} else {
			positions = append(positions, Position{X: start.X, Y: start.Y + i})
		}
	}
	return positions
}

func isOutOfBounds(p Position) bool {
	return p.X < 0 || p.X >= pkg.BoardSize || p.Y < 0 || p.Y >= pkg.BoardSize
}

// getNeighbours returns the four orthogonal neighbours of p.
func getNeighbours(p Position) []Position {
	return []Position{
		{X: p.X - 1, Y: p.Y},
		{X: p.X + 1, Y: p.Y},
		{X: p.X, Y: p.Y - 1},
		{X: p.X, Y: p.Y + 1},
	}
}

// getSurrounding returns the eight-connected neighbourhood of p.
func getSurrounding(p Position) []Position {
	surrounding := make([]Position, 0, 8)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			surrounding = append(surrounding, Position{X: p.X + dx, Y: p.Y + dy})
		}
	}
	return surrounding
}
