package game

import (
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/rhinci/Morskoy-boy/pkg"
)

const (
	maxPlacementAttempts = 100
	maxAutoPlaceRestarts = 1000
)

type Board struct {
	cells     [][]CellState
	ships     []*Ship
	fleet     Fleet
	remaining Fleet
	allPlaced bool
	allSunk   bool
	sunkCount int
}

func initCells() [][]CellState {
	cells := make([][]CellState, pkg.BoardSize)
	for y := 0; y < pkg.BoardSize; y++ {
		cells[y] = make([]CellState, pkg.BoardSize)
	}
	return cells
}

// NewBoard returns an empty board expecting the default fleet.
func NewBoard() *Board {
	return NewBoardWithFleet(DefaultFleet())
}

func NewBoardWithFleet(fleet Fleet) *Board {
	b := &Board{fleet: fleet.clone()}
	b.Reset()
	return b
}

// Reset returns the board to the empty, ship-less state.
func (b *Board) Reset() {
	b.cells = initCells()
	b.ships = nil
	b.remaining = b.fleet.clone()
	b.allPlaced = false
	b.allSunk = false
	b.sunkCount = 0
}

func (b *Board) at(p Position) CellState {
	return b.cells[p.Y][p.X]
}

func (b *Board) set(p Position, state CellState) {
	b.cells[p.Y][p.X] = state
}

// CellState returns the state at (x, y). Out of bounds cells read as Empty.
func (b *Board) CellState(x, y int) CellState {
	p := Position{X: x, Y: y}
	if isOutOfBounds(p) {
		return Empty
	}
	return b.at(p)
}

// Cells returns a copy of the grid indexed as [y][x].
func (b *Board) Cells() [][]CellState {
	cells := make([][]CellState, len(b.cells))
	for y, row := range b.cells {
		cells[y] = append([]CellState(nil), row...)
	}
	return cells
}

func (b *Board) Ships() []*Ship {
	return append([]*Ship(nil), b.ships...)
}

func (b *Board) Fleet() Fleet {
	return b.fleet.clone()
}

// Remaining returns how many ships of the given size can still be placed.
func (b *Board) Remaining(size int) int {
	return b.remaining[size]
}

func (b *Board) AllShipsPlaced() bool {
	return b.allPlaced
}

func (b *Board) AllShipsSunk() bool {
	return b.allSunk
}

// IsValidPlacement checks that the ship fits on the grid over empty cells and
// that no other ship lies within one cell of it, diagonals included.
func (b *Board) IsValidPlacement(ship *Ship, startX, startY int, horizontal bool) bool {
	if ship == nil || ship.size < 1 {
		return false
	}

	start := Position{X: startX, Y: startY}
	positions := footprint(start, ship.size, horizontal)
	for _, position := range positions {
		if isOutOfBounds(position) || b.at(position) != Empty {
			return false
		}
	}

	end := positions[len(positions)-1]
	minX, maxX := max(start.X-1, 0), min(end.X+1, pkg.BoardSize-1)
	minY, maxY := max(start.Y-1, 0), min(end.Y+1, pkg.BoardSize-1)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if b.cells[y][x] == ShipPresent {
				return false
			}
		}
	}
	return true
}

// PlaceShip validates and then commits the placement. The board is left
// untouched when it returns false. A ship can be placed only once and only
// while the fleet still has a free slot of its size.
func (b *Board) PlaceShip(ship *Ship, startX, startY int, horizontal bool) bool {
	if ship == nil || ship.isPlaced() || b.remaining[ship.size] == 0 {
		return false
	}
	if !b.IsValidPlacement(ship, startX, startY, horizontal) {
		return false
	}

	ship.positions = footprint(Position{X: startX, Y: startY}, ship.size, horizontal)
	for _, position := range ship.positions {
		b.set(position, ShipPresent)
	}
	b.ships = append(b.ships, ship)

	b.remaining[ship.size]--
	b.allPlaced = b.remaining.Total() == 0
	return true
}

// AutoPlaceAllShips clears the board and places the whole fleet at random.
// When a ship cannot be placed within its attempt budget the board is cleared
// and the fleet is placed again from scratch. A nil rng uses a time seeded
// source.
func (b *Board) AutoPlaceAllShips(rng *rand.Rand) error {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	for restart := 0; restart < maxAutoPlaceRestarts; restart++ {
		b.Reset()
		if b.placeFleet(rng) {
			return nil
		}
	}
	b.Reset()
	return ErrAutoPlaceFailed
}

func (b *Board) placeFleet(rng *rand.Rand) bool {
	for _, size := range b.fleet.Sizes() {
		ship := CreateShip(size)
		placed := false
		for attempts := 0; !placed && attempts < maxPlacementAttempts; attempts++ {
			x := rng.Intn(pkg.BoardSize)
			y := rng.Intn(pkg.BoardSize)
			placed = b.PlaceShip(ship, x, y, rng.Intn(2) == 0)
		}
		if !placed {
			return false
		}
	}
	return true
}

// ReceiveShot resolves an opponent's shot at (x, y) and returns the outcome.
// Out of bounds shots are a Miss and change nothing. Shooting an already
// resolved cell returns its state unchanged.
func (b *Board) ReceiveShot(x, y int) CellState {
	p := Position{X: x, Y: y}
	if isOutOfBounds(p) {
		return Miss
	}

	switch b.at(p) {
	case Empty:
		b.set(p, Miss)
		return Miss
	case ShipPresent:
		b.set(p, Hit)
		ship := b.findShipAt(p)
		if ship == nil {
			return Hit
		}
		ship.hit(p)
		if !ship.IsSunk() {
			return Hit
		}
		b.markSunk(ship.positions)
		b.checkAllSunk()
		return Sunk
	default:
		return b.at(p)
	}
}

// Reveal records on a shadow board the outcome the opponent reported for a
// shot at (x, y). On Sunk the straight run of hit cells through (x, y) becomes
// the sunk ship and its surroundings are marked as misses.
func (b *Board) Reveal(x, y int, result CellState) CellState {
	p := Position{X: x, Y: y}
	if isOutOfBounds(p) {
		return Miss
	}

	current := b.at(p)
	switch result {
	case Miss:
		if current == Empty {
			b.set(p, Miss)
		}
	case Hit:
		if current == Empty || current == ShipPresent {
			b.set(p, Hit)
		}
	case Sunk:
		if current == Sunk || current == Miss {
			break
		}
		b.set(p, Hit)
		b.markSunk(b.hitRun(p))
		b.sunkCount++
		b.allSunk = b.sunkCount >= b.fleet.Total()
	}
	return b.at(p)
}

// SunkCount returns the number of ships revealed as sunk on a shadow board.
func (b *Board) SunkCount() int {
	return b.sunkCount
}

func (b *Board) findShipAt(p Position) *Ship {
	for _, ship := range b.ships {
		if ship.occupies(p) {
			return ship
		}
	}
	return nil
}

// markSunk marks every empty cell around the positions as a miss and the
// positions themselves as sunk.
func (b *Board) markSunk(positions []Position) {
	for _, position := range positions {
		for _, n := range getSurrounding(position) {
			if !isOutOfBounds(n) && b.at(n) == Empty {
				b.set(n, Miss)
			}
		}
	}
	for _, position := range positions {
		b.set(position, Sunk)
	}
}

func (b *Board) checkAllSunk() {
	for _, ship := range b.ships {
		if !ship.IsSunk() {
			b.allSunk = false
			return
		}
	}
	b.allSunk = len(b.ships) > 0
}

// hitRun collects the orthogonally connected hit cells starting at p.
func (b *Board) hitRun(p Position) []Position {
	run := []Position{p}
	seen := map[Position]bool{p: true}
	for i := 0; i < len(run); i++ {
		for _, n := range getNeighbours(run[i]) {
			if isOutOfBounds(n) || seen[n] || b.at(n) != Hit {
				continue
			}
			seen[n] = true
			run = append(run, n)
		}
	}
	return run
}

// String draws the board with column indexes on top and row indexes on the
// left.
func (b *Board) String() string {
	var sb strings.Builder
	sb.WriteString("  ")
	for x := 0; x < pkg.BoardSize; x++ {
		sb.WriteString(strconv.Itoa(x))
		sb.WriteByte(' ')
	}
	sb.WriteByte('\n')
	for y, row := range b.cells {
		sb.WriteString(strconv.Itoa(y))
		sb.WriteByte(' ')
		for _, c := range row {
			sb.WriteRune(c.Symbol())
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
