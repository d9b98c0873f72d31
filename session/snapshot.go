package session

import "github.com/rhinci/Morskoy-boy/pkg/game"

type ShipInfo struct {
	Size      int             `json:"size"`
	Positions []game.Position `json:"positions"`
	Hits      int             `json:"hits"`
	Sunk      bool            `json:"sunk"`
}

// Snapshot is a copy of the session state for presentation.
type Snapshot struct {
	MatchID      string             `json:"matchId"`
	Phase        Phase              `json:"phase"`
	MyTurn       bool               `json:"myTurn"`
	Host         bool               `json:"host"`
	Connected    bool               `json:"connected"`
	PlayerName   string             `json:"playerName"`
	OpponentName string             `json:"opponentName,omitempty"`
	Outcome      string             `json:"outcome,omitempty"`
	ShotPending  bool               `json:"shotPending"`
	MyBoard      [][]game.CellState `json:"myBoard"`
	EnemyBoard   [][]game.CellState `json:"enemyBoard"`
	Ships        []ShipInfo         `json:"ships"`
	EnemySunk    int                `json:"enemySunk"`
	Log          []string           `json:"log"`

	myBoard    string
	enemyBoard string
}

// Snapshot returns the current state. After Run has stopped it returns the
// zero Snapshot.
func (s *Session) Snapshot() Snapshot {
	var snap Snapshot
	_ = s.call(func() error {
		snap = s.snapshot()
		return nil
	})
	return snap
}

func (s *Session) snapshot() Snapshot {
	ships := make([]ShipInfo, 0, len(s.myBoard.Ships()))
	for _, ship := range s.myBoard.Ships() {
		ships = append(ships, ShipInfo{
			Size:      ship.GetSize(),
			Positions: ship.GetPositions(),
			Hits:      len(ship.GetHits()),
			Sunk:      ship.IsSunk(),
		})
	}

	return Snapshot{
		MatchID:      s.matchID,
		Phase:        s.phase,
		MyTurn:       s.phase == MyTurn,
		Host:         s.host,
		Connected:    s.transport != nil && s.transport.Connected(),
		PlayerName:   s.name,
		OpponentName: s.opponent,
		Outcome:      s.outcome,
		ShotPending:  s.pending != nil,
		MyBoard:      s.myBoard.Cells(),
		EnemyBoard:   s.enemyBoard.Cells(),
		Ships:        ships,
		EnemySunk:    s.enemyBoard.SunkCount(),
		Log:          s.log.list(),
		myBoard:      s.myBoard.String(),
		enemyBoard:   s.enemyBoard.String(),
	}
}

// RenderMyBoard returns the local board as text.
func (snap Snapshot) RenderMyBoard() string {
	return snap.myBoard
}

// RenderEnemyBoard returns the shadow board as text.
func (snap Snapshot) RenderEnemyBoard() string {
	return snap.enemyBoard
}
