package checkers

import "fmt"

// Snapshot is the serializable form of a game state: a positional grid of
// closed-vocabulary tokens plus turn, terminal flag, winner and the
// forced-continuation cell. It is the wire payload for storage, the room
// API and textual rendering.
type Snapshot struct {
	Board  [][]string `json:"board"`
	Turn   Side       `json:"turn"`
	Over   bool       `json:"game_over"`
	Winner Side       `json:"winner,omitempty"`
	Forced *Position  `json:"forced,omitempty"`
}

// Snapshot renders the game as an immutable wire value.
func (g Game) Snapshot() Snapshot {
	grid := make([][]string, BoardSize)
	for r := 0; r < BoardSize; r++ {
		row := make([]string, BoardSize)
		for c := 0; c < BoardSize; c++ {
			row[c] = g.Board[r][c].Token()
		}
		grid[r] = row
	}
	s := Snapshot{Board: grid, Turn: g.Turn, Over: g.Over, Winner: g.Winner}
	if g.Forced != nil {
		forced := *g.Forced
		s.Forced = &forced
	}
	return s
}

// FromSnapshot reconstructs a game state from its wire form.
func FromSnapshot(s Snapshot) (Game, error) {
	if len(s.Board) != BoardSize {
		return Game{}, fmt.Errorf("snapshot has %d rows, want %d", len(s.Board), BoardSize)
	}
	var g Game
	for r, row := range s.Board {
		if len(row) != BoardSize {
			return Game{}, fmt.Errorf("snapshot row %d has %d cells, want %d", r, len(row), BoardSize)
		}
		for c, token := range row {
			cell, ok := CellFromToken(token)
			if !ok {
				return Game{}, fmt.Errorf("snapshot cell (%d,%d): unknown token %q", r, c, token)
			}
			g.Board[r][c] = cell
		}
	}
	switch s.Turn {
	case SideRed, SideBlack:
		g.Turn = s.Turn
	default:
		return Game{}, fmt.Errorf("snapshot turn: unknown side %q", s.Turn)
	}
	g.Over = s.Over
	g.Winner = s.Winner
	if s.Forced != nil {
		if !s.Forced.OnBoard() {
			return Game{}, fmt.Errorf("snapshot forced cell off board: %v", *s.Forced)
		}
		forced := *s.Forced
		g.Forced = &forced
	}
	return g, nil
}
