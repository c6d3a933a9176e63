package checkers

// BoardSize is the edge length of the playing grid.
const BoardSize = 8

// Cell is the content of a single board square.
type Cell uint8

const (
	Empty Cell = iota
	Red
	RedKing
	Black
	BlackKing
)

// Token returns the closed-vocabulary wire token for a cell.
func (c Cell) Token() string {
	switch c {
	case Red:
		return "red"
	case RedKing:
		return "red_king"
	case Black:
		return "black"
	case BlackKing:
		return "black_king"
	default:
		return "empty"
	}
}

// CellFromToken parses a wire token back into a cell value.
func CellFromToken(s string) (Cell, bool) {
	switch s {
	case "empty", "":
		return Empty, true
	case "red":
		return Red, true
	case "red_king":
		return RedKing, true
	case "black":
		return Black, true
	case "black_king":
		return BlackKing, true
	default:
		return Empty, false
	}
}

// King reports whether the cell holds a promoted piece.
func (c Cell) King() bool { return c == RedKing || c == BlackKing }

// Side identifies one of the two players.
type Side string

const (
	SideRed   Side = "red"
	SideBlack Side = "black"
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SideRed {
		return SideBlack
	}
	return SideRed
}

// SideOf returns the owner of a cell; ok is false for empty cells.
func SideOf(c Cell) (Side, bool) {
	switch c {
	case Red, RedKing:
		return SideRed, true
	case Black, BlackKing:
		return SideBlack, true
	default:
		return "", false
	}
}

// Position addresses a board square, zero-based, row 0 at the top edge.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// OnBoard reports whether the position is inside the 8x8 grid.
func (p Position) OnBoard() bool {
	return p.Row >= 0 && p.Row < BoardSize && p.Col >= 0 && p.Col < BoardSize
}

// Dark reports whether the square may hold a piece ((row+col) odd).
func (p Position) Dark() bool { return (p.Row+p.Col)%2 == 1 }

// Board is the 8x8 grid, row-major. It is a value type: copying a Game
// copies the board with it.
type Board [BoardSize][BoardSize]Cell

// At returns the cell at p, or Empty for out-of-range positions.
func (b *Board) At(p Position) Cell {
	if !p.OnBoard() {
		return Empty
	}
	return b[p.Row][p.Col]
}

// Count returns the number of pieces owned by side.
func (b *Board) Count(side Side) int {
	n := 0
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if s, ok := SideOf(b[r][c]); ok && s == side {
				n++
			}
		}
	}
	return n
}

// Game is the full engine state. It is a plain value; Apply returns a new
// Game and never mutates its input, so concurrent games are independent
// values rather than shared globals.
type Game struct {
	Board  Board
	Turn   Side
	Over   bool
	Winner Side // "" while the game is live

	// Forced is the cell that must move next because it is mid
	// multi-capture; nil otherwise.
	Forced *Position
}
