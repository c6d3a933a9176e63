package checkers

import "errors"

var (
	// ErrGameOver rejects any move requested after the game ended.
	ErrGameOver = errors.New("game already over")
	// ErrOutOfBounds rejects coordinates outside the 8x8 grid.
	ErrOutOfBounds = errors.New("position out of bounds")
	// ErrInvalidMove rejects a destination that is not in the legal set
	// (covers no piece at source, wrong side, and forced-continuation
	// violations).
	ErrInvalidMove = errors.New("invalid move")
)

type delta struct{ dr, dc int }

var allDirections = [4]delta{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}

// directionsFor returns the diagonal step directions available to a piece:
// red men move up (toward row 0), black men move down, kings move both ways.
func directionsFor(c Cell) []delta {
	switch c {
	case RedKing, BlackKing:
		return allDirections[:]
	case Red:
		return allDirections[:2]
	case Black:
		return allDirections[2:]
	default:
		return nil
	}
}

// NewGame returns the standard starting layout: black men on the three top
// rows' dark squares, red men on the three bottom rows' dark squares, red
// to move.
func NewGame() Game {
	var g Game
	for row := 0; row < 3; row++ {
		for col := 0; col < BoardSize; col++ {
			if (row+col)%2 == 1 {
				g.Board[row][col] = Black
			}
		}
	}
	for row := BoardSize - 3; row < BoardSize; row++ {
		for col := 0; col < BoardSize; col++ {
			if (row+col)%2 == 1 {
				g.Board[row][col] = Red
			}
		}
	}
	g.Turn = SideRed
	return g
}

// LegalMoves returns the legal destination cells for the piece at from.
// The set is empty when the cell holds no piece of the side to move, when
// the game is over, or when another cell is mid multi-capture. Captures
// are mandatory: if any capture exists for this piece, only capture
// destinations are returned.
func LegalMoves(g Game, from Position) []Position {
	if g.Over || !from.OnBoard() {
		return nil
	}
	piece := g.Board.At(from)
	side, ok := SideOf(piece)
	if !ok || side != g.Turn {
		return nil
	}
	if g.Forced != nil && *g.Forced != from {
		return nil
	}
	if jumps := captureMoves(&g.Board, from, piece); len(jumps) > 0 {
		return jumps
	}
	if g.Forced != nil {
		// The forced cell always has a capture when set; reaching here
		// means the state was tampered with, so offer nothing.
		return nil
	}
	return stepMoves(&g.Board, from, piece)
}

// captureMoves probes each available direction for an adjacent opponent
// piece with an empty on-board landing square two steps away.
func captureMoves(b *Board, from Position, piece Cell) []Position {
	side, _ := SideOf(piece)
	var jumps []Position
	for _, d := range directionsFor(piece) {
		over := Position{from.Row + d.dr, from.Col + d.dc}
		land := Position{from.Row + 2*d.dr, from.Col + 2*d.dc}
		if !land.OnBoard() || b.At(land) != Empty {
			continue
		}
		jumpedSide, occupied := SideOf(b.At(over))
		if !occupied || jumpedSide == side {
			continue
		}
		jumps = append(jumps, land)
	}
	return jumps
}

// stepMoves returns the adjacent empty cells in the available directions.
func stepMoves(b *Board, from Position, piece Cell) []Position {
	var steps []Position
	for _, d := range directionsFor(piece) {
		to := Position{from.Row + d.dr, from.Col + d.dc}
		if to.OnBoard() && b.At(to) == Empty {
			steps = append(steps, to)
		}
	}
	return steps
}

// Apply validates and applies a move, returning the resulting game state.
// Rejected moves return the input state unchanged together with the
// rejection reason.
func Apply(g Game, from, to Position) (Game, error) {
	if g.Over {
		return g, ErrGameOver
	}
	if !from.OnBoard() || !to.OnBoard() {
		return g, ErrOutOfBounds
	}
	if !containsPosition(LegalMoves(g, from), to) {
		return g, ErrInvalidMove
	}

	next := g // value copy, board included
	piece := next.Board[from.Row][from.Col]
	next.Board[from.Row][from.Col] = Empty

	capture := abs(to.Row-from.Row) == 2
	if capture {
		mid := Position{(from.Row + to.Row) / 2, (from.Col + to.Col) / 2}
		next.Board[mid.Row][mid.Col] = Empty
	}

	piece = promote(piece, to.Row)
	next.Board[to.Row][to.Col] = piece

	// A capture that leaves the moved piece another capture keeps the
	// turn and pins the follow-up to the landing cell.
	if capture && len(captureMoves(&next.Board, to, piece)) > 0 {
		landing := to
		next.Forced = &landing
	} else {
		next.Forced = nil
		next.Turn = g.Turn.Opponent()
	}

	detectTerminal(&next)
	return next, nil
}

// promote turns a man reaching the opponent's back rank into a king.
// Kings stay kings; promotion is irreversible.
func promote(piece Cell, row int) Cell {
	switch {
	case piece == Red && row == 0:
		return RedKing
	case piece == Black && row == BoardSize-1:
		return BlackKing
	default:
		return piece
	}
}

// detectTerminal evaluates the position against the side about to move:
// a side with no pieces, or to move with no legal destination anywhere,
// loses to the other side.
func detectTerminal(g *Game) {
	if g.Board.Count(SideRed) == 0 {
		g.Over, g.Winner, g.Forced = true, SideBlack, nil
		return
	}
	if g.Board.Count(SideBlack) == 0 {
		g.Over, g.Winner, g.Forced = true, SideRed, nil
		return
	}
	if !hasAnyMove(*g, g.Turn) {
		g.Over, g.Winner, g.Forced = true, g.Turn.Opponent(), nil
	}
}

// hasAnyMove scans every piece of side for at least one legal destination,
// honoring the forced-continuation cell.
func hasAnyMove(g Game, side Side) bool {
	if g.Turn != side {
		return false
	}
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			p := Position{r, c}
			if owner, ok := SideOf(g.Board.At(p)); !ok || owner != side {
				continue
			}
			if len(LegalMoves(g, p)) > 0 {
				return true
			}
		}
	}
	return false
}

// IsTerminal reports whether the game has ended.
func (g Game) IsTerminal() bool { return g.Over }

// WinnerSide returns the winner; ok is false while the game is live.
func (g Game) WinnerSide() (Side, bool) {
	if !g.Over || g.Winner == "" {
		return "", false
	}
	return g.Winner, true
}

// IsCapture reports whether a from/to pair spans a jump.
func IsCapture(from, to Position) bool {
	return abs(to.Row-from.Row) == 2 && abs(to.Col-from.Col) == 2
}

// Midpoint returns the jumped cell of a capture move.
func Midpoint(from, to Position) Position {
	return Position{(from.Row + to.Row) / 2, (from.Col + to.Col) / 2}
}

func containsPosition(set []Position, p Position) bool {
	for _, q := range set {
		if q == p {
			return true
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
