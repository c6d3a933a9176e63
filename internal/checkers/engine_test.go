package checkers

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// buildGame places pieces on an otherwise empty board.
func buildGame(turn Side, pieces map[Position]Cell) Game {
	var g Game
	g.Turn = turn
	for p, c := range pieces {
		g.Board[p.Row][p.Col] = c
	}
	return g
}

func mustApply(t *testing.T, g Game, from, to Position) Game {
	t.Helper()
	next, err := Apply(g, from, to)
	if err != nil {
		t.Fatalf("Apply(%v->%v): %v", from, to, err)
	}
	return next
}

func TestNewGameStandardLayout(t *testing.T) {
	g := NewGame()

	if g.Turn != SideRed {
		t.Fatalf("turn = %q, want red", g.Turn)
	}
	if g.Over || g.Winner != "" || g.Forced != nil {
		t.Fatalf("fresh game already carries terminal state: %+v", g)
	}
	if got := g.Board.Count(SideRed); got != 12 {
		t.Fatalf("red pieces = %d, want 12", got)
	}
	if got := g.Board.Count(SideBlack); got != 12 {
		t.Fatalf("black pieces = %d, want 12", got)
	}
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			p := Position{r, c}
			if g.Board.At(p) != Empty && !p.Dark() {
				t.Fatalf("piece on light square %v", p)
			}
		}
	}
	// Black occupies the top three rows, red the bottom three.
	if g.Board.At(Position{0, 1}) != Black || g.Board.At(Position{7, 0}) != Red {
		t.Fatalf("unexpected home rows: top=%v bottom=%v", g.Board.At(Position{0, 1}), g.Board.At(Position{7, 0}))
	}
}

func TestOutOfRangeQueriesReturnEmpty(t *testing.T) {
	g := NewGame()
	for _, p := range []Position{{-1, 0}, {0, -1}, {8, 3}, {3, 8}, {-2, -2}} {
		if got := g.Board.At(p); got != Empty {
			t.Fatalf("At(%v) = %v, want Empty", p, got)
		}
		if moves := LegalMoves(g, p); moves != nil {
			t.Fatalf("LegalMoves(%v) = %v, want none", p, moves)
		}
	}
}

func TestOpeningMoveAndTurnFlip(t *testing.T) {
	g := NewGame()
	from, to := Position{5, 0}, Position{4, 1}

	if !containsPosition(LegalMoves(g, from), to) {
		t.Fatalf("expected %v in legal moves of %v: %v", to, from, LegalMoves(g, from))
	}
	next := mustApply(t, g, from, to)
	if next.Board.At(from) != Empty {
		t.Fatalf("source not cleared")
	}
	if next.Board.At(to) != Red {
		t.Fatalf("destination = %v, want red man", next.Board.At(to))
	}
	if next.Turn != SideBlack {
		t.Fatalf("turn = %q, want black", next.Turn)
	}
}

func TestLegalMovesEmptyForOpponentPiece(t *testing.T) {
	g := NewGame()
	if moves := LegalMoves(g, Position{2, 1}); len(moves) != 0 {
		t.Fatalf("black piece movable on red's turn: %v", moves)
	}
}

func TestMandatoryCaptureSuppressesSteps(t *testing.T) {
	g := buildGame(SideRed, map[Position]Cell{
		{3, 0}: Red,
		{2, 1}: Black,
		// extra black piece so capturing (2,1) doesn't end the game
		{0, 5}: Black,
	})

	moves := LegalMoves(g, Position{3, 0})
	want := []Position{{1, 2}}
	if diff := cmp.Diff(want, moves); diff != "" {
		t.Fatalf("capture set mismatch (-want +got):\n%s", diff)
	}
}

func TestCaptureNeverMixedWithSteps(t *testing.T) {
	// The red king at (4,3) has open step squares and one capture; only
	// the capture may be offered.
	g := buildGame(SideRed, map[Position]Cell{
		{4, 3}: RedKing,
		{3, 4}: Black,
		{0, 1}: Black,
	})
	moves := LegalMoves(g, Position{4, 3})
	if len(moves) != 1 || moves[0] != (Position{2, 5}) {
		t.Fatalf("king moves = %v, want only the capture to (2,5)", moves)
	}
}

func TestCaptureLandingMustBeEmpty(t *testing.T) {
	g := buildGame(SideRed, map[Position]Cell{
		{4, 1}: Red,
		{3, 2}: Black,
		{2, 3}: Black, // blocks the landing square
	})
	moves := LegalMoves(g, Position{4, 1})
	for _, m := range moves {
		if m == (Position{2, 3}) {
			t.Fatalf("capture offered onto an occupied landing square")
		}
	}
}

func TestNoJumpOverOwnPiece(t *testing.T) {
	g := buildGame(SideRed, map[Position]Cell{
		{4, 1}: Red,
		{3, 2}: Red,
		{0, 7}: Black,
	})
	moves := LegalMoves(g, Position{4, 1})
	if containsPosition(moves, Position{2, 3}) {
		t.Fatalf("jump over own piece offered: %v", moves)
	}
}

func TestRejectedMoveIsNoOp(t *testing.T) {
	g := NewGame()
	before := g

	next, err := Apply(g, Position{5, 0}, Position{3, 0})
	if !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("err = %v, want ErrInvalidMove", err)
	}
	if diff := cmp.Diff(before, next); diff != "" {
		t.Fatalf("state changed by rejected move (-before +after):\n%s", diff)
	}

	if _, err := Apply(g, Position{5, 0}, Position{4, 8}); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("off-board destination: err = %v, want ErrOutOfBounds", err)
	}
}

func TestApplyAfterTerminalRejected(t *testing.T) {
	g := buildGame(SideRed, map[Position]Cell{
		{3, 0}: Red,
		{2, 1}: Black,
	})
	final := mustApply(t, g, Position{3, 0}, Position{1, 2})
	if !final.Over {
		t.Fatalf("expected terminal state after last capture")
	}
	if _, err := Apply(final, Position{1, 2}, Position{0, 3}); !errors.Is(err, ErrGameOver) {
		t.Fatalf("err = %v, want ErrGameOver", err)
	}
}

func TestPromotionOnBackRank(t *testing.T) {
	g := buildGame(SideRed, map[Position]Cell{
		{1, 2}: Red,
		{4, 7}: Black,
	})
	next := mustApply(t, g, Position{1, 2}, Position{0, 1})
	if next.Board.At(Position{0, 1}) != RedKing {
		t.Fatalf("cell = %v, want red king", next.Board.At(Position{0, 1}))
	}
	if next.Over {
		t.Fatalf("game ended on promotion with black still mobile")
	}
}

func TestPromotedKingMovesBothWaysAndStaysKing(t *testing.T) {
	g := buildGame(SideRed, map[Position]Cell{
		{1, 2}: Red,
		{4, 7}: Black,
	})
	g = mustApply(t, g, Position{1, 2}, Position{0, 1}) // promotes
	g = mustApply(t, g, Position{4, 7}, Position{5, 6}) // black step

	moves := LegalMoves(g, Position{0, 1})
	if !containsPosition(moves, Position{1, 0}) || !containsPosition(moves, Position{1, 2}) {
		t.Fatalf("king at (0,1) should reach both down diagonals, got %v", moves)
	}
	g = mustApply(t, g, Position{0, 1}, Position{1, 2})
	if got := g.Board.At(Position{1, 2}); got != RedKing {
		t.Fatalf("king demoted to %v after moving off the back rank", got)
	}
}

func TestMultiJumpChaining(t *testing.T) {
	g := buildGame(SideRed, map[Position]Cell{
		{5, 2}: Red,
		{7, 0}: Red,
		{4, 3}: Black,
		{2, 5}: Black,
		{0, 1}: Black,
	})

	mid := mustApply(t, g, Position{5, 2}, Position{3, 4})
	if mid.Turn != SideRed {
		t.Fatalf("turn flipped mid multi-capture")
	}
	if mid.Forced == nil || *mid.Forced != (Position{3, 4}) {
		t.Fatalf("forced cell = %v, want (3,4)", mid.Forced)
	}
	if mid.Board.At(Position{4, 3}) != Empty {
		t.Fatalf("jumped piece not removed")
	}

	// Only the landing cell may move next.
	if moves := LegalMoves(mid, Position{7, 0}); len(moves) != 0 {
		t.Fatalf("other piece movable during forced continuation: %v", moves)
	}
	if _, err := Apply(mid, Position{7, 0}, Position{6, 1}); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("err = %v, want ErrInvalidMove for non-forced piece", err)
	}

	done := mustApply(t, mid, Position{3, 4}, Position{1, 6})
	if done.Forced != nil {
		t.Fatalf("forced cell survived the chain end")
	}
	if done.Turn != SideBlack {
		t.Fatalf("turn = %q after chain, want black", done.Turn)
	}
	if done.Board.At(Position{2, 5}) != Empty {
		t.Fatalf("second jumped piece not removed")
	}
}

func TestTerminalOnCaptureAll(t *testing.T) {
	g := buildGame(SideRed, map[Position]Cell{
		{3, 0}: Red,
		{2, 1}: Black,
	})
	final := mustApply(t, g, Position{3, 0}, Position{1, 2})
	if !final.IsTerminal() {
		t.Fatalf("game not terminal after last black piece captured")
	}
	if winner, ok := final.WinnerSide(); !ok || winner != SideRed {
		t.Fatalf("winner = %q (ok=%v), want red", winner, ok)
	}
}

func TestTerminalOnStalemate(t *testing.T) {
	// Black's only man sits on its own back rank with nowhere to go.
	g := buildGame(SideRed, map[Position]Cell{
		{5, 0}: Red,
		{7, 0}: Black,
	})
	final := mustApply(t, g, Position{5, 0}, Position{4, 1})
	if !final.IsTerminal() {
		t.Fatalf("stalemated side not detected as terminal")
	}
	if winner, _ := final.WinnerSide(); winner != SideRed {
		t.Fatalf("winner = %q, want red", winner)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := NewGame()
	g = mustApply(t, g, Position{5, 0}, Position{4, 1})

	restored, err := FromSnapshot(g.Snapshot())
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	if diff := cmp.Diff(g, restored); diff != "" {
		t.Fatalf("snapshot round trip mismatch (-orig +restored):\n%s", diff)
	}
}

func TestSnapshotRejectsBadTokens(t *testing.T) {
	s := NewGame().Snapshot()
	s.Board[0][1] = "rook"
	if _, err := FromSnapshot(s); err == nil {
		t.Fatalf("expected error for unknown cell token")
	}
	s = NewGame().Snapshot()
	s.Turn = "green"
	if _, err := FromSnapshot(s); err == nil {
		t.Fatalf("expected error for unknown side")
	}
}
