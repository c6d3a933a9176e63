package match

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"

	corecheckers "github.com/park285/Checkers-KakaoTalk-bot/internal/checkers"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	m, err := NewManager("redis://" + mr.Addr() + "/0")
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestCreateGameColorChoice(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	g, err := m.CreateGame(ctx, "roomA", "roomA", "u1", "Alice", "u2", "Bob", "red")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if g.RedID != "u1" || g.BlackID != "u2" {
		t.Fatalf("color choice red not honored: red=%s black=%s", g.RedID, g.BlackID)
	}
	if g.Turn != corecheckers.SideRed || g.Status != StatusActive {
		t.Fatalf("unexpected initial state: turn=%s status=%s", g.Turn, g.Status)
	}

	g2, err := m.CreateGame(ctx, "roomB", "roomB", "u3", "Carol", "u4", "Dave", "black")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if g2.RedID != "u4" || g2.BlackID != "u3" {
		t.Fatalf("color choice black not honored: red=%s black=%s", g2.RedID, g2.BlackID)
	}
}

func TestGetActiveGameByUserInRoom(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.CreateGame(ctx, "roomA", "roomA", "u1", "Alice", "u2", "Bob", "red")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	g, err := m.GetActiveGameByUserInRoom(ctx, "u2", "roomA")
	if err != nil {
		t.Fatalf("GetActiveGameByUserInRoom: %v", err)
	}
	if g == nil || g.ID != created.ID {
		t.Fatalf("expected match %s, got %+v", created.ID, g)
	}

	g, err = m.GetActiveGameByUserInRoom(ctx, "u2", "other-room")
	if err != nil {
		t.Fatalf("GetActiveGameByUserInRoom: %v", err)
	}
	if g != nil {
		t.Fatalf("expected no match outside room, got %s", g.ID)
	}
}

func TestPlayMoveTurnOrder(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.CreateGame(ctx, "roomA", "roomA", "u1", "Alice", "u2", "Bob", "red"); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	// black tries to move first
	_, reason, err := m.PlayMoveByRoom(ctx, "u2", "roomA", "2,1-3,0")
	if err != nil {
		t.Fatalf("PlayMoveByRoom: %v", err)
	}
	if reason != ReasonNotYourTurn {
		t.Fatalf("expected not_your_turn, got %s", reason)
	}

	g, reason, err := m.PlayMoveByRoom(ctx, "u1", "roomA", "5,0-4,1")
	if err != nil {
		t.Fatalf("PlayMoveByRoom: %v", err)
	}
	if reason != ReasonOK {
		t.Fatalf("expected ok, got %s", reason)
	}
	if g.Turn != corecheckers.SideBlack {
		t.Fatalf("expected black to move after red, got %s", g.Turn)
	}
	if len(g.Moves) != 1 || g.Moves[0] != "5,0-4,1" {
		t.Fatalf("move not recorded: %v", g.Moves)
	}
}

func TestPlayMoveRejectsIllegal(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.CreateGame(ctx, "roomA", "roomA", "u1", "Alice", "u2", "Bob", "red"); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	g, reason, err := m.PlayMoveByRoom(ctx, "u1", "roomA", "5,0-3,0")
	if err != nil {
		t.Fatalf("PlayMoveByRoom: %v", err)
	}
	if reason != ReasonInvalidMove {
		t.Fatalf("expected invalid_move, got %s", reason)
	}
	if len(g.Moves) != 0 {
		t.Fatalf("rejected move must not be recorded: %v", g.Moves)
	}

	_, reason, err = m.PlayMoveByRoom(ctx, "u1", "roomA", "garbage")
	if err != nil {
		t.Fatalf("PlayMoveByRoom: %v", err)
	}
	if reason != ReasonInvalidMove {
		t.Fatalf("expected invalid_move for garbage, got %s", reason)
	}
}

func TestResignFinishesMatch(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if _, err := m.CreateGame(ctx, "roomA", "roomA", "u1", "Alice", "u2", "Bob", "red"); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	g, err := m.ResignByRoom(ctx, "u1", "roomA")
	if err != nil {
		t.Fatalf("ResignByRoom: %v", err)
	}
	if g.Status != StatusResigned || g.Winner != "u2" || g.Outcome != "resign" {
		t.Fatalf("unexpected resign result: %+v", g)
	}

	active, err := m.GetActiveGameByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetActiveGameByUser: %v", err)
	}
	if active != nil {
		t.Fatalf("expected no active match after resign, got %s", active.ID)
	}
}

func TestToDTORendersBoard(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	created, err := m.CreateGame(ctx, "roomA", "roomA", "u1", "Alice", "u2", "Bob", "red")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if _, reason, err := m.PlayMoveByRoom(ctx, "u1", "roomA", "5,0-4,1"); err != nil || reason != ReasonOK {
		t.Fatalf("PlayMoveByRoom: reason=%s err=%v", reason, err)
	}

	g, err := m.LoadGame(ctx, created.ID)
	if err != nil || g == nil {
		t.Fatalf("LoadGame: %v", err)
	}
	dto, err := m.ToDTO(ctx, g)
	if err != nil {
		t.Fatalf("ToDTO: %v", err)
	}
	if dto.MatchID != created.ID || dto.MoveCount != 1 || len(dto.BoardImage) == 0 {
		t.Fatalf("unexpected dto: id=%s moves=%d image=%d bytes", dto.MatchID, dto.MoveCount, len(dto.BoardImage))
	}
	if dto.Board.Turn != string(corecheckers.SideBlack) {
		t.Fatalf("expected black to move in dto, got %s", dto.Board.Turn)
	}
}
