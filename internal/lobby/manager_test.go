package lobby

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/Checkers-KakaoTalk-bot/internal/match"
)

func newTestManagers(t *testing.T) (*Manager, *match.Manager) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	matchMgr, err := match.NewManager("redis://" + mr.Addr() + "/0")
	if err != nil {
		t.Fatalf("match.NewManager: %v", err)
	}
	t.Cleanup(func() { _ = matchMgr.Close() })

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewManager(rdb, matchMgr), matchMgr
}

func TestMakeJoinStartsMatch(t *testing.T) {
	m, matchMgr := newTestManagers(t)
	ctx := context.Background()

	made, err := m.Make(ctx, "roomA", "u1", "Alice", ColorRandom)
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if made.Code == "" {
		t.Fatalf("expected non-empty code")
	}

	joined, err := m.Join(ctx, "roomB", made.Code, "u2", "Bob", ColorRandom)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !joined.Started || joined.MatchID == "" {
		t.Fatalf("expected match to start on second join: started=%v match=%q", joined.Started, joined.MatchID)
	}

	g, err := matchMgr.GetActiveGameByUser(ctx, "u1")
	if err != nil || g == nil {
		t.Fatalf("GetActiveGameByUser: %v", err)
	}
	if g.ID != joined.MatchID {
		t.Fatalf("match id mismatch: %q vs %q", g.ID, joined.MatchID)
	}

	names := []string{g.RedName, g.BlackName}
	foundAlice, foundBob := false, false
	for _, n := range names {
		if n == "Alice" {
			foundAlice = true
		}
		if n == "Bob" {
			foundBob = true
		}
	}
	if !foundAlice || !foundBob {
		t.Fatalf("expected Alice and Bob as participants, got %v", names)
	}
}

func TestThirdJoinRejected(t *testing.T) {
	m, _ := newTestManagers(t)
	ctx := context.Background()

	made, err := m.Make(ctx, "roomA", "u1", "Alice", ColorRandom)
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	if _, err := m.Join(ctx, "roomB", made.Code, "u2", "Bob", ColorRandom); err != nil {
		t.Fatalf("Join#1: %v", err)
	}
	if _, err := m.Join(ctx, "roomC", made.Code, "u3", "Carol", ColorRandom); err == nil {
		t.Fatalf("expected error on third join")
	}
}

func TestJoinUnknownCode(t *testing.T) {
	m, _ := newTestManagers(t)
	if _, err := m.Join(context.Background(), "roomB", "NOPE1234", "u2", "Bob", ColorRandom); !errors.Is(err, ErrRoomGone) {
		t.Fatalf("expected ErrRoomGone, got %v", err)
	}
}

func TestCreatorJoinDoesNotStart(t *testing.T) {
	m, _ := newTestManagers(t)
	ctx := context.Background()

	made, err := m.Make(ctx, "roomA", "u1", "Alice", ColorRandom)
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	joined, err := m.Join(ctx, "roomA", made.Code, "u1", "Alice", ColorRandom)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if joined.Started {
		t.Fatalf("creator rejoining own lobby must not start a match")
	}
}

func TestMakeBlockedWhileLobbyWaiting(t *testing.T) {
	m, _ := newTestManagers(t)
	ctx := context.Background()

	if _, err := m.Make(ctx, "roomA", "u1", "Alice", ColorRandom); err != nil {
		t.Fatalf("first Make: %v", err)
	}
	if _, err := m.Make(ctx, "roomB", "u1", "Alice", ColorRandom); !errors.Is(err, ErrCreatorHasLobby) {
		t.Fatalf("expected ErrCreatorHasLobby, got %v", err)
	}
}

func TestMakeBlockedIfActiveMatchInRoom(t *testing.T) {
	m, matchMgr := newTestManagers(t)
	ctx := context.Background()

	if _, err := matchMgr.CreateGame(ctx, "roomA", "roomA", "u1", "Alice", "u2", "Bob", "random"); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if _, err := m.Make(ctx, "roomA", "u1", "Alice", ColorRandom); !errors.Is(err, ErrPlayerBusyInRoom) {
		t.Fatalf("expected ErrPlayerBusyInRoom, got %v", err)
	}
}

func TestListWaiting(t *testing.T) {
	m, _ := newTestManagers(t)
	ctx := context.Background()

	made, err := m.Make(ctx, "roomA", "u1", "Alice", ColorRandom)
	if err != nil {
		t.Fatalf("Make: %v", err)
	}
	waiting, err := m.ListWaiting(ctx)
	if err != nil {
		t.Fatalf("ListWaiting: %v", err)
	}
	if len(waiting) != 1 || waiting[0].Code != made.Code {
		t.Fatalf("unexpected waiting list: %+v", waiting)
	}

	if _, err := m.Join(ctx, "roomB", made.Code, "u2", "Bob", ColorRandom); err != nil {
		t.Fatalf("Join: %v", err)
	}
	waiting, err = m.ListWaiting(ctx)
	if err != nil {
		t.Fatalf("ListWaiting: %v", err)
	}
	if len(waiting) != 0 {
		t.Fatalf("expected empty waiting list after start, got %+v", waiting)
	}
}
