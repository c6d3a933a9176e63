package httpapi

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/park285/Checkers-KakaoTalk-bot/internal/lobby"
	"github.com/park285/Checkers-KakaoTalk-bot/internal/match"
	"github.com/park285/Checkers-KakaoTalk-bot/pkg/checkersdto"
)

type testClient struct {
	t      *testing.T
	client *fasthttp.Client
}

func newTestClient(t *testing.T) *testClient {
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
	srv := NewServer(lobby.NewManager(rdb, matchMgr), matchMgr)

	ln := fasthttputil.NewInmemoryListener()
	t.Cleanup(func() { _ = ln.Close() })
	go func() { _ = fasthttp.Serve(ln, srv.Handle) }()

	return &testClient{
		t: t,
		client: &fasthttp.Client{
			Dial: func(string) (net.Conn, error) { return ln.Dial() },
		},
	}
}

func (c *testClient) do(method, url string, body any, out any) int {
	c.t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal request: %v", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(raw)
	}
	if err := c.client.DoTimeout(req, resp, 5*time.Second); err != nil {
		c.t.Fatalf("%s %s: %v", method, url, err)
	}
	if out != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			c.t.Fatalf("decode %s %s: %v (body %q)", method, url, err, resp.Body())
		}
	}
	return resp.StatusCode()
}

func TestRoomLifecycle(t *testing.T) {
	c := newTestClient(t)

	var created checkersdto.CreateRoomResponse
	status := c.do(fasthttp.MethodPost, "http://test/rooms",
		checkersdto.CreateRoomRequest{UserID: "u1", Username: "Alice"}, &created)
	if status != fasthttp.StatusOK || created.RoomCode == "" {
		t.Fatalf("create room: status=%d code=%q", status, created.RoomCode)
	}

	var joined checkersdto.JoinRoomResponse
	status = c.do(fasthttp.MethodPost, "http://test/rooms/join",
		checkersdto.JoinRoomRequest{RoomCode: created.RoomCode, UserID: "u2", Username: "Bob"}, &joined)
	if status != fasthttp.StatusOK || !joined.Started || joined.MatchID == "" {
		t.Fatalf("join room: status=%d started=%v match=%q", status, joined.Started, joined.MatchID)
	}

	var s1, s2 checkersdto.RoomStateResponse
	if st := c.do(fasthttp.MethodGet, "http://test/rooms/state?room_code="+created.RoomCode+"&user_id=u1", nil, &s1); st != fasthttp.StatusOK {
		t.Fatalf("state u1: status=%d", st)
	}
	if st := c.do(fasthttp.MethodGet, "http://test/rooms/state?room_code="+created.RoomCode+"&user_id=u2", nil, &s2); st != fasthttp.StatusOK {
		t.Fatalf("state u2: status=%d", st)
	}
	if len(s1.Board) != 8 || s1.GameOver {
		t.Fatalf("unexpected state: rows=%d over=%v", len(s1.Board), s1.GameOver)
	}
	if s1.PlayerColor == s2.PlayerColor || s1.PlayerColor == "" || s2.PlayerColor == "" {
		t.Fatalf("players must hold opposite colors: %q vs %q", s1.PlayerColor, s2.PlayerColor)
	}
	if s1.CurrentPlayer != "red" {
		t.Fatalf("red moves first, got %q", s1.CurrentPlayer)
	}

	redUser, blackUser := "u1", "u2"
	if s1.PlayerColor != "red" {
		redUser, blackUser = "u2", "u1"
	}

	var rejected checkersdto.MoveResponse
	c.do(fasthttp.MethodPost, "http://test/rooms/move",
		checkersdto.MoveRequest{RoomCode: created.RoomCode, UserID: blackUser, Move: "2,1-3,0"}, &rejected)
	if rejected.OK || rejected.Message == "" {
		t.Fatalf("black moving first must be rejected: %+v", rejected)
	}

	var moved checkersdto.MoveResponse
	c.do(fasthttp.MethodPost, "http://test/rooms/move",
		checkersdto.MoveRequest{RoomCode: created.RoomCode, UserID: redUser, Move: "5,0-4,1"}, &moved)
	if !moved.OK || moved.State == nil {
		t.Fatalf("legal move rejected: %+v", moved)
	}
	if moved.State.CurrentPlayer != "black" {
		t.Fatalf("expected black to move after red, got %q", moved.State.CurrentPlayer)
	}
}

func TestStateUnknownRoom(t *testing.T) {
	c := newTestClient(t)
	var errResp checkersdto.ErrorResponse
	status := c.do(fasthttp.MethodGet, "http://test/rooms/state?room_code=NOPE1234", nil, &errResp)
	if status != fasthttp.StatusNotFound {
		t.Fatalf("expected 404, got %d (%+v)", status, errResp)
	}
}

func TestMoveBeforeStart(t *testing.T) {
	c := newTestClient(t)

	var created checkersdto.CreateRoomResponse
	c.do(fasthttp.MethodPost, "http://test/rooms",
		checkersdto.CreateRoomRequest{UserID: "u1", Username: "Alice"}, &created)

	status := c.do(fasthttp.MethodPost, "http://test/rooms/move",
		checkersdto.MoveRequest{RoomCode: created.RoomCode, UserID: "u1", Move: "5,0-4,1"}, nil)
	if status != fasthttp.StatusConflict {
		t.Fatalf("expected 409 before start, got %d", status)
	}
}

func TestJoinUnknownCode(t *testing.T) {
	c := newTestClient(t)
	status := c.do(fasthttp.MethodPost, "http://test/rooms/join",
		checkersdto.JoinRoomRequest{RoomCode: "NOPE1234", UserID: "u2", Username: "Bob"}, nil)
	if status != fasthttp.StatusNotFound {
		t.Fatalf("expected 404 for unknown code, got %d", status)
	}
}
