package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	corecheckers "github.com/park285/Checkers-KakaoTalk-bot/internal/checkers"
	"github.com/park285/Checkers-KakaoTalk-bot/internal/lobby"
	"github.com/park285/Checkers-KakaoTalk-bot/internal/match"
	"github.com/park285/Checkers-KakaoTalk-bot/internal/obslog"
	"github.com/park285/Checkers-KakaoTalk-bot/pkg/checkersdto"
)

// webRoomScope is the origin recorded for matches created over HTTP
// rather than from a chat room.
const webRoomScope = "web"

// Server exposes the room-based multiplayer flow over HTTP: create a
// room, join by code, poll state, submit moves.
type Server struct {
	lobbies *lobby.Manager
	matches *match.Manager
	srv     *fasthttp.Server
}

func NewServer(lobbies *lobby.Manager, matches *match.Manager) *Server {
	s := &Server{lobbies: lobbies, matches: matches}
	s.srv = &fasthttp.Server{
		Handler:      s.Handle,
		Name:         "checkers-web",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error {
	obslog.L().Info("httpapi_listen", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

// Handle routes a single request. Exported so tests can drive the
// handler through an in-memory listener.
func (s *Server) Handle(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	method := string(ctx.Method())

	switch {
	case path == "/healthz" && method == fasthttp.MethodGet:
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	case path == "/rooms" && method == fasthttp.MethodPost:
		s.handleCreate(ctx)
	case path == "/rooms/join" && method == fasthttp.MethodPost:
		s.handleJoin(ctx)
	case path == "/rooms/state" && method == fasthttp.MethodGet:
		s.handleState(ctx)
	case path == "/rooms/move" && method == fasthttp.MethodPost:
		s.handleMove(ctx)
	default:
		writeError(ctx, fasthttp.StatusNotFound, "not found")
	}
}

func (s *Server) handleCreate(ctx *fasthttp.RequestCtx) {
	var req checkersdto.CreateRoomRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "invalid json")
		return
	}
	made, err := s.lobbies.Make(ctx, webRoomScope, req.UserID, req.Username, lobby.ColorRandom)
	if err != nil {
		writeLobbyError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, checkersdto.CreateRoomResponse{RoomCode: made.Code})
}

func (s *Server) handleJoin(ctx *fasthttp.RequestCtx) {
	var req checkersdto.JoinRoomRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "invalid json")
		return
	}
	joined, err := s.lobbies.Join(ctx, webRoomScope, req.RoomCode, req.UserID, req.Username, lobby.ColorRandom)
	if err != nil {
		writeLobbyError(ctx, err)
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, checkersdto.JoinRoomResponse{
		Started: joined.Started,
		MatchID: joined.MatchID,
	})
}

func (s *Server) handleState(ctx *fasthttp.RequestCtx) {
	code := string(ctx.QueryArgs().Peek("room_code"))
	userID := string(ctx.QueryArgs().Peek("user_id"))
	if strings.TrimSpace(code) == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "room_code required")
		return
	}
	meta, err := s.lobbies.Meta(ctx, code)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
		return
	}
	if meta == nil {
		writeError(ctx, fasthttp.StatusNotFound, "room not found")
		return
	}
	state, err := s.buildRoomState(ctx, meta, userID)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, state)
}

func (s *Server) handleMove(ctx *fasthttp.RequestCtx) {
	var req checkersdto.MoveRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "invalid json")
		return
	}
	meta, err := s.lobbies.Meta(ctx, req.RoomCode)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
		return
	}
	if meta == nil {
		writeError(ctx, fasthttp.StatusNotFound, "room not found")
		return
	}
	if meta.MatchID == "" {
		writeError(ctx, fasthttp.StatusConflict, "match not started")
		return
	}

	g, reason, err := s.matches.PlayMoveByID(ctx, meta.MatchID, req.UserID, req.Move)
	if err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}
	if g == nil {
		writeError(ctx, fasthttp.StatusNotFound, "match not found")
		return
	}

	state, serr := s.buildRoomState(ctx, meta, req.UserID)
	if serr != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, serr.Error())
		return
	}
	resp := checkersdto.MoveResponse{
		OK:      reason == match.ReasonOK,
		Message: reasonMessage(reason),
		State:   state,
	}
	writeJSON(ctx, fasthttp.StatusOK, resp)
}

// buildRoomState renders the per-viewer room snapshot. Before the match
// starts the board shows the opening position with nobody to move.
func (s *Server) buildRoomState(ctx context.Context, meta *lobby.RoomMeta, userID string) (*checkersdto.RoomStateResponse, error) {
	resp := &checkersdto.RoomStateResponse{
		RoomCode:    meta.Code,
		CreatorName: meta.CreatorName,
	}

	if meta.MatchID == "" {
		resp.Board = corecheckers.NewGame().Snapshot().Board
		return resp, nil
	}

	g, err := s.matches.LoadGame(ctx, meta.MatchID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, errors.New("match record missing")
	}
	state, err := g.CurrentState()
	if err != nil {
		return nil, err
	}

	if g.RedID == meta.CreatorID {
		resp.OpponentName = g.BlackName
	} else {
		resp.OpponentName = g.RedName
	}
	if side := g.PlayerSide(userID); side != "" {
		resp.PlayerColor = string(side)
	}
	resp.CurrentPlayer = string(g.Turn)
	resp.IsMyTurn = g.Status == match.StatusActive && g.PlayerSide(userID) != "" && g.PlayerSide(userID) == g.Turn
	resp.Board = state.Snapshot().Board
	resp.GameOver = g.Status != match.StatusActive
	if resp.GameOver && g.Winner != "" {
		if g.Winner == g.RedID {
			resp.Winner = string(corecheckers.SideRed)
		} else {
			resp.Winner = string(corecheckers.SideBlack)
		}
	}
	return resp, nil
}

func reasonMessage(reason match.MoveReason) string {
	switch reason {
	case match.ReasonOK:
		return ""
	case match.ReasonNotYourTurn:
		return "not your turn"
	case match.ReasonInvalidMove:
		return "invalid move"
	case match.ReasonMustContinue:
		return "capture chain in progress, move the same piece again"
	case match.ReasonConcurrent:
		return "another move was applied first, retry"
	case match.ReasonGameOver:
		return "game is already over"
	default:
		return string(reason)
	}
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	raw, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetBody(raw)
}

func writeError(ctx *fasthttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, checkersdto.ErrorResponse{Error: msg})
}

func writeLobbyError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, lobby.ErrInvalidArgs):
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())
	case errors.Is(err, lobby.ErrRoomGone):
		writeError(ctx, fasthttp.StatusNotFound, err.Error())
	case errors.Is(err, lobby.ErrRoomActive),
		errors.Is(err, lobby.ErrFull),
		errors.Is(err, lobby.ErrPlayerBusyInRoom),
		errors.Is(err, lobby.ErrCreatorHasLobby):
		writeError(ctx, fasthttp.StatusConflict, err.Error())
	default:
		writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
	}
}
