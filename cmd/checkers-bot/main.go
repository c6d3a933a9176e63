package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/Checkers-KakaoTalk-bot/internal/adapter/boardpresenter"
	corecheckers "github.com/park285/Checkers-KakaoTalk-bot/internal/checkers"
	appcfg "github.com/park285/Checkers-KakaoTalk-bot/internal/config"
	"github.com/park285/Checkers-KakaoTalk-bot/internal/gateway"
	"github.com/park285/Checkers-KakaoTalk-bot/internal/lobby"
	"github.com/park285/Checkers-KakaoTalk-bot/internal/match"
	"github.com/park285/Checkers-KakaoTalk-bot/internal/msgcat"
	"github.com/park285/Checkers-KakaoTalk-bot/internal/obslog"
	svccheckers "github.com/park285/Checkers-KakaoTalk-bot/internal/service/checkers"
)

type deps struct {
	cfg       *appcfg.AppConfig
	egress    gateway.Egress
	matches   *match.Manager
	lobbies   *lobby.Manager
	checkers  *svccheckers.Service
	presenter *boardpresenter.Presenter
	formatter *boardpresenter.Formatter
}

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	headers := func() map[string]string {
		h := map[string]string{}
		if cfg.XUserID != "" {
			h["X-User-Id"] = cfg.XUserID
		}
		if cfg.XSessionID != "" {
			h["X-Session-Id"] = cfg.XSessionID
		}
		return h
	}

	client := gateway.NewClient(cfg.GatewayBaseURL, gateway.WithHeaderProvider(headers))

	ws := gateway.NewWebSocket(cfg.GatewayWSURL, 5, time.Second)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state gateway.WebSocketState) {
		obslog.L().Info("ws_state", zap.String("state", string(state)))
	})

	egress := gateway.NewEgress(cfg.EgressMode, client, ws, obslog.L())

	// Without Redis the bot still runs the per-room hotseat game on an
	// in-memory store; PvP and lobby commands need shared state and stay off.
	var (
		matchMgr  *match.Manager
		matchRepo *match.Repository
		lobbyMgr  *lobby.Manager
		rdb       *redis.Client
		store     svccheckers.SessionStore
	)
	if cfg.RedisURL != "" {
		matchMgr, err = match.NewManager(cfg.RedisURL)
		if err != nil {
			log.Fatalf("match manager init error: %v", err)
		}
		if cfg.DatabaseURL != "" {
			matchRepo, err = match.NewRepository(cfg.DatabaseURL)
			if err != nil {
				log.Fatalf("match repo init error: %v", err)
			}
			matchMgr.AttachRepository(matchRepo)
		}
		redisOpts, perr := redis.ParseURL(cfg.RedisURL)
		if perr != nil {
			log.Fatalf("redis url error: %v", perr)
		}
		rdb = redis.NewClient(redisOpts)
		lobbyMgr = lobby.NewManager(rdb, matchMgr)
		store = svccheckers.NewRedisSessionStore(rdb)
	} else {
		obslog.L().Warn("redis_not_configured", zap.String("effect", "memory sessions, pvp/lobby disabled"))
		store = svccheckers.NewMemorySessionStore()
	}

	checkersSvc, err := svccheckers.NewService(
		store,
		svccheckers.NewSVGBoardRenderer(),
		svccheckers.Config{
			SessionTTL:   time.Duration(cfg.SessionTTLSec) * time.Second,
			AllowedRooms: cfg.AllowedRooms,
		},
		obslog.L(),
	)
	if err != nil {
		log.Fatalf("checkers init error: %v", err)
	}

	cat, err := msgcat.New(os.Getenv("MESSAGES_DIR"))
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	presenter := boardpresenter.NewPresenter(
		func(room, message string) error { return egress.SendText(context.Background(), room, message) },
		func(room, imageBase64 string) error { return egress.SendImage(context.Background(), room, imageBase64) },
	)
	formatter := boardpresenter.NewFormatter(prefixProvider{prefix: cfg.BotPrefix}, cat)

	d := &deps{
		cfg:       cfg,
		egress:    egress,
		matches:   matchMgr,
		lobbies:   lobbyMgr,
		checkers:  checkersSvc,
		presenter: presenter,
		formatter: formatter,
	}

	ws.OnMessage(func(msg *gateway.Message) {
		if msg == nil || msg.Msg == "" {
			return
		}
		if len(cfg.AllowedRooms) > 0 && !roomAllowed(cfg.AllowedRooms, msg.Room) {
			return
		}
		if !strings.HasPrefix(strings.TrimSpace(msg.Msg), cfg.BotPrefix) {
			return
		}
		// Avoid blocking the WS loop
		go d.handleCommand(msg)
	})

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ws.Connect(cctx); err != nil {
		cancel()
		log.Fatalf("ws connect error: %v", err)
	}
	cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	_ = ws.Close(context.Background())
	if matchMgr != nil {
		_ = matchMgr.Close()
	}
	if matchRepo != nil {
		_ = matchRepo.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}

func (d *deps) handleCommand(msg *gateway.Message) {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(msg.Msg), d.cfg.BotPrefix))
	if raw == "" {
		_ = d.presenter.Text(msg.Room, d.formatter.Help())
		return
	}
	parts := strings.Fields(raw)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help":
		_ = d.presenter.Text(msg.Room, d.formatter.Help())
	case "start":
		d.handleStart(msg)
	case "board":
		d.handleBoard(msg)
	case "end":
		d.handleEnd(msg)
	case "hints":
		d.handleHints(msg, args)
	case "pvp":
		d.handlePvp(msg, args)
	case "lobby":
		d.handleLobby(msg, args)
	default:
		// Everything else is treated as a move for the room game.
		d.handleMove(msg, cmd)
	}
}

func (d *deps) sessionMeta(msg *gateway.Message) svccheckers.SessionMeta {
	return svccheckers.SessionMeta{
		SessionID: strings.TrimSpace(msg.Room),
		Room:      msg.Room,
		Sender:    senderName(msg),
	}
}

func (d *deps) handleStart(msg *gateway.Message) {
	ctx := context.Background()
	meta := d.sessionMeta(msg)

	state, err := d.checkers.Start(ctx, meta)
	resumed := false
	if errors.Is(err, svccheckers.ErrSessionInProgress) {
		resumed = true
		err = nil
	}
	if err != nil {
		_ = d.presenter.Text(msg.Room, "Could not start the game: "+err.Error())
		return
	}
	_ = d.presenter.Session(msg.Room, d.formatter.Start(state, resumed), state)
}

func (d *deps) handleBoard(msg *gateway.Message) {
	ctx := context.Background()
	state, err := d.checkers.Status(ctx, d.sessionMeta(msg))
	if err != nil {
		d.replySessionError(msg.Room, err)
		return
	}
	_ = d.presenter.Session(msg.Room, d.formatter.TextBoard(state.Board), state)
}

func (d *deps) handleEnd(msg *gateway.Message) {
	ctx := context.Background()
	if _, err := d.checkers.End(ctx, d.sessionMeta(msg)); err != nil {
		d.replySessionError(msg.Room, err)
		return
	}
	_ = d.presenter.Text(msg.Room, d.formatter.Ended())
}

func (d *deps) handleHints(msg *gateway.Message, args []string) {
	if len(args) < 1 {
		_ = d.presenter.Text(msg.Room, "Usage: "+d.cfg.BotPrefix+"hints <row,col>")
		return
	}
	ctx := context.Background()
	moves, err := d.checkers.Hints(ctx, d.sessionMeta(msg), args[0])
	if err != nil {
		if errors.Is(err, svccheckers.ErrBadMoveInput) {
			_ = d.presenter.Text(msg.Room, d.formatter.InvalidFormat())
			return
		}
		d.replySessionError(msg.Room, err)
		return
	}
	_ = d.presenter.Text(msg.Room, d.formatter.Hints(args[0], moves))
}

func (d *deps) handleMove(msg *gateway.Message, moveText string) {
	ctx := context.Background()
	summary, err := d.checkers.Play(ctx, d.sessionMeta(msg), moveText)
	if err != nil {
		switch {
		case errors.Is(err, svccheckers.ErrBadMoveInput):
			_ = d.presenter.Text(msg.Room, d.formatter.InvalidFormat())
		case errors.Is(err, corecheckers.ErrInvalidMove):
			_ = d.presenter.Text(msg.Room, d.formatter.InvalidMove())
		default:
			d.replySessionError(msg.Room, err)
		}
		return
	}
	_ = d.presenter.Session(msg.Room, d.formatter.Move(summary), summary.State)
}

func (d *deps) replySessionError(room string, err error) {
	if errors.Is(err, svccheckers.ErrSessionNotFound) {
		_ = d.presenter.Text(room, d.formatter.NoSession())
		return
	}
	obslog.L().Warn("session_command_error", zap.String("room", room), zap.Error(err))
	_ = d.presenter.Text(room, "Something went wrong: "+err.Error())
}

func (d *deps) handlePvp(msg *gateway.Message, args []string) {
	ctx := context.Background()
	if d.matches == nil {
		_ = d.presenter.Text(msg.Room, "PvP matches need a Redis-backed deployment.")
		return
	}
	if len(args) < 1 {
		_ = d.presenter.Text(msg.Room, "Usage: "+d.cfg.BotPrefix+"pvp @user [red|black|random] | pvp status | pvp resign | pvp <move>")
		return
	}
	user := userIDFromMessage(msg)
	if user == "" {
		_ = d.presenter.Text(msg.Room, "Cannot identify the sender.")
		return
	}

	if strings.HasPrefix(args[0], "@") {
		target := sanitizeUserArg(args[0])
		if target == "" {
			_ = d.presenter.Text(msg.Room, "Invalid target user.")
			return
		}
		color := "random"
		if len(args) >= 2 {
			switch strings.ToLower(args[1]) {
			case "red", "black", "random", "r", "b":
				color = strings.ToLower(args[1])
			}
		}
		g, err := d.matches.CreateGame(ctx, msg.Room, msg.Room, user, senderName(msg), target, target, color)
		if err != nil {
			_ = d.presenter.Text(msg.Room, "Match error: "+err.Error())
			return
		}
		d.broadcastMatch(ctx, g, d.formatterMatchStarted(ctx, g))
		return
	}

	sub := strings.ToLower(strings.TrimSpace(args[0]))
	switch sub {
	case "status":
		g, err := d.matches.GetActiveGameByUserInRoom(ctx, user, msg.Room)
		if err != nil || g == nil {
			_ = d.presenter.Text(msg.Room, d.formatter.NoActiveMatch())
			return
		}
		d.broadcastMatch(ctx, g, "")
	case "resign":
		g, err := d.matches.ResignByRoom(ctx, user, msg.Room)
		if err != nil || g == nil {
			_ = d.presenter.Text(msg.Room, d.formatter.NoActiveMatch())
			return
		}
		text := d.formatter.Resigned(playerNameOf(g, user), winnerNameOf(g))
		d.broadcastMatch(ctx, g, text)
	default:
		g, reason, err := d.matches.PlayMoveByRoom(ctx, user, msg.Room, sub)
		if err != nil {
			obslog.L().Warn("pvp_move_error", zap.String("room", msg.Room), zap.Error(err))
			_ = d.presenter.Text(msg.Room, d.formatter.InvalidMove())
			return
		}
		if g == nil {
			_ = d.presenter.Text(msg.Room, d.formatter.NoActiveMatch())
			return
		}
		if reason != match.ReasonOK {
			_ = d.presenter.Text(msg.Room, d.formatter.MoveReason(reason))
			return
		}
		text := ""
		if g.Status == match.StatusFinished {
			text = d.formatter.MatchFinished(winnerNameOf(g))
		}
		d.broadcastMatch(ctx, g, text)
	}
}

// broadcastMatch renders the match once and delivers it to both rooms.
func (d *deps) broadcastMatch(ctx context.Context, g *match.Game, text string) {
	dto, err := d.matches.ToDTO(ctx, g)
	if err != nil {
		obslog.L().Warn("match_render_error", zap.String("match_id", g.ID), zap.Error(err))
		if text != "" {
			_ = d.presenter.Text(g.OriginRoom, text)
		}
		return
	}
	_ = d.presenter.Match(g.OriginRoom, text, dto)
	if g.ResolveRoom != "" && g.ResolveRoom != g.OriginRoom {
		_ = d.presenter.Match(g.ResolveRoom, text, dto)
	}
}

func (d *deps) formatterMatchStarted(ctx context.Context, g *match.Game) string {
	dto, err := d.matches.ToDTO(ctx, g)
	if err != nil {
		return ""
	}
	return d.formatter.MatchStarted(dto)
}

func (d *deps) handleLobby(msg *gateway.Message, args []string) {
	ctx := context.Background()
	if d.lobbies == nil {
		_ = d.presenter.Text(msg.Room, "Lobby rooms need a Redis-backed deployment.")
		return
	}
	if len(args) < 1 {
		_ = d.presenter.Text(msg.Room, "Usage: "+d.cfg.BotPrefix+"lobby make | join <code> | list")
		return
	}
	user := userIDFromMessage(msg)
	if user == "" {
		_ = d.presenter.Text(msg.Room, "Cannot identify the sender.")
		return
	}

	switch strings.ToLower(args[0]) {
	case "make":
		made, err := d.lobbies.Make(ctx, msg.Room, user, senderName(msg), lobby.ColorRandom)
		if err != nil {
			d.replyLobbyError(msg.Room, err)
			return
		}
		text := d.formatter.LobbyMade(made.Code)
		if d.cfg.WebAppURL != "" {
			text += "\nWeb: " + d.cfg.WebAppURL + "?room=" + made.Code
		}
		_ = d.presenter.Text(msg.Room, text)
	case "join":
		if len(args) < 2 {
			_ = d.presenter.Text(msg.Room, "Usage: "+d.cfg.BotPrefix+"lobby join <code>")
			return
		}
		joined, err := d.lobbies.Join(ctx, msg.Room, args[1], user, senderName(msg), lobby.ColorRandom)
		if err != nil {
			d.replyLobbyError(msg.Room, err)
			return
		}
		if !joined.Started {
			_ = d.presenter.Text(msg.Room, d.formatter.LobbyJoinedWaiting(joined.Meta.Code))
			return
		}
		g, gerr := d.matches.LoadGame(ctx, joined.MatchID)
		if gerr != nil || g == nil {
			_ = d.presenter.Text(msg.Room, d.formatter.LobbyGone())
			return
		}
		d.broadcastMatch(ctx, g, d.formatterMatchStarted(ctx, g))
	case "list":
		waiting, err := d.lobbies.ListWaiting(ctx)
		if err != nil {
			d.replyLobbyError(msg.Room, err)
			return
		}
		codes := make([]string, 0, len(waiting))
		for _, m := range waiting {
			codes = append(codes, m.Code)
		}
		_ = d.presenter.Text(msg.Room, d.formatter.LobbyList(codes))
	default:
		_ = d.presenter.Text(msg.Room, "Usage: "+d.cfg.BotPrefix+"lobby make | join <code> | list")
	}
}

func (d *deps) replyLobbyError(room string, err error) {
	switch {
	case errors.Is(err, lobby.ErrFull):
		_ = d.presenter.Text(room, d.formatter.LobbyFull())
	case errors.Is(err, lobby.ErrRoomGone), errors.Is(err, lobby.ErrRoomActive):
		_ = d.presenter.Text(room, d.formatter.LobbyGone())
	default:
		_ = d.presenter.Text(room, "Lobby error: "+err.Error())
	}
}

func winnerNameOf(g *match.Game) string {
	if g.Winner == g.RedID {
		return g.RedName
	}
	return g.BlackName
}

func playerNameOf(g *match.Game, userID string) string {
	if g.RedID == userID {
		return g.RedName
	}
	return g.BlackName
}

func userIDFromMessage(msg *gateway.Message) string {
	if msg.JSON != nil && msg.JSON.UserID != "" {
		return msg.JSON.UserID
	}
	if msg.Sender != nil {
		return strings.TrimSpace(*msg.Sender)
	}
	return ""
}

func senderName(msg *gateway.Message) string {
	if msg.Sender != nil && strings.TrimSpace(*msg.Sender) != "" {
		return strings.TrimSpace(*msg.Sender)
	}
	return userIDFromMessage(msg)
}

func sanitizeUserArg(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "@")
	return s
}

func roomAllowed(allowed []string, room string) bool {
	for _, r := range allowed {
		if r == room {
			return true
		}
	}
	return false
}

type prefixProvider struct{ prefix string }

func (p prefixProvider) Prefix() string { return p.prefix }
