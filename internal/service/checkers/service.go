package checkers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	corecheckers "github.com/park285/Checkers-KakaoTalk-bot/internal/checkers"
	"github.com/park285/Checkers-KakaoTalk-bot/pkg/checkersdto"
)

var (
	ErrSessionNotFound   = errors.New("checkers session not found")
	ErrSessionInProgress = errors.New("checkers session already in progress")
	ErrBadMoveInput      = errors.New("move text not understood")
	ErrRoomNotAllowed    = errors.New("checkers room not allowed")
)

const playerLabelRuneLimit = 24

type SessionMeta struct {
	SessionID string
	Room      string
	Sender    string
}

type Config struct {
	SessionTTL   time.Duration
	AllowedRooms []string
}

// Service runs the per-room hotseat game: one shared session per chat,
// both sides played from the same room.
type Service struct {
	store        SessionStore
	renderer     BoardRenderer
	cfg          Config
	allowedRooms map[string]struct{}
	logger       *zap.Logger
}

type sessionPayload struct {
	SessionUUID string    `json:"session_uuid"`
	Room        string    `json:"room"`
	StartedBy   string    `json:"started_by,omitempty"`
	Moves       []string  `json:"moves"`
	StartedAt   time.Time `json:"started_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewService(store SessionStore, renderer BoardRenderer, cfg Config, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("board renderer is required")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("session TTL must be greater than 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	allowedRooms := make(map[string]struct{})
	for _, room := range cfg.AllowedRooms {
		normalized := strings.ToLower(strings.TrimSpace(room))
		if normalized == "" {
			continue
		}
		allowedRooms[normalized] = struct{}{}
	}

	return &Service{
		store:        store,
		renderer:     renderer,
		cfg:          cfg,
		allowedRooms: allowedRooms,
		logger:       logger,
	}, nil
}

func (s *Service) Start(ctx context.Context, meta SessionMeta) (*checkersdto.SessionState, error) {
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}

	key := s.sessionKey(meta.SessionID)
	existing := &sessionPayload{}
	found, err := s.store.Get(ctx, key, existing)
	if err != nil {
		return nil, err
	}
	if found {
		game, err := replaySession(existing)
		if err != nil {
			return nil, err
		}
		state := s.stateFromGame(existing, game)
		s.attachBoardImage(ctx, state, game, nil)
		return state, ErrSessionInProgress
	}

	payload := &sessionPayload{
		SessionUUID: uuid.NewString(),
		Room:        strings.TrimSpace(meta.Room),
		StartedBy:   normalizePlayerLabel(meta.Sender),
		Moves:       []string{},
		StartedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.saveSession(ctx, key, payload); err != nil {
		return nil, err
	}

	game := corecheckers.NewGame()
	state := s.stateFromGame(payload, game)
	s.attachBoardImage(ctx, state, game, nil)
	return state, nil
}

func (s *Service) Status(ctx context.Context, meta SessionMeta) (*checkersdto.SessionState, error) {
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}

	payload, err := s.loadSession(ctx, meta.SessionID)
	if err != nil {
		return nil, err
	}
	game, err := replaySession(payload)
	if err != nil {
		return nil, err
	}
	state := s.stateFromGame(payload, game)
	s.attachBoardImage(ctx, state, game, nil)
	return state, nil
}

func (s *Service) Play(ctx context.Context, meta SessionMeta, moveText string) (*checkersdto.MoveSummary, error) {
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}

	payload, err := s.loadSession(ctx, meta.SessionID)
	if err != nil {
		return nil, err
	}
	game, err := replaySession(payload)
	if err != nil {
		return nil, err
	}

	from, to, err := corecheckers.ParseMove(moveText)
	if err != nil {
		return nil, ErrBadMoveInput
	}

	movedPiece := game.Board.At(from)
	next, err := corecheckers.Apply(game, from, to)
	if err != nil {
		return nil, err
	}

	payload.Moves = append(payload.Moves, corecheckers.FormatMove(from, to))
	payload.UpdatedAt = time.Now()

	state := s.stateFromGame(payload, next)
	s.attachBoardImage(ctx, state, next, &MoveHighlight{From: from, To: to})

	summary := &checkersdto.MoveSummary{
		State:          state,
		Move:           corecheckers.FormatMove(from, to),
		Capture:        corecheckers.IsCapture(from, to),
		Promoted:       !movedPiece.King() && next.Board.At(to).King(),
		ChainContinues: next.Forced != nil,
		Finished:       next.Over,
	}
	if winner, ok := next.WinnerSide(); ok {
		summary.Winner = string(winner)
	}

	key := s.sessionKey(meta.SessionID)
	if next.Over {
		if err := s.store.Del(ctx, key); err != nil {
			s.logger.Warn("failed to delete finished checkers session", zap.Error(err))
		}
	} else if err := s.saveSession(ctx, key, payload); err != nil {
		return nil, err
	}

	return summary, nil
}

// Hints returns the legal destinations for one square, formatted as "r,c".
func (s *Service) Hints(ctx context.Context, meta SessionMeta, posText string) ([]string, error) {
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}

	payload, err := s.loadSession(ctx, meta.SessionID)
	if err != nil {
		return nil, err
	}
	game, err := replaySession(payload)
	if err != nil {
		return nil, err
	}

	pos, err := corecheckers.ParsePosition(posText)
	if err != nil {
		return nil, ErrBadMoveInput
	}

	moves := corecheckers.LegalMoves(game, pos)
	hints := make([]string, 0, len(moves))
	for _, m := range moves {
		hints = append(hints, corecheckers.FormatPosition(m))
	}
	return hints, nil
}

func (s *Service) End(ctx context.Context, meta SessionMeta) (*checkersdto.SessionState, error) {
	if err := s.ensureRoomAllowed(meta); err != nil {
		return nil, err
	}

	payload, err := s.loadSession(ctx, meta.SessionID)
	if err != nil {
		return nil, err
	}
	game, err := replaySession(payload)
	if err != nil {
		return nil, err
	}
	state := s.stateFromGame(payload, game)

	if err := s.store.Del(ctx, s.sessionKey(meta.SessionID)); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Service) ensureRoomAllowed(meta SessionMeta) error {
	if len(s.allowedRooms) == 0 {
		return nil
	}

	room := strings.ToLower(strings.TrimSpace(meta.Room))
	if room == "" {
		room = "unknown-room"
	}
	if _, ok := s.allowedRooms[room]; ok {
		return nil
	}

	s.logger.Info("checkers room access denied",
		zap.String("room", room),
		zap.String("sender", strings.TrimSpace(meta.Sender)),
	)
	return ErrRoomNotAllowed
}

func (s *Service) sessionKey(sessionID string) string {
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(sessionID))))
	return "checkers:sessions:" + hex.EncodeToString(hash[:])
}

func (s *Service) loadSession(ctx context.Context, sessionID string) (*sessionPayload, error) {
	payload := &sessionPayload{}
	found, err := s.store.Get(ctx, s.sessionKey(sessionID), payload)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrSessionNotFound
	}
	return payload, nil
}

func (s *Service) saveSession(ctx context.Context, key string, payload *sessionPayload) error {
	if payload == nil {
		return fmt.Errorf("cannot save nil checkers session payload")
	}
	payload.UpdatedAt = time.Now()
	return s.store.Set(ctx, key, payload, s.cfg.SessionTTL)
}

func replaySession(payload *sessionPayload) (corecheckers.Game, error) {
	game := corecheckers.NewGame()
	for _, mv := range payload.Moves {
		from, to, err := corecheckers.ParseMove(mv)
		if err != nil {
			return corecheckers.Game{}, fmt.Errorf("decode move %s: %w", mv, err)
		}
		game, err = corecheckers.Apply(game, from, to)
		if err != nil {
			return corecheckers.Game{}, fmt.Errorf("apply move %s: %w", mv, err)
		}
	}
	return game, nil
}

func (s *Service) stateFromGame(payload *sessionPayload, game corecheckers.Game) *checkersdto.SessionState {
	return &checkersdto.SessionState{
		SessionID: payload.SessionUUID,
		Room:      payload.Room,
		StartedBy: payload.StartedBy,
		Board:     BoardStateFrom(game),
		Moves:     append([]string(nil), payload.Moves...),
		MoveCount: len(payload.Moves),
		StartedAt: payload.StartedAt.Unix(),
		UpdatedAt: payload.UpdatedAt.Unix(),
	}
}

// BoardStateFrom flattens an engine game into the wire DTO.
func BoardStateFrom(game corecheckers.Game) checkersdto.BoardState {
	snap := game.Snapshot()
	state := checkersdto.BoardState{
		Board: snap.Board,
		Turn:  string(snap.Turn),
		Over:  snap.Over,
	}
	if snap.Winner != "" {
		state.Winner = string(snap.Winner)
	}
	if snap.Forced != nil {
		state.Forced = corecheckers.FormatPosition(*snap.Forced)
	}
	return state
}

func (s *Service) attachBoardImage(ctx context.Context, state *checkersdto.SessionState, game corecheckers.Game, highlight *MoveHighlight) {
	if state == nil || s.renderer == nil {
		return
	}

	header := "Checkers"
	if label := normalizePlayerLabel(state.StartedBy); label != "" {
		header = label + " - Checkers"
	}
	turnNumber := state.MoveCount/2 + 1
	hudTurn := fmt.Sprintf("move %d", turnNumber)
	switch game.Turn {
	case corecheckers.SideRed:
		hudTurn = fmt.Sprintf("Red to move - %d", turnNumber)
	case corecheckers.SideBlack:
		hudTurn = fmt.Sprintf("Black to move - %d", turnNumber)
	}
	if game.Over {
		hudTurn = "Game over"
	}

	opts := RenderOptions{
		Highlight: highlight,
		Forced:    game.Forced,
		HUDHeader: header,
		HUDTurn:   hudTurn,
	}
	data, err := s.renderer.RenderPNG(ctx, game.Board, opts)
	if err != nil {
		s.logger.Warn("failed to render checkers board image", zap.Error(err))
		return
	}
	state.BoardImage = data
}

func normalizePlayerLabel(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return ""
	}
	cleaned = strings.NewReplacer("\r", " ", "\n", " ").Replace(cleaned)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return ""
	}
	runes := []rune(cleaned)
	if len(runes) > playerLabelRuneLimit {
		truncated := strings.TrimSpace(string(runes[:playerLabelRuneLimit]))
		if truncated == "" {
			return ""
		}
		return truncated + "..."
	}
	return cleaned
}
