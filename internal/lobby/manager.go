package lobby

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/Checkers-KakaoTalk-bot/internal/match"
	"github.com/park285/Checkers-KakaoTalk-bot/internal/obslog"
)

type Manager struct {
	rdb     *redis.Client
	store   *Store
	matches *match.Manager
}

func NewManager(rdb *redis.Client, matches *match.Manager) *Manager {
	return &Manager{rdb: rdb, store: NewStore(rdb), matches: matches}
}

// Make allocates a joinable lobby room. The creator is recorded as the
// first participant so the second join auto-starts the match.
func (m *Manager) Make(ctx context.Context, room, userID, userName string, color ColorChoice) (*MakeResult, error) {
	if strings.TrimSpace(room) == "" || strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidArgs
	}
	if g, _ := m.matches.GetActiveGameByUserInRoom(ctx, userID, room); g != nil {
		return nil, ErrPlayerBusyInRoom
	}
	if waiting, _ := m.store.ListWaiting(ctx); waiting != nil {
		for _, meta := range waiting {
			if meta.CreatorID == userID {
				return nil, ErrCreatorHasLobby
			}
		}
	}

	for i := 0; i < 5; i++ {
		code := codeGen()
		meta := &RoomMeta{
			Code:        code,
			State:       StateWaiting,
			CreatedAt:   time.Now(),
			CreatorID:   userID,
			CreatorName: userName,
			CreatorRoom: room,
		}
		// claim the code only if unused
		ok, err := m.rdb.SetNX(ctx, m.store.keyMeta(code), []byte("{}"), ttlRoom).Result()
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if err := m.store.SaveMeta(ctx, code, meta); err != nil {
			return nil, err
		}
		if err := m.store.AddParticipant(ctx, code, userID); err != nil {
			return nil, err
		}
		if err := m.store.AddWaiting(ctx, code); err != nil {
			return nil, err
		}
		obslog.L().Info("lobby_make",
			zap.String("code", code),
			zap.String("room", room),
			zap.String("creator_id", userID),
		)
		return &MakeResult{Code: code, Meta: meta}, nil
	}
	return nil, fmt.Errorf("failed to allocate lobby code")
}

// Join adds a participant; the second participant starts the match with
// random side assignment.
func (m *Manager) Join(ctx context.Context, room, code, userID, userName string, pref ColorChoice) (*JoinResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if room == "" || code == "" || userID == "" {
		return nil, ErrInvalidArgs
	}
	meta, err := m.store.LoadMeta(ctx, code)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrRoomGone
	}
	if meta.State != StateWaiting {
		return nil, ErrRoomActive
	}
	if busy, _ := m.matches.GetActiveGameByUserInRoom(ctx, userID, room); busy != nil {
		return nil, ErrPlayerBusyInRoom
	}

	// WATCH participants to prevent race joins
	partKey := m.store.keyParticipants(code)
	err = m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cnt, err := tx.SCard(ctx, partKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cnt >= 2 {
			return ErrFull
		}
		pipe := tx.TxPipeline()
		pipe.SAdd(ctx, partKey, userID)
		pipe.Expire(ctx, partKey, ttlRoom)
		pipe.SAdd(ctx, m.store.keyUserIdx(userID), code)
		pipe.Expire(ctx, m.store.keyUserIdx(userID), ttlRoom)
		_, pErr := pipe.Exec(ctx)
		return pErr
	}, partKey)
	if err != nil {
		obslog.L().Warn("lobby_join_error",
			zap.String("code", code),
			zap.String("room", room),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}

	meta, err = m.store.LoadMeta(ctx, code)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrRoomGone
	}

	cnt, _ := m.store.ParticipantCount(ctx, code)
	if cnt < 2 || meta.MatchID != "" || meta.CreatorID == userID {
		obslog.L().Info("lobby_join",
			zap.String("code", code),
			zap.String("room", room),
			zap.String("user_id", userID),
			zap.String("reason", "queued"),
		)
		return &JoinResult{Started: false, MatchID: meta.MatchID, Meta: meta}, nil
	}

	// Two participants: creator challenges the joiner, sides random.
	g, gerr := m.matches.CreateGame(ctx, meta.CreatorRoom, room, meta.CreatorID, meta.CreatorName, userID, userName, string(ColorRandom))
	if gerr != nil {
		return nil, gerr
	}

	meta.RedID, meta.RedName = g.RedID, g.RedName
	meta.BlackID, meta.BlackName = g.BlackID, g.BlackName
	meta.State = StateActive
	meta.MatchID = g.ID
	if err := m.store.SaveMeta(ctx, code, meta); err != nil {
		return nil, err
	}
	_ = m.store.RemoveWaiting(ctx, code)
	obslog.L().Info("lobby_start_match",
		zap.String("code", code),
		zap.String("match_id", g.ID),
		zap.String("red_id", g.RedID),
		zap.String("black_id", g.BlackID),
	)
	return &JoinResult{Started: true, MatchID: g.ID, Meta: meta}, nil
}

// Meta loads a lobby room by code for viewers.
func (m *Manager) Meta(ctx context.Context, code string) (*RoomMeta, error) {
	return m.store.LoadMeta(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

// ListWaiting returns rooms still waiting for a second player.
func (m *Manager) ListWaiting(ctx context.Context) ([]*RoomMeta, error) {
	return m.store.ListWaiting(ctx)
}
