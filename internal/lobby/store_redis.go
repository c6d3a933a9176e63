package lobby

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const ttlRoom = 24 * time.Hour

type Store struct{ rdb *redis.Client }

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func (s *Store) keyMeta(code string) string         { return "lobby:" + strings.TrimSpace(code) }
func (s *Store) keyParticipants(code string) string { return s.keyMeta(code) + ":participants" }
func (s *Store) keyUserIdx(user string) string      { return "lobby:index:user:" + strings.TrimSpace(user) }
func (s *Store) keyWaiting() string                 { return "lobby:waiting" }

func (s *Store) SaveMeta(ctx context.Context, code string, meta *RoomMeta) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, s.keyMeta(code), raw, ttlRoom).Err(); err != nil {
		return err
	}
	_ = s.rdb.Expire(ctx, s.keyParticipants(code), ttlRoom).Err()
	return nil
}

func (s *Store) LoadMeta(ctx context.Context, code string) (*RoomMeta, error) {
	raw, err := s.rdb.Get(ctx, s.keyMeta(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m RoomMeta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) ParticipantCount(ctx context.Context, code string) (int64, error) {
	return s.rdb.SCard(ctx, s.keyParticipants(code)).Result()
}

func (s *Store) AddParticipant(ctx context.Context, code, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return nil
	}
	if err := s.rdb.SAdd(ctx, s.keyParticipants(code), userID).Err(); err != nil {
		return err
	}
	_ = s.rdb.Expire(ctx, s.keyParticipants(code), ttlRoom).Err()
	if err := s.rdb.SAdd(ctx, s.keyUserIdx(userID), code).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, s.keyUserIdx(userID), ttlRoom).Err()
}

func (s *Store) CodesByUser(ctx context.Context, userID string) ([]string, error) {
	return s.rdb.SMembers(ctx, s.keyUserIdx(userID)).Result()
}

// codeGen derives a short join code from a fresh uuid.
func codeGen() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

func (s *Store) AddWaiting(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	if err := s.rdb.SAdd(ctx, s.keyWaiting(), code).Err(); err != nil {
		return err
	}
	_ = s.rdb.Expire(ctx, s.keyWaiting(), ttlRoom).Err()
	return nil
}

func (s *Store) RemoveWaiting(ctx context.Context, code string) error {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	return s.rdb.SRem(ctx, s.keyWaiting(), code).Err()
}

func (s *Store) ListWaiting(ctx context.Context) ([]*RoomMeta, error) {
	codes, err := s.rdb.SMembers(ctx, s.keyWaiting()).Result()
	if err != nil {
		return nil, err
	}
	var out []*RoomMeta
	for _, c := range codes {
		m, _ := s.LoadMeta(ctx, c)
		if m == nil || m.State != StateWaiting {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
