package match

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	corecheckers "github.com/park285/Checkers-KakaoTalk-bot/internal/checkers"
	"github.com/park285/Checkers-KakaoTalk-bot/internal/obslog"
	svccheckers "github.com/park285/Checkers-KakaoTalk-bot/internal/service/checkers"
)

const matchTTL = 24 * time.Hour

var (
	errNotYourTurn  = errors.New("not_your_turn")
	errInvalidMove  = errors.New("invalid_move")
	errMustContinue = errors.New("must_continue")
)

type Manager struct {
	rdb      *redis.Client
	renderer svccheckers.BoardRenderer
	repo     *Repository
}

func NewManager(redisURL string) (*Manager, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for match manager")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Manager{rdb: rdb, renderer: svccheckers.NewSVGBoardRenderer()}, nil
}

func (m *Manager) Close() error {
	if m == nil || m.rdb == nil {
		return nil
	}
	return m.rdb.Close()
}

// AttachRepository wires a database repository for persisting finished matches.
func (m *Manager) AttachRepository(r *Repository) {
	if m != nil {
		m.repo = r
	}
}

// CreateGame starts a match between two users. colorChoice assigns the
// challenger's side: red, black or random (crypto/rand).
func (m *Manager) CreateGame(ctx context.Context, originRoom, resolveRoom, challengerID, challengerName, targetID, targetName, colorChoice string) (*Game, error) {
	if m == nil || m.rdb == nil {
		return nil, fmt.Errorf("match manager not initialized")
	}
	if challengerID == "" || targetID == "" {
		return nil, fmt.Errorf("invalid participants")
	}

	redID, redName := challengerID, challengerName
	blackID, blackName := targetID, targetName
	switch strings.ToLower(strings.TrimSpace(colorChoice)) {
	case "red", "r":
		// challenger already red
	case "black", "b":
		redID, redName, blackID, blackName = targetID, targetName, challengerID, challengerName
	default:
		if n, _ := rand.Int(rand.Reader, big.NewInt(2)); n != nil && n.Int64() == 0 {
			redID, redName, blackID, blackName = targetID, targetName, challengerID, challengerName
		}
	}

	g := &Game{
		ID:          fmt.Sprintf("match-%d-%s", time.Now().UnixNano(), secureRandSuffix(3)),
		Moves:       []string{},
		Turn:        corecheckers.SideRed,
		Status:      StatusActive,
		RedID:       strings.TrimSpace(redID),
		RedName:     strings.TrimSpace(redName),
		BlackID:     strings.TrimSpace(blackID),
		BlackName:   strings.TrimSpace(blackName),
		OriginRoom:  strings.TrimSpace(originRoom),
		ResolveRoom: strings.TrimSpace(resolveRoom),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := m.save(ctx, g); err != nil {
		return nil, err
	}
	obslog.L().Info("match_create",
		zap.String("match_id", g.ID),
		zap.String("origin_room", g.OriginRoom),
		zap.String("resolve_room", g.ResolveRoom),
		zap.String("red_id", g.RedID),
		zap.String("black_id", g.BlackID),
	)
	if err := m.indexParticipants(ctx, g.ID, g.RedID, g.BlackID); err != nil {
		return nil, err
	}
	return g, nil
}

// GetActiveGameByUser returns the most recently updated active match for a user.
func (m *Manager) GetActiveGameByUser(ctx context.Context, userID string) (*Game, error) {
	if m == nil || m.rdb == nil {
		return nil, fmt.Errorf("match manager not initialized")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, nil
	}
	ids, err := m.rdb.SMembers(ctx, idxUserKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	return m.pickLatestActive(ctx, ids, "")
}

// GetActiveGameByUserInRoom restricts the lookup to matches visible from the
// given room. Keeps one user's matches in different rooms independent.
func (m *Manager) GetActiveGameByUserInRoom(ctx context.Context, userID, room string) (*Game, error) {
	if m == nil || m.rdb == nil {
		return nil, fmt.Errorf("match manager not initialized")
	}
	userID = strings.TrimSpace(userID)
	room = strings.TrimSpace(room)
	if userID == "" || room == "" {
		return nil, nil
	}
	ids, err := m.rdb.SMembers(ctx, idxUserKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	return m.pickLatestActive(ctx, ids, room)
}

func (m *Manager) pickLatestActive(ctx context.Context, ids []string, room string) (*Game, error) {
	var list []*Game
	for _, id := range ids {
		g, err := m.get(ctx, id)
		if err != nil || g == nil || g.Status != StatusActive {
			continue
		}
		if room != "" && g.OriginRoom != room && g.ResolveRoom != room {
			continue
		}
		list = append(list, g)
	}
	if len(list) == 0 {
		return nil, nil
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list[0], nil
}

// PlayMoveByRoom applies a move for the user's active match in the given room.
// Serialization per match uses WATCH on the game key; a concurrent writer
// surfaces as ReasonConcurrent rather than a lost update.
func (m *Manager) PlayMoveByRoom(ctx context.Context, userID, roomID, moveText string) (*Game, MoveReason, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(roomID) == "" {
		return nil, "", fmt.Errorf("invalid parameters")
	}
	g, err := m.GetActiveGameByUserInRoom(ctx, userID, roomID)
	if err != nil || g == nil {
		return nil, "", err
	}
	return m.applyMove(ctx, g, userID, roomID, moveText)
}

// PlayMoveByID applies a move to a match addressed directly, bypassing the
// room index. Used by the room HTTP API where the lobby meta holds the id.
func (m *Manager) PlayMoveByID(ctx context.Context, matchID, userID, moveText string) (*Game, MoveReason, error) {
	if strings.TrimSpace(matchID) == "" || strings.TrimSpace(userID) == "" {
		return nil, "", fmt.Errorf("invalid parameters")
	}
	g, err := m.get(ctx, matchID)
	if err != nil || g == nil {
		return nil, "", err
	}
	if g.PlayerSide(userID) == "" {
		return nil, "", fmt.Errorf("user not in match")
	}
	if g.Status != StatusActive {
		return g, ReasonGameOver, nil
	}
	return m.applyMove(ctx, g, userID, "", moveText)
}

// applyMove runs the optimistic transaction for a single move. An empty
// roomScope skips the room check.
func (m *Manager) applyMove(ctx context.Context, g *Game, userID, roomScope, moveText string) (*Game, MoveReason, error) {
	gameK := gameKey(g.ID)
	oldLen := len(g.Moves)

	err := m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, gameK).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("match not found")
		}
		if err != nil {
			return err
		}
		var cur Game
		if jerr := json.Unmarshal(raw, &cur); jerr != nil {
			return jerr
		}
		if cur.Status != StatusActive {
			return redis.TxFailedErr
		}
		if len(cur.Moves) != oldLen {
			return redis.TxFailedErr
		}
		if scope := strings.TrimSpace(roomScope); scope != "" && cur.OriginRoom != scope && cur.ResolveRoom != scope {
			return fmt.Errorf("match not in room")
		}

		side := cur.PlayerSide(userID)
		if side == "" {
			return fmt.Errorf("user not in match")
		}
		if cur.Turn != side {
			return errNotYourTurn
		}

		state, rerr := reconstruct(cur.Moves)
		if rerr != nil {
			return fmt.Errorf("reconstruct match: %w", rerr)
		}

		from, to, perr := corecheckers.ParseMove(moveText)
		if perr != nil {
			return errInvalidMove
		}
		if state.Forced != nil && from != *state.Forced {
			return errMustContinue
		}

		next, aerr := corecheckers.Apply(state, from, to)
		if aerr != nil {
			return errInvalidMove
		}

		cur.Moves = append(cur.Moves, corecheckers.FormatMove(from, to))
		cur.Turn = next.Turn
		cur.UpdatedAt = time.Now()
		if next.Over {
			cur.Status = StatusFinished
			if winner, ok := next.WinnerSide(); ok {
				cur.Outcome = string(winner)
				if winner == corecheckers.SideRed {
					cur.Winner = cur.RedID
				} else {
					cur.Winner = cur.BlackID
				}
			}
		}

		pipe := tx.TxPipeline()
		newRaw, _ := json.Marshal(&cur)
		pipe.Set(ctx, gameK, newRaw, matchTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		g = &cur
		return nil
	}, gameK)

	if err != nil {
		switch {
		case errors.Is(err, redis.TxFailedErr):
			return g, ReasonConcurrent, nil
		case errors.Is(err, errNotYourTurn):
			return g, ReasonNotYourTurn, nil
		case errors.Is(err, errMustContinue):
			return g, ReasonMustContinue, nil
		case errors.Is(err, errInvalidMove):
			return g, ReasonInvalidMove, nil
		}
		return nil, "", err
	}

	obslog.L().Info("match_move",
		zap.String("match_id", g.ID),
		zap.String("room_id", strings.TrimSpace(roomScope)),
		zap.String("user_id", strings.TrimSpace(userID)),
		zap.String("turn", string(g.Turn)),
		zap.String("last_move", lastMove(g)),
		zap.String("status", string(g.Status)),
		zap.String("outcome", g.Outcome),
	)
	if g.Status == StatusFinished {
		_ = m.persistIfFinal(ctx, g, "elimination")
	}
	return g, ReasonOK, nil
}

// ResignByRoom ends the user's active match in the given room in the
// opponent's favor.
func (m *Manager) ResignByRoom(ctx context.Context, userID, roomID string) (*Game, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(roomID) == "" {
		return nil, fmt.Errorf("invalid parameters")
	}
	g, err := m.GetActiveGameByUserInRoom(ctx, userID, roomID)
	if err != nil || g == nil {
		return nil, err
	}
	gameK := gameKey(g.ID)
	err = m.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, gameK).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("match not found")
		}
		if err != nil {
			return err
		}
		var cur Game
		if jerr := json.Unmarshal(raw, &cur); jerr != nil {
			return jerr
		}
		if cur.Status != StatusActive {
			return redis.TxFailedErr
		}
		if cur.OriginRoom != roomID && cur.ResolveRoom != roomID {
			return fmt.Errorf("match not in room")
		}
		cur.Status = StatusResigned
		cur.Winner = cur.OpponentID(userID)
		cur.Outcome = "resign"
		cur.UpdatedAt = time.Now()

		pipe := tx.TxPipeline()
		newRaw, _ := json.Marshal(&cur)
		pipe.Set(ctx, gameK, newRaw, matchTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		g = &cur
		return nil
	}, gameK)
	if err != nil {
		if errors.Is(err, redis.TxFailedErr) {
			return nil, fmt.Errorf("match no longer active")
		}
		return nil, err
	}
	obslog.L().Info("match_resign",
		zap.String("match_id", g.ID),
		zap.String("resigner", strings.TrimSpace(userID)),
		zap.String("winner", g.Winner),
	)
	_ = m.persistIfFinal(ctx, g, "resignation")
	return g, nil
}

func lastMove(g *Game) string {
	if g == nil || len(g.Moves) == 0 {
		return ""
	}
	return g.Moves[len(g.Moves)-1]
}

// CurrentState replays the recorded moves into an engine position.
func (g *Game) CurrentState() (corecheckers.Game, error) {
	return reconstruct(g.Moves)
}

// reconstruct replays the stored move list from the opening position.
func reconstruct(moves []string) (corecheckers.Game, error) {
	game := corecheckers.NewGame()
	for _, mv := range moves {
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

func (m *Manager) save(ctx context.Context, g *Game) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	return m.rdb.Set(ctx, gameKey(g.ID), raw, matchTTL).Err()
}

func (m *Manager) get(ctx context.Context, id string) (*Game, error) {
	raw, err := m.rdb.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var g Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// LoadGame returns the match by ID.
func (m *Manager) LoadGame(ctx context.Context, id string) (*Game, error) {
	return m.get(ctx, id)
}

func (m *Manager) indexParticipants(ctx context.Context, id string, red, black string) error {
	for _, userID := range []string{red, black} {
		if strings.TrimSpace(userID) == "" {
			continue
		}
		key := idxUserKey(userID)
		if err := m.rdb.SAdd(ctx, key, id).Err(); err != nil {
			return err
		}
		// index keys share the match TTL so they do not accumulate
		_ = m.rdb.Expire(ctx, key, matchTTL).Err()
	}
	return nil
}

func gameKey(id string) string { return "match:game:" + strings.TrimSpace(id) }

func idxUserKey(userID string) string { return "match:index:user:" + strings.TrimSpace(userID) }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}

func secureRandSuffix(n int) string {
	if n <= 0 {
		n = 3
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err == nil {
		return hex.EncodeToString(b)
	}
	return fmt.Sprintf("%x", time.Now().UnixNano()%1_000_000)
}

func (m *Manager) persistIfFinal(ctx context.Context, g *Game, method string) error {
	if m == nil || m.repo == nil || g == nil {
		return nil
	}
	if g.Status != StatusFinished && g.Status != StatusResigned {
		return nil
	}
	if err := m.repo.SaveResult(ctx, g, method); err != nil {
		obslog.L().Error("match_result_persist_error",
			zap.String("match_id", g.ID),
			zap.String("outcome", g.Outcome),
			zap.Error(err),
		)
		return err
	}
	obslog.L().Info("match_result_persist",
		zap.String("match_id", g.ID),
		zap.String("outcome", g.Outcome),
		zap.String("method", method),
	)
	return nil
}
