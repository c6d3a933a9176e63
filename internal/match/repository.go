package match

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult upserts a final match result into the database.
func (r *Repository) SaveResult(ctx context.Context, g *Game, method string) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}

	result := strings.TrimSpace(g.Outcome)
	if result == "resign" {
		switch g.Winner {
		case g.RedID:
			result = "red"
		case g.BlackID:
			result = "black"
		default:
			result = ""
		}
	}

	movesRaw, _ := json.Marshal(g.Moves)
	finalBoard := finalSnapshotJSON(g)
	duration := g.UpdatedAt.Sub(g.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	const q = `INSERT INTO checkers_matches (
	    match_id, red_id, red_name, black_id, black_name,
	    origin_room, resolve_room,
	    result, result_method, moves, final_board,
	    started_at, ended_at, duration_ms
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10::jsonb,$11::jsonb,$12,$13,$14
	  ) ON CONFLICT (match_id) DO UPDATE SET
	    red_id=EXCLUDED.red_id,
	    red_name=EXCLUDED.red_name,
	    black_id=EXCLUDED.black_id,
	    black_name=EXCLUDED.black_name,
	    origin_room=EXCLUDED.origin_room,
	    resolve_room=EXCLUDED.resolve_room,
	    result=EXCLUDED.result,
	    result_method=EXCLUDED.result_method,
	    moves=EXCLUDED.moves,
	    final_board=EXCLUDED.final_board,
	    started_at=EXCLUDED.started_at,
	    ended_at=EXCLUDED.ended_at,
	    duration_ms=EXCLUDED.duration_ms`

	_, err := r.db.ExecContext(ctx, q,
		g.ID,
		g.RedID, g.RedName,
		g.BlackID, g.BlackName,
		g.OriginRoom, g.ResolveRoom,
		result, strings.TrimSpace(method), string(movesRaw), finalBoard,
		g.CreatedAt, g.UpdatedAt, duration,
	)
	return err
}

// finalSnapshotJSON replays the match and serializes the final position.
// Falls back to null when the stored move list does not replay cleanly.
func finalSnapshotJSON(g *Game) string {
	state, err := reconstruct(g.Moves)
	if err != nil {
		return "null"
	}
	raw, err := json.Marshal(state.Snapshot())
	if err != nil {
		return "null"
	}
	return string(raw)
}
