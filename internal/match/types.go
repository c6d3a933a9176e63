package match

import (
	"time"

	corecheckers "github.com/park285/Checkers-KakaoTalk-bot/internal/checkers"
)

// Status represents a PvP match lifecycle state.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
	StatusResigned Status = "RESIGNED"
	StatusAborted  Status = "ABORTED"
)

// MoveReason classifies the outcome of a move attempt for the presenter.
type MoveReason string

const (
	ReasonOK           MoveReason = "ok"
	ReasonNotYourTurn  MoveReason = "not_your_turn"
	ReasonInvalidMove  MoveReason = "invalid_move"
	ReasonMustContinue MoveReason = "must_continue"
	ReasonConcurrent   MoveReason = "concurrent"
	ReasonGameOver     MoveReason = "game_over"
)

// Game is the persisted state of a PvP match.
type Game struct {
	ID          string            `json:"id"`
	Moves       []string          `json:"moves"`
	Turn        corecheckers.Side `json:"turn"`
	Status      Status            `json:"status"`
	RedID       string            `json:"red_id"`
	RedName     string            `json:"red_name"`
	BlackID     string            `json:"black_id"`
	BlackName   string            `json:"black_name"`
	OriginRoom  string            `json:"origin_room"`
	ResolveRoom string            `json:"resolve_room"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Winner      string            `json:"winner,omitempty"`
	Outcome     string            `json:"outcome,omitempty"`
}

// PlayerSide reports which side a user plays, empty when not a participant.
func (g *Game) PlayerSide(userID string) corecheckers.Side {
	switch userID {
	case g.RedID:
		return corecheckers.SideRed
	case g.BlackID:
		return corecheckers.SideBlack
	default:
		return ""
	}
}

// OpponentID returns the other participant's id.
func (g *Game) OpponentID(userID string) string {
	if g.RedID == userID {
		return g.BlackID
	}
	if g.BlackID == userID {
		return g.RedID
	}
	return ""
}
