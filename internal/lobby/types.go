package lobby

import "time"

// RoomState represents the lifecycle of a joinable lobby room.
type RoomState string

const (
	StateWaiting RoomState = "WAITING"
	StateActive  RoomState = "ACTIVE"
	StateClosed  RoomState = "CLOSED"
)

// ColorChoice is a textual side preference for make/join.
type ColorChoice string

const (
	ColorRed    ColorChoice = "red"
	ColorBlack  ColorChoice = "black"
	ColorRandom ColorChoice = "random"
)

// RoomMeta is stored as JSON in Redis under lobby:<code>.
type RoomMeta struct {
	Code      string    `json:"code"`
	State     RoomState `json:"state"`
	CreatedAt time.Time `json:"created_at"`

	CreatorID   string `json:"creator_id"`
	CreatorName string `json:"creator_name"`
	CreatorRoom string `json:"creator_room"`

	RedID     string `json:"red_id,omitempty"`
	RedName   string `json:"red_name,omitempty"`
	BlackID   string `json:"black_id,omitempty"`
	BlackName string `json:"black_name,omitempty"`

	MatchID string `json:"match_id,omitempty"`
}

type MakeResult struct {
	Code string
	Meta *RoomMeta
}

type JoinResult struct {
	Started bool
	MatchID string
	Meta    *RoomMeta
}

var (
	ErrInvalidArgs      = errf("invalid arguments")
	ErrRoomGone         = errf("lobby room not found or expired")
	ErrRoomActive       = errf("lobby room already active")
	ErrFull             = errf("lobby room already has two participants")
	ErrPlayerBusyInRoom = errf("player has an active match in this room")
	ErrCreatorHasLobby  = errf("user already has a waiting lobby room")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
