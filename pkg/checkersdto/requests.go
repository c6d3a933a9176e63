package checkersdto

// Room API payloads (fasthttp server in internal/httpapi).

type CreateRoomRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type CreateRoomResponse struct {
	RoomCode string `json:"room_code"`
}

type JoinRoomRequest struct {
	RoomCode string `json:"room_code"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type JoinRoomResponse struct {
	Started bool   `json:"started"`
	MatchID string `json:"match_id,omitempty"`
}

type RoomStateResponse struct {
	RoomCode      string     `json:"room_id"`
	CreatorName   string     `json:"creator_username"`
	OpponentName  string     `json:"opponent_username,omitempty"`
	PlayerColor   string     `json:"player_color,omitempty"`
	IsMyTurn      bool       `json:"is_my_turn"`
	CurrentPlayer string     `json:"current_player"`
	Board         [][]string `json:"board"`
	GameOver      bool       `json:"game_over"`
	Winner        string     `json:"winner,omitempty"`
}

type MoveRequest struct {
	RoomCode string `json:"room_code"`
	UserID   string `json:"user_id"`
	Move     string `json:"move"` // "5,0-4,1" or "a6-b5"
}

type MoveResponse struct {
	OK      bool               `json:"ok"`
	Message string             `json:"message,omitempty"`
	State   *RoomStateResponse `json:"state,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
