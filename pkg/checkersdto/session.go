package checkersdto

// BoardState is the engine snapshot flattened for presenters and wire use.
type BoardState struct {
	Board  [][]string `json:"board"`
	Turn   string     `json:"turn"`
	Over   bool       `json:"game_over"`
	Winner string     `json:"winner,omitempty"`
	Forced string     `json:"forced,omitempty"` // "row,col" of the cell that must keep capturing
}

// SessionState describes a per-room bot game.
type SessionState struct {
	SessionID  string
	Room       string
	StartedBy  string
	Board      BoardState
	Moves      []string
	MoveCount  int
	BoardImage []byte
	StartedAt  int64
	UpdatedAt  int64
}

// MoveSummary is the result of one applied bot-session move.
type MoveSummary struct {
	State    *SessionState
	Move     string
	Capture  bool
	Promoted bool
	// ChainContinues reports a forced multi-capture in progress: the same
	// side moves again with the piece at State.Board.Forced.
	ChainContinues bool
	Finished       bool
	Winner         string
}
