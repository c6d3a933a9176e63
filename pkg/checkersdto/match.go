package checkersdto

// MatchState describes a PvP match for presenters.
type MatchState struct {
	MatchID    string
	Board      BoardState
	Moves      []string
	MoveCount  int
	RedName    string
	BlackName  string
	Status     string
	Outcome    string
	BoardImage []byte
}
