package match

import (
	"context"
	"fmt"

	corecheckers "github.com/park285/Checkers-KakaoTalk-bot/internal/checkers"
	svccheckers "github.com/park285/Checkers-KakaoTalk-bot/internal/service/checkers"
	"github.com/park285/Checkers-KakaoTalk-bot/pkg/checkersdto"
)

// ToDTO renders the PNG board and assembles the presenter-facing state.
func (m *Manager) ToDTO(ctx context.Context, g *Game) (*checkersdto.MatchState, error) {
	if m == nil || g == nil {
		return nil, nil
	}
	state, err := reconstruct(g.Moves)
	if err != nil {
		return nil, fmt.Errorf("reconstruct match: %w", err)
	}

	opts := svccheckers.RenderOptions{
		HUDHeader: fmt.Sprintf("%s vs %s", g.RedName, g.BlackName),
		HUDTurn:   hudTurn(g, state),
		Highlight: lastHighlight(g),
		Forced:    state.Forced,
	}
	png, err := m.renderer.RenderPNG(ctx, state.Board, opts)
	if err != nil {
		return nil, err
	}

	return &checkersdto.MatchState{
		MatchID:    g.ID,
		Board:      svccheckers.BoardStateFrom(state),
		Moves:      append([]string(nil), g.Moves...),
		MoveCount:  len(g.Moves),
		RedName:    g.RedName,
		BlackName:  g.BlackName,
		Status:     string(g.Status),
		Outcome:    g.Outcome,
		BoardImage: png,
	}, nil
}

func hudTurn(g *Game, state corecheckers.Game) string {
	if state.Over || g.Status != StatusActive {
		return "Game over"
	}
	turnNumber := len(g.Moves)/2 + 1
	if state.Turn == corecheckers.SideRed {
		return fmt.Sprintf("Red to move - %d", turnNumber)
	}
	return fmt.Sprintf("Black to move - %d", turnNumber)
}

func lastHighlight(g *Game) *svccheckers.MoveHighlight {
	mv := lastMove(g)
	if mv == "" {
		return nil
	}
	from, to, err := corecheckers.ParseMove(mv)
	if err != nil {
		return nil
	}
	return &svccheckers.MoveHighlight{From: from, To: to}
}
