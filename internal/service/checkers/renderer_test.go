package checkers

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	corecheckers "github.com/park285/Checkers-KakaoTalk-bot/internal/checkers"
)

func TestRenderPNGProducesDecodableImage(t *testing.T) {
	r := NewSVGBoardRenderer()
	game := corecheckers.NewGame()

	from := corecheckers.Position{Row: 5, Col: 0}
	to := corecheckers.Position{Row: 4, Col: 1}
	data, err := r.RenderPNG(context.Background(), game.Board, RenderOptions{
		Highlight: &MoveHighlight{From: from, To: to},
		Forced:    &to,
		HUDHeader: "alice - Checkers",
		HUDTurn:   "Red to move - 1",
	})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		t.Fatalf("bad dimensions: %dx%d", cfg.Width, cfg.Height)
	}
}

func TestRenderPNGHonorsCancelledContext(t *testing.T) {
	r := NewSVGBoardRenderer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.RenderPNG(ctx, corecheckers.NewGame().Board, RenderOptions{}); err == nil {
		t.Fatalf("expected context error")
	}
}
