package boardpresenter

import (
	"strings"
	"testing"

	corecheckers "github.com/park285/Checkers-KakaoTalk-bot/internal/checkers"
	"github.com/park285/Checkers-KakaoTalk-bot/internal/match"
	"github.com/park285/Checkers-KakaoTalk-bot/internal/msgcat"
	svccheckers "github.com/park285/Checkers-KakaoTalk-bot/internal/service/checkers"
	"github.com/park285/Checkers-KakaoTalk-bot/internal/util"
	"github.com/park285/Checkers-KakaoTalk-bot/pkg/checkersdto"
)

type staticPrefix string

func (p staticPrefix) Prefix() string { return string(p) }

func newTestFormatter(t *testing.T) *Formatter {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	return NewFormatter(staticPrefix("!"), cat)
}

func TestStartMentionsPrefixAndPlayer(t *testing.T) {
	f := newTestFormatter(t)
	state := &checkersdto.SessionState{
		Board: svccheckers.BoardStateFrom(corecheckers.NewGame()),
	}
	out := f.Start(state, false)
	if !strings.Contains(out, "!") {
		t.Fatalf("start text must mention the command prefix: %q", out)
	}
	if !strings.Contains(out, "Red") {
		t.Fatalf("start text must name the opening player: %q", out)
	}
}

func TestMoveSummaryVariants(t *testing.T) {
	f := newTestFormatter(t)
	state := &checkersdto.SessionState{
		Board: checkersdto.BoardState{Turn: "black", Forced: "3,2"},
	}

	chain := f.Move(&checkersdto.MoveSummary{State: state, ChainContinues: true})
	if !strings.Contains(chain, "3,2") {
		t.Fatalf("chain text must point at the forced square: %q", chain)
	}

	over := f.Move(&checkersdto.MoveSummary{State: state, Finished: true, Winner: "red"})
	if !strings.Contains(over, "Red") {
		t.Fatalf("game-over text must name the winner: %q", over)
	}

	plain := f.Move(&checkersdto.MoveSummary{State: state})
	if plain == "" || plain == chain || plain == over {
		t.Fatalf("plain move text must be distinct: %q", plain)
	}
}

func TestMoveReasonTexts(t *testing.T) {
	f := newTestFormatter(t)
	if got := f.MoveReason(match.ReasonOK); got != "" {
		t.Fatalf("ok reason must render empty, got %q", got)
	}
	reasons := []match.MoveReason{
		match.ReasonNotYourTurn,
		match.ReasonInvalidMove,
		match.ReasonMustContinue,
		match.ReasonConcurrent,
		match.ReasonGameOver,
	}
	seen := map[string]bool{}
	for _, r := range reasons {
		text := f.MoveReason(r)
		if text == "" {
			t.Fatalf("reason %s rendered empty", r)
		}
		if seen[text] {
			t.Fatalf("reason %s reuses text %q", r, text)
		}
		seen[text] = true
	}
}

func TestTextBoardOpening(t *testing.T) {
	f := newTestFormatter(t)
	board := svccheckers.BoardStateFrom(corecheckers.NewGame())
	out := f.TextBoard(board)

	lines := strings.Split(out, "\n")
	if len(lines) != 9 {
		t.Fatalf("expected header plus 8 rows, got %d lines", len(lines))
	}
	if lines[0] != "  0 1 2 3 4 5 6 7" {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != "0 ⬜ ⚫ ⬜ ⚫ ⬜ ⚫ ⬜ ⚫" {
		t.Fatalf("unexpected top row: %q", lines[1])
	}
	if lines[8] != "7 🔴 ⬜ 🔴 ⬜ 🔴 ⬜ 🔴 ⬜" {
		t.Fatalf("unexpected bottom row: %q", lines[8])
	}
}

func TestHelpCollapsesBehindSeeMore(t *testing.T) {
	f := newTestFormatter(t)
	out := f.Help()
	if !strings.HasPrefix(out, helpInstruction) {
		t.Fatalf("help must lead with the instruction line: %q", out[:40])
	}
	if !strings.Contains(out, util.KakaoZeroWidthSpace) {
		t.Fatalf("help must carry see-more padding")
	}
}

func TestPresenterSendsTextThenImage(t *testing.T) {
	var calls []string
	p := NewPresenter(
		func(room, message string) error {
			calls = append(calls, "text:"+room)
			return nil
		},
		func(room, imageBase64 string) error {
			calls = append(calls, "image:"+room)
			return nil
		},
	)
	state := &checkersdto.SessionState{BoardImage: []byte{1, 2, 3}}
	if err := p.Session("r1", "hello", state); err != nil {
		t.Fatalf("Session: %v", err)
	}
	if len(calls) != 2 || calls[0] != "text:r1" || calls[1] != "image:r1" {
		t.Fatalf("unexpected call order: %v", calls)
	}
}
