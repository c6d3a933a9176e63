package boardpresenter

import (
	"fmt"
	"strings"

	"github.com/park285/Checkers-KakaoTalk-bot/internal/match"
	"github.com/park285/Checkers-KakaoTalk-bot/internal/msgcat"
	"github.com/park285/Checkers-KakaoTalk-bot/internal/util"
	"github.com/park285/Checkers-KakaoTalk-bot/pkg/checkersdto"
)

const helpInstruction = "🎮 Checkers Bot"

// PrefixProvider exposes the Prefix that Kakao messages should use.
type PrefixProvider interface {
	Prefix() string
}

// Formatter renders checkers DTOs into Kakao-friendly text blocks. All
// user-facing strings come from the message catalog.
type Formatter struct {
	prefixProvider PrefixProvider
	cat            *msgcat.Catalog
}

func NewFormatter(provider PrefixProvider, cat *msgcat.Catalog) *Formatter {
	return &Formatter{prefixProvider: provider, cat: cat}
}

func (f *Formatter) Prefix() string {
	if f == nil || f.prefixProvider == nil {
		return ""
	}
	return strings.TrimSpace(f.prefixProvider.Prefix())
}

func (f *Formatter) render(key string, data map[string]any, fallback string) string {
	if f == nil || f.cat == nil {
		return fallback
	}
	out, err := f.cat.Render(key, data)
	if err != nil {
		return fallback
	}
	return out
}

func (f *Formatter) Start(state *checkersdto.SessionState, resumed bool) string {
	if state == nil {
		return f.NoSession()
	}
	player := playerLabel(state.Board.Turn)
	if resumed {
		return f.render("checkers.resumed",
			map[string]any{"Player": player},
			"Game in progress. Current player: "+player)
	}
	return f.render("checkers.start",
		map[string]any{"Player": player, "Prefix": f.Prefix()},
		"New checkers game started. Current player: "+player)
}

func (f *Formatter) Move(summary *checkersdto.MoveSummary) string {
	if summary == nil || summary.State == nil {
		return f.InvalidMove()
	}
	if summary.Finished {
		winner := playerLabel(summary.Winner)
		return f.render("checkers.game_over",
			map[string]any{"Winner": winner},
			"Game over! "+winner+" wins!")
	}
	if summary.ChainContinues {
		forced := summary.State.Board.Forced
		return f.render("checkers.move_chain",
			map[string]any{"Forced": forced},
			"Capture! Keep jumping with the piece at ("+forced+").")
	}
	return f.render("checkers.move_ok", nil, "Move made!")
}

func (f *Formatter) Hints(from string, moves []string) string {
	if len(moves) == 0 {
		return f.render("checkers.no_moves_from", nil, "No valid moves from that position!")
	}
	joined := strings.Join(moves, " ")
	return f.render("checkers.hints",
		map[string]any{"From": from, "Moves": joined},
		fmt.Sprintf("Valid moves from (%s): %s", from, joined))
}

func (f *Formatter) InvalidFormat() string {
	return f.render("checkers.invalid_format", nil, "Invalid move format! Use Row,Col-Row,Col or algebraic.")
}

func (f *Formatter) InvalidMove() string {
	return f.render("checkers.invalid_move", nil, "Invalid move!")
}

func (f *Formatter) NoSession() string {
	return f.render("checkers.no_session",
		map[string]any{"Prefix": f.Prefix()},
		"No game here yet.")
}

func (f *Formatter) Ended() string {
	return f.render("checkers.ended",
		map[string]any{"Prefix": f.Prefix()},
		"Game ended.")
}

func (f *Formatter) Help() string {
	content := f.render("help", map[string]any{"Prefix": f.Prefix()}, helpInstruction)
	return util.ApplyKakaoSeeMorePadding(stripHeader(content, helpInstruction), helpInstruction)
}

// --- PvP ---

func (f *Formatter) MatchStarted(state *checkersdto.MatchState) string {
	if state == nil {
		return ""
	}
	return f.render("pvp.started",
		map[string]any{"Red": state.RedName, "Black": state.BlackName},
		fmt.Sprintf("Match started: %s vs %s", state.RedName, state.BlackName))
}

// MoveReason renders the rejection text for a PvP move; ReasonOK yields "".
func (f *Formatter) MoveReason(reason match.MoveReason) string {
	switch reason {
	case match.ReasonOK:
		return ""
	case match.ReasonNotYourTurn:
		return f.render("pvp.not_your_turn", nil, "It's your opponent's turn.")
	case match.ReasonMustContinue:
		return f.render("pvp.must_continue", nil, "You must keep capturing with the same piece.")
	case match.ReasonConcurrent:
		return f.render("pvp.concurrent", nil, "A concurrent command was detected and skipped. Try again.")
	case match.ReasonGameOver:
		return f.render("pvp.over", nil, "The match is already over.")
	default:
		return f.InvalidMove()
	}
}

func (f *Formatter) MatchFinished(winnerName string) string {
	return f.render("pvp.finished",
		map[string]any{"Winner": winnerName},
		"Game over! "+winnerName+" wins!")
}

func (f *Formatter) Resigned(loserName, winnerName string) string {
	return f.render("pvp.resigned",
		map[string]any{"Loser": loserName, "Winner": winnerName},
		loserName+" resigned. "+winnerName+" wins!")
}

func (f *Formatter) NoActiveMatch() string {
	return f.render("pvp.no_active", nil, "You have no active match in this room.")
}

// --- Lobby ---

func (f *Formatter) LobbyMade(code string) string {
	return f.render("lobby.made",
		map[string]any{"Code": code, "Prefix": f.Prefix()},
		"Lobby "+code+" created.")
}

func (f *Formatter) LobbyJoinedWaiting(code string) string {
	return f.render("lobby.joined_waiting",
		map[string]any{"Code": code},
		"Joined lobby "+code+". Waiting for an opponent.")
}

func (f *Formatter) LobbyFull() string {
	return f.render("lobby.full", nil, "That lobby already has two players.")
}

func (f *Formatter) LobbyGone() string {
	return f.render("lobby.gone", nil, "Lobby not found or expired.")
}

func (f *Formatter) LobbyList(codes []string) string {
	if len(codes) == 0 {
		return f.LobbyGone()
	}
	var sb strings.Builder
	sb.WriteString("Waiting lobbies:\n")
	for _, code := range codes {
		sb.WriteString("• ")
		sb.WriteString(code)
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

// TextBoard renders the board as an emoji grid with coordinate labels.
func (f *Formatter) TextBoard(state checkersdto.BoardState) string {
	var sb strings.Builder
	sb.WriteString("  0 1 2 3 4 5 6 7\n")
	for r, row := range state.Board {
		sb.WriteString(fmt.Sprintf("%d ", r))
		for c, token := range row {
			sb.WriteString(cellEmoji(token, r, c))
			if c < len(row)-1 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

func cellEmoji(token string, row, col int) string {
	switch token {
	case "red":
		return "🔴"
	case "red_king":
		return "👑"
	case "black":
		return "⚫"
	case "black_king":
		return "♛"
	default:
		if (row+col)%2 == 1 {
			return "⬛"
		}
		return "⬜"
	}
}

func playerLabel(side string) string {
	switch side {
	case "red":
		return "🔴 Red"
	case "black":
		return "⚫ Black"
	default:
		return side
	}
}

func stripHeader(text, header string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	candidates := []string{
		header + "\r\n\r\n",
		header + "\n\n",
		header + "\r\n",
		header + "\n",
		header,
	}
	for _, candidate := range candidates {
		if strings.HasPrefix(text, candidate) {
			return strings.TrimPrefix(text, candidate)
		}
	}
	return text
}
