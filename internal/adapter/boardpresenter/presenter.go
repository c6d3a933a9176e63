package boardpresenter

import (
	"encoding/base64"
	"strings"

	"github.com/park285/Checkers-KakaoTalk-bot/pkg/checkersdto"
)

// Presenter delivers formatted messages and board images without coupling
// to the command layer.
type Presenter struct {
	sendMessage func(room, message string) error
	sendImage   func(room, imageBase64 string) error
}

func NewPresenter(sendMessage func(room, message string) error, sendImage func(room, imageBase64 string) error) *Presenter {
	return &Presenter{
		sendMessage: sendMessage,
		sendImage:   sendImage,
	}
}

// Text sends a plain message to the room.
func (p *Presenter) Text(room, message string) error {
	if p == nil || p.sendMessage == nil || strings.TrimSpace(message) == "" {
		return nil
	}
	return p.sendMessage(room, message)
}

// Session sends the message followed by the session's board image.
func (p *Presenter) Session(room, message string, state *checkersdto.SessionState) error {
	var img []byte
	if state != nil {
		img = state.BoardImage
	}
	return p.deliver(room, message, img)
}

// Match sends the message followed by the match's board image.
func (p *Presenter) Match(room, message string, state *checkersdto.MatchState) error {
	var img []byte
	if state != nil {
		img = state.BoardImage
	}
	return p.deliver(room, message, img)
}

func (p *Presenter) deliver(room, message string, image []byte) error {
	if p == nil {
		return nil
	}
	if text := strings.TrimSpace(message); text != "" && p.sendMessage != nil {
		if err := p.sendMessage(room, message); err != nil {
			return err
		}
	}
	if len(image) > 0 && p.sendImage != nil {
		encoded := base64.StdEncoding.EncodeToString(image)
		if err := p.sendImage(room, encoded); err != nil {
			return err
		}
	}
	return nil
}
