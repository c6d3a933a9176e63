package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/park285/Checkers-KakaoTalk-bot/internal/gateway"
)

// gatewaycheck verifies connectivity with the message gateway: it opens
// the event stream, logs state changes, and optionally sends a probe
// message when TEST_ROOM is set.
func main() {
	baseURL := os.Getenv("GATEWAY_BASE_URL")
	wsURL := os.Getenv("GATEWAY_WS_URL")
	userID := os.Getenv("X_USER_ID")
	sessionID := os.Getenv("X_SESSION_ID")
	testRoom := os.Getenv("TEST_ROOM")

	if baseURL == "" {
		log.Fatal("GATEWAY_BASE_URL is required")
	}

	headers := func() map[string]string {
		m := map[string]string{}
		if userID != "" {
			m["X-User-Id"] = userID
		}
		if sessionID != "" {
			m["X-Session-Id"] = sessionID
		}
		return m
	}

	client := gateway.NewClient(baseURL,
		gateway.WithHeaderProvider(headers),
		gateway.WithTimeout(8*time.Second),
	)

	if testRoom != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.SendMessage(ctx, testRoom, "gateway check")
		cancel()
		if err != nil {
			log.Printf("/reply error: %v", err)
		} else {
			log.Printf("/reply ok: room=%s", testRoom)
		}
	}

	if wsURL == "" {
		log.Println("GATEWAY_WS_URL not set; skipping WS check")
		return
	}

	ws := gateway.NewWebSocket(wsURL, 5, time.Second)
	ws.SetHeaderProvider(headers)
	ws.OnStateChange(func(state gateway.WebSocketState) {
		log.Printf("WS state: %s", state)
	})
	ws.OnMessage(func(msg *gateway.Message) {
		from := "?"
		if msg.Sender != nil {
			from = *msg.Sender
		}
		fmt.Printf("WS msg room=%s from=%s text=%q\n", msg.Room, from, msg.Msg)
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := ws.Connect(cctx); err != nil {
		log.Printf("WS connect error: %v", err)
		return
	}

	// Observe for a short window
	t := time.NewTimer(10 * time.Second)
	<-t.C

	_ = ws.Close(context.Background())
}
