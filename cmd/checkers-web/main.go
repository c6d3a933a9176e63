package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/Checkers-KakaoTalk-bot/internal/httpapi"
	"github.com/park285/Checkers-KakaoTalk-bot/internal/lobby"
	"github.com/park285/Checkers-KakaoTalk-bot/internal/match"
	"github.com/park285/Checkers-KakaoTalk-bot/internal/obslog"
)

func main() {
	redisURL := os.Getenv("REDIS_URL")
	databaseURL := os.Getenv("DATABASE_URL")
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	if redisURL == "" {
		log.Fatal("REDIS_URL is required")
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	matchMgr, err := match.NewManager(redisURL)
	if err != nil {
		log.Fatalf("match manager init error: %v", err)
	}
	defer func() { _ = matchMgr.Close() }()

	if databaseURL != "" {
		repo, rerr := match.NewRepository(databaseURL)
		if rerr != nil {
			log.Fatalf("match repo init error: %v", rerr)
		}
		defer func() { _ = repo.Close() }()
		matchMgr.AttachRepository(repo)
	}

	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()

	srv := httpapi.NewServer(lobby.NewManager(rdb, matchMgr), matchMgr)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(addr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("http server error: %v", err)
		}
	case <-sigCh:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}
}
