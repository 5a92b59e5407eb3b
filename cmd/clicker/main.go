// Package main runs the clicker game client in a terminal. Commands are read
// from stdin, one per line: play, reset, quit.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cyberinferno/clickergame/config"
	"github.com/cyberinferno/clickergame/logger"
	"github.com/cyberinferno/clickergame/session"
	"github.com/cyberinferno/clickergame/store"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	lg, err := logger.New(cfg.Logger())
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer lg.Close()

	backend, err := openBackend(cfg.Store)
	if err != nil {
		lg.Error("opening state store", logger.Err(err))
		os.Exit(1)
	}
	defer backend.Close()

	lg.Info("starting clicker",
		logger.Field{Key: "url", Value: cfg.Server.URL},
		logger.Field{Key: "store", Value: cfg.Store.Backend},
	)

	manager := session.NewManager(cfg.Session(), store.NewLocalState(backend), lg)
	if err := run(manager, os.Stdin, os.Stdout, lg); err != nil {
		lg.Error("session ended with error", logger.Err(err))
		os.Exit(1)
	}
}

// run drives one session until the user quits, stdin ends or a termination
// signal arrives.
func run(manager *session.Manager, in io.Reader, out io.Writer, lg logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui := newConsole(out)
	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		for ev := range manager.Events() {
			ui.render(ev)
		}
	}()

	if err := manager.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	lines := make(chan string)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-done:
				return
			}
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			lg.Info("signal received, shutting down")
			break loop
		case line, ok := <-lines:
			if !ok || line == "quit" {
				break loop
			}
			if line == "" {
				continue
			}
			if !ui.press(line) {
				if line != "play" && line != "reset" {
					fmt.Fprintf(out, "unknown command %q (play, reset, quit)\n", line)
				}
				continue
			}
			if line == "play" {
				manager.Play()
			} else {
				manager.Reset()
			}
		}
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := manager.Close(closeCtx)
	<-rendered
	return err
}

func openBackend(cfg config.StoreConfig) (store.Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return store.NewMemoryBackend(), nil
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return store.NewRedisBackend(client, cfg.Redis.Prefix), nil
	default:
		backend, err := store.NewFileBackend(cfg.Path)
		if err != nil {
			return nil, err
		}
		return backend, nil
	}
}
