// Command learnctl drives the progress manager from a terminal: it signs in, learns and bookmarks cards,
// and keeps the local state in sync with the backend.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/barkatlearn/learn/internal/catalog"
	"github.com/barkatlearn/learn/internal/client"
	"github.com/barkatlearn/learn/internal/config"
	"github.com/barkatlearn/learn/internal/progress"
	"github.com/barkatlearn/learn/internal/storage"
	"github.com/barkatlearn/learn/libs/logger"
	"go.uber.org/zap"
)

const usage = `Usage: learnctl <command> [flags] [args]

Commands:
  status                          show session, streak and today's counter
  signup -email E -password P     create an account and start a session
  login -email E -password P      start a session
  apple-login -token T [-email E] sign in with an Apple identity token
  logout                          end the session and reset local progress
  delete-account                  delete the account on the backend and reset
  prefs [category ...]            show or replace the followed categories
  feed                            reload content and list available cards
  learn <card-id>                 mark a flash card learned
  open <card-id>                  record that a card's detail view was opened
  finish <card-id>                record that a card's full text was read
  bookmark <card-id>              save a card
  unbookmark <card-id>            remove a saved card
  bookmarks                       list saved cards
  stats                           fetch per-category statistics
  sync                            push local progress to the backend
  reset                           clear local progress, keeping the session
  watch                           reload content on LEARN_REFRESH_SCHEDULE until interrupted
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code. Deferred cleanup runs before the caller exits.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.Logging.Level); err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	store, err := storage.Open(cfg.StorageDriver, cfg.StoragePath)
	if err != nil {
		logger.Logger.Error("Failed to open storage", zap.Error(err))
		return 1
	}
	defer store.Close()

	api := client.New(cfg.APIURL, cfg.RequestTimeout, catalog.Default(), logger.Logger)
	manager := progress.NewManager(api, store, logger.Logger, progress.Options{
		DailyLimit:           cfg.DailyLimit,
		FeedPageSize:         cfg.FeedPageSize,
		SyncTimeout:          cfg.RequestTimeout,
		CountRepeatFinishes:  cfg.CountRepeatFinishes,
		LogoutOnUnauthorized: cfg.LogoutOnUnauthorized,
	})
	// Close waits for background sync calls started by the command
	defer manager.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := manager.Hydrate(ctx); err != nil {
		logger.Logger.Warn("Failed to restore local state, starting fresh", zap.Error(err))
	}

	cmd := &command{
		manager: manager,
		cfg:     cfg,
		out:     stdout,
	}
	if err := cmd.run(ctx, args[0], args[1:]); err != nil {
		fmt.Fprintf(stderr, "learnctl: %v\n", err)
		return 1
	}
	return 0
}
