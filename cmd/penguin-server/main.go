package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/penguin/internal/engine"
	"github.com/hailam/penguin/internal/logx"
	"github.com/hailam/penguin/internal/server"
	"github.com/hailam/penguin/internal/storage"
)

var (
	addr         = flag.String("addr", ":8080", "listen address")
	logLevel     = flag.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	dbDir        = flag.String("db", "default", "analysis cache directory (\"default\" for the user data dir, empty to disable)")
	maxTTDepth   = flag.Int("max-tt-depth", engine.DefaultMaxTTDepth, "ply horizon for transposition caching")
	maxTTEntries = flag.Int("max-tt-entries", engine.DefaultMaxTTEntries, "entries per transposition table generation")
	maxStack     = flag.Int("max-stack", 1<<30, "maximum goroutine stack size in bytes")
	layout       = flag.String("layout", string(storage.LayoutStandard), "layout of new games (standard, inverted)")
	scores       = flag.Bool("scores", false, "report the score of every root move by default")
	moveTime     = flag.Duration("movetime", 0, "default thinking time per search (0 = until decisive)")
)

func main() {
	flag.Parse()

	logger := logx.NewLogger(os.Stderr).Level(logx.ParseLevel(envOr("PENGUIN_LOG_LEVEL", *logLevel)))
	debug.SetMaxStack(*maxStack)

	var store *storage.Storage
	var err error
	switch dir := envOr("PENGUIN_DB", *dbDir); dir {
	case "":
	case "default":
		store, err = storage.OpenDefault(logger)
	default:
		store, err = storage.Open(dir, logger)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("analysis cache disabled")
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	prefs := loadPreferences(store, logger)

	httpServer := &http.Server{
		Addr:    envOr("PENGUIN_ADDR", *addr),
		Handler: server.New(prefs, store, logger).Routes(),
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	g, ctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		logger.Info().Str("addr", httpServer.Addr).Msg("server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		logger.Info().Msg("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

// loadPreferences starts from stored preferences and applies flags given on
// the command line.
func loadPreferences(store *storage.Storage, logger zerolog.Logger) *storage.Preferences {
	prefs := storage.DefaultPreferences()
	if store != nil {
		loaded, err := store.LoadPreferences()
		if err != nil {
			logger.Warn().Err(err).Msg("failed to load preferences")
		} else {
			prefs = loaded
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "max-tt-depth":
			prefs.Engine.MaxTTDepth = *maxTTDepth
		case "max-tt-entries":
			prefs.Engine.MaxTTEntries = *maxTTEntries
		case "layout":
			l, err := storage.ParseLayout(*layout)
			if err != nil {
				logger.Fatal().Err(err).Msg("invalid -layout")
			}
			prefs.Layout = l
		case "scores":
			prefs.ReportChildScores = *scores
		case "movetime":
			prefs.MoveTime = *moveTime
		}
	})
	logger.Debug().Interface("preferences", prefs).Msg("server configured")
	return prefs
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
