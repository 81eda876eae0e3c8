package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"runtime/pprof"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/hailam/penguin/internal/engine"
	"github.com/hailam/penguin/internal/logx"
	"github.com/hailam/penguin/internal/protocol"
	"github.com/hailam/penguin/internal/storage"
)

const defaultMaxStack = 1 << 30

var (
	cpuprofile   = flag.String("cpuprofile", "", "write cpu profile to file")
	logLevel     = flag.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	dbDir        = flag.String("db", "", "analysis cache directory (\"default\" for the user data dir, empty to disable)")
	maxTTDepth   = flag.Int("max-tt-depth", engine.DefaultMaxTTDepth, "ply horizon for transposition caching")
	maxTTEntries = flag.Int("max-tt-entries", engine.DefaultMaxTTEntries, "entries per transposition table generation")
	maxStack     = flag.Int("max-stack", defaultMaxStack, "maximum goroutine stack size in bytes")
	layout       = flag.String("layout", string(storage.LayoutStandard), "layout of new games (standard, inverted)")
	scores       = flag.Bool("scores", false, "report the score of every root move by default")
	moveTime     = flag.Duration("movetime", 0, "default thinking time per search (0 = until decisive)")
)

func main() {
	flag.Parse()

	// Protocol output owns stdout; logs go to stderr.
	logger := logx.NewLogger(os.Stderr).Level(logx.ParseLevel(envOr("PENGUIN_LOG_LEVEL", *logLevel)))

	debug.SetMaxStack(*maxStack)

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := envOr("CPUPROFILE", *cpuprofile)
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			logger.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
		logger.Info().Str("path", profilePath).Msg("CPU profiling enabled")
	}

	store := openStore(envOr("PENGUIN_DB", *dbDir), logger)
	if store != nil {
		defer store.Close()
	}

	prefs := loadPreferences(store, logger)
	eng := engine.NewEngine(prefs.Engine)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := protocol.New(eng, store, prefs, logger)
	if err := p.Run(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Error().Err(err).Msg("protocol loop ended")
	}
}

// openStore opens the analysis cache, or returns nil when disabled or unavailable.
func openStore(dir string, logger zerolog.Logger) *storage.Storage {
	var (
		store *storage.Storage
		err   error
	)
	switch dir {
	case "":
		return nil
	case "default":
		store, err = storage.OpenDefault(logger)
	default:
		store, err = storage.Open(dir, logger)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("analysis cache disabled")
		return nil
	}
	return store
}

// loadPreferences starts from stored preferences and applies flags given on
// the command line. Explicit flags are saved for later runs.
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

	changed := false
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
		default:
			return
		}
		changed = true
	})
	if v, err := strconv.Atoi(os.Getenv("PENGUIN_MAX_TT_DEPTH")); err == nil && v > 0 {
		prefs.Engine.MaxTTDepth = v
	}

	if changed && store != nil {
		if err := store.SavePreferences(prefs); err != nil {
			logger.Warn().Err(err).Msg("failed to save preferences")
		}
	}
	logger.Debug().Interface("preferences", prefs).Msg("engine configured")
	return prefs
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
