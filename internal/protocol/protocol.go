// Package protocol implements the line-oriented text protocol of the engine binary.
package protocol

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/hailam/penguin/internal/board"
	"github.com/hailam/penguin/internal/engine"
	"github.com/hailam/penguin/internal/game"
	"github.com/hailam/penguin/internal/storage"
)

// Protocol reads commands, drives the engine and writes responses.
type Protocol struct {
	engine *engine.Engine
	game   *game.Game
	store  *storage.Storage
	prefs  *storage.Preferences
	log    zerolog.Logger

	// Positions played before the game was set up with "position".
	history []board.State

	outMu sync.Mutex
	out   io.Writer

	// Search state
	searching    bool
	searchDone   chan struct{}
	cancelSearch context.CancelFunc
}

// New creates a protocol handler. store may be nil; nil prefs means defaults.
// The first game starts from the preferred layout.
func New(eng *engine.Engine, store *storage.Storage, prefs *storage.Preferences, logger zerolog.Logger) *Protocol {
	if prefs == nil {
		prefs = storage.DefaultPreferences()
	}
	return &Protocol{
		engine: eng,
		game:   game.New(prefs.Layout.Start()),
		store:  store,
		prefs:  prefs,
		log:    logger,
		out:    io.Discard,
	}
}

// Run processes commands from in until "quit", end of input or ctx is done.
func (p *Protocol) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	p.out = out

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			p.handleStop()
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		var err error
		switch cmd {
		case "new":
			err = p.handleNew(args)
		case "position":
			err = p.handlePosition(args)
		case "move":
			err = p.handleMove(args)
		case "undo":
			p.handleStop()
			err = p.game.Undo()
		case "go":
			err = p.handleGo(ctx, args)
		case "stop":
			p.handleStop()
		case "setoption":
			err = p.handleSetOption(args)
		case "analysis":
			err = p.handleAnalysis()
		case "quit":
			p.handleStop()
			return nil
		// Debug commands
		case "d":
			pos := p.game.Current()
			p.printf("%sEval: %s\n", pos, engine.ScoreToString(p.engine.Evaluate(pos)))
		case "moves":
			p.handleMoves()
		case "perft":
			err = p.handlePerft(args)
		default:
			err = fmt.Errorf("unknown command %q", cmd)
		}

		if err != nil {
			p.log.Warn().Err(err).Str("command", line).Msg("command failed")
			p.printf("error %v\n", err)
		}
	}

	// End of input lets a running search finish.
	p.waitSearch()
	return scanner.Err()
}

func (p *Protocol) printf(format string, args ...any) {
	p.outMu.Lock()
	defer p.outMu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

func (p *Protocol) println(s string) {
	p.printf("%s\n", s)
}

// handleNew starts a game from the named layout, or the preferred one.
func (p *Protocol) handleNew(args []string) error {
	p.handleStop()
	layout := p.prefs.Layout
	if len(args) > 0 {
		var err error
		if layout, err = storage.ParseLayout(args[0]); err != nil {
			return err
		}
	}
	p.game = game.New(layout.Start())
	p.history = nil
	return nil
}

// handlePosition sets up a position.
// Formats:
//   - position <10 or 11 cells>
//   - position <10 or 11 cells> history <11 values per earlier position>
func (p *Protocol) handlePosition(args []string) error {
	p.handleStop()

	posArgs, histArgs := args, []string(nil)
	if i := lo.IndexOf(args, "history"); i >= 0 {
		posArgs, histArgs = args[:i], args[i+1:]
	}

	values, err := parseInts(posArgs)
	if err != nil {
		return err
	}
	st, err := board.FromPositions(values)
	if err != nil {
		return err
	}

	var history []board.State
	if len(histArgs) > 0 {
		hv, err := parseInts(histArgs)
		if err != nil {
			return err
		}
		if history, err = board.ParseHistory(hv, board.PositionLenWithSide); err != nil {
			return err
		}
	}

	p.game = game.New(st)
	p.history = history
	return nil
}

// handleMove plays "move <slot> <to>" or "move <from>-<to>".
func (p *Protocol) handleMove(args []string) error {
	p.handleStop()

	switch len(args) {
	case 1:
		from, to, ok := strings.Cut(args[0], "-")
		if !ok {
			return fmt.Errorf("%w: %q", board.ErrIllegalMove, args[0])
		}
		cells, err := parseInts([]string{from, to})
		if err != nil {
			return err
		}
		_, err = p.game.ApplyCells(board.Square(cells[0]), board.Square(cells[1]))
		return err
	case 2:
		values, err := parseInts(args)
		if err != nil {
			return err
		}
		if values[0] < 0 || values[0] >= board.NumSlots || values[1] < 0 || values[1] >= board.NumSquares {
			return fmt.Errorf("%w: slot %d to %d", board.ErrIllegalMove, values[0], values[1])
		}
		return p.game.Apply(board.NewMove(values[0], board.Square(values[1])))
	default:
		return errors.New("usage: move <slot> <to> | move <from>-<to>")
	}
}

// GoOptions holds parsed "go" command options.
type GoOptions struct {
	Depth  int
	Clock  engine.ClockLimits
	Scores bool
}

func parseGoOptions(args []string) (GoOptions, error) {
	opts := GoOptions{}

	for i := 0; i < len(args); i++ {
		if args[i] == "scores" {
			opts.Scores = true
			continue
		}
		if i+1 >= len(args) {
			return opts, fmt.Errorf("%s needs a value", args[i])
		}
		n, err := strconv.Atoi(args[i+1])
		if err != nil || n < 0 {
			return opts, fmt.Errorf("invalid %s %q", args[i], args[i+1])
		}
		ms := time.Duration(n) * time.Millisecond

		switch args[i] {
		case "depth":
			opts.Depth = n
		case "movetime":
			opts.Clock.MoveTime = ms
		case "wtime":
			opts.Clock.Time[board.White] = ms
		case "btime":
			opts.Clock.Time[board.Black] = ms
		case "winc":
			opts.Clock.Inc[board.White] = ms
		case "binc":
			opts.Clock.Inc[board.Black] = ms
		case "movestogo":
			opts.Clock.MovesToGo = n
		default:
			return opts, fmt.Errorf("unknown go option %q", args[i])
		}
		i++
	}
	return opts, nil
}

// handleGo starts a search of the current position in the background.
func (p *Protocol) handleGo(ctx context.Context, args []string) error {
	opts, err := parseGoOptions(args)
	if err != nil {
		return err
	}
	p.handleStop()

	pos := p.game.Current()
	if pos.Ended() {
		p.println("bestmove none")
		return nil
	}
	history := append(append([]board.State(nil), p.history...), p.game.History()...)
	limits := engine.SearchLimits{
		Depth:             opts.Depth,
		MoveTime:          engine.AllocateTime(opts.Clock, pos.SideToMove(), len(history)-1),
		ReportChildScores: opts.Scores || p.prefs.ReportChildScores,
	}
	if limits.MoveTime == 0 {
		limits.MoveTime = p.prefs.MoveTime
	}

	p.engine.OnInfo = p.sendInfo

	// The search owns a context so a stop issued before it starts is not lost.
	searchCtx, cancel := context.WithCancel(ctx)
	p.searching = true
	p.searchDone = make(chan struct{})
	p.cancelSearch = cancel

	go func() {
		defer close(p.searchDone)

		start := time.Now()
		res, ok := p.engine.Analyze(searchCtx, pos, history, limits)
		if !ok {
			p.log.Info().Msg("search stopped before depth 1 completed")
			p.println("bestmove none")
			return
		}

		p.log.Info().
			Int("depth", res.Depth).
			Uint64("nodes", res.NodesSearched).
			Str("score", engine.ScoreToString(res.Result.Score)).
			Dur("elapsed", time.Since(start)).
			Msg("search finished")
		p.record(pos, history, res)

		if m, found := res.Result.BestMove(); found {
			p.printf("bestmove %s\n", m)
			return
		}
		p.println("bestmove none")
	}()
	return nil
}

// record caches a finished search when a store is configured.
func (p *Protocol) record(pos board.State, history []board.State, res engine.PartialResult) {
	if p.store == nil {
		return
	}
	if !storage.Cacheable(pos, history) {
		p.log.Debug().Int("history", len(history)).Msg("analysis depends on game history, not cached")
		return
	}
	written, err := p.store.SaveAnalysis(pos, storage.NewAnalysis(res))
	if err != nil {
		p.log.Error().Err(err).Msg("failed to save analysis")
		return
	}
	p.log.Debug().Bool("written", written).Int("depth", res.Depth).Msg("analysis cached")
}

// sendInfo outputs one completed depth.
func (p *Protocol) sendInfo(info engine.PartialResult) {
	var b strings.Builder
	fmt.Fprintf(&b, "info depth %d nodes %d tt %d score %d",
		info.Depth, info.NodesSearched, info.TranspositionTableSize, info.Result.Score)
	if len(info.Result.BestPath) > 0 {
		pv := lo.Map(info.Result.BestPath, func(m board.Move, _ int) string { return m.String() })
		b.WriteString(" pv ")
		b.WriteString(strings.Join(pv, " "))
	}
	b.WriteByte('\n')

	for _, ms := range info.Result.FirstMoveScores {
		fmt.Fprintf(&b, "info childscore %s score %d\n", ms.Move, ms.Score)
	}
	p.printf("%s", b.String())
}

// handleStop stops the current search.
func (p *Protocol) handleStop() {
	if p.searching {
		p.cancelSearch()
		<-p.searchDone // Wait for search to finish
		p.searching = false
	}
}

func (p *Protocol) waitSearch() {
	if p.searching {
		<-p.searchDone
		p.cancelSearch()
		p.searching = false
	}
}

// handleSetOption processes "setoption name <name> value <value>".
func (p *Protocol) handleSetOption(args []string) error {
	var name, value string
	readingName := false
	readingValue := false

	for _, arg := range args {
		switch arg {
		case "name":
			readingName = true
			readingValue = false
		case "value":
			readingName = false
			readingValue = true
		default:
			if readingName {
				name = strings.TrimSpace(name + " " + arg)
			} else if readingValue {
				value = strings.TrimSpace(value + " " + arg)
			}
		}
	}

	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return fmt.Errorf("option %s needs a positive integer, got %q", name, value)
	}

	p.handleStop()
	cfg := p.engine.Config()
	switch strings.ToLower(name) {
	case "maxttdepth":
		cfg.MaxTTDepth = n
	case "maxttentries":
		cfg.MaxTTEntries = n
	case "depthstep":
		cfg.DepthStep = n
	case "maxdepth":
		cfg.MaxDepth = n
	default:
		return fmt.Errorf("unknown option %q", name)
	}
	p.engine.SetConfig(cfg)
	p.log.Debug().Str("option", name).Int("value", n).Msg("option set")
	return nil
}

// handleAnalysis prints the cached analysis of the current position.
func (p *Protocol) handleAnalysis() error {
	if p.store == nil {
		return errors.New("no analysis store configured")
	}
	a, err := p.store.LoadAnalysis(p.game.Current())
	if errors.Is(err, storage.ErrNotFound) {
		p.println("analysis none")
		return nil
	}
	if err != nil {
		return err
	}
	pv := lo.Map(a.BestPath, func(m board.Move, _ int) string { return m.String() })
	p.printf("analysis depth %d nodes %d score %d pv %s\n", a.Depth, a.Nodes, a.Score, strings.Join(pv, " "))
	return nil
}

// handleMoves lists the legal moves of the current position.
func (p *Protocol) handleMoves() {
	pos := p.game.Current()
	for _, m := range pos.Moves().Slice() {
		p.printf("%s from %d score %d\n", m, m.From(pos), pos.Apply(m).Score())
	}
}

// handlePerft runs a perft test.
func (p *Protocol) handlePerft(args []string) error {
	depth := 3
	if len(args) > 0 {
		d, err := strconv.Atoi(args[0])
		if err != nil || d < 0 {
			return fmt.Errorf("invalid perft depth %q", args[0])
		}
		depth = d
	}

	start := time.Now()
	nodes := board.Perft(p.game.Current(), depth)
	elapsed := time.Since(start)

	p.printf("Nodes: %d\n", nodes)
	p.printf("Time: %v\n", elapsed)
	if elapsed > 0 {
		p.printf("NPS: %.0f\n", float64(nodes)/elapsed.Seconds())
	}
	return nil
}

func parseInts(fields []string) ([]int, error) {
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", board.ErrInvalidPosition, f)
		}
		out = append(out, v)
	}
	return out, nil
}
