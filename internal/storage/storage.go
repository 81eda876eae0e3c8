package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/hailam/penguin/internal/board"
	"github.com/hailam/penguin/internal/engine"
)

// ErrNotFound is returned when no analysis is stored for a position.
var ErrNotFound = errors.New("not found")

// Storage keys
const (
	keyPreferences    = "preferences"
	keyAnalysisPrefix = "analysis/"
)

// Layout names the starting position of a new game.
type Layout string

const (
	LayoutStandard      Layout = "standard"
	LayoutKingsInverted Layout = "inverted"
)

// ParseLayout validates a layout name. The empty name is the standard layout.
func ParseLayout(name string) (Layout, error) {
	switch Layout(name) {
	case "", LayoutStandard:
		return LayoutStandard, nil
	case LayoutKingsInverted:
		return LayoutKingsInverted, nil
	default:
		return "", fmt.Errorf("unknown layout %q", name)
	}
}

// Start returns the starting state of the layout.
func (l Layout) Start() board.State {
	if l == LayoutKingsInverted {
		return board.NewStateKingsInverted()
	}
	return board.NewState()
}

// Preferences stores engine and host settings.
type Preferences struct {
	Engine engine.Config `json:"engine"`
	// Layout is used for new games that do not name one.
	Layout Layout `json:"layout"`
	// ReportChildScores and MoveTime are the search defaults when a request
	// leaves them unset.
	ReportChildScores bool          `json:"report_child_scores"`
	MoveTime          time.Duration `json:"move_time"`
}

// DefaultPreferences returns default preferences
func DefaultPreferences() *Preferences {
	return &Preferences{
		Engine: engine.DefaultConfig(),
		Layout: LayoutStandard,
	}
}

// Analysis is the deepest completed search recorded for a position.
type Analysis struct {
	Depth    int          `json:"depth"`
	Score    int          `json:"score"`
	Nodes    uint64       `json:"nodes"`
	BestPath []board.Move `json:"best_path"`
	SavedAt  time.Time    `json:"saved_at"`
}

// NewAnalysis converts a completed depth into a storable record.
func NewAnalysis(p engine.PartialResult) Analysis {
	return Analysis{
		Depth:    p.Depth,
		Score:    p.Result.Score,
		Nodes:    p.NodesSearched,
		BestPath: p.Result.BestPath,
	}
}

// Cacheable reports whether a search of root under the given game history may
// be stored. Records are keyed by position alone, so a line shaped by earlier
// positions of a game is not cached.
func Cacheable(root board.State, history []board.State) bool {
	for _, h := range history {
		if h != root {
			return false
		}
	}
	return true
}

// Storage wraps BadgerDB for persistent storage. Values are zstd-compressed JSON.
type Storage struct {
	db      *badger.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// Open opens (or creates) a store in dir.
func Open(dir string, logger zerolog.Logger) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = badgerLogger{logger.With().Str("component", "badger").Logger()}
	return open(opts)
}

// OpenDefault opens the store in the platform data directory.
func OpenDefault(logger zerolog.Logger) (*Storage, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}
	return Open(dbDir, logger)
}

// OpenInMemory opens a store that is discarded on Close.
func OpenInMemory() (*Storage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*Storage, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Storage{db: db, encoder: encoder, decoder: decoder}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	s.decoder.Close()
	if err := s.encoder.Close(); err != nil {
		return err
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func analysisKey(st board.State) []byte {
	key := make([]byte, len(keyAnalysisPrefix)+8)
	copy(key, keyAnalysisPrefix)
	binary.BigEndian.PutUint64(key[len(keyAnalysisPrefix):], uint64(st))
	return key
}

func (s *Storage) marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return s.encoder.EncodeAll(data, nil), nil
}

func (s *Storage) unmarshal(val []byte, v any) error {
	data, err := s.decoder.DecodeAll(val, nil)
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	return json.Unmarshal(data, v)
}

// SaveAnalysis records a for st unless a deeper analysis is already stored.
// It reports whether the record was written.
func (s *Storage) SaveAnalysis(st board.State, a Analysis) (bool, error) {
	written := false
	err := s.db.Update(func(txn *badger.Txn) error {
		key := analysisKey(st)
		var prev Analysis
		err := s.get(txn, key, &prev)
		switch {
		case err == nil && prev.Depth > a.Depth:
			return nil
		case err != nil && !errors.Is(err, ErrNotFound):
			return err
		}

		a.SavedAt = time.Now()
		data, err := s.marshal(a)
		if err != nil {
			return err
		}
		written = true
		return txn.Set(key, data)
	})
	return written, err
}

// LoadAnalysis returns the stored analysis for st, or ErrNotFound.
func (s *Storage) LoadAnalysis(st board.State) (Analysis, error) {
	var a Analysis
	err := s.db.View(func(txn *badger.Txn) error {
		return s.get(txn, analysisKey(st), &a)
	})
	return a, err
}

// SavePreferences saves preferences
func (s *Storage) SavePreferences(prefs *Preferences) error {
	data, err := s.marshal(prefs)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPreferences), data)
	})
}

// LoadPreferences loads preferences, returns defaults if not found
func (s *Storage) LoadPreferences() (*Preferences, error) {
	prefs := DefaultPreferences()
	err := s.db.View(func(txn *badger.Txn) error {
		err := s.get(txn, []byte(keyPreferences), prefs)
		if errors.Is(err, ErrNotFound) {
			return nil // Use defaults
		}
		return err
	})
	return prefs, err
}

func (s *Storage) get(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return s.unmarshal(val, v)
	})
}

// badgerLogger forwards badger's log lines to zerolog.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.Trace().Msgf(format, args...)
}
