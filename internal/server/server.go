// Package server exposes the engine over HTTP and a websocket search stream.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/hailam/penguin/internal/board"
	"github.com/hailam/penguin/internal/storage"
)

// Server holds the shared configuration of all handlers. Every search runs
// on its own engine.
type Server struct {
	prefs *storage.Preferences
	store *storage.Storage
	log   zerolog.Logger
}

// New creates a server. store may be nil, in which case analyses are not
// cached; nil prefs means defaults.
func New(prefs *storage.Preferences, store *storage.Storage, logger zerolog.Logger) *Server {
	if prefs == nil {
		prefs = storage.DefaultPreferences()
	}
	return &Server{prefs: prefs, store: store, log: logger}
}

type positionDTO struct {
	Positions  []int    `json:"positions"`
	Board      []string `json:"board"`
	SideToMove string   `json:"side_to_move"`
	Winner     string   `json:"winner,omitempty"`
	Score      int      `json:"score"`
}

type moveDTO struct {
	Move      board.Move `json:"move"`
	Slot      int        `json:"slot"`
	From      int        `json:"from"`
	To        int        `json:"to"`
	Positions []int      `json:"positions"`
	Score     int        `json:"score"`
}

type movesResponse struct {
	Moves []moveDTO `json:"moves"`
}

type applyRequest struct {
	Positions []int `json:"positions"`
	From      int   `json:"from"`
	To        int   `json:"to"`
}

type analysisResponse struct {
	Positions []int            `json:"positions"`
	Analysis  storage.Analysis `json:"analysis"`
}

func newPositionDTO(s board.State) positionDTO {
	cells := s.Flatten()
	dto := positionDTO{
		Positions:  s.Positions(),
		Board:      lo.Map(cells[:], func(c board.Cell, _ int) string { return c.String() }),
		SideToMove: s.SideToMove().String(),
		Score:      s.Score(),
	}
	if w := s.Winner(); w != board.NoColor {
		dto.Winner = w.String()
	}
	return dto
}

func newMoveDTOs(s board.State) []moveDTO {
	return lo.Map(s.Moves().Slice(), func(m board.Move, _ int) moveDTO {
		child := s.Apply(m)
		return moveDTO{
			Move:      m,
			Slot:      m.Slot(),
			From:      int(m.From(s)),
			To:        int(m.To()),
			Positions: child.Positions(),
			Score:     child.Score(),
		}
	})
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	r.Get("/api/new", func(w http.ResponseWriter, r *http.Request) {
		layout := s.prefs.Layout
		if name := r.URL.Query().Get("layout"); name != "" {
			var err error
			if layout, err = storage.ParseLayout(name); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, newPositionDTO(layout.Start()))
	})

	r.Post("/api/moves", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Positions []int `json:"positions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		st, err := board.FromPositions(payload.Positions)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJSON(w, http.StatusOK, movesResponse{Moves: newMoveDTOs(st)})
	})

	r.Post("/api/apply", func(w http.ResponseWriter, r *http.Request) {
		var payload applyRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		st, err := board.FromPositions(payload.Positions)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if payload.From < 0 || payload.From >= board.NumSquares || payload.To < 0 || payload.To >= board.NumSquares {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: cell out of range", board.ErrIllegalMove))
			return
		}
		m, err := board.FindMove(st, board.Square(payload.From), board.Square(payload.To))
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeJSON(w, http.StatusOK, newPositionDTO(st.Apply(m)))
	})

	r.Get("/api/analysis", func(w http.ResponseWriter, r *http.Request) {
		st, err := parsePositionsParam(r.URL.Query().Get("positions"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if s.store == nil {
			writeError(w, http.StatusNotFound, storage.ErrNotFound)
			return
		}
		a, err := s.store.LoadAnalysis(st)
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, analysisResponse{Positions: st.Positions(), Analysis: a})
	})

	r.Get("/ws/search", s.serveSearchWS)

	return r
}

// requestLogger logs each request through zerolog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func parsePositionsParam(raw string) (board.State, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: missing positions", board.ErrInvalidPosition)
	}
	fields := strings.Split(raw, ",")
	values := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", board.ErrInvalidPosition, f)
		}
		values[i] = v
	}
	return board.FromPositions(values)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
