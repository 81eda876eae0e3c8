package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/hailam/penguin/internal/board"
	"github.com/hailam/penguin/internal/engine"
	"github.com/hailam/penguin/internal/storage"
)

const wsIdlePingInterval = 30 * time.Second

// searchRequest is a client message on /ws/search.
type searchRequest struct {
	Type                   string `json:"type"`
	Search                 []int  `json:"search"`
	CollectFirstMoveScores *bool  `json:"collect_first_move_scores"`
	HistoryStates          []int  `json:"history_states"`
	Depth                  int    `json:"depth"`
	MoveTimeMs             int    `json:"movetime_ms"`
}

type infoMessage struct {
	Type string               `json:"type"`
	Info engine.PartialResult `json:"info"`
}

type moveMessage struct {
	Type string      `json:"type"`
	Move *board.Move `json:"move"`
}

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type pingMessage struct {
	Type string `json:"type"`
}

func mustMarshal(v any) []byte {
	data, _ := json.Marshal(v)
	return data
}

// serveSearchWS runs searches requested over a websocket. A new search
// request or a stop message cancels the running one.
func (s *Server) serveSearchWS(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	g, ctx := errgroup.WithContext(r.Context())
	send := make(chan []byte, 16)
	sess := &searchSession{srv: s, ctx: ctx, send: send}

	g.Go(func() error {
		return writeWSWithHeartbeat(ctx, conn, send)
	})
	g.Go(func() error {
		defer sess.stop()
		return sess.readLoop(conn)
	})
	g.Go(func() error {
		<-ctx.Done()
		// Unblocks the reader when the writer fails first.
		conn.Close()
		return nil
	})

	if err := g.Wait(); err != nil && !isClosed(err) {
		s.log.Debug().Err(err).Msg("search websocket closed")
	}
}

func isClosed(err error) bool {
	return errors.Is(err, context.Canceled) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

func writeWSWithHeartbeat(ctx context.Context, conn *websocket.Conn, send <-chan []byte) error {
	ticker := time.NewTicker(wsIdlePingInterval)
	defer ticker.Stop()
	lastWrite := time.Now()
	pingPayload := mustMarshal(pingMessage{Type: "ping"})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-send:
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return err
			}
			lastWrite = time.Now()
		case <-ticker.C:
			if time.Since(lastWrite) < wsIdlePingInterval {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, pingPayload); err != nil {
				return err
			}
			lastWrite = time.Now()
		}
	}
}

// searchSession owns at most one running search per connection.
type searchSession struct {
	srv  *Server
	ctx  context.Context
	send chan<- []byte

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (ss *searchSession) readLoop(conn *websocket.Conn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var req searchRequest
		if err := json.Unmarshal(data, &req); err != nil {
			ss.emit(errorMessage{Type: "error", Error: "invalid payload"})
			continue
		}

		switch req.Type {
		case "search":
			if err := ss.start(req); err != nil {
				ss.emit(errorMessage{Type: "error", Error: err.Error()})
			}
		case "stop":
			ss.stop()
		default:
			ss.emit(errorMessage{Type: "error", Error: fmt.Sprintf("unknown message type %q", req.Type)})
		}
	}
}

// emit queues a message unless the connection is shutting down.
func (ss *searchSession) emit(v any) {
	select {
	case ss.send <- mustMarshal(v):
	case <-ss.ctx.Done():
	}
}

func (ss *searchSession) start(req searchRequest) error {
	root, err := board.FromPositions(req.Search)
	if err != nil {
		return err
	}
	history, err := board.ParseHistory(req.HistoryStates, board.PositionLenWithSide)
	if err != nil {
		return err
	}

	ss.stop()

	ctx, cancel := context.WithCancel(ss.ctx)
	done := make(chan struct{})
	ss.mu.Lock()
	ss.cancel, ss.done = cancel, done
	ss.mu.Unlock()

	prefs := ss.srv.prefs
	eng := engine.NewEngine(prefs.Engine)
	eng.OnInfo = func(p engine.PartialResult) {
		ss.emit(infoMessage{Type: "info", Info: p})
	}
	limits := engine.SearchLimits{
		Depth:             req.Depth,
		MoveTime:          time.Duration(req.MoveTimeMs) * time.Millisecond,
		ReportChildScores: prefs.ReportChildScores,
	}
	if req.CollectFirstMoveScores != nil {
		limits.ReportChildScores = *req.CollectFirstMoveScores
	}
	if limits.MoveTime == 0 {
		limits.MoveTime = prefs.MoveTime
	}

	go func() {
		defer close(done)
		res, ok := eng.Analyze(ctx, root, history, limits)
		msg := moveMessage{Type: "move"}
		if ok {
			ss.srv.record(root, history, res)
			if m, found := res.Result.BestMove(); found {
				msg.Move = &m
			}
		}
		ss.emit(msg)
	}()
	return nil
}

// stop cancels the running search and waits for its final message.
func (ss *searchSession) stop() {
	ss.mu.Lock()
	cancel, done := ss.cancel, ss.done
	ss.cancel, ss.done = nil, nil
	ss.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// record caches a finished search when a store is configured.
func (s *Server) record(root board.State, history []board.State, res engine.PartialResult) {
	if s.store == nil || !storage.Cacheable(root, history) {
		return
	}
	if _, err := s.store.SaveAnalysis(root, storage.NewAnalysis(res)); err != nil {
		s.log.Error().Err(err).Msg("failed to save analysis")
	}
}
