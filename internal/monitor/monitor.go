// Package monitor exposes the live table event stream over WebSocket so a
// running game can be observed from a browser or another process.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/cardroom/holdem/internal/game"
)

// Frame is one serialized table event
type Frame struct {
	Type    string          `json:"type"`
	Time    time.Time       `json:"time"`
	Payload json.RawMessage `json:"payload"`
}

// Server broadcasts table events to every connected WebSocket client. It
// subscribes to the engine's event bus; OnEvent only enqueues, the fan-out
// happens on the server's own goroutine, so a slow client can never stall
// the engine.
type Server struct {
	addr     string
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu    sync.RWMutex
	conns map[*websocket.Conn]bool

	events chan game.TableEvent
	ctx    context.Context
	cancel context.CancelFunc
}

var _ game.EventSubscriber = (*Server)(nil)

// NewServer creates a monitor server listening on addr
func NewServer(addr string, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Observation only, no table input arrives on this socket.
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.WithPrefix("monitor"),
		conns:  make(map[*websocket.Conn]bool),
		events: make(chan game.TableEvent, 128),
		ctx:    ctx,
		cancel: cancel,
	}
}

// OnEvent implements game.EventSubscriber. Never blocks: if the queue is
// full the event is dropped.
func (s *Server) OnEvent(event game.TableEvent) {
	select {
	case s.events <- event:
	default:
		s.logger.Warn("event queue full, dropping", "type", event.EventType())
	}
}

// Start runs the HTTP listener and the broadcast loop. Blocks until the
// listener fails or Stop is called.
func (s *Server) Start() error {
	go s.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.logger.Info("starting monitor server", "addr", s.addr)
	srv := &http.Server{Addr: s.addr, Handler: mux}
	go func() {
		<-s.ctx.Done()
		_ = srv.Close()
	}()
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts down the listener and closes every client connection
func (s *Server) Stop() {
	s.cancel()
	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.conns = make(map[*websocket.Conn]bool)
	s.mu.Unlock()
}

func (s *Server) run() {
	for {
		select {
		case event := <-s.events:
			s.broadcast(event)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Server) broadcast(event game.TableEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to marshal event", "type", event.EventType(), "error", err)
		return
	}
	frame, err := json.Marshal(Frame{
		Type:    string(event.EventType()),
		Time:    event.Timestamp(),
		Payload: payload,
	})
	if err != nil {
		s.logger.Error("failed to marshal frame", "error", err)
		return
	}

	s.mu.RLock()
	var stale []*websocket.Conn
	for conn := range s.conns {
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			stale = append(stale, conn)
		}
	}
	s.mu.RUnlock()

	if len(stale) > 0 {
		s.mu.Lock()
		for _, conn := range stale {
			if s.conns[conn] {
				delete(s.conns, conn)
				_ = conn.Close()
			}
		}
		s.mu.Unlock()
		s.logger.Info("dropped stale clients", "count", len(stale))
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	s.mu.Lock()
	s.conns[conn] = true
	total := len(s.conns)
	s.mu.Unlock()
	s.logger.Info("client connected", "total", total)

	// Observers send nothing; the read loop only notices disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		s.mu.Lock()
		if s.conns[conn] {
			delete(s.conns, conn)
			_ = conn.Close()
		}
		total := len(s.conns)
		s.mu.Unlock()
		s.logger.Info("client disconnected", "total", total)
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}
