package monitor

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/cardroom/holdem/internal/game"
)

func testServer() *Server {
	return NewServer(":0", log.New(io.Discard))
}

func waitForClients(t *testing.T, s *Server, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.RLock()
		n := len(s.conns)
		s.mu.RUnlock()
		if n == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d connected clients", want)
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	s := testServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("expected OK body, got %q", w.Body.String())
	}
}

func TestBroadcastReachesConnectedClient(t *testing.T) {
	t.Parallel()
	s := testServer()
	go s.run()
	defer s.Stop()

	ts := httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer ws.Close()
	waitForClients(t, s, 1)

	s.OnEvent(game.HandStartEvent{HandNumber: 7, BigBlind: 10})

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}

	var frame Frame
	if err := json.Unmarshal(msg, &frame); err != nil {
		t.Fatalf("frame is not valid JSON: %v", err)
	}
	if frame.Type != "hand_start" {
		t.Errorf("expected hand_start frame, got %q", frame.Type)
	}
	var payload struct{ HandNumber int }
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if payload.HandNumber != 7 {
		t.Errorf("expected hand number 7, got %d", payload.HandNumber)
	}
}

func TestOnEventNeverBlocks(t *testing.T) {
	t.Parallel()
	// No broadcast loop running: the queue fills and overflow is dropped.
	s := testServer()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			s.OnEvent(game.HandStartEvent{HandNumber: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("OnEvent blocked on a full queue")
	}
}

func TestDisconnectedClientIsRemoved(t *testing.T) {
	t.Parallel()
	s := testServer()
	go s.run()
	defer s.Stop()

	ts := httptest.NewServer(http.HandlerFunc(s.handleWebSocket))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	waitForClients(t, s, 1)

	ws.Close()
	waitForClients(t, s, 0)

	// Broadcasting with no clients left is a no-op, not an error.
	s.broadcast(game.HandStartEvent{HandNumber: 1})
}
