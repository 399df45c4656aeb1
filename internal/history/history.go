// Package history persists hand histories as JSON lines, one record per
// event. Writes happen on a background goroutine so a slow disk never
// stalls the table.
package history

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cardroom/holdem/internal/deck"
	"github.com/cardroom/holdem/internal/game"
)

// Record is one line of hand history
type Record struct {
	Type       string    `json:"type"`
	Time       time.Time `json:"time"`
	HandNumber int       `json:"hand_number,omitempty"`
	Mode       string    `json:"mode,omitempty"`

	// hand_start
	Seats []Seat `json:"seats,omitempty"`

	// action
	PlayerID  string `json:"player_id,omitempty"`
	Action    string `json:"action,omitempty"`
	Amount    int    `json:"amount,omitempty"`
	Street    string `json:"street,omitempty"`
	Voluntary bool   `json:"voluntary,omitempty"`
	Position  int    `json:"position,omitempty"`

	// hand_end
	Pot     int      `json:"pot,omitempty"`
	Board   []string `json:"board,omitempty"`
	Winners []Win    `json:"winners,omitempty"`
}

// Seat is a player's state at the start of a hand
type Seat struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Chips int    `json:"chips"`
}

// Win is one payout at showdown
type Win struct {
	PlayerID string `json:"player_id"`
	Amount   int    `json:"amount"`
	Rank     string `json:"rank,omitempty"`
}

// Writer implements game.Recorder on top of any io.Writer. Records are
// queued to a buffered channel and flushed by a single goroutine; if the
// queue is full the record is dropped with a log line rather than blocking
// the caller.
type Writer struct {
	logger     *log.Logger
	ch         chan Record
	done       chan struct{}
	closeOnce  sync.Once
	handNumber int
	mu         sync.Mutex
}

var _ game.Recorder = (*Writer)(nil)

// NewWriter starts a recorder writing JSON lines to w. Close flushes and
// stops the background goroutine; w is not closed.
func NewWriter(w io.Writer, logger *log.Logger) *Writer {
	hw := &Writer{
		logger: logger.WithPrefix("history"),
		ch:     make(chan Record, 256),
		done:   make(chan struct{}),
	}
	go hw.run(w)
	return hw
}

func (w *Writer) run(out io.Writer) {
	defer close(w.done)
	enc := json.NewEncoder(out)
	for rec := range w.ch {
		if err := enc.Encode(rec); err != nil {
			w.logger.Error("failed to write history record", "error", err)
		}
	}
}

func (w *Writer) enqueue(rec Record) {
	rec.Time = time.Now()
	select {
	case w.ch <- rec:
	default:
		w.logger.Warn("history queue full, dropping record", "type", rec.Type)
	}
}

// OnHandStart records the seats and stacks going into a hand
func (w *Writer) OnHandStart(handNumber int, mode game.GameMode, players []*game.Player) {
	w.mu.Lock()
	w.handNumber = handNumber
	w.mu.Unlock()

	seats := make([]Seat, 0, len(players))
	for _, p := range players {
		seats = append(seats, Seat{ID: p.ID(), Name: p.Name, Chips: p.Chips})
	}
	w.enqueue(Record{
		Type:       "hand_start",
		HandNumber: handNumber,
		Mode:       mode.String(),
		Seats:      seats,
	})
}

// OnAction records one applied action
func (w *Writer) OnAction(playerID string, action game.Action, amount int, street game.Street, voluntary bool, position int) {
	w.mu.Lock()
	hand := w.handNumber
	w.mu.Unlock()

	w.enqueue(Record{
		Type:       "action",
		HandNumber: hand,
		PlayerID:   playerID,
		Action:     action.String(),
		Amount:     amount,
		Street:     street.String(),
		Voluntary:  voluntary,
		Position:   position,
	})
}

// OnHandEnd records the final pot, board and payouts
func (w *Writer) OnHandEnd(finalPot int, board []deck.Card, winners []game.Winner) {
	w.mu.Lock()
	hand := w.handNumber
	w.mu.Unlock()

	cards := make([]string, 0, len(board))
	for _, c := range board {
		cards = append(cards, c.String())
	}
	wins := make([]Win, 0, len(winners))
	for _, win := range winners {
		wins = append(wins, Win{
			PlayerID: win.PlayerID,
			Amount:   win.Amount,
			Rank:     win.Rank.String(),
		})
	}
	w.enqueue(Record{
		Type:       "hand_end",
		HandNumber: hand,
		Pot:        finalPot,
		Board:      cards,
		Winners:    wins,
	})
}

// Close flushes queued records and stops the writer
func (w *Writer) Close() {
	w.closeOnce.Do(func() { close(w.ch) })
	<-w.done
}
