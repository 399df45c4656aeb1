package game

import (
	"sync"
	"time"

	"github.com/cardroom/holdem/internal/deck"
)

// EventType identifies a table event
type EventType string

const (
	EventTypeHandStart    EventType = "hand_start"
	EventTypePlayerAction EventType = "player_action"
	EventTypeStreetChange EventType = "street_change"
	EventTypeHandEnd      EventType = "hand_end"
	EventTypeTableChurn   EventType = "table_churn"
	EventTypeGameOver     EventType = "game_over"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// TableEvent is any event emitted by the engine after a discrete transition.
// The engine emits regardless of whether anyone is subscribed.
type TableEvent interface {
	EventType() EventType
	Timestamp() time.Time
}

// HandStartEvent is published when a new hand begins
type HandStartEvent struct {
	HandNumber int
	Players    []SeatSnapshot
	SmallBlind int
	BigBlind   int
	Ante       int
	timestamp  time.Time
}

func (e HandStartEvent) EventType() EventType { return EventTypeHandStart }
func (e HandStartEvent) Timestamp() time.Time { return e.timestamp }

// PlayerActionEvent is published after each applied action
type PlayerActionEvent struct {
	HandNumber int
	PlayerID   string
	PlayerName string
	Action     Action
	Amount     int
	Street     Street
	PotAfter   int
	timestamp  time.Time
}

func (e PlayerActionEvent) EventType() EventType { return EventTypePlayerAction }
func (e PlayerActionEvent) Timestamp() time.Time { return e.timestamp }

// StreetChangeEvent is published when community cards are dealt
type StreetChangeEvent struct {
	HandNumber int
	Street     Street
	Board      []deck.Card
	Pot        int
	timestamp  time.Time
}

func (e StreetChangeEvent) EventType() EventType { return EventTypeStreetChange }
func (e StreetChangeEvent) Timestamp() time.Time { return e.timestamp }

// HandEndEvent is published when a hand completes
type HandEndEvent struct {
	HandNumber int
	Winners    []Winner
	Pot        int
	Board      []deck.Card
	Eliminated []string
	timestamp  time.Time
}

func (e HandEndEvent) EventType() EventType { return EventTypeHandEnd }
func (e HandEndEvent) Timestamp() time.Time { return e.timestamp }

// TableChurnEvent is published after cash-game seat churn between hands
type TableChurnEvent struct {
	Departed  []string
	Entered   []string
	Pool      int
	timestamp time.Time
}

func (e TableChurnEvent) EventType() EventType { return EventTypeTableChurn }
func (e TableChurnEvent) Timestamp() time.Time { return e.timestamp }

// GameOverEvent is published once when the session ends
type GameOverEvent struct {
	Reason    string
	Results   []Result
	timestamp time.Time
}

func (e GameOverEvent) EventType() EventType { return EventTypeGameOver }
func (e GameOverEvent) Timestamp() time.Time { return e.timestamp }

// EventSubscriber receives table events. OnEvent is called synchronously
// from the engine's call chain: implementations must return quickly and must
// not call back into the engine.
type EventSubscriber interface {
	OnEvent(event TableEvent)
}

// EventBus manages event publishing and subscription
type EventBus interface {
	Subscribe(subscriber EventSubscriber)
	Unsubscribe(subscriber EventSubscriber)
	Publish(event TableEvent)
}

// SimpleEventBus is a basic in-memory event bus implementation
type SimpleEventBus struct {
	mu          sync.RWMutex
	subscribers []EventSubscriber
}

// NewEventBus creates a new event bus
func NewEventBus() EventBus {
	return &SimpleEventBus{}
}

// Subscribe adds a subscriber to receive events
func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	bus.subscribers = append(bus.subscribers, subscriber)
}

// Unsubscribe removes a subscriber from receiving events
func (bus *SimpleEventBus) Unsubscribe(subscriber EventSubscriber) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, sub := range bus.subscribers {
		if sub == subscriber {
			bus.subscribers = append(bus.subscribers[:i], bus.subscribers[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all subscribers
func (bus *SimpleEventBus) Publish(event TableEvent) {
	bus.mu.RLock()
	subs := make([]EventSubscriber, len(bus.subscribers))
	copy(subs, bus.subscribers)
	bus.mu.RUnlock()
	for _, subscriber := range subs {
		subscriber.OnEvent(event)
	}
}
