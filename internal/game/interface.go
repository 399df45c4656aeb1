package game

import (
	"github.com/cardroom/holdem/internal/deck"
	"github.com/cardroom/holdem/internal/evaluator"
)

// HandRank is a total-ordered hand strength at showdown. Higher is stronger
// and equal values split the pot.
type HandRank uint32

// String describes the hand category, e.g. "Full House"
func (r HandRank) String() string {
	return evaluator.HandRank(r).String()
}

// Evaluator ranks a player's best hand at showdown. Implementations must be
// pure: the same cards always produce the same rank.
type Evaluator interface {
	Rank(hole, board []deck.Card) HandRank
}

// DefaultEvaluator ranks hands with the built-in seven-card evaluator.
type DefaultEvaluator struct{}

// Rank implements Evaluator
func (DefaultEvaluator) Rank(hole, board []deck.Card) HandRank {
	cards := make([]deck.Card, 0, len(hole)+len(board))
	cards = append(cards, hole...)
	cards = append(cards, board...)
	return HandRank(evaluator.Evaluate(cards))
}

// SeatSnapshot is a read-only view of one seat for decision making.
type SeatSnapshot struct {
	ID     string
	Name   string
	Chips  int
	Bet    int
	Status Status
}

// TableSnapshot is the read-only view handed to a Decision implementation.
// It contains only what the acting player is entitled to see.
type TableSnapshot struct {
	HandNumber int
	Street     Street
	Board      []deck.Card
	Pot        int
	CurrentBet int
	MinRaise   int
	BigBlind   int

	ToAct     string
	HoleCards []deck.Card
	Chips     int
	Bet       int
	Valid     []ValidAction

	Players []SeatSnapshot
}

// Decision selects an action for an AI-controlled seat. Implementations may
// take bounded time; the state machine invokes them off the game loop and
// discards stale results.
type Decision interface {
	Decide(snap TableSnapshot) (Action, int)
}

// Winner describes one player's share of a pot portion.
type Winner struct {
	PlayerID string
	Amount   int
	Rank     HandRank
	Portion  int // index into the pot portions, main pot first
}

// Recorder is the persistence/statistics sink. Calls are fire-and-forget:
// implementations must never block the engine and failures must not affect
// game state.
type Recorder interface {
	OnHandStart(handNumber int, mode GameMode, players []*Player)
	OnAction(playerID string, action Action, amount int, street Street, voluntary bool, position int)
	OnHandEnd(finalPot int, board []deck.Card, winners []Winner)
}

// NullRecorder discards everything.
type NullRecorder struct{}

func (NullRecorder) OnHandStart(int, GameMode, []*Player) {}
func (NullRecorder) OnAction(string, Action, int, Street, bool, int) {}
func (NullRecorder) OnHandEnd(int, []deck.Card, []Winner) {}
