package game

import (
	"fmt"

	"github.com/cardroom/holdem/internal/deck"
)

// Status describes a player's standing at the table.
type Status int

const (
	StatusActive Status = iota
	StatusFolded
	StatusAllIn
	StatusSittingOut
	StatusEliminated
)

// String returns the string representation of a status
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusFolded:
		return "folded"
	case StatusAllIn:
		return "all-in"
	case StatusSittingOut:
		return "sitting-out"
	case StatusEliminated:
		return "eliminated"
	default:
		return "unknown"
	}
}

// Player represents a seat occupant. The identity (ProfileID, EntryIndex)
// is stable across hands; EntryIndex increments each time the same profile
// buys back into the table so separate stints stay distinguishable.
type Player struct {
	ProfileID  string
	EntryIndex int
	Name       string
	IsHuman    bool

	Chips      int
	HoleCards  []deck.Card
	Status     Status
	CurrentBet int // committed this street
	TotalBet   int // committed this hand, across streets
}

// ID returns the stable identity for the player's current stint.
func (p *Player) ID() string {
	return fmt.Sprintf("%s#%d", p.ProfileID, p.EntryIndex)
}

// InHand returns true if the player still holds cards in the current hand.
func (p *Player) InHand() bool {
	return p.Status == StatusActive || p.Status == StatusAllIn
}

// CanAct returns true if the player may still take betting actions.
func (p *Player) CanAct() bool {
	return p.Status == StatusActive
}

// resetForHand clears hand-scoped state. Chips carry over between hands.
func (p *Player) resetForHand() {
	p.HoleCards = nil
	p.CurrentBet = 0
	p.TotalBet = 0
	switch p.Status {
	case StatusSittingOut, StatusEliminated:
		// Seat keeps its standing.
	default:
		if p.Chips > 0 {
			p.Status = StatusActive
		} else {
			p.Status = StatusEliminated
		}
	}
}
