package bot

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"

	"github.com/cardroom/holdem/internal/deck"
	"github.com/cardroom/holdem/internal/game"
	"github.com/cardroom/holdem/internal/randutil"
)

func card(s string) deck.Card {
	ranks := map[byte]deck.Rank{
		'2': deck.Two, '3': deck.Three, '4': deck.Four, '5': deck.Five,
		'6': deck.Six, '7': deck.Seven, '8': deck.Eight, '9': deck.Nine,
		'T': deck.Ten, 'J': deck.Jack, 'Q': deck.Queen, 'K': deck.King,
		'A': deck.Ace,
	}
	suits := map[byte]deck.Suit{
		's': deck.Spades, 'h': deck.Hearts, 'd': deck.Diamonds, 'c': deck.Clubs,
	}
	return deck.NewCard(ranks[s[0]], suits[s[1]])
}

func cards(specs ...string) []deck.Card {
	out := make([]deck.Card, len(specs))
	for i, s := range specs {
		out[i] = card(s)
	}
	return out
}

// noBluff keeps decisions deterministic by never firing the bluff roll
var noBluff = Profile{
	OpenThreshold:    0.60,
	CallThreshold:    0.40,
	BluffFrequency:   0,
	RaisePotFraction: 0.75,
}

func testBot() *RuleBot {
	return New(noBluff, randutil.New(1), log.New(io.Discard))
}

func snapshot(hole []deck.Card, board []deck.Card, street game.Street, pot, currentBet, bet, chips int) game.TableSnapshot {
	snap := game.TableSnapshot{
		Street:     street,
		Board:      board,
		Pot:        pot,
		CurrentBet: currentBet,
		MinRaise:   20,
		BigBlind:   10,
		ToAct:      "p1#1",
		HoleCards:  hole,
		Chips:      chips,
		Bet:        bet,
	}
	p := &game.Player{ProfileID: "p1", EntryIndex: 1, Chips: chips, CurrentBet: bet, Status: game.StatusActive}
	ctx := &game.HandContext{CurrentBet: currentBet, MinRaise: 20, HasActed: map[string]bool{}}
	snap.Valid = game.ValidActions(p, ctx)
	return snap
}

func TestRuleBot_RaisesPremiumPreflop(t *testing.T) {
	snap := snapshot(cards("As", "Ah"), nil, game.Preflop, 15, 10, 0, 1000)
	action, raiseTo := testBot().Decide(snap)

	assert.Equal(t, game.Raise, action)
	assert.GreaterOrEqual(t, raiseTo, 30, "raise-to must be at least the minimum")
}

func TestRuleBot_FoldsTrashToABet(t *testing.T) {
	snap := snapshot(cards("7c", "2d"), nil, game.Preflop, 50, 40, 0, 1000)
	action, _ := testBot().Decide(snap)

	assert.Equal(t, game.Fold, action)
}

func TestRuleBot_ChecksTrashForFree(t *testing.T) {
	// Big blind with trash, nothing to call.
	snap := snapshot(cards("7c", "2d"), nil, game.Preflop, 20, 10, 10, 990)
	action, _ := testBot().Decide(snap)

	assert.Equal(t, game.Check, action)
}

func TestRuleBot_SpeculativeHandFoldsToLargeBet(t *testing.T) {
	// A middling hand facing half its stack is priced out.
	snap := snapshot(cards("9s", "8s"), nil, game.Preflop, 600, 500, 0, 1000)
	action, _ := testBot().Decide(snap)

	assert.Equal(t, game.Fold, action)
}

func TestRuleBot_RaisesStrongMadeHand(t *testing.T) {
	// Trips on the flop.
	snap := snapshot(cards("As", "Ah"),
		cards("Ad", "7c", "2s"), game.Flop, 60, 0, 0, 1000)
	action, _ := testBot().Decide(snap)

	assert.Equal(t, game.Raise, action)
}

func TestRuleBot_AirFoldsToABadPrice(t *testing.T) {
	snap := snapshot(cards("7c", "2d"),
		cards("As", "Kh", "9s"), game.Flop, 100, 100, 0, 1000)
	action, _ := testBot().Decide(snap)

	assert.Equal(t, game.Fold, action)
}

func TestRuleBot_AirCallsGettingHugeOdds(t *testing.T) {
	// 10 to call into a 500 pot lays 51:10.
	snap := snapshot(cards("7c", "2d"),
		cards("As", "Kh", "9s"), game.Flop, 500, 10, 0, 1000)
	action, _ := testBot().Decide(snap)

	assert.Equal(t, game.Call, action)
}

func TestRuleBot_JamsWhenCallIsForStack(t *testing.T) {
	snap := snapshot(cards("As", "Ah"),
		cards("Ad", "7c", "2s"), game.Flop, 2000, 1500, 0, 800)
	action, _ := testBot().Decide(snap)

	assert.Equal(t, game.AllIn, action)
}

func TestRuleBot_DeterministicUnderSameSeed(t *testing.T) {
	snap := snapshot(cards("Js", "Th"), nil, game.Preflop, 15, 10, 0, 1000)

	a1, r1 := New(DefaultProfile, randutil.New(7), log.New(io.Discard)).Decide(snap)
	a2, r2 := New(DefaultProfile, randutil.New(7), log.New(io.Discard)).Decide(snap)

	assert.Equal(t, a1, a2)
	assert.Equal(t, r1, r2)
}
