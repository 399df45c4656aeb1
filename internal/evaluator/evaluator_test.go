package evaluator

import (
	"testing"

	"github.com/cardroom/holdem/internal/deck"
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

func hand(specs ...string) []deck.Card {
	cards := make([]deck.Card, len(specs))
	for i, s := range specs {
		cards[i] = card(s)
	}
	return cards
}

func TestEvaluate_Categories(t *testing.T) {
	tests := []struct {
		name     string
		cards    []string
		expected Category
	}{
		{"high card", []string{"As", "Kd", "9h", "5c", "2s"}, HighCard},
		{"pair", []string{"As", "Ad", "9h", "5c", "2s"}, Pair},
		{"two pair", []string{"As", "Ad", "9h", "9c", "2s"}, TwoPair},
		{"three of a kind", []string{"As", "Ad", "Ah", "5c", "2s"}, ThreeOfAKind},
		{"straight", []string{"9s", "8d", "7h", "6c", "5s"}, Straight},
		{"wheel straight", []string{"As", "2d", "3h", "4c", "5s"}, Straight},
		{"broadway straight", []string{"As", "Kd", "Qh", "Jc", "Ts"}, Straight},
		{"flush", []string{"As", "Ks", "9s", "5s", "2s"}, Flush},
		{"full house", []string{"As", "Ad", "Ah", "5c", "5s"}, FullHouse},
		{"four of a kind", []string{"As", "Ad", "Ah", "Ac", "2s"}, FourOfAKind},
		{"straight flush", []string{"9s", "8s", "7s", "6s", "5s"}, StraightFlush},
		{"steel wheel", []string{"As", "2s", "3s", "4s", "5s"}, StraightFlush},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(hand(tt.cards...)).Category()
			if got != tt.expected {
				t.Errorf("Evaluate(%v) = %s, want %s", tt.cards, got, tt.expected)
			}
		})
	}
}

func TestEvaluate_Orderings(t *testing.T) {
	tests := []struct {
		name     string
		stronger []string
		weaker   []string
	}{
		{
			"higher pair wins",
			[]string{"As", "Ad", "3h", "4c", "5s"},
			[]string{"Ks", "Kd", "Ah", "Qc", "Js"},
		},
		{
			"kicker breaks pair tie",
			[]string{"As", "Ad", "Kh", "4c", "5s"},
			[]string{"Ah", "Ac", "Qh", "Jc", "5d"},
		},
		{
			"two pair ranked by top pair",
			[]string{"As", "Ad", "2h", "2c", "5s"},
			[]string{"Ks", "Kd", "Qh", "Qc", "As"},
		},
		{
			"wheel is the lowest straight",
			[]string{"6s", "5d", "4h", "3c", "2s"},
			[]string{"As", "2d", "3h", "4c", "5s"},
		},
		{
			"flush beats straight",
			[]string{"As", "Ks", "9s", "5s", "2s"},
			[]string{"As", "Kd", "Qh", "Jc", "Ts"},
		},
		{
			"full house ranked by trips",
			[]string{"3s", "3d", "3h", "2c", "2s"},
			[]string{"2h", "2d", "2c", "As", "Ad"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Evaluate(hand(tt.stronger...))
			b := Evaluate(hand(tt.weaker...))
			if Compare(a, b) <= 0 {
				t.Errorf("expected %v (%s) to beat %v (%s)", tt.stronger, a, tt.weaker, b)
			}
		})
	}
}

func TestEvaluate_ExactTies(t *testing.T) {
	a := Evaluate(hand("As", "Kd", "Qh", "Jc", "9s"))
	b := Evaluate(hand("Ah", "Ks", "Qd", "Jh", "9c"))
	if Compare(a, b) != 0 {
		t.Errorf("suit-only differences must tie, got %d", Compare(a, b))
	}
}

func TestEvaluate_BestOfSeven(t *testing.T) {
	// Hole cards plus board: the pair of aces on board with the ace in hand
	// makes trips, not just the board pair.
	r := Evaluate(hand("Ah", "7c", "As", "Ad", "9h", "5c", "2s"))
	if r.Category() != ThreeOfAKind {
		t.Errorf("expected three of a kind from seven cards, got %s", r.Category())
	}

	// A seven-card flush uses the best five.
	flush := Evaluate(hand("As", "Ks", "9s", "5s", "2s", "3s", "7s"))
	lesser := Evaluate(hand("As", "Ks", "9s", "5s", "3s"))
	if Compare(flush, lesser) <= 0 {
		t.Error("seven-card flush should pick the five highest cards")
	}
}

func TestEvaluate_TooFewCards(t *testing.T) {
	if r := Evaluate(hand("As", "Kd")); r != 0 {
		t.Errorf("fewer than five cards should rank zero, got %d", r)
	}
}
