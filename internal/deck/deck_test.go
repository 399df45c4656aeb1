package deck

import (
	"testing"

	"github.com/cardroom/holdem/internal/randutil"
)

func TestNew_DealsAllDistinctCards(t *testing.T) {
	d := New(randutil.New(42))

	seen := make(map[Card]bool, 52)
	for i := 0; i < 52; i++ {
		c := d.DealOne()
		if seen[c] {
			t.Fatalf("duplicate card dealt: %s", c)
		}
		seen[c] = true
	}
	if d.Remaining() != 0 {
		t.Errorf("expected empty deck, %d remaining", d.Remaining())
	}
}

func TestNew_SameSeedSameOrder(t *testing.T) {
	a := New(randutil.New(7))
	b := New(randutil.New(7))

	for i := 0; i < 52; i++ {
		if ca, cb := a.DealOne(), b.DealOne(); ca != cb {
			t.Fatalf("decks diverged at card %d: %s vs %s", i, ca, cb)
		}
	}
}

func TestNew_DifferentSeedsDiffer(t *testing.T) {
	a := New(randutil.New(1))
	b := New(randutil.New(2))

	same := true
	for i := 0; i < 52; i++ {
		if a.DealOne() != b.DealOne() {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical shuffles")
	}
}

func TestStacked_DealsGivenCardsFirst(t *testing.T) {
	want := []Card{
		NewCard(Ace, Spades),
		NewCard(King, Hearts),
		NewCard(Two, Clubs),
	}
	d := Stacked(want...)

	got := d.Deal(3)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("card %d: got %s, want %s", i, got[i], want[i])
		}
	}

	// The rest of the pack follows without repeating the stacked cards.
	seen := map[Card]bool{want[0]: true, want[1]: true, want[2]: true}
	for d.Remaining() > 0 {
		c := d.DealOne()
		if seen[c] {
			t.Fatalf("duplicate card %s after stacking", c)
		}
		seen[c] = true
	}
	if len(seen) != 52 {
		t.Errorf("expected 52 distinct cards, got %d", len(seen))
	}
}

func TestDeal_RefusesOverdraw(t *testing.T) {
	d := New(randutil.New(3))
	d.Deal(50)
	if cards := d.Deal(3); cards != nil {
		t.Errorf("expected nil when overdrawing, got %v", cards)
	}
	if d.Remaining() != 2 {
		t.Errorf("failed overdraw should not consume cards, %d remaining", d.Remaining())
	}
}

func TestHandPercentile(t *testing.T) {
	aces := HandPercentile([]Card{NewCard(Ace, Spades), NewCard(Ace, Hearts)})
	trash := HandPercentile([]Card{NewCard(Seven, Clubs), NewCard(Two, Diamonds)})

	if aces <= trash {
		t.Errorf("pocket aces (%f) should outrank seven-deuce (%f)", aces, trash)
	}
	if aces < 0.99 {
		t.Errorf("pocket aces should be near the top, got %f", aces)
	}

	suited := HandPercentile([]Card{NewCard(Ace, Spades), NewCard(King, Spades)})
	offsuit := HandPercentile([]Card{NewCard(Ace, Spades), NewCard(King, Hearts)})
	if suited <= offsuit {
		t.Errorf("suited hands outrank their offsuit version: %f vs %f", suited, offsuit)
	}
}
