// Package evaluator ranks poker hands. It implements the showdown ranking
// collaborator used by the game engine: a total ordering over the best
// five-card hand makeable from a player's hole cards plus the board.
package evaluator

import (
	"sort"

	"github.com/cardroom/holdem/internal/deck"
)

// Category enumerates hand categories ordered from weakest to strongest.
type Category uint8

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

// String returns the display name of the category
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// HandRank is a comparable hand strength. Higher values are stronger and
// equal values are exact ties. The category lives in the top bits with the
// five tiebreak ranks packed below it, so integer comparison implements the
// full poker ordering.
type HandRank uint32

// Category returns the hand category encoded in the rank
func (r HandRank) Category() Category {
	return Category(r >> 20)
}

// String returns the category name for display
func (r HandRank) String() string {
	return r.Category().String()
}

// Compare returns a positive value if a beats b, negative if b beats a,
// and zero on an exact tie.
func Compare(a, b HandRank) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

// Evaluate returns the rank of the best five-card hand makeable from the
// given cards. Accepts 5 to 7 cards.
func Evaluate(cards []deck.Card) HandRank {
	n := len(cards)
	if n < 5 {
		return 0
	}
	if n == 5 {
		return rank5(cards)
	}

	// Best of all five-card combinations.
	var best HandRank
	var hand [5]deck.Card
	for i := 0; i < n-4; i++ {
		for j := i + 1; j < n-3; j++ {
			for k := j + 1; k < n-2; k++ {
				for l := k + 1; l < n-1; l++ {
					for m := l + 1; m < n; m++ {
						hand[0], hand[1], hand[2], hand[3], hand[4] =
							cards[i], cards[j], cards[k], cards[l], cards[m]
						if r := rank5(hand[:]); r > best {
							best = r
						}
					}
				}
			}
		}
	}
	return best
}

// rank5 ranks exactly five cards.
func rank5(cards []deck.Card) HandRank {
	var counts [15]int
	flush := true
	for i, c := range cards {
		counts[c.Rank]++
		if i > 0 && c.Suit != cards[0].Suit {
			flush = false
		}
	}

	// Group ranks by multiplicity, strongest group first.
	type group struct {
		rank  deck.Rank
		count int
	}
	groups := make([]group, 0, 5)
	for r := deck.Ace; r >= deck.Two; r-- {
		if counts[r] > 0 {
			groups = append(groups, group{rank: r, count: counts[r]})
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].count > groups[j].count
	})

	straightHigh := deck.Rank(0)
	if len(groups) == 5 {
		hi, lo := groups[0].rank, groups[4].rank
		if hi-lo == 4 {
			straightHigh = hi
		} else if hi == deck.Ace && groups[1].rank == deck.Five {
			// Wheel: A-2-3-4-5 plays as a five-high straight.
			straightHigh = deck.Five
		}
	}

	var cat Category
	switch {
	case straightHigh != 0 && flush:
		cat = StraightFlush
	case groups[0].count == 4:
		cat = FourOfAKind
	case groups[0].count == 3 && groups[1].count == 2:
		cat = FullHouse
	case flush:
		cat = Flush
	case straightHigh != 0:
		cat = Straight
	case groups[0].count == 3:
		cat = ThreeOfAKind
	case groups[0].count == 2 && groups[1].count == 2:
		cat = TwoPair
	case groups[0].count == 2:
		cat = Pair
	default:
		cat = HighCard
	}

	rank := HandRank(cat) << 20
	if cat == Straight || cat == StraightFlush {
		return rank | HandRank(straightHigh)<<16
	}

	shift := uint(16)
	for _, g := range groups {
		rank |= HandRank(g.rank) << shift
		if shift == 0 {
			break
		}
		shift -= 4
	}
	return rank
}
