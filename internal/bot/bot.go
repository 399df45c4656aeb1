// Package bot provides the rule-based decision source that drives AI seats.
package bot

import (
	"math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/cardroom/holdem/internal/deck"
	"github.com/cardroom/holdem/internal/evaluator"
	"github.com/cardroom/holdem/internal/game"
	"github.com/cardroom/holdem/internal/randutil"
)

// Profile tunes a RuleBot's thresholds. Values are percentiles in [0, 1]
// for preflop play and pot fractions for sizing.
type Profile struct {
	// OpenThreshold is the minimum starting-hand percentile to raise an
	// unopened pot.
	OpenThreshold float64
	// CallThreshold is the minimum percentile to continue against a raise.
	CallThreshold float64
	// BluffFrequency is how often a weak hand raises anyway.
	BluffFrequency float64
	// RaisePotFraction sizes raises relative to the pot.
	RaisePotFraction float64
}

// DefaultProfile plays a straightforward tight-aggressive game
var DefaultProfile = Profile{
	OpenThreshold:    0.60,
	CallThreshold:    0.40,
	BluffFrequency:   0.08,
	RaisePotFraction: 0.75,
}

// LooseProfile plays more hands and bluffs more
var LooseProfile = Profile{
	OpenThreshold:    0.45,
	CallThreshold:    0.25,
	BluffFrequency:   0.15,
	RaisePotFraction: 0.85,
}

// RuleBot makes decisions from the acting player's table snapshot. Preflop
// it plays from starting-hand percentiles; postflop it ranks its made hand
// and weighs the price being offered. All randomness comes from the
// injected RNG so simulations are reproducible.
type RuleBot struct {
	profile Profile
	rng     *rand.Rand
	logger  *log.Logger
}

// New creates a bot with the given profile and RNG. A nil rng gets a
// system-seeded one.
func New(profile Profile, rng *rand.Rand, logger *log.Logger) *RuleBot {
	if rng == nil {
		rng = randutil.NewSystem()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RuleBot{
		profile: profile,
		rng:     rng,
		logger:  logger.WithPrefix("bot"),
	}
}

var _ game.Decision = (*RuleBot)(nil)

// Decide returns the action to take for the snapshot's acting seat
func (b *RuleBot) Decide(snap game.TableSnapshot) (game.Action, int) {
	if len(snap.Valid) == 0 {
		return game.Fold, 0
	}
	if snap.Street == game.Preflop {
		return b.preflop(snap)
	}
	return b.postflop(snap)
}

func (b *RuleBot) preflop(snap game.TableSnapshot) (game.Action, int) {
	strength := deck.HandPercentile(snap.HoleCards)
	toCall := snap.CurrentBet - snap.Bet

	// An occasional bluff treats trash like a premium hand for this street.
	if strength < b.profile.OpenThreshold && b.rng.Float64() < b.profile.BluffFrequency {
		strength = b.profile.OpenThreshold
	}

	switch {
	case strength >= b.profile.OpenThreshold:
		if raiseTo, ok := b.raiseAmount(snap); ok {
			return game.Raise, raiseTo
		}
		return b.callOrCheck(snap, toCall)
	case strength >= b.profile.CallThreshold:
		// Continue only at a reasonable price: more than a third of the
		// stack preflop is too much for a speculative hand.
		if toCall > 0 && toCall*3 > snap.Chips {
			return b.checkOrFold(snap)
		}
		return b.callOrCheck(snap, toCall)
	default:
		return b.checkOrFold(snap)
	}
}

func (b *RuleBot) postflop(snap game.TableSnapshot) (game.Action, int) {
	rank := evaluator.Evaluate(append(append([]deck.Card(nil), snap.HoleCards...), snap.Board...))
	category := rank.Category()
	toCall := snap.CurrentBet - snap.Bet

	switch {
	case category >= evaluator.ThreeOfAKind:
		// Strong made hand: raise, jamming short stacks.
		if raiseTo, ok := b.raiseAmount(snap); ok {
			return game.Raise, raiseTo
		}
		if b.has(snap, game.AllIn) && toCall >= snap.Chips {
			return game.AllIn, 0
		}
		return b.callOrCheck(snap, toCall)
	case category >= evaluator.Pair:
		if toCall == 0 {
			// Bet a pair some of the time, otherwise take the free card.
			if b.rng.Float64() < 0.5 {
				if raiseTo, ok := b.raiseAmount(snap); ok {
					return game.Raise, raiseTo
				}
			}
			return game.Check, 0
		}
		if b.priceIsRight(snap, toCall, 3.0) {
			return b.callOrCheck(snap, toCall)
		}
		return b.checkOrFold(snap)
	default:
		if toCall == 0 {
			if b.rng.Float64() < b.profile.BluffFrequency {
				if raiseTo, ok := b.raiseAmount(snap); ok {
					return game.Raise, raiseTo
				}
			}
			return game.Check, 0
		}
		// Air only continues getting a very good price.
		if b.priceIsRight(snap, toCall, 6.0) {
			return b.callOrCheck(snap, toCall)
		}
		return b.checkOrFold(snap)
	}
}

// priceIsRight reports whether the pot lays at least the given odds
func (b *RuleBot) priceIsRight(snap game.TableSnapshot, toCall int, minOdds float64) bool {
	if toCall <= 0 {
		return true
	}
	return float64(snap.Pot+toCall)/float64(toCall) >= minOdds
}

// raiseAmount sizes a raise from the pot and reports whether raising is
// currently a valid action.
func (b *RuleBot) raiseAmount(snap game.TableSnapshot) (int, bool) {
	for _, va := range snap.Valid {
		if va.Action != game.Raise {
			continue
		}
		target := snap.CurrentBet + int(float64(snap.Pot)*b.profile.RaisePotFraction)
		if target < va.Min {
			target = va.Min
		}
		if target > va.Max {
			target = va.Max
		}
		return target, true
	}
	return 0, false
}

func (b *RuleBot) callOrCheck(snap game.TableSnapshot, toCall int) (game.Action, int) {
	if toCall <= 0 {
		return game.Check, 0
	}
	if toCall >= snap.Chips && b.has(snap, game.AllIn) {
		return game.AllIn, 0
	}
	if b.has(snap, game.Call) {
		return game.Call, 0
	}
	return game.Check, 0
}

func (b *RuleBot) checkOrFold(snap game.TableSnapshot) (game.Action, int) {
	if b.has(snap, game.Check) {
		return game.Check, 0
	}
	return game.Fold, 0
}

func (b *RuleBot) has(snap game.TableSnapshot, action game.Action) bool {
	for _, va := range snap.Valid {
		if va.Action == action {
			return true
		}
	}
	return false
}
