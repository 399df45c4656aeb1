package game

import (
	"fmt"
	"slices"
	"sort"
)

// PotPortion is one slice of the pot with the set of players who may win it.
// Portions are ordered main-pot-first; each later portion's eligible set is a
// subset of the one before it.
type PotPortion struct {
	Amount   int
	Eligible []string // player IDs, in seat order
}

// PotLedger accumulates chips during a hand and computes the side-pot split
// at showdown. The running total is the single source of truth for how many
// chips are in the middle.
type PotLedger struct {
	running int
}

// NewPotLedger creates an empty ledger
func NewPotLedger() *PotLedger {
	return &PotLedger{}
}

// Add credits chips to the pot
func (l *PotLedger) Add(amount int) {
	l.running += amount
}

// Refund removes chips from the pot, used to return an uncalled bet to its
// owner before the side-pot split.
func (l *PotLedger) Refund(amount int) error {
	if amount > l.running {
		return fmt.Errorf("refund %d exceeds pot %d", amount, l.running)
	}
	l.running -= amount
	return nil
}

// RunningTotal returns the chips currently in the pot
func (l *PotLedger) RunningTotal() int {
	return l.running
}

// CalculatePortions splits the pot into main and side portions based on each
// player's total contribution this hand. Folded players' chips stay in the
// pot but folded players are never eligible to win. The portions always sum
// to the running total; any derivation mismatch is returned as an error
// rather than silently reconciled.
func (l *PotLedger) CalculatePortions(players []*Player) ([]PotPortion, error) {
	type contributor struct {
		id     string
		total  int
		inHand bool
	}
	contributors := make([]contributor, 0, len(players))
	for _, p := range players {
		if p.TotalBet > 0 {
			contributors = append(contributors, contributor{
				id:     p.ID(),
				total:  p.TotalBet,
				inHand: p.InHand(),
			})
		}
	}
	if len(contributors) == 0 {
		if l.running != 0 {
			return nil, fmt.Errorf("pot holds %d chips with no contributors", l.running)
		}
		return nil, nil
	}

	// Distinct contribution levels, ascending. Each level bounds one layer
	// of the pot.
	seen := make(map[int]bool)
	levels := make([]int, 0, len(contributors))
	for _, c := range contributors {
		if !seen[c.total] {
			seen[c.total] = true
			levels = append(levels, c.total)
		}
	}
	sort.Ints(levels)

	var portions []PotPortion
	prev := 0
	for _, level := range levels {
		amount := 0
		var eligible []string
		for _, c := range contributors {
			amount += min(c.total, level) - min(c.total, prev)
			if c.inHand && c.total >= level {
				eligible = append(eligible, c.id)
			}
		}
		prev = level

		if amount == 0 {
			continue
		}
		if len(eligible) == 0 {
			// Nobody live at this level; fold the chips into the previous
			// portion rather than letting them vanish.
			if len(portions) == 0 {
				return nil, fmt.Errorf("pot has %d chips with no eligible winner", amount)
			}
			portions[len(portions)-1].Amount += amount
			continue
		}

		if n := len(portions); n > 0 && slices.Equal(portions[n-1].Eligible, eligible) {
			portions[n-1].Amount += amount
		} else {
			portions = append(portions, PotPortion{Amount: amount, Eligible: eligible})
		}
	}

	total := 0
	for _, portion := range portions {
		total += portion.Amount
	}
	if total != l.running {
		return nil, fmt.Errorf("pot portions sum to %d, ledger holds %d", total, l.running)
	}
	return portions, nil
}
