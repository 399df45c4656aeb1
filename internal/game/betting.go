package game

// Street represents a betting phase of the hand
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
	Showdown
)

func (s Street) String() string {
	return [...]string{"preflop", "flop", "turn", "river", "showdown"}[s]
}

// Action represents a player action
type Action int

const (
	Fold Action = iota
	Check
	Call
	Raise
	AllIn
)

func (a Action) String() string {
	return [...]string{"fold", "check", "call", "raise", "allin"}[a]
}

// HandContext carries the betting state for the current street. It is
// rebuilt at the start of every hand and reset between streets.
type HandContext struct {
	DealerIndex     int
	SmallBlindIndex int
	BigBlindIndex   int

	CurrentBet   int
	MinRaise     int
	HasActed     map[string]bool
	LastRaiserID string
	Street       Street
}

// BetActionResult reports the outcome of applying a single action. When
// Valid is false nothing was mutated and Reason explains the rejection.
type BetActionResult struct {
	Valid  bool
	Reason string

	PotDelta      int
	CurrentBet    int
	MinRaise      int
	LastRaiserID  string
	NewAggressor  bool
	ReopensAction bool
}

// ValidAction describes one legal action with its amount bounds. For Raise
// the amounts are raise-to totals.
type ValidAction struct {
	Action Action
	Min    int
	Max    int
}

// ProcessAction applies one action to the player and reports the resulting
// betting state. The caller owns the HandContext and is responsible for
// copying CurrentBet/MinRaise/LastRaiserID back and clearing the acted flags
// of other players when ReopensAction is set.
//
// Reopening rule: an all-in (or a raise clamped short by stack size) reopens
// the action only when it is at least one full minimum raise above the table
// bet. A shorter all-in still raises the amount to call but players who
// already acted may not raise again.
func ProcessAction(p *Player, action Action, raiseTo int, ctx *HandContext) BetActionResult {
	res := BetActionResult{
		Valid:        true,
		CurrentBet:   ctx.CurrentBet,
		MinRaise:     ctx.MinRaise,
		LastRaiserID: ctx.LastRaiserID,
	}

	switch action {
	case Fold:
		p.Status = StatusFolded

	case Check:
		if p.CurrentBet != ctx.CurrentBet {
			res.Valid = false
			res.Reason = "cannot check facing a bet"
			return res
		}

	case Call:
		toCall := min(ctx.CurrentBet-p.CurrentBet, p.Chips)
		if toCall < 0 {
			toCall = 0
		}
		commit(p, toCall)
		res.PotDelta = toCall

	case Raise:
		if ctx.HasActed[p.ID()] {
			res.Valid = false
			res.Reason = "cannot re-raise, action was not reopened"
			return res
		}
		target := max(raiseTo, ctx.CurrentBet+ctx.MinRaise)
		if target > p.Chips+p.CurrentBet {
			target = p.Chips + p.CurrentBet
		}
		if target <= ctx.CurrentBet {
			res.Valid = false
			res.Reason = "insufficient chips to raise"
			return res
		}
		delta := target - p.CurrentBet
		commit(p, delta)
		res.PotDelta = delta
		applyRaise(p, target, ctx, &res)

	case AllIn:
		delta := p.Chips
		if delta == 0 {
			res.Valid = false
			res.Reason = "no chips remaining"
			return res
		}
		if ctx.HasActed[p.ID()] && p.CurrentBet+p.Chips > ctx.CurrentBet {
			res.Valid = false
			res.Reason = "cannot re-raise, action was not reopened"
			return res
		}
		commit(p, delta)
		res.PotDelta = delta
		if p.CurrentBet > ctx.CurrentBet {
			applyRaise(p, p.CurrentBet, ctx, &res)
		}

	default:
		res.Valid = false
		res.Reason = "unknown action"
		return res
	}

	return res
}

// applyRaise updates the result for a bet that moved the table bet to target.
func applyRaise(p *Player, target int, ctx *HandContext, res *BetActionResult) {
	increment := target - ctx.CurrentBet
	res.CurrentBet = target
	if increment >= ctx.MinRaise {
		// A full raise: min-raise grows and everyone who already acted
		// must act again.
		res.MinRaise = max(ctx.MinRaise, increment)
		res.LastRaiserID = p.ID()
		res.NewAggressor = true
		res.ReopensAction = true
	}
}

// commit moves chips from the player's stack into their street bet.
func commit(p *Player, amount int) {
	p.Chips -= amount
	p.CurrentBet += amount
	p.TotalBet += amount
	if p.Chips == 0 {
		p.Status = StatusAllIn
	}
}

// IsRoundComplete reports whether the betting round is finished: every
// player still holding cards has acted, and every player who can still act
// has matched the table bet. All-in players are exempt from the bet-equality
// check because they cannot act further.
func IsRoundComplete(players []*Player, ctx *HandContext) bool {
	for _, p := range players {
		if !p.InHand() {
			continue
		}
		if !ctx.HasActed[p.ID()] {
			return false
		}
		if p.Status == StatusActive && p.CurrentBet != ctx.CurrentBet {
			return false
		}
	}
	return true
}

// ResetBettingState prepares the context for a new street: per-player street
// bets are zeroed, the min-raise returns to the big blind, and all-in players
// are pre-marked as having acted since they cannot act again.
func ResetBettingState(players []*Player, ctx *HandContext, bigBlind int) {
	ctx.CurrentBet = 0
	ctx.MinRaise = bigBlind
	ctx.LastRaiserID = ""
	ctx.HasActed = make(map[string]bool, len(players))
	for _, p := range players {
		p.CurrentBet = 0
		if p.Status == StatusAllIn {
			ctx.HasActed[p.ID()] = true
		}
	}
}

// PostBlind posts a forced bet capped at the player's stack and returns the
// amount actually posted. Posting an entire stack marks the player all-in
// and already-acted; blinds do not otherwise count as having acted, which
// preserves the big blind's option to raise.
func PostBlind(p *Player, amount int, ctx *HandContext) int {
	posted := min(amount, p.Chips)
	commit(p, posted)
	if p.Status == StatusAllIn {
		ctx.HasActed[p.ID()] = true
	}
	return posted
}

// PostAnte posts an ante capped at the player's stack and returns the amount
// posted. Antes count toward the hand total (and therefore side pots) but
// not toward the street bet.
func PostAnte(p *Player, amount int, ctx *HandContext) int {
	posted := min(amount, p.Chips)
	p.Chips -= posted
	p.TotalBet += posted
	if p.Chips == 0 {
		p.Status = StatusAllIn
		ctx.HasActed[p.ID()] = true
	}
	return posted
}

// ValidActions enumerates the legal actions for the player under the current
// betting state, with amount bounds for raises.
func ValidActions(p *Player, ctx *HandContext) []ValidAction {
	if !p.CanAct() {
		return nil
	}

	actions := []ValidAction{{Action: Fold}}
	toCall := ctx.CurrentBet - p.CurrentBet

	if toCall <= 0 {
		actions = append(actions, ValidAction{Action: Check})
	} else if toCall < p.Chips {
		actions = append(actions, ValidAction{Action: Call, Min: toCall, Max: toCall})
	}

	// An acted player facing action again means the bet rose without
	// reopening; they may call or fold but not raise.
	canRaise := !ctx.HasActed[p.ID()]
	minTo := ctx.CurrentBet + ctx.MinRaise
	maxTo := p.CurrentBet + p.Chips
	if canRaise && maxTo >= minTo {
		actions = append(actions, ValidAction{Action: Raise, Min: minTo, Max: maxTo})
	}
	if p.Chips > 0 && (canRaise || maxTo <= ctx.CurrentBet) {
		actions = append(actions, ValidAction{Action: AllIn, Min: p.Chips, Max: p.Chips})
	}
	return actions
}
