package game

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardroom/holdem/internal/deck"
	"github.com/cardroom/holdem/internal/randutil"
)

// HandEngine orchestrates hands end-to-end: dealing, blinds, street
// progression, showdown and payouts, and the cash-game seat churn between
// hands. All mutation happens under the engine's own lock; scheduled
// callbacks (the all-in board run-out) re-validate the hand number and
// street before touching anything, so a callback that outlives its hand is
// a no-op.
type HandEngine struct {
	mu sync.Mutex

	cfg      Config
	logger   *log.Logger
	clock    quartz.Clock
	rng      *rand.Rand
	eval     Evaluator
	recorder Recorder
	bus      EventBus
	economy  *TableEconomy

	players    []*Player
	dealerIdx  int
	handNumber int

	street      Street
	board       []deck.Card
	dk          *deck.Deck
	nextDeck    *deck.Deck
	pot         *PotLedger
	ctx         *HandContext
	actionOn    int
	actionCount int

	handOver   bool
	overReason string
	startTotal int

	eliminationOrder []string
	level            int
	handsAtLevel     int

	runOutPace   time.Duration
	runOutTimers []*quartz.Timer
}

// EngineOption configures a HandEngine during creation
type EngineOption func(*HandEngine)

// WithLogger sets the logger
func WithLogger(logger *log.Logger) EngineOption {
	return func(e *HandEngine) { e.logger = logger }
}

// WithClock sets the clock used for the board run-out cadence
func WithClock(clock quartz.Clock) EngineOption {
	return func(e *HandEngine) { e.clock = clock }
}

// WithRNG sets the RNG used for shuffling
func WithRNG(rng *rand.Rand) EngineOption {
	return func(e *HandEngine) { e.rng = rng }
}

// WithEvaluator sets the showdown evaluator
func WithEvaluator(eval Evaluator) EngineOption {
	return func(e *HandEngine) { e.eval = eval }
}

// WithRecorder sets the persistence sink
func WithRecorder(r Recorder) EngineOption {
	return func(e *HandEngine) { e.recorder = r }
}

// WithEventBus sets the event bus
func WithEventBus(bus EventBus) EngineOption {
	return func(e *HandEngine) { e.bus = bus }
}

// WithEconomy attaches the cash-game table economy
func WithEconomy(econ *TableEconomy) EngineOption {
	return func(e *HandEngine) { e.economy = econ }
}

// WithRunOutPace sets the delay between automatically dealt streets when all
// remaining players are all-in. Zero deals as fast as the clock allows.
func WithRunOutPace(pace time.Duration) EngineOption {
	return func(e *HandEngine) { e.runOutPace = pace }
}

// WithDeck stacks the deck for the next hand. Testing hook.
func WithDeck(d *deck.Deck) EngineOption {
	return func(e *HandEngine) { e.nextDeck = d }
}

// NewHandEngine creates an engine for the given seats. The players slice is
// owned by the engine from here on.
func NewHandEngine(cfg Config, players []*Player, opts ...EngineOption) *HandEngine {
	e := &HandEngine{
		cfg:        cfg,
		logger:     log.Default(),
		clock:      quartz.NewReal(),
		eval:       DefaultEvaluator{},
		recorder:   NullRecorder{},
		bus:        NewEventBus(),
		players:    players,
		pot:        NewPotLedger(),
		dealerIdx:  len(players) - 1, // first hand puts the button on seat 0
		actionOn:   -1,
		runOutPace: 600 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = randutil.NewSystem()
	}
	e.logger = e.logger.WithPrefix("engine")
	return e
}

// Events returns the engine's event bus
func (e *HandEngine) Events() EventBus { return e.bus }

// SetNextDeck stacks the deck for the next hand. Testing hook.
func (e *HandEngine) SetNextDeck(d *deck.Deck) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextDeck = d
}

// StartHand begins a new hand: advances the dealer, posts antes and blinds,
// deals hole cards and sets the first player to act. Structural failures
// (fewer than two funded seats) end the hand immediately with a reason
// instead of returning an error.
func (e *HandEngine) StartHand() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelRunOutLocked()
	e.handNumber++
	e.street = Preflop
	e.board = nil
	e.pot = NewPotLedger()
	e.actionOn = -1
	e.actionCount = 0
	e.handOver = false
	e.overReason = ""

	for _, p := range e.players {
		p.resetForHand()
	}

	active := 0
	for _, p := range e.players {
		if p.Status == StatusActive {
			active++
		}
	}
	if active < 2 {
		e.failHandLocked("not enough players to start a hand")
		return
	}

	dealer := e.seatFrom(e.dealerIdx+1, (*Player).CanAct)
	if dealer == -1 {
		e.failHandLocked("no eligible dealer seat")
		return
	}
	e.dealerIdx = dealer

	var sbIdx, bbIdx int
	if active == 2 {
		// Heads-up: the dealer posts the small blind and acts first preflop.
		sbIdx = e.dealerIdx
		bbIdx = e.seatFrom(sbIdx+1, (*Player).CanAct)
	} else {
		sbIdx = e.seatFrom(e.dealerIdx+1, (*Player).CanAct)
		bbIdx = e.seatFrom(sbIdx+1, (*Player).CanAct)
	}
	if sbIdx == -1 || bbIdx == -1 {
		e.failHandLocked("could not derive blind seats")
		return
	}

	sb, bb, ante := e.cfg.blinds(e.level)
	e.ctx = &HandContext{
		DealerIndex:     e.dealerIdx,
		SmallBlindIndex: sbIdx,
		BigBlindIndex:   bbIdx,
		MinRaise:        bb,
		HasActed:        make(map[string]bool, len(e.players)),
		Street:          Preflop,
	}

	if e.nextDeck != nil {
		e.dk = e.nextDeck
		e.nextDeck = nil
	} else {
		e.dk = deck.New(e.rng)
	}

	if ante > 0 {
		for _, p := range e.players {
			if p.CanAct() || p.Status == StatusAllIn {
				e.pot.Add(PostAnte(p, ante, e.ctx))
			}
		}
	}
	e.pot.Add(PostBlind(e.players[sbIdx], sb, e.ctx))
	e.pot.Add(PostBlind(e.players[bbIdx], bb, e.ctx))
	e.ctx.CurrentBet = bb

	for _, p := range e.players {
		if p.InHand() {
			p.HoleCards = e.dk.Deal(2)
		}
	}

	e.startTotal = e.totalChipsLocked() + e.pot.RunningTotal()

	e.logger.Debug("hand started",
		"hand", e.handNumber, "dealer", e.dealerIdx, "sb", sb, "bb", bb, "ante", ante)
	e.bus.Publish(HandStartEvent{
		HandNumber: e.handNumber,
		Players:    e.seatSnapshotsLocked(),
		SmallBlind: sb,
		BigBlind:   bb,
		Ante:       ante,
		timestamp:  time.Now(),
	})
	e.recorder.OnHandStart(e.handNumber, e.cfg.Mode, e.players)

	e.actionOn = e.seatFrom(bbIdx+1, (*Player).CanAct)
	if e.actionOn == -1 {
		// Blinds or antes put every live player all-in.
		e.scheduleRunOutLocked()
	}
}

// ApplyAction applies one action for the player currently due to act.
// Invalid actions leave all state untouched and are reported in the result.
// Round completion is re-evaluated after every action.
func (e *HandEngine) ApplyAction(action Action, raiseTo int) BetActionResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handOver || e.actionOn < 0 {
		return BetActionResult{Valid: false, Reason: "no action pending"}
	}
	p := e.players[e.actionOn]

	res := ProcessAction(p, action, raiseTo, e.ctx)
	if !res.Valid {
		e.logger.Warn("rejected action",
			"player", p.ID(), "action", action.String(), "reason", res.Reason)
		return res
	}

	e.ctx.CurrentBet = res.CurrentBet
	e.ctx.MinRaise = res.MinRaise
	e.ctx.LastRaiserID = res.LastRaiserID
	if res.ReopensAction {
		for _, q := range e.players {
			if q != p && q.Status == StatusActive {
				delete(e.ctx.HasActed, q.ID())
			}
		}
	}
	e.ctx.HasActed[p.ID()] = true
	e.pot.Add(res.PotDelta)
	e.actionCount++

	e.logger.Debug("action applied",
		"hand", e.handNumber, "player", p.ID(), "action", action.String(),
		"amount", res.PotDelta, "pot", e.pot.RunningTotal())
	e.bus.Publish(PlayerActionEvent{
		HandNumber: e.handNumber,
		PlayerID:   p.ID(),
		PlayerName: p.Name,
		Action:     action,
		Amount:     res.PotDelta,
		Street:     e.street,
		PotAfter:   e.pot.RunningTotal(),
		timestamp:  time.Now(),
	})
	e.recorder.OnAction(p.ID(), action, res.PotDelta, e.street, true, e.positionOfLocked(e.actionOn))

	if e.inHandCountLocked() <= 1 {
		e.endHandLocked()
		return res
	}
	if IsRoundComplete(e.players, e.ctx) {
		e.advanceStreetLocked()
		return res
	}
	e.actionOn = e.seatFrom(e.actionOn+1, (*Player).CanAct)
	if e.actionOn == -1 {
		// Every live player is all-in; the round-complete check above will
		// pass once flags settle, but advance defensively.
		e.advanceStreetLocked()
	}
	return res
}

// advanceStreetLocked moves to the next street, dealing community cards.
func (e *HandEngine) advanceStreetLocked() {
	_, bb, _ := e.cfg.blinds(e.level)
	ResetBettingState(e.players, e.ctx, bb)

	switch e.street {
	case Preflop:
		e.street = Flop
		e.board = append(e.board, e.dk.Deal(3)...)
	case Flop:
		e.street = Turn
		e.board = append(e.board, e.dk.DealOne())
	case Turn:
		e.street = River
		e.board = append(e.board, e.dk.DealOne())
	case River:
		e.endHandLocked()
		return
	default:
		return
	}
	e.ctx.Street = e.street

	e.logger.Debug("street dealt", "hand", e.handNumber, "street", e.street.String(), "board", e.board)
	e.bus.Publish(StreetChangeEvent{
		HandNumber: e.handNumber,
		Street:     e.street,
		Board:      append([]deck.Card(nil), e.board...),
		Pot:        e.pot.RunningTotal(),
		timestamp:  time.Now(),
	})

	e.actionOn = e.seatFrom(e.dealerIdx+1, (*Player).CanAct)
	if e.actionOn == -1 {
		if e.inHandCountLocked() >= 2 {
			e.scheduleRunOutLocked()
		} else {
			e.endHandLocked()
		}
	}
}

// scheduleRunOutLocked arms the next automatic deal step for a hand whose
// remaining players are all all-in. The callback carries the hand number
// and expected street and does nothing if either has moved on.
func (e *HandEngine) scheduleRunOutLocked() {
	hand := e.handNumber
	expect := e.street
	timer := e.clock.AfterFunc(e.runOutPace, func() {
		e.runOutStep(hand, expect)
	})
	e.runOutTimers = append(e.runOutTimers, timer)
}

func (e *HandEngine) runOutStep(hand int, expect Street) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handOver || e.handNumber != hand || e.street != expect {
		e.logger.Debug("stale run-out step dropped", "hand", hand, "street", expect.String())
		return
	}
	e.advanceStreetLocked()
}

func (e *HandEngine) cancelRunOutLocked() {
	for _, t := range e.runOutTimers {
		t.Stop()
	}
	e.runOutTimers = nil
}

// returnUncalledBetsLocked refunds the uncalled portion of the largest bet.
// Must run before the side-pot split so uncalled chips are never attributed
// to any pot.
func (e *HandEngine) returnUncalledBetsLocked() {
	hiIdx, hi, second := -1, 0, 0
	for i, p := range e.players {
		t := p.TotalBet
		if t > hi {
			second = hi
			hi = t
			hiIdx = i
		} else if t > second {
			second = t
		}
	}
	if hiIdx == -1 || hi == second {
		return
	}
	p := e.players[hiIdx]
	if !p.InHand() {
		return
	}
	delta := hi - second
	if err := e.pot.Refund(delta); err != nil {
		e.logger.Error("uncalled bet refund failed", "error", err)
		return
	}
	p.Chips += delta
	p.TotalBet -= delta
	if p.CurrentBet >= delta {
		p.CurrentBet -= delta
	} else {
		p.CurrentBet = 0
	}
	if p.Status == StatusAllIn && p.Chips > 0 {
		p.Status = StatusActive
	}
	e.logger.Debug("uncalled bet returned", "player", p.ID(), "amount", delta)
}

// endHandLocked settles the hand: refunds, side pots, showdown, payouts,
// eliminations, tournament level advancement, and cash-game seat churn.
func (e *HandEngine) endHandLocked() {
	if e.handOver {
		return
	}
	e.handOver = true
	e.actionOn = -1
	e.cancelRunOutLocked()

	var participants []*Player
	for _, p := range e.players {
		if p.InHand() {
			participants = append(participants, p)
		}
	}

	potTotal := e.pot.RunningTotal()
	var winners []Winner
	switch len(participants) {
	case 0:
		// Start-hand failure path: nothing was dealt, nothing to settle.
	case 1:
		w := participants[0]
		w.Chips += potTotal
		winners = []Winner{{PlayerID: w.ID(), Amount: potTotal}}
	default:
		e.returnUncalledBetsLocked()
		potTotal = e.pot.RunningTotal()
		portions, err := e.pot.CalculatePortions(e.players)
		if err != nil {
			// A pot that does not reconcile is an engine bug, not something
			// to paper over by crediting the main pot. Freeze the hand and
			// surface it loudly.
			e.logger.Error("pot accounting failure", "hand", e.handNumber, "error", err)
			e.overReason = err.Error()
			return
		}
		winners = e.settleShowdownLocked(portions)
	}

	if e.totalChipsLocked() != e.startTotal {
		e.logger.Error("chip conservation violated",
			"hand", e.handNumber, "expected", e.startTotal, "got", e.totalChipsLocked())
	}

	var eliminated []string
	for _, p := range e.players {
		if p.Chips == 0 && p.Status != StatusEliminated && p.Status != StatusSittingOut {
			p.Status = StatusEliminated
			e.eliminationOrder = append(e.eliminationOrder, p.ID())
			eliminated = append(eliminated, p.ID())
			e.logger.Info("player eliminated", "player", p.ID(), "hand", e.handNumber)
		}
	}

	e.bus.Publish(HandEndEvent{
		HandNumber: e.handNumber,
		Winners:    winners,
		Pot:        potTotal,
		Board:      append([]deck.Card(nil), e.board...),
		Eliminated: eliminated,
		timestamp:  time.Now(),
	})
	e.recorder.OnHandEnd(potTotal, e.board, winners)

	if e.cfg.Mode == Tournament {
		e.handsAtLevel++
		if e.handsAtLevel >= e.cfg.Tournament.HandsPerLevel &&
			e.level < len(e.cfg.Tournament.BlindSchedule)-1 {
			e.level++
			e.handsAtLevel = 0
			sb, bb, ante := e.cfg.blinds(e.level)
			e.logger.Info("blind level up", "level", e.level+1, "sb", sb, "bb", bb, "ante", ante)
		}
	}

	if e.cfg.Mode == CashGame && e.economy != nil {
		var report ChurnReport
		e.players, report = e.economy.Churn(e.players)
		if len(report.Departed) > 0 || len(report.Entered) > 0 {
			if n := len(e.players); n > 0 {
				e.dealerIdx %= n
			} else {
				e.dealerIdx = 0
			}
			e.bus.Publish(TableChurnEvent{
				Departed:  report.Departed,
				Entered:   report.Entered,
				Pool:      e.economy.Pool(),
				timestamp: time.Now(),
			})
		}
	}
}

// settleShowdownLocked ranks the remaining hands and splits each pot portion
// among its best eligible holders. Ties split evenly with any odd chips
// going to the first winner in seat order.
func (e *HandEngine) settleShowdownLocked(portions []PotPortion) []Winner {
	byID := make(map[string]*Player, len(e.players))
	ranks := make(map[string]HandRank)
	for _, p := range e.players {
		byID[p.ID()] = p
		if p.InHand() {
			ranks[p.ID()] = e.eval.Rank(p.HoleCards, e.board)
		}
	}

	var winners []Winner
	for i, portion := range portions {
		var best []string
		var bestRank HandRank
		for _, id := range portion.Eligible {
			r, ok := ranks[id]
			if !ok {
				continue
			}
			switch {
			case len(best) == 0 || r > bestRank:
				best = []string{id}
				bestRank = r
			case r == bestRank:
				best = append(best, id)
			}
		}
		if len(best) == 0 {
			continue
		}
		share := portion.Amount / len(best)
		remainder := portion.Amount % len(best)
		for j, id := range best {
			amount := share
			if j == 0 {
				amount += remainder
			}
			byID[id].Chips += amount
			winners = append(winners, Winner{
				PlayerID: id,
				Amount:   amount,
				Rank:     bestRank,
				Portion:  i,
			})
		}
	}
	return winners
}

func (e *HandEngine) failHandLocked(reason string) {
	e.handOver = true
	e.overReason = reason
	e.actionOn = -1
	e.logger.Warn("hand could not start", "reason", reason)
}

// seatFrom returns the first seat index at or after from (wrapping) whose
// player satisfies ok, or -1.
func (e *HandEngine) seatFrom(from int, ok func(*Player) bool) int {
	n := len(e.players)
	if n == 0 {
		return -1
	}
	from = ((from % n) + n) % n
	for i := 0; i < n; i++ {
		idx := (from + i) % n
		if ok(e.players[idx]) {
			return idx
		}
	}
	return -1
}

func (e *HandEngine) inHandCountLocked() int {
	n := 0
	for _, p := range e.players {
		if p.InHand() {
			n++
		}
	}
	return n
}

func (e *HandEngine) totalChipsLocked() int {
	total := 0
	for _, p := range e.players {
		total += p.Chips
	}
	return total
}

// positionOfLocked returns the seat's distance from the dealer button
func (e *HandEngine) positionOfLocked(idx int) int {
	n := len(e.players)
	if n == 0 {
		return 0
	}
	return ((idx - e.dealerIdx) + n) % n
}

func (e *HandEngine) seatSnapshotsLocked() []SeatSnapshot {
	snaps := make([]SeatSnapshot, len(e.players))
	for i, p := range e.players {
		snaps[i] = SeatSnapshot{
			ID:     p.ID(),
			Name:   p.Name,
			Chips:  p.Chips,
			Bet:    p.CurrentBet,
			Status: p.Status,
		}
	}
	return snaps
}

// Read-only accessors. Values are copied under the engine lock.

// HandNumber returns the current hand counter
func (e *HandEngine) HandNumber() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handNumber
}

// CurrentStreet returns the street in play
func (e *HandEngine) CurrentStreet() Street {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.street
}

// Board returns a copy of the community cards
func (e *HandEngine) Board() []deck.Card {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]deck.Card(nil), e.board...)
}

// IsHandOver reports whether the current hand has finished
func (e *HandEngine) IsHandOver() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.handOver
}

// OverReason returns the failure message when a hand could not run
func (e *HandEngine) OverReason() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.overReason
}

// PotTotal returns the chips currently in the middle
func (e *HandEngine) PotTotal() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pot.RunningTotal()
}

// ActionCount returns the number of actions applied this hand, used by the
// state machine to detect stalled progress.
func (e *HandEngine) ActionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.actionCount
}

// CurrentPlayerID returns the id of the player due to act, or ""
func (e *HandEngine) CurrentPlayerID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.actionOn < 0 {
		return ""
	}
	return e.players[e.actionOn].ID()
}

// IsHumanTurn reports whether a human seat is due to act
func (e *HandEngine) IsHumanTurn() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.actionOn >= 0 && e.players[e.actionOn].IsHuman
}

// FundedCount returns the number of seats holding chips
func (e *HandEngine) FundedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, p := range e.players {
		if p.Chips > 0 && p.Status != StatusSittingOut {
			n++
		}
	}
	return n
}

// EliminationOrder returns player ids in the order they busted
func (e *HandEngine) EliminationOrder() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.eliminationOrder...)
}

// Players returns the seat list. Callers must treat it as read-only.
func (e *HandEngine) Players() []*Player {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Player(nil), e.players...)
}

// Snapshot builds the read-only view for the player currently due to act.
func (e *HandEngine) Snapshot() TableSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := TableSnapshot{
		HandNumber: e.handNumber,
		Street:     e.street,
		Board:      append([]deck.Card(nil), e.board...),
		Pot:        e.pot.RunningTotal(),
		Players:    e.seatSnapshotsLocked(),
	}
	if e.ctx != nil {
		snap.CurrentBet = e.ctx.CurrentBet
		snap.MinRaise = e.ctx.MinRaise
	}
	_, bb, _ := e.cfg.blinds(e.level)
	snap.BigBlind = bb
	if e.actionOn >= 0 {
		p := e.players[e.actionOn]
		snap.ToAct = p.ID()
		snap.HoleCards = append([]deck.Card(nil), p.HoleCards...)
		snap.Chips = p.Chips
		snap.Bet = p.CurrentBet
		snap.Valid = ValidActions(p, e.ctx)
	}
	return snap
}
