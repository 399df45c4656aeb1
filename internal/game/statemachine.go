package game

import (
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// State is a phase of the table lifecycle
type State int

const (
	StateIdle State = iota
	StateDealing
	StateWaitingForAction
	StateBetting
	StateShowdown
	StateGameOver
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDealing:
		return "dealing"
	case StateWaitingForAction:
		return "waitingForAction"
	case StateBetting:
		return "betting"
	case StateShowdown:
		return "showdown"
	case StateGameOver:
		return "gameOver"
	default:
		return "unknown"
	}
}

// Event drives state machine transitions
type Event int

const (
	EventStart Event = iota
	EventDealComplete
	EventPlayerActed
	EventHandOver
	EventNextHand
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventDealComplete:
		return "dealComplete"
	case EventPlayerActed:
		return "playerActed"
	case EventHandOver:
		return "handOver"
	case EventNextHand:
		return "nextHand"
	default:
		return "unknown"
	}
}

// Result is one player's final standing when the session ends
type Result struct {
	PlayerID string
	Name     string
	Place    int
	Chips    int
	Payout   int
}

// StateMachine sequences hands on top of a HandEngine: the dealing pause,
// whose turn it is (human input vs scheduled AI decisions), showdown and the
// pause before the next hand. Every scheduled callback carries the epoch of
// the hand that armed it and is dropped if the table has moved on, so a
// timer firing late can never act on the wrong hand.
//
// AI decisions run off-lock against a snapshot and are revalidated before
// being applied. A watchdog re-checks a betting state that has made no
// progress and corrects the state if it disagrees with the engine, with the
// recheck interval doubling on each idle pass.
type StateMachine struct {
	mu sync.Mutex

	engine  *HandEngine
	ai      Decision
	perSeat map[string]Decision
	logger  *log.Logger
	clock   quartz.Clock

	state State
	epoch int

	handLimit   int
	handsPlayed int

	dealDelay     time.Duration
	actDelay      time.Duration
	nextHandDelay time.Duration

	timers []*quartz.Timer

	done     chan struct{}
	doneOnce sync.Once
	results  []Result
	reason   string
}

// MachineOption configures a StateMachine during creation
type MachineOption func(*StateMachine)

// WithMachineLogger sets the logger
func WithMachineLogger(logger *log.Logger) MachineOption {
	return func(m *StateMachine) { m.logger = logger }
}

// WithMachineClock sets the clock used for all pacing timers
func WithMachineClock(clock quartz.Clock) MachineOption {
	return func(m *StateMachine) { m.clock = clock }
}

// WithHandLimit stops the session after n hands. Zero means no limit.
func WithHandLimit(n int) MachineOption {
	return func(m *StateMachine) { m.handLimit = n }
}

// WithDealDelay sets the pause between starting a hand and opening action
func WithDealDelay(d time.Duration) MachineOption {
	return func(m *StateMachine) { m.dealDelay = d }
}

// WithActDelay sets the pause before each AI decision
func WithActDelay(d time.Duration) MachineOption {
	return func(m *StateMachine) { m.actDelay = d }
}

// WithNextHandDelay sets the pause between hands
func WithNextHandDelay(d time.Duration) MachineOption {
	return func(m *StateMachine) { m.nextHandDelay = d }
}

// WithDecisionFor overrides the decision source for one seat
func WithDecisionFor(playerID string, d Decision) MachineOption {
	return func(m *StateMachine) { m.perSeat[playerID] = d }
}

// NewStateMachine wires a machine to an engine. The ai decision source is
// used for every non-human seat unless overridden per seat.
func NewStateMachine(engine *HandEngine, ai Decision, opts ...MachineOption) *StateMachine {
	m := &StateMachine{
		engine:        engine,
		ai:            ai,
		perSeat:       make(map[string]Decision),
		logger:        log.Default(),
		clock:         quartz.NewReal(),
		state:         StateIdle,
		dealDelay:     time.Second,
		actDelay:      800 * time.Millisecond,
		nextHandDelay: 2 * time.Second,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithPrefix("fsm")
	return m
}

// Start begins the first hand
func (m *StateMachine) Start() {
	m.Send(EventStart)
}

// Done is closed when the session ends
func (m *StateMachine) Done() <-chan struct{} {
	return m.done
}

// Results returns the final standings, valid once Done is closed
func (m *StateMachine) Results() []Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Result(nil), m.results...)
}

// EndReason returns why the session ended, valid once Done is closed
func (m *StateMachine) EndReason() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

// State returns the current phase
func (m *StateMachine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Send delivers one event to the machine. Unexpected events are not fatal:
// the machine logs them and resynchronizes against the engine's actual
// state, which covers races between late timers and direct input.
func (m *StateMachine) Send(event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handleLocked(event)
}

func (m *StateMachine) handleLocked(event Event) {
	if m.state == StateGameOver {
		return
	}
	switch {
	case m.state == StateIdle && event == EventStart:
		m.beginHandLocked()
	case m.state == StateDealing && event == EventDealComplete:
		m.routeLocked()
	case (m.state == StateWaitingForAction || m.state == StateBetting) && event == EventPlayerActed:
		m.routeLocked()
	case (m.state == StateWaitingForAction || m.state == StateBetting) && event == EventHandOver:
		m.toShowdownLocked()
	case m.state == StateShowdown && event == EventNextHand:
		m.state = StateIdle
		m.beginHandLocked()
	default:
		m.logger.Warn("unexpected event",
			"state", m.state.String(), "event", event.String())
		m.recoverLocked()
	}
}

// HumanAct applies an action for the human seat. Rejected outright when it
// is not the human's turn.
func (m *StateMachine) HumanAct(action Action, raiseTo int) BetActionResult {
	m.mu.Lock()
	if m.state != StateWaitingForAction || !m.engine.IsHumanTurn() {
		m.mu.Unlock()
		return BetActionResult{Valid: false, Reason: "not your turn"}
	}
	res := m.engine.ApplyAction(action, raiseTo)
	if !res.Valid {
		m.mu.Unlock()
		return res
	}
	if m.engine.IsHandOver() {
		m.handleLocked(EventHandOver)
	} else {
		m.handleLocked(EventPlayerActed)
	}
	m.mu.Unlock()
	return res
}

func (m *StateMachine) beginHandLocked() {
	m.epoch++
	m.cancelTimersLocked()
	m.state = StateDealing
	m.engine.StartHand()
	if m.engine.IsHandOver() {
		m.toShowdownLocked()
		return
	}
	m.afterLocked(m.dealDelay, EventDealComplete)
}

// routeLocked decides where the table actually is and moves there.
func (m *StateMachine) routeLocked() {
	if m.engine.IsHandOver() {
		m.toShowdownLocked()
		return
	}
	if m.engine.IsHumanTurn() {
		m.state = StateWaitingForAction
		return
	}
	m.state = StateBetting
	epoch := m.epoch
	m.timers = append(m.timers, m.clock.AfterFunc(m.actDelay, func() {
		m.runAI(epoch)
	}))
	m.armWatchdogLocked(m.engine.ActionCount(), m.actDelay*4)
}

// recoverLocked resynchronizes a confused machine with engine reality
func (m *StateMachine) recoverLocked() {
	if m.engine.IsHandOver() {
		if m.state != StateShowdown {
			m.toShowdownLocked()
		}
		return
	}
	m.routeLocked()
}

// armWatchdogLocked schedules a progress check for the betting state. If no
// action has landed by the time it fires, the machine re-routes, which
// corrects a betting state that should be waiting on the human and re-kicks
// a stalled AI turn. The interval doubles on every idle pass.
func (m *StateMachine) armWatchdogLocked(seenActions int, interval time.Duration) {
	epoch := m.epoch
	m.timers = append(m.timers, m.clock.AfterFunc(interval, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.epoch != epoch || m.state != StateBetting {
			return
		}
		count := m.engine.ActionCount()
		if count != seenActions {
			m.armWatchdogLocked(count, interval)
			return
		}
		m.logger.Warn("betting state stalled, re-routing",
			"hand", m.engine.HandNumber(), "actions", count)
		m.routeLocked()
		if m.state == StateBetting {
			m.armWatchdogLocked(count, interval*2)
		}
	}))
}

// runAI executes one scheduled AI decision. The snapshot is taken and the
// decision computed without holding the machine lock, then revalidated
// against the epoch and the acting seat before being applied.
func (m *StateMachine) runAI(epoch int) {
	m.mu.Lock()
	if m.epoch != epoch || m.state != StateBetting {
		m.mu.Unlock()
		return
	}
	if m.engine.IsHumanTurn() {
		m.state = StateWaitingForAction
		m.mu.Unlock()
		return
	}
	snap := m.engine.Snapshot()
	if snap.ToAct == "" {
		m.recoverLocked()
		m.mu.Unlock()
		return
	}
	decide := m.ai
	if d, ok := m.perSeat[snap.ToAct]; ok {
		decide = d
	}
	m.mu.Unlock()

	action, raiseTo := Check, 0
	if decide != nil {
		action, raiseTo = decide.Decide(snap)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch || m.state != StateBetting || m.engine.CurrentPlayerID() != snap.ToAct {
		m.logger.Debug("stale AI decision dropped", "player", snap.ToAct)
		return
	}
	res := m.engine.ApplyAction(action, raiseTo)
	if !res.Valid {
		m.logger.Warn("AI produced invalid action, substituting",
			"player", snap.ToAct, "action", action.String(), "reason", res.Reason)
		if r := m.engine.ApplyAction(Check, 0); !r.Valid {
			m.engine.ApplyAction(Fold, 0)
		}
	}
	if m.engine.IsHandOver() {
		m.handleLocked(EventHandOver)
	} else {
		m.handleLocked(EventPlayerActed)
	}
}

func (m *StateMachine) toShowdownLocked() {
	m.state = StateShowdown
	m.cancelTimersLocked()
	m.handsPlayed++

	if reason, over := m.sessionOverLocked(); over {
		m.endGameLocked(reason)
		return
	}
	m.afterLocked(m.nextHandDelay, EventNextHand)
}

func (m *StateMachine) sessionOverLocked() (string, bool) {
	if m.handLimit > 0 && m.handsPlayed >= m.handLimit {
		return "hand limit reached", true
	}
	if m.engine.FundedCount() < 2 {
		return "only one funded player remains", true
	}
	for _, p := range m.engine.Players() {
		if p.IsHuman && p.Status == StatusEliminated {
			return "you are out of chips", true
		}
	}
	return "", false
}

// endGameLocked freezes the table and computes final standings. Funded
// players place by chip count, busted players by reverse elimination order.
// Tournament payouts apply the configured fractions to the total chips in
// play; cash results simply report final stacks.
func (m *StateMachine) endGameLocked(reason string) {
	m.state = StateGameOver
	m.reason = reason
	m.cancelTimersLocked()

	players := m.engine.Players()
	eliminated := m.engine.EliminationOrder()

	var standing []*Player
	for _, p := range players {
		if p.Status != StatusEliminated {
			standing = append(standing, p)
		}
	}
	sort.SliceStable(standing, func(i, j int) bool {
		return standing[i].Chips > standing[j].Chips
	})

	byID := make(map[string]*Player, len(players))
	for _, p := range players {
		byID[p.ID()] = p
	}

	ordered := standing
	for i := len(eliminated) - 1; i >= 0; i-- {
		if p, ok := byID[eliminated[i]]; ok {
			ordered = append(ordered, p)
		}
	}

	totalChips := 0
	for _, p := range players {
		totalChips += p.Chips
	}
	cfg := m.engine.cfg

	m.results = make([]Result, 0, len(ordered))
	for i, p := range ordered {
		r := Result{
			PlayerID: p.ID(),
			Name:     p.Name,
			Place:    i + 1,
			Chips:    p.Chips,
		}
		if cfg.Mode == Tournament {
			if i < len(cfg.Tournament.PayoutStructure) {
				r.Payout = int(cfg.Tournament.PayoutStructure[i] * float64(totalChips))
			}
		} else {
			r.Payout = p.Chips
		}
		m.results = append(m.results, r)
	}

	m.logger.Info("session over", "reason", reason, "hands", m.handsPlayed)
	m.engine.Events().Publish(GameOverEvent{
		Reason:    reason,
		Results:   append([]Result(nil), m.results...),
		timestamp: time.Now(),
	})
	m.doneOnce.Do(func() { close(m.done) })
}

// afterLocked schedules an event delivery that is dropped if the hand epoch
// has advanced by the time it fires.
func (m *StateMachine) afterLocked(d time.Duration, event Event) {
	epoch := m.epoch
	m.timers = append(m.timers, m.clock.AfterFunc(d, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.epoch != epoch || m.state == StateGameOver {
			return
		}
		m.handleLocked(event)
	}))
}

func (m *StateMachine) cancelTimersLocked() {
	for _, t := range m.timers {
		t.Stop()
	}
	m.timers = nil
}
