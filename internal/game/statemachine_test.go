package game

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroom/holdem/internal/deck"
)

// callingDecision checks when it can and calls when it must
type callingDecision struct{}

func (callingDecision) Decide(snap TableSnapshot) (Action, int) {
	for _, va := range snap.Valid {
		if va.Action == Check {
			return Check, 0
		}
	}
	for _, va := range snap.Valid {
		if va.Action == Call {
			return Call, 0
		}
	}
	return AllIn, 0
}

// shovingDecision moves all-in at every opportunity
type shovingDecision struct{}

func (shovingDecision) Decide(snap TableSnapshot) (Action, int) {
	return AllIn, 0
}

// brokenDecision returns an action that is never legal mid-hand
type brokenDecision struct{}

func (brokenDecision) Decide(snap TableSnapshot) (Action, int) {
	return Raise, -1
}

const testTick = 100 * time.Millisecond

func newTestMachine(t *testing.T, cfg Config, players []*Player, ai Decision, handLimit int, stacked *deck.Deck) (*StateMachine, *quartz.Mock) {
	t.Helper()
	mock := quartz.NewMock(t)

	engineOpts := []EngineOption{
		WithLogger(quietLogger()),
		WithClock(mock),
		WithRunOutPace(testTick),
	}
	if stacked != nil {
		engineOpts = append(engineOpts, WithDeck(stacked))
	}
	engine := NewHandEngine(cfg, players, engineOpts...)

	machine := NewStateMachine(engine, ai,
		WithMachineLogger(quietLogger()),
		WithMachineClock(mock),
		WithHandLimit(handLimit),
		WithDealDelay(testTick),
		WithActDelay(testTick),
		WithNextHandDelay(testTick),
	)
	return machine, mock
}

// drive advances mock time until the session ends or the step budget runs out
func drive(t *testing.T, machine *StateMachine, mock *quartz.Mock, steps int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < steps; i++ {
		select {
		case <-machine.Done():
			return
		default:
		}
		mock.Advance(testTick).MustWait(ctx)
	}
	t.Fatal("session did not finish within the step budget")
}

func TestStateMachine_PlaysAHandToCompletion(t *testing.T) {
	players := testPlayers(1000, 1000)
	machine, mock := newTestMachine(t, DefaultConfig(), players, callingDecision{}, 1, nil)

	machine.Start()
	assert.Equal(t, StateDealing, machine.State())

	drive(t, machine, mock, 100)

	assert.Equal(t, "hand limit reached", machine.EndReason())
	results := machine.Results()
	require.Len(t, results, 2)

	total := 0
	for _, r := range results {
		total += r.Chips
		assert.Equal(t, r.Chips, r.Payout, "cash results report final stacks")
	}
	assert.Equal(t, 2000, total)
	assert.Equal(t, 1, results[0].Place)
	assert.Equal(t, 2, results[1].Place)
}

func TestStateMachine_HumanActOutOfTurnRejected(t *testing.T) {
	players := testPlayers(1000, 1000)
	players[0].IsHuman = true
	machine, _ := newTestMachine(t, DefaultConfig(), players, callingDecision{}, 1, nil)

	machine.Start()
	// Still dealing: no action is accepted yet.
	res := machine.HumanAct(Call, 0)
	assert.False(t, res.Valid)
	assert.Equal(t, "not your turn", res.Reason)
}

func TestStateMachine_WaitsForHumanThenResumesAI(t *testing.T) {
	players := testPlayers(1000, 1000)
	players[0].IsHuman = true
	machine, mock := newTestMachine(t, DefaultConfig(), players, callingDecision{}, 1, nil)
	ctx := context.Background()

	machine.Start()
	mock.Advance(testTick).MustWait(ctx)

	// Heads-up the dealer acts first preflop, and the dealer is the human.
	require.Equal(t, StateWaitingForAction, machine.State())

	res := machine.HumanAct(Fold, 0)
	require.True(t, res.Valid)

	// The fold ends the hand; with a one-hand limit the session is over.
	drive(t, machine, mock, 20)
	assert.Equal(t, "hand limit reached", machine.EndReason())
}

func TestStateMachine_UnexpectedEventResynchronizes(t *testing.T) {
	players := testPlayers(1000, 1000)
	players[0].IsHuman = true
	machine, mock := newTestMachine(t, DefaultConfig(), players, callingDecision{}, 1, nil)
	ctx := context.Background()

	machine.Start()
	mock.Advance(testTick).MustWait(ctx)
	require.Equal(t, StateWaitingForAction, machine.State())

	// A late timer event must not knock the machine out of the human's turn.
	machine.Send(EventDealComplete)
	assert.Equal(t, StateWaitingForAction, machine.State())
}

func TestStateMachine_InvalidAIActionSubstituted(t *testing.T) {
	players := testPlayers(1000, 1000)
	machine, mock := newTestMachine(t, DefaultConfig(), players, brokenDecision{}, 1, nil)

	machine.Start()
	// The nonsense raise amount clamps to a legal min-raise while chips
	// remain; once raising is impossible the machine substitutes check or
	// fold. Either way the session finishes.
	drive(t, machine, mock, 400)

	total := 0
	for _, r := range machine.Results() {
		total += r.Chips
	}
	assert.Equal(t, 2000, total)
}

func TestStateMachine_TournamentEndsWithPayouts(t *testing.T) {
	players := testPlayers(1000, 1000)
	stacked := deck.Stacked(cards(
		"As", "Ah", // p1
		"7c", "2d", // p2
		"Ks", "Qh", "3d", // flop
		"8s", // turn
		"4c", // river
	)...)
	cfg := tournamentConfig()
	cfg.MaxSeats = 2
	machine, mock := newTestMachine(t, cfg, players, shovingDecision{}, 0, stacked)

	machine.Start()
	drive(t, machine, mock, 200)

	assert.Equal(t, "only one funded player remains", machine.EndReason())
	results := machine.Results()
	require.Len(t, results, 2)

	assert.Equal(t, "p1#1", results[0].PlayerID)
	assert.Equal(t, 2000, results[0].Chips)
	assert.Equal(t, 1000, results[0].Payout, "half the chips in play")
	assert.Equal(t, "p2#1", results[1].PlayerID)
	assert.Equal(t, 600, results[1].Payout)
}

func TestStateMachine_HumanBustEndsSession(t *testing.T) {
	players := testPlayers(100, 1000, 1000)
	players[0].IsHuman = true
	stacked := deck.Stacked(cards(
		"7c", "2d", // p1, the human
		"As", "Ah", // p2
		"9c", "6h", // p3
		"Ks", "Qh", "3d", // flop
		"8s", // turn
		"4c", // river
	)...)
	machine, mock := newTestMachine(t, DefaultConfig(), players, callingDecision{}, 0, stacked)
	ctx := context.Background()

	machine.Start()
	mock.Advance(testTick).MustWait(ctx)
	require.Equal(t, StateWaitingForAction, machine.State())

	res := machine.HumanAct(AllIn, 0)
	require.True(t, res.Valid)

	drive(t, machine, mock, 100)
	assert.Equal(t, "you are out of chips", machine.EndReason())
}

func TestStateMachine_ShortCircuitsWithoutTwoFundedPlayers(t *testing.T) {
	players := testPlayers(1000, 0)
	machine, _ := newTestMachine(t, DefaultConfig(), players, callingDecision{}, 0, nil)

	machine.Start()

	select {
	case <-machine.Done():
	default:
		t.Fatal("session should end before any cards are dealt")
	}
	assert.Equal(t, StateGameOver, machine.State())
	assert.Equal(t, "only one funded player remains", machine.EndReason())

	results := machine.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "p1#1", results[0].PlayerID)
	assert.Equal(t, 1000, results[0].Chips)
}

func TestStateMachine_StrayHandOverIgnoredAtShowdown(t *testing.T) {
	players := testPlayers(1000, 1000)
	machine, mock := newTestMachine(t, DefaultConfig(), players, callingDecision{}, 2, nil)
	ctx := context.Background()

	machine.Start()
	for i := 0; i < 200 && machine.State() != StateShowdown; i++ {
		mock.Advance(testTick).MustWait(ctx)
	}
	require.Equal(t, StateShowdown, machine.State())

	// A duplicate hand-over must not count an extra hand or end the
	// session early.
	machine.Send(EventHandOver)
	assert.Equal(t, StateShowdown, machine.State())
	select {
	case <-machine.Done():
		t.Fatal("stray hand-over ended the session after one hand")
	default:
	}

	drive(t, machine, mock, 400)
	assert.Equal(t, "hand limit reached", machine.EndReason())
}
