package history

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroom/holdem/internal/deck"
	"github.com/cardroom/holdem/internal/game"
)

func TestWriter_RecordsAHandAsJSONLines(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, log.New(io.Discard))

	players := []*game.Player{
		{ProfileID: "alice", EntryIndex: 1, Name: "Alice", Chips: 1000, Status: game.StatusActive},
		{ProfileID: "bob", EntryIndex: 1, Name: "Bob", Chips: 990, Status: game.StatusActive},
	}
	w.OnHandStart(3, game.CashGame, players)
	w.OnAction("alice#1", game.Raise, 30, game.Preflop, true, 0)
	w.OnAction("bob#1", game.Fold, 0, game.Preflop, true, 1)
	w.OnHandEnd(45, []deck.Card{deck.NewCard(deck.Ace, deck.Spades)}, []game.Winner{
		{PlayerID: "alice#1", Amount: 45, Rank: game.HandRank(0)},
	})
	w.Close()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)

	var start Record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &start))
	assert.Equal(t, "hand_start", start.Type)
	assert.Equal(t, 3, start.HandNumber)
	assert.Equal(t, "cash", start.Mode)
	require.Len(t, start.Seats, 2)
	assert.Equal(t, "alice#1", start.Seats[0].ID)
	assert.Equal(t, 1000, start.Seats[0].Chips)

	var action Record
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &action))
	assert.Equal(t, "action", action.Type)
	assert.Equal(t, 3, action.HandNumber)
	assert.Equal(t, "alice#1", action.PlayerID)
	assert.Equal(t, "raise", action.Action)
	assert.Equal(t, 30, action.Amount)
	assert.Equal(t, "preflop", action.Street)
	assert.True(t, action.Voluntary)

	var end Record
	require.NoError(t, json.Unmarshal([]byte(lines[3]), &end))
	assert.Equal(t, "hand_end", end.Type)
	assert.Equal(t, 45, end.Pot)
	require.Len(t, end.Winners, 1)
	assert.Equal(t, "alice#1", end.Winners[0].PlayerID)
	assert.Equal(t, 45, end.Winners[0].Amount)
}

func TestWriter_ActionsCarryTheLatestHandNumber(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, log.New(io.Discard))

	w.OnHandStart(1, game.CashGame, nil)
	w.OnHandStart(2, game.CashGame, nil)
	w.OnAction("p1#1", game.Check, 0, game.Flop, true, 0)
	w.Close()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	var action Record
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &action))
	assert.Equal(t, 2, action.HandNumber)
}

func TestWriter_CloseIsIdempotent(t *testing.T) {
	w := NewWriter(io.Discard, log.New(io.Discard))
	w.OnHandStart(1, game.Tournament, nil)
	w.Close()
	w.Close()
}
