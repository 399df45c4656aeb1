package game

import (
	"math/rand/v2"

	"github.com/charmbracelet/log"
)

// Identity is a persistent AI personality. Its bankroll survives departures
// from the table; Entries counts how many times it has bought in, which
// becomes the EntryIndex of each stint's Player.
type Identity struct {
	ProfileID string
	Name      string
	Bankroll  int
	Entries   int
}

// ChurnReport summarises one between-hands churn pass
type ChurnReport struct {
	Departed []string
	Entered  []string
}

// TableEconomy manages cash-game seat churn: AI departures and re-entries,
// and the closed chip reservoir that funds them. Chips only move at hand
// boundaries, never mid-round.
//
// The system pool is bounded: deposits beyond capacity are discarded with a
// log line rather than silently inflating the reservoir, and draws never
// exceed the available balance, so the pool stays within [0, capacity].
type TableEconomy struct {
	cfg      CashGameConfig
	maxSeats int
	pool     int
	poolCap  int

	identities map[string]*Identity
	rng        *rand.Rand
	logger     *log.Logger
}

// NewTableEconomy creates the economy with a full reservoir. Initial AI
// buy-ins draw from the pool so the table's AI chips stay a closed system.
func NewTableEconomy(cfg CashGameConfig, maxSeats int, rng *rand.Rand, logger *log.Logger) *TableEconomy {
	return &TableEconomy{
		cfg:        cfg,
		maxSeats:   maxSeats,
		pool:       cfg.PoolCapacity,
		poolCap:    cfg.PoolCapacity,
		identities: make(map[string]*Identity),
		rng:        rng,
		logger:     logger.WithPrefix("economy"),
	}
}

// Pool returns the current reservoir balance
func (e *TableEconomy) Pool() int {
	return e.pool
}

// Identity returns the persistent identity for a profile, or nil
func (e *TableEconomy) Identity(profileID string) *Identity {
	return e.identities[profileID]
}

// BuyInAmount draws a buy-in size uniformly from [40 big blinds, max buy-in]
func (e *TableEconomy) BuyInAmount() int {
	lo := e.cfg.BigBlind * 40
	hi := e.cfg.MaxBuyIn
	if lo >= hi {
		return hi
	}
	return lo + e.rng.IntN(hi-lo+1)
}

// SeatAI registers a new AI personality and seats it with a buy-in drawn
// from the pool. Returns nil if the pool cannot fund any buy-in.
func (e *TableEconomy) SeatAI(profileID, name string) *Player {
	id := &Identity{ProfileID: profileID, Name: name}
	e.identities[profileID] = id
	id.Bankroll = e.draw(e.BuyInAmount())
	return e.seat(id)
}

// seat moves an identity's bankroll onto the table as a new stint
func (e *TableEconomy) seat(id *Identity) *Player {
	if id.Bankroll <= 0 {
		return nil
	}
	id.Entries++
	p := &Player{
		ProfileID:  id.ProfileID,
		EntryIndex: id.Entries,
		Name:       id.Name,
		Chips:      id.Bankroll,
		Status:     StatusActive,
	}
	id.Bankroll = 0
	e.logger.Info("player seated", "player", p.ID(), "chips", p.Chips)
	return p
}

// Churn applies departures and entries between hands and returns the updated
// seat list. Never touches the human seat or mid-hand state.
func (e *TableEconomy) Churn(players []*Player) ([]*Player, ChurnReport) {
	var report ChurnReport

	kept := players[:0:0]
	for _, p := range players {
		if p.IsHuman {
			kept = append(kept, p)
			continue
		}
		if p.Chips == 0 {
			// Busted AI seats leave with nothing to bank.
			report.Departed = append(report.Departed, p.ID())
			e.logger.Info("player busted out", "player", p.ID())
			continue
		}
		if e.shouldDepart(p) {
			id := e.identities[p.ProfileID]
			id.Bankroll += p.Chips
			e.deposit(p.Chips)
			report.Departed = append(report.Departed, p.ID())
			e.logger.Info("player left table", "player", p.ID(), "chips", p.Chips, "pool", e.pool)
			continue
		}
		kept = append(kept, p)
	}

	funded := 0
	for _, p := range kept {
		if p.Chips > 0 {
			funded++
		}
	}

	for seat := len(kept); seat < e.maxSeats; seat++ {
		if funded >= 3 && e.rng.Float64() >= 0.5 {
			continue
		}
		// Only a previously departed identity may take the seat; inventing
		// a fresh personality would break identity persistence, so a short
		// table stays short.
		id := e.pickRejoin(kept)
		if id == nil {
			continue
		}
		// The buy-in is limited by the identity's own funds and by what the
		// reservoir physically holds.
		drawn := e.draw(min(e.BuyInAmount(), id.Bankroll))
		if drawn <= 0 {
			continue
		}
		id.Bankroll -= drawn
		p := &Player{
			ProfileID:  id.ProfileID,
			EntryIndex: id.Entries + 1,
			Name:       id.Name,
			Chips:      drawn,
			Status:     StatusActive,
		}
		id.Entries++
		kept = append(kept, p)
		funded++
		report.Entered = append(report.Entered, p.ID())
		e.logger.Info("player rejoined", "player", p.ID(), "chips", drawn, "pool", e.pool)
	}

	return kept, report
}

// shouldDepart rolls the per-hand departure probability for an AI seat:
// big winners sometimes lock up profit, short stacks sometimes give up.
func (e *TableEconomy) shouldDepart(p *Player) bool {
	switch {
	case p.Chips*2 > e.cfg.MaxBuyIn*3: // above 1.5x max buy-in
		return e.rng.Float64() < 0.10
	case p.Chips*10 < e.cfg.MaxBuyIn*3: // below 0.3x max buy-in
		return e.rng.Float64() < 0.20
	default:
		return false
	}
}

// pickRejoin selects a departed identity with a positive bankroll that is
// not currently seated, uniformly at random.
func (e *TableEconomy) pickRejoin(seated []*Player) *Identity {
	atTable := make(map[string]bool, len(seated))
	for _, p := range seated {
		atTable[p.ProfileID] = true
	}
	var candidates []*Identity
	for _, id := range e.identities {
		if id.Bankroll > 0 && !atTable[id.ProfileID] {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[e.rng.IntN(len(candidates))]
}

// deposit credits departing chips to the pool, discarding overflow beyond
// capacity explicitly.
func (e *TableEconomy) deposit(amount int) {
	space := e.poolCap - e.pool
	if amount > space {
		e.logger.Warn("system pool full, discarding overflow", "discarded", amount-space)
		amount = space
	}
	e.pool += amount
}

// draw removes up to amount from the pool and returns what was taken
func (e *TableEconomy) draw(amount int) int {
	if amount > e.pool {
		amount = e.pool
	}
	e.pool -= amount
	return amount
}
