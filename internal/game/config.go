package game

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// GameMode selects how the table is run
type GameMode int

const (
	CashGame GameMode = iota
	Tournament
)

// String returns the string representation of a game mode
func (m GameMode) String() string {
	if m == Tournament {
		return "tournament"
	}
	return "cash"
}

// CashGameConfig holds the stakes and buy-in rules of a cash table
type CashGameConfig struct {
	SmallBlind   int
	BigBlind     int
	MinBuyIn     int
	MaxBuyIn     int
	MaxBuyIns    int
	PoolCapacity int
}

// BlindLevel is one step of a tournament blind schedule
type BlindLevel struct {
	SmallBlind int
	BigBlind   int
	Ante       int
}

// TournamentConfig holds tournament structure
type TournamentConfig struct {
	StartingChips   int
	BlindSchedule   []BlindLevel
	HandsPerLevel   int
	PayoutStructure []float64 // fractions of the prize pool, first place first
}

// Config is the full table configuration
type Config struct {
	Mode       GameMode
	MaxSeats   int
	Cash       CashGameConfig
	Tournament TournamentConfig
}

// DefaultConfig returns a playable six-seat cash table
func DefaultConfig() Config {
	return Config{
		Mode:     CashGame,
		MaxSeats: 6,
		Cash: CashGameConfig{
			SmallBlind:   5,
			BigBlind:     10,
			MinBuyIn:     400,
			MaxBuyIn:     1000,
			MaxBuyIns:    3,
			PoolCapacity: 12000,
		},
	}
}

// HCL file schema. Blocks mirror the runtime Config; missing values fall
// back to defaults in LoadConfig.
type fileConfig struct {
	Table      tableBlock       `hcl:"table,block"`
	Tournament *tournamentBlock `hcl:"tournament,block"`
}

type tableBlock struct {
	Mode         string `hcl:"mode,optional"`
	MaxSeats     int    `hcl:"max_seats,optional"`
	SmallBlind   int    `hcl:"small_blind"`
	BigBlind     int    `hcl:"big_blind"`
	MinBuyIn     int    `hcl:"min_buy_in,optional"`
	MaxBuyIn     int    `hcl:"max_buy_in,optional"`
	MaxBuyIns    int    `hcl:"max_buy_ins,optional"`
	PoolCapacity int    `hcl:"pool_capacity,optional"`
}

type tournamentBlock struct {
	StartingChips int          `hcl:"starting_chips"`
	HandsPerLevel int          `hcl:"hands_per_level,optional"`
	Payouts       []float64    `hcl:"payouts,optional"`
	Levels        []levelBlock `hcl:"level,block"`
}

type levelBlock struct {
	SmallBlind int `hcl:"small_blind"`
	BigBlind   int `hcl:"big_blind"`
	Ante       int `hcl:"ante,optional"`
}

// LoadConfig loads table configuration from an HCL file, applying defaults
// for anything the file leaves out. A missing file yields the defaults.
func LoadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return cfg, fmt.Errorf("failed to parse config: %s", diags.Error())
	}

	var fc fileConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &fc); diags.HasErrors() {
		return cfg, fmt.Errorf("failed to decode config: %s", diags.Error())
	}

	if fc.Table.Mode == "tournament" {
		cfg.Mode = Tournament
	}
	if fc.Table.MaxSeats > 0 {
		cfg.MaxSeats = fc.Table.MaxSeats
	}
	cfg.Cash.SmallBlind = fc.Table.SmallBlind
	cfg.Cash.BigBlind = fc.Table.BigBlind
	if fc.Table.MinBuyIn > 0 {
		cfg.Cash.MinBuyIn = fc.Table.MinBuyIn
	} else {
		cfg.Cash.MinBuyIn = cfg.Cash.BigBlind * 40
	}
	if fc.Table.MaxBuyIn > 0 {
		cfg.Cash.MaxBuyIn = fc.Table.MaxBuyIn
	} else {
		cfg.Cash.MaxBuyIn = cfg.Cash.BigBlind * 100
	}
	if fc.Table.MaxBuyIns > 0 {
		cfg.Cash.MaxBuyIns = fc.Table.MaxBuyIns
	}
	if fc.Table.PoolCapacity > 0 {
		cfg.Cash.PoolCapacity = fc.Table.PoolCapacity
	} else {
		cfg.Cash.PoolCapacity = cfg.Cash.MaxBuyIn * cfg.MaxSeats * 2
	}

	if fc.Tournament != nil {
		cfg.Tournament.StartingChips = fc.Tournament.StartingChips
		cfg.Tournament.HandsPerLevel = fc.Tournament.HandsPerLevel
		if cfg.Tournament.HandsPerLevel == 0 {
			cfg.Tournament.HandsPerLevel = 10
		}
		cfg.Tournament.PayoutStructure = fc.Tournament.Payouts
		if len(cfg.Tournament.PayoutStructure) == 0 {
			cfg.Tournament.PayoutStructure = []float64{0.5, 0.3, 0.2}
		}
		for _, lvl := range fc.Tournament.Levels {
			cfg.Tournament.BlindSchedule = append(cfg.Tournament.BlindSchedule, BlindLevel{
				SmallBlind: lvl.SmallBlind,
				BigBlind:   lvl.BigBlind,
				Ante:       lvl.Ante,
			})
		}
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration for internal consistency
func (c Config) Validate() error {
	if c.MaxSeats < 2 || c.MaxSeats > 10 {
		return fmt.Errorf("max seats must be between 2 and 10, got %d", c.MaxSeats)
	}
	if c.Cash.SmallBlind <= 0 {
		return fmt.Errorf("small blind must be positive")
	}
	if c.Cash.BigBlind <= c.Cash.SmallBlind {
		return fmt.Errorf("big blind must be greater than small blind")
	}
	if c.Mode == CashGame {
		if c.Cash.MinBuyIn >= c.Cash.MaxBuyIn {
			return fmt.Errorf("buy-in minimum must be less than maximum")
		}
		if c.Cash.PoolCapacity <= 0 {
			return fmt.Errorf("pool capacity must be positive")
		}
	}
	if c.Mode == Tournament {
		if c.Tournament.StartingChips <= 0 {
			return fmt.Errorf("tournament starting chips must be positive")
		}
		if len(c.Tournament.BlindSchedule) == 0 {
			return fmt.Errorf("tournament requires a blind schedule")
		}
		var sum float64
		for _, f := range c.Tournament.PayoutStructure {
			sum += f
		}
		if sum > 1.0001 {
			return fmt.Errorf("payout fractions sum to %.3f, must not exceed 1", sum)
		}
	}
	return nil
}

// blinds returns the active blind and ante amounts for the given tournament
// level, or the cash stakes for cash games.
func (c Config) blinds(level int) (sb, bb, ante int) {
	if c.Mode == Tournament {
		if level >= len(c.Tournament.BlindSchedule) {
			level = len(c.Tournament.BlindSchedule) - 1
		}
		l := c.Tournament.BlindSchedule[level]
		return l.SmallBlind, l.BigBlind, l.Ante
	}
	return c.Cash.SmallBlind, c.Cash.BigBlind, 0
}
