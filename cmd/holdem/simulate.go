package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cardroom/holdem/internal/bot"
	"github.com/cardroom/holdem/internal/game"
	"github.com/cardroom/holdem/internal/history"
	"github.com/cardroom/holdem/internal/randutil"
)

var aiNames = []string{
	"Ada", "Bruno", "Carla", "Dmitri", "Elena",
	"Felix", "Greta", "Hugo", "Iris", "Jonas",
}

// SimulateCmd runs a table of AI players to completion
type SimulateCmd struct {
	Config  string `help:"HCL config file" type:"existingfile"`
	Hands   int    `default:"100" help:"Stop after this many hands (0 for no limit)"`
	Seed    *int64 `help:"Deterministic RNG seed (optional)"`
	History string `help:"Write hand history JSON lines to this file"`
	Pace    bool   `help:"Play at human pace instead of as fast as possible"`
}

func (c *SimulateCmd) Run(logger *log.Logger) error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}

	seed := time.Now().UnixNano()
	if c.Seed != nil {
		seed = *c.Seed
	}
	rng := randutil.New(seed)
	logger.Info("starting simulation", "mode", cfg.Mode.String(), "seats", cfg.MaxSeats, "seed", seed)

	var engineOpts []game.EngineOption
	engineOpts = append(engineOpts,
		game.WithLogger(logger),
		game.WithRNG(rng),
	)

	if c.History != "" {
		f, err := os.Create(c.History)
		if err != nil {
			return fmt.Errorf("creating history file: %w", err)
		}
		defer f.Close()
		recorder := history.NewWriter(f, logger)
		defer recorder.Close()
		engineOpts = append(engineOpts, game.WithRecorder(recorder))
	}

	var players []*game.Player
	var economy *game.TableEconomy
	if cfg.Mode == game.CashGame {
		economy = game.NewTableEconomy(cfg.Cash, cfg.MaxSeats, rng, logger)
		for i := 0; i < cfg.MaxSeats; i++ {
			name := aiNames[i%len(aiNames)]
			p := economy.SeatAI(fmt.Sprintf("ai-%d", i+1), name)
			if p != nil {
				players = append(players, p)
			}
		}
		engineOpts = append(engineOpts, game.WithEconomy(economy))
	} else {
		for i := 0; i < cfg.MaxSeats; i++ {
			players = append(players, &game.Player{
				ProfileID:  fmt.Sprintf("ai-%d", i+1),
				EntryIndex: 1,
				Name:       aiNames[i%len(aiNames)],
				Chips:      cfg.Tournament.StartingChips,
				Status:     game.StatusActive,
			})
		}
	}
	if len(players) < 2 {
		return fmt.Errorf("need at least 2 players, got %d", len(players))
	}

	if !c.Pace {
		engineOpts = append(engineOpts, game.WithRunOutPace(time.Millisecond))
	}
	engine := game.NewHandEngine(cfg, players, engineOpts...)

	machineOpts := []game.MachineOption{
		game.WithMachineLogger(logger),
		game.WithHandLimit(c.Hands),
	}
	if !c.Pace {
		machineOpts = append(machineOpts,
			game.WithDealDelay(time.Millisecond),
			game.WithActDelay(time.Millisecond),
			game.WithNextHandDelay(time.Millisecond),
		)
	}
	ai := bot.New(bot.DefaultProfile, rng, logger)
	machine := game.NewStateMachine(engine, ai, machineOpts...)

	machine.Start()
	<-machine.Done()

	logger.Info("simulation finished", "reason", machine.EndReason())
	for _, r := range machine.Results() {
		logger.Info("result",
			"place", r.Place, "player", r.Name, "chips", r.Chips, "payout", r.Payout)
	}
	if economy != nil {
		logger.Info("chip pool", "remaining", economy.Pool())
	}
	return nil
}

func loadConfig(path string) (game.Config, error) {
	if path == "" {
		return game.DefaultConfig(), nil
	}
	return game.LoadConfig(path)
}
