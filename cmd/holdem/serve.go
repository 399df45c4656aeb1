package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/cardroom/holdem/internal/bot"
	"github.com/cardroom/holdem/internal/game"
	"github.com/cardroom/holdem/internal/history"
	"github.com/cardroom/holdem/internal/monitor"
	"github.com/cardroom/holdem/internal/randutil"
)

// ServeCmd runs a paced AI table and streams its events over WebSocket
type ServeCmd struct {
	Addr    string `default:":8080" help:"Monitor listen address"`
	Config  string `help:"HCL config file" type:"existingfile"`
	Hands   int    `default:"0" help:"Stop after this many hands (0 for no limit)"`
	Seed    *int64 `help:"Deterministic RNG seed (optional)"`
	History string `help:"Write hand history JSON lines to this file"`
}

func (c *ServeCmd) Run(logger *log.Logger) error {
	cfg, err := loadConfig(c.Config)
	if err != nil {
		return err
	}

	seed := time.Now().UnixNano()
	if c.Seed != nil {
		seed = *c.Seed
	}
	rng := randutil.New(seed)

	engineOpts := []game.EngineOption{
		game.WithLogger(logger),
		game.WithRNG(rng),
	}

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
	if cfg.Mode == game.CashGame {
		economy := game.NewTableEconomy(cfg.Cash, cfg.MaxSeats, rng, logger)
		for i := 0; i < cfg.MaxSeats; i++ {
			p := economy.SeatAI(fmt.Sprintf("ai-%d", i+1), aiNames[i%len(aiNames)])
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

	engine := game.NewHandEngine(cfg, players, engineOpts...)

	mon := monitor.NewServer(c.Addr, logger)
	engine.Events().Subscribe(mon)

	ai := bot.New(bot.DefaultProfile, rng, logger)
	machine := game.NewStateMachine(engine, ai,
		game.WithMachineLogger(logger),
		game.WithHandLimit(c.Hands),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mon.Start()
	})
	g.Go(func() error {
		machine.Start()
		select {
		case <-machine.Done():
			logger.Info("session over", "reason", machine.EndReason())
		case <-ctx.Done():
		}
		mon.Stop()
		return nil
	})

	logger.Info("serving", "addr", c.Addr, "mode", cfg.Mode.String(), "seed", seed)
	return g.Wait()
}
