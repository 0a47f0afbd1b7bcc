// Package main runs a single simulated battle between two catalog species and
// applies the resulting progression to the player's creature.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cory-johannsen/critterbound/internal/config"
	"github.com/cory-johannsen/critterbound/internal/game/battle"
	"github.com/cory-johannsen/critterbound/internal/game/catalog"
	"github.com/cory-johannsen/critterbound/internal/game/dice"
	"github.com/cory-johannsen/critterbound/internal/game/progression"
	"github.com/cory-johannsen/critterbound/internal/observability"
	"github.com/cory-johannsen/critterbound/internal/scripting"
	"github.com/cory-johannsen/critterbound/internal/storage/postgres"
)

// healthTimeout bounds the database preflight before a save.
const healthTimeout = 5 * time.Second

// options holds the parsed command line.
type options struct {
	PlayerID      string
	PlayerLevel   int
	EnemyID       string
	EnemyLevel    int
	TrainerBattle bool
	Seed          uint64
	MapID         string
	Flags         string
	Script        string
	Save          bool
	TrainerID     int64
}

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty uses defaults and environment")
	var o options
	flag.StringVar(&o.PlayerID, "player", "emberkit", "player species id")
	flag.IntVar(&o.PlayerLevel, "player-level", 5, "player creature level")
	flag.StringVar(&o.EnemyID, "enemy", "pebblet", "enemy species id")
	flag.IntVar(&o.EnemyLevel, "enemy-level", 5, "enemy creature level")
	flag.BoolVar(&o.TrainerBattle, "trainer", false, "award trainer-battle experience")
	flag.Uint64Var(&o.Seed, "seed", 0, "random seed; 0 uses battle.seed from config, then a crypto source")
	flag.StringVar(&o.MapID, "map", "", "current map id for region evolutions")
	flag.StringVar(&o.Flags, "flags", "", "comma-separated story flags")
	flag.StringVar(&o.Script, "script", "", "subdirectory of the scripts dir whose adjust_damage hook shapes damage")
	flag.BoolVar(&o.Save, "save", false, "persist the player creature to Postgres")
	flag.Int64Var(&o.TrainerID, "trainer-id", 0, "owning trainer id for -save; its map and story flags are merged in")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}

	err = run(context.Background(), cfg, o, logger, os.Stdout)
	if err != nil {
		logger.Error("battlesim failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run wires the catalog, random source, optional scripts and database, then
// simulates one battle. Every resource it opens is closed before it returns.
//
// Postcondition: Returns nil on success, including lost or drawn battles.
func run(ctx context.Context, cfg config.Config, o options, logger *zap.Logger, w io.Writer) error {
	start := time.Now()
	if o.Save && o.TrainerID == 0 {
		return errors.New("-save requires -trainer-id")
	}

	reg, err := catalog.Load(cfg.Content.MovesDir, cfg.Content.SpeciesDir)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	playerSp, ok := reg.Species(o.PlayerID)
	if !ok {
		return fmt.Errorf("unknown player species %q", o.PlayerID)
	}
	enemySp, ok := reg.Species(o.EnemyID)
	if !ok {
		return fmt.Errorf("unknown enemy species %q", o.EnemyID)
	}

	seed := o.Seed
	if seed == 0 {
		seed = cfg.Battle.Seed
	}
	var src dice.Source = dice.NewCryptoSource()
	if seed != 0 {
		src = dice.NewSeededSource(seed)
	}
	src = dice.NewLoggedSource(src, logger)

	opts := battle.Options{
		Source:                  src,
		EnemyStatusEffectChance: battle.Chance(cfg.Battle.StatusChance()),
		Logger:                  logger,
	}
	if o.Script != "" {
		mgr := scripting.NewManager(src, logger)
		defer mgr.Close()
		dir := filepath.Join(cfg.Content.ScriptsDir, o.Script)
		if err := mgr.LoadScripts(o.Script, dir, cfg.Content.ScriptInstructionLimit); err != nil {
			return fmt.Errorf("loading scripts from %s: %w", dir, err)
		}
		opts.DamageAdjuster = mgr.DamageAdjuster(o.Script)
	}

	evoCtx := progression.Context{MapID: o.MapID, StoryFlags: map[string]bool{}}
	for _, f := range strings.Split(o.Flags, ",") {
		if f = strings.TrimSpace(f); f != "" {
			evoCtx.StoryFlags[f] = true
		}
	}

	var pool *postgres.Pool
	if o.Save {
		pool, err = postgres.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()
		trainer, err := pool.Trainers().GetByID(ctx, o.TrainerID)
		if err != nil {
			return fmt.Errorf("loading trainer %d: %w", o.TrainerID, err)
		}
		if evoCtx.MapID == "" {
			evoCtx.MapID = trainer.MapID
		}
		for f := range trainer.FlagSet() {
			evoCtx.StoryFlags[f] = true
		}
	}

	bt := progression.BattleWild
	if o.TrainerBattle {
		bt = progression.BattleTrainer
	}
	player := playerSp.NewRecord(o.PlayerLevel)
	enemy := enemySp.NewRecord(o.EnemyLevel)
	sys := progression.New(reg, logger)

	out, err := simulate(reg, sys, player, *enemy, opts, bt, evoCtx, w)
	if err != nil {
		return fmt.Errorf("simulating battle: %w", err)
	}

	if pool != nil {
		if err := pool.Health(ctx, healthTimeout); err != nil {
			return err
		}
		if err := pool.Creatures().Create(ctx, o.TrainerID, player); err != nil {
			return fmt.Errorf("saving creature: %w", err)
		}
		fmt.Fprintf(w, "Saved %s as %s.\n", player.SpeciesID, player.ID)
	}

	logger.Info("battle simulated",
		zap.String("winner", string(out.Winner)),
		zap.Int("turns", out.Turns),
		zap.Int("level", player.Level),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
