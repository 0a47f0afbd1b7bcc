package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/critterbound/internal/config"
)

func testConfig() config.Config {
	root := filepath.Join("..", "..", "content")
	return config.Config{
		Logging: config.LoggingConfig{Level: "debug", Format: "console"},
		Content: config.ContentConfig{
			MovesDir:   filepath.Join(root, "moves"),
			SpeciesDir: filepath.Join(root, "species"),
			ScriptsDir: filepath.Join(root, "scripts"),
		},
		Battle: config.BattleConfig{Difficulty: config.DifficultyHard, EnemyStatusChance: -1, Seed: 11},
	}
}

func baseOptions() options {
	return options{PlayerID: "emberkit", PlayerLevel: 15, EnemyID: "pebblet", EnemyLevel: 3}
}

func TestRun_SimulatesSeededBattle(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), testConfig(), baseOptions(), zaptest.NewLogger(t), &buf))
	assert.Contains(t, buf.String(), "Emberkit (Lv 15) vs Pebblet (Lv 3)")
	assert.Contains(t, buf.String(), "-- turn 1 --")
}

func TestRun_SameSeedSameTranscript(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, run(context.Background(), testConfig(), baseOptions(), zaptest.NewLogger(t), &a))
	require.NoError(t, run(context.Background(), testConfig(), baseOptions(), zaptest.NewLogger(t), &b))
	assert.Equal(t, a.String(), b.String())
}

func TestRun_WithBossScript(t *testing.T) {
	o := baseOptions()
	o.Script = "bosses"
	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), testConfig(), o, zaptest.NewLogger(t), &buf))
}

func TestRun_Errors(t *testing.T) {
	cases := map[string]func(*options, *config.Config){
		"save without trainer": func(o *options, _ *config.Config) { o.Save = true },
		"unknown player":       func(o *options, _ *config.Config) { o.PlayerID = "missingno" },
		"unknown enemy":        func(o *options, _ *config.Config) { o.EnemyID = "missingno" },
		"missing script dir":   func(o *options, _ *config.Config) { o.Script = "nowhere" },
		"missing catalog":      func(_ *options, c *config.Config) { c.Content.MovesDir = filepath.Join(t.TempDir(), "absent") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			o, cfg := baseOptions(), testConfig()
			mutate(&o, &cfg)
			var buf bytes.Buffer
			assert.Error(t, run(context.Background(), cfg, o, zaptest.NewLogger(t), &buf))
		})
	}
}
