// Package config provides Viper-based configuration loading for critterbound
// tools.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CRITTER_BATTLE_DIFFICULTY.
const EnvPrefix = "CRITTER"

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// ContentConfig locates the game data shipped as YAML and Lua.
type ContentConfig struct {
	MovesDir   string `mapstructure:"moves_dir"`
	SpeciesDir string `mapstructure:"species_dir"`
	ScriptsDir string `mapstructure:"scripts_dir"`
	// ScriptInstructionLimit is the opcode budget of one Lua hook call; 0
	// uses the scripting default.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// Difficulty names a battle difficulty preset. Only hard leaves enemy status
// moves at full accuracy; easy and normal lower it.
type Difficulty string

const (
	// DifficultyEasy makes enemy status moves succeed half the time.
	DifficultyEasy Difficulty = "easy"
	// DifficultyNormal makes enemy status moves succeed 75% of the time.
	DifficultyNormal Difficulty = "normal"
	// DifficultyHard never lowers enemy status accuracy. It is the default.
	DifficultyHard Difficulty = "hard"
)

// BattleConfig holds battle tuning.
type BattleConfig struct {
	Difficulty Difficulty `mapstructure:"difficulty"`
	// EnemyStatusChance overrides the difficulty preset when >= 0.
	EnemyStatusChance float64 `mapstructure:"enemy_status_chance"`
	// Seed makes battles reproducible when non-zero.
	Seed uint64 `mapstructure:"seed"`
}

// StatusChance returns the probability that an enemy status move succeeds.
//
// Postcondition: Returns a value in [0, 1].
func (b BattleConfig) StatusChance() float64 {
	if b.EnemyStatusChance >= 0 {
		return min(b.EnemyStatusChance, 1)
	}
	switch b.Difficulty {
	case DifficultyEasy:
		return 0.5
	case DifficultyHard:
		return 1
	default:
		return 0.75
	}
}

// Config is the top-level application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Content  ContentConfig  `mapstructure:"content"`
	Battle   BattleConfig   `mapstructure:"battle"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	for _, err := range []error{
		validateDatabase(c.Database),
		validateLogging(c.Logging),
		validateContent(c.Content),
		validateBattle(c.Battle),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.MovesDir == "" {
		errs = append(errs, "content.moves_dir must not be empty")
	}
	if c.SpeciesDir == "" {
		errs = append(errs, "content.species_dir must not be empty")
	}
	if c.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("content.script_instruction_limit must be >= 0, got %d", c.ScriptInstructionLimit))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateBattle(b BattleConfig) error {
	switch b.Difficulty {
	case DifficultyEasy, DifficultyNormal, DifficultyHard:
	default:
		return fmt.Errorf("battle.difficulty must be one of [easy, normal, hard], got %q", b.Difficulty)
	}
	if b.EnemyStatusChance > 1 {
		return fmt.Errorf("battle.enemy_status_chance must be <= 1, got %g", b.EnemyStatusChance)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment
// variable overrides, and validates the result. An empty path skips the file
// and uses defaults plus the environment.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "critter")
	v.SetDefault("database.password", "critter")
	v.SetDefault("database.name", "critterbound")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("content.moves_dir", "content/moves")
	v.SetDefault("content.species_dir", "content/species")
	v.SetDefault("content.scripts_dir", "content/scripts")
	v.SetDefault("content.script_instruction_limit", 0)

	v.SetDefault("battle.difficulty", string(DifficultyHard))
	v.SetDefault("battle.enemy_status_chance", -1)
	v.SetDefault("battle.seed", 0)
}
