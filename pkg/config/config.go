// Package config loads engine-wide tuning knobs from the
// environment: .env file, viper defaults, environment override.
package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds ambient settings for the CLI entrypoints: logging,
// and default evolutionary/repair tuning applied when a run omits them.
type Config struct {
	Env string

	Log       LogConfig
	GA        GAConfig
	Repair    RepairConfig
	LedgerDir string
}

type LogConfig struct {
	Level  string
	Format string
}

// GAConfig mirrors genetic_algorithm_params as defaults applied when
// a configuration object omits a field.
type GAConfig struct {
	PopulationSize      int
	Generations         int
	MutationRate        float64
	CrossoverRate       float64
	EliteSize           int
	StagnationLimit     int
	TournamentSize      int
	MaxSubjectPerDayCap int
}

// RepairConfig governs repair-pipeline defaults.
type RepairConfig struct {
	ReseedPopulationSize int
	InitAttemptsPerSlot  int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing .env is fine; defaults and the environment cover it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}
	cfg.Env = v.GetString("ENV")
	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}
	cfg.LedgerDir = v.GetString("LEDGER_DIR")

	cfg.GA = GAConfig{
		PopulationSize:      v.GetInt("GA_POPULATION_SIZE"),
		Generations:         v.GetInt("GA_GENERATIONS"),
		MutationRate:        v.GetFloat64("GA_MUTATION_RATE"),
		CrossoverRate:       v.GetFloat64("GA_CROSSOVER_RATE"),
		EliteSize:           v.GetInt("GA_ELITE_SIZE"),
		StagnationLimit:     v.GetInt("GA_STAGNATION_LIMIT"),
		TournamentSize:      v.GetInt("GA_TOURNAMENT_SIZE"),
		MaxSubjectPerDayCap: v.GetInt("GA_MAX_SUBJECT_PER_DAY"),
	}

	cfg.Repair = RepairConfig{
		ReseedPopulationSize: v.GetInt("REPAIR_POPULATION_SIZE"),
		InitAttemptsPerSlot:  v.GetInt("REPAIR_INIT_ATTEMPTS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LEDGER_DIR", "./data")

	v.SetDefault("GA_POPULATION_SIZE", 30)
	v.SetDefault("GA_GENERATIONS", 200)
	v.SetDefault("GA_MUTATION_RATE", 0.2)
	v.SetDefault("GA_CROSSOVER_RATE", 0.8)
	v.SetDefault("GA_ELITE_SIZE", 2)
	v.SetDefault("GA_STAGNATION_LIMIT", 5)
	v.SetDefault("GA_TOURNAMENT_SIZE", 3)
	v.SetDefault("GA_MAX_SUBJECT_PER_DAY", 2)

	v.SetDefault("REPAIR_POPULATION_SIZE", 20)
	v.SetDefault("REPAIR_INIT_ATTEMPTS", 20)
}
