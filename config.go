package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	SaveFile    string `env:"HAMURABI_SAVE_FILE" envDefault:"hamurabi.sav"`
	Seed        uint64 `env:"HAMURABI_SEED"`
	DBDialect   string `env:"DB_DIALECT" envDefault:"sqlite"`
	SQLitePath  string `env:"DB_SQLITE_PATH" envDefault:"tmp/hamurabi.sqlite"`
	PostgresDSN string `env:"DB_POSTGRES_DSN"`
	DatabaseURL string `env:"DATABASE_URL"`

	RecordsLimit int `env:"HAMURABI_RECORDS_LIMIT" envDefault:"10"`

	ShowRecords bool
	ForceNew    bool
	Resume      string
}

// loadConfig reads an optional .env file, then the environment, then flags.
func loadConfig(args []string, dotenv string) (Config, error) {
	var cfg Config
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	fl := flag.NewFlagSet("hamurabi", flag.ContinueOnError)
	fl.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "seed for the city's random events (0 = from clock)")
	fl.StringVar(&cfg.SaveFile, "save", cfg.SaveFile, "save file; a .zst suffix compresses it")
	fl.BoolVar(&cfg.ShowRecords, "records", false, "print the hall of records and exit")
	fl.BoolVar(&cfg.ForceNew, "new", false, "start a new term even if a save exists")
	fl.StringVar(&cfg.Resume, "resume", "", "resume the game with this ID from the database")
	if err := fl.Parse(args); err != nil {
		return cfg, err
	}

	cfg.DBDialect = strings.TrimSpace(strings.ToLower(cfg.DBDialect))
	if cfg.DBDialect == "" {
		cfg.DBDialect = string(dialectSQLite)
	}
	return cfg, nil
}

func (c Config) seed() uint64 {
	if c.Seed != 0 {
		return c.Seed
	}
	return uint64(time.Now().UnixNano())
}
