package main

import (
	"time"

	"github.com/sherifabdlnaby/configuro"
)

// Config values can be set using either environment variables with `CONFIG_`
// prefix or config.yml file placed in working directory.
// See https://github.com/sherifabdlnaby/configuro.
type Config struct {
	Logging   Logging
	Storage   Storage
	Database  Database
	Binance   Binance
	Ingestion Ingestion
	Schedule  Schedule
	PubSub    PubSub
}

type Logging struct {
	Level  string
	Format string
}

type Storage struct {
	// Backend selects the candle repository: parquet, postgres or inmem.
	Backend string
	// Dir is the data directory of the parquet backend.
	Dir string
}

type Database struct {
	Address      string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MigrationDir string
}

type Binance struct {
	BaseURL string
}

type Ingestion struct {
	Symbols          []string
	Intervals        []string
	Depths           map[string]time.Duration
	DefaultDepth     time.Duration
	RefreshThreshold time.Duration
	RetryAttempts    int
	RetryBackoffStep time.Duration
	PageLimit        int
	PagePause        time.Duration
	PairPause        time.Duration
}

type Schedule struct {
	// Cron is the sweep schedule; empty means a single sweep and exit.
	Cron       string
	RunOnStart bool
}

type PubSub struct {
	ProjectID string
	TopicID   string
}

func readConfig() (*Config, error) {
	loader, err := configuro.NewConfig()
	if err != nil {
		return nil, err
	}

	// Default config values.
	config := &Config{
		Logging: Logging{
			Level: "info",
		},
		Storage: Storage{
			Backend: "parquet",
			Dir:     "data/ohlcv",
		},
		Database: Database{
			Address:  "localhost:5432",
			User:     "postgres",
			Password: "postgres",
			Name:     "postgres",
			SSLMode:  "disable",
		},
		Ingestion: Ingestion{
			Symbols: []string{
				"BTCUSDT",
				"ETHUSDT",
				"SOLUSDT",
				"BNBUSDT",
				"LTCUSDT",
				"QNTUSDT",
			},
			Intervals: []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d"},
			Depths: map[string]time.Duration{
				"1m":  30 * 24 * time.Hour,
				"5m":  90 * 24 * time.Hour,
				"15m": 180 * 24 * time.Hour,
				"30m": 180 * 24 * time.Hour,
				"1h":  365 * 24 * time.Hour,
				"4h":  2 * 365 * 24 * time.Hour,
				"1d":  3 * 365 * 24 * time.Hour,
			},
			DefaultDepth:     24 * time.Hour,
			RefreshThreshold: 12 * time.Hour,
			RetryAttempts:    4,
			RetryBackoffStep: 1500 * time.Millisecond,
			PageLimit:        1000,
			PagePause:        150 * time.Millisecond,
			PairPause:        500 * time.Millisecond,
		},
	}

	err = loader.Load(config)
	if err != nil {
		return nil, err
	}

	err = loader.Validate(config)
	if err != nil {
		return nil, err
	}

	return config, nil
}
