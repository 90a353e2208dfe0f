// Package config holds the tool's configuration, loadable from YAML or
// JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quantlab/hindsight/strategy"
)

// Config is the complete tool configuration.
type Config struct {
	Data     DataConfig     `json:"data" yaml:"data"`
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis"`
	Backtest BacktestConfig `json:"backtest" yaml:"backtest"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Fetch    FetchConfig    `json:"fetch" yaml:"fetch"`
}

// DataConfig locates the on-disk market data store.
type DataConfig struct {
	Dir string `json:"dir" yaml:"dir"`
}

// AnalysisConfig sets the default indicator sweep.
type AnalysisConfig struct {
	Lookbacks []int `json:"lookbacks" yaml:"lookbacks"`
}

// BacktestConfig carries the backtest conventions.
type BacktestConfig struct {
	System        string             `json:"system" yaml:"system"`
	Params        map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
	InitialEquity float64            `json:"initial_equity" yaml:"initial_equity"`
	RiskFreeRate  float64            `json:"risk_free_rate" yaml:"risk_free_rate"`
}

// JournalConfig selects where runs are recorded.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv" or "sqlite"
	RunsFile   string `json:"runs_file,omitempty" yaml:"runs_file,omitempty"`
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// FetchConfig tunes the market data fetcher and its refresh schedule.
type FetchConfig struct {
	BaseURL  string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	MaxTries int    `json:"max_tries" yaml:"max_tries"`
	Cron     string `json:"cron,omitempty" yaml:"cron,omitempty"`
}

// LoadFromFile loads configuration from a file, YAML first with a JSON
// fallback.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file, YAML or JSON by extension.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}
	if len(c.Analysis.Lookbacks) == 0 {
		return fmt.Errorf("analysis.lookbacks must not be empty")
	}
	for _, n := range c.Analysis.Lookbacks {
		if n < 2 {
			return fmt.Errorf("analysis.lookbacks must all be at least 2, got %d", n)
		}
	}
	if c.Backtest.System == "" {
		return fmt.Errorf("backtest.system is required")
	}
	if _, err := strategy.New(c.Backtest.System, c.Backtest.Params); err != nil {
		return fmt.Errorf("backtest.system: %w", err)
	}
	if c.Backtest.InitialEquity <= 0 {
		return fmt.Errorf("backtest.initial_equity must be positive")
	}
	if c.Backtest.RiskFreeRate < 0 || c.Backtest.RiskFreeRate >= 1 {
		return fmt.Errorf("backtest.risk_free_rate must be in [0, 1)")
	}
	if c.Journal.Type != "csv" && c.Journal.Type != "sqlite" {
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	if c.Journal.Type == "csv" &&
		(c.Journal.RunsFile == "" || c.Journal.TradesFile == "" || c.Journal.EquityFile == "") {
		return fmt.Errorf("journal runs_file, trades_file and equity_file required for CSV type")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal db_path required for SQLite type")
	}
	if c.Fetch.MaxTries < 1 {
		return fmt.Errorf("fetch.max_tries must be at least 1")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dir: "./marketdata",
		},
		Analysis: AnalysisConfig{
			Lookbacks: []int{25, 50, 100, 200, 350},
		},
		Backtest: BacktestConfig{
			System:        "dualma",
			InitialEquity: 10000,
			RiskFreeRate:  0.05,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./hindsight.db",
		},
		Fetch: FetchConfig{
			MaxTries: 5,
			Cron:     "0 30 17 * * MON-FRI",
		},
	}
}
