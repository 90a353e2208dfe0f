package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestRoundTripYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Backtest.System = "turtles2"
	cfg.Backtest.Params = map[string]float64{"entry": 55, "exit": 20}
	require.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "turtles2", got.Backtest.System)
	assert.InDelta(t, 55, got.Backtest.Params["entry"], 1e-9)
	assert.Equal(t, cfg.Analysis.Lookbacks, got.Analysis.Lookbacks)
}

func TestRoundTripJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	require.NoError(t, cfg.SaveToFile(path))

	got, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Journal.Type, got.Journal.Type)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing data dir", func(c *Config) { c.Data.Dir = "" }},
		{"empty lookbacks", func(c *Config) { c.Analysis.Lookbacks = nil }},
		{"lookback too small", func(c *Config) { c.Analysis.Lookbacks = []int{1} }},
		{"unknown system", func(c *Config) { c.Backtest.System = "astrology" }},
		{"bad system params", func(c *Config) {
			c.Backtest.System = "dualma"
			c.Backtest.Params = map[string]float64{"fast": 300, "slow": 20}
		}},
		{"bad equity", func(c *Config) { c.Backtest.InitialEquity = 0 }},
		{"bad rfr", func(c *Config) { c.Backtest.RiskFreeRate = 1.5 }},
		{"bad journal type", func(c *Config) { c.Journal.Type = "parchment" }},
		{"csv journal without files", func(c *Config) {
			c.Journal.Type = "csv"
			c.Journal.DBPath = ""
		}},
		{"sqlite journal without path", func(c *Config) { c.Journal.DBPath = "" }},
		{"bad max tries", func(c *Config) { c.Fetch.MaxTries = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
