package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "public", cfg.Warehouse.Schema)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.InDelta(t, 1.15, cfg.Retrieval.DistanceRatio, 1e-9)
	assert.Equal(t, 5, cfg.Retrieval.SmallSchemaTables)
	assert.Equal(t, 2, cfg.Synthesis.MaxAttempts)
	assert.Equal(t, "openai", cfg.LLM.Provider)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ANALYST_WAREHOUSE_SCHEMA", "northwind")
	t.Setenv("ANALYST_RETRIEVAL_TOP_K", "4")
	t.Setenv("ANALYST_LLM_PROVIDER", "ollama")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "northwind", cfg.Warehouse.Schema)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, "ollama", cfg.LLM.Provider)
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad provider", func(c *Config) { c.LLM.Provider = "markov-chain" }},
		{"bad timeout", func(c *Config) { c.Warehouse.QueryTimeout = "soon" }},
		{"zero top_k", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"ratio below one", func(c *Config) { c.Retrieval.DistanceRatio = 0.5 }},
		{"zero attempts", func(c *Config) { c.Synthesis.MaxAttempts = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig()
			require.NoError(t, err)

			tt.mutate(cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}
}

func TestConnString(t *testing.T) {
	wh := WarehouseConfig{
		Host: "h", Port: 5439, Database: "dev", User: "u", Password: "p", SSLMode: "require",
	}
	assert.Equal(t,
		"host=h port=5439 dbname=dev user=u password=p sslmode=require",
		wh.ConnString())

	wh.DSN = "postgres://u:p@h:5439/dev"
	assert.Equal(t, "postgres://u:p@h:5439/dev", wh.ConnString())
}

func TestQueryTimeoutDuration(t *testing.T) {
	wh := WarehouseConfig{QueryTimeout: "90s"}
	assert.Equal(t, 90*time.Second, wh.QueryTimeoutDuration())

	wh.QueryTimeout = "bogus"
	assert.Equal(t, 60*time.Second, wh.QueryTimeoutDuration())
}
