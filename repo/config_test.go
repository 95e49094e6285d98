package repo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGeneratesDefaultConfig(t *testing.T) {
	tempDir := t.TempDir()

	r, err := Load(tempDir)
	require.Nil(t, err)
	assert.Equal(t, DefaultConfig(tempDir), r.Config)
	assert.True(t, Exist(filepath.Join(tempDir, cfgFileName)))
	assert.Equal(t, filepath.Join(tempDir, "leveldb"), r.StoragePath())
}

func TestLoadWithEnv(t *testing.T) {
	tempDir := t.TempDir()

	_, err := Load(tempDir)
	require.Nil(t, err)

	t.Setenv("GRANTS_DIAL_URL", "ws://10.0.0.1:8546")
	t.Setenv("GRANTS_FUNDING_GLOBAL_BUDGET_CONSTRAINT_BPS", "200")
	t.Setenv("GRANTS_KEEPER_RECONNECT_BACKOFF", "2s")

	r, err := Load(tempDir)
	require.Nil(t, err)
	assert.Equal(t, "ws://10.0.0.1:8546", r.Config.DialUrl)
	assert.EqualValues(t, 200, r.Config.Funding.GlobalBudgetConstraintBps)
	assert.Equal(t, 2*time.Second, r.Config.Keeper.ReconnectBackoff)

	require.Nil(t, r.Flush())
	raw, err := os.ReadFile(filepath.Join(tempDir, cfgFileName))
	require.Nil(t, err)
	assert.Contains(t, string(raw), "ws://10.0.0.1:8546")
}

func TestLoadRepoRootFromEnv(t *testing.T) {
	root, err := LoadRepoRootFromEnv("/tmp/grants")
	require.Nil(t, err)
	assert.Equal(t, "/tmp/grants", root)

	t.Setenv(rootPathEnvVar, "/var/lib/grants")
	root, err = LoadRepoRootFromEnv("")
	require.Nil(t, err)
	assert.Equal(t, "/var/lib/grants", root)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"empty dial url", func(c *Config) { c.DialUrl = "" }},
		{"bad token address", func(c *Config) { c.Token.Address = "grants" }},
		{"zero budget", func(c *Config) { c.Funding.GlobalBudgetConstraintBps = 0 }},
		{"budget above 100%", func(c *Config) { c.Funding.GlobalBudgetConstraintBps = 10_001 }},
		{"no screening stage", func(c *Config) { c.Funding.FundingPeriodLength = c.Funding.DistributionPeriodLength }},
		{"metrics without address", func(c *Config) { c.Metrics.ListenAddr = "" }},
	}

	assert.Nil(t, DefaultConfig(t.TempDir()).Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig(t.TempDir())
			tt.modify(c)
			assert.NotNil(t, c.Validate())
		})
	}
}

func TestMarshalConfig(t *testing.T) {
	raw, err := MarshalConfig(DefaultConfig(t.TempDir()))
	require.Nil(t, err)
	assert.Contains(t, raw, "[funding]")
	assert.Contains(t, raw, "global_budget_constraint_bps = 300")
	assert.NotContains(t, raw, "RepoRoot")
}
