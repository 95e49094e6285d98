package repo

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

type Config struct {
	RepoRoot string  `mapstructure:"-" toml:"-"`
	DialUrl  string  `mapstructure:"dial_url" toml:"dial_url"`
	Log      Log     `mapstructure:"log" toml:"log"`
	Token    Token   `mapstructure:"token" toml:"token"`
	Funding  Funding `mapstructure:"funding" toml:"funding"`
	Storage  Storage `mapstructure:"storage" toml:"storage"`
	Keeper   Keeper  `mapstructure:"keeper" toml:"keeper"`
	Metrics  Metrics `mapstructure:"metrics" toml:"metrics"`
}

type Log struct {
	Level        string        `mapstructure:"level" toml:"level"`
	Filename     string        `mapstructure:"filename" toml:"filename"`
	ReportCaller bool          `mapstructure:"report_caller" toml:"report_caller"`
	MaxAge       time.Duration `mapstructure:"max_age" toml:"max_age"`
	RotationTime time.Duration `mapstructure:"rotation_time" toml:"rotation_time"`
}

type Token struct {
	// governance token contract holding the treasury
	Address string `mapstructure:"address" toml:"address"`
	// hex private key of the custody account, transactions are signed with it
	PrivateKey string `mapstructure:"private_key" toml:"private_key"`
	ChainID    uint64 `mapstructure:"chain_id" toml:"chain_id"`
}

// Funding holds the protocol constants, lengths are in blocks.
type Funding struct {
	DistributionPeriodLength uint64 `mapstructure:"distribution_period_length" toml:"distribution_period_length"`
	FundingPeriodLength      uint64 `mapstructure:"funding_period_length" toml:"funding_period_length"`
	ChallengePeriodLength    uint64 `mapstructure:"challenge_period_length" toml:"challenge_period_length"`
	SnapshotDelay            uint64 `mapstructure:"snapshot_delay" toml:"snapshot_delay"`
	MaxExtraordinaryLength   uint64 `mapstructure:"max_extraordinary_length" toml:"max_extraordinary_length"`
	// share of the treasury each distribution period reserves, in basis points
	GlobalBudgetConstraintBps uint64 `mapstructure:"global_budget_constraint_bps" toml:"global_budget_constraint_bps"`
}

type Storage struct {
	Dir string `mapstructure:"dir" toml:"dir"`
}

type Keeper struct {
	Enable bool `mapstructure:"enable" toml:"enable"`
	// start the next distribution period as soon as the current one ended
	AutoStartPeriod   bool          `mapstructure:"auto_start_period" toml:"auto_start_period"`
	ReconnectAttempts uint          `mapstructure:"reconnect_attempts" toml:"reconnect_attempts"`
	ReconnectBackoff  time.Duration `mapstructure:"reconnect_backoff" toml:"reconnect_backoff"`
}

type Metrics struct {
	Enable     bool   `mapstructure:"enable" toml:"enable"`
	ListenAddr string `mapstructure:"listen_addr" toml:"listen_addr"`
}

func DefaultConfig(repoRoot string) *Config {
	return &Config{
		RepoRoot: repoRoot,
		DialUrl:  "ws://localhost:8546",
		Log: Log{
			Level:        "info",
			Filename:     "grants.log",
			ReportCaller: false,
			MaxAge:       30 * 24 * time.Hour,
			RotationTime: 24 * time.Hour,
		},
		Token: Token{
			Address: "0x0000000000000000000000000000000000000000",
			ChainID: 1,
		},
		Funding: Funding{
			DistributionPeriodLength:  648_000,
			FundingPeriodLength:       72_000,
			ChallengePeriodLength:     50_400,
			SnapshotDelay:             33,
			MaxExtraordinaryLength:    216_000,
			GlobalBudgetConstraintBps: 300,
		},
		Storage: Storage{
			Dir: "leveldb",
		},
		Keeper: Keeper{
			Enable:            true,
			AutoStartPeriod:   false,
			ReconnectAttempts: 5,
			ReconnectBackoff:  5 * time.Second,
		},
		Metrics: Metrics{
			Enable:     true,
			ListenAddr: "127.0.0.1:9100",
		},
	}
}

// Validate rejects configs the daemon cannot run with.
func (c *Config) Validate() error {
	if c.DialUrl == "" {
		return errors.New("dial_url must not be empty")
	}
	if !common.IsHexAddress(c.Token.Address) {
		return errors.Errorf("token.address %q is not a hex address", c.Token.Address)
	}
	if c.Funding.GlobalBudgetConstraintBps == 0 || c.Funding.GlobalBudgetConstraintBps > 10_000 {
		return errors.Errorf("funding.global_budget_constraint_bps %d must be within 1 and 10000", c.Funding.GlobalBudgetConstraintBps)
	}
	if c.Funding.FundingPeriodLength >= c.Funding.DistributionPeriodLength {
		return errors.New("funding.funding_period_length must be shorter than the distribution period")
	}
	if c.Metrics.Enable && c.Metrics.ListenAddr == "" {
		return errors.New("metrics.listen_addr must be set when metrics are enabled")
	}
	return nil
}
