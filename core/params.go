package core

import (
	"math/big"

	"github.com/axiomesh/grants/repo"
	"github.com/pkg/errors"
)

// Params are the protocol constants of the funding mechanisms, expressed in
// blocks and wads.
type Params struct {
	DistributionPeriodLength uint64
	FundingPeriodLength      uint64
	ChallengePeriodLength    uint64

	// SnapshotDelay is how many blocks before a stage start the second
	// voting power sample is taken
	SnapshotDelay uint64

	MaxExtraordinaryLength uint64

	// GlobalBudgetConstraint is the share of the treasury reserved by each
	// distribution period, as a wad
	GlobalBudgetConstraint *big.Int
}

func DefaultParams() Params {
	return Params{
		DistributionPeriodLength: 648_000,
		FundingPeriodLength:      72_000,
		ChallengePeriodLength:    50_400,
		SnapshotDelay:            33,
		MaxExtraordinaryLength:   216_000,
		GlobalBudgetConstraint:   percent(3),
	}
}

// ParamsFromConfig converts the funding section of the repo config.
func ParamsFromConfig(c repo.Funding) Params {
	bps := new(big.Int).SetUint64(c.GlobalBudgetConstraintBps)
	return Params{
		DistributionPeriodLength: c.DistributionPeriodLength,
		FundingPeriodLength:      c.FundingPeriodLength,
		ChallengePeriodLength:    c.ChallengePeriodLength,
		SnapshotDelay:            c.SnapshotDelay,
		MaxExtraordinaryLength:   c.MaxExtraordinaryLength,
		GlobalBudgetConstraint:   bps.Mul(bps, big.NewInt(1e14)),
	}
}

func (p Params) Validate() error {
	switch {
	case p.DistributionPeriodLength == 0:
		return errors.New("distribution period length must not be 0")
	case p.FundingPeriodLength == 0:
		return errors.New("funding period length must not be 0")
	case p.FundingPeriodLength >= p.DistributionPeriodLength:
		return errors.Errorf("funding period length %d leaves no screening stage in a %d block period", p.FundingPeriodLength, p.DistributionPeriodLength)
	case p.ChallengePeriodLength == 0:
		return errors.New("challenge period length must not be 0")
	case p.MaxExtraordinaryLength == 0:
		return errors.New("max extraordinary proposal length must not be 0")
	case p.GlobalBudgetConstraint == nil || p.GlobalBudgetConstraint.Sign() <= 0:
		return errors.New("global budget constraint must be positive")
	case p.GlobalBudgetConstraint.Cmp(wad) > 0:
		return errors.New("global budget constraint must not exceed 100%")
	}
	return nil
}

func (p Params) screeningStageEndBlock(endBlock uint64) uint64 {
	return endBlock - p.FundingPeriodLength
}

func (p Params) challengeStageEndBlock(endBlock uint64) uint64 {
	return endBlock + p.ChallengePeriodLength
}

// StageAt derives the stage of a period from the block height alone.
func (p Params) StageAt(d *DistributionPeriod, block uint64) Stage {
	switch {
	case block <= p.screeningStageEndBlock(d.EndBlock):
		return StageScreening
	case block <= d.EndBlock:
		return StageFunding
	case block <= p.challengeStageEndBlock(d.EndBlock):
		return StageChallenge
	default:
		return StageClosed
	}
}
