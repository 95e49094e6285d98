package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// StartNewDistributionPeriod opens the next distribution period once the
// previous one has ended and returns its id. Surplus of the last two periods
// is returned to the treasury first, then the new budget is reserved.
func (f *GrantFund) StartNewDistributionPeriod(ctx context.Context) (uint64, error) {
	var id uint64
	err := f.update(ctx, "start_distribution", func(s *state) (err error) {
		id, err = f.startNewDistributionPeriod(s)
		return err
	})
	return id, err
}

func (f *GrantFund) startNewDistributionPeriod(s *state) (uint64, error) {
	currentID := s.currentDistributionID()
	if currentID > 0 {
		current, err := s.distribution(currentID)
		if err != nil {
			return 0, err
		}
		if s.block <= current.EndBlock {
			return 0, errors.Wrapf(ErrPeriodStillActive, "distribution %d ends at block %d", currentID, current.EndBlock)
		}
		if s.block > f.params.challengeStageEndBlock(current.EndBlock) && !current.SurplusReturned {
			if err := f.returnSurplus(s, current); err != nil {
				return 0, err
			}
		}
	}
	if currentID > 1 {
		previous, err := s.distribution(currentID - 1)
		if err != nil {
			return 0, err
		}
		if !previous.SurplusReturned {
			if err := f.returnSurplus(s, previous); err != nil {
				return 0, err
			}
		}
	}

	t := s.treasury()
	balance, err := t.Balance()
	if err != nil {
		return 0, err
	}
	budget := wmul(balance, f.params.GlobalBudgetConstraint)
	if err := t.Reserve(budget); err != nil {
		return 0, err
	}

	dp := &DistributionPeriod{
		ID:                   currentID + 1,
		StartBlock:           s.block,
		EndBlock:             s.block + f.params.DistributionPeriodLength,
		FundsAvailable:       budget,
		FundingVotePowerCast: new(big.Int),
	}
	if err := s.putDistribution(dp); err != nil {
		return 0, err
	}
	s.setCurrentDistributionID(dp.ID)
	s.emit(EventDistributionPeriodStarted, DistributionPeriodStartedEvent{
		DistributionID: dp.ID,
		StartBlock:     dp.StartBlock,
		EndBlock:       dp.EndBlock,
		FundsAvailable: new(big.Int).Set(budget),
	})
	return dp.ID, nil
}

// returnSurplus credits the part of a closed period's budget that neither the
// funded slate nor the delegate reward pool can claim.
func (f *GrantFund) returnSurplus(s *state, dp *DistributionPeriod) error {
	slate, err := s.slate(dp.FundedSlateHash)
	if err != nil {
		return err
	}
	distributed := new(big.Int)
	for _, id := range slate {
		p, err := s.standardProposal(id)
		if err != nil {
			return err
		}
		distributed.Add(distributed, p.TokensRequested)
	}
	surplus := sub(dp.FundsAvailable, distributed)
	surplus.Sub(surplus, rewardPool(dp))
	if surplus.Sign() < 0 {
		return errors.Errorf("distribution %d allocated %s of %s", dp.ID, distributed, dp.FundsAvailable)
	}
	if err := s.treasury().Return(surplus); err != nil {
		return err
	}
	dp.SurplusReturned = true
	f.logger.WithField("distribution_id", dp.ID).Infof("returned surplus %s to treasury", surplus)
	return s.putDistribution(dp)
}

// rewardPool is the share of a period's budget owed to delegates, non-zero
// only if funding power was spent.
func rewardPool(dp *DistributionPeriod) *big.Int {
	if dp.FundingVotePowerCast.Sign() == 0 {
		return new(big.Int)
	}
	return tenth(dp.FundsAvailable)
}

// currentPeriod loads the latest period, failing if none was started.
func currentPeriod(s *state) (*DistributionPeriod, error) {
	dp, err := s.currentDistribution()
	if err != nil {
		return nil, err
	}
	if dp == nil {
		return nil, errors.Wrap(ErrDistributionNotFound, "no distribution period started")
	}
	return dp, nil
}

// CurrentDistributionID returns the latest period id, 0 if none was started.
func (f *GrantFund) CurrentDistributionID(ctx context.Context) (uint64, error) {
	var id uint64
	err := f.view(ctx, func(s *state) error {
		id = s.currentDistributionID()
		return nil
	})
	return id, err
}

func (f *GrantFund) DistributionPeriodInfo(ctx context.Context, distributionID uint64) (*DistributionPeriod, error) {
	var dp *DistributionPeriod
	err := f.view(ctx, func(s *state) (err error) {
		dp, err = s.distribution(distributionID)
		return err
	})
	return dp, err
}

// Stage returns the stage of a period at the current block.
func (f *GrantFund) Stage(ctx context.Context, distributionID uint64) (Stage, error) {
	var stage Stage
	err := f.view(ctx, func(s *state) error {
		dp, err := s.distribution(distributionID)
		if err != nil {
			return err
		}
		stage = f.params.StageAt(dp, s.block)
		return nil
	})
	return stage, err
}

func (f *GrantFund) ScreeningStageEndBlock(endBlock uint64) uint64 {
	return f.params.screeningStageEndBlock(endBlock)
}

func (f *GrantFund) ChallengeStageStartBlock(endBlock uint64) uint64 {
	return endBlock + 1
}

func (f *GrantFund) ChallengeStageEndBlock(endBlock uint64) uint64 {
	return f.params.challengeStageEndBlock(endBlock)
}

// TopTenProposals returns the screened proposals of a period ranked by votes.
func (f *GrantFund) TopTenProposals(ctx context.Context, distributionID uint64) ([]common.Hash, error) {
	var list []common.Hash
	err := f.view(ctx, func(s *state) (err error) {
		list, err = s.topTen(distributionID)
		return err
	})
	return list, err
}
