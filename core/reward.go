package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// delegateReward is account's share of the period's reward pool, pro rata to
// the funding power it spent.
func delegateReward(dp *DistributionPeriod, voter *Voter) *big.Int {
	if dp.FundingVotePowerCast.Sign() == 0 {
		return new(big.Int)
	}
	share := wdiv(wmul(dp.FundsAvailable, voter.UsedFundingPower()), dp.FundingVotePowerCast)
	return tenth(share)
}

// ClaimDelegateReward pays account its delegate reward for a period whose
// challenge stage has ended.
func (f *GrantFund) ClaimDelegateReward(ctx context.Context, account common.Address, distributionID uint64) (*big.Int, error) {
	var (
		reward *big.Int
		evt    Event
	)
	err := f.update(ctx, "claim_delegate_reward", func(s *state) error {
		dp, err := s.distribution(distributionID)
		if err != nil {
			return err
		}
		if s.block <= f.params.challengeStageEndBlock(dp.EndBlock) {
			return errors.Wrapf(ErrChallengePeriodNotEnded, "challenge stage of distribution %d ends at block %d", dp.ID, f.params.challengeStageEndBlock(dp.EndBlock))
		}
		voter, err := s.voter(dp.ID, account)
		if err != nil {
			return err
		}
		if voter.RewardClaimed {
			return errors.Wrapf(ErrRewardAlreadyClaimed, "%s in distribution %d", account.Hex(), dp.ID)
		}
		if voter.ScreeningVotesCast.Sign() == 0 {
			return errors.Wrapf(ErrDelegateRewardInvalid, "%s cast no screening votes in distribution %d", account.Hex(), dp.ID)
		}
		reward = delegateReward(dp, voter)
		voter.RewardClaimed = true
		if reward.Sign() == 0 {
			// spent no funding power: the claim is settled with nothing to pay
			return s.putVoter(dp.ID, account, voter)
		}

		evt = Event{Type: EventDelegateRewardClaimed, Block: s.block, Data: DelegateRewardClaimedEvent{
			Delegatee:      account,
			DistributionID: dp.ID,
			RewardClaimed:  new(big.Int).Set(reward),
		}}
		return s.putVoter(dp.ID, account, voter)
	})
	if err != nil {
		return nil, err
	}
	if reward.Sign() == 0 {
		return reward, nil
	}

	err = f.settle(ctx, "claim_delegate_reward", []payout{{to: account, amount: reward}}, evt, func(s *state) error {
		voter, err := s.voter(distributionID, account)
		if err != nil {
			return err
		}
		voter.RewardClaimed = false
		return s.putVoter(distributionID, account, voter)
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// DelegateReward returns the reward account earns in a period, whether or
// not it was claimed.
func (f *GrantFund) DelegateReward(ctx context.Context, distributionID uint64, account common.Address) (*big.Int, error) {
	var reward *big.Int
	err := f.view(ctx, func(s *state) error {
		dp, err := s.distribution(distributionID)
		if err != nil {
			return err
		}
		voter, err := s.voter(distributionID, account)
		if err != nil {
			return err
		}
		reward = delegateReward(dp, voter)
		return nil
	})
	return reward, err
}
