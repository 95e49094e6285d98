package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FundingVote allocates quadratically priced votes among the screened
// proposals of the current period. Positive votes support funding, negative
// votes oppose it. Returns the voting power the call consumed.
func (f *GrantFund) FundingVote(ctx context.Context, account common.Address, votes []FundingVoteParams) (*big.Int, error) {
	if len(votes) == 0 {
		return nil, errors.Wrap(ErrInvalidVote, "no votes")
	}
	var spent *big.Int
	err := f.update(ctx, "funding_vote", func(s *state) error {
		dp, err := currentPeriod(s)
		if err != nil {
			return err
		}
		screeningEnd := f.params.screeningStageEndBlock(dp.EndBlock)
		if s.block <= screeningEnd || s.block > dp.EndBlock {
			return errors.Wrapf(ErrInvalidVote, "funding stage of distribution %d is blocks %d to %d", dp.ID, screeningEnd+1, dp.EndBlock)
		}
		topTen, err := s.topTen(dp.ID)
		if err != nil {
			return err
		}

		voter, err := s.voter(dp.ID, account)
		if err != nil {
			return err
		}
		if voter.FundingVotingPower.Sign() == 0 {
			power, err := f.fundingPower(ctx, account, screeningEnd, s.block)
			if err != nil {
				return err
			}
			voter.FundingVotingPower = power
			voter.FundingRemainingVotingPower = new(big.Int).Set(power)
		}
		startUsed := voter.UsedFundingPower()

		for _, v := range votes {
			if v.VotesUsed == nil || v.VotesUsed.Sign() == 0 {
				return errors.Wrapf(ErrInvalidVote, "funding votes on %s must not be zero", v.ProposalID.Hex())
			}
			if !containsHash(topTen, v.ProposalID) {
				return errors.Wrapf(ErrInvalidVote, "proposal %s was not screened into distribution %d", v.ProposalID.Hex(), dp.ID)
			}
			p, err := s.standardProposal(v.ProposalID)
			if err != nil {
				return err
			}
			if err := castFundingVote(voter, v); err != nil {
				return err
			}
			p.FundingVotesReceived.Add(p.FundingVotesReceived, v.VotesUsed)
			if err := s.putStandardProposal(p); err != nil {
				return err
			}

			support := uint8(1)
			if v.VotesUsed.Sign() < 0 {
				support = 0
			}
			s.emit(EventVoteCast, VoteCastEvent{
				Voter:      account,
				ProposalID: p.ProposalID,
				Mechanism:  Standard,
				Support:    support,
				Weight:     new(big.Int).Abs(v.VotesUsed),
				Stage:      StageFunding,
			})
		}

		spent = sub(voter.UsedFundingPower(), startUsed)
		dp.FundingVotePowerCast.Add(dp.FundingVotePowerCast, spent)
		if err := s.putDistribution(dp); err != nil {
			return err
		}
		f.logger.WithFields(logrus.Fields{"distribution_id": dp.ID, "voter": account.Hex()}).Debugf("funding power %s of %s remaining", voter.FundingRemainingVotingPower, voter.FundingVotingPower)
		return s.putVoter(dp.ID, account, voter)
	})
	if err != nil {
		return nil, err
	}
	return spent, nil
}

// castFundingVote folds v into the voter's allocation and reprices it.
func castFundingVote(voter *Voter, v FundingVoteParams) error {
	if i := voter.voteIndex(v.ProposalID); i >= 0 {
		prev := voter.VotesCast[i].VotesUsed
		if prev.Sign() != v.VotesUsed.Sign() {
			return errors.Wrapf(ErrFundingVoteWrongDirection, "proposal %s already has %s votes", v.ProposalID.Hex(), prev)
		}
		voter.VotesCast[i].VotesUsed = add(prev, v.VotesUsed)
	} else {
		voter.VotesCast = append(voter.VotesCast, FundingVoteParams{
			ProposalID: v.ProposalID,
			VotesUsed:  new(big.Int).Set(v.VotesUsed),
		})
	}

	cost := fundingCost(voter.VotesCast)
	if cost.Cmp(voter.FundingVotingPower) > 0 {
		return errors.Wrapf(ErrInsufficientVotingPower, "funding votes cost %s of power %s", cost, voter.FundingVotingPower)
	}
	voter.FundingRemainingVotingPower = sub(voter.FundingVotingPower, cost)
	return nil
}

// fundingCost is the quadratic price of a set of allocations.
func fundingCost(votes []FundingVoteParams) *big.Int {
	cost := new(big.Int)
	for _, v := range votes {
		cost.Add(cost, wsquare(v.VotesUsed))
	}
	return cost
}

// fundingPower squares the screening end snapshot of account's votes.
func (f *GrantFund) fundingPower(ctx context.Context, account common.Address, screeningEnd, block uint64) (*big.Int, error) {
	power, err := f.oracle.AtStageStart(ctx, account, screeningEnd, block)
	if err != nil {
		return nil, err
	}
	if power.Sign() == 0 {
		return nil, errors.Wrapf(ErrInsufficientVotingPower, "%s had no votes at block %d", account.Hex(), screeningEnd)
	}
	return wsquare(power), nil
}

// VotesFunding returns the funding power account has left in a period, or
// the power it would start with if it has not voted yet.
func (f *GrantFund) VotesFunding(ctx context.Context, distributionID uint64, account common.Address) (*big.Int, error) {
	var power *big.Int
	err := f.view(ctx, func(s *state) error {
		dp, err := s.distribution(distributionID)
		if err != nil {
			return err
		}
		voter, err := s.voter(distributionID, account)
		if err != nil {
			return err
		}
		if voter.FundingVotingPower.Sign() != 0 {
			power = voter.FundingRemainingVotingPower
			return nil
		}
		screeningEnd := f.params.screeningStageEndBlock(dp.EndBlock)
		if s.block <= screeningEnd {
			power = new(big.Int)
			return nil
		}
		p, err := f.oracle.AtStageStart(ctx, account, screeningEnd, s.block)
		if err != nil {
			return err
		}
		power = wsquare(p)
		return nil
	})
	return power, err
}

// VoterInfo returns account's participation record in a period.
func (f *GrantFund) VoterInfo(ctx context.Context, distributionID uint64, account common.Address) (*Voter, error) {
	var voter *Voter
	err := f.view(ctx, func(s *state) error {
		if _, err := s.distribution(distributionID); err != nil {
			return err
		}
		var err error
		voter, err = s.voter(distributionID, account)
		return err
	})
	return voter, err
}

// FundingVotesCast returns the funding allocations of account in a period.
func (f *GrantFund) FundingVotesCast(ctx context.Context, distributionID uint64, account common.Address) ([]FundingVoteParams, error) {
	voter, err := f.VoterInfo(ctx, distributionID, account)
	if err != nil {
		return nil, err
	}
	return voter.VotesCast, nil
}
