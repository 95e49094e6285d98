package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ScreeningVote casts linear votes on proposals of the current period. The
// votes an account casts over the whole screening stage are capped by its
// voting power at the period start.
func (f *GrantFund) ScreeningVote(ctx context.Context, account common.Address, votes []ScreeningVoteParams) (*big.Int, error) {
	if len(votes) == 0 {
		return nil, errors.Wrap(ErrInvalidVote, "no votes")
	}
	var cast *big.Int
	err := f.update(ctx, "screening_vote", func(s *state) error {
		dp, err := currentPeriod(s)
		if err != nil {
			return err
		}
		if s.block > f.params.screeningStageEndBlock(dp.EndBlock) {
			return errors.Wrapf(ErrScreeningPeriodEnded, "screening of distribution %d ended at block %d", dp.ID, f.params.screeningStageEndBlock(dp.EndBlock))
		}

		voter, err := s.voter(dp.ID, account)
		if err != nil {
			return err
		}
		ceiling, err := f.oracle.AtStageStart(ctx, account, dp.StartBlock, s.block)
		if err != nil {
			return err
		}
		ranking, err := loadRanking(s, dp.ID)
		if err != nil {
			return err
		}

		cast = new(big.Int)
		for _, v := range votes {
			if v.Votes == nil || v.Votes.Sign() <= 0 {
				return errors.Wrapf(ErrInvalidVote, "screening votes on %s must be positive", v.ProposalID.Hex())
			}
			p, err := s.standardProposal(v.ProposalID)
			if err != nil {
				return errors.Wrapf(ErrInvalidVote, "%s", err)
			}
			if p.DistributionID != dp.ID {
				return errors.Wrapf(ErrInvalidVote, "proposal %s belongs to distribution %d", p.ProposalID.Hex(), p.DistributionID)
			}

			voter.ScreeningVotesCast.Add(voter.ScreeningVotesCast, v.Votes)
			if voter.ScreeningVotesCast.Cmp(ceiling) > 0 {
				return errors.Wrapf(ErrInsufficientVotingPower, "screening votes %s exceed power %s", voter.ScreeningVotesCast, ceiling)
			}
			p.VotesReceived.Add(p.VotesReceived, v.Votes)
			if err := s.putStandardProposal(p); err != nil {
				return err
			}
			ranking = rankProposal(ranking, p.ProposalID, new(big.Int).Set(p.VotesReceived))
			cast.Add(cast, v.Votes)

			s.emit(EventVoteCast, VoteCastEvent{
				Voter:      account,
				ProposalID: p.ProposalID,
				Mechanism:  Standard,
				Support:    1,
				Weight:     new(big.Int).Set(v.Votes),
				Stage:      StageScreening,
			})
		}

		if err := storeRanking(s, dp.ID, ranking); err != nil {
			return err
		}
		f.logger.WithFields(logrus.Fields{"distribution_id": dp.ID, "voter": account.Hex()}).Debugf("screening votes %s of %s used", voter.ScreeningVotesCast, ceiling)
		return s.putVoter(dp.ID, account, voter)
	})
	if err != nil {
		return nil, err
	}
	return cast, nil
}

// VotesScreening returns the screening voting power of account in a period.
func (f *GrantFund) VotesScreening(ctx context.Context, distributionID uint64, account common.Address) (*big.Int, error) {
	var power *big.Int
	err := f.view(ctx, func(s *state) error {
		dp, err := s.distribution(distributionID)
		if err != nil {
			return err
		}
		power, err = f.oracle.AtStageStart(ctx, account, dp.StartBlock, s.block)
		return err
	})
	return power, err
}

// ScreeningVotesCast returns the screening votes account used in a period.
func (f *GrantFund) ScreeningVotesCast(ctx context.Context, distributionID uint64, account common.Address) (*big.Int, error) {
	var cast *big.Int
	err := f.view(ctx, func(s *state) error {
		voter, err := s.voter(distributionID, account)
		if err != nil {
			return err
		}
		cast = voter.ScreeningVotesCast
		return nil
	})
	return cast, err
}
