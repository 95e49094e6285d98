package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// UpdateSlate submits a candidate funded slate during the challenge stage of
// a period. It returns true if the candidate became the period's funded
// slate, false if the current slate has at least as many funding votes.
// Invalid candidates fail with ErrInvalidProposalSlate.
func (f *GrantFund) UpdateSlate(ctx context.Context, proposalIDs []common.Hash, distributionID uint64) (bool, error) {
	var replaced bool
	err := f.update(ctx, "update_slate", func(s *state) error {
		dp, err := s.distribution(distributionID)
		if err != nil {
			return err
		}
		challengeEnd := f.params.challengeStageEndBlock(dp.EndBlock)
		if s.block <= dp.EndBlock || s.block > challengeEnd {
			return errors.Wrapf(ErrInvalidProposalSlate, "challenge stage of distribution %d is blocks %d to %d", dp.ID, dp.EndBlock+1, challengeEnd)
		}

		sum, err := f.validateSlate(s, dp, proposalIDs)
		if err != nil {
			return err
		}

		current, err := s.slate(dp.FundedSlateHash)
		if err != nil {
			return err
		}
		if len(current) > 0 {
			currentSum, err := slateFundingVotes(s, current)
			if err != nil {
				return err
			}
			if sum.Cmp(currentSum) <= 0 {
				f.logger.WithField("distribution_id", dp.ID).Debugf("slate with %s funding votes does not beat %s", sum, currentSum)
				return nil
			}
		}

		hash := SlateHash(proposalIDs)
		if err := s.putSlate(hash, proposalIDs); err != nil {
			return err
		}
		dp.FundedSlateHash = hash
		if err := s.putDistribution(dp); err != nil {
			return err
		}
		replaced = true
		f.logger.WithFields(logrus.Fields{"distribution_id": dp.ID, "slate": hash.Hex()}).Debugf("new funded slate of %d proposals", len(proposalIDs))
		s.emit(EventFundedSlateUpdated, FundedSlateUpdatedEvent{
			DistributionID:  dp.ID,
			FundedSlateHash: hash,
			FundingVotes:    sum,
		})
		return nil
	})
	return replaced, err
}

// validateSlate checks a candidate slate and returns its funding votes.
func (f *GrantFund) validateSlate(s *state, dp *DistributionPeriod, proposalIDs []common.Hash) (*big.Int, error) {
	if len(proposalIDs) == 0 {
		return nil, errors.Wrap(ErrInvalidProposalSlate, "empty slate")
	}
	topTen, err := s.topTen(dp.ID)
	if err != nil {
		return nil, err
	}
	if len(proposalIDs) > len(topTen) {
		return nil, errors.Wrapf(ErrInvalidProposalSlate, "%d proposals but only %d were screened", len(proposalIDs), len(topTen))
	}

	budget := ninetyPercent(dp.FundsAvailable)
	requested := new(big.Int)
	sum := new(big.Int)
	seen := make(map[common.Hash]struct{}, len(proposalIDs))
	for _, id := range proposalIDs {
		if _, ok := seen[id]; ok {
			return nil, errors.Wrapf(ErrInvalidProposalSlate, "duplicate proposal %s", id.Hex())
		}
		seen[id] = struct{}{}
		if !containsHash(topTen, id) {
			return nil, errors.Wrapf(ErrInvalidProposalSlate, "proposal %s is not in the top ten", id.Hex())
		}
		p, err := s.standardProposal(id)
		if err != nil {
			return nil, err
		}
		if p.FundingVotesReceived.Sign() < 0 {
			return nil, errors.Wrapf(ErrInvalidProposalSlate, "proposal %s has %s funding votes", id.Hex(), p.FundingVotesReceived)
		}
		requested.Add(requested, p.TokensRequested)
		if requested.Cmp(budget) > 0 {
			return nil, errors.Wrapf(ErrInvalidProposalSlate, "slate requests more than %s", budget)
		}
		sum.Add(sum, p.FundingVotesReceived)
	}
	return sum, nil
}

// slateFundingVotes sums the current funding votes of a stored slate.
func slateFundingVotes(s *state, proposalIDs []common.Hash) (*big.Int, error) {
	sum := new(big.Int)
	for _, id := range proposalIDs {
		p, err := s.standardProposal(id)
		if err != nil {
			return nil, err
		}
		sum.Add(sum, p.FundingVotesReceived)
	}
	return sum, nil
}

// FundedProposalSlate returns the proposal ids stored under a slate hash.
func (f *GrantFund) FundedProposalSlate(ctx context.Context, slateHash common.Hash) ([]common.Hash, error) {
	var list []common.Hash
	err := f.view(ctx, func(s *state) (err error) {
		list, err = s.slate(slateHash)
		return err
	})
	return list, err
}
