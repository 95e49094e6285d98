package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ProposeStandard submits a proposal to the screening stage of the current
// distribution period and returns its id.
func (f *GrantFund) ProposeStandard(ctx context.Context, proposer common.Address, targets []common.Address, values []*big.Int, calldatas [][]byte, description string) (common.Hash, error) {
	values = normalizeValues(values)
	tokensRequested, err := validateCalls(f.token.Address(), targets, values, calldatas)
	if err != nil {
		return common.Hash{}, err
	}
	id, err := HashProposal(targets, values, calldatas, DescriptionHash(Standard, description))
	if err != nil {
		return common.Hash{}, err
	}

	err = f.update(ctx, "propose_standard", func(s *state) error {
		dp, err := s.currentDistribution()
		if err != nil {
			return err
		}
		if dp == nil {
			return errors.Wrap(ErrScreeningPeriodEnded, "no distribution period started")
		}
		if s.block > f.params.screeningStageEndBlock(dp.EndBlock) {
			return errors.Wrapf(ErrScreeningPeriodEnded, "screening of distribution %d ended at block %d", dp.ID, f.params.screeningStageEndBlock(dp.EndBlock))
		}
		if s.hasProposal(id) {
			return errors.Wrapf(ErrProposalAlreadyExists, "proposal %s", id.Hex())
		}
		p := &Proposal{
			ProposalID:           id,
			DistributionID:       dp.ID,
			VotesReceived:        new(big.Int),
			TokensRequested:      tokensRequested,
			FundingVotesReceived: new(big.Int),
		}
		if err := s.putStandardProposal(p); err != nil {
			return err
		}
		s.emit(EventProposalCreated, ProposalCreatedEvent{
			ProposalID:  id,
			Mechanism:   Standard,
			Proposer:    proposer,
			Targets:     targets,
			Values:      values,
			Calldatas:   calldatas,
			StartBlock:  s.block,
			EndBlock:    dp.EndBlock,
			Description: description,
		})
		return nil
	})
	if err != nil {
		return common.Hash{}, err
	}
	return id, nil
}

// ExecuteStandard pays out a proposal of a period's funded slate once the
// period's challenge stage has ended.
func (f *GrantFund) ExecuteStandard(ctx context.Context, targets []common.Address, values []*big.Int, calldatas [][]byte, descriptionHash common.Hash) (common.Hash, error) {
	id, err := HashProposal(targets, normalizeValues(values), calldatas, descriptionHash)
	if err != nil {
		return common.Hash{}, err
	}
	payouts, err := decodePayouts(calldatas)
	if err != nil {
		return common.Hash{}, err
	}

	var evt Event
	err = f.update(ctx, "execute_standard", func(s *state) error {
		p, err := s.standardProposal(id)
		if err != nil {
			return err
		}
		if p.Executed {
			return errors.Wrapf(ErrExecuteProposalInvalid, "proposal %s already executed", id.Hex())
		}
		dp, err := s.distribution(p.DistributionID)
		if err != nil {
			return err
		}
		if s.block <= f.params.challengeStageEndBlock(dp.EndBlock) {
			return errors.Wrapf(ErrExecuteProposalInvalid, "challenge stage of distribution %d ends at block %d", dp.ID, f.params.challengeStageEndBlock(dp.EndBlock))
		}
		funded, err := s.slate(dp.FundedSlateHash)
		if err != nil {
			return err
		}
		if !containsHash(funded, id) {
			return errors.Wrapf(ErrProposalNotSuccessful, "proposal %s is not in the funded slate", id.Hex())
		}

		p.Executed = true
		evt = Event{Type: EventProposalExecuted, Block: s.block, Data: ProposalExecutedEvent{
			ProposalID:      id,
			Mechanism:       Standard,
			TokensRequested: new(big.Int).Set(p.TokensRequested),
		}}
		return s.putStandardProposal(p)
	})
	if err != nil {
		return common.Hash{}, err
	}

	return id, f.settle(ctx, "execute_standard", payouts, evt, func(s *state) error {
		p, err := s.standardProposal(id)
		if err != nil {
			return err
		}
		p.Executed = false
		return s.putStandardProposal(p)
	})
}

// settle performs the transfers of an operation that already committed. If
// no transfer went through, revert undoes the committed state. Once any
// transfer succeeded the operation stands and the error reports progress.
func (f *GrantFund) settle(ctx context.Context, op string, payouts []payout, evt Event, revert func(s *state) error) error {
	n, err := f.pay(ctx, payouts)
	if err == nil {
		f.publish([]Event{evt})
		return nil
	}
	logger := f.logger.WithFields(logrus.Fields{"op": op, "event": evt.Type})
	if n == 0 {
		if rerr := f.update(ctx, op+"_revert", revert); rerr != nil {
			logger.Errorf("revert after failed transfer: %s", rerr)
			return errors.Wrapf(err, "state not reverted: %s", rerr)
		}
		logger.Warnf("reverted after failed transfer: %s", err)
		return err
	}
	logger.Errorf("%d of %d transfers completed: %s", n, len(payouts), err)
	f.publish([]Event{evt})
	return errors.Wrapf(err, "%d of %d transfers completed", n, len(payouts))
}

func containsHash(list []common.Hash, id common.Hash) bool {
	for _, h := range list {
		if h == id {
			return true
		}
	}
	return false
}

// State reports the governance state of any proposal.
func (f *GrantFund) State(ctx context.Context, proposalID common.Hash) (ProposalState, error) {
	var st ProposalState
	err := f.view(ctx, func(s *state) error {
		rec, err := s.proposal(proposalID)
		if err != nil {
			return err
		}
		if rec.Mechanism == Extraordinary {
			st, err = f.extraordinaryState(ctx, s, rec.Extraordinary)
			return err
		}
		st, err = standardState(s, rec.Standard)
		return err
	})
	return st, err
}

func standardState(s *state, p *Proposal) (ProposalState, error) {
	if p.Executed {
		return Executed, nil
	}
	dp, err := s.distribution(p.DistributionID)
	if err != nil {
		return 0, err
	}
	if dp.EndBlock >= s.block {
		return Active, nil
	}
	funded, err := s.slate(dp.FundedSlateHash)
	if err != nil {
		return 0, err
	}
	if containsHash(funded, p.ProposalID) {
		return Succeeded, nil
	}
	return Defeated, nil
}

// FindMechanismOfProposal returns which funding mechanism a proposal belongs to.
func (f *GrantFund) FindMechanismOfProposal(ctx context.Context, proposalID common.Hash) (FundingMechanism, error) {
	var m FundingMechanism
	err := f.view(ctx, func(s *state) error {
		rec, err := s.proposal(proposalID)
		if err != nil {
			return err
		}
		m = rec.Mechanism
		return nil
	})
	return m, err
}

func (f *GrantFund) ProposalInfo(ctx context.Context, proposalID common.Hash) (*Proposal, error) {
	var p *Proposal
	err := f.view(ctx, func(s *state) (err error) {
		p, err = s.standardProposal(proposalID)
		return err
	})
	return p, err
}
