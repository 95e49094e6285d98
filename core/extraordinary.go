package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	baseThreshold      = percent(50)
	thresholdIncrement = percent(5)
)

// minimumThreshold rises by five points for every executed extraordinary
// proposal and never falls.
func minimumThreshold(s *state) (*big.Int, error) {
	funded, err := s.fundedExtraordinary()
	if err != nil {
		return nil, err
	}
	inc := new(big.Int).Mul(thresholdIncrement, big.NewInt(int64(len(funded))))
	return inc.Add(inc, baseThreshold), nil
}

// thresholds bundles the treasury, threshold and the resulting slices used
// to judge an extraordinary proposal.
type thresholds struct {
	threshold         *big.Int
	treasuryCap       *big.Int
	nonTreasuryQuorum *big.Int
}

func (f *GrantFund) thresholds(ctx context.Context, s *state) (*thresholds, error) {
	thr, err := minimumThreshold(s)
	if err != nil {
		return nil, err
	}
	treasury, err := s.treasury().Balance()
	if err != nil {
		return nil, err
	}
	supply, err := f.token.TotalSupply(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get total supply")
	}
	return &thresholds{
		threshold:         thr,
		treasuryCap:       sliceOf(treasury, sub(wad, thr)),
		nonTreasuryQuorum: sliceOf(nonTreasury(supply, treasury), thr),
	}, nil
}

// sliceOf takes a wad fraction of amount; fractions above 100% yield 0.
func sliceOf(amount, fraction *big.Int) *big.Int {
	if fraction.Sign() <= 0 {
		return new(big.Int)
	}
	return wmul(amount, fraction)
}

func nonTreasury(supply, treasury *big.Int) *big.Int {
	r := sub(supply, treasury)
	if r.Sign() < 0 {
		return new(big.Int)
	}
	return r
}

func (t *thresholds) succeeded(p *ExtraordinaryProposal) bool {
	return p.VotesReceived.Cmp(add(p.TokensRequested, t.nonTreasuryQuorum)) >= 0 &&
		p.TokensRequested.Cmp(t.treasuryCap) <= 0
}

// ProposeExtraordinary submits a treasury withdrawal that can be voted on
// until endBlock.
func (f *GrantFund) ProposeExtraordinary(ctx context.Context, proposer common.Address, endBlock uint64, targets []common.Address, values []*big.Int, calldatas [][]byte, description string) (common.Hash, error) {
	values = normalizeValues(values)
	tokensRequested, err := validateCalls(f.token.Address(), targets, values, calldatas)
	if err != nil {
		return common.Hash{}, err
	}
	id, err := HashProposal(targets, values, calldatas, DescriptionHash(Extraordinary, description))
	if err != nil {
		return common.Hash{}, err
	}

	err = f.update(ctx, "propose_extraordinary", func(s *state) error {
		if s.hasProposal(id) {
			return errors.Wrapf(ErrProposalAlreadyExists, "proposal %s", id.Hex())
		}
		if endBlock < s.block || endBlock > s.block+f.params.MaxExtraordinaryLength {
			return errors.Wrapf(ErrInvalidProposal, "end block %d outside %d to %d", endBlock, s.block, s.block+f.params.MaxExtraordinaryLength)
		}
		t, err := f.thresholds(ctx, s)
		if err != nil {
			return err
		}
		if tokensRequested.Cmp(t.treasuryCap) > 0 {
			return errors.Wrapf(ErrInvalidProposal, "requested %s exceeds treasury slice %s", tokensRequested, t.treasuryCap)
		}

		p := &ExtraordinaryProposal{
			ProposalID:      id,
			StartBlock:      s.block,
			EndBlock:        endBlock,
			TokensRequested: tokensRequested,
			VotesReceived:   new(big.Int),
		}
		if err := s.putExtraordinaryProposal(p); err != nil {
			return err
		}
		s.emit(EventProposalCreated, ProposalCreatedEvent{
			ProposalID:  id,
			Mechanism:   Extraordinary,
			Proposer:    proposer,
			Targets:     targets,
			Values:      values,
			Calldatas:   calldatas,
			StartBlock:  s.block,
			EndBlock:    endBlock,
			Description: description,
		})
		return nil
	})
	if err != nil {
		return common.Hash{}, err
	}
	return id, nil
}

// ExtraordinaryVote votes in favour of an extraordinary proposal with all of
// account's voting power at the proposal start. Each account votes once.
func (f *GrantFund) ExtraordinaryVote(ctx context.Context, account common.Address, proposalID common.Hash) (*big.Int, error) {
	var votes *big.Int
	err := f.update(ctx, "extraordinary_vote", func(s *state) error {
		p, err := s.extraordinaryProposal(proposalID)
		if err != nil {
			return err
		}
		if s.hasVotedExtraordinary(proposalID, account) {
			return errors.Wrapf(ErrAlreadyVoted, "%s on %s", account.Hex(), proposalID.Hex())
		}
		if p.Executed || s.block < p.StartBlock || s.block > p.EndBlock {
			return errors.Wrapf(ErrExtraordinaryProposalInactive, "proposal %s", proposalID.Hex())
		}
		votes, err = f.oracle.AtStageStart(ctx, account, p.StartBlock, s.block)
		if err != nil {
			return err
		}
		if votes.Sign() == 0 {
			return errors.Wrapf(ErrInsufficientVotingPower, "%s had no votes at block %d", account.Hex(), p.StartBlock)
		}

		p.VotesReceived.Add(p.VotesReceived, votes)
		if err := s.putExtraordinaryProposal(p); err != nil {
			return err
		}
		s.markVotedExtraordinary(proposalID, account)
		s.emit(EventVoteCast, VoteCastEvent{
			Voter:      account,
			ProposalID: proposalID,
			Mechanism:  Extraordinary,
			Support:    1,
			Weight:     new(big.Int).Set(votes),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return votes, nil
}

// ExecuteExtraordinary pays out a successful extraordinary proposal from the
// treasury and raises the threshold for the next one.
func (f *GrantFund) ExecuteExtraordinary(ctx context.Context, targets []common.Address, values []*big.Int, calldatas [][]byte, descriptionHash common.Hash) (common.Hash, error) {
	id, err := HashProposal(targets, normalizeValues(values), calldatas, descriptionHash)
	if err != nil {
		return common.Hash{}, err
	}
	payouts, err := decodePayouts(calldatas)
	if err != nil {
		return common.Hash{}, err
	}

	var evt Event
	err = f.update(ctx, "execute_extraordinary", func(s *state) error {
		p, err := s.extraordinaryProposal(id)
		if err != nil {
			return err
		}
		if p.Executed {
			return errors.Wrapf(ErrExecuteProposalInvalid, "proposal %s already executed", id.Hex())
		}
		t, err := f.thresholds(ctx, s)
		if err != nil {
			return err
		}
		if !t.succeeded(p) {
			return errors.Wrapf(ErrProposalNotSuccessful, "proposal %s has %s votes", id.Hex(), p.VotesReceived)
		}

		if err := s.treasury().Reserve(p.TokensRequested); err != nil {
			return err
		}
		funded, err := s.fundedExtraordinary()
		if err != nil {
			return err
		}
		if err := s.putFundedExtraordinary(append(funded, id)); err != nil {
			return err
		}
		p.Executed = true
		evt = Event{Type: EventProposalExecuted, Block: s.block, Data: ProposalExecutedEvent{
			ProposalID:      id,
			Mechanism:       Extraordinary,
			TokensRequested: new(big.Int).Set(p.TokensRequested),
		}}
		return s.putExtraordinaryProposal(p)
	})
	if err != nil {
		return common.Hash{}, err
	}

	return id, f.settle(ctx, "execute_extraordinary", payouts, evt, func(s *state) error {
		p, err := s.extraordinaryProposal(id)
		if err != nil {
			return err
		}
		funded, err := s.fundedExtraordinary()
		if err != nil {
			return err
		}
		kept := funded[:0]
		for _, h := range funded {
			if h != id {
				kept = append(kept, h)
			}
		}
		if err := s.putFundedExtraordinary(kept); err != nil {
			return err
		}
		if err := s.treasury().Return(p.TokensRequested); err != nil {
			return err
		}
		p.Executed = false
		return s.putExtraordinaryProposal(p)
	})
}

func (f *GrantFund) extraordinaryState(ctx context.Context, s *state, p *ExtraordinaryProposal) (ProposalState, error) {
	if p.Executed {
		return Executed, nil
	}
	t, err := f.thresholds(ctx, s)
	if err != nil {
		return 0, err
	}
	succeeded := t.succeeded(p)
	switch {
	case p.EndBlock >= s.block && !succeeded:
		return Active, nil
	case succeeded:
		return Succeeded, nil
	default:
		return Defeated, nil
	}
}

// MinimumThresholdPercentage returns the share of non-treasury supply, as a
// wad, the next extraordinary proposal needs on top of its request.
func (f *GrantFund) MinimumThresholdPercentage(ctx context.Context) (*big.Int, error) {
	var thr *big.Int
	err := f.view(ctx, func(s *state) (err error) {
		thr, err = minimumThreshold(s)
		return err
	})
	return thr, err
}

// SliceOfTreasury returns percentage (a wad) of the treasury balance.
func (f *GrantFund) SliceOfTreasury(ctx context.Context, percentage *big.Int) (*big.Int, error) {
	var slice *big.Int
	err := f.view(ctx, func(s *state) error {
		treasury, err := s.treasury().Balance()
		if err != nil {
			return err
		}
		slice = sliceOf(treasury, percentage)
		return nil
	})
	return slice, err
}

// SliceOfNonTreasury returns percentage (a wad) of the supply outside the treasury.
func (f *GrantFund) SliceOfNonTreasury(ctx context.Context, percentage *big.Int) (*big.Int, error) {
	var slice *big.Int
	err := f.view(ctx, func(s *state) error {
		treasury, err := s.treasury().Balance()
		if err != nil {
			return err
		}
		supply, err := f.token.TotalSupply(ctx)
		if err != nil {
			return errors.Wrap(err, "get total supply")
		}
		slice = sliceOf(nonTreasury(supply, treasury), percentage)
		return nil
	})
	return slice, err
}

func (f *GrantFund) HasVotedExtraordinary(ctx context.Context, proposalID common.Hash, account common.Address) (bool, error) {
	var voted bool
	err := f.view(ctx, func(s *state) error {
		voted = s.hasVotedExtraordinary(proposalID, account)
		return nil
	})
	return voted, err
}

func (f *GrantFund) ExtraordinaryProposalInfo(ctx context.Context, proposalID common.Hash) (*ExtraordinaryProposal, error) {
	var p *ExtraordinaryProposal
	err := f.view(ctx, func(s *state) (err error) {
		p, err = s.extraordinaryProposal(proposalID)
		return err
	})
	return p, err
}

// VotesExtraordinary returns the votes account can still cast on a proposal.
func (f *GrantFund) VotesExtraordinary(ctx context.Context, account common.Address, proposalID common.Hash) (*big.Int, error) {
	var votes *big.Int
	err := f.view(ctx, func(s *state) error {
		p, err := s.extraordinaryProposal(proposalID)
		if err != nil {
			return err
		}
		if s.hasVotedExtraordinary(proposalID, account) {
			votes = new(big.Int)
			return nil
		}
		votes, err = f.oracle.AtStageStart(ctx, account, p.StartBlock, s.block)
		return err
	})
	return votes, err
}
