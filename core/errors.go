package core

import "github.com/pkg/errors"

// timing
var (
	ErrPeriodStillActive             = errors.New("distribution period still active")
	ErrScreeningPeriodEnded          = errors.New("screening period ended")
	ErrChallengePeriodNotEnded       = errors.New("challenge period not ended")
	ErrInvalidVote                   = errors.New("invalid vote")
	ErrExtraordinaryProposalInactive = errors.New("extraordinary proposal inactive")
	ErrExecuteProposalInvalid        = errors.New("proposal cannot be executed yet")
)

// validation
var (
	ErrInvalidProposal       = errors.New("invalid proposal")
	ErrInvalidProposalSlate  = errors.New("invalid proposal slate")
	ErrProposalAlreadyExists = errors.New("proposal already exists")
	ErrInvalidAmount         = errors.New("invalid amount")
)

// capacity and authorization
var (
	ErrInsufficientVotingPower   = errors.New("insufficient voting power")
	ErrFundingVoteWrongDirection = errors.New("funding vote wrong direction")
	ErrRewardAlreadyClaimed      = errors.New("reward already claimed")
	ErrDelegateRewardInvalid     = errors.New("no delegate reward to claim")
	ErrAlreadyVoted              = errors.New("already voted")
	ErrTreasuryUnderflow         = errors.New("treasury balance too low")
)

// integrity
var (
	ErrProposalNotFound      = errors.New("proposal not found")
	ErrDistributionNotFound  = errors.New("distribution period not found")
	ErrMechanismMismatch     = errors.New("proposal belongs to another funding mechanism")
	ErrProposalNotSuccessful = errors.New("proposal not successful")
)
