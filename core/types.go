package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ProposalState mirrors the informational proposal states exposed to
// governance tooling.
type ProposalState uint8

const (
	Active ProposalState = iota
	Defeated
	Succeeded
	Executed
)

func (s ProposalState) String() string {
	switch s {
	case Active:
		return "Active"
	case Defeated:
		return "Defeated"
	case Succeeded:
		return "Succeeded"
	case Executed:
		return "Executed"
	default:
		return "Unknown"
	}
}

// FundingMechanism tags which of the two funding flows a proposal belongs to.
type FundingMechanism uint8

const (
	// Standard proposals go through screening, funding and challenge within
	// a distribution period
	Standard FundingMechanism = iota + 1

	// Extraordinary proposals are approved by a supermajority of non-treasury
	// voting power
	Extraordinary
)

func (m FundingMechanism) String() string {
	switch m {
	case Standard:
		return "Standard"
	case Extraordinary:
		return "Extraordinary"
	default:
		return "Unknown"
	}
}

// Stage of a distribution period at a given block.
type Stage uint8

const (
	StageScreening Stage = iota
	StageFunding
	StageChallenge
	StageClosed
)

func (s Stage) String() string {
	switch s {
	case StageScreening:
		return "Screening"
	case StageFunding:
		return "Funding"
	case StageChallenge:
		return "Challenge"
	default:
		return "Closed"
	}
}

type DistributionPeriod struct {
	ID                   uint64      `json:"id"`
	StartBlock           uint64      `json:"start_block"`
	EndBlock             uint64      `json:"end_block"`
	FundsAvailable       *big.Int    `json:"funds_available"`
	FundingVotePowerCast *big.Int    `json:"funding_vote_power_cast"`
	FundedSlateHash      common.Hash `json:"funded_slate_hash"`

	// SurplusReturned is set once the unspent budget went back to the treasury
	SurplusReturned bool `json:"surplus_returned"`
}

type Proposal struct {
	ProposalID           common.Hash `json:"proposal_id"`
	DistributionID       uint64      `json:"distribution_id"`
	Executed             bool        `json:"executed"`
	VotesReceived        *big.Int    `json:"votes_received"`
	TokensRequested      *big.Int    `json:"tokens_requested"`
	FundingVotesReceived *big.Int    `json:"funding_votes_received"`
}

type ExtraordinaryProposal struct {
	ProposalID      common.Hash `json:"proposal_id"`
	StartBlock      uint64      `json:"start_block"`
	EndBlock        uint64      `json:"end_block"`
	TokensRequested *big.Int    `json:"tokens_requested"`
	VotesReceived   *big.Int    `json:"votes_received"`
	Executed        bool        `json:"executed"`
}

// ScreeningVoteParams allocates linear votes to a proposal.
type ScreeningVoteParams struct {
	ProposalID common.Hash `json:"proposal_id"`
	Votes      *big.Int    `json:"votes"`
}

// FundingVoteParams allocates signed votes to a proposal, negative values
// vote against funding it.
type FundingVoteParams struct {
	ProposalID common.Hash `json:"proposal_id"`
	VotesUsed  *big.Int    `json:"votes_used"`
}

// Voter is an account's participation record within one distribution period.
type Voter struct {
	FundingVotingPower          *big.Int            `json:"funding_voting_power"`
	FundingRemainingVotingPower *big.Int            `json:"funding_remaining_voting_power"`
	VotesCast                   []FundingVoteParams `json:"votes_cast"`
	ScreeningVotesCast          *big.Int            `json:"screening_votes_cast"`
	RewardClaimed               bool                `json:"reward_claimed"`
}

// proposalRecord is the stored form of any proposal: the mechanism tag
// selects which payload is set.
type proposalRecord struct {
	Mechanism     FundingMechanism       `json:"mechanism"`
	Standard      *Proposal              `json:"standard,omitempty"`
	Extraordinary *ExtraordinaryProposal `json:"extraordinary,omitempty"`
}

func nonNil(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return x
}

func (d *DistributionPeriod) normalize() {
	d.FundsAvailable = nonNil(d.FundsAvailable)
	d.FundingVotePowerCast = nonNil(d.FundingVotePowerCast)
}

func (p *Proposal) normalize() {
	p.VotesReceived = nonNil(p.VotesReceived)
	p.TokensRequested = nonNil(p.TokensRequested)
	p.FundingVotesReceived = nonNil(p.FundingVotesReceived)
}

func (p *ExtraordinaryProposal) normalize() {
	p.TokensRequested = nonNil(p.TokensRequested)
	p.VotesReceived = nonNil(p.VotesReceived)
}

func (v *Voter) normalize() {
	v.FundingVotingPower = nonNil(v.FundingVotingPower)
	v.FundingRemainingVotingPower = nonNil(v.FundingRemainingVotingPower)
	v.ScreeningVotesCast = nonNil(v.ScreeningVotesCast)
	for i := range v.VotesCast {
		v.VotesCast[i].VotesUsed = nonNil(v.VotesCast[i].VotesUsed)
	}
}

// voteIndex returns the position of the funding vote on proposalID, or -1.
func (v *Voter) voteIndex(proposalID common.Hash) int {
	for i, vote := range v.VotesCast {
		if vote.ProposalID == proposalID {
			return i
		}
	}
	return -1
}

// UsedFundingPower is the quadratic power already allocated in the funding stage.
func (v *Voter) UsedFundingPower() *big.Int {
	return new(big.Int).Sub(v.FundingVotingPower, v.FundingRemainingVotingPower)
}
