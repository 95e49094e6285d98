package core

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type EventType string

const (
	EventFundTreasury              EventType = "FundTreasury"
	EventDistributionPeriodStarted EventType = "DistributionPeriodStarted"
	EventProposalCreated           EventType = "ProposalCreated"
	EventVoteCast                  EventType = "VoteCast"
	EventFundedSlateUpdated        EventType = "FundedSlateUpdated"
	EventProposalExecuted          EventType = "ProposalExecuted"
	EventDelegateRewardClaimed     EventType = "DelegateRewardClaimed"
)

// Event is published to subscribers after the operation that produced it
// has committed.
type Event struct {
	Type  EventType
	Block uint64
	Data  any
}

type EventHandlerFunc func(Event)

type FundTreasuryEvent struct {
	Funder          common.Address
	Amount          *big.Int
	TreasuryBalance *big.Int
}

type DistributionPeriodStartedEvent struct {
	DistributionID uint64
	StartBlock     uint64
	EndBlock       uint64
	FundsAvailable *big.Int
}

type ProposalCreatedEvent struct {
	ProposalID  common.Hash
	Mechanism   FundingMechanism
	Proposer    common.Address
	Targets     []common.Address
	Values      []*big.Int
	Calldatas   [][]byte
	StartBlock  uint64
	EndBlock    uint64
	Description string
}

type VoteCastEvent struct {
	Voter      common.Address
	ProposalID common.Hash
	Mechanism  FundingMechanism
	// Support is 1 for votes in favour and 0 for votes against
	Support uint8
	Weight  *big.Int
	// Stage is only meaningful for standard proposals
	Stage Stage
}

type FundedSlateUpdatedEvent struct {
	DistributionID  uint64
	FundedSlateHash common.Hash
	FundingVotes    *big.Int
}

type ProposalExecutedEvent struct {
	ProposalID      common.Hash
	Mechanism       FundingMechanism
	TokensRequested *big.Int
}

type DelegateRewardClaimedEvent struct {
	Delegatee      common.Address
	DistributionID uint64
	RewardClaimed  *big.Int
}
