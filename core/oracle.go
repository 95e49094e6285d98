package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
)

// VotingPowerOracle reads historical voting power from the token. Every
// query takes the lower of two samples, one SnapshotDelay blocks before the
// stage start and one at the stage start, so power borrowed for a single
// block cannot be used.
type VotingPowerOracle struct {
	token Token
	delay uint64
}

func NewVotingPowerOracle(token Token, delay uint64) *VotingPowerOracle {
	return &VotingPowerOracle{token: token, delay: delay}
}

// Power returns min(votes at snapshotBlock, votes at voteStartBlock). When
// voteStartBlock is the current block the previous block is sampled instead.
func (o *VotingPowerOracle) Power(ctx context.Context, account common.Address, snapshotBlock, voteStartBlock, currentBlock uint64) (*big.Int, error) {
	votes1, err := o.pastVotes(ctx, account, snapshotBlock)
	if err != nil {
		return nil, err
	}
	if voteStartBlock == currentBlock {
		voteStartBlock = saturatingSub(currentBlock, 1)
	}
	votes2, err := o.pastVotes(ctx, account, voteStartBlock)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(math.BigMin(votes1, votes2)), nil
}

// AtStageStart samples power for a stage starting at startBlock.
func (o *VotingPowerOracle) AtStageStart(ctx context.Context, account common.Address, startBlock, currentBlock uint64) (*big.Int, error) {
	return o.Power(ctx, account, saturatingSub(startBlock, o.delay), startBlock, currentBlock)
}

func (o *VotingPowerOracle) pastVotes(ctx context.Context, account common.Address, block uint64) (*big.Int, error) {
	votes, err := o.token.PastVotes(ctx, account, block)
	if err != nil {
		return nil, errors.Wrapf(err, "past votes of %s at %d", account.Hex(), block)
	}
	if votes == nil {
		return new(big.Int), nil
	}
	return votes, nil
}
