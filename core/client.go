package core

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Token is the governance token holding the treasury. Transfer moves funds
// out of custody, TransferFrom pulls approved funds from an account.
type Token interface {
	Address() common.Address

	BalanceOf(ctx context.Context, account common.Address) (*big.Int, error)

	TotalSupply(ctx context.Context) (*big.Int, error)

	Transfer(ctx context.Context, to common.Address, amount *big.Int) error

	TransferFrom(ctx context.Context, from, to common.Address, amount *big.Int) error

	// PastVotes returns the delegated voting power of account at the end of block
	PastVotes(ctx context.Context, account common.Address, block uint64) (*big.Int, error)
}

// Chain reports the current block height all stage windows are measured against.
type Chain interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// HeadClient follows new chain heads.
type HeadClient interface {
	Chain

	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
}

var _ HeadClient = (*MockClient)(nil)

// MockClient is a HeadClient whose heads are pushed by the caller.
type MockClient struct {
	mu     sync.Mutex
	number uint64
	heads  chan<- *types.Header
	sub    *MockSubscription
}

func (mc *MockClient) BlockNumber(ctx context.Context) (uint64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.number, nil
}

func (mc *MockClient) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.heads = ch
	mc.sub = &MockSubscription{errChan: make(chan error, 1)}
	return mc.sub, nil
}

// Mine moves the head to number and publishes it to the subscriber, if any.
func (mc *MockClient) Mine(number uint64) {
	mc.mu.Lock()
	mc.number = number
	heads := mc.heads
	mc.mu.Unlock()
	if heads != nil {
		heads <- &types.Header{Number: new(big.Int).SetUint64(number)}
	}
}

// Fail terminates the current subscription with err.
func (mc *MockClient) Fail(err error) {
	mc.mu.Lock()
	sub := mc.sub
	mc.mu.Unlock()
	if sub != nil {
		sub.errChan <- err
	}
}

type MockSubscription struct {
	errChan chan error
	once    sync.Once
}

func (ms *MockSubscription) Unsubscribe() {
	ms.once.Do(func() {
		close(ms.errChan)
	})
}

func (ms *MockSubscription) Err() <-chan error {
	return ms.errChan
}
