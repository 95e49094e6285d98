package token

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	ErrInsufficientBalance   = errors.New("transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrFutureLookup          = errors.New("votes lookup for a block not yet mined")
)

type checkpoint struct {
	block uint64
	votes *big.Int
}

// Memory is an in-process ERC20Votes ledger that also serves as the block
// clock. Every holder is self delegated, so voting power equals balance.
// Transfer and the custody side of TransferFrom act on behalf of custody.
type Memory struct {
	mu          sync.Mutex
	address     common.Address
	custody     common.Address
	block       uint64
	supply      *big.Int
	balances    map[common.Address]*big.Int
	allowances  map[common.Address]map[common.Address]*big.Int
	checkpoints map[common.Address][]checkpoint
}

func NewMemory(address, custody common.Address) *Memory {
	return &Memory{
		address:     address,
		custody:     custody,
		block:       1,
		supply:      new(big.Int),
		balances:    make(map[common.Address]*big.Int),
		allowances:  make(map[common.Address]map[common.Address]*big.Int),
		checkpoints: make(map[common.Address][]checkpoint),
	}
}

func (m *Memory) Address() common.Address {
	return m.address
}

func (m *Memory) Custody() common.Address {
	return m.custody
}

func (m *Memory) BlockNumber(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.block, nil
}

// Mine advances the clock by n blocks.
func (m *Memory) Mine(n uint64) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.block += n
	return m.block
}

// SetBlock moves the clock forward to block.
func (m *Memory) SetBlock(block uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if block > m.block {
		m.block = block
	}
}

func (m *Memory) Mint(to common.Address, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.supply.Add(m.supply, amount)
	m.setBalance(to, new(big.Int).Add(m.balanceOf(to), amount))
}

func (m *Memory) Approve(owner, spender common.Address, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.allowances[owner] == nil {
		m.allowances[owner] = make(map[common.Address]*big.Int)
	}
	m.allowances[owner][spender] = new(big.Int).Set(amount)
}

func (m *Memory) Allowance(owner, spender common.Address) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.allowances[owner][spender]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

func (m *Memory) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.balanceOf(account)), nil
}

func (m *Memory) TotalSupply(ctx context.Context) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.supply), nil
}

// TransferOwned moves funds between two holders, for setting up balances.
func (m *Memory) TransferOwned(from, to common.Address, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.move(from, to, amount)
}

func (m *Memory) Transfer(ctx context.Context, to common.Address, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.move(m.custody, to, amount)
}

func (m *Memory) TransferFrom(ctx context.Context, from, to common.Address, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowance, ok := m.allowances[from][m.custody]
	if !ok || allowance.Cmp(amount) < 0 {
		return errors.Wrapf(ErrInsufficientAllowance, "%s approved %s for %s", from.Hex(), m.custody.Hex(), amount)
	}
	if err := m.move(from, to, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	return nil
}

// PastVotes returns the votes of account at the end of block, which must
// already be mined.
func (m *Memory) PastVotes(ctx context.Context, account common.Address, block uint64) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if block >= m.block {
		return nil, errors.Wrapf(ErrFutureLookup, "block %d, current %d", block, m.block)
	}
	cps := m.checkpoints[account]
	// first checkpoint after block
	i := sort.Search(len(cps), func(i int) bool { return cps[i].block > block })
	if i == 0 {
		return new(big.Int), nil
	}
	return new(big.Int).Set(cps[i-1].votes), nil
}

func (m *Memory) move(from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return errors.New("negative transfer amount")
	}
	balance := m.balanceOf(from)
	if balance.Cmp(amount) < 0 {
		return errors.Wrapf(ErrInsufficientBalance, "%s holds %s, wants %s", from.Hex(), balance, amount)
	}
	m.setBalance(from, new(big.Int).Sub(balance, amount))
	m.setBalance(to, new(big.Int).Add(m.balanceOf(to), amount))
	return nil
}

func (m *Memory) balanceOf(account common.Address) *big.Int {
	if b, ok := m.balances[account]; ok {
		return b
	}
	return new(big.Int)
}

func (m *Memory) setBalance(account common.Address, balance *big.Int) {
	m.balances[account] = balance
	cps := m.checkpoints[account]
	if n := len(cps); n > 0 && cps[n-1].block == m.block {
		cps[n-1].votes = new(big.Int).Set(balance)
		return
	}
	m.checkpoints[account] = append(cps, checkpoint{block: m.block, votes: new(big.Int).Set(balance)})
}
