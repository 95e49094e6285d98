package core

import (
	"context"
	"math/big"
	"sync"

	"github.com/axiomesh/axiom-kit/log"
	"github.com/axiomesh/grants/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// GrantFund runs the standard and extraordinary funding mechanisms over a
// treasury held in custody of a governance token.
//
// Every mutating call executes under one lock against a cache wrapped view of
// the backend and is written back only if it succeeds, so a rejected call
// leaves no trace. Token transfers out of custody happen after the state
// change has been committed and outside the lock; a failed transfer is
// compensated by a second update.
type GrantFund struct {
	mu      sync.Mutex
	params  Params
	backend storage.Backend
	token   Token
	chain   Chain
	custody common.Address
	oracle  *VotingPowerOracle
	logger  logrus.FieldLogger
	metrics fundMetrics

	subMu       sync.RWMutex
	subscribers []EventHandlerFunc
}

type Option func(*GrantFund)

func WithParams(p Params) Option {
	return func(f *GrantFund) {
		f.params = p
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(f *GrantFund) {
		f.logger = logger
	}
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return func(f *GrantFund) {
		f.metrics.init(reg)
	}
}

// NewGrantFund creates the engine. custody is the account that holds the
// treasury tokens.
func NewGrantFund(backend storage.Backend, token Token, chain Chain, custody common.Address, opts ...Option) (*GrantFund, error) {
	f := &GrantFund{
		params:  DefaultParams(),
		backend: backend,
		token:   token,
		chain:   chain,
		custody: custody,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = log.New()
	}
	if f.metrics.treasury == nil {
		f.metrics.init(prometheus.NewRegistry())
	}
	if err := f.params.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid params")
	}
	if custody == (common.Address{}) {
		return nil, errors.New("custody address is required")
	}
	f.oracle = NewVotingPowerOracle(token, f.params.SnapshotDelay)
	return f, nil
}

func (f *GrantFund) Params() Params {
	return f.params
}

// Subscribe registers handler for every committed event.
func (f *GrantFund) Subscribe(handler EventHandlerFunc) {
	f.subMu.Lock()
	defer f.subMu.Unlock()
	f.subscribers = append(f.subscribers, handler)
}

// update runs fn as one atomic operation at the current block.
func (f *GrantFund) update(ctx context.Context, op string, fn func(s *state) error) error {
	return f.updateWith(ctx, op, fn, nil)
}

// updateWith is update with an interaction that runs after fn succeeded and
// before the changes are written. A failing interaction discards them.
func (f *GrantFund) updateWith(ctx context.Context, op string, fn func(s *state) error, interact func(ctx context.Context) error) error {
	f.mu.Lock()
	block, err := f.chain.BlockNumber(ctx)
	if err != nil {
		f.mu.Unlock()
		return errors.Wrap(err, "get block number")
	}

	cache := storage.NewCacheWrap(f.backend)
	s := newState(cache, block)
	if err := fn(s); err != nil {
		cache.Discard()
		f.mu.Unlock()
		f.metrics.rejected.WithLabelValues(op).Inc()
		f.logger.WithFields(logrus.Fields{"op": op, "block": block}).Debugf("rejected: %s", err)
		return err
	}
	if interact != nil {
		if err := interact(ctx); err != nil {
			cache.Discard()
			f.mu.Unlock()
			f.metrics.rejected.WithLabelValues(op).Inc()
			f.logger.WithFields(logrus.Fields{"op": op, "block": block}).Warnf("interaction failed: %s", err)
			return err
		}
	}
	cache.Write()
	balance, err := s.treasury().Balance()
	f.mu.Unlock()

	if err == nil {
		f.metrics.setTreasury(balance)
	}
	f.publish(s.events)
	return nil
}

// view runs a read-only fn at the current block. Writes fn makes are dropped.
func (f *GrantFund) view(ctx context.Context, fn func(s *state) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	block, err := f.chain.BlockNumber(ctx)
	if err != nil {
		return errors.Wrap(err, "get block number")
	}
	cache := storage.NewCacheWrap(f.backend)
	defer cache.Discard()
	return fn(newState(cache, block))
}

func (f *GrantFund) publish(events []Event) {
	f.subMu.RLock()
	subscribers := f.subscribers
	f.subMu.RUnlock()

	for _, evt := range events {
		f.logger.WithFields(logrus.Fields{"event": evt.Type, "block": evt.Block}).Infof("%+v", evt.Data)
		f.metrics.observe(evt)
		for _, handler := range subscribers {
			handler(evt)
		}
	}
}

// payout is one transfer out of custody.
type payout struct {
	to     common.Address
	amount *big.Int
}

// pay performs payouts in order and reports how many completed.
func (f *GrantFund) pay(ctx context.Context, payouts []payout) (int, error) {
	for i, p := range payouts {
		if err := f.token.Transfer(ctx, p.to, p.amount); err != nil {
			return i, errors.Wrapf(err, "transfer %s to %s", p.amount, p.to.Hex())
		}
	}
	return len(payouts), nil
}

// FundTreasury pulls amount from funder into custody and credits the
// treasury. The funder must have approved the custody account beforehand.
// The pull runs once the credit is staged, so the treasury is credited
// exactly when the tokens arrive.
func (f *GrantFund) FundTreasury(ctx context.Context, funder common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errors.Wrap(ErrInvalidAmount, "fund amount must be positive")
	}
	return f.updateWith(ctx, "fund_treasury", func(s *state) error {
		t := s.treasury()
		if err := t.Deposit(amount); err != nil {
			return err
		}
		balance, err := t.Balance()
		if err != nil {
			return err
		}
		s.emit(EventFundTreasury, FundTreasuryEvent{
			Funder:          funder,
			Amount:          new(big.Int).Set(amount),
			TreasuryBalance: balance,
		})
		return nil
	}, func(ctx context.Context) error {
		return errors.Wrap(f.token.TransferFrom(ctx, funder, f.custody, amount), "transfer funds into custody")
	})
}

// Treasury returns the undistributed treasury balance.
func (f *GrantFund) Treasury(ctx context.Context) (*big.Int, error) {
	var balance *big.Int
	err := f.view(ctx, func(s *state) (err error) {
		balance, err = s.treasury().Balance()
		return err
	})
	return balance, err
}

// CustodyBalance returns the token balance of the custody account, which
// covers the treasury plus reserved but not yet paid period budgets.
func (f *GrantFund) CustodyBalance(ctx context.Context) (*big.Int, error) {
	return f.token.BalanceOf(ctx, f.custody)
}
