package token

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	callAttempts = 5
	callBackoff  = time.Second
)

// Backend is the RPC surface the on-chain token needs, satisfied by
// *ethclient.Client.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// ERC20 is an ERC20Votes token reached over RPC. Transfers are signed by the
// custody key, reads are retried with fibonacci backoff.
type ERC20 struct {
	address  common.Address
	backend  Backend
	contract *bind.BoundContract
	auth     *bind.TransactOpts
	logger   logrus.FieldLogger
}

func NewERC20(address common.Address, backend Backend, key *ecdsa.PrivateKey, chainID *big.Int, logger logrus.FieldLogger) (*ERC20, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, errors.Wrap(err, "build custody transactor")
	}
	return &ERC20{
		address:  address,
		backend:  backend,
		contract: bind.NewBoundContract(address, ERC20ABI, backend, backend, backend),
		auth:     auth,
		logger:   logger,
	}, nil
}

func (e *ERC20) Address() common.Address {
	return e.address
}

// Custody is the account holding the treasury funds.
func (e *ERC20) Custody() common.Address {
	return e.auth.From
}

func (e *ERC20) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return e.callUint(ctx, nil, "balanceOf", account)
}

func (e *ERC20) TotalSupply(ctx context.Context) (*big.Int, error) {
	return e.callUint(ctx, nil, "totalSupply")
}

func (e *ERC20) PastVotes(ctx context.Context, account common.Address, block uint64) (*big.Int, error) {
	return e.callUint(ctx, nil, "getPastVotes", account, new(big.Int).SetUint64(block))
}

func (e *ERC20) Transfer(ctx context.Context, to common.Address, amount *big.Int) error {
	return e.transact(ctx, "transfer", to, amount)
}

func (e *ERC20) TransferFrom(ctx context.Context, from, to common.Address, amount *big.Int) error {
	return e.transact(ctx, "transferFrom", from, to, amount)
}

func (e *ERC20) callUint(ctx context.Context, block *big.Int, method string, args ...any) (*big.Int, error) {
	var out []any
	action := func(attempt uint) error {
		out = nil
		err := e.contract.Call(&bind.CallOpts{Context: ctx, BlockNumber: block}, &out, method, args...)
		if err != nil {
			e.logger.WithError(err).Debugf("call %s attempt %d failed", method, attempt)
		}
		return err
	}
	if err := retry.Retry(action, strategy.Limit(callAttempts), strategy.Backoff(backoff.Fibonacci(callBackoff))); err != nil {
		return nil, errors.Wrapf(err, "call %s", method)
	}
	if len(out) != 1 {
		return nil, errors.Errorf("call %s returned %d values", method, len(out))
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// transact sends a state changing call and waits until it is mined. It is
// not retried: a resent transfer could pay twice.
func (e *ERC20) transact(ctx context.Context, method string, args ...any) error {
	opts := *e.auth
	opts.Context = ctx
	tx, err := e.contract.Transact(&opts, method, args...)
	if err != nil {
		return errors.Wrapf(err, "send %s", method)
	}
	e.logger.WithField("tx", tx.Hash().Hex()).Infof("sent %s", method)

	receipt, err := bind.WaitMined(ctx, e.backend, tx)
	if err != nil {
		return errors.Wrapf(err, "wait for %s %s", method, tx.Hash().Hex())
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return errors.Errorf("%s %s reverted", method, tx.Hash().Hex())
	}
	return nil
}
