package core

import (
	"math/big"

	"github.com/pkg/errors"
)

// Treasury owns the balance of funds not yet reserved by a distribution
// period or paid out by an extraordinary proposal. Handles come from an
// operation's state, so every debit and credit commits with that operation.
type Treasury struct {
	s *state
}

func (t Treasury) Balance() (*big.Int, error) {
	return t.s.bigValue(keyTreasury)
}

func (t Treasury) set(balance *big.Int) error {
	return t.s.store(keyTreasury, balance)
}

// Deposit credits funds that were transferred into custody.
func (t Treasury) Deposit(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errors.Wrap(ErrInvalidAmount, "deposit must be positive")
	}
	return t.credit(amount)
}

// Reserve debits funds set aside for a distribution period or an
// extraordinary payout. The balance never goes negative.
func (t Treasury) Reserve(amount *big.Int) error {
	if amount.Sign() < 0 {
		return errors.Wrap(ErrInvalidAmount, "reserve must not be negative")
	}
	balance, err := t.Balance()
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return errors.Wrapf(ErrTreasuryUnderflow, "reserve %s from %s", amount, balance)
	}
	return t.set(balance.Sub(balance, amount))
}

// Return credits unspent funds back to the treasury.
func (t Treasury) Return(amount *big.Int) error {
	if amount.Sign() < 0 {
		return errors.Wrap(ErrInvalidAmount, "returned surplus must not be negative")
	}
	return t.credit(amount)
}

func (t Treasury) credit(amount *big.Int) error {
	balance, err := t.Balance()
	if err != nil {
		return err
	}
	return t.set(balance.Add(balance, amount))
}
