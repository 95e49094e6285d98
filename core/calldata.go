package core

import (
	"math/big"

	"github.com/axiomesh/grants/token"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const (
	standardDescriptionPrefix      = "Standard Funding Proposal: "
	extraordinaryDescriptionPrefix = "Extraordinary Funding Proposal: "
)

var (
	addressesType, _ = abi.NewType("address[]", "", nil)
	uintsType, _     = abi.NewType("uint256[]", "", nil)
	bytesListType, _ = abi.NewType("bytes[]", "", nil)
	bytes32Type, _   = abi.NewType("bytes32", "", nil)

	proposalArgs = abi.Arguments{{Type: addressesType}, {Type: uintsType}, {Type: bytesListType}, {Type: bytes32Type}}
	prefixArgs   = abi.Arguments{{Type: bytes32Type}, {Type: bytes32Type}}
	slateArgs    = abi.Arguments{{Type: uintsType}}
)

func descriptionPrefix(m FundingMechanism) string {
	if m == Extraordinary {
		return extraordinaryDescriptionPrefix
	}
	return standardDescriptionPrefix
}

// DescriptionHash binds a description to its funding mechanism, so identical
// content submitted to both mechanisms yields different proposal ids.
func DescriptionHash(m FundingMechanism, description string) common.Hash {
	prefix := crypto.Keccak256Hash([]byte(descriptionPrefix(m)))
	desc := crypto.Keccak256Hash([]byte(description))
	packed, err := prefixArgs.Pack([32]byte(prefix), [32]byte(desc))
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(packed)
}

// HashProposal derives the proposal id from its calls and description hash.
func HashProposal(targets []common.Address, values []*big.Int, calldatas [][]byte, descriptionHash common.Hash) (common.Hash, error) {
	packed, err := proposalArgs.Pack(targets, values, calldatas, [32]byte(descriptionHash))
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "encode proposal")
	}
	return crypto.Keccak256Hash(packed), nil
}

// SlateHash is the content address of an ordered list of proposal ids.
func SlateHash(proposalIDs []common.Hash) common.Hash {
	ids := make([]*big.Int, len(proposalIDs))
	for i, id := range proposalIDs {
		ids[i] = id.Big()
	}
	packed, err := slateArgs.Pack(ids)
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(packed)
}

// validateCalls checks that every call is a plain token transfer and returns
// the total amount requested.
func validateCalls(tokenAddress common.Address, targets []common.Address, values []*big.Int, calldatas [][]byte) (*big.Int, error) {
	if len(targets) == 0 || len(targets) != len(values) || len(targets) != len(calldatas) {
		return nil, errors.Wrapf(ErrInvalidProposal, "%d targets, %d values, %d calldatas", len(targets), len(values), len(calldatas))
	}
	total := new(big.Int)
	for i := range targets {
		if targets[i] != tokenAddress {
			return nil, errors.Wrapf(ErrInvalidProposal, "call %d targets %s", i, targets[i].Hex())
		}
		if values[i] != nil && values[i].Sign() != 0 {
			return nil, errors.Wrapf(ErrInvalidProposal, "call %d sends value %s", i, values[i])
		}
		_, amount, err := token.DecodeTransfer(calldatas[i])
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidProposal, "call %d: %s", i, err)
		}
		total.Add(total, amount)
	}
	return total, nil
}

// decodePayouts extracts the transfers a proposal performs when executed.
func decodePayouts(calldatas [][]byte) ([]payout, error) {
	payouts := make([]payout, 0, len(calldatas))
	for i, data := range calldatas {
		to, amount, err := token.DecodeTransfer(data)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidProposal, "call %d: %s", i, err)
		}
		payouts = append(payouts, payout{to: to, amount: amount})
	}
	return payouts, nil
}

func normalizeValues(values []*big.Int) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = nonNil(v)
	}
	return out
}
