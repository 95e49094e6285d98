package token

import (
	"bytes"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// erc20VotesABI covers the ERC20 and ERC20Votes methods the treasury uses.
const erc20VotesABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getPastVotes","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"timepoint","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"transferFrom","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// ERC20ABI is the parsed token interface.
var ERC20ABI = mustParseABI(erc20VotesABI)

// TransferSelector is the 4 byte selector of transfer(address,uint256).
var TransferSelector = ERC20ABI.Methods["transfer"].ID

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}

// EncodeTransfer builds transfer(to, amount) calldata.
func EncodeTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	return ERC20ABI.Pack("transfer", to, amount)
}

// DecodeTransfer parses transfer(address,uint256) calldata.
func DecodeTransfer(calldata []byte) (common.Address, *big.Int, error) {
	if len(calldata) < 4 || !bytes.Equal(calldata[:4], TransferSelector) {
		return common.Address{}, nil, errors.New("calldata is not a transfer call")
	}
	args, err := ERC20ABI.Methods["transfer"].Inputs.Unpack(calldata[4:])
	if err != nil {
		return common.Address{}, nil, errors.Wrap(err, "unpack transfer arguments")
	}
	to, ok := args[0].(common.Address)
	if !ok {
		return common.Address{}, nil, errors.New("transfer recipient is not an address")
	}
	amount, ok := args[1].(*big.Int)
	if !ok {
		return common.Address{}, nil, errors.New("transfer amount is not a uint256")
	}
	return to, amount, nil
}
