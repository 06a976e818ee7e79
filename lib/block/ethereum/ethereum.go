// Package ethereum implements the block.Chain interface for EVM networks using go-ethereum's ethclient and a bound
// ERC20 contract.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/tarancss/balcheck/lib/block/types"
)

// ERC20ABI is the minimal ERC20 interface used: balanceOf plus the metadata getters.
const ERC20ABI = `[
{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"name","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

// erc20 is the parsed ERC20ABI.
var erc20 = mustParse(ERC20ABI) //nolint:gochecknoglobals // parsed once

func mustParse(s string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}

	return a
}

// Ethereum implements a connection to an ethereum-type chain.
type Ethereum struct {
	c *ethclient.Client
}

// Init returns a client for the node at url. The connection is established lazily for http endpoints.
func Init(url string) (*Ethereum, error) {
	c, err := ethclient.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%w in %s: %v", types.ErrDial, url, err)
	}

	return &Ethereum{c: c}, nil
}

// Close ends a connection.
func (e *Ethereum) Close() {
	e.c.Close()
}

// NativeBalance returns the balance in wei of account at the latest block (eth_getBalance).
func (e *Ethereum) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	bal, err := e.c.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_getBalance %s: %w", account.Hex(), err)
	}

	return bal, nil
}

// TokenBalance calls balanceOf(account) on the token contract.
func (e *Ethereum) TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	var out []interface{}
	if err := e.call(ctx, token, &out, "balanceOf", account); err != nil {
		return nil, err
	}

	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Token returns the name, symbol and decimals of a valid ERC20 token.
func (e *Ethereum) Token(ctx context.Context, token common.Address) (t types.Token, err error) {
	t.Address = token.Hex()

	var out []interface{}
	if err = e.call(ctx, token, &out, "name"); err != nil {
		return
	}

	t.Name = *abi.ConvertType(out[0], new(string)).(*string)

	out = nil
	if err = e.call(ctx, token, &out, "symbol"); err != nil {
		return
	}

	t.Symbol = *abi.ConvertType(out[0], new(string)).(*string)

	out = nil
	if err = e.call(ctx, token, &out, "decimals"); err != nil {
		return
	}

	t.Decimals = *abi.ConvertType(out[0], new(uint8)).(*uint8)

	return
}

// call executes a read-only method of the ERC20 contract at token.
func (e *Ethereum) call(ctx context.Context, token common.Address, out *[]interface{}, method string,
	params ...interface{}) error {
	c := bind.NewBoundContract(token, erc20, e.c, nil, nil)

	err := c.Call(&bind.CallOpts{Context: ctx}, out, method, params...)
	if errors.Is(err, bind.ErrNoCode) {
		return fmt.Errorf("%w %s", types.ErrNoContract, token.Hex())
	}

	if err != nil {
		return fmt.Errorf("%s on %s: %w", method, token.Hex(), err)
	}

	if len(*out) == 0 {
		return fmt.Errorf("%w: %s returned no values", types.ErrToken, method)
	}

	return nil
}
