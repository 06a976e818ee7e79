// Package ethcli implements the block.Chain interface on top of github.com/tarancss/ethcli. It is the driver to use
// when the node requires basic authentication.
package ethcli

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	cli "github.com/tarancss/ethcli"

	"github.com/tarancss/balcheck/lib/block/types"
)

// Ethcli implements a connection to an ethereum-type chain.
type Ethcli struct {
	c *cli.EthCli
}

// Init returns a connection to an ethereum node, using secret if necessary for authentication.
func Init(node, secret string) (*Ethcli, error) {
	c := cli.Init(node, secret)
	if c == nil {
		return nil, fmt.Errorf("%w in %s", types.ErrDial, node)
	}

	return &Ethcli{c: c}, nil
}

// Close ends a connection.
func (e *Ethcli) Close() {
	e.c.End()
}

// NativeBalance returns the ether balance of account.
func (e *Ethcli) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	var bal *big.Int

	err := do(ctx, func() (errB error) {
		bal, _, errB = e.c.GetBalance(account.Hex(), "")

		return errB
	})
	if err != nil {
		return nil, fmt.Errorf("eth_getBalance %s: %w", account.Hex(), err)
	}

	return bal, nil
}

// TokenBalance returns the token balance of account.
func (e *Ethcli) TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	var tok *big.Int

	err := do(ctx, func() (errB error) {
		_, tok, errB = e.c.GetBalance(account.Hex(), token.Hex())

		return errB
	})
	if errors.Is(err, cli.ErrBadAmt) {
		// the node returns an empty result when there is no contract at token
		return nil, fmt.Errorf("%w %s", types.ErrNoContract, token.Hex())
	}

	if err != nil {
		return nil, fmt.Errorf("balanceOf on %s: %w", token.Hex(), err)
	}

	return tok, nil
}

// Token returns the name, symbol and decimals of a valid ERC20 token.
func (e *Ethcli) Token(ctx context.Context, token common.Address) (types.Token, error) {
	var t types.Token

	t.Address = token.Hex()

	err := do(ctx, func() error {
		var errT error
		if t.Name, errT = e.c.GetTokenName(t.Address); errT != nil {
			return errT
		}

		if t.Symbol, errT = e.c.GetTokenSymbol(t.Address); errT != nil {
			return errT
		}

		var dec uint64
		if dec, errT = e.c.GetTokenDecimals(t.Address); errT != nil {
			return errT
		}

		t.Decimals = uint8(dec)

		return nil
	})
	if err != nil {
		// t may still be written by the abandoned call
		return types.Token{}, fmt.Errorf("%w %s: %v", types.ErrToken, token.Hex(), err)
	}

	return t, nil
}

// do runs f, which cannot be cancelled, and returns early with the context error if ctx is done first.
func do(ctx context.Context, f func() error) error {
	ch := make(chan error, 1)

	go func() {
		ch <- f()
	}()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
