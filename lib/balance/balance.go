// Package balance queries the balances of a set of accounts concurrently and aggregates them.
package balance

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/tarancss/balcheck/lib/block"
	"github.com/tarancss/balcheck/lib/block/types"
)

// Failure policies for balance queries that return an error.
const (
	ABORT   = "abort"   // the first failure aborts the whole batch
	DEGRADE = "degrade" // a failure only drops that account from the aggregate
)

// RPC method names reported to the Observe hook.
const (
	MethodNative  = "eth_getBalance"
	MethodTokenOf = "balanceOf"
)

// Result is the outcome of the balance query of one account.
type Result struct {
	Address   common.Address
	Amount    *big.Int // smallest unit, nil if the query failed
	Succeeded bool
	Err       error
}

// Fetcher queries balances through a blockchain client.
type Fetcher struct {
	Chain   block.Chain
	Policy  string        // ABORT (default) or DEGRADE
	Timeout time.Duration // per query, none if 0

	// Observe, if set, is called after every query.
	Observe func(method string, took time.Duration, err error)
	// Each, if set, is called with every result of a finished batch, zero balances included.
	Each func(r Result)
}

// Fetch queries the balance of every account in accounts at the same time and waits for all of them. If token is
// nil, the native currency balance is queried, otherwise token's ERC20 balanceOf. Zero balances are left out of the
// returned results.
//
// With the ABORT policy the first failing query cancels the others and its error is returned. With DEGRADE failed
// queries are returned with Succeeded false.
func (f *Fetcher) Fetch(ctx context.Context, accounts []common.Address, token *common.Address) ([]Result, error) {
	res := make([]Result, len(accounts))

	g, gctx := errgroup.WithContext(ctx)

	for i, a := range accounts {
		i, a := i, a

		g.Go(func() error {
			bal, err := f.query(gctx, a, token)
			res[i] = Result{Address: a, Amount: bal, Succeeded: err == nil, Err: err}

			if err != nil && f.Policy != DEGRADE {
				return fmt.Errorf("%w of %s: %v", types.ErrBalance, a.Hex(), err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(res))

	for _, r := range res {
		if f.Each != nil {
			f.Each(r)
		}

		if r.Succeeded && r.Amount.Sign() == 0 {
			continue
		}

		out = append(out, r)
	}

	return out, nil
}

// query gets one balance.
func (f *Fetcher) query(ctx context.Context, account common.Address, token *common.Address) (*big.Int, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	var (
		bal    *big.Int
		err    error
		method string
	)

	start := time.Now()

	if token == nil {
		method = MethodNative
		bal, err = f.Chain.NativeBalance(ctx, account)
	} else {
		method = MethodTokenOf
		bal, err = f.Chain.TokenBalance(ctx, *token, account)
	}

	if f.Observe != nil {
		f.Observe(method, time.Since(start), err)
	}

	if err == nil && bal == nil {
		bal = new(big.Int)
	}

	return bal, err
}

// Aggregate returns the sum of the amounts of the succeeded results.
func Aggregate(results []Result) *big.Int {
	total := new(big.Int)

	for _, r := range results {
		if r.Succeeded && r.Amount != nil {
			total.Add(total, r.Amount)
		}
	}

	return total
}
