// Package block defines the interface required for all blockchain or network connections.
package block

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tarancss/balcheck/lib/block/ethcli"
	"github.com/tarancss/balcheck/lib/block/ethereum"
	"github.com/tarancss/balcheck/lib/block/types"
	"github.com/tarancss/balcheck/lib/chain"
	"github.com/tarancss/balcheck/lib/util"
)

// Drivers available to connect to EVM nodes.
const (
	ETHEREUM = "ethereum" // go-ethereum ethclient, default
	ETHCLI   = "ethcli"   // github.com/tarancss/ethcli, supports basic authentication
)

// Chain is the interface to read balances from an EVM chain. All methods are safe for concurrent use.
type Chain interface {
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error)
	Token(ctx context.Context, token common.Address) (types.Token, error)
	Close()
}

// Dial returns a connection to node using driver. Secret is passed to drivers that support authentication.
func Dial(driver, node, secret string) (Chain, error) {
	if node == "" {
		return nil, types.ErrNoEndpoint
	}

	switch driver {
	case ETHEREUM, "":
		return ethereum.Init(node)
	case ETHCLI:
		return ethcli.Init(node, secret)
	}

	return nil, fmt.Errorf("%w: %s", types.ErrDriver, driver)
}

// Pool keeps one Chain client per chain id, dialled on first use.
type Pool struct {
	driver string
	reg    *chain.Registry
	l      sync.Mutex
	m      map[int64]Chain
}

// NewPool returns a Pool resolving endpoints with reg and connecting with driver.
func NewPool(driver string, reg *chain.Registry) *Pool {
	return &Pool{driver: driver, reg: reg, m: make(map[int64]Chain)}
}

// Get returns the client for chainID, connecting to its node if necessary.
func (p *Pool) Get(chainID int64) (Chain, error) {
	p.l.Lock()
	defer p.l.Unlock()

	if c, ok := p.m[chainID]; ok {
		return c, nil
	}

	e, ok := p.reg.Lookup(chainID)
	if !ok {
		return nil, fmt.Errorf("%w %d", types.ErrNoEndpoint, chainID)
	}

	c, err := Dial(p.driver, e.Node, e.Secret)
	if err != nil {
		return nil, err
	}

	log.Printf("[%d] Connected %s client to %s", chainID, p.driver, util.Redact(e.Node))
	p.m[chainID] = c

	return c, nil
}

// Set registers c as the client for chainID.
func (p *Pool) Set(chainID int64, c Chain) {
	p.l.Lock()
	p.m[chainID] = c
	p.l.Unlock()
}

// End closes gracefully all the blockchain clients opened.
func (p *Pool) End() {
	p.l.Lock()
	defer p.l.Unlock()

	for id, c := range p.m {
		c.Close()
		delete(p.m, id)
	}
}
