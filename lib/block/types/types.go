// Package types common blockchain types.
package types

import (
	"errors"
)

// Token is an ERC20 asset.
type Token struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// Error codes.
var (
	ErrNoEndpoint = errors.New("no node endpoint for chain")
	ErrDriver     = errors.New("unknown blockchain driver")
	ErrDial       = errors.New("cannot connect to blockchain node")
	ErrBalance    = errors.New("cannot get balance")
	ErrToken      = errors.New("cannot get token details")
	ErrNoContract = errors.New("no contract code at token address")
)
