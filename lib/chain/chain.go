// Package chain resolves EVM chain ids to the JSON-RPC endpoints used to query balances.
//
// The default table holds the public endpoints of the supported networks. Endpoints can be overridden, or new chains
// added, from the service configuration (see lib/config).
package chain

import (
	"sort"
)

// Supported chain ids.
const (
	EthereumMainnet int64 = 1
	EthereumGoerli  int64 = 5
	BNBMainnet      int64 = 56
	BNBTestnet      int64 = 97
	PolygonMainnet  int64 = 137
	EthereumSepolia int64 = 11155111
)

// Endpoint defines a chain and the node serving it. Secret is optional and only used by drivers that support basic
// authentication against the node.
type Endpoint struct {
	ID     int64  `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Node   string `json:"node" yaml:"node"`
	Secret string `json:"secret,omitempty" yaml:"secret,omitempty"`
}

// Defaults is the built-in chain table.
var Defaults = []Endpoint{ //nolint:gochecknoglobals // fixed table
	{ID: EthereumMainnet, Name: "ethereum", Node: "https://eth.public-rpc.com"},
	{ID: EthereumGoerli, Name: "goerli", Node: "https://rpc.ankr.com/eth_goerli"},
	{ID: BNBMainnet, Name: "bsc", Node: "https://bscrpc.com"},
	{ID: BNBTestnet, Name: "bsc-testnet", Node: "https://bsc-testnet.public.blastapi.io"},
	{ID: PolygonMainnet, Name: "polygon", Node: "https://polygon-rpc.com"},
	{ID: EthereumSepolia, Name: "sepolia", Node: "https://rpc.sepolia.org"},
}

// Registry is a read-only lookup table of chain endpoints.
type Registry struct {
	m map[int64]Endpoint
}

// New returns a Registry with the default table, overridden by the given endpoints. An override with an empty
// node removes the chain.
func New(overrides []Endpoint) *Registry {
	r := &Registry{m: make(map[int64]Endpoint, len(Defaults)+len(overrides))}

	for _, e := range Defaults {
		r.m[e.ID] = e
	}

	for _, e := range overrides {
		if e.Node == "" {
			delete(r.m, e.ID)

			continue
		}

		if e.Name == "" {
			e.Name = r.m[e.ID].Name
		}

		r.m[e.ID] = e
	}

	return r
}

// Resolve returns the endpoint url for chainID, or an empty string if the chain is not supported.
func (r *Registry) Resolve(chainID int64) string {
	return r.m[chainID].Node
}

// Lookup returns the full endpoint definition for chainID.
func (r *Registry) Lookup(chainID int64) (Endpoint, bool) {
	e, ok := r.m[chainID]

	return e, ok
}

// Name returns the display name of chainID or an empty string.
func (r *Registry) Name(chainID int64) string {
	return r.m[chainID].Name
}

// Chains returns the supported endpoints sorted by chain id.
func (r *Registry) Chains() []Endpoint {
	l := make([]Endpoint, 0, len(r.m))
	for _, e := range r.m {
		l = append(l, e)
	}

	sort.Slice(l, func(i, j int) bool { return l[i].ID < l[j].ID })

	return l
}

// Resolve looks chainID up in the default table.
func Resolve(chainID int64) string {
	for _, e := range Defaults {
		if e.ID == chainID {
			return e.Node
		}
	}

	return ""
}
