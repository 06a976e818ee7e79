// Package mock provides an in-process EVM JSON-RPC node to test balance queries without a blockchain. It serves
// eth_getBalance, eth_call (ERC20 balanceOf, name, symbol and decimals), eth_getCode and eth_chainId.
package mock

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ERC20 method ids.
const (
	BalanceOf = "70a08231"
	Name      = "06fdde03"
	Symbol    = "95d89b41"
	Decimals  = "313ce567"
)

// Token is the metadata served for a token contract.
type Token struct {
	Name     string
	Symbol   string
	Decimals uint8
	holders  map[string]*big.Int
}

// Node is a mock blockchain node. Addresses are matched case-insensitively.
type Node struct {
	*httptest.Server

	ChainID int64
	Delay   time.Duration // applied to every request

	l      sync.Mutex
	native map[string]*big.Int
	tokens map[string]*Token
	fail   map[string]bool
	calls  map[string]int
}

// mockRequest is a JSON-RPC request.
type mockRequest struct {
	Version string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      *json.RawMessage  `json:"id"`
}

// mockError is a JSON-RPC error.
type mockError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// mockResponse is a JSON-RPC response.
type mockResponse struct {
	Version string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id"`
	Result  interface{}      `json:"result,omitempty"`
	Error   *mockError       `json:"error,omitempty"`
}

// NewNode starts a mock node. Close it when done.
func NewNode() *Node {
	n := &Node{
		ChainID: 56,
		native:  make(map[string]*big.Int),
		tokens:  make(map[string]*Token),
		fail:    make(map[string]bool),
		calls:   make(map[string]int),
	}
	n.Server = httptest.NewServer(http.HandlerFunc(n.handler))

	return n
}

// SetNative sets the native balance of addr.
func (n *Node) SetNative(addr string, bal *big.Int) {
	n.l.Lock()
	n.native[strings.ToLower(addr)] = bal
	n.l.Unlock()
}

// AddToken deploys a token contract at addr.
func (n *Node) AddToken(addr, name, symbol string, decimals uint8) {
	n.l.Lock()
	n.tokens[strings.ToLower(addr)] = &Token{Name: name, Symbol: symbol, Decimals: decimals, holders: map[string]*big.Int{}}
	n.l.Unlock()
}

// SetToken sets the token balance of holder. The token must have been added.
func (n *Node) SetToken(token, holder string, bal *big.Int) {
	n.l.Lock()
	n.tokens[strings.ToLower(token)].holders[strings.ToLower(holder)] = bal
	n.l.Unlock()
}

// Fail makes every balance query about addr return a JSON-RPC error.
func (n *Node) Fail(addr string) {
	n.l.Lock()
	n.fail[strings.ToLower(addr)] = true
	n.l.Unlock()
}

// Calls returns how many requests for method were served. An empty method returns the total.
func (n *Node) Calls(method string) int {
	n.l.Lock()
	defer n.l.Unlock()

	if method != "" {
		return n.calls[method]
	}

	var t int
	for _, c := range n.calls {
		t += c
	}

	return t
}

// handler defines the handler function for the mock HTTP server.
func (n *Node) handler(w http.ResponseWriter, r *http.Request) {
	var req mockRequest

	var res mockResponse

	// make sure we reply to request either with error or the response
	defer func() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		res.Version = "2.0"
		_ = json.NewEncoder(w).Encode(res)
	}()

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		res.Error = &mockError{Code: -32700, Message: err.Error()}

		return
	}

	res.ID = req.ID

	if n.Delay > 0 {
		time.Sleep(n.Delay)
	}

	n.l.Lock()
	defer n.l.Unlock()

	n.calls[req.Method]++

	var err error

	switch req.Method {
	case "eth_chainId":
		res.Result = hexutil.EncodeBig(big.NewInt(n.ChainID))
	case "eth_getBalance":
		res.Result, err = n.getBalance(req.Params)
	case "eth_call":
		res.Result, err = n.call(req.Params)
	case "eth_getCode":
		res.Result, err = n.getCode(req.Params)
	default:
		err = fmt.Errorf("the method %s does not exist/is not available", req.Method)
	}

	if err != nil {
		res.Result = nil
		res.Error = &mockError{Code: -32000, Message: err.Error()}
	}
}

func (n *Node) getBalance(params []json.RawMessage) (interface{}, error) {
	var addr string
	if len(params) == 0 || json.Unmarshal(params[0], &addr) != nil {
		return nil, fmt.Errorf("invalid params")
	}

	addr = strings.ToLower(addr)
	if n.fail[addr] {
		return nil, fmt.Errorf("node unavailable for %s", addr)
	}

	bal, ok := n.native[addr]
	if !ok {
		bal = new(big.Int)
	}

	return hexutil.EncodeBig(bal), nil
}

func (n *Node) getCode(params []json.RawMessage) (interface{}, error) {
	var addr string
	if len(params) == 0 || json.Unmarshal(params[0], &addr) != nil {
		return nil, fmt.Errorf("invalid params")
	}

	if _, ok := n.tokens[strings.ToLower(addr)]; ok {
		return "0x6080604052", nil
	}

	return "0x", nil
}

func (n *Node) call(params []json.RawMessage) (interface{}, error) {
	var msg struct {
		To    string `json:"to"`
		Data  string `json:"data"`
		Input string `json:"input"`
	}

	if len(params) == 0 || json.Unmarshal(params[0], &msg) != nil {
		return nil, fmt.Errorf("invalid params")
	}

	data := msg.Data
	if data == "" {
		data = msg.Input
	}

	data = strings.TrimPrefix(strings.ToLower(data), "0x")

	tok, ok := n.tokens[strings.ToLower(msg.To)]
	if !ok || len(data) < 8 {
		return "0x", nil // no contract code: empty output
	}

	switch data[:8] {
	case BalanceOf:
		if len(data) < 8+64 {
			return nil, fmt.Errorf("execution reverted")
		}

		holder := "0x" + data[8+24:8+64]
		if n.fail[holder] {
			return nil, fmt.Errorf("node unavailable for %s", holder)
		}

		bal, ok := tok.holders[holder]
		if !ok {
			bal = new(big.Int)
		}

		return "0x" + hex.EncodeToString(common.LeftPadBytes(bal.Bytes(), 32)), nil
	case Name:
		return pack("string", tok.Name)
	case Symbol:
		return pack("string", tok.Symbol)
	case Decimals:
		return pack("uint8", tok.Decimals)
	}

	return nil, fmt.Errorf("execution reverted")
}

// pack ABI-encodes a single return value.
func pack(t string, v interface{}) (interface{}, error) {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		return nil, err
	}

	b, err := abi.Arguments{{Type: typ}}.Pack(v)
	if err != nil {
		return nil, err
	}

	return "0x" + hex.EncodeToString(b), nil
}
