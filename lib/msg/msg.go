// Package msg defines the interface for different message brokers and the messages exchanged through them.
package msg

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/tarancss/balcheck/lib/identity"
)

// VerifyReq defines a verification request. It is published to the broker by clients of the service and is also the
// body of the REST verify endpoint. ContractDecimals defaults to 18 when missing.
type VerifyReq struct {
	ID               string              `json:"id,omitempty"`
	Identities       []identity.Identity `json:"identities"`
	ChainID          int64               `json:"chainId"`
	MinimumAmount    decimal.Decimal     `json:"minimumAmount"`
	ContractAddress  string              `json:"contractAddress,omitempty"`
	ContractDecimals *int32              `json:"contractDecimals,omitempty"`
	Debug            bool                `json:"debug,omitempty"`
}

// VerifyEvent defines the message published with the outcome of a verification request. Error is set when the
// verification could not be completed.
type VerifyEvent struct {
	ID      string `json:"id"`
	ChainID int64  `json:"chainId"`
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

type MsgBroker interface {
	Setup(interface{}) error
	Close() error

	// methods for clients
	SendRequest(chainID int64, r VerifyReq) error
	GetOutcomes(chainID int64, mut *sync.Mutex) (<-chan VerifyEvent, <-chan error, error)

	// methods for the worker
	GetReqs(chainID int64, mut *sync.Mutex) (<-chan VerifyReq, <-chan error, error)
	SendOutcome(chainID int64, e VerifyEvent) error
}
