package store

import (
	"time"
)

// Decision is the audit record of a verification. It never holds balances.
type Decision struct {
	ID       string    `json:"id" bson:"_id"`
	ChainID  int64     `json:"chainId" bson:"chainId"`
	Contract string    `json:"contract,omitempty" bson:"contract,omitempty"`
	Minimum  string    `json:"minimum" bson:"minimum"`
	Decimals int32     `json:"decimals" bson:"decimals"`
	Wallets  int       `json:"wallets" bson:"wallets"`
	Valid    bool      `json:"valid" bson:"valid"`
	Reason   string    `json:"reason" bson:"reason"`
	TS       time.Time `json:"ts" bson:"ts"`
}
