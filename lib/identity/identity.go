// Package identity extracts wallet addresses from the identity records of a logged-in user.
package identity

import (
	"errors"
	"net/url"
	"strings"
)

// SIWE is the connection name of identities created by Sign In With Ethereum.
const SIWE = "siwe"

// Identity is an identity record of a user as delivered by the login pipeline. Only Connection and UserID are used.
// UserID for SIWE identities looks like "siwe|eip155%3A56%3A0x1F2B...".
type Identity struct {
	Provider   string `json:"provider,omitempty" bson:"provider,omitempty"`
	UserID     string `json:"user_id" bson:"user_id"`
	Connection string `json:"connection" bson:"connection"`
	IsSocial   bool   `json:"isSocial,omitempty" bson:"isSocial,omitempty"`
}

// Errors returned by Wallets.
var (
	ErrNoIdentities = errors.New("no identities")
	ErrNoWallets    = errors.New("no wallets registered")
)

// Wallets returns the wallet address candidates of the SIWE identities, in order. Candidates are not validated nor
// de-duplicated.
func Wallets(ids []Identity) ([]string, error) {
	if len(ids) == 0 {
		return nil, ErrNoIdentities
	}

	var ws []string

	for _, id := range ids {
		if id.Connection != SIWE {
			continue
		}

		ws = append(ws, Address(id.UserID))
	}

	if len(ws) == 0 {
		return nil, ErrNoWallets
	}

	return ws, nil
}

// Address decodes a SIWE user id and returns whatever follows its last colon. User ids that cannot be
// percent-decoded are used as they come.
func Address(userID string) string {
	s, err := url.PathUnescape(userID)
	if err != nil {
		s = userID
	}

	return s[strings.LastIndex(s, ":")+1:]
}
