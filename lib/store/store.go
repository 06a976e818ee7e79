// Package store defines the interface for database implementations of the decision audit log.
package store

import (
	"errors"
)

// DB defines the required methods to record and read verification decisions.
type DB interface {
	SaveDecision(Decision) error
	// GetDecisions returns the latest decisions for chainID, newest first. A chainID of 0 returns all chains.
	GetDecisions(chainID int64, limit int) ([]Decision, error)
}

// Errors returned.
var (
	ErrDataNotFound = errors.New("data was not found in store")
	ErrNoID         = errors.New("decision has no id")
)
