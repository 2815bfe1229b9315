package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	ErrUnresolvedEntityType  = errors.New("entity: no prototype for entity type")
	ErrDuplicateRegistration = errors.New("entity: identity already registered")
	ErrRemovalOfUntracked    = errors.New("entity: identity not tracked")
	ErrInvalidMatcher        = errors.New("entity: invalid matcher tree")
)

// RemovalReason explains why a remote entity was removed
type RemovalReason uint8

const (
	RemovedExpired RemovalReason = iota
	RemovedDeactivated
	RemovedExplicit
	RemovedReset
)

func (r RemovalReason) String() string {
	switch r {
	case RemovedExpired:
		return "expired"
	case RemovedDeactivated:
		return "deactivated"
	case RemovedExplicit:
		return "removed"
	case RemovedReset:
		return "reset"
	default:
		return fmt.Sprintf("reason(%d)", r)
	}
}
