// Package models defines the client-side domain records mirrored from the
// remote document store: accounts, savings goals and deposits, plus the
// derived (never persisted) GoalExtended view.
package models

import "time"

// Collection names as they appear in the per-user remote namespace and in
// the local cache mirror.
const (
	CollectionAccounts = "accounts"
	CollectionGoals    = "goals"
	CollectionDeposits = "deposits"
)

// Account is a funding account a goal draws from. Accounts are immutable
// after creation; deletion is refused while any goal references them.
type Account struct {
	// ID is assigned by the write pipeline before the create request is
	// issued, and embedded in the document body.
	ID string `json:"id"`

	Name           string  `json:"name"`
	InitialBalance float64 `json:"initialBalance"`

	// CreatedAt is the client-side creation time in UTC.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is the server-assigned write timestamp, monotonic per
	// document. Zero until the first reconciled feed event.
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}
