package models

import "time"

// Deposit is one incremental contribution towards a goal. A deposit is owned
// exclusively by its goal; deleting the goal cascade-deletes its deposits.
//
// For challenge-mode goals both DenominationValue and Quantity are set and
// Amount equals DenominationValue*Quantity; for normal-mode goals both are
// zero and absent from the wire document.
type Deposit struct {
	ID     string  `json:"id"`
	GoalID string  `json:"goalId"`
	Amount float64 `json:"amount"`

	// Date is when the money was put aside, as entered by the user.
	Date time.Time `json:"date"`

	DenominationValue float64 `json:"denominationValue,omitempty"`
	Quantity          int64   `json:"quantity,omitempty"`

	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// IsChallenge reports whether the deposit carries denomination fields.
func (d *Deposit) IsChallenge() bool {
	return d.DenominationValue > 0 && d.Quantity > 0
}
