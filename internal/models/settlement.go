package models

import "github.com/shopspring/decimal"

// Settlement is an immutable record of a completed payment between group members.
// It is history only; applying it to the ledger is what changes balances.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// GroupID is the group this settlement belongs to.
	GroupID string

	// PayerID is the member who paid.
	PayerID string

	// PayeeID is the member who received the payment.
	PayeeID string

	// Amount is the payment amount.
	Amount decimal.Decimal

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64

	// CreatedBy is the user ID who recorded this settlement.
	CreatedBy string

	// Note is an optional description for the settlement.
	Note string
}

// Payment is one transfer of a simplified settlement plan.
type Payment struct {
	From   string
	To     string
	Amount decimal.Decimal
}
