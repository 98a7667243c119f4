package models

import "github.com/shopspring/decimal"

// Balance is a directed edge: Debtor owes Creditor Amount inside GroupID.
// Amount is always strictly positive; a settled pair has no edge at all.
type Balance struct {
	GroupID    string
	DebtorID   string
	CreditorID string
	Amount     decimal.Decimal

	// Display names are filled in by snapshots for presentation.
	DebtorName   string
	CreditorName string

	// UpdatedAt is the Unix timestamp of the last mutation.
	UpdatedAt int64
}

// Involves reports whether the edge connects a and b, in either direction.
func (b Balance) Involves(x, y string) bool {
	return (b.DebtorID == x && b.CreditorID == y) || (b.DebtorID == y && b.CreditorID == x)
}

// MemberSummary aggregates one member's edges.
type MemberSummary struct {
	MemberID string

	// Owed is what the member owes others.
	Owed decimal.Decimal

	// OwedBy is what others owe the member.
	OwedBy decimal.Decimal

	// Net is OwedBy - Owed; positive means the member is owed money.
	Net decimal.Decimal
}

// SuggestionKind tells whether the member should pay or expect a payment.
type SuggestionKind string

const (
	SuggestOwe     SuggestionKind = "owe"
	SuggestReceive SuggestionKind = "receive"
)

// Suggestion is one settle-up hint for a member, derived from a single edge.
type Suggestion struct {
	Kind         SuggestionKind
	CounterParty string
	DisplayName  string
	Amount       decimal.Decimal
}
