package models

import "github.com/shopspring/decimal"

// SplitKind selects how an expense is divided.
type SplitKind string

const (
	SplitEqual      SplitKind = "EQUAL"
	SplitExact      SplitKind = "EXACT"
	SplitPercentage SplitKind = "PERCENTAGE"
)

// SplitPolicy is the rule used to divide an expense among its participants.
// Amounts and Percentages are positional: entry i belongs to participant i.
type SplitPolicy struct {
	Kind SplitKind

	// Amounts is used by SplitExact.
	Amounts []decimal.Decimal

	// Percentages is used by SplitPercentage.
	Percentages []decimal.Decimal

	// RemainderTo optionally receives the rounding residual of an equal split.
	// Empty keeps the per-member rounded share for everybody.
	RemainderTo string
}

// Equal divides the total evenly among all participants.
func Equal() SplitPolicy {
	return SplitPolicy{Kind: SplitEqual}
}

// Exact assigns caller-supplied amounts.
func Exact(amounts ...decimal.Decimal) SplitPolicy {
	return SplitPolicy{Kind: SplitExact, Amounts: amounts}
}

// Percentage assigns caller-supplied percentages of the total.
func Percentage(percentages ...decimal.Decimal) SplitPolicy {
	return SplitPolicy{Kind: SplitPercentage, Percentages: percentages}
}

// ExpenseSplit is one participant's owed share of an expense.
type ExpenseSplit struct {
	MemberID string
	Amount   decimal.Decimal

	// Percentage is set only for percentage splits.
	Percentage *decimal.Decimal
}

// Expense is an amount paid by one member on behalf of the participants.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group the expense belongs to.
	GroupID string

	// PaidBy is the member who paid the full amount.
	PaidBy string

	Description string

	// Amount is the total paid.
	Amount decimal.Decimal

	SplitKind SplitKind

	// Splits are the per-participant shares, in participant order.
	Splits []ExpenseSplit

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64

	// CreatedBy is the user ID who recorded the expense.
	CreatedBy string
}
