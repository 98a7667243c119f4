package models

import "github.com/shopspring/decimal"

// ExpenseStats aggregates a group's expense log.
type ExpenseStats struct {
	Total   decimal.Decimal
	Count   int
	Average decimal.Decimal

	// ByKind is ordered by split kind, ByPayer by member ID.
	ByKind  []KindStat
	ByPayer []PayerStat
}

// KindStat totals the expenses split with one policy.
type KindStat struct {
	Kind  SplitKind
	Total decimal.Decimal
	Count int
}

// PayerStat totals what one member paid.
type PayerStat struct {
	MemberID string
	Total    decimal.Decimal
	Count    int
}
