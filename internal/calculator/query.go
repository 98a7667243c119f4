package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
)

// Summarize totals the edges touching member. O(edges), no side effects.
func Summarize(balances []models.Balance, member string) models.MemberSummary {
	summary := models.MemberSummary{MemberID: member}
	for _, b := range balances {
		switch member {
		case b.DebtorID:
			summary.Owed = summary.Owed.Add(b.Amount)
		case b.CreditorID:
			summary.OwedBy = summary.OwedBy.Add(b.Amount)
		}
	}
	summary.Net = summary.OwedBy.Sub(summary.Owed)
	return summary
}

// SummarizeAll returns a summary for each of members, in order.
func SummarizeAll(balances []models.Balance, members []string) []models.MemberSummary {
	summaries := make([]models.MemberSummary, len(members))
	for i, m := range members {
		summaries[i] = Summarize(balances, m)
	}
	return summaries
}

// BalanceWith returns the signed balance between a and b:
// positive when b owes a, negative when a owes b, zero when settled.
func BalanceWith(balances []models.Balance, a, b string) decimal.Decimal {
	for _, bal := range balances {
		if bal.CreditorID == a && bal.DebtorID == b {
			return bal.Amount
		}
		if bal.CreditorID == b && bal.DebtorID == a {
			return bal.Amount.Neg()
		}
	}
	return decimal.Zero
}

// Suggestions lists what member should pay and expect to receive, one entry per edge.
func Suggestions(balances []models.Balance, member string) []models.Suggestion {
	var out []models.Suggestion
	for _, b := range balances {
		switch member {
		case b.DebtorID:
			out = append(out, models.Suggestion{
				Kind:         models.SuggestOwe,
				CounterParty: b.CreditorID,
				DisplayName:  b.CreditorName,
				Amount:       b.Amount,
			})
		case b.CreditorID:
			out = append(out, models.Suggestion{
				Kind:         models.SuggestReceive,
				CounterParty: b.DebtorID,
				DisplayName:  b.DebtorName,
				Amount:       b.Amount,
			})
		}
	}
	return out
}
