package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
)

// NetPositions returns every member's credit minus debt across all edges.
func NetPositions(balances []models.Balance) map[string]decimal.Decimal {
	net := make(map[string]decimal.Decimal)
	for _, b := range balances {
		net[b.CreditorID] = net[b.CreditorID].Add(b.Amount)
		net[b.DebtorID] = net[b.DebtorID].Sub(b.Amount)
	}
	return net
}

type party struct {
	id        string
	remaining decimal.Decimal
}

// Simplify collapses pairwise balances into a short payment plan.
//
// Algorithm:
// - Net every member's position across all edges
// - Split members into debtors (net < 0) and creditors (net > 0), each sorted by ID
// - Greedily match the current debtor with the current creditor for min(remaining)
//
// The plan has at most (members with nonzero net) - 1 payments and moves exactly the
// total net debt. It is a heuristic, not a guaranteed minimum.
func Simplify(balances []models.Balance) []models.Payment {
	net := NetPositions(balances)

	ids := make([]string, 0, len(net))
	for id := range net {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var debtors, creditors []*party
	for _, id := range ids {
		switch n := net[id]; n.Sign() {
		case -1:
			debtors = append(debtors, &party{id: id, remaining: n.Neg()})
		case 1:
			creditors = append(creditors, &party{id: id, remaining: n})
		}
	}

	var payments []models.Payment
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor, creditor := debtors[i], creditors[j]

		amount := decimal.Min(debtor.remaining, creditor.remaining)
		payments = append(payments, models.Payment{
			From:   debtor.id,
			To:     creditor.id,
			Amount: amount,
		})

		debtor.remaining = debtor.remaining.Sub(amount)
		creditor.remaining = creditor.remaining.Sub(amount)

		if debtor.remaining.IsZero() {
			i++
		}
		if creditor.remaining.IsZero() {
			j++
		}
	}

	return payments
}
