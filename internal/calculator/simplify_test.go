package calculator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitwiser/internal/models"
)

func edge(debtor, creditor, amount string) models.Balance {
	return models.Balance{DebtorID: debtor, CreditorID: creditor, Amount: d(amount)}
}

func totalPaid(payments []models.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

// applyPlan returns the net positions left after every payment is made.
func applyPlan(balances []models.Balance, payments []models.Payment) map[string]decimal.Decimal {
	net := NetPositions(balances)
	for _, p := range payments {
		net[p.From] = net[p.From].Add(p.Amount)
		net[p.To] = net[p.To].Sub(p.Amount)
	}
	return net
}

func TestSimplify_ThreeMembers(t *testing.T) {
	balances := []models.Balance{
		edge("B", "A", "50"),
		edge("C", "A", "30"),
		edge("C", "B", "10"),
	}

	net := NetPositions(balances)
	assert.Equal(t, "80", net["A"].String())
	assert.Equal(t, "-40", net["B"].String())
	assert.Equal(t, "-40", net["C"].String())

	payments := Simplify(balances)
	require.Len(t, payments, 2)
	assert.Equal(t, "B", payments[0].From)
	assert.Equal(t, "A", payments[0].To)
	assert.Equal(t, "40", payments[0].Amount.String())
	assert.Equal(t, "C", payments[1].From)
	assert.Equal(t, "A", payments[1].To)
	assert.Equal(t, "40", payments[1].Amount.String())
	assert.Equal(t, "80", totalPaid(payments).String())
}

func TestSimplify_CollapsesChain(t *testing.T) {
	// A owes B, B owes C: one payment A -> C replaces two.
	balances := []models.Balance{
		edge("A", "B", "25"),
		edge("B", "C", "25"),
	}

	payments := Simplify(balances)
	require.Len(t, payments, 1)
	assert.Equal(t, "A", payments[0].From)
	assert.Equal(t, "C", payments[0].To)
	assert.Equal(t, "25", payments[0].Amount.String())
}

func TestSimplify_Empty(t *testing.T) {
	assert.Empty(t, Simplify(nil))
	// A pair that nets to zero needs no payment.
	assert.Empty(t, Simplify([]models.Balance{edge("A", "B", "10"), edge("B", "A", "10")}))
}

func TestSimplify_Conservation(t *testing.T) {
	cases := [][]models.Balance{
		{edge("B", "A", "50"), edge("C", "A", "30"), edge("C", "B", "10")},
		{edge("A", "B", "10.10"), edge("C", "D", "3.33"), edge("E", "A", "7.77")},
		{edge("M1", "M2", "0.01"), edge("M3", "M2", "0.02"), edge("M2", "M4", "0.04")},
		{edge("X", "Y", "33.333"), edge("Y", "Z", "66.667"), edge("Z", "W", "100")},
	}

	for _, balances := range cases {
		payments := Simplify(balances)

		// Every member ends at exactly zero: no debt created or destroyed.
		for id, n := range applyPlan(balances, payments) {
			assert.True(t, n.IsZero(), "member %s left with %s", id, n)
		}

		// Payment total equals the total net debt.
		owed := decimal.Zero
		nonzero := 0
		for _, n := range NetPositions(balances) {
			if n.IsPositive() {
				owed = owed.Add(n)
			}
			if !n.IsZero() {
				nonzero++
			}
		}
		assert.True(t, owed.Equal(totalPaid(payments)))
		assert.LessOrEqual(t, len(payments), nonzero-1)

		for _, p := range payments {
			assert.True(t, p.Amount.IsPositive())
			assert.NotEqual(t, p.From, p.To)
		}
	}
}

func TestSimplify_Deterministic(t *testing.T) {
	balances := []models.Balance{
		edge("D", "A", "5"),
		edge("C", "B", "7"),
		edge("E", "A", "3"),
	}
	first := Simplify(balances)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Simplify(balances))
	}
}
