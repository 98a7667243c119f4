package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/money"
)

// ComputeSplits divides total among members according to policy.
// The output preserves the order of members. It has no side effects.
//
// Equal:      share = round(total / n, 2); the residual goes to policy.RemainderTo if set.
// Exact:      caller amounts, |sum - total| <= 0.01.
// Percentage: total * pct / 100, |sum(pct) - 100| <= 0.01.
func ComputeSplits(total decimal.Decimal, policy models.SplitPolicy, members []string) ([]models.ExpenseSplit, error) {
	if !total.IsPositive() {
		return nil, models.Invalid(models.ReasonNonPositiveAmount, "total must be positive, got %s", total)
	}
	if len(members) == 0 {
		return nil, models.Invalid(models.ReasonMissingField, "must have at least one participant")
	}
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if m == "" {
			return nil, models.Invalid(models.ReasonMissingField, "participant id is empty")
		}
		if seen[m] {
			return nil, models.Invalid(models.ReasonDuplicateMember, "participant %q listed twice", m)
		}
		seen[m] = true
	}

	switch policy.Kind {
	case models.SplitEqual:
		return equalSplit(total, policy.RemainderTo, members)
	case models.SplitExact:
		return exactSplit(total, policy.Amounts, members)
	case models.SplitPercentage:
		return percentageSplit(total, policy.Percentages, members)
	default:
		return nil, models.Invalid(models.ReasonUnknownPolicy, "unknown split policy %q", policy.Kind)
	}
}

func equalSplit(total decimal.Decimal, remainderTo string, members []string) ([]models.ExpenseSplit, error) {
	n := decimal.NewFromInt(int64(len(members)))
	share := total.DivRound(n, 2)

	splits := make([]models.ExpenseSplit, len(members))
	for i, m := range members {
		splits[i] = models.ExpenseSplit{MemberID: m, Amount: share}
	}

	if remainderTo == "" {
		return splits, nil
	}
	residual := total.Sub(share.Mul(n))
	for i := range splits {
		if splits[i].MemberID == remainderTo {
			splits[i].Amount = splits[i].Amount.Add(residual)
			return splits, nil
		}
	}
	return nil, models.Invalid(models.ReasonMissingField, "remainder member %q is not a participant", remainderTo)
}

func exactSplit(total decimal.Decimal, amounts []decimal.Decimal, members []string) ([]models.ExpenseSplit, error) {
	if len(amounts) != len(members) {
		return nil, models.Invalid(models.ReasonMissingField, "got %d amounts for %d participants", len(amounts), len(members))
	}

	splits := make([]models.ExpenseSplit, len(members))
	for i, m := range members {
		if amounts[i].IsNegative() {
			return nil, models.Invalid(models.ReasonNonPositiveAmount, "amount for %q is negative", m)
		}
		splits[i] = models.ExpenseSplit{MemberID: m, Amount: amounts[i]}
	}

	if sum := money.Sum(amounts...); !money.Approx(sum, total) {
		return nil, models.Invalid(models.ReasonSplitMismatch, "amounts sum to %s, expected %s", sum.StringFixed(2), total.StringFixed(2))
	}
	return splits, nil
}

func percentageSplit(total decimal.Decimal, percentages []decimal.Decimal, members []string) ([]models.ExpenseSplit, error) {
	if len(percentages) != len(members) {
		return nil, models.Invalid(models.ReasonMissingField, "got %d percentages for %d participants", len(percentages), len(members))
	}
	for i, p := range percentages {
		if p.IsNegative() {
			return nil, models.Invalid(models.ReasonNonPositiveAmount, "percentage for %q is negative", members[i])
		}
	}
	if sum := money.Sum(percentages...); !money.Approx(sum, money.Hundred) {
		return nil, models.Invalid(models.ReasonPercentageMismatch, "percentages sum to %s, expected 100", sum)
	}

	splits := make([]models.ExpenseSplit, len(members))
	for i, m := range members {
		pct := percentages[i]
		splits[i] = models.ExpenseSplit{
			MemberID:   m,
			Amount:     total.Mul(pct).Div(money.Hundred),
			Percentage: &pct,
		}
	}
	return splits, nil
}
