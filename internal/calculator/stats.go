package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/money"
)

// ExpenseStats totals an expense log overall, per split kind and per payer.
// Average is rounded to cents and is zero for an empty log.
func ExpenseStats(expenses []*models.Expense) models.ExpenseStats {
	stats := models.ExpenseStats{Count: len(expenses)}

	byKind := make(map[models.SplitKind]*models.KindStat)
	byPayer := make(map[string]*models.PayerStat)
	for _, e := range expenses {
		stats.Total = stats.Total.Add(e.Amount)

		k, ok := byKind[e.SplitKind]
		if !ok {
			k = &models.KindStat{Kind: e.SplitKind}
			byKind[e.SplitKind] = k
		}
		k.Total = k.Total.Add(e.Amount)
		k.Count++

		p, ok := byPayer[e.PaidBy]
		if !ok {
			p = &models.PayerStat{MemberID: e.PaidBy}
			byPayer[e.PaidBy] = p
		}
		p.Total = p.Total.Add(e.Amount)
		p.Count++
	}
	if stats.Count > 0 {
		stats.Average = money.Round2(stats.Total.Div(decimal.NewFromInt(int64(stats.Count))))
	}

	for _, k := range byKind {
		stats.ByKind = append(stats.ByKind, *k)
	}
	sort.Slice(stats.ByKind, func(i, j int) bool { return stats.ByKind[i].Kind < stats.ByKind[j].Kind })

	for _, p := range byPayer {
		stats.ByPayer = append(stats.ByPayer, *p)
	}
	sort.Slice(stats.ByPayer, func(i, j int) bool { return stats.ByPayer[i].MemberID < stats.ByPayer[j].MemberID })

	return stats
}
