package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/money"
	"github.com/mmynk/splitwiser/pkg/api"
)

func parseAmount(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, models.Invalid(models.ReasonMissingField, "%s is required", field)
	}
	d, err := money.Parse(s)
	if err != nil {
		return decimal.Zero, models.Invalid(models.ReasonMalformedAmount, "%s: %v", field, err)
	}
	return d, nil
}

func parseAmounts(field string, values []string) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		d, err := parseAmount(field, v)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func policyFromAPI(p api.SplitPolicy) (models.SplitPolicy, error) {
	amounts, err := parseAmounts("policy.amounts", p.Amounts)
	if err != nil {
		return models.SplitPolicy{}, err
	}
	percentages, err := parseAmounts("policy.percentages", p.Percentages)
	if err != nil {
		return models.SplitPolicy{}, err
	}
	kind := models.SplitKind(p.Kind)
	if kind == "" {
		kind = models.SplitEqual
	}
	return models.SplitPolicy{
		Kind:        kind,
		Amounts:     amounts,
		Percentages: percentages,
		RemainderTo: p.RemainderTo,
	}, nil
}

func formatAmount(d decimal.Decimal) string {
	return money.Round2(d).StringFixed(2)
}

func splitsToAPI(splits []models.ExpenseSplit) []api.ExpenseSplit {
	out := make([]api.ExpenseSplit, len(splits))
	for i, s := range splits {
		out[i] = api.ExpenseSplit{MemberID: s.MemberID, Amount: formatAmount(s.Amount)}
		if s.Percentage != nil {
			out[i].Percentage = s.Percentage.String()
		}
	}
	return out
}

func expenseToAPI(e *models.Expense) *api.Expense {
	return &api.Expense{
		ID:          e.ID,
		GroupID:     e.GroupID,
		PaidBy:      e.PaidBy,
		Description: e.Description,
		Amount:      formatAmount(e.Amount),
		SplitKind:   string(e.SplitKind),
		Splits:      splitsToAPI(e.Splits),
		CreatedAt:   e.CreatedAt,
		CreatedBy:   e.CreatedBy,
	}
}

func settlementToAPI(s *models.Settlement) *api.Settlement {
	return &api.Settlement{
		ID:         s.ID,
		GroupID:    s.GroupID,
		FromUserID: s.PayerID,
		ToUserID:   s.PayeeID,
		Amount:     formatAmount(s.Amount),
		CreatedAt:  s.CreatedAt,
		CreatedBy:  s.CreatedBy,
		Note:       s.Note,
	}
}

func summaryToAPI(s models.MemberSummary) api.MemberSummary {
	return api.MemberSummary{
		MemberID: s.MemberID,
		Owed:     formatAmount(s.Owed),
		OwedBy:   formatAmount(s.OwedBy),
		Net:      formatAmount(s.Net),
	}
}

// statsToAPI fills payer display names from the group; former members keep their ID.
func statsToAPI(stats models.ExpenseStats, g *models.Group) *api.GetExpenseStatsResponse {
	names := make(map[string]string, len(g.Members))
	for _, m := range g.Members {
		names[m.ID] = m.DisplayName
	}

	resp := &api.GetExpenseStatsResponse{
		Total:   formatAmount(stats.Total),
		Count:   stats.Count,
		Average: formatAmount(stats.Average),
		ByKind:  make([]api.KindStat, 0, len(stats.ByKind)),
		ByPayer: make([]api.PayerStat, 0, len(stats.ByPayer)),
	}
	for _, k := range stats.ByKind {
		resp.ByKind = append(resp.ByKind, api.KindStat{Kind: string(k.Kind), Total: formatAmount(k.Total), Count: k.Count})
	}
	for _, p := range stats.ByPayer {
		name, ok := names[p.MemberID]
		if !ok {
			name = p.MemberID
		}
		resp.ByPayer = append(resp.ByPayer, api.PayerStat{
			MemberID:    p.MemberID,
			DisplayName: name,
			Total:       formatAmount(p.Total),
			Count:       p.Count,
		})
	}
	return resp
}

func groupToAPI(g *models.Group) *api.Group {
	members := make([]api.Member, len(g.Members))
	for i, m := range g.Members {
		members[i] = api.Member{ID: m.ID, DisplayName: m.DisplayName}
	}
	return &api.Group{
		ID:        g.ID,
		Name:      g.Name,
		Members:   members,
		CreatedAt: g.CreatedAt,
	}
}

func membersFromAPI(members []api.Member) []models.Member {
	out := make([]models.Member, len(members))
	for i, m := range members {
		name := m.DisplayName
		if name == "" {
			name = m.ID
		}
		out[i] = models.Member{ID: m.ID, DisplayName: name}
	}
	return out
}
