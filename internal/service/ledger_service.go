package service

import (
	"context"
	"fmt"

	"connectrpc.com/connect"

	"github.com/mmynk/splitwiser/internal/calculator"
	"github.com/mmynk/splitwiser/internal/ledger"
	"github.com/mmynk/splitwiser/internal/middleware"
	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
	"github.com/mmynk/splitwiser/pkg/api"
	"github.com/mmynk/splitwiser/pkg/api/apiconnect"
	"github.com/mmynk/splitwiser/pkg/logging"
)

var _ apiconnect.LedgerServiceHandler = (*LedgerService)(nil)

// LedgerService implements the Connect LedgerService.
type LedgerService struct {
	ledger *ledger.Ledger
	store  storage.Store
}

// NewLedgerService creates a LedgerService over the given ledger and its store.
func NewLedgerService(l *ledger.Ledger, store storage.Store) *LedgerService {
	return &LedgerService{ledger: l, store: store}
}

// ComputeSplits previews how an amount would be divided without touching the ledger.
func (s *LedgerService) ComputeSplits(ctx context.Context, req *connect.Request[api.ComputeSplitsRequest]) (*connect.Response[api.ComputeSplitsResponse], error) {
	total, err := parseAmount("total", req.Msg.Total)
	if err != nil {
		return nil, toConnectError(ctx, "ComputeSplits", err)
	}
	policy, err := policyFromAPI(req.Msg.Policy)
	if err != nil {
		return nil, toConnectError(ctx, "ComputeSplits", err)
	}

	splits, err := calculator.ComputeSplits(total, policy, req.Msg.Members)
	if err != nil {
		return nil, toConnectError(ctx, "ComputeSplits", err)
	}

	allocated := splits[0].Amount
	for _, sp := range splits[1:] {
		allocated = allocated.Add(sp.Amount)
	}

	logging.FromContext(ctx).Debug("splits computed",
		"kind", policy.Kind, "members", len(splits), "total", total.String(), "allocated", allocated.String())

	return connect.NewResponse(&api.ComputeSplitsResponse{
		Splits:    splitsToAPI(splits),
		Allocated: formatAmount(allocated),
	}), nil
}

// RecordExpense stores an expense and applies its splits to the ledger.
func (s *LedgerService) RecordExpense(ctx context.Context, req *connect.Request[api.RecordExpenseRequest]) (*connect.Response[api.RecordExpenseResponse], error) {
	msg := req.Msg
	if _, err := s.memberGroup(ctx, msg.GroupID); err != nil {
		return nil, err
	}

	amount, err := parseAmount("amount", msg.Amount)
	if err != nil {
		return nil, toConnectError(ctx, "RecordExpense", err)
	}
	policy, err := policyFromAPI(msg.Policy)
	if err != nil {
		return nil, toConnectError(ctx, "RecordExpense", err)
	}

	expense, err := s.ledger.RecordExpense(ctx, ledger.ExpenseInput{
		GroupID:      msg.GroupID,
		PaidBy:       msg.PaidBy,
		Description:  msg.Description,
		Amount:       amount,
		Participants: msg.Participants,
		Policy:       policy,
		CreatedBy:    middleware.GetMemberID(ctx),
	})
	if err != nil {
		return nil, toConnectError(ctx, "RecordExpense", err)
	}

	return connect.NewResponse(&api.RecordExpenseResponse{
		Expense: expenseToAPI(expense),
		Version: s.ledger.Version(msg.GroupID),
	}), nil
}

// ListExpenses returns the group's expenses, newest first.
func (s *LedgerService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	if _, err := s.memberGroup(ctx, req.Msg.GroupID); err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpensesByGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, "ListExpenses", err)
	}

	out := make([]*api.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = expenseToAPI(e)
	}
	return connect.NewResponse(&api.ListExpensesResponse{Expenses: out}), nil
}

// RecordSettlement appends a payment record and applies it to the ledger.
func (s *LedgerService) RecordSettlement(ctx context.Context, req *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error) {
	msg := req.Msg
	if _, err := s.memberGroup(ctx, msg.GroupID); err != nil {
		return nil, err
	}

	amount, err := parseAmount("amount", msg.Amount)
	if err != nil {
		return nil, toConnectError(ctx, "RecordSettlement", err)
	}

	settlement, err := s.ledger.RecordSettlement(ctx, ledger.SettlementInput{
		GroupID:   msg.GroupID,
		From:      msg.FromUserID,
		To:        msg.ToUserID,
		Amount:    amount,
		Note:      msg.Note,
		CreatedBy: middleware.GetMemberID(ctx),
	})
	if err != nil {
		return nil, toConnectError(ctx, "RecordSettlement", err)
	}

	return connect.NewResponse(&api.RecordSettlementResponse{
		Settlement: settlementToAPI(settlement),
		Version:    s.ledger.Version(msg.GroupID),
	}), nil
}

// ListSettlements returns the group's settlement history, newest first.
func (s *LedgerService) ListSettlements(ctx context.Context, req *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error) {
	if _, err := s.memberGroup(ctx, req.Msg.GroupID); err != nil {
		return nil, err
	}

	settlements, err := s.store.ListSettlementsByGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, "ListSettlements", err)
	}

	out := make([]*api.Settlement, len(settlements))
	for i, st := range settlements {
		out[i] = settlementToAPI(st)
	}
	return connect.NewResponse(&api.ListSettlementsResponse{Settlements: out}), nil
}

// GetGroupBalances returns the snapshot with every derived view of it.
func (s *LedgerService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	group, err := s.memberGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	version := s.ledger.Version(group.ID)
	edges, err := s.ledger.Snapshot(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(ctx, "GetGroupBalances", err)
	}

	resp := &api.GetGroupBalancesResponse{Version: version}
	for _, e := range edges {
		resp.Balances = append(resp.Balances, api.Balance{
			DebtorID:     e.DebtorID,
			DebtorName:   e.DebtorName,
			CreditorID:   e.CreditorID,
			CreditorName: e.CreditorName,
			Amount:       formatAmount(e.Amount),
			UpdatedAt:    e.UpdatedAt,
		})
	}

	members := group.MemberIDs()
	for _, sum := range calculator.SummarizeAll(edges, members) {
		resp.Summaries = append(resp.Summaries, summaryToAPI(sum))
	}

	nets := calculator.NetPositions(edges)
	for _, m := range members {
		resp.NetPositions = append(resp.NetPositions, api.NetPosition{MemberID: m, Net: formatAmount(nets[m])})
	}

	for _, p := range calculator.Simplify(edges) {
		resp.Plan = append(resp.Plan, api.Payment{From: p.From, To: p.To, Amount: formatAmount(p.Amount)})
	}

	logging.FromContext(ctx).Debug("group balances computed",
		"group_id", group.ID, "edges", len(edges), "plan", len(resp.Plan), "version", version)

	return connect.NewResponse(resp), nil
}

// GetMemberSummary returns one member's totals and settle-up suggestions.
func (s *LedgerService) GetMemberSummary(ctx context.Context, req *connect.Request[api.GetMemberSummaryRequest]) (*connect.Response[api.GetMemberSummaryResponse], error) {
	msg := req.Msg
	group, err := s.memberGroup(ctx, msg.GroupID)
	if err != nil {
		return nil, err
	}

	memberID := msg.MemberID
	if memberID == "" {
		memberID = middleware.GetMemberID(ctx)
	}
	if memberID == "" {
		return nil, toConnectError(ctx, "GetMemberSummary", models.Invalid(models.ReasonMissingField, "member_id is required"))
	}
	if !group.HasMember(memberID) {
		return nil, toConnectError(ctx, "GetMemberSummary", fmt.Errorf("member %s: %w", memberID, models.ErrNotFound))
	}

	edges, err := s.ledger.Snapshot(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(ctx, "GetMemberSummary", err)
	}

	resp := &api.GetMemberSummaryResponse{
		Summary: summaryToAPI(calculator.Summarize(edges, memberID)),
	}
	for _, sg := range calculator.Suggestions(edges, memberID) {
		resp.Suggestions = append(resp.Suggestions, api.Suggestion{
			Kind:         string(sg.Kind),
			CounterParty: sg.CounterParty,
			DisplayName:  sg.DisplayName,
			Amount:       formatAmount(sg.Amount),
		})
	}
	if msg.CounterpartyID != "" {
		resp.BalanceWith = formatAmount(calculator.BalanceWith(edges, memberID, msg.CounterpartyID))
	}
	return connect.NewResponse(resp), nil
}

// GetExpense returns one expense with its splits.
func (s *LedgerService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	if _, err := s.memberGroup(ctx, req.Msg.GroupID); err != nil {
		return nil, err
	}
	if req.Msg.ExpenseID == "" {
		return nil, toConnectError(ctx, "GetExpense", models.Invalid(models.ReasonMissingField, "expense_id is required"))
	}

	expense, err := s.store.GetExpense(ctx, req.Msg.GroupID, req.Msg.ExpenseID)
	if err != nil {
		return nil, toConnectError(ctx, "GetExpense", err)
	}
	return connect.NewResponse(&api.GetExpenseResponse{Expense: expenseToAPI(expense)}), nil
}

// DeleteExpense removes an expense and reverses its effect on the balances.
func (s *LedgerService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	if _, err := s.memberGroup(ctx, req.Msg.GroupID); err != nil {
		return nil, err
	}

	expense, err := s.ledger.DeleteExpense(ctx, req.Msg.GroupID, req.Msg.ExpenseID)
	if err != nil {
		return nil, toConnectError(ctx, "DeleteExpense", err)
	}

	return connect.NewResponse(&api.DeleteExpenseResponse{
		Expense: expenseToAPI(expense),
		Version: s.ledger.Version(req.Msg.GroupID),
	}), nil
}

// GetExpenseStats aggregates the group's expense log.
func (s *LedgerService) GetExpenseStats(ctx context.Context, req *connect.Request[api.GetExpenseStatsRequest]) (*connect.Response[api.GetExpenseStatsResponse], error) {
	group, err := s.memberGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, err
	}

	expenses, err := s.store.ListExpensesByGroup(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(ctx, "GetExpenseStats", err)
	}
	stats := calculator.ExpenseStats(expenses)

	logging.FromContext(ctx).Debug("expense stats computed", "group_id", group.ID, "count", stats.Count)

	return connect.NewResponse(statsToAPI(stats, group)), nil
}

// memberGroup loads the group and checks that the caller may act on it.
func (s *LedgerService) memberGroup(ctx context.Context, groupID string) (*models.Group, error) {
	if groupID == "" {
		return nil, toConnectError(ctx, "LoadGroup", models.Invalid(models.ReasonMissingField, "group_id is required"))
	}
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, toConnectError(ctx, "LoadGroup", err)
	}
	if err := requireMember(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}
