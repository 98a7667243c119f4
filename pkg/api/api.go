// Package api defines the request and response messages of the splitwiser.v1 services.
//
// Amounts travel as decimal strings ("12.50") so that no client has to round-trip
// money through binary floating point.
package api

// Member is a group member.
type Member struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Group is a set of members sharing one ledger.
type Group struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Members   []Member `json:"members"`
	CreatedAt int64    `json:"createdAt"`
}

type CreateGroupRequest struct {
	Name    string   `json:"name"`
	Members []Member `json:"members"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type AddMembersRequest struct {
	GroupID string   `json:"groupId"`
	Members []Member `json:"members"`
}

type AddMembersResponse struct {
	Group *Group `json:"group"`
}

type RemoveMemberRequest struct {
	GroupID  string `json:"groupId"`
	MemberID string `json:"memberId"`
}

type RemoveMemberResponse struct {
	Group *Group `json:"group"`
}

type DeleteGroupRequest struct {
	GroupID string `json:"groupId"`
}

type DeleteGroupResponse struct{}

// SplitPolicy selects how an expense is divided. Kind is EQUAL, EXACT or PERCENTAGE;
// Amounts and Percentages are positional with the participants.
type SplitPolicy struct {
	Kind        string   `json:"kind"`
	Amounts     []string `json:"amounts,omitempty"`
	Percentages []string `json:"percentages,omitempty"`
	RemainderTo string   `json:"remainderTo,omitempty"`
}

type ExpenseSplit struct {
	MemberID   string `json:"memberId"`
	Amount     string `json:"amount"`
	Percentage string `json:"percentage,omitempty"`
}

type Expense struct {
	ID          string         `json:"id"`
	GroupID     string         `json:"groupId"`
	PaidBy      string         `json:"paidBy"`
	Description string         `json:"description"`
	Amount      string         `json:"amount"`
	SplitKind   string         `json:"splitKind"`
	Splits      []ExpenseSplit `json:"splits"`
	CreatedAt   int64          `json:"createdAt"`
	CreatedBy   string         `json:"createdBy"`
}

type ComputeSplitsRequest struct {
	Total   string      `json:"total"`
	Policy  SplitPolicy `json:"policy"`
	Members []string    `json:"members"`
}

type ComputeSplitsResponse struct {
	Splits []ExpenseSplit `json:"splits"`
	// Allocated is the sum of the split amounts; it may differ from the total by the
	// rounding residual of an equal split.
	Allocated string `json:"allocated"`
}

type RecordExpenseRequest struct {
	GroupID      string      `json:"groupId"`
	PaidBy       string      `json:"paidBy"`
	Description  string      `json:"description"`
	Amount       string      `json:"amount"`
	Participants []string    `json:"participants"`
	Policy       SplitPolicy `json:"policy"`
}

type RecordExpenseResponse struct {
	Expense *Expense `json:"expense"`
	Version uint64   `json:"version"`
}

type ListExpensesRequest struct {
	GroupID string `json:"groupId"`
}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type GetExpenseRequest struct {
	GroupID   string `json:"groupId"`
	ExpenseID string `json:"expenseId"`
}

type GetExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type DeleteExpenseRequest struct {
	GroupID   string `json:"groupId"`
	ExpenseID string `json:"expenseId"`
}

// DeleteExpenseResponse returns the removed expense; its splits are no longer on the ledger.
type DeleteExpenseResponse struct {
	Expense *Expense `json:"expense"`
	Version uint64   `json:"version"`
}

type GetExpenseStatsRequest struct {
	GroupID string `json:"groupId"`
}

type KindStat struct {
	Kind  string `json:"kind"`
	Total string `json:"total"`
	Count int    `json:"count"`
}

type PayerStat struct {
	MemberID    string `json:"memberId"`
	DisplayName string `json:"displayName"`
	Total       string `json:"total"`
	Count       int    `json:"count"`
}

type GetExpenseStatsResponse struct {
	Total   string      `json:"total"`
	Count   int         `json:"count"`
	Average string      `json:"average"`
	ByKind  []KindStat  `json:"byKind"`
	ByPayer []PayerStat `json:"byPayer"`
}

type Settlement struct {
	ID         string `json:"id"`
	GroupID    string `json:"groupId"`
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
	Amount     string `json:"amount"`
	CreatedAt  int64  `json:"createdAt"`
	CreatedBy  string `json:"createdBy"`
	Note       string `json:"note,omitempty"`
}

type RecordSettlementRequest struct {
	GroupID    string `json:"groupId"`
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
	Amount     string `json:"amount"`
	Note       string `json:"note,omitempty"`
}

type RecordSettlementResponse struct {
	Settlement *Settlement `json:"settlement"`
	Version    uint64      `json:"version"`
}

type ListSettlementsRequest struct {
	GroupID string `json:"groupId"`
}

type ListSettlementsResponse struct {
	Settlements []*Settlement `json:"settlements"`
}

// Balance is one edge: the debtor owes the creditor Amount.
type Balance struct {
	DebtorID     string `json:"debtorId"`
	DebtorName   string `json:"debtorName"`
	CreditorID   string `json:"creditorId"`
	CreditorName string `json:"creditorName"`
	Amount       string `json:"amount"`
	UpdatedAt    int64  `json:"updatedAt"`
}

type MemberSummary struct {
	MemberID string `json:"memberId"`
	Owed     string `json:"owed"`
	OwedBy   string `json:"owedBy"`
	Net      string `json:"net"`
}

type NetPosition struct {
	MemberID string `json:"memberId"`
	Net      string `json:"net"`
}

type Payment struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type Suggestion struct {
	Kind         string `json:"kind"`
	CounterParty string `json:"counterParty"`
	DisplayName  string `json:"displayName"`
	Amount       string `json:"amount"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupBalancesResponse struct {
	Balances     []Balance       `json:"balances"`
	Summaries    []MemberSummary `json:"summaries"`
	NetPositions []NetPosition   `json:"netPositions"`
	Plan         []Payment       `json:"plan"`
	Version      uint64          `json:"version"`
}

// GetMemberSummaryRequest asks for one member's view of the group. An empty MemberID
// means the caller. When CounterpartyID is set the response carries the signed
// pairwise balance with that member.
type GetMemberSummaryRequest struct {
	GroupID        string `json:"groupId"`
	MemberID       string `json:"memberId,omitempty"`
	CounterpartyID string `json:"counterpartyId,omitempty"`
}

type GetMemberSummaryResponse struct {
	Summary     MemberSummary `json:"summary"`
	Suggestions []Suggestion  `json:"suggestions"`
	// BalanceWith is positive when the counterparty owes the member.
	BalanceWith string `json:"balanceWith,omitempty"`
}
