// Package apiconnect wires the splitwiser.v1 services to connect handlers and clients.
package apiconnect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitwiser/pkg/api"
)

const (
	LedgerServiceName = "splitwiser.v1.LedgerService"
	GroupServiceName  = "splitwiser.v1.GroupService"
)

const (
	LedgerServiceComputeSplitsProcedure    = "/splitwiser.v1.LedgerService/ComputeSplits"
	LedgerServiceRecordExpenseProcedure    = "/splitwiser.v1.LedgerService/RecordExpense"
	LedgerServiceListExpensesProcedure     = "/splitwiser.v1.LedgerService/ListExpenses"
	LedgerServiceRecordSettlementProcedure = "/splitwiser.v1.LedgerService/RecordSettlement"
	LedgerServiceListSettlementsProcedure  = "/splitwiser.v1.LedgerService/ListSettlements"
	LedgerServiceGetGroupBalancesProcedure = "/splitwiser.v1.LedgerService/GetGroupBalances"
	LedgerServiceGetMemberSummaryProcedure = "/splitwiser.v1.LedgerService/GetMemberSummary"
	LedgerServiceGetExpenseProcedure       = "/splitwiser.v1.LedgerService/GetExpense"
	LedgerServiceDeleteExpenseProcedure    = "/splitwiser.v1.LedgerService/DeleteExpense"
	LedgerServiceGetExpenseStatsProcedure  = "/splitwiser.v1.LedgerService/GetExpenseStats"

	GroupServiceCreateGroupProcedure  = "/splitwiser.v1.GroupService/CreateGroup"
	GroupServiceGetGroupProcedure     = "/splitwiser.v1.GroupService/GetGroup"
	GroupServiceListGroupsProcedure   = "/splitwiser.v1.GroupService/ListGroups"
	GroupServiceAddMembersProcedure   = "/splitwiser.v1.GroupService/AddMembers"
	GroupServiceRemoveMemberProcedure = "/splitwiser.v1.GroupService/RemoveMember"
	GroupServiceDeleteGroupProcedure  = "/splitwiser.v1.GroupService/DeleteGroup"
)

// LedgerServiceHandler is implemented by the ledger service.
type LedgerServiceHandler interface {
	ComputeSplits(context.Context, *connect.Request[api.ComputeSplitsRequest]) (*connect.Response[api.ComputeSplitsResponse], error)
	RecordExpense(context.Context, *connect.Request[api.RecordExpenseRequest]) (*connect.Response[api.RecordExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error)
	RecordSettlement(context.Context, *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error)
	ListSettlements(context.Context, *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error)
	GetGroupBalances(context.Context, *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error)
	GetMemberSummary(context.Context, *connect.Request[api.GetMemberSummaryRequest]) (*connect.Response[api.GetMemberSummaryResponse], error)
	GetExpense(context.Context, *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error)
	GetExpenseStats(context.Context, *connect.Request[api.GetExpenseStatsRequest]) (*connect.Response[api.GetExpenseStatsResponse], error)
}

// GroupServiceHandler is implemented by the group service.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error)
	ListGroups(context.Context, *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error)
	AddMembers(context.Context, *connect.Request[api.AddMembersRequest]) (*connect.Response[api.AddMembersResponse], error)
	RemoveMember(context.Context, *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.RemoveMemberResponse], error)
	DeleteGroup(context.Context, *connect.Request[api.DeleteGroupRequest]) (*connect.Response[api.DeleteGroupResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler for svc and returns the path to mount it on.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)
	routes := map[string]http.Handler{
		LedgerServiceComputeSplitsProcedure:    connect.NewUnaryHandler(LedgerServiceComputeSplitsProcedure, svc.ComputeSplits, opts...),
		LedgerServiceRecordExpenseProcedure:    connect.NewUnaryHandler(LedgerServiceRecordExpenseProcedure, svc.RecordExpense, opts...),
		LedgerServiceListExpensesProcedure:     connect.NewUnaryHandler(LedgerServiceListExpensesProcedure, svc.ListExpenses, opts...),
		LedgerServiceRecordSettlementProcedure: connect.NewUnaryHandler(LedgerServiceRecordSettlementProcedure, svc.RecordSettlement, opts...),
		LedgerServiceListSettlementsProcedure:  connect.NewUnaryHandler(LedgerServiceListSettlementsProcedure, svc.ListSettlements, opts...),
		LedgerServiceGetGroupBalancesProcedure: connect.NewUnaryHandler(LedgerServiceGetGroupBalancesProcedure, svc.GetGroupBalances, opts...),
		LedgerServiceGetMemberSummaryProcedure: connect.NewUnaryHandler(LedgerServiceGetMemberSummaryProcedure, svc.GetMemberSummary, opts...),
		LedgerServiceGetExpenseProcedure:       connect.NewUnaryHandler(LedgerServiceGetExpenseProcedure, svc.GetExpense, opts...),
		LedgerServiceDeleteExpenseProcedure:    connect.NewUnaryHandler(LedgerServiceDeleteExpenseProcedure, svc.DeleteExpense, opts...),
		LedgerServiceGetExpenseStatsProcedure:  connect.NewUnaryHandler(LedgerServiceGetExpenseStatsProcedure, svc.GetExpenseStats, opts...),
	}
	return "/" + LedgerServiceName + "/", route(routes)
}

// NewGroupServiceHandler builds an HTTP handler for svc and returns the path to mount it on.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSON()}, opts...)
	routes := map[string]http.Handler{
		GroupServiceCreateGroupProcedure:  connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...),
		GroupServiceGetGroupProcedure:     connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...),
		GroupServiceListGroupsProcedure:   connect.NewUnaryHandler(GroupServiceListGroupsProcedure, svc.ListGroups, opts...),
		GroupServiceAddMembersProcedure:   connect.NewUnaryHandler(GroupServiceAddMembersProcedure, svc.AddMembers, opts...),
		GroupServiceRemoveMemberProcedure: connect.NewUnaryHandler(GroupServiceRemoveMemberProcedure, svc.RemoveMember, opts...),
		GroupServiceDeleteGroupProcedure:  connect.NewUnaryHandler(GroupServiceDeleteGroupProcedure, svc.DeleteGroup, opts...),
	}
	return "/" + GroupServiceName + "/", route(routes)
}

func route(routes map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		if h, ok := routes[path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// LedgerServiceClient calls a remote LedgerService.
type LedgerServiceClient struct {
	computeSplits    *connect.Client[api.ComputeSplitsRequest, api.ComputeSplitsResponse]
	recordExpense    *connect.Client[api.RecordExpenseRequest, api.RecordExpenseResponse]
	listExpenses     *connect.Client[api.ListExpensesRequest, api.ListExpensesResponse]
	recordSettlement *connect.Client[api.RecordSettlementRequest, api.RecordSettlementResponse]
	listSettlements  *connect.Client[api.ListSettlementsRequest, api.ListSettlementsResponse]
	getGroupBalances *connect.Client[api.GetGroupBalancesRequest, api.GetGroupBalancesResponse]
	getMemberSummary *connect.Client[api.GetMemberSummaryRequest, api.GetMemberSummaryResponse]
	getExpense       *connect.Client[api.GetExpenseRequest, api.GetExpenseResponse]
	deleteExpense    *connect.Client[api.DeleteExpenseRequest, api.DeleteExpenseResponse]
	getExpenseStats  *connect.Client[api.GetExpenseStatsRequest, api.GetExpenseStatsResponse]
}

// NewLedgerServiceClient builds a client for the service at baseURL.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &LedgerServiceClient{
		computeSplits:    connect.NewClient[api.ComputeSplitsRequest, api.ComputeSplitsResponse](httpClient, baseURL+LedgerServiceComputeSplitsProcedure, opts...),
		recordExpense:    connect.NewClient[api.RecordExpenseRequest, api.RecordExpenseResponse](httpClient, baseURL+LedgerServiceRecordExpenseProcedure, opts...),
		listExpenses:     connect.NewClient[api.ListExpensesRequest, api.ListExpensesResponse](httpClient, baseURL+LedgerServiceListExpensesProcedure, opts...),
		recordSettlement: connect.NewClient[api.RecordSettlementRequest, api.RecordSettlementResponse](httpClient, baseURL+LedgerServiceRecordSettlementProcedure, opts...),
		listSettlements:  connect.NewClient[api.ListSettlementsRequest, api.ListSettlementsResponse](httpClient, baseURL+LedgerServiceListSettlementsProcedure, opts...),
		getGroupBalances: connect.NewClient[api.GetGroupBalancesRequest, api.GetGroupBalancesResponse](httpClient, baseURL+LedgerServiceGetGroupBalancesProcedure, opts...),
		getMemberSummary: connect.NewClient[api.GetMemberSummaryRequest, api.GetMemberSummaryResponse](httpClient, baseURL+LedgerServiceGetMemberSummaryProcedure, opts...),
		getExpense:       connect.NewClient[api.GetExpenseRequest, api.GetExpenseResponse](httpClient, baseURL+LedgerServiceGetExpenseProcedure, opts...),
		deleteExpense:    connect.NewClient[api.DeleteExpenseRequest, api.DeleteExpenseResponse](httpClient, baseURL+LedgerServiceDeleteExpenseProcedure, opts...),
		getExpenseStats:  connect.NewClient[api.GetExpenseStatsRequest, api.GetExpenseStatsResponse](httpClient, baseURL+LedgerServiceGetExpenseStatsProcedure, opts...),
	}
}

func (c *LedgerServiceClient) ComputeSplits(ctx context.Context, req *connect.Request[api.ComputeSplitsRequest]) (*connect.Response[api.ComputeSplitsResponse], error) {
	return c.computeSplits.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) RecordExpense(ctx context.Context, req *connect.Request[api.RecordExpenseRequest]) (*connect.Response[api.RecordExpenseResponse], error) {
	return c.recordExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) RecordSettlement(ctx context.Context, req *connect.Request[api.RecordSettlementRequest]) (*connect.Response[api.RecordSettlementResponse], error) {
	return c.recordSettlement.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListSettlements(ctx context.Context, req *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error) {
	return c.listSettlements.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetMemberSummary(ctx context.Context, req *connect.Request[api.GetMemberSummaryRequest]) (*connect.Response[api.GetMemberSummaryResponse], error) {
	return c.getMemberSummary.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	return c.getExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetExpenseStats(ctx context.Context, req *connect.Request[api.GetExpenseStatsRequest]) (*connect.Response[api.GetExpenseStatsResponse], error) {
	return c.getExpenseStats.CallUnary(ctx, req)
}

// GroupServiceClient calls a remote GroupService.
type GroupServiceClient struct {
	createGroup  *connect.Client[api.CreateGroupRequest, api.CreateGroupResponse]
	getGroup     *connect.Client[api.GetGroupRequest, api.GetGroupResponse]
	listGroups   *connect.Client[api.ListGroupsRequest, api.ListGroupsResponse]
	addMembers   *connect.Client[api.AddMembersRequest, api.AddMembersResponse]
	removeMember *connect.Client[api.RemoveMemberRequest, api.RemoveMemberResponse]
	deleteGroup  *connect.Client[api.DeleteGroupRequest, api.DeleteGroupResponse]
}

// NewGroupServiceClient builds a client for the service at baseURL.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GroupServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{WithJSON()}, opts...)
	return &GroupServiceClient{
		createGroup:  connect.NewClient[api.CreateGroupRequest, api.CreateGroupResponse](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup:     connect.NewClient[api.GetGroupRequest, api.GetGroupResponse](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		listGroups:   connect.NewClient[api.ListGroupsRequest, api.ListGroupsResponse](httpClient, baseURL+GroupServiceListGroupsProcedure, opts...),
		addMembers:   connect.NewClient[api.AddMembersRequest, api.AddMembersResponse](httpClient, baseURL+GroupServiceAddMembersProcedure, opts...),
		removeMember: connect.NewClient[api.RemoveMemberRequest, api.RemoveMemberResponse](httpClient, baseURL+GroupServiceRemoveMemberProcedure, opts...),
		deleteGroup:  connect.NewClient[api.DeleteGroupRequest, api.DeleteGroupResponse](httpClient, baseURL+GroupServiceDeleteGroupProcedure, opts...),
	}
}

func (c *GroupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *GroupServiceClient) AddMembers(ctx context.Context, req *connect.Request[api.AddMembersRequest]) (*connect.Response[api.AddMembersResponse], error) {
	return c.addMembers.CallUnary(ctx, req)
}

func (c *GroupServiceClient) RemoveMember(ctx context.Context, req *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.RemoveMemberResponse], error) {
	return c.removeMember.CallUnary(ctx, req)
}

func (c *GroupServiceClient) DeleteGroup(ctx context.Context, req *connect.Request[api.DeleteGroupRequest]) (*connect.Response[api.DeleteGroupResponse], error) {
	return c.deleteGroup.CallUnary(ctx, req)
}
