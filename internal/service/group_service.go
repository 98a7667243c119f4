package service

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/splitwiser/internal/ledger"
	"github.com/mmynk/splitwiser/internal/middleware"
	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
	"github.com/mmynk/splitwiser/pkg/api"
	"github.com/mmynk/splitwiser/pkg/api/apiconnect"
	"github.com/mmynk/splitwiser/pkg/logging"
)

var _ apiconnect.GroupServiceHandler = (*GroupService)(nil)

// GroupService implements the Connect GroupService
type GroupService struct {
	store  storage.Store
	ledger *ledger.Ledger
}

// NewGroupService creates a new GroupService with the given storage backend.
// Membership removals go through l so they serialize with ledger mutations.
func NewGroupService(store storage.Store, l *ledger.Ledger) *GroupService {
	return &GroupService{store: store, ledger: l}
}

// CreateGroup creates a new group. An authenticated creator is added as a member.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	logger := logging.FromContext(ctx)
	logger.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	if req.Msg.Name == "" {
		return nil, toConnectError(ctx, "CreateGroup", models.Invalid(models.ReasonMissingField, "name is required"))
	}

	members := membersFromAPI(req.Msg.Members)
	if caller := middleware.GetMemberID(ctx); caller != "" && !containsMember(members, caller) {
		name := middleware.GetMemberName(ctx)
		if name == "" {
			name = caller
		}
		members = append([]models.Member{{ID: caller, DisplayName: name}}, members...)
	}
	if err := validateMembers(members); err != nil {
		return nil, toConnectError(ctx, "CreateGroup", err)
	}

	group := &models.Group{
		Name:    req.Msg.Name,
		Members: members,
	}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, toConnectError(ctx, "CreateGroup", err)
	}

	logger.Info("Group created", "group_id", group.ID)

	return connect.NewResponse(&api.CreateGroupResponse{Group: groupToAPI(group)}), nil
}

// GetGroup retrieves a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	group, err := s.loadGroup(ctx, "GetGroup", req.Msg.GroupID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.GetGroupResponse{Group: groupToAPI(group)}), nil
}

// ListGroups retrieves all groups, or only the caller's groups when authenticated.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		return nil, toConnectError(ctx, "ListGroups", err)
	}

	caller := middleware.GetMemberID(ctx)
	out := make([]*api.Group, 0, len(groups))
	for _, group := range groups {
		if caller != "" && !group.HasMember(caller) {
			continue
		}
		out = append(out, groupToAPI(group))
	}

	logging.FromContext(ctx).Info("ListGroups successful", "count", len(out))

	return connect.NewResponse(&api.ListGroupsResponse{Groups: out}), nil
}

// AddMembers adds members to a group; members already present are kept as they are.
func (s *GroupService) AddMembers(ctx context.Context, req *connect.Request[api.AddMembersRequest]) (*connect.Response[api.AddMembersResponse], error) {
	if _, err := s.loadGroup(ctx, "AddMembers", req.Msg.GroupID); err != nil {
		return nil, err
	}

	members := membersFromAPI(req.Msg.Members)
	if err := validateMembers(members); err != nil {
		return nil, toConnectError(ctx, "AddMembers", err)
	}
	if err := s.store.AddGroupMembers(ctx, req.Msg.GroupID, members); err != nil {
		return nil, toConnectError(ctx, "AddMembers", err)
	}

	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, "AddMembers", err)
	}

	logging.FromContext(ctx).Info("Members added", "group_id", group.ID, "members_count", len(group.Members))

	return connect.NewResponse(&api.AddMembersResponse{Group: groupToAPI(group)}), nil
}

// RemoveMember takes a settled-up member out of a group.
func (s *GroupService) RemoveMember(ctx context.Context, req *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.RemoveMemberResponse], error) {
	if _, err := s.loadGroup(ctx, "RemoveMember", req.Msg.GroupID); err != nil {
		return nil, err
	}
	if req.Msg.MemberID == "" {
		return nil, toConnectError(ctx, "RemoveMember", models.Invalid(models.ReasonMissingField, "member_id is required"))
	}

	if err := s.ledger.RemoveMember(ctx, req.Msg.GroupID, req.Msg.MemberID); err != nil {
		return nil, toConnectError(ctx, "RemoveMember", err)
	}

	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(ctx, "RemoveMember", err)
	}

	logging.FromContext(ctx).Info("Member removed", "group_id", group.ID, "member_id", req.Msg.MemberID)

	return connect.NewResponse(&api.RemoveMemberResponse{Group: groupToAPI(group)}), nil
}

// DeleteGroup removes a group by ID together with its ledger.
func (s *GroupService) DeleteGroup(ctx context.Context, req *connect.Request[api.DeleteGroupRequest]) (*connect.Response[api.DeleteGroupResponse], error) {
	if _, err := s.loadGroup(ctx, "DeleteGroup", req.Msg.GroupID); err != nil {
		return nil, err
	}

	if err := s.store.DeleteGroup(ctx, req.Msg.GroupID); err != nil {
		return nil, toConnectError(ctx, "DeleteGroup", err)
	}

	logging.FromContext(ctx).Info("Group deleted", "group_id", req.Msg.GroupID)

	return connect.NewResponse(&api.DeleteGroupResponse{}), nil
}

func (s *GroupService) loadGroup(ctx context.Context, op, groupID string) (*models.Group, error) {
	if groupID == "" {
		return nil, toConnectError(ctx, op, models.Invalid(models.ReasonMissingField, "group_id is required"))
	}
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, toConnectError(ctx, op, err)
	}
	if err := requireMember(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func validateMembers(members []models.Member) error {
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if m.ID == "" {
			return models.Invalid(models.ReasonMissingField, "member id is required")
		}
		if seen[m.ID] {
			return models.Invalid(models.ReasonDuplicateMember, "member %q listed twice", m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}

func containsMember(members []models.Member, id string) bool {
	for _, m := range members {
		if m.ID == id {
			return true
		}
	}
	return false
}
