package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitwiser/pkg/api"
)

func TestCreateGroup(t *testing.T) {
	c := setupTestServer(t)

	resp, err := c.groups.CreateGroup(context.Background(), connect.NewRequest(&api.CreateGroupRequest{
		Name:    "Roommates",
		Members: []api.Member{{ID: "bob", DisplayName: "Bob"}, {ID: "charlie"}},
	}))
	require.NoError(t, err)

	group := resp.Msg.Group
	require.NotNil(t, group)
	assert.NotEmpty(t, group.ID)
	assert.Equal(t, "Roommates", group.Name)
	assert.NotZero(t, group.CreatedAt)

	// The creator joins automatically; a missing display name falls back to the ID.
	require.Len(t, group.Members, 3)
	assert.Equal(t, "alice", group.Members[0].ID)
	assert.Equal(t, "charlie", group.Members[2].DisplayName)
}

func TestCreateGroup_CreatorName(t *testing.T) {
	c := setupTestServer(t)

	req := connect.NewRequest(&api.CreateGroupRequest{Name: "Book club"})
	req.Header().Set(testUserHeader, "dora")
	req.Header().Set(testNameHeader, "Dora")
	resp, err := c.groups.CreateGroup(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, resp.Msg.Group.Members, 1)
	assert.Equal(t, "dora", resp.Msg.Group.Members[0].ID)
	assert.Equal(t, "Dora", resp.Msg.Group.Members[0].DisplayName)
}

func TestCreateGroup_Validation(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()

	_, err := c.groups.CreateGroup(ctx, connect.NewRequest(&api.CreateGroupRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = c.groups.CreateGroup(ctx, connect.NewRequest(&api.CreateGroupRequest{
		Name:    "Dupes",
		Members: []api.Member{{ID: "bob"}, {ID: "bob"}},
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestGetGroup(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()
	group := createGroup(t, c, "Work Lunch", "diana")

	resp, err := c.groups.GetGroup(ctx, connect.NewRequest(&api.GetGroupRequest{GroupID: group.ID}))
	require.NoError(t, err)
	assert.Equal(t, "Work Lunch", resp.Msg.Group.Name)

	_, err = c.groups.GetGroup(ctx, connect.NewRequest(&api.GetGroupRequest{GroupID: "nonexistent-id"}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = c.groups.GetGroup(ctx, as("mallory", &api.GetGroupRequest{GroupID: group.ID}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
}

func TestListGroups_OnlyCallersGroups(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()

	createGroup(t, c, "Mine", "bob")
	_, err := c.groups.CreateGroup(ctx, as("eve", &api.CreateGroupRequest{Name: "Eve's"}))
	require.NoError(t, err)

	resp, err := c.groups.ListGroups(ctx, connect.NewRequest(&api.ListGroupsRequest{}))
	require.NoError(t, err)
	require.Len(t, resp.Msg.Groups, 1)
	assert.Equal(t, "Mine", resp.Msg.Groups[0].Name)
}

func TestAddMembers(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()
	group := createGroup(t, c, "Trip", "bob")

	resp, err := c.groups.AddMembers(ctx, connect.NewRequest(&api.AddMembersRequest{
		GroupID: group.ID,
		Members: []api.Member{{ID: "bob", DisplayName: "Robert"}, {ID: "carol", DisplayName: "Carol"}},
	}))
	require.NoError(t, err)

	ids := make([]string, len(resp.Msg.Group.Members))
	for i, m := range resp.Msg.Group.Members {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"alice", "bob", "carol"}, ids)
	assert.Equal(t, "bob", resp.Msg.Group.Members[1].DisplayName)
}

func TestDeleteGroup(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()
	group := createGroup(t, c, "Temporary", "bob")

	_, err := c.groups.DeleteGroup(ctx, as("mallory", &api.DeleteGroupRequest{GroupID: group.ID}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	_, err = c.groups.DeleteGroup(ctx, connect.NewRequest(&api.DeleteGroupRequest{GroupID: group.ID}))
	require.NoError(t, err)

	_, err = c.groups.GetGroup(ctx, connect.NewRequest(&api.GetGroupRequest{GroupID: group.ID}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestRemoveMember(t *testing.T) {
	c := setupTestServer(t)
	ctx := context.Background()
	group := createGroup(t, c, "Trip", "bob", "carol")

	_, err := c.ledger.RecordExpense(ctx, connect.NewRequest(&api.RecordExpenseRequest{
		GroupID:      group.ID,
		PaidBy:       "alice",
		Amount:       "20",
		Participants: []string{"alice", "bob"},
	}))
	require.NoError(t, err)

	_, err = c.groups.RemoveMember(ctx, connect.NewRequest(&api.RemoveMemberRequest{GroupID: group.ID, MemberID: "bob"}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	resp, err := c.groups.RemoveMember(ctx, connect.NewRequest(&api.RemoveMemberRequest{GroupID: group.ID, MemberID: "carol"}))
	require.NoError(t, err)
	require.Len(t, resp.Msg.Group.Members, 2)
	assert.Equal(t, "alice", resp.Msg.Group.Members[0].ID)
	assert.Equal(t, "bob", resp.Msg.Group.Members[1].ID)

	_, err = c.groups.RemoveMember(ctx, connect.NewRequest(&api.RemoveMemberRequest{GroupID: group.ID, MemberID: "zed"}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = c.groups.RemoveMember(ctx, connect.NewRequest(&api.RemoveMemberRequest{GroupID: group.ID}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = c.groups.RemoveMember(ctx, as("mallory", &api.RemoveMemberRequest{GroupID: group.ID, MemberID: "bob"}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
}
