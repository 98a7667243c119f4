package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitwiser/internal/auth"
	"github.com/mmynk/splitwiser/pkg/api"
	"github.com/mmynk/splitwiser/pkg/logging"
)

// captureUser is a terminal handler that records the caller seen in the context.
func captureUser(seen *string) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		*seen = GetMemberID(ctx)
		return connect.NewResponse(&api.ListGroupsResponse{}), nil
	}
}

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, err := jwtManager.Generate("alice", "Alice")
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantUser string
		wantCode connect.Code
	}{
		{name: "valid token", header: "Bearer " + token, wantUser: "alice"},
		{name: "missing header", wantCode: connect.CodeUnauthenticated},
		{name: "wrong scheme", header: "Basic " + token, wantCode: connect.CodeUnauthenticated},
		{name: "bad token", header: "Bearer nope", wantCode: connect.CodeUnauthenticated},
		{name: "empty token", header: "Bearer ", wantCode: connect.CodeUnauthenticated},
		{name: "extra fields", header: "Bearer " + token + " extra", wantCode: connect.CodeUnauthenticated},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			req := connect.NewRequest(&api.ListGroupsRequest{})
			if tc.header != "" {
				req.Header().Set("Authorization", tc.header)
			}

			_, err := RequireAuth(jwtManager)(captureUser(&seen))(context.Background(), req)
			if tc.wantCode != 0 {
				assert.Equal(t, tc.wantCode, connect.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantUser, seen)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, err := jwtManager.Generate("bob", "")
	require.NoError(t, err)

	var seen string
	req := connect.NewRequest(&api.ListGroupsRequest{})
	_, err = OptionalAuth(jwtManager)(captureUser(&seen))(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, seen)

	req.Header().Set("Authorization", "Bearer "+token)
	_, err = OptionalAuth(jwtManager)(captureUser(&seen))(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "bob", seen)
}

func TestRequireAuth_MemberName(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	named, err := jwtManager.Generate("alice", "Alice")
	require.NoError(t, err)
	unnamed, err := jwtManager.Generate("bob", "")
	require.NoError(t, err)

	var gotID, gotName string
	next := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		gotID, gotName = GetMemberID(ctx), GetMemberName(ctx)
		return connect.NewResponse(&api.ListGroupsResponse{}), nil
	}

	req := connect.NewRequest(&api.ListGroupsRequest{})
	req.Header().Set("Authorization", "Bearer "+named)
	_, err = RequireAuth(jwtManager)(next)(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "alice", gotID)
	assert.Equal(t, "Alice", gotName)

	req.Header().Set("Authorization", "Bearer "+unnamed)
	_, err = RequireAuth(jwtManager)(next)(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "bob", gotID)
	assert.Empty(t, gotName)
}

func TestLoggingInterceptor(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	var scoped *slog.Logger
	next := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		scoped = logging.FromContext(ctx)
		return nil, connect.NewError(connect.CodeNotFound, errors.New("group not found"))
	}

	ctx := WithMemberID(context.Background(), "carol")
	_, err := LoggingInterceptor(base)(next)(ctx, connect.NewRequest(&api.GetGroupRequest{}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	require.NotNil(t, scoped)
	assert.NotSame(t, slog.Default(), scoped)
	assert.Contains(t, buf.String(), "member_id=carol")
	assert.Contains(t, buf.String(), "RPC error")
}
