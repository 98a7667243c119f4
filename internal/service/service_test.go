package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitwiser/internal/ledger"
	"github.com/mmynk/splitwiser/internal/middleware"
	"github.com/mmynk/splitwiser/internal/storage/sqlite"
	"github.com/mmynk/splitwiser/pkg/api"
	"github.com/mmynk/splitwiser/pkg/api/apiconnect"
)

const (
	testUserHeader = "X-Test-User"
	testNameHeader = "X-Test-Name"
)

// testAuthInterceptor returns a Connect interceptor that sets the test caller in the context.
// The caller is taken from the X-Test-User header, "alice" when absent, and its display
// name from X-Test-Name.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			user := req.Header().Get(testUserHeader)
			if user == "" {
				user = "alice"
			}
			ctx = context.WithValue(ctx, middleware.MemberIDKey, user)
			if name := req.Header().Get(testNameHeader); name != "" {
				ctx = context.WithValue(ctx, middleware.MemberNameKey, name)
			}
			return next(ctx, req)
		}
	}
}

type testClients struct {
	ledger *apiconnect.LedgerServiceClient
	groups *apiconnect.GroupServiceClient
}

// setupTestServer creates a test server backed by a temporary SQLite database.
func setupTestServer(t *testing.T) testClients {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	interceptors := connect.WithInterceptors(testAuthInterceptor(), middleware.LoggingInterceptor(nil))
	l := ledger.New(store)
	ledgerPath, ledgerHandler := apiconnect.NewLedgerServiceHandler(NewLedgerService(l, store), interceptors)
	groupPath, groupHandler := apiconnect.NewGroupServiceHandler(NewGroupService(store, l), interceptors)

	mux := http.NewServeMux()
	mux.Handle(ledgerPath, ledgerHandler)
	mux.Handle(groupPath, groupHandler)

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return testClients{
		ledger: apiconnect.NewLedgerServiceClient(http.DefaultClient, server.URL),
		groups: apiconnect.NewGroupServiceClient(http.DefaultClient, server.URL),
	}
}

// as builds a request on behalf of user.
func as[T any](user string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set(testUserHeader, user)
	return req
}

func createGroup(t *testing.T, c testClients, name string, members ...string) *api.Group {
	t.Helper()
	req := &api.CreateGroupRequest{Name: name}
	for _, m := range members {
		req.Members = append(req.Members, api.Member{ID: m, DisplayName: m})
	}
	resp, err := c.groups.CreateGroup(context.Background(), connect.NewRequest(req))
	require.NoError(t, err)
	return resp.Msg.Group
}
