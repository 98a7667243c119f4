package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitwiser/internal/auth"
)

type contextKey string

const (
	// MemberIDKey holds the authenticated caller's member ID.
	MemberIDKey contextKey = "member_id"
	// MemberNameKey holds the caller's display name, when the token carries one.
	MemberNameKey contextKey = "member_name"
)

// GetMemberID returns the authenticated caller, or "" for anonymous requests.
func GetMemberID(ctx context.Context) string {
	memberID, _ := ctx.Value(MemberIDKey).(string)
	return memberID
}

// GetMemberName returns the caller's display name, or "".
func GetMemberName(ctx context.Context) string {
	name, _ := ctx.Value(MemberNameKey).(string)
	return name
}

// WithMemberID returns ctx carrying memberID as the authenticated caller.
func WithMemberID(ctx context.Context, memberID string) context.Context {
	return context.WithValue(ctx, MemberIDKey, memberID)
}

func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = WithMemberID(ctx, claims.MemberID())
	if claims.Name != "" {
		ctx = context.WithValue(ctx, MemberNameKey, claims.Name)
	}
	return ctx
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" || strings.ContainsRune(token, ' ') {
		return "", false
	}
	return token, true
}

// RequireAuth rejects requests without a valid bearer token and puts the
// caller's member identity into the context.
func RequireAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			header := req.Header().Get("Authorization")
			if header == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
			}
			token, ok := bearerToken(header)
			if !ok {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			}
			claims, err := jwtManager.Validate(token)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			return next(withClaims(ctx, claims), req)
		}
	}
}

// OptionalAuth identifies the caller when a valid bearer token is present and
// lets every request through. The server uses it when AUTH_OPTIONAL is set.
func OptionalAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if token, ok := bearerToken(req.Header().Get("Authorization")); ok {
				if claims, err := jwtManager.Validate(token); err == nil {
					ctx = withClaims(ctx, claims)
				}
			}
			return next(ctx, req)
		}
	}
}
