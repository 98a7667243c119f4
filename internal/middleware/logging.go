package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitwiser/pkg/logging"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call.
// It stores a logger carrying the procedure and user ID in the context, so handlers
// and the ledger log with the same attributes via logging.FromContext.
func LoggingInterceptor(base *slog.Logger) connect.UnaryInterceptorFunc {
	if base == nil {
		base = slog.Default()
	}
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure
			memberID := GetMemberID(ctx) // empty if pre-auth

			logger := base.With("procedure", procedure, "member_id", memberID)
			ctx = logging.WithLogger(ctx, logger)

			resp, err := next(ctx, req)

			duration := time.Since(start).Milliseconds()
			if err != nil {
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					logger.Warn("RPC error",
						"code", connectErr.Code(),
						"error", connectErr.Message(),
						"duration_ms", duration,
					)
				} else {
					logger.Error("RPC error",
						"error", err,
						"duration_ms", duration,
					)
				}
			} else {
				logger.Info("RPC ok", "duration_ms", duration)
			}

			return resp, err
		}
	}
}
