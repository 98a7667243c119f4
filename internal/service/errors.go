package service

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/mmynk/splitwiser/internal/middleware"
	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/pkg/logging"
)

// toConnectError maps the domain error taxonomy onto connect codes.
func toConnectError(ctx context.Context, op string, err error) error {
	logger := logging.FromContext(ctx)

	var code connect.Code
	switch {
	case errors.Is(err, models.ErrValidation):
		code = connect.CodeInvalidArgument
	case errors.Is(err, models.ErrNotFound):
		code = connect.CodeNotFound
	case errors.Is(err, models.ErrConcurrencyConflict):
		code = connect.CodeAborted
	case errors.Is(err, models.ErrOutstandingBalance):
		code = connect.CodeFailedPrecondition
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	case errors.Is(err, models.ErrInvariantViolation):
		logger.Error(op+" hit a ledger invariant violation", "error", err)
		return connect.NewError(connect.CodeInternal, errors.New("ledger is in an inconsistent state"))
	default:
		logger.Error(op+" failed", "error", err)
		return connect.NewError(connect.CodeInternal, fmt.Errorf("%s failed", op))
	}

	logger.Warn(op+" rejected", "code", code, "error", err)
	connectErr := connect.NewError(code, err)
	if reason := models.ReasonOf(err); reason != "" {
		connectErr.Meta().Set("X-Validation-Reason", string(reason))
	}
	return connectErr
}

// requireMember rejects authenticated callers who are not members of group.
// Without authentication there is no caller identity to check.
func requireMember(ctx context.Context, group *models.Group) error {
	memberID := middleware.GetMemberID(ctx)
	if memberID == "" || group.HasMember(memberID) {
		return nil
	}
	return connect.NewError(connect.CodePermissionDenied, fmt.Errorf("you must be a member of this group"))
}
