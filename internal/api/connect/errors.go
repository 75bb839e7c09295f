package connect

import (
	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"

	"github.com/osa030/durga/internal/app/safety"
	"github.com/osa030/durga/internal/infra/config"
)

// deviceError converts a manager lookup error to a Connect error.
func deviceError(err error) error {
	if errors.Is(err, safety.ErrInvalidDevice) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	if errors.Is(err, safety.ErrClosed) {
		return connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

// result builds the common result. A failed action without a code is an
// invalid-state no-op.
func result(cfg *config.Config, success bool, code string) Result {
	if success {
		return Result{Success: true, Code: code, Message: cfg.GetMessage(successKey(code))}
	}
	if code == "" {
		code = "invalid_state"
	}
	return Result{Success: false, Code: code, Message: cfg.GetMessage(code)}
}

func successKey(code string) string {
	if code == "" {
		return "success"
	}
	return code
}
