package swapper

import (
	"errors"
	"fmt"
	"math/big"

	"oneinch-swapper/pkg/pausable"
)

// Gate errors are re-exported so callers only need this package.
var (
	ErrUnauthorized  = pausable.ErrUnauthorized
	ErrAlreadyPaused = pausable.ErrAlreadyPaused
	ErrNotPaused     = pausable.ErrNotPaused
	ErrPaused        = pausable.ErrPaused
)

var (
	ErrMalformedInstruction = errors.New("malformed swap instruction")
	ErrTransferFailed       = errors.New("source token transfer failed")
	ErrRouterExecution      = errors.New("router execution failed")
	ErrSlippageExceeded     = errors.New("return amount is below the declared minimum")

	// ErrTokenMismatch is a MalformedInstruction whose tokens do not match
	// the pair the adapter settles.
	ErrTokenMismatch = fmt.Errorf("%w: token mismatch", ErrMalformedInstruction)
)

// SlippageError reports how far the measured return fell short
type SlippageError struct {
	MinReturn *big.Int
	Returned  *big.Int
}

func (e *SlippageError) Error() string {
	return fmt.Sprintf("%v: returned %s, minimum %s", ErrSlippageExceeded, e.Returned, e.MinReturn)
}

// Is makes errors.Is(err, ErrSlippageExceeded) hold
func (e *SlippageError) Is(target error) bool {
	return target == ErrSlippageExceeded
}

// Reason maps an adapter error to a short label for metrics and HTTP
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPaused):
		return "paused"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrAlreadyPaused):
		return "already_paused"
	case errors.Is(err, ErrNotPaused):
		return "not_paused"
	case errors.Is(err, ErrMalformedInstruction):
		return "malformed_instruction"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrRouterExecution):
		return "router_execution_failed"
	case errors.Is(err, ErrSlippageExceeded):
		return "slippage_exceeded"
	default:
		return "internal"
	}
}
