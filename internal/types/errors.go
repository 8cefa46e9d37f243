package types

import (
	"errors"
	"fmt"
)

var (
	// ErrGatewayUnavailable marks structural failures: the gateway was never
	// constructed, credentials are missing, or authentication was rejected.
	// These abort the cycle and are never retried.
	ErrGatewayUnavailable = errors.New("gateway unavailable")

	ErrNoDailyBars = errors.New("no daily bars returned")
)

// FetchError wraps a data or balance query failure with the context an
// operator needs to remediate it.
type FetchError struct {
	Op     string
	Symbol string
	Mode   Mode
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s failed (symbol=%s mode=%s): %v; check the symbol code, network connectivity, broker API status and rate limits",
		e.Op, e.Symbol, e.Mode, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
