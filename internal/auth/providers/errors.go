package providers

import (
	"errors"
	"fmt"
)

// ErrTokenExchangeFailed matches every failed code exchange, whether the
// token endpoint was unreachable or refused the code.
var ErrTokenExchangeFailed = errors.New("token exchange failed")

// ExchangeError describes a failed code exchange.
type ExchangeError struct {
	// StatusCode is the token endpoint's HTTP status, 0 on transport failure.
	StatusCode int
	// ErrorCode is the RFC 6749 error code reported by the provider, if any.
	ErrorCode string
	Err       error
}

func (e *ExchangeError) Error() string {
	switch {
	case e.ErrorCode != "":
		return fmt.Sprintf("token exchange failed: provider returned %s (status %d)", e.ErrorCode, e.StatusCode)
	case e.StatusCode != 0:
		return fmt.Sprintf("token exchange failed: status %d", e.StatusCode)
	default:
		return fmt.Sprintf("token exchange failed: %v", e.Err)
	}
}

func (e *ExchangeError) Is(target error) bool {
	return target == ErrTokenExchangeFailed
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}
