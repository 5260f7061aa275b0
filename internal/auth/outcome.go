package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Outcome classifies how an authorization step ended.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeInvalidWebhook
	OutcomeInvalidRequest
	OutcomeUnreachable
	OutcomeGone
	OutcomeRejected
	OutcomeExchangeFailed
	OutcomeActivationFailed
	OutcomeInternal
)

var outcomeNames = map[Outcome]string{
	OutcomeCompleted:        "completed",
	OutcomeInvalidWebhook:   "invalid_webhook",
	OutcomeInvalidRequest:   "invalid_request",
	OutcomeUnreachable:      "webhook_unreachable",
	OutcomeGone:             "authorization_gone",
	OutcomeRejected:         "access_denied",
	OutcomeExchangeFailed:   "exchange_failed",
	OutcomeActivationFailed: "activation_failed",
	OutcomeInternal:         "server_error",
}

// String returns the error code used in JSON responses and metric labels.
func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// HTTPStatus maps the outcome to the status the HTTP surface replies with.
func (o Outcome) HTTPStatus() int {
	switch o {
	case OutcomeCompleted:
		return http.StatusOK
	case OutcomeInvalidWebhook, OutcomeInvalidRequest:
		return http.StatusBadRequest
	case OutcomeUnreachable:
		return http.StatusBadGateway
	case OutcomeGone:
		return http.StatusGone
	case OutcomeRejected:
		return http.StatusForbidden
	case OutcomeExchangeFailed:
		return http.StatusExpectationFailed
	case OutcomeActivationFailed:
		return http.StatusFailedDependency
	default:
		return http.StatusInternalServerError
	}
}

// FlowError is returned by every failing Service operation.
type FlowError struct {
	Outcome Outcome
	Err     error
}

func (e *FlowError) Error() string {
	if e.Err == nil {
		return e.Outcome.String()
	}
	return fmt.Sprintf("%s: %v", e.Outcome, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// OutcomeOf classifies err. A nil error is OutcomeCompleted and an error that
// did not come from the Service is OutcomeInternal.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeCompleted
	}
	var flowErr *FlowError
	if errors.As(err, &flowErr) {
		return flowErr.Outcome
	}
	return OutcomeInternal
}
