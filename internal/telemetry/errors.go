package telemetry

import (
	"errors"
	"fmt"

	svcerrors "github.com/kubeadapt/clusterview/internal/errors"
)

// Sentinel errors wrapped by StatusError and decode failures.
var (
	ErrUnauthorized     = errors.New("telemetry: authentication failed")
	ErrNotFound         = errors.New("telemetry: endpoint not found")
	ErrServer           = errors.New("telemetry: server error")
	ErrUnexpectedStatus = errors.New("telemetry: unexpected status")
	ErrDecode           = errors.New("telemetry: malformed response")
)

// StatusError is returned for any non-200 response.
type StatusError struct {
	StatusCode int
	Kind       error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v (HTTP %d)", e.Kind, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return e.Kind }

// RejectedError is returned when the envelope has result=false.
type RejectedError struct {
	Msg string
}

func (e *RejectedError) Error() string {
	return "telemetry: request rejected: " + e.Msg
}

// Classify maps a client error to the service error code it is reported under.
func Classify(err error) svcerrors.Code {
	var statusErr *StatusError
	var rejected *RejectedError
	switch {
	case errors.As(err, &statusErr), errors.As(err, &rejected):
		return svcerrors.ErrTelemetryRejected
	case errors.Is(err, ErrDecode):
		return svcerrors.ErrDecodeFailed
	default:
		return svcerrors.ErrTelemetryUnreachable
	}
}
