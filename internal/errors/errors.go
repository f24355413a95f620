// Package errors defines typed service error codes and a collector that keeps
// recently reported errors visible on the status endpoint.
package errors

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Code represents a typed error code surfaced on the status endpoint.
type Code string

// Service error codes.
const (
	ErrTelemetryUnreachable Code = "TELEMETRY_UNREACHABLE"
	ErrTelemetryRejected    Code = "TELEMETRY_REJECTED"
	ErrDecodeFailed         Code = "DECODE_FAILED"
	ErrStopCollectionFailed Code = "STOP_COLLECTION_FAILED"
	ErrDiscoveryFailed      Code = "DISCOVERY_FAILED"
	ErrInvalidRequest       Code = "INVALID_REQUEST"
)

// defaultTTL is the auto-expiry duration for errors not re-reported.
const defaultTTL = 5 * time.Minute

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock uses the system clock.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time { return time.Now() }

// ServiceError is a typed error with code, component and optional wrapped error.
type ServiceError struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Component string `json:"component"`
	Timestamp int64  `json:"timestamp"`
	Err       error  `json:"-"`
}

// New builds a ServiceError whose message is taken from err.
func New(code Code, component string, err error) *ServiceError {
	return &ServiceError{
		Code:      code,
		Message:   err.Error(),
		Component: component,
		Timestamp: time.Now().UnixMilli(),
		Err:       err,
	}
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As compatibility.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// String renders the error as "CODE component: message".
func (e *ServiceError) String() string {
	return fmt.Sprintf("%s %s: %s", e.Code, e.Component, e.Message)
}

// entry wraps a ServiceError with its last-reported time for expiry tracking.
type entry struct {
	err        ServiceError
	lastReport time.Time
}

// ErrorCollector is a thread-safe store for active service errors.
// Errors are keyed by Code+Component and auto-expire after 5 minutes
// if not re-reported.
type ErrorCollector struct {
	mu      sync.Mutex
	clock   Clock
	entries map[string]entry // key = string(Code) + "|" + Component
}

// NewErrorCollector creates an ErrorCollector with the given clock.
func NewErrorCollector(clock Clock) *ErrorCollector {
	return &ErrorCollector{
		clock:   clock,
		entries: make(map[string]entry),
	}
}

func key(code Code, component string) string {
	return string(code) + "|" + component
}

// Report stores or refreshes an error. The dedup key is Code+Component.
func (ec *ErrorCollector) Report(err ServiceError) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	ec.entries[key(err.Code, err.Component)] = entry{
		err:        err,
		lastReport: ec.clock.Now(),
	}
}

// ResolveComponent drops every error reported by component. Collectors call
// it after a successful poll.
func (ec *ErrorCollector) ResolveComponent(component string) {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	for k, e := range ec.entries {
		if e.err.Component == component {
			delete(ec.entries, k)
		}
	}
}

// GetActiveErrors returns all errors reported within the TTL window, ordered
// by code then component.
func (ec *ErrorCollector) GetActiveErrors() []ServiceError {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	now := ec.clock.Now()
	result := make([]ServiceError, 0, len(ec.entries))
	for k, e := range ec.entries {
		if now.Sub(e.lastReport) > defaultTTL {
			delete(ec.entries, k)
			continue
		}
		result = append(result, e.err)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Code != result[j].Code {
			return result[i].Code < result[j].Code
		}
		return result[i].Component < result[j].Component
	})
	return result
}

// GetActiveErrorCodes returns a sorted, deduplicated list of active error codes.
func (ec *ErrorCollector) GetActiveErrorCodes() []string {
	ec.mu.Lock()
	defer ec.mu.Unlock()

	now := ec.clock.Now()
	seen := make(map[Code]struct{})
	codes := make([]string, 0)
	for k, e := range ec.entries {
		if now.Sub(e.lastReport) > defaultTTL {
			delete(ec.entries, k)
			continue
		}
		if _, ok := seen[e.err.Code]; !ok {
			seen[e.err.Code] = struct{}{}
			codes = append(codes, string(e.err.Code))
		}
	}
	sort.Strings(codes)
	return codes
}
