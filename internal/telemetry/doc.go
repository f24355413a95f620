// Package telemetry is the HTTP client for the cluster telemetry API.
//
// Every endpoint answers with the envelope {"result", "msg", "data"}. A
// result of false is reported as a *RejectedError carrying msg. Requests are
// never retried; the caller polls again on its next tick.
package telemetry
