package telemetry

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/kubeadapt/clusterview/pkg/model"
)

// authTransport adds an Authorization: Bearer header to every request.
type authTransport struct {
	token string
	next  http.RoundTripper
}

// WithAuth wraps a RoundTripper with bearer-token authorization.
func WithAuth(token string, next http.RoundTripper) http.RoundTripper {
	return &authTransport{token: token, next: next}
}

func (a *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+a.token)
	return a.next.RoundTrip(req)
}

// loggingTransport logs request method/URL and response status.
type loggingTransport struct {
	logger *slog.Logger
	next   http.RoundTripper
}

// WithLogging wraps a RoundTripper with request/response logging. Completed
// requests log at debug level since they repeat on every poll.
func WithLogging(logger *slog.Logger, next http.RoundTripper) http.RoundTripper {
	return &loggingTransport{logger: logger, next: next}
}

func (l *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := l.next.RoundTrip(req)
	elapsed := time.Since(start)

	if err != nil {
		l.logger.Warn("HTTP request failed",
			"method", req.Method,
			"url", req.URL.String(),
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return resp, err
	}

	l.logger.Debug("HTTP request completed",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration_ms", elapsed.Milliseconds(),
	)
	return resp, nil
}

// drainAndClose reads remaining body bytes and closes, preventing connection leaks.
func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	body.Close()
}

// ParseResponse reads an HTTP response into an envelope. It reads at most
// limit bytes of body (limit <= 0 means unbounded) and returns the number of
// bytes read.
func ParseResponse(resp *http.Response, limit int64) (*model.Envelope, int64, error) {
	defer drainAndClose(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, 0, &StatusError{StatusCode: resp.StatusCode, Kind: ErrUnauthorized}
	case resp.StatusCode == http.StatusNotFound:
		return nil, 0, &StatusError{StatusCode: resp.StatusCode, Kind: ErrNotFound}
	case resp.StatusCode >= 500:
		return nil, 0, &StatusError{StatusCode: resp.StatusCode, Kind: ErrServer}
	default:
		return nil, 0, &StatusError{StatusCode: resp.StatusCode, Kind: ErrUnexpectedStatus}
	}

	var body io.Reader = resp.Body
	if limit > 0 {
		body = io.LimitReader(resp.Body, limit+1)
	}
	cr := NewCountingReader(body)

	var env model.Envelope
	if err := json.NewDecoder(cr).Decode(&env); err != nil {
		if limit > 0 && cr.Count() > limit {
			return nil, cr.Count(), fmt.Errorf("%w: body exceeds %d bytes", ErrDecode, limit)
		}
		return nil, cr.Count(), fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !env.Result {
		return nil, cr.Count(), &RejectedError{Msg: env.Msg}
	}
	return &env, cr.Count(), nil
}
