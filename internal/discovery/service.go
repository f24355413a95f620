package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	v1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

const (
	// DashboardPortName is the service port that serves the telemetry API.
	DashboardPortName = "dashboard"
	// DefaultDashboardPort is used when the head service has no port named
	// DashboardPortName.
	DefaultDashboardPort int32 = 8265

	maxRetryInterval = 10 * time.Second
)

// ErrNoHeadService is returned when no service matches the head selector.
var ErrNoHeadService = errors.New("discovery: no head service found")

// ResolveTelemetryURL finds the head service in namespace matching selector
// and returns its in-cluster telemetry base URL. When several services
// match, the first by name wins.
func ResolveTelemetryURL(ctx context.Context, client kubernetes.Interface, namespace, selector string) (string, error) {
	svcs, err := client.CoreV1().Services(namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return "", fmt.Errorf("discovery: list services in %q: %w", namespace, err)
	}
	if len(svcs.Items) == 0 {
		return "", fmt.Errorf("%w in %q matching %q", ErrNoHeadService, namespace, selector)
	}

	svc := &svcs.Items[0]
	for i := range svcs.Items {
		if svcs.Items[i].Name < svc.Name {
			svc = &svcs.Items[i]
		}
	}
	return fmt.Sprintf("http://%s.%s.svc:%d", svc.Name, svc.Namespace, dashboardPort(svc)), nil
}

func dashboardPort(svc *v1.Service) int32 {
	for _, p := range svc.Spec.Ports {
		if p.Name == DashboardPortName {
			return p.Port
		}
	}
	return DefaultDashboardPort
}

// WaitForTelemetryURL retries ResolveTelemetryURL with exponential backoff
// until it succeeds, ctx is done or maxElapsed passes. Forbidden and
// unauthorized errors are not retried.
func WaitForTelemetryURL(ctx context.Context, client kubernetes.Interface, namespace, selector string, maxElapsed time.Duration) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed
	b.MaxInterval = maxRetryInterval

	var url string
	op := func() error {
		var err error
		url, err = ResolveTelemetryURL(ctx, client, namespace, selector)
		if apierrors.IsForbidden(err) || apierrors.IsUnauthorized(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		slog.Info("telemetry service not ready, retrying", "namespace", namespace, "error", err, "retry_in", next)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return "", err
	}
	return url, nil
}
