package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/kubeadapt/clusterview/internal/config"
	"github.com/kubeadapt/clusterview/internal/observability"
	"github.com/kubeadapt/clusterview/pkg/model"
)

// Endpoint labels used in metrics and errors.
const (
	EndpointNodes       = "nodes"
	EndpointMemoryTable = "memory_table"
	EndpointSetFetch    = "set_fetch"
)

// Client reads node and memory snapshots from the telemetry API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxBytes   int64
	metrics    *observability.Metrics
}

// NewClient creates a telemetry Client for baseURL with middleware applied.
// metrics may be nil.
func NewClient(baseURL string, cfg *config.Config, metrics *observability.Metrics) *Client {
	// Use an explicit transport instead of http.DefaultTransport to avoid
	// sharing mutable state with other code in the process.
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
	}

	// gzhttp negotiates compressed responses and decodes them transparently.
	var transport http.RoundTripper = gzhttp.Transport(base)
	transport = WithLogging(slog.Default(), transport)
	if cfg.TelemetryToken != "" {
		transport = WithAuth(cfg.TelemetryToken, transport)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		maxBytes: cfg.MaxResponseBytes,
		metrics:  metrics,
	}
}

// BaseURL returns the telemetry API root.
func (c *Client) BaseURL() string { return c.baseURL }

// GetNodeSummaries fetches the per-node summary snapshot.
func (c *Client) GetNodeSummaries(ctx context.Context) (*model.NodeSummaries, error) {
	var out model.NodeSummaries
	q := url.Values{"view": {"summary"}}
	if err := c.get(ctx, EndpointNodes, "/nodes", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMemoryTable fetches the memory table grouped by groupBy.
func (c *Client) GetMemoryTable(ctx context.Context, groupBy model.MemoryGroupByKey) (*model.MemoryTable, error) {
	var out model.MemoryTableData
	q := url.Values{"group_by": {string(groupBy)}}
	if err := c.get(ctx, EndpointMemoryTable, "/memory/memory_table", q, &out); err != nil {
		return nil, err
	}
	return &out.MemoryTable, nil
}

// StopMemoryTableCollection tells the backend to stop gathering memory table
// data until the next memory table request.
func (c *Client) StopMemoryTableCollection(ctx context.Context) error {
	q := url.Values{"shouldFetch": {"false"}}
	return c.get(ctx, EndpointSetFetch, "/memory/set_fetch", q, nil)
}

func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	start := time.Now()
	defer func() {
		if c.metrics != nil {
			c.metrics.TelemetryRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		}
	}()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("telemetry: failed to create %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telemetry: %s request failed: %w", endpoint, err)
	}

	env, n, err := ParseResponse(resp, c.maxBytes)
	if c.metrics != nil && n > 0 {
		c.metrics.TelemetryResponseBytes.WithLabelValues(endpoint).Observe(float64(n))
	}
	if err != nil {
		return fmt.Errorf("telemetry: %s: %w", endpoint, err)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("telemetry: %s: %w: %v", endpoint, ErrDecode, err)
	}
	return nil
}
