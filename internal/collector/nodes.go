package collector

import (
	"context"
	"time"

	svcerrors "github.com/kubeadapt/clusterview/internal/errors"
	"github.com/kubeadapt/clusterview/internal/observability"
	"github.com/kubeadapt/clusterview/internal/poller"
	"github.com/kubeadapt/clusterview/internal/store"
	"github.com/kubeadapt/clusterview/internal/telemetry"
	"github.com/kubeadapt/clusterview/internal/utilization"
	"github.com/kubeadapt/clusterview/pkg/model"
)

// NodeSource reads node summaries from the telemetry API.
type NodeSource interface {
	GetNodeSummaries(ctx context.Context) (*model.NodeSummaries, error)
}

// NodeCollector polls node summaries on a fixed interval and replaces the
// node store wholesale on every successful poll. It is never paused.
type NodeCollector struct {
	api     NodeSource
	store   *store.Store
	metrics *observability.Metrics
	errs    *svcerrors.ErrorCollector
	poller  *poller.Poller
}

// NewNodeCollector creates a NodeCollector. metrics and errs may be nil.
func NewNodeCollector(api NodeSource, st *store.Store, interval time.Duration, metrics *observability.Metrics, errs *svcerrors.ErrorCollector) *NodeCollector {
	c := &NodeCollector{
		api:     api,
		store:   st,
		metrics: metrics,
		errs:    errs,
	}
	c.poller = poller.New(c.Name(), interval, c.poll, poller.WithOnFetch(fetchObserver(c.Name(), metrics)))
	return c
}

// Name returns the collector name.
func (c *NodeCollector) Name() string { return "nodes" }

// Start launches the background polling goroutine.
func (c *NodeCollector) Start(ctx context.Context) error {
	return c.poller.Start(ctx)
}

// WaitForSync blocks until the first poll completes or the context is canceled.
func (c *NodeCollector) WaitForSync(ctx context.Context) error {
	return c.poller.WaitForSync(ctx)
}

// Stop stops polling and waits for the goroutine to exit.
func (c *NodeCollector) Stop() { c.poller.Stop() }

// State returns the poller state.
func (c *NodeCollector) State() string { return string(c.poller.State()) }

// Refresh requests an immediate poll.
func (c *NodeCollector) Refresh() { c.poller.Refresh() }

func (c *NodeCollector) poll(ctx context.Context) error {
	snap, err := c.api.GetNodeSummaries(ctx)
	if err != nil {
		if ctx.Err() == nil {
			reportPollError(c.errs, c.Name(), err)
		}
		return err
	}

	c.store.ReplaceNodes(snap)
	if c.errs != nil {
		c.errs.ResolveComponent(component(c.Name()))
	}
	c.recordGauges(snap.Nodes())
	return nil
}

func (c *NodeCollector) recordGauges(nodes []model.NodeSummary) {
	if c.metrics == nil {
		return
	}
	c.metrics.StoreItems.WithLabelValues("nodes").Set(float64(len(nodes)))
	c.metrics.ClusterGPUs.Set(float64(utilization.GPUCount(nodes)))
	// Without GPUs the gauges hold zero rather than a stale value.
	gpu, _ := utilization.ClusterGPUAverage(nodes)
	c.metrics.ClusterGPUUtilization.Set(gpu)
	gram, _ := utilization.ClusterGRAMAverage(nodes)
	c.metrics.ClusterGRAMUtilization.Set(gram)
}

func component(name string) string { return "collector." + name }

func reportPollError(errs *svcerrors.ErrorCollector, name string, err error) {
	if errs == nil {
		return
	}
	se := svcerrors.New(telemetry.Classify(err), component(name), err)
	errs.Report(*se)
}

func fetchObserver(name string, metrics *observability.Metrics) func(time.Duration, error) {
	return func(d time.Duration, err error) {
		if metrics == nil {
			return
		}
		metrics.PollDuration.WithLabelValues(name).Observe(d.Seconds())
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.PollTotal.WithLabelValues(name, status).Inc()
	}
}
