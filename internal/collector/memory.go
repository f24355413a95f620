package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	svcerrors "github.com/kubeadapt/clusterview/internal/errors"
	"github.com/kubeadapt/clusterview/internal/observability"
	"github.com/kubeadapt/clusterview/internal/poller"
	"github.com/kubeadapt/clusterview/internal/store"
	"github.com/kubeadapt/clusterview/pkg/model"
)

// ErrInvalidGroupBy is returned by SetGroupBy for an unknown grouping key.
var ErrInvalidGroupBy = errors.New("invalid memory group-by key")

// stopCollectionTimeout bounds the stop-collection call made on pause.
const stopCollectionTimeout = 5 * time.Second

// MemorySource reads the memory table from the telemetry API.
type MemorySource interface {
	GetMemoryTable(ctx context.Context, groupBy model.MemoryGroupByKey) (*model.MemoryTable, error)
	StopMemoryTableCollection(ctx context.Context) error
}

// MemoryCollector polls the memory table and can be paused and resumed.
// Pausing also tells the backend to stop gathering memory table data.
type MemoryCollector struct {
	api     MemorySource
	store   *store.Store
	metrics *observability.Metrics
	errs    *svcerrors.ErrorCollector
	poller  *poller.Poller

	mu      sync.RWMutex
	groupBy model.MemoryGroupByKey
}

// NewMemoryCollector creates a MemoryCollector polling every interval with the
// given initial grouping. metrics and errs may be nil.
func NewMemoryCollector(api MemorySource, st *store.Store, interval time.Duration, groupBy model.MemoryGroupByKey, metrics *observability.Metrics, errs *svcerrors.ErrorCollector) *MemoryCollector {
	c := &MemoryCollector{
		api:     api,
		store:   st,
		metrics: metrics,
		errs:    errs,
		groupBy: groupBy,
	}
	c.poller = poller.New(c.Name(), interval, c.poll,
		poller.WithOnPause(c.stopCollection),
		poller.WithOnFetch(fetchObserver(c.Name(), metrics)),
	)
	return c
}

// Name returns the collector name.
func (c *MemoryCollector) Name() string { return "memory" }

// Start launches the background polling goroutine.
func (c *MemoryCollector) Start(ctx context.Context) error {
	if err := c.poller.Start(ctx); err != nil {
		return err
	}
	c.setPausedGauge(false)
	return nil
}

// WaitForSync blocks until the first poll completes or the context is canceled.
func (c *MemoryCollector) WaitForSync(ctx context.Context) error {
	return c.poller.WaitForSync(ctx)
}

// Stop stops polling for good.
func (c *MemoryCollector) Stop() { c.poller.Stop() }

// State returns the poller state.
func (c *MemoryCollector) State() string { return string(c.poller.State()) }

// Paused reports whether polling is paused.
func (c *MemoryCollector) Paused() bool { return c.poller.State() == poller.StatePaused }

// Pause stops polling. When it returns no poll is in flight and the backend
// has been asked to stop collecting.
func (c *MemoryCollector) Pause() {
	c.poller.Pause()
	if c.Paused() {
		c.setPausedGauge(true)
	}
}

// Resume restarts polling with an immediate poll.
func (c *MemoryCollector) Resume() {
	c.poller.Resume()
	if c.poller.State() == poller.StateActive {
		c.setPausedGauge(false)
	}
}

// GroupBy returns the current grouping key.
func (c *MemoryCollector) GroupBy() model.MemoryGroupByKey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.groupBy
}

// SetGroupBy changes the grouping used by later polls and requests an
// immediate poll when active.
func (c *MemoryCollector) SetGroupBy(key model.MemoryGroupByKey) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidGroupBy, key)
	}
	c.mu.Lock()
	changed := c.groupBy != key
	c.groupBy = key
	c.mu.Unlock()

	if changed {
		slog.Info("memory group-by changed", "group_by", string(key))
		c.poller.Refresh()
	}
	return nil
}

func (c *MemoryCollector) poll(ctx context.Context) error {
	groupBy := c.GroupBy()
	table, err := c.api.GetMemoryTable(ctx, groupBy)
	if err != nil {
		if ctx.Err() == nil {
			reportPollError(c.errs, c.Name(), err)
		}
		return err
	}

	// mu is held across the check and the write. A stale result is dropped;
	// the pending refresh fetches the new grouping.
	c.mu.RLock()
	stale := c.groupBy != groupBy
	if !stale {
		c.store.ReplaceMemory(table, groupBy)
	}
	c.mu.RUnlock()
	if stale {
		return nil
	}

	if c.errs != nil {
		c.errs.ResolveComponent(component(c.Name()))
	}
	if c.metrics != nil {
		c.metrics.StoreItems.WithLabelValues("memory").Set(float64(c.store.Memory.Len()))
	}
	return nil
}

func (c *MemoryCollector) stopCollection() {
	ctx, cancel := context.WithTimeout(context.Background(), stopCollectionTimeout)
	defer cancel()

	if err := c.api.StopMemoryTableCollection(ctx); err != nil {
		slog.Warn("failed to stop memory table collection", "error", err)
		if c.errs != nil {
			se := svcerrors.New(svcerrors.ErrStopCollectionFailed, component(c.Name()), err)
			c.errs.Report(*se)
		}
	}
}

func (c *MemoryCollector) setPausedGauge(paused bool) {
	if c.metrics == nil {
		return
	}
	v := 0.0
	if paused {
		v = 1
	}
	c.metrics.PollerPaused.WithLabelValues(c.Name()).Set(v)
}
