package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// ErrDuplicateCollector is returned by Register when the name is taken.
var ErrDuplicateCollector = errors.New("collector already registered")

// Registry owns the lifecycle of the collectors. Collector names are unique:
// they key status reports and metric labels.
type Registry struct {
	mu         sync.Mutex
	collectors []Collector
	started    bool
}

// NewRegistry creates a new, empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a collector. Registration order is the start order; Stop
// runs in reverse.
func (r *Registry) Register(c Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.collectors {
		if existing.Name() == c.Name() {
			return fmt.Errorf("%w: %q", ErrDuplicateCollector, c.Name())
		}
	}
	r.collectors = append(r.collectors, c)
	return nil
}

// PartialStartError is returned when some (but not all) collectors fail to start.
// Callers can use errors.As to detect partial vs total failure.
type PartialStartError struct {
	Failed []string
	Total  int
	Errs   []error
}

func (e *PartialStartError) Error() string {
	return fmt.Sprintf("%d of %d collectors failed to start: %v", len(e.Failed), e.Total, e.Failed)
}

// Unwrap exposes the individual start errors.
func (e *PartialStartError) Unwrap() []error { return e.Errs }

// SyncError lists the collectors that had not finished their first poll
// when WaitForSync gave up.
type SyncError struct {
	Pending []string
	Err     error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("collectors not synced %v: %v", e.Pending, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

func (r *Registry) snapshot() []Collector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.collectors)
}

// each runs fn for every collector in parallel and returns the per-collector
// errors in registration order.
func each(collectors []Collector, fn func(Collector) error) []error {
	errs := make([]error, len(collectors))
	var wg sync.WaitGroup
	for i, c := range collectors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = fn(c)
		}()
	}
	wg.Wait()
	return errs
}

// StartAll starts every collector in parallel. It returns a
// PartialStartError when some fail, or a joined error when all fail.
func (r *Registry) StartAll(ctx context.Context) error {
	collectors := r.snapshot()
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()

	if len(collectors) == 0 {
		return nil
	}

	errs := each(collectors, func(c Collector) error { return c.Start(ctx) })

	var failed []string
	var failures []error
	for i, err := range errs {
		if err == nil {
			continue
		}
		name := collectors[i].Name()
		slog.Error("collector failed to start", "collector", name, "error", err)
		failed = append(failed, name)
		failures = append(failures, fmt.Errorf("%s: %w", name, err))
	}

	switch {
	case len(failed) == len(collectors):
		return fmt.Errorf("all %d collectors failed to start: %w", len(failed), errors.Join(failures...))
	case len(failed) > 0:
		return &PartialStartError{Failed: failed, Total: len(collectors), Errs: failures}
	}
	return nil
}

// WaitForSync waits until every collector has completed its first poll or
// ctx is done. On failure it returns a SyncError naming the stragglers.
func (r *Registry) WaitForSync(ctx context.Context) error {
	collectors := r.snapshot()
	errs := each(collectors, func(c Collector) error { return c.WaitForSync(ctx) })

	var pending []string
	var first error
	for i, err := range errs {
		if err == nil {
			continue
		}
		pending = append(pending, collectors[i].Name())
		if first == nil {
			first = err
		}
	}
	if first != nil {
		return &SyncError{Pending: pending, Err: first}
	}
	return nil
}

// StopAll stops the collectors in reverse registration order. Safe to call
// multiple times.
func (r *Registry) StopAll() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	collectors := slices.Clone(r.collectors)
	r.mu.Unlock()

	for _, c := range slices.Backward(collectors) {
		c.Stop()
	}
}

// Names returns the collector names in registration order.
func (r *Registry) Names() []string {
	collectors := r.snapshot()
	names := make([]string, len(collectors))
	for i, c := range collectors {
		names[i] = c.Name()
	}
	return names
}

// Get returns the collector registered under name.
func (r *Registry) Get(name string) (Collector, bool) {
	for _, c := range r.snapshot() {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// States returns each collector's lifecycle state keyed by name. Collectors
// that do not implement Stater report "unknown".
func (r *Registry) States() map[string]string {
	collectors := r.snapshot()
	out := make(map[string]string, len(collectors))
	for _, c := range collectors {
		state := "unknown"
		if s, ok := c.(Stater); ok {
			state = s.State()
		}
		out[c.Name()] = state
	}
	return out
}
