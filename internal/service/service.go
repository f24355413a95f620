// Package service wires the collectors, store and error tracking together and
// runs the service lifecycle.
package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kubeadapt/clusterview/internal/collector"
	"github.com/kubeadapt/clusterview/internal/config"
	"github.com/kubeadapt/clusterview/internal/errors"
	"github.com/kubeadapt/clusterview/internal/observability"
	"github.com/kubeadapt/clusterview/internal/store"
	"github.com/kubeadapt/clusterview/pkg/model"
)

// defaultHealthInterval is how often active errors are folded into the state.
const defaultHealthInterval = 5 * time.Second

// Service is the main orchestrator. It starts the collectors, waits for the
// first snapshots and tracks whether the service is healthy.
type Service struct {
	config         *config.Config
	registry       *collector.Registry
	store          *store.Store
	stateMachine   *StateMachine
	errorCollector *errors.ErrorCollector
	metrics        *observability.Metrics

	healthInterval time.Duration
	startedAt      time.Time
}

// New creates a Service with all required dependencies.
func New(
	cfg *config.Config,
	registry *collector.Registry,
	st *store.Store,
	stateMachine *StateMachine,
	errCollector *errors.ErrorCollector,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		config:         cfg,
		registry:       registry,
		store:          st,
		stateMachine:   stateMachine,
		errorCollector: errCollector,
		metrics:        metrics,
		healthInterval: defaultHealthInterval,
		startedAt:      time.Now(),
	}
}

// IsReady reports whether a node snapshot has been loaded. Implements
// health.ReadinessChecker.
func (s *Service) IsReady() bool {
	return s.store.Nodes.Loaded()
}

// LatestSnapshot returns the most recent node snapshot, or nil if none has
// been received yet. Implements health.SnapshotProvider.
func (s *Service) LatestSnapshot() any {
	snap := s.store.NodeSummaries()
	if snap == nil {
		return nil
	}
	return snap
}

// Status reports the service state, collector states and active errors.
func (s *Service) Status() model.StatusView {
	codes := s.errorCollector.GetActiveErrorCodes()
	if codes == nil {
		codes = []string{}
	}
	return model.StatusView{
		InstanceID:   s.config.InstanceID,
		TelemetryURL: s.config.TelemetryURL,
		Ready:        s.IsReady(),
		State:        string(s.stateMachine.State()),
		StateReason:  s.stateMachine.StateReason(),
		UptimeSec:    int64(time.Since(s.startedAt).Seconds()),
		Collectors:   s.registry.States(),
		ErrorCodes:   codes,
	}
}

// Run starts all collectors, waits for their first poll and then tracks
// service health until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	// 1. Start all collectors.
	if err := s.registry.StartAll(ctx); err != nil {
		var partial *collector.PartialStartError
		if stderrors.As(err, &partial) {
			slog.Warn("some collectors failed to start, continuing with partial data",
				"failed", partial.Failed, "total", partial.Total)
		} else {
			return fmt.Errorf("failed to start collectors: %w", err)
		}
	}
	defer s.registry.StopAll()

	// 2. Wait for the first poll of every collector.
	s.stateMachine.TransitionTo(StateSyncing, "waiting for first poll")
	syncTimeout := s.config.SyncTimeout
	if syncTimeout == 0 {
		syncTimeout = 30 * time.Second
	}
	slog.Info("waiting for collector sync", "timeout", syncTimeout)

	syncCtx, syncCancel := context.WithTimeout(ctx, syncTimeout)
	defer syncCancel()
	syncStart := time.Now()
	if err := s.registry.WaitForSync(syncCtx); err != nil {
		if ctx.Err() != nil {
			s.stateMachine.TransitionTo(StateStopping, "context canceled")
			return ctx.Err()
		}
		var pending []string
		var syncErr *collector.SyncError
		if stderrors.As(err, &syncErr) {
			pending = syncErr.Pending
		}
		slog.Warn("collector sync incomplete, continuing",
			"pending", pending,
			"error", err,
			"timeout", syncTimeout,
			"elapsed", time.Since(syncStart).Round(time.Millisecond),
		)
	} else {
		slog.Info("collector sync completed",
			"elapsed", time.Since(syncStart).Round(time.Millisecond),
		)
	}
	s.logStoreCounts()

	// 3. Transition to Running.
	s.stateMachine.TransitionTo(StateRunning, "collectors synced")
	slog.Info("service is running", "ready", s.IsReady())

	// 4. Fold active errors into the state until shutdown.
	ticker := time.NewTicker(s.healthInterval)
	defer ticker.Stop()
	s.observeHealth()

	for {
		select {
		case <-ctx.Done():
			s.stateMachine.TransitionTo(StateStopping, "context canceled")
			return ctx.Err()
		case <-ticker.C:
			s.observeHealth()
		}
	}
}

func (s *Service) observeHealth() {
	codes := s.errorCollector.GetActiveErrorCodes()
	if s.stateMachine.ObserveErrors(codes) {
		slog.Info("service state changed",
			"state", s.stateMachine.State(),
			"reason", s.stateMachine.StateReason(),
		)
		if s.stateMachine.State() == StateDegraded {
			for _, e := range s.errorCollector.GetActiveErrors() {
				slog.Warn("active error", "code", e.Code, "component", e.Component, "message", e.Message)
			}
		}
	}
	if s.metrics == nil {
		return
	}
	for resource, n := range s.store.ItemCounts() {
		s.metrics.StoreItems.WithLabelValues(resource).Set(float64(n))
	}
}

func (s *Service) logStoreCounts() {
	counts := s.store.ItemCounts()
	slog.Info("post-sync store counts",
		"nodes", counts["nodes"],
		"memory_groups", counts["memory"],
	)
}
