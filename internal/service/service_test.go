package service

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubeadapt/clusterview/internal/collector"
	"github.com/kubeadapt/clusterview/internal/config"
	"github.com/kubeadapt/clusterview/internal/errors"
	"github.com/kubeadapt/clusterview/internal/observability"
	"github.com/kubeadapt/clusterview/internal/store"
	"github.com/kubeadapt/clusterview/pkg/model"
)

// --- fake telemetry source ---

type fakeNodeSource struct {
	fail atomic.Bool
}

func (f *fakeNodeSource) GetNodeSummaries(_ context.Context) (*model.NodeSummaries, error) {
	if f.fail.Load() {
		return nil, stderrors.New("connection refused")
	}
	return &model.NodeSummaries{Summaries: []model.NodeSummary{{Hostname: "head"}, {Hostname: "worker-1"}}}, nil
}

// --- stub collector ---

type stubCollector struct {
	name string
}

func (s *stubCollector) Name() string                        { return s.name }
func (s *stubCollector) Start(_ context.Context) error       { return nil }
func (s *stubCollector) WaitForSync(_ context.Context) error { return nil }
func (s *stubCollector) Stop()                               {}

type testEnv struct {
	svc     *Service
	store   *store.Store
	source  *fakeNodeSource
	errs    *errors.ErrorCollector
	metrics *observability.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		InstanceID:   "test-instance",
		TelemetryURL: "http://ray-head.default.svc:8265",
		SyncTimeout:  2 * time.Second,
	}
	env := &testEnv{
		store:   store.NewStore(),
		source:  &fakeNodeSource{},
		errs:    errors.NewErrorCollector(errors.RealClock{}),
		metrics: observability.NewMetrics(),
	}

	registry := collector.NewRegistry()
	require.NoError(t, registry.Register(collector.NewNodeCollector(env.source, env.store, 20*time.Millisecond, env.metrics, env.errs)))
	require.NoError(t, registry.Register(&stubCollector{name: "stub"}))

	env.svc = New(cfg, registry, env.store, NewStateMachine(errors.RealClock{}), env.errs, env.metrics)
	env.svc.healthInterval = 10 * time.Millisecond
	return env
}

func runService(t *testing.T, svc *Service) (cancel func(), done <-chan error) {
	t.Helper()
	ctx, cancelFn := context.WithCancel(context.Background())
	ch := make(chan error, 1)
	go func() { ch <- svc.Run(ctx) }()
	return cancelFn, ch
}

func TestService_NotReadyBeforeRun(t *testing.T) {
	env := newTestEnv(t)

	assert.False(t, env.svc.IsReady())
	assert.Nil(t, env.svc.LatestSnapshot())
	assert.Equal(t, string(StateStarting), env.svc.Status().State)
}

func TestService_RunBecomesReady(t *testing.T) {
	env := newTestEnv(t)
	cancel, done := runService(t, env.svc)

	require.Eventually(t, env.svc.IsReady, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return env.svc.Status().State == string(StateRunning) }, 2*time.Second, 5*time.Millisecond)

	snap, ok := env.svc.LatestSnapshot().(*model.NodeSummaries)
	require.True(t, ok)
	assert.Len(t, snap.Summaries, 2)

	status := env.svc.Status()
	assert.Equal(t, "test-instance", status.InstanceID)
	assert.True(t, status.Ready)
	assert.Equal(t, "active", status.Collectors["nodes"])
	assert.Equal(t, "unknown", status.Collectors["stub"])
	assert.Equal(t, "http://ray-head.default.svc:8265", status.TelemetryURL)
	assert.Empty(t, status.ErrorCodes)
	assert.NotNil(t, status.ErrorCodes)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, string(StateStopping), env.svc.Status().State)
}

func TestService_DegradedOnPollErrors(t *testing.T) {
	env := newTestEnv(t)
	cancel, done := runService(t, env.svc)
	defer func() {
		cancel()
		<-done
	}()

	require.Eventually(t, func() bool { return env.svc.Status().State == string(StateRunning) }, 2*time.Second, 5*time.Millisecond)

	env.source.fail.Store(true)
	require.Eventually(t, func() bool { return env.svc.Status().State == string(StateDegraded) }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{string(errors.ErrTelemetryUnreachable)}, env.svc.Status().ErrorCodes)
	assert.True(t, env.svc.IsReady(), "a failed poll keeps the previous snapshot")

	env.source.fail.Store(false)
	require.Eventually(t, func() bool { return env.svc.Status().State == string(StateRunning) }, 2*time.Second, 5*time.Millisecond)
}

func TestService_SyncTimeoutContinues(t *testing.T) {
	env := newTestEnv(t)
	env.source.fail.Store(true)
	env.svc.config.SyncTimeout = 50 * time.Millisecond

	cancel, done := runService(t, env.svc)
	defer func() {
		cancel()
		<-done
	}()

	require.Eventually(t, func() bool {
		s := env.svc.Status().State
		return s == string(StateRunning) || s == string(StateDegraded)
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, env.svc.IsReady())
}
