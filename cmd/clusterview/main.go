package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	_ "github.com/KimMachineGun/automemlimit"
	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/kubeadapt/clusterview/internal/api"
	"github.com/kubeadapt/clusterview/internal/collector"
	"github.com/kubeadapt/clusterview/internal/config"
	"github.com/kubeadapt/clusterview/internal/discovery"
	"github.com/kubeadapt/clusterview/internal/errors"
	"github.com/kubeadapt/clusterview/internal/health"
	"github.com/kubeadapt/clusterview/internal/observability"
	"github.com/kubeadapt/clusterview/internal/service"
	"github.com/kubeadapt/clusterview/internal/store"
	"github.com/kubeadapt/clusterview/internal/telemetry"
)

func main() {
	// 1. Load and validate config.
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// 2. Create context with signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		slog.Info("shutdown signal received", "signal", sig)
		cancel()
	}()

	slog.Info("clusterview starting",
		"instance_id", cfg.InstanceID,
		"node_poll_interval", cfg.NodePollInterval,
		"memory_poll_interval", cfg.MemoryPollInterval,
		"memory_group_by", string(cfg.MemoryGroupBy),
	)

	// 3. Create shared infrastructure.
	metrics := observability.NewMetrics()
	errCollector := errors.NewErrorCollector(errors.RealClock{})
	st := store.NewStore()
	sm := service.NewStateMachine(errors.RealClock{})

	// 4. Resolve the telemetry API, discovering the head service when no
	// URL is configured.
	telemetryURL, err := resolveTelemetryURL(ctx, &cfg)
	if err != nil {
		slog.Error("failed to resolve telemetry API", "code", errors.ErrDiscoveryFailed, "error", err)
		os.Exit(1)
	}
	slog.Info("using telemetry API", "url", telemetryURL)
	cfg.TelemetryURL = telemetryURL
	client := telemetry.NewClient(telemetryURL, &cfg, metrics)

	// 5. Register collectors.
	nodes := collector.NewNodeCollector(client, st, cfg.NodePollInterval, metrics, errCollector)
	memory := collector.NewMemoryCollector(client, st, cfg.MemoryPollInterval, cfg.MemoryGroupBy, metrics, errCollector)

	registry := collector.NewRegistry()
	for _, c := range []collector.Collector{nodes, memory} {
		if err := registry.Register(c); err != nil {
			slog.Error("failed to register collector", "error", err)
			os.Exit(1)
		}
	}

	svc := service.New(&cfg, registry, st, sm, errCollector, metrics)

	// 6. Start health server.
	healthSrv := health.NewServer(cfg.HealthPort, health.Deps{
		Metrics:   metrics,
		Readiness: svc,
		Snapshot:  svc,
		Store:     st,
	}, cfg.DebugEndpoints)
	if err := healthSrv.Start(); err != nil {
		slog.Error("failed to start health server", "error", err)
		os.Exit(1)
	}

	// 7. Start view API server.
	gin.SetMode(gin.ReleaseMode)
	apiSrv := api.NewServer(api.Options{
		Port:           cfg.APIPort,
		AllowedOrigins: cfg.AllowedOrigins,
		VisibleEntries: cfg.MemoryVisibleEntries,
	}, st, memory, svc, metrics)
	if err := apiSrv.Start(); err != nil {
		slog.Error("failed to start api server", "error", err)
		os.Exit(1)
	}

	// 8. Start memory pressure monitor. The memory table is the largest
	// payload, so pressure pauses its poller.
	var memMon *service.MemoryPressureMonitor
	if cfg.MemoryPressureThreshold > 0 {
		memMon = service.NewMemoryPressureMonitor(cfg.MemoryPressureThreshold, func() {
			memory.Pause()
			runtime.GC()
		}, 30*time.Second, nil)
		memMon.Start()
	}

	// 9. Run service (blocks until context is canceled).
	if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
		slog.Error("service exited with error", "error", err)
	}

	// 10. Graceful shutdown.
	if memMon != nil {
		memMon.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := apiSrv.Stop(shutdownCtx); err != nil {
		slog.Error("api server shutdown error", "error", err)
	}
	if err := healthSrv.Stop(shutdownCtx); err != nil {
		slog.Error("health server shutdown error", "error", err)
	}

	slog.Info("clusterview stopped")
}

func resolveTelemetryURL(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.TelemetryURL != "" {
		return cfg.TelemetryURL, nil
	}

	restCfg, err := buildKubeConfig()
	if err != nil {
		return "", err
	}
	kubeClient, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return "", fmt.Errorf("create kubernetes client: %w", err)
	}

	caps, err := discovery.Detect(ctx, kubeClient, kubeClient.Discovery(), cfg.Namespace)
	if err != nil {
		slog.Warn("failed to detect cluster capabilities", "error", err)
	} else {
		slog.Info("cluster capabilities detected",
			"kuberay", caps.KubeRay,
			"list_services", caps.ListServices,
		)
		if !caps.ListServices {
			return "", fmt.Errorf("service account cannot list services in namespace %q", cfg.Namespace)
		}
	}

	return discovery.WaitForTelemetryURL(ctx, kubeClient, cfg.Namespace, cfg.HeadSelector, cfg.DiscoveryTimeout)
}

// buildKubeConfig creates a Kubernetes REST config.
// It tries in-cluster config first, then falls back to kubeconfig file
// (from $KUBECONFIG or the default ~/.kube/config).
func buildKubeConfig() (*rest.Config, error) {
	cfg, err := rest.InClusterConfig()
	if err == nil {
		slog.Info("using in-cluster kubernetes config")
		return cfg, nil
	}

	kubeconfig := os.Getenv("KUBECONFIG")
	if kubeconfig == "" {
		kubeconfig = clientcmd.RecommendedHomeFile
	}

	cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("build kubernetes config: %w", err)
	}
	slog.Info("using kubeconfig file", "path", kubeconfig)
	return cfg, nil
}
