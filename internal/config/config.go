package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kubeadapt/clusterview/pkg/model"
)

// Config holds all service configuration values.
type Config struct {
	InstanceID string

	// Telemetry API
	TelemetryURL     string // CLUSTERVIEW_TELEMETRY_URL, default: "" (discover via Kubernetes)
	TelemetryToken   string
	RequestTimeout   time.Duration
	MaxResponseBytes int64

	// Discovery
	Namespace        string
	HeadSelector     string
	DiscoveryTimeout time.Duration

	// Polling
	NodePollInterval     time.Duration
	MemoryPollInterval   time.Duration
	MemoryGroupBy        model.MemoryGroupByKey
	MemoryVisibleEntries int
	SyncTimeout          time.Duration

	// MemoryPressureThreshold pauses the memory poller when process memory
	// exceeds this fraction of GOMEMLIMIT. 0 disables the monitor.
	MemoryPressureThreshold float64

	// Serving
	APIPort        int
	HealthPort     int
	AllowedOrigins []string // CLUSTERVIEW_ALLOWED_ORIGINS, comma-separated; empty allows any origin

	// Security
	AllowInsecure  bool // CLUSTERVIEW_ALLOW_INSECURE, default: true, allows an http:// telemetry URL
	DebugEndpoints bool // CLUSTERVIEW_DEBUG_ENDPOINTS, default: false, enables pprof/debug on health port
}

// Load reads configuration from environment variables and returns a Config
// with defaults applied for any unset values.
func Load() Config {
	cfg := Config{
		InstanceID:       os.Getenv("CLUSTERVIEW_INSTANCE_ID"),
		TelemetryURL:     strings.TrimRight(os.Getenv("CLUSTERVIEW_TELEMETRY_URL"), "/"),
		TelemetryToken:   os.Getenv("CLUSTERVIEW_TELEMETRY_TOKEN"),
		RequestTimeout:   parseDuration("CLUSTERVIEW_REQUEST_TIMEOUT", 10*time.Second),
		MaxResponseBytes: parseInt64("CLUSTERVIEW_MAX_RESPONSE_BYTES", 64<<20),

		Namespace:        envOrDefault("CLUSTERVIEW_NAMESPACE", "default"),
		HeadSelector:     envOrDefault("CLUSTERVIEW_HEAD_SELECTOR", "ray.io/node-type=head"),
		DiscoveryTimeout: parseDuration("CLUSTERVIEW_DISCOVERY_TIMEOUT", 2*time.Minute),

		NodePollInterval:     parseDuration("CLUSTERVIEW_NODE_POLL_INTERVAL", 2*time.Second),
		MemoryPollInterval:   parseDuration("CLUSTERVIEW_MEMORY_POLL_INTERVAL", 4*time.Second),
		MemoryVisibleEntries: parseInt("CLUSTERVIEW_MEMORY_VISIBLE_ENTRIES", 10),
		SyncTimeout:          parseDuration("CLUSTERVIEW_SYNC_TIMEOUT", 30*time.Second),

		MemoryPressureThreshold: parseFloat("CLUSTERVIEW_MEMORY_PRESSURE_THRESHOLD", 0.9),

		APIPort:        parseInt("CLUSTERVIEW_API_PORT", 8080),
		HealthPort:     parseInt("CLUSTERVIEW_HEALTH_PORT", 8081),
		AllowedOrigins: parseStringSlice("CLUSTERVIEW_ALLOWED_ORIGINS"),
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.New().String()
	}

	// An empty value is the "no grouping" key, so only an unset variable
	// falls back to the default.
	cfg.MemoryGroupBy = model.GroupByNode
	if v, ok := os.LookupEnv("CLUSTERVIEW_MEMORY_GROUP_BY"); ok {
		cfg.MemoryGroupBy = model.MemoryGroupByKey(strings.TrimSpace(v))
	}

	cfg.AllowInsecure = parseBool("CLUSTERVIEW_ALLOW_INSECURE", true)
	cfg.DebugEndpoints = parseBool("CLUSTERVIEW_DEBUG_ENDPOINTS", false)

	return cfg
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// parseDuration tries time.ParseDuration first, then falls back to treating
// the value as integer seconds.
func parseDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(v)
	if err == nil {
		return d
	}

	// Fallback: treat as integer seconds
	secs, err := strconv.Atoi(v)
	if err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultVal
}

func parseBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func parseInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func parseFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func parseStringSlice(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var result []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

func parseInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return n
}
