package config

import (
	"fmt"
	"strings"
	"time"
)

// minPollInterval bounds how hard the telemetry API can be polled.
const minPollInterval = 500 * time.Millisecond

// Validate checks that the Config contains valid values.
// Returns an error describing the first invalid field found.
func (c Config) Validate() error {
	if c.TelemetryURL != "" {
		if !strings.HasPrefix(c.TelemetryURL, "http://") && !strings.HasPrefix(c.TelemetryURL, "https://") {
			return fmt.Errorf("config: CLUSTERVIEW_TELEMETRY_URL must be an http(s) URL, got %q", c.TelemetryURL)
		}
		if !c.AllowInsecure && !strings.HasPrefix(c.TelemetryURL, "https://") {
			return fmt.Errorf("config: CLUSTERVIEW_TELEMETRY_URL must use https:// (got %q); set CLUSTERVIEW_ALLOW_INSECURE=true to override", c.TelemetryURL)
		}
	} else if c.Namespace == "" || c.HeadSelector == "" {
		return fmt.Errorf("config: CLUSTERVIEW_NAMESPACE and CLUSTERVIEW_HEAD_SELECTOR are required when CLUSTERVIEW_TELEMETRY_URL is unset")
	}

	if c.NodePollInterval < minPollInterval {
		return fmt.Errorf("config: NodePollInterval must be >= %v, got %v", minPollInterval, c.NodePollInterval)
	}

	if c.MemoryPollInterval < minPollInterval {
		return fmt.Errorf("config: MemoryPollInterval must be >= %v, got %v", minPollInterval, c.MemoryPollInterval)
	}

	if !c.MemoryGroupBy.Valid() {
		return fmt.Errorf("config: MemoryGroupBy must be one of node, stack_trace or empty, got %q", c.MemoryGroupBy)
	}

	if c.MemoryVisibleEntries < 0 {
		return fmt.Errorf("config: MemoryVisibleEntries must be >= 0, got %d", c.MemoryVisibleEntries)
	}

	if c.RequestTimeout <= 0 || c.SyncTimeout <= 0 || c.DiscoveryTimeout <= 0 {
		return fmt.Errorf("config: RequestTimeout, SyncTimeout and DiscoveryTimeout must be positive")
	}

	if c.MemoryPressureThreshold < 0 || c.MemoryPressureThreshold > 1 {
		return fmt.Errorf("config: MemoryPressureThreshold must be between 0 and 1, got %v", c.MemoryPressureThreshold)
	}

	if c.MaxResponseBytes <= 0 {
		return fmt.Errorf("config: MaxResponseBytes must be > 0, got %d", c.MaxResponseBytes)
	}

	if c.APIPort < 1 || c.APIPort > 65535 {
		return fmt.Errorf("config: APIPort must be 1-65535, got %d", c.APIPort)
	}

	if c.HealthPort < 1 || c.HealthPort > 65535 {
		return fmt.Errorf("config: HealthPort must be 1-65535, got %d", c.HealthPort)
	}

	if c.APIPort == c.HealthPort {
		return fmt.Errorf("config: APIPort and HealthPort must differ, both are %d", c.APIPort)
	}

	return nil
}
