// Package collector polls the telemetry API into the store.
package collector

import "context"

// Collector is the interface that all telemetry collectors implement.
type Collector interface {
	// Name returns the collector's name (e.g., "nodes", "memory").
	Name() string
	// Start begins polling.
	Start(ctx context.Context) error
	// WaitForSync waits for the first poll to complete.
	WaitForSync(ctx context.Context) error
	// Stop stops the collector and cleans up resources.
	Stop()
}

// Stater is implemented by collectors that report a lifecycle state.
type Stater interface {
	State() string
}
