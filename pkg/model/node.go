package model

// NodeSummary is one node's entry in the telemetry node summary snapshot.
type NodeSummary struct {
	Hostname string           `json:"hostname"`
	IP       string           `json:"ip,omitempty"`
	Actors   map[string]Actor `json:"actors,omitempty"`
	GPUs     []GPUStats       `json:"gpus,omitempty"`
	// LogCount maps a worker pid (as a string key) to its log line count.
	LogCount map[string]int `json:"log_count,omitempty"`
	Workers  []Worker       `json:"workers,omitempty"`
}

// Worker is a worker process running on a node.
type Worker struct {
	PID             int             `json:"pid"`
	CoreWorkerStats CoreWorkerStats `json:"coreWorkerStats"`
}

// CoreWorkerStats carries the resources currently held by a worker.
type CoreWorkerStats struct {
	UsedResources map[string]float64 `json:"usedResources,omitempty"`
}
