package model

// GPUStats holds per-device GPU telemetry for a node. Memory values are in MiB.
type GPUStats struct {
	Name           string       `json:"name"`
	UtilizationGPU float64      `json:"utilization_gpu"`
	MemoryUsed     float64      `json:"memory_used"`
	MemoryTotal    float64      `json:"memory_total"`
	Processes      []GPUProcess `json:"processes,omitempty"`
}

// GPUProcess is a process holding GPU memory on a device.
type GPUProcess struct {
	PID            int     `json:"pid"`
	GPUMemoryUsage float64 `json:"gpu_memory_usage"`
}
