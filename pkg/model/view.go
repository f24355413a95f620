package model

// UsageView pairs a utilization fraction with its display text. Fraction is
// nil when there is no data (e.g. a node without GPUs).
type UsageView struct {
	Fraction *float64 `json:"fraction,omitempty"`
	Text     string   `json:"text"`
}

// ClusterView is the cluster-wide node table served to the dashboard.
type ClusterView struct {
	Loading     bool              `json:"loading"`
	Totals      ClusterTotalsView `json:"totals"`
	Nodes       []NodeView        `json:"nodes"`
	GeneratedAt int64             `json:"generated_at"`
}

// ClusterTotalsView is the summary row of the node table.
type ClusterTotalsView struct {
	NodeCount int       `json:"node_count"`
	GPUCount  int       `json:"gpu_count"`
	GPU       UsageView `json:"gpu"`
	GRAM      UsageView `json:"gram"`
	LogCount  int       `json:"log_count"`
	Logs      string    `json:"logs"`
}

// NodeView is one node row with its GPU, GRAM, log and worker columns.
type NodeView struct {
	Hostname   string         `json:"hostname"`
	IP         string         `json:"ip,omitempty"`
	ActorCount int            `json:"actor_count"`
	GPUCount   int            `json:"gpu_count"`
	GPU        UsageView      `json:"gpu"`
	GRAM       UsageView      `json:"gram"`
	GPUs       []GPUEntryView `json:"gpus"`
	LogCount   int            `json:"log_count"`
	Logs       string         `json:"logs"`
	Workers    []WorkerView   `json:"workers"`
}

// GPUEntryView is a single device within a node row.
type GPUEntryView struct {
	Name        string    `json:"name"`
	Utilization UsageView `json:"utilization"`
	GRAM        UsageView `json:"gram"`
}

// WorkerView is a worker sub-row of a node.
type WorkerView struct {
	PID      int       `json:"pid"`
	GPUs     string    `json:"gpus"`
	GRAM     UsageView `json:"gram"`
	LogCount int       `json:"log_count"`
	Logs     string    `json:"logs"`
}

// LogicalView is the filtered actor list.
type LogicalView struct {
	Loading bool    `json:"loading"`
	Query   string  `json:"query"`
	Total   int     `json:"total"`
	Actors  []Actor `json:"actors"`
	Message string  `json:"message,omitempty"`
}

// MemoryView is the grouped memory table.
type MemoryView struct {
	Loading bool              `json:"loading"`
	Message string            `json:"message,omitempty"`
	GroupBy MemoryGroupByKey  `json:"group_by"`
	Paused  bool              `json:"paused"`
	Groups  []MemoryGroupView `json:"groups"`
}

// MemoryGroupView is one collapsible group of the memory table.
type MemoryGroupView struct {
	Key        string             `json:"key"`
	Title      string             `json:"title"`
	Summary    MemoryTableSummary `json:"summary"`
	EntryCount int                `json:"entry_count"`
	Rows       []MemoryRowView    `json:"rows"`
}

// MemoryRowView is a display-formatted memory table entry.
type MemoryRowView struct {
	NodeIPAddress string `json:"node_ip_address"`
	PID           int    `json:"pid"`
	Type          string `json:"type"`
	ObjectID      string `json:"object_id"`
	ObjectSize    string `json:"object_size"`
	ReferenceType string `json:"reference_type"`
	CallSite      string `json:"call_site"`
}

// StatusView reports collector states and active errors.
type StatusView struct {
	InstanceID   string            `json:"instance_id"`
	TelemetryURL string            `json:"telemetry_url"`
	Ready        bool              `json:"ready"`
	State        string            `json:"state"`
	StateReason  string            `json:"state_reason,omitempty"`
	UptimeSec    int64             `json:"uptime_seconds"`
	Collectors   map[string]string `json:"collectors"`
	ErrorCodes   []string          `json:"error_codes"`
}
