package model

// MemoryGroupByKey selects how the memory table is grouped.
type MemoryGroupByKey string

// Supported memory table groupings.
const (
	GroupByNode       MemoryGroupByKey = "node"
	GroupByStackTrace MemoryGroupByKey = "stack_trace"
	GroupByNone       MemoryGroupByKey = ""
)

// Valid reports whether k is a grouping the telemetry API understands.
func (k MemoryGroupByKey) Valid() bool {
	switch k {
	case GroupByNode, GroupByStackTrace, GroupByNone:
		return true
	}
	return false
}

// MemoryTableEntry is one object reference row in the memory table.
type MemoryTableEntry struct {
	NodeIPAddress string `json:"node_ip_address"`
	PID           int    `json:"pid"`
	Type          string `json:"type"`
	ObjectID      string `json:"object_id"`
	// ObjectSize is in bytes; -1 means unknown.
	ObjectSize    int64  `json:"object_size"`
	ReferenceType string `json:"reference_type"`
	CallSite      string `json:"call_site"`
}

// MemoryTableSummary aggregates a memory group.
type MemoryTableSummary struct {
	TotalObjectSize        int64 `json:"total_object_size"`
	TotalLocalRefCount     int   `json:"total_local_ref_count"`
	TotalPinnedInMemory    int   `json:"total_pinned_in_memory"`
	TotalUsedByPendingTask int   `json:"total_used_by_pending_task"`
	TotalCapturedInObjects int   `json:"total_captured_in_objects"`
	TotalActorHandles      int   `json:"total_actor_handles"`
}

// MemoryGroup is the set of entries sharing a group key.
type MemoryGroup struct {
	Entries []MemoryTableEntry `json:"entries"`
	Summary MemoryTableSummary `json:"summary"`
}

// MemoryTable is the memory table snapshot keyed by group.
type MemoryTable struct {
	Group map[string]MemoryGroup `json:"group"`
}
