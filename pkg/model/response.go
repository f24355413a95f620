package model

import "encoding/json"

// Envelope is the response wrapper used by every telemetry API endpoint.
type Envelope struct {
	Result bool            `json:"result"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// MemoryTableData is the data payload of the memory table endpoint.
type MemoryTableData struct {
	MemoryTable MemoryTable `json:"memoryTable"`
}
