package model

// NodeSummaries is the full node snapshot returned by the telemetry API.
// A newer snapshot replaces an older one wholesale.
type NodeSummaries struct {
	Summaries []NodeSummary `json:"summary"`
}

// Nodes returns the summaries, tolerating a nil receiver.
func (s *NodeSummaries) Nodes() []NodeSummary {
	if s == nil {
		return nil
	}
	return s.Summaries
}
