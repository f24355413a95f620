// Package logs sums per-worker log line counts reported in node summaries.
package logs

import (
	"strconv"

	"github.com/kubeadapt/clusterview/pkg/model"
)

// NodeLogCount returns the total log lines across all workers on n. A node
// without log counts has zero.
func NodeLogCount(n model.NodeSummary) int {
	total := 0
	for _, c := range n.LogCount {
		total += c
	}
	return total
}

// ClusterLogCount returns the total log lines across nodes.
func ClusterLogCount(nodes []model.NodeSummary) int {
	total := 0
	for i := range nodes {
		total += NodeLogCount(nodes[i])
	}
	return total
}

// WorkerLogCount returns the log lines recorded for pid on n.
func WorkerLogCount(n model.NodeSummary, pid int) int {
	return n.LogCount[strconv.Itoa(pid)]
}
