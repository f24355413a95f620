// Package view builds the dashboard's derived view data from telemetry
// snapshots. Builders are pure: they never modify their inputs.
package view

import (
	"k8s.io/utils/ptr"

	"github.com/kubeadapt/clusterview/internal/format"
	"github.com/kubeadapt/clusterview/internal/logs"
	"github.com/kubeadapt/clusterview/internal/utilization"
	"github.com/kubeadapt/clusterview/pkg/model"
)

// BuildClusterView computes the node table: one row per node plus the
// cluster totals row.
func BuildClusterView(nodes []model.NodeSummary) model.ClusterView {
	v := model.ClusterView{
		Totals: model.ClusterTotalsView{
			NodeCount: len(nodes),
			GPUCount:  utilization.GPUCount(nodes),
			LogCount:  logs.ClusterLogCount(nodes),
		},
		Nodes: make([]model.NodeView, 0, len(nodes)),
	}

	gpuAvg, ok := utilization.ClusterGPUAverage(nodes)
	v.Totals.GPU = usage(gpuAvg, ok)
	gramAvg, ok := utilization.ClusterGRAMAverage(nodes)
	v.Totals.GRAM = usage(gramAvg, ok)
	v.Totals.Logs = format.LineCount(v.Totals.LogCount)

	for i := range nodes {
		v.Nodes = append(v.Nodes, BuildNodeView(nodes[i]))
	}
	return v
}

// BuildNodeView computes a single node row with its GPU entries and worker
// sub-rows.
func BuildNodeView(n model.NodeSummary) model.NodeView {
	v := model.NodeView{
		Hostname:   n.Hostname,
		IP:         n.IP,
		ActorCount: len(n.Actors),
		GPUCount:   len(n.GPUs),
		GPUs:       make([]model.GPUEntryView, 0, len(n.GPUs)),
		LogCount:   logs.NodeLogCount(n),
		Workers:    make([]model.WorkerView, 0, len(n.Workers)),
	}

	gpuAvg, ok := utilization.NodeGPUAverage(n)
	v.GPU = usage(gpuAvg, ok)
	gramAvg, ok := utilization.NodeGRAMAverage(n)
	v.GRAM = usage(gramAvg, ok)
	v.Logs = format.LineCount(v.LogCount)

	for _, g := range n.GPUs {
		ratio := utilization.GRAMRatio(g)
		v.GPUs = append(v.GPUs, model.GPUEntryView{
			Name: g.Name,
			Utilization: model.UsageView{
				Fraction: ptr.To(g.UtilizationGPU),
				Text:     format.Percent(g.UtilizationGPU),
			},
			GRAM: model.UsageView{
				Fraction: ptr.To(ratio),
				Text:     format.GRAMUsage(g, ratio),
			},
		})
	}

	for _, w := range n.Workers {
		v.Workers = append(v.Workers, buildWorkerView(n, w))
	}
	return v
}

func buildWorkerView(n model.NodeSummary, w model.Worker) model.WorkerView {
	wv := model.WorkerView{
		PID:      w.PID,
		GPUs:     format.WorkerGPUs(utilization.WorkerGPUs(w)),
		LogCount: logs.WorkerLogCount(n, w.PID),
	}
	wv.Logs = format.LineCount(wv.LogCount)

	used, total, ok := utilization.WorkerGRAM(n, w.PID)
	switch {
	case !ok:
		wv.GRAM = model.UsageView{Text: format.NoGPUs}
	case total <= 0:
		wv.GRAM = model.UsageView{Fraction: ptr.To(0.0), Text: format.MiBRatio(used, total)}
	default:
		wv.GRAM = model.UsageView{Fraction: ptr.To(used / total), Text: format.MiBRatio(used, total)}
	}
	return wv
}

// usage converts an optional aggregate into a UsageView; absent values show
// the "No GPUs" placeholder.
func usage(fraction float64, ok bool) model.UsageView {
	if !ok {
		return model.UsageView{Text: format.NoGPUs}
	}
	return model.UsageView{Fraction: ptr.To(fraction), Text: format.Percent(fraction)}
}
