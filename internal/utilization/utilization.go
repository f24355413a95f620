// Package utilization computes per-node and cluster-wide GPU and GPU memory
// (GRAM) utilization. All results are fractions in [0,1]; scaling to a
// percentage is left to the display layer.
//
// Cluster averages weight each node by its GPU count. Nodes without GPUs have
// no defined average and are left out of both the weighted sum and the weight
// total, so they never pull the cluster figure toward zero.
package utilization

import "github.com/kubeadapt/clusterview/pkg/model"

// Sample is a weighted value fed to WeightedAverage.
type Sample struct {
	Weight float64
	Value  float64
}

// WeightedAverage returns sum(w*v)/sum(w). It returns false when the total
// weight is zero.
func WeightedAverage(samples []Sample) (float64, bool) {
	var sum, weight float64
	for _, s := range samples {
		sum += s.Weight * s.Value
		weight += s.Weight
	}
	if weight == 0 {
		return 0, false
	}
	return sum / weight, true
}

// NodeGPUAverage returns the mean compute utilization across the node's GPUs,
// or false when the node has none.
func NodeGPUAverage(n model.NodeSummary) (float64, bool) {
	return nodeMean(n, func(g model.GPUStats) float64 { return g.UtilizationGPU })
}

// ClusterGPUAverage returns the GPU-count weighted mean of node averages, or
// false when no node has a GPU.
func ClusterGPUAverage(nodes []model.NodeSummary) (float64, bool) {
	return clusterMean(nodes, NodeGPUAverage)
}

// GRAMRatio returns MemoryUsed/MemoryTotal for one GPU. A GPU that reports no
// total memory has ratio 0.
func GRAMRatio(g model.GPUStats) float64 {
	if g.MemoryTotal <= 0 {
		return 0
	}
	return g.MemoryUsed / g.MemoryTotal
}

// NodeGRAMAverage returns the mean GRAM ratio across the node's GPUs, or false
// when the node has none.
func NodeGRAMAverage(n model.NodeSummary) (float64, bool) {
	return nodeMean(n, GRAMRatio)
}

// ClusterGRAMAverage returns the GPU-count weighted mean of node GRAM averages,
// or false when no node has a GPU.
func ClusterGRAMAverage(nodes []model.NodeSummary) (float64, bool) {
	return clusterMean(nodes, NodeGRAMAverage)
}

// GPUCount returns the total number of GPUs across nodes.
func GPUCount(nodes []model.NodeSummary) int {
	total := 0
	for i := range nodes {
		total += len(nodes[i].GPUs)
	}
	return total
}

func nodeMean(n model.NodeSummary, value func(model.GPUStats) float64) (float64, bool) {
	if len(n.GPUs) == 0 {
		return 0, false
	}
	var sum float64
	for _, g := range n.GPUs {
		sum += value(g)
	}
	return sum / float64(len(n.GPUs)), true
}

func clusterMean(nodes []model.NodeSummary, nodeAvg func(model.NodeSummary) (float64, bool)) (float64, bool) {
	samples := make([]Sample, 0, len(nodes))
	for i := range nodes {
		avg, ok := nodeAvg(nodes[i])
		if !ok {
			continue
		}
		samples = append(samples, Sample{Weight: float64(len(nodes[i].GPUs)), Value: avg})
	}
	return WeightedAverage(samples)
}
