package utilization

import "github.com/kubeadapt/clusterview/pkg/model"

// gpuResource is the resource name under which workers report held GPUs.
const gpuResource = "GPU"

// WorkerGPUs returns the number of GPUs held by a worker, or false when the
// worker holds none.
func WorkerGPUs(w model.Worker) (float64, bool) {
	n, ok := w.CoreWorkerStats.UsedResources[gpuResource]
	if !ok || n == 0 {
		return 0, false
	}
	return n, true
}

// WorkerGRAM returns the GPU memory held by pid across all of the node's GPUs
// and the node's total GPU memory. It returns false when the node has no GPUs.
func WorkerGRAM(n model.NodeSummary, pid int) (used, total float64, ok bool) {
	if len(n.GPUs) == 0 {
		return 0, 0, false
	}
	for _, g := range n.GPUs {
		total += g.MemoryTotal
		for _, p := range g.Processes {
			if p.PID == pid {
				used += p.GPUMemoryUsage
				break
			}
		}
	}
	return used, total, true
}
