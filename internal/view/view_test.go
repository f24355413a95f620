package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubeadapt/clusterview/internal/format"
	"github.com/kubeadapt/clusterview/pkg/model"
)

func gpuNode(hostname string, utils ...float64) model.NodeSummary {
	n := model.NodeSummary{Hostname: hostname}
	for _, u := range utils {
		n.GPUs = append(n.GPUs, model.GPUStats{Name: "A100", UtilizationGPU: u, MemoryUsed: 512, MemoryTotal: 1024})
	}
	return n
}

func TestBuildClusterView_WeightedTotals(t *testing.T) {
	nodes := []model.NodeSummary{
		gpuNode("a", 0.2, 0.8),
		gpuNode("b", 0.9, 0.9, 0.9, 0.9),
		gpuNode("c"),
	}
	nodes[0].LogCount = map[string]int{"1": 3}

	v := BuildClusterView(nodes)

	assert.Equal(t, 3, v.Totals.NodeCount)
	assert.Equal(t, 6, v.Totals.GPUCount)
	require.NotNil(t, v.Totals.GPU.Fraction)
	assert.InDelta(t, (0.5*2+0.9*4)/6, *v.Totals.GPU.Fraction, 1e-9)
	require.NotNil(t, v.Totals.GRAM.Fraction)
	assert.InDelta(t, 0.5, *v.Totals.GRAM.Fraction, 1e-9)
	assert.Equal(t, "3 lines", v.Totals.Logs)
	require.Len(t, v.Nodes, 3)
	assert.Equal(t, "50.0%", v.Nodes[0].GPU.Text)
}

func TestBuildClusterView_NoGPUs(t *testing.T) {
	v := BuildClusterView([]model.NodeSummary{gpuNode("a")})

	assert.Nil(t, v.Totals.GPU.Fraction)
	assert.Equal(t, format.NoGPUs, v.Totals.GPU.Text)
	assert.Equal(t, format.NoGPUs, v.Totals.GRAM.Text)
	assert.Equal(t, format.NoLogs, v.Totals.Logs)
	assert.Equal(t, format.NoGPUs, v.Nodes[0].GPU.Text)
	assert.Empty(t, v.Nodes[0].GPUs)
}

func TestBuildClusterView_Empty(t *testing.T) {
	v := BuildClusterView(nil)
	assert.Equal(t, 0, v.Totals.NodeCount)
	assert.NotNil(t, v.Nodes)
	assert.Nil(t, v.Totals.GPU.Fraction)
}

func TestBuildNodeView_GPUEntries(t *testing.T) {
	n := gpuNode("a", 0.25)
	v := BuildNodeView(n)

	require.Len(t, v.GPUs, 1)
	assert.Equal(t, "A100", v.GPUs[0].Name)
	assert.Equal(t, "25.0%", v.GPUs[0].Utilization.Text)
	assert.Equal(t, "512.0 MB / 1024.0 MB (50.0%)", v.GPUs[0].GRAM.Text)
	assert.InDelta(t, 0.5, *v.GPUs[0].GRAM.Fraction, 1e-9)
}

func TestBuildNodeView_Workers(t *testing.T) {
	n := gpuNode("a", 0.5, 0.5)
	n.GPUs[0].Processes = []model.GPUProcess{{PID: 42, GPUMemoryUsage: 256}}
	n.GPUs[1].Processes = []model.GPUProcess{{PID: 42, GPUMemoryUsage: 256}, {PID: 7, GPUMemoryUsage: 100}}
	n.LogCount = map[string]int{"42": 1}
	n.Workers = []model.Worker{
		{PID: 42, CoreWorkerStats: model.CoreWorkerStats{UsedResources: map[string]float64{"GPU": 2}}},
		{PID: 9},
	}

	v := BuildNodeView(n)

	require.Len(t, v.Workers, 2)
	w := v.Workers[0]
	assert.Equal(t, 42, w.PID)
	assert.Equal(t, "2 GPUs in use", w.GPUs)
	assert.Equal(t, "512 MiB / 2048 MiB", w.GRAM.Text)
	assert.InDelta(t, 0.25, *w.GRAM.Fraction, 1e-9)
	assert.Equal(t, "1 line", w.Logs)

	idle := v.Workers[1]
	assert.Equal(t, format.NoGPUs, idle.GPUs)
	assert.Equal(t, "0 MiB / 2048 MiB", idle.GRAM.Text)
	assert.Equal(t, format.NoLogs, idle.Logs)
}

func TestBuildNodeView_WorkerOnNodeWithoutGPUs(t *testing.T) {
	n := model.NodeSummary{Hostname: "cpu", Workers: []model.Worker{{PID: 1}}}
	v := BuildNodeView(n)

	require.Len(t, v.Workers, 1)
	assert.Nil(t, v.Workers[0].GRAM.Fraction)
	assert.Equal(t, format.NoGPUs, v.Workers[0].GRAM.Text)
}

func TestBuildLogicalView(t *testing.T) {
	s := &model.NodeSummaries{Summaries: []model.NodeSummary{{
		Hostname: "a",
		Actors: map[string]model.Actor{
			"1": {ActorID: "1", ActorTitle: "Trainer", State: model.ActorStateDead},
			"2": {ActorID: "2", ActorTitle: "Trainer-2", State: model.ActorStateAlive},
			"3": {ActorID: "3", ActorTitle: "Reader", State: model.ActorStateAlive},
		},
	}}}

	v := BuildLogicalView(s, "TRAIN")

	assert.False(t, v.Loading)
	assert.Equal(t, 3, v.Total)
	require.Len(t, v.Actors, 2)
	assert.Equal(t, "2", v.Actors[0].ActorID)
	assert.Equal(t, "1", v.Actors[1].ActorID)
	assert.Empty(t, v.Message)
}

func TestBuildLogicalView_NoMatches(t *testing.T) {
	s := &model.NodeSummaries{Summaries: []model.NodeSummary{{Hostname: "a"}}}
	v := BuildLogicalView(s, "x")
	assert.Empty(t, v.Actors)
	assert.Equal(t, format.NoActors, v.Message)
}

func TestBuildLogicalView_Loading(t *testing.T) {
	v := BuildLogicalView(nil, "")
	assert.True(t, v.Loading)
	assert.Equal(t, format.Loading, v.Message)
}

func TestBuildMemoryView(t *testing.T) {
	entries := make([]model.MemoryTableEntry, 12)
	for i := range entries {
		entries[i] = model.MemoryTableEntry{PID: i, ObjectSize: int64(i)}
	}
	entries[0].ObjectSize = -1
	table := &model.MemoryTable{Group: map[string]model.MemoryGroup{
		"10.0.0.2": {Entries: entries[:2], Summary: model.MemoryTableSummary{TotalObjectSize: 1}},
		"10.0.0.1": {Entries: entries},
	}}

	v := BuildMemoryView(table, model.GroupByNode, true, DefaultVisibleEntries)

	assert.False(t, v.Loading)
	assert.True(t, v.Paused)
	require.Len(t, v.Groups, 2)
	assert.Equal(t, "10.0.0.1", v.Groups[0].Key)
	assert.Equal(t, "Node 10.0.0.1", v.Groups[0].Title)
	assert.Equal(t, 12, v.Groups[0].EntryCount)
	assert.Len(t, v.Groups[0].Rows, DefaultVisibleEntries)
	assert.Equal(t, "?", v.Groups[0].Rows[0].ObjectSize)
	assert.Equal(t, "1 B", v.Groups[0].Rows[1].ObjectSize)
	assert.Len(t, v.Groups[1].Rows, 2)
	assert.Equal(t, int64(1), v.Groups[1].Summary.TotalObjectSize)
}

func TestBuildMemoryView_NoLimit(t *testing.T) {
	table := &model.MemoryTable{Group: map[string]model.MemoryGroup{
		"": {Entries: make([]model.MemoryTableEntry, 15)},
	}}
	v := BuildMemoryView(table, model.GroupByNone, false, 0)
	require.Len(t, v.Groups, 1)
	assert.Equal(t, "All entries", v.Groups[0].Title)
	assert.Len(t, v.Groups[0].Rows, 15)
}

func TestBuildMemoryView_Loading(t *testing.T) {
	v := BuildMemoryView(nil, model.GroupByStackTrace, false, 10)
	assert.True(t, v.Loading)
	assert.Equal(t, format.Loading, v.Message)
	assert.Empty(t, v.Groups)
}
