package view

import (
	"sort"

	"github.com/kubeadapt/clusterview/internal/format"
	"github.com/kubeadapt/clusterview/pkg/model"
)

// DefaultVisibleEntries is the number of rows shown per memory group before
// the group is expanded.
const DefaultVisibleEntries = 10

// BuildMemoryView formats the memory table. Groups are ordered by key and each
// carries at most limit rows; limit <= 0 keeps every row.
func BuildMemoryView(t *model.MemoryTable, groupBy model.MemoryGroupByKey, paused bool, limit int) model.MemoryView {
	v := model.MemoryView{
		GroupBy: groupBy,
		Paused:  paused,
		Groups:  []model.MemoryGroupView{},
	}
	if t == nil {
		v.Loading = true
		v.Message = format.Loading
		return v
	}

	keys := make([]string, 0, len(t.Group))
	for k := range t.Group {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		g := t.Group[k]
		gv := model.MemoryGroupView{
			Key:        k,
			Title:      format.GroupTitle(k, groupBy),
			Summary:    g.Summary,
			EntryCount: len(g.Entries),
		}
		n := len(g.Entries)
		if limit > 0 && limit < n {
			n = limit
		}
		gv.Rows = make([]model.MemoryRowView, 0, n)
		for _, e := range g.Entries[:n] {
			gv.Rows = append(gv.Rows, memoryRow(e))
		}
		v.Groups = append(v.Groups, gv)
	}
	return v
}

func memoryRow(e model.MemoryTableEntry) model.MemoryRowView {
	return model.MemoryRowView{
		NodeIPAddress: e.NodeIPAddress,
		PID:           e.PID,
		Type:          e.Type,
		ObjectID:      e.ObjectID,
		ObjectSize:    format.ObjectSize(e.ObjectSize),
		ReferenceType: e.ReferenceType,
		CallSite:      e.CallSite,
	}
}
