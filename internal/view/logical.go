package view

import (
	"github.com/kubeadapt/clusterview/internal/actors"
	"github.com/kubeadapt/clusterview/internal/format"
	"github.com/kubeadapt/clusterview/pkg/model"
)

// BuildLogicalView returns the actors matching query across all nodes, dead
// actors last. A nil snapshot means data has not arrived yet.
func BuildLogicalView(s *model.NodeSummaries, query string) model.LogicalView {
	if s == nil {
		return model.LogicalView{Loading: true, Query: query, Actors: []model.Actor{}, Message: format.Loading}
	}

	all := actors.FromNodeSummaries(s)
	matched := actors.SortDeadLast(actors.Filter(all, query))

	v := model.LogicalView{
		Query:  query,
		Total:  len(all),
		Actors: matched,
	}
	if len(matched) == 0 {
		v.Message = format.NoActors
	}
	return v
}
