package actors

import (
	"sort"
	"strings"

	"github.com/kubeadapt/clusterview/pkg/model"
)

// NestedTitles returns the titles of a and all of its descendants in
// depth-first pre-order. Actors without a title contribute nothing. Children
// are visited in ascending child id so the result is deterministic.
func NestedTitles(a model.Actor) []string {
	var titles []string
	collectTitles(a, &titles)
	return titles
}

func collectTitles(a model.Actor, titles *[]string) {
	if a.ActorTitle != "" {
		*titles = append(*titles, a.ActorTitle)
	}
	if a.State == model.ActorStateInvalid || len(a.Children) == 0 {
		return
	}
	for _, id := range sortedKeys(a.Children) {
		collectTitles(a.Children[id], titles)
	}
}

// MatchesSearch reports whether query occurs, ignoring case, in the title of
// a or of any descendant. The empty query matches every actor.
func MatchesSearch(a model.Actor, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, title := range NestedTitles(a) {
		if strings.Contains(strings.ToLower(title), q) {
			return true
		}
	}
	return false
}

// Filter returns the actors matching query, in input order. The input slice
// is not modified.
func Filter(actors []model.Actor, query string) []model.Actor {
	out := make([]model.Actor, 0, len(actors))
	for i := range actors {
		if MatchesSearch(actors[i], query) {
			out = append(out, actors[i])
		}
	}
	return out
}

// SortDeadLast returns a copy of actors with dead actors moved after all
// others. The relative order within each partition is preserved.
func SortDeadLast(actors []model.Actor) []model.Actor {
	out := make([]model.Actor, len(actors))
	copy(out, actors)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].State != model.ActorStateDead && out[j].State == model.ActorStateDead
	})
	return out
}

// FromNodeSummaries flattens the top-level actors of every node into one
// list. Nodes keep snapshot order; actors within a node are ordered by id.
func FromNodeSummaries(s *model.NodeSummaries) []model.Actor {
	var out []model.Actor
	for _, node := range s.Nodes() {
		for _, id := range sortedKeys(node.Actors) {
			out = append(out, node.Actors[id])
		}
	}
	return out
}

func sortedKeys(m map[string]model.Actor) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
