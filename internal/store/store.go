package store

import (
	"sort"
	"strconv"
	"sync"

	"github.com/kubeadapt/clusterview/pkg/model"
)

// Store holds the latest telemetry snapshots. Each TypedStore has its own
// RWMutex, so node and memory readers do not contend.
type Store struct {
	Nodes  *TypedStore[model.NodeSummary]
	Memory *TypedStore[model.MemoryGroup]

	// memMu pairs the memory table with the grouping it was fetched with.
	memMu      sync.RWMutex
	memGroupBy model.MemoryGroupByKey

	subMu sync.Mutex
	subs  map[chan struct{}]struct{}
}

// NewStore creates a Store with both TypedStores initialized.
func NewStore() *Store {
	return &Store{
		Nodes:  NewTypedStore[model.NodeSummary](),
		Memory: NewTypedStore[model.MemoryGroup](),
		subs:   make(map[chan struct{}]struct{}),
	}
}

// ReplaceNodes swaps the node snapshot and notifies subscribers. Every node
// is kept in telemetry order, including nodes that share a hostname.
func (s *Store) ReplaceNodes(snap *model.NodeSummaries) {
	nodes := snap.Nodes()
	keys := nodeKeys(nodes)
	entries := make([]Entry[model.NodeSummary], len(nodes))
	for i, n := range nodes {
		entries[i] = Entry[model.NodeSummary]{Key: keys[i], Value: n}
	}
	s.Nodes.Replace(entries)
	s.notify()
}

// nodeKeys gives every node a distinct key. The first node with a hostname
// is keyed by the hostname alone; later ones get "hostname@ip", then a
// "#n" position suffix if that is taken too.
func nodeKeys(nodes []model.NodeSummary) []string {
	keys := make([]string, len(nodes))
	seen := make(map[string]struct{}, len(nodes))
	for i, n := range nodes {
		key := n.Hostname
		if _, dup := seen[key]; dup && n.IP != "" {
			key = n.Hostname + "@" + n.IP
		}
		if _, dup := seen[key]; dup {
			key = key + "#" + strconv.Itoa(i)
		}
		seen[key] = struct{}{}
		keys[i] = key
	}
	return keys
}

// NodeSummaries returns the current node snapshot, or nil before the first
// one arrives.
func (s *Store) NodeSummaries() *model.NodeSummaries {
	if !s.Nodes.Loaded() {
		return nil
	}
	return &model.NodeSummaries{Summaries: s.Nodes.Values()}
}

// Node returns the first node in snapshot order with the given hostname. A
// non-empty ip selects among nodes sharing the hostname.
func (s *Store) Node(hostname, ip string) (model.NodeSummary, bool) {
	if n, ok := s.Nodes.Get(hostname); ok && (ip == "" || n.IP == ip) {
		return n, true
	}
	if ip == "" {
		return model.NodeSummary{}, false
	}
	if n, ok := s.Nodes.Get(hostname + "@" + ip); ok {
		return n, true
	}
	for _, n := range s.Nodes.Values() {
		if n.Hostname == hostname && n.IP == ip {
			return n, true
		}
	}
	return model.NodeSummary{}, false
}

// ReplaceMemory swaps the memory table fetched with groupBy. Groups are
// stored in key order.
func (s *Store) ReplaceMemory(t *model.MemoryTable, groupBy model.MemoryGroupByKey) {
	var groups map[string]model.MemoryGroup
	if t != nil {
		groups = t.Group
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]Entry[model.MemoryGroup], 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry[model.MemoryGroup]{Key: k, Value: groups[k]})
	}

	s.memMu.Lock()
	s.Memory.Replace(entries)
	s.memGroupBy = groupBy
	s.memMu.Unlock()
}

// MemorySnapshot returns the current memory table with the grouping it was
// fetched with. The table is nil before the first one arrives.
func (s *Store) MemorySnapshot() (*model.MemoryTable, model.MemoryGroupByKey) {
	s.memMu.RLock()
	defer s.memMu.RUnlock()
	if !s.Memory.Loaded() {
		return nil, ""
	}
	return &model.MemoryTable{Group: s.Memory.Snapshot()}, s.memGroupBy
}

// Subscribe returns a channel that receives a signal after every node
// snapshot replacement. Signals are coalesced: a slow reader sees at most one
// pending signal. Call cancel to unsubscribe.
func (s *Store) Subscribe() (updates <-chan struct{}, cancel func()) {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, ch)
			s.subMu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subs)
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// LastUpdatedTimes returns the UnixMilli timestamp of the last update for each typed store.
func (s *Store) LastUpdatedTimes() map[string]int64 {
	return map[string]int64{
		"nodes":  s.Nodes.LastUpdated(),
		"memory": s.Memory.LastUpdated(),
	}
}

// ItemCounts returns the number of items in each typed store.
// Implements health.StoreStats.
func (s *Store) ItemCounts() map[string]int {
	return map[string]int{
		"nodes":  s.Nodes.Len(),
		"memory": s.Memory.Len(),
	}
}
