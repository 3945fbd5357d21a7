// Package view implements the server-driven dashboard engine: snapshot
// storage, filtering, pagination, and the incremental reconciliation that
// decides between in-place patches and full rebuilds of the rendered
// node list and map markers.
package view

import (
	"sort"
	"strings"
	"sync"

	"github.com/nodesight/nodesight/pkg/models"
)

// EntityStore holds the latest full node snapshot. The poll loop replaces
// the snapshot atomically; there are no partial merges. Readers get the
// normalized ordering (province, city, id ascending, case-insensitive,
// nodes missing a province or city sorted last).
type EntityStore struct {
	mu    sync.RWMutex
	nodes []models.Node
	byID  map[string]int
}

// NewEntityStore returns an empty store.
func NewEntityStore() *EntityStore {
	return &EntityStore{byID: make(map[string]int)}
}

// ReplaceSnapshot swaps the held collection for the given one. The input is
// copied and normalized with the stable three-key sort, so callers may reuse
// their slice afterwards.
func (s *EntityStore) ReplaceSnapshot(nodes []models.Node) {
	sorted := make([]models.Node, len(nodes))
	copy(sorted, nodes)
	SortNodes(sorted)

	byID := make(map[string]int, len(sorted))
	for i, n := range sorted {
		byID[n.ID] = i
	}

	s.mu.Lock()
	s.nodes = sorted
	s.byID = byID
	s.mu.Unlock()
}

// Nodes returns the current snapshot in normalized order. The returned slice
// must not be mutated.
func (s *EntityStore) Nodes() []models.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes
}

// Get returns the node with the given identifier, if present.
func (s *EntityStore) Get(id string) (models.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return models.Node{}, false
	}
	return s.nodes[i], true
}

// Len reports the number of nodes in the current snapshot.
func (s *EntityStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// SortNodes orders nodes by province, then city, then identifier, ascending
// and case-insensitive. Nodes without a province or city sort after those
// that have one. The sort is stable so equal keys keep their input order.
func SortNodes(nodes []models.Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if c := compareOptional(nodes[i].Province, nodes[j].Province); c != 0 {
			return c < 0
		}
		if c := compareOptional(nodes[i].City, nodes[j].City); c != 0 {
			return c < 0
		}
		return strings.ToLower(nodes[i].ID) < strings.ToLower(nodes[j].ID)
	})
}

// compareOptional compares two optional labels case-insensitively, with
// missing values ordered last.
func compareOptional(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return strings.Compare(strings.ToLower(*a), strings.ToLower(*b))
}
