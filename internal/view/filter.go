package view

import (
	"sort"
	"strings"

	"github.com/nodesight/nodesight/pkg/models"
)

// FilterAll is the wildcard value for the type, province, and city selectors.
const FilterAll = "all"

// IssueSet selects which derived issue conditions participate in filtering.
// When no condition is selected the issue filter matches everything.
type IssueSet struct {
	Offline     bool `json:"offline"`
	HighLatency bool `json:"high_latency"`
	HighTraffic bool `json:"high_traffic"`
}

// Any reports whether at least one issue condition is selected.
func (s IssueSet) Any() bool {
	return s.Offline || s.HighLatency || s.HighTraffic
}

// Predicate is the conjunction of all active filter controls.
type Predicate struct {
	Search   string   `json:"search"`
	Type     string   `json:"type"`
	Province string   `json:"province"`
	City     string   `json:"city"`
	Issues   IssueSet `json:"issues"`
}

// IsIdentity reports whether the predicate matches every node.
func (p Predicate) IsIdentity() bool {
	return strings.TrimSpace(p.Search) == "" &&
		wildcard(p.Type) && wildcard(p.Province) && wildcard(p.City) &&
		!p.Issues.Any()
}

func wildcard(v string) bool {
	return v == "" || v == FilterAll
}

// Filter returns the nodes matching the predicate, preserving the relative
// order of the input. Issue conditions are evaluated against the given
// thresholds; callers must pass the latest cached configuration, not a value
// captured at snapshot time.
func Filter(nodes []models.Node, p Predicate, th models.Thresholds) []models.Node {
	search := strings.ToLower(strings.TrimSpace(p.Search))

	out := make([]models.Node, 0, len(nodes))
	for _, n := range nodes {
		if search != "" &&
			!strings.Contains(strings.ToLower(n.ID), search) &&
			!strings.Contains(strings.ToLower(n.Host), search) {
			continue
		}
		if !wildcard(p.Type) && n.Type != p.Type {
			continue
		}
		if !wildcard(p.Province) && deref(n.Province) != p.Province {
			continue
		}
		if !wildcard(p.City) && deref(n.City) != p.City {
			continue
		}
		if p.Issues.Any() && !matchesIssue(n, p.Issues, th) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// matchesIssue reports whether the node satisfies at least one selected
// issue condition.
func matchesIssue(n models.Node, issues IssueSet, th models.Thresholds) bool {
	if issues.Offline && !n.Online {
		return true
	}
	if issues.HighLatency && IsHighLatency(n, th) {
		return true
	}
	if issues.HighTraffic && IsHighTraffic(n, th) {
		return true
	}
	return false
}

// IsHighLatency reports whether the node is online with a latency sample
// above the configured threshold.
func IsHighLatency(n models.Node, th models.Thresholds) bool {
	return n.Online && n.LatencyMs != nil && *n.LatencyMs > th.LatencyThreshold
}

// IsHighTraffic reports whether the node is online with either traffic
// direction above the configured threshold.
func IsHighTraffic(n models.Node, th models.Thresholds) bool {
	if !n.Online {
		return false
	}
	if n.RxRate != nil && *n.RxRate > th.BandwidthThreshold {
		return true
	}
	return n.TxRate != nil && *n.TxRate > th.BandwidthThreshold
}

// TypeOptions returns the distinct node types present in the snapshot,
// sorted ascending.
func TypeOptions(nodes []models.Node) []string {
	return distinct(nodes, func(n models.Node) string { return n.Type })
}

// ProvinceOptions returns the distinct provinces present in the snapshot,
// sorted ascending.
func ProvinceOptions(nodes []models.Node) []string {
	return distinct(nodes, func(n models.Node) string { return deref(n.Province) })
}

// CityOptions returns the distinct cities available under the currently
// selected province. With the wildcard province every city is included.
// Changing the province must re-derive these options and reset the city
// selector when its value is no longer present.
func CityOptions(nodes []models.Node, province string) []string {
	return distinct(nodes, func(n models.Node) string {
		if !wildcard(province) && deref(n.Province) != province {
			return ""
		}
		return deref(n.City)
	})
}

func distinct(nodes []models.Node, key func(models.Node) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, n := range nodes {
		k := key(n)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
