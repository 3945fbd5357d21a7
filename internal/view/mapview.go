package view

import "github.com/nodesight/nodesight/pkg/models"

// Severity is the marker visual state, a priority chain evaluated first
// match wins: offline > high latency > high traffic > nominal. States are
// never combined.
type Severity string

const (
	SeverityOffline Severity = "offline"
	SeverityLatency Severity = "warning"
	SeverityTraffic Severity = "traffic"
	SeverityNominal Severity = "online"
)

// MarkerSeverity evaluates the priority chain for a node.
func MarkerSeverity(n models.Node, th models.Thresholds) Severity {
	switch {
	case !n.Online:
		return SeverityOffline
	case IsHighLatency(n, th):
		return SeverityLatency
	case IsHighTraffic(n, th):
		return SeverityTraffic
	default:
		return SeverityNominal
	}
}

// LatLng is a map coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// MarkerView describes one placed marker. RefreshPopup is false while the
// marker's popup is open so an in-progress user interaction is not
// disrupted; position and icon still update.
type MarkerView struct {
	Position     LatLng      `json:"position"`
	Severity     Severity    `json:"severity"`
	Icon         string      `json:"icon"`
	Label        string      `json:"label"`
	Latency      string      `json:"latency"`
	Status       string      `json:"status"`
	Telemetry    string      `json:"telemetry,omitempty"`
	Series       ChartSeries `json:"series"`
	RefreshPopup bool        `json:"refresh_popup"`
}

// LineStyle describes a connector line. Dashed lines mark offline nodes.
type LineStyle struct {
	Color   string  `json:"color"`
	Dashed  bool    `json:"dashed"`
	Opacity float64 `json:"opacity"`
	Weight  int     `json:"weight"`
}

// History suffix charted in marker popups.
const popupHistoryLen = 20

// MarkerRenderer is the narrow contract to the mapping capability.
type MarkerRenderer interface {
	Upsert(id string, m MarkerView)
	Remove(id string)
	PopupOpen(id string) bool
	DrawLine(from, to LatLng, style LineStyle)
	ClearLines()
	PlaceCandidate(p LatLng)
	RemoveCandidate()
}

// MapReconciler maintains the one-to-one mapping from node identifier to
// placed marker, plus the connector lines radiating from the reference
// point.
type MapReconciler struct {
	markers MarkerRenderer
	placed  map[string]struct{}
	ref     *models.ReferencePoint
}

// NewMapReconciler returns a reconciler with no markers placed.
func NewMapReconciler(markers MarkerRenderer) *MapReconciler {
	return &MapReconciler{
		markers: markers,
		placed:  make(map[string]struct{}),
	}
}

// SetReferencePoint installs (or clears, with nil) the central site from
// which connector lines are drawn.
func (r *MapReconciler) SetReferencePoint(ref *models.ReferencePoint) {
	r.ref = ref
}

// Apply reconciles markers with the snapshot. Coordinate-bearing nodes are
// upserted, stale markers removed, and all connector lines redrawn from
// scratch.
func (r *MapReconciler) Apply(nodes []models.Node, th models.Thresholds) {
	r.markers.ClearLines()

	active := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		if !n.HasCoordinates() {
			continue
		}
		active[n.ID] = struct{}{}

		pos := LatLng{Lat: *n.Lat, Lng: *n.Lng}
		if r.ref != nil && r.ref.Placed() {
			r.markers.DrawLine(
				LatLng{Lat: *r.ref.Lat, Lng: *r.ref.Lng},
				pos,
				connectorStyle(n.Online),
			)
		}

		r.markers.Upsert(n.ID, MarkerView{
			Position:     pos,
			Severity:     MarkerSeverity(n, th),
			Icon:         iconOrDefault(n.Icon),
			Label:        n.ID,
			Latency:      markerLatencyText(n, th),
			Status:       string(nodeStatus(n)),
			Telemetry:    markerTelemetry(n),
			Series:       historySeries(n.History, popupHistoryLen, func(s models.Sample) *float64 { return s.Latency }),
			RefreshPopup: !r.markers.PopupOpen(n.ID),
		})
		r.placed[n.ID] = struct{}{}
	}

	for id := range r.placed {
		if _, ok := active[id]; !ok {
			r.markers.Remove(id)
			delete(r.placed, id)
		}
	}
}

// PlaceCandidate drops the transient "candidate add" marker at a clicked
// position. At most one candidate exists; placing a new one removes any
// prior one.
func (r *MapReconciler) PlaceCandidate(p LatLng) {
	r.markers.RemoveCandidate()
	r.markers.PlaceCandidate(p)
}

// ClearCandidate removes the candidate marker if present.
func (r *MapReconciler) ClearCandidate() {
	r.markers.RemoveCandidate()
}

func connectorStyle(online bool) LineStyle {
	if online {
		return LineStyle{Color: "#94a3b8", Dashed: false, Opacity: 0.6, Weight: 3}
	}
	return LineStyle{Color: "#fecaca", Dashed: true, Opacity: 0.8, Weight: 3}
}

func markerLatencyText(n models.Node, th models.Thresholds) string {
	switch {
	case !n.Online:
		return "Offline"
	case IsHighLatency(n, th):
		return formatFloat(n.LatencyMs) + "ms (Slow)"
	case IsHighTraffic(n, th):
		return formatFloat(n.LatencyMs) + "ms (Busy)"
	default:
		return formatFloat(n.LatencyMs) + "ms"
	}
}

func markerTelemetry(n models.Node) string {
	if !n.UseSNMP || !n.Online {
		return ""
	}
	return "rx " + formatFloat(n.RxRate) + " K / tx " + formatFloat(n.TxRate) + " K"
}
