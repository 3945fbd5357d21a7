package view

import (
	"strconv"

	"github.com/nodesight/nodesight/pkg/models"
)

// Sentinel labels for nodes lacking a province or city. They participate in
// the same adjacency grouping rule as real values.
const (
	GroupOtherProvince = "Other"
	GroupUnknownCity   = "Unknown"
)

// Issue badge labels.
const (
	BadgeHighLatency = "High Latency"
	BadgeHighTraffic = "High Traffic"
)

// Card CSS state classes, mutually exclusive.
const (
	CardOnline  = "online"
	CardOffline = "offline"
	CardLatency = "issue-latency"
	CardTraffic = "issue-traffic"
)

// GroupHeader labels a run of consecutive cards sharing a (province, city)
// pair.
type GroupHeader struct {
	Province string `json:"province"`
	City     string `json:"city"`
}

// GroupKeyFor returns the header for the node's (province, city) bucket.
func GroupKeyFor(n models.Node) GroupHeader {
	h := GroupHeader{Province: GroupOtherProvince, City: GroupUnknownCity}
	if n.Province != nil && *n.Province != "" {
		h.Province = *n.Province
	}
	if n.City != nil && *n.City != "" {
		h.City = *n.City
	}
	return h
}

// CardView is the declarative description of one rendered node card. It is
// a pure function of (node, thresholds, display mode); the transport layer
// translates it into UI operations.
type CardView struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Subtitle  string   `json:"subtitle"`
	Icon      string   `json:"icon"`
	CardClass string   `json:"card_class"`
	Status    string   `json:"status"`
	Latency   string   `json:"latency"`
	Telemetry string   `json:"telemetry"`
	Badges    []string `json:"badges,omitempty"`
	ShowChart bool     `json:"show_chart"`
}

// RenderCard derives the card description for a node. Offline nodes never
// show a numeric latency; they show a last-seen indicator instead.
func RenderCard(n models.Node, th models.Thresholds, mode DisplayMode) CardView {
	c := CardView{
		ID:        n.ID,
		Title:     n.ID,
		Subtitle:  n.Type + " - " + n.Host,
		Icon:      iconOrDefault(n.Icon),
		CardClass: cardClass(n, th),
		Status:    string(nodeStatus(n)),
		Latency:   latencyText(n),
		Telemetry: telemetryText(n),
		ShowChart: mode.ChartsEnabled(),
	}
	if n.Online {
		if IsHighLatency(n, th) {
			c.Badges = append(c.Badges, BadgeHighLatency)
		}
		if IsHighTraffic(n, th) {
			c.Badges = append(c.Badges, BadgeHighTraffic)
		}
	}
	return c
}

// Equal reports whether two card descriptions would render identically.
func (c CardView) Equal(o CardView) bool {
	if c.ID != o.ID || c.Title != o.Title || c.Subtitle != o.Subtitle ||
		c.Icon != o.Icon || c.CardClass != o.CardClass || c.Status != o.Status ||
		c.Latency != o.Latency || c.Telemetry != o.Telemetry || c.ShowChart != o.ShowChart {
		return false
	}
	if len(c.Badges) != len(o.Badges) {
		return false
	}
	for i := range c.Badges {
		if c.Badges[i] != o.Badges[i] {
			return false
		}
	}
	return true
}

func nodeStatus(n models.Node) models.NodeStatus {
	if n.Online {
		return models.StatusOnline
	}
	return models.StatusOffline
}

func cardClass(n models.Node, th models.Thresholds) string {
	switch {
	case !n.Online:
		return CardOffline
	case IsHighLatency(n, th):
		return CardLatency
	case IsHighTraffic(n, th):
		return CardTraffic
	default:
		return CardOnline
	}
}

func latencyText(n models.Node) string {
	if !n.Online {
		if n.LastSeen == "" {
			return "last seen never"
		}
		return "last seen " + n.LastSeen
	}
	return formatFloat(n.LatencyMs) + " ms"
}

func telemetryText(n models.Node) string {
	if !n.UseSNMP {
		return "Ping Only"
	}
	if !n.Online {
		return "Stopped"
	}
	return "rx " + formatFloat(n.RxRate) + " K / tx " + formatFloat(n.TxRate) + " K"
}

func iconOrDefault(icon string) string {
	if icon == "" {
		return "fa-server"
	}
	return icon
}

func formatFloat(v *float64) string {
	if v == nil {
		return "0"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// ChartSeries is a declarative time series for one chart instance. Points
// are nil where the sampled status was offline, so the chart renders a gap
// instead of a misleading zero.
type ChartSeries struct {
	Labels []string   `json:"labels"`
	Points []*float64 `json:"points"`
}

// CardSeries builds the latency series charted on a node card: a suffix of
// the node history whose length depends on the display mode, labeled with
// clock times.
func CardSeries(n models.Node, mode DisplayMode) ChartSeries {
	return historySeries(n.History, mode.ChartHistoryLen(), func(s models.Sample) *float64 {
		return s.Latency
	})
}

func historySeries(history []models.Sample, limit int, value func(models.Sample) *float64) ChartSeries {
	start := len(history) - limit
	if start < 0 {
		start = 0
	}
	suffix := history[start:]

	s := ChartSeries{
		Labels: make([]string, len(suffix)),
		Points: make([]*float64, len(suffix)),
	}
	for i, h := range suffix {
		s.Labels[i] = h.ClockTime()
		if h.Status != models.StatusOffline {
			s.Points[i] = value(h)
		}
	}
	return s
}
