// Package testutil provides shared test fixtures.
package testutil

import "github.com/nodesight/nodesight/pkg/models"

// NewNode returns a Node with sensible defaults, suitable for test fixtures.
// Override individual fields after creation as needed.
func NewNode(id string, opts ...func(*models.Node)) models.Node {
	lat := 50.0
	n := models.Node{
		ID:        id,
		Host:      "10.0.0.1",
		Type:      "Server",
		Icon:      "fa-server",
		Online:    true,
		LatencyMs: &lat,
		UseSNMP:   false,
	}
	for _, opt := range opts {
		opt(&n)
	}
	return n
}

// WithHost sets the node host address.
func WithHost(host string) func(*models.Node) {
	return func(n *models.Node) { n.Host = host }
}

// WithType sets the declared node type.
func WithType(t string) func(*models.Node) {
	return func(n *models.Node) { n.Type = t }
}

// WithLocation sets the province and city labels.
func WithLocation(province, city string) func(*models.Node) {
	return func(n *models.Node) {
		n.Province = &province
		n.City = &city
	}
}

// WithCoordinates places the node on the map.
func WithCoordinates(lat, lng float64) func(*models.Node) {
	return func(n *models.Node) {
		n.Lat = &lat
		n.Lng = &lng
	}
}

// Offline marks the node offline with cleared samples.
func Offline(lastSeen string) func(*models.Node) {
	return func(n *models.Node) {
		n.Online = false
		n.LatencyMs = nil
		n.RxRate = nil
		n.TxRate = nil
		n.LastSeen = lastSeen
	}
}

// WithLatency sets the latency sample in milliseconds.
func WithLatency(ms float64) func(*models.Node) {
	return func(n *models.Node) { n.LatencyMs = &ms }
}

// WithTelemetry enables SNMP telemetry with the given traffic rates.
func WithTelemetry(rx, tx float64) func(*models.Node) {
	return func(n *models.Node) {
		n.UseSNMP = true
		n.RxRate = &rx
		n.TxRate = &tx
	}
}

// WithHistory sets the node's sample history.
func WithHistory(samples ...models.Sample) func(*models.Node) {
	return func(n *models.Node) { n.History = samples }
}

// Sample builds one history sample. Latency is nil for offline samples.
func Sample(t string, status models.NodeStatus, latency float64) models.Sample {
	s := models.Sample{Time: t, Status: status}
	if status == models.StatusOnline {
		s.Latency = &latency
	}
	return s
}
