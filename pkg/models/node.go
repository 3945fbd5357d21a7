package models

// NodeStatus is the recorded state of a node in a history sample.
type NodeStatus string

const (
	StatusOnline  NodeStatus = "ONLINE"
	StatusOffline NodeStatus = "OFFLINE"
)

// Sample is one point of a node's history series, as delivered by the
// monitoring backend. Time is the backend's "2006-01-02 15:04:05" wall-clock
// string; the gateway never reinterprets it, only slices and labels.
type Sample struct {
	Time    string     `json:"time" example:"2026-01-15 10:30:00"`
	Status  NodeStatus `json:"status" example:"ONLINE"`
	Latency *float64   `json:"latency,omitempty" example:"42"`
	Rx      *float64   `json:"rx,omitempty" example:"1200"`
	Tx      *float64   `json:"tx,omitempty" example:"800"`
}

// ClockTime returns the HH:MM:SS portion of the sample time, used as a
// short chart label. Falls back to the full string when the format is
// unexpected.
func (s Sample) ClockTime() string {
	for i := 0; i < len(s.Time); i++ {
		if s.Time[i] == ' ' {
			return s.Time[i+1:]
		}
	}
	return s.Time
}

// Node is one monitored host as reported in a status snapshot.
// Nullable fields are pointers: latency and traffic rates are absent when
// the node is offline or telemetry is disabled, coordinates and
// province/city are absent when the node has no location.
type Node struct {
	ID            string   `json:"id" example:"core-router-bdg"`
	Host          string   `json:"host" example:"10.20.1.1"`
	Type          string   `json:"type" example:"Router"`
	Icon          string   `json:"icon,omitempty" example:"fa-network-wired"`
	Lat           *float64 `json:"lat,omitempty"`
	Lng           *float64 `json:"lng,omitempty"`
	Online        bool     `json:"online"`
	LatencyMs     *float64 `json:"latency_ms,omitempty" example:"42"`
	RxRate        *float64 `json:"rx_rate,omitempty" example:"1200"`
	TxRate        *float64 `json:"tx_rate,omitempty" example:"800"`
	UseSNMP       bool     `json:"use_snmp"`
	Province      *string  `json:"province,omitempty" example:"Jawa Barat"`
	City          *string  `json:"city,omitempty" example:"Bandung"`
	LastSeen      string   `json:"last_seen,omitempty" example:"2026-01-15 10:28:00"`
	NotifyDown    int      `json:"notify_down" example:"1"`
	NotifyTraffic int      `json:"notify_traffic" example:"0"`
	NotifyEmail   int      `json:"notify_email" example:"0"`
	History       []Sample `json:"history,omitempty"`
}

// HasCoordinates reports whether the node can be placed on the map.
func (n Node) HasCoordinates() bool {
	return n.Lat != nil && n.Lng != nil
}

// Thresholds are the issue-detection limits configured on the backend and
// cached by the gateway. Latency in milliseconds, bandwidth in the
// backend's rate unit (shared by both traffic directions).
type Thresholds struct {
	LatencyThreshold   float64 `json:"latency_threshold" example:"100"`
	BandwidthThreshold float64 `json:"bandwidth_threshold" example:"10000"`
}

// ReferencePoint is the optional central site ("HQ") that connector lines
// are drawn from. Absence of coordinates means no lines are drawn.
type ReferencePoint struct {
	Lat  *float64 `json:"lat,omitempty"`
	Lng  *float64 `json:"lng,omitempty"`
	City string   `json:"city,omitempty" example:"Jakarta"`
	IP   string   `json:"ip,omitempty" example:"10.0.0.1"`
	Org  string   `json:"org,omitempty" example:"NOC Pusat"`
}

// Placed reports whether the reference point has usable coordinates.
func (r *ReferencePoint) Placed() bool {
	return r != nil && r.Lat != nil && r.Lng != nil
}

// Alert is one entry of the notification feed.
type Alert struct {
	MachineID string `json:"machine_id" example:"core-router-bdg"`
	Type      string `json:"type" example:"down"`
	Message   string `json:"message" example:"Node unreachable for 3 checks"`
	Time      string `json:"time" example:"2026-01-15 10:30:00"`
	IsRead    bool   `json:"is_read"`
}

// AlertFeed is the response shape of the alerts endpoint.
type AlertFeed struct {
	Alerts      []Alert `json:"alerts"`
	UnreadCount int     `json:"unread_count"`
}
