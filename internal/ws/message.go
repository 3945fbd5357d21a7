// Package ws streams the dashboard over WebSocket: each connected client
// owns a view session whose render decisions are pushed as declarative UI
// operations, while client commands drive filters, paging, and the detail
// overlay.
package ws

import (
	"time"

	"github.com/nodesight/nodesight/internal/view"
)

// MessageType discriminates server-to-client messages.
type MessageType string

const (
	// List operations.
	MessageListClear  MessageType = "list.clear"
	MessageListHeader MessageType = "list.header"
	MessageListCard   MessageType = "list.card"
	MessageCardPatch  MessageType = "card.patch"
	MessagePagination MessageType = "list.pagination"

	// Chart lifecycle.
	MessageChartCreate  MessageType = "chart.create"
	MessageChartUpdate  MessageType = "chart.update"
	MessageChartDestroy MessageType = "chart.destroy"

	// Map operations.
	MessageMarkerUpsert    MessageType = "marker.upsert"
	MessageMarkerRemove    MessageType = "marker.remove"
	MessageLineDraw        MessageType = "line.draw"
	MessageLinesClear      MessageType = "lines.clear"
	MessageCandidatePlace  MessageType = "candidate.place"
	MessageCandidateRemove MessageType = "candidate.remove"

	// Detail overlay.
	MessageDetailChart   MessageType = "detail.chart"
	MessageDetailLog     MessageType = "detail.log"
	MessageDetailLoading MessageType = "detail.loading"

	// Notification feed.
	MessageAlerts MessageType = "alerts.updated"

	// Command failures surfaced to the client.
	MessageError MessageType = "error"
)

// Message is the envelope for all server-to-client messages.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data,omitempty"`
}

// HeaderData is the payload for list.header.
type HeaderData struct {
	Header view.GroupHeader `json:"header"`
}

// CardPatchData carries one changed sub-element of a rendered card. Only
// the field named by Field is populated.
type CardPatchData struct {
	ID     string   `json:"id"`
	Field  string   `json:"field"` // class, status, latency, telemetry, badges
	Value  string   `json:"value,omitempty"`
	Badges []string `json:"badges,omitempty"`
}

// ChartData is the payload for chart lifecycle messages.
type ChartData struct {
	ID     string           `json:"id"`
	Series view.ChartSeries `json:"series,omitempty"`
}

// MarkerData is the payload for marker.upsert and marker.remove.
type MarkerData struct {
	ID     string          `json:"id"`
	Marker view.MarkerView `json:"marker,omitempty"`
}

// LineData is the payload for line.draw.
type LineData struct {
	From  view.LatLng    `json:"from"`
	To    view.LatLng    `json:"to"`
	Style view.LineStyle `json:"style"`
}

// DetailChartData is the payload for detail.chart.
type DetailChartData struct {
	ID     string            `json:"id"`
	Metric view.Metric       `json:"metric"`
	Series view.DetailSeries `json:"series"`
}

// DetailLogData is the payload for detail.log.
type DetailLogData struct {
	ID   string        `json:"id"`
	Rows []view.LogRow `json:"rows"`
}

// CommandType discriminates client-to-server commands.
type CommandType string

const (
	CommandSetFilters      CommandType = "set_filters"
	CommandSetPage         CommandType = "set_page"
	CommandSetDensity      CommandType = "set_density"
	CommandOpenDetail      CommandType = "open_detail"
	CommandSetDetailMetric CommandType = "set_detail_metric"
	CommandSetDetailRange  CommandType = "set_detail_range"
	CommandCloseDetail     CommandType = "close_detail"
	CommandPlaceCandidate  CommandType = "place_candidate"
	CommandClearCandidate  CommandType = "clear_candidate"
	CommandPopupOpened     CommandType = "popup_opened"
	CommandPopupClosed     CommandType = "popup_closed"
)

// Command is the envelope for client-to-server commands. Fields are
// populated per command type.
type Command struct {
	Type CommandType `json:"type"`

	Filters  *view.Predicate `json:"filters,omitempty"`
	Page     int             `json:"page,omitempty"`
	PageSize int             `json:"page_size,omitempty"`
	ID       string          `json:"id,omitempty"`
	Metric   view.Metric     `json:"metric,omitempty"`
	Minutes  int             `json:"minutes,omitempty"`
	Position *view.LatLng    `json:"position,omitempty"`
}
