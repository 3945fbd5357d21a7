package ws

import (
	"sync"
	"time"

	"github.com/nodesight/nodesight/internal/view"
)

// clientSink translates the view engine's render decisions into messages
// queued on one client's send channel. It implements every renderer
// interface the view session needs; the browser-side adapter applies the
// operations to the actual chart and map libraries.
type clientSink struct {
	client *Client

	mu         sync.Mutex
	openPopups map[string]struct{}
}

var (
	_ view.ListSink       = (*clientSink)(nil)
	_ view.ChartRenderer  = (*clientSink)(nil)
	_ view.MarkerRenderer = (*clientSink)(nil)
	_ view.DetailSink     = (*clientSink)(nil)
)

func newClientSink(c *Client) *clientSink {
	return &clientSink{
		client:     c,
		openPopups: make(map[string]struct{}),
	}
}

func (s *clientSink) emit(t MessageType, data any) {
	s.client.enqueue(Message{Type: t, Timestamp: time.Now(), Data: data})
}

// ListSink

func (s *clientSink) Clear(mode view.DisplayMode) {
	s.emit(MessageListClear, map[string]any{"mode": mode})
}

func (s *clientSink) AppendHeader(h view.GroupHeader) {
	s.emit(MessageListHeader, HeaderData{Header: h})
}

func (s *clientSink) AppendCard(c view.CardView) {
	s.emit(MessageListCard, c)
}

func (s *clientSink) SetCardClass(id, class string) {
	s.emit(MessageCardPatch, CardPatchData{ID: id, Field: "class", Value: class})
}

func (s *clientSink) SetStatus(id, status string) {
	s.emit(MessageCardPatch, CardPatchData{ID: id, Field: "status", Value: status})
}

func (s *clientSink) SetLatency(id, text string) {
	s.emit(MessageCardPatch, CardPatchData{ID: id, Field: "latency", Value: text})
}

func (s *clientSink) SetTelemetry(id, text string) {
	s.emit(MessageCardPatch, CardPatchData{ID: id, Field: "telemetry", Value: text})
}

func (s *clientSink) SetBadges(id string, badges []string) {
	s.emit(MessageCardPatch, CardPatchData{ID: id, Field: "badges", Badges: badges})
}

func (s *clientSink) SetPagination(page view.Page) {
	s.emit(MessagePagination, page)
}

// ChartRenderer

func (s *clientSink) Create(id string, series view.ChartSeries) {
	s.emit(MessageChartCreate, ChartData{ID: id, Series: series})
}

func (s *clientSink) Update(id string, series view.ChartSeries) {
	s.emit(MessageChartUpdate, ChartData{ID: id, Series: series})
}

func (s *clientSink) Destroy(id string) {
	s.emit(MessageChartDestroy, ChartData{ID: id})
}

// MarkerRenderer

func (s *clientSink) Upsert(id string, m view.MarkerView) {
	s.emit(MessageMarkerUpsert, MarkerData{ID: id, Marker: m})
}

func (s *clientSink) Remove(id string) {
	s.emit(MessageMarkerRemove, MarkerData{ID: id})
	s.mu.Lock()
	delete(s.openPopups, id)
	s.mu.Unlock()
}

// PopupOpen reflects the popup state the client last reported.
func (s *clientSink) PopupOpen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.openPopups[id]
	return ok
}

func (s *clientSink) setPopupOpen(id string, open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if open {
		s.openPopups[id] = struct{}{}
	} else {
		delete(s.openPopups, id)
	}
}

func (s *clientSink) DrawLine(from, to view.LatLng, style view.LineStyle) {
	s.emit(MessageLineDraw, LineData{From: from, To: to, Style: style})
}

func (s *clientSink) ClearLines() {
	s.emit(MessageLinesClear, nil)
}

func (s *clientSink) PlaceCandidate(p view.LatLng) {
	s.emit(MessageCandidatePlace, p)
}

func (s *clientSink) RemoveCandidate() {
	s.emit(MessageCandidateRemove, nil)
}

// DetailSink

func (s *clientSink) ShowDetailChart(id string, metric view.Metric, series view.DetailSeries) {
	s.emit(MessageDetailChart, DetailChartData{ID: id, Metric: metric, Series: series})
}

func (s *clientSink) ShowDetailLog(id string, rows []view.LogRow) {
	s.emit(MessageDetailLog, DetailLogData{ID: id, Rows: rows})
}

func (s *clientSink) SetDetailLoading(loading bool) {
	s.emit(MessageDetailLoading, map[string]bool{"loading": loading})
}
