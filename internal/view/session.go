package view

import (
	"context"
	"sync"

	"github.com/nodesight/nodesight/pkg/models"
)

// ThresholdSource provides the latest cached issue thresholds. The poll
// loop refreshes the cache before each snapshot fetch.
type ThresholdSource interface {
	Thresholds() models.Thresholds
}

// ViewSession is the per-client dashboard state: filter predicate, page,
// density, and the reconcilers driving that client's rendered list, map,
// and detail overlay. A session is driven from two directions, client
// commands and poll ticks, so all entry points hold the session lock.
type ViewSession struct {
	mu sync.Mutex

	store      *EntityStore
	thresholds ThresholdSource

	pred     Predicate
	page     int
	pageSize int

	list   *ListReconciler
	mapr   *MapReconciler
	detail *DetailViewer
}

// NewViewSession wires a fresh session against the shared snapshot store.
func NewViewSession(store *EntityStore, thresholds ThresholdSource, sink ListSink, charts ChartRenderer, markers MarkerRenderer, fetcher HistoryFetcher, detailSink DetailSink) *ViewSession {
	s := &ViewSession{
		store:      store,
		thresholds: thresholds,
		pred:       Predicate{Type: FilterAll, Province: FilterAll, City: FilterAll},
		page:       1,
		pageSize:   DefaultPageSize,
		list:       NewListReconciler(sink, charts),
		mapr:       NewMapReconciler(markers),
		detail:     NewDetailViewer(fetcher, detailSink, store),
	}
	// History fetches release the session lock while pending, so a slow
	// backend never stalls the poll-driven renders of this or any other
	// session.
	s.detail.locker = &s.mu
	return s
}

// SetFilters installs a new predicate and re-renders. Changing the province
// re-derives the dependent city options; a selected city no longer offered
// under the new province resets to the wildcard. The page resets to 1.
func (s *ViewSession) SetFilters(p Predicate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.Province != s.pred.Province && !wildcard(p.City) {
		found := false
		for _, c := range CityOptions(s.store.Nodes(), p.Province) {
			if c == p.City {
				found = true
				break
			}
		}
		if !found {
			p.City = FilterAll
		}
	}

	s.pred = p
	s.page = 1
	s.render()
}

// SetPage moves to the requested page (clamped during render).
func (s *ViewSession) SetPage(page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = page
	s.render()
}

// SetDensity changes items-per-page and resets to page 1.
func (s *ViewSession) SetDensity(pageSize int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = pageSize
	s.page = 1
	s.render()
}

// SetReferencePoint installs the central site on the session's map.
func (s *ViewSession) SetReferencePoint(ref *models.ReferencePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapr.SetReferencePoint(ref)
}

// PlaceCandidate drops the transient add marker at a clicked position.
func (s *ViewSession) PlaceCandidate(p LatLng) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapr.PlaceCandidate(p)
}

// ClearCandidate removes the transient add marker.
func (s *ViewSession) ClearCandidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mapr.ClearCandidate()
}

// OpenDetail targets the detail overlay at a node.
func (s *ViewSession) OpenDetail(ctx context.Context, id string, metric Metric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detail.Open(ctx, id, metric)
}

// SetDetailMetric switches the overlay presentation.
func (s *ViewSession) SetDetailMetric(ctx context.Context, metric Metric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detail.SetMetric(ctx, metric)
}

// SetDetailRange switches the overlay time window.
func (s *ViewSession) SetDetailRange(ctx context.Context, minutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detail.SetRange(ctx, minutes)
}

// CloseDetail deactivates the overlay.
func (s *ViewSession) CloseDetail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detail.Close()
}

// OnSnapshot re-renders the session after the poll loop replaced the
// snapshot, and patches an open detail overlay in place.
func (s *ViewSession) OnSnapshot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.render()
	s.detail.Tick()
}

// Render performs a full derive-and-reconcile pass with the current state.
func (s *ViewSession) Render() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.render()
}

// render runs store read -> filter -> paginate -> list reconcile -> map
// reconcile, in that order. Callers hold s.mu.
func (s *ViewSession) render() {
	nodes := s.store.Nodes()
	th := s.thresholds.Thresholds()

	filtered := Filter(nodes, s.pred, th)
	page := Paginate(filtered, s.page, s.pageSize)
	s.page = page.Number

	s.list.Apply(page, th, DisplayModeFor(s.pageSize))

	// The map always shows the full snapshot, independent of list filters.
	s.mapr.Apply(nodes, th)
}
