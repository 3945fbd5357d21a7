package view

import "github.com/nodesight/nodesight/pkg/models"

// ChartRenderer is the narrow contract to the charting capability. Chart
// instances are owned by the reconciler that created them and must be
// destroyed before their backing slot is removed or repurposed.
type ChartRenderer interface {
	Create(id string, series ChartSeries)
	Update(id string, series ChartSeries)
	Destroy(id string)
}

// ListSink receives the UI operations the list reconciler decides on. The
// patch path calls the Set methods only for sub-elements whose derived
// content actually changed.
type ListSink interface {
	Clear(mode DisplayMode)
	AppendHeader(h GroupHeader)
	AppendCard(c CardView)
	SetCardClass(id, class string)
	SetStatus(id, status string)
	SetLatency(id, text string)
	SetTelemetry(id, text string)
	SetBadges(id string, badges []string)
	SetPagination(page Page)
}

// ListReconciler drives the rendered node list. On every apply it compares
// the new ordered page identifiers against the currently rendered ones and
// chooses between an in-place patch and a full rebuild, managing chart
// lifecycle accordingly.
type ListReconciler struct {
	sink   ListSink
	charts ChartRenderer

	rendered []CardView // in rendered order
	hasChart map[string]bool
	mode     DisplayMode
}

// NewListReconciler returns a reconciler with nothing rendered yet.
func NewListReconciler(sink ListSink, charts ChartRenderer) *ListReconciler {
	return &ListReconciler{
		sink:     sink,
		charts:   charts,
		hasChart: make(map[string]bool),
		mode:     DisplayModeFor(DefaultPageSize),
	}
}

// Apply reconciles the rendered list with the given page. Identical identifier
// lists take the patch path; any membership or order change, and any display
// mode change, forces a full rebuild.
func (r *ListReconciler) Apply(page Page, th models.Thresholds, mode DisplayMode) {
	r.sink.SetPagination(page)

	if mode == r.mode && r.sameStructure(page.Items) {
		r.patch(page.Items, th, mode)
		return
	}
	r.rebuild(page.Items, th, mode)
}

// sameStructure reports whether the page items match the rendered cards in
// length and identifier at every position.
func (r *ListReconciler) sameStructure(items []models.Node) bool {
	if len(items) != len(r.rendered) {
		return false
	}
	for i, n := range items {
		if n.ID != r.rendered[i].ID {
			return false
		}
	}
	return true
}

// patch updates rendered cards in place. Sub-elements are rewritten only
// when their derived content changed, and charts get an in-place data
// update instead of a destroy/recreate cycle.
func (r *ListReconciler) patch(items []models.Node, th models.Thresholds, mode DisplayMode) {
	for i, n := range items {
		old := r.rendered[i]
		next := RenderCard(n, th, mode)

		if next.CardClass != old.CardClass {
			r.sink.SetCardClass(n.ID, next.CardClass)
		}
		if next.Status != old.Status {
			r.sink.SetStatus(n.ID, next.Status)
		}
		if next.Latency != old.Latency {
			r.sink.SetLatency(n.ID, next.Latency)
		}
		if next.Telemetry != old.Telemetry {
			r.sink.SetTelemetry(n.ID, next.Telemetry)
		}
		if !badgesEqual(next.Badges, old.Badges) {
			r.sink.SetBadges(n.ID, next.Badges)
		}
		r.rendered[i] = next

		if mode.ChartsEnabled() {
			series := CardSeries(n, mode)
			if r.hasChart[n.ID] {
				r.charts.Update(n.ID, series)
			} else {
				r.charts.Create(n.ID, series)
				r.hasChart[n.ID] = true
			}
		}
	}
}

// rebuild destroys every chart belonging to the previously rendered set,
// clears the container, and regenerates all group headers and cards in the
// new order.
func (r *ListReconciler) rebuild(items []models.Node, th models.Thresholds, mode DisplayMode) {
	for id := range r.hasChart {
		r.charts.Destroy(id)
		delete(r.hasChart, id)
	}
	r.sink.Clear(mode)
	r.mode = mode
	r.rendered = r.rendered[:0]

	var lastGroup *GroupHeader
	for _, n := range items {
		group := GroupKeyFor(n)
		if lastGroup == nil || group != *lastGroup {
			r.sink.AppendHeader(group)
			g := group
			lastGroup = &g
		}

		card := RenderCard(n, th, mode)
		r.sink.AppendCard(card)
		r.rendered = append(r.rendered, card)

		if mode.ChartsEnabled() {
			r.charts.Create(n.ID, CardSeries(n, mode))
			r.hasChart[n.ID] = true
		}
	}
}

// RenderedIDs returns the identifiers currently rendered, in order.
func (r *ListReconciler) RenderedIDs() []string {
	ids := make([]string, len(r.rendered))
	for i, c := range r.rendered {
		ids[i] = c.ID
	}
	return ids
}

func badgesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
