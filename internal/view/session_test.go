package view

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/nodesight/nodesight/internal/testutil"
	"github.com/nodesight/nodesight/pkg/models"
)

type staticThresholds struct{ th models.Thresholds }

func (s staticThresholds) Thresholds() models.Thresholds { return s.th }

type sessionHarness struct {
	session *ViewSession
	sink    *fakeSink
	charts  *fakeCharts
	markers *fakeMarkers
	fetcher *fakeFetcher
	detail  *fakeDetailSink
}

func newSessionHarness(nodes ...models.Node) *sessionHarness {
	store := NewEntityStore()
	store.ReplaceSnapshot(nodes)

	h := &sessionHarness{
		sink:    &fakeSink{},
		charts:  newFakeCharts(),
		markers: newFakeMarkers(),
		fetcher: &fakeFetcher{},
		detail:  &fakeDetailSink{},
	}
	h.session = NewViewSession(
		store,
		staticThresholds{testThresholds},
		h.sink, h.charts, h.markers, h.fetcher, h.detail,
	)
	return h
}

func (h *sessionHarness) lastPage(t *testing.T) Page {
	t.Helper()
	if len(h.sink.pagination) == 0 {
		t.Fatal("no pagination emitted")
	}
	return h.sink.pagination[len(h.sink.pagination)-1]
}

func regionNodes() []models.Node {
	return []models.Node{
		testutil.NewNode("a", testutil.WithLocation("Jawa", "Bandung")),
		testutil.NewNode("b", testutil.WithLocation("Jawa", "Semarang")),
		testutil.NewNode("c", testutil.WithLocation("Bali", "Denpasar")),
	}
}

func TestSessionRenderDefaults(t *testing.T) {
	h := newSessionHarness(regionNodes()...)
	h.session.Render()

	if !reflect.DeepEqual(h.sink.cards, []string{"c", "a", "b"}) {
		t.Errorf("rendered cards = %v", h.sink.cards)
	}
	p := h.lastPage(t)
	if p.Number != 1 || p.TotalPages != 1 {
		t.Errorf("page = %d/%d", p.Number, p.TotalPages)
	}
}

func TestSessionCityResetsOnProvinceChange(t *testing.T) {
	h := newSessionHarness(regionNodes()...)

	h.session.SetFilters(Predicate{Type: FilterAll, Province: "Jawa", City: "Bandung"})
	h.session.SetFilters(Predicate{Type: FilterAll, Province: "Bali", City: "Bandung"})

	// Bandung is not a Bali city; the selection falls back to the wildcard
	// rather than silently filtering everything out.
	if got := ids(h.lastPage(t).Items); !reflect.DeepEqual(got, []string{"c"}) {
		t.Errorf("rendered after province change = %v, want [c]", got)
	}
}

func TestSessionCitySurvivesProvinceChangeWhenStillValid(t *testing.T) {
	nodes := append(regionNodes(),
		testutil.NewNode("d", testutil.WithLocation("Bali", "Bandung")))
	h := newSessionHarness(nodes...)

	h.session.SetFilters(Predicate{Type: FilterAll, Province: "Jawa", City: "Bandung"})
	h.session.SetFilters(Predicate{Type: FilterAll, Province: "Bali", City: "Bandung"})

	if got := ids(h.lastPage(t).Items); !reflect.DeepEqual(got, []string{"d"}) {
		t.Errorf("rendered = %v, want [d]", got)
	}
}

func TestSessionFilterChangeResetsPage(t *testing.T) {
	nodes := make([]models.Node, 20)
	for i := range nodes {
		nodes[i] = testutil.NewNode(fmt.Sprintf("node-%02d", i))
	}
	h := newSessionHarness(nodes...)

	h.session.SetPage(3)
	if h.lastPage(t).Number != 3 {
		t.Fatalf("page = %d, want 3", h.lastPage(t).Number)
	}

	h.session.SetFilters(Predicate{Type: FilterAll, Province: FilterAll, City: FilterAll, Search: "node"})
	if h.lastPage(t).Number != 1 {
		t.Errorf("page after filter change = %d, want 1", h.lastPage(t).Number)
	}
}

func TestSessionDensityChangeResetsPageAndMode(t *testing.T) {
	nodes := make([]models.Node, 20)
	for i := range nodes {
		nodes[i] = testutil.NewNode(fmt.Sprintf("node-%02d", i))
	}
	h := newSessionHarness(nodes...)

	h.session.SetPage(2)
	h.session.SetDensity(12)

	p := h.lastPage(t)
	if p.Number != 1 {
		t.Errorf("page after density change = %d, want 1", p.Number)
	}
	if len(p.Items) != 12 {
		t.Errorf("page size = %d, want 12", len(p.Items))
	}
	// Compact mode drops card charts.
	if len(h.charts.live) != 0 {
		t.Errorf("live charts in compact mode = %d", len(h.charts.live))
	}
}

func TestSessionPageClampPersists(t *testing.T) {
	h := newSessionHarness(regionNodes()...)

	h.session.SetPage(99)
	if h.lastPage(t).Number != 1 {
		t.Errorf("clamped page = %d, want 1", h.lastPage(t).Number)
	}

	// The clamped value sticks: the next render stays on the real page.
	h.session.OnSnapshot()
	if h.lastPage(t).Number != 1 {
		t.Errorf("page after snapshot = %d", h.lastPage(t).Number)
	}
}

func TestSessionMapIgnoresListFilters(t *testing.T) {
	nodes := []models.Node{
		testutil.NewNode("a", testutil.WithLocation("Jawa", "Bandung"), testutil.WithCoordinates(-6.9, 107.6)),
		testutil.NewNode("c", testutil.WithLocation("Bali", "Denpasar"), testutil.WithCoordinates(-8.7, 115.2)),
	}
	h := newSessionHarness(nodes...)

	h.session.SetFilters(Predicate{Type: FilterAll, Province: "Jawa", City: FilterAll})

	if got := ids(h.lastPage(t).Items); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("list = %v, want only Jawa", got)
	}
	if len(h.markers.upserts) != 2 {
		t.Errorf("markers = %d, want the full snapshot", len(h.markers.upserts))
	}
}

func TestSessionSnapshotNotBlockedByDetailFetch(t *testing.T) {
	h := newSessionHarness(regionNodes()...)

	fetching := make(chan struct{})
	release := make(chan struct{})
	h.fetcher.hook = func() {
		close(fetching)
		<-release
	}

	opened := make(chan error, 1)
	go func() {
		opened <- h.session.OpenDetail(context.Background(), "a", MetricLatency)
	}()
	<-fetching

	// A poll tick must render while the history fetch is still pending.
	rendered := make(chan struct{})
	go func() {
		h.session.OnSnapshot()
		close(rendered)
	}()
	select {
	case <-rendered:
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot render waited on the pending detail fetch")
	}

	close(release)
	if err := <-opened; err != nil {
		t.Fatalf("OpenDetail: %v", err)
	}
}

func TestSessionOnSnapshotTicksOpenDetail(t *testing.T) {
	h := newSessionHarness(testutil.NewNode("a", testutil.WithHistory(
		testutil.Sample("2026-01-15 10:00:00", models.StatusOnline, 10),
	)))

	if err := h.session.OpenDetail(context.Background(), "a", MetricLatency); err != nil {
		t.Fatalf("OpenDetail: %v", err)
	}
	before := len(h.detail.charts)

	h.session.OnSnapshot()

	if len(h.detail.charts) != before+1 {
		t.Error("snapshot did not patch the open detail chart")
	}
}
