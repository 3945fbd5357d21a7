package view

import (
	"context"
	"errors"
	"sync"

	"github.com/nodesight/nodesight/pkg/models"
)

// Metric selects the detail viewer presentation. Chart metrics and the
// status log are mutually exclusive.
type Metric string

const (
	MetricLatency   Metric = "latency"
	MetricBandwidth Metric = "bandwidth"
	MetricStatus    Metric = "status"
)

// DefaultRangeMinutes is the time range selected when the viewer opens.
const DefaultRangeMinutes = 5

// ErrFetchInFlight is returned when a refresh is requested while a history
// fetch is still pending. Selector controls are disabled for the duration,
// so overlapping requests against the same viewer state cannot occur.
var ErrFetchInFlight = errors.New("history fetch already in flight")

// HistoryFetcher retrieves the bounded time series for one node.
type HistoryFetcher interface {
	History(ctx context.Context, id string, minutes int) ([]models.Sample, error)
}

// DetailSeries is the chart presentation of a detail fetch. Traffic gets a
// dual series; latency a single one.
type DetailSeries struct {
	Labels  []string   `json:"labels"`
	Latency []*float64 `json:"latency,omitempty"`
	Rx      []*float64 `json:"rx,omitempty"`
	Tx      []*float64 `json:"tx,omitempty"`
}

// LogRow is one status transition in the collapsed history log.
type LogRow struct {
	Time   string `json:"time"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// DetailSink receives the viewer's presentation updates.
type DetailSink interface {
	ShowDetailChart(id string, metric Metric, series DetailSeries)
	ShowDetailLog(id string, rows []LogRow)
	SetDetailLoading(loading bool)
}

// DetailViewer drives the single-node detail overlay: an on-demand history
// fetch rendered as either a time-series chart or a collapsed status log.
type DetailViewer struct {
	fetcher HistoryFetcher
	sink    DetailSink
	store   *EntityStore

	// locker, when set, is the owning session's lock. It is released for
	// the duration of the blocking history fetch so poll-tick renders are
	// never held up behind a slow backend; the in-flight flag and the
	// stale-response guard cover the unlocked window.
	locker sync.Locker

	id       string
	metric   Metric
	minutes  int
	inFlight bool
}

// NewDetailViewer returns a closed viewer.
func NewDetailViewer(fetcher HistoryFetcher, sink DetailSink, store *EntityStore) *DetailViewer {
	return &DetailViewer{fetcher: fetcher, sink: sink, store: store}
}

// Open targets the viewer at a node and fetches its history. The bandwidth
// metric is only available for telemetry-enabled nodes; it falls back to
// latency otherwise.
func (v *DetailViewer) Open(ctx context.Context, id string, metric Metric) error {
	n, ok := v.store.Get(id)
	if !ok {
		return errors.New("unknown node: " + id)
	}
	if metric == MetricBandwidth && !n.UseSNMP {
		metric = MetricLatency
	}
	if metric == "" {
		metric = MetricLatency
	}

	v.id = id
	v.metric = metric
	if v.minutes == 0 {
		v.minutes = DefaultRangeMinutes
	}
	return v.Refresh(ctx)
}

// SetMetric switches the presentation and refetches.
func (v *DetailViewer) SetMetric(ctx context.Context, metric Metric) error {
	if v.id == "" {
		return nil
	}
	if n, ok := v.store.Get(v.id); ok && metric == MetricBandwidth && !n.UseSNMP {
		metric = MetricLatency
	}
	v.metric = metric
	return v.Refresh(ctx)
}

// SetRange switches the fetched time window and refetches.
func (v *DetailViewer) SetRange(ctx context.Context, minutes int) error {
	if v.id == "" {
		return nil
	}
	if minutes < 1 {
		minutes = DefaultRangeMinutes
	}
	v.minutes = minutes
	return v.Refresh(ctx)
}

// Close deactivates the viewer. Any in-flight fetch for the previous target
// is discarded by the stale-response guard on return.
func (v *DetailViewer) Close() {
	v.id = ""
	v.inFlight = false
}

// IsOpen reports whether the viewer currently targets a node.
func (v *DetailViewer) IsOpen() bool {
	return v.id != ""
}

// Refresh fetches the history for the current target and renders it.
// Controls stay disabled until the fetch completes or fails.
func (v *DetailViewer) Refresh(ctx context.Context) error {
	if v.id == "" {
		return nil
	}
	if v.inFlight {
		return ErrFetchInFlight
	}

	target := v.id
	metric := v.metric
	minutes := v.minutes

	v.inFlight = true
	v.sink.SetDetailLoading(true)
	defer func() {
		v.inFlight = false
		v.sink.SetDetailLoading(false)
	}()

	samples, err := v.fetchHistory(ctx, target, minutes)
	if err != nil {
		return err
	}

	// The viewer may have been closed or retargeted while the fetch was
	// pending; discard the stale response.
	if v.id != target {
		return nil
	}

	if metric == MetricStatus {
		v.sink.ShowDetailLog(target, v.buildLog(target, samples))
		return nil
	}
	v.sink.ShowDetailChart(target, metric, buildDetailSeries(samples, metric, minutes))
	return nil
}

// fetchHistory performs the blocking backend call, without the session
// lock when one is bound.
func (v *DetailViewer) fetchHistory(ctx context.Context, id string, minutes int) ([]models.Sample, error) {
	if v.locker == nil {
		return v.fetcher.History(ctx, id, minutes)
	}
	v.locker.Unlock()
	defer v.locker.Lock()
	return v.fetcher.History(ctx, id, minutes)
}

// Tick patches the open viewer's chart from a refreshed snapshot. The
// status log is fetch-driven only and is left alone, as is a chart fetched
// for a range longer than the snapshot's short rolling window.
func (v *DetailViewer) Tick() {
	if v.id == "" || v.inFlight || v.metric == MetricStatus {
		return
	}
	if v.minutes > DefaultRangeMinutes {
		return
	}
	n, ok := v.store.Get(v.id)
	if !ok {
		return
	}
	v.sink.ShowDetailChart(v.id, v.metric, buildDetailSeries(n.History, v.metric, v.minutes))
}

// buildLog collapses consecutive samples with identical status into one row
// per transition, newest first.
func (v *DetailViewer) buildLog(id string, samples []models.Sample) []LogRow {
	transitions := CollapseStatusLog(samples)

	useSNMP := false
	if n, ok := v.store.Get(id); ok {
		useSNMP = n.UseSNMP
	}

	rows := make([]LogRow, len(transitions))
	for i, s := range transitions {
		rows[i] = LogRow{
			Time:   s.Time,
			Status: string(s.Status),
			Detail: logDetail(s, useSNMP),
		}
	}
	return rows
}

// CollapseStatusLog reduces a raw sample sequence to one entry per status
// transition, ordered newest first.
func CollapseStatusLog(samples []models.Sample) []models.Sample {
	var distinct []models.Sample
	var last models.NodeStatus
	for i, s := range samples {
		if i == 0 || s.Status != last {
			distinct = append(distinct, s)
			last = s.Status
		}
	}
	// Reverse to newest-first.
	for i, j := 0, len(distinct)-1; i < j; i, j = i+1, j-1 {
		distinct[i], distinct[j] = distinct[j], distinct[i]
	}
	return distinct
}

func logDetail(s models.Sample, useSNMP bool) string {
	if s.Status == models.StatusOffline {
		return "Unreachable"
	}
	lat := "-"
	if s.Latency != nil {
		lat = formatFloat(s.Latency) + " ms"
	}
	if !useSNMP {
		return "Latency: " + lat
	}
	return "Latency: " + lat + " | DL: " + formatFloat(s.Rx) + "K / UL: " + formatFloat(s.Tx) + "K"
}

// buildDetailSeries converts fetched samples into the chart series for the
// selected metric. Labels keep the full timestamp for ranges longer than a
// day, the clock time otherwise.
func buildDetailSeries(samples []models.Sample, metric Metric, minutes int) DetailSeries {
	s := DetailSeries{Labels: make([]string, len(samples))}
	fullLabels := minutes > 24*60

	for i, h := range samples {
		if fullLabels {
			s.Labels[i] = h.Time
		} else {
			s.Labels[i] = h.ClockTime()
		}
	}

	switch metric {
	case MetricBandwidth:
		s.Rx = make([]*float64, len(samples))
		s.Tx = make([]*float64, len(samples))
		for i, h := range samples {
			if h.Status != models.StatusOffline {
				s.Rx[i] = h.Rx
				s.Tx[i] = h.Tx
			}
		}
	default:
		s.Latency = make([]*float64, len(samples))
		for i, h := range samples {
			if h.Status != models.StatusOffline {
				s.Latency[i] = h.Latency
			}
		}
	}
	return s
}
