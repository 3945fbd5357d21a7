// Package poll drives the fixed-interval refresh cycle: thresholds, then
// the full node snapshot, then downstream notification over the event bus.
package poll

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/nodesight/nodesight/internal/event"
	"github.com/nodesight/nodesight/pkg/models"
)

var (
	pollTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nodesight_poll_ticks_total",
			Help: "Poll cycles by outcome.",
		},
		[]string{"outcome"},
	)
	pollSnapshotNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nodesight_poll_snapshot_nodes",
			Help: "Node count in the most recent successful snapshot.",
		},
	)
)

// Backend is the subset of the monitoring backend the poller consumes.
type Backend interface {
	Status(ctx context.Context) ([]models.Node, error)
	Settings(ctx context.Context) (models.Thresholds, error)
	Alerts(ctx context.Context) (models.AlertFeed, error)
}

// SnapshotStore receives the replaced snapshot each successful tick.
type SnapshotStore interface {
	ReplaceSnapshot(nodes []models.Node)
}

// Default thresholds used until the first successful settings fetch.
const (
	defaultLatencyThreshold   = 100
	defaultBandwidthThreshold = 10000
)

// Poller fetches the snapshot on a fixed interval. A failed fetch logs and
// skips that tick; the stale view persists until the next successful one.
// The poller also caches the issue thresholds, so it doubles as the
// threshold source for view sessions.
type Poller struct {
	backend  Backend
	store    SnapshotStore
	bus      *event.Bus
	interval time.Duration
	logger   *zap.Logger

	mu         sync.RWMutex
	thresholds models.Thresholds

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a poller. The interval also bounds each tick's fetch time.
func New(backend Backend, store SnapshotStore, bus *event.Bus, interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		backend:  backend,
		store:    store,
		bus:      bus,
		interval: interval,
		logger:   logger,
		thresholds: models.Thresholds{
			LatencyThreshold:   defaultLatencyThreshold,
			BandwidthThreshold: defaultBandwidthThreshold,
		},
	}
}

// Thresholds returns the latest cached issue thresholds.
func (p *Poller) Thresholds() models.Thresholds {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.thresholds
}

// Start begins the polling loop. Returns immediately; the loop runs until
// Stop is called or the context is cancelled.
func (p *Poller) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		// Run immediately on start, then on each tick.
		p.tick()

		for {
			select {
			case <-p.ctx.Done():
				return
			case <-ticker.C:
				p.tick()
			}
		}
	}()
}

// Stop signals the poller to stop and waits for completion.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// tick runs one poll cycle: refresh thresholds, fetch the snapshot, replace
// the store, then publish. A settings failure keeps the previous cached
// thresholds; a snapshot failure skips the whole update.
func (p *Poller) tick() {
	ctx, cancel := context.WithTimeout(p.ctx, p.interval)
	defer cancel()

	if th, err := p.backend.Settings(ctx); err != nil {
		p.logger.Warn("poll: settings refresh failed, keeping cached thresholds", zap.Error(err))
	} else {
		p.mu.Lock()
		p.thresholds = th
		p.mu.Unlock()
	}

	nodes, err := p.backend.Status(ctx)
	if err != nil {
		pollTicksTotal.WithLabelValues("error").Inc()
		p.logger.Warn("poll: snapshot fetch failed, skipping tick", zap.Error(err))
		return
	}

	p.store.ReplaceSnapshot(nodes)
	pollTicksTotal.WithLabelValues("ok").Inc()
	pollSnapshotNodes.Set(float64(len(nodes)))

	p.bus.Publish(ctx, event.Event{
		Topic:   event.TopicSnapshotReplaced,
		Source:  "poll",
		Time:    time.Now(),
		Payload: len(nodes),
	})

	p.publishAlerts(ctx)
}

// publishAlerts refreshes the notification feed. Failures are logged and
// skipped like snapshot failures; the feed is advisory.
func (p *Poller) publishAlerts(ctx context.Context) {
	feed, err := p.backend.Alerts(ctx)
	if err != nil {
		p.logger.Debug("poll: alerts fetch failed", zap.Error(err))
		return
	}
	p.bus.Publish(ctx, event.Event{
		Topic:   event.TopicAlertsUpdated,
		Source:  "poll",
		Time:    time.Now(),
		Payload: feed,
	})
}
