// Package analytics polls the streaming backend and turns live mount
// statistics into stored listener samples.
package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"radiowave/internal/icecast"
	"radiowave/internal/models"
)

// DefaultInterval is the collection cadence used when none is configured.
const DefaultInterval = 5 * time.Minute

// Repository is the slice of the datastore the collector needs.
type Repository interface {
	ListRunningStreams() []models.Stream
	AppendAnalyticsRecord(streamID string, listeners int, bandwidth float64, currentSong string) (models.AnalyticsRecord, error)
}

// LiveCache receives the freshest per-stream figures each tick. Implementations
// must tolerate being called concurrently with readers.
type LiveCache interface {
	StoreLiveStats(ctx context.Context, streamID string, listeners int, bandwidth float64, currentSong string) error
}

// TickObserver is notified after every collection pass.
type TickObserver interface {
	RecordCollectorTick(sampled, skipped int)
	RecordCollectorFailure()
}

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.ticker.C }
func (t timeTicker) Stop()               { t.ticker.Stop() }

type tickerFactory func(time.Duration) ticker

// Option configures a Collector.
type Option func(*Collector)

// WithInterval sets the collection cadence.
func WithInterval(interval time.Duration) Option {
	return func(c *Collector) {
		if interval > 0 {
			c.interval = interval
		}
	}
}

// WithLiveCache publishes each tick's figures to the supplied cache.
func WithLiveCache(cache LiveCache) Option {
	return func(c *Collector) {
		c.cache = cache
	}
}

// WithObserver registers a tick observer, typically the metrics recorder.
func WithObserver(observer TickObserver) Option {
	return func(c *Collector) {
		c.observer = observer
	}
}

func withTickerFactory(factory tickerFactory) Option {
	return func(c *Collector) {
		c.newTicker = factory
	}
}

// Collector samples the backend on a fixed cadence and appends one analytics
// record per running stream whose mount appears in the snapshot.
type Collector struct {
	repo      Repository
	backend   icecast.Controller
	logger    *slog.Logger
	interval  time.Duration
	cache     LiveCache
	observer  TickObserver
	newTicker tickerFactory
}

// NewCollector wires a collector against the repository and backend.
func NewCollector(repo Repository, backend icecast.Controller, logger *slog.Logger, opts ...Option) *Collector {
	collector := &Collector{
		repo:     repo,
		backend:  backend,
		logger:   logger,
		interval: DefaultInterval,
		newTicker: func(d time.Duration) ticker {
			return timeTicker{ticker: time.NewTicker(d)}
		},
	}
	if collector.backend == nil {
		collector.backend = icecast.NoopController{}
	}
	if collector.logger == nil {
		collector.logger = slog.Default()
	}
	for _, opt := range opts {
		if opt != nil {
			opt(collector)
		}
	}
	return collector
}

// RunOnce performs a single collection pass: one stats snapshot shared across
// every running stream. Streams whose mount is absent from the snapshot are
// skipped; per-stream persistence failures are logged and do not abort the
// pass. It returns the number of samples written.
func (c *Collector) RunOnce(ctx context.Context) int {
	streams := c.repo.ListRunningStreams()
	if len(streams) == 0 {
		if c.observer != nil {
			c.observer.RecordCollectorTick(0, 0)
		}
		return 0
	}

	snapshot := c.backend.Stats(ctx)

	sampled := 0
	skipped := 0
	for _, stream := range streams {
		entry, ok := snapshot[stream.MountPoint]
		if !ok {
			skipped++
			continue
		}
		bandwidth := float64(stream.Bitrate*entry.Listeners) / 8
		if _, err := c.repo.AppendAnalyticsRecord(stream.ID, entry.Listeners, bandwidth, entry.CurrentTitle); err != nil {
			c.logger.Warn("analytics sample not stored",
				"streamId", stream.ID,
				"mount", stream.MountPoint,
				"error", err)
			if c.observer != nil {
				c.observer.RecordCollectorFailure()
			}
			continue
		}
		sampled++
		if c.cache != nil {
			if err := c.cache.StoreLiveStats(ctx, stream.ID, entry.Listeners, bandwidth, entry.CurrentTitle); err != nil {
				c.logger.Warn("live stats cache update failed", "streamId", stream.ID, "error", err)
			}
		}
	}

	if c.observer != nil {
		c.observer.RecordCollectorTick(sampled, skipped)
	}
	return sampled
}

// Start launches the background collection loop and returns a stop function
// that blocks until the loop has exited.
func (c *Collector) Start(ctx context.Context) func() {
	workerCtx, cancel := context.WithCancel(ctx)
	tick := c.newTicker(c.interval)
	done := make(chan struct{})
	go func() {
		defer func() {
			tick.Stop()
			close(done)
		}()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-tick.C():
				c.RunOnce(workerCtx)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
