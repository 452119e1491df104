// Package app wires configured event sources into one tree of subscription
// collectors and republishes everything they deliver on an in-process bus.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/benbjohnson/clock"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/disposer/internal/config"
	"github.com/JakeFAU/disposer/pkg/dispose"
	"github.com/JakeFAU/disposer/pkg/emitter"
	"github.com/JakeFAU/disposer/pkg/metrics"
	"github.com/JakeFAU/disposer/pkg/sources/pgnotify"
	"github.com/JakeFAU/disposer/pkg/sources/promreg"
)

// Bus event names, one per source kind.
const (
	EventPubSub    = "pubsub"
	EventPostgres  = "postgres"
	EventCrawl     = "crawl"
	EventHeadless  = "headless"
	EventHeartbeat = "heartbeat"
)

var eventNames = []string{EventPubSub, EventPostgres, EventCrawl, EventHeadless, EventHeartbeat}

// Event is the payload emitted on the bus for every delivery.
type Event struct {
	Source  string    `json:"source"`
	Key     string    `json:"key"`
	Payload string    `json:"payload"`
	At      time.Time `json:"at"`
}

// PGConn is a dedicated PostgreSQL connection used for LISTEN.
type PGConn interface {
	pgnotify.Conn
	Close(ctx context.Context) error
}

// Sources are the constructors App uses to reach external systems.
type Sources struct {
	PubSub   func(ctx context.Context, projectID string) (*pubsub.Client, error)
	Postgres func(ctx context.Context, dsn string) (PGConn, error)
	Storage  func(ctx context.Context) (*storage.Client, error)
}

// DefaultSources dials the real services.
func DefaultSources() Sources {
	return Sources{
		PubSub: func(ctx context.Context, projectID string) (*pubsub.Client, error) {
			return pubsub.NewClient(ctx, projectID)
		},
		Postgres: func(ctx context.Context, dsn string) (PGConn, error) {
			conn, err := pgx.Connect(ctx, dsn)
			if err != nil {
				return nil, err
			}
			return conn, nil
		},
		Storage: func(ctx context.Context) (*storage.Client, error) {
			return storage.NewClient(ctx)
		},
	}
}

// Option customizes an App.
type Option func(*App)

// WithSources replaces the external constructors.
func WithSources(s Sources) Option {
	return func(a *App) {
		a.sources = s
	}
}

// WithClock sets the clock behind every timer the App schedules.
func WithClock(clk clock.Clock) Option {
	return func(a *App) {
		if clk != nil {
			a.clock = clk
		}
	}
}

// App owns the root collector. Each source kind gets a child collector whose
// Cleanup sits on the root, so flushing the root tears everything down and a
// child can be flushed on its own.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	clock   clock.Clock
	sources Sources
	bus     *emitter.Emitter
	events  *prometheus.CounterVec
	obs     *metrics.Observer

	root *dispose.Collector

	mu       sync.RWMutex
	children map[string]*dispose.Collector
	order    []*dispose.Collector
}

// New builds the collector tree and attaches the bus listeners. Sources are
// subscribed by Start.
func New(cfg config.Config, logger *zap.Logger, reg prometheus.Registerer, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &App{
		cfg:      cfg,
		logger:   logger,
		clock:    clock.New(),
		sources:  DefaultSources(),
		bus:      emitter.New(),
		children: make(map[string]*dispose.Collector),
	}
	for _, opt := range opts {
		opt(a)
	}

	obs, err := metrics.NewObserver(reg)
	if err != nil {
		return nil, fmt.Errorf("register dispose metrics: %w", err)
	}
	a.obs = obs

	a.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eventtap_events_total",
		Help: "Events delivered on the bus, partitioned by source.",
	}, []string{"source"})
	unregisterEvents, err := promreg.Register(reg, a.events)
	if err != nil {
		obs.Unregister()()
		return nil, fmt.Errorf("register event metrics: %w", err)
	}

	a.root = a.newCollector("root")
	a.register(a.root)
	for _, name := range []string{EventPubSub, EventPostgres, "gcs", EventCrawl, EventHeadless, EventHeartbeat, "bus"} {
		child := a.newCollector(name)
		a.register(child)
		a.children[name] = child
		a.root.Push(child.Cleanup())
	}

	bus := a.children["bus"]
	log := emitter.NewFunc(a.onEvent)
	for _, name := range eventNames {
		dispose.SubscribeEvent(bus, a.bus, name, log)
	}

	a.root.Push(unregisterEvents)
	a.root.Push(obs.Unregister())
	return a, nil
}

func (a *App) newCollector(name string) *dispose.Collector {
	return dispose.NewCollector(
		dispose.WithName(name),
		dispose.WithLogger(a.logger),
		dispose.WithObserver(a.obs),
		dispose.WithClock(a.clock),
	)
}

func (a *App) register(c *dispose.Collector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.order = append(a.order, c)
}

// Start subscribes every configured source. Failures are logged and leave
// the corresponding subscription out; Start itself does not fail.
func (a *App) Start(ctx context.Context) {
	a.startPubSub(ctx)
	a.startPostgres(ctx)
	a.startGCS(ctx)
	a.startCrawl()
	a.startHeadless(ctx)
	a.startHeartbeat()
	a.logger.Info("sources started", zap.Int("pending", a.root.Len()))
}

// Close flushes the root collector. It can be called more than once.
func (a *App) Close() {
	a.logger.Info("flushing subscriptions")
	a.root.FlushAll()
}

// Bus returns the in-process event bus.
func (a *App) Bus() *emitter.Emitter {
	return a.bus
}

// Root returns the collector that owns every other collector.
func (a *App) Root() *dispose.Collector {
	return a.root
}

// Child returns the collector for a source kind.
func (a *App) Child(name string) (*dispose.Collector, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	c, ok := a.children[name]
	return c, ok
}

// Collectors lists the root followed by its children in creation order.
func (a *App) Collectors() []*dispose.Collector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*dispose.Collector, len(a.order))
	copy(out, a.order)
	return out
}

func (a *App) emit(source, key, payload string) {
	a.bus.Emit(source, Event{Source: source, Key: key, Payload: payload, At: a.clock.Now()})
}

func (a *App) onEvent(name string, payload any) {
	a.events.WithLabelValues(name).Inc()
	ev, ok := payload.(Event)
	if !ok {
		a.logger.Warn("unexpected bus payload", zap.String("event", name), zap.Any("payload", payload))
		return
	}
	a.logger.Info("event received",
		zap.String("source", ev.Source),
		zap.String("key", ev.Key),
		zap.Int("bytes", len(ev.Payload)),
	)
}

func (a *App) startHeartbeat() {
	interval := a.cfg.HeartbeatInterval()
	if interval <= 0 {
		return
	}
	var beats int
	a.children[EventHeartbeat].Interval(func() {
		beats++
		a.emit(EventHeartbeat, "beat", fmt.Sprint(beats))
	}, interval)
}
