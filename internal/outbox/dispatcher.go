package outbox

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agendaplus/practice-backend/internal/metrics"
	"github.com/agendaplus/practice-backend/internal/plugin"
)

// Dispatcher drains the outbox and fans events out to observer plugins on a
// fixed worker set. Events are routed to a worker by appointment ID, so
// deliveries for one appointment stay in append order while different
// appointments proceed in parallel. Observer failures are logged and
// isolated; they never affect the committed transition.
type Dispatcher struct {
	store    Store
	registry *plugin.Registry
	interval time.Duration
	batch    int
	log      zerolog.Logger

	shards []chan plugin.Event
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
}

type DispatcherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	Workers      int
}

func NewDispatcher(store Store, registry *plugin.Registry, cfg DispatcherConfig, log zerolog.Logger) *Dispatcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	shards := make([]chan plugin.Event, cfg.Workers)
	for i := range shards {
		shards[i] = make(chan plugin.Event, cfg.BatchSize)
	}

	return &Dispatcher{
		store:    store,
		registry: registry,
		interval: cfg.PollInterval,
		batch:    cfg.BatchSize,
		log:      log.With().Str("component", "outbox_dispatcher").Logger(),
		shards:   shards,
		inflight: make(map[string]struct{}),
	}
}

// Run polls the store until ctx is cancelled, then drains the workers.
func (d *Dispatcher) Run(ctx context.Context) {
	for i := range d.shards {
		d.wg.Add(1)
		go d.worker(d.shards[i])
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for _, ch := range d.shards {
				close(ch)
			}
			d.wg.Wait()
			return
		case <-ticker.C:
			if n := d.Poll(ctx); n > 0 {
				d.log.Debug().Int("events", n).Msg("enqueued outbox events")
			}
		}
	}
}

// Poll enqueues pending events onto the worker shards and returns how many
// were picked up. Events already handed to a worker are skipped until they
// are marked delivered.
func (d *Dispatcher) Poll(ctx context.Context) int {
	events, err := d.store.ListPending(ctx, d.batch)
	if err != nil {
		d.log.Error().Err(err).Msg("list pending outbox events")
		return 0
	}

	n := 0
	for _, ev := range events {
		d.mu.Lock()
		if _, busy := d.inflight[ev.ID]; busy {
			d.mu.Unlock()
			continue
		}
		d.inflight[ev.ID] = struct{}{}
		d.mu.Unlock()

		d.shards[d.shard(ev.AppointmentID)] <- ev
		n++
	}
	return n
}

func (d *Dispatcher) shard(appointmentID string) int {
	h := fnv.New32a()
	h.Write([]byte(appointmentID))
	return int(h.Sum32() % uint32(len(d.shards)))
}

func (d *Dispatcher) worker(ch <-chan plugin.Event) {
	defer d.wg.Done()
	for ev := range ch {
		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev plugin.Event) {
	// Deliveries use their own context: a cancelled poll loop must not
	// abort an observer halfway through a side effect.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, o := range d.registry.Observers(ev.TenantID, ev.Type) {
		if err := o.Notify(ctx, ev); err != nil {
			metrics.ObserveObserverFailure(o.PluginID())
			d.log.Error().Err(err).
				Str("plugin", o.PluginID()).
				Str("event", ev.ID).
				Str("appointment", ev.AppointmentID).
				Msg("observer failed")
		}
	}

	if err := d.store.MarkDelivered(ctx, ev.ID); err != nil {
		// Leaving the row pending means it will be redelivered; observers
		// must tolerate duplicates keyed by event ID.
		d.log.Error().Err(err).Str("event", ev.ID).Msg("mark delivered failed")
	}
	metrics.ObserveDelivery(string(ev.Type))

	d.mu.Lock()
	delete(d.inflight, ev.ID)
	d.mu.Unlock()
}
