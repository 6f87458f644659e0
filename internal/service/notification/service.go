package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/timecard-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/sse"
)

// Publisher forwards events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, v any) error
}

// Config holds dispatcher configuration
type Config struct {
	WorkerCount    int           // default: 2
	QueueSize      int           // default: 1000
	PublishTimeout time.Duration // default: 10 seconds
}

// Dispatcher delivers payroll events to SSE subscribers and, when configured,
// to the broker. Delivery is asynchronous and never fails the caller.
type Dispatcher struct {
	hub       *sse.Hub
	publisher Publisher
	config    Config

	queue     chan payroll.Event
	wg        sync.WaitGroup
	stopCh    chan struct{}
	closeOnce sync.Once
}

var _ payroll.Notifier = (*Dispatcher)(nil)

// NewDispatcher starts the background workers. publisher may be nil.
func NewDispatcher(hub *sse.Hub, publisher Publisher, cfg Config) *Dispatcher {
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}
	if cfg.PublishTimeout == 0 {
		cfg.PublishTimeout = 10 * time.Second
	}

	d := &Dispatcher{
		hub:       hub,
		publisher: publisher,
		config:    cfg,
		queue:     make(chan payroll.Event, cfg.QueueSize),
		stopCh:    make(chan struct{}),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	slog.Info("Notification dispatcher started", "workers", cfg.WorkerCount, "queue_size", cfg.QueueSize, "broker", publisher != nil)
	return d
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stopCh:
			// Drain what is already queued
			for {
				select {
				case ev := <-d.queue:
					d.deliver(ev)
				default:
					slog.Debug("Notification worker stopped", "worker", id)
					return
				}
			}
		}
	}
}

// Notify queues an event. When the queue is full it is delivered inline.
func (d *Dispatcher) Notify(ctx context.Context, event payroll.Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	select {
	case d.queue <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		d.deliver(event)
		return nil
	}
}

func (d *Dispatcher) deliver(event payroll.Event) {
	d.hub.Publish(event.OrganizationID, sse.Event{
		Event: event.Type,
		Data:  event,
	})

	if d.publisher == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.config.PublishTimeout)
	defer cancel()
	if err := d.publisher.Publish(ctx, event.Type, event); err != nil {
		slog.Error("Failed to publish event", "type", event.Type, "organization_id", event.OrganizationID, "error", err)
	}
}

// Close stops the workers after the queue is drained.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.stopCh)
		d.wg.Wait()
		slog.Info("Notification dispatcher stopped")
	})
}
