package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tpdc055/policemanagementsystem-sub000/internal/models"
)

type auditSink interface {
	Create(ctx context.Context, event *models.AuditEvent) error
}

// AuditRecorder dispatches audit events asynchronously so recording never
// blocks or fails the primary operation. Under sustained pressure the
// OLDEST queued event is dropped, counted and logged; the newest event is
// the one most likely needed for an active investigation.
type AuditRecorder struct {
	sink    auditSink
	metrics *MetricsService
	logger  *zap.Logger

	events chan *models.AuditEvent
	quit   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewAuditRecorder builds the recorder with a bounded queue.
func NewAuditRecorder(sink auditSink, metrics *MetricsService, logger *zap.Logger, queueSize int) *AuditRecorder {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditRecorder{
		sink:    sink,
		metrics: metrics,
		logger:  logger,
		events:  make(chan *models.AuditEvent, queueSize),
		quit:    make(chan struct{}),
	}
}

// Start launches the single dispatcher goroutine. Safe to call once.
func (r *AuditRecorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.wg.Add(1)
	go r.dispatch()
}

// Record enqueues one audit event without blocking. Queue pressure sheds
// the oldest entry first.
func (r *AuditRecorder) Record(event *models.AuditEvent) {
	if event == nil {
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	select {
	case r.events <- event:
		return
	default:
	}

	// Full queue: shed the oldest event, then retry once.
	select {
	case dropped := <-r.events:
		r.metrics.RecordAuditDrop()
		r.logger.Warn("audit queue full, dropped oldest event",
			zap.String("action", dropped.Action),
			zap.String("resource_key", dropped.ResourceKey))
	default:
	}
	select {
	case r.events <- event:
	default:
		r.metrics.RecordAuditDrop()
		r.logger.Warn("audit queue full, dropped event",
			zap.String("action", event.Action),
			zap.String("resource_key", event.ResourceKey))
	}
}

// Close stops intake, drains the queue and waits for the dispatcher.
func (r *AuditRecorder) Close() {
	r.mu.Lock()
	if r.closed || !r.started {
		r.closed = true
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	close(r.quit)
	r.wg.Wait()
}

func (r *AuditRecorder) dispatch() {
	defer r.wg.Done()
	for {
		select {
		case event := <-r.events:
			r.write(event)
		case <-r.quit:
			for {
				select {
				case event := <-r.events:
					r.write(event)
				default:
					return
				}
			}
		}
	}
}

func (r *AuditRecorder) write(event *models.AuditEvent) {
	// Detached context: the originating request may be long gone.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.sink.Create(ctx, event); err != nil {
		r.logger.Error("failed to persist audit event",
			zap.String("action", event.Action),
			zap.String("resource_key", event.ResourceKey),
			zap.Error(err))
	}
}
