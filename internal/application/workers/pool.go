package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tmforge/fulfilld/internal/ports"
)

// Processor advances the fulfillment of a single order. The orchestrator
// implements it.
type Processor interface {
	ProcessReadyTasks(ctx context.Context, orderID uuid.UUID) error
}

// Pool manages a pool of worker goroutines draining the order queue, plus a
// scheduled sweep that re-enqueues every unfinished order. The sweep is what
// picks orders back up after a restart or after a downstream dependency
// becomes available.
type Pool struct {
	size      int
	processor Processor
	store     ports.ContextStore
	metrics   ports.MetricsCollector
	logger    *zap.Logger
	health    *HealthMonitor

	queue chan uuid.UUID
	cron  *cron.Cron

	workers []*worker
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// worker represents a single worker goroutine
type worker struct {
	id      string
	pool    *Pool
	status  WorkerStatus
	mu      sync.RWMutex
	lastJob time.Time
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusBusy    WorkerStatus = "busy"
	WorkerStatusStopped WorkerStatus = "stopped"
)

// NewPool creates a new worker pool
func NewPool(
	size int,
	processor Processor,
	store ports.ContextStore,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	sweepSchedule string,
	healthCheckInterval time.Duration,
) (*Pool, error) {
	ctx, cancel := context.WithCancel(context.Background())

	pool := &Pool{
		size:      size,
		processor: processor,
		store:     store,
		metrics:   metrics,
		logger:    logger,
		queue:     make(chan uuid.UUID, size*4),
		cron:      cron.New(),
		workers:   make([]*worker, size),
		ctx:       ctx,
		cancel:    cancel,
	}

	if _, err := pool.cron.AddFunc(sweepSchedule, pool.sweep); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", sweepSchedule, err)
	}

	pool.health = NewHealthMonitor(pool, healthCheckInterval, logger)

	return pool, nil
}

// Start starts the worker pool and the reconciliation sweep
func (p *Pool) Start() error {
	p.logger.Info("starting worker pool", zap.Int("size", p.size))

	for i := 0; i < p.size; i++ {
		w := &worker{
			id:      fmt.Sprintf("worker-%d", i),
			pool:    p,
			status:  WorkerStatusIdle,
			lastJob: time.Now(),
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(p.ctx)
	}

	p.cron.Start()
	p.health.Start()

	p.logger.Info("worker pool started", zap.Int("workers", p.size))
	return nil
}

// Shutdown gracefully shuts down the worker pool
func (p *Pool) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down worker pool")

	cronCtx := p.cron.Stop()
	p.health.Stop()

	// Cancel context to signal workers to stop
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		<-cronCtx.Done()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout")
	}
}

// Enqueue queues an order for processing. Returns false when the queue is
// full or the pool is stopped; the next sweep will retry the order.
func (p *Pool) Enqueue(orderID uuid.UUID) bool {
	select {
	case <-p.ctx.Done():
		return false
	case p.queue <- orderID:
		return true
	default:
		p.logger.Warn("order queue full, deferring to sweep",
			zap.String("order_id", orderID.String()))
		return false
	}
}

// Health returns the pool's health monitor
func (p *Pool) Health() *HealthMonitor {
	return p.health
}

// GetStatus returns the status of all workers
func (p *Pool) GetStatus() map[string]WorkerStatus {
	status := make(map[string]WorkerStatus)
	for _, w := range p.workers {
		w.mu.RLock()
		status[w.id] = w.status
		w.mu.RUnlock()
	}
	return status
}

// sweep lists all stored contexts and re-enqueues every order that has not
// reached a terminal state.
func (p *Pool) sweep() {
	ctx, cancel := context.WithTimeout(p.ctx, time.Minute)
	defer cancel()

	orderIDs, err := p.store.List(ctx)
	if err != nil {
		p.logger.Error("sweep failed to list contexts", zap.Error(err))
		return
	}

	active := 0
	enqueued := 0
	for _, orderID := range orderIDs {
		fc, err := p.store.Get(ctx, orderID)
		if err != nil {
			p.logger.Warn("sweep failed to load context",
				zap.String("order_id", orderID.String()),
				zap.Error(err))
			continue
		}
		if fc.State.Terminal() {
			continue
		}
		active++
		if p.Enqueue(orderID) {
			enqueued++
		}
	}

	p.metrics.SetActiveOrders(active)

	if enqueued > 0 {
		p.logger.Info("sweep enqueued unfinished orders",
			zap.Int("active", active),
			zap.Int("enqueued", enqueued))
	}
}

// run is the main worker loop
func (w *worker) run(ctx context.Context) {
	defer w.pool.wg.Done()

	w.pool.logger.Info("worker started", zap.String("worker_id", w.id))

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.status = WorkerStatusStopped
			w.mu.Unlock()
			w.pool.logger.Info("worker stopped", zap.String("worker_id", w.id))
			return
		case orderID := <-w.pool.queue:
			w.handleOrder(ctx, orderID)
		}
	}
}

// handleOrder advances one order through its ready tasks
func (w *worker) handleOrder(ctx context.Context, orderID uuid.UUID) {
	w.mu.Lock()
	w.status = WorkerStatusBusy
	w.lastJob = time.Now()
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.status = WorkerStatusIdle
		w.mu.Unlock()
	}()

	w.pool.logger.Debug("processing order",
		zap.String("worker_id", w.id),
		zap.String("order_id", orderID.String()))

	if err := w.pool.processor.ProcessReadyTasks(ctx, orderID); err != nil {
		w.pool.logger.Error("order processing failed",
			zap.String("worker_id", w.id),
			zap.String("order_id", orderID.String()),
			zap.Error(err))
	}
}
