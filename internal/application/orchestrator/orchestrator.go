package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tmforge/fulfilld/internal/application/decompose"
	"github.com/tmforge/fulfilld/internal/domain"
	"github.com/tmforge/fulfilld/internal/ports"
)

// Orchestrator coordinates order fulfillment.
type Orchestrator struct {
	store      ports.ContextStore
	bus        ports.EventBus
	metrics    ports.MetricsCollector
	executors  ports.ExecutorRegistry
	decomposer *decompose.Decomposer
	validator  *Validator
	logger     *zap.Logger

	dispatchTimeout time.Duration

	// activationChain controls whether the lifecycle chain is appended to
	// non-empty decompositions.
	activationChain bool

	// Per-order handles: serialize all mutation of one order's context.
	orders sync.Map // map[uuid.UUID]*orderHandle

	// Task id -> owning order id, for external task-state reports.
	taskIndex sync.Map // map[uuid.UUID]uuid.UUID
}

// orderHandle serializes work on a single order.
type orderHandle struct {
	mu sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithActivationChain toggles the lifecycle chain appended after
// decomposition. Enabled by default.
func WithActivationChain(enabled bool) Option {
	return func(o *Orchestrator) { o.activationChain = enabled }
}

// WithDecomposer replaces the default 1:1 decomposer.
func WithDecomposer(d *decompose.Decomposer) Option {
	return func(o *Orchestrator) { o.decomposer = d }
}

// New creates an orchestrator.
func New(
	store ports.ContextStore,
	bus ports.EventBus,
	metrics ports.MetricsCollector,
	executors ports.ExecutorRegistry,
	logger *zap.Logger,
	dispatchTimeout time.Duration,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		store:           store,
		bus:             bus,
		metrics:         metrics,
		executors:       executors,
		decomposer:      decompose.NewDecomposer(),
		validator:       NewValidator(),
		logger:          logger,
		dispatchTimeout: dispatchTimeout,
		activationChain: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// handle returns the per-order handle, creating it if needed.
func (o *Orchestrator) handle(orderID uuid.UUID) *orderHandle {
	val, _ := o.orders.LoadOrStore(orderID, &orderHandle{})
	return val.(*orderHandle)
}

// evict drops the in-memory bookkeeping for an order once its terminal
// state is persisted. A late caller recreates the handle and finds the
// terminal context in the store; every mutation path rejects or no-ops on
// a terminal order, so the fresh handle cannot race a real mutation.
func (o *Orchestrator) evict(fc *domain.FulfillmentContext) {
	for _, t := range fc.Tasks {
		o.taskIndex.Delete(t.ID)
	}
	o.orders.Delete(fc.OrderID)
}

// Orchestrate accepts an order: decomposes it, validates and registers the
// task graph, persists the new context and emits OrderReceived followed by
// OrderDecomposed. It returns as soon as the order is accepted; the cascade
// runs in the background. An order maps to exactly one context, so a second
// call for the same order id is rejected.
func (o *Orchestrator) Orchestrate(ctx context.Context, order domain.Order) (uuid.UUID, error) {
	h := o.handle(order.ID)
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := o.store.Get(ctx, order.ID); err == nil {
		return uuid.Nil, fmt.Errorf("order %s already orchestrated: %w", order.ID, domain.ErrValidation)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return uuid.Nil, fmt.Errorf("failed to check existing context: %w", err)
	}

	result := o.decomposer.Decompose(order)

	tasks := result.Tasks
	if o.activationChain && len(tasks) > 0 {
		var gates []uuid.UUID
		for _, t := range tasks {
			if t.Kind == domain.TaskResourceOrder {
				gates = append(gates, t.ID)
			}
		}
		tasks = append(tasks, ActivationChain(order.ID, gates)...)
	}

	if _, err := o.validator.Validate(order.ID, tasks); err != nil {
		o.logger.Error("task graph validation failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
		return uuid.Nil, err
	}

	fc := domain.NewFulfillmentContext(order.ID)
	fc.ServiceOrders = result.ServiceOrders
	fc.ResourceOrders = result.ResourceOrders
	if err := fc.SetState(domain.OrderDecomposing); err != nil {
		return uuid.Nil, err
	}
	for _, task := range tasks {
		fc.AddTask(task)
		o.taskIndex.Store(task.ID, order.ID)
	}

	// An empty decomposition is a valid edge case: nothing to fulfill.
	if len(tasks) == 0 {
		if err := fc.SetState(domain.OrderCompleted); err != nil {
			return uuid.Nil, err
		}
	}

	if err := o.store.Put(ctx, fc); err != nil {
		o.logger.Error("failed to persist context",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
		return uuid.Nil, fmt.Errorf("failed to persist context: %w", err)
	}

	o.publish(ctx, domain.NewEvent(domain.EventOrderReceived, order.ID, map[string]interface{}{
		"items": len(order.Items),
	}))
	o.publish(ctx, domain.NewEvent(domain.EventOrderDecomposed, order.ID, map[string]interface{}{
		"service_orders":  specIDs(result.ServiceOrders),
		"resource_orders": resourceIDs(result.ResourceOrders),
		"tasks":           len(tasks),
	}))

	o.metrics.RecordOrderReceived()
	o.logger.Info("order accepted",
		zap.String("order_id", order.ID.String()),
		zap.Int("tasks", len(tasks)))

	if len(tasks) == 0 {
		o.publish(ctx, domain.NewEvent(domain.EventOrderCompleted, order.ID, nil))
		o.metrics.RecordOrderCompleted(string(domain.OrderCompleted), 0)
		o.evict(fc)
		return order.ID, nil
	}

	go func() {
		if err := o.ProcessReadyTasks(context.Background(), order.ID); err != nil {
			o.logger.Error("cascade failed",
				zap.String("order_id", order.ID.String()),
				zap.Error(err))
		}
	}()

	return order.ID, nil
}

// GetContext loads the persisted context for an order.
func (o *Orchestrator) GetContext(ctx context.Context, orderID uuid.UUID) (*domain.FulfillmentContext, error) {
	return o.store.Get(ctx, orderID)
}

// ListOrders returns the ids of all persisted contexts.
func (o *Orchestrator) ListOrders(ctx context.Context) ([]uuid.UUID, error) {
	return o.store.List(ctx)
}

// UpdateTaskState applies an externally reported task transition: it
// validates the transition against the state machine, persists the change,
// emits TaskStateChanged and runs the cascade for the owning order. A
// reported failure or cancellation takes its dependency subtree down with
// it, the same way an executor failure does, so the order can settle.
func (o *Orchestrator) UpdateTaskState(ctx context.Context, taskID uuid.UUID, state domain.TaskState) error {
	orderID, err := o.orderForTask(ctx, taskID)
	if err != nil {
		return err
	}

	h := o.handle(orderID)
	h.mu.Lock()

	fc, err := o.store.Get(ctx, orderID)
	if err != nil {
		h.mu.Unlock()
		return err
	}
	task, err := fc.Task(taskID)
	if err != nil {
		h.mu.Unlock()
		return err
	}

	from := task.State
	if fc.State.Terminal() {
		o.evict(fc)
		h.mu.Unlock()
		if from == state {
			return nil
		}
		return fmt.Errorf("order %s already in terminal state %s: %w",
			orderID, fc.State, domain.ErrInvalidTransition)
	}
	if from == state {
		// Idempotent re-apply: nothing to persist or publish.
		h.mu.Unlock()
		return nil
	}
	if err := fc.UpdateTaskState(taskID, state); err != nil {
		h.mu.Unlock()
		return err
	}

	events := []domain.Event{domain.NewTaskEvent(orderID, taskID, from, state)}
	if state == domain.TaskFailed || state == domain.TaskCancelled {
		if task.Error == "" {
			task.Error = fmt.Sprintf("reported %s by downstream executor", state)
		}
		depEvents, err := o.cancelDependents(fc, task)
		if err != nil {
			h.mu.Unlock()
			return err
		}
		events = append(events, depEvents...)
	}

	if err := o.store.Put(ctx, fc); err != nil {
		h.mu.Unlock()
		return fmt.Errorf("failed to persist task state: %w", err)
	}
	for _, ev := range events {
		o.publish(ctx, ev)
	}
	h.mu.Unlock()

	return o.ProcessReadyTasks(ctx, orderID)
}

// CancelOrder marks an order and all of its non-terminal tasks Cancelled and
// halts further dispatch. Cancelling a terminal order is rejected.
func (o *Orchestrator) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	h := o.handle(orderID)
	h.mu.Lock()
	defer h.mu.Unlock()

	fc, err := o.store.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if fc.State.Terminal() {
		o.evict(fc)
		return fmt.Errorf("order %s already in terminal state %s: %w",
			orderID, fc.State, domain.ErrInvalidTransition)
	}

	var events []domain.Event
	for _, task := range fc.Tasks {
		if task.State.Terminal() {
			continue
		}
		from := task.State
		if err := fc.UpdateTaskState(task.ID, domain.TaskCancelled); err != nil {
			return err
		}
		events = append(events, domain.NewTaskEvent(orderID, task.ID, from, domain.TaskCancelled))
	}
	if err := fc.SetState(domain.OrderCancelled); err != nil {
		return err
	}
	if err := o.store.Put(ctx, fc); err != nil {
		return fmt.Errorf("failed to persist cancellation: %w", err)
	}

	for _, ev := range events {
		o.publish(ctx, ev)
	}
	o.publish(ctx, domain.NewEvent(domain.EventOrderCancelled, orderID, nil))
	o.metrics.RecordOrderCompleted(string(domain.OrderCancelled), time.Since(fc.CreatedAt))

	o.logger.Info("order cancelled", zap.String("order_id", orderID.String()))
	o.evict(fc)
	return nil
}

// ProcessReadyTasks runs the cascade for one order: load the authoritative
// context, dispatch every ready task, advance the order state, and repeat
// until nothing is ready or the order terminates.
func (o *Orchestrator) ProcessReadyTasks(ctx context.Context, orderID uuid.UUID) error {
	h := o.handle(orderID)
	h.mu.Lock()
	defer h.mu.Unlock()

	// Tasks that reported unmet dependencies this run; retried by the
	// background sweep, not within the same cascade.
	waiting := make(map[uuid.UUID]struct{})

	for {
		fc, err := o.store.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if fc.State.Terminal() {
			o.evict(fc)
			return nil
		}

		ready, unresolved := fc.ReadyTasks()
		if len(unresolved) > 0 {
			// Dangling references never count as satisfied. They cannot
			// appear from validated decomposition, so reaching here means
			// the task set was corrupted upstream.
			msg := fmt.Sprintf("unresolved dependency %s on task %s",
				unresolved[0].DependencyID, unresolved[0].TaskID)
			return o.failOrder(ctx, fc, msg)
		}

		dispatched := 0
		for _, task := range ready {
			if _, waited := waiting[task.ID]; waited {
				continue
			}
			if !o.dispatchable(fc, task) {
				continue
			}
			waited, err := o.dispatch(ctx, fc, task)
			if err != nil {
				return err
			}
			if waited {
				waiting[task.ID] = struct{}{}
				continue
			}
			dispatched++
			if fc.State.Terminal() {
				return nil
			}
		}

		if err := o.advanceOrder(ctx, fc); err != nil {
			return err
		}
		if dispatched == 0 || fc.State.Terminal() {
			return nil
		}
	}
}

// dispatchable guards against double dispatch: only tasks not yet started
// are dispatched. An in-progress task is re-admitted when the order is
// waiting on dependencies, or when the task has sat in progress longer than
// the dispatch timeout — a live dispatch is bounded by that timeout, so a
// staler timestamp means a crash cut the dispatch short and nothing else
// will finish the task.
func (o *Orchestrator) dispatchable(fc *domain.FulfillmentContext, task *domain.FulfillmentTask) bool {
	switch {
	case task.State == domain.TaskAcknowledged:
		return true
	case task.State != domain.TaskInProgress:
		return false
	case fc.State == domain.OrderWaitingForDeps:
		return true
	default:
		return time.Since(task.UpdatedAt) > o.dispatchTimeout
	}
}

// dispatch executes one task through its registered executor, persisting and
// publishing every transition. The returned bool reports that the task is
// waiting on unmet dependencies rather than done. Executor failures are
// isolated to the failing task's dependency subtree; sibling branches keep
// running.
func (o *Orchestrator) dispatch(ctx context.Context, fc *domain.FulfillmentContext, task *domain.FulfillmentTask) (bool, error) {
	if from := task.State; from == domain.TaskAcknowledged {
		if err := fc.UpdateTaskState(task.ID, domain.TaskInProgress); err != nil {
			return false, err
		}
		if err := o.store.Put(ctx, fc); err != nil {
			return false, fmt.Errorf("failed to persist dispatch: %w", err)
		}
		o.publish(ctx, domain.NewTaskEvent(fc.OrderID, task.ID, from, domain.TaskInProgress))
	}

	exec, ok := o.executors.Executor(task.Kind)
	if !ok {
		return false, o.failTask(ctx, fc, task, fmt.Errorf("no executor registered for kind %s", task.Kind))
	}

	start := time.Now()
	dctx, cancel := context.WithTimeout(ctx, o.dispatchTimeout)
	err := exec.Execute(dctx, task, fc)
	cancel()
	duration := time.Since(start)

	switch {
	case err == nil:
		if err := fc.UpdateTaskState(task.ID, domain.TaskCompleted); err != nil {
			return false, err
		}
		if err := o.store.Put(ctx, fc); err != nil {
			return false, fmt.Errorf("failed to persist completion: %w", err)
		}
		o.publish(ctx, domain.NewTaskEvent(fc.OrderID, task.ID, domain.TaskInProgress, domain.TaskCompleted))
		o.metrics.RecordTaskExecuted(string(task.Kind), string(domain.TaskCompleted), duration)
		o.logger.Debug("task completed",
			zap.String("order_id", fc.OrderID.String()),
			zap.String("task_id", task.ID.String()),
			zap.String("kind", string(task.Kind)),
			zap.Duration("duration", duration))
		return false, nil

	case errors.Is(err, domain.ErrDependenciesNotMet):
		// Not a failure: the order waits and the background sweep retries.
		if err := fc.SetState(domain.OrderWaitingForDeps); err != nil {
			return false, err
		}
		if err := o.store.Put(ctx, fc); err != nil {
			return false, fmt.Errorf("failed to persist waiting state: %w", err)
		}
		o.logger.Info("task waiting for dependencies",
			zap.String("order_id", fc.OrderID.String()),
			zap.String("task_id", task.ID.String()),
			zap.String("kind", string(task.Kind)))
		return true, nil

	default:
		o.metrics.RecordTaskExecuted(string(task.Kind), string(domain.TaskFailed), duration)
		return false, o.failTask(ctx, fc, task, err)
	}
}

// failTask marks a task Failed and cancels its transitive dependents, then
// lets the cascade continue on unrelated branches.
func (o *Orchestrator) failTask(ctx context.Context, fc *domain.FulfillmentContext, task *domain.FulfillmentTask, cause error) error {
	o.logger.Warn("task failed",
		zap.String("order_id", fc.OrderID.String()),
		zap.String("task_id", task.ID.String()),
		zap.String("kind", string(task.Kind)),
		zap.Error(cause))

	from := task.State
	task.Error = cause.Error()
	if err := fc.UpdateTaskState(task.ID, domain.TaskFailed); err != nil {
		return err
	}
	events := []domain.Event{domain.NewTaskEvent(fc.OrderID, task.ID, from, domain.TaskFailed)}

	depEvents, err := o.cancelDependents(fc, task)
	if err != nil {
		return err
	}
	events = append(events, depEvents...)

	if err := o.store.Put(ctx, fc); err != nil {
		return fmt.Errorf("failed to persist task failure: %w", err)
	}
	for _, ev := range events {
		o.publish(ctx, ev)
	}
	return nil
}

// cancelDependents aborts only the subtree that depends on a task that can
// no longer complete: every non-terminal transitive dependent is marked
// Cancelled. Unrelated branches are untouched.
func (o *Orchestrator) cancelDependents(fc *domain.FulfillmentContext, task *domain.FulfillmentTask) ([]domain.Event, error) {
	graph := domain.NewDependencyGraph()
	for _, t := range fc.Tasks {
		graph.AddNode(t.ID, t.Dependencies...)
	}

	var events []domain.Event
	for _, depID := range graph.TransitiveDependentsOf(task.ID) {
		dep, err := fc.Task(depID)
		if err != nil || dep.State.Terminal() {
			continue
		}
		from := dep.State
		dep.Error = fmt.Sprintf("dependency %s failed", task.ID)
		if err := fc.UpdateTaskState(depID, domain.TaskCancelled); err != nil {
			return nil, err
		}
		events = append(events, domain.NewTaskEvent(fc.OrderID, depID, from, domain.TaskCancelled))
	}
	return events, nil
}

// advanceOrder derives the order-level state from task progress and emits
// the terminal event when the order settles.
func (o *Orchestrator) advanceOrder(ctx context.Context, fc *domain.FulfillmentContext) error {
	if fc.State.Terminal() {
		return nil
	}

	if fc.Settled() {
		if fc.AnyTaskFailed() {
			msg := fc.Error
			if msg == "" {
				msg = firstTaskError(fc)
			}
			return o.failOrder(ctx, fc, msg)
		}
		if err := fc.SetState(domain.OrderCompleted); err != nil {
			return err
		}
		if err := o.store.Put(ctx, fc); err != nil {
			return fmt.Errorf("failed to persist completion: %w", err)
		}
		o.publish(ctx, domain.NewEvent(domain.EventOrderCompleted, fc.OrderID, nil))
		o.metrics.RecordOrderCompleted(string(domain.OrderCompleted), time.Since(fc.CreatedAt))
		o.logger.Info("order completed", zap.String("order_id", fc.OrderID.String()))
		o.evict(fc)
		return nil
	}

	milestone := deriveMilestone(fc)
	if milestone == fc.State || !fc.State.CanTransition(milestone) {
		return nil
	}
	if err := fc.SetState(milestone); err != nil {
		return err
	}
	if err := o.store.Put(ctx, fc); err != nil {
		return fmt.Errorf("failed to persist order state: %w", err)
	}
	return nil
}

// deriveMilestone maps lifecycle chain progress to the order state sequence.
// Without the chain the order stays Decomposing until it settles.
func deriveMilestone(fc *domain.FulfillmentContext) domain.OrderState {
	completed := func(kind domain.TaskKind) bool {
		t := fc.TaskOfKind(kind)
		return t != nil && t.State == domain.TaskCompleted
	}
	inProgress := func(kind domain.TaskKind) bool {
		t := fc.TaskOfKind(kind)
		return t != nil && t.State == domain.TaskInProgress
	}

	switch {
	case completed(domain.TaskCreateInventory):
		return domain.OrderInventoryCreated
	case completed(domain.TaskExecuteActivation):
		return domain.OrderActivated
	case completed(domain.TaskCreateActivation) || inProgress(domain.TaskExecuteActivation):
		return domain.OrderActivating
	case completed(domain.TaskCheckDependencies):
		return domain.OrderReadyForActivation
	case completed(domain.TaskValidateOrder):
		return domain.OrderCheckingDeps
	case inProgress(domain.TaskValidateOrder):
		return domain.OrderValidating
	default:
		return fc.State
	}
}

// failOrder marks the order Failed, persists it and emits OrderFailed.
func (o *Orchestrator) failOrder(ctx context.Context, fc *domain.FulfillmentContext, msg string) error {
	if err := fc.Fail(msg); err != nil {
		return err
	}
	if err := o.store.Put(ctx, fc); err != nil {
		return fmt.Errorf("failed to persist order failure: %w", err)
	}
	o.publish(ctx, domain.NewEvent(domain.EventOrderFailed, fc.OrderID, map[string]interface{}{
		"error": msg,
	}))
	o.metrics.RecordOrderCompleted(string(domain.OrderFailed), time.Since(fc.CreatedAt))
	o.logger.Warn("order failed",
		zap.String("order_id", fc.OrderID.String()),
		zap.String("error", msg))
	o.evict(fc)
	return nil
}

// orderForTask resolves the order owning a task, falling back to a store
// scan when the in-memory index was lost (e.g. after a restart).
func (o *Orchestrator) orderForTask(ctx context.Context, taskID uuid.UUID) (uuid.UUID, error) {
	if val, ok := o.taskIndex.Load(taskID); ok {
		return val.(uuid.UUID), nil
	}

	orderIDs, err := o.store.List(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	for _, orderID := range orderIDs {
		fc, err := o.store.Get(ctx, orderID)
		if err != nil {
			continue
		}
		if _, err := fc.Task(taskID); err == nil {
			o.taskIndex.Store(taskID, orderID)
			return orderID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
}

// publish emits an event; publish failures are logged, not fatal, since the
// persisted context is the source of truth and consumers deduplicate.
func (o *Orchestrator) publish(ctx context.Context, event domain.Event) {
	if err := o.bus.Publish(ctx, domain.EventTopic, event); err != nil {
		o.logger.Error("failed to publish event",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.String("order_id", event.OrderID.String()),
			zap.Error(err))
	}
}

func firstTaskError(fc *domain.FulfillmentContext) string {
	for _, t := range fc.Tasks {
		if t.State == domain.TaskFailed && t.Error != "" {
			return t.Error
		}
	}
	return "task failure"
}

func specIDs(specs []domain.ServiceOrderSpec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.ID.String()
	}
	return out
}

func resourceIDs(specs []domain.ResourceOrderSpec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.ID.String()
	}
	return out
}
