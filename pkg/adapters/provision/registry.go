package provision

import (
	"time"

	"go.uber.org/zap"

	"github.com/tmforge/fulfilld/internal/domain"
	"github.com/tmforge/fulfilld/internal/ports"
)

// Registry maps task kinds to executors. The kind set is closed; a kind
// with no registration is a wiring error surfaced by the orchestrator.
type Registry struct {
	executors map[domain.TaskKind]ports.TaskExecutor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[domain.TaskKind]ports.TaskExecutor),
	}
}

// Register binds an executor to a task kind, replacing any previous binding.
func (r *Registry) Register(kind domain.TaskKind, exec ports.TaskExecutor) {
	r.executors[kind] = exec
}

// Executor returns the executor for a task kind.
func (r *Registry) Executor(kind domain.TaskKind) (ports.TaskExecutor, bool) {
	exec, ok := r.executors[kind]
	return exec, ok
}

// Config holds the downstream service endpoints.
type Config struct {
	ActivationURL string
	ResourceURL   string
	InventoryURL  string
	Timeout       time.Duration
	Logger        *zap.Logger
}

// NewRegistryFromConfig wires the full kind set: HTTP executors against the
// activation, resource and inventory services, and in-process executors for
// validation and dependency checking.
func NewRegistryFromConfig(cfg *Config) *Registry {
	r := NewRegistry()

	activation := NewHTTPExecutor(cfg.ActivationURL, cfg.Timeout, cfg.Logger)
	resource := NewHTTPExecutor(cfg.ResourceURL, cfg.Timeout, cfg.Logger)
	inventory := NewHTTPExecutor(cfg.InventoryURL, cfg.Timeout, cfg.Logger)

	r.Register(domain.TaskServiceOrder, activation)
	r.Register(domain.TaskCreateActivation, activation)
	r.Register(domain.TaskExecuteActivation, activation)
	r.Register(domain.TaskResourceOrder, resource)
	r.Register(domain.TaskCreateInventory, inventory)
	r.Register(domain.TaskUpdateInventory, inventory)

	r.Register(domain.TaskValidateOrder, NewValidateExecutor())
	r.Register(domain.TaskCheckDependencies, NewCheckDependenciesExecutor(nil))

	return r
}
