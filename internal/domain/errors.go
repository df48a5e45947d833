package domain

import "errors"

// Error taxonomy for the orchestration core. Callers classify with
// errors.Is; lower layers wrap these with fmt.Errorf and %w.
var (
	// ErrNotFound reports an unknown order or task id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition reports an illegal state machine transition.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrValidation reports a malformed order or task graph.
	ErrValidation = errors.New("validation failed")

	// ErrUnresolvedDependency reports a dependency id that does not resolve
	// to any task in the owning context.
	ErrUnresolvedDependency = errors.New("unresolved dependency")

	// ErrDependenciesNotMet reports that a task cannot proceed yet because a
	// cross-service dependency is not satisfiable. The order waits and the
	// task is retried by the background sweep.
	ErrDependenciesNotMet = errors.New("dependencies not met")

	// ErrExternalService reports a downstream dispatch failure. Retryable.
	ErrExternalService = errors.New("external service error")

	// ErrPersistence reports a context store failure. Retryable.
	ErrPersistence = errors.New("persistence error")
)

// Retryable reports whether the caller may retry the failed operation.
// State and lookup errors indicate a programming or data error upstream and
// are never retryable.
func Retryable(err error) bool {
	return errors.Is(err, ErrExternalService) || errors.Is(err, ErrPersistence)
}
