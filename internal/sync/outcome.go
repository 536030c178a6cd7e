// Package sync reconciles the terminal's local write-ahead state with the
// backend: a resumable paginated pull of the product catalog and an
// ordered push of queued sales, coordinated by an orchestrator that keeps
// at most one run of each kind in flight.
package sync

import "fmt"

// Kind distinguishes the two sync flows.
type Kind string

const (
	KindProducts Kind = "products"
	KindSales    Kind = "sales"
)

// Outcome states why a run finished, so callers can tell a successful
// no-op apart from real work and from failure.
type Outcome string

const (
	// OutcomeCompleted means the run performed its work successfully.
	OutcomeCompleted Outcome = "completed"
	// OutcomeSkipped means a guard condition short-circuited the run:
	// no token yet, an already completed catalog, or an empty queue.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeBusy means another run of the same kind was in flight.
	OutcomeBusy Outcome = "busy"
	// OutcomeFailed means the run aborted or finished with errors.
	OutcomeFailed Outcome = "failed"
)

// ValidationError reports a malformed remote payload. The current unit of
// work is aborted without advancing progress; the next run retries it.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string {
	return "invalid remote payload: " + e.Detail
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Detail: fmt.Sprintf(format, args...)}
}
