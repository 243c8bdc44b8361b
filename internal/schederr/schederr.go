// Package schederr defines the typed error kinds the scheduling engine can
// raise, distinguishing structurally fatal errors (cycles, dangling
// references) from data-dependent, non-fatal conditions (unschedulable
// tasks, missing quality capacity) that the engine reports and continues
// past.
package schederr

import "fmt"

// Kind classifies an error into one of the kinds from the error handling
// design: structural errors abort the run, data-dependent ones are
// accumulated and reported.
type Kind string

const (
	KindCycleDetected      Kind = "cycle_detected"
	KindDanglingReference  Kind = "dangling_reference"
	KindUnschedulableTask  Kind = "unschedulable_task"
	KindNoQualityTeam      Kind = "no_quality_team"
	KindInvalidInput       Kind = "invalid_input"
	KindInfeasibleScenario Kind = "infeasible_scenario"
)

// Fatal reports whether errors of this kind abort the scheduling run
// immediately, versus being recorded as warnings.
func (k Kind) Fatal() bool {
	switch k {
	case KindCycleDetected, KindDanglingReference:
		return true
	default:
		return false
	}
}

// Error is the engine's structured error type. It wraps an optional
// underlying cause and carries enough context to report precisely which
// task or edge triggered it.
type Error struct {
	Kind    Kind
	Message string
	TaskID  int
	Cause   error
}

func (e *Error) Error() string {
	if e.TaskID != 0 {
		return fmt.Sprintf("%s: task %d: %s", e.Kind, e.TaskID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf constructs an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ForTask attaches a task id to an Error, returning a copy.
func (e *Error) ForTask(taskID int) *Error {
	cp := *e
	cp.TaskID = taskID
	return &cp
}

// Wrap wraps an underlying cause under the given kind.
func Wrap(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// CycleDetected builds a fatal cycle error reporting the offending path.
func CycleDetected(path []int) *Error {
	return Newf(KindCycleDetected, "cycle detected: %v", path)
}

// DanglingReference builds a fatal error for an edge referencing an unknown task.
func DanglingReference(taskID int) *Error {
	return (&Error{Kind: KindDanglingReference, Message: "edge references unknown task"}).ForTask(taskID)
}

// UnschedulableTask builds a non-fatal error reporting a task that could not
// be placed within its retry budget.
func UnschedulableTask(taskID int, reason string) *Error {
	return (&Error{Kind: KindUnschedulableTask, Message: reason}).ForTask(taskID)
}

// NoQualityTeam builds a non-fatal error reporting that no quality team
// could host a quality inspection task.
func NoQualityTeam(taskID int) *Error {
	return (&Error{Kind: KindNoQualityTeam, Message: "no quality team works a candidate shift with sufficient capacity"}).ForTask(taskID)
}

// InvalidInput builds a non-fatal error for a malformed or incomplete input row.
func InvalidInput(message string) *Error {
	return New(KindInvalidInput, message)
}

// InfeasibleScenario builds a non-fatal error reporting that a capacity
// search exhausted its growth budget without meeting its target.
func InfeasibleScenario(message string) *Error {
	return New(KindInfeasibleScenario, message)
}
