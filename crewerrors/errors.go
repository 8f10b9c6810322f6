// Package crewerrors is the typed-error hierarchy shared by the crew
// orchestration packages (task, agent, process, executor, crew). It mirrors
// the component+operation+message+cause shape the rest of this codebase
// uses for its own error types, with Unwrap so errors.Is/errors.As work
// against the wrapped cause.
package crewerrors

import "fmt"

// BaseError is the common shape for every sentinel error in this package:
// a component, the operation that failed, a human-readable message, and
// an optional wrapped cause.
type BaseError struct {
	Component string
	Operation string
	Message   string
	Err       error
}

func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Operation, e.Message)
}

func (e *BaseError) Unwrap() error { return e.Err }

// DependencyNotMet is raised when a Task's prerequisite is not in the
// completed state at dispatch time. Terminal for the
// task; never retried.
type DependencyNotMet struct {
	BaseError
	Missing []string
}

func NewDependencyNotMet(task string, missing []string) *DependencyNotMet {
	return &DependencyNotMet{
		BaseError: BaseError{
			Component: "Task",
			Operation: "Execute",
			Message:   fmt.Sprintf("dependencies not met for %q: %v", task, missing),
		},
		Missing: missing,
	}
}

// ToolNotFound is recorded as a tool-failure string inside the reasoning
// loop; it never aborts the loop by itself.
type ToolNotFound struct{ BaseError }

func NewToolNotFound(name string) *ToolNotFound {
	return &ToolNotFound{BaseError{Component: "Agent", Operation: "UseTool", Message: fmt.Sprintf("tool %q not found", name)}}
}

// ToolFailure wraps an error raised by a Tool's Execute method.
type ToolFailure struct{ BaseError }

func NewToolFailure(tool string, cause error) *ToolFailure {
	return &ToolFailure{BaseError{Component: "Agent", Operation: "UseTool", Message: fmt.Sprintf("tool %q failed", tool), Err: cause}}
}

// TaskFailed is raised once a Task has exhausted its retry budget.
// Crew.Execute never lets this escape; it is recorded in the run
// summary with status=failed instead.
type TaskFailed struct{ BaseError }

func NewTaskFailed(task string, cause error) *TaskFailed {
	return &TaskFailed{BaseError{Component: "Task", Operation: "Execute", Message: fmt.Sprintf("task %q failed", task), Err: cause}}
}

// TaskCancelled is raised when a human rejects a require_human_confirmation
// checkpoint. Terminal; not retried.
type TaskCancelled struct{ BaseError }

func NewTaskCancelled(task, reason string) *TaskCancelled {
	return &TaskCancelled{BaseError{Component: "Task", Operation: "Execute", Message: fmt.Sprintf("task %q cancelled by human: %s", task, reason)}}
}

// TaskTimeout is recorded by the AsyncExecutor when a task's per-task
// timeout elapses. Treated like a failure for abort-threshold purposes.
type TaskTimeout struct{ BaseError }

func NewTaskTimeout(task string) *TaskTimeout {
	return &TaskTimeout{BaseError{Component: "AsyncExecutor", Operation: "RunPhase", Message: fmt.Sprintf("task %q timed out", task)}}
}

// ConfigError surfaces synchronously from constructors and validators:
// invalid process type, missing manager, empty crew, and the like.
// It is the only error Crew.Execute ever returns.
type ConfigError struct{ BaseError }

func NewConfigError(component, message string) *ConfigError {
	return &ConfigError{BaseError{Component: component, Operation: "Configure", Message: message}}
}
