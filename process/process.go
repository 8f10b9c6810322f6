// Package process implements the three scheduling strategies a Crew can
// run synchronously: Sequential, Hierarchical, and
// Consensual (a degenerate alias of Sequential).
package process

import (
	"context"
	"time"

	"github.com/crewcore/crewcore/agent"
	"github.com/crewcore/crewcore/task"
)

// ExecutionResult is one task's outcome from a single process run.
type ExecutionResult struct {
	Task      *task.Task
	Status    task.Status
	Result    string
	AgentName string
	Phase     int
	Elapsed   time.Duration
	Err       error
}

// Strategy is the common contract for Sequential, Hierarchical, and
// Consensual. Only configuration failures (e.g. an unsatisfiable
// Hierarchical precondition) are returned as an error; task-level
// failures are reported as entries in the returned results, never as an
// error.
//
// agents is a pointer to the Crew's own agent slice: Hierarchical may
// append a synthesized manager to it,
// and that addition must be visible to the Crew that owns the slice.
type Strategy interface {
	Execute(ctx context.Context, agents *[]*agent.Agent, tasks []*task.Task) ([]ExecutionResult, error)
}

// Sequential runs the crew's tasks once, in insertion order, continuing
// past a failed task — the task itself has already exhausted its own
// retry budget.
type Sequential struct{}

func (Sequential) Execute(ctx context.Context, agents *[]*agent.Agent, tasks []*task.Task) ([]ExecutionResult, error) {
	results := make([]ExecutionResult, 0, len(tasks))
	for _, t := range tasks {
		start := time.Now()
		result, err := t.Execute(ctx)
		results = append(results, ExecutionResult{
			Task:      t,
			Status:    t.Status(),
			Result:    result,
			AgentName: agentName(t.Agent),
			Phase:     0,
			Elapsed:   time.Since(start),
			Err:       err,
		})
	}
	return results, nil
}

// Consensual is, in this core's current scope, behaviourally identical
// to Sequential — the consensus/voting layer is a stated extension
// point, not part of the core contract.
type Consensual struct{ Sequential }

func agentName(a task.Agent) string {
	if ag, ok := a.(*agent.Agent); ok {
		return ag.Name
	}
	return ""
}
