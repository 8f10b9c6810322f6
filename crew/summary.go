package crew

import (
	"fmt"
	"strings"
	"time"

	"github.com/crewcore/crewcore/agent"
	"github.com/crewcore/crewcore/executor"
	"github.com/crewcore/crewcore/process"
	"github.com/crewcore/crewcore/task"
)

// TaskResult is one task's outcome in a RunSummary.
type TaskResult struct {
	Task      *task.Task
	Outcome   executor.Outcome
	Result    string
	AgentName string
	Phase     int
	Elapsed   time.Duration
	Err       error
}

// RunSummary is the aggregate account of one Execute call:
// every owned task counted exactly once with its terminal status.
// PoolStats is non-nil only for async runs.
type RunSummary struct {
	CrewName       string
	Process        string
	TotalTasks     int
	CompletedTasks int
	FailedTasks    int
	TimedOutTasks  int
	CancelledTasks int
	SkippedTasks   int
	SuccessRate    float64
	TaskResults    []TaskResult
	PoolStats      *executor.PoolStats
}

// String renders a human-readable digest of the run.
func (s *RunSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Crew %q (%s): %d/%d completed (%.1f%%)", s.CrewName, s.Process, s.CompletedTasks, s.TotalTasks, s.SuccessRate)
	if s.FailedTasks > 0 {
		fmt.Fprintf(&b, ", %d failed", s.FailedTasks)
	}
	if s.TimedOutTasks > 0 {
		fmt.Fprintf(&b, ", %d timed out", s.TimedOutTasks)
	}
	if s.CancelledTasks > 0 {
		fmt.Fprintf(&b, ", %d cancelled", s.CancelledTasks)
	}
	if s.SkippedTasks > 0 {
		fmt.Fprintf(&b, ", %d skipped", s.SkippedTasks)
	}
	if s.PoolStats != nil {
		fmt.Fprintf(&b, " [pool: %d max, %d peak]", s.PoolStats.MaxWorkers, s.PoolStats.PeakInUse)
	}
	return b.String()
}

func fromProcessResults(results []process.ExecutionResult) []TaskResult {
	out := make([]TaskResult, 0, len(results))
	for _, r := range results {
		out = append(out, TaskResult{
			Task:      r.Task,
			Outcome:   outcomeFromStatus(r.Status),
			Result:    r.Result,
			AgentName: r.AgentName,
			Phase:     r.Phase,
			Elapsed:   r.Elapsed,
			Err:       r.Err,
		})
	}
	return out
}

func fromExecutorResults(results []executor.TaskResult) []TaskResult {
	out := make([]TaskResult, 0, len(results))
	for _, r := range results {
		out = append(out, TaskResult{
			Task:      r.Task,
			Outcome:   r.Outcome,
			Result:    r.Result,
			AgentName: assignedAgentName(r.Task),
			Phase:     r.Phase,
			Elapsed:   r.Elapsed,
			Err:       r.Err,
		})
	}
	return out
}

func outcomeFromStatus(s task.Status) executor.Outcome {
	switch s {
	case task.Completed:
		return executor.OutcomeCompleted
	case task.Pending:
		return executor.OutcomeSkipped
	default:
		return executor.OutcomeFailed
	}
}

func assignedAgentName(t *task.Task) string {
	if a, ok := t.Agent.(*agent.Agent); ok {
		return a.Name
	}
	return ""
}
