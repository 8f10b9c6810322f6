// Package task implements the stateful unit of work bound to an agent
//: dependency enforcement, retries with exponential
// backoff, human checkpoints, and the context_data digest fed to
// dependent tasks.
package task

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crewcore/crewcore/crewerrors"
	"github.com/crewcore/crewcore/humangate"
	"github.com/crewcore/crewcore/tools"
)

// Status is a Task's lifecycle state. Transitions follow
// pending -> running -> (completed | failed | cancelled).
type Status string

const (
	Pending   Status = "pending"
	Running   Status = "running"
	Completed Status = "completed"
	Failed    Status = "failed"
	Cancelled Status = "cancelled"
)

// Agent is the capability a Task dispatches into. It is declared here,
// not imported from the agent package, so task has no dependency on
// agent — the agent package imports task and implements this interface,
// avoiding an import cycle.
type Agent interface {
	ExecuteTask(ctx context.Context, t *Task) (string, error)
}

// ReviewPoint names a checkpoint at which a Task requests human review.
// Only "completion" is currently recognized.
const ReviewPointCompletion = "completion"

// Task is a stateful unit of work bound to an Agent.
type Task struct {
	ID             string
	Name           string
	Description    string
	ExpectedOutput string

	Agent          Agent
	Prerequisites  []*Task
	Tools          []tools.Tool
	MaxRetries     int

	RequireHumanConfirmation bool
	ReviewPoints             []string

	Callback func(*Task)

	// HumanGate is consulted for confirmation, review, and retry
	// checkpoints. A nil HumanGate skips every human checkpoint as if
	// none were configured.
	HumanGate *humangate.Gate

	// Sleep is the backoff delay function, overridable in tests.
	Sleep func(time.Duration)

	mu          sync.Mutex
	status      Status
	result      string
	err         error
	startedAt   time.Time
	endedAt     time.Time
	retryCount  int
}

// New creates a pending Task.
func New(name, description string) *Task {
	return &Task{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		MaxRetries:  2,
		status:      Pending,
		Sleep:       time.Sleep,
	}
}

// Status returns the task's current lifecycle state.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Result returns the task's terminal result string, if any.
func (t *Task) Result() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// RetryCount returns the number of retries attempted so far.
func (t *Task) RetryCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.retryCount
}

// StartedAt/EndedAt/ExecutionTime report the recorded timestamps, set
// only on state exit.
func (t *Task) StartedAt() time.Time { t.mu.Lock(); defer t.mu.Unlock(); return t.startedAt }
func (t *Task) EndedAt() time.Time   { t.mu.Lock(); defer t.mu.Unlock(); return t.endedAt }
func (t *Task) ExecutionTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.endedAt.IsZero() {
		return 0
	}
	return t.endedAt.Sub(t.startedAt)
}

func (t *Task) setStatus(s Status) {
	t.mu.Lock()
	t.status = s
	t.mu.Unlock()
}

func (t *Task) transitionTerminal(s Status, result string, err error) {
	t.mu.Lock()
	t.status = s
	t.result = result
	t.err = err
	t.endedAt = time.Now()
	t.mu.Unlock()
	if t.Callback != nil {
		t.Callback(t)
	}
}

// ContextData renders the textual digest of this task's prerequisites'
// outcomes, injected into the agent's prompt. Output is
// byte-identical for an unchanged prerequisite set.
func (t *Task) ContextData() string {
	if len(t.Prerequisites) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range t.Prerequisites {
		if p.Status() == Completed {
			fmt.Fprintf(&b, "Task: %s\nResult: %s\n---\n", p.Name, p.Result())
		} else {
			fmt.Fprintf(&b, "Task: %s\nStatus: %s\n---\n", p.Name, p.Status())
		}
	}
	return b.String()
}

// unmetPrerequisites returns the names of prerequisites not yet completed.
func (t *Task) unmetPrerequisites() []string {
	var missing []string
	for _, p := range t.Prerequisites {
		if p.Status() != Completed {
			missing = append(missing, p.Name)
		}
	}
	return missing
}

// Execute runs the task to a terminal state, retrying on any failure
// other than DependencyNotMet up to MaxRetries times with exponential
// backoff.
func (t *Task) Execute(ctx context.Context) (string, error) {
	t.setStatus(Running)
	t.mu.Lock()
	t.startedAt = time.Now()
	t.mu.Unlock()

	if t.RequireHumanConfirmation && t.HumanGate != nil {
		ok, err := t.HumanGate.RequestConfirmation(ctx, fmt.Sprintf("Approve execution of task %q?", t.Name))
		if err != nil {
			return "", err
		}
		if !ok {
			result := fmt.Sprintf("task %q cancelled by human", t.Name)
			t.transitionTerminal(Cancelled, result, nil)
			return result, crewerrors.NewTaskCancelled(t.Name, "operator rejected confirmation")
		}
	}

	if missing := t.unmetPrerequisites(); len(missing) > 0 {
		depErr := crewerrors.NewDependencyNotMet(t.Name, missing)
		result := fmt.Sprintf("Dependencies not met: %s", strings.Join(missing, ", "))
		t.transitionTerminal(Failed, result, depErr)
		return result, depErr
	}

	result, err := t.runWithRetries(ctx)
	if err != nil {
		return result, err
	}

	if containsReviewPoint(t.ReviewPoints, ReviewPointCompletion) && t.HumanGate != nil {
		reviewed, rErr := t.reviewCompletion(ctx, result)
		if rErr != nil {
			return result, rErr
		}
		result = reviewed
	}

	t.transitionTerminal(Completed, result, nil)
	return result, nil
}

// reviewCompletion runs the completion review checkpoint. A rejected
// review with suggestions resolves per operator choice: accept the
// result as is, have the agent revise it against the feedback, or take
// the operator's own text as the result. The choice default (auto mode,
// timeout, non-interactive) is accept.
func (t *Task) reviewCompletion(ctx context.Context, result string) (string, error) {
	outcome, err := t.HumanGate.RequestReview(ctx, result)
	if err != nil {
		return result, err
	}
	if outcome.Accepted || outcome.Suggestions == "" {
		return result, nil
	}

	choice, err := t.HumanGate.RequestChoice(ctx,
		fmt.Sprintf("Review of task %q rejected. How should the result be resolved?", t.Name),
		[]string{"accept", "agent-revise", "human-supplied"})
	if err != nil {
		return result, nil
	}
	switch choice {
	case "agent-revise":
		original := t.Description
		t.Description = original + "\n\nReviewer feedback to address:\n" + outcome.Suggestions
		revised, rErr := t.dispatchToAgent(ctx)
		t.Description = original
		if rErr != nil {
			return result, nil
		}
		return revised, nil
	case "human-supplied":
		return outcome.Suggestions, nil
	default:
		return result, nil
	}
}

func containsReviewPoint(points []string, want string) bool {
	for _, p := range points {
		if p == want {
			return true
		}
	}
	return false
}

// runWithRetries invokes the agent, retrying with exponential backoff
// (2^retry_count seconds) on any error until MaxRetries is exhausted.
func (t *Task) runWithRetries(ctx context.Context) (string, error) {
	for {
		result, err := t.dispatchToAgent(ctx)
		if err == nil {
			return result, nil
		}

		t.mu.Lock()
		retries := t.retryCount
		maxRetries := t.MaxRetries
		t.mu.Unlock()

		if retries >= maxRetries {
			failed := crewerrors.NewTaskFailed(t.Name, err)
			t.transitionTerminal(Failed, err.Error(), failed)
			return "", failed
		}

		// A human abort from the retry prompt is terminal: the task
		// fails without consuming further retries.
		if t.HumanGate != nil {
			choice, cErr := t.HumanGate.RequestChoice(ctx,
				fmt.Sprintf("Task %q failed: %v. Choose an action.", t.Name, err),
				[]string{"retry", "modify", "abort"})
			if cErr == nil {
				switch choice {
				case "abort":
					failed := crewerrors.NewTaskFailed(t.Name, err)
					t.transitionTerminal(Failed, err.Error(), failed)
					return "", failed
				case "modify":
					if input, iErr := t.HumanGate.RequestInput(ctx, fmt.Sprintf("Revised description for task %q?", t.Name)); iErr == nil && input != "" {
						t.Description = input
					}
				}
			}
		}

		t.mu.Lock()
		t.retryCount++
		backoff := time.Duration(1<<uint(t.retryCount)) * time.Second
		t.mu.Unlock()

		sleep := t.Sleep
		if sleep == nil {
			sleep = time.Sleep
		}
		sleep(backoff)
	}
}

// dispatchToAgent invokes the assigned agent on t. It does not touch the
// agent's tool set itself: the agent unions t.Tools with its permanent
// tools per call (agent.ExecuteTask), so no shared mutable state changes
// and concurrent tasks on the same agent never observe each other's
// task-local tools.
func (t *Task) dispatchToAgent(ctx context.Context) (string, error) {
	if t.Agent == nil {
		return "", fmt.Errorf("task %q has no assigned agent", t.Name)
	}
	return t.Agent.ExecuteTask(ctx, t)
}
