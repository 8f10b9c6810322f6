package agent

import (
	"context"
	"fmt"

	"github.com/crewcore/crewcore/llms"
	"github.com/crewcore/crewcore/task"
	"github.com/crewcore/crewcore/tools"
)

// DelegateTask is the manager-only entry point: it asks the LLM for
// delegation instructions tailored to target, then runs the task on
// target with those instructions folded into the description. Delegation is only legal from a manager to a subordinate,
// unless the manager's AllowDelegation flag widens that to any agent.
func (a *Agent) DelegateTask(ctx context.Context, t *task.Task, target *Agent) (string, error) {
	if !a.Manager {
		return "", fmt.Errorf("agent %q is not a manager and cannot delegate", a.Name)
	}
	if !a.AllowDelegation && !a.isSubordinate(target) {
		return "", fmt.Errorf("agent %q cannot delegate to %q: not a subordinate and allow_delegation is false", a.Name, target.Name)
	}

	instructions, err := a.requestDelegationInstructions(ctx, t, target)
	if err != nil {
		return "", err
	}
	return a.ExecuteDelegatedTask(ctx, t, instructions, target)
}

// ExecuteDelegatedTask augments t's description with instructions for
// the duration of target's execution only, reverting it afterward.
func (a *Agent) ExecuteDelegatedTask(ctx context.Context, t *task.Task, instructions string, target *Agent) (string, error) {
	original := t.Description
	t.Description = original + "\n\nDelegation instructions from " + a.Name + ":\n" + instructions
	defer func() { t.Description = original }()

	return target.ExecuteTask(ctx, t)
}

// PrepareDelegationInstructions runs the same manager/subordinate
// authorization check and LLM round-trip as DelegateTask, but returns
// the instructions without executing the task. Callers that need
// Task.Execute's own lifecycle (status, retries, timestamps) around the
// delegated run — such as the Hierarchical process — use this instead
// of DelegateTask.
func (a *Agent) PrepareDelegationInstructions(ctx context.Context, t *task.Task, target *Agent) (string, error) {
	if !a.Manager {
		return "", fmt.Errorf("agent %q is not a manager and cannot delegate", a.Name)
	}
	if !a.AllowDelegation && !a.isSubordinate(target) {
		return "", fmt.Errorf("agent %q cannot delegate to %q: not a subordinate and allow_delegation is false", a.Name, target.Name)
	}
	return a.requestDelegationInstructions(ctx, t, target)
}

func (a *Agent) isSubordinate(target *Agent) bool {
	for _, s := range a.Subordinates {
		if s == target {
			return true
		}
	}
	return false
}

// requestDelegationInstructions sends the fixed delegation prompt
// template as a one-shot chat.
func (a *Agent) requestDelegationInstructions(ctx context.Context, t *task.Task, target *Agent) (string, error) {
	prompt := fmt.Sprintf(
		"You are %s, coordinating a team. Produce clear, concise instructions for "+
			"%s (role: %s, goal: %s) to complete the following task using their tools:\n%s\n\n"+
			"Task: %s\nExpected output: %s",
		a.Name, target.Name, target.Role, target.Goal, tools.Describe(target.Tools.List()),
		t.Description, t.ExpectedOutput,
	)
	resp, err := a.LLM.Chat(ctx, []llms.Message{{Role: llms.RoleUser, Content: prompt}}, llms.ChatOptions{Temperature: 0.1, MaxTokens: 500})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
