// Package agent implements the reasoning loop that drives a single Task
// attempt against a language model: prompt composition,
// USE_TOOL/FINAL_ANSWER parsing, tool dispatch, iteration and
// wall-clock bounds, and manager delegation.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/crewcore/crewcore/crewerrors"
	"github.com/crewcore/crewcore/humangate"
	"github.com/crewcore/crewcore/llms"
	"github.com/crewcore/crewcore/memory"
	"github.com/crewcore/crewcore/task"
	"github.com/crewcore/crewcore/tools"
)

// Agent is an immutable identity (name, role, goal, backstory) plus the
// mutable services it runs its reasoning loop against: an LLM client, a
// permanent tool set, a private Memory, and an optional HumanGate.
type Agent struct {
	Name      string
	Role      string
	Goal      string
	Backstory string

	LLM   llms.Client
	Tools *tools.Registry
	Memory *memory.Memory

	MaxIterations    int
	MaxExecutionTime time.Duration

	Manager         bool
	AllowDelegation bool
	Subordinates    []*Agent

	HumanInput                    bool
	RequireApprovalForTools       bool
	RequireApprovalForFinalAnswer bool
	HumanGate                     *humangate.Gate
}

// New creates an Agent with default iteration and wall-clock bounds.
func New(name, role, goal, backstory string, llm llms.Client) *Agent {
	return &Agent{
		Name:             name,
		Role:             role,
		Goal:             goal,
		Backstory:        backstory,
		LLM:              llm,
		Tools:            tools.NewRegistry(),
		Memory:           memory.New(),
		MaxIterations:    15,
		MaxExecutionTime: 300 * time.Second,
	}
}

// toolCall is one parsed USE_TOOL[...] sentinel.
type toolCall struct {
	Name   string
	Params map[string]string
}

// ExecuteTask runs the bounded reasoning loop for one Task attempt and
// satisfies task.Agent. It never retries internally — Task.Execute owns
// retry policy; any LLM error here is surfaced to the caller as an
// iteration failure.
func (a *Agent) ExecuteTask(ctx context.Context, t *task.Task) (string, error) {
	start := time.Now()
	effectiveTools := a.Tools.Union(t.Tools)

	var priorReasoning, priorToolResult, humanGuidance string
	contextData := t.ContextData()

	iteration := 0
	for {
		iteration++
		if iteration > a.maxIterations() {
			break
		}
		if time.Since(start) > a.maxExecutionTime() {
			break
		}

		if a.HumanInput && a.HumanGate != nil && (iteration == 1 || iteration%3 == 0) {
			if guidance, err := a.HumanGate.RequestInput(ctx, fmt.Sprintf("Guidance for %q (iteration %d)?", t.Name, iteration)); err == nil {
				humanGuidance = guidance
			}
		}

		messages := a.composePrompt(t, effectiveTools, contextData, priorReasoning, priorToolResult, humanGuidance, iteration)

		resp, err := a.LLM.Chat(ctx, messages, llms.ChatOptions{Temperature: 0.1, MaxTokens: 2000})
		if err != nil {
			a.recordExecution(t, err.Error(), time.Since(start), false)
			return "", err
		}

		calls := parseToolCalls(resp.Content)
		results := make([]string, 0, len(calls))
		anySucceeded := false
		for _, c := range calls {
			result, ok := a.useTool(ctx, effectiveTools, c.Name, c.Params)
			if ok {
				anySucceeded = true
			}
			results = append(results, result)
		}
		combinedToolResult := strings.Join(results, "\n")

		if content, ok := extractFinalAnswer(resp.Content); ok {
			final := a.reviewFinalAnswer(ctx, t, content)
			a.recordExecution(t, final, time.Since(start), true)
			return final, nil
		}

		if len(calls) == 0 || !anySucceeded {
			lower := strings.ToLower(resp.Content)
			if strings.Contains(lower, "task complete") || strings.Contains(lower, "finished") {
				final := a.reviewFinalAnswer(ctx, t, resp.Content)
				a.recordExecution(t, final, time.Since(start), true)
				return final, nil
			}
		}

		priorReasoning = resp.Content
		priorToolResult = combinedToolResult
	}

	final := a.reviewFinalAnswer(ctx, t, bestEffortFinal(priorReasoning))
	a.recordExecution(t, final, time.Since(start), true)
	return final, nil
}

func (a *Agent) maxIterations() int {
	if a.MaxIterations > 0 {
		return a.MaxIterations
	}
	return 15
}

func (a *Agent) maxExecutionTime() time.Duration {
	if a.MaxExecutionTime > 0 {
		return a.MaxExecutionTime
	}
	return 300 * time.Second
}

func (a *Agent) recordExecution(t *task.Task, result string, elapsed time.Duration, success bool) {
	a.Memory.AddExecution(memory.TaskInfo{Name: t.Name, Description: t.Description}, result, elapsed, success)
}

// reviewFinalAnswer runs the final-answer review cycle when both the
// agent's RequireApprovalForFinalAnswer flag and human_input are set. A
// rejected review with suggestions resolves per operator choice: accept
// the answer as is, have the agent revise it via one further LLM call
// seeded with the feedback, or take the operator's own text as the
// answer. The choice default (auto mode, timeout, non-interactive) is
// accept.
func (a *Agent) reviewFinalAnswer(ctx context.Context, t *task.Task, final string) string {
	if !a.RequireApprovalForFinalAnswer || !a.HumanInput || a.HumanGate == nil {
		return final
	}
	outcome, err := a.HumanGate.RequestReview(ctx, final)
	if err != nil || outcome.Accepted || outcome.Suggestions == "" {
		return final
	}

	choice, err := a.HumanGate.RequestChoice(ctx,
		fmt.Sprintf("Review of %q's answer rejected. How should it be revised?", t.Name),
		[]string{"accept", "agent-revise", "human-supplied"})
	if err != nil {
		return final
	}
	switch choice {
	case "agent-revise":
		return a.reviseAnswer(ctx, t, final, outcome.Suggestions)
	case "human-supplied":
		return outcome.Suggestions
	default:
		return final
	}
}

// reviseAnswer asks the LLM for one revision of final incorporating the
// reviewer's feedback. On any LLM error the original answer stands.
func (a *Agent) reviseAnswer(ctx context.Context, t *task.Task, final, feedback string) string {
	prompt := fmt.Sprintf(
		"You are %s. Role: %s. Goal: %s\n\n"+
			"Task: %s\n\nYour previous answer:\n%s\n\n"+
			"Reviewer feedback:\n%s\n\n"+
			"Produce a revised answer that addresses the feedback. Reply with the revised answer only.",
		a.Name, a.Role, a.Goal, t.Description, final, feedback,
	)
	resp, err := a.LLM.Chat(ctx, []llms.Message{{Role: llms.RoleUser, Content: prompt}}, llms.ChatOptions{Temperature: 0.1, MaxTokens: 2000})
	if err != nil {
		return final
	}
	return strings.TrimSpace(resp.Content)
}

// composePrompt builds the message transcript for one reasoning
// iteration.
func (a *Agent) composePrompt(t *task.Task, effectiveTools []tools.Tool, contextData, priorReasoning, priorToolResult, humanGuidance string, iteration int) []llms.Message {
	system := fmt.Sprintf(
		"You are %s. Role: %s. Goal: %s. Backstory: %s\n\n"+
			"Available tools:\n%s\n"+
			"To call a tool, emit USE_TOOL[tool_name](key1=value1, key2=value2).\n"+
			"When you have your final answer, emit FINAL_ANSWER[your answer].",
		a.Name, a.Role, a.Goal, a.Backstory, tools.Describe(effectiveTools),
	)

	var user strings.Builder
	fmt.Fprintf(&user, "Task: %s\n", t.Description)
	if t.ExpectedOutput != "" {
		fmt.Fprintf(&user, "Expected output: %s\n", t.ExpectedOutput)
	}
	if contextData != "" {
		fmt.Fprintf(&user, "\nContext from prerequisite tasks:\n%s\n", contextData)
	}
	if priorReasoning != "" {
		fmt.Fprintf(&user, "\nYour previous reasoning:\n%s\n", priorReasoning)
	}
	if priorToolResult != "" {
		fmt.Fprintf(&user, "\nPrevious tool result(s):\n%s\n", priorToolResult)
	}
	if humanGuidance != "" {
		fmt.Fprintf(&user, "\nHuman guidance:\n%s\n", humanGuidance)
	}
	fmt.Fprintf(&user, "\nIteration: %d\n", iteration)

	return []llms.Message{
		{Role: llms.RoleSystem, Content: system},
		{Role: llms.RoleUser, Content: user.String()},
	}
}

// bestEffortFinal extracts the last up-to-3 non-empty lines of text,
// used when the reasoning loop exhausts its bounds without an explicit
// FINAL_ANSWER or completion keyword.
func bestEffortFinal(text string) string {
	var nonEmpty []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			nonEmpty = append(nonEmpty, trimmed)
		}
	}
	if len(nonEmpty) == 0 {
		return ""
	}
	if len(nonEmpty) > 3 {
		nonEmpty = nonEmpty[len(nonEmpty)-3:]
	}
	return strings.Join(nonEmpty, "\n")
}

// useTool resolves and executes name against the effective tool set,
// applying tool-call approval and failure recovery.
// The bool return reports whether the call succeeded, used by the
// caller to decide whether the "task complete"/"finished" fallback may
// apply this iteration.
func (a *Agent) useTool(ctx context.Context, effectiveTools []tools.Tool, name string, params map[string]string) (string, bool) {
	t, ok := resolveTool(effectiveTools, name)
	if !ok {
		err := crewerrors.NewToolNotFound(name)
		a.Memory.AddToolUsage(name, params, err.Error())
		return err.Error(), false
	}

	if a.RequireApprovalForTools && a.HumanGate != nil {
		approved, err := a.HumanGate.RequestApproval(ctx, fmt.Sprintf("Approve call to %s(%v)?", name, params))
		if err == nil && !approved {
			result := fmt.Sprintf("tool %q skipped: approval denied", name)
			a.Memory.AddToolUsage(name, params, result)
			return result, false
		}
	}

	result, err := t.Execute(ctx, params)
	if err != nil && a.HumanInput && a.HumanGate != nil {
		choice, cerr := a.HumanGate.RequestChoice(ctx,
			fmt.Sprintf("Tool %q failed: %v. Choose an action.", name, err),
			[]string{"retry-same", "retry-with-new-params", "skip", "abort"})
		if cerr == nil {
			switch choice {
			case "retry-same":
				result, err = t.Execute(ctx, params)
			case "skip":
				err = nil
				result = fmt.Sprintf("tool %q skipped by operator", name)
			default:
				// retry-with-new-params has no parameter channel in this
				// contract and abort is handled by the failure branch below.
			}
		}
	}
	if err != nil {
		failure := crewerrors.NewToolFailure(name, err)
		a.Memory.AddToolUsage(name, params, failure.Error())
		return failure.Error(), false
	}

	a.Memory.AddToolUsage(name, params, result)
	return result, true
}

func resolveTool(list []tools.Tool, name string) (tools.Tool, bool) {
	for _, t := range list {
		if t.Name() == name {
			return t, true
		}
	}
	lower := strings.ToLower(name)
	for _, t := range list {
		if strings.ToLower(t.Name()) == lower {
			return t, true
		}
	}
	return nil, false
}

// UseTool is the public, permanent-tools-only entry point for invoking
// a tool outside a reasoning loop (e.g. from a test harness or a manual
// call), resolving only against the agent's own tool registry.
func (a *Agent) UseTool(ctx context.Context, name string, params map[string]string) (string, error) {
	result, ok := a.useTool(ctx, a.Tools.List(), name, params)
	if !ok {
		return result, fmt.Errorf("%s", result)
	}
	return result, nil
}
