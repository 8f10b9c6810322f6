package process

import (
	"context"
	"log/slog"
	"time"

	"github.com/crewcore/crewcore/agent"
	"github.com/crewcore/crewcore/crewerrors"
	"github.com/crewcore/crewcore/executor"
	"github.com/crewcore/crewcore/task"
)

// defaultManagerName is the fixed, deterministic name of a synthesized
// manager agent.
const defaultManagerName = "crew_manager"

// Hierarchical assigns unassigned tasks to subordinate agents by
// keyword overlap, plans dependency-respecting phases, delegates each
// task through the manager, and aborts remaining phases once a
// failure-rate threshold is crossed.
type Hierarchical struct {
	Logger *slog.Logger
}

func (h Hierarchical) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h Hierarchical) Execute(ctx context.Context, agents *[]*agent.Agent, tasks []*task.Task) ([]ExecutionResult, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	manager, subordinates, err := designateManager(agents)
	if err != nil {
		return nil, err
	}
	if len(subordinates) == 0 {
		return nil, crewerrors.NewConfigError("process.hierarchical", "hierarchical mode requires at least one non-manager agent")
	}

	assign(tasks, subordinates)
	phases, cycle := executor.PlanPhases(tasks)
	if cycle {
		h.logger().Warn("hierarchical: cyclic dependencies detected, running remainder as a single final phase")
	}
	logPriorities(h.logger(), tasks)

	results := make([]ExecutionResult, 0, len(tasks))
	for phaseIdx, phase := range phases {
		phaseFailures, criticalFailures := 0, 0
		for _, t := range phase {
			start := time.Now()
			result, execErr := runHierarchicalTask(ctx, manager, t)
			if execErr != nil {
				phaseFailures++
				if t.ExpectedOutput != "" || len(t.Prerequisites) > 0 {
					criticalFailures++
				}
			}
			results = append(results, ExecutionResult{
				Task:      t,
				Status:    t.Status(),
				Result:    result,
				AgentName: agentName(t.Agent),
				Phase:     phaseIdx,
				Elapsed:   time.Since(start),
				Err:       execErr,
			})
		}
		if shouldAbort(phaseIdx, phaseFailures, criticalFailures) {
			h.logger().Warn("hierarchical: aborting remaining phases", "phase", phaseIdx, "failures", phaseFailures)
			break
		}
	}
	return results, nil
}

// designateManager finds an existing manager or allow_delegation agent,
// or synthesizes a deterministic default one and appends it to *agents.
func designateManager(agents *[]*agent.Agent) (manager *agent.Agent, subordinates []*agent.Agent, err error) {
	for _, a := range *agents {
		if a.Manager {
			manager = a
			break
		}
	}
	if manager == nil {
		for _, a := range *agents {
			if a.AllowDelegation {
				manager = a
				break
			}
		}
	}
	if manager == nil {
		synthesized, serr := synthesizeManager(*agents)
		if serr != nil {
			return nil, nil, serr
		}
		manager = synthesized
		*agents = append(*agents, manager)
	}

	if len(manager.Subordinates) > 0 {
		subordinates = manager.Subordinates
	} else {
		for _, a := range *agents {
			if a != manager {
				subordinates = append(subordinates, a)
			}
		}
	}
	return manager, subordinates, nil
}

// synthesizeManager fabricates the fixed default manager:
// deterministic name, role, goal, and backstory, borrowing
// an existing agent's LLM client since the manager itself still needs
// one to request delegation instructions.
func synthesizeManager(agents []*agent.Agent) (*agent.Agent, error) {
	if len(agents) == 0 {
		return nil, crewerrors.NewConfigError("process.hierarchical", "cannot synthesize a manager with no agents to borrow an LLM client from")
	}
	manager := agent.New(
		defaultManagerName,
		"Crew Manager",
		"Coordinate the crew's agents so every task is completed",
		"A dependable coordinator synthesized because the crew named no manager.",
		agents[0].LLM,
	)
	manager.Manager = true
	manager.AllowDelegation = true
	manager.Subordinates = append([]*agent.Agent{}, agents...)
	return manager, nil
}

// assign gives every task without an explicit agent to the subordinate
// whose role+goal keyword set has the largest intersection with the
// task description's keyword set, ties broken in favor of agents that
// carry any tools.
func assign(tasks []*task.Task, subordinates []*agent.Agent) {
	for _, t := range tasks {
		if t.Agent != nil {
			continue
		}
		taskKw := keywordSet(t.Description)

		var best *agent.Agent
		bestScore := -1.0
		for _, a := range subordinates {
			score := float64(intersectionSize(keywordSet(a.Role+" "+a.Goal), taskKw))
			if len(a.Tools.List()) > 0 {
				score += 0.5
			}
			if score > bestScore {
				bestScore = score
				best = a
			}
		}
		if best != nil {
			t.Agent = best
		}
	}
}

// Priorities computes each task's priority tag,
// keyed by task name: "high" if any other task names it as a
// prerequisite, "low" if it has more than two prerequisites, otherwise
// "normal". The tags are coordination metadata only — they never enter
// ExecutionResult; the Crew records them in its shared state.
func Priorities(tasks []*task.Task) map[string]string {
	referenced := make(map[*task.Task]bool)
	for _, t := range tasks {
		for _, p := range t.Prerequisites {
			referenced[p] = true
		}
	}
	tags := make(map[string]string, len(tasks))
	for _, t := range tasks {
		priority := "normal"
		switch {
		case referenced[t]:
			priority = "high"
		case len(t.Prerequisites) > 2:
			priority = "low"
		}
		tags[t.Name] = priority
	}
	return tags
}

func logPriorities(logger *slog.Logger, tasks []*task.Task) {
	for name, priority := range Priorities(tasks) {
		logger.Debug("hierarchical: task priority", "task", name, "priority", priority)
	}
}

// runHierarchicalTask delegates t through manager unless t was
// explicitly assigned to the manager itself, in which case it runs
// directly without delegation.
func runHierarchicalTask(ctx context.Context, manager *agent.Agent, t *task.Task) (string, error) {
	target, ok := t.Agent.(*agent.Agent)
	if !ok || target == manager {
		return t.Execute(ctx)
	}

	instructions, err := manager.PrepareDelegationInstructions(ctx, t, target)
	if err != nil {
		return t.Execute(ctx)
	}

	original := t.Description
	t.Description = original + "\n\nDelegation instructions from " + manager.Name + ":\n" + instructions
	defer func() { t.Description = original }()
	return t.Execute(ctx)
}

// shouldAbort decides the phase-level abort: abort once critical
// failures exceed half of a phase's failures, or once phase <= 2 (1-
// indexed, so phaseIdx <= 1) has taken more than one failure.
func shouldAbort(phaseIdx, phaseFailures, criticalFailures int) bool {
	if phaseFailures == 0 {
		return false
	}
	if float64(criticalFailures) > float64(phaseFailures)/2.0 {
		return true
	}
	return phaseIdx <= 1 && phaseFailures > 1
}
