// Package crew implements the aggregate root of the orchestration
// engine: a named container of agents and tasks that
// selects a synchronous Process strategy or the AsyncExecutor and
// formats the run summary.
package crew

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/crewcore/crewcore/agent"
	"github.com/crewcore/crewcore/config"
	"github.com/crewcore/crewcore/crewerrors"
	"github.com/crewcore/crewcore/executor"
	"github.com/crewcore/crewcore/process"
	"github.com/crewcore/crewcore/task"
)

// Crew exclusively owns its agents and tasks for the lifetime of a run;
// the container is immutable during execution.
type Crew struct {
	Name        string
	ProcessType config.ProcessType
	Verbose     bool

	logger *slog.Logger
	events chan<- Event

	maxIterations int

	mu     sync.Mutex
	agents []*agent.Agent
	tasks  []*task.Task
	errs   []error

	state *SharedState
}

// Option configures a Crew at construction time.
type Option func(*Crew)

// WithVerbose enables lifecycle logging at info level.
func WithVerbose(v bool) Option { return func(c *Crew) { c.Verbose = v } }

// WithLogger attaches a structured logger for lifecycle events.
func WithLogger(l *slog.Logger) Option { return func(c *Crew) { c.logger = l } }

// WithEventSink attaches a channel that receives lifecycle events
// during Execute. Sends are non-blocking: a full or nil channel drops
// events rather than stalling the run.
func WithEventSink(ch chan<- Event) Option { return func(c *Crew) { c.events = ch } }

// WithMaxIterations sets the default reasoning-loop bound applied to
// agents added with a zero MaxIterations.
func WithMaxIterations(n int) Option { return func(c *Crew) { c.maxIterations = n } }

// New creates an empty Crew running under the given process type.
// An unknown process type is not rejected here; Execute surfaces it as
// a ConfigError so a caller sees exactly one error path.
func New(name string, processType config.ProcessType, opts ...Option) *Crew {
	c := &Crew{
		Name:        name,
		ProcessType: processType,
		state:       NewSharedState(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Crew) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// AddAgent appends a to the crew. Idempotent on identity: adding an
// agent whose name is already present is a no-op.
func (c *Crew) AddAgent(a *agent.Agent) {
	if a == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.agents {
		if existing.Name == a.Name {
			return
		}
	}
	if a.MaxIterations == 0 && c.maxIterations > 0 {
		a.MaxIterations = c.maxIterations
	}
	c.agents = append(c.agents, a)
}

// AddTask appends t to the crew. Idempotent on identity: adding a task
// whose name is already present is a no-op.
func (c *Crew) AddTask(t *task.Task) {
	if t == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.tasks {
		if existing.Name == t.Name {
			return
		}
	}
	c.tasks = append(c.tasks, t)
}

// Agents returns the crew's agents in insertion order. Hierarchical
// runs may have appended a synthesized manager.
func (c *Crew) Agents() []*agent.Agent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*agent.Agent{}, c.agents...)
}

// Tasks returns the crew's tasks in insertion order.
func (c *Crew) Tasks() []*task.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*task.Task{}, c.tasks...)
}

// State returns the crew-scoped shared coordination state.
func (c *Crew) State() *SharedState { return c.state }

// Errors returns the non-fatal configuration warnings accumulated so
// far (e.g. a task naming a prerequisite the crew does not own). They
// never abort a run.
func (c *Crew) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error{}, c.errs...)
}

// ClearErrors discards accumulated warnings.
func (c *Crew) ClearErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = nil
}

func (c *Crew) addError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

// ExecuteOptions tunes a single Execute call. The zero value requests a
// synchronous run with the crew's configured process.
type ExecuteOptions struct {
	Async          bool
	MaxConcurrency int           // async only; 0 = CPU count
	Timeout        time.Duration // async only, per task; 0 = executor default
	Verbose        bool
}

// Execute drives every task to a terminal state and returns the run
// summary. Each task is attempted at most 1+MaxRetries times; the
// summary counts each task exactly once. Task-level failures never
// surface as an error — only configuration failures do.
func (c *Crew) Execute(ctx context.Context, opts ExecuteOptions) (*RunSummary, error) {
	tasks := c.Tasks()
	c.checkOwnership(tasks)

	if c.Verbose || opts.Verbose {
		c.log().Info("crew: starting run", "crew", c.Name, "process", c.ProcessType, "tasks", len(tasks), "async", opts.Async)
	}
	c.emit(Event{Type: EventCrewStarted, Crew: c.Name, Timestamp: time.Now()})

	var (
		summary *RunSummary
		err     error
	)
	if opts.Async {
		summary, err = c.executeAsync(ctx, tasks, opts)
	} else {
		summary, err = c.executeSync(ctx, tasks)
	}
	if err != nil {
		return nil, err
	}

	c.emit(Event{Type: EventCrewFinished, Crew: c.Name, Timestamp: time.Now()})
	if c.Verbose || opts.Verbose {
		c.log().Info("crew: run finished", "crew", c.Name,
			"completed", summary.CompletedTasks, "failed", summary.FailedTasks,
			"timed_out", summary.TimedOutTasks, "success_rate", summary.SuccessRate)
	}
	return summary, nil
}

// checkOwnership accumulates a warning for every prerequisite handle
// that is not owned by this crew. The run proceeds; such a task fails
// at dispatch with DependencyNotMet since the stray prerequisite never
// completes under this scheduler.
func (c *Crew) checkOwnership(tasks []*task.Task) {
	owned := make(map[*task.Task]bool, len(tasks))
	for _, t := range tasks {
		owned[t] = true
	}
	for _, t := range tasks {
		for _, p := range t.Prerequisites {
			if !owned[p] {
				c.addError(crewerrors.NewConfigError("Crew",
					fmt.Sprintf("task %q names prerequisite %q which this crew does not own", t.Name, p.Name)))
			}
		}
	}
}

func (c *Crew) executeSync(ctx context.Context, tasks []*task.Task) (*RunSummary, error) {
	strategy, err := c.strategy()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	agents := c.agents
	c.mu.Unlock()

	if c.ProcessType == config.ProcessHierarchical {
		for name, tag := range process.Priorities(tasks) {
			c.state.Set("priority:"+name, tag, c.Name)
		}
	}

	results, err := strategy.Execute(ctx, &agents, tasks)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.agents = agents
	c.mu.Unlock()

	for _, r := range results {
		c.emit(Event{Type: EventTaskFinished, Crew: c.Name, Task: r.Task.Name, Phase: r.Phase, Status: r.Status, Timestamp: time.Now()})
	}
	return c.summarize(tasks, fromProcessResults(results), nil), nil
}

func (c *Crew) executeAsync(ctx context.Context, tasks []*task.Task, opts ExecuteOptions) (*RunSummary, error) {
	switch c.ProcessType {
	case config.ProcessSequential, config.ProcessConsensual:
	default:
		return nil, crewerrors.NewConfigError("Crew",
			fmt.Sprintf("process %q has no parallel variant", c.ProcessType))
	}

	exec := &executor.AsyncExecutor{
		MaxConcurrency: opts.MaxConcurrency,
		Timeout:        opts.Timeout,
		Logger:         c.log(),
		OnPhaseStart: func(phase, size int) {
			c.emit(Event{Type: EventPhaseStarted, Crew: c.Name, Phase: phase, Timestamp: time.Now()})
		},
		OnTaskDone: func(r executor.TaskResult) {
			c.emit(Event{Type: EventTaskFinished, Crew: c.Name, Task: r.Task.Name, Phase: r.Phase, Status: r.Task.Status(), Timestamp: time.Now()})
		},
	}

	execSummary, err := exec.Run(ctx, tasks)
	if err != nil {
		return nil, err
	}
	if execSummary.CycleFallback {
		c.addError(crewerrors.NewConfigError("Crew", "cyclic task dependencies detected; remainder ran as a single final phase"))
	}
	return c.summarize(tasks, fromExecutorResults(execSummary.Results), &execSummary.Stats), nil
}

// strategy instantiates the Process strategy for the crew's configured
// process type.
func (c *Crew) strategy() (process.Strategy, error) {
	switch c.ProcessType {
	case config.ProcessSequential:
		return process.Sequential{}, nil
	case config.ProcessConsensual:
		return process.Consensual{}, nil
	case config.ProcessHierarchical:
		return process.Hierarchical{Logger: c.log()}, nil
	default:
		return nil, crewerrors.NewConfigError("Crew", fmt.Sprintf("unknown process type %q", c.ProcessType))
	}
}

// summarize folds per-task results into the CrewRunSummary shape
//: each owned task counted exactly once with its terminal
// status, success_rate = completed/total*100 rounded to one decimal,
// and an all-zero summary for an empty task list.
func (c *Crew) summarize(tasks []*task.Task, results []TaskResult, stats *executor.PoolStats) *RunSummary {
	s := &RunSummary{
		CrewName:    c.Name,
		Process:     string(c.ProcessType),
		TotalTasks:  len(tasks),
		TaskResults: results,
		PoolStats:   stats,
	}

	counted := make(map[*task.Task]bool, len(results))
	for _, r := range results {
		counted[r.Task] = true
		switch r.Outcome {
		case executor.OutcomeCompleted:
			s.CompletedTasks++
		case executor.OutcomeTimeout:
			s.TimedOutTasks++
		case executor.OutcomeFailed:
			if r.Task.Status() == task.Cancelled {
				s.CancelledTasks++
			} else {
				s.FailedTasks++
			}
		case executor.OutcomeSkipped:
			s.SkippedTasks++
		}
	}
	// Tasks an aborted process never reached stay pending and are
	// reported as skipped so the counts still sum to TotalTasks.
	for _, t := range tasks {
		if !counted[t] {
			s.TaskResults = append(s.TaskResults, TaskResult{Task: t, Outcome: executor.OutcomeSkipped})
			s.SkippedTasks++
		}
	}

	if s.TotalTasks > 0 {
		rate := float64(s.CompletedTasks) / float64(s.TotalTasks) * 100
		s.SuccessRate = math.Round(rate*10) / 10
	}
	return s
}

func (c *Crew) emit(e Event) {
	if c.events == nil {
		return
	}
	select {
	case c.events <- e:
	default:
	}
}
