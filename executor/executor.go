// Package executor implements the phase-based async scheduler: it decomposes a task set into dependency phases and runs each
// phase on a bounded worker pool with a hard per-task timeout and a
// per-phase failure-abort threshold.
package executor

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/crewcore/crewcore/crewerrors"
	"github.com/crewcore/crewcore/task"
)

// DefaultTimeout is the per-task wall-clock bound when none is given.
const DefaultTimeout = 300 * time.Second

// Outcome is a task's terminal classification from the executor's point
// of view. Skipped marks tasks never submitted because an earlier phase
// crossed the abort threshold.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeSkipped   Outcome = "skipped"
)

// TaskResult is one task's outcome, tagged with the phase it ran in.
type TaskResult struct {
	Task    *task.Task
	Outcome Outcome
	Result  string
	Phase   int
	Elapsed time.Duration
	Err     error
}

// PoolStats reports the worker pool's configured capacity and the peak
// number of workers observed in flight simultaneously.
type PoolStats struct {
	MaxWorkers int
	PeakInUse  int
}

// Summary is the full account of one Run: every task exactly once, the
// number of phases planned, whether a cycle forced a fallback phase,
// whether the abort threshold fired, and pool statistics.
type Summary struct {
	Results       []TaskResult
	Phases        int
	CycleFallback bool
	Aborted       bool
	Stats         PoolStats
}

// AsyncExecutor runs a set of tasks respecting their dependency graph
// with bounded parallelism. The zero value is usable: MaxConcurrency
// defaults to the CPU count and Timeout to DefaultTimeout.
type AsyncExecutor struct {
	MaxConcurrency int
	Timeout        time.Duration
	Logger         *slog.Logger

	// OnPhaseStart and OnTaskDone, when non-nil, are invoked as the run
	// progresses so a caller can stream lifecycle events. OnTaskDone may
	// be called concurrently from several workers.
	OnPhaseStart func(phase, size int)
	OnTaskDone   func(TaskResult)
}

func (e *AsyncExecutor) maxConcurrency() int {
	if e.MaxConcurrency > 0 {
		return e.MaxConcurrency
	}
	return runtime.NumCPU()
}

func (e *AsyncExecutor) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return DefaultTimeout
}

func (e *AsyncExecutor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Run drives every task to an outcome. Within a phase tasks run with no
// ordering between them; between phases there is a strict barrier, so
// all phase-N results are visible to phase N+1 via each task's
// ContextData. Task-level failures never surface as an error — they are
// classified in the Summary.
func (e *AsyncExecutor) Run(ctx context.Context, tasks []*task.Task) (*Summary, error) {
	phases, cycle := PlanPhases(tasks)
	if cycle {
		e.logger().Warn("executor: cyclic dependencies detected, running remainder as a single final phase")
	}

	pool := newPool(e.maxConcurrency())
	summary := &Summary{
		Phases:        len(phases),
		CycleFallback: cycle,
		Stats:         PoolStats{MaxWorkers: pool.capacity},
	}

	var mu sync.Mutex
	for phaseIdx, phase := range phases {
		if summary.Aborted {
			mu.Lock()
			for _, t := range phase {
				summary.Results = append(summary.Results, TaskResult{Task: t, Outcome: OutcomeSkipped, Phase: phaseIdx})
			}
			mu.Unlock()
			continue
		}

		if e.OnPhaseStart != nil {
			e.OnPhaseStart(phaseIdx, len(phase))
		}

		failures := 0
		g, gctx := errgroup.WithContext(ctx)
		for _, t := range phase {
			t := t
			g.Go(func() error {
				if err := pool.acquire(gctx); err != nil {
					mu.Lock()
					summary.Results = append(summary.Results, TaskResult{Task: t, Outcome: OutcomeSkipped, Phase: phaseIdx, Err: err})
					mu.Unlock()
					return nil
				}
				defer pool.release()

				res := e.runOne(gctx, t, phaseIdx)
				mu.Lock()
				summary.Results = append(summary.Results, res)
				if res.Outcome != OutcomeCompleted {
					failures++
				}
				mu.Unlock()
				if e.OnTaskDone != nil {
					e.OnTaskDone(res)
				}
				return nil
			})
		}
		// Tasks never return an error from the closure, so Wait is a
		// pure phase barrier here.
		_ = g.Wait()

		if len(phase) > 0 && float64(failures)/float64(len(phase)) > 0.5 {
			e.logger().Warn("executor: abort threshold crossed, skipping remaining phases",
				"phase", phaseIdx, "failures", failures, "size", len(phase))
			summary.Aborted = true
		}
	}

	summary.Stats.PeakInUse = pool.peak()
	return summary, nil
}

// runOne executes a single task under the hard per-task timeout. On
// timeout the worker goroutine is signalled through its context and
// abandoned; the task is recorded as a timeout regardless of what it
// does afterwards.
func (e *AsyncExecutor) runOne(ctx context.Context, t *task.Task, phase int) TaskResult {
	tctx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	start := time.Now()
	type outcome struct {
		result string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := t.Execute(tctx)
		done <- outcome{result: result, err: err}
	}()

	select {
	case o := <-done:
		res := TaskResult{Task: t, Result: o.result, Phase: phase, Elapsed: time.Since(start), Err: o.err}
		if o.err != nil || t.Status() != task.Completed {
			res.Outcome = OutcomeFailed
		} else {
			res.Outcome = OutcomeCompleted
		}
		return res
	case <-tctx.Done():
		return TaskResult{
			Task:    t,
			Outcome: OutcomeTimeout,
			Phase:   phase,
			Elapsed: time.Since(start),
			Err:     crewerrors.NewTaskTimeout(t.Name),
		}
	}
}

// PlanPhases peels tasks into dependency phases: each peel takes every
// task whose prerequisites are all already peeled (or already completed
// before the run). An empty peel while tasks remain means a cycle; the
// remainder becomes one final phase and the second return is true.
func PlanPhases(tasks []*task.Task) ([][]*task.Task, bool) {
	remaining := append([]*task.Task{}, tasks...)
	done := make(map[*task.Task]bool, len(tasks))
	var phases [][]*task.Task

	for len(remaining) > 0 {
		var phase, next []*task.Task
		for _, t := range remaining {
			ready := true
			for _, p := range t.Prerequisites {
				if done[p] || p.Status() == task.Completed {
					continue
				}
				ready = false
				break
			}
			if ready {
				phase = append(phase, t)
			} else {
				next = append(next, t)
			}
		}
		if len(phase) == 0 {
			phases = append(phases, remaining)
			return phases, true
		}
		for _, t := range phase {
			done[t] = true
		}
		phases = append(phases, phase)
		remaining = next
	}
	return phases, false
}

// pool is a semaphore-bounded worker gate that additionally tracks the
// peak number of holders, for PoolStats.
type pool struct {
	sem      *semaphore.Weighted
	capacity int

	mu      sync.Mutex
	inUse   int
	peakUse int
}

func newPool(capacity int) *pool {
	return &pool{sem: semaphore.NewWeighted(int64(capacity)), capacity: capacity}
}

func (p *pool) acquire(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.mu.Lock()
	p.inUse++
	if p.inUse > p.peakUse {
		p.peakUse = p.inUse
	}
	p.mu.Unlock()
	return nil
}

func (p *pool) release() {
	p.mu.Lock()
	p.inUse--
	p.mu.Unlock()
	p.sem.Release(1)
}

func (p *pool) peak() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peakUse
}
