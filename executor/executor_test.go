package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewcore/crewcore/agent"
	"github.com/crewcore/crewcore/crewerrors"
	"github.com/crewcore/crewcore/internal/testutil"
	"github.com/crewcore/crewcore/llms"
	"github.com/crewcore/crewcore/task"
)

// slowLLM answers after a fixed delay, honoring context cancellation.
type slowLLM struct {
	delay    time.Duration
	response string
}

func (s *slowLLM) Chat(ctx context.Context, messages []llms.Message, opts llms.ChatOptions) (*llms.ChatResponse, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, llms.NewError(llms.ErrTransport, "test", "cancelled", ctx.Err())
	}
	return &llms.ChatResponse{Content: s.response, Role: llms.RoleAssistant, FinishReason: "stop", Provider: "test"}, nil
}

func (s *slowLLM) ModelName() string { return "slow-model" }
func (s *slowLLM) Provider() string  { return "test" }
func (s *slowLLM) Close() error      { return nil }

func newTestTask(t *testing.T, name string, client llms.Client) *task.Task {
	t.Helper()
	tk := task.New(name, "produce "+name)
	tk.Agent = agent.New("agent-"+name, "Worker", "finish "+name, "", client)
	tk.MaxRetries = 0
	tk.Sleep = func(time.Duration) {}
	return tk
}

func TestPlanPhasesDiamond(t *testing.T) {
	a := task.New("A", "a")
	b := task.New("B", "b")
	c := task.New("C", "c")
	d := task.New("D", "d")
	b.Prerequisites = []*task.Task{a}
	c.Prerequisites = []*task.Task{a}
	d.Prerequisites = []*task.Task{b, c}

	phases, cycle := PlanPhases([]*task.Task{a, b, c, d})
	require.False(t, cycle)
	require.Len(t, phases, 3)
	assert.Equal(t, []*task.Task{a}, phases[0])
	assert.ElementsMatch(t, []*task.Task{b, c}, phases[1])
	assert.Equal(t, []*task.Task{d}, phases[2])
}

func TestPlanPhasesCycleFallback(t *testing.T) {
	a := task.New("A", "a")
	b := task.New("B", "b")
	a.Prerequisites = []*task.Task{b}
	b.Prerequisites = []*task.Task{a}

	phases, cycle := PlanPhases([]*task.Task{a, b})
	require.True(t, cycle)
	require.Len(t, phases, 1)
	assert.ElementsMatch(t, []*task.Task{a, b}, phases[0])
}

func TestRunDiamondParallel(t *testing.T) {
	client := &slowLLM{delay: 100 * time.Millisecond, response: "FINAL_ANSWER[done]"}
	a := newTestTask(t, "A", client)
	b := newTestTask(t, "B", client)
	c := newTestTask(t, "C", client)
	d := newTestTask(t, "D", client)
	b.Prerequisites = []*task.Task{a}
	c.Prerequisites = []*task.Task{a}
	d.Prerequisites = []*task.Task{b, c}

	exec := &AsyncExecutor{MaxConcurrency: 2, Timeout: 5 * time.Second}
	start := time.Now()
	summary, err := exec.Run(context.Background(), []*task.Task{a, b, c, d})
	elapsed := time.Since(start)
	require.NoError(t, err)

	require.Len(t, summary.Results, 4)
	for _, r := range summary.Results {
		assert.Equal(t, OutcomeCompleted, r.Outcome, "task %s", r.Task.Name)
	}
	assert.Equal(t, 3, summary.Phases)
	assert.False(t, summary.Aborted)
	assert.Equal(t, 2, summary.Stats.MaxWorkers)
	// B and C share phase 1 and must have overlapped: a fully serial
	// run would need at least 4 * delay.
	assert.GreaterOrEqual(t, summary.Stats.PeakInUse, 2)
	assert.Less(t, elapsed, 390*time.Millisecond)

	// Phase barrier: D's phase index follows B's and C's.
	phaseOf := map[string]int{}
	for _, r := range summary.Results {
		phaseOf[r.Task.Name] = r.Phase
	}
	assert.Equal(t, 0, phaseOf["A"])
	assert.Equal(t, 1, phaseOf["B"])
	assert.Equal(t, 1, phaseOf["C"])
	assert.Equal(t, 2, phaseOf["D"])
}

func TestRunPerTaskTimeout(t *testing.T) {
	client := &slowLLM{delay: 2 * time.Second, response: "FINAL_ANSWER[late]"}
	slow := newTestTask(t, "slow", client)

	exec := &AsyncExecutor{MaxConcurrency: 1, Timeout: 50 * time.Millisecond}
	summary, err := exec.Run(context.Background(), []*task.Task{slow})
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	res := summary.Results[0]
	assert.Equal(t, OutcomeTimeout, res.Outcome)
	var timeout *crewerrors.TaskTimeout
	assert.True(t, errors.As(res.Err, &timeout))
}

func TestRunAbortThreshold(t *testing.T) {
	okLLM := testutil.NewScriptedLLM("FINAL_ANSWER[ok]")
	badLLM := testutil.NewScriptedLLM()
	badLLM.Err = llms.NewError(llms.ErrServer, "test", "boom", nil)

	good := newTestTask(t, "good", okLLM)
	bad1 := newTestTask(t, "bad1", badLLM)
	bad2 := newTestTask(t, "bad2", badLLM)
	later := newTestTask(t, "later", okLLM)
	later.Prerequisites = []*task.Task{good}

	exec := &AsyncExecutor{MaxConcurrency: 2, Timeout: 5 * time.Second}
	summary, err := exec.Run(context.Background(), []*task.Task{good, bad1, bad2, later})
	require.NoError(t, err)

	// Phase 0 held {good, bad1, bad2}: two failures out of three
	// crosses the 0.5 threshold, so phase 1 is skipped wholesale.
	require.True(t, summary.Aborted)
	outcomes := map[string]Outcome{}
	for _, r := range summary.Results {
		outcomes[r.Task.Name] = r.Outcome
	}
	assert.Equal(t, OutcomeCompleted, outcomes["good"])
	assert.Equal(t, OutcomeFailed, outcomes["bad1"])
	assert.Equal(t, OutcomeFailed, outcomes["bad2"])
	assert.Equal(t, OutcomeSkipped, outcomes["later"])
	assert.Equal(t, task.Pending, later.Status())
}

func TestRunCycleFallbackReported(t *testing.T) {
	client := testutil.NewScriptedLLM("FINAL_ANSWER[ok]")
	a := newTestTask(t, "A", client)
	b := newTestTask(t, "B", client)
	a.Prerequisites = []*task.Task{b}
	b.Prerequisites = []*task.Task{a}

	exec := &AsyncExecutor{MaxConcurrency: 2, Timeout: time.Second}
	summary, err := exec.Run(context.Background(), []*task.Task{a, b})
	require.NoError(t, err)

	assert.True(t, summary.CycleFallback)
	// Inside the fallback phase each task still sees its prerequisite
	// incomplete, so both fail with DependencyNotMet.
	for _, r := range summary.Results {
		assert.Equal(t, OutcomeFailed, r.Outcome)
	}
}

func TestRunConcurrencyBound(t *testing.T) {
	client := &slowLLM{delay: 50 * time.Millisecond, response: "FINAL_ANSWER[done]"}
	var tasks []*task.Task
	for _, name := range []string{"t1", "t2", "t3", "t4", "t5", "t6"} {
		tasks = append(tasks, newTestTask(t, name, client))
	}

	exec := &AsyncExecutor{MaxConcurrency: 2, Timeout: 5 * time.Second}
	summary, err := exec.Run(context.Background(), tasks)
	require.NoError(t, err)

	assert.LessOrEqual(t, summary.Stats.PeakInUse, 2)
	require.Len(t, summary.Results, 6)
	for _, r := range summary.Results {
		assert.Equal(t, OutcomeCompleted, r.Outcome)
	}
}
