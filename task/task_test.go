package task

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/crewcore/crewcore/humangate"
)

type fakeAgent struct {
	calls   int
	failN   int
	result  string
	lastCtx *Task
}

func (f *fakeAgent) ExecuteTask(ctx context.Context, t *Task) (string, error) {
	f.calls++
	f.lastCtx = t
	if f.calls <= f.failN {
		return "", errors.New("transient failure")
	}
	return f.result, nil
}

func TestContextDataEmptyWithoutPrerequisites(t *testing.T) {
	task := New("A", "do a thing")
	if task.ContextData() != "" {
		t.Fatalf("expected empty context data, got %q", task.ContextData())
	}
}

func TestContextDataCompletedPrerequisite(t *testing.T) {
	a := New("A", "produce rA")
	a.Agent = &fakeAgent{result: "rA"}
	if _, err := a.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b := New("B", "consume A")
	b.Prerequisites = []*Task{a}
	want := "Task: A\nResult: rA\n---\n"
	if got := b.ContextData(); got != want {
		t.Fatalf("context data = %q, want %q", got, want)
	}
}

func TestContextDataIncompletePrerequisite(t *testing.T) {
	a := New("A", "pending task")
	b := New("B", "consume A")
	b.Prerequisites = []*Task{a}
	want := "Task: A\nStatus: pending\n---\n"
	if got := b.ContextData(); got != want {
		t.Fatalf("context data = %q, want %q", got, want)
	}
}

func TestMissingDependencyFailsWithoutRetry(t *testing.T) {
	c := New("C", "never added to crew") // stays pending, simulating a missing task
	b := New("B", "consume A and C")
	b.Prerequisites = []*Task{c}
	b.Agent = &fakeAgent{result: "should not run"}

	result, err := b.Execute(context.Background())
	if err == nil {
		t.Fatalf("expected DependencyNotMet error")
	}
	if !strings.Contains(result, "Dependencies not met: C") {
		t.Fatalf("result = %q, want it to mention missing dependency C", result)
	}
	if b.Status() != Failed {
		t.Fatalf("status = %q, want failed", b.Status())
	}
	if b.RetryCount() != 0 {
		t.Fatalf("retry_count = %d, want 0 (DependencyNotMet is never retried)", b.RetryCount())
	}
}

func TestRetryWithTransientFailure(t *testing.T) {
	agent := &fakeAgent{failN: 1, result: "ok"}
	var slept []time.Duration
	tk := New("T", "do the thing")
	tk.Agent = agent
	tk.MaxRetries = 2
	tk.Sleep = func(d time.Duration) { slept = append(slept, d) }

	result, err := tk.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Fatalf("result = %q, want ok", result)
	}
	if tk.Status() != Completed {
		t.Fatalf("status = %q, want completed", tk.Status())
	}
	if tk.RetryCount() != 1 {
		t.Fatalf("retry_count = %d, want 1", tk.RetryCount())
	}
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Fatalf("sleep calls = %v, want exactly one 2s backoff", slept)
	}
}

func TestRetriesExhaustedFails(t *testing.T) {
	agent := &fakeAgent{failN: 99, result: "never"}
	tk := New("T", "do the thing")
	tk.Agent = agent
	tk.MaxRetries = 2
	tk.Sleep = func(time.Duration) {}

	_, err := tk.Execute(context.Background())
	if err == nil {
		t.Fatalf("expected TaskFailed after exhausting retries")
	}
	if tk.Status() != Failed {
		t.Fatalf("status = %q, want failed", tk.Status())
	}
	if tk.RetryCount() != tk.MaxRetries {
		t.Fatalf("retry_count = %d, want %d", tk.RetryCount(), tk.MaxRetries)
	}
	if agent.calls != tk.MaxRetries+1 {
		t.Fatalf("agent invoked %d times, want %d (1 + max_retries)", agent.calls, tk.MaxRetries+1)
	}
}

func TestHumanRejectionCancelsWithoutInvokingAgent(t *testing.T) {
	gate := humangate.New(strings.NewReader("no\n"), true)
	agent := &fakeAgent{result: "should not run"}
	tk := New("T", "needs sign-off")
	tk.Agent = agent
	tk.RequireHumanConfirmation = true
	tk.HumanGate = gate

	result, err := tk.Execute(context.Background())
	if err == nil {
		t.Fatalf("expected TaskCancelled error")
	}
	if tk.Status() != Cancelled {
		t.Fatalf("status = %q, want cancelled", tk.Status())
	}
	if !strings.Contains(result, "cancelled by human") {
		t.Fatalf("result = %q, want it to mention cancellation", result)
	}
	if agent.calls != 0 {
		t.Fatalf("agent.calls = %d, want 0 (confirmation rejected before dispatch)", agent.calls)
	}
	if tk.RetryCount() != 0 {
		t.Fatalf("retry_count = %d, want 0", tk.RetryCount())
	}
}

func TestCallbackInvokedOnTerminalTransition(t *testing.T) {
	var seen Status
	tk := New("T", "thing")
	tk.Agent = &fakeAgent{result: "ok"}
	tk.Callback = func(t *Task) { seen = t.Status() }

	if _, err := tk.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != Completed {
		t.Fatalf("callback observed status %q, want completed", seen)
	}
}

func TestHumanAbortFromRetryPrompt(t *testing.T) {
	gate := humangate.New(strings.NewReader("abort\n"), true)
	agent := &fakeAgent{failN: 99, result: "never"}
	tk := New("T", "flaky thing")
	tk.Agent = agent
	tk.MaxRetries = 3
	tk.Sleep = func(time.Duration) {}
	tk.HumanGate = gate

	_, err := tk.Execute(context.Background())
	if err == nil {
		t.Fatalf("expected TaskFailed after human abort")
	}
	if tk.Status() != Failed {
		t.Fatalf("status = %q, want failed", tk.Status())
	}
	if tk.RetryCount() != 0 {
		t.Fatalf("retry_count = %d, want 0 (aborted before any retry)", tk.RetryCount())
	}
	if agent.calls != 1 {
		t.Fatalf("agent.calls = %d, want 1", agent.calls)
	}
}

func TestCompletionReviewHumanSupplied(t *testing.T) {
	gate := humangate.New(strings.NewReader("make it shorter\nhuman-supplied\n"), true)
	agent := &fakeAgent{result: "a very long result"}
	tk := New("T", "write the report")
	tk.Agent = agent
	tk.ReviewPoints = []string{ReviewPointCompletion}
	tk.HumanGate = gate

	result, err := tk.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "make it shorter" {
		t.Fatalf("result = %q, want the operator's text", result)
	}
	if tk.Status() != Completed {
		t.Fatalf("status = %q, want completed", tk.Status())
	}
	if agent.calls != 1 {
		t.Fatalf("agent.calls = %d, want 1", agent.calls)
	}
}

func TestCompletionReviewAgentRevise(t *testing.T) {
	gate := humangate.New(strings.NewReader("fix the tone\nagent-revise\n"), true)
	agent := &fakeAgent{result: "second attempt"}
	tk := New("T", "write the report")
	tk.Agent = agent
	tk.ReviewPoints = []string{ReviewPointCompletion}
	tk.HumanGate = gate

	result, err := tk.Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "second attempt" {
		t.Fatalf("result = %q, want the revised result", result)
	}
	if agent.calls != 2 {
		t.Fatalf("agent.calls = %d, want 2 (original + revision)", agent.calls)
	}
	if tk.Description != "write the report" {
		t.Fatalf("description = %q, want the feedback augmentation reverted", tk.Description)
	}
}
