package humangate

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestNonInteractiveApprovalDefaultsYes(t *testing.T) {
	g := New(nil, false)
	ok, err := g.RequestApproval(context.Background(), "deploy?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected default approval=true in non-interactive mode")
	}
	hist := g.History()
	if len(hist) != 1 || !hist[0].Auto {
		t.Fatalf("expected one auto-recorded interaction, got %+v", hist)
	}
}

func TestAutoApproveBypassesPrompt(t *testing.T) {
	g := New(strings.NewReader("no\n"), true, WithAutoApprove(true))
	ok, err := g.RequestApproval(context.Background(), "deploy?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("auto_approve must bypass the prompt entirely, got false")
	}
}

func TestInteractiveApprovalReadsStdin(t *testing.T) {
	g := New(strings.NewReader("yes\n"), true)
	ok, err := g.RequestApproval(context.Background(), "deploy?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected approval=true from 'yes' input")
	}
}

func TestInteractiveApprovalRejects(t *testing.T) {
	g := New(strings.NewReader("n\n"), true)
	ok, err := g.RequestApproval(context.Background(), "deploy?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected approval=false from 'n' input")
	}
}

func TestChoiceNumericIndex(t *testing.T) {
	g := New(strings.NewReader("2\n"), true)
	choice, err := g.RequestChoice(context.Background(), "pick one", []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if choice != "beta" {
		t.Fatalf("choice = %q, want beta", choice)
	}
}

func TestChoiceTextSubstring(t *testing.T) {
	g := New(strings.NewReader("GAM\n"), true)
	choice, err := g.RequestChoice(context.Background(), "pick one", []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if choice != "gamma" {
		t.Fatalf("choice = %q, want gamma", choice)
	}
}

func TestChoiceDefaultsToFirstOnTimeout(t *testing.T) {
	g := New(strings.NewReader(""), true, WithTimeout(10*time.Millisecond))
	choice, err := g.RequestChoice(context.Background(), "pick one", []string{"alpha", "beta"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if choice != "alpha" {
		t.Fatalf("choice = %q, want alpha (first option default)", choice)
	}
}

func TestContextCancellationFallsBackToDefault(t *testing.T) {
	g := New(strings.NewReader(""), true, WithTimeout(5*time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := g.RequestApproval(ctx, "deploy?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected default approval=true when context already cancelled")
	}
}

func TestReviewAcceptedDefault(t *testing.T) {
	g := New(nil, false)
	out, err := g.RequestReview(context.Background(), "draft content")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Accepted {
		t.Fatalf("expected default review outcome accepted=true")
	}
}
