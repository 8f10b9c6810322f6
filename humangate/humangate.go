// Package humangate implements the blocking human-in-the-loop channel
//: approval, input, choice, review, confirmation, and
// feedback prompts with a per-interaction deadline and a mode-specific
// default when no operator answers in time.
package humangate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InteractionType enumerates the shapes of human interaction HumanGate
// supports.
type InteractionType string

const (
	Approval     InteractionType = "approval"
	Input        InteractionType = "input"
	Choice       InteractionType = "choice"
	Review       InteractionType = "review"
	Confirmation InteractionType = "confirmation"
	Feedback     InteractionType = "feedback"
)

// DefaultTimeout is the per-interaction deadline when none is given.
const DefaultTimeout = 300 * time.Second

// Interaction records one prompt/response cycle, whether it completed,
// timed out, or was auto-answered.
type Interaction struct {
	ID        string
	Type      InteractionType
	Content   string
	Options   []string
	Deadline  time.Time
	Response  string
	Result    string
	Auto      bool
	Duration  time.Duration
	StartedAt time.Time
}

var approveWords = map[string]bool{"yes": true, "y": true, "approve": true, "ok": true, "continue": true}
var rejectWords = map[string]bool{"no": true, "n": true, "reject": true, "cancel": true, "abort": true}

// Gate is the blocking interaction channel with the operator.
//
// Reader/interactive are explicit constructor inputs rather than a TTY
// probe so a test suite can drive the non-interactive branch without
// touching stdin.
type Gate struct {
	reader      *bufio.Reader
	interactive bool
	autoApprove bool
	timeout     time.Duration
	logger      *slog.Logger

	mu      sync.Mutex
	history []Interaction
}

// Option configures a Gate at construction time.
type Option func(*Gate)

// WithTimeout overrides the default per-interaction deadline.
func WithTimeout(d time.Duration) Option { return func(g *Gate) { g.timeout = d } }

// WithAutoApprove bypasses every prompt, recording it as auto-approved.
func WithAutoApprove(auto bool) Option { return func(g *Gate) { g.autoApprove = auto } }

// WithLogger attaches a structured logger for auto-answer lifecycle events.
func WithLogger(l *slog.Logger) Option { return func(g *Gate) { g.logger = l } }

// New creates a Gate. reader is the input stream to read operator
// responses from (pass nil or any non-interactive reader alongside
// interactive=false to force every prompt down the auto-default path,
// e.g. in tests or headless runs).
func New(reader io.Reader, interactive bool, opts ...Option) *Gate {
	g := &Gate{
		interactive: interactive,
		timeout:     DefaultTimeout,
		logger:      slog.Default(),
	}
	if reader != nil {
		g.reader = bufio.NewReader(reader)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// History returns every interaction recorded so far.
func (g *Gate) History() []Interaction {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Interaction, len(g.history))
	copy(out, g.history)
	return out
}

func (g *Gate) record(i Interaction) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history = append(g.history, i)
}

// prompt runs the common blocking-with-timeout machinery: it reads one
// line from the operator unless auto_approve is set or the gate is
// non-interactive, in which case it immediately returns auto=true.
func (g *Gate) prompt(ctx context.Context, typ InteractionType, content string, options []string, fallback string) Interaction {
	start := time.Now()
	deadline := start.Add(g.timeout)
	interaction := Interaction{
		ID:        uuid.NewString(),
		Type:      typ,
		Content:   content,
		Options:   options,
		Deadline:  deadline,
		StartedAt: start,
	}

	if g.autoApprove {
		interaction.Response = fallback
		interaction.Result = fallback
		interaction.Auto = true
		interaction.Duration = time.Since(start)
		g.logger.Info("humangate: auto-approved", "type", typ, "id", interaction.ID)
		g.record(interaction)
		return interaction
	}

	if !g.interactive || g.reader == nil {
		interaction.Response = fallback
		interaction.Result = fallback
		interaction.Auto = true
		interaction.Duration = time.Since(start)
		g.logger.Info("humangate: auto-default (non-interactive)", "type", typ, "id", interaction.ID)
		g.record(interaction)
		return interaction
	}

	lineCh := make(chan string, 1)
	go func() {
		line, err := g.reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		select {
		case lineCh <- strings.TrimSpace(line):
		default:
		}
	}()

	select {
	case <-ctx.Done():
		interaction.Response = fallback
		interaction.Result = fallback
		interaction.Auto = true
	case line := <-lineCh:
		interaction.Response = line
		interaction.Result = line
	case <-time.After(g.timeout):
		interaction.Response = fallback
		interaction.Result = fallback
		interaction.Auto = true
	}
	interaction.Duration = time.Since(start)
	g.record(interaction)
	return interaction
}

// RequestApproval blocks for a yes/no decision. The mode default on
// timeout/non-interactive is "yes".
func (g *Gate) RequestApproval(ctx context.Context, content string) (bool, error) {
	i := g.prompt(ctx, Approval, content, nil, "yes")
	return parseApproval(i.Response), nil
}

func parseApproval(response string) bool {
	word := strings.ToLower(strings.TrimSpace(response))
	return approveWords[word]
}

// RequestConfirmation is a semantic alias of RequestApproval used at
// Task confirmation checkpoints.
func (g *Gate) RequestConfirmation(ctx context.Context, content string) (bool, error) {
	i := g.prompt(ctx, Confirmation, content, nil, "yes")
	return parseApproval(i.Response), nil
}

// RequestInput blocks for free-form text. The default on
// timeout/non-interactive is the empty string.
func (g *Gate) RequestInput(ctx context.Context, content string) (string, error) {
	i := g.prompt(ctx, Input, content, nil, "")
	return i.Response, nil
}

// RequestFeedback is a semantic alias of RequestInput for post-hoc
// review feedback.
func (g *Gate) RequestFeedback(ctx context.Context, content string) (string, error) {
	i := g.prompt(ctx, Feedback, content, nil, "")
	return i.Response, nil
}

// RequestChoice blocks for a selection among options. The default on
// timeout/non-interactive is the first option. Numeric answers are
// treated as 1-based indices; text answers match case-insensitive
// substrings.
func (g *Gate) RequestChoice(ctx context.Context, content string, options []string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("humangate: choice requires at least one option")
	}
	i := g.prompt(ctx, Choice, content, options, options[0])
	return resolveChoice(i.Response, options), nil
}

func resolveChoice(response string, options []string) string {
	trimmed := strings.TrimSpace(response)
	if idx, err := strconv.Atoi(trimmed); err == nil {
		if idx >= 1 && idx <= len(options) {
			return options[idx-1]
		}
	}
	lower := strings.ToLower(trimmed)
	for _, opt := range options {
		if strings.Contains(strings.ToLower(opt), lower) && lower != "" {
			return opt
		}
	}
	return options[0]
}

// ReviewOutcome is the structured result of a review checkpoint.
type ReviewOutcome struct {
	Accepted    bool
	Suggestions string
}

// RequestReview blocks for a review decision over content. The default
// on timeout/non-interactive is Accepted=true.
func (g *Gate) RequestReview(ctx context.Context, content string) (ReviewOutcome, error) {
	i := g.prompt(ctx, Review, content, nil, "yes")
	if parseApproval(i.Response) {
		return ReviewOutcome{Accepted: true}, nil
	}
	return ReviewOutcome{Accepted: false, Suggestions: i.Response}, nil
}
