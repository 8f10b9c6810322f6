// Package testutil provides mock LLM client and Tool implementations
// used across this module's test suites.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/crewcore/crewcore/llms"
)

// ScriptedLLM returns a fixed sequence of responses, one per Chat call,
// then repeats the last response. Safe for concurrent use.
type ScriptedLLM struct {
	mu        sync.Mutex
	responses []string
	calls     int
	Model     string
	Err       error // if set, every Chat call returns this error instead
}

// NewScriptedLLM creates an LLMClient that replies with each of
// responses in turn.
func NewScriptedLLM(responses ...string) *ScriptedLLM {
	return &ScriptedLLM{responses: responses, Model: "test-model"}
}

func (s *ScriptedLLM) Chat(ctx context.Context, messages []llms.Message, opts llms.ChatOptions) (*llms.ChatResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	if idx < 0 {
		return nil, fmt.Errorf("testutil: ScriptedLLM has no responses configured")
	}
	return &llms.ChatResponse{
		Content:      s.responses[idx],
		Role:         llms.RoleAssistant,
		FinishReason: "stop",
		Model:        s.Model,
		Provider:     "test",
	}, nil
}

func (s *ScriptedLLM) ModelName() string { return s.Model }
func (s *ScriptedLLM) Provider() string  { return "test" }
func (s *ScriptedLLM) Close() error      { return nil }

// Calls reports how many times Chat has been invoked.
func (s *ScriptedLLM) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
