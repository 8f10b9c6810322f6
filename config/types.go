// Package config provides configuration types and utilities for the crew
// orchestration engine.
// This file contains the declarative configuration surface an embedder can
// use to hydrate a Crew: LLM providers, agents, tasks, and the crew itself.
// Loading these structs from YAML/env is in scope; discovering config files,
// watching them, or wiring them into a CLI is not.
package config

import (
	"fmt"
	"time"
)

// ============================================================================
// LLM PROVIDER CONFIGURATION
// ============================================================================

// LLMProviderConfig is the recognized configuration surface for a language
// model provider: provider identity plus the generation
// parameters every provider accepts. Concrete HTTP bindings are out of
// scope; this struct only describes how to construct and validate one.
type LLMProviderConfig struct {
	Provider       string  `yaml:"provider"`                  // "openai", "anthropic", "google", "azure", "ollama", ...
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"api_key,omitempty"`
	BaseURL        string  `yaml:"base_url,omitempty"`
	APIVersion     string  `yaml:"api_version,omitempty"`
	DeploymentName string  `yaml:"deployment_name,omitempty"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout"`
}

// Validate implements ConfigInterface for LLMProviderConfig.
func (c *LLMProviderConfig) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Provider != "ollama" && c.APIKey == "" {
		return fmt.Errorf("api_key is required for provider %q", c.Provider)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	return nil
}

// SetDefaults implements ConfigInterface for LLMProviderConfig.
func (c *LLMProviderConfig) SetDefaults() {
	if c.Temperature == 0 {
		c.Temperature = 0.1
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4000
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 120
	}
}

// Timeout returns the configured request timeout as a time.Duration.
func (c *LLMProviderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ============================================================================
// HUMAN OVERSIGHT CONFIGURATION
// ============================================================================

// HumanOversightConfig groups the human-in-the-loop flags that both Agent
// and Task carry.
type HumanOversightConfig struct {
	HumanInput                  bool `yaml:"human_input,omitempty"`
	RequireApprovalForTools     bool `yaml:"require_approval_for_tools,omitempty"`
	RequireApprovalForFinal     bool `yaml:"require_approval_for_final_answer,omitempty"`
	RequireHumanConfirmation    bool `yaml:"require_human_confirmation,omitempty"`
	ReviewPoints                []string `yaml:"review_points,omitempty"` // e.g. "completion"
}

// ============================================================================
// AGENT CONFIGURATION
// ============================================================================

// AgentConfig describes an Agent's immutable identity and bounds.
type AgentConfig struct {
	Name      string `yaml:"name"`
	Role      string `yaml:"role"`
	Goal      string `yaml:"goal"`
	Backstory string `yaml:"backstory,omitempty"`

	LLM string `yaml:"llm"` // reference into Config.LLMs

	MaxIterations     int `yaml:"max_iterations"`
	MaxExecutionTime  int `yaml:"max_execution_time"` // seconds

	Manager         bool     `yaml:"manager,omitempty"`
	AllowDelegation bool     `yaml:"allow_delegation,omitempty"`
	Subordinates    []string `yaml:"subordinates,omitempty"` // agent names, manager-only

	Tools []string `yaml:"tools,omitempty"` // tool names this agent is granted

	HumanOversightConfig `yaml:",inline"`
}

// Validate implements ConfigInterface for AgentConfig.
func (c *AgentConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Role == "" {
		return fmt.Errorf("role is required")
	}
	if c.LLM == "" {
		return fmt.Errorf("llm provider reference is required")
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be >= 1")
	}
	if c.MaxExecutionTime <= 0 {
		return fmt.Errorf("max_execution_time must be > 0")
	}
	if len(c.Subordinates) > 0 && !c.Manager {
		return fmt.Errorf("agent %q carries subordinates but is not a manager", c.Name)
	}
	return nil
}

// SetDefaults implements ConfigInterface for AgentConfig.
func (c *AgentConfig) SetDefaults() {
	if c.MaxIterations == 0 {
		c.MaxIterations = 15
	}
	if c.MaxExecutionTime == 0 {
		c.MaxExecutionTime = 300
	}
}

// MaxExecutionDuration returns MaxExecutionTime as a time.Duration.
func (c *AgentConfig) MaxExecutionDuration() time.Duration {
	return time.Duration(c.MaxExecutionTime) * time.Second
}

// ============================================================================
// TASK CONFIGURATION
// ============================================================================

// TaskConfig describes a unit of work bound to an agent.
type TaskConfig struct {
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	ExpectedOutput string   `yaml:"expected_output,omitempty"`
	Agent          string   `yaml:"agent,omitempty"` // reference into Config.Agents; optional for hierarchical auto-assignment
	Context        []string `yaml:"context,omitempty"` // prerequisite task names
	Tools          []string `yaml:"tools,omitempty"`   // task-local tools, unioned with the agent's

	MaxRetries int `yaml:"max_retries"`

	HumanOversightConfig `yaml:",inline"`
}

// Validate implements ConfigInterface for TaskConfig.
func (c *TaskConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Description == "" {
		return fmt.Errorf("description is required")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	return nil
}

// SetDefaults implements ConfigInterface for TaskConfig.
func (c *TaskConfig) SetDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
}

// ============================================================================
// CREW CONFIGURATION
// ============================================================================

// ProcessType enumerates the scheduling strategies a Crew can run under.
type ProcessType string

const (
	ProcessSequential  ProcessType = "sequential"
	ProcessHierarchical ProcessType = "hierarchical"
	ProcessConsensual  ProcessType = "consensual"
)

// CrewConfig is the declarative description of a Crew: its agents, tasks,
// and scheduling process.
type CrewConfig struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Process     ProcessType `yaml:"process"`
	Verbose     bool        `yaml:"verbose,omitempty"`

	Agents []string `yaml:"agents"` // agent names, references into Config.Agents
	Tasks  []string `yaml:"tasks"`  // task names, references into Config.Tasks

	MaxConcurrency int `yaml:"max_concurrency,omitempty"` // async execution only; 0 = runtime default (CPU count)
	TimeoutSeconds int `yaml:"timeout,omitempty"`         // async execution only, per task; 0 = default (300s)
}

// Validate implements ConfigInterface for CrewConfig.
func (c *CrewConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch c.Process {
	case ProcessSequential, ProcessHierarchical, ProcessConsensual:
	case "":
		return fmt.Errorf("process is required")
	default:
		return fmt.Errorf("unknown process type %q", c.Process)
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must be non-negative")
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	return nil
}

// SetDefaults implements ConfigInterface for CrewConfig.
func (c *CrewConfig) SetDefaults() {
	if c.Process == "" {
		c.Process = ProcessSequential
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 300
	}
}

// Timeout returns the per-task async timeout as a time.Duration.
func (c *CrewConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ============================================================================
// ROOT CONFIGURATION
// ============================================================================

// Config is the root configuration structure an embedder loads to hydrate
// one or more crews: a single entry point listing every LLM provider,
// agent, task, and crew definition, similar in spirit to a docker-compose
// file.
type Config struct {
	Version     string `yaml:"version,omitempty"`
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`

	LLMs  map[string]LLMProviderConfig `yaml:"llms,omitempty"`
	Agents map[string]AgentConfig      `yaml:"agents,omitempty"`
	Tasks  map[string]TaskConfig       `yaml:"tasks,omitempty"`
	Crews  map[string]CrewConfig       `yaml:"crews,omitempty"`
}

// Validate validates every nested configuration entry.
func (c *Config) Validate() error {
	for name, llm := range c.LLMs {
		if err := llm.Validate(); err != nil {
			return fmt.Errorf("llm %q: %w", name, err)
		}
	}
	for name, a := range c.Agents {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("agent %q: %w", name, err)
		}
		if _, ok := c.LLMs[a.LLM]; !ok {
			return fmt.Errorf("agent %q references unknown llm %q", name, a.LLM)
		}
	}
	for name, t := range c.Tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("task %q: %w", name, err)
		}
		if t.Agent != "" {
			if _, ok := c.Agents[t.Agent]; !ok {
				return fmt.Errorf("task %q references unknown agent %q", name, t.Agent)
			}
		}
		for _, dep := range t.Context {
			if _, ok := c.Tasks[dep]; !ok {
				return fmt.Errorf("task %q references unknown prerequisite %q", name, dep)
			}
		}
	}
	for name, crew := range c.Crews {
		if err := crew.Validate(); err != nil {
			return fmt.Errorf("crew %q: %w", name, err)
		}
		for _, agentName := range crew.Agents {
			if _, ok := c.Agents[agentName]; !ok {
				return fmt.Errorf("crew %q references unknown agent %q", name, agentName)
			}
		}
		for _, taskName := range crew.Tasks {
			if _, ok := c.Tasks[taskName]; !ok {
				return fmt.Errorf("crew %q references unknown task %q", name, taskName)
			}
		}
	}
	return nil
}

// SetDefaults applies defaults to every nested configuration entry.
func (c *Config) SetDefaults() {
	for name, llm := range c.LLMs {
		llm.SetDefaults()
		c.LLMs[name] = llm
	}
	for name, a := range c.Agents {
		a.SetDefaults()
		c.Agents[name] = a
	}
	for name, t := range c.Tasks {
		t.SetDefaults()
		c.Tasks[name] = t
	}
	for name, crew := range c.Crews {
		crew.SetDefaults()
		c.Crews[name] = crew
	}
}
