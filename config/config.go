// Package config provides configuration types and utilities for the crew
// orchestration engine.
// This file contains the YAML loading entry points and lookup helpers for
// the unified Config surface declared in types.go.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ============================================================================
// CONFIGURATION LOADING
// ============================================================================

// LoadConfig loads the complete configuration from a YAML file: it
// hydrates the process environment from .env files, expands environment
// variable references, applies defaults, and validates the result. This
// is the main entry point for an embedder that wants to hydrate a Crew
// declaratively rather than build one in code.
func LoadConfig(filePath string) (*Config, error) {
	if err := LoadEnvFiles(); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}
	cfg, err := LoadConfigFromString(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", filePath, err)
	}
	return cfg, nil
}

// LoadConfigFromString loads configuration from a YAML string, expands
// environment variable references, applies defaults, and validates it.
func LoadConfigFromString(yamlContent string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(ExpandEnvVars(yamlContent)), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// ============================================================================
// HELPER METHODS
// ============================================================================

// GetLLM returns an LLM provider configuration by name.
func (c *Config) GetLLM(name string) (*LLMProviderConfig, bool) {
	llm, exists := c.LLMs[name]
	return &llm, exists
}

// GetAgent returns an agent configuration by name.
func (c *Config) GetAgent(name string) (*AgentConfig, bool) {
	agent, exists := c.Agents[name]
	return &agent, exists
}

// GetTask returns a task configuration by name.
func (c *Config) GetTask(name string) (*TaskConfig, bool) {
	task, exists := c.Tasks[name]
	return &task, exists
}

// GetCrew returns a crew configuration by name.
func (c *Config) GetCrew(name string) (*CrewConfig, bool) {
	crew, exists := c.Crews[name]
	return &crew, exists
}

// ListAgents returns a list of all agent names.
func (c *Config) ListAgents() []string {
	agents := make([]string, 0, len(c.Agents))
	for name := range c.Agents {
		agents = append(agents, name)
	}
	return agents
}

// ListTasks returns a list of all task names.
func (c *Config) ListTasks() []string {
	tasks := make([]string, 0, len(c.Tasks))
	for name := range c.Tasks {
		tasks = append(tasks, name)
	}
	return tasks
}

// ListCrews returns a list of all crew names.
func (c *Config) ListCrews() []string {
	crews := make([]string, 0, len(c.Crews))
	for name := range c.Crews {
		crews = append(crews, name)
	}
	return crews
}
