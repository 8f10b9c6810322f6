// Package crewcore is a multi-agent orchestration core: given a
// declarative set of agents, tasks, and dependencies, it drives those
// tasks to completion by coordinating reasoning iterations against
// language-model clients, dispatching tool invocations, and enforcing
// dependency, concurrency, retry, and human-oversight policies.
//
// # Using as a Go Library
//
// Import the packages you need:
//
//	import (
//	    "github.com/crewcore/crewcore/agent"
//	    "github.com/crewcore/crewcore/config"
//	    "github.com/crewcore/crewcore/crew"
//	    "github.com/crewcore/crewcore/task"
//	)
//
// Build a crew, add agents and tasks, then execute:
//
//	researcher := agent.New("researcher", "Research Analyst",
//	    "Find relevant sources", "", client)
//
//	gather := task.New("gather", "Research the topic and gather sources")
//	gather.Agent = researcher
//
//	c := crew.New("demo", config.ProcessSequential)
//	c.AddAgent(researcher)
//	c.AddTask(gather)
//	summary, err := c.Execute(ctx, crew.ExecuteOptions{})
//
// Tasks may name other tasks as prerequisites; the async path schedules
// them in dependency phases on a bounded worker pool:
//
//	summary, err := c.Execute(ctx, crew.ExecuteOptions{
//	    Async:          true,
//	    MaxConcurrency: 4,
//	})
//
// # Architecture
//
//	Crew → Process (sequential | hierarchical | consensual) or AsyncExecutor
//	     → Task (dependencies, retries, human checkpoints)
//	     → Agent (reasoning loop, tool dispatch, delegation)
//	     → llms.Client / tools.Tool
//
// Concrete LLM provider bindings and tool bodies are intentionally not
// part of this module: implement llms.Client and tools.Tool and
// register them with the corresponding registry.
package crewcore
