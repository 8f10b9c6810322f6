// Package memory implements an Agent's per-agent recall of past task
// executions and tool uses: a bounded short-term FIFO, a
// bounded long-term store keyed by task type, and a similarity lookup
// (RelevantExecutions) that returns a formatted digest of relevant prior
// results. The agent package records into Memory; its prompt composition
// does not call RelevantExecutions.
package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// The short-term FIFO holds at most 100 entries,
// long-term holds at most 10 per task type, tool usage holds at most 50.
const (
	ShortTermCap       = 100
	LongTermCapPerType = 10
	ToolUsageCap       = 50
)

// TaskType is the keyword-derived classification tag used to bucket
// long-term executions and score similarity.
type TaskType string

const (
	TaskResearch TaskType = "research"
	TaskAnalysis TaskType = "analysis"
	TaskWriting  TaskType = "writing"
	TaskCoding   TaskType = "coding"
	TaskPlanning TaskType = "planning"
	TaskGeneral  TaskType = "general"
)

var taskTypeKeywords = map[TaskType][]string{
	TaskResearch: {"research", "investigate", "find", "gather", "search", "explore"},
	TaskAnalysis: {"analyze", "analysis", "evaluate", "assess", "examine", "compare"},
	TaskWriting:  {"write", "draft", "compose", "summarize", "document", "report"},
	TaskCoding:   {"code", "implement", "program", "debug", "refactor", "build"},
	TaskPlanning: {"plan", "schedule", "organize", "design", "strategy", "roadmap"},
}

// classify derives a TaskType from description keywords. The first
// matching bucket (in the fixed order above) wins; absent a match the
// type is "general".
func classify(description string) TaskType {
	lower := strings.ToLower(description)
	order := []TaskType{TaskResearch, TaskAnalysis, TaskWriting, TaskCoding, TaskPlanning}
	for _, t := range order {
		for _, kw := range taskTypeKeywords[t] {
			if strings.Contains(lower, kw) {
				return t
			}
		}
	}
	return TaskGeneral
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "into": true, "your": true, "about": true,
	"are": true, "was": true, "were": true, "has": true, "have": true,
	"will": true, "can": true, "should": true, "would": true, "could": true,
	"then": true, "than": true, "its": true, "our": true, "you": true,
}

// keywords tokenizes a description into a deduplicated, stopword-free
// keyword set: lowercase, alphanumeric-only tokens of length >= 3.
func keywords(text string) map[string]bool {
	set := make(map[string]bool)
	for _, raw := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if len(raw) < 3 || stopwords[raw] {
			continue
		}
		set[raw] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter, union := 0, len(b)
	for k := range a {
		if b[k] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func contentHash(description string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(strings.ToLower(description))))
	return hex.EncodeToString(sum[:])
}

// TaskInfo is the minimal task-shaped input Memory needs. It is
// satisfied without importing the task package (and therefore without
// creating an import cycle) by passing a plain struct literal.
type TaskInfo struct {
	Name        string
	Description string
}

// Execution is one recorded task attempt, short-term always, long-term
// only when successful.
type Execution struct {
	Name        string
	Description string
	Type        TaskType
	Result      string
	Elapsed     time.Duration
	Timestamp   time.Time
	Success     bool
	Hash        string
}

// ToolUsage is one recorded tool invocation.
type ToolUsage struct {
	Name      string
	Params    map[string]string
	Result    string
	Success   bool
	Timestamp time.Time
}

// Memory is an Agent's private recall store. All mutation is
// lock-guarded so two tasks running concurrently on the same Agent
// cannot interleave updates to the short-term FIFO, the long-term map,
// or the tool-usage FIFO.
type Memory struct {
	mu         sync.Mutex
	shortTerm  []Execution
	longTerm   map[TaskType][]Execution
	toolUsage  []ToolUsage
	nowFn      func() time.Time
}

// New creates an empty Memory store.
func New() *Memory {
	return &Memory{
		longTerm: make(map[TaskType][]Execution),
		nowFn:    time.Now,
	}
}

// AddExecution records one task attempt. Successful attempts are also
// folded into long-term[type], truncated to the 10 fastest.
func (m *Memory) AddExecution(task TaskInfo, result string, elapsed time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := Execution{
		Name:        task.Name,
		Description: task.Description,
		Type:        classify(task.Description),
		Result:      result,
		Elapsed:     elapsed,
		Timestamp:   m.nowFn(),
		Success:     success,
		Hash:        contentHash(task.Description),
	}

	m.shortTerm = append(m.shortTerm, rec)
	if len(m.shortTerm) > ShortTermCap {
		m.shortTerm = m.shortTerm[len(m.shortTerm)-ShortTermCap:]
	}

	if !success {
		return
	}
	bucket := append(m.longTerm[rec.Type], rec)
	sort.Slice(bucket, func(i, j int) bool { return bucket[i].Elapsed < bucket[j].Elapsed })
	if len(bucket) > LongTermCapPerType {
		bucket = bucket[:LongTermCapPerType]
	}
	m.longTerm[rec.Type] = bucket
}

// AddToolUsage records a tool invocation. Success is derived from the
// absence of the substring "error" in the result.
func (m *Memory) AddToolUsage(name string, params map[string]string, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := ToolUsage{
		Name:      name,
		Params:    params,
		Result:    result,
		Success:   !strings.Contains(strings.ToLower(result), "error"),
		Timestamp: m.nowFn(),
	}
	m.toolUsage = append(m.toolUsage, rec)
	if len(m.toolUsage) > ToolUsageCap {
		m.toolUsage = m.toolUsage[len(m.toolUsage)-ToolUsageCap:]
	}
}

// scored pairs a candidate Execution with its similarity to the query.
type scored struct {
	exec       Execution
	similarity float64
}

// similarity scores a candidate against a query task: an exact content
// hash match always scores 1.0; otherwise same-type keyword Jaccard
// plus a same-type bonus, clamped to 1.0.
func similarity(query TaskInfo, queryType TaskType, queryHash string, candidate Execution) float64 {
	if candidate.Hash == queryHash {
		return 1.0
	}
	score := jaccard(keywords(query.Description), keywords(candidate.Description))
	if candidate.Type == queryType {
		score += 0.2
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// RelevantExecutions returns a formatted digest of the top `limit` past
// executions whose similarity to task exceeds 0.7, sorted by similarity
// descending then by success. Returns ("", false) when nothing clears
// the threshold. Deterministic for a given Memory state.
func (m *Memory) RelevantExecutions(task TaskInfo, limit int) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	qType := classify(task.Description)
	qHash := contentHash(task.Description)

	var candidates []scored
	seen := make(map[string]bool)
	consider := func(e Execution) {
		key := e.Hash + "|" + e.Name + "|" + e.Timestamp.String()
		if seen[key] {
			return
		}
		seen[key] = true
		sim := similarity(task, qType, qHash, e)
		if sim > 0.7 {
			candidates = append(candidates, scored{exec: e, similarity: sim})
		}
	}
	for _, e := range m.shortTerm {
		consider(e)
	}
	for _, bucket := range m.longTerm {
		for _, e := range bucket {
			consider(e)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].similarity != candidates[j].similarity {
			return candidates[i].similarity > candidates[j].similarity
		}
		return candidates[i].exec.Success && !candidates[j].exec.Success
	})

	if len(candidates) == 0 {
		return "", false
	}
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}

	var b strings.Builder
	for _, c := range candidates[:limit] {
		fmt.Fprintf(&b, "Task: %s\nResult: %s\nSimilarity: %.2f\n---\n", c.exec.Name, c.exec.Result, c.similarity)
	}
	return b.String(), true
}
