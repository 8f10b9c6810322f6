package memory

import (
	"testing"
	"time"
)

func TestAddExecutionCapsShortTerm(t *testing.T) {
	m := New()
	for i := 0; i < ShortTermCap+10; i++ {
		m.AddExecution(TaskInfo{Name: "t", Description: "write a report about quarterly sales"}, "ok", time.Millisecond, true)
	}
	if len(m.shortTerm) != ShortTermCap {
		t.Fatalf("short-term len = %d, want %d", len(m.shortTerm), ShortTermCap)
	}
}

func TestAddExecutionLongTermKeepsFastest(t *testing.T) {
	m := New()
	for i := 0; i < LongTermCapPerType+5; i++ {
		elapsed := time.Duration(LongTermCapPerType+5-i) * time.Second
		m.AddExecution(TaskInfo{
			Name:        "t",
			Description: "write unique report number distinct-marker-unique",
		}, "ok", elapsed, true)
	}
	bucket := m.longTerm[TaskWriting]
	if len(bucket) != LongTermCapPerType {
		t.Fatalf("long-term bucket len = %d, want %d", len(bucket), LongTermCapPerType)
	}
	for i := 1; i < len(bucket); i++ {
		if bucket[i].Elapsed < bucket[i-1].Elapsed {
			t.Fatalf("bucket not sorted ascending by elapsed")
		}
	}
}

func TestAddExecutionLongTermOnlySuccess(t *testing.T) {
	m := New()
	m.AddExecution(TaskInfo{Name: "t", Description: "analyze the quarterly numbers"}, "failed: error", time.Second, false)
	if len(m.longTerm[TaskAnalysis]) != 0 {
		t.Fatalf("failed execution must not enter long-term")
	}
}

func TestToolUsageCap(t *testing.T) {
	m := New()
	for i := 0; i < ToolUsageCap+7; i++ {
		m.AddToolUsage("search", map[string]string{"q": "x"}, "ok")
	}
	if len(m.toolUsage) != ToolUsageCap {
		t.Fatalf("tool usage len = %d, want %d", len(m.toolUsage), ToolUsageCap)
	}
}

func TestToolUsageSuccessDerivedFromResult(t *testing.T) {
	m := New()
	m.AddToolUsage("search", nil, "encountered an error: timeout")
	if m.toolUsage[0].Success {
		t.Fatalf("expected success=false when result contains \"error\"")
	}
}

func TestSimilarityExactHashMatch(t *testing.T) {
	m := New()
	desc := "research the competitive landscape for widget pricing"
	m.AddExecution(TaskInfo{Name: "a", Description: desc}, "findings here", time.Second, true)

	out, ok := m.RelevantExecutions(TaskInfo{Name: "b", Description: desc}, 3)
	if !ok {
		t.Fatalf("expected a relevant match for identical description")
	}
	if out == "" {
		t.Fatalf("expected non-empty formatted output")
	}
}

func TestSimilarityDisjointKeywordsLowScore(t *testing.T) {
	q := TaskInfo{Name: "q", Description: "write summary draft compose document report"}
	c := Execution{
		Name:        "c",
		Description: "implement debug refactor program build code",
		Type:        TaskWriting, // forced same type, disjoint keywords
		Hash:        "different-hash",
	}
	qType := TaskWriting
	sim := similarity(q, qType, "query-hash", c)
	if sim > 0.2+1e-9 {
		t.Fatalf("expected disjoint same-type similarity <= 0.2, got %f", sim)
	}
}

func TestSimilaritySelfAlwaysHigh(t *testing.T) {
	desc := "plan the roadmap for next quarter release schedule"
	q := TaskInfo{Name: "q", Description: desc}
	hash := contentHash(desc)
	c := Execution{Name: "q", Description: desc, Type: classify(desc), Hash: hash}
	sim := similarity(q, classify(desc), hash, c)
	if sim < 0.8 {
		t.Fatalf("expected self-similarity >= 0.8, got %f", sim)
	}
}

func TestRelevantExecutionsThreshold(t *testing.T) {
	m := New()
	m.AddExecution(TaskInfo{Name: "a", Description: "completely unrelated topic about zoology habitats"}, "ok", time.Second, true)

	_, ok := m.RelevantExecutions(TaskInfo{Name: "b", Description: "write a marketing blog post today"}, 3)
	if ok {
		t.Fatalf("expected no match above threshold for unrelated descriptions")
	}
}

func TestClassifyKeywords(t *testing.T) {
	cases := map[string]TaskType{
		"research the market":      TaskResearch,
		"analyze the results":      TaskAnalysis,
		"write a summary":          TaskWriting,
		"implement the feature":    TaskCoding,
		"plan next quarter":        TaskPlanning,
		"say hello to the team":    TaskGeneral,
	}
	for desc, want := range cases {
		if got := classify(desc); got != want {
			t.Errorf("classify(%q) = %q, want %q", desc, got, want)
		}
	}
}
