package agent

import (
	"reflect"
	"testing"
)

func TestParseToolCallsQuotedCommaNotSplit(t *testing.T) {
	calls := parseToolCalls(`USE_TOOL[search](k1="v, 1", k2=v2)`)
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1: %+v", len(calls), calls)
	}
	want := map[string]string{"k1": "v, 1", "k2": "v2"}
	if !reflect.DeepEqual(calls[0].Params, want) {
		t.Fatalf("params = %#v, want %#v", calls[0].Params, want)
	}
	if calls[0].Name != "search" {
		t.Fatalf("name = %q, want search", calls[0].Name)
	}
}

func TestParseToolCallsMultipleInOrder(t *testing.T) {
	text := `USE_TOOL[alpha](x=1) some text USE_TOOL[beta](y=2)`
	calls := parseToolCalls(text)
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if calls[0].Name != "alpha" || calls[1].Name != "beta" {
		t.Fatalf("calls out of order: %+v", calls)
	}
}

func TestParseToolCallsSingleQuotedValue(t *testing.T) {
	calls := parseToolCalls(`USE_TOOL[t](name='hello world')`)
	if len(calls) != 1 || calls[0].Params["name"] != "hello world" {
		t.Fatalf("calls = %+v", calls)
	}
}

func TestParseToolCallsNone(t *testing.T) {
	calls := parseToolCalls("just a plain response with no tool calls")
	if len(calls) != 0 {
		t.Fatalf("expected no calls, got %+v", calls)
	}
}

func TestExtractFinalAnswerSimple(t *testing.T) {
	content, ok := extractFinalAnswer("FINAL_ANSWER[x]\n")
	if !ok || content != "x" {
		t.Fatalf("content=%q ok=%v, want x/true", content, ok)
	}
}

func TestExtractFinalAnswerAnchorsToLastBracket(t *testing.T) {
	content, ok := extractFinalAnswer("FINAL_ANSWER[a list: [1, 2, 3] done]")
	if !ok {
		t.Fatalf("expected a match")
	}
	if content != "a list: [1, 2, 3] done" {
		t.Fatalf("content = %q, want full inner content up to the last ]", content)
	}
}

func TestExtractFinalAnswerAbsent(t *testing.T) {
	_, ok := extractFinalAnswer("no sentinel here")
	if ok {
		t.Fatalf("expected no match")
	}
}

func TestBestEffortFinalLastThreeLines(t *testing.T) {
	text := "line1\n\nline2\nline3\nline4"
	got := bestEffortFinal(text)
	want := "line2\nline3\nline4"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
