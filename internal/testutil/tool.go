package testutil

import (
	"context"
	"fmt"
)

// EchoTool is a minimal Tool used by tests to exercise USE_TOOL
// dispatch without depending on any concrete tool body (those are out
// of scope for this module).
type EchoTool struct {
	Name_ string
	Fail  bool
}

func (e *EchoTool) Name() string        { return e.Name_ }
func (e *EchoTool) Description() string { return "echoes its parameters back" }

func (e *EchoTool) Execute(ctx context.Context, params map[string]string) (string, error) {
	if e.Fail {
		return "", fmt.Errorf("echo tool configured to fail")
	}
	return fmt.Sprintf("echo:%v", params), nil
}
