package ollama

import (
	"bytes"
	"io"
	"testing"

	"topovibe/pkg/llm"
)

type schemaTool struct{}

func (schemaTool) Name() string        { return "create_vertex" }
func (schemaTool) Description() string { return "Creates a vertex." }
func (schemaTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "number"},
		},
		"required": []string{"x"},
	}
}

func TestConvertTools(t *testing.T) {
	out := convertTools([]llm.Tool{schemaTool{}})
	if len(out) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(out))
	}
	if out[0].Function.Name != "create_vertex" {
		t.Errorf("name = %q", out[0].Function.Name)
	}
	if convertTools(nil) != nil {
		t.Error("no tools should convert to nil")
	}
}

func TestConvertMessages(t *testing.T) {
	assistant := llm.NewAssistantMessage("")
	assistant.ToolCalls = []llm.ToolCall{{
		ID:       "c1",
		Name:     "create_vertex",
		Function: llm.FunctionCall{Name: "create_vertex", Arguments: `{"x":1}`},
	}}
	msgs := []llm.Message{
		llm.NewSystemMessage("sys"),
		llm.NewUserMessage("hi"),
		assistant,
		llm.NewToolResultMessage(assistant.ToolCalls[0], "done"),
	}

	out := convertMessages(msgs)
	if len(out) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(out))
	}
	if out[1].Content != "hi" {
		t.Errorf("user content = %q", out[1].Content)
	}
	if len(out[2].ToolCalls) != 1 || out[2].ToolCalls[0].Function.Name != "create_vertex" {
		t.Errorf("assistant tool calls not converted: %+v", out[2].ToolCalls)
	}
	if out[3].Role != llm.RoleTool || out[3].ToolCallID != "c1" {
		t.Errorf("tool result = %+v", out[3])
	}
}

func TestJSONFixingReadCloser(t *testing.T) {
	body := io.NopCloser(bytes.NewBufferString(`{"content":"costs \$5"}`))
	r := &jsonFixingReadCloser{body: body}

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if want := `{"content":"costs $5"}`; string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
