package agent_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"topovibe/pkg/agent"
	"topovibe/pkg/config"
	"topovibe/pkg/llm"
	"topovibe/pkg/session"
	"topovibe/pkg/tools"
)

// scriptedClient replays one scripted response per StreamChat call.
type scriptedClient struct {
	rounds   [][]llm.StreamChunk
	calls    int
	seen     [][]llm.Message
	seenTool []int
	initErr  error
}

func (c *scriptedClient) StreamChat(ctx context.Context, messages []llm.Message, tools []llm.Tool) (<-chan llm.StreamChunk, error) {
	if c.initErr != nil {
		return nil, c.initErr
	}
	c.seen = append(c.seen, append([]llm.Message(nil), messages...))
	c.seenTool = append(c.seenTool, len(tools))

	var chunks []llm.StreamChunk
	if c.calls < len(c.rounds) {
		chunks = c.rounds[c.calls]
	} else {
		chunks = []llm.StreamChunk{llm.NewTextChunk("done"), llm.NewFinalChunk(llm.StopReasonStop, nil)}
	}
	c.calls++

	ch := make(chan llm.StreamChunk, len(chunks))
	for _, chunk := range chunks {
		ch <- chunk
	}
	close(ch)
	return ch, nil
}

func (c *scriptedClient) IsTransientError(error) bool { return false }
func (c *scriptedClient) Provider() string            { return "scripted" }

func toolCall(id, name, args string) llm.StreamChunk {
	return llm.StreamChunk{ToolCalls: []llm.ToolCall{{
		ID:       id,
		Name:     name,
		Function: llm.FunctionCall{Name: name, Arguments: args},
	}}}
}

func testConfig() *config.SystemConfig {
	cfg := config.DefaultSystemConfig()
	cfg.ThinkingInitDelayMs = 0
	return cfg
}

func drain(t *testing.T, ch <-chan agent.Update) []agent.Update {
	t.Helper()
	var out []agent.Update
	for u := range ch {
		out = append(out, u)
	}
	return out
}

func TestStream_ToolRound(t *testing.T) {
	s := session.New()
	s.AddMessage(session.RoleUser, "make a cube called box")
	sc := session.Context{Session: s}

	client := &scriptedClient{rounds: [][]llm.StreamChunk{
		{toolCall("c1", "create_cube", `{"size": 2, "name": "box"}`), llm.NewFinalChunk(llm.StopReasonToolCall, nil)},
		{llm.NewTextChunk("Created "), llm.NewTextChunk("the cube."), llm.NewFinalChunk(llm.StopReasonStop, nil)},
	}}
	a := agent.New(client, tools.NewCatalogue(sc), testConfig())

	ch, err := a.Stream(context.Background(), sc, "be helpful")
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	updates := drain(t, ch)

	if len(updates) != 5 {
		t.Fatalf("expected 5 updates, got %d: %+v", len(updates), updates)
	}
	if u := updates[0]; u.ToolCall != "create_cube" || u.Text != "Using 'create_cube' tool ..." {
		t.Errorf("placeholder = %+v", u)
	}
	if u := updates[1]; u.Step != agent.StepTools || !strings.HasPrefix(u.Text, "A cube with name box") {
		t.Errorf("tool result = %+v", u)
	}
	last := updates[len(updates)-1]
	if !last.Final || last.Text != "Created the cube." {
		t.Errorf("final = %+v", last)
	}

	if _, ok := s.Get("box"); !ok {
		t.Error("tool did not mutate the session")
	}
	if n := len(s.Messages()); n != 1 {
		t.Errorf("agent must not persist messages, got %d", n)
	}

	// Second round sees: system, user, assistant tool call, tool result.
	if got := len(client.seen[1]); got != 4 {
		t.Fatalf("second round history length = %d", got)
	}
	if tr := client.seen[1][3]; tr.Role != llm.RoleTool || tr.ToolCallID != "c1" {
		t.Errorf("tool result message = %+v", tr)
	}
	if client.seen[0][0].Role != llm.RoleSystem {
		t.Errorf("first message should be the system prompt")
	}
}

func TestStream_ToolFailures(t *testing.T) {
	tests := []struct {
		name string
		call llm.StreamChunk
		want string
	}{
		{"unknown tool", toolCall("1", "create_torus", `{}`), "Error: Unknown tool 'create_torus'"},
		{"bad json", toolCall("2", "create_cube", `{"size":`), "Error: Failed to parse tool arguments"},
		{"precondition", toolCall("3", "create_face", `{"points": [[0,0],[1,0]]}`), "Error: At least three points are required to create a face."},
		{"empty arguments", toolCall("4", "list_session_items", ``), "The session is empty."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := session.New()
			sc := session.Context{Session: s}
			client := &scriptedClient{rounds: [][]llm.StreamChunk{{tt.call, llm.NewFinalChunk(llm.StopReasonToolCall, nil)}}}

			ch, _ := agent.New(client, tools.NewCatalogue(sc), testConfig()).Stream(context.Background(), sc, "")
			updates := drain(t, ch)

			var result string
			for _, u := range updates {
				if u.Step == agent.StepTools {
					result = u.Text
				}
			}
			if !strings.HasPrefix(result, tt.want) {
				t.Errorf("tool result = %q, want prefix %q", result, tt.want)
			}
			if !updates[len(updates)-1].Final {
				t.Error("turn should still finish normally")
			}
		})
	}
}

func TestStream_RoundLimit(t *testing.T) {
	s := session.New()
	sc := session.Context{Session: s}

	loop := []llm.StreamChunk{toolCall("x", "list_session_items", `{}`), llm.NewFinalChunk(llm.StopReasonToolCall, nil)}
	client := &scriptedClient{rounds: [][]llm.StreamChunk{loop, loop, loop, loop}}

	cfg := testConfig()
	cfg.MaxToolRounds = 2
	ch, _ := agent.New(client, tools.NewCatalogue(sc), cfg).Stream(context.Background(), sc, "")
	updates := drain(t, ch)

	if client.calls != 3 {
		t.Errorf("expected 3 model calls, got %d", client.calls)
	}
	if client.seenTool[2] != 0 {
		t.Errorf("last round must not offer tools, offered %d", client.seenTool[2])
	}
	if !updates[len(updates)-1].Final {
		t.Error("expected a final update")
	}
}

func TestStream_Errors(t *testing.T) {
	sc := session.Context{Session: session.New()}

	t.Run("init error", func(t *testing.T) {
		client := &scriptedClient{initErr: errors.New("401 unauthorized")}
		ch, err := agent.New(client, nil, testConfig()).Stream(context.Background(), sc, "")
		if err != nil {
			t.Fatalf("Stream failed: %v", err)
		}
		updates := drain(t, ch)
		if len(updates) != 1 || updates[0].Err == nil {
			t.Fatalf("expected a single error update, got %+v", updates)
		}
	})

	t.Run("stream interrupted", func(t *testing.T) {
		boom := errors.New("connection reset")
		client := &scriptedClient{rounds: [][]llm.StreamChunk{{
			llm.NewTextChunk("partial"),
			llm.NewErrorChunk("Stream interrupted", boom, true),
		}}}
		ch, _ := agent.New(client, nil, testConfig()).Stream(context.Background(), sc, "")
		updates := drain(t, ch)
		last := updates[len(updates)-1]
		if !errors.Is(last.Err, boom) {
			t.Errorf("expected wrapped stream error, got %+v", last)
		}
	})

	t.Run("no session", func(t *testing.T) {
		_, err := agent.New(&scriptedClient{}, nil, testConfig()).Stream(context.Background(), session.Context{}, "")
		if !errors.Is(err, agent.ErrNoSession) {
			t.Errorf("expected ErrNoSession, got %v", err)
		}
	})
}

type panicTool struct{}

func (panicTool) Name() string               { return "explode" }
func (panicTool) Description() string        { return "panics" }
func (panicTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (panicTool) Execute(context.Context, map[string]any) (*tools.ToolResult, error) {
	panic("boom")
}

func TestStream_ToolPanicRecovered(t *testing.T) {
	sc := session.Context{Session: session.New()}
	reg := tools.NewToolRegistry()
	reg.Register(panicTool{})

	client := &scriptedClient{rounds: [][]llm.StreamChunk{{toolCall("p", "explode", `{}`), llm.NewFinalChunk(llm.StopReasonToolCall, nil)}}}
	ch, _ := agent.New(client, reg, testConfig()).Stream(context.Background(), sc, "")

	for _, u := range drain(t, ch) {
		if u.Step == agent.StepTools && u.Text != "Error: Internal processing panic" {
			t.Errorf("tool result = %q", u.Text)
		}
	}
}

func TestStream_ThinkingHidden(t *testing.T) {
	sc := session.Context{Session: session.New()}
	client := &scriptedClient{rounds: [][]llm.StreamChunk{{
		llm.NewThinkingChunk("hmm"),
		llm.NewTextChunk("hi"),
		llm.NewFinalChunk(llm.StopReasonStop, nil),
	}}}

	ch, _ := agent.New(client, nil, testConfig()).Stream(context.Background(), sc, "")
	for _, u := range drain(t, ch) {
		if u.Thinking {
			t.Errorf("thinking should be hidden by default: %+v", u)
		}
		if u.Final && u.Text != "hi" {
			t.Errorf("final text = %q", u.Text)
		}
	}
}
