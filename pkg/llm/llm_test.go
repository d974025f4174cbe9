package llm

import (
	"context"
	"errors"
	"testing"
)

type stubClient struct {
	name      string
	errs      []error
	calls     int
	transient bool
}

func (s *stubClient) StreamChat(ctx context.Context, messages []Message, tools []Tool) (<-chan StreamChunk, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	ch := make(chan StreamChunk, 1)
	ch <- NewFinalChunk(StopReasonStop, nil)
	close(ch)
	return ch, nil
}

func (s *stubClient) IsTransientError(err error) bool { return s.transient }
func (s *stubClient) Provider() string                { return s.name }

func TestFallbackClient(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name       string
		clients    []*stubClient
		maxRetries int
		wantErr    bool
		wantCalls  []int
	}{
		{
			name:      "first succeeds",
			clients:   []*stubClient{{name: "a"}, {name: "b"}},
			wantCalls: []int{1, 0},
		},
		{
			name:      "falls back on permanent error",
			clients:   []*stubClient{{name: "a", errs: []error{boom}}, {name: "b"}},
			wantCalls: []int{1, 1},
		},
		{
			name:       "retries transient error",
			clients:    []*stubClient{{name: "a", errs: []error{boom}, transient: true}, {name: "b"}},
			maxRetries: 2,
			wantCalls:  []int{2, 0},
		},
		{
			name:      "all fail",
			clients:   []*stubClient{{name: "a", errs: []error{boom}}, {name: "b", errs: []error{boom}}},
			wantErr:   true,
			wantCalls: []int{1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &FallbackClient{MaxRetries: tt.maxRetries}
			for _, c := range tt.clients {
				f.Clients = append(f.Clients, c)
			}

			_, err := f.StreamChat(context.Background(), nil, nil)
			if tt.wantErr {
				if !errors.Is(err, boom) {
					t.Errorf("error = %v, want wrapped boom", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			for i, c := range tt.clients {
				if c.calls != tt.wantCalls[i] {
					t.Errorf("client %s calls = %d, want %d", c.name, c.calls, tt.wantCalls[i])
				}
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name      string
		groups    []ProviderGroupConfig
		key       string
		model     string
		wantLen   int
		wantKey   string
		wantModel string
	}{
		{name: "no key leaves config", groups: nil, wantLen: 0},
		{name: "creates gemini group", key: "k", wantLen: 1, wantKey: "k", wantModel: defaultGeminiModel},
		{name: "uses env model", key: "k", model: "m", wantLen: 1, wantKey: "k", wantModel: "m"},
		{
			name:      "fills existing group",
			groups:    []ProviderGroupConfig{{Type: "gemini", Models: []string{"cfg"}}},
			key:       "k",
			model:     "m",
			wantLen:   1,
			wantKey:   "k",
			wantModel: "cfg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyEnv(tt.groups, tt.key, tt.model)
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			if tt.wantLen == 0 {
				return
			}
			if got[0].APIKeys[0] != tt.wantKey {
				t.Errorf("key = %q, want %q", got[0].APIKeys[0], tt.wantKey)
			}
			if got[0].Models[0] != tt.wantModel {
				t.Errorf("model = %q, want %q", got[0].Models[0], tt.wantModel)
			}
		})
	}
}

func TestMessageHelpers(t *testing.T) {
	m := NewAssistantMessage("hello ")
	m.AddContentBlock(NewThinkingBlock("hmm"))
	m.AddContentBlock(NewTextBlock("world"))

	if got := m.GetTextContent(); got != "hello world" {
		t.Errorf("GetTextContent() = %q", got)
	}
	if got := m.GetThinkingContent(); got != "hmm" {
		t.Errorf("GetThinkingContent() = %q", got)
	}

	tr := NewToolResultMessage(ToolCall{ID: "1", Name: "create_cube"}, "ok")
	if tr.Role != RoleTool || tr.ToolName != "create_cube" || tr.ToolCallID != "1" {
		t.Errorf("NewToolResultMessage() = %+v", tr)
	}
}
