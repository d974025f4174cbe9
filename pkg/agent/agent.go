// Package agent runs the model/tool loop for one user turn and reports its
// progress as a stream of Updates.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"topovibe/pkg/api"
	"topovibe/pkg/config"
	"topovibe/pkg/llm"
	"topovibe/pkg/session"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoSession is returned by Stream when the context is not bound to a session.
var ErrNoSession = errors.New("agent: session context has no session")

// Step tells which part of the loop produced an Update.
type Step string

const (
	StepModel Step = "model"
	StepTools Step = "tools"
)

// Update is one increment of an agent turn.
type Update struct {
	Step     Step
	ToolCall string // tool name, set on placeholders and tool results
	Text     string // delta, placeholder, tool result or final answer
	Thinking bool   // Text is model reasoning rather than answer text
	Signal   string // UI hint such as "thinking", no text attached
	Final    bool   // Text holds the complete answer of the last model round
	Err      error
}

// Agent binds an LLM client to a tool catalogue.
type Agent struct {
	client   llm.LLMClient
	registry api.ToolRegistry
	sysCfg   *config.SystemConfig
}

// New creates an Agent. A nil registry disables tool calling.
func New(client llm.LLMClient, registry api.ToolRegistry, sysCfg *config.SystemConfig) *Agent {
	if sysCfg == nil {
		sysCfg = config.DefaultSystemConfig()
	}
	return &Agent{
		client:   client,
		registry: registry,
		sysCfg:   sysCfg,
	}
}

// Placeholder is the text shown while a tool runs.
func Placeholder(tool string) string {
	return fmt.Sprintf("Using '%s' tool ...", tool)
}

// Stream answers the last user message of sc.Session. The returned channel
// yields text deltas, tool placeholders and tool results, then exactly one
// Final or Err update, and is closed. Stream does not write to the session's
// messages; persisting the answer is up to the caller.
func (a *Agent) Stream(ctx context.Context, sc session.Context, systemPrompt string) (<-chan Update, error) {
	if sc.Session == nil {
		return nil, ErrNoSession
	}

	history := make([]llm.Message, 0, len(sc.Session.Messages())+1)
	if systemPrompt != "" {
		history = append(history, llm.NewSystemMessage(systemPrompt))
	}
	for _, m := range sc.Session.Messages() {
		history = append(history, llm.NewTextMessage(m.Role, m.Content))
	}

	out := make(chan Update, a.sysCfg.InternalChannelBuffer)
	go a.run(ctx, history, out)
	return out, nil
}

func (a *Agent) run(ctx context.Context, history []llm.Message, out chan<- Update) {
	defer close(out)

	if a.sysCfg.LLMTimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(a.sysCfg.LLMTimeoutMs)*time.Millisecond)
		defer cancel()
	}

	send := func(u Update) bool {
		select {
		case out <- u:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for round := 0; ; round++ {
		// 超過工具輪數上限後不再提供工具，迫使模型直接回答
		offerTools := a.toolsEnabled() && round < a.sysCfg.MaxToolRounds
		var tools []llm.Tool
		if offerTools {
			for _, t := range a.registry.GetAll() {
				tools = append(tools, t)
			}
		}

		chunkCh, err := a.client.StreamChat(ctx, history, tools)
		if err != nil {
			slog.ErrorContext(ctx, "LLM stream init failed", "round", round, "error", err)
			send(Update{Step: StepModel, Err: fmt.Errorf("stream initiation: %w", err)})
			return
		}

		reply, err := a.collect(ctx, chunkCh, send)
		if err != nil {
			slog.ErrorContext(ctx, "LLM stream failed", "round", round, "error", err)
			send(Update{Step: StepModel, Err: err})
			return
		}

		if len(reply.ToolCalls) == 0 || !offerTools {
			if len(reply.ToolCalls) > 0 {
				slog.WarnContext(ctx, "Ignoring tool calls past the round limit", "count", len(reply.ToolCalls))
			}
			send(Update{Step: StepModel, Final: true, Text: reply.GetTextContent()})
			return
		}

		history = append(history, reply)
		for _, tc := range reply.ToolCalls {
			if !send(Update{Step: StepModel, ToolCall: tc.Name, Text: Placeholder(tc.Name)}) {
				return
			}
			result := a.executeTool(ctx, tc)
			history = append(history, llm.NewToolResultMessage(tc, result))
			if !send(Update{Step: StepTools, ToolCall: tc.Name, Text: result}) {
				return
			}
		}
	}
}

func (a *Agent) toolsEnabled() bool {
	return a.registry != nil && a.sysCfg.EnableTools
}

// collect drains one model stream, forwarding deltas as they arrive, and
// returns the assembled assistant message.
func (a *Agent) collect(ctx context.Context, chunkCh <-chan llm.StreamChunk, send func(Update) bool) (llm.Message, error) {
	msg := llm.Message{Role: llm.RoleAssistant, Timestamp: time.Now().Unix()}

	var timerChan <-chan time.Time
	if a.sysCfg.ThinkingInitDelayMs > 0 {
		thinkingTimer := time.NewTimer(time.Duration(a.sysCfg.ThinkingInitDelayMs) * time.Millisecond)
		defer thinkingTimer.Stop()
		timerChan = thinkingTimer.C
	}

	for {
		select {
		case <-ctx.Done():
			return msg, ctx.Err()

		case <-timerChan:
			send(Update{Step: StepModel, Signal: "thinking"})
			timerChan = nil

		case chunk, ok := <-chunkCh:
			if !ok {
				return msg, nil
			}
			timerChan = nil

			if chunk.RawError != nil && chunk.IsFinal {
				return msg, chunk.RawError
			}
			if chunk.Error != "" {
				send(Update{Step: StepModel, Text: "\n⚠️ " + chunk.Error})
			}

			for _, block := range chunk.ContentBlocks {
				msg.AddContentBlock(block)
				switch block.Type {
				case llm.BlockTypeText:
					send(Update{Step: StepModel, Text: block.Text})
				case llm.BlockTypeThinking:
					if a.sysCfg.ShowThinking {
						send(Update{Step: StepModel, Text: block.Text, Thinking: true})
					}
				}
			}

			msg.ToolCalls = append(msg.ToolCalls, chunk.ToolCalls...)
			if chunk.Usage != nil {
				msg.Usage = chunk.Usage
			}

			if chunk.IsFinal {
				return msg, nil
			}
		}
	}
}

// executeTool always yields text for the model: failures and panics are
// reported as "Error: ..." results rather than aborting the turn.
func (a *Agent) executeTool(ctx context.Context, tc llm.ToolCall) (result string) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Tool execution panicked", "tool", tc.Name, "error", r)
			result = "Error: Internal processing panic"
		}
	}()

	name := strings.TrimPrefix(tc.Name, "functions.")
	tool, ok := a.registry.Get(name)
	if !ok {
		slog.ErrorContext(ctx, "Unknown tool call", "name", tc.Name)
		return fmt.Sprintf("Error: Unknown tool '%s'", tc.Name)
	}

	args := map[string]any{}
	if s := strings.TrimSpace(tc.Function.Arguments); s != "" {
		if err := json.Unmarshal([]byte(s), &args); err != nil {
			slog.ErrorContext(ctx, "Failed to parse tool args", "tool", name, "error", err)
			return fmt.Sprintf("Error: Failed to parse tool arguments: %v", err)
		}
	}

	slog.InfoContext(ctx, "Executing tool", "name", name, "args", args)
	res, err := tool.Execute(ctx, args)
	if err != nil {
		slog.ErrorContext(ctx, "Tool execution error", "name", name, "error", err)
		return fmt.Sprintf("Error: Tool execution failed: %v", err)
	}

	if text := res.Text(); text != "" {
		return text
	}
	return "(No output)"
}
