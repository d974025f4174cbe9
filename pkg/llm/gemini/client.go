package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"topovibe/pkg/llm"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"google.golang.org/genai"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GeminiClient Google Gemini API client
type GeminiClient struct {
	client       *genai.Client
	model        string
	useThought   bool
	debugEnabled bool
	bufferSize   int
}

// NewGeminiClient creates a Gemini client with a single model and API key
func NewGeminiClient(apiKey string, model string, useThought bool) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client:     client,
		model:      model,
		useThought: useThought,
		bufferSize: 100,
	}, nil
}

// SetDebug toggles raw packet dumps.
func (g *GeminiClient) SetDebug(enabled bool) {
	g.debugEnabled = enabled
}

func (g *GeminiClient) Provider() string {
	return "gemini"
}

// StreamChat implements llm.LLMClient.StreamChat
func (g *GeminiClient) StreamChat(ctx context.Context, messages []llm.Message, tools []llm.Tool) (<-chan llm.StreamChunk, error) {
	apiMessages, systemInstruction := g.convertMessages(messages)
	genaiTools := convertTools(tools)

	chunkCh := make(chan llm.StreamChunk, g.bufferSize)
	startResultCh := make(chan error, 1)

	slog.DebugContext(ctx, "Gemini streaming", "model", g.model, "tools", len(tools))

	go func() {
		defer close(chunkCh)

		var thinkingCfg *genai.ThinkingConfig
		if g.useThought {
			thinkingCfg = &genai.ThinkingConfig{IncludeThoughts: true}
		}

		iter := g.client.Models.GenerateContentStream(ctx, g.model, apiMessages, &genai.GenerateContentConfig{
			SystemInstruction: systemInstruction,
			Tools:             genaiTools,
			ThinkingConfig:    thinkingCfg,
		})

		debugger := llm.NewStreamDebugger(ctx, g.Provider(), g.debugEnabled)
		defer debugger.Close()

		started := false
		sawToolCall := false
		var lastUsage *llm.LLMUsage

		for resp, err := range iter {
			debugger.WriteJSON(resp)
			if err != nil {
				// The SDK may hand back a partial response together with the error.
				if resp == nil {
					slog.ErrorContext(ctx, "Gemini stream error", "error", err)
					if !started {
						startResultCh <- err
					} else {
						chunkCh <- llm.NewErrorChunk(fmt.Sprintf("Stream interrupted: %v", err), err, true)
					}
					return
				}
				slog.WarnContext(ctx, "Gemini stream error with data", "error", err)
			}

			if !started {
				started = true
				startResultCh <- nil
			}

			if u := resp.UsageMetadata; u != nil {
				lastUsage = &llm.LLMUsage{
					PromptTokens:     int(u.PromptTokenCount),
					CompletionTokens: int(u.CandidatesTokenCount),
					TotalTokens:      int(u.TotalTokenCount),
					ThoughtsTokens:   int(u.ThoughtsTokenCount),
					CachedTokens:     int(u.CachedContentTokenCount),
				}
			}

			for _, candidate := range resp.Candidates {
				if candidate.FinishReason == genai.FinishReasonMaxTokens {
					chunkCh <- llm.NewErrorChunk("Response truncated due to max tokens limit.", nil, false)
				}
				if candidate.Content == nil {
					continue
				}

				var chunk llm.StreamChunk
				for _, part := range candidate.Content.Parts {
					if part.Text != "" {
						if part.Thought {
							chunk.ContentBlocks = append(chunk.ContentBlocks, llm.NewThinkingBlock(part.Text))
						} else {
							chunk.ContentBlocks = append(chunk.ContentBlocks, llm.NewTextBlock(part.Text))
						}
					}

					if fc := part.FunctionCall; fc != nil {
						argsB, _ := json.Marshal(fc.Args)
						id := fc.ID
						if id == "" {
							// Gemini 串流常缺少 ID，自行產生以便配對工具結果
							id = uuid.NewString()
						}
						chunk.ToolCalls = append(chunk.ToolCalls, llm.ToolCall{
							ID:   id,
							Name: fc.Name,
							Function: llm.FunctionCall{
								Name:      fc.Name,
								Arguments: string(argsB),
							},
							// 保留原始 FunctionCall (含 thought_signature) 供下一輪回送
							Meta: map[string]any{"gemini_function_call": fc},
						})
						sawToolCall = true
						slog.DebugContext(ctx, "Gemini tool call", "name", fc.Name, "args", string(argsB))
					}
				}

				if len(chunk.ContentBlocks) > 0 || len(chunk.ToolCalls) > 0 {
					chunkCh <- chunk
				}
			}
		}

		if !started {
			// Empty stream: nothing arrived but no error either.
			started = true
			startResultCh <- nil
		}

		reason := llm.StopReasonStop
		if sawToolCall {
			reason = llm.StopReasonToolCall
		}
		if lastUsage != nil {
			lastUsage.StopReason = reason
			llm.LogUsage(ctx, g.model, lastUsage)
		}
		chunkCh <- llm.NewFinalChunk(reason, lastUsage)
	}()

	select {
	case err := <-startResultCh:
		if err != nil {
			return nil, err
		}
		return chunkCh, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// convertTools exposes every tool as a FunctionDeclaration carrying its raw
// JSON schema.
func convertTools(tools []llm.Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	fds := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		fds = append(fds, &genai.FunctionDeclaration{
			Name:                 t.Name(),
			Description:          t.Description(),
			ParametersJsonSchema: t.Parameters(),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: fds}}
}

// convertMessages converts message list to GenAI format
func (g *GeminiClient) convertMessages(messages []llm.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var systemInstruction *genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			if text := msg.GetTextContent(); text != "" {
				systemInstruction = &genai.Content{Parts: []*genai.Part{{Text: text}}}
			}
			continue

		case llm.RoleTool:
			// 工具結果在 Gemini 中屬於 user 角色
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       msg.ToolCallID,
						Name:     msg.ToolName,
						Response: map[string]any{"output": msg.GetTextContent()},
					},
				}},
			})
			continue
		}

		role := genai.RoleUser
		if msg.Role == llm.RoleAssistant {
			role = genai.RoleModel
		}

		var parts []*genai.Part
		for _, block := range msg.Content {
			if block.Text == "" {
				continue
			}
			switch block.Type {
			case llm.BlockTypeText:
				parts = append(parts, &genai.Part{Text: block.Text})
			case llm.BlockTypeThinking:
				parts = append(parts, &genai.Part{Text: block.Text, Thought: true})
			}
		}

		for _, tc := range msg.ToolCalls {
			if original, ok := tc.Meta["gemini_function_call"].(*genai.FunctionCall); ok {
				parts = append(parts, &genai.Part{FunctionCall: original})
				continue
			}
			var args map[string]any
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{Name: tc.Function.Name, Args: args},
			})
		}

		if len(parts) > 0 {
			contents = append(contents, &genai.Content{Role: role, Parts: parts})
		}
	}

	return contents, systemInstruction
}

// IsTransientError implements the llm.LLMClient interface
func (g *GeminiClient) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	// 503 Service Unavailable / Overloaded
	if strings.Contains(msg, "503") || strings.Contains(msg, "overloaded") {
		return true
	}
	// 429 Too Many Requests
	if strings.Contains(msg, "429") || strings.Contains(msg, "resource exhausted") {
		return true
	}
	// 500 Internal Error
	return strings.Contains(msg, "500") || strings.Contains(msg, "internal error")
}
