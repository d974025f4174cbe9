package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"topovibe/pkg/agent"
	"topovibe/pkg/api"
	"topovibe/pkg/config"
	"topovibe/pkg/llm"
	"topovibe/pkg/scene"
	"topovibe/pkg/session"
	"topovibe/pkg/utils"
)

// ChatHandler orchestrates one conversation turn: it records the user
// message, runs the agent, forwards its progress to the originating channel
// and persists the final answer.
// It implements api.GatewayHandler.
type ChatHandler struct {
	agent     *agent.Agent         // Model/tool loop
	session   *session.Session     // The single modelling session of this process
	tools     api.ToolRegistry     // Catalogue, used by slash commands
	sysCfg    *config.SystemConfig // Technical/engine-level configuration parameters
	responder api.MessageResponder // Routes replies back through the gateway

	mu     sync.Mutex // Serializes turns
	prompt string
	pmu    sync.RWMutex
}

// NewChatHandler wires a handler. SetResponder must be called before the
// first message; the gateway builder does so.
func NewChatHandler(ag *agent.Agent, sess *session.Session, tools api.ToolRegistry, systemPrompt string, sysCfg *config.SystemConfig) *ChatHandler {
	return &ChatHandler{
		agent:   ag,
		session: sess,
		tools:   tools,
		sysCfg:  sysCfg,
		prompt:  systemPrompt,
	}
}

// SetResponder implements api.ResponderAware.
func (h *ChatHandler) SetResponder(responder api.MessageResponder) {
	h.responder = responder
}

// SetSystemPrompt replaces the instruction used from the next turn on.
func (h *ChatHandler) SetSystemPrompt(prompt string) {
	h.pmu.Lock()
	defer h.pmu.Unlock()
	h.prompt = prompt
}

func (h *ChatHandler) systemPrompt() string {
	h.pmu.RLock()
	defer h.pmu.RUnlock()
	return h.prompt
}

// OnMessage is the primary entry point for processing incoming user messages.
func (h *ChatHandler) OnMessage(msg *api.UnifiedMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if msg.DebugID == "" {
		msg.DebugID = utils.GenerateID()
	}
	ctx := context.WithValue(context.Background(), llm.DebugDirContextKey, msg.DebugID)
	start := time.Now()

	slog.InfoContext(ctx, "Message received", "channel", msg.Peer.ChannelID, "user", msg.Peer.Username, "content", msg.Content)

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return
	}

	// Slash commands never reach the model and are not recorded.
	if strings.HasPrefix(content, "/") {
		h.handleSlashCommand(ctx, msg.Peer, content)
		return
	}

	h.session.AddMessage(session.RoleUser, content)

	answer, err := h.runAgent(ctx, msg.Peer)
	if err != nil {
		slog.ErrorContext(ctx, "Agent turn failed", "error", err)
		h.reply(ctx, msg.Peer, fmt.Sprintf("❌ %v", err))
	} else if answer != "" {
		h.session.AddMessage(session.RoleAssistant, answer)
	}

	// Tools may have changed the scene even when the turn failed later on.
	if err := h.responder.PublishScene(msg.Peer); err != nil {
		slog.WarnContext(ctx, "Failed to publish scene", "error", err)
	}

	slog.InfoContext(ctx, "Agent loop finished", "duration", time.Since(start).String())
}

// runAgent forwards the agent's updates to the channel and returns the final
// answer text.
func (h *ChatHandler) runAgent(ctx context.Context, peer api.Peer) (string, error) {
	updates, err := h.agent.Stream(ctx, session.Context{Session: h.session}, h.systemPrompt())
	if err != nil {
		return "", err
	}

	out := newBlockStream(h.responder, peer, h.sysCfg.InternalChannelBuffer)
	defer out.close()

	var answer string
	var turnErr error
	for u := range updates {
		switch {
		case u.Err != nil:
			turnErr = u.Err
		case u.Final:
			answer = u.Text
		case u.Signal != "":
			_ = h.responder.SendSignal(peer, u.Signal)
		case u.Step == agent.StepModel && u.ToolCall != "":
			// 佔位訊息獨立成一則，前面的串流先收尾
			out.close()
			_ = h.responder.SendSignal(peer, "tool:"+u.ToolCall)
			h.reply(ctx, peer, "🛠️ "+u.Text)
		case u.Step == agent.StepTools:
			slog.DebugContext(ctx, "Tool result", "tool", u.ToolCall, "result", u.Text)
		case u.Thinking:
			out.send(llm.NewThinkingBlock(u.Text))
		default:
			out.send(llm.NewTextBlock(u.Text))
		}
	}
	return answer, turnErr
}

func (h *ChatHandler) reply(ctx context.Context, peer api.Peer, text string) {
	if err := h.responder.SendReply(peer, text); err != nil {
		slog.ErrorContext(ctx, "Failed to send reply", "error", err)
	}
}

// handleSlashCommand executes the local commands that inspect or reset the
// session.
func (h *ChatHandler) handleSlashCommand(ctx context.Context, peer api.Peer, content string) {
	cmd, arg, _ := strings.Cut(strings.TrimPrefix(content, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "items":
		h.reply(ctx, peer, FormatInventory(scene.Inventory(h.session.Items())))

	case "info":
		if arg == "" {
			h.reply(ctx, peer, "❌ Usage: /info <name>")
			return
		}
		h.reply(ctx, peer, h.runTool(ctx, "get_object_info", map[string]any{"name": arg}))

	case "clear":
		h.session.ClearMessages()
		h.reply(ctx, peer, "🧹 Chat history cleared.")

	case "reset":
		h.session.ClearItems()
		h.reply(ctx, peer, "🗑️ All objects removed.")
		if err := h.responder.PublishScene(peer); err != nil {
			slog.WarnContext(ctx, "Failed to publish scene", "error", err)
		}

	case "tools":
		var sb strings.Builder
		sb.WriteString("Available tools:")
		for _, t := range h.tools.GetAll() {
			fmt.Fprintf(&sb, "\n- %s: %s", t.Name(), t.Description())
		}
		h.reply(ctx, peer, sb.String())

	default:
		h.reply(ctx, peer, fmt.Sprintf("❌ Unknown command: /%s\nAvailable: /items, /info <name>, /clear, /reset, /tools", cmd))
	}
}

func (h *ChatHandler) runTool(ctx context.Context, name string, args map[string]any) string {
	tool, ok := h.tools.Get(name)
	if !ok {
		return fmt.Sprintf("❌ Tool not found: %s", name)
	}
	res, err := tool.Execute(ctx, args)
	if err != nil {
		return fmt.Sprintf("❌ Execution error: %v", err)
	}
	return res.Text()
}

// FormatInventory renders rows as a two column text table.
func FormatInventory(rows []scene.InventoryRow) string {
	if len(rows) == 0 {
		return "The session is empty."
	}
	var sb strings.Builder
	sb.WriteString("| Name | Type |\n|---|---|")
	for _, r := range rows {
		fmt.Fprintf(&sb, "\n| %s | %s |", r.Name, r.Type)
	}
	return sb.String()
}

// blockStream lazily opens a StreamReply and lets the handler cut it when a
// tool placeholder has to appear as its own message.
type blockStream struct {
	responder api.MessageResponder
	peer      api.Peer
	buffer    int
	ch        chan llm.ContentBlock
	done      chan struct{}
}

func newBlockStream(responder api.MessageResponder, peer api.Peer, buffer int) *blockStream {
	return &blockStream{responder: responder, peer: peer, buffer: buffer}
}

func (s *blockStream) send(b llm.ContentBlock) {
	if b.Text == "" {
		return
	}
	if s.ch == nil {
		s.ch = make(chan llm.ContentBlock, s.buffer)
		s.done = make(chan struct{})
		go func(ch <-chan llm.ContentBlock, done chan<- struct{}) {
			defer close(done)
			if err := s.responder.StreamReply(s.peer, ch); err != nil {
				slog.Error("Failed to stream reply", "error", err)
			}
			for range ch {
				// drain so send never blocks on a failed stream
			}
		}(s.ch, s.done)
	}
	s.ch <- b
}

// close ends the current stream, if any, and waits for the channel to flush.
func (s *blockStream) close() {
	if s.ch == nil {
		return
	}
	close(s.ch)
	<-s.done
	s.ch, s.done = nil, nil
}
