package api

import (
	"topovibe/pkg/llm"
)

// Channel defines the standardized lifecycle interface for communication platforms.
type Channel interface {
	ID() string
	Start(ctx ChannelContext) error
	Stop() error
	Send(peer Peer, message string) error
	Stream(peer Peer, blocks <-chan llm.ContentBlock) error
}

// SignalingChannel is an optional extension of the Channel interface for
// platforms that support control signals (e.g., typing indicators, thinking UI).
type SignalingChannel interface {
	Channel
	// SendSignal transmits a control signal (e.g., "thinking", "tool:create_cube")
	// to the target peer to change UI state.
	SendSignal(peer Peer, signal string) error
}

// ScenePublisher is implemented by channels that can render the geometry
// scene. PublishScene is called after every turn that may have changed it.
type ScenePublisher interface {
	Channel
	PublishScene(peer Peer) error
}

// ChannelContext provides the interface for a Channel implementation to
// communicate back with the Gateway core.
type ChannelContext interface {
	MessageResponder
	OnMessage(channelID string, msg *UnifiedMessage)
}

// MessageResponder defines the capabilities for sending responses back to a channel.
type MessageResponder interface {
	SendReply(peer Peer, content string) error
	StreamReply(peer Peer, blocks <-chan llm.ContentBlock) error
	SendSignal(peer Peer, signal string) error
	PublishScene(peer Peer) error
}

// UnifiedMessage is the platform independent form of one incoming chat
// message.
type UnifiedMessage struct {
	Peer    Peer   // Where the message came from and where replies go
	Content string // Standardized text content of the message
	Raw     any    // Optional storage for the original platform-specific payload object
	DebugID string // Unique identifier for grouping agentic loop logs for this request
}

// Peer identifies the remote end of a conversation on a specific channel.
type Peer struct {
	ChannelID string // Identifier of the channel that originated the message (e.g., "web")
	UserID    string // Platform-specific unique identifier for the user
	ChatID    string // Platform-specific identifier for the chat, or the websocket connection
	Username  string // Display name as provided by the platform
}

// MessageHandler defines the function signature for processing incoming messages.
// It implements the MessageProcessor interface.
type MessageHandler func(*UnifiedMessage)

// OnMessage allows MessageHandler to satisfy the MessageProcessor interface.
func (h MessageHandler) OnMessage(msg *UnifiedMessage) {
	h(msg)
}

// MessageProcessor defines the interface for components that can process incoming messages.
type MessageProcessor interface {
	OnMessage(msg *UnifiedMessage)
}

// ResponderAware defines an interface for components that require a MessageResponder to be injected.
type ResponderAware interface {
	SetResponder(responder MessageResponder)
}

// GatewayHandler is a composite interface for components that handle incoming
// messages AND are aware of the responder (e.g., ChatHandler).
type GatewayHandler interface {
	MessageProcessor
	ResponderAware
}
