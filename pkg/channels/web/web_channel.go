package web

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"

	"topovibe/pkg/api"
	"topovibe/pkg/llm"
	"topovibe/pkg/scene"
	"topovibe/pkg/session"
	"topovibe/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//go:embed static/index.html
var indexHTML []byte

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for decoupled UI
	},
}

type WebConfig struct {
	Host string `json:"host"` // Default: all interfaces
	Port int    `json:"port"` // Default: 8080
}

// IncomingMessage is what the browser sends over the socket.
type IncomingMessage struct {
	Text string `json:"text"`
}

// Outgoing frames. Type is one of history, scene, message, text, thinking,
// error, signal or done.
type outgoing struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Value string `json:"value,omitempty"`
	Data  any    `json:"data,omitempty"`
}

type SafeConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (sc *SafeConn) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.Conn.WriteMessage(websocket.TextMessage, data)
}

// WebChannel serves the browser UI: a chat socket plus the 3D scene.
type WebChannel struct {
	config      WebConfig
	server      *http.Server
	session     *session.Session     // Shared object store and chat history
	connections map[string]*SafeConn // Map ChatID -> WS Connection
	mu          sync.RWMutex
}

func NewWebChannel(cfg WebConfig, sess *session.Session) *WebChannel {
	return &WebChannel{
		config:      cfg,
		session:     sess,
		connections: make(map[string]*SafeConn),
	}
}

func (c *WebChannel) ID() string {
	return "web"
}

// Handler builds the HTTP routes. ctx receives the messages read from sockets.
func (c *WebChannel) Handler(ctx api.ChannelContext) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(indexHTML)
	})
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		c.handleWebSocket(w, r, ctx)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": c.clientCount()})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(requestLogger)
		r.Get("/scene", c.getScene)
		r.Get("/items", c.getItems)
		r.Get("/messages", c.getMessages)
		r.Delete("/messages", c.deleteMessages)
	})
	return r
}

func (c *WebChannel) Start(ctx api.ChannelContext) error {
	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	c.server = &http.Server{
		Addr:              addr,
		Handler:           c.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("Web UI listening", "addr", addr)

	go func() {
		if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Web server error", "error", err)
		}
	}()

	return nil
}

func (c *WebChannel) Stop() error {
	if c.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown 不會關閉被接管的 websocket，手動關閉
	c.mu.Lock()
	for id, conn := range c.connections {
		conn.Close()
		delete(c.connections, id)
	}
	c.mu.Unlock()

	return c.server.Shutdown(shutdownCtx)
}

func (c *WebChannel) conn(peer api.Peer) (*SafeConn, error) {
	c.mu.RLock()
	conn, ok := c.connections[peer.ChatID]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("web client %s not connected", peer.ChatID)
	}
	return conn, nil
}

func (c *WebChannel) clientCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.connections)
}

func (c *WebChannel) Send(peer api.Peer, message string) error {
	conn, err := c.conn(peer)
	if err != nil {
		return err
	}
	return conn.WriteJSON(outgoing{Type: "message", Text: message})
}

// SendSignal implements the api.SignalingChannel interface
func (c *WebChannel) SendSignal(peer api.Peer, signal string) error {
	conn, err := c.conn(peer)
	if err != nil {
		return err
	}
	return conn.WriteJSON(outgoing{Type: "signal", Value: signal})
}

// Stream implements api.Channel.Stream
func (c *WebChannel) Stream(peer api.Peer, blocks <-chan llm.ContentBlock) error {
	conn, err := c.conn(peer)
	if err != nil {
		return err
	}

	for block := range blocks {
		if err := conn.WriteJSON(outgoing{Type: block.Type, Text: block.Text}); err != nil {
			return err
		}
	}

	// Send finish flag
	return conn.WriteJSON(outgoing{Type: "done"})
}

// PublishScene implements api.ScenePublisher. The scene is shared by every
// browser, so it goes to all connected clients, not only the peer.
func (c *WebChannel) PublishScene(peer api.Peer) error {
	frame := outgoing{Type: "scene", Data: scene.Build(c.session.Items())}

	c.mu.RLock()
	conns := make(map[string]*SafeConn, len(c.connections))
	for id, conn := range c.connections {
		conns[id] = conn
	}
	c.mu.RUnlock()

	var errs []error
	for id, conn := range conns {
		if err := conn.WriteJSON(frame); err != nil {
			errs = append(errs, fmt.Errorf("client %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (c *WebChannel) handleWebSocket(w http.ResponseWriter, r *http.Request, ctx api.ChannelContext) {
	rawConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WS Upgrade failed", "error", err)
		return
	}

	// Wrap connection
	conn := &SafeConn{Conn: rawConn}
	chatID := utils.GenerateID()

	c.mu.Lock()
	c.connections[chatID] = conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.connections, chatID)
		c.mu.Unlock()
		conn.Close()
	}()

	// 連線後先送歷史訊息與目前場景
	if err := conn.WriteJSON(outgoing{Type: "history", Data: c.session.Messages()}); err != nil {
		slog.Warn("Failed to send history", "error", err)
	}
	if err := conn.WriteJSON(outgoing{Type: "scene", Data: scene.Build(c.session.Items())}); err != nil {
		slog.Warn("Failed to send scene", "error", err)
	}

	peer := api.Peer{
		ChannelID: c.ID(),
		UserID:    r.RemoteAddr,
		ChatID:    chatID,
		Username:  "WebUser",
	}

	for {
		_, msgBytes, err := conn.ReadMessage()
		if err != nil {
			break
		}

		// JSON {"text": ...}，否則當作純文字
		var incoming IncomingMessage
		content := string(msgBytes)
		if err := json.Unmarshal(msgBytes, &incoming); err == nil {
			content = incoming.Text
		}

		ctx.OnMessage(c.ID(), &api.UnifiedMessage{
			Peer:    peer,
			Content: content,
		})
	}
}

func (c *WebChannel) getScene(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scene.Build(c.session.Items()))
}

func (c *WebChannel) getItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scene.Inventory(c.session.Items()))
}

func (c *WebChannel) getMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, c.session.Messages())
}

func (c *WebChannel) deleteMessages(w http.ResponseWriter, r *http.Request) {
	c.session.ClearMessages()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

// requestLogger logs method, path, status, and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
