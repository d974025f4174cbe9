package gateway

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"topovibe/pkg/api"
	"topovibe/pkg/config"
	"topovibe/pkg/llm"
	"topovibe/pkg/monitor"
)

// GatewayManager 負責管理所有的 Channels 並統一路由訊息
type GatewayManager struct {
	channels      map[string]api.Channel
	msgHandler    api.MessageHandler
	monitor       monitor.Monitor // 監控器
	channelBuffer int             // 內部 Channel 緩衝大小
	mu            sync.RWMutex
}

// NewGatewayManager 建立一個新的 GatewayManager
func NewGatewayManager() *GatewayManager {
	return &GatewayManager{
		channels:      make(map[string]api.Channel),
		channelBuffer: config.DefaultSystemConfig().InternalChannelBuffer,
	}
}

// WithSystemConfig 套用系統參數
func (g *GatewayManager) WithSystemConfig(cfg *config.SystemConfig) {
	g.SetChannelBuffer(cfg.InternalChannelBuffer)
}

// SetChannelBuffer 設定內部的 Channel 緩衝大小
func (g *GatewayManager) SetChannelBuffer(size int) {
	if size > 0 {
		g.channelBuffer = size
	}
}

// SetMessageHandler 設定處理訊息的核心邏輯
func (g *GatewayManager) SetMessageHandler(handler api.MessageHandler) {
	g.msgHandler = handler
}

// SetMonitor 設定監控器
func (g *GatewayManager) SetMonitor(m monitor.Monitor) {
	g.monitor = m
}

// Register 註冊一個 Channel
func (g *GatewayManager) Register(c api.Channel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[c.ID()] = c
}

// GetChannel 取得特定的 Channel (通常用於主動發送訊息)
func (g *GatewayManager) GetChannel(id string) (api.Channel, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.channels[id]
	return c, ok
}

// ChannelIDs returns the registered channel IDs in sorted order.
func (g *GatewayManager) ChannelIDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, 0, len(g.channels))
	for id := range g.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StartAll 啟動所有已註冊的 Channels，依 ID 排序以固定啟動順序
func (g *GatewayManager) StartAll() error {
	for _, id := range g.ChannelIDs() {
		c, _ := g.GetChannel(id)
		slog.Info("Starting channel", "channel", id)
		// 啟動 Channel，並傳入 self 作為 Context
		if err := c.Start(g); err != nil {
			return fmt.Errorf("failed to start channel %s: %w", id, err)
		}
	}
	return nil
}

// StopAll 停止所有 Channels
func (g *GatewayManager) StopAll() {
	for _, id := range g.ChannelIDs() {
		c, _ := g.GetChannel(id)
		slog.Info("Stopping channel", "channel", id)
		if err := c.Stop(); err != nil {
			slog.Error("Error stopping channel", "channel", id, "error", err)
		}
	}
	if g.monitor != nil {
		_ = g.monitor.Stop()
	}
}

func (g *GatewayManager) notify(kind string, peer api.Peer, content string) {
	if g.monitor == nil {
		return
	}
	g.monitor.OnMessage(monitor.MonitorMessage{
		Timestamp:   time.Now(),
		MessageType: kind,
		ChannelID:   peer.ChannelID,
		Username:    peer.Username,
		Content:     content,
	})
}

// SendReply 統一的回覆介面，透過 Channel 介面送回訊息
func (g *GatewayManager) SendReply(peer api.Peer, content string) error {
	slog.Debug("Reply", "channel", peer.ChannelID, "user", peer.Username, "content", content)
	g.notify(monitor.TypeAssistant, peer, content)

	c, ok := g.GetChannel(peer.ChannelID)
	if !ok {
		return fmt.Errorf("channel %s not found", peer.ChannelID)
	}
	return c.Send(peer, content)
}

// SendSignal 發送一個控制訊號 (如 thinking) 到 Channel
func (g *GatewayManager) SendSignal(peer api.Peer, signal string) error {
	c, ok := g.GetChannel(peer.ChannelID)
	if !ok {
		return fmt.Errorf("channel %s not found", peer.ChannelID)
	}

	if tool, ok := strings.CutPrefix(signal, "tool:"); ok {
		g.notify(monitor.TypeTool, peer, tool)
	}

	// 檢查 Channel 是否支援訊號介面
	if sc, ok := c.(api.SignalingChannel); ok {
		slog.Debug("Signal", "channel", peer.ChannelID, "user", peer.Username, "signal", signal)
		return sc.SendSignal(peer, signal)
	}

	// 不支援的通道安靜地忽略
	return nil
}

// PublishScene 通知所有支援場景渲染的 Channel 重新發布場景。
// 場景是共用的 session，所以不論訊息來自哪個 Channel 都要廣播；
// peer 只用於確認來源 Channel 存在以及監控紀錄。
func (g *GatewayManager) PublishScene(peer api.Peer) error {
	if _, ok := g.GetChannel(peer.ChannelID); !ok {
		return fmt.Errorf("channel %s not found", peer.ChannelID)
	}

	var errs []error
	published := 0
	for _, id := range g.ChannelIDs() {
		c, _ := g.GetChannel(id)
		sp, ok := c.(api.ScenePublisher)
		if !ok {
			continue
		}
		published++
		if err := sp.PublishScene(peer); err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", id, err))
		}
	}
	if published > 0 {
		g.notify(monitor.TypeScene, peer, fmt.Sprintf("refresh (%d channels)", published))
	}
	return errors.Join(errs...)
}

// StreamReply 統一的串流回覆介面
func (g *GatewayManager) StreamReply(peer api.Peer, blocks <-chan llm.ContentBlock) error {
	c, ok := g.GetChannel(peer.ChannelID)
	if !ok {
		return fmt.Errorf("channel %s not found", peer.ChannelID)
	}

	// 包裝原始 blocks，以便收集完整內容廣播到監控器
	wrappedBlocks := make(chan llm.ContentBlock, g.channelBuffer)

	go func() {
		defer close(wrappedBlocks)
		var full strings.Builder
		for block := range blocks {
			// 只收集 text 類型的內容用於監控
			if block.Type == llm.BlockTypeText {
				full.WriteString(block.Text)
			}
			wrappedBlocks <- block
		}
		// 串流結束後，廣播完整訊息到監控器
		if full.Len() > 0 {
			g.notify(monitor.TypeAssistant, peer, full.String())
		}
	}()

	err := c.Stream(peer, wrappedBlocks)
	// Channel 提早返回時排空，避免上游阻塞
	for range wrappedBlocks {
	}
	return err
}

// OnMessage 實作 ChannelContext 介面，接收來自 Channel 的訊息
func (g *GatewayManager) OnMessage(channelID string, msg *api.UnifiedMessage) {
	if msg.Peer.ChannelID == "" {
		msg.Peer.ChannelID = channelID
	}
	slog.Debug("Received", "channel", channelID, "user", msg.Peer.Username, "user_id", msg.Peer.UserID, "content", msg.Content)
	g.notify(monitor.TypeUser, msg.Peer, msg.Content)

	if g.msgHandler != nil {
		g.msgHandler(msg)
	} else {
		slog.Warn("No message handler set", "channel", channelID)
	}
}
