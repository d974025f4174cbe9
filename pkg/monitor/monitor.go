package monitor

import "time"

// 監控訊息類型
const (
	TypeUser      = "USER"
	TypeAssistant = "ASSISTANT"
	TypeTool      = "TOOL"  // 工具佔位訊號
	TypeScene     = "SCENE" // 場景重新發布
)

// MonitorMessage 代表一則監控訊息
type MonitorMessage struct {
	Timestamp   time.Time
	MessageType string // One of the Type* constants
	ChannelID   string
	Username    string
	Content     string
}

// Monitor 介面定義了監控器的行為
type Monitor interface {
	// Start 啟動監控器
	Start() error

	// Stop 停止監控器
	Stop() error

	// OnMessage 接收並顯示監控訊息
	OnMessage(msg MonitorMessage)
}
