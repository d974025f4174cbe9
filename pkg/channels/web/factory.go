package web

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"topovibe/pkg/api"
	"topovibe/pkg/channels"
)

// WebFactory 負責建立 Web Channels
type WebFactory struct{}

// Create 實作 ChannelFactory
func (f *WebFactory) Create(rawConfig jsoniter.RawMessage, deps channels.Deps) (api.Channel, error) {
	// 設定預設 Port
	cfg := WebConfig{Port: 8080}

	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse web config: %w", err)
		}
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid web port %d", cfg.Port)
	}

	return NewWebChannel(cfg, deps.Session), nil
}

func init() {
	channels.RegisterChannel("web", &WebFactory{})
}
