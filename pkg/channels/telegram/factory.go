package telegram

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"

	"topovibe/pkg/api"
	"topovibe/pkg/channels"
	"topovibe/pkg/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TelegramFactory 負責建立 Telegram Channels
type TelegramFactory struct{}

// Create 實作 ChannelFactory. TELEGRAM_BOT_TOKEN overrides the configured token.
func (f *TelegramFactory) Create(rawConfig jsoniter.RawMessage, deps channels.Deps) (api.Channel, error) {
	var tgCfg TelegramConfig
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &tgCfg); err != nil {
			return nil, fmt.Errorf("failed to parse telegram config: %w", err)
		}
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		tgCfg.Token = token
	}

	if tgCfg.Token == "" {
		return nil, fmt.Errorf("missing telegram token")
	}

	sys := deps.System
	if sys == nil {
		sys = config.DefaultSystemConfig()
	}
	return NewTelegramChannel(tgCfg, sys.TelegramMessageLimit)
}

func init() {
	channels.RegisterChannel("telegram", &TelegramFactory{})
}
