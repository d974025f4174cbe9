package config

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

// DefaultSystemPrompt is the instruction given to the agent when config.json
// does not set one.
const DefaultSystemPrompt = "You are a topologicpy library assistant."

// Config defines the application configuration read from config.json:
// LLM provider groups, channel settings and the agent's system prompt.
type Config struct {
	// Channels maps channel identifiers (e.g., "web", "telegram") to their
	// specific configuration payloads in raw JSON format.
	Channels map[string]jsoniter.RawMessage `json:"channels"`
	// LLM holds the list of provider groups in raw JSON. It may be empty
	// when credentials come from the environment.
	LLM jsoniter.RawMessage `json:"llm"`
	// SystemPrompt is sent to the model as the system instruction of every
	// turn.
	SystemPrompt string `json:"system_prompt"`
}

// Validate ensures the configuration can drive at least one channel.
func (c *Config) Validate() error {
	if len(c.Channels) == 0 {
		return fmt.Errorf("no channels configured; add at least \"web\" under 'channels'")
	}
	return nil
}

// Prompt returns the configured system prompt or DefaultSystemPrompt.
func (c *Config) Prompt() string {
	if c.SystemPrompt == "" {
		return DefaultSystemPrompt
	}
	return c.SystemPrompt
}

// SystemConfig defines engine-level technical parameters read from
// system.json.
type SystemConfig struct {
	// MaxRetries is the number of attempts per provider before the
	// fallback client moves on.
	MaxRetries int `json:"max_retries"`
	// RetryDelayMs is the base delay between consecutive retry attempts.
	RetryDelayMs int `json:"retry_delay_ms"`
	// LLMTimeoutMs is the hard cutoff for one user turn, tool rounds
	// included.
	LLMTimeoutMs int `json:"llm_timeout_ms"`
	// MaxToolRounds bounds how many times the model may call tools before
	// it must answer in one turn.
	MaxToolRounds int `json:"max_tool_rounds"`
	// OllamaDefaultURL is used when an ollama group has no base_url.
	OllamaDefaultURL string `json:"ollama_default_url"`
	// InternalChannelBuffer is the size of the Go channels carrying stream
	// chunks and agent updates.
	InternalChannelBuffer int `json:"internal_channel_buffer"`
	// ThinkingInitDelayMs is the wait after a user message before the UI is
	// told the agent is thinking.
	ThinkingInitDelayMs int `json:"thinking_init_delay_ms"`
	// TelegramMessageLimit is the maximum character count of one Telegram
	// message; longer replies are split.
	TelegramMessageLimit int `json:"telegram_message_limit"`
	// ShowThinking forwards the model's reasoning blocks to the user.
	ShowThinking bool `json:"show_thinking"`
	// DebugChunks dumps every raw provider packet under debug/.
	DebugChunks bool `json:"debug_chunks"`
	// DebugRetentionDays removes dumps older than this at startup. 0 keeps everything.
	DebugRetentionDays int `json:"debug_retention_days"`
	// LogLevel sets the minimum severity for log output.
	// Accepted values: "debug", "info", "warn", "error". Default: "info".
	LogLevel string `json:"log_level"`
	// EnableTools toggles the geometry tool catalogue. Without it the agent
	// can only chat.
	EnableTools bool `json:"enable_tools"`
}

// DefaultSystemConfig returns the values used when system.json is missing
// or corrupt.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		MaxRetries:            2,
		RetryDelayMs:          500,
		LLMTimeoutMs:          300000,
		MaxToolRounds:         8,
		OllamaDefaultURL:      "http://localhost:11434",
		InternalChannelBuffer: 100,
		ThinkingInitDelayMs:   500,
		TelegramMessageLimit:  4000,
		ShowThinking:          false,
		DebugRetentionDays:    7,
		LogLevel:              "info",
		EnableTools:           true,
	}
}

// Load reads the application config at appPath (mandatory) and the system
// config at sysPath (optional, defaults on any failure).
func Load(appPath, sysPath string) (*Config, *SystemConfig, error) {
	cfg, err := LoadAppConfig(appPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, LoadSystemConfig(sysPath), nil
}

// LoadAppConfig parses and validates config.json.
func LoadAppConfig(path string) (*Config, error) {
	appFile, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file '%s' not found. please create one", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(appFile, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadSystemConfig attempts to load system settings, returns defaults if it fails
func LoadSystemConfig(path string) *SystemConfig {
	cfg := DefaultSystemConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		return cfg // File not found, use defaults
	}

	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(file, cfg); err != nil {
		return DefaultSystemConfig() // Parse failed, use defaults
	}

	return cfg
}
