package llm

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"topovibe/pkg/config"

	jsoniter "github.com/json-iterator/go"
)

// Environment variables that override the Gemini credentials in config.json.
const (
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvGeminiModel  = "GEMINI_MODEL"

	defaultGeminiModel = "gemini-2.5-flash"
)

// NewFromConfig 根據設定檔建立 LLM Client
func NewFromConfig(rawLLM jsoniter.RawMessage, system *config.SystemConfig) (LLMClient, error) {
	var groups []ProviderGroupConfig
	if len(rawLLM) > 0 {
		if err := json.Unmarshal(rawLLM, &groups); err != nil {
			return nil, fmt.Errorf("failed to parse 'llm' config: %w", err)
		}
	}

	groups = applyEnv(groups, os.Getenv(EnvGeminiAPIKey), os.Getenv(EnvGeminiModel))
	if len(groups) == 0 {
		return nil, fmt.Errorf("missing 'llm' config and %s is not set", EnvGeminiAPIKey)
	}

	var allAtomicClients []LLMClient
	for _, group := range groups {
		slog.Info("Loading LLM group", "type", group.Type, "models", len(group.Models))

		factory, ok := GetProviderFactory(group.Type)
		if !ok {
			slog.Warn("Unknown provider type", "type", group.Type)
			continue
		}

		clients, err := factory.Create(group, system)
		if err != nil {
			slog.Warn("Failed to create clients", "type", group.Type, "error", err)
			continue
		}

		allAtomicClients = append(allAtomicClients, clients...)
	}

	if len(allAtomicClients) == 0 {
		return nil, fmt.Errorf("no LLM clients could be initialized")
	}

	slog.Info("LLM clients initialized", "count", len(allAtomicClients))

	// 如果只有一個，直接回傳
	if len(allAtomicClients) == 1 {
		return allAtomicClients[0], nil
	}

	// 否則包裹在 FallbackClient 中，並代入系統層級的重試設定
	return &FallbackClient{
		Clients:    allAtomicClients,
		MaxRetries: system.MaxRetries,
		RetryDelay: time.Duration(system.RetryDelayMs) * time.Millisecond,
	}, nil
}

// applyEnv fills Gemini credentials from the environment. Keys are added to
// gemini groups that have none; with no groups at all a gemini group is
// created when a key is present.
func applyEnv(groups []ProviderGroupConfig, apiKey, model string) []ProviderGroupConfig {
	if apiKey == "" {
		return groups
	}

	found := false
	for i := range groups {
		if groups[i].Type != "gemini" {
			continue
		}
		found = true
		if len(groups[i].APIKeys) == 0 {
			groups[i].APIKeys = []string{apiKey}
		}
		if model != "" && len(groups[i].Models) == 0 {
			groups[i].Models = []string{model}
		}
	}

	if !found && len(groups) == 0 {
		if model == "" {
			model = defaultGeminiModel
		}
		groups = append(groups, ProviderGroupConfig{
			Type:    "gemini",
			APIKeys: []string{apiKey},
			Models:  []string{model},
		})
	}
	return groups
}
