package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"topovibe/pkg/agent"
	"topovibe/pkg/channels"
	_ "topovibe/pkg/channels/autoload" // 自動註冊 Channels
	"topovibe/pkg/config"
	"topovibe/pkg/gateway"
	"topovibe/pkg/handler"
	"topovibe/pkg/llm"
	_ "topovibe/pkg/llm/autoload" // 自動註冊 LLM Providers
	"topovibe/pkg/monitor"
	"topovibe/pkg/session"
	"topovibe/pkg/tools"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	configPath string
	systemPath string
)

var rootCmd = &cobra.Command{
	Use:           "topovibe",
	Short:         "Chat with an LLM to build and inspect 3D topology",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the tool catalogue offered to the model",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := tools.NewCatalogue(session.Context{Session: session.New()})
		asJSON, _ := cmd.Flags().GetBool("json")
		if asJSON {
			schemas := make([]map[string]any, 0, len(registry.GetAll()))
			for _, def := range registry.Definitions() {
				schemas = append(schemas, llm.FunctionSchema(def))
			}
			data, err := json.MarshalIndent(schemas, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		for _, t := range registry.GetAll() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", t.Name(), t.Description())
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "application config (LLM providers, channels, system prompt)")
	rootCmd.PersistentFlags().StringVarP(&systemPath, "system", "s", "system.json", "engine parameters")
	toolsCmd.Flags().Bool("json", false, "print the JSON schema definitions")
	rootCmd.AddCommand(toolsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	// --- 0. 讀取設定檔 ---
	cfg, sysCfg, err := config.Load(configPath, systemPath)
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v\n", err)
	}

	monitor.SetupSlog(sysCfg.LogLevel)
	monitor.PrintBanner()

	if sysCfg.DebugChunks && sysCfg.DebugRetentionDays > 0 {
		maxAge := time.Duration(sysCfg.DebugRetentionDays) * 24 * time.Hour
		if n, err := llm.PruneDebugChunks(llm.DebugChunksDir, maxAge); err != nil {
			slog.Warn("Failed to prune debug dumps", "error", err)
		} else if n > 0 {
			slog.Info("Pruned old debug dumps", "count", n)
		}
	}

	// --- 1. LLM 設定 ---
	client, err := llm.NewFromConfig(cfg.LLM, sysCfg)
	if err != nil {
		log.Fatalf("❌ Failed to init LLM client: %v\n", err)
	}

	// --- 2. Session 與工具 ---
	sess := session.New()
	catalogue := tools.NewCatalogue(session.Context{Session: sess})
	slog.Info("Tool catalogue ready", "tools", len(catalogue.GetAll()))

	chat := handler.NewChatHandler(agent.New(client, catalogue, sysCfg), sess, catalogue, cfg.Prompt(), sysCfg)

	// --- 3. Gateway 初始化（使用 Builder 模式）---
	gw, err := gateway.NewGatewayBuilder().
		WithSystemConfig(sysCfg).
		WithMonitor(monitor.NewCLIMonitor()).
		WithChannel(channels.LoadFromConfig(cfg.Channels, channels.Deps{Session: sess, System: sysCfg})...).
		WithHandler(chat).
		Build()
	if err != nil {
		log.Fatalf("Failed to build gateway: %v\n", err)
	}

	// --- 4. 設定檔熱更新 ---
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go watch(watchCtx, chat)

	<-ctx.Done()
	slog.Info("Received shutdown signal. Stopping services...")

	gw.StopAll()
	slog.Info("Bye!")
	return nil
}

// watch applies log level and system prompt changes without a restart.
// Everything else needs one.
func watch(ctx context.Context, chat *handler.ChatHandler) {
	appAbs, _ := filepath.Abs(configPath)
	sysAbs, _ := filepath.Abs(systemPath)

	for changed := range config.WatchConfig(ctx, config.DefaultDebounce, configPath, systemPath) {
		switch changed {
		case sysAbs:
			monitor.SetLevel(config.LoadSystemConfig(systemPath).LogLevel)
		case appAbs:
			cfg, err := config.LoadAppConfig(configPath)
			if err != nil {
				slog.Warn("Ignoring invalid config change", "error", err)
				continue
			}
			chat.SetSystemPrompt(cfg.Prompt())
			slog.Info("System prompt reloaded")
		}
	}
}
