package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"topovibe/pkg/api"
	"topovibe/pkg/llm"
)

// TelegramConfig encapsulates the credentials required to authenticate with
// the Telegram Bot API.
type TelegramConfig struct {
	Token        string  `json:"token"`         // The secret BOT API string provided by @BotFather
	AllowedUsers []int64 `json:"allowed_users"` // Optional whitelist of user IDs; empty allows everyone
}

// TelegramChannel is the implementation of api.Channel for the Telegram
// platform. It long-polls for text messages and replies with plain text,
// splitting long answers into several bubbles.
type TelegramChannel struct {
	config       TelegramConfig     // Auth credentials
	bot          *tgbotapi.BotAPI   // Underlying Telegram SDK client
	messageLimit int                // Maximum character count per single message bubble
	allowed      map[int64]bool     // Whitelist built from config
	stopCtx      context.Context    // Context used to forcibly abort the long-polling HTTP request
	stopCancel   context.CancelFunc // Function to trigger the abort
}

func NewTelegramChannel(cfg TelegramConfig, msgLimit int) (api.Channel, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// 每個連線都綁定 stopCtx，Stop() 時能立即中斷進行中的 long polling，
	// 避免重啟後出現 409 Conflict
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	botHttpClient := &http.Client{
		Timeout: 90 * time.Second,
		Transport: &http.Transport{
			DialContext: func(dialCtx context.Context, network, addr string) (net.Conn, error) {
				mergedCtx, mergedCancel := context.WithCancel(dialCtx)
				go func() {
					select {
					case <-ctx.Done():
						mergedCancel()
					case <-mergedCtx.Done():
					}
				}()
				return dialer.DialContext(mergedCtx, network, addr)
			},
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, botHttpClient)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	slog.Info("Telegram bot authorized", "username", bot.Self.UserName)

	allowed := make(map[int64]bool, len(cfg.AllowedUsers))
	for _, id := range cfg.AllowedUsers {
		allowed[id] = true
	}

	return &TelegramChannel{
		config:       cfg,
		bot:          bot,
		messageLimit: msgLimit,
		allowed:      allowed,
		stopCtx:      ctx,
		stopCancel:   cancel,
	}, nil
}

// ID returns the unique platform identifier "telegram".
func (t *TelegramChannel) ID() string {
	return "telegram"
}

// Start initiates the long-polling update loop in a background goroutine.
func (t *TelegramChannel) Start(ctx api.ChannelContext) error {
	go t.poll(ctx)
	return nil
}

func (t *TelegramChannel) poll(ctx api.ChannelContext) {
	offset := 0
	for {
		select {
		case <-t.stopCtx.Done():
			return // Gracefully exit on shutdown
		default:
		}

		reqConfig := tgbotapi.NewUpdate(offset)
		reqConfig.Timeout = 60

		// 手動呼叫 GetUpdates 以自行掌控 offset
		updates, err := t.bot.GetUpdates(reqConfig)
		if err != nil {
			select {
			case <-t.stopCtx.Done():
				return // Ignore error if we are shutting down
			case <-time.After(3 * time.Second):
				slog.Debug("Failed to get telegram updates", "error", err)
				continue
			}
		}

		for _, update := range updates {
			if update.UpdateID < offset {
				continue
			}
			offset = update.UpdateID + 1

			msg := update.Message
			if msg == nil || msg.From == nil || msg.Text == "" {
				continue
			}
			if len(t.allowed) > 0 && !t.allowed[msg.From.ID] {
				slog.Warn("Ignoring telegram user not in whitelist", "user_id", msg.From.ID, "username", msg.From.UserName)
				continue
			}

			ctx.OnMessage(t.ID(), &api.UnifiedMessage{
				Peer: api.Peer{
					ChannelID: t.ID(),
					UserID:    strconv.FormatInt(msg.From.ID, 10),
					ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
					Username:  msg.From.UserName,
				},
				Content: msg.Text,
				Raw:     msg,
			})
		}
	}
}

// SendSignal implements the api.SignalingChannel interface. Thinking and
// tool signals both show the typing indicator.
func (t *TelegramChannel) SendSignal(peer api.Peer, signal string) error {
	if signal != llm.BlockTypeThinking && !strings.HasPrefix(signal, "tool:") {
		return nil
	}
	chatID, err := strconv.ParseInt(peer.ChatID, 10, 64)
	if err != nil {
		return err
	}
	action := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, err = t.bot.Request(action)
	return err
}

func (t *TelegramChannel) Stop() error {
	t.stopCancel() // Cancel our custom long-polling loop immediately

	if httpClient, ok := t.bot.Client.(*http.Client); ok && httpClient != nil {
		if transport, ok := httpClient.Transport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
	}

	return nil
}

func (t *TelegramChannel) Send(peer api.Peer, message string) error {
	// Telegram Chat ID must be int64
	chatID, err := strconv.ParseInt(peer.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id for telegram: %s", peer.ChatID)
	}

	for i, chunk := range SplitMessage(message, t.messageLimit) {
		if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return fmt.Errorf("telegram send chunk %d failed: %w", i, err)
		}
	}
	return nil
}

// Stream implements the streaming response protocol for Telegram.
// Telegram doesn't support mid-message updates, so blocks are accumulated
// and sent once the stream ends: the reasoning first (when forwarded at all),
// then the answer.
func (t *TelegramChannel) Stream(peer api.Peer, blocks <-chan llm.ContentBlock) error {
	var thinkingBuf strings.Builder
	var textBuf strings.Builder

	for block := range blocks {
		switch block.Type {
		case llm.BlockTypeThinking:
			thinkingBuf.WriteString(block.Text)
		case llm.BlockTypeText, llm.BlockTypeError:
			textBuf.WriteString(block.Text)
		}
	}

	if thinkingBuf.Len() > 0 {
		if err := t.Send(peer, "💭 Reasoning process:\n\n"+thinkingBuf.String()); err != nil {
			slog.Error("Failed to send thinking", "error", err)
		}
	}
	if textBuf.Len() > 0 {
		return t.Send(peer, textBuf.String())
	}
	return nil
}

// SplitMessage cuts text into chunks of at most limit characters, preferring
// to break after a newline in the second half of a chunk.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	runes := []rune(text)
	var chunks []string
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i >= limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
