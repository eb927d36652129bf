package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"ipwatch/internal/config"

	"go.uber.org/zap"
)

// TelegramNotifier sends notifications through a Telegram bot.
type TelegramNotifier struct {
	config *config.TelegramConfig
	client *http.Client
	logger *zap.Logger
}

// telegramMessage represents a Telegram API message
type telegramMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// telegramResponse represents a Telegram API response
type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(cfg *config.TelegramConfig, client *http.Client, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		config: cfg,
		client: client,
		logger: logger,
	}
}

// Name returns the channel name
func (n *TelegramNotifier) Name() string {
	return "telegram"
}

// Notify sends the event to every configured chat
func (n *TelegramNotifier) Notify(ctx context.Context, event *Event) error {
	text := fmt.Sprintf("%s\n\n%s\n\nHost: %s", event.Title(), event.Message(), event.Hostname)

	for _, chatID := range n.config.ChatIDs {
		if err := n.sendMessage(ctx, chatID, text); err != nil {
			return fmt.Errorf("failed to send to chat %s: %w", chatID, err)
		}
	}

	return nil
}

// sendMessage sends a single message to a chat
func (n *TelegramNotifier) sendMessage(ctx context.Context, chatID, text string) error {
	msg := telegramMessage{
		ChatID: chatID,
		Text:   text,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", n.config.APIURL, n.config.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			n.logger.Error("Failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	var result telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if !result.OK {
		return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, result.Description)
	}

	return nil
}
