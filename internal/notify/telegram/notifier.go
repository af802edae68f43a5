// Package telegram delivers items to a Telegram chat via the Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/oharling/newsrelay/internal/core"
	"github.com/oharling/newsrelay/internal/feed"
)

const defaultBaseURL = "https://api.telegram.org"

type Notifier struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
	// Telegram allows roughly one message per second per chat.
	limiter *rate.Limiter
}

func New(baseURL, token, chatID string, timeout time.Duration) (*Notifier, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	if chatID == "" {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Notifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Every(1*time.Second), 1),
	}, nil
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

func (n *Notifier) Deliver(ctx context.Context, item feed.Item) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    n.chatID,
		Text:      formatMessage(item),
		ParseMode: "Markdown",
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("telegram sendMessage returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	core.LoggerFromContext(ctx).Debug("telegram message sent", "item_id", item.ID)
	return nil
}

func formatMessage(item feed.Item) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📰 *%s*\n", html.UnescapeString(item.Title))
	fmt.Fprintf(&b, "🌐 [Read More](%s)\n", item.URL)
	if !item.PublishedAt.IsZero() {
		fmt.Fprintf(&b, "🗓️ %s", item.PublishedAt.Format("2006-01-02"))
	}
	return b.String()
}
