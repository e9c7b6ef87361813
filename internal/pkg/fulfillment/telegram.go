package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tradeforgehq/tradeforge/internal/pkg/env"
)

const defaultTelegramAPIBaseURL = "https://api.telegram.org"

// TelegramNotifier posts sale notifications to an operator chat.
// Fire-and-forget: callers treat failures as log-only.
type TelegramNotifier struct {
	BotToken   string
	ChatID     string
	APIBaseURL string

	HTTPClient *http.Client
}

func NewTelegramNotifierFromEnv() *TelegramNotifier {
	return &TelegramNotifier{
		BotToken:   strings.TrimSpace(env.GetEnv("TELEGRAM_BOT_TOKEN", "")),
		ChatID:     strings.TrimSpace(env.GetEnv("TELEGRAM_CHAT_ID", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("TELEGRAM_API_BASE_URL", defaultTelegramAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Enabled reports whether the notifier is configured.
func (t *TelegramNotifier) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// NotifySale posts a short sale summary to the configured chat.
func (t *TelegramNotifier) NotifySale(ctx context.Context, d Delivery) error {
	if !t.Enabled() {
		return nil
	}

	text := fmt.Sprintf("New sale: %s (%s %s)\nLicense: %s\nCustomer: %s",
		d.Plan, d.Amount.StringFixed(2), strings.ToUpper(d.Currency), d.LicenseKey, d.Email)

	form := url.Values{}
	form.Set("chat_id", t.ChatID)
	form.Set("text", text)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.APIBaseURL, t.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := t.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Description string `json:"description"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Description != "" {
			return fmt.Errorf("telegram sendMessage: %s", apiErr.Description)
		}
		return fmt.Errorf("telegram sendMessage: unexpected status %d", resp.StatusCode)
	}
	return nil
}
