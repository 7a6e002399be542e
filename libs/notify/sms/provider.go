package sms

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/salonbook/libs/config"
)

// ProviderConfig selects an SMS backend: "webhook" or "noop".
type ProviderConfig struct {
	Provider     string
	WebhookURL   string
	WebhookToken string
}

func ProviderConfigFromEnv() ProviderConfig {
	return ProviderConfig{
		Provider:     config.String("SMS_PROVIDER", "noop"),
		WebhookURL:   config.String("SMS_WEBHOOK_URL", ""),
		WebhookToken: config.String("SMS_WEBHOOK_TOKEN", ""),
	}
}

func NewSender(cfg ProviderConfig, client *http.Client) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "noop":
		return NewNoopSender(), nil
	case "webhook":
		if strings.TrimSpace(cfg.WebhookURL) == "" {
			return nil, fmt.Errorf("SMS_WEBHOOK_URL is required for the webhook provider")
		}
		return NewWebhookSender(cfg.WebhookURL, cfg.WebhookToken, client), nil
	default:
		return nil, fmt.Errorf("unknown sms provider %q", cfg.Provider)
	}
}
