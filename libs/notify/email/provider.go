package email

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/salonbook/libs/config"
)

// ProviderConfig selects an email backend: "smtp", "api" or "noop".
type ProviderConfig struct {
	Provider string
	SMTPHost string
	SMTPPort string
	From     string
	APIURL   string
	APIKey   string
}

func ProviderConfigFromEnv() ProviderConfig {
	return ProviderConfig{
		Provider: config.String("EMAIL_PROVIDER", "smtp"),
		SMTPHost: config.String("SMTP_HOST", "mailpit"),
		SMTPPort: config.String("SMTP_PORT", "1025"),
		From:     config.String("EMAIL_FROM", "no-reply@salonbook.local"),
		APIURL:   config.String("EMAIL_API_URL", ""),
		APIKey:   config.String("EMAIL_API_KEY", ""),
	}
}

func NewSender(cfg ProviderConfig, client *http.Client) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "smtp":
		return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.From), nil
	case "api":
		if strings.TrimSpace(cfg.APIURL) == "" {
			return nil, fmt.Errorf("EMAIL_API_URL is required for the api provider")
		}
		return NewAPISender(cfg.APIURL, cfg.APIKey, cfg.From, client), nil
	case "noop":
		return NoopSender{}, nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
