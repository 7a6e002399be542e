// Command stripe-webhook-sim signs a payment intent event with the webhook
// secret and posts it to the salon API, standing in for Stripe in local
// environments.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/config"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

const webhookPath = "/api/v1/payments/webhook"

func main() {
	_ = config.LoadDotEnv()
	var (
		baseURL  = flag.String("base-url", config.String("BASE_URL", "http://localhost:8080"), "salon api base url")
		evtType  = flag.String("type", config.String("STRIPE_EVENT_TYPE", "payment_intent.succeeded"), "payment_intent.succeeded or payment_intent.payment_failed")
		intentID = flag.String("payment-intent", config.String("PAYMENT_INTENT_ID", ""), "payment intent id returned by the deposit endpoint")
		eventID  = flag.String("event-id", "", "event id; reuse one to exercise duplicate delivery")
		amount   = flag.Int64("amount", 0, "amount in minor units")
		currency = flag.String("currency", config.String("PAYMENT_CURRENCY", "usd"), "currency")
		secret   = flag.String("secret", config.String("STRIPE_WEBHOOK_SECRET", ""), "stripe webhook signing secret (whsec_...)")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("STRIPE_WEBHOOK_SECRET is required")
	}
	if strings.TrimSpace(*intentID) == "" {
		fatal("PAYMENT_INTENT_ID is required")
	}

	now := time.Now().UTC()
	if *eventID == "" {
		*eventID = fmt.Sprintf("evt_test_%d", now.UnixNano())
	}

	payload, err := buildEventJSON(*eventID, *evtType, now, *intentID, *amount, *currency)
	if err != nil {
		fatal(err.Error())
	}
	signed := sign(payload, *secret, now)

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*baseURL, "/")+webhookPath, bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	fmt.Printf("event=%s status=%d body=%s\n", *eventID, resp.StatusCode, strings.TrimSpace(string(body)))
}

func sign(payload []byte, secret string, at time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
		Scheme:    "v1",
	}).Header
}

func buildEventJSON(eventID, eventType string, t time.Time, intentID string, amount int64, currency string) ([]byte, error) {
	var status stripe.PaymentIntentStatus
	switch eventType {
	case "payment_intent.succeeded":
		status = stripe.PaymentIntentStatusSucceeded
	case "payment_intent.payment_failed":
		status = stripe.PaymentIntentStatusRequiresPaymentMethod
	default:
		return nil, fmt.Errorf("unsupported event type: %s", eventType)
	}
	return json.Marshal(map[string]any{
		"id":          eventID,
		"object":      "event",
		"created":     t.Unix(),
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"data": map[string]any{
			"object": map[string]any{
				"id":       intentID,
				"object":   "payment_intent",
				"amount":   amount,
				"currency": strings.ToLower(currency),
				"status":   status,
			},
		},
	})
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
