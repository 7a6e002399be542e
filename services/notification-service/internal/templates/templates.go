// Package templates turns salon events into the email and SMS text sent to
// clients and staff.
package templates

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
)

const (
	TopicAppointmentCreated       = "salon.appointment.created.v1"
	TopicAppointmentStatusChanged = "salon.appointment.status_changed.v1"
	TopicPaymentSucceeded         = "salon.payment.succeeded.v1"
)

// Topics lists every event type the renderer understands.
var Topics = []string{TopicAppointmentCreated, TopicAppointmentStatusChanged, TopicPaymentSucceeded}

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

var ErrUnknownEvent = errors.New("unknown event type")

// Appointment mirrors the payload of the salon appointment events.
type Appointment struct {
	AppointmentID  string `json:"appointment_id"`
	ServiceName    string `json:"service_name"`
	Date           string `json:"appointment_date"`
	Time           string `json:"appointment_time"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status"`
	ContactName    string `json:"contact_name"`
	ContactEmail   string `json:"contact_email"`
	ContactPhone   string `json:"contact_phone"`
	Guest          bool   `json:"guest"`
}

type Payment struct {
	PaymentID     string `json:"payment_id"`
	AppointmentID string `json:"appointment_id"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	ContactName   string `json:"contact_name"`
	ContactEmail  string `json:"contact_email"`
	ContactPhone  string `json:"contact_phone"`
}

// Message is one rendered notification.
type Message struct {
	AppointmentID string
	Channel       string
	Recipient     string
	Subject       string
	Body          string
}

// Renderer holds the parsed templates. SalonName is used in greetings and
// StaffEmail, when set, receives a copy of every new booking.
type Renderer struct {
	SalonName  string
	StaffEmail string
	tmpl       *template.Template
}

type view struct {
	Salon     string
	Reference string
	Name      string
	Email     string
	Phone     string
	Service   string
	Date      string
	Time      string
	Amount    string
	Guest     bool
}

func appointmentView(salon string, a Appointment) view {
	return view{
		Salon:     salon,
		Reference: a.AppointmentID,
		Name:      a.ContactName,
		Email:     a.ContactEmail,
		Phone:     a.ContactPhone,
		Service:   a.ServiceName,
		Date:      a.Date,
		Time:      a.Time,
		Guest:     a.Guest,
	}
}

var source = map[string]string{
	"created.subject":   `Booking received: {{.Service}} on {{.Date}} at {{.Time}}`,
	"created.email":     "Hi {{.Name}},\n\nThanks for booking {{.Service}} with {{.Salon}} on {{.Date}} at {{.Time}}.\nWe will confirm your appointment shortly.\n\nReference: {{.Reference}}\n",
	"created.sms":       `{{.Salon}}: we received your booking for {{.Service}} on {{.Date}} at {{.Time}}.`,
	"staff.subject":     `New booking: {{.Service}} {{.Date}} {{.Time}}`,
	"staff.email":       "{{.Name}}{{if .Guest}} (guest){{end}} booked {{.Service}} on {{.Date}} at {{.Time}}.\nEmail: {{or .Email \"-\"}}\nPhone: {{or .Phone \"-\"}}\nReference: {{.Reference}}\n",
	"confirmed.subject": `Appointment confirmed: {{.Date}} at {{.Time}}`,
	"confirmed.email":   "Hi {{.Name}},\n\nYour {{.Service}} appointment on {{.Date}} at {{.Time}} is confirmed. See you soon!\n",
	"confirmed.sms":     `{{.Salon}}: your {{.Service}} appointment on {{.Date}} at {{.Time}} is confirmed.`,
	"cancelled.subject": `Appointment cancelled: {{.Date}} at {{.Time}}`,
	"cancelled.email":   "Hi {{.Name}},\n\nYour {{.Service}} appointment on {{.Date}} at {{.Time}} has been cancelled.\nYou can book a new time at any moment.\n",
	"cancelled.sms":     `{{.Salon}}: your appointment on {{.Date}} at {{.Time}} was cancelled.`,
	"completed.subject": `Thanks for visiting {{.Salon}}`,
	"completed.email":   "Hi {{.Name}},\n\nThanks for choosing us for your {{.Service}}. We would love to hear how it went, leave a review from your appointments page.\n",
	"paid.subject":      `Deposit received`,
	"paid.email":        "Hi {{.Name}},\n\nWe received your deposit of {{.Amount}}. Reference: {{.Reference}}\n",
	"paid.sms":          `{{.Salon}}: deposit of {{.Amount}} received. Thank you!`,
}

func New(salonName, staffEmail string) (*Renderer, error) {
	if strings.TrimSpace(salonName) == "" {
		salonName = "the salon"
	}
	root := template.New("root").Option("missingkey=error")
	for name, text := range source {
		if _, err := root.New(name).Parse(text); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return &Renderer{SalonName: salonName, StaffEmail: strings.TrimSpace(staffEmail), tmpl: root}, nil
}

// Render decodes raw according to eventType and returns the messages to
// send. Events that warrant no notification yield an empty slice.
func (r *Renderer) Render(eventType string, raw []byte) ([]Message, error) {
	switch eventType {
	case TopicAppointmentCreated, TopicAppointmentStatusChanged:
		var a Appointment
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, fmt.Errorf("decode appointment event: %w", err)
		}
		if a.AppointmentID == "" {
			return nil, errors.New("appointment event without appointment_id")
		}
		if eventType == TopicAppointmentCreated {
			return r.created(a)
		}
		return r.statusChanged(a)
	case TopicPaymentSucceeded:
		var p Payment
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode payment event: %w", err)
		}
		if p.AppointmentID == "" {
			return nil, errors.New("payment event without appointment_id")
		}
		return r.paid(p)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, eventType)
	}
}

func (r *Renderer) created(a Appointment) ([]Message, error) {
	v := appointmentView(r.SalonName, a)
	out, err := r.toContact(v, a.AppointmentID, a.ContactEmail, a.ContactPhone, "created")
	if err != nil {
		return nil, err
	}
	if r.StaffEmail != "" {
		msg, err := r.email(v, a.AppointmentID, r.StaffEmail, "staff")
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

func (r *Renderer) statusChanged(a Appointment) ([]Message, error) {
	if a.Status == a.PreviousStatus {
		return nil, nil
	}
	v := appointmentView(r.SalonName, a)
	switch a.Status {
	case "confirmed", "cancelled":
		return r.toContact(v, a.AppointmentID, a.ContactEmail, a.ContactPhone, a.Status)
	case "completed":
		if a.ContactEmail == "" {
			return nil, nil
		}
		msg, err := r.email(v, a.AppointmentID, a.ContactEmail, "completed")
		if err != nil {
			return nil, err
		}
		return []Message{msg}, nil
	default:
		return nil, nil
	}
}

func (r *Renderer) paid(p Payment) ([]Message, error) {
	v := view{
		Salon:     r.SalonName,
		Reference: p.AppointmentID,
		Name:      p.ContactName,
		Amount:    FormatAmount(p.AmountCents, p.Currency),
	}
	return r.toContact(v, p.AppointmentID, p.ContactEmail, p.ContactPhone, "paid")
}

func (r *Renderer) toContact(v view, appointmentID, emailAddr, phone, prefix string) ([]Message, error) {
	var out []Message
	if emailAddr != "" {
		msg, err := r.email(v, appointmentID, emailAddr, prefix)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	if phone != "" {
		body, err := r.exec(prefix+".sms", v)
		if err != nil {
			return nil, err
		}
		out = append(out, Message{AppointmentID: appointmentID, Channel: ChannelSMS, Recipient: phone, Body: body})
	}
	return out, nil
}

func (r *Renderer) email(v view, appointmentID, to, prefix string) (Message, error) {
	subject, err := r.exec(prefix+".subject", v)
	if err != nil {
		return Message{}, err
	}
	body, err := r.exec(prefix+".email", v)
	if err != nil {
		return Message{}, err
	}
	return Message{AppointmentID: appointmentID, Channel: ChannelEmail, Recipient: to, Subject: subject, Body: body}, nil
}

func (r *Renderer) exec(name string, v view) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, v); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// FormatAmount renders minor units as "12.50 USD".
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, strings.ToUpper(currency))
}
