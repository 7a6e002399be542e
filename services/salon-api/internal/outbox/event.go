package outbox

import "encoding/json"

// Event types published by the salon API. The Kafka topic equals the type.
const (
	TypeAppointmentCreated       = "salon.appointment.created.v1"
	TypeAppointmentStatusChanged = "salon.appointment.status_changed.v1"
	TypePaymentSucceeded         = "salon.payment.succeeded.v1"
)

// Event is the envelope written to outbox_events in the same transaction as
// the state change it describes.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// AppointmentPayload is the body of the appointment events. Contact fields
// are resolved at write time so consumers need no database access.
type AppointmentPayload struct {
	AppointmentID  string `json:"appointment_id"`
	ServiceID      string `json:"service_id"`
	ServiceName    string `json:"service_name"`
	Date           string `json:"appointment_date"`
	Time           string `json:"appointment_time"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`
	ContactName    string `json:"contact_name"`
	ContactEmail   string `json:"contact_email,omitempty"`
	ContactPhone   string `json:"contact_phone,omitempty"`
	Guest          bool   `json:"guest"`
}

type PaymentPayload struct {
	PaymentID     string `json:"payment_id"`
	AppointmentID string `json:"appointment_id"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	ExternalID    string `json:"external_payment_id"`
	ContactName   string `json:"contact_name"`
	ContactEmail  string `json:"contact_email,omitempty"`
	ContactPhone  string `json:"contact_phone,omitempty"`
}

func NewEvent(aggregateType, aggregateID, eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       raw,
	}, nil
}
