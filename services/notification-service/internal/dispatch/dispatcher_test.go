package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/storage"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/templates"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEmail struct {
	to  []string
	err error
}

func (r *recordingEmail) Send(_ context.Context, to, _, _ string) error {
	r.to = append(r.to, to)
	return r.err
}

func (r *recordingEmail) ProviderID() string { return "email-test" }

type recordingSMS struct {
	to  []string
	err error
}

func (r *recordingSMS) Send(_ context.Context, to, _ string) error {
	r.to = append(r.to, to)
	return r.err
}

func (r *recordingSMS) ProviderID() string { return "sms-test" }

type memStore struct {
	rows []storage.Notification
	err  error
	// failChannel makes only inserts for that channel fail.
	failChannel string
}

func (m *memStore) Insert(_ context.Context, n storage.Notification) error {
	if m.err != nil || (m.failChannel != "" && n.Channel == m.failChannel) {
		return errors.New("db down")
	}
	m.rows = append(m.rows, n)
	return nil
}

func (m *memStore) Attempted(_ context.Context, eventID, channel, recipient string) (bool, error) {
	for _, r := range m.rows {
		if r.EventID == eventID && r.Channel == channel && r.Recipient == recipient {
			return true, nil
		}
	}
	return false, nil
}

func event(eventType, id, body string) kafka.Message {
	return kafka.Message{
		Topic: eventType,
		Value: []byte(body),
		Headers: []kafka.Header{
			{Key: kafkax.HeaderEventID, Value: []byte(id)},
			{Key: kafkax.HeaderEventType, Value: []byte(eventType)},
		},
	}
}

const created = `{"appointment_id":"a1","service_name":"Haircut","appointment_date":"2030-01-10","appointment_time":"09:30","status":"pending","contact_name":"Ana","contact_email":"ana@example.com","contact_phone":"+15551234567"}`

func newDispatcher(t *testing.T, mail *recordingEmail, text *recordingSMS, store *memStore, cfg Config) *Dispatcher {
	t.Helper()
	renderer, err := templates.New("Studio Nine", "")
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(logger, renderer, mail, text, store, cfg)
}

func TestHandleSendsAndRecords(t *testing.T) {
	mail, text, store := &recordingEmail{}, &recordingSMS{}, &memStore{}
	d := newDispatcher(t, mail, text, store, Config{})

	require.NoError(t, d.Handle(context.Background(), event(templates.TopicAppointmentCreated, "e1", created)))

	assert.Equal(t, []string{"ana@example.com"}, mail.to)
	assert.Equal(t, []string{"+15551234567"}, text.to)
	require.Len(t, store.rows, 2)
	assert.Equal(t, storage.StatusSent, store.rows[0].Status)
	assert.Equal(t, "email-test", store.rows[0].ProviderID)
	assert.Equal(t, "sms-test", store.rows[1].ProviderID)
	assert.Equal(t, "e1", store.rows[1].EventID)
	assert.Equal(t, "a1", store.rows[1].Payload["appointment_id"])
}

func TestHandleRecordsProviderFailure(t *testing.T) {
	mail, text, store := &recordingEmail{err: errors.New("smtp down")}, &recordingSMS{}, &memStore{}
	d := newDispatcher(t, mail, text, store, Config{})

	require.NoError(t, d.Handle(context.Background(), event(templates.TopicAppointmentCreated, "e1", created)))

	require.Len(t, store.rows, 2)
	assert.Equal(t, storage.StatusFailed, store.rows[0].Status)
	assert.Equal(t, "smtp down", store.rows[0].Error)
	assert.Empty(t, store.rows[0].ProviderID)
	assert.Equal(t, storage.StatusSent, store.rows[1].Status)
}

func TestHandleSimulatedFailureSkipsProvider(t *testing.T) {
	mail, text, store := &recordingEmail{}, &recordingSMS{}, &memStore{}
	d := newDispatcher(t, mail, text, store, Config{FailSuffix: "@example.com"})

	require.NoError(t, d.Handle(context.Background(), event(templates.TopicAppointmentCreated, "e1", created)))

	assert.Empty(t, mail.to)
	assert.Equal(t, storage.StatusFailed, store.rows[0].Status)
	assert.Equal(t, "simulated failure", store.rows[0].Error)
}

func TestHandleSwallowsBadEvents(t *testing.T) {
	store := &memStore{}
	d := newDispatcher(t, &recordingEmail{}, &recordingSMS{}, store, Config{})

	assert.NoError(t, d.Handle(context.Background(), event("salon.unknown.v1", "e1", `{}`)))
	assert.NoError(t, d.Handle(context.Background(), event(templates.TopicAppointmentCreated, "e2", `{`)))
	assert.Empty(t, store.rows)
}

func TestHandleReturnsStoreError(t *testing.T) {
	store := &memStore{err: errors.New("db down")}
	d := newDispatcher(t, &recordingEmail{}, &recordingSMS{}, store, Config{})

	assert.Error(t, d.Handle(context.Background(), event(templates.TopicAppointmentCreated, "e1", created)))
}

func TestHandleRedeliveryAfterPartialPersistFailure(t *testing.T) {
	mail, text, store := &recordingEmail{}, &recordingSMS{}, &memStore{failChannel: templates.ChannelEmail}
	d := newDispatcher(t, mail, text, store, Config{})
	msg := event(templates.TopicAppointmentCreated, "e1", created)

	// The email row fails to persist but the SMS is still attempted.
	require.Error(t, d.Handle(context.Background(), msg))
	require.Len(t, store.rows, 1)
	assert.Equal(t, templates.ChannelSMS, store.rows[0].Channel)
	assert.Len(t, text.to, 1)

	store.failChannel = ""
	require.NoError(t, d.Handle(context.Background(), msg))
	assert.Len(t, text.to, 1, "sms must not be resent")
	assert.Len(t, mail.to, 2)
	require.Len(t, store.rows, 2)

	require.NoError(t, d.Handle(context.Background(), msg))
	assert.Len(t, mail.to, 2)
	assert.Len(t, text.to, 1)
}
