package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/auth"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/payments"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/storage"
)

const testSecret = "test-secret-0123456789"

type fakeAvailability struct {
	today string
	slots []string
	err   error
}

func (f *fakeAvailability) Today() string { return f.today }

func (f *fakeAvailability) Slots(_ context.Context, date string) ([]string, error) {
	if _, err := model.ParseDate(date, nil); err != nil {
		return nil, err
	}
	return f.slots, f.err
}

func (f *fakeAvailability) IsBookable(ctx context.Context, date, clock string) (bool, error) {
	slots, err := f.Slots(ctx, date)
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if s == clock {
			return true, nil
		}
	}
	return false, nil
}

type fakeAppointments struct {
	mu       sync.Mutex
	items    map[string]model.Appointment
	keys     map[string]string
	hashes   map[string]string
	createFn func(model.Appointment) error
	seq      int
}

func newFakeAppointments() *fakeAppointments {
	return &fakeAppointments{items: map[string]model.Appointment{}, keys: map[string]string{}, hashes: map[string]string{}}
}

func (f *fakeAppointments) Create(_ context.Context, a model.Appointment, key string) (model.Appointment, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if key != "" {
		if id, ok := f.keys[key]; ok {
			if f.hashes[key] != a.RequestHash() {
				return model.Appointment{}, false, storage.ErrIdempotencyMismatch
			}
			return f.items[id], true, nil
		}
	}
	if f.createFn != nil {
		if err := f.createFn(a); err != nil {
			return model.Appointment{}, false, err
		}
	}
	f.seq++
	a.ID = fmt.Sprintf("appt-%d", f.seq)
	f.items[a.ID] = a
	if key != "" {
		f.keys[key] = a.ID
		f.hashes[key] = a.RequestHash()
	}
	return a, false, nil
}

func (f *fakeAppointments) LookupIdempotent(_ context.Context, key, hash string) (model.Appointment, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.keys[key]
	if !ok {
		return model.Appointment{}, false, nil
	}
	if f.hashes[key] != hash {
		return model.Appointment{}, false, storage.ErrIdempotencyMismatch
	}
	return f.items[id], true, nil
}

func (f *fakeAppointments) Get(_ context.Context, id string) (model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok {
		return model.Appointment{}, storage.ErrNotFound
	}
	return a, nil
}

func (f *fakeAppointments) List(_ context.Context, flt storage.AppointmentFilter) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Appointment
	for _, a := range f.items {
		if flt.ClientID != "" && a.ClientID != flt.ClientID {
			continue
		}
		if flt.Status != "" && a.Status != flt.Status {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAppointments) Transition(_ context.Context, id string, to model.Status, guard func(model.Appointment) error) (model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.items[id]
	if !ok {
		return model.Appointment{}, storage.ErrNotFound
	}
	if guard != nil {
		if err := guard(a); err != nil {
			return model.Appointment{}, err
		}
	}
	if a.Status == to {
		return a, nil
	}
	if !a.Status.CanTransition(to) {
		return model.Appointment{}, model.ErrInvalidTransition
	}
	a.Status = to
	f.items[id] = a
	return a, nil
}

func (f *fakeAppointments) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeCatalog struct {
	services map[string]model.Service
}

func (f *fakeCatalog) ListCategories(context.Context) ([]model.ServiceCategory, error) {
	return []model.ServiceCategory{{ID: "c1", Name: "Hair", Slug: "hair"}}, nil
}

func (f *fakeCatalog) UpsertCategory(_ context.Context, c model.ServiceCategory) (model.ServiceCategory, error) {
	c.ID = "c-" + c.Slug
	return c, nil
}

func (f *fakeCatalog) ListServices(_ context.Context, flt storage.ServiceFilter) ([]model.Service, error) {
	var out []model.Service
	for _, s := range f.services {
		if s.Active || flt.IncludeInactive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetService(_ context.Context, id string) (model.Service, error) {
	s, ok := f.services[id]
	if !ok {
		return model.Service{}, storage.ErrNotFound
	}
	return s, nil
}

func (f *fakeCatalog) CreateService(_ context.Context, s model.Service) (model.Service, error) {
	s.ID = "svc-new"
	f.services[s.ID] = s
	return s, nil
}

func (f *fakeCatalog) UpdateService(_ context.Context, s model.Service) (model.Service, error) {
	if _, ok := f.services[s.ID]; !ok {
		return model.Service{}, storage.ErrNotFound
	}
	f.services[s.ID] = s
	return s, nil
}

func (f *fakeCatalog) DeactivateService(_ context.Context, id string) error {
	s, ok := f.services[id]
	if !ok {
		return storage.ErrNotFound
	}
	s.Active = false
	f.services[id] = s
	return nil
}

type fakeProfiles struct {
	mu     sync.Mutex
	byID   map[string]model.Profile
	hashes map[string]string
	seq    int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{byID: map[string]model.Profile{}, hashes: map[string]string{}}
}

func (f *fakeProfiles) Create(_ context.Context, in storage.NewProfile) (model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if in.Email != "" && p.Email == in.Email {
			return model.Profile{}, storage.ErrDuplicate
		}
	}
	f.seq++
	p := model.Profile{
		ID:       fmt.Sprintf("user-%d", f.seq),
		FullName: in.FullName,
		Email:    in.Email,
		Phone:    in.Phone,
		IsAdmin:  in.IsAdmin,
	}
	f.byID[p.ID] = p
	f.hashes[p.ID] = in.PasswordHash
	return p, nil
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return model.Profile{}, storage.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) Credentials(_ context.Context, email string) (model.Profile, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, p := range f.byID {
		if p.Email == email {
			return p, f.hashes[id], nil
		}
	}
	return model.Profile{}, "", storage.ErrNotFound
}

func (f *fakeProfiles) List(context.Context, string, int) ([]model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Profile
	for _, p := range f.byID {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProfiles) Update(_ context.Context, p model.Profile) (model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[p.ID]; !ok {
		return model.Profile{}, storage.ErrNotFound
	}
	f.byID[p.ID] = p
	return p, nil
}

func (f *fakeProfiles) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakePayments struct {
	mu       sync.Mutex
	byExt    map[string]model.Payment
	events   map[string]bool
	appts    *fakeAppointments
	applyErr error
}

func newFakePayments(appts *fakeAppointments) *fakePayments {
	return &fakePayments{byExt: map[string]model.Payment{}, events: map[string]bool{}, appts: appts}
}

func (f *fakePayments) RecordIntent(_ context.Context, p model.Payment) (model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.byExt[p.ExternalID]; ok {
		return existing, nil
	}
	p.ID = "pay-" + p.ExternalID
	p.Status = model.PaymentPending
	f.byExt[p.ExternalID] = p
	return p, nil
}

func (f *fakePayments) ApplyProviderEvent(_ context.Context, evt storage.ProviderEvent, externalID string, status model.PaymentStatus) (model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.applyErr != nil {
		return model.Payment{}, f.applyErr
	}
	if f.events[evt.EventID] {
		return model.Payment{}, storage.ErrDuplicate
	}
	if externalID == "" {
		f.events[evt.EventID] = true
		return model.Payment{}, nil
	}
	p, ok := f.byExt[externalID]
	if !ok {
		return model.Payment{}, storage.ErrNotFound
	}
	f.events[evt.EventID] = true
	return f.settle(p, status), nil
}

func (f *fakePayments) ListForAppointment(_ context.Context, appointmentID string) ([]model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Payment
	for _, p := range f.byExt {
		if p.AppointmentID == appointmentID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePayments) MarkSucceeded(_ context.Context, externalID string) (model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byExt[externalID]
	if !ok {
		return model.Payment{}, storage.ErrNotFound
	}
	return f.settle(p, model.PaymentSucceeded), nil
}

func (f *fakePayments) settle(p model.Payment, status model.PaymentStatus) model.Payment {
	if p.Status == model.PaymentSucceeded {
		return p
	}
	p.Status = status
	f.byExt[p.ExternalID] = p
	if status == model.PaymentSucceeded && f.appts != nil {
		f.appts.mu.Lock()
		a := f.appts.items[p.AppointmentID]
		a.DepositPaid = true
		a.PaymentRef = p.ExternalID
		f.appts.items[p.AppointmentID] = a
		f.appts.mu.Unlock()
	}
	return p
}

type fakeReviews struct {
	items []model.Review
}

func (f *fakeReviews) Create(_ context.Context, r model.Review) (model.Review, error) {
	for _, existing := range f.items {
		if existing.AppointmentID == r.AppointmentID {
			return model.Review{}, storage.ErrDuplicate
		}
	}
	r.ID = fmt.Sprintf("rev-%d", len(f.items)+1)
	f.items = append(f.items, r)
	return r, nil
}

func (f *fakeReviews) ListPublished(_ context.Context, serviceID string) ([]model.Review, error) {
	var out []model.Review
	for _, r := range f.items {
		if r.ServiceID == serviceID && r.Published {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReviews) List(context.Context, storage.ReviewFilter) ([]model.Review, error) {
	return f.items, nil
}

func (f *fakeReviews) SetPublished(_ context.Context, id string, published bool) (model.Review, error) {
	for i, r := range f.items {
		if r.ID == id {
			f.items[i].Published = published
			return f.items[i], nil
		}
	}
	return model.Review{}, storage.ErrNotFound
}

type fakeBlackouts struct {
	items []model.BlackoutDate
}

func (f *fakeBlackouts) List(context.Context, string) ([]model.BlackoutDate, error) {
	return f.items, nil
}

func (f *fakeBlackouts) Create(_ context.Context, b model.BlackoutDate) (model.BlackoutDate, error) {
	b.ID = fmt.Sprintf("bo-%d", len(f.items)+1)
	f.items = append(f.items, b)
	return b, nil
}

func (f *fakeBlackouts) Delete(context.Context, string) error { return storage.ErrNotFound }

type fakeGallery struct{}

func (fakeGallery) List(context.Context) ([]model.GalleryItem, error) { return nil, nil }
func (fakeGallery) Create(_ context.Context, it model.GalleryItem) (model.GalleryItem, error) {
	it.ID = "g1"
	return it, nil
}
func (fakeGallery) Delete(context.Context, string) error { return nil }

type fakeAudit struct {
	mu     sync.Mutex
	events []storage.AuditEvent
}

func (f *fakeAudit) Record(_ context.Context, evt storage.AuditEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return nil
}

type recordingGateway struct {
	last payments.DepositRequest
	err  error
}

func (g *recordingGateway) CreateDepositIntent(ctx context.Context, req payments.DepositRequest) (payments.Intent, error) {
	g.last = req
	if g.err != nil {
		return payments.Intent{}, g.err
	}
	return payments.MockGateway{}.CreateDepositIntent(ctx, req)
}

type fakeSMS struct {
	err  error
	sent []string
}

func (f *fakeSMS) ProviderID() string { return "sms-test" }
func (f *fakeSMS) Send(_ context.Context, to, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakeEmail struct {
	err error
}

func (f *fakeEmail) ProviderID() string { return "email-test" }
func (f *fakeEmail) Send(context.Context, string, string, string) error {
	return f.err
}

var errProvider = errors.New("provider down")

type testEnv struct {
	h        *Handler
	mux      *http.ServeMux
	signer   *auth.Signer
	avail    *fakeAvailability
	appts    *fakeAppointments
	catalog  *fakeCatalog
	profiles *fakeProfiles
	payments *fakePayments
	reviews  *fakeReviews
	audit    *fakeAudit
	gateway  *recordingGateway
	sms      *fakeSMS
	email    *fakeEmail
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	signer, err := auth.NewSigner(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	appts := newFakeAppointments()
	env := &testEnv{
		signer: signer,
		avail:  &fakeAvailability{today: "2030-01-10", slots: []string{"09:00", "09:30", "10:00"}},
		appts:  appts,
		catalog: &fakeCatalog{services: map[string]model.Service{
			"svc-1":   {ID: "svc-1", Name: "Haircut", PriceCents: 5000, DurationMinutes: 30, Active: true},
			"svc-off": {ID: "svc-off", Name: "Retired", PriceCents: 1000, DurationMinutes: 30},
		}},
		profiles: newFakeProfiles(),
		payments: newFakePayments(appts),
		reviews:  &fakeReviews{},
		audit:    &fakeAudit{},
		gateway:  &recordingGateway{},
		sms:      &fakeSMS{},
		email:    &fakeEmail{},
	}
	env.h = New(Deps{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Signer:       signer,
		Appointments: env.appts,
		Availability: env.avail,
		Catalog:      env.catalog,
		Profiles:     env.profiles,
		Blackouts:    &fakeBlackouts{},
		Payments:     env.payments,
		Reviews:      env.reviews,
		Gallery:      fakeGallery{},
		Audit:        env.audit,
		Gateway:      env.gateway,
		Webhooks:     payments.WebhookVerifier{Secret: "whsec_test", Tolerance: 5 * time.Minute},
		Email:        env.email,
		SMS:          env.sms,
		AdminEmails:  []string{"Owner@Salon.test"},
	})
	env.mux = http.NewServeMux()
	env.h.Routes(env.mux, nil)
	return env
}

func (e *testEnv) token(t *testing.T, sub, role string) string {
	t.Helper()
	tok, _, err := e.signer.Issue(sub, sub+"@example.test", role)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return tok
}

func (e *testEnv) do(method, path, body, token string, headers ...string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	e.mux.ServeHTTP(rr, req)
	return rr
}
