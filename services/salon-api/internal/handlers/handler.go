package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/salonbook/libs/auth"
	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/libs/notify/email"
	"github.com/md-rashed-zaman/salonbook/libs/notify/sms"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/payments"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/storage"
)

type AppointmentStore interface {
	Create(ctx context.Context, a model.Appointment, idempotencyKey string) (model.Appointment, bool, error)
	LookupIdempotent(ctx context.Context, key, hash string) (model.Appointment, bool, error)
	Get(ctx context.Context, id string) (model.Appointment, error)
	List(ctx context.Context, f storage.AppointmentFilter) ([]model.Appointment, error)
	Transition(ctx context.Context, id string, to model.Status, guard func(model.Appointment) error) (model.Appointment, error)
	Delete(ctx context.Context, id string) error
}

type Availability interface {
	Today() string
	Slots(ctx context.Context, date string) ([]string, error)
	IsBookable(ctx context.Context, date, clock string) (bool, error)
}

type CatalogStore interface {
	ListCategories(ctx context.Context) ([]model.ServiceCategory, error)
	UpsertCategory(ctx context.Context, c model.ServiceCategory) (model.ServiceCategory, error)
	ListServices(ctx context.Context, f storage.ServiceFilter) ([]model.Service, error)
	GetService(ctx context.Context, id string) (model.Service, error)
	CreateService(ctx context.Context, s model.Service) (model.Service, error)
	UpdateService(ctx context.Context, s model.Service) (model.Service, error)
	DeactivateService(ctx context.Context, id string) error
}

type ProfileStore interface {
	Create(ctx context.Context, in storage.NewProfile) (model.Profile, error)
	GetByID(ctx context.Context, id string) (model.Profile, error)
	Credentials(ctx context.Context, email string) (model.Profile, string, error)
	List(ctx context.Context, search string, limit int) ([]model.Profile, error)
	Update(ctx context.Context, p model.Profile) (model.Profile, error)
	Delete(ctx context.Context, id string) error
}

type BlackoutStore interface {
	List(ctx context.Context, from string) ([]model.BlackoutDate, error)
	Create(ctx context.Context, b model.BlackoutDate) (model.BlackoutDate, error)
	Delete(ctx context.Context, id string) error
}

type PaymentStore interface {
	RecordIntent(ctx context.Context, p model.Payment) (model.Payment, error)
	ApplyProviderEvent(ctx context.Context, evt storage.ProviderEvent, externalID string, status model.PaymentStatus) (model.Payment, error)
	MarkSucceeded(ctx context.Context, externalID string) (model.Payment, error)
	ListForAppointment(ctx context.Context, appointmentID string) ([]model.Payment, error)
}

type ReviewStore interface {
	Create(ctx context.Context, r model.Review) (model.Review, error)
	ListPublished(ctx context.Context, serviceID string) ([]model.Review, error)
	List(ctx context.Context, f storage.ReviewFilter) ([]model.Review, error)
	SetPublished(ctx context.Context, id string, published bool) (model.Review, error)
}

type GalleryStore interface {
	List(ctx context.Context) ([]model.GalleryItem, error)
	Create(ctx context.Context, it model.GalleryItem) (model.GalleryItem, error)
	Delete(ctx context.Context, id string) error
}

type AuditRecorder interface {
	Record(ctx context.Context, evt storage.AuditEvent) error
}

// Deps wires the API to its stores and providers. Audit, Email and SMS are
// optional.
type Deps struct {
	Logger       *slog.Logger
	Signer       *auth.Signer
	Appointments AppointmentStore
	Availability Availability
	Catalog      CatalogStore
	Profiles     ProfileStore
	Blackouts    BlackoutStore
	Payments     PaymentStore
	Reviews      ReviewStore
	Gallery      GalleryStore
	Audit        AuditRecorder
	Gateway      payments.Gateway
	Webhooks     payments.WebhookVerifier
	Email        email.Sender
	SMS          sms.Sender

	Currency      string
	AdminEmails   []string
	SecureCookies bool
}

type Handler struct {
	d Deps
}

func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Gateway == nil {
		d.Gateway = payments.MockGateway{}
	}
	if d.Currency == "" {
		d.Currency = "usd"
	}
	for i, e := range d.AdminEmails {
		d.AdminEmails[i] = strings.ToLower(strings.TrimSpace(e))
	}
	return &Handler{d: d}
}

// Routes mounts the API on mux. limit guards the endpoints that create
// accounts, bookings or payments; nil disables it.
func (h *Handler) Routes(mux *http.ServeMux, limit httpx.Middleware) {
	if limit == nil {
		limit = func(next http.Handler) http.Handler { return next }
	}
	s := h.d.Signer
	authed := func(fn http.HandlerFunc) http.Handler { return s.RequireAuth(fn) }
	admin := func(fn http.HandlerFunc) http.Handler {
		return s.RequireAuth(auth.RequireRole(auth.RoleAdmin, fn))
	}

	mux.HandleFunc("GET /api/v1/categories", h.ListCategories)
	mux.HandleFunc("GET /api/v1/services", h.ListServices)
	mux.HandleFunc("GET /api/v1/services/{id}", h.GetService)
	mux.HandleFunc("GET /api/v1/services/{id}/reviews", h.ListServiceReviews)
	mux.HandleFunc("GET /api/v1/availability", h.Availability)
	mux.HandleFunc("GET /api/v1/gallery", h.ListGallery)
	mux.Handle("POST /api/v1/appointments", limit(s.OptionalAuth(http.HandlerFunc(h.CreateAppointment))))

	mux.Handle("POST /api/v1/auth/register", limit(http.HandlerFunc(h.RegisterAccount)))
	mux.Handle("POST /api/v1/auth/login", limit(http.HandlerFunc(h.Login)))
	mux.HandleFunc("POST /api/v1/auth/logout", h.Logout)
	mux.Handle("GET /api/v1/auth/me", authed(h.Me))

	mux.Handle("POST /api/v1/payments/intent", limit(s.OptionalAuth(http.HandlerFunc(h.CreatePaymentIntent))))
	mux.HandleFunc("POST /api/v1/payments/webhook", h.StripeWebhook)

	mux.Handle("GET /api/v1/me/appointments", authed(h.MyAppointments))
	mux.Handle("POST /api/v1/appointments/{id}/cancel", authed(h.CancelAppointment))
	mux.Handle("POST /api/v1/reviews", authed(h.CreateReview))

	mux.Handle("GET /api/v1/admin/appointments", admin(h.AdminListAppointments))
	mux.Handle("GET /api/v1/admin/appointments/{id}", admin(h.AdminGetAppointment))
	mux.Handle("PATCH /api/v1/admin/appointments/{id}/status", admin(h.AdminUpdateAppointmentStatus))
	mux.Handle("DELETE /api/v1/admin/appointments/{id}", admin(h.AdminDeleteAppointment))
	mux.Handle("GET /api/v1/admin/services", admin(h.AdminListServices))
	mux.Handle("POST /api/v1/admin/services", admin(h.AdminCreateService))
	mux.Handle("PUT /api/v1/admin/services/{id}", admin(h.AdminUpdateService))
	mux.Handle("DELETE /api/v1/admin/services/{id}", admin(h.AdminDeleteService))
	mux.Handle("POST /api/v1/admin/categories", admin(h.AdminCreateCategory))
	mux.Handle("GET /api/v1/admin/clients", admin(h.AdminListClients))
	mux.Handle("POST /api/v1/admin/clients", admin(h.AdminCreateClient))
	mux.Handle("PUT /api/v1/admin/clients/{id}", admin(h.AdminUpdateClient))
	mux.Handle("DELETE /api/v1/admin/clients/{id}", admin(h.AdminDeleteClient))
	mux.Handle("GET /api/v1/admin/blackouts", admin(h.AdminListBlackouts))
	mux.Handle("POST /api/v1/admin/blackouts", admin(h.AdminCreateBlackout))
	mux.Handle("DELETE /api/v1/admin/blackouts/{id}", admin(h.AdminDeleteBlackout))
	mux.Handle("GET /api/v1/admin/reviews", admin(h.AdminListReviews))
	mux.Handle("PATCH /api/v1/admin/reviews/{id}", admin(h.AdminSetReviewPublished))
	mux.Handle("POST /api/v1/admin/gallery", admin(h.AdminCreateGalleryItem))
	mux.Handle("DELETE /api/v1/admin/gallery/{id}", admin(h.AdminDeleteGalleryItem))
	mux.Handle("POST /api/v1/admin/notify/email", admin(h.AdminSendEmail))
	mux.Handle("POST /api/v1/admin/notify/sms", admin(h.AdminSendSMS))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

var errForbidden = errors.New("forbidden")

// storeError answers with the status matching err; unknown errors are
// logged and reported as 500.
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, err error, what string) {
	switch {
	case storage.IsNotFound(err):
		http.Error(w, what+" not found", http.StatusNotFound)
	case errors.Is(err, errForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, storage.ErrSlotTaken):
		http.Error(w, "time slot already booked", http.StatusConflict)
	case errors.Is(err, storage.ErrDuplicate):
		http.Error(w, what+" already exists", http.StatusConflict)
	case errors.Is(err, storage.ErrInUse):
		http.Error(w, what+" is still referenced", http.StatusConflict)
	case errors.Is(err, model.ErrInvalidTransition):
		http.Error(w, "invalid status transition", http.StatusConflict)
	case errors.Is(err, storage.ErrIdempotencyMismatch):
		http.Error(w, "idempotency key reused with a different request", http.StatusUnprocessableEntity)
	default:
		h.d.Logger.Error(what+" store error", "err", err, "path", r.URL.Path)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// audit records an admin action. Failures are logged and never fail the
// request.
func (h *Handler) audit(r *http.Request, eventType, subjectID string, metadata map[string]any) {
	if h.d.Audit == nil {
		return
	}
	actor := ""
	if c, ok := auth.ClaimsFromContext(r.Context()); ok {
		actor = c.Sub
	}
	if err := h.d.Audit.Record(r.Context(), storage.AuditEvent{
		Type:      eventType,
		ActorID:   actor,
		SubjectID: subjectID,
		Metadata:  metadata,
	}); err != nil {
		h.d.Logger.Warn("audit record failed", "err", err, "event_type", eventType)
	}
}

func caller(r *http.Request) (*auth.Claims, bool) {
	return auth.ClaimsFromContext(r.Context())
}
