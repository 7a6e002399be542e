package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/auth"
	"github.com/md-rashed-zaman/salonbook/libs/config"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	"github.com/md-rashed-zaman/salonbook/libs/notify/email"
	"github.com/md-rashed-zaman/salonbook/libs/notify/sms"
	otelx "github.com/md-rashed-zaman/salonbook/libs/otel"
	"github.com/md-rashed-zaman/salonbook/libs/runtime"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/handlers"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/metrics"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/payments"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/internal/storage"
	"github.com/md-rashed-zaman/salonbook/services/salon-api/migrations"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "salon-api")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	maxConns, err := config.Int("DB_MAX_CONNS", 10)
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(maxConns)})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if config.Bool("DB_MIGRATE", true) {
		if err := db.Migrate(ctx, pool, migrations.FS, ".", logger); err != nil {
			logger.Error("db migration failed", "err", err)
			panic(err)
		}
	}

	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}
	jwtTTL, err := config.Duration("JWT_TTL", 24*time.Hour)
	if err != nil {
		panic(err)
	}
	signer, err := auth.NewSigner(jwtSecret, jwtTTL)
	if err != nil {
		panic(err)
	}

	loc, err := time.LoadLocation(config.String("SALON_TIMEZONE", "UTC"))
	if err != nil {
		panic(err)
	}

	outboxRepo := outbox.NewRepository()
	appointments := storage.NewAppointments(pool, outboxRepo)
	blackouts := storage.NewBlackouts(pool)
	availabilitySvc := availability.NewService(storage.AvailabilitySource{Appointments: appointments, Blackouts: blackouts}, loc)

	retention, err := config.Duration("OUTBOX_RETENTION", 7*24*time.Hour)
	if err != nil {
		panic(err)
	}
	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
		Retention: retention,
	})
	go outboxPublisher.Run(ctx)

	var gateway payments.Gateway = payments.MockGateway{}
	if key := config.String("STRIPE_SECRET_KEY", ""); key != "" {
		sg, err := payments.NewStripeGateway(key)
		if err != nil {
			panic(err)
		}
		gateway = sg
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set; deposits are settled by the mock gateway")
	}
	webhookTolerance, err := config.Duration("STRIPE_WEBHOOK_TOLERANCE", 5*time.Minute)
	if err != nil {
		panic(err)
	}

	providerClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	emailSender, err := email.NewSender(email.ProviderConfigFromEnv(), providerClient)
	if err != nil {
		panic(err)
	}
	smsSender, err := sms.NewSender(sms.ProviderConfigFromEnv(), providerClient)
	if err != nil {
		panic(err)
	}

	readyChecks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if kafkaBrokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}

	rateLimit, err := config.Int("RATE_LIMIT_PER_MINUTE", 30)
	if err != nil {
		panic(err)
	}
	var limit httpx.Middleware
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
		})
		defer func() { _ = rdb.Close() }()
		limiter := httpx.NewRedisRateLimiter(rdb, rateLimit, time.Minute, service+":rl")
		limit = limiter.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: httpx.RedisReadyCheck(rdb)})
	} else {
		limit = httpx.NewRateLimiter(rateLimit, time.Minute).Middleware()
	}

	requestTimeout, err := config.Duration("REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		panic(err)
	}

	currency := strings.ToLower(config.String("PAYMENT_CURRENCY", "usd"))

	metrics.Register()
	api := handlers.New(handlers.Deps{
		Logger:       logger,
		Signer:       signer,
		Appointments: appointments,
		Availability: availabilitySvc,
		Catalog:      storage.NewCatalog(pool),
		Profiles:     storage.NewProfiles(pool),
		Blackouts:    blackouts,
		Payments:     storage.NewPayments(pool, outboxRepo),
		Reviews:      storage.NewReviews(pool),
		Gallery:      storage.NewGallery(pool),
		Audit:        storage.NewAudit(pool),
		Gateway:      gateway,
		Webhooks: payments.WebhookVerifier{
			Secret:    config.String("STRIPE_WEBHOOK_SECRET", ""),
			Tolerance: webhookTolerance,
		},
		Email:         emailSender,
		SMS:           smsSender,
		Currency:      currency,
		AdminEmails:   config.List("ADMIN_EMAILS"),
		SecureCookies: config.Bool("COOKIE_SECURE", false),
	})

	mux := runtime.NewBaseMux(readyChecks...)
	api.Routes(mux, limit)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS"),
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
			ExposedHeaders:   []string{"Idempotent-Replayed", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           10 * time.Minute,
		}),
		httpx.WithTimeout(requestTimeout),
		httpx.WithBodyLimit(1<<20),
		httpx.WithMetrics,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "salon-api")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("salon api configured", "timezone", loc.String(), "currency", currency, "kafka", kafkaBrokers != "")
	if err := runtime.Serve(ctx, srv, logger, 10*time.Second); err != nil {
		panic(err)
	}
}
