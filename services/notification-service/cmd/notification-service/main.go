package main

import (
	"context"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/config"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	"github.com/md-rashed-zaman/salonbook/libs/notify/email"
	"github.com/md-rashed-zaman/salonbook/libs/notify/sms"
	otelx "github.com/md-rashed-zaman/salonbook/libs/otel"
	"github.com/md-rashed-zaman/salonbook/libs/runtime"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/consumer"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/dispatch"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/inbox"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/metrics"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/storage"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/templates"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/migrations"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
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
	pool, err := db.Open(ctx, dbURL)
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

	renderer, err := templates.New(config.String("SALON_NAME", ""), config.String("STAFF_NOTIFY_EMAIL", ""))
	if err != nil {
		panic(err)
	}

	metrics.Register()
	dispatcher := dispatch.New(logger, renderer, emailSender, smsSender, storage.NewRepository(pool), dispatch.Config{
		FailSuffix: config.String("NOTIFICATION_FAIL_SUFFIX", ""),
	})

	brokers := config.String("KAFKA_BROKERS", "")
	topics := config.List("KAFKA_CONSUME_TOPICS")
	if len(topics) == 0 {
		topics = templates.Topics
	}
	eventConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
		Brokers: brokers,
		GroupID: config.String("KAFKA_GROUP_ID", "notification-service"),
		Topics:  topics,
	}, dispatcher.Handle)
	go eventConsumer.Run(ctx)
	logger.Info("consumer started", "topics", topics, "group", config.String("KAFKA_GROUP_ID", "notification-service"))

	mux := runtime.NewBaseMux(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
		httpx.WithMetrics,
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := runtime.Serve(ctx, srv, logger, 10*time.Second); err != nil {
		panic(err)
	}
}
