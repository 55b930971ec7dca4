package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/serviceflow/schedcore/internal/httpapi"
	"github.com/serviceflow/schedcore/internal/metrics"
	"github.com/serviceflow/schedcore/internal/model"
	"github.com/serviceflow/schedcore/internal/notify"
	"github.com/serviceflow/schedcore/internal/persist"
	"github.com/serviceflow/schedcore/internal/schedule"
	"github.com/serviceflow/schedcore/internal/store"
	"github.com/serviceflow/schedcore/libs/config"
	"github.com/serviceflow/schedcore/libs/db"
	"github.com/serviceflow/schedcore/libs/httpx"
	"github.com/serviceflow/schedcore/libs/kafkax"
	otelx "github.com/serviceflow/schedcore/libs/otel"
	"github.com/serviceflow/schedcore/libs/runtime"
)

func main() {
	service := config.String("SERVICE_NAME", "schedcore")
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

	metrics.Init()

	userID, err := config.RequiredString("ACCOUNT_USER_ID")
	if err != nil {
		panic(err)
	}

	st := store.New(model.DefaultTenant())

	// Persistence is best-effort: both backends are optional and a missing
	// or failing backend never blocks the in-memory core.
	var backends []persist.DocumentStore
	var readyChecks []runtime.ReadyCheck

	if dbURL := config.String("DATABASE_URL", ""); dbURL != "" {
		pool, err := db.Open(ctx, dbURL)
		if err != nil {
			logger.Warn("postgres unavailable, continuing without it", "err", err)
		} else {
			defer pool.Close()
			backends = append(backends, persist.NewPostgresStore(pool))
			readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
		}
	}

	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
		})
		defer rdb.Close()
		backends = append(backends, persist.NewRedisStore(rdb, time.Duration(config.Int("REDIS_DOC_TTL_HOURS", 168))*time.Hour))
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: persist.ReadyCheck(rdb)})
	}

	if len(backends) > 0 {
		loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		doc, err := persist.Load(loadCtx, backends, userID)
		cancel()
		switch err {
		case nil:
			st.Restore(doc)
			logger.Info("account document loaded", "appointments", st.AppointmentCount())
		case persist.ErrNoDocument:
			logger.Info("no stored document, starting fresh")
		default:
			logger.Warn("document load failed, starting fresh", "err", err)
		}
	}

	saver := persist.NewSaver(st, userID, backends, logger,
		time.Duration(config.Int("SAVE_DEBOUNCE_MS", 2000))*time.Millisecond)
	st.SetOnChange(saver.Trigger)
	go saver.Run(ctx)

	brokers := config.String("KAFKA_BROKERS", "")
	publisher := notify.NewPublisher(brokers, logger)
	go publisher.Run(ctx)
	if brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	var whatsappSender notify.TextSender
	if url := config.String("WHATSAPP_WEBHOOK_URL", ""); url != "" {
		whatsappSender = notify.NewWebhookSender("whatsapp", url, config.String("WHATSAPP_WEBHOOK_TOKEN", ""))
	}
	var smsSender notify.TextSender
	if url := config.String("SMS_WEBHOOK_URL", ""); url != "" {
		smsSender = notify.NewWebhookSender("sms", url, config.String("SMS_WEBHOOK_TOKEN", ""))
	}
	var emailSender notify.EmailSender
	if host := config.String("SMTP_HOST", ""); host != "" {
		emailSender = notify.NewSMTPSender(host, config.String("SMTP_PORT", "1025"), config.String("SMTP_FROM", ""))
	}
	dispatcher := notify.NewDispatcher(whatsappSender, smsSender, emailSender, publisher, logger)

	manager := schedule.NewManager(st, dispatcher, logger)
	scheduler := schedule.NewScheduler(manager, logger,
		time.Duration(config.Int("REMINDER_CHECK_SECONDS", 60))*time.Second)
	if config.Bool("REMINDER_AUTOSTART", true) {
		scheduler.Start(ctx)
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("/metrics", metrics.Handler())
	api := httpapi.New(ctx, st, manager, scheduler, logger)
	api.Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("MAX_BODY_BYTES", 1<<20))),
		httpx.WithTimeout(time.Duration(config.Int("REQUEST_TIMEOUT_SECONDS", 30))*time.Second),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: splitOrigins(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
			AllowedHeaders: []string{"Content-Type", httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, service)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	saver.Flush(shutdownCtx)
	logger.Info("http server stopped")
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
