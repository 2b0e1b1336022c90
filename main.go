package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/yourdudeken/eventtik/config"
	"github.com/yourdudeken/eventtik/internal/consumer"
	"github.com/yourdudeken/eventtik/internal/gateway"
	"github.com/yourdudeken/eventtik/internal/handler"
	"github.com/yourdudeken/eventtik/internal/middleware"
	"github.com/yourdudeken/eventtik/internal/notify"
	"github.com/yourdudeken/eventtik/internal/repository"
	"github.com/yourdudeken/eventtik/internal/service"
	"github.com/yourdudeken/eventtik/pkg/database"
	"github.com/yourdudeken/eventtik/pkg/lease"
	"github.com/yourdudeken/eventtik/pkg/mpesa"
	"github.com/yourdudeken/eventtik/pkg/rabbitmq"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		fatal("invalid configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(cfg.DSN(), database.Options{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		fatal("failed to connect to database", err)
	}

	store := repository.NewStore(db)
	roles := repository.NewRoleRepository(db)

	// RabbitMQ consumer: sync events from event management
	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
	if err != nil {
		fatal("failed to connect to RabbitMQ", err)
	}
	defer mqConsumer.Close()

	msgs, err := mqConsumer.Consume()
	if err != nil {
		fatal("failed to start consuming", err)
	}
	consumer.NewEventConsumer(store.Events()).Start(ctx, msgs)

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
	if err != nil {
		fatal("failed to open RabbitMQ publisher", err)
	}
	defer publisher.Close()

	notifiers := notify.Fanout{notify.NewBroker(publisher)}
	if cfg.SMTP.Enabled() {
		email := notify.NewEmail(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
		notifiers = append(notifiers, email)

		reminders := service.NewReminders(repository.NewReminderRepository(db), email, service.ReminderConfig{
			Interval:      cfg.Reminders.Interval,
			Lead:          cfg.Reminders.Lead,
			FeedbackDelay: cfg.Reminders.FeedbackDelay,
		})
		go reminders.Run(ctx)
	} else {
		slog.Info("SMTP not configured, emails and reminders disabled")
	}

	var (
		locker    service.Locker
		rateStore echoMw.RateLimiterStore
	)
	rdb, err := newRedis(cfg.Redis)
	switch {
	case err != nil:
		fatal("invalid redis configuration", err)
	case rdb != nil:
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis unreachable at startup", "error", err)
		}
		locker = lease.NewLocker(rdb)
		rateStore = middleware.NewRedisRateStore(rdb, "api", cfg.Server.RateLimit, time.Minute)
	default:
		slog.Info("redis not configured, reconciler and rate limits are per instance")
		rateStore = middleware.NewMemoryRateStore(cfg.Server.RateLimit, time.Minute)
	}

	gw, simulated := newGateway(cfg)

	promos := service.NewPromoLedger(store)
	promos.SetHoldTTL(cfg.Payment.HoldTTL)
	payments := service.NewPaymentService(store, gw, promos, notifiers)
	reconciler := service.NewReconciler(payments, store.Tickets(), locker, service.PollConfig{
		InitialDelay: cfg.Payment.PollInitialDelay,
		Interval:     cfg.Payment.PollInterval,
		MaxAttempts:  cfg.Payment.PollMaxAttempts,
		Backoff:      cfg.Payment.PollBackoff,
		MaxInterval:  cfg.Payment.PollMaxInterval,
	})
	defer reconciler.Stop()

	if simulated != nil {
		defer simulated.Close()
		go payments.Listen(ctx, simulated.Results())
	}

	checkout := service.NewCheckoutService(store, promos, payments, reconciler, []byte(cfg.Payment.QRSecret))
	checkout.SetHoldTTL(cfg.Payment.HoldTTL)
	lifecycle := service.NewLifecycleService(store, notifiers)
	checkin := service.NewCheckInService(lifecycle)

	if n, err := reconciler.Resume(ctx); err != nil {
		slog.Error("failed to resume pending payments", "error", err)
	} else if n > 0 {
		slog.Info("resumed pending payments", "count", n)
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Validator = middleware.NewRequestValidator()
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.Info("request", append(attrs, "component", "http")...)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":       "ok",
			"service":      "eventtik",
			"payment_mode": string(gw.Mode()),
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	secret := []byte(cfg.Auth.JWTSecret)
	handler.RegisterRoutes(e, handler.Handlers{
		Checkout: handler.NewCheckoutHandler(checkout, promos),
		Payments: handler.NewPaymentHandler(payments, reconciler),
		Tickets:  handler.NewTicketHandler(lifecycle, roles),
		CheckIn:  handler.NewCheckInHandler(checkin, roles),
	}, handler.Middlewares{
		Auth:         middleware.JWTAuth(secret, false),
		OptionalAuth: middleware.JWTAuth(secret, true),
		RateLimit:    middleware.RateLimit(rateStore),
	})

	go func() {
		slog.Info("eventtik starting", "port", cfg.Server.Port, "payment_mode", gw.Mode())
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server stopped", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
}

func setupLogger(cfg *config.Config) {
	var h slog.Handler
	if cfg.IsDevelopment() {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		h = slog.NewJSONHandler(os.Stdout, nil)
	}
	slog.SetDefault(slog.New(h))
}

// newGateway picks the live M-Pesa gateway when credentials are present and
// falls back to simulated settlement otherwise.
func newGateway(cfg *config.Config) (gateway.Gateway, *gateway.Simulated) {
	if cfg.Mpesa.Configured() {
		client := mpesa.NewClient(mpesa.Config{
			BaseURL:        cfg.Mpesa.BaseURL,
			ConsumerKey:    cfg.Mpesa.ConsumerKey,
			ConsumerSecret: cfg.Mpesa.ConsumerSecret,
			ShortCode:      cfg.Mpesa.ShortCode,
			PassKey:        cfg.Mpesa.PassKey,
			CallbackURL:    cfg.Mpesa.CallbackURL,
		}, nil)
		return gateway.NewMpesa(client), nil
	}

	slog.Warn("M-Pesa not configured, payments will be simulated", "delay", cfg.Payment.SimulatedDelay)
	sim := gateway.NewSimulated(cfg.Payment.SimulatedDelay)
	return sim, sim
}

// newRedis returns nil when no redis URL is configured.
func newRedis(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	if strings.Contains(cfg.URL, "://") {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, err
		}
		if cfg.Password != "" {
			opts.Password = cfg.Password
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.URL, Password: cfg.Password, DB: cfg.DB}), nil
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
