package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/timecard-payroll/internal/config"
	appHTTP "github.com/cmlabs-hris/timecard-payroll/internal/handler/http"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/broker"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/cron"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/database"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/lock"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/pubsub"
	"github.com/cmlabs-hris/timecard-payroll/internal/pkg/sse"
	"github.com/cmlabs-hris/timecard-payroll/internal/repository/postgresql"
	holidayService "github.com/cmlabs-hris/timecard-payroll/internal/service/holiday"
	notificationService "github.com/cmlabs-hris/timecard-payroll/internal/service/notification"
	payPolicyService "github.com/cmlabs-hris/timecard-payroll/internal/service/paypolicy"
	payrollService "github.com/cmlabs-hris/timecard-payroll/internal/service/payroll"
	timecardService "github.com/cmlabs-hris/timecard-payroll/internal/service/timecard"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterRedis "github.com/ulule/limiter/v3/drivers/store/redis"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()})).With(
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
	))

	dsn := cfg.DatabaseURL()
	if cfg.Database.Migrate {
		if err := database.Migrate(dsn); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	db, err := database.NewPostgreSQLDB(dsn)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	shiftRepo := postgresql.NewShiftRepository(db)
	payPolicyRepo := postgresql.NewPayPolicyRepository(db)
	reportRepo := postgresql.NewReportRepository(db)
	holidayRepo := postgresql.NewHolidayRepository(db)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
	}

	var locker lock.Locker = lock.NewKeyed()
	if cfg.Payroll.LockBackend == config.LockBackendRedis {
		locker = lock.NewRedis(redisClient, cfg.Payroll.LockTTL)
	}
	slog.Info("Report lock backend selected", "backend", cfg.Payroll.LockBackend)

	var publisher notificationService.Publisher
	if cfg.RabbitMQ.URL != "" {
		conn, err := amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer conn.Close()

		ch, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("open rabbitmq channel: %w", err)
		}
		defer ch.Close()

		p, err := broker.NewPublisher(ch, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.PublishTimeout)
		if err != nil {
			return err
		}
		publisher = p
	}

	hub := sse.NewHub()
	dispatcher := notificationService.NewDispatcher(hub, publisher, notificationService.Config{
		PublishTimeout: cfg.RabbitMQ.PublishTimeout,
	})
	defer dispatcher.Close()

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	var holidayPeers holidayService.Peers
	var holidayChannel *pubsub.Redis
	if redisClient != nil {
		holidayChannel = pubsub.NewRedis(redisClient, cfg.Redis.HolidayChannel)
		holidayPeers = holidayChannel
	}
	holidayProvider := holidayService.NewProvider(holidayRepo, cfg.Payroll.HolidayCacheTTL, holidayPeers)

	payrollSvc := payrollService.NewPayrollService(
		shiftRepo,
		payPolicyRepo,
		reportRepo,
		holidayProvider,
		locker,
		dispatcher,
		cfg.Locale(),
	)
	timecardSvc := timecardService.NewTimecardService(shiftRepo, payPolicyRepo, dispatcher, cfg.Payroll.MaxBreaksPerShift)
	payPolicySvc := payPolicyService.NewPayPolicyService(payPolicyRepo)

	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit.ClockActions)
	if err != nil {
		return fmt.Errorf("parse rate limit: %w", err)
	}
	var limiterStore limiter.Store = memory.NewStore()
	if redisClient != nil {
		limiterStore, err = limiterRedis.NewStoreWithOptions(redisClient, limiter.StoreOptions{
			Prefix: "timecard:ratelimit",
		})
		if err != nil {
			return fmt.Errorf("create rate limit store: %w", err)
		}
	}

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			AppName:        cfg.App.Name,
			Version:        cfg.App.Version,
			Env:            cfg.App.Env,
			LogLevel:       cfg.LogLevel(),
			AllowedOrigins: cfg.App.AllowedOrigins,
		},
		JWTService,
		appHTTP.Handlers{
			Timecard:  appHTTP.NewTimecardHandler(timecardSvc),
			Payroll:   appHTTP.NewPayrollHandler(payrollSvc),
			PayPolicy: appHTTP.NewPayPolicyHandler(payPolicySvc, holidayProvider),
			Events:    appHTTP.NewEventsHandler(hub, JWTService),
		},
		limiter.New(limiterStore, rate),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if holidayChannel != nil {
		go func() {
			if err := holidayChannel.Subscribe(ctx, holidayProvider.Invalidate); err != nil {
				slog.Error("Holiday cache invalidation stopped", "error", err)
			}
		}()
	}

	scheduler := cron.NewScheduler()
	cron.NewPayrollJobs(payrollSvc, hub, dispatcher, cfg.Payroll.LiveTickInterval).RegisterJobs(scheduler)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
