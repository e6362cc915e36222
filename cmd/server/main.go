package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	academicapp "github.com/madrasa/backend/internal/application/academic"
	feeapp "github.com/madrasa/backend/internal/application/fee"
	identityapp "github.com/madrasa/backend/internal/application/identity"
	notificationapp "github.com/madrasa/backend/internal/application/notification"
	staffapp "github.com/madrasa/backend/internal/application/staff"
	studentapp "github.com/madrasa/backend/internal/application/student"
	"github.com/madrasa/backend/internal/infrastructure/auth"
	"github.com/madrasa/backend/internal/infrastructure/cache"
	"github.com/madrasa/backend/internal/infrastructure/config"
	"github.com/madrasa/backend/internal/infrastructure/event"
	"github.com/madrasa/backend/internal/infrastructure/logger"
	"github.com/madrasa/backend/internal/infrastructure/mail"
	"github.com/madrasa/backend/internal/infrastructure/migration"
	"github.com/madrasa/backend/internal/infrastructure/persistence"
	"github.com/madrasa/backend/internal/infrastructure/printing"
	"github.com/madrasa/backend/internal/infrastructure/scheduler"
	"github.com/madrasa/backend/internal/infrastructure/storage"
	"github.com/madrasa/backend/internal/infrastructure/telemetry"
	"github.com/madrasa/backend/internal/interfaces/http/handler"
	"github.com/madrasa/backend/internal/interfaces/http/middleware"
	"github.com/madrasa/backend/internal/interfaces/http/router"
	"github.com/madrasa/backend/migrations"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	migrate := flag.Bool("migrate", false, "Apply pending schema migrations before serving")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	if core := providers.LogCore(log.Level()); core != nil {
		if log, err = logger.New(cfg.Log, core); err != nil {
			panic("Failed to initialize logger: " + err.Error())
		}
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting madrasa backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{Logger: gormLog})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.InstrumentDB(db.DB, cfg.Telemetry, log); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	if *migrate {
		if err := applyMigrations(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	backend, err := cache.NewFactory(cfg.Redis, cache.WithLogger(log)).Build(ctx)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() { _ = backend.Close() }()

	meter := providers.Meter("github.com/madrasa/backend")
	feeMetrics, err := telemetry.NewFeeMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create fee metrics", zap.Error(err))
	}
	httpMetrics, err := telemetry.NewHTTPMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}

	repos := persistence.NewRepositories(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	bus := event.NewBus(log)
	bus.Subscribe(notificationapp.NewRegistrationNotifier(repos, log))

	var store interface {
		feeapp.ReceiptStore
		notificationapp.ObjectStore
	}
	if cfg.Storage.Bucket != "" {
		s3, err := storage.NewS3Store(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to configure object storage", zap.Error(err))
		}
		store = s3
	} else {
		log.Warn("No storage bucket configured, keeping receipts and documents in memory")
		store = storage.NewMemoryStore("")
	}

	renderer, err := printing.NewChromeRenderer(cfg.Printing, log)
	if err != nil {
		log.Fatal("Failed to create receipt renderer", zap.Error(err))
	}
	defer func() { _ = renderer.Close() }()

	templates, err := mail.NewTemplateRenderer(cfg.App.Name)
	if err != nil {
		log.Fatal("Failed to parse email templates", zap.Error(err))
	}

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(repos, jwtService, backend.Blacklist, log).WithResetURL(cfg.Mail.ResetURL)
	scopes := academicapp.NewScopeResolver(repos, log)
	years := academicapp.NewYearService(repos, txScope, bus, log)
	catalog := academicapp.NewCatalogService(repos, log)

	dues := feeapp.NewDueEngine(repos, feeapp.NewResolver(), feeMetrics, log)
	setup := feeapp.NewSetupService(repos, log)
	collections := feeapp.NewCollectionService(repos, txScope, log)
	receipts := feeapp.NewReceiptService(repos, renderer, store, cfg.Storage.PresignExpiration, log)
	reminders := feeapp.NewReminderService(repos, txScope, backend.RunGuard, feeMetrics, log)

	enrollments := studentapp.NewEnrollmentService(repos, txScope, dues, log)
	registrations := studentapp.NewRegistrationService(repos, txScope, dues, bus, log)
	staff := staffapp.NewService(repos, txScope, log)
	documents := notificationapp.NewDocumentService(repos, store, cfg.Storage.PresignExpiration, log)
	dispatcher := notificationapp.NewDispatcher(txScope, templates, mail.NewMailer(cfg.Mail, log), cfg.Scheduler.EmailBatchSize, log)

	// Background jobs
	if cfg.Scheduler.Enabled {
		stopJobs := startScheduler(ctx, cfg, scheduler.NewFeeJobExecutor(
			dues, reminders, dispatcher, backend.RunGuard, cfg.Scheduler.LockTTL, log,
		), scheduler.OrganizationTenants{Organizations: repos.Organizations()}, log)
		defer stopJobs()
	}

	limiter := middleware.NewRateLimiter(router.LoginRequests, router.LoginWindow, router.LoginRequests)
	go limiter.Run(ctx)

	clock := handler.ClockIn(cfg.Scheduler.Location())
	engine := router.New(router.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Academic:     handler.NewAcademicHandler(years, catalog),
		Fee:          handler.NewFeeHandler(setup, dues, reminders, clock),
		Collection:   handler.NewCollectionHandler(collections, receipts, clock),
		Student:      handler.NewStudentHandler(enrollments, clock),
		Registration: handler.NewRegistrationHandler(registrations),
		Staff:        handler.NewStaffHandler(staff, clock),
		Document:     handler.NewDocumentHandler(documents),
		System: handler.NewSystemHandler(version, map[string]handler.HealthCheck{
			"database": db.Ping,
			"redis":    backend.Ping,
		}),
	}, router.Options{
		HTTP:          cfg.HTTP,
		ServiceName:   cfg.Telemetry.ServiceName,
		Logger:        log,
		Authenticator: authService,
		Scopes:        scopes,
		Metrics:       httpMetrics,
		LoginLimiter:  limiter,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("Telemetry shutdown failed", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

func applyMigrations(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared pool
	return m.Up()
}

// startScheduler runs the worker pool and the cron trigger. The returned
// function stops both.
func startScheduler(ctx context.Context, cfg *config.Config, executor scheduler.JobExecutor, tenants scheduler.TenantProvider, log *zap.Logger) func() {
	pool := scheduler.NewScheduler(scheduler.SchedulerConfig{
		MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
		JobTimeout:        cfg.Scheduler.JobTimeout,
		RetryAttempts:     scheduler.DefaultSchedulerConfig().RetryAttempts,
		RetryDelay:        scheduler.DefaultSchedulerConfig().RetryDelay,
	}, executor, log)

	triggerCfg := scheduler.DefaultCronTriggerConfig()
	triggerCfg.MonthlyDues = cfg.Scheduler.MonthlyDues
	triggerCfg.AnnualDues = cfg.Scheduler.AnnualDues
	triggerCfg.FeeReminders = cfg.Scheduler.FeeReminders
	triggerCfg.EmailDispatch = cfg.Scheduler.EmailDispatch
	triggerCfg.Location = cfg.Scheduler.Location()

	trigger, err := scheduler.NewCronTrigger(triggerCfg, pool, tenants, log)
	if err != nil {
		log.Fatal("Invalid job schedule", zap.Error(err))
	}
	if err := pool.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}
	if err := trigger.Start(ctx); err != nil {
		log.Fatal("Failed to start cron trigger", zap.Error(err))
	}
	log.Info("Scheduler started",
		zap.String("timezone", triggerCfg.Location.String()),
		zap.Int("workers", cfg.Scheduler.MaxConcurrentJobs),
	)

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := trigger.Stop(stopCtx); err != nil {
			log.Warn("Cron trigger stop failed", zap.Error(err))
		}
		if err := pool.Stop(stopCtx); err != nil {
			log.Warn("Scheduler stop failed", zap.Error(err))
		}
	}
}
