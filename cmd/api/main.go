package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/epcr-service/internal/api/http"
	"github.com/spec-kit/epcr-service/internal/api/http/handlers"
	"github.com/spec-kit/epcr-service/internal/audit"
	"github.com/spec-kit/epcr-service/internal/auth"
	"github.com/spec-kit/epcr-service/internal/config"
	"github.com/spec-kit/epcr-service/internal/events"
	"github.com/spec-kit/epcr-service/internal/observability"
	"github.com/spec-kit/epcr-service/internal/persistence"
	"github.com/spec-kit/epcr-service/internal/policy"
	"github.com/spec-kit/epcr-service/internal/repository"
	"github.com/spec-kit/epcr-service/internal/service"
	"github.com/spec-kit/epcr-service/internal/worker"
)

const eventQueueSize = 256

func main() {
	rootCmd := &cobra.Command{
		Use:   "api",
		Short: "Event medical record service",
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(createAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx := cmd.Context()
			pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pg.Close()

			return persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger)
		},
	}
}

func createAdminCmd() *cobra.Command {
	var email, name string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create or promote an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx := cmd.Context()
			pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pg.Close()

			user, created, err := service.BootstrapAdmin(ctx, repository.NewUserRepository(pg.PoolHandle()), name, email)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			logger.Info("admin account ready",
				zap.String("user_id", user.ID),
				zap.String("email", user.Email),
				zap.Bool("created", created))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email address")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func runServer() error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	venueRepo := repository.NewVenueRepository(pool)
	eventRepo := repository.NewEventRepository(pool)
	patientRepo := repository.NewPatientRepository(pool)
	assessmentRepo := repository.NewAssessmentRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	assignmentRepo := repository.NewCachedAssignmentRepository(
		repository.NewAssignmentRepository(pool), redis.ClientHandle(), cfg.Redis.AssignmentTTL(), logger)

	recorders := audit.Multi{audit.NewPostgresRecorder(auditRepo)}
	if len(cfg.Audit.KafkaBrokers) > 0 {
		kafkaRecorder := audit.NewKafkaRecorder(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic, logger)
		defer kafkaRecorder.Close() //nolint:errcheck
		recorders = append(recorders, kafkaRecorder)
		logger.Info("audit kafka sink enabled", zap.Strings("brokers", cfg.Audit.KafkaBrokers), zap.String("topic", cfg.Audit.KafkaTopic))
	}
	auditor := audit.NewAuditor(recorders, logger, time.Now)

	dispatcher := worker.NewQueue(events.NewInMemoryDispatcher(logger), eventQueueSize, logger)
	defer dispatcher.Close()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	loc, err := cfg.Policy.Location()
	if err != nil {
		return fmt.Errorf("policy timezone: %w", err)
	}
	gate := service.NewGate(service.GateDependencies{
		Controller:  policy.NewAccessController(loc),
		Assignments: service.NewAssignmentLookup(assignmentRepo),
		EventRepo:   eventRepo,
		PatientRepo: patientRepo,
		Clock:       policy.SystemClock{},
		Auditor:     auditor,
		Metrics:     metrics,
		Logger:      logger,
	})

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:   userRepo,
		CodeStore:  repository.NewSignInCodeStore(redis.ClientHandle()),
		CodeSender: notificationService,
		Logger:     logger,
	})
	userService := service.NewUserService(userRepo, gate)
	venueService := service.NewVenueService(venueRepo, gate)
	eventService := service.NewEventService(service.EventDependencies{
		Gate:           gate,
		EventRepo:      eventRepo,
		VenueRepo:      venueRepo,
		UserRepo:       userRepo,
		AssignmentRepo: assignmentRepo,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	patientService := service.NewPatientService(service.PatientDependencies{
		Gate:        gate,
		PatientRepo: patientRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	assessmentService := service.NewAssessmentService(service.AssessmentDependencies{
		Gate:           gate,
		AssessmentRepo: assessmentRepo,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	})
	auditService := service.NewAuditService(auditRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService, venueService),
		Events:         handlers.NewEventsHandler(eventService),
		Patients:       handlers.NewPatientsHandler(patientService, assessmentService),
		Audit:          handlers.NewAuditHandler(auditService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userRepo),
		Metrics:        metrics,

		SignInRatePerMinute: cfg.Auth.SignInRatePerMinute,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.App.Addr()))
		errCh <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("fiber listen: %w", err)
	case sig := <-shutdownSignal():
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	return app.ShutdownWithTimeout(10 * time.Second)
}

func shutdownSignal() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
