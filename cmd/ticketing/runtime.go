package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	httptransport "github.com/helpdesk-labs/ticketing/internal/api/http"
	"github.com/helpdesk-labs/ticketing/internal/api/http/handlers"
	"github.com/helpdesk-labs/ticketing/internal/auth"
	"github.com/helpdesk-labs/ticketing/internal/config"
	"github.com/helpdesk-labs/ticketing/internal/estimation"
	"github.com/helpdesk-labs/ticketing/internal/events"
	"github.com/helpdesk-labs/ticketing/internal/observability"
	"github.com/helpdesk-labs/ticketing/internal/persistence"
	"github.com/helpdesk-labs/ticketing/internal/repository"
	"github.com/helpdesk-labs/ticketing/internal/repository/memory"
	"github.com/helpdesk-labs/ticketing/internal/service"
)

const shutdownTimeout = 10 * time.Second

// runtime carries the process-wide dependencies shared by subcommands.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *observability.Metrics
}

func newRuntime(service string) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, service)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &runtime{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(strings.ReplaceAll(cfg.App.Name, "-", "_")),
	}, nil
}

func (rt *runtime) close() {
	_ = rt.logger.Sync()
}

func (rt *runtime) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: rt.cfg.Redis.Addr, Password: rt.cfg.Redis.Password, DB: rt.cfg.Redis.DB}
}

// stores selects the repositories: Postgres when configured, memory otherwise.
type stores struct {
	users    repository.UserRepository
	tickets  repository.TicketRepository
	comments repository.CommentRepository
}

func newStores(pg *persistence.Postgres) stores {
	if pg.Enabled() {
		return stores{
			users:    repository.NewUserRepository(pg.Pool),
			tickets:  repository.NewTicketRepository(pg.Pool),
			comments: repository.NewCommentRepository(pg.Pool),
		}
	}
	store := memory.NewStore()
	return stores{users: store.Users(), tickets: store.Tickets(), comments: store.Comments()}
}

// ticketingApp is service A with the resources it owns.
type ticketingApp struct {
	app     *fiber.App
	pg      *persistence.Postgres
	redis   *persistence.Redis
	auth    *service.AuthService
	users   repository.UserRepository
	enqueue *asynq.Client
}

func (a *ticketingApp) close() {
	if a.enqueue != nil {
		_ = a.enqueue.Close()
	}
	a.redis.Close()
	a.pg.Close()
}

func buildTicketingApp(ctx context.Context, rt *runtime) (*ticketingApp, error) {
	cfg, logger := rt.cfg, rt.logger

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			pg.Close()
			return nil, err
		}
	}
	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	repos := newStores(pg)

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		Verifier: auth.NewScryptVerifier(repos.users),
		Sessions: auth.NewRedisSessionStore(redis.Client),
		Issuer:   auth.NewTokenIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL),
		UserRepo: repos.users,
		Logger:   logger,
	})

	dispatcher := events.NewInMemoryDispatcher()
	var enqueuer *asynq.Client
	if cfg.Notification.Enabled {
		enqueuer = asynq.NewClient(rt.redisOpt())
	}
	var notifyEnqueuer service.Enqueuer
	if enqueuer != nil {
		notifyEnqueuer = enqueuer
	}
	service.NewNotificationService(dispatcher, notifyEnqueuer, logger, cfg.Notification).RegisterHandlers()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repos.tickets,
		CommentRepo: repos.comments,
		Dispatcher:  dispatcher,
		Metrics:     rt.metrics,
		Logger:      logger,
	})

	dependencies := map[string]handlers.Pinger{"redis": redis}
	if pg.Enabled() {
		dependencies["postgres"] = pg
	}
	validator := handlers.NewValidator()

	app := httptransport.NewApp(cfg.App.Name, logger)
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:         logger,
		Metrics:        rt.metrics,
		RequestTimeout: cfg.App.RequestTimeout,
		AllowOrigins:   cfg.CORS.AllowOrigins,
		Production:     cfg.App.IsProduction(),
	})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Sessions:          handlers.NewSessionsHandler(authService, validator, cfg.Auth),
		Tickets:           handlers.NewTicketsHandler(ticketService, validator),
		SessionMiddleware: auth.NewSessionMiddleware(authService, cfg.Auth.SessionCookie),
		LoginLimiter:      httptransport.LoginRateLimiter(cfg.Auth.LoginRateLimit),
		Metrics:           rt.metrics,
	})

	return &ticketingApp{
		app:     app,
		pg:      pg,
		redis:   redis,
		auth:    authService,
		users:   repos.users,
		enqueue: enqueuer,
	}, nil
}

// seedAdmin creates name:password as an admin in dev mode.
func (a *ticketingApp) seedAdmin(ctx context.Context, creds string, logger *zap.Logger) error {
	if creds == "" {
		return nil
	}
	if a.pg.Enabled() {
		return errors.New("--seed-admin is only available with in-memory storage; use `users add`")
	}
	name, password, ok := strings.Cut(creds, ":")
	if !ok || name == "" || password == "" {
		return errors.New("--seed-admin expects name:password")
	}
	user, err := a.auth.RegisterUser(ctx, name, password, true)
	if err != nil {
		return err
	}
	logger.Info("seeded admin user", zap.Int64("user_id", user.ID), zap.String("name", user.Name))
	return nil
}

func buildEstimatorApp(rt *runtime) *fiber.App {
	cfg, logger := rt.cfg, rt.logger
	app := httptransport.NewApp(cfg.App.Name+"-estimator", logger)
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:         logger,
		Metrics:        rt.metrics,
		RequestTimeout: cfg.App.RequestTimeout,
		AllowOrigins:   cfg.CORS.AllowOrigins,
		Production:     cfg.App.IsProduction(),
	})
	httptransport.RegisterEstimatorRoutes(app, httptransport.EstimatorRouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name+"-estimator", cfg.App.Version, nil),
		Estimations: handlers.NewEstimationsHandler(estimation.NewEngine(nil), handlers.NewValidator(), rt.metrics),
		Capability:  auth.NewCapabilityMiddleware(auth.NewTokenVerifier(cfg.Auth.TokenSecret), logger),
		Metrics:     rt.metrics,
	})
	return app
}

// listen serves app on addr until ctx is cancelled, then shuts it down.
func listen(ctx context.Context, app *fiber.App, addr string, logger *zap.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	logger.Info("http server listening", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- app.Listener(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down http server", zap.String("addr", addr))
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown %s: %w", addr, err)
	}
	return nil
}
