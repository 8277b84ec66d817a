package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/crypto/sha3"

	"github.com/totegamma/concrnt-console/client"
	"github.com/totegamma/concrnt-console/internal/config"
	"github.com/totegamma/concrnt-console/internal/infra/database"
	"github.com/totegamma/concrnt-console/internal/infra/gateway"
	"github.com/totegamma/concrnt-console/internal/infra/repository"
	"github.com/totegamma/concrnt-console/internal/present/web"
	webmiddleware "github.com/totegamma/concrnt-console/internal/present/web/middleware"
	"github.com/totegamma/concrnt-console/internal/present/web/presenter"
	"github.com/totegamma/concrnt-console/internal/service"
	"github.com/totegamma/concrnt-console/internal/usecase"
)

const serviceName = "concrnt-console"

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the portal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "path to the configuration file"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			conf, err := config.Load(config.ResolvePath(cmd.String("config")))
			if err != nil {
				return err
			}
			return runServe(ctx, conf)
		},
	}
}

func runServe(ctx context.Context, conf config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	level, err := conf.Server.Level()
	if err != nil {
		return err
	}
	slog.SetLogLoggerLevel(level)

	slog.Info(
		"starting concrnt-console",
		slog.String("version", version),
		slog.String("backend", conf.Backend.Host),
		slog.String("sessionDriver", conf.Session.Driver),
		slog.String("module", "cmd"),
	)

	e := echo.New()
	e.HideBanner = true

	if conf.Server.EnableTrace {
		cleanup, err := setupTraceProvider(ctx, conf.Server.TraceEndpoint, serviceName, version)
		if err != nil {
			return err
		}
		defer cleanup()

		skipper := otelecho.WithSkipper(
			func(c echo.Context) bool {
				return c.Path() == "/metrics" || c.Path() == "/health"
			},
		)
		e.Use(otelecho.Middleware(serviceName, skipper))
	}

	e.Use(echoprometheus.NewMiddleware("concrnt_console"))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	if !conf.Server.SecureCookie {
		e.Use(plaintextRequests)
	}
	csrfKey := sha3.Sum256([]byte("csrf:" + conf.Server.SessionSecret))
	e.Use(echo.WrapMiddleware(csrf.Protect(
		csrfKey[:],
		csrf.Secure(conf.Server.SecureCookie),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
	)))

	prometheus.MustRegister(usecase.Collectors()...)
	e.GET("/metrics", echoprometheus.NewHandler())

	sessionRepo, closeRepo, err := newSessionRepository(ctx, conf.Session)
	if err != nil {
		return err
	}
	defer closeRepo()

	cl := client.New(conf.Backend.Host, client.Options{
		Scheme:    conf.Backend.Scheme,
		Timeout:   conf.Backend.Timeout,
		CacheTTL:  conf.Backend.ProfileCacheTTL,
		UserAgent: serviceName + "/" + version,
	})
	backend := gateway.NewBackendGateway(cl)

	auth := service.NewAuthService(conf.Portal.SubjectClaim)
	sessions := usecase.NewSessionUsecase(sessionRepo)
	login := usecase.NewLoginUsecase(backend, auth, sessions)
	register := usecase.NewRegistrationUsecase(backend, auth, sessions, conf.Portal.RegistrationInputs)
	admin := usecase.NewAdminUsecase(
		gateway.NewEntityGateway(cl),
		gateway.NewDomainGateway(cl),
		gateway.NewHostGateway(cl),
		conf.Portal.AdminTag,
	)

	p, err := presenter.New()
	if err != nil {
		return err
	}

	cookies := webmiddleware.NewSessionMiddleware(
		[]byte(conf.Server.SessionSecret),
		conf.Server.SecureCookie,
		conf.Session.TTL,
		sessions,
	)

	handler := web.NewHandler(
		conf.Portal,
		usecase.NewServerUsecase(backend),
		sessions,
		login,
		register,
		admin,
		cookies,
		p,
	)
	handler.RegisterRoutes(e)

	go func() {
		err := e.Start(conf.Server.Listen)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error(
				"server stopped",
				slog.String("error", err.Error()),
				slog.String("module", "cmd"),
			)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// plaintextRequests marks requests as plain http for the csrf origin check.
func plaintextRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.SetRequest(csrf.PlaintextHTTPRequest(c.Request()))
		return next(c)
	}
}

func newSessionRepository(ctx context.Context, conf config.Session) (usecase.SessionRepository, func(), error) {
	switch conf.Driver {
	case config.DriverRedis:
		rdb, err := database.NewRedis(conf.RedisAddr, "", conf.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		err = rdb.Ping(ctx).Err()
		if err != nil {
			rdb.Close()
			return nil, nil, err
		}
		return repository.NewRedisSessionRepository(rdb, conf.TTL), func() { rdb.Close() }, nil

	case config.DriverMemcached:
		mc, err := database.NewMemcached(conf.MemcachedAddr)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewMemcachedSessionRepository(mc, conf.TTL), func() { mc.Close() }, nil

	case config.DriverPostgres:
		db, err := database.NewPostgres(conf.PostgresDsn)
		if err != nil {
			return nil, nil, err
		}
		err = database.MigratePostgres(db)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewPostgresSessionRepository(db, conf.TTL)
		go purgeExpiredSessions(ctx, repo)

		closeDB := func() {
			sqlDB, err := db.DB()
			if err == nil {
				sqlDB.Close()
			}
		}
		return repo, closeDB, nil

	default:
		return repository.NewMemorySessionRepository(conf.TTL), func() {}, nil
	}
}

func purgeExpiredSessions(ctx context.Context, repo *repository.PostgresSessionRepository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.PurgeExpired(ctx)
			if err != nil {
				slog.ErrorContext(
					ctx, "failed to purge expired sessions",
					slog.String("error", err.Error()),
					slog.String("module", "cmd"),
				)
				continue
			}
			slog.DebugContext(
				ctx, "purged expired sessions",
				slog.Int64("count", n),
				slog.String("module", "cmd"),
			)
		}
	}
}
