package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"hrpay/internal/domain/audit"
	"hrpay/internal/domain/auth"
	"hrpay/internal/domain/org"
	"hrpay/internal/domain/salary"
	"hrpay/internal/platform/config"
	"hrpay/internal/platform/crypto"
	"hrpay/internal/platform/db"
	"hrpay/internal/platform/email"
	"hrpay/internal/platform/logger"
	"hrpay/internal/platform/metrics"
	audithandler "hrpay/internal/transport/http/handlers/audit"
	authhandler "hrpay/internal/transport/http/handlers/auth"
	orghandler "hrpay/internal/transport/http/handlers/org"
	salaryhandler "hrpay/internal/transport/http/handlers/salary"
	"hrpay/internal/transport/http/middleware"
)

const tokenTTL = 12 * time.Hour

type App struct {
	Config  config.Config
	Pool    *pgxpool.Pool
	DB      *sql.DB
	Log     logger.Logger
	Metrics *metrics.Collector
	Router  http.Handler
}

// New connects to the database, prepares the schema when configured to, and
// builds the router. The caller owns Close.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	return NewWithLogger(ctx, cfg, logger.New(cfg.LogLevel, cfg.LogFormat))
}

func NewWithLogger(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, conn, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Pool: pool, DB: conn, Log: log}

	if cfg.RunMigrations {
		applied, err := db.Migrate(ctx, conn)
		if err != nil {
			app.Close()
			return nil, err
		}
		if len(applied) > 0 {
			log.Infof("applied migrations %v", applied)
		}
	}
	if err := db.Seed(ctx, conn, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		app.Close()
		return nil, errors.Wrap(err, "seed")
	}

	if cfg.MetricsEnabled {
		app.Metrics = metrics.New()
	}
	cipher, err := crypto.New(cfg.DataEncryptionKey, crypto.WithLogger(log), crypto.WithMetrics(app.Metrics))
	if err != nil {
		app.Close()
		return nil, err
	}
	if !cipher.Configured() {
		log.Warnf("DATA_ENCRYPTION_KEY is not set: salary and employee fields will be stored in plaintext")
	}

	app.Router = app.routes(cipher)
	return app, nil
}

func (a *App) routes(cipher *crypto.Service) http.Handler {
	cfg, log := a.Config, a.Log

	authStore := auth.NewStore(a.DB)
	auditService := audit.New(a.DB)
	orgService := org.NewService(org.NewStore(a.DB), cipher, log)
	salaryService := salary.NewService(salary.Deps{
		Store:         salary.NewStore(a.DB),
		Directory:     orgService,
		Cipher:        cipher,
		Renderer:      salary.PDFRenderer{},
		Mailer:        email.New(cfg, log),
		Audit:         auditService,
		Metrics:       a.Metrics,
		Log:           log,
		AccountsEmail: cfg.AccountsEmail,
		MailLimiter:   rate.NewLimiter(rate.Limit(cfg.MailRatePerSecond), 1),
	})

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer(log))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Instrument(a.Metrics))
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret, log))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.Pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if a.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", a.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		authhandler.NewHandler(auth.NewService(authStore, cfg.JWTSecret, tokenTTL), auditService, log).RegisterRoutes(r)
		audithandler.NewHandler(auditService, authStore, log).RegisterRoutes(r)

		r.Route("/companies/{companyID}/departments/{departmentID}", func(r chi.Router) {
			orghandler.NewHandler(orgService, authStore, log).RegisterRoutes(r)
			salaryhandler.NewHandler(salaryService, authStore, log).RegisterRoutes(r)
		})
	})

	return router
}

// Serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.Log.Infof("hrpay listening on %s", a.Config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (a *App) Close() {
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
