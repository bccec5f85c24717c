package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/language"

	"managerhr/internal/domain/access"
	"managerhr/internal/domain/attendance"
	"managerhr/internal/domain/audit"
	"managerhr/internal/domain/core"
	"managerhr/internal/domain/leave"
	"managerhr/internal/domain/listing"
	"managerhr/internal/domain/payroll"
	"managerhr/internal/domain/session"
	"managerhr/internal/platform/config"
	"managerhr/internal/platform/crypto"
	"managerhr/internal/platform/db"
	"managerhr/internal/platform/jobs"
	"managerhr/internal/platform/metrics"
	"managerhr/internal/platform/upstream"
	attendancehandler "managerhr/internal/transport/http/handlers/attendance"
	audithandler "managerhr/internal/transport/http/handlers/audit"
	authhandler "managerhr/internal/transport/http/handlers/auth"
	corehandler "managerhr/internal/transport/http/handlers/core"
	leavehandler "managerhr/internal/transport/http/handlers/leave"
	payrollhandler "managerhr/internal/transport/http/handlers/payroll"
	shellhandler "managerhr/internal/transport/http/handlers/shell"
	"managerhr/internal/transport/http/middleware"
	"managerhr/internal/transport/http/shared"
)

// idempotencyRetention is how long a stored salary batch answer is replayed.
const idempotencyRetention = 24 * time.Hour

type App struct {
	Config   config.Config
	DB       *pgxpool.Pool
	Router   http.Handler
	Sessions *session.Manager
	Jobs     *jobs.Service
	Metrics  *metrics.Collector
}

// New wires the gateway. Without DATABASE_URL sessions and idempotency keys
// live in memory.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}
	loc := cfg.Location()

	table, err := access.Load(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("load route table: %w", err)
	}

	sealer, err := crypto.New(cfg.DataEncryptionKey, cfg.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("data encryption: %w", err)
	}

	var (
		store    session.Store
		idem     middleware.IdempotencyStore
		recorder jobs.Recorder
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		app.DB = pool
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
		store = session.NewPgStore(pool, sealer)
		idem = middleware.NewPgIdempotencyStore(pool)
		recorder = jobs.PgRecorder{DB: pool}
	} else {
		slog.Warn("DATABASE_URL not set; sessions are kept in memory")
		store = session.NewMemoryStore()
		idem = middleware.NewMemoryIdempotencyStore()
	}

	secret := cfg.SessionSecret
	if secret == "" {
		secret = randomSecret()
		slog.Warn("SESSION_SECRET not set; sessions will not survive a restart")
	}
	cookiePath := cfg.BasePath
	if cookiePath == "" {
		cookiePath = "/"
	}
	cookies := session.NewCookieSigner([]byte(secret), cfg.SessionCookieName, cookiePath, cfg.SessionTTL, cfg.IsProduction())
	manager := session.NewManager(store, cfg.SessionTTL)
	app.Sessions = manager

	if cfg.MetricsEnabled {
		app.Metrics = metrics.New()
	}
	client := upstream.New(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, manager, upstream.WithObserver(app.Metrics))

	cache, err := listing.NewStateCache(cfg.ListStateCacheSize)
	if err != nil {
		return nil, fmt.Errorf("list state cache: %w", err)
	}
	manager.Subscribe(func(e session.Event) {
		app.Metrics.ObserveSessionEvent(string(e.Kind))
		if e.Kind == session.EventCleared {
			client.Forget(e.SessionID)
			cache.Forget(e.SessionID)
		}
	})

	app.Jobs = jobs.New(recorder, cfg.SessionSweepInterval)
	app.Jobs.Schedule(jobs.JobSessionSweep, func(ctx context.Context) (any, error) {
		deleted, err := manager.PurgeExpired(ctx)
		return map[string]int{"deleted": deleted}, err
	})
	app.Jobs.Schedule(jobs.JobIdempotencySweep, func(ctx context.Context) (any, error) {
		deleted, err := idem.DeleteBefore(ctx, time.Now().Add(-idempotencyRetention))
		return map[string]int{"deleted": deleted}, err
	})

	locale, err := language.Parse(cfg.Locale)
	if err != nil {
		locale = language.Vietnamese
	}
	forms := shared.NewForms(loc, nil)
	respond := shared.Responder{LoginURL: table.LoginURL(), Cookies: cookies}
	lists := shared.Lists{Cache: cache, Locale: locale, Loc: loc}

	coreService := core.NewService(core.NewStore(client), loc)
	attendanceStore := attendance.NewStore(client)
	leaveService := leave.NewService(leave.NewStore(client), nil)
	payrollService := payroll.NewService(payroll.NewStore(client), nil, loc)

	loginLimit := cfg.RateLimitPerMinute / 6
	if loginLimit < 5 {
		loginLimit = 5
	}
	handlers := []interface{ RegisterRoutes(chi.Router) }{
		&authhandler.Handler{
			API:       client,
			Sessions:  manager,
			Cookies:   cookies,
			Registrar: coreService.Store(),
			Table:     table,
			Forms:     forms,
			Respond:   respond,
			Limit:     middleware.LoginRateLimit(loginLimit),
		},
		&shellhandler.Handler{Table: table},
		&corehandler.Handler{Service: coreService, Table: table, Forms: forms, Lists: lists, Respond: respond, Loc: loc},
		&attendancehandler.Handler{Store: attendanceStore, Table: table, Respond: respond, Loc: loc, Now: time.Now},
		leavehandler.NewHandler(leaveService, table, forms, lists, respond),
		payrollhandler.NewHandler(payrollService, attendanceStore, idem, table, forms, lists, respond, loc),
		audithandler.NewHandler(audit.NewStore(client), table, lists, respond, loc),
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger)
	router.Use(app.Metrics.Instrument)
	router.Use(middleware.SecureHeaders(cfg.IsProduction(), origin(cfg.UpstreamBaseURL)))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if app.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := app.DB.Ping(ctx); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if app.Metrics != nil {
		router.Handle("/metrics", app.Metrics.Handler())
	}

	mount := func(r chi.Router) {
		r.Use(middleware.Session(cookies, manager))
		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
			for _, h := range handlers {
				h.RegisterRoutes(r)
			}
		})
		r.Handle("/*", spaHandler{table: table, staticPath: cfg.FrontendDir, indexPath: "index.html"})
	}
	if cfg.BasePath == "" {
		mount(router)
	} else {
		router.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, cfg.BasePath+"/", http.StatusFound)
		})
		router.Route(cfg.BasePath, mount)
	}

	app.Router = router
	return app, nil
}

func (a *App) Start(ctx context.Context) {
	a.Jobs.Start(ctx)
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run serves until SIGINT or SIGTERM.
func Run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	app.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HR gateway listening", "addr", cfg.Addr, "basePath", cfg.BasePath, "upstream", cfg.UpstreamBaseURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	slog.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// origin is where avatars are served from.
func origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func randomSecret() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
