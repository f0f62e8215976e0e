package runtime

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"

	app "github.com/R3E-Network/calcstore/internal/app"
	"github.com/R3E-Network/calcstore/internal/app/httpapi"
	"github.com/R3E-Network/calcstore/internal/app/metrics"
	"github.com/R3E-Network/calcstore/internal/app/storage/sqlstore"
	"github.com/R3E-Network/calcstore/internal/config"
	"github.com/R3E-Network/calcstore/internal/middleware"
	"github.com/R3E-Network/calcstore/internal/platform/database"
	"github.com/R3E-Network/calcstore/internal/platform/migrations"
	"github.com/R3E-Network/calcstore/pkg/logger"
	"github.com/R3E-Network/calcstore/web"
)

const shutdownTimeout = 10 * time.Second

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *database.DB
	app         *app.Application
	rateLimiter *middleware.RateLimiter
	httpServer  *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewApplication opens the database, ensures the schema exists and builds the
// HTTP handler chain. It does not start listening.
func NewApplication(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("runtime: nil config")
	}
	if log == nil {
		log = logger.NewDefault("runtime")
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	log.WithField("database", database.Redact(cfg.Database.URL)).Infof("connected to %s", db.Dialect)

	if err := migrations.Apply(ctx, db.DB.DB, db.Dialect); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := sqlstore.New(db.DB,
		sqlstore.WithLogger(log.Named("sqlstore")),
		sqlstore.WithEcho(cfg.Database.Echo),
	)
	application, err := app.New(store, cfg.Mode(), log.Named("app"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	static, err := staticFiles(cfg.StaticDir)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &Application{cfg: cfg, log: log, db: db, app: application}

	chain := []mux.MiddlewareFunc{
		middleware.NewTracingMiddleware(log.Named("http")).Handler,
		middleware.Recovery(log.Named("http")),
		middleware.NewCORSMiddleware(cfg.AllowedOrigins()).Handler,
	}
	if cfg.RateLimit.RPS > 0 {
		a.rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, log.Named("ratelimit"))
		chain = append(chain, a.rateLimiter.Handler)
	}
	chain = append(chain, metrics.InstrumentHandler)

	handler := middleware.Chain(httpapi.NewHandler(application, static, log.Named("httpapi")), chain...)
	a.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

func staticFiles(dir string) (fs.FS, error) {
	if dir == "" {
		return web.Static(), nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("static dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("static dir %s is not a directory", dir)
	}
	return os.DirFS(dir), nil
}

// App exposes the composed domain services.
func (a *Application) App() *app.Application {
	return a.app
}

// Addr returns the bound listener address once Start has succeeded.
func (a *Application) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Start binds the listener and serves in the background. Serve errors other
// than a clean close are delivered on the returned channel.
func (a *Application) Start() (<-chan error, error) {
	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", a.httpServer.Addr, err)
	}
	a.mu.Lock()
	a.listener = ln
	a.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s (add mode %s)", ln.Addr(), a.app.Arithmetic.Mode())
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh, nil
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (a *Application) Run(ctx context.Context) error {
	errCh, err := a.Start()
	if err != nil {
		return err
	}
	if a.rateLimiter != nil {
		a.rateLimiter.StartCleanup(ctx, time.Minute)
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown drains in-flight requests, then closes the database pool.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.log.WithError(err).Warn("http server did not drain before the deadline")
	}

	if a.db != nil {
		if cerr := a.db.Close(); cerr != nil {
			a.log.WithError(cerr).Warn("error closing database connection")
		}
	}

	return err
}
