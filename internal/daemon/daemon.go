package daemon

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmaddaus/issuetrack/internal/bulk"
	"github.com/jmaddaus/issuetrack/internal/config"
	"github.com/jmaddaus/issuetrack/internal/store"
)

// sessionIdle is how long a browser session survives without a request.
const sessionIdle = 24 * time.Hour

// reapInterval is how often idle sessions are swept while running.
const reapInterval = 10 * time.Minute

// Daemon manages the HTTP server and its dependencies.
type Daemon struct {
	cfg       *config.Config
	store     store.Store
	sessions  *sessionStore
	pages     map[string]*template.Template
	server    *http.Server
	startedAt time.Time
	now       func() time.Time
}

// New creates a new Daemon, opening the SQLite store and setting up the HTTP server.
func New(cfg *config.Config) (*Daemon, error) {
	if err := config.EnsureDataDir(cfg); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	s, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	d, err := NewWithStore(cfg, s)
	if err != nil {
		s.Close()
		return nil, err
	}
	d.server.ReadTimeout = 10 * time.Second
	d.server.WriteTimeout = 30 * time.Second
	d.server.IdleTimeout = 60 * time.Second
	return d, nil
}

// NewWithStore creates a Daemon with an injected store (useful for testing).
// Browser sessions submit bulk operations straight to s.
func NewWithStore(cfg *config.Config, s store.Store) (*Daemon, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	d := &Daemon{
		cfg:      cfg,
		store:    s,
		sessions: newSessionStore(bulk.StoreSender{Store: s}, sessionIdle),
		pages:    pages,
		now:      time.Now,
	}

	mux := d.registerRoutes()
	handler := d.applyMiddleware(mux)

	d.server = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}

	return d, nil
}

// Handler returns the HTTP handler (used for testing with httptest).
func (d *Daemon) Handler() http.Handler {
	return d.server.Handler
}

// StartedAt returns the time when the daemon was started via Run().
func (d *Daemon) StartedAt() time.Time {
	return d.startedAt
}

// Run serves HTTP until ctx is cancelled or the server fails, then shuts
// down. Idle sessions are reaped in the background while it runs.
func (d *Daemon) Run(ctx context.Context) error {
	d.startedAt = d.now()

	// Bind the port first so we fail fast on EADDRINUSE.
	ln, err := net.Listen("tcp", d.cfg.ListenAddr)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.EADDRINUSE) {
			return fmt.Errorf("port %s already in use; is another issuetrack running?", d.cfg.ListenAddr)
		}
		return fmt.Errorf("listen: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("issuetrack listening", "addr", ln.Addr().String())
		if err := d.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(reapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := d.sessions.reap(); n > 0 {
					slog.Debug("reaped idle sessions", "count", n)
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")
		return d.Shutdown(context.Background())
	})

	return g.Wait()
}

// Shutdown stops accepting requests, waits for outstanding bulk
// submissions and closes the store.
func (d *Daemon) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var firstErr error

	if err := d.server.Shutdown(shutdownCtx); err != nil {
		firstErr = fmt.Errorf("server shutdown: %w", err)
	}

	d.sessions.close()

	if err := d.store.Close(); err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("store close: %w", err)
		}
	}

	return firstErr
}
