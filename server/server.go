// Package server provides the HTTP server for the taskboard dashboard.
//
// The server exposes a REST API over the process engine: the operator's task
// list with claim, unclaim and complete actions, and derived progress for
// running process instances.
//
// # Endpoints
//
//   - GET /health - Simple health check, returns "ok"
//   - GET /api/version - Build and runtime properties
//   - GET /metrics - Prometheus metrics
//   - GET /config - Returns current configuration as YAML, credentials masked
//   - POST /reload - Reloads configuration from disk
//   - GET /api/tasks - Actionable tasks with their lifecycle state
//   - GET /api/tasks/{id} - One task
//   - GET /api/tasks/{id}/log - Action log of one task
//   - POST /api/tasks/{id}/claim, /unclaim, /complete - Task actions
//   - GET /api/progress - Progress of all active instances, keyed by id
//   - GET /api/process-instances/{id}/progress - Progress of one instance
//   - GET /api/identity/users, /groups, /groups/{id}/users - Identity directory
//
// # Architecture
//
// Config-derived dependencies (engine client and progress board) are swapped
// atomically on reload. Task lifecycle state, metrics and the audit log live
// for the life of the server so a reload never forgets an in-flight action.
//
// # Example
//
//	srv, err := server.New("/etc/taskboard/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync/atomic"
	"time"

	"github.com/nomis52/taskboard/buildinfo"
	"github.com/nomis52/taskboard/clients/engineclient"
	"github.com/nomis52/taskboard/config"
	"github.com/nomis52/taskboard/dashboard"
	"github.com/nomis52/taskboard/logging"
	"github.com/nomis52/taskboard/metrics"
	"github.com/nomis52/taskboard/server/cron"
	"github.com/nomis52/taskboard/server/handlers"
	"github.com/nomis52/taskboard/server/types"
	"github.com/nomis52/taskboard/taskvars"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	// Progress of many instances can take several fetch timeouts.
	defaultWriteTimeout = 60 * time.Second
)

// serverDeps holds config-derived dependencies that are swapped atomically on reload.
type serverDeps struct {
	config *config.Config
	engine *engineclient.Client
	board  *dashboard.Board
}

// Server is the HTTP server for the taskboard web interface.
type Server struct {
	addr       string
	configPath string
	logger     *slog.Logger
	startedAt  time.Time
	hostname   string

	deps     atomic.Pointer[serverDeps]
	registry *metrics.ScrapeRegistry
	metrics  *metrics.DashboardMetrics
	audit    *logging.AuditLog
	actions  *dashboard.Actions

	httpServer  *http.Server
	cronTrigger *cron.CronTrigger
}

// Option configures a Server.
type Option func(*Server) error

// WithListenAddr overrides the configured listen address.
func WithListenAddr(addr string) Option {
	return func(s *Server) error {
		if addr != "" {
			s.addr = addr
		}
		return nil
	}
}

// WithLogger replaces the logger built from the logging config.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// New creates a new Server with the given config path and options.
// It loads the configuration and initializes all dependencies.
func New(configPath string, opts ...Option) (*Server, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	hostname, _ := os.Hostname()
	s := &Server{
		addr:       cfg.Listener.Addr,
		configPath: configPath,
		logger:     logger.Logger,
		startedAt:  time.Now(),
		hostname:   hostname,
		audit:      logging.NewAuditLog(logging.DefaultAuditDepth),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.registry, err = metrics.NewScrapeRegistry()
	if err != nil {
		return nil, fmt.Errorf("creating metrics registry: %w", err)
	}
	s.metrics, err = metrics.NewDashboardMetrics(s.registry)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	deps, err := s.buildDeps(&cfg)
	if err != nil {
		return nil, err
	}
	s.deps.Store(deps)

	s.actions = dashboard.NewActions(
		currentEngine{s},
		taskvars.NewBuilder(cfg.TaskTable()),
		dashboard.WithActionsLogger(s.logger),
		dashboard.WithActionsMetrics(s.metrics),
		dashboard.WithAuditLog(s.audit),
	)

	if cfg.Refresh.Schedule != "" {
		sweep := cron.NewSweep(currentEngine{s}, currentBoard{s}, s.metrics, s.logger)
		s.cronTrigger, err = cron.NewCronTrigger(cfg.Refresh.Schedule, sweep.Run, s.logger)
		if err != nil {
			return nil, fmt.Errorf("creating cron trigger: %w", err)
		}
	}

	return s, nil
}

// buildDeps creates the config-derived dependencies.
func (s *Server) buildDeps(cfg *config.Config) (*serverDeps, error) {
	engine, err := engineclient.New(cfg.Engine.URL,
		engineclient.WithLogger(s.logger),
		engineclient.WithTimeout(cfg.Engine.Timeout),
		engineclient.WithRateLimit(cfg.Engine.RequestsPerSecond, cfg.Engine.Burst),
	)
	if err != nil {
		return nil, fmt.Errorf("creating engine client: %w", err)
	}

	registry, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("building step registry: %w", err)
	}
	s.logger.Debug("step registry built", "process_kinds", registry.ProcessKinds())

	board := dashboard.NewBoard(engine, registry,
		dashboard.WithLogger(s.logger),
		dashboard.WithMetrics(s.metrics),
		dashboard.WithMaxConcurrentFetches(cfg.Dashboard.MaxConcurrentFetches),
		dashboard.WithFetchTimeout(cfg.Dashboard.FetchTimeout),
	)

	return &serverDeps{
		config: cfg,
		engine: engine,
		board:  board,
	}, nil
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

// Reload reads the config from disk and rebuilds server dependencies. The
// listen address and refresh schedule only change on restart.
func (s *Server) Reload() error {
	cfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		return err
	}

	deps, err := s.buildDeps(&cfg)
	if err != nil {
		return err
	}
	old := s.deps.Swap(deps)
	s.actions.SetBuilder(taskvars.NewBuilder(cfg.TaskTable()))

	if old.config.Refresh.Schedule != cfg.Refresh.Schedule {
		s.logger.Warn("refresh schedule changed, restart to apply",
			"running", old.config.Refresh.Schedule,
			"configured", cfg.Refresh.Schedule,
		)
	}
	s.logger.Info("configuration loaded", "config_path", s.configPath)
	return nil
}

// Config returns the current configuration.
func (s *Server) Config() *config.Config {
	return s.deps.Load().config
}

// Engine returns the current engine client.
func (s *Server) Engine() handlers.Engine {
	return s.deps.Load().engine
}

// Board returns the current progress board.
func (s *Server) Board() handlers.ProgressBoard {
	return s.deps.Load().board
}

// NextSweep returns the next scheduled sweep, or nil if no schedule is configured.
func (s *Server) NextSweep() *time.Time {
	if s.cronTrigger == nil {
		return nil
	}
	next := s.cronTrigger.NextRun()
	return &next
}

// Properties describes the running server.
func (s *Server) Properties() types.ServerProperties {
	engineURL := s.Config().Engine.URL
	if u, err := url.Parse(engineURL); err == nil {
		engineURL = u.Redacted()
	}
	return types.ServerProperties{
		Build:     buildinfo.Get(),
		StartedAt: s.startedAt,
		Hostname:  s.hostname,
		EngineURL: engineURL,
		NextSweep: s.NextSweep(),
	}
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return mux
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It performs a graceful shutdown when the context is done.
// If a refresh schedule is configured, the sweep is started automatically.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	if s.cronTrigger != nil {
		s.logger.Info("starting progress sweep",
			"schedule", s.cronTrigger.Spec(),
			"next_run", s.cronTrigger.NextRun(),
		)
		s.cronTrigger.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"addr", s.addr,
			"config_path", s.configPath,
			"version", buildinfo.Get().Version,
		)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	identity := handlers.NewIdentityHandler(s.logger, s)

	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.Handle("GET /api/version", handlers.NewVersionHandler(s))
	mux.Handle("GET /metrics", s.registry.Handler())
	mux.Handle("GET /config", handlers.NewConfigHandler(s))
	mux.Handle("POST /reload", handlers.NewReloadHandler(s.logger, s))

	mux.Handle("GET /api/tasks", handlers.NewTasksHandler(s.logger, s, s.actions))
	mux.Handle("GET /api/tasks/{id}", handlers.NewTaskHandler(s.logger, s, s.actions))
	mux.Handle("GET /api/tasks/{id}/variables", handlers.NewTaskVariablesHandler(s.logger, s))
	mux.Handle("GET /api/tasks/{id}/log", handlers.NewTaskLogHandler(s.audit))
	mux.Handle("POST /api/tasks/{id}/claim", handlers.NewClaimHandler(s.logger, s.actions))
	mux.Handle("POST /api/tasks/{id}/unclaim", handlers.NewUnclaimHandler(s.logger, s.actions))
	mux.Handle("POST /api/tasks/{id}/complete", handlers.NewCompleteHandler(s.logger, s, s.actions))

	mux.Handle("GET /api/progress", handlers.NewProgressHandler(s.logger, s, s))
	mux.Handle("GET /api/process-instances", handlers.NewProcessInstancesHandler(s.logger, s))
	mux.Handle("GET /api/process-instances/{id}/variables", handlers.NewProcessInstanceVariablesHandler(s.logger, s))
	mux.Handle("GET /api/process-instances/{id}/progress", handlers.NewInstanceProgressHandler(s.logger, s, s))

	mux.HandleFunc("GET /api/identity/users", identity.Users)
	mux.HandleFunc("GET /api/identity/users/{id}", identity.User)
	mux.HandleFunc("GET /api/identity/users/{id}/groups", identity.UserGroups)
	mux.HandleFunc("GET /api/identity/groups", identity.Groups)
	mux.HandleFunc("GET /api/identity/groups/{id}", identity.Group)
	mux.HandleFunc("GET /api/identity/groups/{id}/users", identity.GroupUsers)
}

// currentEngine resolves the engine client on every call so task actions and
// the sweep follow config reloads.
type currentEngine struct {
	s *Server
}

func (e currentEngine) client() *engineclient.Client {
	return e.s.deps.Load().engine
}

func (e currentEngine) Claim(ctx context.Context, taskID, userID string) error {
	return e.client().Claim(ctx, taskID, userID)
}

func (e currentEngine) Unclaim(ctx context.Context, taskID string) error {
	return e.client().Unclaim(ctx, taskID)
}

func (e currentEngine) Complete(ctx context.Context, taskID string, variables map[string]any) error {
	return e.client().Complete(ctx, taskID, variables)
}

func (e currentEngine) ListProcessInstances(ctx context.Context, definitionKey string) ([]engineclient.ProcessInstance, error) {
	return e.client().ListProcessInstances(ctx, definitionKey)
}

// currentBoard resolves the progress board on every call.
type currentBoard struct {
	s *Server
}

func (b currentBoard) Progress(ctx context.Context, refs []dashboard.InstanceRef) map[string]dashboard.InstanceProgress {
	return b.s.deps.Load().board.Progress(ctx, refs)
}
