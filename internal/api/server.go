package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pagecraft/builder-core/internal/auth"
	"github.com/pagecraft/builder-core/internal/infrastructure/config"
	"github.com/pagecraft/builder-core/internal/infrastructure/influxdb"
	"github.com/pagecraft/builder-core/internal/infrastructure/logging"
	"github.com/pagecraft/builder-core/internal/infrastructure/mqtt"
	"github.com/pagecraft/builder-core/internal/profile"
	"github.com/pagecraft/builder-core/internal/realtime"
	"github.com/pagecraft/builder-core/internal/template"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Security    config.SecurityConfig
	Logger      *logging.Logger
	Users       auth.UserRepository
	Tokens      auth.TokenRepository
	Profiles    profile.Repository
	Templates   template.Repository
	Coordinator *template.Coordinator
	Sessions    *realtime.Registry
	MQTT        *mqtt.Client     // optional: event bus for template/presence events
	Telemetry   *influxdb.Client // optional: time-series telemetry
	DB          *sql.DB          // optional: exposes pool stats on /metrics
	Version     string
}

// Server is the HTTP API server for Builder Core.
//
// It manages the HTTP listener, routes, middleware, and the realtime
// WebSocket endpoint. The server is created with New() and started with
// Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	users       auth.UserRepository
	tokens      auth.TokenRepository
	profiles    profile.Repository
	templates   template.Repository
	coordinator *template.Coordinator
	sessions    *realtime.Registry
	mqtt        *mqtt.Client
	telemetry   *influxdb.Client
	db          *sql.DB
	version     string
	startTime   time.Time
	server      *http.Server
	listener    net.Listener
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, repositories, registry)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token repository is required")
	}
	if deps.Profiles == nil {
		return nil, fmt.Errorf("profile repository is required")
	}
	if deps.Templates == nil {
		return nil, fmt.Errorf("template repository is required")
	}
	if deps.Coordinator == nil {
		return nil, fmt.Errorf("update coordinator is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session registry is required")
	}
	// MQTT and Telemetry are optional fan-out paths

	return &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		secCfg:      deps.Security,
		logger:      deps.Logger.With("component", "api"),
		users:       deps.Users,
		tokens:      deps.Tokens,
		profiles:    deps.Profiles,
		templates:   deps.Templates,
		coordinator: deps.Coordinator,
		sessions:    deps.Sessions,
		mqtt:        deps.MQTT,
		telemetry:   deps.Telemetry,
		db:          deps.DB,
		version:     deps.Version,
		startTime:   time.Now(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It wires the presence fan-out, builds the router, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background work independently
	// of the parent context.
	_, s.cancel = context.WithCancel(ctx)

	// Presence transitions fan out to the event bus and telemetry.
	s.sessions.SetOnPresenceChange(s.publishPresence)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	// Bind the listener synchronously so a taken port fails Start, and so
	// Addr() reports the real port when config asks for 0.
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", ln.Addr().String(),
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = s.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the listener's bound address, or empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It disconnects all realtime sessions, then waits up to 10 seconds for
// in-flight requests to complete before forcefully closing connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.sessions.CloseAll(ctx)

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// publishPresence fans a presence transition out to the event bus and
// telemetry. Both paths are best-effort; failures never propagate into the
// session registry.
func (s *Server) publishPresence(userID string, online bool) {
	if s.telemetry != nil {
		s.telemetry.WritePresence(userID, online)
	}

	if s.mqtt == nil {
		return
	}

	payload := fmt.Sprintf(`{"user_id":%q,"online":%t,"at":%q}`,
		userID, online, time.Now().UTC().Format(time.RFC3339))
	topic := mqtt.Topics{}.UserPresence(userID)
	if err := s.mqtt.PublishRetained(topic, []byte(payload)); err != nil {
		s.logger.Warn("publishing presence event", "user_id", userID, "error", err)
	}
}
