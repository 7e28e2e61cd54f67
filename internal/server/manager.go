package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/brokerlink/internal/server/http"
	"github.com/autopeer-io/brokerlink/internal/shell"
	"github.com/autopeer-io/brokerlink/internal/supervisor"
	"github.com/autopeer-io/brokerlink/pkg/log"
	"github.com/autopeer-io/brokerlink/pkg/options"
)

// errQuit ends the group when the user leaves the shell.
var errQuit = errors.New("shell exited")

// Server defines the common interface for all long running components.
type Server interface {
	Start(ctx context.Context) error
}

// ServerFunc adapts a function to Server.
type ServerFunc func(ctx context.Context) error

func (f ServerFunc) Start(ctx context.Context) error { return f(ctx) }

type Config struct {
	HttpOptions *options.HttpOptions
	Supervisor  *supervisor.Supervisor

	// Shell is nil when running without a terminal.
	Shell *shell.Shell

	// Gatherer backs /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer
	Logger   log.Logger
}

// Manager manages the lifecycle of the supervisor, the status server and the shell.
type Manager struct {
	servers []Server
	log     log.Logger
}

// NewManager wires the configured components.
func NewManager(cfg *Config) (*Manager, error) {
	if cfg.Supervisor == nil {
		return nil, fmt.Errorf("failed to init manager: supervisor is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Std()
	}

	servers := []Server{ServerFunc(cfg.Supervisor.Run)}

	if cfg.HttpOptions != nil && cfg.HttpOptions.Enabled {
		servers = append(servers, http.NewServer(cfg.HttpOptions, cfg.Supervisor, cfg.Gatherer, logger))
	}

	if cfg.Shell != nil {
		sh := cfg.Shell
		servers = append(servers, ServerFunc(func(ctx context.Context) error {
			if err := sh.Run(ctx); err != nil {
				return fmt.Errorf("shell: %w", err)
			}
			if ctx.Err() != nil {
				return nil
			}
			return errQuit
		}))
	}

	return &Manager{
		servers: servers,
		log:     logger,
	}, nil
}

// Start launches all servers in parallel and waits until ctx is done, one
// of them fails or the user quits the shell.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range m.servers {
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	m.log.Info("All servers starting...")
	err := g.Wait()
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}
