package app

import (
	"context"
	"fmt"

	"workbench/internal/config"
	"workbench/pkg/logging"
)

// Application is the main application structure that bootstraps and runs
// workbench sessions.
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance
func NewApplication(cfg *Config) (*Application, error) {
	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logging.Init(level, cfg.ErrOut)

	if cfg.WorkbenchConfig == nil {
		wbCfg, err := config.LoadConfig()
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load workbench configuration")
			return nil, fmt.Errorf("failed to load workbench configuration: %w", err)
		}
		cfg.WorkbenchConfig = &wbCfg
		logging.Debug("Bootstrap", "Loaded configuration using layered approach")
	}
	if !cfg.Debug {
		logging.Init(logging.LevelFromString(cfg.WorkbenchConfig.LogLevel), cfg.ErrOut)
	}

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Services exposes the wired services.
func (a *Application) Services() *Services {
	return a.services
}

// Run replays session against the workbench.
func (a *Application) Run(ctx context.Context, session *Session) error {
	r := NewRunner(a.services.Workbench, session.Dir, a.config.Out)
	if err := r.Run(ctx, session); err != nil {
		return err
	}
	if s, ok := a.services.Prompter.(interface{ Remaining() int }); ok && s.Remaining() > 0 {
		logging.Warn("Session", "%d scripted answers were not used", s.Remaining())
	}
	return nil
}

// Close releases the services.
func (a *Application) Close() error {
	return a.services.Close()
}
