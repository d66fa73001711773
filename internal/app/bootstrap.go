package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"cartrules/internal/config"
	"cartrules/internal/engine"
	"cartrules/internal/rules"
	"cartrules/pkg/logging"
)

// Application represents the cartrules agent: its configuration and the
// services wired from it.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: load configuration, initialize logging, wire services
//  2. Execution phase: Run the agent, or Check / Rules for one-off commands
//
// Example usage:
//
//	cfg := app.NewConfig(false, "/etc/cartrules")
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication loads and validates the configuration, initializes logging
// and wires every service. Nothing is started.
func NewApplication(cfg *Config) (*Application, error) {
	var logOutput io.Writer = os.Stdout
	if cfg.LogOutput != nil {
		logOutput = cfg.LogOutput
	}

	bootLevel := logging.LevelInfo
	if cfg.Debug {
		bootLevel = logging.LevelDebug
	}
	logging.InitForCLI(bootLevel, logOutput)

	if cfg.CartRules == nil {
		crCfg, err := config.LoadConfig(cfg.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from path: %s", cfg.ConfigPath)
			return nil, fmt.Errorf("failed to load configuration from path %s: %w", cfg.ConfigPath, err)
		}
		cfg.CartRules = &crCfg
	}
	applyOverrides(cfg)

	if err := cfg.CartRules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := logging.ParseLevel(cfg.CartRules.Log.Level)
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logging.Init(level, logging.Format(cfg.CartRules.Log.Format), logOutput)

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

func applyOverrides(cfg *Config) {
	if cfg.SessionID != "" {
		cfg.CartRules.Engine.SessionID = cfg.SessionID
	}
	if cfg.Port >= 0 {
		cfg.CartRules.Server.Port = cfg.Port
	}
}

// sessionID returns the configured host session token or a fresh one.
func sessionID(cfg *config.CartRulesConfig) string {
	if cfg.Engine.SessionID != "" {
		return cfg.Engine.SessionID
	}
	return uuid.NewString()
}

// Services exposes the wired services.
func (a *Application) Services() *Services {
	return a.services
}

// Run starts the agent and blocks until ctx is cancelled or the process is
// signalled.
func (a *Application) Run(ctx context.Context) error {
	return runAgent(ctx, a.services)
}

// Check runs a single forced pass and waits for its telemetry to be sent.
func (a *Application) Check(ctx context.Context) (engine.PassResult, error) {
	return runCheck(ctx, a.services)
}

// Rules loads the rule set from the configured source.
func (a *Application) Rules(ctx context.Context) ([]rules.Rule, error) {
	return a.services.Rules.Load(ctx, a.config.CartRules.Shop)
}
