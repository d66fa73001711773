package app

import (
	"context"
	"time"

	"cartrules/internal/cart"
	"cartrules/internal/config"
	"cartrules/internal/engine"
	"cartrules/internal/reconciler"
	"cartrules/internal/refresh"
	"cartrules/internal/rulesource"
	"cartrules/internal/server"
	"cartrules/internal/telemetry"
	"cartrules/pkg/logging"
)

// Services holds every wired component of the agent.
//
// Dependencies are built bottom-up:
//  1. Rule source and its cache, plus the file watcher in file mode
//  2. Cart client and telemetry reporter
//  3. Engine state and engine
//  4. Refresh hub and coordinator, installed as the engine's refresher
//  5. Scheduler driving the engine
//  6. HTTP server exposing signals, the WebSocket and status
type Services struct {
	Shop string

	Rules   *rulesource.Cache
	Watcher *rulesource.Watcher // nil unless ruleSource.mode is file

	Cart     *cart.Client
	Reporter telemetry.Reporter

	// flush waits for in-flight telemetry. It is a no-op when telemetry is disabled.
	flush func(ctx context.Context) error

	State  *engine.State
	Engine *engine.Engine

	Hub         *refresh.Hub
	Coordinator *refresh.Coordinator

	Scheduler *reconciler.Scheduler
	Server    *server.Server
}

// InitializeServices wires the agent from cfg.CartRules.
func InitializeServices(cfg *Config) (*Services, error) {
	crCfg := cfg.CartRules
	s := &Services{Shop: crCfg.Shop}

	var source rulesource.Source
	switch crCfg.RuleSource.Mode {
	case config.RuleSourceFile:
		source = rulesource.NewFileSource(crCfg.RuleSource.Dir)
	default:
		source = rulesource.NewHTTPSource(crCfg.RuleSource.URL, crCfg.RuleSource.Timeout)
	}
	s.Rules = rulesource.NewCache(source)
	logging.Info("Bootstrap", "Rule source: %s", crCfg.RuleSource.Mode)

	s.Cart = cart.NewClient(cart.ClientConfig{
		BaseURL: crCfg.Cart.BaseURL,
		Cookie:  crCfg.Cart.Cookie,
		Timeout: crCfg.Cart.Timeout,
	})

	if crCfg.Telemetry.Enabled {
		reporter := telemetry.NewHTTPReporter(crCfg.TelemetryURL(), crCfg.Telemetry.Timeout)
		s.Reporter = reporter
		s.flush = reporter.Wait
	} else {
		s.Reporter = telemetry.NopReporter{}
		s.flush = func(context.Context) error { return nil }
		logging.Info("Bootstrap", "Telemetry disabled")
	}

	s.State = engine.NewState(sessionID(crCfg), nil)
	logging.Info("Bootstrap", "Session %s", s.State.SessionID())

	s.Engine = engine.New(engine.Config{Shop: crCfg.Shop}, s.Rules, s.Cart, s.State, s.Reporter, nil)

	s.Hub = refresh.NewHub()
	s.Coordinator = refresh.NewCoordinator(s.Cart, s.Hub, s.State, crCfg.Engine.SuppressionWindow)
	s.Engine.SetRefresher(s.Coordinator)

	s.Scheduler = reconciler.NewScheduler(reconciler.SchedulerConfig{
		DebounceInterval: crCfg.Engine.Debounce,
		PollInterval:     crCfg.Engine.PollInterval,
		PassTimeout:      crCfg.Engine.PassTimeout,
	}, s.Engine)

	s.Hub.SetSignalHandler(func(raw string) {
		source, ok := reconciler.ParseHostSource(raw)
		if !ok {
			logging.Debug("Bootstrap", "Ignoring unknown host signal %q", raw)
			return
		}
		s.Scheduler.Signal(source)
	})

	if crCfg.RuleSource.Mode == config.RuleSourceFile {
		s.Watcher = rulesource.NewWatcher(crCfg.RuleSource.Dir, s.Rules, crCfg.RuleSource.WatchDebounce, func() {
			s.Scheduler.Signal(reconciler.SourceRulesChanged)
		})
	}

	router := server.NewRouter(server.Dependencies{
		Shop:      crCfg.Shop,
		Runner:    s.Engine,
		State:     s.State,
		Rules:     s.Rules,
		Scheduler: s.Scheduler,
		Hub:       s.Hub,
	})
	s.Server = server.New(crCfg.Server.Host, crCfg.Server.Port, router)

	return s, nil
}

// FlushTelemetry waits up to timeout for in-flight telemetry reports.
func (s *Services) FlushTelemetry(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.flush(ctx)
}
