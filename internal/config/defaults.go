package config

import "time"

const (
	DefaultPort              = 8787
	DefaultHost              = "localhost"
	DefaultFetchTimeout      = 10 * time.Second
	DefaultWatchDebounce     = 200 * time.Millisecond
	DefaultDebounce          = 500 * time.Millisecond
	DefaultPollInterval      = 30 * time.Second
	DefaultSuppressionWindow = time.Second
	DefaultPassTimeout       = time.Minute
)

// GetDefaultConfig returns the configuration used when no config.yaml exists.
func GetDefaultConfig() CartRulesConfig {
	return CartRulesConfig{
		RuleSource: RuleSourceConfig{
			Mode:          RuleSourceHTTP,
			Timeout:       DefaultFetchTimeout,
			WatchDebounce: DefaultWatchDebounce,
		},
		Cart: CartConfig{
			Timeout: DefaultFetchTimeout,
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
			Timeout: 5 * time.Second,
		},
		Engine: EngineConfig{
			Debounce:          DefaultDebounce,
			PollInterval:      DefaultPollInterval,
			SuppressionWindow: DefaultSuppressionWindow,
			PassTimeout:       DefaultPassTimeout,
		},
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
