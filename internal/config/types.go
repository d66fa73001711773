package config

import "time"

// Rule source modes.
const (
	RuleSourceHTTP = "http"
	RuleSourceFile = "file"
)

// CartRulesConfig is the top-level configuration structure for cartrules.
type CartRulesConfig struct {
	// Shop identifies the store whose rules are fetched and reported against.
	Shop string `yaml:"shop"`

	RuleSource RuleSourceConfig `yaml:"ruleSource"`
	Cart       CartConfig       `yaml:"cart"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Engine     EngineConfig     `yaml:"engine"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

// RuleSourceConfig selects where rules come from.
type RuleSourceConfig struct {
	Mode          string        `yaml:"mode,omitempty"`          // http or file (default: http)
	URL           string        `yaml:"url,omitempty"`           // Rules backend base URL (http mode)
	Dir           string        `yaml:"dir,omitempty"`           // Directory of rule YAML files (file mode)
	Timeout       time.Duration `yaml:"timeout,omitempty"`       // Fetch timeout (default: 10s)
	WatchDebounce time.Duration `yaml:"watchDebounce,omitempty"` // File watcher debounce (default: 200ms)
}

// CartConfig points at the storefront cart API.
type CartConfig struct {
	BaseURL string        `yaml:"baseURL"`
	Cookie  string        `yaml:"cookie,omitempty"` // Cart session cookie sent with every request
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// TelemetryConfig configures execution reporting.
type TelemetryConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url,omitempty"` // Defaults to the rule source URL
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// EngineConfig tunes the reconciliation loop.
type EngineConfig struct {
	Debounce          time.Duration `yaml:"debounce,omitempty"`
	PollInterval      time.Duration `yaml:"pollInterval,omitempty"`
	SuppressionWindow time.Duration `yaml:"suppressionWindow,omitempty"`
	PassTimeout       time.Duration `yaml:"passTimeout,omitempty"`

	// SessionID is a durable host session token. Empty means a fresh id per start.
	SessionID string `yaml:"sessionID,omitempty"`
}

// ServerConfig is the agent's HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// TelemetryURL returns the telemetry endpoint base, falling back to the rule
// source URL.
func (c CartRulesConfig) TelemetryURL() string {
	if c.Telemetry.URL != "" {
		return c.Telemetry.URL
	}
	return c.RuleSource.URL
}
