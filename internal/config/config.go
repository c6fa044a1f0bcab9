// Package config loads and validates the monitor's configuration from a YAML
// file, applying defaults for everything a deployment leaves out. A load
// failure is not fatal to the monitor: callers fall back to Fallback(), a
// valid configuration with no alert rules and no notification channels.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/energyforreal/kubera-pokisham-sub002/internal/model"
)

// Config holds the full monitor configuration.
type Config struct {
	ListenAddr string            `mapstructure:"listen_addr"`
	DataDir    string            `mapstructure:"data_dir"`
	ProcPath   string            `mapstructure:"proc_path"`
	Intervals  IntervalsConfig   `mapstructure:"intervals"`
	Retention  RetentionConfig   `mapstructure:"retention"`
	Components []ComponentConfig `mapstructure:"components"`
	Logs       LogsConfig        `mapstructure:"logs"`
	Alerts     AlertsConfig      `mapstructure:"alerts"`
	Channels   ChannelsConfig    `mapstructure:"channels"`
	Redis      RedisConfig       `mapstructure:"redis"`
}

// IntervalsConfig holds the independent timer periods of the monitor loops.
type IntervalsConfig struct {
	Health      time.Duration `mapstructure:"health"`
	Performance time.Duration `mapstructure:"performance"`
	Coordinator time.Duration `mapstructure:"coordinator"`
	Purge       time.Duration `mapstructure:"purge"`
}

// RetentionConfig bounds the event store.
type RetentionConfig struct {
	MaxAge     time.Duration `mapstructure:"max_age"`
	HealthCap  int           `mapstructure:"health_cap"`
	MetricsCap int           `mapstructure:"metrics_cap"`
	AlertsCap  int           `mapstructure:"alerts_cap"`
	LogsCap    int           `mapstructure:"logs_cap"`
}

// Component check types.
const (
	ComponentHTTP      = "http"
	ComponentHeartbeat = "heartbeat"
)

// ComponentConfig describes one monitored component. Type selects the check:
// "http" probes URL, "heartbeat" reads the liveness file at LivenessFile.
type ComponentConfig struct {
	Name            string        `mapstructure:"name"`
	Type            string        `mapstructure:"type"`
	URL             string        `mapstructure:"url"`
	LivenessFile    string        `mapstructure:"liveness_file"`
	Timeout         time.Duration `mapstructure:"timeout"`
	WarningMS       float64       `mapstructure:"warning_ms"`
	CriticalMS      float64       `mapstructure:"critical_ms"`
	MaxHeartbeatAge time.Duration `mapstructure:"max_heartbeat_age"`
}

// LogsConfig configures the log line sources feeding the aggregator.
type LogsConfig struct {
	Files            []string    `mapstructure:"files"`
	DefaultComponent string      `mapstructure:"default_component"`
	Kafka            KafkaConfig `mapstructure:"kafka"`
}

// KafkaConfig points the aggregator at a log topic. Brokers is a
// comma-separated list; an empty Topic disables the source.
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// AlertsConfig holds the rule set and the suppression windows.
type AlertsConfig struct {
	RateLimit RateLimitConfig   `mapstructure:"rate_limit"`
	Dedup     DedupConfig       `mapstructure:"dedup"`
	Rules     []model.AlertRule `mapstructure:"rules"`
}

// RateLimitConfig caps how often a single rule may dispatch per window.
type RateLimitConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Window       time.Duration `mapstructure:"window"`
	MaxPerWindow int           `mapstructure:"max_per_window"`
}

// DedupConfig suppresses repeat firings of a rule within the window.
type DedupConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Window  time.Duration `mapstructure:"window"`
}

// ChannelsConfig holds the notification channel settings. A channel with its
// required credentials left empty is simply not configured.
type ChannelsConfig struct {
	Slack    SlackConfig    `mapstructure:"slack"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Email    EmailConfig    `mapstructure:"email"`
}

// SlackConfig configures the incoming-webhook channel.
type SlackConfig struct {
	WebhookURL string   `mapstructure:"webhook_url"`
	Severities []string `mapstructure:"severities"`
}

// Configured reports whether the channel has enough settings to send.
func (c SlackConfig) Configured() bool { return c.WebhookURL != "" }

// TelegramConfig configures the bot API channel.
type TelegramConfig struct {
	Token      string   `mapstructure:"token"`
	ChatID     string   `mapstructure:"chat_id"`
	Severities []string `mapstructure:"severities"`
}

// Configured reports whether the channel has enough settings to send.
func (c TelegramConfig) Configured() bool { return c.Token != "" && c.ChatID != "" }

// EmailConfig configures the mail channel. Provider names the primary
// delivery provider; any other configured provider acts as fallback.
type EmailConfig struct {
	From       string       `mapstructure:"from"`
	To         []string     `mapstructure:"to"`
	Severities []string     `mapstructure:"severities"`
	Provider   string       `mapstructure:"provider"`
	SMTP       SMTPConfig   `mapstructure:"smtp"`
	SES        SESConfig    `mapstructure:"ses"`
	Resend     ResendConfig `mapstructure:"resend"`
}

// Configured reports whether the channel has enough settings to send.
func (c EmailConfig) Configured() bool { return c.From != "" && len(c.To) > 0 }

// SMTPConfig holds plain SMTP delivery settings.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// SESConfig holds AWS SES delivery settings. Credentials come from the
// standard AWS environment or instance profile.
type SESConfig struct {
	Region string `mapstructure:"region"`
}

// ResendConfig holds Resend delivery settings.
type ResendConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// RedisConfig enables periodic reporting of the monitor's own service metrics
// to Redis. An empty Addr disables it.
type RedisConfig struct {
	Addr           string        `mapstructure:"addr"`
	ReportInterval time.Duration `mapstructure:"report_interval"`
}

// Load reads the configuration. With a non-empty path the file must exist;
// otherwise monitor.yaml is searched in the working directory and
// /etc/kubera-monitor, and a missing file means defaults only.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("monitor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/kubera-monitor")
	}
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// Fallback returns the configuration the monitor runs with when loading
// fails: every default in place but no alert rules and no channels.
func Fallback() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Decoding pure defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	applyDefaults(&cfg)
	cfg.Alerts.Rules = nil
	return &cfg
}

// DefaultRules returns the standard rule set, used when the configuration
// does not declare its own.
func DefaultRules() []model.AlertRule {
	return []model.AlertRule{
		{ID: "component-downtime", Name: "Component downtime", Description: "A component is critical or the agent heartbeat is stale", Severity: model.SeverityCritical, Enabled: true},
		{ID: "api-latency-spike", Name: "API latency spike", Description: "Backend response time above 2000ms", Severity: model.SeverityWarning, Enabled: true},
		{ID: "high-error-rate", Name: "High error rate", Description: "More than 5 errors in the last 10 minutes", Severity: model.SeverityWarning, Enabled: true},
		{ID: "circuit-breaker-triggered", Name: "Circuit breaker triggered", Description: "A component reports an active circuit breaker", Severity: model.SeverityCritical, Enabled: true},
		{ID: "high-memory-usage", Name: "High memory usage", Description: "Host memory usage above 80%", Severity: model.SeverityWarning, Enabled: true},
		{ID: "trade-execution-failure", Name: "Trade execution failure", Description: "The trading process signaled a failed execution", Severity: model.SeverityCritical, Enabled: true},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8090")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("proc_path", "/proc")
	v.SetDefault("intervals.health", "30s")
	v.SetDefault("intervals.performance", "60s")
	v.SetDefault("intervals.coordinator", "30s")
	v.SetDefault("intervals.purge", "1h")
	v.SetDefault("retention.max_age", "24h")
	v.SetDefault("retention.health_cap", 1000)
	v.SetDefault("retention.metrics_cap", 5000)
	v.SetDefault("retention.alerts_cap", 500)
	v.SetDefault("retention.logs_cap", 10000)
	v.SetDefault("logs.default_component", "app")
	v.SetDefault("alerts.rate_limit.enabled", true)
	v.SetDefault("alerts.rate_limit.window", "1h")
	v.SetDefault("alerts.rate_limit.max_per_window", 10)
	v.SetDefault("alerts.dedup.enabled", true)
	v.SetDefault("alerts.dedup.window", "5m")
	v.SetDefault("redis.report_interval", "30s")
}

// applyDefaults fills the slices viper defaults cannot express.
func applyDefaults(cfg *Config) {
	if len(cfg.Components) == 0 {
		cfg.Components = defaultComponents()
	}
	if len(cfg.Alerts.Rules) == 0 {
		cfg.Alerts.Rules = DefaultRules()
	}
	for i := range cfg.Components {
		c := &cfg.Components[i]
		if c.Timeout <= 0 {
			c.Timeout = 5 * time.Second
		}
		if c.Type == ComponentHTTP {
			if c.WarningMS <= 0 {
				c.WarningMS = 1000
			}
			if c.CriticalMS <= 0 {
				c.CriticalMS = 2000
			}
		}
		if c.Type == ComponentHeartbeat && c.MaxHeartbeatAge <= 0 {
			c.MaxHeartbeatAge = 60 * time.Second
		}
	}
}

func defaultComponents() []ComponentConfig {
	return []ComponentConfig{
		{Name: "backend", Type: ComponentHTTP, URL: "http://localhost:8000/health"},
		{Name: "agent", Type: ComponentHeartbeat, LivenessFile: "./liveness.json"},
	}
}

// Validate checks that all configured values are usable.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr cannot be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}
	if c.Intervals.Health <= 0 || c.Intervals.Performance <= 0 || c.Intervals.Coordinator <= 0 || c.Intervals.Purge <= 0 {
		return fmt.Errorf("all intervals must be > 0")
	}
	if c.Retention.MaxAge <= 0 {
		return fmt.Errorf("retention.max_age must be > 0")
	}
	for _, comp := range c.Components {
		if comp.Name == "" {
			return fmt.Errorf("component name cannot be empty")
		}
		switch comp.Type {
		case ComponentHTTP:
			if comp.URL == "" {
				return fmt.Errorf("component %s: url cannot be empty", comp.Name)
			}
		case ComponentHeartbeat:
			if comp.LivenessFile == "" {
				return fmt.Errorf("component %s: liveness_file cannot be empty", comp.Name)
			}
		default:
			return fmt.Errorf("component %s: unknown type %q", comp.Name, comp.Type)
		}
	}
	for _, rule := range c.Alerts.Rules {
		if rule.ID == "" {
			return fmt.Errorf("alert rule id cannot be empty")
		}
		switch rule.Severity {
		case model.SeverityInfo, model.SeverityWarning, model.SeverityCritical:
		default:
			return fmt.Errorf("alert rule %s: unknown severity %q", rule.ID, rule.Severity)
		}
	}
	if c.Alerts.RateLimit.Enabled {
		if c.Alerts.RateLimit.Window <= 0 {
			return fmt.Errorf("alerts.rate_limit.window must be > 0")
		}
		if c.Alerts.RateLimit.MaxPerWindow <= 0 {
			return fmt.Errorf("alerts.rate_limit.max_per_window must be > 0")
		}
	}
	if c.Alerts.Dedup.Enabled && c.Alerts.Dedup.Window <= 0 {
		return fmt.Errorf("alerts.dedup.window must be > 0")
	}
	if c.Logs.Kafka.Topic != "" {
		if c.Logs.Kafka.Brokers == "" {
			return fmt.Errorf("logs.kafka.brokers cannot be empty when a topic is set")
		}
		if c.Logs.Kafka.GroupID == "" {
			return fmt.Errorf("logs.kafka.group_id cannot be empty when a topic is set")
		}
	}
	if c.Channels.Email.Configured() {
		switch c.Channels.Email.Provider {
		case "", "smtp", "ses", "resend":
		default:
			return fmt.Errorf("channels.email.provider: unknown provider %q", c.Channels.Email.Provider)
		}
	}
	return nil
}
