// Package config loads runtime settings from an optional YAML file, a .env
// file and CLAUSEDESK_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/dukerupert/clausedesk/internal/usage"
)

const envPrefix = "CLAUSEDESK"

type Config struct {
	Env      string         `mapstructure:"env"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Usage    UsageConfig    `mapstructure:"usage"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Email    EmailConfig    `mapstructure:"email"`
	Push     PushConfig     `mapstructure:"push"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Billing  BillingConfig  `mapstructure:"billing"`
	Reminder ReminderConfig `mapstructure:"reminder"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	BaseURL        string        `mapstructure:"base_url"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type AuthConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
	DemoAccount  bool          `mapstructure:"demo_account"`
}

type UsageConfig struct {
	Reports     int           `mapstructure:"reports"`
	Queries     int           `mapstructure:"queries"`
	Analysis    int           `mapstructure:"analysis"`
	Generation  int           `mapstructure:"generation"`
	Timezone    string        `mapstructure:"timezone"`
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	Retention   int           `mapstructure:"retention_days"`
}

type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	Region      string        `mapstructure:"region"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float32       `mapstructure:"temperature"`
	RateLimit   float64       `mapstructure:"rate_limit"`
	Burst       int           `mapstructure:"burst"`
	MaxRetries  uint64        `mapstructure:"max_retries"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

type EmailConfig struct {
	PostmarkToken string `mapstructure:"postmark_token"`
	From          string `mapstructure:"from"`
}

type PushConfig struct {
	VAPIDPublicKey  string `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string `mapstructure:"vapid_private_key"`
	Subscriber      string `mapstructure:"subscriber"`
}

type ArchiveConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	Bucket     string `mapstructure:"bucket"`
	Region     string `mapstructure:"region"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	Passphrase string `mapstructure:"passphrase"`
}

type BillingConfig struct {
	StripeSecretKey string `mapstructure:"stripe_secret_key"`
	WebhookSecret   string `mapstructure:"webhook_secret"`
	PriceID         string `mapstructure:"price_id"`
	SuccessURL      string `mapstructure:"success_url"`
	CancelURL       string `mapstructure:"cancel_url"`
	PortalReturnURL string `mapstructure:"portal_return_url"`
	DemoCheckout    bool   `mapstructure:"demo_checkout"`
}

type ReminderConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// Load reads configuration. configFile may be empty, in which case
// clausedesk.yaml is looked up in the working directory and is optional.
func Load(configFile string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("clausedesk")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.allowed_origins", []string{"localhost:*"})
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.path", "clausedesk.db")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.session_ttl", 30*24*time.Hour)
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.demo_account", true)

	limits := usage.DefaultLimits()
	v.SetDefault("usage.reports", limits[usage.ActionReports])
	v.SetDefault("usage.queries", limits[usage.ActionQueries])
	v.SetDefault("usage.analysis", limits[usage.ActionAnalysis])
	v.SetDefault("usage.generation", limits[usage.ActionGeneration])
	v.SetDefault("usage.timezone", "Local")
	v.SetDefault("usage.idle_timeout", 2*time.Hour)
	v.SetDefault("usage.retention_days", 90)

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.region", "")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.rate_limit", 2.0)
	v.SetDefault("llm.burst", 4)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.backoff", 500*time.Millisecond)

	v.SetDefault("email.postmark_token", "")
	v.SetDefault("email.from", "noreply@clausedesk.local")

	v.SetDefault("push.vapid_public_key", "")
	v.SetDefault("push.vapid_private_key", "")
	v.SetDefault("push.subscriber", "mailto:admin@clausedesk.local")

	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.access_key", "")
	v.SetDefault("archive.secret_key", "")
	v.SetDefault("archive.passphrase", "")

	v.SetDefault("billing.stripe_secret_key", "")
	v.SetDefault("billing.webhook_secret", "")
	v.SetDefault("billing.price_id", "")
	v.SetDefault("billing.success_url", "http://localhost:8080/billing/success")
	v.SetDefault("billing.cancel_url", "http://localhost:8080/billing/cancel")
	v.SetDefault("billing.portal_return_url", "http://localhost:8080/account")
	v.SetDefault("billing.demo_checkout", false)

	v.SetDefault("reminder.interval", 15*time.Minute)
}

// Development reports whether the process runs outside production.
func (c *Config) Development() bool {
	return c.Env != "production"
}

// UsageLimits returns the configured daily caps.
func (c *Config) UsageLimits() usage.Limits {
	return usage.Limits{
		usage.ActionReports:    c.Usage.Reports,
		usage.ActionQueries:    c.Usage.Queries,
		usage.ActionAnalysis:   c.Usage.Analysis,
		usage.ActionGeneration: c.Usage.Generation,
	}
}

// Location returns the zone used for the daily usage boundary.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Usage.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid usage.timezone %q: %w", c.Usage.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr cannot be empty")
	}
	if c.Database.Path == "" {
		return errors.New("database.path cannot be empty")
	}
	if err := c.UsageLimits().Validate(); err != nil {
		return fmt.Errorf("usage limits: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Auth.JWTSecret == "" && !c.Development() {
		return errors.New("auth.jwt_secret is required in production")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("auth.session_ttl must be positive")
	}
	if c.Reminder.Interval <= 0 {
		return errors.New("reminder.interval must be positive")
	}
	if c.LLM.RateLimit <= 0 || c.LLM.Burst <= 0 {
		return errors.New("llm.rate_limit and llm.burst must be positive")
	}
	return nil
}
