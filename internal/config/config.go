package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every service-specific environment variable.
const EnvPrefix = "ISOMAP"

// StoreConfig locates the precomputed isochrone document.
type StoreConfig struct {
	Path             string
	ReferenceMinutes float64
}

// KafkaConfig holds the lead event pipeline settings. No brokers means inline delivery.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// Enabled returns true if at least one broker is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// RedisConfig holds the rate limiter backend settings. No address disables rate limiting.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig bounds public POST requests per client IP.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// LeadConfig holds the collaborators that receive captured leads.
type LeadConfig struct {
	SheetsWebhookURL string
	PostmarkToken    string
	PostmarkBaseURL  string
	WelcomeFrom      string
	HTTPTimeout      time.Duration
}

// ORSConfig holds the OpenRouteService settings used by the offline generator.
type ORSConfig struct {
	APIKey      string
	BaseURL     string
	HTTPTimeout time.Duration
}

// ServiceConfig holds all configuration for the isochrone service.
type ServiceConfig struct {
	Port      string
	AppEnv    string
	Store     StoreConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Lead      LeadConfig
	ORS       ORSConfig
}

// IsDevelopment returns true when running locally.
func (c *ServiceConfig) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// New returns a viper instance with the service defaults and environment bindings.
// An optional .env file in the working directory is loaded first.
func New() (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("service_port", ":8080")
	v.SetDefault("app_env", "development")
	v.SetDefault("store.path", "data/precalculated-isochrones.json")
	v.SetDefault("store.reference_minutes", 15)
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.group_prefix", "isomap-")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("ratelimit.requests", 10)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("lead.postmark_base_url", "https://api.postmarkapp.com")
	v.SetDefault("lead.welcome_from", "hello@isomap.io")
	v.SetDefault("lead.http_timeout", 10*time.Second)
	v.SetDefault("ors.base_url", "https://api.openrouteservice.org")
	v.SetDefault("ors.http_timeout", 30*time.Second)

	// Third-party secrets keep their conventional unprefixed names.
	_ = v.BindEnv("app_env", EnvPrefix+"_APP_ENV", "APP_ENV")
	_ = v.BindEnv("lead.sheets_webhook_url", EnvPrefix+"_LEAD_SHEETS_WEBHOOK_URL", "GOOGLE_SHEETS_WEBHOOK_URL")
	_ = v.BindEnv("lead.postmark_token", EnvPrefix+"_LEAD_POSTMARK_TOKEN", "POSTMARK_API_TOKEN")
	_ = v.BindEnv("ors.api_key", EnvPrefix+"_ORS_API_KEY", "ORS_API_KEY")

	return v, nil
}

// Load reads configuration from environment variables.
func Load() (*ServiceConfig, error) {
	v, err := New()
	if err != nil {
		return nil, err
	}
	return FromViper(v), nil
}

// FromViper builds a ServiceConfig from an already populated viper instance.
func FromViper(v *viper.Viper) *ServiceConfig {
	return &ServiceConfig{
		Port:   v.GetString("service_port"),
		AppEnv: v.GetString("app_env"),
		Store: StoreConfig{
			Path:             v.GetString("store.path"),
			ReferenceMinutes: v.GetFloat64("store.reference_minutes"),
		},
		Kafka: KafkaConfig{
			Brokers:     splitList(v.GetString("kafka.brokers")),
			GroupPrefix: v.GetString("kafka.group_prefix"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("ratelimit.requests"),
			Window:   v.GetDuration("ratelimit.window"),
		},
		Lead: LeadConfig{
			SheetsWebhookURL: v.GetString("lead.sheets_webhook_url"),
			PostmarkToken:    v.GetString("lead.postmark_token"),
			PostmarkBaseURL:  v.GetString("lead.postmark_base_url"),
			WelcomeFrom:      v.GetString("lead.welcome_from"),
			HTTPTimeout:      v.GetDuration("lead.http_timeout"),
		},
		ORS: ORSConfig{
			APIKey:      v.GetString("ors.api_key"),
			BaseURL:     v.GetString("ors.base_url"),
			HTTPTimeout: v.GetDuration("ors.http_timeout"),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
