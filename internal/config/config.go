// Package config provides environment configuration for the tracker server.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Env                string        `envconfig:"ENV" default:"production"`
	ServerPort         string        `envconfig:"PORT" default:"8080"`
	ServerReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	ServerWriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"0s"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	AllowedOrigins     []string      `envconfig:"ALLOWED_ORIGINS" default:"https://*,http://*"`
	PublicBaseURL      string        `envconfig:"PUBLIC_BASE_URL"`

	// Observer connections
	WSSendBuffer     int           `envconfig:"WS_SEND_BUFFER" default:"256"`
	WSWriteTimeout   time.Duration `envconfig:"WS_WRITE_TIMEOUT" default:"5s"`
	WSPingInterval   time.Duration `envconfig:"WS_PING_INTERVAL" default:"30s"`
	WSOriginPatterns []string      `envconfig:"WS_ORIGIN_PATTERNS" default:"*"`

	// Tracker
	TranscriptRetention int    `envconfig:"TRANSCRIPT_RETENTION" default:"50"`
	DailyResetLocation  string `envconfig:"DAILY_RESET_LOCATION" default:"Local"`

	// Providers
	VapiServerSecret       string `envconfig:"VAPI_SERVER_SECRET"`
	VapiAssistantName      string `envconfig:"VAPI_ASSISTANT_NAME" default:"Time & Attention AI Receptionist"`
	VapiFirstMessage       string `envconfig:"VAPI_FIRST_MESSAGE" default:"Hey there, I'm the AI assistant for Time and Attention. How can I help you today?"`
	VapiSIPURI             string `envconfig:"VAPI_SIP_URI"`
	TwilioAuthToken        string `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioValidateWebhooks bool   `envconfig:"TWILIO_VALIDATE_WEBHOOKS" default:"false"`

	// JWT settings
	JWTSecret string `envconfig:"JWT_SECRET" default:"development-secret-change-in-production"`

	// Rate limiting
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"120"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// LLM settings
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	LLMModel        string `envconfig:"LLM_MODEL"`

	// NATS settings
	NATSEnabled            bool   `envconfig:"NATS_ENABLED" default:"false"`
	NATSURL                string `envconfig:"NATS_URL" default:"nats://localhost:4222"`
	NATSToken              string `envconfig:"NATS_TOKEN"`
	NATSCAFile             string `envconfig:"NATS_CA_FILE"`
	NATSCertFile           string `envconfig:"NATS_CERT_FILE"`
	NATSKeyFile            string `envconfig:"NATS_KEY_FILE"`
	NATSIngestSubject      string `envconfig:"NATS_INGEST_SUBJECT" default:"tracker.ingest.>"`
	NATSEventSubjectPrefix string `envconfig:"NATS_EVENT_SUBJECT_PREFIX" default:"tracker.events"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Tracing
	TracingEnabled  bool   `envconfig:"TRACING_ENABLED" default:"false"`
	TracingEndpoint string `envconfig:"TRACING_ENDPOINT" default:"localhost:4318"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultJWTSecret is the JWT_SECRET default. It is public, so production
// deployments must override it.
const DefaultJWTSecret = "development-secret-change-in-production"

// Validate checks values envconfig cannot.
func (c *Config) Validate() error {
	if c.Env == "production" && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set when ENV is production")
	}
	if c.TwilioValidateWebhooks && c.TwilioAuthToken == "" {
		return fmt.Errorf("TWILIO_AUTH_TOKEN is required when TWILIO_VALIDATE_WEBHOOKS is enabled")
	}
	if c.WSSendBuffer <= 0 {
		return fmt.Errorf("WS_SEND_BUFFER must be positive")
	}
	if c.TranscriptRetention < 0 {
		return fmt.Errorf("TRANSCRIPT_RETENTION must not be negative")
	}
	if _, err := c.ResetLocation(); err != nil {
		return err
	}
	return nil
}

// ResetLocation resolves the time zone used for the daily stats rollover.
func (c *Config) ResetLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.DailyResetLocation)
	if err != nil {
		return nil, fmt.Errorf("invalid DAILY_RESET_LOCATION %q: %w", c.DailyResetLocation, err)
	}
	return loc, nil
}
