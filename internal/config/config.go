// Package config provides environment configuration for the reservation assistant.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider kinds understood by the LLM registry.
const (
	ProviderOpenAI    = "openai"
	ProviderGroq      = "groq"
	ProviderVLLM      = "vllm"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// ProviderConfig selects and configures one LLM backend.
type ProviderConfig struct {
	Kind    string
	Model   string
	BaseURL string
	APIKey  string
}

// Enabled reports whether a provider was configured.
func (p ProviderConfig) Enabled() bool {
	return p.Kind != "" && p.Kind != "none"
}

// HotelConfig is the identity injected into the system prompt.
type HotelConfig struct {
	Name    string
	Phone   string
	Email   string
	Address string
}

// Config holds all configuration for the application.
type Config struct {
	Env string

	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Database settings
	DBDriver  string
	DBDSN     string
	SeedRooms bool

	// NATS settings, empty URL disables the transcript sink
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings, empty secret disables auth on the API
	JWTSecret     string
	JWTExpiration time.Duration

	// LLM settings
	Primary           ProviderConfig
	Secondary         ProviderConfig
	LLMTimeout        time.Duration
	LLMTemperature    float64
	LLMMaxTokens      int
	MaxToolRounds     int
	HistoryLimit      int
	GroundingGuard    bool
	StrictBookingFlow bool

	Hotel HotelConfig

	// Sessions idle longer than SessionIdleTTL are dropped every SessionSweepInterval
	SessionIdleTTL       time.Duration
	SessionSweepInterval time.Duration

	// Channels
	DiscordBotToken string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables, after an optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Env: getEnv("ENV", "production"),

		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// Database
		DBDriver:  getEnv("DB_DRIVER", "sqlite"),
		DBDSN:     getEnv("DB_DSN", "data/reservations.db"),
		SeedRooms: getBoolEnv("SEED_ROOMS", true),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTExpiration: getDurationEnv("JWT_EXPIRATION", 15*time.Minute),

		// LLM
		Primary:           loadProvider("LLM_PRIMARY", ProviderGroq, "llama-3.3-70b-versatile"),
		Secondary:         loadProvider("LLM_SECONDARY", ProviderOllama, "llama3.1"),
		LLMTimeout:        getDurationEnv("LLM_TIMEOUT", 15*time.Second),
		LLMTemperature:    getFloatEnv("LLM_TEMPERATURE", 0.2),
		LLMMaxTokens:      getIntEnv("LLM_MAX_TOKENS", 1024),
		MaxToolRounds:     getIntEnv("MAX_TOOL_ROUNDS", 3),
		HistoryLimit:      getIntEnv("HISTORY_LIMIT", 12),
		GroundingGuard:    getBoolEnv("GROUNDING_GUARD", true),
		StrictBookingFlow: getBoolEnv("STRICT_BOOKING_FLOW", false),

		Hotel: HotelConfig{
			Name:    getEnv("HOTEL_NAME", "Grand Ege Otel"),
			Phone:   getEnv("HOTEL_PHONE", "+90 232 000 00 00"),
			Email:   getEnv("HOTEL_EMAIL", "rezervasyon@grandege.example"),
			Address: getEnv("HOTEL_ADDRESS", "Kordon Boyu 1, Izmir"),
		},

		SessionIdleTTL:       getDurationEnv("SESSION_IDLE_TTL", 24*time.Hour),
		SessionSweepInterval: getDurationEnv("SESSION_SWEEP_INTERVAL", 10*time.Minute),

		DiscordBotToken: getEnv("DISCORD_BOT_TOKEN", ""),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if !c.Primary.Enabled() {
		errs = append(errs, errors.New("LLM_PRIMARY_PROVIDER is required"))
	}
	for _, p := range []ProviderConfig{c.Primary, c.Secondary} {
		if !p.Enabled() {
			continue
		}
		switch p.Kind {
		case ProviderOpenAI, ProviderGroq, ProviderAnthropic:
			if p.APIKey == "" {
				errs = append(errs, fmt.Errorf("provider %s requires an API key", p.Kind))
			}
		case ProviderVLLM, ProviderOllama:
		default:
			errs = append(errs, fmt.Errorf("unknown provider %q", p.Kind))
		}
	}
	if c.LLMTimeout <= 0 {
		errs = append(errs, errors.New("LLM_TIMEOUT must be positive"))
	}
	if c.MaxToolRounds < 1 {
		errs = append(errs, errors.New("MAX_TOOL_ROUNDS must be at least 1"))
	}
	if c.HistoryLimit < 2 {
		errs = append(errs, errors.New("HISTORY_LIMIT must be at least 2"))
	}
	if c.SessionIdleTTL <= 0 || c.SessionSweepInterval <= 0 {
		errs = append(errs, errors.New("SESSION_IDLE_TTL and SESSION_SWEEP_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

func loadProvider(prefix, defaultKind, defaultModel string) ProviderConfig {
	kind := strings.ToLower(getEnv(prefix+"_PROVIDER", defaultKind))
	model := defaultModel
	if kind != defaultKind {
		model = ""
	}
	return ProviderConfig{
		Kind:    kind,
		Model:   getEnv(prefix+"_MODEL", model),
		BaseURL: getEnv(prefix+"_BASE_URL", defaultBaseURL(kind)),
		APIKey:  getEnv(prefix+"_API_KEY", defaultAPIKey(kind)),
	}
}

func defaultBaseURL(kind string) string {
	switch kind {
	case ProviderGroq:
		return "https://api.groq.com/openai/v1"
	case ProviderOllama:
		return "http://localhost:11434"
	case ProviderVLLM:
		return "http://localhost:8000/v1"
	default:
		return ""
	}
}

func defaultAPIKey(kind string) string {
	switch kind {
	case ProviderGroq:
		return os.Getenv("GROQ_API_KEY")
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return ""
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getDurationEnv accepts Go durations ("15s") or plain seconds ("15").
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.ParseFloat(value, 64); err == nil {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return defaultValue
}
