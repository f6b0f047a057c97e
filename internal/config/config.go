package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	NatsURL         string
	NatsToken       string
	DatabaseURL     string
	RedisURL        string
	LogLevel        string
	AnthropicAPIKey string
	AnthropicModel  string
	PerplexityToken string
	PerplexityModel string
	SlackBotToken   string
	SlackChannel    string
	APIToken        string
	CORSOrigins     []string
	DefaultToken    string

	ClassifyTimeout time.Duration
	GenerateTimeout time.Duration
	EnrichTimeout   time.Duration

	// Event timing and wager lifetime.
	BettingDeadlineOffset time.Duration
	ResolutionWindow      time.Duration
	DefaultEventTime      string
	WagerTTL              time.Duration
	ConversationTTL       time.Duration
}

// Load reads the configuration from the environment. Values from a .env file
// in the working directory are used for variables that are not already set.
func Load() Config {
	_ = godotenv.Load()
	return fromEnv()
}

// LoadFile is Load with an explicit .env path.
func LoadFile(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil {
		return Config{}, err
	}
	return fromEnv(), nil
}

func fromEnv() Config {
	return Config{
		Port:            envInt("SLICE_PORT", 8760),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		RedisURL:        envStr("REDIS_URL", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("SLICE_MODEL", "claude-sonnet-4-20250514"),
		PerplexityToken: envStr("PERPLEXITY_API_TOKEN", ""),
		PerplexityModel: envStr("PERPLEXITY_MODEL", "sonar"),
		SlackBotToken:   envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:    envStr("SLACK_WAGER_CHANNEL", ""),
		APIToken:        envStr("SLICE_API_TOKEN", ""),
		CORSOrigins:     envList("SLICE_CORS_ORIGINS"),
		DefaultToken:    envStr("SLICE_DEFAULT_TOKEN", "USDC"),

		ClassifyTimeout: envDuration("SLICE_CLASSIFY_TIMEOUT", 15*time.Second),
		GenerateTimeout: envDuration("SLICE_GENERATE_TIMEOUT", 30*time.Second),
		EnrichTimeout:   envDuration("SLICE_ENRICH_TIMEOUT", 20*time.Second),

		BettingDeadlineOffset: envDuration("SLICE_BETTING_DEADLINE_OFFSET", 2*time.Hour),
		ResolutionWindow:      envDuration("SLICE_RESOLUTION_WINDOW", 5*time.Hour),
		DefaultEventTime:      envStr("SLICE_DEFAULT_EVENT_TIME", "19:30"),
		WagerTTL:              envDuration("SLICE_WAGER_TTL", 7*24*time.Hour),
		ConversationTTL:       envDuration("SLICE_CONVERSATION_TTL", 24*time.Hour),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
	}
	return fallback
}

// envList splits a comma-separated variable, dropping blank entries.
func envList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
