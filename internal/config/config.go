package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig captures all tunable parameters for the HTTP API process.
// Values are primarily loaded from environment variables with sane defaults
// so the binary can run locally without Redis, Kafka, Postgres or any API key.
type ServerConfig struct {
	HTTPAddr        string
	MetricsAddr     string
	PublicOrigin    string
	CORSOrigins     []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisGeoKey   string

	KafkaBrokers       []string
	KafkaTopic         string
	KafkaLocationTopic string

	PGDSN         string
	RunMigrations bool

	Match MatchConfig
	Chat  ChatConfig
	LLM   LLMConfig

	ResendAPIKey string
	EmailFrom    string

	FreightCents           int64
	PaymentProcessingDelay time.Duration
	StripeTestKey          string

	S3Bucket  string
	AWSRegion string

	PushWebhookURL string

	LogLevel string
}

// MatchConfig holds the defaults the candidate filter falls back to when a
// viewer has not set a value.
type MatchConfig struct {
	DefaultAge           int
	DefaultAgeMin        int
	DefaultAgeMax        int
	DefaultMaxDistanceKm float64
	CandidateLimit       int
	RequireMutual        bool
}

type ChatConfig struct {
	Responder         string // template | completion
	TemplateDelay     time.Duration
	CompletionTimeout time.Duration
}

type LLMConfig struct {
	Provider    string // gateway | genai
	GatewayURL  string
	APIKey      string
	Model       string
	GenAIAPIKey string
	GenAIModel  string
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:        ":8080",
		PublicOrigin:    "http://localhost:8080",
		CORSOrigins:     []string{"*"},
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RedisGeoKey:     "profiles_geo",

		KafkaTopic:         "guilda-events",
		KafkaLocationTopic: "profile-locations",

		Match: MatchConfig{
			DefaultAge:           25,
			DefaultAgeMin:        18,
			DefaultAgeMax:        75,
			DefaultMaxDistanceKm: 50,
			CandidateLimit:       20,
		},
		Chat: ChatConfig{
			Responder:         "template",
			TemplateDelay:     2 * time.Second,
			CompletionTimeout: 20 * time.Second,
		},
		LLM: LLMConfig{
			Provider:   "gateway",
			GatewayURL: "https://ai.gateway.lovable.dev/v1",
			Model:      "google/gemini-2.5-flash",
			GenAIModel: "gemini-2.5-flash",
		},

		EmailFrom: "Guilda <onboarding@resend.dev>",

		FreightCents:           1500,
		PaymentProcessingDelay: 2 * time.Second,

		LogLevel: "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setStringFromEnv(&cfg.MetricsAddr, "METRICS_ADDR")
	setStringFromEnv(&cfg.PublicOrigin, "PUBLIC_ORIGIN")
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitAndTrim(origins)
	}
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisGeoKey, "REDIS_GEO_KEY")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")
	setStringFromEnv(&cfg.KafkaLocationTopic, "KAFKA_LOCATION_TOPIC")

	cfg.PGDSN = os.Getenv("PG_DSN")
	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	setIntFromEnv(&cfg.Match.DefaultAge, "MATCH_DEFAULT_AGE", &errs)
	setIntFromEnv(&cfg.Match.DefaultAgeMin, "MATCH_DEFAULT_AGE_MIN", &errs)
	setIntFromEnv(&cfg.Match.DefaultAgeMax, "MATCH_DEFAULT_AGE_MAX", &errs)
	setFloatFromEnv(&cfg.Match.DefaultMaxDistanceKm, "MATCH_DEFAULT_MAX_DISTANCE_KM", &errs)
	setIntFromEnv(&cfg.Match.CandidateLimit, "MATCH_CANDIDATE_LIMIT", &errs)
	setBoolFromEnv(&cfg.Match.RequireMutual, "MATCH_REQUIRE_MUTUAL", &errs)

	setStringFromEnv(&cfg.Chat.Responder, "CHAT_RESPONDER")
	setDurationFromEnv(&cfg.Chat.TemplateDelay, "CHAT_TEMPLATE_DELAY", &errs)
	setDurationFromEnv(&cfg.Chat.CompletionTimeout, "COMPLETION_TIMEOUT", &errs)

	setStringFromEnv(&cfg.LLM.Provider, "COMPLETION_PROVIDER")
	setStringFromEnv(&cfg.LLM.GatewayURL, "LLM_GATEWAY_URL")
	cfg.LLM.APIKey = os.Getenv("LLM_API_KEY")
	setStringFromEnv(&cfg.LLM.Model, "LLM_MODEL")
	cfg.LLM.GenAIAPIKey = os.Getenv("GENAI_API_KEY")
	setStringFromEnv(&cfg.LLM.GenAIModel, "GENAI_MODEL")

	cfg.ResendAPIKey = os.Getenv("RESEND_API_KEY")
	setStringFromEnv(&cfg.EmailFrom, "EMAIL_FROM")

	setInt64FromEnv(&cfg.FreightCents, "PAYMENT_FREIGHT_CENTS", &errs)
	setDurationFromEnv(&cfg.PaymentProcessingDelay, "PAYMENT_PROCESSING_DELAY", &errs)
	cfg.StripeTestKey = strings.TrimSpace(os.Getenv("STRIPE_TEST_KEY"))

	cfg.S3Bucket = strings.TrimSpace(os.Getenv("S3_BUCKET_NAME"))
	cfg.AWSRegion = strings.TrimSpace(os.Getenv("AWS_REGION"))
	cfg.PushWebhookURL = strings.TrimSpace(os.Getenv("PUSH_WEBHOOK_URL"))

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	errs = append(errs, cfg.validate()...)

	return cfg, errors.Join(errs...)
}

// ConsumerConfig configures the location consumer process.
type ConsumerConfig struct {
	KafkaBrokers  []string
	LocationTopic string
	GroupID       string
	RedisAddr     string
	RedisPassword string
	RedisGeoKey   string
	MetricsAddr   string
	MaxAttempts   int
	RetryDelay    time.Duration
	LogLevel      string
}

func LoadConsumerConfig() (ConsumerConfig, error) {
	cfg := ConsumerConfig{
		KafkaBrokers:  []string{"localhost:9092"},
		LocationTopic: "profile-locations",
		GroupID:       "guilda-location-consumer",
		RedisAddr:     "localhost:6379",
		RedisGeoKey:   "profiles_geo",
		MetricsAddr:   ":2112",
		MaxAttempts:   3,
		RetryDelay:    200 * time.Millisecond,
		LogLevel:      "info",
	}
	var errs []error

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.LocationTopic, "KAFKA_LOCATION_TOPIC")
	setStringFromEnv(&cfg.GroupID, "KAFKA_GROUP")
	setStringFromEnv(&cfg.RedisAddr, "REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisGeoKey, "REDIS_GEO_KEY")
	setStringFromEnv(&cfg.MetricsAddr, "METRICS_ADDR")
	setIntFromEnv(&cfg.MaxAttempts, "CONSUMER_MAX_ATTEMPTS", &errs)
	setDurationFromEnv(&cfg.RetryDelay, "CONSUMER_RETRY_DELAY", &errs)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if len(cfg.KafkaBrokers) == 0 {
		errs = append(errs, fmt.Errorf("KAFKA_BROKERS must list at least one broker"))
	}
	if cfg.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("CONSUMER_MAX_ATTEMPTS must be > 0"))
	}
	return cfg, errors.Join(errs...)
}

func (c ServerConfig) validate() []error {
	var errs []error
	if c.Match.CandidateLimit <= 0 {
		errs = append(errs, fmt.Errorf("MATCH_CANDIDATE_LIMIT must be > 0"))
	}
	if c.Match.DefaultAgeMin > c.Match.DefaultAgeMax {
		errs = append(errs, fmt.Errorf("MATCH_DEFAULT_AGE_MIN must be <= MATCH_DEFAULT_AGE_MAX"))
	}
	if c.Match.DefaultMaxDistanceKm <= 0 {
		errs = append(errs, fmt.Errorf("MATCH_DEFAULT_MAX_DISTANCE_KM must be > 0"))
	}
	switch c.Chat.Responder {
	case "template", "completion":
	default:
		errs = append(errs, fmt.Errorf("CHAT_RESPONDER must be template or completion, got %q", c.Chat.Responder))
	}
	switch c.LLM.Provider {
	case "gateway", "genai":
	default:
		errs = append(errs, fmt.Errorf("COMPLETION_PROVIDER must be gateway or genai, got %q", c.LLM.Provider))
	}
	if c.FreightCents < 0 {
		errs = append(errs, fmt.Errorf("PAYMENT_FREIGHT_CENTS must be >= 0"))
	}
	if c.StripeTestKey != "" && !strings.HasPrefix(c.StripeTestKey, "sk_test_") {
		errs = append(errs, fmt.Errorf("STRIPE_TEST_KEY must be a test-mode key (sk_test_...)"))
	}
	return errs
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setFloatFromEnv(target *float64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = f
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setInt64FromEnv(target *int64, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setBoolFromEnv(target *bool, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = b
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
