// Package config provides configuration management for FuseCast.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// ModelConfig describes one entry of the model pool.
type ModelConfig struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Endpoint    string  `json:"endpoint,omitempty"`
	BaseWeight  float64 `json:"base_weight"`
	Enabled     bool    `json:"enabled"`
	// Fallback is an optional model ID tried when this model fails; it
	// inherits 90% of the primary's base weight.
	Fallback string `json:"fallback,omitempty"`
	// TimeoutSec overrides Timeouts.ModelCallSec for slow models.
	TimeoutSec int `json:"timeout_sec,omitempty"`
}

// FusionParams tunes the fusion engine.
type FusionParams struct {
	MarketBlendAlpha  float64
	ConfidenceFactors map[string]float64
	WeightSource      string
}

// TradeParams tunes the trade signal evaluator.
type TradeParams struct {
	EVBuyThreshold  float64
	EVSellThreshold float64
	RiskThreshold   float64
	RiskCeiling     float64
}

// Timeouts holds the layered deadline budget, in seconds.
type Timeouts struct {
	ModelCallSec int
	TotalSec     int
	MarketSec    int
}

// ModelCall returns the per-model call timeout.
func (t Timeouts) ModelCall() time.Duration { return time.Duration(t.ModelCallSec) * time.Second }

// Batch returns the per-outcome batch timeout: twice the model call budget.
func (t Timeouts) Batch() time.Duration { return 2 * t.ModelCall() }

// Total returns the overall pipeline deadline.
func (t Timeouts) Total() time.Duration { return time.Duration(t.TotalSec) * time.Second }

// Market returns the market resolution budget.
func (t Timeouts) Market() time.Duration { return time.Duration(t.MarketSec) * time.Second }

// EnrichmentToggles enables the optional context providers.
type EnrichmentToggles struct {
	News           bool
	WorldSentiment bool
	Assistant      bool
}

// Config holds all application configuration, read once at startup.
type Config struct {
	// Model pool
	Models        []ModelConfig
	GatewayAPIKey string
	GatewayURL    string

	// Core tuning
	Fusion   FusionParams
	Trade    TradeParams
	Timeouts Timeouts

	LowProbabilityThreshold float64
	MaxConcurrentModels     int
	MaxConcurrentOutcomes   int
	AllowMockEvents         bool

	// Assistant fallback chain: ordered provider model identifiers.
	AssistantFallbackChain []string
	AssistantAPIKey        string
	AssistantURL           string

	// Enrichment
	Enrichment      EnrichmentToggles
	TavilyAPIKey    string
	EnrichmentCache string // directory for file-backed caches

	// MongoDB log sink
	MongoURI string
	MongoDB  string

	// Server
	HTTPAddr string
	Debug    bool
}

// DefaultGatewayURL is the OpenAI-compatible unified model gateway.
const DefaultGatewayURL = "https://aicanapi.com/v1"

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{
		GatewayAPIKey: getEnv("MODEL_GATEWAY_API_KEY", ""),
		GatewayURL:    getEnv("MODEL_GATEWAY_URL", DefaultGatewayURL),

		Fusion: FusionParams{
			MarketBlendAlpha: getEnvFloat("MARKET_BLEND_ALPHA", 0.8),
			ConfidenceFactors: map[string]float64{
				"low":    0.5,
				"medium": 1.0,
				"high":   1.5,
			},
			WeightSource: getEnv("WEIGHT_SOURCE", "lmarena"),
		},
		Trade: TradeParams{
			EVBuyThreshold:  getEnvFloat("EV_BUY_THRESHOLD", 2.0),
			EVSellThreshold: getEnvFloat("EV_SELL_THRESHOLD", 2.0),
			RiskThreshold:   getEnvFloat("RISK_THRESHOLD", 0.6),
			RiskCeiling:     getEnvFloat("RISK_CEILING", 0.9),
		},
		Timeouts: Timeouts{
			ModelCallSec: getEnvInt("MODEL_CALL_TIMEOUT_SEC", 15),
			TotalSec:     getEnvInt("TOTAL_TIMEOUT_SEC", 120),
			MarketSec:    getEnvInt("MARKET_TIMEOUT_SEC", 25),
		},

		LowProbabilityThreshold: getEnvFloat("LOW_PROBABILITY_THRESHOLD", 1.0),
		MaxConcurrentModels:     getEnvInt("MAX_CONCURRENT_MODELS", 5),
		MaxConcurrentOutcomes:   getEnvInt("MAX_CONCURRENT_OUTCOMES", 3),
		AllowMockEvents:         getEnvBool("ALLOW_MOCK_EVENTS", true),

		AssistantFallbackChain: getEnvList("ASSISTANT_FALLBACK_CHAIN", []string{
			"meta-llama/llama-3-70b-instruct",
			"mistralai/mistral-7b-instruct",
			"yi-large/yi-1.5-chat",
		}),
		AssistantAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		AssistantURL:    getEnv("OPENROUTER_URL", "https://openrouter.ai/api/v1/chat/completions"),

		Enrichment: EnrichmentToggles{
			News:           getEnvBool("ENABLE_NEWS", false),
			WorldSentiment: getEnvBool("ENABLE_WORLD_SENTIMENT", false),
			Assistant:      getEnvBool("ENABLE_ASSISTANT", false),
		},
		TavilyAPIKey:    getEnv("TAVILY_API_KEY", ""),
		EnrichmentCache: getEnv("ENRICHMENT_CACHE_DIR", "cache"),

		MongoURI: getEnv("MONGO_URI", ""),
		MongoDB:  getEnv("MONGO_DB", "fusecast"),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Debug:    getEnvBool("DEBUG", false),
	}

	cfg.Models = defaultModels()
	if raw := os.Getenv("MODELS_JSON"); raw != "" {
		var models []ModelConfig
		if err := json.Unmarshal([]byte(raw), &models); err != nil {
			return nil, fmt.Errorf("invalid MODELS_JSON: %w", err)
		}
		cfg.Models = models
	}

	// A toggle without its dependency stays off regardless of env.
	if cfg.TavilyAPIKey == "" {
		cfg.Enrichment.News = false
	}
	if cfg.AssistantAPIKey == "" {
		cfg.Enrichment.Assistant = false
	}

	return cfg, nil
}

// defaultModels mirrors the pool the service ships with. Weights follow the
// LMArena leaderboard snapshot; override with MODELS_JSON.
func defaultModels() []ModelConfig {
	return []ModelConfig{
		{ID: "gpt-4o", DisplayName: "GPT-4o", BaseWeight: 1.25, Enabled: true, TimeoutSec: 30},
		{ID: "claude-3-7-sonnet-latest", DisplayName: "Claude 3.7 Sonnet", BaseWeight: 1.30, Enabled: true, TimeoutSec: 50, Fallback: "claude-3-5-haiku-latest"},
		{ID: "gemini-2.5-pro", DisplayName: "Gemini 2.5 Pro", BaseWeight: 1.35, Enabled: true, TimeoutSec: 45, Fallback: "gemini-2.5-flash"},
		{ID: "grok-4", DisplayName: "Grok 4", BaseWeight: 1.10, Enabled: true, TimeoutSec: 60},
		{ID: "deepseek-chat", DisplayName: "DeepSeek V3", BaseWeight: 1.05, Enabled: true, TimeoutSec: 35},
	}
}

// Validate checks required configuration and invariants. Errors are fatal.
func (c *Config) Validate() error {
	if c.GatewayAPIKey == "" {
		return fmt.Errorf("MODEL_GATEWAY_API_KEY is required")
	}
	enabled := 0
	seen := map[string]bool{}
	for _, m := range c.Models {
		if m.ID == "" {
			return fmt.Errorf("model with empty id")
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate model id %q", m.ID)
		}
		seen[m.ID] = true
		if m.BaseWeight <= 0 {
			return fmt.Errorf("model %s: base weight must be positive, got %v", m.ID, m.BaseWeight)
		}
		if m.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("no enabled models configured")
	}
	if c.Fusion.MarketBlendAlpha < 0 || c.Fusion.MarketBlendAlpha > 1 {
		return fmt.Errorf("MARKET_BLEND_ALPHA must be in [0,1], got %v", c.Fusion.MarketBlendAlpha)
	}
	for label, f := range c.Fusion.ConfidenceFactors {
		if f <= 0 {
			return fmt.Errorf("confidence factor %q must be positive, got %v", label, f)
		}
	}
	if c.Timeouts.ModelCallSec <= 0 || c.Timeouts.TotalSec <= 0 || c.Timeouts.MarketSec <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.MaxConcurrentModels <= 0 || c.MaxConcurrentOutcomes <= 0 {
		return fmt.Errorf("concurrency limits must be positive")
	}
	if c.MongoURI == "" {
		log.Warn().Msg("MONGO_URI not set, prediction logging disabled")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
