// FuseCast - Multi-model forecasting for prediction markets.
// Resolves Polymarket events, fans them out to a model pool, and fuses
// the answers into blended probabilities and trade signals.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/leeaandrob/fusecast/internal/api"
	"github.com/leeaandrob/fusecast/internal/config"
	"github.com/leeaandrob/fusecast/internal/enrichment"
	"github.com/leeaandrob/fusecast/internal/fusion"
	"github.com/leeaandrob/fusecast/internal/gateway"
	"github.com/leeaandrob/fusecast/internal/llm"
	"github.com/leeaandrob/fusecast/internal/orchestrator"
	"github.com/leeaandrob/fusecast/internal/predictor"
	"github.com/leeaandrob/fusecast/internal/storage"
	"github.com/leeaandrob/fusecast/internal/trade"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	log.Info().Msg("FuseCast - Starting forecasting service")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	p, store := buildPredictor(ctx, cfg)
	if store != nil {
		defer store.Close(ctx)
	}

	// History endpoint only works with a configured store.
	var history api.History
	if store != nil {
		history = store
	}

	server := api.NewServer(p, history, cfg.HTTPAddr, cfg.Timeouts.Total()+10*time.Second)

	// Graceful shutdown on SIGINT/SIGTERM
	done := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info().Msg("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
		close(done)
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
	<-done
	log.Info().Msg("FuseCast stopped")
}

// buildPredictor wires the pipeline from configuration. The returned store
// is nil when MongoDB is not configured.
func buildPredictor(ctx context.Context, cfg *config.Config) (*predictor.Predictor, *storage.Store) {
	// Model pool behind the unified gateway
	client := llm.NewClient(llm.Config{
		APIKey:  cfg.GatewayAPIKey,
		BaseURL: cfg.GatewayURL,
	})
	registry := orchestrator.NewRegistry(cfg.Models, cfg.Fusion.WeightSource)
	pool := orchestrator.New(registry, client, cfg.Timeouts.ModelCall(), cfg.MaxConcurrentModels)
	log.Info().Int("models", len(registry.ModelIDs())).Msg("Model pool initialized")

	engine := fusion.NewEngine(registry, cfg.Fusion.MarketBlendAlpha, cfg.Fusion.ConfidenceFactors, nil)
	evaluator := trade.NewEvaluator(cfg.Trade)
	gw := gateway.New(cfg.Timeouts.Market(), cfg.LowProbabilityThreshold)

	// Optional context providers
	var assistant *orchestrator.AssistantChain
	if cfg.Enrichment.Assistant {
		assistant = orchestrator.NewAssistantChain(cfg.AssistantURL, cfg.AssistantAPIKey, cfg.AssistantFallbackChain)
		log.Info().Int("providers", len(cfg.AssistantFallbackChain)).Msg("Assistant fallback chain initialized")
	}

	var enrichers []predictor.ContextProvider
	if cfg.Enrichment.News {
		tavily := enrichment.NewTavilyClient(cfg.TavilyAPIKey)
		enrichers = append(enrichers, enrichment.NewNewsEnricher(tavily, assistant, cfg.EnrichmentCache))
		log.Info().Msg("News enrichment enabled")
	}
	if cfg.Enrichment.WorldSentiment {
		enrichers = append(enrichers, enrichment.NewWorldSentimentEnricher(cfg.EnrichmentCache))
		log.Info().Msg("World sentiment enrichment enabled")
	}

	// Prediction log sink
	var store *storage.Store
	var sink predictor.LogSink
	if cfg.MongoURI != "" {
		s, err := storage.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		store = s
		sink = s
		log.Info().Str("db", cfg.MongoDB).Msg("Prediction log sink initialized")
	}

	p := predictor.New(predictor.Options{
		Resolver:       gw,
		Dispatcher:     pool,
		Engine:         engine,
		Evaluator:      evaluator,
		Enrichers:      enrichers,
		Sink:           sink,
		Mock:           gateway.MockEvent,
		TotalTimeout:   cfg.Timeouts.Total(),
		OutcomeWorkers: cfg.MaxConcurrentOutcomes,
		AllowMock:      cfg.AllowMockEvents,
	})
	return p, store
}
