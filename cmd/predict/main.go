// Package main provides a one-shot CLI: forecast a single event reference
// and print the text report to stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/leeaandrob/fusecast/internal/config"
	"github.com/leeaandrob/fusecast/internal/enrichment"
	"github.com/leeaandrob/fusecast/internal/fusion"
	"github.com/leeaandrob/fusecast/internal/gateway"
	"github.com/leeaandrob/fusecast/internal/llm"
	"github.com/leeaandrob/fusecast/internal/orchestrator"
	"github.com/leeaandrob/fusecast/internal/predictor"
	"github.com/leeaandrob/fusecast/internal/report"
	"github.com/leeaandrob/fusecast/internal/storage"
	"github.com/leeaandrob/fusecast/internal/trade"
)

func main() {
	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	verbose := flag.Bool("v", false, "verbose logging")
	requester := flag.String("requester", "cli", "requester id recorded with the prediction")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <event reference>\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "The reference may be a Polymarket URL, an event slug, or a free-text question.")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	reference := strings.Join(flag.Args(), " ")

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ref, err := gateway.ParseReference(reference)
	if err != nil {
		log.Fatal().Err(err).Str("reference", reference).Msg("Unparseable event reference")
	}

	ctx := context.Background()
	p, store := buildPredictor(ctx, cfg)
	if store != nil {
		defer store.Close(ctx)
	}

	pred, err := p.Predict(ctx, ref, *requester)
	if err != nil {
		var lpe *predictor.LowProbabilityError
		if errors.As(err, &lpe) {
			fmt.Printf("⚠️ Skipped: %s\n", lpe.Error())
			return
		}
		log.Fatal().Err(err).Msg("Prediction failed")
	}

	fmt.Print(report.Format(pred))
}

// buildPredictor wires the pipeline for a single run.
func buildPredictor(ctx context.Context, cfg *config.Config) (*predictor.Predictor, *storage.Store) {
	client := llm.NewClient(llm.Config{
		APIKey:  cfg.GatewayAPIKey,
		BaseURL: cfg.GatewayURL,
	})
	registry := orchestrator.NewRegistry(cfg.Models, cfg.Fusion.WeightSource)
	pool := orchestrator.New(registry, client, cfg.Timeouts.ModelCall(), cfg.MaxConcurrentModels)

	engine := fusion.NewEngine(registry, cfg.Fusion.MarketBlendAlpha, cfg.Fusion.ConfidenceFactors, nil)
	evaluator := trade.NewEvaluator(cfg.Trade)
	gw := gateway.New(cfg.Timeouts.Market(), cfg.LowProbabilityThreshold)

	var assistant *orchestrator.AssistantChain
	if cfg.Enrichment.Assistant {
		assistant = orchestrator.NewAssistantChain(cfg.AssistantURL, cfg.AssistantAPIKey, cfg.AssistantFallbackChain)
	}

	var enrichers []predictor.ContextProvider
	if cfg.Enrichment.News {
		tavily := enrichment.NewTavilyClient(cfg.TavilyAPIKey)
		enrichers = append(enrichers, enrichment.NewNewsEnricher(tavily, assistant, cfg.EnrichmentCache))
	}
	if cfg.Enrichment.WorldSentiment {
		enrichers = append(enrichers, enrichment.NewWorldSentimentEnricher(cfg.EnrichmentCache))
	}

	var store *storage.Store
	var sink predictor.LogSink
	if cfg.MongoURI != "" {
		s, err := storage.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			log.Warn().Err(err).Msg("MongoDB unavailable, predictions will not be recorded")
		} else {
			store = s
			sink = s
		}
	}

	return predictor.New(predictor.Options{
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
	}), store
}
