package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantsignal/fusion/config"
	"github.com/quantsignal/fusion/internal/api/macro"
	"github.com/quantsignal/fusion/internal/api/marketdata"
	"github.com/quantsignal/fusion/internal/database"
	"github.com/quantsignal/fusion/internal/engine"
	"github.com/quantsignal/fusion/internal/features"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	// Configuration errors are fatal at startup; a half-valid config must
	// never reach the engine.
	store, err := config.NewStore(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	cfg := store.Snapshot()

	setupLogging(cfg.LogLevel)
	log.Info().Str("config", *configPath).Msg("starting symbol analyzer")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel)

	stop := make(chan struct{})
	defer close(stop)
	if err := store.Watch(stop); err != nil {
		log.Warn().Err(err).Msg("config hot-reload unavailable")
	}

	// Feature providers share one market-data client so the rate limit holds
	// across timeframes.
	mdClient := marketdata.NewClient(cfg.MarketData)
	collector := features.NewCollector(
		marketdata.NewTechnicalsProvider(mdClient, cfg.MarketData),
		marketdata.NewStructureProvider(mdClient, cfg.MarketData),
		marketdata.NewOrderFlowProvider(mdClient, cfg.MarketData),
		macro.NewProvider(cfg.MacroFeed),
	)

	var audit *database.DB
	if cfg.Database.DSN != "" {
		audit, err = database.New(cfg.Database.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open audit store")
		}
		defer audit.Close()
	}

	eng := engine.New(store)

	for _, sym := range cfg.Symbols {
		select {
		case <-ctx.Done():
			log.Info().Msg("interrupted, stopping")
			return
		default:
		}

		decision := eng.Analyze(ctx, sym.Symbol, sym.Class, collector)

		out, err := json.MarshalIndent(decision, "", "  ")
		if err != nil {
			log.Error().Err(err).Str("symbol", sym.Symbol).Msg("failed to encode decision")
			continue
		}
		fmt.Println(string(out))

		if audit != nil {
			if err := audit.RecordDecision(ctx, &decision); err != nil {
				log.Warn().Err(err).Str("symbol", sym.Symbol).Msg("failed to record decision")
			}
		}
	}
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)
}

func setupSignalHandling(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
	}()
}
