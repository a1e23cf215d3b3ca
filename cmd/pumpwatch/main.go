package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/pumpwatch/internal/bot"
	"github.com/web3guy0/pumpwatch/internal/brain"
	"github.com/web3guy0/pumpwatch/internal/config"
	"github.com/web3guy0/pumpwatch/internal/engine"
	"github.com/web3guy0/pumpwatch/internal/listing"
	"github.com/web3guy0/pumpwatch/internal/market"
	"github.com/web3guy0/pumpwatch/internal/mexc"
	"github.com/web3guy0/pumpwatch/internal/ml"
	"github.com/web3guy0/pumpwatch/internal/tracker"
)

func main() {
	// ═══════════════════════════════════════════════════════════════════════════════
	// BOOTSTRAP
	// ═══════════════════════════════════════════════════════════════════════════════

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().Msg("═══════════════════════════════════════════════════════════════")
	log.Info().Msg("              PUMPWATCH - PUMP REVERSAL SHORT SIGNALS")
	log.Info().Msg("═══════════════════════════════════════════════════════════════")

	// ═══════════════════════════════════════════════════════════════════════════════
	// INITIALIZE COMPONENTS
	// ═══════════════════════════════════════════════════════════════════════════════

	// 1. Signal memory (outcome log + per-symbol intelligence)
	memory, err := brain.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open signal memory")
	}
	log.Info().Msg("✅ Signal memory initialized")

	// 2. Exchange client and snapshot store
	client := mexc.NewClient(cfg.MexcRestURL, cfg.HTTPTimeout)
	store := market.NewStore(cfg.RetentionWindow)
	log.Info().Msg("✅ Exchange client initialized")

	// 3. Optional low-latency ticker stream
	var stream *mexc.Stream
	if cfg.StreamEnabled {
		stream = mexc.NewStream(cfg.MexcWSURL)
		if err := stream.Start(); err != nil {
			log.Warn().Err(err).Msg("Ticker stream failed, continuing on REST only")
			stream = nil
		}
	}

	// 4. Outcome classifier
	predictor := ml.New(cfg.ModelPath)
	log.Info().Msg("✅ Classifier initialized")

	// 5. Outcome tracker; reads prices stream-first
	price := func(symbol string) (float64, bool) {
		if stream != nil {
			if t, ok := stream.Latest(symbol); ok {
				return t.LastPrice, true
			}
		}
		if snap, ok := store.Latest(symbol); ok {
			return snap.Price, true
		}
		return 0, false
	}
	trkCfg := tracker.DefaultConfig()
	trkCfg.Trailing = cfg.TrailingTPEnabled
	trkCfg.ActivationPct = cfg.ActivationProfitPct
	trkCfg.TrailDistancePct = cfg.TrailDistancePct
	trkCfg.MaxTracking = time.Duration(cfg.MaxTrackingMinutes) * time.Minute
	trk := tracker.New(trkCfg, price, memory)
	log.Info().Msg("✅ Outcome tracker initialized")

	// 6. Detection engine
	eng := engine.New(engine.FromConfig(cfg), client, store, memory, predictor, trk)
	if stream != nil {
		eng.SetStreamPrice(func(symbol string) (float64, bool) {
			t, ok := stream.Latest(symbol)
			return t.LastPrice, ok
		})
	}
	log.Info().Msg("✅ Detection engine initialized")

	// 7. Listing detector
	var listings *listing.Detector
	if cfg.ListingEnabled {
		listings = listing.New(client, cfg.ListingInterval)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := listings.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("Listing detector failed to start")
			listings = nil
		}
		cancel()
	}

	// 8. Telegram surface
	tg, err := bot.New(cfg, memory, eng, listings)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}
	log.Info().Msg("✅ Telegram bot initialized")

	// ═══════════════════════════════════════════════════════════════════════════════
	// START
	// ═══════════════════════════════════════════════════════════════════════════════

	eng.Start()
	tg.Start()

	log.Info().Msg("🚀 All systems running...")

	// ═══════════════════════════════════════════════════════════════════════════════
	// GRACEFUL SHUTDOWN
	// ═══════════════════════════════════════════════════════════════════════════════

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("🛑 Shutting down...")
	tg.Stop()
	eng.Stop()
	trk.Stop()
	if listings != nil {
		listings.Stop()
	}
	if stream != nil {
		stream.Stop()
	}
	memory.Close()

	log.Info().Msg("👋 Goodbye!")
}
