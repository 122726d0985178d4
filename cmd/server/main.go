package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"engagement-engine/internal/config"
	"engagement-engine/internal/detector"
	"engagement-engine/internal/handler"
	"engagement-engine/internal/ingest"
	"engagement-engine/internal/learning"
	"engagement-engine/internal/metrics"
	"engagement-engine/internal/notifier"
	"engagement-engine/internal/publisher"
	"engagement-engine/internal/repository"
	"engagement-engine/internal/server"
	"engagement-engine/internal/strategy"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yml", "path to the YAML config")
	flag.Parse()

	envFiles := config.LoadEnv()

	// Load configuration
	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg.Logging.Production)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	logger.Info("Starting engagement engine...", zap.Strings("env_files", envFiles))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	collector := metrics.New()
	store := strategy.NewStore(cfg.Engine.HistoryLimit)
	opts := []learning.Option{learning.WithMetrics(collector)}

	// Persistence
	repos, err := repository.Open(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open repository", zap.Error(err))
	}
	var reportRepo repository.ReportRepository
	if repos != nil {
		defer repos.Close()
		reportRepo = repos.Reports
		opts = append(opts, learning.WithSink(repos))

		profiles, err := repos.Strategies.ListStrategies(ctx)
		if err != nil {
			logger.Warn("Failed to load persisted strategies, starting with defaults", zap.Error(err))
		}
		for _, p := range profiles {
			store.Seed(p)
		}
		logger.Info("Strategy profiles loaded", zap.Int("count", len(profiles)))
	}

	// External AI detector (optional)
	if cfg.Detector.Enabled && cfg.Detector.URL != "" {
		client := detector.NewClient(cfg.Detector.URL)
		checkDetector(ctx, client, logger)
		opts = append(opts, learning.WithDetector(detector.NewGuarded(client, cfg.Engine.DetectorTimeout, logger)))
		logger.Info("External AI detector enabled", zap.String("url", cfg.Detector.URL))
	}

	// Strategy publisher (optional)
	pub, err := publisher.Connect(ctx, publisher.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Channel:  cfg.Redis.Channel,
	}, logger)
	if err != nil {
		logger.Warn("Failed to connect to Redis, continuing without strategy publishing", zap.Error(err))
		pub = nil
	}
	if pub != nil {
		defer pub.Close()
		opts = append(opts, learning.WithPublisher(pub))
	}

	orchestrator := learning.New(cfg.Engine, store, logger, opts...)

	// Telegram notifier (optional)
	bot, err := notifier.NewBot(cfg, orchestrator, logger)
	if err != nil {
		logger.Warn("Failed to initialize Telegram bot, continuing without it", zap.Error(err))
		bot = nil
	}
	if bot != nil {
		orchestrator.Use(learning.WithNotifier(bot))
	}

	g, gctx := errgroup.WithContext(ctx)

	if bot != nil {
		g.Go(func() error {
			return bot.Start(gctx)
		})
	}

	if cfg.Ingest.Enabled {
		consumer, err := ingest.NewConsumer(ingest.Config{
			Brokers: cfg.Ingest.Brokers,
			Topic:   cfg.Ingest.Topic,
			GroupID: cfg.Ingest.GroupID,
		}, orchestrator, logger)
		if err != nil {
			logger.Fatal("Failed to create Kafka consumer", zap.Error(err))
		}
		defer consumer.Close()
		g.Go(func() error {
			if err := consumer.Start(gctx); err != nil && gctx.Err() == nil {
				return err
			}
			return nil
		})
	}

	h := handler.NewLearningHandler(orchestrator, reportRepo, logger)
	srv := server.NewServer(cfg.Server.Port, cfg.Server.JWTSecret, h, collector, logger)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Engagement engine stopped with error", zap.Error(err))
		return
	}
	logger.Info("Engagement engine stopped.")
}

// checkDetector logs the model's health at startup. An unhealthy model is not fatal:
// sessions fall back to the heuristic score until it recovers.
func checkDetector(ctx context.Context, client *detector.Client, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := client.HealthCheck(ctx)
	if err != nil {
		logger.Warn("AI detector health check failed, heuristic scores will be used until it responds", zap.Error(err))
		return
	}
	logger.Info("AI detector health",
		zap.String("status", health.Status),
		zap.Bool("model_loaded", health.ModelLoaded),
		zap.String("device", health.Device))
}

func newLogger(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
