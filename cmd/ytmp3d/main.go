package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/deemusic/ytmp3-go/internal/api"
	"github.com/deemusic/ytmp3-go/internal/artifact"
	"github.com/deemusic/ytmp3-go/internal/config"
	"github.com/deemusic/ytmp3-go/internal/extractor"
	"github.com/deemusic/ytmp3-go/internal/monitoring"
	"github.com/deemusic/ytmp3-go/internal/pipeline"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	var (
		configFlag = flag.String("config", filepath.Join(config.GetDataDir(), "config.json"), "Path to config file (empty disables the file)")
		portFlag   = flag.Int("port", 0, "Listen port (overrides config)")
	)
	flag.Parse()

	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *portFlag > 0 {
		cfg.Server.Port = *portFlag
	}

	logger, err := monitoring.NewLogger(cfg.LogConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("ytmp3d stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profiles, err := cfg.Identities()
	if err != nil {
		return err
	}

	pool, err := artifact.NewPool(cfg.Download.Folder, logger)
	if err != nil {
		return err
	}
	if removed, err := pool.Purge(); err != nil {
		logger.Warn("Failed to purge download folder", zap.Error(err))
	} else if removed > 0 {
		logger.Info("Purged leftovers from previous run", zap.Int("removed", removed))
	}

	ytdlp := extractor.NewYTDLP(extractor.Config{
		Binary:     cfg.Extractor.Binary,
		SpawnRate:  cfg.Extractor.SpawnRate,
		SpawnBurst: cfg.Extractor.SpawnBurst,
	}, logger)

	probeCtx, cancel := context.WithTimeout(ctx, cfg.Extractor.ProbeTimeout())
	probe, err := ytdlp.Probe(probeCtx)
	cancel()
	if err != nil {
		// Requests will fail until yt-dlp is installed; the server still starts.
		logger.Warn("yt-dlp is not usable", zap.String("binary", ytdlp.Binary()), zap.Error(err))
	} else {
		logger.Info("Found yt-dlp", zap.String("path", probe.Path), zap.String("version", probe.Version))
	}

	health := monitoring.NewHealthChecker(version, func(ctx context.Context) (string, error) {
		res, err := ytdlp.Probe(ctx)
		return res.Version, err
	}, pool.Root())
	health.SetProbeTimeout(cfg.Extractor.ProbeTimeout())

	service := pipeline.New(pipeline.Options{
		Extractor: ytdlp,
		Profiles:  profiles,
		Pool:      pool,
		Tagger:    artifact.NewTagger(cfg.Download.TagTitle),
		Logger:    logger,
	})

	gateway := api.NewRestGateway(&api.RestConfig{
		HostAddr:        cfg.Server.Address(),
		ShutdownTimeout: cfg.Server.ShutdownTimeout(),
	}, service, health, logger)

	logger.Info("Starting ytmp3d",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Address()),
		zap.String("download_folder", pool.Root()),
		zap.Strings("profiles", profiles.Names()))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gateway.Run(ctx)
	})
	g.Go(func() error {
		return pool.Run(ctx, cfg.Download.SweepInterval(), cfg.Download.StaleAfter())
	})

	err = g.Wait()
	logger.Info("ytmp3d shut down")
	return err
}
