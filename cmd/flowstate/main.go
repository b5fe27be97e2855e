// Package main provides the flowstate worker entry point.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm/logger"

	"github.com/thebtf/flowstate/internal/config"
	"github.com/thebtf/flowstate/internal/db/gorm"
	"github.com/thebtf/flowstate/internal/watcher"
	"github.com/thebtf/flowstate/internal/worker"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	port := flag.Int("port", 0, "HTTP port (default: from settings or 8077)")
	dataDir := flag.String("data-dir", "", "Data directory (default: ~/.flowstate)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if *dataDir != "" {
		os.Setenv("FLOWSTATE_DATA_DIR", *dataDir)
	}

	// Ensure data directory and settings exist
	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directory")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	if *port != 0 {
		cfg.Port = *port
	}

	setLogLevel(cfg.LogLevel, *debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("Shutting down worker")
		cancel()
	}()

	store, err := gorm.NewStore(gorm.Config{
		Path:     config.DBPath(),
		MaxConns: cfg.MaxConns,
		LogLevel: logger.Silent,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer store.Close()

	svc, err := worker.New(Version, cfg, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize worker")
	}

	startConfigWatcher(cancel)

	log.Info().Str("version", Version).Int("port", cfg.Port).
		Str("db", config.DBPath()).Msg("Starting flowstate worker")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Start(gctx)
	})
	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Worker error")
	}
}

func setLogLevel(level string, debug bool) {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

// startConfigWatcher shuts the worker down when settings.json changes so a
// supervisor can restart it with the new configuration.
func startConfigWatcher(cancel context.CancelFunc) {
	configPath := config.SettingsPath()
	configWatcher, err := watcher.New(configPath, func() {
		log.Warn().Str("path", configPath).Msg("Config file changed, restarting...")
		time.Sleep(100 * time.Millisecond) // Give logs time to flush
		cancel()
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create config watcher")
		return
	}
	if err := configWatcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start config watcher")
		return
	}
	log.Info().Str("path", configPath).Msg("Config file watcher started")
}
