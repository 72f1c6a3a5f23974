// Package main provides the HTTP worker entry point for soilsense.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/thebtf/soilsense/internal/config"
	"github.com/thebtf/soilsense/internal/dashboard"
	"github.com/thebtf/soilsense/internal/db"
	"github.com/thebtf/soilsense/internal/events"
	"github.com/thebtf/soilsense/internal/history"
	"github.com/thebtf/soilsense/internal/metrics"
	"github.com/thebtf/soilsense/internal/reminder"
	"github.com/thebtf/soilsense/internal/session"
	"github.com/thebtf/soilsense/internal/watcher"
	"github.com/thebtf/soilsense/internal/worker"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})

	if err := config.EnsureAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure data directory")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load config, using defaults")
		cfg = config.Default()
	}
	cfg.WorkerPort = config.GetWorkerPort()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("Failed to open store")
	}
	defer store.Close()

	dash, err := dashboard.Load(cfg.DashboardPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.DashboardPath).Msg("Failed to load dashboard content, using defaults")
		dash = dashboard.New(dashboard.Default())
	}

	recorder, err := metrics.New()
	if err != nil {
		log.Warn().Err(err).Msg("Metrics disabled")
	}

	// Reminders re-armed by Load may fire before the service exists.
	var svc atomic.Pointer[worker.Service]
	notifier, err := newNotifier(cfg, func(message string, firedAt time.Time) {
		if s := svc.Load(); s != nil {
			s.OnReminderFired(message, firedAt)
		}
	})
	if err != nil {
		log.Fatal().Err(err).Str("notifier", cfg.Notifier).Msg("Failed to create notifier")
	}

	ctrl, err := session.New(session.Options{
		History:      history.NewLog(store),
		Scheduler:    reminder.NewScheduler(notifier, reminder.WithStore(store)),
		Metrics:      recorder,
		TickInterval: cfg.TickInterval(),
		ProgressStep: cfg.ProgressStep,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create session controller")
	}
	defer ctrl.Close()

	if err := ctrl.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("Starting with partially loaded state")
	}

	service := worker.NewService(Version, cfg, ctrl, dash)
	svc.Store(service)
	ctrl.Subscribe(service.OnSessionEvent)

	publisher, err := events.NewPublisher(events.Config{
		Enabled: len(cfg.KafkaBrokers) > 0,
		Topic:   cfg.KafkaTopic,
		Brokers: cfg.KafkaBrokers,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create event publisher")
	}
	if publisher.Enabled() {
		ctrl.Subscribe(publisher.Listen)
	}

	configWatcher := startConfigWatcher(stop)
	if configWatcher != nil {
		defer configWatcher.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return service.Run(gctx) })
	g.Go(func() error { return publisher.Run(gctx) })

	log.Info().
		Str("version", Version).
		Int("port", cfg.WorkerPort).
		Str("store", cfg.StoreBackend).
		Str("notifier", cfg.Notifier).
		Msg("Starting soilsense worker")

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker exited with error")
		if configWatcher != nil {
			_ = configWatcher.Stop()
		}
		ctrl.Close()
		_ = store.Close()
		os.Exit(1)
	}
}

func newNotifier(cfg *config.Config, onFire reminder.FireFunc) (reminder.Notifier, error) {
	if cfg.Notifier == config.NotifierMQTT {
		return reminder.NewMQTTNotifier(reminder.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Topic:    cfg.MQTTTopic,
			QoS:      1,
		})
	}
	return reminder.NewLocalNotifier(onFire), nil
}

// startConfigWatcher stops the worker when settings.json changes so a
// supervisor can restart it with fresh configuration. It returns nil when the
// watcher could not be started.
func startConfigWatcher(stop context.CancelFunc) *watcher.Watcher {
	configPath := config.SettingsPath()
	configWatcher, err := watcher.New(configPath, func(change watcher.Change) {
		log.Warn().Str("path", configPath).Stringer("change", change).Msg("Config file changed, exiting for restart...")
		stop()
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create config watcher")
		return nil
	}
	if err := configWatcher.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start config watcher")
		return nil
	}
	log.Info().Str("path", configPath).Msg("Config file watcher started")
	return configWatcher
}
