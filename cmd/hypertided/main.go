package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"

	"hypertide/internal/broker"
	catalogpg "hypertide/internal/catalog/postgres"
	"hypertide/internal/config"
	"hypertide/internal/db"
	"hypertide/internal/executor"
	"hypertide/internal/lock"
	"hypertide/internal/policy"
	"hypertide/internal/scheduler"
	storepg "hypertide/internal/store/postgres"
)

func main() {
	configPath := flag.String("config", "hypertide.yaml", "path to the configuration file")
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}
	log = configureLogger(log, cfg.Logging)

	conn, err := db.Open(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to database")
	}

	locks := lock.NewPostgresDistributedLockManager(conn)
	if err := db.Init(conn, locks); err != nil {
		log.Fatal().Err(err).Msg("initializing database")
	}

	jobs := storepg.NewPostgresJobStore(conn)
	stats := storepg.NewPostgresJobStatStore(conn)
	chunkStats := storepg.NewPostgresChunkStatsStore(conn)
	cat := catalogpg.NewPostgresCatalog(conn)

	restarter := policy.NewRestarter(stats, time.Now, log)
	execs := policy.NewExecutors(cat, chunkStats, restarter, time.Now, log)

	registry := executor.NewRegistry()
	if err := policy.RegisterBuiltin(registry, execs); err != nil {
		log.Fatal().Err(err).Msg("registering built-in policies")
	}

	exec := executor.New(registry, func() executor.Session {
		return executor.NewDBSession(conn)
	}, log)

	var mbroker broker.MessageBroker
	if cfg.Broker.URL != "" {
		mbroker, err = broker.NewRabbitMQ(cfg.Broker.URL, "hypertide", cfg.Broker.ResultQueue, "job-result")
		if err != nil {
			log.Fatal().Err(err).Msg("connecting to broker")
		}
	}

	pollInterval, err := cfg.PollInterval()
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}

	sched := scheduler.New(jobs, stats, exec, locks, mbroker, scheduler.Config{
		PollInterval:      pollInterval,
		Workers:           cfg.Scheduler.Workers,
		BatchSize:         cfg.Scheduler.BatchSize,
		DispatchPerSecond: cfg.Scheduler.DispatchPerSec,
		ResultQueue:       cfg.Broker.ResultQueue,
	}, log)

	go func() {
		if err := sched.Start(context.Background()); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("scheduler stopped")
		}
	}()

	sched.GracefulExit()
}

func configureLogger(log zerolog.Logger, cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			log.Warn().Str("level", cfg.Level).Msg("unknown log level, using info")
		} else {
			level = parsed
		}
	}
	log = log.Level(level)
	if cfg.Console {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return log
}
