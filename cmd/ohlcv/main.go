package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	ohlcv "github.com/gokulmuthuR/crypto-ml-pipeline"
	"github.com/gokulmuthuR/crypto-ml-pipeline/binance"
	"github.com/gokulmuthuR/crypto-ml-pipeline/daemon"
	"github.com/gokulmuthuR/crypto-ml-pipeline/inmem"
	"github.com/gokulmuthuR/crypto-ml-pipeline/logrus"
	"github.com/gokulmuthuR/crypto-ml-pipeline/parquet"
	"github.com/gokulmuthuR/crypto-ml-pipeline/postgres"
	"github.com/gokulmuthuR/crypto-ml-pipeline/pubsub"
)

func main() {
	ctx, cancelCtx := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer cancelCtx()

	config, err := readConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "could not read config: [%v]", err)
		os.Exit(1)
	}

	logger := logrus.ConfigureStandardLogger(
		config.Logging.Format,
		config.Logging.Level,
	)

	repository, err := createRepository(ctx, logger, config)
	if err != nil {
		logger.Fatalf("could not create candle repository: [%v]", err)
	}

	sink, err := createSink(ctx, logger, config)
	if err != nil {
		logger.Fatalf("could not create event sink: [%v]", err)
	}

	intervals := make([]ohlcv.Interval, 0, len(config.Ingestion.Intervals))
	for _, value := range config.Ingestion.Intervals {
		interval, err := ohlcv.ParseInterval(value)
		if err != nil {
			logger.Fatalf("could not parse configured interval: [%v]", err)
		}

		intervals = append(intervals, interval)
	}

	depths := make(map[ohlcv.Interval]time.Duration)
	for value, depth := range config.Ingestion.Depths {
		interval, err := ohlcv.ParseInterval(value)
		if err != nil {
			logger.Fatalf("could not parse depth interval: [%v]", err)
		}

		depths[interval] = depth
	}

	pairs := ohlcv.Pairs(config.Ingestion.Symbols, intervals)

	resolver := ohlcv.NewRangeResolver(
		depths,
		config.Ingestion.DefaultDepth,
		config.Ingestion.RefreshThreshold,
	)

	normalizer := ohlcv.NewKlineNormalizer(sink)

	fetcher := ohlcv.NewPaginatedFetcher(
		logger,
		sink,
		binance.NewClient(config.Binance.BaseURL),
		normalizer,
		&ohlcv.RetryPolicy{
			MaxAttempts: config.Ingestion.RetryAttempts,
			BackoffStep: config.Ingestion.RetryBackoffStep,
		},
		config.Ingestion.PageLimit,
		config.Ingestion.PagePause,
	)

	store := ohlcv.NewStore(logger, sink, repository)

	ingester := ohlcv.NewIngester(
		logger,
		sink,
		resolver,
		fetcher,
		store,
		pairs,
		config.Ingestion.PairPause,
	)

	if config.Schedule.Cron == "" {
		if err := ingester.RunSweep(ctx); err != nil {
			logger.Errorf("ingestion sweep interrupted: [%v]", err)
		}
		return
	}

	_, err = daemon.RunScheduler(
		ctx,
		logger,
		ingester,
		config.Schedule.Cron,
		config.Schedule.RunOnStart,
	)
	if err != nil {
		logger.Fatalf("could not run sweep scheduler: [%v]", err)
	}

	<-ctx.Done()
}

func createRepository(
	ctx context.Context,
	logger ohlcv.Logger,
	config *Config,
) (ohlcv.CandleRepository, error) {
	switch config.Storage.Backend {
	case "parquet":
		return parquet.NewCandleRepository(config.Storage.Dir)
	case "postgres":
		return connectPostgres(ctx, logger, &config.Database)
	case "inmem":
		return inmem.NewCandleRepository(), nil
	default:
		return nil, fmt.Errorf(
			"unknown storage backend [%v]",
			config.Storage.Backend,
		)
	}
}

func connectPostgres(
	ctx context.Context,
	logger ohlcv.Logger,
	config *Database,
) (ohlcv.CandleRepository, error) {
	if err := postgres.RunMigration(
		logger,
		(*postgres.Config)(config),
	); err != nil {
		return nil, fmt.Errorf(
			"could not run postgres migration: [%v]",
			err,
		)
	}

	client, err := postgres.NewClient(
		ctx,
		(*postgres.Config)(config),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"could not create postgres client: [%v]",
			err,
		)
	}

	return postgres.NewCandleRepository(client), nil
}

func createSink(
	ctx context.Context,
	logger ohlcv.Logger,
	config *Config,
) (ohlcv.EventSink, error) {
	loggingSink := ohlcv.NewLoggingSink(logger)

	if config.PubSub.ProjectID == "" || config.PubSub.TopicID == "" {
		return loggingSink, nil
	}

	pubsubClient, err := pubsub.NewClient(
		ctx,
		config.PubSub.ProjectID,
		config.PubSub.TopicID,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"could not create pubsub client: [%v]",
			err,
		)
	}

	return ohlcv.NewFanoutSink(
		loggingSink,
		pubsub.NewEventSink(pubsubClient, logger),
	), nil
}
