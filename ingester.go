package ohlcv

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PairStatus string

const (
	PairUpToDate  PairStatus = "up-to-date"
	PairCompleted PairStatus = "completed"
	PairFailed    PairStatus = "failed"
)

// Ingester runs the ingestion sweep: it visits every configured pair
// sequentially, resolves the fetch window, fetches and merges new
// candles, and isolates per-pair failures so a single pair can never
// abort the whole sweep.
type Ingester struct {
	logger    Logger
	sink      EventSink
	resolver  *RangeResolver
	fetcher   *PaginatedFetcher
	store     *Store
	pairs     []Pair
	pairPause time.Duration
}

func NewIngester(
	logger Logger,
	sink EventSink,
	resolver *RangeResolver,
	fetcher *PaginatedFetcher,
	store *Store,
	pairs []Pair,
	pairPause time.Duration,
) *Ingester {
	return &Ingester{
		logger:    logger,
		sink:      sink,
		resolver:  resolver,
		fetcher:   fetcher,
		store:     store,
		pairs:     pairs,
		pairPause: pairPause,
	}
}

// RunSweep visits every pair once. It returns a non-nil error only when
// the context is cancelled; partially fetched pages of the interrupted
// pair are still merged and persisted before returning.
func (i *Ingester) RunSweep(ctx context.Context) error {
	runLogger := i.logger.WithField("run", uuid.New().String())

	runLogger.Infof("starting ingestion sweep over [%v] pairs", len(i.pairs))

	statuses := make(map[PairStatus]int)

	for index, pair := range i.pairs {
		if index > 0 {
			if err := wait(ctx, i.pairPause); err != nil {
				return err
			}
		}

		pairLogger := runLogger.WithFields(map[string]interface{}{
			"symbol":   pair.Symbol,
			"interval": string(pair.Interval),
		})

		statuses[i.processPair(ctx, pairLogger, pair)]++

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	runLogger.Infof(
		"ingestion sweep done: [%v] up to date, [%v] completed, [%v] failed",
		statuses[PairUpToDate],
		statuses[PairCompleted],
		statuses[PairFailed],
	)

	return nil
}

func (i *Ingester) processPair(
	ctx context.Context,
	pairLogger Logger,
	pair Pair,
) (status PairStatus) {
	// A programming error must terminate this pair only, never the sweep.
	defer func() {
		if panicValue := recover(); panicValue != nil {
			err := fmt.Errorf("unexpected failure: [%v]", panicValue)

			pairLogger.Errorf("pair processing panicked: [%v]", panicValue)
			i.sink.Publish(NewPairFailedEvent(pair, err))

			status = PairFailed
		}
	}()

	existing := i.store.Load(pair)

	var lastOpenTime *time.Time
	if existing != nil {
		if openTime, exists := existing.LastOpenTime(); exists {
			lastOpenTime = &openTime
		}
	}

	window := i.resolver.Resolve(pair, lastOpenTime, time.Now().UTC())
	if window == nil {
		i.sink.Publish(NewPairUpToDateEvent(pair))
		return PairUpToDate
	}

	if lastOpenTime == nil {
		i.sink.Publish(NewBackfillStartedEvent(pair, window))
	}

	pairLogger.Infof(
		"fetching candles from [%v] to [%v]",
		window.Start.Format(time.RFC3339),
		window.End.Format(time.RFC3339),
	)

	candles, fetchErr := i.fetcher.Fetch(ctx, pair, window)
	if fetchErr != nil {
		pairLogger.Warningf(
			"fetch interrupted: [%v]; "+
				"flushing [%v] accumulated candles",
			fetchErr,
			len(candles),
		)
	}

	if len(candles) == 0 {
		pairLogger.Infof("no new candles fetched")
		return PairCompleted
	}

	series, err := i.store.MergeAndPersist(pair, existing, candles)
	if err != nil {
		pairLogger.Errorf(
			"could not merge and persist [%v] candles: [%v]",
			len(candles),
			err,
		)
		i.sink.Publish(NewPairFailedEvent(pair, err))

		return PairFailed
	}

	pairLogger.Infof(
		"persisted series with [%v] candles ([%v] new)",
		series.Len(),
		len(candles),
	)

	return PairCompleted
}
