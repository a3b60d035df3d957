package ohlcv

import (
	"context"
	"fmt"
	"time"
)

// KlineQuery describes one bounded page request against the quote-data
// API. A zero StartTime means no lower bound: the API then returns the
// most recent Limit rows ending at EndTime.
type KlineQuery struct {
	Symbol    string
	Interval  Interval
	Limit     int
	StartTime time.Time
	EndTime   time.Time
}

// KlineSource is the transport collaborator. Implementations perform one
// page request and return the raw rows, a transport error, or an
// application error carried by the response payload.
type KlineSource interface {
	Klines(ctx context.Context, query *KlineQuery) ([]RawKline, error)
}

// PaginatedFetcher walks a fetch window as a sequence of bounded pages
// under the retry policy. It performs no storage writes.
type PaginatedFetcher struct {
	logger      Logger
	sink        EventSink
	source      KlineSource
	normalizer  *KlineNormalizer
	retryPolicy *RetryPolicy
	pageLimit   int
	pagePause   time.Duration
}

func NewPaginatedFetcher(
	logger Logger,
	sink EventSink,
	source KlineSource,
	normalizer *KlineNormalizer,
	retryPolicy *RetryPolicy,
	pageLimit int,
	pagePause time.Duration,
) *PaginatedFetcher {
	return &PaginatedFetcher{
		logger:      logger,
		sink:        sink,
		source:      source,
		normalizer:  normalizer,
		retryPolicy: retryPolicy,
		pageLimit:   pageLimit,
		pagePause:   pagePause,
	}
}

// Fetch accumulates candles page by page until the window is drained.
// Retry exhaustion on a page stops the walk but keeps what has been
// accumulated so far; the failure is reported through the event sink,
// not returned. The returned error is non-nil only when the context is
// cancelled and is meant to let the caller flush the partial result.
func (pf *PaginatedFetcher) Fetch(
	ctx context.Context,
	pair Pair,
	window *FetchWindow,
) ([]*Candle, error) {
	candles := make([]*Candle, 0)
	cursor := window.Start

	for {
		query := &KlineQuery{
			Symbol:    pair.Symbol,
			Interval:  pair.Interval,
			Limit:     pf.pageLimit,
			StartTime: cursor,
			EndTime:   window.End,
		}

		rows, err := pf.fetchPage(ctx, pair, query)
		if err != nil {
			if ctx.Err() != nil {
				return candles, ctx.Err()
			}

			// Retries exhausted; keep the pages accumulated so far.
			return candles, nil
		}

		if len(rows) == 0 {
			break
		}

		pageCandles := pf.normalizer.Normalize(pair, rows)
		if len(pageCandles) == 0 {
			// No usable cursor to advance to; the window is treated as
			// exhausted, same as an empty page.
			pf.sink.Publish(NewPageRejectedEvent(
				pair,
				"page normalized to zero records",
			))
			break
		}

		candles = append(candles, pageCandles...)

		lastCandle := pageCandles[len(pageCandles)-1]
		cursor = lastCandle.OpenTime.Add(time.Millisecond)

		if !cursor.Before(window.End) {
			break
		}

		// A short page means upstream has no further rows in the window.
		if len(rows) < query.Limit {
			break
		}

		if err := wait(ctx, pf.pagePause); err != nil {
			return candles, err
		}
	}

	return candles, nil
}

func (pf *PaginatedFetcher) fetchPage(
	ctx context.Context,
	pair Pair,
	query *KlineQuery,
) ([]RawKline, error) {
	var lastErr error

	for attempt := 1; attempt <= pf.retryPolicy.MaxAttempts; attempt++ {
		if attempt > 1 {
			pf.sink.Publish(NewPageRetriedEvent(pair, attempt, lastErr))

			if err := wait(ctx, pf.retryPolicy.Backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		rows, err := pf.source.Klines(ctx, query)
		if err == nil {
			return rows, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err

		pf.logger.Warningf(
			"kline page request for pair [%v] failed "+
				"on attempt [%v/%v]: [%v]",
			pair,
			attempt,
			pf.retryPolicy.MaxAttempts,
			err,
		)
	}

	pf.sink.Publish(NewRetryExhaustedEvent(
		pair,
		pf.retryPolicy.MaxAttempts,
		lastErr,
	))

	return nil, fmt.Errorf(
		"retries exhausted after [%v] attempts: [%v]",
		pf.retryPolicy.MaxAttempts,
		lastErr,
	)
}

func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
