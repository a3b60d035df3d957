package ohlcv

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func newTestFetcher(
	source KlineSource,
	sink EventSink,
	pageLimit int,
) *PaginatedFetcher {
	return NewPaginatedFetcher(
		&testLogger{},
		sink,
		source,
		NewKlineNormalizer(sink),
		&RetryPolicy{MaxAttempts: 4, BackoffStep: 0},
		pageLimit,
		0,
	)
}

func TestPaginatedFetcher_Pagination(t *testing.T) {
	pair := Pair{Symbol: "BTCUSDT", Interval: "1m"}
	sink := &recordingSink{}
	source := newStubKlineSource()

	windowStart := parseTestTime(t, "2024-01-09T10:00:00Z")
	window := &FetchWindow{
		Start: windowStart,
		End:   windowStart.Add(5 * time.Minute),
	}

	// A full page followed by a short final page.
	source.enqueuePage(pair.Symbol, []RawKline{
		testKlineRow(windowStart, "100"),
		testKlineRow(windowStart.Add(1*time.Minute), "101"),
	})
	source.enqueuePage(pair.Symbol, []RawKline{
		testKlineRow(windowStart.Add(2*time.Minute), "102"),
	})

	fetcher := newTestFetcher(source, sink, 2)

	candles, err := fetcher.Fetch(context.Background(), pair, window)
	if err != nil {
		t.Fatal(err)
	}

	if len(candles) != 3 {
		t.Fatalf("unexpected candles count [%v]", len(candles))
	}

	queries := source.queriesFor(pair.Symbol)
	if len(queries) != 2 {
		t.Fatalf("unexpected queries count [%v]", len(queries))
	}

	if !queries[0].StartTime.Equal(window.Start) {
		t.Errorf(
			"unexpected first query start time\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			window.Start,
			queries[0].StartTime,
		)
	}

	expectedSecondStart := windowStart.
		Add(1 * time.Minute).
		Add(time.Millisecond)
	if !queries[1].StartTime.Equal(expectedSecondStart) {
		t.Errorf(
			"unexpected second query start time\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			expectedSecondStart,
			queries[1].StartTime,
		)
	}

	for _, query := range queries {
		if !query.StartTime.Before(window.End) {
			t.Errorf(
				"query issued with start time [%v] "+
					"not before window end [%v]",
				query.StartTime,
				window.End,
			)
		}
	}
}

func TestPaginatedFetcher_StopsWhenWindowDrained(t *testing.T) {
	pair := Pair{Symbol: "BTCUSDT", Interval: "1m"}
	sink := &recordingSink{}
	source := newStubKlineSource()

	windowStart := parseTestTime(t, "2024-01-09T10:00:00Z")
	window := &FetchWindow{
		Start: windowStart,
		End:   windowStart.Add(1 * time.Minute).Add(time.Millisecond),
	}

	// A full page whose last candle advances the cursor to the window
	// end exactly; no further request may be issued.
	source.enqueuePage(pair.Symbol, []RawKline{
		testKlineRow(windowStart, "100"),
		testKlineRow(windowStart.Add(1*time.Minute), "101"),
	})

	fetcher := newTestFetcher(source, sink, 2)

	candles, err := fetcher.Fetch(context.Background(), pair, window)
	if err != nil {
		t.Fatal(err)
	}

	if len(candles) != 2 {
		t.Fatalf("unexpected candles count [%v]", len(candles))
	}

	if len(source.queries) != 1 {
		t.Errorf("unexpected queries count [%v]", len(source.queries))
	}
}

func TestPaginatedFetcher_EmptyFirstPage(t *testing.T) {
	pair := Pair{Symbol: "BTCUSDT", Interval: "1m"}
	sink := &recordingSink{}
	source := newStubKlineSource()

	windowStart := parseTestTime(t, "2024-01-09T10:00:00Z")
	window := &FetchWindow{
		Start: windowStart,
		End:   windowStart.Add(5 * time.Minute),
	}

	fetcher := newTestFetcher(source, sink, 2)

	candles, err := fetcher.Fetch(context.Background(), pair, window)
	if err != nil {
		t.Fatal(err)
	}

	if len(candles) != 0 {
		t.Errorf("unexpected candles count [%v]", len(candles))
	}

	if len(source.queries) != 1 {
		t.Errorf("unexpected queries count [%v]", len(source.queries))
	}
}

func TestPaginatedFetcher_RetryExhaustion(t *testing.T) {
	pair := Pair{Symbol: "BTCUSDT", Interval: "1h"}
	sink := &recordingSink{}
	source := newStubKlineSource()
	source.errs[pair.Symbol] = fmt.Errorf("connection refused")

	windowStart := parseTestTime(t, "2024-01-09T10:00:00Z")
	window := &FetchWindow{
		Start: windowStart,
		End:   windowStart.Add(5 * time.Hour),
	}

	fetcher := newTestFetcher(source, sink, 2)

	candles, err := fetcher.Fetch(context.Background(), pair, window)
	if err != nil {
		t.Fatal(err)
	}

	if len(candles) != 0 {
		t.Errorf("unexpected candles count [%v]", len(candles))
	}

	if len(source.queries) != 4 {
		t.Errorf(
			"unexpected attempts count\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			4,
			len(source.queries),
		)
	}

	if retried := sink.count(EventPageRetried); retried != 3 {
		t.Errorf("unexpected page-retried events count [%v]", retried)
	}

	if exhausted := sink.count(EventRetryExhausted); exhausted != 1 {
		t.Errorf("unexpected retry-exhausted events count [%v]", exhausted)
	}
}

func TestPaginatedFetcher_KeepsPartialResultAfterFailure(t *testing.T) {
	pair := Pair{Symbol: "BTCUSDT", Interval: "1m"}
	sink := &recordingSink{}
	source := newStubKlineSource()

	windowStart := parseTestTime(t, "2024-01-09T10:00:00Z")
	window := &FetchWindow{
		Start: windowStart,
		End:   windowStart.Add(10 * time.Minute),
	}

	// First page succeeds; once the queue is drained the source starts
	// failing, simulating an upstream outage mid-window.
	source.enqueuePage(pair.Symbol, []RawKline{
		testKlineRow(windowStart, "100"),
		testKlineRow(windowStart.Add(1*time.Minute), "101"),
	})

	failingAfterDrain := &drainThenFailSource{inner: source}

	fetcher := newTestFetcher(failingAfterDrain, sink, 2)

	candles, err := fetcher.Fetch(context.Background(), pair, window)
	if err != nil {
		t.Fatal(err)
	}

	if len(candles) != 2 {
		t.Errorf(
			"unexpected candles count\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			2,
			len(candles),
		)
	}

	if exhausted := sink.count(EventRetryExhausted); exhausted != 1 {
		t.Errorf("unexpected retry-exhausted events count [%v]", exhausted)
	}
}

func TestPaginatedFetcher_RejectedPageStopsWindow(t *testing.T) {
	pair := Pair{Symbol: "BTCUSDT", Interval: "1m"}
	sink := &recordingSink{}
	source := newStubKlineSource()

	windowStart := parseTestTime(t, "2024-01-09T10:00:00Z")
	window := &FetchWindow{
		Start: windowStart,
		End:   windowStart.Add(10 * time.Minute),
	}

	source.enqueuePage(pair.Symbol, []RawKline{
		{float64(1), "malformed"},
		{float64(2), "malformed"},
	})

	fetcher := newTestFetcher(source, sink, 2)

	candles, err := fetcher.Fetch(context.Background(), pair, window)
	if err != nil {
		t.Fatal(err)
	}

	if len(candles) != 0 {
		t.Errorf("unexpected candles count [%v]", len(candles))
	}

	if len(source.queries) != 1 {
		t.Errorf("unexpected queries count [%v]", len(source.queries))
	}

	if rejected := sink.count(EventPageRejected); rejected != 1 {
		t.Errorf("unexpected page-rejected events count [%v]", rejected)
	}
}

func TestPaginatedFetcher_CancellationKeepsPartialResult(t *testing.T) {
	pair := Pair{Symbol: "BTCUSDT", Interval: "1m"}
	sink := &recordingSink{}
	source := newStubKlineSource()

	windowStart := parseTestTime(t, "2024-01-09T10:00:00Z")
	window := &FetchWindow{
		Start: windowStart,
		End:   windowStart.Add(10 * time.Minute),
	}

	source.enqueuePage(pair.Symbol, []RawKline{
		testKlineRow(windowStart, "100"),
		testKlineRow(windowStart.Add(1*time.Minute), "101"),
	})

	ctx, cancelCtx := context.WithCancel(context.Background())
	cancelCtx()

	fetcher := newTestFetcher(source, sink, 2)

	candles, err := fetcher.Fetch(ctx, pair, window)
	if err == nil {
		t.Error("expected a context error")
	}

	if len(candles) != 2 {
		t.Errorf(
			"unexpected candles count\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			2,
			len(candles),
		)
	}
}

// drainThenFailSource serves queued pages from the wrapped source and
// fails every request once the queue is empty.
type drainThenFailSource struct {
	inner *stubKlineSource
}

func (dtfs *drainThenFailSource) Klines(
	ctx context.Context,
	query *KlineQuery,
) ([]RawKline, error) {
	if len(dtfs.inner.pages[query.Symbol]) == 0 {
		return nil, fmt.Errorf("connection reset")
	}

	return dtfs.inner.Klines(ctx, query)
}
