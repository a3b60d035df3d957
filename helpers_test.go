package ohlcv

import (
	"context"
	"testing"
	"time"
)

type testLogger struct{}

func (tl *testLogger) Debugf(format string, args ...interface{})   {}
func (tl *testLogger) Infof(format string, args ...interface{})    {}
func (tl *testLogger) Warningf(format string, args ...interface{}) {}
func (tl *testLogger) Errorf(format string, args ...interface{})   {}
func (tl *testLogger) Fatalf(format string, args ...interface{})   {}

func (tl *testLogger) WithField(key string, value interface{}) Logger {
	return tl
}

func (tl *testLogger) WithFields(fields map[string]interface{}) Logger {
	return tl
}

type recordingSink struct {
	events []*Event
}

func (rs *recordingSink) Publish(event *Event) {
	rs.events = append(rs.events, event)
}

func (rs *recordingSink) count(kind EventKind) int {
	count := 0
	for _, event := range rs.events {
		if event.Kind == kind {
			count++
		}
	}

	return count
}

// stubKlineSource replays queued pages and records every query. When
// errs holds an entry for the queried symbol, requests for that symbol
// always fail.
type stubKlineSource struct {
	pages   map[string][][]RawKline
	errs    map[string]error
	queries []*KlineQuery
}

func newStubKlineSource() *stubKlineSource {
	return &stubKlineSource{
		pages: make(map[string][][]RawKline),
		errs:  make(map[string]error),
	}
}

func (sks *stubKlineSource) enqueuePage(symbol string, rows []RawKline) {
	sks.pages[symbol] = append(sks.pages[symbol], rows)
}

func (sks *stubKlineSource) Klines(
	_ context.Context,
	query *KlineQuery,
) ([]RawKline, error) {
	queryCopy := *query
	sks.queries = append(sks.queries, &queryCopy)

	if err, exists := sks.errs[query.Symbol]; exists {
		return nil, err
	}

	queued := sks.pages[query.Symbol]
	if len(queued) == 0 {
		return []RawKline{}, nil
	}

	page := queued[0]
	sks.pages[query.Symbol] = queued[1:]

	return page, nil
}

func (sks *stubKlineSource) queriesFor(symbol string) []*KlineQuery {
	queries := make([]*KlineQuery, 0)
	for _, query := range sks.queries {
		if query.Symbol == symbol {
			queries = append(queries, query)
		}
	}

	return queries
}

// stubRepository is an in-memory CandleRepository with injectable
// failures.
type stubRepository struct {
	series       map[Pair]*Series
	loadErrs     map[Pair]error
	persistErrs  map[Pair]error
	persistCount int
}

func newStubRepository() *stubRepository {
	return &stubRepository{
		series:      make(map[Pair]*Series),
		loadErrs:    make(map[Pair]error),
		persistErrs: make(map[Pair]error),
	}
}

func (sr *stubRepository) LoadSeries(pair Pair) (*Series, error) {
	if err, exists := sr.loadErrs[pair]; exists {
		return nil, err
	}

	series, exists := sr.series[pair]
	if !exists {
		return nil, nil
	}

	return NewSeries(series.Candles()...), nil
}

func (sr *stubRepository) PersistSeries(pair Pair, series *Series) error {
	if err, exists := sr.persistErrs[pair]; exists {
		return err
	}

	sr.persistCount++
	sr.series[pair] = NewSeries(series.Candles()...)

	return nil
}

func parseTestTime(t *testing.T, value string) time.Time {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatal(err)
	}

	return parsed
}

// testKlineRow builds a well-formed raw row with the given open time and
// close price; the remaining fields carry fixed values.
func testKlineRow(openTime time.Time, closePrice string) RawKline {
	closeTime := openTime.Add(59*time.Second + 999*time.Millisecond)

	return RawKline{
		float64(openTime.UnixMilli()),
		"100.0",
		"110.0",
		"90.0",
		closePrice,
		"12.5",
		float64(closeTime.UnixMilli()),
		"1250.0",
		float64(42),
		"6.25",
		"625.0",
		"0",
	}
}

func testCandle(
	t *testing.T,
	pair Pair,
	openTime string,
	closePrice string,
) *Candle {
	parsedOpenTime := parseTestTime(t, openTime)

	price, err := ParseDecimal(closePrice)
	if err != nil {
		t.Fatal(err)
	}

	volume, err := ParseDecimal("12.5")
	if err != nil {
		t.Fatal(err)
	}

	return &Candle{
		Pair:       pair,
		OpenTime:   parsedOpenTime,
		CloseTime:  parsedOpenTime.Add(59*time.Second + 999*time.Millisecond),
		OpenPrice:  price,
		ClosePrice: price,
		MaxPrice:   price,
		MinPrice:   price,
		Volume:     volume,
		TradeCount: 42,
	}
}
