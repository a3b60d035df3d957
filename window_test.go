package ohlcv

import (
	"testing"
	"time"
)

func newTestResolver() *RangeResolver {
	return NewRangeResolver(
		map[Interval]time.Duration{
			"1h": 3 * 365 * 24 * time.Hour,
		},
		24*time.Hour,
		12*time.Hour,
	)
}

func TestRangeResolver_Backfill(t *testing.T) {
	resolver := newTestResolver()
	now := parseTestTime(t, "2024-01-10T00:00:00Z")

	window := resolver.Resolve(
		Pair{Symbol: "BTCUSDT", Interval: "1h"},
		nil,
		now,
	)

	if window == nil {
		t.Fatal("expected a fetch window")
	}

	expectedStart := now.Add(-3 * 365 * 24 * time.Hour)
	if !window.Start.Equal(expectedStart) {
		t.Errorf(
			"unexpected window start\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			expectedStart,
			window.Start,
		)
	}

	if !window.End.Equal(now) {
		t.Errorf(
			"unexpected window end\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			now,
			window.End,
		)
	}
}

func TestRangeResolver_BackfillDefaultDepth(t *testing.T) {
	resolver := newTestResolver()
	now := parseTestTime(t, "2024-01-10T00:00:00Z")

	window := resolver.Resolve(
		Pair{Symbol: "BTCUSDT", Interval: "5m"},
		nil,
		now,
	)

	if window == nil {
		t.Fatal("expected a fetch window")
	}

	expectedStart := now.Add(-24 * time.Hour)
	if !window.Start.Equal(expectedStart) {
		t.Errorf(
			"unexpected window start\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			expectedStart,
			window.Start,
		)
	}
}

func TestRangeResolver_SkipWhenFresh(t *testing.T) {
	resolver := newTestResolver()
	now := parseTestTime(t, "2024-01-10T00:00:00Z")
	lastOpenTime := now.Add(-5 * time.Minute)

	window := resolver.Resolve(
		Pair{Symbol: "BTCUSDT", Interval: "1h"},
		&lastOpenTime,
		now,
	)

	if window != nil {
		t.Errorf("expected no fetch window, got [%+v]", window)
	}
}

func TestRangeResolver_IncrementalWindow(t *testing.T) {
	resolver := newTestResolver()
	now := parseTestTime(t, "2024-01-10T00:00:00Z")
	lastOpenTime := now.Add(-24 * time.Hour)

	window := resolver.Resolve(
		Pair{Symbol: "BTCUSDT", Interval: "1h"},
		&lastOpenTime,
		now,
	)

	if window == nil {
		t.Fatal("expected a fetch window")
	}

	expectedStart := lastOpenTime.Add(time.Millisecond)
	if !window.Start.Equal(expectedStart) {
		t.Errorf(
			"unexpected window start\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			expectedStart,
			window.Start,
		)
	}

	if !window.End.Equal(now) {
		t.Errorf(
			"unexpected window end\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			now,
			window.End,
		)
	}
}

func TestRangeResolver_ThresholdBoundary(t *testing.T) {
	resolver := newTestResolver()
	now := parseTestTime(t, "2024-01-10T00:00:00Z")

	// The candidate start sits exactly at the refresh threshold, which
	// is enough to trigger a fetch.
	lastOpenTime := now.Add(-12*time.Hour - time.Millisecond)

	window := resolver.Resolve(
		Pair{Symbol: "BTCUSDT", Interval: "1h"},
		&lastOpenTime,
		now,
	)

	if window == nil {
		t.Fatal("expected a fetch window")
	}
}
