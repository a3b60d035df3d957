package ohlcv

import "time"

// FetchWindow is the time range a fetch should cover. Start is inclusive,
// End is the sweep's notion of "now".
type FetchWindow struct {
	Start time.Time
	End   time.Time
}

// RangeResolver decides whether a pair needs ingestion and how far back
// the fetch should reach. It is a pure function of its inputs.
type RangeResolver struct {
	depths           map[Interval]time.Duration
	defaultDepth     time.Duration
	refreshThreshold time.Duration
}

func NewRangeResolver(
	depths map[Interval]time.Duration,
	defaultDepth time.Duration,
	refreshThreshold time.Duration,
) *RangeResolver {
	return &RangeResolver{
		depths:           depths,
		defaultDepth:     defaultDepth,
		refreshThreshold: refreshThreshold,
	}
}

// Resolve returns the window to fetch for the given pair, or nil if the
// persisted series is considered up to date. A nil lastOpenTime means no
// prior data exists and triggers a backfill over the interval's whole
// historical depth.
func (rr *RangeResolver) Resolve(
	pair Pair,
	lastOpenTime *time.Time,
	now time.Time,
) *FetchWindow {
	if lastOpenTime == nil {
		return &FetchWindow{
			Start: now.Add(-rr.historicalDepth(pair.Interval)),
			End:   now,
		}
	}

	// Start right after the last closed bar so it is not fetched again.
	candidateStart := lastOpenTime.Add(time.Millisecond)

	if now.Sub(candidateStart) < rr.refreshThreshold {
		return nil
	}

	return &FetchWindow{
		Start: candidateStart,
		End:   now,
	}
}

func (rr *RangeResolver) historicalDepth(interval Interval) time.Duration {
	if depth, exists := rr.depths[interval]; exists {
		return depth
	}

	return rr.defaultDepth
}
