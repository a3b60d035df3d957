package ohlcv

import (
	"sort"
	"time"
)

// Series is the persisted candle set for one pair, keyed by open time.
// Adding a candle with an already known open time overwrites the previous
// record, so later fetches win over earlier ones.
type Series struct {
	candles map[int64]*Candle
}

func NewSeries(candles ...*Candle) *Series {
	series := &Series{candles: make(map[int64]*Candle)}
	series.Add(candles...)

	return series
}

func (s *Series) Add(candles ...*Candle) {
	for _, candle := range candles {
		s.candles[candle.OpenTime.UnixMilli()] = candle
	}
}

func (s *Series) Len() int {
	return len(s.candles)
}

// Candles returns the series as a sequence sorted ascending by open time.
func (s *Series) Candles() []*Candle {
	candles := make([]*Candle, 0, len(s.candles))
	for _, candle := range s.candles {
		candles = append(candles, candle)
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})

	return candles
}

func (s *Series) LastOpenTime() (time.Time, bool) {
	if len(s.candles) == 0 {
		return time.Time{}, false
	}

	var lastMilliseconds int64
	for milliseconds := range s.candles {
		if milliseconds > lastMilliseconds {
			lastMilliseconds = milliseconds
		}
	}

	return parseMilliseconds(lastMilliseconds), true
}
