package ohlcv

import "fmt"

// Interval is a candle bar duration, expressed in the exchange's notation.
type Interval string

var knownIntervals = map[Interval]bool{
	"1m":  true,
	"3m":  true,
	"5m":  true,
	"15m": true,
	"30m": true,
	"1h":  true,
	"2h":  true,
	"4h":  true,
	"6h":  true,
	"8h":  true,
	"12h": true,
	"1d":  true,
	"3d":  true,
	"1w":  true,
}

func ParseInterval(value string) (Interval, error) {
	interval := Interval(value)

	if !knownIntervals[interval] {
		return "", fmt.Errorf("unknown interval [%v]", value)
	}

	return interval, nil
}

// Pair is an (instrument symbol, interval) combination, the unit of
// independent ingestion state.
type Pair struct {
	Symbol   string
	Interval Interval
}

func (p Pair) String() string {
	return p.Symbol + "_" + string(p.Interval)
}

// Pairs builds the cartesian product of symbols and intervals, in the
// order they are configured.
func Pairs(symbols []string, intervals []Interval) []Pair {
	pairs := make([]Pair, 0, len(symbols)*len(intervals))

	for _, symbol := range symbols {
		for _, interval := range intervals {
			pairs = append(pairs, Pair{Symbol: symbol, Interval: interval})
		}
	}

	return pairs
}
