package inmem

import (
	"sync"

	ohlcv "github.com/gokulmuthuR/crypto-ml-pipeline"
)

// CandleRepository keeps series in memory. It backs tests and dry runs.
type CandleRepository struct {
	seriesMutex sync.RWMutex
	series      map[ohlcv.Pair]*ohlcv.Series
}

func NewCandleRepository() *CandleRepository {
	return &CandleRepository{
		series: make(map[ohlcv.Pair]*ohlcv.Series),
	}
}

func (cr *CandleRepository) LoadSeries(pair ohlcv.Pair) (*ohlcv.Series, error) {
	cr.seriesMutex.RLock()
	defer cr.seriesMutex.RUnlock()

	series, exists := cr.series[pair]
	if !exists {
		return nil, nil
	}

	return ohlcv.NewSeries(series.Candles()...), nil
}

func (cr *CandleRepository) PersistSeries(
	pair ohlcv.Pair,
	series *ohlcv.Series,
) error {
	cr.seriesMutex.Lock()
	defer cr.seriesMutex.Unlock()

	cr.series[pair] = ohlcv.NewSeries(series.Candles()...)

	return nil
}
