package parquet

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	ohlcv "github.com/gokulmuthuR/crypto-ml-pipeline"
	"github.com/parquet-go/parquet-go"
)

// CandleRepository persists one parquet file per pair under the data
// directory, named <SYMBOL>_<interval>.parquet. It is the default
// storage backend.
type CandleRepository struct {
	dir string
}

func NewCandleRepository(dir string) (*CandleRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf(
			"could not create data directory [%v]: [%v]",
			dir,
			err,
		)
	}

	return &CandleRepository{dir: dir}, nil
}

// Prices and volumes are stored as their exchange string representation
// to keep the exchange's own precision.
type candleRow struct {
	Symbol     string `parquet:"symbol"`
	Interval   string `parquet:"interval"`
	OpenTime   int64  `parquet:"open_time,timestamp(millisecond)"`
	CloseTime  int64  `parquet:"close_time,timestamp(millisecond)"`
	Open       string `parquet:"open"`
	High       string `parquet:"high"`
	Low        string `parquet:"low"`
	Close      string `parquet:"close"`
	Volume     string `parquet:"volume"`
	TradeCount int64  `parquet:"trade_count"`
}

func (cr *CandleRepository) LoadSeries(pair ohlcv.Pair) (*ohlcv.Series, error) {
	path := cr.seriesPath(pair)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	rows, err := parquet.ReadFile[candleRow](path)
	if err != nil {
		return nil, fmt.Errorf(
			"could not read series file [%v]: [%v]",
			path,
			err,
		)
	}

	candles := make([]*ohlcv.Candle, 0, len(rows))
	for _, row := range rows {
		candle, err := row.unwrap()
		if err != nil {
			return nil, fmt.Errorf(
				"could not parse series file [%v]: [%v]",
				path,
				err,
			)
		}

		candles = append(candles, candle)
	}

	return ohlcv.NewSeries(candles...), nil
}

// PersistSeries writes the full series to a temporary file and renames
// it over the previous one, so readers never observe a partial write.
func (cr *CandleRepository) PersistSeries(
	pair ohlcv.Pair,
	series *ohlcv.Series,
) error {
	candles := series.Candles()

	rows := make([]candleRow, len(candles))
	for index, candle := range candles {
		rows[index] = *new(candleRow).wrap(candle)
	}

	tempFile, err := os.CreateTemp(cr.dir, pair.String()+".tmp-*")
	if err != nil {
		return fmt.Errorf("could not create temporary file: [%v]", err)
	}

	tempPath := tempFile.Name()
	_ = tempFile.Close()

	if err := parquet.WriteFile(tempPath, rows); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf(
			"could not write series file for pair [%v]: [%v]",
			pair,
			err,
		)
	}

	if err := os.Rename(tempPath, cr.seriesPath(pair)); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf(
			"could not replace series file for pair [%v]: [%v]",
			pair,
			err,
		)
	}

	return nil
}

func (cr *CandleRepository) seriesPath(pair ohlcv.Pair) string {
	return filepath.Join(cr.dir, pair.String()+".parquet")
}

func (row *candleRow) wrap(candle *ohlcv.Candle) *candleRow {
	row.Symbol = candle.Pair.Symbol
	row.Interval = string(candle.Pair.Interval)
	row.OpenTime = candle.OpenTime.UnixMilli()
	row.CloseTime = candle.CloseTime.UnixMilli()
	row.Open = candle.OpenPrice.String()
	row.High = candle.MaxPrice.String()
	row.Low = candle.MinPrice.String()
	row.Close = candle.ClosePrice.String()
	row.Volume = candle.Volume.String()
	row.TradeCount = int64(candle.TradeCount)

	return row
}

func (row *candleRow) unwrap() (*ohlcv.Candle, error) {
	interval, err := ohlcv.ParseInterval(row.Interval)
	if err != nil {
		return nil, err
	}

	openPrice, err := ohlcv.ParseDecimal(row.Open)
	if err != nil {
		return nil, err
	}

	maxPrice, err := ohlcv.ParseDecimal(row.High)
	if err != nil {
		return nil, err
	}

	minPrice, err := ohlcv.ParseDecimal(row.Low)
	if err != nil {
		return nil, err
	}

	closePrice, err := ohlcv.ParseDecimal(row.Close)
	if err != nil {
		return nil, err
	}

	volume, err := ohlcv.ParseDecimal(row.Volume)
	if err != nil {
		return nil, err
	}

	if row.TradeCount < 0 {
		return nil, fmt.Errorf("negative trade count [%v]", row.TradeCount)
	}

	return &ohlcv.Candle{
		Pair: ohlcv.Pair{
			Symbol:   row.Symbol,
			Interval: interval,
		},
		OpenTime:   time.UnixMilli(row.OpenTime).UTC(),
		CloseTime:  time.UnixMilli(row.CloseTime).UTC(),
		OpenPrice:  openPrice,
		ClosePrice: closePrice,
		MaxPrice:   maxPrice,
		MinPrice:   minPrice,
		Volume:     volume,
		TradeCount: uint(row.TradeCount),
	}, nil
}
