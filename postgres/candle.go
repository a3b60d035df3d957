package postgres

import (
	"fmt"
	"time"

	ohlcv "github.com/gokulmuthuR/crypto-ml-pipeline"
	"github.com/jackc/pgtype"
)

// CandleRepository stores series in the candle table, one row per
// candle, keyed by (symbol, interval, open_time).
type CandleRepository struct {
	client *Client
}

func NewCandleRepository(client *Client) *CandleRepository {
	return &CandleRepository{client: client}
}

func (cr *CandleRepository) LoadSeries(pair ohlcv.Pair) (*ohlcv.Series, error) {
	query := `SELECT symbol, "interval", open_time, close_time,
		open_price, high_price, low_price, close_price, volume, trade_count
		FROM candle
		WHERE symbol = $1 AND "interval" = $2
		ORDER BY open_time ASC`

	var rows []candleRow
	err := cr.client.instance().Select(
		&rows,
		query,
		pair.Symbol,
		string(pair.Interval),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"could not execute query for pair [%v]: [%v]",
			pair,
			err,
		)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	candles := make([]*ohlcv.Candle, 0, len(rows))
	for _, row := range rows {
		candle, err := row.unwrap()
		if err != nil {
			return nil, fmt.Errorf(
				"could not convert pg row for pair [%v]: [%v]",
				pair,
				err,
			)
		}

		candles = append(candles, candle)
	}

	return ohlcv.NewSeries(candles...), nil
}

// PersistSeries replaces the pair's rows within a single transaction so
// a reader can never observe a partially written series.
func (cr *CandleRepository) PersistSeries(
	pair ohlcv.Pair,
	series *ohlcv.Series,
) error {
	transaction, err := cr.client.instance().Beginx()
	if err != nil {
		return fmt.Errorf("could not begin transaction: [%v]", err)
	}
	defer func() {
		_ = transaction.Rollback()
	}()

	_, err = transaction.Exec(
		`DELETE FROM candle WHERE symbol = $1 AND "interval" = $2`,
		pair.Symbol,
		string(pair.Interval),
	)
	if err != nil {
		return fmt.Errorf(
			"could not delete rows for pair [%v]: [%v]",
			pair,
			err,
		)
	}

	insertQuery := `INSERT INTO candle
		(symbol, "interval", open_time, close_time,
		open_price, high_price, low_price, close_price, volume, trade_count)
		VALUES (:symbol, :interval, :open_time, :close_time,
		:open_price, :high_price, :low_price, :close_price,
		:volume, :trade_count)`

	for _, candle := range series.Candles() {
		row, err := new(candleRow).wrap(candle)
		if err != nil {
			return fmt.Errorf(
				"could not convert candle [%v] to pg row: [%v]",
				candle,
				err,
			)
		}

		if _, err := transaction.NamedExec(insertQuery, row); err != nil {
			return fmt.Errorf(
				"could not execute command for candle [%v]: [%v]",
				candle,
				err,
			)
		}
	}

	if err := transaction.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: [%v]", err)
	}

	return nil
}

type candleRow struct {
	Symbol     string         `db:"symbol"`
	Interval   string         `db:"interval"`
	OpenTime   time.Time      `db:"open_time"`
	CloseTime  time.Time      `db:"close_time"`
	OpenPrice  pgtype.Numeric `db:"open_price"`
	HighPrice  pgtype.Numeric `db:"high_price"`
	LowPrice   pgtype.Numeric `db:"low_price"`
	ClosePrice pgtype.Numeric `db:"close_price"`
	Volume     pgtype.Numeric `db:"volume"`
	TradeCount int64          `db:"trade_count"`
}

func (row *candleRow) wrap(candle *ohlcv.Candle) (*candleRow, error) {
	openPrice, err := decimalToNumeric(candle.OpenPrice)
	if err != nil {
		return nil, err
	}

	highPrice, err := decimalToNumeric(candle.MaxPrice)
	if err != nil {
		return nil, err
	}

	lowPrice, err := decimalToNumeric(candle.MinPrice)
	if err != nil {
		return nil, err
	}

	closePrice, err := decimalToNumeric(candle.ClosePrice)
	if err != nil {
		return nil, err
	}

	volume, err := decimalToNumeric(candle.Volume)
	if err != nil {
		return nil, err
	}

	row.Symbol = candle.Pair.Symbol
	row.Interval = string(candle.Pair.Interval)
	row.OpenTime = candle.OpenTime
	row.CloseTime = candle.CloseTime
	row.OpenPrice = openPrice
	row.HighPrice = highPrice
	row.LowPrice = lowPrice
	row.ClosePrice = closePrice
	row.Volume = volume
	row.TradeCount = int64(candle.TradeCount)

	return row, nil
}

func (row *candleRow) unwrap() (*ohlcv.Candle, error) {
	interval, err := ohlcv.ParseInterval(row.Interval)
	if err != nil {
		return nil, err
	}

	openPrice, err := numericToDecimal(row.OpenPrice)
	if err != nil {
		return nil, err
	}

	highPrice, err := numericToDecimal(row.HighPrice)
	if err != nil {
		return nil, err
	}

	lowPrice, err := numericToDecimal(row.LowPrice)
	if err != nil {
		return nil, err
	}

	closePrice, err := numericToDecimal(row.ClosePrice)
	if err != nil {
		return nil, err
	}

	volume, err := numericToDecimal(row.Volume)
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
		OpenTime:   row.OpenTime.UTC(),
		CloseTime:  row.CloseTime.UTC(),
		OpenPrice:  openPrice,
		ClosePrice: closePrice,
		MaxPrice:   highPrice,
		MinPrice:   lowPrice,
		Volume:     volume,
		TradeCount: uint(row.TradeCount),
	}, nil
}
