package ohlcv

import (
	"fmt"
	"time"

	"github.com/sdcoffey/big"
)

// Positional layout of a raw kline row:
// [open_time_ms, open, high, low, close, volume, close_time_ms,
// quote_volume, trade_count, taker_base, taker_quote, ignored].
const (
	klineFieldCount      = 12
	klineOpenTimeField   = 0
	klineOpenField       = 1
	klineHighField       = 2
	klineLowField        = 3
	klineCloseField      = 4
	klineVolumeField     = 5
	klineCloseTimeField  = 6
	klineTradeCountField = 8
)

// RawKline is one row of a klines page as decoded from the wire: numbers
// for timestamps and counts, strings for prices and volumes.
type RawKline []interface{}

// KlineNormalizer maps raw kline rows to canonical candles. Rows that
// fail to normalize are skipped individually and reported to the event
// sink; a page degrades gracefully instead of aborting.
type KlineNormalizer struct {
	sink EventSink
}

func NewKlineNormalizer(sink EventSink) *KlineNormalizer {
	return &KlineNormalizer{sink: sink}
}

func (kn *KlineNormalizer) Normalize(pair Pair, rows []RawKline) []*Candle {
	candles := make([]*Candle, 0, len(rows))

	for index, row := range rows {
		candle, err := normalizeRow(pair, row)
		if err != nil {
			kn.sink.Publish(NewRecordSkippedEvent(pair, index, err))
			continue
		}

		candles = append(candles, candle)
	}

	return candles
}

func normalizeRow(pair Pair, row RawKline) (*Candle, error) {
	if len(row) != klineFieldCount {
		return nil, fmt.Errorf(
			"unexpected field count [%v]",
			len(row),
		)
	}

	openTime, err := millisField(row, klineOpenTimeField)
	if err != nil {
		return nil, err
	}

	closeTime, err := millisField(row, klineCloseTimeField)
	if err != nil {
		return nil, err
	}

	openPrice, err := decimalField(row, klineOpenField)
	if err != nil {
		return nil, err
	}

	maxPrice, err := decimalField(row, klineHighField)
	if err != nil {
		return nil, err
	}

	minPrice, err := decimalField(row, klineLowField)
	if err != nil {
		return nil, err
	}

	closePrice, err := decimalField(row, klineCloseField)
	if err != nil {
		return nil, err
	}

	volume, err := decimalField(row, klineVolumeField)
	if err != nil {
		return nil, err
	}

	tradeCount, err := countField(row, klineTradeCountField)
	if err != nil {
		return nil, err
	}

	return &Candle{
		Pair:       pair,
		OpenTime:   openTime,
		CloseTime:  closeTime,
		OpenPrice:  openPrice,
		ClosePrice: closePrice,
		MaxPrice:   maxPrice,
		MinPrice:   minPrice,
		Volume:     volume,
		TradeCount: tradeCount,
	}, nil
}

func millisField(row RawKline, index int) (time.Time, error) {
	value, ok := row[index].(float64)
	if !ok {
		return time.Time{}, fmt.Errorf(
			"field [%v] is not an epoch-milliseconds number: [%v]",
			index,
			row[index],
		)
	}

	return parseMilliseconds(int64(value)), nil
}

func decimalField(row RawKline, index int) (big.Decimal, error) {
	value, ok := row[index].(string)
	if !ok {
		return big.ZERO, fmt.Errorf(
			"field [%v] is not a decimal string: [%v]",
			index,
			row[index],
		)
	}

	decimal, err := ParseDecimal(value)
	if err != nil {
		return big.ZERO, fmt.Errorf("field [%v]: [%v]", index, err)
	}

	return decimal, nil
}

func countField(row RawKline, index int) (uint, error) {
	value, ok := row[index].(float64)
	if !ok || value < 0 {
		return 0, fmt.Errorf(
			"field [%v] is not a non-negative count: [%v]",
			index,
			row[index],
		)
	}

	return uint(value), nil
}
