package ohlcv

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sdcoffey/big"
)

// Candle is a single OHLCV record. OpenTime is the natural key within
// a pair's series.
type Candle struct {
	Pair       Pair
	OpenTime   time.Time
	CloseTime  time.Time
	OpenPrice  big.Decimal
	ClosePrice big.Decimal
	MaxPrice   big.Decimal
	MinPrice   big.Decimal
	Volume     big.Decimal
	TradeCount uint
}

func (c *Candle) Equal(other *Candle) bool {
	return c.OpenTime.Equal(other.OpenTime) &&
		c.CloseTime.Equal(other.CloseTime)
}

func (c *Candle) String() string {
	return fmt.Sprintf(
		"pair: %v, time: %v, close: %v",
		c.Pair,
		c.OpenTime.Format(time.RFC3339),
		c.ClosePrice,
	)
}

// ParseDecimal parses an exchange decimal string. Unlike big.NewFromString,
// it rejects malformed input with an error instead of panicking.
func ParseDecimal(value string) (big.Decimal, error) {
	if _, err := strconv.ParseFloat(value, 64); err != nil {
		return big.ZERO, fmt.Errorf(
			"could not parse decimal [%v]: [%v]",
			value,
			err,
		)
	}

	return big.NewFromString(value), nil
}

func parseMilliseconds(milliseconds int64) time.Time {
	return time.Unix(0, milliseconds*int64(time.Millisecond)).UTC()
}
