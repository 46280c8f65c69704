package market

import (
	"sort"
	"time"

	"github.com/balkhaev/trader-api/internal/model"
)

// ResampleSeconds folds raw trades into 1-second OHLCV candles. Seconds with
// no trades produce no candle; output is ascending by time.
func ResampleSeconds(trades []Trade) []model.Candle {
	if len(trades) == 0 {
		return nil
	}

	buckets := make(map[int64]*model.Candle)
	for _, t := range trades {
		sec := t.At.Unix()
		c, ok := buckets[sec]
		if !ok {
			buckets[sec] = &model.Candle{
				Time:   time.Unix(sec, 0).UTC(),
				Open:   t.Price,
				High:   t.Price,
				Low:    t.Price,
				Close:  t.Price,
				Volume: t.Qty,
			}
			continue
		}
		if t.Price > c.High {
			c.High = t.Price
		}
		if t.Price < c.Low {
			c.Low = t.Price
		}
		c.Close = t.Price
		c.Volume += t.Qty
	}

	out := make([]model.Candle, 0, len(buckets))
	for _, c := range buckets {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}
