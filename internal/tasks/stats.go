package tasks

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DailySales is the aggregate of orders completed on one day.
type DailySales struct {
	Date       string `json:"date"`
	Orders     int64  `json:"orders"`
	Items      int64  `json:"items"`
	GrossTotal int64  `json:"grossTotal"`
	NetTotal   int64  `json:"netTotal"`
	Discount   int64  `json:"discount"`
}

// SalesStats keeps per-day order aggregates in redis hashes.
type SalesStats struct {
	R         *redis.Client
	Retention time.Duration
}

const dateLayout = "2006-01-02"

func salesKey(date string) string {
	return "stats:sales:" + date
}

func dedupKey(orderNumber string) string {
	return "stats:sales:seen:" + orderNumber
}

// recordScript folds one order into its day's hash. The dedup marker is written
// last so a failed run leaves nothing behind and the retry records the order.
var recordScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HINCRBY', KEYS[2], 'orders', 1)
redis.call('HINCRBY', KEYS[2], 'items', ARGV[1])
redis.call('HINCRBY', KEYS[2], 'gross', ARGV[2])
redis.call('HINCRBY', KEYS[2], 'net', ARGV[3])
redis.call('PEXPIRE', KEYS[2], ARGV[4])
redis.call('SET', KEYS[1], '1', 'PX', ARGV[4])
return 1
`)

// Record adds one completed order to its day's aggregate. Recording the same
// order number twice is a no-op.
func (s SalesStats) Record(ctx context.Context, orderNumber string, at time.Time, items int, gross, net int64) error {
	if s.R == nil {
		return nil
	}
	retention := s.Retention
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	keys := []string{dedupKey(orderNumber), salesKey(at.UTC().Format(dateLayout))}
	if err := recordScript.Run(ctx, s.R, keys, items, gross, net, retention.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("stats: record %s: %w", orderNumber, err)
	}
	return nil
}

// Daily returns the aggregate for date (YYYY-MM-DD). Days without orders are zero.
func (s SalesStats) Daily(ctx context.Context, date string) (DailySales, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return DailySales{}, fmt.Errorf("stats: invalid date %q: %w", date, err)
	}
	out := DailySales{Date: date}
	if s.R == nil {
		return out, nil
	}
	values, err := s.R.HGetAll(ctx, salesKey(date)).Result()
	if err != nil {
		return DailySales{}, fmt.Errorf("stats: read: %w", err)
	}
	out.Orders = parseCount(values["orders"])
	out.Items = parseCount(values["items"])
	out.GrossTotal = parseCount(values["gross"])
	out.NetTotal = parseCount(values["net"])
	out.Discount = out.GrossTotal - out.NetTotal
	return out, nil
}

func parseCount(v string) int64 {
	n, _ := strconv.ParseInt(v, 10, 64)
	return n
}
