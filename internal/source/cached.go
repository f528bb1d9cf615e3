package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"anomaly-engine/internal/stats"
)

const windowCacheTTL = 5 * time.Minute

// CachedSource wraps a TelemetrySource with a Redis read-through cache for
// field window statistics. Detection runs hit the same baseline windows over
// and over; everything else passes straight through.
type CachedSource struct {
	next TelemetrySource
	rdb  *redis.Client
}

func NewCachedSource(next TelemetrySource, rdb *redis.Client) *CachedSource {
	return &CachedSource{next: next, rdb: rdb}
}

func (c *CachedSource) CounterSeries(ctx context.Context, metric string, tr TimeRange, groupBy string) ([]CounterPoint, error) {
	return c.next.CounterSeries(ctx, metric, tr, groupBy)
}

func (c *CachedSource) Exemplars(ctx context.Context, field string, tr TimeRange, dir Direction, limit int) ([]Exemplar, error) {
	return c.next.Exemplars(ctx, field, tr, dir, limit)
}

func (c *CachedSource) DurationSamples(ctx context.Context, tr TimeRange, filters Filters) ([]DurationSample, error) {
	return c.next.DurationSamples(ctx, tr, filters)
}

func (c *CachedSource) FieldWindowStatistics(ctx context.Context, field string, tr TimeRange) (stats.Window, error) {
	key := windowKey(field, tr)

	raw, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		var w stats.Window
		if err := json.Unmarshal([]byte(raw), &w); err == nil {
			return w, nil
		}
		log.Printf("Dropping undecodable cached window %s", key)
	} else if err != redis.Nil {
		// Cache trouble must not fail the detection run.
		log.Printf("Window cache read failed for %s: %v", key, err)
	}

	w, err := c.next.FieldWindowStatistics(ctx, field, tr)
	if err != nil {
		return stats.Window{}, err
	}

	serialized, err := json.Marshal(w)
	if err != nil {
		log.Printf("Window cache encode failed for %s: %v", key, err)
		return w, nil
	}
	if err := c.rdb.Set(ctx, key, serialized, windowCacheTTL).Err(); err != nil {
		log.Printf("Window cache write failed for %s: %v", key, err)
	}
	return w, nil
}

func windowKey(field string, tr TimeRange) string {
	return fmt.Sprintf("window:%s:%d:%d", field, tr.Start.Unix(), tr.End.Unix())
}
