// Package generator seeds the telemetry tables with synthetic scenario
// data, both healthy and deliberately anomalous.
package generator

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"anomaly-engine/internal/store"
)

const bucketInterval = time.Minute

type Generator struct {
	store *store.Store
	faker *gofakeit.Faker
	now   time.Time
}

func New(db *store.Store, seed uint64) *Generator {
	return &Generator{
		store: db,
		faker: gofakeit.New(seed),
		now:   time.Now().UTC().Truncate(bucketInterval),
	}
}

// bucketTime returns the timestamp of the i-th of total one-minute buckets
// ending at the generator's start time.
func (g *Generator) bucketTime(i, total int) time.Time {
	return g.now.Add(-time.Duration(total-i) * bucketInterval)
}

func (g *Generator) serviceName() string {
	return fmt.Sprintf("%s-service", g.faker.Word())
}
