package dashboard

import (
	"fmt"
	"math"
	"time"

	"chemviz-dashboard/internal/entity"

	"github.com/patrickmn/go-cache"
)

// TypeAverage is the mean of each numeric field over the records of one
// equipment type, rounded to two decimals.
type TypeAverage struct {
	EquipmentType string  `json:"equipment_type"`
	Count         int     `json:"count"`
	Flowrate      float64 `json:"flowrate"`
	Pressure      float64 `json:"pressure"`
	Temperature   float64 `json:"temperature"`
}

type typeSums struct {
	count                           int
	flowrate, pressure, temperature float64
}

// GroupAverages groups records by equipment type, in order of first
// appearance. Only types present in records appear in the result.
func GroupAverages(records []entity.EquipmentRecord) []TypeAverage {
	order := make([]string, 0)
	sums := make(map[string]*typeSums)

	for _, r := range records {
		s, ok := sums[r.EquipmentType]
		if !ok {
			s = &typeSums{}
			sums[r.EquipmentType] = s
			order = append(order, r.EquipmentType)
		}
		s.count++
		s.flowrate += r.Flowrate
		s.pressure += r.Pressure
		s.temperature += r.Temperature
	}

	out := make([]TypeAverage, 0, len(order))
	for _, t := range order {
		s := sums[t]
		if s.count == 0 {
			continue
		}
		n := float64(s.count)
		out = append(out, TypeAverage{
			EquipmentType: t,
			Count:         s.count,
			Flowrate:      round2(s.flowrate / n),
			Pressure:      round2(s.pressure / n),
			Temperature:   round2(s.temperature / n),
		})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// AggregateCache memoizes GroupAverages per dataset. A dataset is immutable
// once fetched, so id, upload time and record count identify its records.
type AggregateCache struct {
	cache *cache.Cache
}

func NewAggregateCache() *AggregateCache {
	return &AggregateCache{
		cache: cache.New(30*time.Minute, 10*time.Minute),
	}
}

func (a *AggregateCache) For(ds *entity.Dataset) []TypeAverage {
	if ds == nil {
		return []TypeAverage{}
	}

	key := fmt.Sprintf("%d:%d:%d", ds.Id, ds.UploadedAt.UnixNano(), len(ds.Records))
	if x, found := a.cache.Get(key); found {
		return copyAverages(x.([]TypeAverage))
	}

	res := GroupAverages(ds.Records)
	a.cache.Set(key, res, cache.DefaultExpiration)
	return copyAverages(res)
}

func copyAverages(in []TypeAverage) []TypeAverage {
	out := make([]TypeAverage, len(in))
	copy(out, in)
	return out
}

func (a *AggregateCache) Flush() {
	a.cache.Flush()
}
