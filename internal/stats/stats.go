// Package stats computes the KPI summary shown above the map: how many rows
// carried a usable metric value and the spread across them.
package stats

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a metric column across the rows that reported a value.
// All pointers are nil when no row carried a value, which renders as
// "unavailable" rather than zero.
type Summary struct {
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Median *float64 `json:"median"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
}

// Summarize folds a nullable metric column into a Summary. Nil entries are
// excluded from every statistic; they are counted nowhere, so dropping a row
// before calling Summarize and passing it as nil are equivalent.
func Summarize(values []*float64) Summary {
	xs := make([]float64, 0, len(values))
	for _, v := range values {
		if v != nil {
			xs = append(xs, *v)
		}
	}

	s := Summary{Count: len(xs)}
	if len(xs) == 0 {
		return s
	}

	mean := stat.Mean(xs, nil)
	min := floats.Min(xs)
	max := floats.Max(xs)

	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	s.Mean = &mean
	s.Median = &median
	s.Min = &min
	s.Max = &max
	return s
}
