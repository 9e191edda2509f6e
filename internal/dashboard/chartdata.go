// Package dashboard renders the server-side chart views: an echarts page
// with the leaderboard and trend comparison, and a PNG export of the trend
// for reports. This file separates data preparation from chart rendering
// for improved testability.
package dashboard

import (
	"sort"

	"github.com/chalkline-data/edufinance.report/internal/api"
	"github.com/chalkline-data/edufinance.report/internal/db"
	"github.com/chalkline-data/edufinance.report/internal/metrics"
	"github.com/chalkline-data/edufinance.report/internal/trend"
)

// LeaderboardChartData holds the ranked entries for the leaderboard bar
// chart, best first.
type LeaderboardChartData struct {
	Metric   string                 `json:"metric"`
	Year     int                    `json:"year"`
	Entries  []api.LeaderboardEntry `json:"entries"`
	Excluded int                    `json:"excluded"`
	Omitted  int                    `json:"omitted"`
}

// PrepareLeaderboardChartData ranks rows for the bar chart through the same
// ranking the JSON endpoint uses. The chart shows one continuous best-to-worst
// list; when the full ranking exceeds twice n the middle is omitted so the
// top and bottom n stay readable. Excluded counts rows dropped for a NULL
// metric, Omitted the middle ranks cut from the chart.
func PrepareLeaderboardChartData(label metrics.Label, year int, rows []db.StateYearRow, n int) *LeaderboardChartData {
	full, _, excluded := api.RankLeaderboard(rows, len(rows))

	entries := full
	omitted := 0
	if n > 0 && len(full) > 2*n {
		entries = make([]api.LeaderboardEntry, 0, 2*n)
		entries = append(entries, full[:n]...)
		entries = append(entries, full[len(full)-n:]...)
		omitted = len(full) - len(entries)
	}

	return &LeaderboardChartData{
		Metric:   string(label),
		Year:     year,
		Entries:  entries,
		Excluded: excluded,
		Omitted:  omitted,
	}
}

// TrendChartData holds the state and national series aligned on a shared
// year axis. A nil value marks a year the series does not cover; renderers
// leave a gap there instead of interpolating.
type TrendChartData struct {
	Metric         string     `json:"metric"`
	StateLabel     string     `json:"state_label"`
	NationalLabel  string     `json:"national_label"`
	Year           int        `json:"year"`
	Years          []int      `json:"years"`
	StateValues    []*float64 `json:"state_values"`
	NationalValues []*float64 `json:"national_values"`
	Delta          *float64   `json:"delta,omitempty"`
}

// PrepareTrendChartData aligns a merged comparison on the union of both
// series' years. Delta is nil when either series lacks the selected year.
func PrepareTrendChartData(label metrics.Label, cmp trend.Comparison) *TrendChartData {
	yearSet := make(map[int]bool)
	for _, p := range cmp.State.Points {
		yearSet[p.Year] = true
	}
	for _, p := range cmp.National.Points {
		yearSet[p.Year] = true
	}
	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)

	stateVals := make([]*float64, len(years))
	nationalVals := make([]*float64, len(years))
	for i, y := range years {
		if v, ok := cmp.State.ValueAt(y); ok {
			v := v
			stateVals[i] = &v
		}
		if v, ok := cmp.National.ValueAt(y); ok {
			v := v
			nationalVals[i] = &v
		}
	}

	data := &TrendChartData{
		Metric:         string(label),
		StateLabel:     cmp.State.Label,
		NationalLabel:  cmp.National.Label,
		Year:           cmp.Year,
		Years:          years,
		StateValues:    stateVals,
		NationalValues: nationalVals,
	}
	if cmp.DeltaOK {
		d := cmp.Delta
		data.Delta = &d
	}
	return data
}
