package db

import (
	"fmt"

	"github.com/chalkline-data/edufinance.report/internal/metrics"
	"github.com/chalkline-data/edufinance.report/internal/monitoring"
	"github.com/chalkline-data/edufinance.report/internal/states"
	"github.com/chalkline-data/edufinance.report/internal/trend"
)

// NationalSeriesLabel is the fixed display label of the national baseline.
const NationalSeriesLabel = "National"

// StateYearRow is one state's record for a metric and year, the unit the map
// and leaderboard views consume. State carries the identifier exactly as
// stored; StateCode is the canonical two-letter code. Metric is nil when the
// warehouse produced NULL, as a ratio metric does over zero enrollment.
type StateYearRow struct {
	State            string   `json:"state"`
	StateCode        string   `json:"state_code"`
	Year             int      `json:"year"`
	Metric           *float64 `json:"metric"`
	Enroll           *float64 `json:"enroll"`
	TotalRevenue     *float64 `json:"total_revenue"`
	TotalExpenditure *float64 `json:"total_expenditure"`
}

// Years lists the distinct years available from src, ascending.
func (w *Warehouse) Years(src metrics.Source) ([]int, error) {
	q := fmt.Sprintf(
		"SELECT DISTINCT %s AS year FROM %s ORDER BY year",
		src.YearExpr(), src.Relation(),
	)
	table, err := w.exec.Query(q)
	if err != nil {
		return nil, fmt.Errorf("failed to list years: %w", err)
	}

	years := make([]int, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		if y, ok := table.Int(i, 0); ok {
			years = append(years, y)
		}
	}
	return years, nil
}

// States lists the distinct raw state identifiers in src, ascending. The
// identifiers come back exactly as stored ("NEW_YORK", "Michigan"); display
// names and canonical codes are the caller's concern.
func (w *Warehouse) States(src metrics.Source) ([]string, error) {
	q := fmt.Sprintf("SELECT DISTINCT state FROM %s ORDER BY state", src.Relation())
	table, err := w.exec.Query(q)
	if err != nil {
		return nil, fmt.Errorf("failed to list states: %w", err)
	}

	list := make([]string, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		if s, ok := table.String(i, 0); ok {
			list = append(list, s)
		}
	}
	return list, nil
}

// StateYearRows fetches every state's row for label at year and resolves the
// identifiers to canonical codes. Rows whose identifier does not resolve are
// dropped, never defaulted; the dropped count is returned so callers can
// surface mapping quality without failing the whole view.
func (w *Warehouse) StateYearRows(src metrics.Source, label metrics.Label, year int) ([]StateYearRow, int, error) {
	expr, err := src.Expr(label)
	if err != nil {
		return nil, 0, err
	}
	q := fmt.Sprintf(
		"SELECT state, %s AS year, %s AS metric, enroll, total_revenue, total_expenditure FROM %s WHERE %s = %d",
		src.YearExpr(), expr, src.Relation(), src.YearExpr(), year,
	)
	table, err := w.exec.Query(q)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch state rows for %s in %d: %w", label, year, err)
	}

	rows := make([]StateYearRow, 0, table.Len())
	dropped := 0
	for i := 0; i < table.Len(); i++ {
		raw, _ := table.String(i, 0)
		code, ok := states.Normalize(raw)
		if !ok {
			dropped++
			continue
		}
		y, _ := table.Int(i, 1)
		rows = append(rows, StateYearRow{
			State:            raw,
			StateCode:        code,
			Year:             y,
			Metric:           table.FloatPtr(i, 2),
			Enroll:           table.FloatPtr(i, 3),
			TotalRevenue:     table.FloatPtr(i, 4),
			TotalExpenditure: table.FloatPtr(i, 5),
		})
	}
	if dropped > 0 {
		monitoring.Logf("state mapping dropped %d of %d rows for %s in %d", dropped, table.Len(), label, year)
	}
	return rows, dropped, nil
}

// StateTrend returns one state's per-year series for label. The identifier
// must match storage exactly; callers resolve user input against States()
// before it reaches query text.
func (w *Warehouse) StateTrend(src metrics.Source, label metrics.Label, state string) (trend.Series, error) {
	expr, err := src.Expr(label)
	if err != nil {
		return trend.Series{}, err
	}
	q := fmt.Sprintf(
		"SELECT %s AS year, %s AS metric FROM %s WHERE state = %s ORDER BY %s",
		src.YearExpr(), expr, src.Relation(), QuoteLiteral(state), src.YearExpr(),
	)
	table, err := w.exec.Query(q)
	if err != nil {
		return trend.Series{}, fmt.Errorf("failed to fetch %s trend for %s: %w", label, state, err)
	}

	series := trend.Series{Label: states.DisplayName(state)}
	for i := 0; i < table.Len(); i++ {
		year, ok := table.Int(i, 0)
		if !ok {
			continue
		}
		series.Points = append(series.Points, trend.Point{Year: year, Value: table.FloatPtr(i, 1)})
	}
	return series, nil
}

// NationalTrend returns the national baseline series for label, one point per
// year. The dedicated summary reads a national-level expression from
// v_national_summary; the computed fallback averages the per-state metric by
// year over src. For ratio metrics those are ratio-of-sums and
// average-of-ratios and they legitimately differ; each provenance keeps its
// own meaning.
func (w *Warehouse) NationalTrend(src metrics.Source, prov metrics.Provenance, label metrics.Label) (trend.Series, error) {
	var q string
	switch prov {
	case metrics.ProvenanceDedicatedSummary:
		q = fmt.Sprintf(
			"SELECT year, %s AS metric FROM %s ORDER BY year",
			metrics.NationalExpr(label), metrics.NationalSummaryRelation,
		)
	case metrics.ProvenanceComputedAggregate:
		expr, err := src.Expr(label)
		if err != nil {
			return trend.Series{}, err
		}
		q = fmt.Sprintf(
			"SELECT %s AS year, AVG(%s) AS metric FROM %s GROUP BY %s ORDER BY %s",
			src.YearExpr(), expr, src.Relation(), src.YearExpr(), src.YearExpr(),
		)
	default:
		return trend.Series{}, fmt.Errorf("unknown national baseline provenance %q", prov)
	}

	table, err := w.exec.Query(q)
	if err != nil {
		return trend.Series{}, fmt.Errorf("failed to fetch national %s trend: %w", label, err)
	}

	series := trend.Series{Label: NationalSeriesLabel}
	for i := 0; i < table.Len(); i++ {
		year, ok := table.Int(i, 0)
		if !ok {
			continue
		}
		series.Points = append(series.Points, trend.Point{Year: year, Value: table.FloatPtr(i, 1)})
	}
	return series, nil
}
