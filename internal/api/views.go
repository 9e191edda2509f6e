package api

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/chalkline-data/edufinance.report/internal/db"
	"github.com/chalkline-data/edufinance.report/internal/httputil"
	"github.com/chalkline-data/edufinance.report/internal/metrics"
	"github.com/chalkline-data/edufinance.report/internal/states"
	"github.com/chalkline-data/edufinance.report/internal/stats"
	"github.com/chalkline-data/edufinance.report/internal/trend"
)

// MapResponse carries the per-state rows for one metric and year plus the KPI
// summary over the rows that reported a value. Dropped counts identifiers the
// normalizer rejected; those rows are absent, never zero-filled.
type MapResponse struct {
	Metric  metrics.Label     `json:"metric"`
	Year    int               `json:"year"`
	Variant metrics.Variant   `json:"variant"`
	Rows    []db.StateYearRow `json:"rows"`
	Dropped int               `json:"dropped"`
	Summary stats.Summary     `json:"summary"`
}

type LeaderboardEntry struct {
	State string  `json:"state"`
	Code  string  `json:"code"`
	Value float64 `json:"value"`
}

// LeaderboardResponse ranks states by metric value. Top is ordered best
// first, Bottom worst first; rows without a value are excluded from both and
// counted in Excluded.
type LeaderboardResponse struct {
	Metric   metrics.Label      `json:"metric"`
	Year     int                `json:"year"`
	Variant  metrics.Variant    `json:"variant"`
	Top      []LeaderboardEntry `json:"top"`
	Bottom   []LeaderboardEntry `json:"bottom"`
	Excluded int                `json:"excluded"`
}

// TrendResponse is the dual-line comparison for one state against the
// national baseline, tagged with how both series were produced.
type TrendResponse struct {
	Metric     metrics.Label      `json:"metric"`
	State      string             `json:"state"`
	StateCode  string             `json:"state_code"`
	Year       int                `json:"year"`
	Variant    metrics.Variant    `json:"variant"`
	Provenance metrics.Provenance `json:"provenance"`
	Comparison trend.Comparison   `json:"comparison"`
}

func metricParam(r *http.Request) (metrics.Label, error) {
	raw := r.URL.Query().Get("metric")
	if raw == "" {
		return "", fmt.Errorf("missing 'metric' parameter")
	}
	return metrics.ParseLabel(raw)
}

func yearParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return 0, fmt.Errorf("missing 'year' parameter")
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid 'year' parameter %q", raw)
	}
	return year, nil
}

func (s *Server) showMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	label, err := metricParam(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	year, err := yearParam(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	res, err := s.resolveSession(r)
	if err != nil {
		httputil.InternalServerError(w, "Failed to resolve warehouse schema: "+err.Error())
		return
	}
	src, err := res.Source()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	rows, dropped, err := s.warehouse.StateYearRows(src, label, year)
	if err != nil {
		httputil.InternalServerError(w, "Failed to retrieve map rows: "+err.Error())
		return
	}

	values := make([]*float64, len(rows))
	for i, row := range rows {
		values[i] = row.Metric
	}

	httputil.WriteJSON(w, http.StatusOK, MapResponse{
		Metric:  label,
		Year:    year,
		Variant: res.Variant,
		Rows:    rows,
		Dropped: dropped,
		Summary: stats.Summarize(values),
	})
}

func (s *Server) showLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	label, err := metricParam(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	year, err := yearParam(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	n := s.cfg.GetLeaderboardSize()
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, fmt.Sprintf("invalid 'n' parameter %q", raw))
			return
		}
		n = parsed
	}

	res, err := s.resolveSession(r)
	if err != nil {
		httputil.InternalServerError(w, "Failed to resolve warehouse schema: "+err.Error())
		return
	}
	src, err := res.Source()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	rows, _, err := s.warehouse.StateYearRows(src, label, year)
	if err != nil {
		httputil.InternalServerError(w, "Failed to retrieve leaderboard rows: "+err.Error())
		return
	}

	top, bottom, excluded := RankLeaderboard(rows, n)

	httputil.WriteJSON(w, http.StatusOK, LeaderboardResponse{
		Metric:   label,
		Year:     year,
		Variant:  res.Variant,
		Top:      top,
		Bottom:   bottom,
		Excluded: excluded,
	})
}

// RankLeaderboard orders rows by metric value, best first, and returns the
// top and bottom n of the ranking. Rows with a NULL metric are excluded and
// counted instead of ranked. The dashboard charts rank through this same
// function so the page and the JSON endpoint cannot disagree.
func RankLeaderboard(rows []db.StateYearRow, n int) (top, bottom []LeaderboardEntry, excluded int) {
	entries := make([]LeaderboardEntry, 0, len(rows))
	for _, row := range rows {
		if row.Metric == nil {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			State: states.DisplayName(row.State),
			Code:  row.StateCode,
			Value: *row.Metric,
		})
	}

	// Descending by value; ties break on code so the ranking is stable
	// across requests.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].Code < entries[j].Code
	})

	if n > len(entries) {
		n = len(entries)
	}
	top = make([]LeaderboardEntry, n)
	copy(top, entries[:n])
	bottom = make([]LeaderboardEntry, n)
	for i := 0; i < n; i++ {
		bottom[i] = entries[len(entries)-1-i]
	}
	return top, bottom, len(rows) - len(entries)
}

// StoredStateID maps user input to the identifier the warehouse stores, by
// canonical code, so "new_york" selects the same rows as "NEW_YORK". When no
// stored identifier carries the code the input is returned unchanged; it has
// already passed the normalizer and simply selects nothing.
func StoredStateID(warehouse *db.Warehouse, src metrics.Source, code, input string) (string, error) {
	ids, err := warehouse.States(src)
	if err != nil {
		return "", err
	}
	for _, id := range ids {
		if c, ok := states.Normalize(id); ok && c == code {
			return id, nil
		}
	}
	return input, nil
}

func (s *Server) showTrend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	label, err := metricParam(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	year, err := yearParam(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	input := r.URL.Query().Get("state")
	if input == "" {
		httputil.BadRequest(w, "missing 'state' parameter")
		return
	}
	code, ok := states.Normalize(input)
	if !ok {
		httputil.BadRequest(w, fmt.Sprintf("unknown state %q", input))
		return
	}

	res, err := s.resolveSession(r)
	if err != nil {
		httputil.InternalServerError(w, "Failed to resolve warehouse schema: "+err.Error())
		return
	}
	src, err := res.Source()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	stateID, err := StoredStateID(s.warehouse, src, code, input)
	if err != nil {
		httputil.InternalServerError(w, "Failed to retrieve states: "+err.Error())
		return
	}

	stateSeries, err := s.warehouse.StateTrend(src, label, stateID)
	if err != nil {
		httputil.InternalServerError(w, "Failed to retrieve state trend: "+err.Error())
		return
	}
	nationalSeries, err := s.warehouse.NationalTrend(src, res.Provenance, label)
	if err != nil {
		httputil.InternalServerError(w, "Failed to retrieve national trend: "+err.Error())
		return
	}

	httputil.WriteJSON(w, http.StatusOK, TrendResponse{
		Metric:     label,
		State:      states.DisplayName(stateID),
		StateCode:  code,
		Year:       year,
		Variant:    res.Variant,
		Provenance: res.Provenance,
		Comparison: trend.Merge(stateSeries, nationalSeries, year),
	})
}
