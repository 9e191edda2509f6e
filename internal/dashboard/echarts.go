package dashboard

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/chalkline-data/edufinance.report/internal/api"
	"github.com/chalkline-data/edufinance.report/internal/config"
	"github.com/chalkline-data/edufinance.report/internal/db"
	"github.com/chalkline-data/edufinance.report/internal/httputil"
	"github.com/chalkline-data/edufinance.report/internal/metrics"
	"github.com/chalkline-data/edufinance.report/internal/session"
	"github.com/chalkline-data/edufinance.report/internal/states"
	"github.com/chalkline-data/edufinance.report/internal/trend"
)

// echartsAssetsHost serves the echarts runtime for the rendered pages.
const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Handler renders the chart views. It reads through the same warehouse and
// session store as the JSON API and holds no state of its own.
type Handler struct {
	warehouse *db.Warehouse
	sessions  *session.Store
	cfg       *config.Config
}

func NewHandler(warehouse *db.Warehouse, sessions *session.Store, cfg *config.Config) *Handler {
	return &Handler{warehouse: warehouse, sessions: sessions, cfg: cfg}
}

// Attach registers the dashboard routes on mux.
func (h *Handler) Attach(mux *http.ServeMux) {
	mux.HandleFunc("/dashboard", h.handleDashboard)
	mux.HandleFunc("/dashboard/trend.png", h.handleTrendPNG)
}

// selection is the resolved chart selection for one request.
type selection struct {
	label   metrics.Label
	year    int
	stateID string
	res     session.Resolution
	src     metrics.Source
}

// resolveSelection fills the chart selection from query parameters, falling
// back to the first metric, the latest year, and the first stored state so
// the page renders with no parameters at all. On failure it writes the error
// response and returns false.
func (h *Handler) resolveSelection(w http.ResponseWriter, r *http.Request) (*selection, bool) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = r.Header.Get("X-Session-ID")
	}
	if sessionID == "" {
		sessionID = api.DefaultSessionID
	}
	res, err := h.sessions.Resolve(sessionID)
	if err != nil {
		httputil.InternalServerError(w, "Failed to resolve warehouse schema: "+err.Error())
		return nil, false
	}
	src, err := res.Source()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return nil, false
	}

	sel := &selection{label: metrics.Labels()[0], res: res, src: src}

	if raw := r.URL.Query().Get("metric"); raw != "" {
		label, err := metrics.ParseLabel(raw)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return nil, false
		}
		sel.label = label
	}

	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid 'year' parameter %q", raw))
			return nil, false
		}
		sel.year = year
	} else {
		years, err := h.warehouse.Years(src)
		if err != nil {
			httputil.InternalServerError(w, "Failed to retrieve years: "+err.Error())
			return nil, false
		}
		if len(years) > 0 {
			sel.year = years[len(years)-1]
		}
	}

	if raw := r.URL.Query().Get("state"); raw != "" {
		code, ok := states.Normalize(raw)
		if !ok {
			httputil.BadRequest(w, fmt.Sprintf("unknown state %q", raw))
			return nil, false
		}
		stateID, err := api.StoredStateID(h.warehouse, src, code, raw)
		if err != nil {
			httputil.InternalServerError(w, "Failed to retrieve states: "+err.Error())
			return nil, false
		}
		sel.stateID = stateID
	} else {
		ids, err := h.warehouse.States(src)
		if err != nil {
			httputil.InternalServerError(w, "Failed to retrieve states: "+err.Error())
			return nil, false
		}
		if len(ids) > 0 {
			sel.stateID = ids[0]
		}
	}

	return sel, true
}

// loadComparison queries both trend series for the selection and merges them.
func (h *Handler) loadComparison(w http.ResponseWriter, sel *selection) (trend.Comparison, bool) {
	stateSeries, err := h.warehouse.StateTrend(sel.src, sel.label, sel.stateID)
	if err != nil {
		httputil.InternalServerError(w, "Failed to retrieve state trend: "+err.Error())
		return trend.Comparison{}, false
	}
	nationalSeries, err := h.warehouse.NationalTrend(sel.src, sel.res.Provenance, sel.label)
	if err != nil {
		httputil.InternalServerError(w, "Failed to retrieve national trend: "+err.Error())
		return trend.Comparison{}, false
	}
	return trend.Merge(stateSeries, nationalSeries, sel.year), true
}

// handleDashboard renders the leaderboard bar chart and the state-vs-national
// line chart on one page.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	sel, ok := h.resolveSelection(w, r)
	if !ok {
		return
	}

	rows, _, err := h.warehouse.StateYearRows(sel.src, sel.label, sel.year)
	if err != nil {
		httputil.InternalServerError(w, "Failed to retrieve leaderboard rows: "+err.Error())
		return
	}
	board := PrepareLeaderboardChartData(sel.label, sel.year, rows, h.cfg.GetLeaderboardSize())

	cmp, ok := h.loadComparison(w, sel)
	if !ok {
		return
	}
	comparison := PrepareTrendChartData(sel.label, cmp)

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsHost)
	page.AddCharts(leaderboardBar(board), trendLine(comparison))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// leaderboardBar builds the ranking bar chart, best state on the left.
func leaderboardBar(data *LeaderboardChartData) *charts.Bar {
	x := make([]string, 0, len(data.Entries))
	y := make([]opts.BarData, 0, len(data.Entries))
	for _, e := range data.Entries {
		name := e.Code
		if name == "" {
			name = e.State
		}
		x = append(x, name)
		y = append(y, opts.BarData{Value: e.Value})
	}

	subtitle := fmt.Sprintf("year=%d states=%d", data.Year, len(data.Entries))
	if data.Omitted > 0 {
		subtitle += fmt.Sprintf(" middle omitted=%d", data.Omitted)
	}
	if data.Excluded > 0 {
		subtitle += fmt.Sprintf(" no data=%d", data.Excluded)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Education Finance Dashboard", Width: "100%", Height: "480px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: data.Metric + " leaderboard", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("states", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// trendLine builds the dual-line comparison chart on the shared year axis.
func trendLine(data *TrendChartData) *charts.Line {
	x := make([]string, 0, len(data.Years))
	stateVals := make([]opts.LineData, 0, len(data.Years))
	nationalVals := make([]opts.LineData, 0, len(data.Years))
	for i, year := range data.Years {
		x = append(x, strconv.Itoa(year))
		stateVals = append(stateVals, lineValue(data.StateValues[i]))
		nationalVals = append(nationalVals, lineValue(data.NationalValues[i]))
	}

	subtitle := fmt.Sprintf("selected year %d", data.Year)
	if data.Delta != nil {
		subtitle = fmt.Sprintf("delta at %d: %+.0f USD", data.Year, *data.Delta)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s: %s vs %s", data.Metric, data.StateLabel, data.NationalLabel), Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(x).
		AddSeries(data.StateLabel, stateVals, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff5252"})).
		AddSeries(data.NationalLabel, nationalVals, charts.WithItemStyleOpts(opts.ItemStyle{Color: "#9e9e9e"}))
	return line
}

// lineValue maps a missing year to a null point so the rendered line shows a
// gap there instead of interpolating across it.
func lineValue(v *float64) opts.LineData {
	if v == nil {
		return opts.LineData{Value: nil}
	}
	return opts.LineData{Value: *v}
}
